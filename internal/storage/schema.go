/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed schema/drawing.schema.json
var manifestSchemaJSON []byte

var (
	manifestSchemaOnce sync.Once
	manifestSchema     *gojsonschema.Schema
	manifestSchemaErr  error
)

// ErrInvalidManifest wraps schema violations reported by ValidateManifest.
var ErrInvalidManifest = errors.New("manifest does not conform to schema")

// ManifestSchema returns the embedded JSON schema for drawing.json.
func ManifestSchema() []byte { return manifestSchemaJSON }

func compiledManifestSchema() (*gojsonschema.Schema, error) {
	manifestSchemaOnce.Do(func() {
		manifestSchema, manifestSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(manifestSchemaJSON))
	})
	return manifestSchema, manifestSchemaErr
}

// ValidateManifest checks data against the embedded manifest schema.
func ValidateManifest(data []byte) error {
	schema, err := compiledManifestSchema()
	if err != nil {
		return fmt.Errorf("load manifest schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate manifest: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(msgs, "; "))
}
