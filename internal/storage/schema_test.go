/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"testing"

	"drawdoc/internal/document"
)

func TestManifestSchemaIsValidJSON(t *testing.T) {
	var v map[string]any
	if err := json.Unmarshal(ManifestSchema(), &v); err != nil {
		t.Fatalf("embedded schema is not JSON: %v", err)
	}
	if v["$schema"] == nil {
		t.Fatalf("schema should declare its draft")
	}
}

func TestValidateManifestAcceptsEncodedWorkspace(t *testing.T) {
	data, err := encodeManifest(Meta{Name: "n", DocID: "d"}, sampleDoc(t))
	if err != nil {
		t.Fatalf("encodeManifest: %v", err)
	}
	if err := ValidateManifest(data); err != nil {
		t.Fatalf("ValidateManifest: %v", err)
	}
}

func TestValidateManifestRejects(t *testing.T) {
	cases := map[string]string{
		"missing meta":     `{"format":1,"document":{"id_counter":0,"pages":[],"nodes":[]}}`,
		"unknown node":     `{"format":1,"meta":{"name":"n","doc_id":"d"},"document":{"id_counter":1,"pages":[],"nodes":[{"node_type":"Circle","id":"1"}]}}`,
		"negative radius":  `{"format":1,"meta":{"name":"n","doc_id":"d"},"document":{"id_counter":1,"pages":[],"nodes":[{"node_type":"Arc","id":"1","x":0,"y":0,"r":-1,"angle_start":0,"angle_end":90}]}}`,
		"page without ids": `{"format":1,"meta":{"name":"n","doc_id":"d"},"document":{"id_counter":1,"pages":[{"node_type":"Page","id":"1","name":"a","description":""}],"nodes":[]}}`,
		"zero format":      `{"format":0,"meta":{"name":"n","doc_id":"d"},"document":{"id_counter":0,"pages":[],"nodes":[]}}`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidateManifest([]byte(data))
			if !errors.Is(err, ErrInvalidManifest) {
				t.Fatalf("expected ErrInvalidManifest, got %v", err)
			}
		})
	}
}

func TestValidateManifestMalformedJSON(t *testing.T) {
	err := ValidateManifest([]byte("{"))
	if err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
	if errors.Is(err, ErrInvalidManifest) {
		t.Fatalf("malformed JSON is a parse error, not a schema violation")
	}
}

func TestDecodeManifestRejectsSchemaViolation(t *testing.T) {
	if _, _, err := decodeManifest([]byte(`{"format":1}`), document.Config{}); !errors.Is(err, ErrInvalidManifest) {
		t.Fatalf("expected schema error, got %v", err)
	}
}
