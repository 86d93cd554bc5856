/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"drawdoc/internal/document"
	"drawdoc/internal/storage"
)

// PushWorkspace uploads the workspace document under its DocID on top of the
// last server version seen and records the new version in ws.Meta. The
// caller saves the workspace afterwards.
func PushWorkspace(ctx context.Context, c *Client, ws *storage.Workspace) (Document, error) {
	if ws == nil || ws.Doc == nil {
		return Document{}, fmt.Errorf("push: no document")
	}
	body, err := json.Marshal(ws.Doc)
	if err != nil {
		return Document{}, fmt.Errorf("push: marshal document: %w", err)
	}
	d, err := c.Push(ctx, ws.Meta.DocID, ws.Meta.Name, body, ws.Meta.ServerVersion)
	if err != nil {
		return Document{}, fmt.Errorf("push %s: %w", ws.Meta.DocID, err)
	}
	ws.Meta.ServerVersion = d.Version
	return d, nil
}

// PullWorkspace replaces the workspace document with the server copy and
// records its version. Unsaved local changes are refused unless force is set.
func PullWorkspace(ctx context.Context, c *Client, ws *storage.Workspace, cfg document.Config, force bool) (Document, error) {
	if ws == nil {
		return Document{}, fmt.Errorf("pull: no workspace")
	}
	if ws.Doc != nil && ws.Doc.Dirty() && !force {
		return Document{}, fmt.Errorf("pull: workspace has unsaved changes")
	}
	d, err := c.Pull(ctx, ws.Meta.DocID)
	if err != nil {
		return Document{}, fmt.Errorf("pull %s: %w", ws.Meta.DocID, err)
	}
	doc, err := document.Load(d.Body, cfg)
	if err != nil {
		return Document{}, fmt.Errorf("pull %s: %w", ws.Meta.DocID, err)
	}
	ws.Doc = doc
	ws.Meta.Name = d.Name
	ws.Meta.ServerVersion = d.Version
	return d, nil
}
