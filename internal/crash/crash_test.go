/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"drawdoc/internal/command"
	"drawdoc/internal/document"
	"drawdoc/internal/storage"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	defer os.Remove(path)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "drawdoc Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
	if strings.Contains(s, "Workspace:") {
		t.Fatalf("no workspace lines expected without a workspace")
	}
}

func TestWriteReportIncludesWorkspaceAndCommands(t *testing.T) {
	root := t.TempDir()
	doc := document.New()
	doc.Execute(command.NewCreatePage(doc.NextID(), "p", "d"))
	doc.Execute(command.NewCreateLine(doc.NextID(), 0, 0, 1, 1))
	ws := &storage.Workspace{Root: root, ManifestPath: filepath.Join(root, storage.ManifestFileName), Meta: storage.Meta{DocID: "abc"}, Doc: doc}

	path, err := writeReport(ws, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(root, storage.BackupsDirName) {
		t.Fatalf("expected crash report under backups dir, got %s", path)
	}
	b, _ := os.ReadFile(path)
	s := string(b)
	for _, want := range []string{"Workspace: " + root, "DocID: abc", "pages=1 nodes=1 undo_depth=2", "CreatePage(id=1", "CreateLine(id=2"} {
		if !strings.Contains(s, want) {
			t.Fatalf("report missing %q:\n%s", want, s)
		}
	}
}
