/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a report file and a crash-safe autosave
// of the open workspace.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "drawdoc/internal/log"
	"drawdoc/internal/storage"
	"drawdoc/internal/telemetry"
	"drawdoc/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Recover captures a panic, logs it with the stack trace, writes a report
// and autosaves the in-memory document of ws (if provided).
//
// Usage: defer crash.Recover(ws)
func Recover(ws *storage.Workspace) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(ws, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if ws != nil && ws.Doc != nil {
		if path, err := storage.AutosaveCrashSnapshot(ws); err != nil {
			l.Error("autosave crash snapshot failed", slog.Any("err", err))
		} else {
			l.Info("autosave crash snapshot written", slog.String("path", path))
		}
	}

	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

// renderReport formats the report body. The command history is included so
// the steps leading to the panic can be replayed.
func renderReport(ws *storage.Workspace, panicVal any, stack []byte) []byte {
	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "drawdoc Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if ws != nil {
		_, _ = fmt.Fprintf(&buf, "Workspace: %s\n", ws.Root)
		_, _ = fmt.Fprintf(&buf, "DocID: %s\n", ws.Meta.DocID)
		if ws.Doc != nil {
			pages, nodes, depth := ws.Doc.Stats()
			_, _ = fmt.Fprintf(&buf, "Document: pages=%d nodes=%d undo_depth=%d\n", pages, nodes, depth)
		}
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	if ws != nil && ws.Doc != nil {
		_, _ = fmt.Fprintf(&buf, "Commands:\n%s\n", ws.Doc.ListCommands())
	}
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))
	return buf.Bytes()
}

func writeReport(ws *storage.Workspace, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if ws != nil && ws.Root != "" {
		dir = filepath.Join(ws.Root, storage.BackupsDirName)
		_ = os.MkdirAll(dir, 0o755)
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405")))

	body := renderReport(ws, panicVal, stack)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()
	if _, err := f.Write(body); err != nil {
		return path, err
	}
	_ = f.Sync()

	// optionally upload anonymized crash report (opt-in via env)
	telemetry.UploadCrash(body)
	return path, nil
}
