/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLevelOf(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := levelOf(in); got != want {
			t.Fatalf("levelOf(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewFansOutToConsoleAndFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "drawdoc.log")
	l := New(Options{Level: "warn", Output: &buf, File: path})
	ctx := ContextWithDoc(context.Background(), "d1")
	l.InfoContext(ctx, "dropped")
	l.WarnContext(ctx, "kept")
	if out := buf.String(); strings.Contains(out, "dropped") || !strings.Contains(out, "kept") || !strings.Contains(out, "doc=d1") {
		t.Fatalf("console sink output: %q", out)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(b), `"msg":"kept"`) || !strings.Contains(string(b), `"doc":"d1"`) {
		t.Fatalf("file sink output: %s", b)
	}

	quiet := New(Options{Quiet: true})
	if quiet.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("quiet logger without a file must be disabled")
	}
}

func TestConsoleHandler_Behavior(t *testing.T) {
	// Capture output into a buffer
	var buf bytes.Buffer
	h := newConsoleHandler(&buf, slog.LevelWarn, true)

	// Enabled should filter below WARN
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should not be enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}

	// WithAttrs and WithGroup should accumulate
	h2 := h.WithAttrs([]slog.Attr{slog.String("k", "v")})
	h2 = h2.WithGroup("grp")

	// Build a record and handle it
	r := slog.Record{Time: time.Now(), Level: slog.LevelError, Message: "boom"}
	r.AddAttrs(slog.Int("n", 42), slog.Float64("pi", 3.14), slog.Bool("ok", true))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("handle error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "boom") || !strings.Contains(out, "k=v") {
		t.Fatalf("output missing expected content: %q", out)
	}
	// Grouped key should appear as prefix
	if !strings.Contains(out, "grp.n=42") {
		t.Fatalf("grouped attr missing or malformed: %q", out)
	}

	// Spot check level and value stringers
	if !strings.Contains(out, "ERR") { // levelTag
		t.Fatalf("expected ERR level tag in output: %q", out)
	}
	if !strings.Contains(out, "pi=3.14") { // valueString float
		t.Fatalf("expected trimmed float: %q", out)
	}
}

func TestContextWithDocAndQuoting(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "debug", Output: &buf})
	defer Init(Options{})

	ctx := ContextWithDoc(context.Background(), "doc-42")
	L().InfoContext(ctx, "stored", slog.String("name", "floor plan"), slog.Group("vp", slog.Int("w", 400)))
	out := buf.String()
	if !strings.Contains(out, "doc=doc-42") {
		t.Fatalf("document id not attached: %q", out)
	}
	if !strings.Contains(out, `name="floor plan"`) {
		t.Fatalf("values with spaces must be quoted: %q", out)
	}
	if !strings.Contains(out, "vp.w=400") {
		t.Fatalf("group attrs must be prefixed: %q", out)
	}
}
