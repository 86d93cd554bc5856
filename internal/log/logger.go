/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log owns the process-wide slog logger. Records go to a console
// sink (colored text or JSON) and, when a file is configured, to a rotated
// JSON file as well. Environment overrides are resolved by the config
// package before Init is called.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"drawdoc/internal/version"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger initialization. The zero value logs INFO and
// above as console text to stderr.
type Options struct {
	Level     string // debug, info, warn or error
	Format    string // "console" or "json"
	AddSource bool
	File      string    // rotated JSON log file, optional
	Output    io.Writer // console destination; nil means stderr
	Quiet     bool      // drop the console sink (the shell owns the terminal)
}

var (
	mu      sync.RWMutex
	current *slog.Logger
)

// L returns the process logger, installing a default one on first use.
func L() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l == nil {
		l = Init(Options{})
	}
	return l
}

// Init builds a logger from opts, installs it as the process logger and
// as slog's default, and returns it.
func Init(opts Options) *slog.Logger {
	l := New(opts)
	mu.Lock()
	current = l
	mu.Unlock()
	slog.SetDefault(l)
	return l
}

// New builds a logger without installing it.
func New(opts Options) *slog.Logger {
	lvl := levelOf(opts.Level)
	var sinks []slog.Handler
	if !opts.Quiet {
		out := opts.Output
		if out == nil {
			out = os.Stderr
		}
		sinks = append(sinks, consoleSink(out, opts.Format, lvl, opts.AddSource))
	}
	if path := strings.TrimSpace(opts.File); path != "" {
		w := &lj.Logger{Filename: path, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		sinks = append(sinks, slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}))
	}
	return slog.New(fanout(sinks)).With(
		slog.String("app", "drawdoc"),
		slog.String("ver", version.Version),
	)
}

func consoleSink(w io.Writer, format string, lvl slog.Level, source bool) slog.Handler {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: source})
	}
	return newConsoleHandler(w, lvl, source)
}

func levelOf(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// WithComponent returns a logger with the component attribute pre-set.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

func WithWorkspace(l *slog.Logger, root string) *slog.Logger {
	return l.With(slog.String("workspace", root))
}

// Merge overlays the non-empty fields of o on top of base.
func Merge(base, o Options) Options {
	if strings.TrimSpace(o.Level) != "" {
		base.Level = o.Level
	}
	if strings.TrimSpace(o.Format) != "" {
		base.Format = o.Format
	}
	if strings.TrimSpace(o.File) != "" {
		base.File = o.File
	}
	base.AddSource = base.AddSource || o.AddSource
	base.Quiet = base.Quiet || o.Quiet
	if o.Output != nil {
		base.Output = o.Output
	}
	return base
}

type docKey struct{}

// ContextWithDoc returns ctx tagged with a document id. Records logged with
// the *Context methods and this ctx carry it as "doc".
func ContextWithDoc(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, docKey{}, id)
}

// fanout sends each record to every sink, adding the "doc" attribute from
// the context first.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if id, ok := ctx.Value(docKey{}).(string); ok && id != "" {
			r = r.Clone()
			r.AddAttrs(slog.String("doc", id))
		}
	}
	var first error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
