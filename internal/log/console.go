/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var levelStyles = map[slog.Level]lipgloss.Style{
	slog.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	slog.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	slog.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
	slog.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
}

// consoleHandler writes one line per record:
//
//	15:04:05.000 INF message key=value ...
//
// Attributes added through WithAttrs are formatted once; groups prefix
// the keys that follow them.
type consoleHandler struct {
	w      io.Writer
	mu     *sync.Mutex
	level  slog.Leveler
	source bool
	prefix string
	pre    string
}

func newConsoleHandler(w io.Writer, level slog.Leveler, source bool) *consoleHandler {
	return &consoleHandler{w: w, mu: &sync.Mutex{}, level: level, source: source}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	floor := slog.LevelInfo
	if h.level != nil {
		floor = h.level.Level()
	}
	return level >= floor
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(ts.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(levelTag(r.Level))
	if r.Message != "" {
		b.WriteByte(' ')
		b.WriteString(r.Message)
	}
	b.WriteString(h.pre)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.prefix, a)
		return true
	})
	if h.source {
		if src := r.Source(); src != nil && src.File != "" {
			b.WriteString(" src=")
			b.WriteString(src.File)
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(src.Line))
		}
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.pre)
	for _, a := range attrs {
		appendAttr(&b, h.prefix, a)
	}
	c := *h
	c.pre = b.String()
	return &c
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, p, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix + a.Key + "=")
	b.WriteString(valueString(a.Value))
}

func levelTag(l slog.Level) string {
	var tag string
	switch {
	case l < slog.LevelInfo:
		tag, l = "DBG", slog.LevelDebug
	case l < slog.LevelWarn:
		tag, l = "INF", slog.LevelInfo
	case l < slog.LevelError:
		tag, l = "WRN", slog.LevelWarn
	default:
		tag, l = "ERR", slog.LevelError
	}
	return levelStyles[l].Render(tag)
}

func valueString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return v.String()
	}
}
