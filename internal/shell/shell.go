/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package shell is the interactive terminal front end: a single input line
// whose statements run against a document, with a scrolling history.
package shell

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"drawdoc/internal/document"
	applog "drawdoc/internal/log"
	"drawdoc/internal/script"
	"drawdoc/internal/viewport"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

const maxHistory = 500

// Options configures a shell session.
type Options struct {
	// Exporter handles "export" statements.
	Exporter script.Exporter
	// Clipboard receives the document JSON on "copy". Defaults to the
	// system clipboard.
	Clipboard func(string) error
	// OnQuit runs once when the shell exits, e.g. to save the workspace.
	OnQuit func() error
}

type entry struct {
	input  string
	output string
	err    bool
}

// Model is the Bubble Tea model of the shell.
type Model struct {
	doc  *document.Document
	vp   *viewport.Viewport
	opts Options

	input    []rune
	history  []entry
	inputs   []string
	recall   int
	width    int
	height   int
	quitting bool
}

// New creates a shell over doc and vp.
func New(doc *document.Document, vp *viewport.Viewport, opts Options) Model {
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	return Model{doc: doc, vp: vp, opts: opts, width: 80, height: 24}
}

// Run starts the shell on the terminal and blocks until it exits.
func Run(doc *document.Document, vp *viewport.Viewport, opts Options) error {
	p := tea.NewProgram(New(doc, vp, opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("shell: %w", err)
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEscape:
			return m.quit()
		case tea.KeyEnter:
			line := strings.TrimSpace(string(m.input))
			m.input = m.input[:0]
			if line == "" {
				return m, nil
			}
			m.inputs = append(m.inputs, line)
			m.recall = len(m.inputs)
			if m.exec(line) {
				return m.quit()
			}
			return m, nil
		case tea.KeyBackspace:
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
			return m, nil
		case tea.KeyUp:
			if m.recall > 0 {
				m.recall--
				m.input = []rune(m.inputs[m.recall])
			}
			return m, nil
		case tea.KeyDown:
			if m.recall < len(m.inputs)-1 {
				m.recall++
				m.input = []rune(m.inputs[m.recall])
			} else {
				m.recall = len(m.inputs)
				m.input = m.input[:0]
			}
			return m, nil
		case tea.KeySpace:
			m.input = append(m.input, ' ')
			return m, nil
		case tea.KeyRunes:
			m.input = append(m.input, msg.Runes...)
			return m, nil
		}
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.opts.OnQuit != nil {
		if err := m.opts.OnQuit(); err != nil {
			applog.WithComponent("shell").Error("quit hook failed", "err", err)
		}
	}
	return m, tea.Quit
}

// exec runs one input line and records its output. It reports whether the
// shell should exit.
func (m *Model) exec(line string) bool {
	out, quit, err := m.eval(line)
	e := entry{input: line, output: out}
	if err != nil {
		e.output = err.Error()
		e.err = true
	}
	m.history = append(m.history, e)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	return quit
}

func (m *Model) eval(line string) (string, bool, error) {
	f := strings.Fields(line)
	switch f[0] {
	case "quit", "exit":
		return "", true, nil
	case "help":
		return helpText, false, nil
	case "view":
		return m.vp.String(), false, nil
	case "zoom":
		n, err := floats(f[1:], 1, 3)
		if err != nil {
			return "", false, fmt.Errorf("zoom: %w", err)
		}
		if len(n) == 2 {
			return "", false, errors.New("zoom: expected 1 or 3 numbers, got 2")
		}
		cx, cy := m.vp.CanvasWidth()/2, m.vp.CanvasHeight()/2
		if len(n) == 3 {
			cx, cy = n[1], n[2]
		}
		m.vp.ZoomViewport(n[0], cx, cy)
		return m.vp.String(), false, nil
	case "pan":
		n, err := floats(f[1:], 2, 2)
		if err != nil {
			return "", false, fmt.Errorf("pan: %w", err)
		}
		m.vp.PanningViewport(n[0], n[1])
		return m.vp.String(), false, nil
	case "canvas":
		n, err := floats(f[1:], 2, 2)
		if err != nil {
			return "", false, fmt.Errorf("canvas: %w", err)
		}
		m.vp.SetCanvasSize(n[0], n[1])
		return m.vp.String(), false, nil
	case "fit":
		n, err := floats(f[1:], 0, 1)
		if err != nil {
			return "", false, fmt.Errorf("fit: %w", err)
		}
		margin := 10.0
		if len(n) == 1 {
			margin = n[0]
		}
		r, ok := m.doc.Bounds(m.doc.CurrentPageID())
		if !ok {
			return "", false, errors.New("fit: nothing to fit")
		}
		m.vp.FitRect(r, margin)
		return m.vp.String(), false, nil
	case "copy":
		b, err := json.Marshal(m.doc)
		if err != nil {
			return "", false, fmt.Errorf("copy: %w", err)
		}
		if err := m.opts.Clipboard(string(b)); err != nil {
			return "", false, fmt.Errorf("copy: %w", err)
		}
		return fmt.Sprintf("copied %d bytes", len(b)), false, nil
	}

	results, err := script.Run(m.doc, line, m.opts.Exporter)
	var outs []string
	for _, r := range results {
		outs = append(outs, r.Output)
	}
	return strings.Join(outs, "\n"), false, err
}

// floats parses between lo and hi numeric arguments.
func floats(args []string, lo, hi int) ([]float64, error) {
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return nil, fmt.Errorf("expected %d numbers, got %d", lo, len(args))
		}
		return nil, fmt.Errorf("expected %d to %d numbers, got %d", lo, hi, len(args))
	}
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("invalid number %q", a)
		}
		out[i] = v
	}
	return out, nil
}

const helpText = `statements: page, line, arc, delete, delete-page, move, select, undo, list, export
viewport:   view, zoom <dy> [cx cy], pan <dx> <dy>, fit [margin], canvas <w> <h>
other:      copy, help, quit`
