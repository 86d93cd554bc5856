/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package shell

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	inputStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	outputStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("8")).Padding(0, 1)
)

const prompt = "> "

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var lines []string
	for _, e := range m.history {
		lines = append(lines, promptStyle.Render(prompt)+inputStyle.Render(e.input))
		if e.output == "" {
			continue
		}
		style := outputStyle
		if e.err {
			style = errorStyle
		}
		for _, l := range strings.Split(e.output, "\n") {
			lines = append(lines, style.Render("  "+l))
		}
	}

	// title, status and input lines are always shown
	room := m.height - 3
	if room < 0 {
		room = 0
	}
	if len(lines) > room {
		lines = lines[len(lines)-room:]
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("drawdoc shell") + "  " + outputStyle.Render("type help for commands"))
	b.WriteString("\n")
	for i := len(lines); i < room; i++ {
		b.WriteString("\n")
	}
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString(statusStyle.Width(m.width).Render(m.status()))
	b.WriteString("\n")
	b.WriteString(promptStyle.Render(prompt) + inputStyle.Render(string(m.input)) + "_")
	return b.String()
}

func (m Model) status() string {
	pages, nodes, depth := m.doc.Stats()
	cur := m.doc.CurrentPageID()
	if cur == "" {
		cur = "-"
	}
	dirty := ""
	if m.doc.Dirty() {
		dirty = " *"
	}
	return fmt.Sprintf("page %s | pages %d | nodes %d | undo %d | scale %.3f%s",
		cur, pages, nodes, depth, m.vp.Scale(), dirty)
}
