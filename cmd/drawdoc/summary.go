/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"strings"

	"drawdoc/internal/storage"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(12)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func workspaceSummary(ws *storage.Workspace) string {
	pages, nodes, depth := ws.Doc.Stats()
	lines := []string{
		titleStyle.Render(ws.Meta.Name),
		row("Root", ws.Root),
		row("Doc ID", ws.Meta.DocID),
		row("Pages", fmt.Sprint(pages)),
		row("Nodes", fmt.Sprint(nodes)),
		row("Undo depth", fmt.Sprint(depth)),
	}
	if cur := ws.Doc.CurrentPageID(); cur != "" {
		lines = append(lines, row("Current", cur))
	}
	if ws.Meta.ServerVersion > 0 {
		lines = append(lines, row("Server ver", fmt.Sprint(ws.Meta.ServerVersion)))
	}
	if !ws.Meta.UpdatedAt.IsZero() {
		lines = append(lines, row("Updated", ws.Meta.UpdatedAt.Local().Format("2006-01-02 15:04:05")))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func searchTable(res []storage.SearchResult) string {
	if len(res) == 0 {
		return "no matches"
	}
	var b strings.Builder
	b.WriteString(headStyle.Render(fmt.Sprintf("%-6s %-18s %-6s %s", "ID", "TYPE", "PAGE", "MATCH")))
	for _, r := range res {
		fmt.Fprintf(&b, "\n%-6d %-18s %-6s %s", r.DocID, r.Type, r.PageID, r.Snippet)
	}
	return b.String()
}

func journalTable(entries []storage.JournalEntry) string {
	if len(entries) == 0 {
		return "journal is empty"
	}
	var b strings.Builder
	b.WriteString(headStyle.Render(fmt.Sprintf("%-20s %-8s %s", "TIME", "OP", "COMMAND")))
	for _, e := range entries {
		fmt.Fprintf(&b, "\n%-20s %-8s %s", e.TS.Local().Format("2006-01-02 15:04:05"), e.Op, e.Command)
	}
	return b.String()
}
