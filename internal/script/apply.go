/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"errors"
	"fmt"
	"strings"

	"drawdoc/internal/command"
	"drawdoc/internal/document"
	"drawdoc/internal/undo"
)

var (
	// ErrUnknownID is returned when a statement names a page or node that
	// does not exist.
	ErrUnknownID = errors.New("unknown id")
	// ErrNoPage is returned by select when no page is current.
	ErrNoPage = errors.New("no current page")
)

// Exporter writes the document to path. It is called for export
// statements; a nil Exporter makes export fail.
type Exporter func(doc *document.Document, path string) error

// Result describes the effect of one applied statement.
type Result struct {
	Statement Statement
	// Command is the executed command, nil for statements that do not
	// create one.
	Command undo.Command
	// Output is a human-readable message.
	Output string
}

// Apply runs one statement against doc. Ids are allocated from doc when
// the command is built, so a failed lookup never consumes an id.
func Apply(doc *document.Document, st Statement, export Exporter) (Result, error) {
	res := Result{Statement: st}
	run := func(c undo.Command) (Result, error) {
		doc.Execute(c)
		res.Command = c
		res.Output = c.String()
		return res, nil
	}
	switch st.Verb {
	case VerbPage:
		return run(command.NewCreatePage(doc.NextID(), st.Args[0], st.Args[1]))
	case VerbLine:
		n := st.Nums
		return run(command.NewCreateLine(doc.NextID(), n[0], n[1], n[2], n[3]))
	case VerbArc:
		n := st.Nums
		return run(command.NewCreateArc(doc.NextID(), n[0], n[1], n[2], n[3], n[4]))
	case VerbDelete:
		if _, ok := doc.GetNode(st.Args[0]); !ok {
			return res, fmt.Errorf("delete %s: %w", st.Args[0], ErrUnknownID)
		}
		return run(command.NewDeleteNode(st.Args[0]))
	case VerbDeletePage:
		if _, ok := doc.GetPage(st.Args[0]); !ok {
			return res, fmt.Errorf("delete-page %s: %w", st.Args[0], ErrUnknownID)
		}
		return run(command.NewDeletePage(st.Args[0]))
	case VerbMove:
		n, ok := doc.GetNode(st.Args[0])
		if !ok {
			return res, fmt.Errorf("move %s: %w", st.Args[0], ErrUnknownID)
		}
		return run(command.NewMove(n, st.Nums[0], st.Nums[1]))
	case VerbSelect:
		if !doc.SetSelection(st.Args) {
			return res, fmt.Errorf("select: %w", ErrNoPage)
		}
		res.Output = fmt.Sprintf("selected [%s]", strings.Join(doc.Selection(), " "))
		return res, nil
	case VerbUndo:
		if doc.Undo() {
			res.Output = "undone"
		} else {
			res.Output = "nothing to undo"
		}
		return res, nil
	case VerbList:
		res.Output = strings.TrimRight(doc.ListCommands(), "\n")
		if res.Output == "" {
			res.Output = "(no commands)"
		}
		return res, nil
	case VerbExport:
		if export == nil {
			return res, errors.New("export: no exporter configured")
		}
		if err := export(doc, st.Args[0]); err != nil {
			return res, fmt.Errorf("export %s: %w", st.Args[0], err)
		}
		res.Output = "exported to " + st.Args[0]
		return res, nil
	default:
		return res, fmt.Errorf("unsupported statement %v", st.Verb)
	}
}

// Run parses input and, if it is free of errors, applies every statement
// in order. Execution stops at the first failing statement.
func Run(doc *document.Document, input string, export Exporter) ([]Result, error) {
	sc, perrs := Parse(input)
	if len(perrs) > 0 {
		errs := make([]error, 0, len(perrs))
		for _, e := range perrs {
			errs = append(errs, e)
		}
		return nil, errors.Join(errs...)
	}
	out := make([]Result, 0, len(sc.Statements))
	for _, st := range sc.Statements {
		r, err := Apply(doc, st, export)
		if err != nil {
			return out, fmt.Errorf("line %d: %w", st.LineNo, err)
		}
		out = append(out, r)
	}
	return out, nil
}
