/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import "fmt"

// Script is a parsed command script: one Statement per non-blank,
// non-comment line.
type Script struct {
	Statements []Statement
}

// Verb names a script command.
type Verb int

const (
	VerbUnknown Verb = iota
	VerbPage
	VerbLine
	VerbArc
	VerbDelete
	VerbDeletePage
	VerbMove
	VerbSelect
	VerbUndo
	VerbExport
	VerbList
)

var verbNames = map[string]Verb{
	"page":        VerbPage,
	"line":        VerbLine,
	"arc":         VerbArc,
	"delete":      VerbDelete,
	"delete-page": VerbDeletePage,
	"move":        VerbMove,
	"select":      VerbSelect,
	"undo":        VerbUndo,
	"export":      VerbExport,
	"list":        VerbList,
}

func (v Verb) String() string {
	for k, vv := range verbNames {
		if vv == v {
			return k
		}
	}
	return "unknown"
}

// Statement is one validated command.
// For page: Args holds name and description.
// For line: Nums holds x1 y1 x2 y2.
// For arc: Nums holds x y r angle_start angle_end.
// For delete, delete-page and select: Args holds ids.
// For move: Args[0] is the id, Nums holds dx dy.
// For export: Args[0] is the target file.
type Statement struct {
	Verb   Verb
	Args   []string
	Nums   []float64
	LineNo int // 1-based line number in the source
}

// Error represents a parse error with position context.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Defaults used when optional arguments are omitted.
const (
	DefaultPageName        = "new page"
	DefaultPageDescription = "page description"
	DefaultArcStart        = 0.0
	DefaultArcEnd          = 360.0
	DefaultExportFile      = "drawdoc.json"
)
