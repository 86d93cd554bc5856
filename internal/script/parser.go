/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"bufio"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// token is a whitespace separated word or a double-quoted string.
type token struct {
	text string
	col  int // 1-based
}

var reToken = regexp.MustCompile(`"([^"]*)"|(\S+)`)

func tokenize(line string) []token {
	var out []token
	for _, m := range reToken.FindAllStringSubmatchIndex(line, -1) {
		t := token{col: m[0] + 1}
		if m[2] >= 0 {
			t.text = line[m[2]:m[3]]
		} else {
			t.text = line[m[4]:m[5]]
		}
		out = append(out, t)
	}
	return out
}

// Parse parses a command script. Every malformed line is reported; valid
// lines are still returned so callers can decide whether to run them.
// Supported syntax:
//   - page [name] [description]
//   - line x1 y1 x2 y2
//   - arc x y r [angle_start] [angle_end]
//   - delete <id>, delete-page <id>, move <id> <dx> <dy>
//   - select [id...], undo, export [file], list
//
// Verbs are case-insensitive. Lines starting with '#' and blank lines are
// ignored. Names containing spaces are written in double quotes.
func Parse(input string) (Script, []Error) {
	s := Script{Statements: []Statement{}}
	var errs []Error

	scanner := bufio.NewScanner(strings.NewReader(input))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		trim := strings.TrimSpace(line)
		if trim == "" || strings.HasPrefix(trim, "#") {
			continue
		}
		st, err := parseLine(line, lineNo)
		if err != nil {
			errs = append(errs, *err)
			continue
		}
		s.Statements = append(s.Statements, st)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, Error{Line: lineNo, Column: 1, Message: err.Error()})
	}
	return s, errs
}

// ParseLine parses a single command line.
func ParseLine(line string) (Statement, error) {
	st, err := parseLine(line, 1)
	if err != nil {
		return Statement{}, *err
	}
	return st, nil
}

func parseLine(line string, lineNo int) (Statement, *Error) {
	toks := tokenize(line)
	if len(toks) == 0 {
		return Statement{}, &Error{Line: lineNo, Column: 1, Message: "empty command"}
	}
	fail := func(col int, format string, a ...any) (Statement, *Error) {
		return Statement{}, &Error{Line: lineNo, Column: col, Message: fmt.Sprintf(format, a...)}
	}

	head, args := toks[0], toks[1:]
	verb, ok := verbNames[strings.ToLower(head.text)]
	if !ok {
		return fail(head.col, "unknown command %q", head.text)
	}
	st := Statement{Verb: verb, LineNo: lineNo}

	arity := func(lo, hi int) *Error {
		switch {
		case len(args) < lo:
			return &Error{Line: lineNo, Column: endCol(line), Message: fmt.Sprintf("%s: expected at least %d argument(s), got %d", verb, lo, len(args))}
		case hi >= 0 && len(args) > hi:
			return &Error{Line: lineNo, Column: args[hi].col, Message: fmt.Sprintf("%s: expected at most %d argument(s), got %d", verb, hi, len(args))}
		}
		return nil
	}
	nums := func(toks []token, names ...string) ([]float64, *Error) {
		out := make([]float64, 0, len(toks))
		for i, t := range toks {
			v, err := strconv.ParseFloat(t.text, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &Error{Line: lineNo, Column: t.col, Message: fmt.Sprintf("%s: invalid number %q for %s", verb, t.text, names[i])}
			}
			out = append(out, v)
		}
		return out, nil
	}

	switch verb {
	case VerbPage:
		if e := arity(0, 2); e != nil {
			return Statement{}, e
		}
		st.Args = []string{DefaultPageName, DefaultPageDescription}
		for i, t := range args {
			st.Args[i] = t.text
		}
	case VerbLine:
		if e := arity(4, 4); e != nil {
			return Statement{}, e
		}
		v, e := nums(args, "x1", "y1", "x2", "y2")
		if e != nil {
			return Statement{}, e
		}
		st.Nums = v
	case VerbArc:
		if e := arity(3, 5); e != nil {
			return Statement{}, e
		}
		v, e := nums(args, "x", "y", "r", "angle_start", "angle_end")
		if e != nil {
			return Statement{}, e
		}
		if v[2] < 0 {
			return fail(args[2].col, "arc: radius must not be negative")
		}
		if len(v) < 4 {
			v = append(v, DefaultArcStart)
		}
		if len(v) < 5 {
			v = append(v, DefaultArcEnd)
		}
		st.Nums = v
	case VerbDelete, VerbDeletePage:
		if e := arity(1, 1); e != nil {
			return Statement{}, e
		}
		st.Args = []string{args[0].text}
	case VerbMove:
		if e := arity(3, 3); e != nil {
			return Statement{}, e
		}
		v, e := nums(args[1:], "dx", "dy")
		if e != nil {
			return Statement{}, e
		}
		st.Args = []string{args[0].text}
		st.Nums = v
	case VerbSelect:
		st.Args = make([]string, 0, len(args))
		for _, t := range args {
			st.Args = append(st.Args, t.text)
		}
	case VerbUndo, VerbList:
		if e := arity(0, 0); e != nil {
			return Statement{}, e
		}
	case VerbExport:
		if e := arity(0, 1); e != nil {
			return Statement{}, e
		}
		st.Args = []string{DefaultExportFile}
		if len(args) == 1 {
			st.Args[0] = args[0].text
		}
	}
	return st, nil
}

func endCol(line string) int { return len(strings.TrimRight(line, " \t")) + 1 }
