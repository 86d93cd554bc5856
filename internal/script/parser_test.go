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
	"reflect"
	"strings"
	"testing"

	"drawdoc/internal/document"
)

func TestParseCommands(t *testing.T) {
	input := `# a drawing
page "Front view" "scale 1:10"
LINE 0 0 100 100

arc 50 50 25
arc 1 2 3 90 180
move 2 5 -5
select 2 3
delete 3
delete-page 1
undo
export
export out.json
list`

	s, errs := Parse(input)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if len(s.Statements) != 12 {
		t.Fatalf("expected 12 statements, got %d", len(s.Statements))
	}
	page := s.Statements[0]
	if page.Verb != VerbPage || !reflect.DeepEqual(page.Args, []string{"Front view", "scale 1:10"}) || page.LineNo != 2 {
		t.Fatalf("unexpected page statement: %+v", page)
	}
	if l := s.Statements[1]; l.Verb != VerbLine || !reflect.DeepEqual(l.Nums, []float64{0, 0, 100, 100}) {
		t.Fatalf("unexpected line statement: %+v", l)
	}
	if a := s.Statements[2]; !reflect.DeepEqual(a.Nums, []float64{50, 50, 25, 0, 360}) || a.LineNo != 5 {
		t.Fatalf("arc defaults not applied: %+v", a)
	}
	if a := s.Statements[3]; !reflect.DeepEqual(a.Nums, []float64{1, 2, 3, 90, 180}) {
		t.Fatalf("unexpected arc: %+v", a)
	}
	if m := s.Statements[4]; m.Verb != VerbMove || m.Args[0] != "2" || !reflect.DeepEqual(m.Nums, []float64{5, -5}) {
		t.Fatalf("unexpected move: %+v", m)
	}
	if e := s.Statements[9]; e.Verb != VerbExport || e.Args[0] != DefaultExportFile {
		t.Fatalf("export default not applied: %+v", e)
	}
	if e := s.Statements[10]; e.Args[0] != "out.json" {
		t.Fatalf("unexpected export target: %+v", e)
	}
}

func TestParsePageDefaults(t *testing.T) {
	st, err := ParseLine("page")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(st.Args, []string{DefaultPageName, DefaultPageDescription}) {
		t.Fatalf("defaults = %v", st.Args)
	}
	st, _ = ParseLine("page only-name")
	if st.Args[1] != DefaultPageDescription {
		t.Fatalf("description default missing: %v", st.Args)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		col     int
		message string
	}{
		{"unknown verb", "circle 1 2 3", 1, `unknown command "circle"`},
		{"malformed number", "line 0 zero 1 1", 8, `invalid number "zero" for y1`},
		{"missing args", "line 0 0 1", 11, "expected at least 4"},
		{"too many args", "undo now", 6, "expected at most 0"},
		{"not finite", "arc 0 0 NaN", 9, "invalid number"},
		{"negative radius", "arc 0 0 -1", 9, "radius"},
		{"move needs numbers", "move 2 x 1", 8, `invalid number "x" for dx`},
		{"delete needs id", "delete", 7, "expected at least 1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, errs := Parse("# header\n" + tc.input)
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %+v", errs)
			}
			e := errs[0]
			if e.Line != 2 || e.Column != tc.col || !strings.Contains(e.Message, tc.message) {
				t.Fatalf("error = %+v, want line 2 col %d containing %q", e, tc.col, tc.message)
			}
		})
	}
}

func TestParseReportsEveryBadLine(t *testing.T) {
	s, errs := Parse("line a 0 0 0\npage ok\nbogus\n")
	if len(errs) != 2 || errs[0].Line != 1 || errs[1].Line != 3 {
		t.Fatalf("errors = %+v", errs)
	}
	if len(s.Statements) != 1 || s.Statements[0].Verb != VerbPage {
		t.Fatalf("valid lines should still be returned: %+v", s.Statements)
	}
}

func TestRunBuildsDocument(t *testing.T) {
	doc := document.New()
	var exported []string
	exp := func(_ *document.Document, path string) error {
		exported = append(exported, path)
		return nil
	}
	res, err := Run(doc, "page\nline 0 0 10 10\narc 0 0 5\nmove 2 1 1\nundo\nexport\nlist", exp)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res) != 7 {
		t.Fatalf("expected 7 results, got %d", len(res))
	}
	p, ok := doc.GetPage("1")
	if !ok || !reflect.DeepEqual(p.NodeIDs, []string{"2", "3"}) {
		t.Fatalf("page = %+v", p)
	}
	if n, _ := doc.GetNode("2"); n.Bounds().X != 0 {
		t.Fatalf("move should have been undone, got %v", n)
	}
	if !reflect.DeepEqual(exported, []string{DefaultExportFile}) {
		t.Fatalf("exported = %v", exported)
	}
	if !strings.Contains(res[6].Output, "CreateArc(id=3") {
		t.Fatalf("list output = %q", res[6].Output)
	}
}

func TestRunRejectsInvalidScriptWithoutSideEffects(t *testing.T) {
	doc := document.New()
	_, err := Run(doc, "page\nline 1 2 three 4", nil)
	var perr Error
	if !errors.As(err, &perr) || perr.Line != 2 {
		t.Fatalf("expected parse error on line 2, got %v", err)
	}
	if len(doc.GetPages()) != 0 {
		t.Fatalf("invalid script must not touch the document")
	}
}

func TestApplyUnknownIDs(t *testing.T) {
	doc := document.New()
	for _, line := range []string{"delete 9", "delete-page 9", "move 9 1 1"} {
		st, err := ParseLine(line)
		if err != nil {
			t.Fatalf("parse %q: %v", line, err)
		}
		if _, err := Apply(doc, st, nil); !errors.Is(err, ErrUnknownID) {
			t.Fatalf("%q: expected ErrUnknownID, got %v", line, err)
		}
	}
	if id := doc.NextID(); id != "1" {
		t.Fatalf("failed lookups consumed ids, next = %s", id)
	}
	st, _ := ParseLine("select 1")
	if _, err := Apply(doc, st, nil); !errors.Is(err, ErrNoPage) {
		t.Fatalf("expected ErrNoPage, got %v", err)
	}
	st, _ = ParseLine("export")
	if _, err := Apply(doc, st, nil); err == nil {
		t.Fatalf("export without exporter should fail")
	}
}

func TestApplyUndoOnEmpty(t *testing.T) {
	st, _ := ParseLine("undo")
	res, err := Apply(document.New(), st, nil)
	if err != nil || res.Output != "nothing to undo" {
		t.Fatalf("res=%+v err=%v", res, err)
	}
}
