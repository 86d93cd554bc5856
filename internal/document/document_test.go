/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"drawdoc/internal/command"
	"drawdoc/internal/geom"
	"drawdoc/internal/undo"
)

type recorder struct{ events []string }

func (r *recorder) Executed(c undo.Command) { r.events = append(r.events, "+"+c.String()) }
func (r *recorder) Undone(c undo.Command)   { r.events = append(r.events, "-"+c.String()) }

func TestCreateLineUndoNeverReusesID(t *testing.T) {
	d := New()
	d.Execute(command.NewCreatePage(d.NextID(), "p", ""))
	id := d.NextID()
	d.Execute(command.NewCreateLine(id, 1, 2, 3, 4))
	if _, ok := d.GetNode(id); !ok {
		t.Fatalf("line %s missing", id)
	}
	if !d.Undo() {
		t.Fatalf("undo returned false")
	}
	if _, ok := d.GetNode(id); ok {
		t.Fatalf("line %s still present after undo", id)
	}
	if next := d.NextID(); next == id {
		t.Fatalf("id %s reused", id)
	}
}

func TestUndoOnEmptyIsInformational(t *testing.T) {
	d := New()
	if d.Undo() {
		t.Fatalf("undo on empty document returned true")
	}
	if d.Dirty() {
		t.Fatalf("failed undo marked the document dirty")
	}
}

func TestListCommands(t *testing.T) {
	d := New()
	d.Execute(command.NewCreatePage(d.NextID(), "p", "d"))
	d.Execute(command.NewCreateArc(d.NextID(), 0, 0, 5, 0, 360))
	out := d.ListCommands()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "CreatePage(id=1") || !strings.HasPrefix(lines[1], "CreateArc(id=2") {
		t.Fatalf("unexpected listing:\n%s", out)
	}
	if len(d.Commands()) != 2 {
		t.Fatalf("listing must not consume history")
	}
}

func TestListenersSeeExecuteAndUndo(t *testing.T) {
	d := New()
	r := &recorder{}
	d.AddListener(r)
	d.AddListener(nil)
	d.Execute(command.NewCreatePage(d.NextID(), "p", ""))
	d.Undo()
	d.Undo()
	if len(r.events) != 2 || r.events[0][0] != '+' || r.events[1][0] != '-' {
		t.Fatalf("events = %v", r.events)
	}
}

func TestRoundTripAfterRandomEdits(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 20; round++ {
		d := New()
		for i := 0; i < 40; i++ {
			switch rng.Intn(5) {
			case 0:
				d.Execute(command.NewCreatePage(d.NextID(), "p", "d"))
			case 1:
				d.Execute(command.NewCreateLine(d.NextID(), rng.Float64()*100, rng.Float64()*100, rng.Float64()*100, rng.Float64()*100))
			case 2:
				d.Execute(command.NewCreateArc(d.NextID(), rng.Float64()*50, rng.Float64()*50, 1+rng.Float64()*10, 0, rng.Float64()*360))
			default:
				d.Undo()
			}
		}
		data, err := json.Marshal(d)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		back, err := Load(data, Config{})
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if !reflect.DeepEqual(back.GetPages(), d.GetPages()) {
			t.Fatalf("pages differ after round trip")
		}
		if !reflect.DeepEqual(back.Nodes(), d.Nodes()) {
			t.Fatalf("nodes differ after round trip")
		}
		if back.CurrentPageID() != d.CurrentPageID() {
			t.Fatalf("current page %q != %q", back.CurrentPageID(), d.CurrentPageID())
		}
		if a, b := back.NextID(), d.NextID(); a != b {
			t.Fatalf("allocator diverged: %s vs %s", a, b)
		}
	}
}

func TestSelectionAndHitTesting(t *testing.T) {
	d := New()
	d.Execute(command.NewCreatePage(d.NextID(), "p", ""))
	d.Execute(command.NewCreateLine(d.NextID(), 0, 0, 10, 0))
	d.Execute(command.NewCreateArc(d.NextID(), 0, 0, 5, 0, 360))

	if got := d.NodesAt(geom.P(5, 0), 0.1); !reflect.DeepEqual(got, []string{"3", "2"}) {
		t.Fatalf("hits = %v", got)
	}
	if got := d.SelectAt(geom.P(8, 0), 0.1); !reflect.DeepEqual(got, []string{"2"}) {
		t.Fatalf("select = %v", got)
	}
	if got := d.Selection(); !reflect.DeepEqual(got, []string{"2"}) {
		t.Fatalf("selection = %v", got)
	}
	d.Execute(command.NewDeleteNode("2"))
	if got := d.Selection(); len(got) != 0 {
		t.Fatalf("dangling selection leaked: %v", got)
	}
	if got := d.SelectAt(geom.P(50, 50), 0.1); len(got) != 0 {
		t.Fatalf("empty hit should clear selection, got %v", got)
	}
}

func TestBounds(t *testing.T) {
	d := New()
	if _, ok := d.Bounds(""); ok {
		t.Fatalf("empty document has bounds")
	}
	d.Execute(command.NewCreatePage(d.NextID(), "p", ""))
	d.Execute(command.NewCreateLine(d.NextID(), -5, 0, 5, 2))
	d.Execute(command.NewCreatePage(d.NextID(), "q", ""))
	d.Execute(command.NewCreateArc(d.NextID(), 100, 100, 1, 0, 360))
	r, ok := d.Bounds("1")
	if !ok || r != geom.R(-5, 0, 10, 2) {
		t.Fatalf("page bounds = %+v %v", r, ok)
	}
	all, _ := d.Bounds("")
	if all.Max() != geom.P(101, 101) || all.Min() != geom.P(-5, 0) {
		t.Fatalf("document bounds = %+v", all)
	}
	if _, ok := d.Bounds("404"); ok {
		t.Fatalf("unknown page has bounds")
	}
}

func TestDirtyTracking(t *testing.T) {
	d := New()
	d.Execute(command.NewCreatePage(d.NextID(), "p", ""))
	if !d.Dirty() {
		t.Fatalf("execute should dirty the document")
	}
	d.MarkClean()
	if d.Dirty() {
		t.Fatalf("MarkClean did not clear dirty flag")
	}
	d.Undo()
	if !d.Dirty() {
		t.Fatalf("undo should dirty the document")
	}
}

func TestMaxUndoDepth(t *testing.T) {
	d := NewWithConfig(Config{MaxUndoDepth: 1})
	d.Execute(command.NewCreatePage(d.NextID(), "a", ""))
	d.Execute(command.NewCreatePage(d.NextID(), "b", ""))
	if !d.Undo() || d.Undo() {
		t.Fatalf("depth cap of 1 should allow exactly one undo")
	}
	if _, ok := d.GetPage("1"); !ok {
		t.Fatalf("page 1 should survive since its command was forgotten")
	}
}
