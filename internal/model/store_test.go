/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package model

import (
	"reflect"
	"testing"
)

func TestIDAllocatorMonotonic(t *testing.T) {
	var a IDAllocator
	got := []string{a.Next(), a.Next(), a.Next()}
	want := []string{"1", "2", "3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	a.advanceTo(1)
	if n := a.Next(); n != "4" {
		t.Fatalf("advanceTo must not move backwards, next = %s", n)
	}
	a.advanceTo(10)
	if n := a.Next(); n != "11" {
		t.Fatalf("next after advanceTo(10) = %s, want 11", n)
	}
}

func TestStoreInsertOverwritesAndRemoveIsNoop(t *testing.T) {
	s := NewStore()
	s.InsertNode(NewLine("1", 0, 0, 1, 1))
	s.InsertNode(NewLine("1", 5, 5, 6, 6))
	n, ok := s.Node("1")
	if !ok {
		t.Fatalf("node 1 missing")
	}
	if l := n.(Line); l.X1 != 5 {
		t.Fatalf("expected last write to win, got %+v", l)
	}
	s.RemoveNode("nope")
	s.RemovePage("nope")
	if s.NodeCount() != 1 || s.PageCount() != 0 {
		t.Fatalf("unexpected counts nodes=%d pages=%d", s.NodeCount(), s.PageCount())
	}
	s.RemoveNode("1")
	if _, ok := s.Node("1"); ok {
		t.Fatalf("node 1 should be gone")
	}
}

func TestStorePagesAreCopies(t *testing.T) {
	s := NewStore()
	s.InsertPage(NewPage("1", "p", "d"))
	p, _ := s.Page("1")
	p.NodeIDs = append(p.NodeIDs, "x")
	again, _ := s.Page("1")
	if len(again.NodeIDs) != 0 {
		t.Fatalf("store page mutated through a copy: %v", again.NodeIDs)
	}
	if !s.UpdatePage("1", func(p *Page) { p.AddNodeID("2") }) {
		t.Fatalf("UpdatePage on existing page returned false")
	}
	again, _ = s.Page("1")
	if !reflect.DeepEqual(again.NodeIDs, []string{"2"}) {
		t.Fatalf("node ids = %v", again.NodeIDs)
	}
	if s.UpdatePage("9", func(*Page) {}) {
		t.Fatalf("UpdatePage on missing page returned true")
	}
}

func TestStoreInsertPageSetsCurrent(t *testing.T) {
	s := NewStore()
	if s.CurrentPageID() != "" {
		t.Fatalf("fresh store has current page %q", s.CurrentPageID())
	}
	s.InsertPage(NewPage("1", "a", ""))
	s.InsertPage(NewPage("2", "b", ""))
	if s.CurrentPageID() != "2" {
		t.Fatalf("current = %q, want 2", s.CurrentPageID())
	}
	s.UpdatePage("1", func(p *Page) { p.Name = "renamed" })
	if s.CurrentPageID() != "2" {
		t.Fatalf("UpdatePage changed the current page")
	}
}

func TestStorePagesSortedNumerically(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"10", "2", "1", "b", "a"} {
		s.InsertPage(NewPage(id, "", ""))
	}
	var got []string
	for _, p := range s.Pages() {
		got = append(got, p.ID)
	}
	want := []string{"1", "2", "10", "a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestSelectionFiltersDanglingIDs(t *testing.T) {
	s := NewStore()
	s.InsertPage(NewPage("1", "", ""))
	s.InsertNode(NewLine("2", 0, 0, 1, 0))
	if !s.SetSelection("1", []string{"2", "99"}) {
		t.Fatalf("SetSelection failed")
	}
	if got := s.Selection("1"); !reflect.DeepEqual(got, []string{"2"}) {
		t.Fatalf("selection = %v", got)
	}
	p, _ := s.Page("1")
	if len(p.SelectedIDs) != 2 {
		t.Fatalf("raw selection should keep dangling ids, got %v", p.SelectedIDs)
	}
	if s.SetSelection("404", nil) {
		t.Fatalf("SetSelection on missing page returned true")
	}
}

func TestPageRemoveNodeID(t *testing.T) {
	p := NewPage("1", "", "")
	p.AddNodeID("a")
	p.AddNodeID("b")
	p.AddNodeID("c")
	if i := p.RemoveNodeID("b"); i != 1 {
		t.Fatalf("removed at %d, want 1", i)
	}
	if i := p.RemoveNodeID("zz"); i != -1 {
		t.Fatalf("missing id reported index %d", i)
	}
	p.InsertNodeIDAt(1, "b")
	p.InsertNodeIDAt(99, "d")
	if !reflect.DeepEqual(p.NodeIDs, []string{"a", "b", "c", "d"}) {
		t.Fatalf("node ids = %v", p.NodeIDs)
	}
}
