/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package model

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"drawdoc/internal/geom"
)

func TestLineBoundsAndHit(t *testing.T) {
	l := NewLine("1", 10, 0, 0, 10)
	b := l.Bounds()
	if b.X != 0 || b.Y != 0 || b.W != 10 || b.H != 10 {
		t.Fatalf("bounds = %+v", b)
	}
	if !l.Hit(geom.P(5, 5), 0.01) {
		t.Fatalf("midpoint should hit")
	}
	if l.Hit(geom.P(0, 0), 1) {
		t.Fatalf("origin is ~7 units away and must miss")
	}
	if math.Abs(l.Length()-math.Sqrt(200)) > 1e-9 {
		t.Fatalf("length = %v", l.Length())
	}
}

func TestArcBounds(t *testing.T) {
	cases := []struct {
		name string
		arc  Arc
		want geom.Rect
	}{
		{"full", NewArc("1", 0, 0, 2, 0, 360), geom.R(-2, -2, 4, 4)},
		{"quarter", NewArc("1", 0, 0, 1, 0, 90), geom.R(0, 0, 1, 1)},
		{"half crossing 90", NewArc("1", 0, 0, 1, 0, 180), geom.R(-1, 0, 2, 1)},
		{"wraps past 0", NewArc("1", 0, 0, 1, 270, 90), geom.R(0, -1, 1, 2)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.arc.Bounds()
			if !near(got.X, tc.want.X) || !near(got.Y, tc.want.Y) || !near(got.W, tc.want.W) || !near(got.H, tc.want.H) {
				t.Fatalf("bounds = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestArcHitRespectsSweep(t *testing.T) {
	a := NewArc("1", 0, 0, 10, 0, 90)
	if !a.Hit(geom.P(0, 10), 0.1) {
		t.Fatalf("point at 90 degrees should hit")
	}
	if a.Hit(geom.P(0, -10), 0.1) {
		t.Fatalf("point at 270 degrees is outside the sweep")
	}
	if a.Hit(geom.P(5, 5), 0.1) {
		t.Fatalf("interior point must miss")
	}
}

func TestTranslatedKeepsID(t *testing.T) {
	n := NewArc("7", 1, 2, 3, 0, 360).Translated(10, -2)
	a, ok := n.(Arc)
	if !ok || a.ID != "7" || a.X != 11 || a.Y != 0 || a.R != 3 {
		t.Fatalf("translated = %#v", n)
	}
}

func TestStoreJSONRoundTrip(t *testing.T) {
	s := NewStore()
	pid := s.NextID()
	s.InsertPage(NewPage(pid, "first", "desc"))
	lid := s.NextID()
	s.InsertNode(NewLine(lid, 0, 0, 100, 100))
	aid := s.NextID()
	s.InsertNode(NewArc(aid, 50, 50, 25, 0, 180))
	s.UpdatePage(pid, func(p *Page) {
		p.AddNodeID(lid)
		p.AddNodeID(aid)
		p.SelectedIDs = []string{aid}
	})

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"id_counter":3`, `"node_type":"Page"`, `"node_type":"Line"`, `"node_type":"Arc"`, `"angle_end":180`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("encoded document lacks %s: %s", want, data)
		}
	}

	back, err := UnmarshalStore(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	again, err := json.Marshal(back)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	if string(again) != string(data) {
		t.Fatalf("round trip differs:\n%s\n%s", data, again)
	}
	if back.CurrentPageID() != pid {
		t.Fatalf("current page = %q", back.CurrentPageID())
	}
	if id := back.NextID(); id != "4" {
		t.Fatalf("next id after restore = %s, want 4", id)
	}
}

func TestDecodeAdvancesCounterPastIDs(t *testing.T) {
	doc := `{"id_counter":1,"pages":[{"node_type":"Page","id":"1","name":"a","description":"","node_ids":["12"],"selected_ids":[]}],
	"nodes":[{"node_type":"Line","id":"12","x1":0,"y1":0,"x2":1,"y2":1}]}`
	s, err := UnmarshalStore([]byte(doc))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if id := s.NextID(); id != "13" {
		t.Fatalf("next id = %s, want 13", id)
	}
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	doc := `{"id_counter":2,"pages":[],"nodes":[{"node_type":"Bezier","id":"2"}]}`
	if _, err := UnmarshalStore([]byte(doc)); err == nil || !strings.Contains(err.Error(), "Bezier") {
		t.Fatalf("expected unknown node_type error, got %v", err)
	}
	if _, err := DecodeNode([]byte(`{"node_type":"Line"}`)); err == nil {
		t.Fatalf("expected missing id error")
	}
	if _, err := EncodeNode(nil); err == nil {
		t.Fatalf("expected error for nil node")
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestArcRadiusIsMagnitude(t *testing.T) {
	a := NewArc("1", 0, 0, -5, 0, 360)
	if a.R != 5 {
		t.Fatalf("expected radius 5, got %g", a.R)
	}
	if b := a.Bounds(); b != geom.R(-5, -5, 10, 10) {
		t.Fatalf("bounds = %+v", b)
	}
	if _, err := DecodeNode([]byte(`{"node_type":"Arc","id":"2","x":0,"y":0,"r":-1,"angle_start":0,"angle_end":90}`)); err == nil {
		t.Fatalf("expected negative radius to be rejected on decode")
	}
}

func TestLineStringShowsLength(t *testing.T) {
	if got := NewLine("3", 0, 0, 3, 4).String(); got != "Line{id=3 (0,0)-(3,4) len=5.00}" {
		t.Fatalf("String() = %q", got)
	}
}
