/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"errors"
	"math"
	"testing"
)

func TestRectContainsAndInset(t *testing.T) {
	r := R(10, 20, 100, 50)
	if !r.Contains(Pt{10, 20}) || !r.Contains(Pt{110, 70}) {
		t.Fatalf("expected edge points to be contained")
	}
	in := r.Inset(5, 5)
	if in.X != 15 || in.Y != 25 || in.W != 90 || in.H != 40 {
		t.Fatalf("unexpected inset: %+v", in)
	}
}

func TestRectUnionAndIntersects(t *testing.T) {
	a := R(0, 0, 10, 10)
	b := R(20, -5, 5, 5)
	u := a.Union(b)
	if u.X != 0 || u.Y != -5 || u.W != 25 || u.H != 15 {
		t.Fatalf("unexpected union: %+v", u)
	}
	if a.Intersects(b) {
		t.Fatalf("disjoint rects reported as intersecting")
	}
	if !a.Intersects(R(10, 10, 1, 1)) {
		t.Fatalf("touching rects should intersect")
	}
}

func TestRectFromPoints(t *testing.T) {
	r := RectFromPoints(Pt{3, -1}, Pt{-2, 4}, Pt{0, 0})
	if r.X != -2 || r.Y != -1 || r.W != 5 || r.H != 5 {
		t.Fatalf("unexpected rect: %+v", r)
	}
	if !RectFromPoints().Empty() {
		t.Fatalf("rect of no points should be empty")
	}
}

func TestAffineBasic(t *testing.T) {
	m := Translate(10, 5).Mul(Scale(2, 3))
	p := m.Apply(Pt{1, 1})
	if p.X != 12 || p.Y != 8 { // (1*2+10, 1*3+5)
		t.Fatalf("unexpected transform result: %+v", p)
	}
}

func TestInverseRoundTrip(t *testing.T) {
	m := Translate(-40, 80).Mul(Rotate(math.Pi / 6)).Mul(Scale(2.5, -0.5))
	inv, err := m.Inverse()
	if err != nil {
		t.Fatalf("Inverse: %v", err)
	}
	for _, p := range []Pt{{0, 0}, {1, 2}, {-30.5, 17.25}} {
		q := inv.Apply(m.Apply(p))
		if !NearlyEqual(p.X, q.X, 1e-9) || !NearlyEqual(p.Y, q.Y, 1e-9) {
			t.Fatalf("round trip mismatch: %v -> %v", p, q)
		}
	}
}

func TestInverseSingular(t *testing.T) {
	_, err := Scale(0, 1).Inverse()
	if !errors.Is(err, ErrSingular) {
		t.Fatalf("expected ErrSingular, got %v", err)
	}
}

func TestRound(t *testing.T) {
	cases := []struct {
		in     float64
		places int
		want   float64
	}{
		{-4.040404, 2, -4.04},
		{808.0808, 2, 808.08},
		{0.125, 2, 0.13},
		{1.5, 0, 2},
		{3.14159, -1, 3.14159},
	}
	for _, c := range cases {
		if got := Round(c.in, c.places); got != c.want {
			t.Errorf("Round(%v, %d) = %v, want %v", c.in, c.places, got, c.want)
		}
	}
}
