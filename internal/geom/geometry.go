/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

// World-space geometry shared by the document model and the viewport.
// Values are float64 so that persisted coordinates round-trip exactly.

import (
	"errors"
	"fmt"
	"math"
)

// ErrSingular is returned by Matrix.Inverse when the determinant is zero.
var ErrSingular = errors.New("geom: singular matrix")

// Pt is a 2D point.
type Pt struct{ X, Y float64 }

func P(x, y float64) Pt { return Pt{X: x, Y: y} }

func (p Pt) Add(q Pt) Pt       { return Pt{p.X + q.X, p.Y + q.Y} }
func (p Pt) Sub(q Pt) Pt       { return Pt{p.X - q.X, p.Y - q.Y} }
func (p Pt) Mul(s float64) Pt  { return Pt{p.X * s, p.Y * s} }
func (p Pt) Dist(q Pt) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }
func (p Pt) String() string    { return fmt.Sprintf("(%g, %g)", p.X, p.Y) }

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

// RectFromPoints returns the smallest rect containing all points.
func RectFromPoints(pts ...Pt) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

func (r Rect) Min() Pt { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt { return Pt{r.X + r.W, r.Y + r.H} }

// Empty reports whether the rect has no area and no extent on either axis.
func (r Rect) Empty() bool { return r.W <= 0 && r.H <= 0 }

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Intersects reports whether the closed rects overlap or touch.
func (r Rect) Intersects(o Rect) bool {
	return r.X <= o.X+o.W && o.X <= r.X+r.W && r.Y <= o.Y+o.H && o.Y <= r.Y+r.H
}

// Inset returns a rectangle inset by dx,dy on all sides (negative grows).
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W - 2*dx, H: r.H - 2*dy}
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Matrix is a 2D affine transform:
// | a c e |
// | b d f |
// | 0 0 1 |
type Matrix struct{ A, B, C, D, E, F float64 }

var Identity = Matrix{A: 1, D: 1}

// Mul returns m*n, i.e. n is applied first.
func (m Matrix) Mul(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

func (m Matrix) Apply(p Pt) Pt {
	return Pt{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

func (m Matrix) Det() float64 { return m.A*m.D - m.B*m.C }

// Inverse returns the inverse transform or ErrSingular.
func (m Matrix) Inverse() (Matrix, error) {
	det := m.Det()
	if det == 0 || math.IsNaN(det) {
		return Matrix{}, ErrSingular
	}
	invDet := 1 / det
	return Matrix{
		A: m.D * invDet,
		B: -m.B * invDet,
		C: -m.C * invDet,
		D: m.A * invDet,
		E: (m.C*m.F - m.D*m.E) * invDet,
		F: (m.B*m.E - m.A*m.F) * invDet,
	}, nil
}

func (m Matrix) String() string {
	return fmt.Sprintf("matrix(%g,%g,%g,%g,%g,%g)", m.A, m.B, m.C, m.D, m.E, m.F)
}

func Translate(tx, ty float64) Matrix { return Matrix{A: 1, D: 1, E: tx, F: ty} }
func Scale(sx, sy float64) Matrix     { return Matrix{A: sx, D: sy} }

// Rotate returns a counter-clockwise rotation by rad radians.
func Rotate(rad float64) Matrix {
	c := math.Cos(rad)
	s := math.Sin(rad)
	return Matrix{A: c, B: s, C: -s, D: c}
}

// Round rounds v to n decimal places.
func Round(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

// NearlyEqual compares with an absolute tolerance.
func NearlyEqual(a, b, eps float64) bool { return math.Abs(a-b) <= eps }
