/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package model

import (
	"fmt"
	"math"

	"drawdoc/internal/geom"
)

// Kind is the serialized variant tag of an entity.
type Kind string

const (
	KindPage Kind = "Page"
	KindLine Kind = "Line"
	KindArc  Kind = "Arc"
)

// Node is a drawable entity. The set of implementations is closed: only
// Line and Arc satisfy it, so a type switch over Node is exhaustive.
type Node interface {
	NodeID() string
	Kind() Kind
	// Bounds is the world-space bounding box.
	Bounds() geom.Rect
	// Hit reports whether p lies within tol world units of the geometry.
	Hit(p geom.Pt, tol float64) bool
	// Translated returns a copy moved by dx, dy.
	Translated(dx, dy float64) Node
	sealed()
}

// Line is a straight segment between two world-space endpoints.
type Line struct {
	ID string  `json:"id"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func NewLine(id string, x1, y1, x2, y2 float64) Line {
	return Line{ID: id, X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func (l Line) NodeID() string { return l.ID }
func (l Line) Kind() Kind     { return KindLine }
func (l Line) sealed()        {}

func (l Line) Start() geom.Pt { return geom.Pt{X: l.X1, Y: l.Y1} }
func (l Line) End() geom.Pt   { return geom.Pt{X: l.X2, Y: l.Y2} }
func (l Line) Length() float64 {
	return l.Start().Dist(l.End())
}

func (l Line) Bounds() geom.Rect { return geom.RectFromPoints(l.Start(), l.End()) }

func (l Line) Hit(p geom.Pt, tol float64) bool {
	return distToSegment(p, l.Start(), l.End()) <= tol
}

func (l Line) Translated(dx, dy float64) Node {
	return Line{ID: l.ID, X1: l.X1 + dx, Y1: l.Y1 + dy, X2: l.X2 + dx, Y2: l.Y2 + dy}
}

func (l Line) String() string {
	return fmt.Sprintf("Line{id=%s (%g,%g)-(%g,%g) len=%.2f}", l.ID, l.X1, l.Y1, l.X2, l.Y2, l.Length())
}

// Arc is a circular arc around (X, Y) with radius R. The sweep runs
// counter-clockwise from AngleStart to AngleEnd, both in degrees.
type Arc struct {
	ID         string  `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	R          float64 `json:"r"`
	AngleStart float64 `json:"angle_start"`
	AngleEnd   float64 `json:"angle_end"`
}

// NewArc builds an arc. The radius is a magnitude; a negative r is stored
// as its absolute value.
func NewArc(id string, x, y, r, angleStart, angleEnd float64) Arc {
	return Arc{ID: id, X: x, Y: y, R: math.Abs(r), AngleStart: angleStart, AngleEnd: angleEnd}
}

func (a Arc) NodeID() string { return a.ID }
func (a Arc) Kind() Kind     { return KindArc }
func (a Arc) sealed()        {}

func (a Arc) Center() geom.Pt { return geom.Pt{X: a.X, Y: a.Y} }

// Sweep returns the normalized sweep in degrees, in [0, 360].
func (a Arc) Sweep() float64 {
	d := a.AngleEnd - a.AngleStart
	if d >= 360 || d <= -360 {
		return 360
	}
	if d < 0 {
		d += 360
	}
	return d
}

// PointAt returns the point on the circle at deg degrees.
func (a Arc) PointAt(deg float64) geom.Pt {
	rad := deg * math.Pi / 180
	return geom.Pt{X: a.X + a.R*math.Cos(rad), Y: a.Y + a.R*math.Sin(rad)}
}

// covers reports whether deg lies inside the sweep.
func (a Arc) covers(deg float64) bool {
	sweep := a.Sweep()
	if sweep >= 360 {
		return true
	}
	off := math.Mod(deg-a.AngleStart, 360)
	if off < 0 {
		off += 360
	}
	return off <= sweep
}

func (a Arc) Bounds() geom.Rect {
	r := a.R
	if a.Sweep() >= 360 {
		return geom.R(a.X-r, a.Y-r, 2*r, 2*r)
	}
	pts := []geom.Pt{a.PointAt(a.AngleStart), a.PointAt(a.AngleStart + a.Sweep())}
	for _, q := range []float64{0, 90, 180, 270} {
		if a.covers(q) {
			pts = append(pts, a.PointAt(q))
		}
	}
	return geom.RectFromPoints(pts...)
}

func (a Arc) Hit(p geom.Pt, tol float64) bool {
	d := p.Dist(a.Center())
	if math.Abs(d-math.Abs(a.R)) > tol {
		return false
	}
	if d == 0 {
		return true
	}
	deg := math.Atan2(p.Y-a.Y, p.X-a.X) * 180 / math.Pi
	return a.covers(deg)
}

func (a Arc) Translated(dx, dy float64) Node {
	c := a
	c.X += dx
	c.Y += dy
	return c
}

func (a Arc) String() string {
	return fmt.Sprintf("Arc{id=%s c=(%g,%g) r=%g %g..%g}", a.ID, a.X, a.Y, a.R, a.AngleStart, a.AngleEnd)
}

func distToSegment(p, a, b geom.Pt) float64 {
	ab := b.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return p.Dist(a)
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Dist(a.Add(ab.Mul(t)))
}
