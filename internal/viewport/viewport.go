/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package viewport maps between a fixed-size device canvas and a pannable,
// zoomable rectangle of world space. Device y grows downward, world y grows
// upward.
//
// After every mutating call scale == CanvasWidth()/Width(). Calls with
// non-positive extents leave the viewport unchanged.
package viewport

import (
	"fmt"
	"math"

	"drawdoc/internal/geom"
)

const (
	DefaultCanvasWidth  = 400
	DefaultCanvasHeight = 400

	// maxZoomStep bounds a single wheel step to 10 percent.
	maxZoomStep = 10
	panPlaces   = 2
)

type Viewport struct {
	canvasWidth  float64
	canvasHeight float64
	x, y         float64
	width        float64
	height       float64
	scale        float64
}

// State is a plain copy of the viewport fields, used for persistence and
// diagnostics.
type State struct {
	CanvasWidth  float64 `json:"canvas_width" yaml:"canvas_width"`
	CanvasHeight float64 `json:"canvas_height" yaml:"canvas_height"`
	X            float64 `json:"x" yaml:"x"`
	Y            float64 `json:"y" yaml:"y"`
	Width        float64 `json:"width" yaml:"width"`
	Height       float64 `json:"height" yaml:"height"`
	Scale        float64 `json:"scale" yaml:"scale"`
}

// New returns a viewport over a 400x400 canvas centered on the world origin.
func New() *Viewport {
	v := &Viewport{}
	v.SetCanvasSize(DefaultCanvasWidth, DefaultCanvasHeight)
	return v
}

// NewWithCanvas returns a viewport reset to the given canvas size, falling
// back to the defaults for non-positive values.
func NewWithCanvas(w, h float64) *Viewport {
	v := New()
	v.SetCanvasSize(w, h)
	return v
}

func (v *Viewport) X() float64            { return v.x }
func (v *Viewport) Y() float64            { return v.y }
func (v *Viewport) Width() float64        { return v.width }
func (v *Viewport) Height() float64       { return v.height }
func (v *Viewport) Scale() float64        { return v.scale }
func (v *Viewport) CanvasWidth() float64  { return v.canvasWidth }
func (v *Viewport) CanvasHeight() float64 { return v.canvasHeight }

func (v *Viewport) State() State {
	return State{
		CanvasWidth: v.canvasWidth, CanvasHeight: v.canvasHeight,
		X: v.x, Y: v.y, Width: v.width, Height: v.height, Scale: v.scale,
	}
}

// Restore applies a persisted state. A state with a non-positive canvas,
// extent or scale is ignored.
func (v *Viewport) Restore(s State) {
	if !positive(s.CanvasWidth) || !positive(s.CanvasHeight) || !positive(s.Width) || !positive(s.Height) || !positive(s.Scale) {
		return
	}
	v.canvasWidth, v.canvasHeight = s.CanvasWidth, s.CanvasHeight
	v.x, v.y = s.X, s.Y
	v.width, v.height = s.Width, s.Height
	v.scale = s.Scale
}

// SetCanvasSize resets the viewport: the visible rectangle becomes the
// canvas size centered on the world origin at scale 1.
func (v *Viewport) SetCanvasSize(w, h float64) {
	if !positive(w) || !positive(h) {
		return
	}
	v.canvasWidth = w
	v.canvasHeight = h
	v.x = -w / 2
	v.y = -h / 2
	v.width = w
	v.height = h
	v.scale = 1
}

// SetViewport shows the requested world rectangle. One axis is expanded
// (never shrunk) to keep the canvas aspect ratio.
func (v *Viewport) SetViewport(x, y, w, h float64) {
	if !positive(w) || !positive(h) || !positive(v.canvasWidth) || !positive(v.canvasHeight) {
		return
	}
	ratio := v.canvasWidth / v.canvasHeight
	v.x = x
	v.y = y
	v.width = math.Max(w, h*ratio)
	v.height = math.Max(h, w/ratio)
	v.scale = v.canvasWidth / v.width
}

// ZoomViewport zooms by one wheel step around the device point
// (centerX, centerY). Positive deltaY zooms out; its magnitude is clamped
// to 10 percent. The world point under the anchor does not move. Calls with
// a non-finite argument are ignored.
func (v *Viewport) ZoomViewport(deltaY, centerX, centerY float64) {
	if !positive(v.scale) || !finite(deltaY) || !finite(centerX) || !finite(centerY) {
		return
	}
	delta := math.Min(math.Abs(deltaY), maxZoomStep)
	signed := delta * -sign(deltaY)
	old := v.scale
	next := old * (1 + signed/100)

	anchorX := v.x + centerX/old
	anchorY := v.y + centerY/old
	v.x = anchorX - (old/next)*(anchorX-v.x)
	v.y = anchorY - (old/next)*(anchorY-v.y)
	v.scale = next
	v.width = v.canvasWidth / next
	v.height = v.canvasHeight / next
}

// PanningViewport moves the visible rectangle by a device-space delta. The
// new origin is rounded to two decimals per component. Non-finite deltas
// are ignored.
func (v *Viewport) PanningViewport(dx, dy float64) {
	if !positive(v.scale) || !finite(dx) || !finite(dy) {
		return
	}
	v.x = geom.Round(v.x+dx/v.scale, panPlaces)
	v.y = geom.Round(v.y+dy/v.scale, panPlaces)
}

// ClientToCanvas converts a device point to world coordinates.
func (v *Viewport) ClientToCanvas(p geom.Pt) geom.Pt {
	return geom.Pt{
		X: (p.X + v.x*v.scale) / v.scale,
		Y: (-p.Y - v.y*v.scale) / v.scale,
	}
}

// CanvasToClient converts a world point to device coordinates.
func (v *Viewport) CanvasToClient(p geom.Pt) geom.Pt {
	return v.Transform().Apply(p)
}

// Transform returns the world to device matrix. Its inverse maps device
// points the same way ClientToCanvas does.
func (v *Viewport) Transform() geom.Matrix {
	s := v.scale
	flip := geom.Scale(1, -1)
	return geom.Scale(s, s).Mul(geom.Translate(-v.x, -v.y)).Mul(flip)
}

// Visible returns the world rectangle currently shown, with Y as the
// bottom edge.
func (v *Viewport) Visible() geom.Rect {
	return geom.R(v.x, -v.y-v.height, v.width, v.height)
}

// FitRect shows r padded by margin world units on every side, centered on
// the canvas.
func (v *Viewport) FitRect(r geom.Rect, margin float64) {
	if margin < 0 {
		margin = 0
	}
	r = r.Inset(-margin, -margin)
	if !positive(r.W) && !positive(r.H) {
		return
	}
	// a degenerate axis borrows the other one so the ratio can expand it
	if !positive(r.W) {
		r.W = r.H
		r.X -= r.W / 2
	}
	if !positive(r.H) {
		r.H = r.W
		r.Y -= r.H / 2
	}
	if !positive(v.canvasWidth) || !positive(v.canvasHeight) {
		return
	}
	v.SetViewport(r.X, -(r.Y + r.H), r.W, r.H)
	cx := r.X + r.W/2
	cy := r.Y + r.H/2
	v.x = cx - v.width/2
	v.y = -cy - v.height/2
}

func (v *Viewport) String() string {
	return fmt.Sprintf("viewport{canvas=%gx%g x=%.2f y=%.2f w=%.2f h=%.2f scale=%.4f}",
		v.canvasWidth, v.canvasHeight, v.x, v.y, v.width, v.height, v.scale)
}

func positive(f float64) bool { return f > 0 && !math.IsInf(f, 1) }

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func sign(f float64) float64 {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	default:
		return 0
	}
}
