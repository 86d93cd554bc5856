/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package command implements the reversible document mutations executed
// through an undo.Stack. Ids are allocated by the caller before a command
// is built; commands never fail.
package command

import (
	"fmt"

	"drawdoc/internal/model"
	"drawdoc/internal/undo"
)

var (
	_ undo.Command = (*CreatePage)(nil)
	_ undo.Command = (*CreateLine)(nil)
	_ undo.Command = (*CreateArc)(nil)
	_ undo.Command = (*DeleteNode)(nil)
	_ undo.Command = (*DeletePage)(nil)
	_ undo.Command = (*UpdateNode)(nil)
)

// CreatePage inserts a page and makes it current. Undo removes it and
// restores the page that was current before.
type CreatePage struct {
	ID          string
	Name        string
	Description string

	prevCurrent string
}

func NewCreatePage(id, name, description string) *CreatePage {
	return &CreatePage{ID: id, Name: name, Description: description}
}

func (c *CreatePage) Execute(s *model.Store) {
	c.prevCurrent = s.CurrentPageID()
	s.InsertPage(model.NewPage(c.ID, c.Name, c.Description))
}

func (c *CreatePage) Undo(s *model.Store) {
	s.RemovePage(c.ID)
	s.SetCurrentPage(c.prevCurrent)
}

func (c *CreatePage) String() string {
	return fmt.Sprintf("CreatePage(id=%s, name=%q, description=%q)", c.ID, c.Name, c.Description)
}

// createNode inserts a node and attaches it to the current page, if any.
type createNode struct {
	attachedTo string
}

func (c *createNode) insert(s *model.Store, n model.Node) {
	s.InsertNode(n)
	c.attachedTo = ""
	cur := s.CurrentPageID()
	if cur == "" {
		return
	}
	if s.UpdatePage(cur, func(p *model.Page) { p.AddNodeID(n.NodeID()) }) {
		c.attachedTo = cur
	}
}

func (c *createNode) remove(s *model.Store, id string) {
	s.RemoveNode(id)
	if c.attachedTo != "" {
		s.UpdatePage(c.attachedTo, func(p *model.Page) { p.RemoveNodeID(id) })
	}
}

// CreateLine inserts a line segment.
type CreateLine struct {
	createNode
	Line model.Line
}

func NewCreateLine(id string, x1, y1, x2, y2 float64) *CreateLine {
	return &CreateLine{Line: model.NewLine(id, x1, y1, x2, y2)}
}

func (c *CreateLine) Execute(s *model.Store) { c.insert(s, c.Line) }
func (c *CreateLine) Undo(s *model.Store)    { c.remove(s, c.Line.ID) }

func (c *CreateLine) String() string {
	l := c.Line
	return fmt.Sprintf("CreateLine(id=%s, x1=%g, y1=%g, x2=%g, y2=%g)", l.ID, l.X1, l.Y1, l.X2, l.Y2)
}

// CreateArc inserts a circular arc. Angles are in degrees.
type CreateArc struct {
	createNode
	Arc model.Arc
}

func NewCreateArc(id string, x, y, r, angleStart, angleEnd float64) *CreateArc {
	return &CreateArc{Arc: model.NewArc(id, x, y, r, angleStart, angleEnd)}
}

func (c *CreateArc) Execute(s *model.Store) { c.insert(s, c.Arc) }
func (c *CreateArc) Undo(s *model.Store)    { c.remove(s, c.Arc.ID) }

func (c *CreateArc) String() string {
	a := c.Arc
	return fmt.Sprintf("CreateArc(id=%s, x=%g, y=%g, r=%g, angle_start=%g, angle_end=%g)",
		a.ID, a.X, a.Y, a.R, a.AngleStart, a.AngleEnd)
}
