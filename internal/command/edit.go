/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package command

import (
	"fmt"

	"drawdoc/internal/model"
)

type pagePos struct {
	pageID string
	index  int
}

// DeleteNode removes a node and detaches it from every page listing it.
// Undo puts the node back at its previous positions. Deleting an unknown id
// does nothing and undoes to nothing.
type DeleteNode struct {
	ID string

	removed   model.Node
	positions []pagePos
}

func NewDeleteNode(id string) *DeleteNode { return &DeleteNode{ID: id} }

func (c *DeleteNode) Execute(s *model.Store) {
	c.removed, c.positions = nil, nil
	n, ok := s.Node(c.ID)
	if !ok {
		return
	}
	c.removed = n
	for _, p := range s.Pages() {
		s.UpdatePage(p.ID, func(p *model.Page) {
			for {
				i := p.RemoveNodeID(c.ID)
				if i < 0 {
					break
				}
				c.positions = append(c.positions, pagePos{pageID: p.ID, index: i})
			}
		})
	}
	s.RemoveNode(c.ID)
}

func (c *DeleteNode) Undo(s *model.Store) {
	if c.removed == nil {
		return
	}
	s.InsertNode(c.removed)
	// reinsert in reverse removal order so indices line up again
	for i := len(c.positions) - 1; i >= 0; i-- {
		pos := c.positions[i]
		s.UpdatePage(pos.pageID, func(p *model.Page) { p.InsertNodeIDAt(pos.index, c.ID) })
	}
}

func (c *DeleteNode) String() string { return fmt.Sprintf("DeleteNode(id=%s)", c.ID) }

// DeletePage removes a page. Nodes it listed stay in the store. When the
// page was current, no page is current afterwards; undo restores both the
// page and the previous current page.
type DeletePage struct {
	ID string

	page        model.Page
	existed     bool
	prevCurrent string
}

func NewDeletePage(id string) *DeletePage { return &DeletePage{ID: id} }

func (c *DeletePage) Execute(s *model.Store) {
	c.prevCurrent = s.CurrentPageID()
	c.page, c.existed = s.Page(c.ID)
	if !c.existed {
		return
	}
	s.RemovePage(c.ID)
	if c.prevCurrent == c.ID {
		s.SetCurrentPage("")
	}
}

func (c *DeletePage) Undo(s *model.Store) {
	if !c.existed {
		return
	}
	s.InsertPage(c.page)
	s.SetCurrentPage(c.prevCurrent)
}

func (c *DeletePage) String() string { return fmt.Sprintf("DeletePage(id=%s)", c.ID) }

// UpdateNode replaces a node's geometry, keyed by its id. Undo restores the
// previous value, or removes the node if there was none.
type UpdateNode struct {
	Node model.Node

	prev model.Node
	had  bool
}

func NewUpdateNode(n model.Node) *UpdateNode { return &UpdateNode{Node: n} }

// NewMove builds an UpdateNode that translates n by (dx, dy).
func NewMove(n model.Node, dx, dy float64) *UpdateNode {
	return NewUpdateNode(n.Translated(dx, dy))
}

func (c *UpdateNode) Execute(s *model.Store) {
	c.prev, c.had = s.Node(c.Node.NodeID())
	s.InsertNode(c.Node)
}

func (c *UpdateNode) Undo(s *model.Store) {
	if c.had {
		s.InsertNode(c.prev)
		return
	}
	s.RemoveNode(c.Node.NodeID())
}

func (c *UpdateNode) String() string { return fmt.Sprintf("UpdateNode(%s)", c.Node) }
