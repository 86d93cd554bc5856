/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package model

import (
	"sort"
	"strconv"
)

// Store owns all pages and nodes keyed by id. Inserting an existing id
// overwrites it (last write wins); removing an unknown id is a no-op.
//
// A Store has a single writer; hosts that share one across goroutines
// must serialize access themselves.
type Store struct {
	ids           IDAllocator
	currentPageID string
	pages         map[string]*Page
	nodes         map[string]Node
}

func NewStore() *Store {
	return &Store{pages: make(map[string]*Page), nodes: make(map[string]Node)}
}

// NextID allocates the next identifier for a page or node.
func (s *Store) NextID() string { return s.ids.Next() }

// Counter returns the allocator's current value.
func (s *Store) Counter() uint64 { return s.ids.Counter() }

func (s *Store) InsertNode(n Node) {
	if n == nil {
		return
	}
	s.nodes[n.NodeID()] = n
}

func (s *Store) RemoveNode(id string) { delete(s.nodes, id) }

func (s *Store) Node(id string) (Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Nodes returns all nodes ordered by id.
func (s *Store) Nodes() []Node {
	out := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].NodeID(), out[j].NodeID()) })
	return out
}

func (s *Store) NodeCount() int { return len(s.nodes) }

// InsertPage stores a copy of p and makes it the current page.
func (s *Store) InsertPage(p Page) {
	c := p.Clone()
	s.pages[p.ID] = &c
	s.currentPageID = p.ID
}

// RemovePage deletes the page. The current page id is left as is; callers
// that care restore it explicitly.
func (s *Store) RemovePage(id string) { delete(s.pages, id) }

// Page returns a copy of the page with the given id.
func (s *Store) Page(id string) (Page, bool) {
	p, ok := s.pages[id]
	if !ok {
		return Page{}, false
	}
	return p.Clone(), true
}

// Pages returns copies of all pages ordered by id.
func (s *Store) Pages() []Page {
	out := make([]Page, 0, len(s.pages))
	for _, p := range s.pages {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID, out[j].ID) })
	return out
}

func (s *Store) PageCount() int { return len(s.pages) }

// UpdatePage mutates a stored page in place without changing the current
// page. It reports false when the page does not exist.
func (s *Store) UpdatePage(id string, fn func(p *Page)) bool {
	p, ok := s.pages[id]
	if !ok {
		return false
	}
	fn(p)
	return true
}

func (s *Store) CurrentPageID() string { return s.currentPageID }

// SetCurrentPage sets the page new nodes are attached to. Any id is
// accepted, including "" and ids of removed pages.
func (s *Store) SetCurrentPage(id string) { s.currentPageID = id }

// CurrentPage returns the current page if it exists.
func (s *Store) CurrentPage() (Page, bool) { return s.Page(s.currentPageID) }

// SetSelection replaces the selection of the given page.
func (s *Store) SetSelection(pageID string, ids []string) bool {
	return s.UpdatePage(pageID, func(p *Page) {
		p.SelectedIDs = append([]string{}, ids...)
	})
}

// Selection returns the page's selected ids that still name a stored node.
func (s *Store) Selection(pageID string) []string {
	p, ok := s.pages[pageID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(p.SelectedIDs))
	for _, id := range p.SelectedIDs {
		if _, ok := s.nodes[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// idLess orders decimal ids numerically and falls back to string order.
func idLess(a, b string) bool {
	ai, aerr := strconv.ParseUint(a, 10, 64)
	bi, berr := strconv.ParseUint(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	default:
		return a < b
	}
}
