/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package model

// Page is a named container referencing an ordered list of node ids plus a
// transient selection. SelectedIDs may name nodes that no longer exist.
type Page struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	NodeIDs     []string `json:"node_ids"`
	SelectedIDs []string `json:"selected_ids"`
}

func NewPage(id, name, description string) Page {
	return Page{ID: id, Name: name, Description: description, NodeIDs: []string{}, SelectedIDs: []string{}}
}

// Clone returns a deep copy so callers cannot alias store-owned slices.
func (p Page) Clone() Page {
	c := p
	c.NodeIDs = append([]string{}, p.NodeIDs...)
	c.SelectedIDs = append([]string{}, p.SelectedIDs...)
	return c
}

// AddNodeID appends id to the page's node order.
func (p *Page) AddNodeID(id string) { p.NodeIDs = append(p.NodeIDs, id) }

// InsertNodeIDAt places id at index i, clamped to the valid range.
func (p *Page) InsertNodeIDAt(i int, id string) {
	if i < 0 {
		i = 0
	}
	if i > len(p.NodeIDs) {
		i = len(p.NodeIDs)
	}
	p.NodeIDs = append(p.NodeIDs, "")
	copy(p.NodeIDs[i+1:], p.NodeIDs[i:])
	p.NodeIDs[i] = id
}

// RemoveNodeID drops the last occurrence of id and returns its index, or -1.
func (p *Page) RemoveNodeID(id string) int {
	for i := len(p.NodeIDs) - 1; i >= 0; i-- {
		if p.NodeIDs[i] == id {
			p.NodeIDs = append(p.NodeIDs[:i], p.NodeIDs[i+1:]...)
			return i
		}
	}
	return -1
}

// IndexOf returns the position of id in NodeIDs, or -1.
func (p Page) IndexOf(id string) int {
	for i, v := range p.NodeIDs {
		if v == id {
			return i
		}
	}
	return -1
}
