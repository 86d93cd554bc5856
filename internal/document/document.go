/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package document is the editing facade over a model.Store and its undo
// history. A Document has exactly one writer; concurrent hosts serialize
// access themselves.
package document

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"drawdoc/internal/geom"
	applog "drawdoc/internal/log"
	"drawdoc/internal/model"
	"drawdoc/internal/undo"
)

// Listener observes executed and undone commands, e.g. to keep an index or
// journal in sync.
type Listener interface {
	Executed(cmd undo.Command)
	Undone(cmd undo.Command)
}

// Config tunes a new Document.
type Config struct {
	// MaxUndoDepth caps the history (0 means unlimited).
	MaxUndoDepth int
	// Logger defaults to the "document" component logger.
	Logger *slog.Logger
}

type Document struct {
	store     *model.Store
	stack     *undo.Stack
	log       *slog.Logger
	listeners []Listener
	revision  uint64
	saved     uint64
}

func New() *Document { return NewWithConfig(Config{}) }

func NewWithConfig(cfg Config) *Document {
	return fromStore(model.NewStore(), cfg)
}

func fromStore(s *model.Store, cfg Config) *Document {
	l := cfg.Logger
	if l == nil {
		l = applog.WithComponent("document")
	}
	return &Document{
		store: s,
		stack: undo.NewStack(undo.Config{MaxDepth: cfg.MaxUndoDepth}),
		log:   l,
	}
}

// AddListener registers l for command notifications.
func (d *Document) AddListener(l Listener) {
	if l != nil {
		d.listeners = append(d.listeners, l)
	}
}

// NextID allocates an id for a page or node about to be created.
func (d *Document) NextID() string { return d.store.NextID() }

// Direct store access; these bypass the undo history.

func (d *Document) InsertPage(p model.Page) {
	d.store.InsertPage(p)
	d.touch()
}

func (d *Document) RemovePage(id string) {
	d.store.RemovePage(id)
	d.touch()
}

func (d *Document) InsertNode(n model.Node) {
	d.store.InsertNode(n)
	d.touch()
}

func (d *Document) RemoveNode(id string) {
	d.store.RemoveNode(id)
	d.touch()
}

func (d *Document) GetPage(id string) (model.Page, bool) { return d.store.Page(id) }
func (d *Document) GetPages() []model.Page               { return d.store.Pages() }
func (d *Document) GetNode(id string) (model.Node, bool) { return d.store.Node(id) }
func (d *Document) Nodes() []model.Node                  { return d.store.Nodes() }
func (d *Document) CurrentPageID() string                { return d.store.CurrentPageID() }

// SetCurrentPage switches the page new nodes are attached to. It reports
// false when no such page exists.
func (d *Document) SetCurrentPage(id string) bool {
	if _, ok := d.store.Page(id); !ok {
		return false
	}
	d.store.SetCurrentPage(id)
	return true
}

// Execute runs cmd and records it for undo.
func (d *Document) Execute(cmd undo.Command) {
	d.stack.Execute(d.store, cmd)
	d.touch()
	d.log.Debug("execute", slog.String("cmd", cmd.String()), slog.Int("depth", d.stack.Len()))
	for _, l := range d.listeners {
		l.Executed(cmd)
	}
}

// Undo reverses the most recent command. It returns false when there is
// nothing to undo.
func (d *Document) Undo() bool {
	cmd, ok := d.stack.Undo(d.store)
	if !ok {
		d.log.Info("nothing to undo")
		return false
	}
	d.touch()
	d.log.Debug("undo", slog.String("cmd", cmd.String()), slog.Int("depth", d.stack.Len()))
	for _, l := range d.listeners {
		l.Undone(cmd)
	}
	return true
}

// ListCommands renders the undo history, oldest first.
func (d *Document) ListCommands() string { return d.stack.List() }

// Commands returns the undo history, oldest first.
func (d *Document) Commands() []undo.Command { return d.stack.Entries() }

// SetSelection replaces the current page's selection. Selection is not part
// of the undo history.
func (d *Document) SetSelection(ids []string) bool {
	if !d.store.SetSelection(d.store.CurrentPageID(), ids) {
		return false
	}
	d.touch()
	return true
}

// Selection returns the current page's selected ids that still exist.
func (d *Document) Selection() []string { return d.store.Selection(d.store.CurrentPageID()) }

// NodesAt returns the ids of the current page's nodes hit by world point p,
// topmost first.
func (d *Document) NodesAt(p geom.Pt, tol float64) []string {
	page, ok := d.store.CurrentPage()
	if !ok {
		return nil
	}
	var hits []string
	for i := len(page.NodeIDs) - 1; i >= 0; i-- {
		n, ok := d.store.Node(page.NodeIDs[i])
		if ok && n.Hit(p, tol) {
			hits = append(hits, n.NodeID())
		}
	}
	return hits
}

// SelectAt selects the topmost node of the current page under p, or clears
// the selection when nothing is hit.
func (d *Document) SelectAt(p geom.Pt, tol float64) []string {
	hits := d.NodesAt(p, tol)
	if len(hits) > 1 {
		hits = hits[:1]
	}
	d.SetSelection(hits)
	return hits
}

// Bounds returns the union of the node bounds on page pageID, or of every
// node when pageID is empty.
func (d *Document) Bounds(pageID string) (geom.Rect, bool) {
	var nodes []model.Node
	if pageID == "" {
		nodes = d.store.Nodes()
	} else {
		p, ok := d.store.Page(pageID)
		if !ok {
			return geom.Rect{}, false
		}
		for _, id := range p.NodeIDs {
			if n, ok := d.store.Node(id); ok {
				nodes = append(nodes, n)
			}
		}
	}
	if len(nodes) == 0 {
		return geom.Rect{}, false
	}
	r := nodes[0].Bounds()
	for _, n := range nodes[1:] {
		r = r.Union(n.Bounds())
	}
	return r, true
}

// Dirty reports whether the document changed since MarkClean.
func (d *Document) Dirty() bool { return d.revision != d.saved }

// MarkClean records the current revision as persisted.
func (d *Document) MarkClean() { d.saved = d.revision }

// Revision increases with every mutation.
func (d *Document) Revision() uint64 { return d.revision }

func (d *Document) touch() { d.revision++ }

// Stats summarizes the document for diagnostics.
func (d *Document) Stats() (pages, nodes, undoDepth int) {
	return d.store.PageCount(), d.store.NodeCount(), d.stack.Len()
}

// Store exposes the underlying store for read-only collaborators such as
// the index. Mutations must go through Execute.
func (d *Document) Store() *model.Store { return d.store }

// MarshalJSON renders the persisted document shape. The undo history is
// not persisted.
func (d *Document) MarshalJSON() ([]byte, error) { return json.Marshal(d.store) }

// Load decodes a persisted document with an empty undo history.
func Load(data []byte, cfg Config) (*Document, error) {
	s, err := model.UnmarshalStore(data)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return fromStore(s, cfg), nil
}
