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
	"errors"
	"fmt"
	"strconv"
)

// Snapshot is the persisted shape of a store:
//
//	{ "id_counter": 7, "current_page_id": "1",
//	  "pages": [ {"node_type":"Page", "id":"1", ...} ],
//	  "nodes": [ {"node_type":"Line", "id":"2", "x1":0, ...} ] }
type Snapshot struct {
	IDCounter     uint64            `json:"id_counter"`
	CurrentPageID string            `json:"current_page_id,omitempty"`
	Pages         []json.RawMessage `json:"pages"`
	Nodes         []json.RawMessage `json:"nodes"`
}

type pageRecord struct {
	NodeType Kind `json:"node_type"`
	Page
}

type lineRecord struct {
	NodeType Kind `json:"node_type"`
	Line
}

type arcRecord struct {
	NodeType Kind `json:"node_type"`
	Arc
}

type tagProbe struct {
	NodeType Kind   `json:"node_type"`
	ID       string `json:"id"`
}

// EncodeNode renders a node with its variant tag.
func EncodeNode(n Node) ([]byte, error) {
	switch v := n.(type) {
	case Line:
		return json.Marshal(lineRecord{NodeType: KindLine, Line: v})
	case Arc:
		return json.Marshal(arcRecord{NodeType: KindArc, Arc: v})
	case nil:
		return nil, errors.New("encode node: nil node")
	default:
		return nil, fmt.Errorf("encode node: unsupported type %T", n)
	}
}

// DecodeNode parses a tagged node record.
func DecodeNode(data []byte) (Node, error) {
	var probe tagProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode node: %w", err)
	}
	if probe.ID == "" {
		return nil, errors.New("decode node: missing id")
	}
	switch probe.NodeType {
	case KindLine:
		var rec lineRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode line %s: %w", probe.ID, err)
		}
		return rec.Line, nil
	case KindArc:
		var rec arcRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode arc %s: %w", probe.ID, err)
		}
		if rec.Arc.R < 0 {
			return nil, fmt.Errorf("decode arc %s: radius must not be negative", probe.ID)
		}
		return rec.Arc, nil
	default:
		return nil, fmt.Errorf("decode node %s: unknown node_type %q", probe.ID, probe.NodeType)
	}
}

// Snapshot captures the store contents in persisted form.
func (s *Store) Snapshot() (Snapshot, error) {
	snap := Snapshot{IDCounter: s.ids.Counter(), CurrentPageID: s.currentPageID}
	for _, p := range s.Pages() {
		b, err := json.Marshal(pageRecord{NodeType: KindPage, Page: p})
		if err != nil {
			return Snapshot{}, fmt.Errorf("encode page %s: %w", p.ID, err)
		}
		snap.Pages = append(snap.Pages, b)
	}
	for _, n := range s.Nodes() {
		b, err := EncodeNode(n)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Nodes = append(snap.Nodes, b)
	}
	if snap.Pages == nil {
		snap.Pages = []json.RawMessage{}
	}
	if snap.Nodes == nil {
		snap.Nodes = []json.RawMessage{}
	}
	return snap, nil
}

// MarshalJSON serializes the store in its persisted shape.
func (s *Store) MarshalJSON() ([]byte, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return json.Marshal(snap)
}

// FromSnapshot rebuilds a store. The id counter is advanced past every
// numeric id found so restored ids are never handed out again.
func FromSnapshot(snap Snapshot) (*Store, error) {
	s := NewStore()
	s.ids.advanceTo(snap.IDCounter)
	for _, raw := range snap.Pages {
		var rec pageRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode page: %w", err)
		}
		if rec.NodeType != "" && rec.NodeType != KindPage {
			return nil, fmt.Errorf("decode page %s: unexpected node_type %q", rec.ID, rec.NodeType)
		}
		if rec.ID == "" {
			return nil, errors.New("decode page: missing id")
		}
		p := rec.Page
		if p.NodeIDs == nil {
			p.NodeIDs = []string{}
		}
		if p.SelectedIDs == nil {
			p.SelectedIDs = []string{}
		}
		s.pages[p.ID] = &p
		s.bumpCounter(p.ID)
	}
	for _, raw := range snap.Nodes {
		n, err := DecodeNode(raw)
		if err != nil {
			return nil, err
		}
		s.nodes[n.NodeID()] = n
		s.bumpCounter(n.NodeID())
	}
	s.currentPageID = snap.CurrentPageID
	return s, nil
}

// UnmarshalStore parses data produced by Store.MarshalJSON.
func UnmarshalStore(data []byte) (*Store, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return FromSnapshot(snap)
}

func (s *Store) bumpCounter(id string) {
	if v, err := strconv.ParseUint(id, 10, 64); err == nil {
		s.ids.advanceTo(v)
	}
}
