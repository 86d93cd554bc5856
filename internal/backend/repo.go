/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a document id is unknown.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned by Put when the base version is stale.
	ErrConflict = errors.New("document version conflict")
)

// DocumentInfo is the listing projection of a stored document.
type DocumentInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Document is a stored document with its body (the bare document JSON).
type Document struct {
	DocumentInfo
	Body json.RawMessage `json:"body"`
}

// Repo stores documents with optimistic versioning.
//
// Put replaces the document id when baseVersion matches the stored version
// and returns the new version. A baseVersion of 0 creates the document under
// id when it does not exist yet.
type Repo interface {
	List(ctx context.Context) ([]DocumentInfo, error)
	Get(ctx context.Context, id string) (Document, error)
	Create(ctx context.Context, name string, body json.RawMessage) (Document, error)
	Put(ctx context.Context, id, name string, body json.RawMessage, baseVersion int64) (Document, error)
	Search(ctx context.Context, text string, limit int) ([]DocumentInfo, error)
}

// MemRepo is an in-process Repo used by tests and "serve --memory".
type MemRepo struct {
	mu   sync.RWMutex
	docs map[string]Document
	now  func() time.Time
}

func NewMemRepo() *MemRepo {
	return &MemRepo{docs: map[string]Document{}, now: time.Now}
}

func (m *MemRepo) List(_ context.Context) ([]DocumentInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]DocumentInfo, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d.DocumentInfo)
	}
	sortInfos(out)
	return out, nil
}

func (m *MemRepo) Get(_ context.Context, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return d, nil
}

func (m *MemRepo) Create(ctx context.Context, name string, body json.RawMessage) (Document, error) {
	return m.Put(ctx, uuid.NewString(), name, body, 0)
}

func (m *MemRepo) Put(_ context.Context, id, name string, body json.RawMessage, baseVersion int64) (Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Document{}, ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, exists := m.docs[id]
	switch {
	case !exists && baseVersion != 0:
		return Document{}, ErrNotFound
	case exists && cur.Version != baseVersion:
		return Document{}, ErrConflict
	}
	d := Document{
		DocumentInfo: DocumentInfo{ID: id, Name: name, Version: baseVersion + 1, UpdatedAt: m.now().UTC()},
		Body:         append(json.RawMessage(nil), body...),
	}
	m.docs[id] = d
	return d, nil
}

// Search matches text case-insensitively against document and page names.
func (m *MemRepo) Search(_ context.Context, text string, limit int) ([]DocumentInfo, error) {
	needle := strings.ToLower(strings.TrimSpace(text))
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []DocumentInfo
	for _, d := range m.docs {
		if needle == "" || strings.Contains(strings.ToLower(d.Name), needle) || bodyMentions(d.Body, needle) {
			out = append(out, d.DocumentInfo)
		}
	}
	sortInfos(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func bodyMentions(body json.RawMessage, needle string) bool {
	var doc struct {
		Pages []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"pages"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return false
	}
	for _, p := range doc.Pages {
		if strings.Contains(strings.ToLower(p.Name), needle) || strings.Contains(strings.ToLower(p.Description), needle) {
			return true
		}
	}
	return false
}

// sortInfos orders newest first, then by id for a stable listing.
func sortInfos(list []DocumentInfo) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].UpdatedAt.After(list[j].UpdatedAt)
		}
		return list[i].ID < list[j].ID
	})
}
