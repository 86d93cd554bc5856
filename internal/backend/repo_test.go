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
	"testing"
	"time"
)

func TestMemRepoVersioning(t *testing.T) {
	repo := NewMemRepo()
	ctx := context.Background()
	d, err := repo.Create(ctx, "a", json.RawMessage(emptyDoc))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Put(ctx, d.ID, "a", json.RawMessage(emptyDoc), 0); !errors.Is(err, ErrConflict) {
		t.Fatalf("creating over an existing id should conflict, got %v", err)
	}
	if _, err := repo.Put(ctx, "00000000-0000-0000-0000-000000000009", "b", json.RawMessage(emptyDoc), 4); !errors.Is(err, ErrNotFound) {
		t.Fatalf("updating a missing id should be ErrNotFound, got %v", err)
	}
	if _, err := repo.Put(ctx, "not-a-uuid", "b", json.RawMessage(emptyDoc), 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("non-uuid id should be ErrNotFound, got %v", err)
	}
	d2, err := repo.Put(ctx, d.ID, "a2", json.RawMessage(pageDoc), 1)
	if err != nil || d2.Version != 2 || d2.Name != "a2" {
		t.Fatalf("Put: %+v %v", d2, err)
	}
}

func TestMemRepoListOrder(t *testing.T) {
	repo := NewMemRepo()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }
	ctx := context.Background()
	older, _ := repo.Create(ctx, "older", json.RawMessage(emptyDoc))
	newer, _ := repo.Create(ctx, "newer", json.RawMessage(emptyDoc))
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}
	hits, _ := repo.Search(ctx, "", 1)
	if len(hits) != 1 || hits[0].ID != newer.ID {
		t.Fatalf("empty search should list with limit, got %+v", hits)
	}
}

func TestMemRepoBodyIsCopied(t *testing.T) {
	repo := NewMemRepo()
	ctx := context.Background()
	body := []byte(emptyDoc)
	d, _ := repo.Create(ctx, "a", body)
	body[0] = 'X'
	got, _ := repo.Get(ctx, d.ID)
	if got.Body[0] != '{' {
		t.Fatalf("stored body aliases caller buffer")
	}
}
