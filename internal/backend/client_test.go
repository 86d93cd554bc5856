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
	"net"
	"testing"
	"time"

	"drawdoc/internal/command"
	"drawdoc/internal/document"
	"drawdoc/internal/storage"

	"github.com/gofiber/fiber/v3"
)

// serve runs a MemRepo-backed app on a loopback port and returns its base URL.
func serve(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	app := NewApp(NewMemRepo(), testSecret)
	go func() { _ = app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true}) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "http://" + ln.Addr().String()
}

func TestClientRoundTrip(t *testing.T) {
	c := NewClient(serve(t)+"/", "", 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := c.List(ctx); err == nil {
		t.Fatalf("expected auth error without token")
	}
	if _, _, err := c.RequestToken(ctx, "tester", time.Hour); err != nil {
		t.Fatalf("RequestToken: %v", err)
	}
	v, err := c.Version(ctx)
	if err != nil || v == "" {
		t.Fatalf("Version: %q %v", v, err)
	}

	created, err := c.Create(ctx, "plan", json.RawMessage(emptyDoc))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	pushed, err := c.Push(ctx, created.ID, "plan", json.RawMessage(pageDoc), created.Version)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if pushed.Version != 2 {
		t.Fatalf("expected version 2, got %d", pushed.Version)
	}
	if _, err := c.Push(ctx, created.ID, "plan", json.RawMessage(pageDoc), created.Version); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	got, err := c.Pull(ctx, created.ID)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if got.Version != 2 || len(got.Body) == 0 {
		t.Fatalf("unexpected pulled doc %+v", got.DocumentInfo)
	}
	if _, err := c.Pull(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	list, err := c.Search(ctx, "floor", 10)
	if err != nil || len(list) != 1 {
		t.Fatalf("Search: %+v %v", list, err)
	}
}

func TestPushPullWorkspace(t *testing.T) {
	c := NewClient(serve(t), "", 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, _, err := c.RequestToken(ctx, "tester", time.Hour); err != nil {
		t.Fatalf("RequestToken: %v", err)
	}

	ws, err := storage.InitWorkspace(t.TempDir(), "shared", document.Config{})
	if err != nil {
		t.Fatalf("InitWorkspace: %v", err)
	}
	ws.Doc.Execute(command.NewCreatePage(ws.Doc.NextID(), "first", ""))
	if _, err := PushWorkspace(ctx, c, ws); err != nil {
		t.Fatalf("PushWorkspace: %v", err)
	}
	if ws.Meta.ServerVersion != 1 {
		t.Fatalf("expected server version 1, got %d", ws.Meta.ServerVersion)
	}

	// A second checkout of the same document.
	other := &storage.Workspace{Root: t.TempDir(), Meta: storage.Meta{DocID: ws.Meta.DocID}}
	if _, err := PullWorkspace(ctx, c, other, document.Config{}, false); err != nil {
		t.Fatalf("PullWorkspace: %v", err)
	}
	if pages, _, _ := other.Doc.Stats(); pages != 1 || other.Meta.Name != "shared" {
		t.Fatalf("pulled workspace mismatch: pages=%d meta=%+v", pages, other.Meta)
	}

	// The first checkout moves on; the second one is now stale.
	ws.Doc.Execute(command.NewCreatePage(ws.Doc.NextID(), "second", ""))
	if _, err := PushWorkspace(ctx, c, ws); err != nil {
		t.Fatalf("PushWorkspace again: %v", err)
	}
	other.Doc.Execute(command.NewCreatePage(other.Doc.NextID(), "conflicting", ""))
	if _, err := PushWorkspace(ctx, c, other); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict for stale push, got %v", err)
	}
	if _, err := PullWorkspace(ctx, c, other, document.Config{}, false); err == nil {
		t.Fatalf("pull over unsaved changes should be refused")
	}
	if _, err := PullWorkspace(ctx, c, other, document.Config{}, true); err != nil {
		t.Fatalf("forced pull: %v", err)
	}
	if pages, _, _ := other.Doc.Stats(); pages != 2 {
		t.Fatalf("expected 2 pages after forced pull, got %d", pages)
	}
}
