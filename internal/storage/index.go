/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"drawdoc/internal/document"
	"drawdoc/internal/geom"
	applog "drawdoc/internal/log"
	"drawdoc/internal/undo"
	"drawdoc/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores all per-workspace ephemeral/index data under the workspace root.
	IndexDirName  = ".drawdoc"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema for the embedded index.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// IndexPath returns the full path to the workspace's embedded index database file.
func IndexPath(root string) string {
	return filepath.Join(root, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the per-workspace SQLite index exists at .drawdoc/index.sqlite,
// opens the database, enables WAL mode, and ensures the meta/version tables exist.
// The returned *sql.DB is ready for use. Callers may close it when no longer needed.
func InitOrOpenIndex(root string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", root),
	)
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, IndexDirName), 0o755); err != nil {
		l.Error("create index dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create %s dir: %w", IndexDirName, err)
	}

	path := IndexPath(root)
	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Set reasonable connection pool limits for embedded usage.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Insert new row with current schemaVersion for a fresh DB
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Update app and timestamp only; keep existing schema for migrations
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// migrationIndexes speed up bounding box and journal lookups (schema 2).
var migrationIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_nodes_bbox ON nodes(page_id, min_x, max_x);`,
	`CREATE INDEX IF NOT EXISTS idx_journal_ts ON journal(ts);`,
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// Do not downgrade; an index written by a newer build is used as is.
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = migrationIndexes
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// ensureIndexSchema creates core index tables and FTS structures if they do not exist.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// Node bounding boxes, one row per (node, page) attachment; page_id is '' for unattached nodes.
		`CREATE TABLE IF NOT EXISTS nodes (
			node_id TEXT NOT NULL,
			page_id TEXT NOT NULL DEFAULT '',
			kind    TEXT NOT NULL,
			min_x   REAL NOT NULL,
			min_y   REAL NOT NULL,
			max_x   REAL NOT NULL,
			max_y   REAL NOT NULL,
			PRIMARY KEY(node_id, page_id)
		);`,

		// Searchable page text (names and descriptions)
		`CREATE TABLE IF NOT EXISTS documents (
			doc_id  INTEGER PRIMARY KEY,
			type    TEXT    NOT NULL,
			path    TEXT    NOT NULL,
			page_id TEXT,
			text    TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_page ON documents(page_id);`,

		// Contentless FTS5 index fed from documents via triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_documents USING fts5(
			text,
			content='',
			tokenize = 'unicode61'
		);`,

		// Command journal (executed and undone commands, newest last)
		`CREATE TABLE IF NOT EXISTS journal (
			id      INTEGER PRIMARY KEY,
			ts      TEXT NOT NULL,
			op      TEXT NOT NULL,
			command TEXT NOT NULL
		);`,
	}
	// Fresh databases start at schemaVersion, so they get the migrated indexes here.
	ddl = append(ddl, migrationIndexes...)
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	// Triggers for contentless FTS synchronization with documents.text
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
			INSERT INTO fts_documents(rowid, text) VALUES (new.doc_id, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
			INSERT INTO fts_documents(fts_documents, rowid, text) VALUES ('delete', old.doc_id, old.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE OF text ON documents BEGIN
			INSERT INTO fts_documents(fts_documents, rowid, text) VALUES ('delete', old.doc_id, old.text);
			INSERT INTO fts_documents(rowid, text) VALUES (new.doc_id, new.text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// DetectAndRebuildIndex checks for corruption or missing schema and rebuilds the index if needed.
// It returns true when a rebuild was performed.
func DetectAndRebuildIndex(ctx context.Context, root string, doc *document.Document) (bool, error) {
	path := IndexPath(root)
	db, err := InitOrOpenIndex(root)
	if err != nil {
		backupIndexFile(path)
		_ = os.Remove(path)
		if rbErr := RebuildIndex(ctx, root, doc); rbErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rbErr, err)
		}
		return true, nil
	}
	defer db.Close()
	needs := false
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	if !needs {
		for _, probe := range []string{`SELECT 1 FROM nodes LIMIT 1;`, `SELECT 1 FROM documents LIMIT 1;`} {
			if _, err := db.ExecContext(ctx, probe); err != nil {
				needs = true
				break
			}
		}
	}
	if !needs {
		return false, nil
	}
	_ = db.Close()
	backupIndexFile(path)
	_ = os.Remove(path)
	if err := RebuildIndex(ctx, root, doc); err != nil {
		return false, err
	}
	return true, nil
}

// backupIndexFile copies the current index file into a timestamped backup in .drawdoc/backups.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

// BuildIndexIfEmpty populates the index from doc when it has no node or page rows yet.
func BuildIndexIfEmpty(ctx context.Context, root string, doc *document.Document) error {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return err
	}
	defer db.Close()
	var cnt int
	if err := db.QueryRowContext(ctx, "SELECT (SELECT COUNT(*) FROM nodes) + (SELECT COUNT(*) FROM documents);").Scan(&cnt); err != nil {
		return fmt.Errorf("check index rows: %w", err)
	}
	if cnt > 0 {
		return nil // already built
	}
	return rebuildFromDocument(ctx, db, doc)
}

// UpdateIndex replaces the derived index content from doc.
func UpdateIndex(ctx context.Context, root string, doc *document.Document) error {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return err
	}
	defer db.Close()
	return rebuildFromDocument(ctx, db, doc)
}

// RebuildIndex drops and recreates the derived tables and rebuilds content from doc.
// It preserves meta/version and the journal.
func RebuildIndex(ctx context.Context, root string, doc *document.Document) error {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return err
	}
	defer db.Close()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	drops := []string{
		"DROP TRIGGER IF EXISTS documents_ai;",
		"DROP TRIGGER IF EXISTS documents_ad;",
		"DROP TRIGGER IF EXISTS documents_au;",
		"DROP TABLE IF EXISTS documents;",
		"DROP TABLE IF EXISTS fts_documents;",
		"DROP TABLE IF EXISTS nodes;",
	}
	for _, q := range drops {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("drop commit: %w", err)
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		return err
	}
	return rebuildFromDocument(ctx, db, doc)
}

// rebuildFromDocument replaces the nodes and documents tables from doc.
func rebuildFromDocument(ctx context.Context, db *sql.DB, doc *document.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	type nodeRow struct {
		id, pageID, kind string
		r                geom.Rect
	}
	type textRow struct {
		typeStr, path, pageID, text string
	}
	var nodes []nodeRow
	var texts []textRow
	attached := map[string]bool{}
	for _, p := range doc.GetPages() {
		if s := strings.TrimSpace(p.Name); s != "" {
			texts = append(texts, textRow{"page_name", "page:" + p.ID + ":name", p.ID, s})
		}
		if s := strings.TrimSpace(p.Description); s != "" {
			texts = append(texts, textRow{"page_description", "page:" + p.ID + ":description", p.ID, s})
		}
		seen := map[string]bool{}
		for _, id := range p.NodeIDs {
			n, ok := doc.GetNode(id)
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			attached[id] = true
			nodes = append(nodes, nodeRow{id, p.ID, string(n.Kind()), n.Bounds()})
		}
	}
	for _, n := range doc.Nodes() {
		if !attached[n.NodeID()] {
			nodes = append(nodes, nodeRow{n.NodeID(), "", string(n.Kind()), n.Bounds()})
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	for _, q := range []string{"DELETE FROM nodes;", "DELETE FROM documents;"} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("clear index: %w", err)
		}
	}
	insNode, err := tx.PrepareContext(ctx, "INSERT INTO nodes(node_id, page_id, kind, min_x, min_y, max_x, max_y) VALUES(?,?,?,?,?,?,?);")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare node insert: %w", err)
	}
	defer insNode.Close()
	for _, n := range nodes {
		if _, err := insNode.ExecContext(ctx, n.id, n.pageID, n.kind, n.r.X, n.r.Y, n.r.X+n.r.W, n.r.Y+n.r.H); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert node: %w", err)
		}
	}
	insText, err := tx.PrepareContext(ctx, "INSERT INTO documents(type, path, page_id, text) VALUES(?,?,?,?);")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare text insert: %w", err)
	}
	defer insText.Close()
	for _, t := range texts {
		if _, err := insText.ExecContext(ctx, t.typeStr, t.path, t.pageID, t.text); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert document: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// queryRect returns ids of nodes whose bounding box intersects r, limited to
// pageID unless it is empty.
func queryRect(ctx context.Context, db *sql.DB, pageID string, r geom.Rect) ([]string, error) {
	q := `SELECT DISTINCT node_id FROM nodes
		WHERE max_x >= ? AND min_x <= ? AND max_y >= ? AND min_y <= ?`
	args := []any{r.X, r.X + r.W, r.Y, r.Y + r.H}
	if pageID != "" {
		q += " AND page_id = ?"
		args = append(args, pageID)
	}
	q += " ORDER BY CAST(node_id AS INTEGER), node_id"
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query rect: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Index is a long-lived handle on the workspace index.
type Index struct {
	root string
	db   *sql.DB
	log  *slog.Logger
}

// OpenIndex opens (creating if needed) the workspace index.
func OpenIndex(root string) (*Index, error) {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	return &Index{root: root, db: db, log: applog.WithWorkspace(applog.WithComponent("index"), root)}, nil
}

func (ix *Index) Close() error { return ix.db.Close() }

// DB exposes the underlying database for diagnostics.
func (ix *Index) DB() *sql.DB { return ix.db }

// Update replaces the derived content from doc.
func (ix *Index) Update(ctx context.Context, doc *document.Document) error {
	return rebuildFromDocument(ctx, ix.db, doc)
}

// QueryRect returns ids of nodes intersecting r, limited to pageID unless
// it is empty. Renderers use it to cull off-screen nodes.
func (ix *Index) QueryRect(ctx context.Context, pageID string, r geom.Rect) ([]string, error) {
	return queryRect(ctx, ix.db, pageID, r)
}

// Track keeps the index and journal in sync with doc: every executed or
// undone command is journaled and the bounding boxes are refreshed. Errors
// are logged; the document is the source of truth.
func (ix *Index) Track(doc *document.Document) {
	doc.AddListener(&indexListener{ix: ix, doc: doc})
}

type indexListener struct {
	ix  *Index
	doc *document.Document
}

func (l *indexListener) Executed(cmd undo.Command) { l.record(JournalExecute, cmd) }
func (l *indexListener) Undone(cmd undo.Command)   { l.record(JournalUndo, cmd) }

func (l *indexListener) record(op string, cmd undo.Command) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.ix.AppendJournal(ctx, op, cmd.String(), time.Now()); err != nil {
		l.ix.log.Warn("journal append failed", slog.Any("err", err))
	}
	if err := l.ix.Update(ctx, l.doc); err != nil {
		l.ix.log.Warn("index update failed", slog.Any("err", err))
	}
}
