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
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	applog "drawdoc/internal/log"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PGRepo is the PostgreSQL Repo, opened through the pgx database/sql driver.
type PGRepo struct {
	db  *sql.DB
	log *slog.Logger
}

// OpenPG connects to dsn, pings it and applies the embedded migrations.
func OpenPG(ctx context.Context, dsn string) (*PGRepo, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database url is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(pctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &PGRepo{db: db, log: applog.WithComponent("backend.pg")}, nil
}

func (r *PGRepo) Close() error { return r.db.Close() }

// Ping reports database readiness for /readyz.
func (r *PGRepo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *PGRepo) List(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, version, updated_at FROM documents ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return scanInfos(rows)
}

func (r *PGRepo) Get(ctx context.Context, id string) (Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Document{}, ErrNotFound
	}
	var d Document
	var body []byte
	err := r.db.QueryRowContext(ctx, `SELECT id, name, version, updated_at, body FROM documents WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Version, &d.UpdatedAt, &body)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Document{}, ErrNotFound
	case err != nil:
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	d.Body = body
	return d, nil
}

func (r *PGRepo) Create(ctx context.Context, name string, body json.RawMessage) (Document, error) {
	return r.Put(ctx, uuid.NewString(), name, body, 0)
}

func (r *PGRepo) Put(ctx context.Context, id, name string, body json.RawMessage, baseVersion int64) (Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Document{}, ErrNotFound
	}
	var d Document
	var row *sql.Row
	if baseVersion == 0 {
		// dialect=PostgreSQL
		row = r.db.QueryRowContext(ctx, `INSERT INTO documents(id, name, body, version)
			VALUES ($1, $2, $3, 1)
			ON CONFLICT (id) DO NOTHING
			RETURNING id, name, version, updated_at`, id, name, string(body))
	} else {
		// dialect=PostgreSQL
		row = r.db.QueryRowContext(ctx, `UPDATE documents
			SET name = $2, body = $3, version = version + 1, updated_at = now()
			WHERE id = $1 AND version = $4
			RETURNING id, name, version, updated_at`, id, name, string(body), baseVersion)
	}
	err := row.Scan(&d.ID, &d.Name, &d.Version, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Nothing written: tell a stale version apart from a missing document.
		if _, gerr := r.Get(ctx, id); errors.Is(gerr, ErrNotFound) {
			return Document{}, ErrNotFound
		}
		return Document{}, ErrConflict
	}
	if err != nil {
		return Document{}, fmt.Errorf("put document: %w", err)
	}
	d.Body = append(json.RawMessage(nil), body...)
	r.log.Debug("document stored", slog.String("id", d.ID), slog.Int64("version", d.Version))
	return d, nil
}

// Search runs a tsvector match over document and page names.
func (r *PGRepo) Search(ctx context.Context, text string, limit int) ([]DocumentInfo, error) {
	if limit <= 0 {
		limit = 100
	}
	if strings.TrimSpace(text) == "" {
		list, err := r.List(ctx)
		if err == nil && len(list) > limit {
			list = list[:limit]
		}
		return list, err
	}
	// dialect=PostgreSQL
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, version, updated_at FROM documents
		WHERE search_vector @@ plainto_tsquery('simple', $1)
		ORDER BY ts_rank(search_vector, plainto_tsquery('simple', $1)) DESC, updated_at DESC
		LIMIT $2`, text, limit)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	return scanInfos(rows)
}

func scanInfos(rows *sql.Rows) ([]DocumentInfo, error) {
	defer func() { _ = rows.Close() }()
	out := []DocumentInfo{}
	for rows.Next() {
		var d DocumentInfo
		if err := rows.Scan(&d.ID, &d.Name, &d.Version, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// applyMigrations applies embedded SQL migrations in filename order and
// records each one in schema_migrations.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	l := applog.WithOperation(applog.WithComponent("backend"), "migrate")
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	// dialect=PostgreSQL
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, fname := range files {
		version, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		sqlText := string(b)
		if strings.TrimSpace(sqlText) == "" {
			continue
		}
		l.Info("applying migration", slog.String("file", fname))
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, sqlText); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES ($1, $2)`, version, fname); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", fname, err)
		}
	}
	return nil
}

func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	parts := strings.SplitN(base, "_", 2)
	if len(parts) < 2 {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}
