/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SearchQuery describes a page search request.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT).
// Types can restrict to page_name or page_description.
// Limit/Offset implement pagination; reasonable defaults applied if zero.
type SearchQuery struct {
	Text   string
	Types  []string
	PageID string
	Limit  int
	Offset int
}

// SearchResult represents a single match row.
// Snippet is an optional highlighted excerpt using [ ] markers when FTS text is used.
type SearchResult struct {
	DocID   int64
	Type    string
	Path    string
	PageID  string
	Snippet string
}

// Search performs full-text search over page names and descriptions.
// When q.Text is empty, it falls back to a non-FTS scan with filters applied.
func Search(ctx context.Context, root string, q SearchQuery) ([]SearchResult, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is required")
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

// Search runs q against the open index.
func (ix *Index) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	return searchDB(ctx, ix.db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT d.doc_id, d.type, d.path, COALESCE(d.page_id,''), snippet(fts_documents, 0, '[', ']', '...', 10)\n")
		sb.WriteString("FROM fts_documents JOIN documents d ON fts_documents.rowid = d.doc_id\n")
		sb.WriteString("WHERE fts_documents MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT d.doc_id, d.type, d.path, COALESCE(d.page_id,''), ''\n")
		sb.WriteString("FROM documents d\nWHERE 1=1\n")
	}
	if len(q.Types) > 0 {
		sb.WriteString(" AND d.type IN (" + placeholders(len(q.Types)) + ")\n")
		for _, t := range q.Types {
			args = append(args, t)
		}
	}
	if s := strings.TrimSpace(q.PageID); s != "" {
		sb.WriteString(" AND d.page_id = ?\n")
		args = append(args, s)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY CAST(d.page_id AS INTEGER), d.doc_id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var sn sql.NullString
		if err := rows.Scan(&r.DocID, &r.Type, &r.Path, &r.PageID, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if sn.Valid {
			r.Snippet = sn.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := strings.Builder{}
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
	}
	return b.String()
}
