/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"time"
)

// Journal operations.
const (
	JournalExecute = "execute"
	JournalUndo    = "undo"
)

// language=SQL
// dialect=SQLite
const insertJournalSQL = `INSERT INTO journal(ts, op, command) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const listJournalSQL = `SELECT id, ts, op, command FROM (
	SELECT id, ts, op, command FROM journal ORDER BY id DESC LIMIT ?
) ORDER BY id ASC`

// language=SQL
// dialect=SQLite
const pruneJournalSQL = `DELETE FROM journal WHERE id NOT IN (
	SELECT id FROM journal ORDER BY id DESC LIMIT ?
)`

// JournalEntry is one recorded command event.
type JournalEntry struct {
	ID      int64
	TS      time.Time
	Op      string
	Command string
}

// AppendJournal records a command event.
func (ix *Index) AppendJournal(ctx context.Context, op, command string, ts time.Time) error {
	if op != JournalExecute && op != JournalUndo {
		return errors.New("unknown journal op: " + op)
	}
	_, err := ix.db.ExecContext(ctx, insertJournalSQL, ts.UTC().Format(time.RFC3339Nano), op, command)
	return err
}

// ListJournal returns up to limit most recent entries, oldest first.
func (ix *Index) ListJournal(ctx context.Context, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := ix.db.QueryContext(ctx, listJournalSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []JournalEntry
	for rows.Next() {
		var e JournalEntry
		var tsStr string
		if err := rows.Scan(&e.ID, &tsStr, &e.Op, &e.Command); err != nil {
			return nil, err
		}
		e.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

// PruneJournal keeps at most keepLast entries and deletes older ones.
func (ix *Index) PruneJournal(ctx context.Context, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := ix.db.ExecContext(ctx, pruneJournalSQL, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
