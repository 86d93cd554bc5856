/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps the linear history of executed document commands.
package undo

import (
	"strings"
	"sync"

	"drawdoc/internal/model"
)

// Command is a reversible mutation of a store. Execute and Undo must be
// pure functions of the store: no I/O, no failure.
type Command interface {
	Execute(s *model.Store)
	Undo(s *model.Store)
	String() string
}

// Config controls the depth cap.
type Config struct {
	// MaxDepth limits the number of remembered commands (0 means unlimited).
	// When exceeded the oldest commands are forgotten.
	MaxDepth int
}

// Stack executes commands and remembers them, most recent last. There is
// no redo: an undone command is discarded.
type Stack struct {
	cfg     Config
	mu      sync.Mutex
	entries []Command
}

func NewStack(cfg Config) *Stack {
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = 0
	}
	return &Stack{cfg: cfg}
}

// Execute runs cmd against s and pushes it.
func (st *Stack) Execute(s *model.Store, cmd Command) {
	st.mu.Lock()
	defer st.mu.Unlock()
	cmd.Execute(s)
	st.entries = append(st.entries, cmd)
	st.enforceCapsLocked()
}

// Undo pops the most recent command and reverses it. It returns the command
// and true, or nil and false when there is nothing to undo.
func (st *Stack) Undo(s *model.Store) (Command, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := len(st.entries)
	if n == 0 {
		return nil, false
	}
	cmd := st.entries[n-1]
	st.entries[n-1] = nil
	st.entries = st.entries[:n-1]
	cmd.Undo(s)
	return cmd, true
}

// Len returns the number of remembered commands.
func (st *Stack) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.entries)
}

// Entries returns the remembered commands, oldest first.
func (st *Stack) Entries() []Command {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]Command(nil), st.entries...)
}

// List renders the stack for diagnostics, one command per line, oldest first.
func (st *Stack) List() string {
	var b strings.Builder
	for _, c := range st.Entries() {
		b.WriteString(c.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Clear forgets every command without undoing it.
func (st *Stack) Clear() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.entries = nil
}

func (st *Stack) enforceCapsLocked() {
	if st.cfg.MaxDepth > 0 && len(st.entries) > st.cfg.MaxDepth {
		// drop the oldest extras
		toDrop := len(st.entries) - st.cfg.MaxDepth
		st.entries = append([]Command{}, st.entries[toDrop:]...)
	}
}
