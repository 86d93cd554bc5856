/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package model holds the document's entity store: pages, drawable nodes and
// the id allocator. It has no behavior beyond storage and lookup; every
// mutation of a live document goes through a command (see package command).
package model

import "strconv"

// IDAllocator issues strictly increasing decimal identifiers. It never
// reuses or decrements a value, even when the entity it named is removed.
type IDAllocator struct {
	counter uint64
}

// Next advances the counter and returns its decimal rendering.
func (a *IDAllocator) Next() string {
	a.counter++
	return strconv.FormatUint(a.counter, 10)
}

// Counter returns the last issued value (0 when nothing was issued yet).
func (a *IDAllocator) Counter() uint64 { return a.counter }

// advanceTo moves the counter forward to at least v; it never moves backwards.
func (a *IDAllocator) advanceTo(v uint64) {
	if v > a.counter {
		a.counter = v
	}
}
