// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package symhash provides a fast by-value lookup table for the
// marshal writer's interning table (10.6). Linear scanning the
// interning table on every StringRef candidate is quadratic in
// the size of a code object's co_names/co_consts; this package
// keys candidates by a SipHash digest instead.
package symhash

import "github.com/dchest/siphash"

// key0/key1 are fixed: the table only needs to be stable within a
// single writer's lifetime, not across processes or files.
const (
	key0 = 0x6f6c6c6548
	key1 = 0x646c726f57
)

// Table maps byte-string payloads to the first index at which
// they were interned, accelerated with a SipHash-keyed bucket map
// so lookups don't degrade to an O(n) scan.
type Table struct {
	buckets map[uint64][]int
	entries [][]byte
}

// NewTable returns an empty lookup table.
func NewTable() *Table {
	return &Table{buckets: make(map[uint64][]int)}
}

// Add appends payload as a new interning table entry and returns
// its index. Callers are responsible for ensuring payload is not
// already present when that matters (Add always appends).
func (t *Table) Add(payload []byte) int {
	idx := len(t.entries)
	cp := append([]byte(nil), payload...)
	t.entries = append(t.entries, cp)
	h := siphash.Hash(key0, key1, cp)
	t.buckets[h] = append(t.buckets[h], idx)
	return idx
}

// Lookup returns the first index at which payload was added, or
// (0, false) if it has never been added.
func (t *Table) Lookup(payload []byte) (int, bool) {
	h := siphash.Hash(key0, key1, payload)
	for _, idx := range t.buckets[h] {
		if string(t.entries[idx]) == string(payload) {
			return idx, true
		}
	}
	return 0, false
}

// Len returns the number of entries added so far.
func (t *Table) Len() int {
	return len(t.entries)
}
