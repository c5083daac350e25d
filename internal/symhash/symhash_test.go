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

package symhash

import "testing"

func TestTableAddLookup(t *testing.T) {
	tb := NewTable()
	i0 := tb.Add([]byte("foo"))
	i1 := tb.Add([]byte("bar"))
	i2 := tb.Add([]byte("foo"))

	if i0 != 0 || i1 != 1 || i2 != 2 {
		t.Fatalf("got indices %d, %d, %d, want 0, 1, 2", i0, i1, i2)
	}
	if tb.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tb.Len())
	}

	idx, ok := tb.Lookup([]byte("foo"))
	if !ok || idx != 0 {
		t.Fatalf("Lookup(foo) = (%d, %v), want (0, true)", idx, ok)
	}
	idx, ok = tb.Lookup([]byte("bar"))
	if !ok || idx != 1 {
		t.Fatalf("Lookup(bar) = (%d, %v), want (1, true)", idx, ok)
	}
}

func TestTableLookupMissing(t *testing.T) {
	tb := NewTable()
	tb.Add([]byte("foo"))
	if _, ok := tb.Lookup([]byte("baz")); ok {
		t.Fatalf("Lookup(baz) reported found, want not found")
	}
}

func TestTableLookupCollisionSafe(t *testing.T) {
	tb := NewTable()
	tb.Add([]byte("alpha"))
	tb.Add([]byte("beta"))
	tb.Add([]byte("gamma"))
	for _, s := range []string{"alpha", "beta", "gamma"} {
		idx, ok := tb.Lookup([]byte(s))
		if !ok {
			t.Fatalf("Lookup(%s) not found", s)
		}
		if string(tb.entries[idx]) != s {
			t.Fatalf("Lookup(%s) resolved to entry %q", s, tb.entries[idx])
		}
	}
}
