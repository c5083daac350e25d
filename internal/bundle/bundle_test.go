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

package bundle

import (
	"bytes"
	"io"
	"testing"
)

func TestBundleRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	members := map[string][]byte{
		"a.pyc": {0x01, 0x02, 0x03},
		"b.pyc": {},
		"c.pyc": bytes.Repeat([]byte{0xab}, 4096),
	}
	order := []string{"a.pyc", "b.pyc", "c.pyc"}
	for _, name := range order {
		if err := w.WriteMember(name, members[name]); err != nil {
			t.Fatalf("WriteMember(%s): %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	for _, want := range order {
		name, data, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if name != want {
			t.Fatalf("got member %q, want %q", name, want)
		}
		if !bytes.Equal(data, members[want]) {
			t.Fatalf("member %s: payload mismatch", name)
		}
	}
	if _, _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF after last member, got %v", err)
	}
}
