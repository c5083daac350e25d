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

package manifest

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestManifestRecordsSuccessAndFailure(t *testing.T) {
	m := New()
	if m.RunID == "" {
		t.Fatal("expected a non-empty run ID")
	}
	m.RecordSuccess("a.pyc", "a.out.pyc", []byte("hello"))
	m.RecordFailure("b.pyc", errors.New("truncated header"))

	entries := m.Entries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Digest == "" {
		t.Fatal("expected a non-empty digest for the successful entry")
	}
	if entries[1].Error != "truncated header" {
		t.Fatalf("got error %q, want %q", entries[1].Error, "truncated header")
	}
}

func TestManifestWriteFile(t *testing.T) {
	m := New()
	m.RecordSuccess("a.pyc", "a.out.pyc", []byte("hello"))
	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := m.WriteFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
