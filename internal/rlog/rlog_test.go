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

package rlog

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func capture(t *testing.T) (*bytes.Buffer, func()) {
	t.Helper()
	var buf bytes.Buffer
	prev := std
	SetOutput(log.New(&buf, "", 0))
	return &buf, func() { SetOutput(prev) }
}

func TestWarnfFormatsFields(t *testing.T) {
	buf, restore := capture(t)
	defer restore()

	Warnf("a.pyc", "retarget.jump", "unresolved target %d", 42)

	got := buf.String()
	for _, want := range []string{"WARN", "file=a.pyc", "stage=retarget.jump", "unresolved target 42"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Warnf output %q missing %q", got, want)
		}
	}
}

func TestErrorfFormatsFields(t *testing.T) {
	buf, restore := capture(t)
	defer restore()

	Errorf("b.pyc", "marshal.decode", "truncated code object")

	got := buf.String()
	for _, want := range []string{"ERROR", "file=b.pyc", "stage=marshal.decode", "truncated code object"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Errorf output %q missing %q", got, want)
		}
	}
}
