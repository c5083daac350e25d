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

package pycfile

import (
	"bytes"
	"testing"

	"github.com/gopyc/retarget/marshal"
)

// fakeInput wraps a code object's wire-format bytes with an 8-byte
// header the way a real dialect-specific .pyc file would, so tests
// can exercise the strip/decode/retarget/re-header pipeline without
// a filesystem fixture.
func fakeInput(t *testing.T, c *marshal.Code) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write([]byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x00, 0x00, 0x00})
	if err := marshal.Encode(&buf, c, nil, nil); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func sampleCode(filename string) *marshal.Code {
	return &marshal.Code{
		ArgCount:    0,
		NLocals:     0,
		StackSize:   1,
		Flags:       0x40,
		CodeBytes:   marshal.Bytes{},
		Consts:      marshal.Tuple{marshal.None{}},
		Names:       marshal.Tuple{},
		VarNames:    marshal.Tuple{},
		FreeVars:    marshal.Tuple{},
		CellVars:    marshal.Tuple{},
		Filename:    marshal.Interned(filename),
		Name:        marshal.Interned("<module>"),
		FirstLine:   1,
		LnotabBytes: marshal.Bytes{},
	}
}

func TestRetargetStripsAndReheaders(t *testing.T) {
	in := fakeInput(t, sampleCode("mod.py"))
	filename, out, err := Retarget(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filename != "mod.py" {
		t.Fatalf("got filename %q, want mod.py", filename)
	}
	if !bytes.Equal(out[:HeaderSize], CanonicalHeader[:]) {
		t.Fatalf("got header %x, want %x", out[:HeaderSize], CanonicalHeader)
	}
	if bytes.Equal(out[:HeaderSize], in[:HeaderSize]) {
		t.Fatal("output header should not match the input's opaque header")
	}
}

func TestRetargetConvertsBackslashes(t *testing.T) {
	in := fakeInput(t, sampleCode(`C:\scripts\mod.py`))
	filename, _, err := Retarget(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filename != "C:/scripts/mod.py" {
		t.Fatalf("got filename %q, want C:/scripts/mod.py", filename)
	}
}

func TestRetargetTruncatedHeader(t *testing.T) {
	_, _, err := Retarget([]byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected error for truncated header")
	}
	if _, ok := err.(*TruncatedHeaderError); !ok {
		t.Fatalf("expected *TruncatedHeaderError, got %T", err)
	}
}

func TestRetargetNotCode(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	if err := marshal.Encode(&buf, marshal.Int32(7), nil, nil); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	_, _, err := Retarget(buf.Bytes())
	if err == nil {
		t.Fatal("expected error for non-code top-level value")
	}
	if _, ok := err.(*NotCodeError); !ok {
		t.Fatalf("expected *NotCodeError, got %T", err)
	}
}
