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

package marshal

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/gopyc/retarget/retarget"
)

func roundTrip(t *testing.T, v Value) Value {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, v, nil, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return got
}

func messiahOpcode(t *testing.T, name string) byte {
	t.Helper()
	op, ok := retarget.MessiahOp(name)
	if !ok {
		t.Fatalf("no messiah opcode %s", name)
	}
	return byte(op)
}

func canonicalOpcode(t *testing.T, name string) byte {
	t.Helper()
	op, ok := retarget.CanonicalOp(name)
	if !ok {
		t.Fatalf("no canonical opcode %s", name)
	}
	return byte(op)
}

func TestRoundTripSingletons(t *testing.T) {
	cases := []Value{None{}, True{}, False{}, StopIter{}, Ellipsis{}}
	for _, v := range cases {
		got := roundTrip(t, v)
		if got != v {
			t.Fatalf("got %#v, want %#v", got, v)
		}
	}
}

func TestRoundTripInt32(t *testing.T) {
	for _, n := range []int32{0, 1, -1, 1 << 30, -(1 << 30)} {
		got := roundTrip(t, Int32(n))
		gi, ok := got.(Int32)
		if !ok || gi != Int32(n) {
			t.Fatalf("got %#v, want Int32(%d)", got, n)
		}
	}
}

func TestRoundTripInt64(t *testing.T) {
	n := int64(1) << 40
	got := roundTrip(t, Int64(n))
	gi, ok := got.(Int64)
	if !ok || int64(gi) != n {
		t.Fatalf("got %#v, want Int64(%d)", got, n)
	}
}

func TestRoundTripLong(t *testing.T) {
	cases := []*big.Int{
		big.NewInt(0),
		big.NewInt(12345),
		big.NewInt(-12345),
	}
	big2 := new(big.Int).Lsh(big.NewInt(1), 200)
	cases = append(cases, big2, new(big.Int).Neg(big2))
	for _, n := range cases {
		got := roundTrip(t, Long{Int: n})
		gl, ok := got.(Long)
		if !ok || gl.Int.Cmp(n) != 0 {
			t.Fatalf("got %#v, want Long{%v}", got, n)
		}
	}
}

func TestRoundTripBinaryFloat(t *testing.T) {
	got := roundTrip(t, BinaryFloat(3.25))
	gf, ok := got.(BinaryFloat)
	if !ok || gf != BinaryFloat(3.25) {
		t.Fatalf("got %#v, want BinaryFloat(3.25)", got)
	}
}

func TestRoundTripUnicode(t *testing.T) {
	got := roundTrip(t, Unicode{Text: "hello ☃", Valid: true})
	gu, ok := got.(Unicode)
	if !ok || !gu.Valid || gu.Text != "hello ☃" {
		t.Fatalf("got %#v", got)
	}
}

func TestRoundTripTuple(t *testing.T) {
	v := Tuple{Int32(1), Int32(2), Bytes("x")}
	got := roundTrip(t, v)
	gt, ok := got.(Tuple)
	if !ok || len(gt) != 3 {
		t.Fatalf("got %#v", got)
	}
}

func TestRoundTripDict(t *testing.T) {
	d := Dict{
		Keys:   []Value{Bytes("a"), Bytes("b")},
		Values: []Value{Int32(1), Int32(2)},
	}
	got := roundTrip(t, d)
	gd, ok := got.(Dict)
	if !ok || len(gd.Keys) != 2 || len(gd.Values) != 2 {
		t.Fatalf("got %#v", got)
	}
}

func TestRoundTripInterningCollapsesToStringRef(t *testing.T) {
	// Encode the same Interned payload twice; the writer must
	// collapse the second occurrence to a StringRef the same way
	// it would read back from a real pyc file's constant pool.
	var buf bytes.Buffer
	wr := NewWriter(&buf, nil)
	payload := Interned("co_name")
	wr.Encode(Tuple{payload, payload})
	if err := wr.Err(); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	tup, ok := got.(Tuple)
	if !ok || len(tup) != 2 {
		t.Fatalf("got %#v", got)
	}
	if _, ok := tup[0].(Interned); !ok {
		t.Fatalf("first occurrence should be Interned, got %#v", tup[0])
	}
	if _, ok := tup[1].(StringRef); !ok {
		t.Fatalf("second occurrence should be StringRef, got %#v", tup[1])
	}
}

func TestDecodeTruncated(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{tagInt, 0, 0}))
	if err == nil {
		t.Fatal("expected truncation error")
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{'Z'}))
	if err == nil {
		t.Fatal("expected tag error")
	}
	if _, ok := err.(*TagError); !ok {
		t.Fatalf("expected *TagError, got %T", err)
	}
}

func TestDecodeStringRefOutOfRange(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(tagStringRef)
	buf.Write([]byte{5, 0, 0, 0})
	_, err := Decode(&buf)
	if err == nil {
		t.Fatal("expected StringRefError")
	}
	if _, ok := err.(*StringRefError); !ok {
		t.Fatalf("expected *StringRefError, got %T", err)
	}
}

func TestRoundTripCode(t *testing.T) {
	// LOAD_CONST 0; RETURN_VALUE, expressed in the Messiah dialect;
	// the writer must retarget it to canonical CPython 2.7 bytecode
	// as part of encoding the Code object (6).
	messiahCode := []byte{messiahOpcode(t, "LOAD_CONST"), 0x00, 0x00, messiahOpcode(t, "RETURN_VALUE")}
	wantCode := []byte{canonicalOpcode(t, "LOAD_CONST"), 0x00, 0x00, canonicalOpcode(t, "RETURN_VALUE")}

	c := &Code{
		ArgCount:    1,
		NLocals:     2,
		StackSize:   3,
		Flags:       0x43,
		CodeBytes:   Bytes(messiahCode),
		Consts:      Tuple{None{}},
		Names:       Tuple{},
		VarNames:    Tuple{Interned("x")},
		FreeVars:    Tuple{},
		CellVars:    Tuple{},
		Filename:    Interned("t.py"),
		Name:        Interned("f"),
		FirstLine:   1,
		LnotabBytes: Bytes{},
	}
	got := roundTrip(t, c)
	gc, ok := got.(*Code)
	if !ok {
		t.Fatalf("got %#v, want *Code", got)
	}
	if gc.ArgCount != 1 || gc.NLocals != 2 || gc.StackSize != 3 || gc.Flags != 0x43 {
		t.Fatalf("header mismatch: %#v", gc)
	}
	cb, ok := gc.CodeBytes.(Bytes)
	if !ok || !bytes.Equal(cb, wantCode) {
		t.Fatalf("code bytes mismatch: got %#v, want %#v", gc.CodeBytes, wantCode)
	}
}

func le32(n int32) []byte {
	u := uint32(n)
	return []byte{byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24)}
}

func tagged(tag byte, payload []byte) []byte {
	out := []byte{tag}
	out = append(out, le32(int32(len(payload)))...)
	out = append(out, payload...)
	return out
}

func refTag(idx int32) []byte {
	return append([]byte{tagStringRef}, le32(idx)...)
}

func emptyTuple() []byte {
	return append([]byte{tagTuple}, le32(0)...)
}

// codeStreamWithStringRefFields builds the raw wire bytes (leading
// tagCode included) of a top-level code object that holds a code object whose
// code and lnotab fields are StringRefs to interp index 0, nested
// inside an outer code object's Consts tuple alongside the Interned
// entry that index 0 refers to. This is the shape loadCode/writeCode
// see when a dialect's marshal writer chose to intern a code or
// lnotab string that happens to be shared with another constant (3).
func codeStreamWithStringRefFields(t *testing.T) []byte {
	t.Helper()
	var nested bytes.Buffer
	nested.WriteByte(tagCode)
	nested.Write(le32(0))      // ArgCount
	nested.Write(le32(0))      // NLocals
	nested.Write(le32(1))      // StackSize
	nested.Write(le32(0x40))   // Flags
	nested.Write(refTag(0))    // CodeBytes -> interp[0]
	nested.Write(emptyTuple()) // Consts
	nested.Write(emptyTuple()) // Names
	nested.Write(emptyTuple()) // VarNames
	nested.Write(emptyTuple()) // FreeVars
	nested.Write(emptyTuple()) // CellVars
	nested.Write(tagged(tagInterned, []byte("nested.py"))) // Filename
	nested.Write(tagged(tagInterned, []byte("<module>")))  // Name
	nested.Write(le32(1))                                  // FirstLine
	nested.Write(refTag(0))                                // LnotabBytes -> interp[0]

	var consts bytes.Buffer
	consts.WriteByte(tagTuple)
	consts.Write(le32(2))
	consts.Write(tagged(tagInterned, nil)) // interp[0]: empty payload
	consts.Write(nested.Bytes())

	var top bytes.Buffer
	top.WriteByte(tagCode)
	top.Write(le32(0))                 // ArgCount
	top.Write(le32(0))                 // NLocals
	top.Write(le32(1))                 // StackSize
	top.Write(le32(0x40))              // Flags
	top.Write(tagged(tagString, nil))  // CodeBytes: empty, not a ref
	top.Write(consts.Bytes())          // Consts
	top.Write(emptyTuple())            // Names
	top.Write(emptyTuple())            // VarNames
	top.Write(emptyTuple())            // FreeVars
	top.Write(emptyTuple())            // CellVars
	top.Write(tagged(tagInterned, []byte("mod.py")))   // Filename
	top.Write(tagged(tagInterned, []byte("<module>"))) // Name
	top.Write(le32(1))                 // FirstLine
	top.Write(tagged(tagString, nil))  // LnotabBytes: empty, not a ref
	return top.Bytes()
}

func TestWriteCodeResolvesStringRefViaSourceInterning(t *testing.T) {
	rd := NewReader(bytes.NewReader(codeStreamWithStringRefFields(t)))
	v, err := rd.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	top, ok := v.(*Code)
	if !ok {
		t.Fatalf("got %T, want *Code", v)
	}
	consts, ok := top.Consts.(Tuple)
	if !ok || len(consts) != 2 {
		t.Fatalf("got Consts %#v, want a 2-element Tuple", top.Consts)
	}
	nested, ok := consts[1].(*Code)
	if !ok {
		t.Fatalf("got %T, want nested *Code", consts[1])
	}
	if _, ok := nested.CodeBytes.(StringRef); !ok {
		t.Fatalf("nested.CodeBytes = %#v, want a StringRef", nested.CodeBytes)
	}

	var buf bytes.Buffer
	wr := NewWriter(&buf, nil)
	wr.SetSourceInterning(rd.InternTable())
	wr.Encode(top)
	if err := wr.Err(); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestWriteCodeUnresolvedStringRefFails(t *testing.T) {
	rd := NewReader(bytes.NewReader(codeStreamWithStringRefFields(t)))
	v, err := rd.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	var buf bytes.Buffer
	wr := NewWriter(&buf, nil) // no SetSourceInterning call
	wr.Encode(v)
	if wr.Err() == nil {
		t.Fatal("expected error encoding an unresolved StringRef code field, got nil")
	}
}
