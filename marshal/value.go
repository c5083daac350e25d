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

import "math/big"

// Value is any decoded marshal object. The concrete types below
// are the only implementations; callers type-switch on them the
// same way the reader and writer dispatch tables do.
type Value interface {
	isValue()
}

// Singletons (4.1). Null is the dictionary terminator; the reader
// only returns it as a value if a '0' tag appears outside a
// dictionary's key position. It is a Value so the writer can
// recurse uniformly.
type (
	None     struct{}
	True     struct{}
	False    struct{}
	StopIter struct{}
	Ellipsis struct{}
	Null     struct{}
)

func (None) isValue()     {}
func (True) isValue()     {}
func (False) isValue()    {}
func (StopIter) isValue() {}
func (Ellipsis) isValue() {}
func (Null) isValue()     {}

// Int32 is a 32-bit two's-complement little-endian integer.
type Int32 int32

// Int64 is a 64-bit two's-complement little-endian integer.
type Int64 int64

// Long is an arbitrary-precision integer encoded as signed
// base-2^15 digit words.
type Long struct {
	Int *big.Int
}

// Float is a decimal-text-encoded float (one-byte length prefix
// followed by the ASCII literal, as produced by Python's repr()).
type Float float64

// BinaryFloat is an 8-byte IEEE-754 little-endian float.
type BinaryFloat float64

// Complex is a pair of decimal-text-encoded floats.
type Complex struct {
	Real, Imag float64
}

// BinaryComplex is a pair of 8-byte IEEE-754 little-endian floats.
type BinaryComplex struct {
	Real, Imag float64
}

// Bytes is a raw byte string with no interning side effect.
type Bytes []byte

// Interned is a byte string that appends itself to the stream's
// interning table, in encounter order, before any nested value
// that might reference it is decoded.
type Interned []byte

// StringRef is a back-reference into the interning table by index.
type StringRef int32

// Unicode is a length-prefixed text payload. If the payload failed
// to decode as UTF-8 on read, Valid is false and Raw holds the
// original bytes so a round trip re-emits the same opaque bytes
// under the same Unicode tag.
type Unicode struct {
	Text  string
	Raw   []byte
	Valid bool
}

func (Int32) isValue()         {}
func (Int64) isValue()         {}
func (Long) isValue()          {}
func (Float) isValue()         {}
func (BinaryFloat) isValue()   {}
func (Complex) isValue()       {}
func (BinaryComplex) isValue() {}
func (Bytes) isValue()         {}
func (Interned) isValue()      {}
func (StringRef) isValue()     {}
func (Unicode) isValue()       {}

// Tuple, List, Set and FrozenSet are ordered sequences of values;
// the wire format distinguishes them only by tag, not by content.
type (
	Tuple     []Value
	List      []Value
	Set       []Value
	FrozenSet []Value
)

func (Tuple) isValue()     {}
func (List) isValue()      {}
func (Set) isValue()       {}
func (FrozenSet) isValue() {}

// Dict is an ordered sequence of key/value pairs. Order is
// preserved because the wire format has no other notion of
// identity for dictionary entries.
type Dict struct {
	Keys   []Value
	Values []Value
}

func (Dict) isValue() {}

// Code is a Python 2.7-shaped code object. Fields appear here in
// their wire (serialization) order; the writer must unpack and
// re-emit them in that same order (4.D.6).
type Code struct {
	ArgCount    int32
	NLocals     int32
	StackSize   int32
	Flags       int32
	CodeBytes   Value // bytes-like: Bytes, Interned, or StringRef
	Consts      Value
	Names       Value
	VarNames    Value
	FreeVars    Value
	CellVars    Value
	Filename    Value
	Name        Value
	FirstLine   int32
	LnotabBytes Value // bytes-like: Bytes, Interned, or StringRef
}

func (*Code) isValue() {}
