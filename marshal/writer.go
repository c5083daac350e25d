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
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"

	"github.com/gopyc/retarget/internal/symhash"
	"github.com/gopyc/retarget/retarget"
)

// Writer encodes Values to a marshal stream. A Writer must not be
// shared across concurrent encodes; each top-level Encode call owns
// its own interning table (5).
//
// Bytes payloads are always written under tagString. Interned
// payloads are tracked in an interning table keyed by value: the
// first occurrence is written as tagInterned and a later identical
// Interned payload as a tagStringRef to it. A StringRef that
// resolves through the source table (SetSourceInterning) is looked
// up by payload in that table and written as a tagStringRef to the
// writer's own index, or as tagInterned if the writer has not
// interned that payload yet; an unresolvable StringRef keeps its
// index as is.
//
// Whenever the writer encounters a Code object, it retargets its
// instruction stream and line table through rt before emitting them
// (6 Code emission contract); nested code objects (closures, nested
// defs) retarget independently as the writer recurses into Consts.
type Writer struct {
	w      io.Writer
	interp *symhash.Table
	rt     *retarget.Retargeter
	err    error

	// srcInterning is the interning table of the Reader that
	// produced the Values this Writer is re-encoding, if any. It
	// resolves a StringRef (a code or lnotab field, or any other
	// StringRef value) back to its payload; see SetSourceInterning.
	srcInterning [][]byte
}

// NewWriter wraps w for a single Encode call, retargeting every
// Code object's bytecode with rt. A nil rt uses the built-in
// Messiah opcode tables.
func NewWriter(w io.Writer, rt *retarget.Retargeter) *Writer {
	if rt == nil {
		rt = retarget.NewRetargeter(nil, nil)
	}
	return &Writer{w: w, interp: symhash.NewTable(), rt: rt}
}

// SetSourceInterning supplies the interning table of the Reader that
// decoded the Values this Writer will encode (Reader.InternTable).
// Without it, a code object whose code or lnotab field arrives as a
// StringRef (3) cannot be resolved and writeCode fails outright.
func (wr *Writer) SetSourceInterning(tbl [][]byte) {
	wr.srcInterning = tbl
}

// Encode writes a single top-level Value to w, retargeting any Code
// object's bytecode using opmap/exp (nil for either uses the
// built-in Messiah tables).
func Encode(w io.Writer, v Value, opmap retarget.OpcodeMap, exp retarget.ExpansionTable) error {
	wr := NewWriter(w, retarget.NewRetargeter(opmap, exp))
	wr.Encode(v)
	return wr.err
}

// Encode writes v. Errors are sticky: once Encode has failed, every
// subsequent call is a no-op until the Writer is discarded.
func (wr *Writer) Encode(v Value) {
	if wr.err != nil {
		return
	}
	wr.dispatch(v)
}

// Err returns the first error encountered, if any.
func (wr *Writer) Err() error {
	return wr.err
}

func (wr *Writer) fail(err error) {
	if wr.err == nil {
		wr.err = err
	}
}

func (wr *Writer) write(b []byte) {
	if wr.err != nil {
		return
	}
	if _, err := wr.w.Write(b); err != nil {
		wr.fail(err)
	}
}

func (wr *Writer) writeByte(b byte) {
	wr.write([]byte{b})
}

func (wr *Writer) writeInt32(v int32) {
	u := uint32(v)
	wr.write([]byte{byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24)})
}

func (wr *Writer) writeInt64(v int64) {
	u := uint64(v)
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
	wr.write(b)
}

func (wr *Writer) writeShort(v int16) {
	u := uint16(v)
	wr.write([]byte{byte(u), byte(u >> 8)})
}

func (wr *Writer) writeFloat64(v float64) {
	u := math.Float64bits(v)
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
	wr.write(b)
}

func (wr *Writer) writeBytesPayload(b []byte) {
	wr.writeInt32(int32(len(b)))
	wr.write(b)
}

// internOrWrite emits payload as tagStringRef if an identical byte
// string was previously interned in this stream, otherwise emits it
// under tag (tagString or tagInterned) and, for tagInterned, records
// it for future back-references.
func (wr *Writer) internOrWrite(tag byte, payload []byte) {
	if idx, ok := wr.interp.Lookup(payload); ok {
		wr.writeByte(tagStringRef)
		wr.writeInt32(int32(idx))
		return
	}
	wr.writeByte(tag)
	wr.writeBytesPayload(payload)
	if tag == tagInterned {
		wr.interp.Add(payload)
	}
}

// dispatch is the writer's single exhaustive match on the tagged
// union (9), mirroring Reader.dispatch.
func (wr *Writer) dispatch(v Value) {
	switch x := v.(type) {
	case Null:
		wr.writeByte(tagNull)
	case None:
		wr.writeByte(tagNone)
	case True:
		wr.writeByte(tagTrue)
	case False:
		wr.writeByte(tagFalse)
	case StopIter:
		wr.writeByte(tagStopIter)
	case Ellipsis:
		wr.writeByte(tagEllipsis)
	case Int32:
		wr.writeByte(tagInt)
		wr.writeInt32(int32(x))
	case Int64:
		wr.writeByte(tagInt64)
		wr.writeInt64(int64(x))
	case Long:
		wr.writeByte(tagLong)
		wr.writeLong(x)
	case Float:
		wr.writeByte(tagFloat)
		wr.writeFloatText(float64(x))
	case BinaryFloat:
		wr.writeByte(tagBinaryFloat)
		wr.writeFloat64(float64(x))
	case Complex:
		wr.writeByte(tagComplex)
		wr.writeFloatText(x.Real)
		wr.writeFloatText(x.Imag)
	case BinaryComplex:
		wr.writeByte(tagBinaryComplex)
		wr.writeFloat64(x.Real)
		wr.writeFloat64(x.Imag)
	case Bytes:
		wr.writeByte(tagString)
		wr.writeBytesPayload([]byte(x))
	case Interned:
		wr.internOrWrite(tagInterned, []byte(x))
	case StringRef:
		payload, ok := wr.payloadBytes(x)
		if !ok {
			wr.writeByte(tagStringRef)
			wr.writeInt32(int32(x))
			return
		}
		wr.internOrWrite(tagInterned, payload)
	case Unicode:
		wr.writeByte(tagUnicode)
		if x.Valid {
			wr.writeBytesPayload([]byte(x.Text))
		} else {
			wr.writeBytesPayload(x.Raw)
		}
	case Tuple:
		wr.writeByte(tagTuple)
		wr.writeSeq([]Value(x))
	case List:
		wr.writeByte(tagList)
		wr.writeSeq([]Value(x))
	case Set:
		wr.writeByte(tagSet)
		wr.writeSeq([]Value(x))
	case FrozenSet:
		wr.writeByte(tagFrozenSet)
		wr.writeSeq([]Value(x))
	case Dict:
		wr.writeByte(tagDict)
		wr.writeDict(x)
	case *Code:
		wr.writeByte(tagCode)
		wr.writeCode(x)
	default:
		wr.fail(&DispatchError{Value: v})
	}
}

func (wr *Writer) writeLong(l Long) {
	if l.Int.Sign() == 0 {
		wr.writeInt32(0)
		return
	}
	n := new(big.Int).Abs(l.Int)
	mask := big.NewInt(0x7fff)
	var digits []int16
	for n.Sign() != 0 {
		d := new(big.Int).And(n, mask)
		digits = append(digits, int16(d.Int64()))
		n.Rsh(n, 15)
	}
	count := int32(len(digits))
	if l.Int.Sign() < 0 {
		count = -count
	}
	wr.writeInt32(count)
	for _, d := range digits {
		wr.writeShort(d)
	}
}

func (wr *Writer) writeFloatText(f float64) {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if len(s) > 255 {
		wr.fail(fmt.Errorf("marshal: float repr %q exceeds 255 bytes", s))
		return
	}
	wr.writeByte(byte(len(s)))
	wr.write([]byte(s))
}

func (wr *Writer) writeSeq(vs []Value) {
	wr.writeInt32(int32(len(vs)))
	for _, v := range vs {
		wr.dispatch(v)
	}
}

func (wr *Writer) writeDict(d Dict) {
	for i := range d.Keys {
		wr.dispatch(d.Keys[i])
		wr.dispatch(d.Values[i])
	}
	wr.writeByte(tagNull)
}

// payloadBytes extracts the raw bytes behind a bytes-like Value
// (Bytes, Interned, or StringRef) so a Code object's code and
// lnotab fields can be retargeted regardless of which shape the
// source decoder gave them (3): a StringRef resolves through
// srcInterning, the table of the Reader that originally decoded
// this value, if one was supplied via SetSourceInterning.
func (wr *Writer) payloadBytes(v Value) ([]byte, bool) {
	switch x := v.(type) {
	case Bytes:
		return []byte(x), true
	case Interned:
		return []byte(x), true
	case StringRef:
		if int(x) < 0 || int(x) >= len(wr.srcInterning) {
			return nil, false
		}
		return wr.srcInterning[x], true
	}
	return nil, false
}

// writeCode emits a Code object's fields strictly in wire order
// (4.D.6): argcount, nlocals, stacksize, flags, code, consts,
// names, varnames, freevars, cellvars, filename, name,
// firstlineno, lnotab. Per the Code emission contract (6), the
// code bytes and lnotab are retargeted together before being
// re-emitted.
func (wr *Writer) writeCode(c *Code) {
	wr.writeInt32(c.ArgCount)
	wr.writeInt32(c.NLocals)
	wr.writeInt32(c.StackSize)
	wr.writeInt32(c.Flags)

	codeBytes, ok := wr.payloadBytes(c.CodeBytes)
	if !ok {
		wr.fail(fmt.Errorf("marshal: code object's code field is not a resolvable byte string (got %T)", c.CodeBytes))
		return
	}
	lnotabBytes, ok := wr.payloadBytes(c.LnotabBytes)
	if !ok {
		wr.fail(fmt.Errorf("marshal: code object's lnotab field is not a resolvable byte string (got %T)", c.LnotabBytes))
		return
	}
	newCode, newLnotab, err := wr.rt.RetargetCode(codeBytes, lnotabBytes, c.FirstLine)
	if err != nil {
		wr.fail(err)
		return
	}

	wr.dispatch(Bytes(newCode))
	wr.dispatch(c.Consts)
	wr.dispatch(c.Names)
	wr.dispatch(c.VarNames)
	wr.dispatch(c.FreeVars)
	wr.dispatch(c.CellVars)
	wr.dispatch(c.Filename)
	wr.dispatch(c.Name)
	wr.writeInt32(c.FirstLine)
	wr.dispatch(Bytes(newLnotab))
}
