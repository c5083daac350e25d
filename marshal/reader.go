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
	"io"
	"math"
	"math/big"
	"strconv"
	"unicode/utf8"
)

// Reader decodes a single marshal stream. A Reader must not be
// shared across concurrent decodes; each top-level Decode call
// owns its own interning table (5).
type Reader struct {
	r      io.Reader
	pos    int64
	interp [][]byte // interning table, append-only
}

// NewReader wraps r for a single Decode call.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// InternTable returns the interning table built up over the course
// of this Reader's Decode call: index i holds the payload of the
// i-th tagInterned value encountered, the same indexing a
// tagStringRef value in the decoded graph refers to. Callers that
// need to resolve a StringRef encountered in the decoded graph (for
// example, to re-encode a Value elsewhere) use this table rather
// than reaching into Reader internals.
func (rd *Reader) InternTable() [][]byte {
	return rd.interp
}

// Decode reads exactly one top-level Value from r.
func Decode(r io.Reader) (Value, error) {
	return NewReader(r).Decode()
}

// Decode reads one top-level Value, consuming as many bytes as
// that value occupies.
func (rd *Reader) Decode() (Value, error) {
	tag, err := rd.readByte()
	if err != nil {
		return nil, err
	}
	return rd.dispatch(tag)
}

func (rd *Reader) readN(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	got, err := io.ReadFull(rd.r, buf)
	rd.pos += int64(got)
	if err != nil {
		return nil, ErrTruncated
	}
	return buf, nil
}

func (rd *Reader) readByte() (byte, error) {
	b, err := rd.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (rd *Reader) readShort() (int16, error) {
	b, err := rd.readN(2)
	if err != nil {
		return 0, err
	}
	return int16(uint16(b[0]) | uint16(b[1])<<8), nil
}

func (rd *Reader) readInt32() (int32, error) {
	b, err := rd.readN(4)
	if err != nil {
		return 0, err
	}
	return int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24), nil
}

func (rd *Reader) readInt64() (int64, error) {
	b, err := rd.readN(8)
	if err != nil {
		return 0, err
	}
	var x uint64
	for i := 7; i >= 0; i-- {
		x = x<<8 | uint64(b[i])
	}
	return int64(x), nil
}

func (rd *Reader) readFloat64() (float64, error) {
	b, err := rd.readN(8)
	if err != nil {
		return 0, err
	}
	var x uint64
	for i := 7; i >= 0; i-- {
		x = x<<8 | uint64(b[i])
	}
	return math.Float64frombits(x), nil
}

// load reads a fresh type tag and dispatches on it; used
// wherever a nested value is expected.
func (rd *Reader) load() (Value, error) {
	tag, err := rd.readByte()
	if err != nil {
		return nil, err
	}
	return rd.dispatch(tag)
}

// dispatch decodes the body of the value whose tag byte has
// already been consumed. This is the reader's single exhaustive
// match on the tagged union (9).
func (rd *Reader) dispatch(tag byte) (Value, error) {
	switch tag {
	case tagNull:
		return Null{}, nil
	case tagNone:
		return None{}, nil
	case tagTrue:
		return True{}, nil
	case tagFalse:
		return False{}, nil
	case tagStopIter:
		return StopIter{}, nil
	case tagEllipsis:
		return Ellipsis{}, nil
	case tagInt:
		v, err := rd.readInt32()
		return Int32(v), err
	case tagInt64:
		v, err := rd.readInt64()
		return Int64(v), err
	case tagLong:
		return rd.loadLong()
	case tagFloat:
		return rd.loadFloat()
	case tagBinaryFloat:
		v, err := rd.readFloat64()
		return BinaryFloat(v), err
	case tagComplex:
		return rd.loadComplex()
	case tagBinaryComplex:
		re, err := rd.readFloat64()
		if err != nil {
			return nil, err
		}
		im, err := rd.readFloat64()
		if err != nil {
			return nil, err
		}
		return BinaryComplex{Real: re, Imag: im}, nil
	case tagString:
		b, err := rd.loadBytesPayload()
		return Bytes(b), err
	case tagInterned:
		b, err := rd.loadBytesPayload()
		if err != nil {
			return nil, err
		}
		rd.interp = append(rd.interp, b)
		return Interned(b), nil
	case tagStringRef:
		idx, err := rd.readInt32()
		if err != nil {
			return nil, err
		}
		if idx < 0 || int(idx) >= len(rd.interp) {
			return nil, &StringRefError{Index: int64(idx), Table: len(rd.interp)}
		}
		return StringRef(idx), nil
	case tagUnicode:
		return rd.loadUnicode()
	case tagTuple:
		vs, err := rd.loadSeq()
		return Tuple(vs), err
	case tagList:
		vs, err := rd.loadSeq()
		return List(vs), err
	case tagSet:
		vs, err := rd.loadSeq()
		return Set(vs), err
	case tagFrozenSet:
		vs, err := rd.loadSeq()
		return FrozenSet(vs), err
	case tagDict:
		return rd.loadDict()
	case tagCode:
		return rd.loadCode()
	default:
		return nil, &TagError{Tag: tag, Pos: rd.pos - 1}
	}
}

func (rd *Reader) loadBytesPayload() ([]byte, error) {
	n, err := rd.readInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, ErrTruncated
	}
	return rd.readN(int(n))
}

func (rd *Reader) loadLong() (Value, error) {
	count, err := rd.readInt32()
	if err != nil {
		return nil, err
	}
	sign := 1
	digits := count
	if digits < 0 {
		sign = -1
		digits = -digits
	}
	n := new(big.Int)
	shift := new(big.Int)
	for i := int32(0); i < digits; i++ {
		d, err := rd.readShort()
		if err != nil {
			return nil, err
		}
		shift.SetInt64(int64(uint16(d)))
		shift.Lsh(shift, uint(i)*15)
		n.Or(n, shift)
	}
	if sign < 0 {
		n.Neg(n)
	}
	return Long{Int: n}, nil
}

func (rd *Reader) loadFloat() (Value, error) {
	n, err := rd.readByte()
	if err != nil {
		return nil, err
	}
	b, err := rd.readN(int(n))
	if err != nil {
		return nil, err
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return nil, err
	}
	return Float(f), nil
}

func (rd *Reader) loadComplex() (Value, error) {
	re, err := rd.loadFloat()
	if err != nil {
		return nil, err
	}
	im, err := rd.loadFloat()
	if err != nil {
		return nil, err
	}
	return Complex{Real: float64(re.(Float)), Imag: float64(im.(Float))}, nil
}

func (rd *Reader) loadUnicode() (Value, error) {
	b, err := rd.loadBytesPayload()
	if err != nil {
		return nil, err
	}
	if utf8.Valid(b) {
		return Unicode{Text: string(b), Valid: true}, nil
	}
	return Unicode{Raw: b, Valid: false}, nil
}

func (rd *Reader) loadSeq() ([]Value, error) {
	n, err := rd.readInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, ErrTruncated
	}
	vs := make([]Value, n)
	for i := range vs {
		v, err := rd.load()
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return vs, nil
}

func (rd *Reader) loadDict() (Value, error) {
	d := Dict{}
	for {
		tag, err := rd.readByte()
		if err != nil {
			return nil, err
		}
		if tag == tagNull {
			return d, nil
		}
		key, err := rd.dispatch(tag)
		if err != nil {
			return nil, err
		}
		val, err := rd.load()
		if err != nil {
			return nil, err
		}
		d.Keys = append(d.Keys, key)
		d.Values = append(d.Values, val)
	}
}

func (rd *Reader) loadCode() (Value, error) {
	c := &Code{}
	var err error
	if c.ArgCount, err = rd.readInt32(); err != nil {
		return nil, err
	}
	if c.NLocals, err = rd.readInt32(); err != nil {
		return nil, err
	}
	if c.StackSize, err = rd.readInt32(); err != nil {
		return nil, err
	}
	if c.Flags, err = rd.readInt32(); err != nil {
		return nil, err
	}
	if c.CodeBytes, err = rd.load(); err != nil {
		return nil, err
	}
	if c.Consts, err = rd.load(); err != nil {
		return nil, err
	}
	if c.Names, err = rd.load(); err != nil {
		return nil, err
	}
	if c.VarNames, err = rd.load(); err != nil {
		return nil, err
	}
	if c.FreeVars, err = rd.load(); err != nil {
		return nil, err
	}
	if c.CellVars, err = rd.load(); err != nil {
		return nil, err
	}
	if c.Filename, err = rd.load(); err != nil {
		return nil, err
	}
	if c.Name, err = rd.load(); err != nil {
		return nil, err
	}
	if c.FirstLine, err = rd.readInt32(); err != nil {
		return nil, err
	}
	if c.LnotabBytes, err = rd.load(); err != nil {
		return nil, err
	}
	return c, nil
}
