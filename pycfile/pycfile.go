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

// Package pycfile is the file driver (6): it strips a container
// .pyc's 8-byte header, decodes the marshalled body, retargets every
// code object it contains, re-encodes it, and prepends the fixed
// canonical CPython 2.7 header in place of whatever header the input
// carried.
package pycfile

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gopyc/retarget/marshal"
	"github.com/gopyc/retarget/retarget"
)

// HeaderSize is the length of the opaque magic/timestamp prefix
// every .pyc file carries ahead of its marshalled body.
const HeaderSize = 8

// CanonicalHeader is the fixed magic this tool always writes,
// identifying the output as CPython 2.7 bytecode regardless of what
// dialect-specific magic the input carried.
var CanonicalHeader = [HeaderSize]byte{0x03, 0xf3, 0x0d, 0x0a, 0xff, 0xff, 0xff, 0xff}

// TruncatedHeaderError is returned when the input is shorter than
// HeaderSize bytes.
type TruncatedHeaderError struct {
	Len int
}

func (e *TruncatedHeaderError) Error() string {
	return fmt.Sprintf("pycfile: input is %d bytes, shorter than the %d-byte header", e.Len, HeaderSize)
}

// NotCodeError is returned when the top-level marshalled value is
// not a code object, so no filename can be recovered.
type NotCodeError struct {
	Value marshal.Value
}

func (e *NotCodeError) Error() string {
	return fmt.Sprintf("pycfile: top-level value is %T, not a code object", e.Value)
}

// Retarget strips data's 8-byte header, decodes the marshalled body
// with the default Messiah opcode and expansion tables, retargets
// every code object reached by recursing into Consts, and returns
// the reconstructed filename (from the top-level code object's
// Filename field, backslashes converted to forward slashes per the
// file driver contract) together with the re-headered output bytes.
func Retarget(data []byte) (filename string, out []byte, err error) {
	return RetargetWith(data, nil, nil)
}

// RetargetWith is Retarget with an explicit opcode map and expansion
// table; a nil opmap or exp falls back to the built-in Messiah
// tables, mirroring retarget.NewRetargeter's pluggable-table
// signature (10.8).
func RetargetWith(data []byte, opmap retarget.OpcodeMap, exp retarget.ExpansionTable) (filename string, out []byte, err error) {
	if len(data) < HeaderSize {
		return "", nil, &TruncatedHeaderError{Len: len(data)}
	}
	body := data[HeaderSize:]

	rd := marshal.NewReader(bytes.NewReader(body))
	v, err := rd.Decode()
	if err != nil {
		return "", nil, err
	}
	code, ok := v.(*marshal.Code)
	if !ok {
		return "", nil, &NotCodeError{Value: v}
	}

	filename, err = stringValue(code.Filename, rd.InternTable())
	if err != nil {
		return "", nil, err
	}
	filename = strings.ReplaceAll(filename, `\`, "/")

	var buf bytes.Buffer
	buf.Write(CanonicalHeader[:])
	wr := marshal.NewWriter(&buf, retarget.NewRetargeter(opmap, exp))
	wr.SetSourceInterning(rd.InternTable())
	wr.Encode(code)
	if err := wr.Err(); err != nil {
		return "", nil, err
	}
	return filename, buf.Bytes(), nil
}

// stringValue extracts UTF-8 text from a marshal Value that is
// known to be a string-shaped field (co_filename, co_name and
// similar): Bytes and Interned carry raw payloads that are always
// ASCII or UTF-8 in practice, Unicode carries decoded text directly.
// A StringRef resolves through interp, the interning table of the
// Reader that decoded v; an index outside that table is reported as
// an error rather than silently guessed at.
func stringValue(v marshal.Value, interp [][]byte) (string, error) {
	switch x := v.(type) {
	case marshal.Bytes:
		return string(x), nil
	case marshal.Interned:
		return string(x), nil
	case marshal.Unicode:
		if x.Valid {
			return x.Text, nil
		}
		return string(x.Raw), nil
	case marshal.StringRef:
		if int(x) < 0 || int(x) >= len(interp) {
			return "", fmt.Errorf("pycfile: filename is a StringRef(%d) outside the %d-entry interning table", x, len(interp))
		}
		return string(interp[x]), nil
	default:
		return "", fmt.Errorf("pycfile: filename field has unexpected type %T", v)
	}
}
