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

// Package marshal implements a codec for the Messiah-dialect
// object-serialization format, a variant of the CPython 2.7
// marshal wire format that carries a shared string-interning
// table across the whole stream.
package marshal

import (
	"errors"
	"fmt"
)

// ErrTruncated is returned when the input ends before
// a value can be fully decoded.
var ErrTruncated = errors.New("marshal: truncated input")

// TagError is returned by Decode when it encounters
// a type tag byte with no registered parser.
type TagError struct {
	Tag byte
	Pos int64
}

func (e *TagError) Error() string {
	return fmt.Sprintf("marshal: unknown type tag %#02x at offset %d", e.Tag, e.Pos)
}

// StringRefError is returned when a StringRef value
// indexes outside the bounds of the interning table
// built up so far.
type StringRefError struct {
	Index int64
	Table int
}

func (e *StringRefError) Error() string {
	return fmt.Sprintf("marshal: string ref %d out of range (table has %d entries)", e.Index, e.Table)
}

// DispatchError is returned by Encode when a Value
// implementation has no registered emitter.
type DispatchError struct {
	Value Value
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("marshal: no emitter registered for %T", e.Value)
}
