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

package retarget

// ExpansionItem is one canonical opcode emitted in place of a
// Messiah superinstruction. Literal, when non-nil, is a fixed
// 2-byte little-endian argument; when nil, Op consumes the
// source instruction's own 2-byte argument slot (4.B: at most one
// item per expansion may do this).
type ExpansionItem struct {
	Op      Op
	Literal *[2]byte
}

// ExpansionTable maps a Messiah opcode number to its ordered
// canonical replacement sequence.
type ExpansionTable map[Op][]ExpansionItem

// zeroArg is the fixed literal argument used by expansions like
// LOAD_FAST_ZERO_LOAD_CONST, whose first replacement opcode always
// loads local slot 0.
var zeroArg = [2]byte{0, 0}

func plain(names ...string) []ExpansionItem {
	items := make([]ExpansionItem, len(names))
	for i, name := range names {
		op, ok := CanonicalOp(name)
		if !ok {
			panic("retarget: expansion refers to unknown canonical opcode " + name)
		}
		items[i] = ExpansionItem{Op: op}
	}
	return items
}

func messiahOp(name string) Op {
	op, ok := MessiahOp(name)
	if !ok {
		panic("retarget: expansion keyed on unknown Messiah opcode " + name)
	}
	return op
}

// defaultExpansionTable is the fixed Messiah-superinstruction to
// canonical-sequence mapping, transcribed from the original tool's
// PYCRetargeter.opcode_expansion (4.B).
var defaultExpansionTable = buildDefaultExpansionTable()

func buildDefaultExpansionTable() ExpansionTable {
	t := ExpansionTable{
		messiahOp("POP_THREE"):                plain("POP_TOP", "POP_TOP", "POP_TOP"),
		messiahOp("RETURN_SUBSCR"):             plain("BINARY_SUBSCR", "RETURN_VALUE"),
		messiahOp("POP_TWO"):                   plain("POP_TOP", "POP_TOP"),
		messiahOp("LOAD_LOCALS_RETURN_VALUE"):  plain("LOAD_LOCALS", "RETURN_VALUE"),
		messiahOp("POP_TOP_POP_BLOCK"):         plain("POP_TOP", "POP_BLOCK"),
		messiahOp("RETURN_CONST"):              plain("LOAD_CONST", "RETURN_VALUE"),
		messiahOp("POP_TOP_LOAD_GLOBAL"):       plain("POP_TOP", "LOAD_GLOBAL"),
		messiahOp("POP_TOP_JUMP_FORWARD"):      plain("POP_TOP", "JUMP_FORWARD"),
		messiahOp("LOAD_CONST_BINARY_SUBSCR"):  plain("LOAD_CONST", "BINARY_SUBSCR"),
		messiahOp("POP_TOP_LOAD_FAST"):         plain("POP_TOP", "LOAD_FAST"),
		messiahOp("LOAD_CONST_STORE_MAP"):      plain("LOAD_CONST", "STORE_MAP"),
		messiahOp("CALL_FUNCTION_POP_TOP"):     plain("CALL_FUNCTION", "POP_TOP"),
		messiahOp("POP_TOP_LOAD_CONST"):        plain("POP_TOP", "LOAD_CONST"),
		messiahOp("LOAD_CONST_LOAD_CONST"):     plain("LOAD_CONST", "LOAD_CONST"),
		messiahOp("STORE_FAST_LOAD_FAST"):      plain("STORE_FAST", "LOAD_FAST"),
		messiahOp("LOAD_ATTR_LOAD_GLOBAL"):     plain("LOAD_ATTR", "LOAD_GLOBAL"),
		messiahOp("LOAD_FAST_CALL_FUNCTION_POP_TOP"): plain("LOAD_FAST", "CALL_FUNCTION", "POP_TOP"),
		messiahOp("COMPARE_OP_JUMP_IF_FALSE"):         plain("COMPARE_OP", "POP_JUMP_IF_FALSE"),
		messiahOp("LOAD_CONST_CALL_FUNCTION"):         plain("LOAD_CONST", "CALL_FUNCTION"),
		messiahOp("LOAD_FAST_LOAD_CONST"):              plain("LOAD_FAST", "LOAD_CONST"),
		messiahOp("STORE_NAME_LOAD_CONST"):             plain("STORE_NAME", "LOAD_CONST"),
		messiahOp("LOAD_ATTR_LOAD_FAST"):                plain("LOAD_ATTR", "LOAD_FAST"),
		messiahOp("MAKE_FUNCTION_STORE_NAME"):           plain("MAKE_FUNCTION", "STORE_NAME"),
		messiahOp("LOAD_ATTR_CALL_FUNCTION"):            plain("LOAD_ATTR", "CALL_FUNCTION"),
		messiahOp("LOAD_CONST_COMPARE_OP"):              plain("LOAD_CONST", "COMPARE_OP"),
		messiahOp("LOAD_ATTR_LOAD_ATTR"):                plain("LOAD_ATTR", "LOAD_ATTR"),
		// SKIP_CONST (163) intentionally has no expansion entry;
		// see the forward pass's special-cased handling (9).
		messiahOp("LOAD_CONST_LOAD_CONST_BUILD_TUPLE"): plain("LOAD_CONST", "LOAD_CONST", "BUILD_TUPLE"),
		messiahOp("LOAD_GLOBAL_CALL_FUNCTION"):          plain("LOAD_GLOBAL", "CALL_FUNCTION"),
		messiahOp("LOAD_CONST_LOAD_FAST"):               plain("LOAD_CONST", "LOAD_FAST"),
		messiahOp("STORE_FAST_LOAD_GLOBAL"):              plain("STORE_FAST", "LOAD_GLOBAL"),
		messiahOp("LOAD_FAST_CALL_FUNCTION"):             plain("LOAD_FAST", "CALL_FUNCTION"),
		messiahOp("CALL_FUNCTION_STORE_FAST"):            plain("CALL_FUNCTION", "STORE_FAST"),
		messiahOp("LOAD_FAST_LOAD_ATTR"):                 plain("LOAD_FAST", "LOAD_ATTR"),
		messiahOp("LOAD_ATTR_CALL_FUNCTION_POP_TOP"):     plain("LOAD_ATTR", "CALL_FUNCTION", "POP_TOP"),
		messiahOp("LOAD_FAST_LOAD_FAST"):                 plain("LOAD_FAST", "LOAD_FAST"),
		messiahOp("LOAD_FAST_STORE_ATTR"):                plain("LOAD_FAST", "STORE_ATTR"),
		messiahOp("LOAD_CONST_LOAD_CONST_STORE_MAP"):     plain("LOAD_CONST", "LOAD_CONST", "STORE_MAP"),
		messiahOp("LOAD_GLOBAL_CALL_FUNCTION_POP_TOP"):   plain("LOAD_GLOBAL", "CALL_FUNCTION", "POP_TOP"),
		messiahOp("LOAD_GLOBAL_LOAD_FAST"):                plain("LOAD_GLOBAL", "LOAD_FAST"),
		messiahOp("CALL_FUNCTION_POP_TOP_LOAD_FAST"):      plain("CALL_FUNCTION", "POP_TOP", "LOAD_FAST"),
		messiahOp("CALL_FUNCTION_CALL_FUNCTION"):          plain("CALL_FUNCTION", "CALL_FUNCTION"),
		messiahOp("LOAD_CONST_MAKE_FUNCTION"):             plain("LOAD_CONST", "MAKE_FUNCTION"),
		messiahOp("LOAD_CONST_IMPORT_NAME"):               plain("LOAD_CONST", "IMPORT_NAME"),
		messiahOp("LOAD_FAST_LOAD_CONST_BINARY_SUBSCR_LOAD_FAST_LOAD_CONST_BINARY_SUBSCR_CALL_FUNCTION"): plain(
			"LOAD_FAST", "LOAD_CONST", "BINARY_SUBSCR",
			"LOAD_FAST", "LOAD_CONST", "BINARY_SUBSCR",
			"CALL_FUNCTION",
		),
		messiahOp("LOAD_GLOBAL_LOAD_ATTR_LOAD_FAST_LOAD_ATTR_LOAD_FAST_LOAD_FAST"): plain(
			"LOAD_GLOBAL", "LOAD_ATTR", "LOAD_FAST", "LOAD_ATTR", "LOAD_FAST", "LOAD_FAST",
		),
		messiahOp("LOAD_GLOBAL_LOAD_ATTR_LOAD_ATTR_LOAD_GLOBAL_LOAD_ATTR_LOAD_ATTR"): plain(
			"LOAD_GLOBAL", "LOAD_ATTR", "LOAD_ATTR", "LOAD_GLOBAL", "LOAD_ATTR", "LOAD_ATTR",
		),
		messiahOp("LOAD_FAST_LOAT_ATTR_LOAD_CONST_LOAD_CONST_CALL_FUNCTION"): plain(
			"LOAD_FAST", "LOAD_ATTR", "LOAD_CONST", "LOAD_CONST", "CALL_FUNCTION",
		),
		messiahOp("LOAD_GLOABL_LOAD_ATTR_LOAD_ATTR_COMPARE_OP_LOAD_FAST"): plain(
			"LOAD_GLOBAL", "LOAD_ATTR", "LOAD_ATTR", "COMPARE_OP", "LOAD_FAST",
		),
		messiahOp("LOAD_FAST_LOAD_ATTR_LOAD_FAST_CALL_FUNCTION"): plain(
			"LOAD_FAST", "LOAD_ATTR", "LOAD_FAST", "CALL_FUNCTION",
		),
		messiahOp("LOAD_FAST_LOAD_ATTR_LOAD_FAST_LOAD_ATTR"): plain(
			"LOAD_FAST", "LOAD_ATTR", "LOAD_FAST", "LOAD_ATTR",
		),
		messiahOp("LOAD_FAST_LOAD_FAST_LOAD_FAST_CALL_FUNCTION"): plain(
			"LOAD_FAST", "LOAD_FAST", "LOAD_FAST", "CALL_FUNCTION",
		),
		messiahOp("LOAD_ATTR_LOAD_FAST_LOAD_FAST_CALL_FUNCTION"): plain(
			"LOAD_ATTR", "LOAD_FAST", "LOAD_FAST", "CALL_FUNCTION",
		),
		messiahOp("LOAD_FAST_LOAD_ATTR_LOAD_ATTR"):   plain("LOAD_FAST", "LOAD_ATTR", "LOAD_ATTR"),
		messiahOp("LOAD_FAST_LOAD_ATTR_CALL_FUNCTION"): plain("LOAD_FAST", "LOAD_ATTR", "CALL_FUNCTION"),
		messiahOp("LOAD_FAST_LOAD_ATTR_RETURN_VALUE"):  plain("LOAD_FAST", "LOAD_ATTR", "RETURN_VALUE"),
		messiahOp("LOAD_FAST_LOAD_ATTR_JUMP_IF_FALSE"): plain("LOAD_FAST", "LOAD_ATTR", "POP_JUMP_IF_FALSE"),
		messiahOp("LOAD_FAST_LOAD_FAST_LOAD_FAST_LOAD_FAST_LOAD_FAST_LOAD_FAST"): plain(
			"LOAD_FAST", "LOAD_FAST", "LOAD_FAST", "LOAD_FAST", "LOAD_FAST", "LOAD_FAST",
		),
		messiahOp("LOAD_FAST_LOAD_FAST_LOAD_FAST_LOAD_FAST"): plain(
			"LOAD_FAST", "LOAD_FAST", "LOAD_FAST", "LOAD_FAST",
		),
		messiahOp("LOAD_FAST_LOAD_ATTR_LOAD_FAST"):    plain("LOAD_FAST", "LOAD_ATTR", "LOAD_FAST"),
		messiahOp("LOAD_GLOBAL_LOAD_ATTR_LOAD_ATTR"):  plain("LOAD_GLOBAL", "LOAD_ATTR", "LOAD_ATTR"),
		messiahOp("LOAD_FAST_LOAD_ATTR_LOAD_CONST"):   plain("LOAD_FAST", "LOAD_ATTR", "LOAD_CONST"),
		messiahOp("LOAD_GLOBAL_LOAD_FAST_LOAD_CONST"): plain("LOAD_GLOBAL", "LOAD_FAST", "LOAD_CONST"),
		messiahOp("LOAD_FAST_LOAD_FAST_POP_JUMP_IF_FALSE"): plain(
			"LOAD_FAST", "LOAD_FAST", "POP_JUMP_IF_FALSE",
		),
		messiahOp("STORE_FAST_LOAD_FAST_LOAD_CONST_COMPARE_OP"): plain(
			"STORE_FAST", "LOAD_FAST", "LOAD_CONST", "COMPARE_OP",
		),
		messiahOp("LOAD_FAST_LOAD_CONST_COMPARE_OP_LOAD_FAST"): plain(
			"LOAD_FAST", "LOAD_CONST", "COMPARE_OP", "LOAD_FAST",
		),
		messiahOp("LOAD_DEREF_LOAD_ATTR_LOAD_FAST_BINARY_SUBSCR"): plain(
			"LOAD_DEREF", "LOAD_ATTR", "LOAD_FAST", "BINARY_SUBSCR",
		),
		messiahOp("STORE_FAST_LOAD_FAST_POP_JUMP_IF_FALSE"): plain(
			"STORE_FAST", "LOAD_FAST", "POP_JUMP_IF_FALSE",
		),
		messiahOp("LOAD_FAST_LOAD_CONST_BINARY_SUBSCR"): plain("LOAD_FAST", "LOAD_CONST", "BINARY_SUBSCR"),
		messiahOp("LOAD_ATTR_LOAD_FAST_CALL_FUNCTION"):  plain("LOAD_ATTR", "LOAD_FAST", "CALL_FUNCTION"),
		messiahOp("POP_TOP_LOAD_CONST_RETURN_VALUE"):    plain("POP_TOP", "LOAD_CONST", "RETURN_VALUE"),
		messiahOp("LOAD_GLOBAL_LOAD_ATTR_LOAD_FAST"):    plain("LOAD_GLOBAL", "LOAD_ATTR", "LOAD_FAST"),
		messiahOp("CALL_FUNCTION_POP_TOP_JUMP_ABSOLUTE"): plain("CALL_FUNCTION", "POP_TOP", "JUMP_ABSOLUTE"),
		messiahOp("STORE_FAST_LOAD_FAST_LOAD_FAST"):      plain("STORE_FAST", "LOAD_FAST", "LOAD_FAST"),
		messiahOp("LOAD_GLOBAL_LOAD_ATTR"):               plain("LOAD_GLOBAL", "LOAD_ATTR"),
		messiahOp("LOAD_DEREF_LOAD_ATTR"):                plain("LOAD_DEREF", "LOAD_ATTR"),
		messiahOp("LOAD_FAST_STORE_FAST"):                plain("LOAD_FAST", "STORE_FAST"),
		messiahOp("LOAD_FAST_POP_JUMP_IF_FALSE"):         plain("LOAD_FAST", "POP_JUMP_IF_FALSE"),
		messiahOp("LOAD_ATTR_COMPARE_OP"):                plain("LOAD_ATTR", "COMPARE_OP"),
		messiahOp("STORE_FAST_STORE_FAST"):               plain("STORE_FAST", "STORE_FAST"),
		messiahOp("POP_JUMP_IF_FALSE_2"):                 plain("POP_JUMP_IF_FALSE"),
		messiahOp("LOAD_FAST_POP_JUMP_IF_TRUE"):           plain("LOAD_FAST", "POP_JUMP_IF_TRUE"),
		messiahOp("LOAD_CONST_STORE_FAST"):                plain("LOAD_CONST", "STORE_FAST"),
		messiahOp("LOAD_FAST_RETURN_VALUE"):               plain("LOAD_FAST", "RETURN_VALUE"),
		messiahOp("LOAD_FAST_LOAD_GLOBAL"):                plain("LOAD_FAST", "LOAD_GLOBAL"),
		messiahOp("LOAD_GLOBAL_RETURN_VALUE"):             plain("LOAD_GLOBAL", "RETURN_VALUE"),
		messiahOp("LOAD_FAST_BUILD_TUPLE_STORE_FAST"):     plain("LOAD_FAST", "BUILD_TUPLE", "STORE_FAST"),
		messiahOp("STORE_FAST_LOAD_FAST_LOAD_GLOBAL"):     plain("STORE_FAST", "LOAD_FAST", "LOAD_GLOBAL"),
	}

	loadFastZero, _ := CanonicalOp("LOAD_FAST")
	loadConst, _ := CanonicalOp("LOAD_CONST")
	t[messiahOp("LOAD_FAST_ZERO_LOAD_CONST")] = []ExpansionItem{
		{Op: loadFastZero, Literal: &zeroArg},
		{Op: loadConst},
	}
	return t
}

// defaultOpcodeMap is the Messiah-number to canonical-number
// bijection for every opcode that exists under both dialects
// (4.A). Superinstruction-only Messiah opcodes have no entry here;
// they are resolved through defaultExpansionTable instead.
var defaultOpcodeMap = buildDefaultOpcodeMap()

func buildDefaultOpcodeMap() OpcodeMap {
	m := make(OpcodeMap, len(canonicalOpcodeList))
	for name, canon := range canonicalOpcodeList {
		messiah, ok := messiahByName[name]
		if !ok {
			panic("retarget: canonical opcode " + name + " has no Messiah counterpart")
		}
		m[messiah] = canon
	}
	return m
}
