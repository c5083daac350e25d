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

// Package retarget implements the opcode tables, superinstruction
// expansion table, and jump-fixing instruction rewriter that turn
// a Messiah-dialect code object's bytecode into canonical CPython
// 2.7 bytecode (4.A, 4.B, 4.E).
package retarget

// Op is an opcode number in either the canonical or the Messiah
// numbering; which one a given Op belongs to is determined by
// which table it was looked up in.
type Op byte

// HaveArgument is the canonical-dialect threshold: any canonical
// opcode numerically at or above this value is followed by a
// 2-byte little-endian argument.
const HaveArgument Op = 90

// canonicalByName and canonicalByOp form the authoritative 2.7
// numbering used by the decompiler. Built once in init() with a
// fail-fast assertion, mirroring the teacher's pattern of
// constructing static lookup tables at package init (cf.
// ion.Symtab's system symbol tables) rather than validating them
// lazily at first use.
var (
	canonicalByName = map[string]Op{}
	canonicalByOp   = map[Op]string{}
	messiahByName   = map[string]Op{}
	messiahByOp     = map[Op]string{}
)

func defOp(byName map[string]Op, byOp map[Op]string, name string, op Op) {
	if _, dup := byOp[op]; dup {
		panic("retarget: duplicate opcode number " + name)
	}
	if _, dup := byName[name]; dup {
		panic("retarget: duplicate opcode name " + name)
	}
	byName[name] = op
	byOp[op] = name
}

func init() {
	for name, op := range canonicalOpcodeList {
		defOp(canonicalByName, canonicalByOp, name, op)
	}
	for name, op := range messiahOpcodeList {
		defOp(messiahByName, messiahByOp, name, op)
	}
}

// CanonicalOp returns the canonical opcode number for name, or
// (0, false) if name is not a canonical 2.7 opcode.
func CanonicalOp(name string) (Op, bool) {
	op, ok := canonicalByName[name]
	return op, ok
}

// CanonicalName returns the mnemonic for a canonical opcode
// number, or ("", false) if op is unused.
func CanonicalName(op Op) (string, bool) {
	name, ok := canonicalByOp[op]
	return name, ok
}

// MessiahOp returns the Messiah-dialect opcode number for name,
// or (0, false) if name has no Messiah-dialect encoding.
func MessiahOp(name string) (Op, bool) {
	op, ok := messiahByName[name]
	return op, ok
}

// HasArgument reports whether op (from the canonical table) is
// followed by a 2-byte argument.
func (op Op) HasArgument() bool {
	return op >= HaveArgument
}

// canonicalOpcodeList is the name -> number table for CPython 2.7,
// transcribed from the original tool's get_python_27_opcodes().
var canonicalOpcodeList = map[string]Op{
	"POP_TOP":             1,
	"ROT_TWO":             2,
	"ROT_THREE":           3,
	"DUP_TOP":             4,
	"ROT_FOUR":            5,
	"NOP":                 9,
	"UNARY_POSITIVE":      10,
	"UNARY_NEGATIVE":      11,
	"UNARY_NOT":           12,
	"UNARY_CONVERT":       13,
	"UNARY_INVERT":        15,
	"BINARY_POWER":        19,
	"BINARY_MULTIPLY":     20,
	"BINARY_DIVIDE":       21,
	"BINARY_MODULO":       22,
	"BINARY_ADD":          23,
	"BINARY_SUBTRACT":     24,
	"BINARY_SUBSCR":       25,
	"BINARY_FLOOR_DIVIDE": 26,
	"BINARY_TRUE_DIVIDE":  27,
	"INPLACE_FLOOR_DIVIDE": 28,
	"INPLACE_TRUE_DIVIDE":  29,
	"SLICE_0":              30,
	"SLICE_1":              31,
	"SLICE_2":              32,
	"SLICE_3":              33,
	"STORE_SLICE_0":        40,
	"STORE_SLICE_1":        41,
	"STORE_SLICE_2":        42,
	"STORE_SLICE_3":        43,
	"DELETE_SLICE_0":       50,
	"DELETE_SLICE_1":       51,
	"DELETE_SLICE_2":       52,
	"DELETE_SLICE_3":       53,
	"STORE_MAP":            54,
	"INPLACE_ADD":          55,
	"INPLACE_SUBTRACT":     56,
	"INPLACE_MULTIPLY":     57,
	"INPLACE_DIVIDE":       58,
	"INPLACE_MODULO":       59,
	"STORE_SUBSCR":         60,
	"DELETE_SUBSCR":        61,
	"BINARY_LSHIFT":        62,
	"BINARY_RSHIFT":        63,
	"BINARY_AND":           64,
	"BINARY_XOR":           65,
	"BINARY_OR":            66,
	"INPLACE_POWER":        67,
	"GET_ITER":             68,
	"PRINT_EXPR":           70,
	"PRINT_ITEM":           71,
	"PRINT_NEWLINE":        72,
	"PRINT_ITEM_TO":        73,
	"PRINT_NEWLINE_TO":     74,
	"INPLACE_LSHIFT":       75,
	"INPLACE_RSHIFT":       76,
	"INPLACE_AND":          77,
	"INPLACE_XOR":          78,
	"INPLACE_OR":           79,
	"BREAK_LOOP":           80,
	"WITH_CLEANUP":         81,
	"LOAD_LOCALS":          82,
	"RETURN_VALUE":         83,
	"IMPORT_STAR":          84,
	"EXEC_STMT":            85,
	"YIELD_VALUE":          86,
	"POP_BLOCK":            87,
	"END_FINALLY":          88,
	"BUILD_CLASS":          89,
	"STORE_NAME":           90,
	"DELETE_NAME":          91,
	"UNPACK_SEQUENCE":      92,
	"FOR_ITER":             93,
	"LIST_APPEND":          94,
	"STORE_ATTR":           95,
	"DELETE_ATTR":          96,
	"STORE_GLOBAL":         97,
	"DELETE_GLOBAL":        98,
	"DUP_TOPX":             99,
	"LOAD_CONST":           100,
	"LOAD_NAME":            101,
	"BUILD_TUPLE":          102,
	"BUILD_LIST":           103,
	"BUILD_SET":            104,
	"BUILD_MAP":            105,
	"LOAD_ATTR":            106,
	"COMPARE_OP":           107,
	"IMPORT_NAME":          108,
	"IMPORT_FROM":          109,
	"JUMP_FORWARD":         110,
	"JUMP_IF_FALSE_OR_POP": 111,
	"JUMP_IF_TRUE_OR_POP":  112,
	"JUMP_ABSOLUTE":        113,
	"POP_JUMP_IF_FALSE":    114,
	"POP_JUMP_IF_TRUE":     115,
	"LOAD_GLOBAL":          116,
	"CONTINUE_LOOP":        119,
	"SETUP_LOOP":           120,
	"SETUP_EXCEPT":         121,
	"SETUP_FINALLY":        122,
	"LOAD_FAST":            124,
	"STORE_FAST":           125,
	"DELETE_FAST":          126,
	"RAISE_VARARGS":        130,
	"CALL_FUNCTION":        131,
	"MAKE_FUNCTION":        132,
	"BUILD_SLICE":          133,
	"MAKE_CLOSURE":         134,
	"LOAD_CLOSURE":         135,
	"LOAD_DEREF":           136,
	"STORE_DEREF":          137,
	"CALL_FUNCTION_VAR":    140,
	"CALL_FUNCTION_KW":     141,
	"CALL_FUNCTION_VAR_KW": 142,
	"SETUP_WITH":           143,
	"EXTENDED_ARG":         145,
	"SET_ADD":              146,
	"MAP_ADD":              147,
}
