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

// messiahOpcodeList is the name -> number table for the obfuscated
// Messiah dialect, transcribed from the original tool's
// get_messiah_opcodes(). Names shared with canonicalOpcodeList
// denote an ordinary (non-fused) opcode under a scrambled number;
// names absent from canonicalOpcodeList are superinstructions,
// each with an entry in defaultExpansionTable except SKIP_CONST,
// which the forward pass handles on its own.
var messiahOpcodeList = map[string]Op{
	"POP_TOP":             68,
	"ROT_TWO":             58,
	"ROT_THREE":           62,
	"DUP_TOP":             84,
	"ROT_FOUR":            56,
	"NOP":                 9,
	"UNARY_POSITIVE":      10,
	"UNARY_NEGATIVE":      11,
	"UNARY_NOT":           12,
	"UNARY_CONVERT":       13,
	"UNARY_INVERT":        15,
	"BINARY_POWER":        19,
	"BINARY_MULTIPLY":     80,
	"BINARY_DIVIDE":       22,
	"BINARY_MODULO":       83,
	"BINARY_ADD":          89,
	"BINARY_SUBTRACT":     1,
	"BINARY_SUBSCR":       24,
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
	"STORE_MAP":            78,
	"INPLACE_ADD":          2,
	"INPLACE_SUBTRACT":     20,
	"INPLACE_MULTIPLY":     60,
	"INPLACE_DIVIDE":       23,
	"INPLACE_MODULO":       63,
	"STORE_SUBSCR":         3,
	"DELETE_SUBSCR":        75,
	"BINARY_LSHIFT":        61,
	"BINARY_RSHIFT":        0,
	"BINARY_AND":           57,
	"BINARY_XOR":           65,
	"BINARY_OR":            55,
	"INPLACE_POWER":        64,
	"GET_ITER":             59,
	"PRINT_EXPR":           70,
	"PRINT_ITEM":           71,
	"PRINT_NEWLINE":        72,
	"PRINT_ITEM_TO":        73,
	"PRINT_NEWLINE_TO":     74,
	"INPLACE_LSHIFT":       85,
	"INPLACE_RSHIFT":       66,
	"INPLACE_AND":          86,
	"INPLACE_XOR":          21,
	"INPLACE_OR":           4,
	"BREAK_LOOP":           5,
	"WITH_CLEANUP":         81,
	"LOAD_LOCALS":          76,
	"RETURN_VALUE":         88,
	"IMPORT_STAR":          54,
	"EXEC_STMT":            67,
	"YIELD_VALUE":          79,
	"POP_BLOCK":            82,
	"END_FINALLY":          87,
	"BUILD_CLASS":          77,
	"STORE_NAME":           135,
	"DELETE_NAME":          120,
	"UNPACK_SEQUENCE":      92,
	"FOR_ITER":             121,
	"LIST_APPEND":          124,
	"STORE_ATTR":           126,
	"DELETE_ATTR":          107,
	"STORE_GLOBAL":         106,
	"DELETE_GLOBAL":        96,
	"DUP_TOPX":             115,
	"LOAD_CONST":           100,
	"LOAD_NAME":            101,
	"BUILD_TUPLE":          102,
	"BUILD_LIST":           99,
	"BUILD_SET":            134,
	"BUILD_MAP":            93,
	"LOAD_ATTR":            114,
	"COMPARE_OP":           146,
	"IMPORT_NAME":          108,
	"IMPORT_FROM":          109,
	"JUMP_FORWARD":         110,
	"JUMP_IF_FALSE_OR_POP": 111,
	"JUMP_IF_TRUE_OR_POP":  112,
	"JUMP_ABSOLUTE":        113,
	"POP_JUMP_IF_FALSE":    94,
	"POP_JUMP_IF_TRUE":     104,
	"LOAD_GLOBAL":          116,
	"CONTINUE_LOOP":        90,
	"SETUP_LOOP":           105,
	"SETUP_EXCEPT":         137,
	"SETUP_FINALLY":        147,
	"LOAD_FAST":            95,
	"STORE_FAST":           103,
	"DELETE_FAST":          97,
	"RAISE_VARARGS":        130,
	"CALL_FUNCTION":        131,
	"MAKE_FUNCTION":        132,
	"BUILD_SLICE":          133,
	"MAKE_CLOSURE":         119,
	"LOAD_CLOSURE":         91,
	"LOAD_DEREF":           125,
	"STORE_DEREF":          136,
	"CALL_FUNCTION_VAR":    140,
	"CALL_FUNCTION_KW":     141,
	"CALL_FUNCTION_VAR_KW": 142,
	"SETUP_WITH":           143,
	"EXTENDED_ARG":         145,
	"SET_ADD":              98,
	"MAP_ADD":              122,

	// Superinstructions (no canonical counterpart; each but
	// SKIP_CONST has an entry in defaultExpansionTable).
	"POP_THREE":                 6,
	"RETURN_SUBSCR":             7,
	"POP_TWO":                   8,
	"LOAD_LOCALS_RETURN_VALUE":  49,
	"POP_TOP_POP_BLOCK":         69,
	"RETURN_CONST":              117,
	"POP_TOP_LOAD_GLOBAL":       118,
	"POP_TOP_JUMP_FORWARD":      123,
	"LOAD_CONST_BINARY_SUBSCR":  127,
	"POP_TOP_LOAD_FAST":         128,
	"LOAD_CONST_STORE_MAP":      129,
	"CALL_FUNCTION_POP_TOP":     138,
	"POP_TOP_LOAD_CONST":        139,
	"LOAD_CONST_LOAD_CONST":     150,
	"STORE_FAST_LOAD_FAST":      151,
	"LOAD_ATTR_LOAD_GLOBAL":     152,
	"LOAD_FAST_CALL_FUNCTION_POP_TOP": 153,
	"COMPARE_OP_JUMP_IF_FALSE":        154,
	"LOAD_CONST_CALL_FUNCTION":        155,
	"LOAD_FAST_LOAD_CONST":            156,
	"STORE_NAME_LOAD_CONST":           157,
	"LOAD_ATTR_LOAD_FAST":             158,
	"MAKE_FUNCTION_STORE_NAME":        159,
	"LOAD_ATTR_CALL_FUNCTION":         160,
	"LOAD_CONST_COMPARE_OP":           161,
	"LOAD_ATTR_LOAD_ATTR":             162,
	"SKIP_CONST":                      163,
	"LOAD_CONST_LOAD_CONST_BUILD_TUPLE":      164,
	"LOAD_GLOBAL_CALL_FUNCTION":              165,
	"LOAD_CONST_LOAD_FAST":                   166,
	"STORE_FAST_LOAD_GLOBAL":                 167,
	"LOAD_FAST_CALL_FUNCTION":                168,
	"CALL_FUNCTION_STORE_FAST":               169,
	"LOAD_FAST_LOAD_ATTR":                    170,
	"LOAD_ATTR_CALL_FUNCTION_POP_TOP":        171,
	"LOAD_FAST_LOAD_FAST":                    172,
	"LOAD_FAST_ZERO_LOAD_CONST":              173,
	"LOAD_FAST_STORE_ATTR":                   174,
	"LOAD_CONST_LOAD_CONST_STORE_MAP":        175,
	"LOAD_GLOBAL_CALL_FUNCTION_POP_TOP":       176,
	"LOAD_GLOBAL_LOAD_FAST":                   177,
	"CALL_FUNCTION_POP_TOP_LOAD_FAST":         178,
	"CALL_FUNCTION_CALL_FUNCTION":             179,
	"LOAD_CONST_MAKE_FUNCTION":                180,
	"LOAD_CONST_IMPORT_NAME":                  181,
	"LOAD_FAST_LOAD_CONST_BINARY_SUBSCR_LOAD_FAST_LOAD_CONST_BINARY_SUBSCR_CALL_FUNCTION": 182,
	"LOAD_GLOBAL_LOAD_ATTR_LOAD_FAST_LOAD_ATTR_LOAD_FAST_LOAD_FAST":                       188,
	"LOAD_GLOBAL_LOAD_ATTR_LOAD_ATTR_LOAD_GLOBAL_LOAD_ATTR_LOAD_ATTR":                     189,
	"LOAD_FAST_LOAT_ATTR_LOAD_CONST_LOAD_CONST_CALL_FUNCTION":                             190,
	"LOAD_GLOABL_LOAD_ATTR_LOAD_ATTR_COMPARE_OP_LOAD_FAST":                                191,
	"LOAD_FAST_LOAD_ATTR_LOAD_FAST_CALL_FUNCTION":                                         193,
	"LOAD_FAST_LOAD_ATTR_LOAD_FAST_LOAD_ATTR":                                             194,
	"LOAD_FAST_LOAD_FAST_LOAD_FAST_CALL_FUNCTION":                                         195,
	"LOAD_ATTR_LOAD_FAST_LOAD_FAST_CALL_FUNCTION":                                         196,
	"LOAD_FAST_LOAD_ATTR_LOAD_ATTR":                                                       197,
	"LOAD_FAST_LOAD_ATTR_CALL_FUNCTION":                                                   198,
	"LOAD_FAST_LOAD_ATTR_RETURN_VALUE":                                                    199,
	"LOAD_FAST_LOAD_ATTR_JUMP_IF_FALSE":                                                   200,
	"LOAD_FAST_LOAD_FAST_LOAD_FAST_LOAD_FAST_LOAD_FAST_LOAD_FAST":                         201,
	"LOAD_FAST_LOAD_FAST_LOAD_FAST_LOAD_FAST":                                             202,
	"LOAD_FAST_LOAD_ATTR_LOAD_FAST":                                                       203,
	"LOAD_GLOBAL_LOAD_ATTR_LOAD_ATTR":                                                     204,
	"LOAD_FAST_LOAD_ATTR_LOAD_CONST":                                                      205,
	"LOAD_GLOBAL_LOAD_FAST_LOAD_CONST":                                                    206,
	"LOAD_FAST_LOAD_FAST_POP_JUMP_IF_FALSE":                                               207,
	"STORE_FAST_LOAD_FAST_LOAD_CONST_COMPARE_OP":                                          208,
	"LOAD_FAST_LOAD_CONST_COMPARE_OP_LOAD_FAST":                                           209,
	"LOAD_DEREF_LOAD_ATTR_LOAD_FAST_BINARY_SUBSCR":                                        210,
	"STORE_FAST_LOAD_FAST_POP_JUMP_IF_FALSE":                                              211,
	"LOAD_FAST_LOAD_CONST_BINARY_SUBSCR":                                                  212,
	"LOAD_ATTR_LOAD_FAST_CALL_FUNCTION":                                                   213,
	"POP_TOP_LOAD_CONST_RETURN_VALUE":                                                     215,
	"LOAD_GLOBAL_LOAD_ATTR_LOAD_FAST":                                                     216,
	"CALL_FUNCTION_POP_TOP_JUMP_ABSOLUTE":                                                 217,
	"STORE_FAST_LOAD_FAST_LOAD_FAST":                                                      218,
	"LOAD_GLOBAL_LOAD_ATTR":                                                               219,
	"LOAD_DEREF_LOAD_ATTR":                                                                220,
	"LOAD_FAST_STORE_FAST":                                                                221,
	"LOAD_FAST_POP_JUMP_IF_FALSE":                                                         222,
	"LOAD_ATTR_COMPARE_OP":                                                                223,
	"STORE_FAST_STORE_FAST":                                                               224,
	"POP_JUMP_IF_FALSE_2":                                                                 225,
	"LOAD_FAST_POP_JUMP_IF_TRUE":                                                          226,
	"LOAD_CONST_STORE_FAST":                                                               227,
	"LOAD_FAST_RETURN_VALUE":                                                              228,
	"LOAD_FAST_LOAD_GLOBAL":                                                               229,
	"LOAD_GLOBAL_RETURN_VALUE":                                                            230,
	"LOAD_FAST_BUILD_TUPLE_STORE_FAST":                                                    231,
	"STORE_FAST_LOAD_FAST_LOAD_GLOBAL":                                                    232,
}
