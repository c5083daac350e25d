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

import (
	"fmt"

	"github.com/gopyc/retarget/internal/rlog"
)

// TruncatedInstructionError is returned when an opcode's argument
// bytes run past the end of the instruction stream. Unlike an
// unknown opcode or an unresolvable jump, this leaves no sane way
// to keep parsing the rest of the stream, so it fails the whole
// file (7).
type TruncatedInstructionError struct {
	Offset int
	Opcode Op
}

func (e *TruncatedInstructionError) Error() string {
	return fmt.Sprintf("retarget: truncated argument for opcode %d at offset %d", e.Opcode, e.Offset)
}

// relativeJumps and absoluteJumps name the canonical opcodes whose
// 2-byte argument must be fixed up after expansion (4.C, 4.D). A
// relative jump's argument is a forward displacement from the
// instruction following it; an absolute jump's argument is a raw
// bytecode offset.
var absoluteJumpNames = []string{
	"JUMP_ABSOLUTE",
	"POP_JUMP_IF_FALSE",
	"POP_JUMP_IF_TRUE",
	"JUMP_IF_FALSE_OR_POP",
	"JUMP_IF_TRUE_OR_POP",
}

var relativeJumpNames = []string{
	"JUMP_FORWARD",
	"FOR_ITER",
	"SETUP_LOOP",
	"SETUP_EXCEPT",
	"SETUP_FINALLY",
	"SETUP_WITH",
}

var absoluteJumpOps, relativeJumpOps = buildJumpSets()

func buildJumpSets() (map[Op]bool, map[Op]bool) {
	abs := make(map[Op]bool, len(absoluteJumpNames))
	for _, name := range absoluteJumpNames {
		op, ok := CanonicalOp(name)
		if !ok {
			panic("retarget: jump table refers to unknown canonical opcode " + name)
		}
		abs[op] = true
	}
	rel := make(map[Op]bool, len(relativeJumpNames))
	for _, name := range relativeJumpNames {
		op, ok := CanonicalOp(name)
		if !ok {
			panic("retarget: jump table refers to unknown canonical opcode " + name)
		}
		rel[op] = true
	}
	return abs, rel
}

var skipConstOp = messiahOp("SKIP_CONST")

// instr is a single decoded canonical instruction produced by the
// forward pass, not yet jump-fixed.
type instr struct {
	op       Op
	hasArg   bool
	arg      uint16
	oldStart int // source byte offset this instruction was expanded from
	newStart int // destination byte offset, filled in once the final layout is known
}

// Retargeter rewrites a single code object's bytecode from the
// Messiah dialect to canonical CPython 2.7 bytecode (4).
//
// Its opcode map and expansion table default to the package-level
// tables built from the original tool's dumped opcode lists, but
// both can be overridden per SPEC_FULL.md 10.8's pluggable-table
// requirement, mirroring the original dump(x, f, opmap=None,
// opexpansion=None) signature.
type Retargeter struct {
	OpcodeMap   OpcodeMap
	Expansion   ExpansionTable
	SkipConstOp Op

	// File tags recoverable-error log records with the file being
	// converted; empty is fine for tests and ad hoc callers.
	File string
}

// OpcodeMap is a Messiah-number to canonical-number opcode table.
type OpcodeMap map[Op]Op

// NewRetargeter returns a Retargeter for the given opcode map and
// expansion table. A nil opmap or expansion falls back to the
// built-in Messiah tables, mirroring the original tool's
// dump(x, f, opmap=None, opexpansion=None) signature (10.8): most
// callers pass (nil, nil) and get the default Messiah↔2.7 mapping,
// but a caller targeting a different superinstruction dialect can
// supply its own tables without any code change here.
func NewRetargeter(opmap OpcodeMap, expansion ExpansionTable) *Retargeter {
	if opmap == nil {
		opmap = defaultOpcodeMap
	}
	if expansion == nil {
		expansion = defaultExpansionTable
	}
	return &Retargeter{
		OpcodeMap:   opmap,
		Expansion:   expansion,
		SkipConstOp: skipConstOp,
	}
}

// Retarget rewrites code, a Messiah-dialect instruction stream, into
// canonical bytecode. It returns the rewritten bytes.
func (rt *Retargeter) Retarget(code []byte) ([]byte, error) {
	instrs, err := rt.expand(code)
	if err != nil {
		return nil, err
	}
	rt.layout(instrs)
	offsetMap, offsetMapReverse := rt.offsetMaps(instrs)
	rt.fixupJumps(instrs, offsetMap, offsetMapReverse)
	return rt.emit(instrs), nil
}

// RetargetCode rewrites both a code object's bytecode and its
// lnotab line table in one pass, so the line table's byte offsets
// describe the expanded stream (4.F, 6 Code emission contract).
// firstLine is the code object's co_firstlineno, the line the
// lnotab's (byte, line) accumulator starts from.
func (rt *Retargeter) RetargetCode(code, lnotab []byte, firstLine int32) (newCode, newLnotab []byte, err error) {
	instrs, err := rt.expand(code)
	if err != nil {
		return nil, nil, err
	}
	rt.layout(instrs)
	offsetMap, offsetMapReverse := rt.offsetMaps(instrs)
	rt.fixupJumps(instrs, offsetMap, offsetMapReverse)
	newCode = rt.emit(instrs)
	remapped, err := RemapLineStarts(LineStarts(lnotab, firstLine), offsetMap)
	if err != nil {
		return nil, nil, err
	}
	return newCode, GenLnotab(remapped, firstLine), nil
}

// expand is the forward pass: it walks the Messiah instruction
// stream left to right, replacing each superinstruction with its
// canonical sequence and remapping each ordinary opcode through
// OpcodeMap (4.A, 4.B).
func (rt *Retargeter) expand(code []byte) ([]instr, error) {
	var out []instr
	pos := 0
	for pos < len(code) {
		start := pos
		op := Op(code[pos])
		pos++

		// SKIP_CONST always carries a 2-byte argument even though
		// it has no expansion table entry; the opcode and its
		// argument are retained unchanged, matching the original
		// tool's fallthrough for an opcode with no map/expansion
		// entry (9, Open Question).
		if op == rt.SkipConstOp {
			if pos+2 > len(code) {
				return nil, &TruncatedInstructionError{Offset: start, Opcode: op}
			}
			ins := instr{op: op, oldStart: start, hasArg: true, arg: uint16(code[pos]) | uint16(code[pos+1])<<8}
			pos += 2
			out = append(out, ins)
			continue
		}

		if items, ok := rt.Expansion[op]; ok {
			hasArgSeen := false
			for _, item := range items {
				ins := instr{op: item.Op, oldStart: start}
				if item.Literal != nil {
					ins.hasArg = true
					ins.arg = uint16(item.Literal[0]) | uint16(item.Literal[1])<<8
				} else if item.Op.HasArgument() {
					if hasArgSeen {
						return nil, fmt.Errorf("retarget: expansion of opcode %d has more than one argument-consuming item", op)
					}
					if pos+2 > len(code) {
						return nil, &TruncatedInstructionError{Offset: start, Opcode: op}
					}
					ins.hasArg = true
					ins.arg = uint16(code[pos]) | uint16(code[pos+1])<<8
					pos += 2
					hasArgSeen = true
				}
				out = append(out, ins)
			}
			continue
		}

		canon, ok := rt.OpcodeMap[op]
		if !ok {
			// Unknown source opcode: recovered, not fatal (7). Write
			// the raw byte through unchanged, the same way the
			// original tool's bare except: pass left it in the
			// output stream — and, since the opcode's own numeric
			// value still decides whether an argument follows it,
			// retain the 2 argument bytes too when it does.
			rlog.Warnf(rt.File, "retarget.expand", "unknown Messiah opcode %d at offset %d, writing through", op, start)
			ins := instr{op: op, oldStart: start}
			if op.HasArgument() {
				if pos+2 > len(code) {
					return nil, &TruncatedInstructionError{Offset: start, Opcode: op}
				}
				ins.hasArg = true
				ins.arg = uint16(code[pos]) | uint16(code[pos+1])<<8
				pos += 2
			}
			out = append(out, ins)
			continue
		}
		ins := instr{op: canon, oldStart: start}
		if canon.HasArgument() {
			if pos+2 > len(code) {
				return nil, &TruncatedInstructionError{Offset: start, Opcode: op}
			}
			ins.hasArg = true
			ins.arg = uint16(code[pos]) | uint16(code[pos+1])<<8
			pos += 2
		}
		out = append(out, ins)
	}
	return out, nil
}

// layout assigns each instruction its final byte offset now that
// the expanded instruction count is fixed.
func (rt *Retargeter) layout(instrs []instr) {
	off := 0
	for i := range instrs {
		instrs[i].newStart = off
		off++
		if instrs[i].hasArg {
			off += 2
		}
	}
}

// offsetMaps builds the forward offset map (old source offset to
// new destination offset) used for absolute jump fixup, and its
// inverse (new offset to old source offset) used for relative jump
// fixup and the POP_TOP fallback heuristic (9).
func (rt *Retargeter) offsetMaps(instrs []instr) (map[int]int, map[int]int) {
	fwd := make(map[int]int, len(instrs))
	rev := make(map[int]int, len(instrs))
	for _, in := range instrs {
		// A superinstruction expands into several destination
		// instructions that all share one source offset; a jump
		// that targets that source offset means "jump to the
		// start of the expansion", so only the first destination
		// instruction claims the mapping.
		if _, seen := fwd[in.oldStart]; !seen {
			fwd[in.oldStart] = in.newStart
		}
		rev[in.newStart] = in.oldStart
	}
	return fwd, rev
}

// fixupJumps is the backward pass: every jump instruction's raw
// argument, which still refers to a source-stream offset, is
// rewritten to the corresponding destination-stream offset (4.C,
// 4.D). An unresolvable target is recovered, not fatal (7): the
// fixup is skipped, the instruction's argument is left as-is, and
// one warning is logged.
func (rt *Retargeter) fixupJumps(instrs []instr, offsetMap, offsetMapReverse map[int]int) {
	for i := range instrs {
		in := &instrs[i]
		switch {
		case absoluteJumpOps[in.op]:
			target, ok := offsetMap[int(in.arg)]
			if !ok {
				rlog.Warnf(rt.File, "retarget.fixup", "unresolvable absolute jump at offset %d targeting %d, skipping fixup", in.oldStart, in.arg)
				continue
			}
			in.arg = uint16(target)
		case relativeJumpOps[in.op]:
			// The argument is a displacement in the *source*
			// stream; resolve the absolute source target it
			// pointed past, remap that through offsetMap, then
			// recompute the displacement in the destination
			// stream.
			instrEnd := in.oldStart + 1
			if in.hasArg {
				instrEnd += 2
			}
			oldTarget := instrEnd + int(in.arg)
			newTargetOff, ok := offsetMap[oldTarget]
			if !ok {
				// No instruction begins exactly at oldTarget in
				// the source stream; this happens when the target
				// fell inside a now-consumed 2-byte argument slot
				// of a preceding ordinary opcode. Fall back to the
				// nearest preceding destination offset whose
				// source pre-image was a POP_TOP, mirroring the
				// original tool's documented heuristic for this
				// case rather than treating it as an error.
				fallback, ferr := rt.relativeFallback(oldTarget-1, offsetMapReverse, instrs)
				if ferr != nil {
					rlog.Warnf(rt.File, "retarget.fixup", "unresolvable relative jump at offset %d targeting %d, skipping fixup", in.oldStart, oldTarget)
					continue
				}
				newTargetOff = fallback
			}
			newInstrEnd := in.newStart + 1
			if in.hasArg {
				newInstrEnd += 2
			}
			in.arg = uint16(newTargetOff - newInstrEnd)
		}
	}
}

// relativeFallback implements the offset_map_reverse[c-1] heuristic:
// when a relative jump's computed source target has no direct
// pre-image, look one byte earlier and accept it only if that
// destination offset's canonical opcode is POP_TOP. This preserves
// the original tool's behavior verbatim rather than attempting to
// derive a more principled resolution (9, Open Question).
func (rt *Retargeter) relativeFallback(c int, offsetMapReverse map[int]int, instrs []instr) (int, error) {
	oldPreimage, ok := offsetMapReverse[c]
	if !ok {
		return 0, fmt.Errorf("retarget: no offset_map_reverse entry for fallback offset %d", c)
	}
	for i := range instrs {
		if instrs[i].oldStart == oldPreimage {
			popTop, _ := CanonicalOp("POP_TOP")
			if instrs[i].op != popTop {
				return 0, fmt.Errorf("retarget: fallback pre-image at %d is not POP_TOP", oldPreimage)
			}
			return instrs[i].newStart, nil
		}
	}
	return 0, fmt.Errorf("retarget: no instruction at fallback pre-image %d", oldPreimage)
}

// emit serializes the final instruction list to canonical bytecode.
func (rt *Retargeter) emit(instrs []instr) []byte {
	out := make([]byte, 0, len(instrs)*2)
	for _, in := range instrs {
		out = append(out, byte(in.op))
		if in.hasArg {
			out = append(out, byte(in.arg), byte(in.arg>>8))
		}
	}
	return out
}

// LinePos is one (byte offset, line number) instruction boundary at
// which execution enters a new source line (4.F).
type LinePos struct {
	Byte int
	Line int32
}

// LineStarts decodes a packed lnotab byte string into the sequence
// of (byte, line) boundaries at which the line number changes,
// mirroring the original tool's lnotab_numbers: consecutive
// zero-byte-delta runs (a single line spanning an overflowed line
// delta) are collapsed into one boundary, and the final line's
// start is always emitted even if nothing follows it. An empty
// lnotab yields no boundaries.
func LineStarts(lnotab []byte, firstLine int32) []LinePos {
	if len(lnotab) == 0 {
		return nil
	}
	var out []LinePos
	curByte, curLine := 0, int(firstLine)
	var lastLine int
	hasLast := false
	for i := 0; i+1 < len(lnotab); i += 2 {
		byteDelta := int(lnotab[i])
		lineDelta := int(lnotab[i+1])
		if byteDelta != 0 {
			if !hasLast || curLine != lastLine {
				out = append(out, LinePos{Byte: curByte, Line: int32(curLine)})
				lastLine = curLine
				hasLast = true
			}
			curByte += byteDelta
		}
		curLine += lineDelta
	}
	if !hasLast || curLine != lastLine {
		out = append(out, LinePos{Byte: curByte, Line: int32(curLine)})
	}
	return out
}

// GenLnotab packs (byte, line) boundaries back into a run-length
// lnotab byte string, mirroring the original tool's gen_lnotab: a
// delta exceeding 255 is chunked into repeated (255, 0) pairs before
// the final remainder is emitted, independently for the byte and
// the line component.
func GenLnotab(starts []LinePos, firstLine int32) []byte {
	var out []byte
	curByte, curLine := 0, int(firstLine)
	for _, p := range starts {
		byteDelta := p.Byte - curByte
		lineDelta := int(p.Line) - curLine
		for byteDelta > 255 {
			out = append(out, 255, 0)
			byteDelta -= 255
		}
		out = append(out, byte(byteDelta))
		for lineDelta > 255 {
			out = append(out, 255, 0)
			lineDelta -= 255
		}
		out = append(out, byte(lineDelta))
		curByte, curLine = p.Byte, int(p.Line)
	}
	return out
}

// RemapLineStarts maps each line boundary's byte offset from the
// source instruction stream to the destination stream via
// offsetMap. Every entry must land on an instruction boundary and
// the mapped sequence must stay non-decreasing in both byte and
// line; either violation is a genuine lnotab monotonicity failure
// and fails the whole file (7), unlike the opcode-level recoveries.
func RemapLineStarts(starts []LinePos, offsetMap map[int]int) ([]LinePos, error) {
	out := make([]LinePos, len(starts))
	prevByte, prevLine := -1, int32(-1)
	for i, p := range starts {
		mapped, ok := offsetMap[p.Byte]
		if !ok {
			return nil, fmt.Errorf("retarget: lnotab byte offset %d has no instruction boundary", p.Byte)
		}
		if mapped < prevByte || p.Line < prevLine {
			return nil, fmt.Errorf("retarget: lnotab remap is not monotonic at byte offset %d", p.Byte)
		}
		out[i] = LinePos{Byte: mapped, Line: p.Line}
		prevByte, prevLine = mapped, p.Line
	}
	return out, nil
}
