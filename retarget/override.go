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

	"golang.org/x/exp/maps"
)

// BuildOpcodeMap snapshots the default Messiah opcode table and
// applies per-canonical-name overrides on top of it, for a Messiah
// variant that renumbers a handful of ordinary opcodes without
// otherwise changing the dialect (10.8). overrides maps a
// canonical CPython 2.7 opcode name to the Messiah-side number that
// should decode to it. The name's built-in Messiah number stays in
// the map as well, and a number that also has an expansion table
// entry is still expanded rather than remapped.
func BuildOpcodeMap(overrides map[string]int) (OpcodeMap, error) {
	m := maps.Clone(defaultOpcodeMap)
	for name, messiahNum := range overrides {
		canon, ok := CanonicalOp(name)
		if !ok {
			return nil, fmt.Errorf("retarget: opcode override names unknown canonical opcode %q", name)
		}
		if messiahNum < 0 || messiahNum > 0xff {
			return nil, fmt.Errorf("retarget: opcode override for %q has out-of-range Messiah number %d", name, messiahNum)
		}
		m[Op(messiahNum)] = canon
	}
	return m, nil
}
