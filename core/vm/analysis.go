// Copyright 2019 The go-ethereum Authors
// This file is part of the CortexFoundation library.
//
// The CortexFoundation library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The CortexFoundation library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the CortexFoundation library. If not, see <http://www.gnu.org/licenses/>.

package vm

// BitVec is a bit vector which maps bytes in a program.
// An unset bit means the byte is an opcode, a set bit means
// it's data (i.e. argument of PUSHxx).
type BitVec []byte

func (bits BitVec) set1(pos uint64) {
	bits[pos/8] |= 1 << (pos % 8)
}

func (bits BitVec) set8(pos uint64) {
	a := byte(0xFF << (pos % 8))
	bits[pos/8] |= a
	bits[pos/8+1] = ^a
}

// codeSegment checks if the position is in a code segment.
func (bits BitVec) codeSegment(pos uint64) bool {
	return ((bits[pos/8] >> (pos % 8)) & 1) == 0
}

// codeBitmap collects data locations in code.
func codeBitmap(code []byte) BitVec {
	// The bitmap is 4 bytes longer than necessary, in case the code
	// ends with a PUSH32, the algorithm will set bits on the
	// bitvector outside the bounds of the actual code.
	bits := make(BitVec, len(code)/8+1+4)
	for pc := uint64(0); pc < uint64(len(code)); {
		op := OpCode(code[pc])
		pc++
		if !op.IsPush() {
			continue
		}
		numbits := uint64(op.PushSize())
		for ; numbits >= 8; numbits -= 8 {
			bits.set8(pc)
			pc += 8
		}
		for ; numbits > 0; numbits-- {
			bits.set1(pc)
			pc++
		}
	}
	return bits
}

// JumpDests returns the sorted valid jump destinations of code: every
// JUMPDEST byte that is not PUSH immediate data.
func JumpDests(code []byte) []uint64 {
	var (
		bits  = codeBitmap(code)
		dests []uint64
	)
	for pc, b := range code {
		if OpCode(b) == JUMPDEST && bits.codeSegment(uint64(pc)) {
			dests = append(dests, uint64(pc))
		}
	}
	return dests
}
