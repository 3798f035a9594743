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

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/CortexFoundation/stepvm/params"
)

// Gas costs
const (
	GasQuickStep   uint64 = params.GasQuickStep
	GasFastestStep uint64 = params.GasFastestStep
	GasFastStep    uint64 = params.GasFastStep
	GasMidStep     uint64 = params.GasMidStep
	GasSlowStep    uint64 = params.GasSlowStep
	GasExtStep     uint64 = params.GasExtStep
)

// maxMemorySize is the largest memory size whose expansion cost still fits
// in a uint64. Anything above is priced as infeasible.
const maxMemorySize = 0x1FFFFFFFE0

func saturatingAdd(a, b uint64) uint64 {
	if c := a + b; c >= a {
		return c
	}
	return math.MaxUint64
}

func saturatingMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if c := a * b; c/b == a {
		return c
	}
	return math.MaxUint64
}

// FixedCost returns the cost of op charged before any operand dependent
// part. It is zero for undefined opcodes and for SSTORE, whose cost depends
// entirely on the slot values.
func FixedCost(op OpCode, patch *params.Patch) uint64 {
	operation := jumpTableFor(patch)[op]
	if operation == nil || operation.undefined {
		return 0
	}
	return operation.constantGas
}

// CopyCost returns the per-word copy charge of CALLDATACOPY, CODECOPY,
// RETURNDATACOPY and EXTCODECOPY.
func CopyCost(length uint64) uint64 {
	return saturatingMul(params.CopyGas, toWordSize(length))
}

// Sha3Cost returns the per-word hashing charge of SHA3, excluding its base.
func Sha3Cost(length uint64) uint64 {
	return saturatingMul(params.Sha3WordGas, toWordSize(length))
}

// LogDataCost returns the per-byte charge of the data of a LOG.
func LogDataCost(length uint64) uint64 {
	return saturatingMul(params.LogDataGas, length)
}

// ExpCost returns the exponent dependent charge of EXP: expByte for each
// byte of the exponent, zero for a zero exponent.
func ExpCost(exponent *uint256.Int, expByte uint64) uint64 {
	byteLen := uint64((exponent.BitLen() + 7) / 8)
	return saturatingMul(byteLen, expByte)
}

// MemoryCost returns the total cost of a memory of the given word count,
// 3*words + words^2/512.
func MemoryCost(words uint64) uint64 {
	if words > maxMemorySize/32 {
		return math.MaxUint64
	}
	return words*params.MemoryGas + words*words/params.QuadCoeffDiv
}

// MemoryExpansionCost returns the charge of growing memory from oldWords to
// newWords. Memory never shrinks, so a smaller target costs nothing.
func MemoryExpansionCost(oldWords, newWords uint64) uint64 {
	if newWords <= oldWords {
		return 0
	}
	cost := MemoryCost(newWords)
	if cost == math.MaxUint64 {
		return cost
	}
	return cost - MemoryCost(oldWords)
}

// memoryGasCost calculates the quadratic gas for memory expansion. It does so
// only for the memory region that is expanded, not the total memory.
func memoryGasCost(mem *Memory, newMemSize uint64) (uint64, error) {
	if newMemSize == 0 {
		return 0, nil
	}
	// The maximum that will fit in a uint64 is max_word_count - 1. Anything above
	// that will result in an overflow. Additionally, a newMemSize which results in
	// a newMemSizeWords larger than 0xFFFFFFFF will cause the square operation to
	// overflow. The constant 0x1FFFFFFFE0 is the highest number that can be used
	// without overflowing the gas calculation.
	if newMemSize > maxMemorySize {
		return 0, ErrGasUintOverflow
	}
	newMemSizeWords := toWordSize(newMemSize)
	newMemSizePadded := newMemSizeWords * 32

	if newMemSizePadded > uint64(mem.Len()) {
		newTotalFee := MemoryCost(newMemSizeWords)
		fee := newTotalFee - mem.lastGasCost
		mem.lastGasCost = newTotalFee

		return fee, nil
	}
	return 0, nil
}
