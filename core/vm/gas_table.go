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
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"

	"github.com/CortexFoundation/stepvm/params"
)

// memoryGasFunc wraps memoryGasCost for operations charging nothing else.
func memoryGasFunc(m *Machine, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return memoryGasCost(mem, memorySize)
}

// memoryCopierGas creates the gas functions for the following opcodes, and takes
// the stack position of the operand which determines the size of the data to copy
// as argument:
// CALLDATACOPY (stack position 2)
// CODECOPY (stack position 2)
// EXTCODECOPY (stack position 3)
// RETURNDATACOPY (stack position 2)
func memoryCopierGas(stackpos int) gasFunc {
	return func(m *Machine, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		// Gas for expanding the memory
		gas, err := memoryGasCost(mem, memorySize)
		if err != nil {
			return 0, err
		}
		// And gas for copying data, charged per word at param.CopyGas
		words := CopyCost(clampUint64(stack.Back(stackpos)))
		return saturatingAdd(gas, words), nil
	}
}

var (
	gasCallDataCopy   = memoryCopierGas(2)
	gasCodeCopy       = memoryCopierGas(2)
	gasExtCodeCopy    = memoryCopierGas(3)
	gasReturnDataCopy = memoryCopierGas(2)

	gasMLoad   = memoryGasFunc
	gasMStore  = memoryGasFunc
	gasMStore8 = memoryGasFunc
	gasReturn  = memoryGasFunc
	gasRevert  = memoryGasFunc
	gasCreate  = memoryGasFunc
)

func gasKeccak256(m *Machine, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	return saturatingAdd(gas, Sha3Cost(clampUint64(stack.Back(1)))), nil
}

// gasCreate2 charges memory plus hashing the init code.
func gasCreate2(m *Machine, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	return saturatingAdd(gas, Sha3Cost(clampUint64(stack.Back(2)))), nil
}

func gasExp(m *Machine, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return ExpCost(stack.Back(1), m.patch.GasExpByte()), nil
}

func makeGasLog(n uint64) gasFunc {
	return func(m *Machine, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		gas, err := memoryGasCost(mem, memorySize)
		if err != nil {
			return 0, err
		}
		return saturatingAdd(gas, LogDataCost(clampUint64(stack.Back(1)))), nil
	}
}

func gasSStore(m *Machine, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	var (
		y, x    = stack.Back(1), stack.Back(0)
		addr    = contract.Address()
		key     = common.Hash(x.Bytes32())
		value   = common.Hash(y.Bytes32())
		current common.Hash
	)
	current, err := m.state.storageAt(addr, key)
	if err != nil {
		return 0, err
	}
	switch m.patch.SstoreMetering {
	case params.SstoreEIP1283:
		return gasSStoreEIP1283(m, addr, key, current, value)
	case params.SstoreEIP2200:
		// If we fail the minimum gas availability invariant, fail (0)
		if contract.Gas <= params.SstoreSentryGasEIP2200 {
			return 0, ErrOutOfGas
		}
		return gasSStoreEIP2200(m, addr, key, current, value)
	}
	// This checks for 3 scenarios and calculates gas accordingly:
	//
	// 1. From a zero-value address to a non-zero value         (NEW VALUE)
	// 2. From a non-zero value address to a zero-value address (DELETE)
	// 3. From a non-zero to a non-zero                         (CHANGE)
	switch {
	case current == (common.Hash{}) && value != (common.Hash{}): // 0 => non 0
		return params.SstoreSetGas, nil
	case current != (common.Hash{}) && value == (common.Hash{}): // non 0 => 0
		m.state.addRefund(params.SstoreRefundGas)
		return params.SstoreClearGas, nil
	default: // non 0 => non 0 (or 0 => 0)
		return params.SstoreResetGas, nil
	}
}

// gasSStoreEIP1283 is net gas metering:
//
//  1. If current value equals new value (this is a no-op), 200 gas is deducted.
//  2. If current value does not equal new value
//     2.1. If original value equals current value (this storage slot has not been changed by the current execution context)
//     2.1.1. If original value is 0, 20000 gas is deducted.
//     2.1.2. Otherwise, 5000 gas is deducted. If new value is 0, add 15000 gas to refund counter.
//     2.2. If original value does not equal current value (this storage slot is dirty), 200 gas is deducted. Apply both of the following clauses.
//     2.2.1. If original value is not 0
//     2.2.1.1. If current value is 0 (also means that new value is not 0), remove 15000 gas from refund counter.
//     2.2.1.2. If new value is 0 (also means that current value is not 0), add 15000 gas to refund counter.
//     2.2.2. If original value equals new value (this storage slot is reset)
//     2.2.2.1. If original value is 0, add 19800 gas to refund counter.
//     2.2.2.2. Otherwise, add 4800 gas to refund counter.
func gasSStoreEIP1283(m *Machine, addr common.Address, key, current, value common.Hash) (uint64, error) {
	if current == value { // noop (1)
		return params.NetSstoreNoopGas, nil
	}
	original, err := m.state.originalStorage(addr, key)
	if err != nil {
		return 0, err
	}
	if original == current {
		if original == (common.Hash{}) { // create slot (2.1.1)
			return params.NetSstoreInitGas, nil
		}
		if value == (common.Hash{}) { // delete slot (2.1.2b)
			m.state.addRefund(params.NetSstoreClearRefund)
		}
		return params.NetSstoreCleanGas, nil // write existing slot (2.1.2)
	}
	if original != (common.Hash{}) {
		if current == (common.Hash{}) { // recreate slot (2.2.1.1)
			m.state.subRefund(params.NetSstoreClearRefund)
		} else if value == (common.Hash{}) { // delete slot (2.2.1.2)
			m.state.addRefund(params.NetSstoreClearRefund)
		}
	}
	if original == value {
		if original == (common.Hash{}) { // reset to original inexistent slot (2.2.2.1)
			m.state.addRefund(params.NetSstoreResetClearRefund)
		} else { // reset to original existing slot (2.2.2.2)
			m.state.addRefund(params.NetSstoreResetRefund)
		}
	}
	return params.NetSstoreDirtyGas, nil
}

// gasSStoreEIP2200 follows EIP1283 with SLOAD_GAS for no-op and dirty
// writes and SSTORE_CLEARS_SCHEDULE refunds.
func gasSStoreEIP2200(m *Machine, addr common.Address, key, current, value common.Hash) (uint64, error) {
	sload := m.patch.GasSload()
	if current == value { // noop (1)
		return sload, nil
	}
	original, err := m.state.originalStorage(addr, key)
	if err != nil {
		return 0, err
	}
	if original == current {
		if original == (common.Hash{}) { // create slot (2.1.1)
			return params.SstoreSetGasEIP2200, nil
		}
		if value == (common.Hash{}) { // delete slot (2.1.2b)
			m.state.addRefund(params.SstoreClearsScheduleRefundEIP2200)
		}
		return params.SstoreResetGasEIP2200, nil // write existing slot (2.1.2)
	}
	if original != (common.Hash{}) {
		if current == (common.Hash{}) { // recreate slot (2.2.1.1)
			m.state.subRefund(params.SstoreClearsScheduleRefundEIP2200)
		} else if value == (common.Hash{}) { // delete slot (2.2.1.2)
			m.state.addRefund(params.SstoreClearsScheduleRefundEIP2200)
		}
	}
	if original == value {
		if original == (common.Hash{}) { // reset to original inexistent slot (2.2.2.1)
			m.state.addRefund(params.SstoreSetGasEIP2200 - sload)
		} else { // reset to original existing slot (2.2.2.2)
			m.state.addRefund(params.SstoreResetGasEIP2200 - sload)
		}
	}
	return sload, nil // dirty update (2.2)
}

// callGas returns the gas forwarded to a sub-call after base has been
// charged out of available. ok is false when the request exceeds what may
// be forwarded and the patch turns that into a local call failure.
func callGas(patch *params.Patch, available, base uint64, requested *uint256.Int) (gas uint64, ok bool, err error) {
	if available < base {
		return 0, false, ErrOutOfGas
	}
	limit := available - base
	if patch.CallCreateL64AfterGas {
		limit -= limit / 64
	}
	if !requested.IsUint64() || requested.Uint64() > limit {
		if patch.ErrOnCallWithMoreGas {
			return 0, false, nil
		}
		return limit, true, nil
	}
	return requested.Uint64(), true, nil
}

// makeCallGas builds the dynamic gas of the CALL family. valuePos is the
// stack position of the transferred value, or -1 when the call carries none.
func makeCallGas(op OpCode, valuePos int) gasFunc {
	return func(m *Machine, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		var (
			gas            uint64
			transfersValue = valuePos >= 0 && !stack.Back(valuePos).IsZero()
			address        = common.Address(stack.Back(1).Bytes20())
		)
		if op == CALL {
			acc, err := m.state.account(address)
			if err != nil {
				return 0, err
			}
			if m.patch.EmptyConsideredExists {
				if !acc.exists {
					gas += params.CallNewAccountGas
				}
			} else if transfersValue && (!acc.exists || acc.empty()) {
				gas += params.CallNewAccountGas
			}
		}
		if transfersValue {
			gas += params.CallValueTransferGas
		}
		memoryGas, err := memoryGasCost(mem, memorySize)
		if err != nil {
			return 0, err
		}
		var overflow bool
		if gas, overflow = math.SafeAdd(gas, memoryGas); overflow {
			return 0, ErrGasUintOverflow
		}
		forward, ok, err := callGas(m.patch, contract.Gas, gas, stack.Back(0))
		if err != nil {
			return 0, err
		}
		m.callGasTemp, m.callFailed = forward, !ok
		if gas, overflow = math.SafeAdd(gas, forward); overflow {
			return 0, ErrGasUintOverflow
		}
		return gas, nil
	}
}

var (
	gasCall         = makeCallGas(CALL, 2)
	gasCallCode     = makeCallGas(CALLCODE, 2)
	gasDelegateCall = makeCallGas(DELEGATECALL, -1)
	gasStaticCall   = makeCallGas(STATICCALL, -1)
)

func gasSelfdestruct(m *Machine, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	var gas uint64
	// EIP150 homestead gas reprice fork:
	if m.patch.Gas.CreateBySuicide > 0 {
		address := common.Address(stack.Back(0).Bytes20())
		beneficiary, err := m.state.account(address)
		if err != nil {
			return 0, err
		}
		if m.patch.EmptyConsideredExists {
			// if empty and transfers value
			if !beneficiary.exists {
				gas = m.patch.Gas.CreateBySuicide
			}
		} else {
			self, err := m.state.account(contract.Address())
			if err != nil {
				return 0, err
			}
			if (!beneficiary.exists || beneficiary.empty()) && !self.balance.IsZero() {
				gas = m.patch.Gas.CreateBySuicide
			}
		}
	}
	if !m.state.hasSuicided(contract.Address()) {
		m.state.addRefund(params.SuicideRefundGas)
	}
	return gas, nil
}
