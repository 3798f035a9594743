// Copyright 2015 The CortexFoundation Authors
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
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/CortexFoundation/stepvm/params"
)

// The require functions run before an operation is charged. They only read,
// so a RequireError leaves the machine exactly where it was and the step can
// be retried once the missing fact is committed.

func requireAccountAt(pos int) requireFunc {
	return func(m *Machine, stack *Stack) error {
		_, err := m.state.account(common.Address(stack.Back(pos).Bytes20()))
		return err
	}
}

func requireSelf(m *Machine, stack *Stack) error {
	_, err := m.state.account(m.scope.Contract.Address())
	return err
}

func requireSload(m *Machine, stack *Stack) error {
	_, err := m.state.storageAt(m.scope.Contract.Address(), stack.Back(0).Bytes32())
	return err
}

func requireSstore(m *Machine, stack *Stack) error {
	var (
		addr = m.scope.Contract.Address()
		key  = common.Hash(stack.Back(0).Bytes32())
	)
	if _, err := m.state.storageAt(addr, key); err != nil {
		return err
	}
	if m.patch.SstoreMetering != params.SstoreLegacy {
		if _, err := m.state.originalStorage(addr, key); err != nil {
			return err
		}
	}
	return nil
}

func requireBlockhashOp(m *Machine, stack *Stack) error {
	num64, ok := blockhashInRange(stack.Back(0), m.header.Number)
	if !ok {
		return nil
	}
	_, err := m.cache.blockhash(num64)
	return err
}

// blockhashInRange reports whether num is one of the 256 most recent
// complete blocks before current.
func blockhashInRange(num *uint256.Int, current uint64) (uint64, bool) {
	num64, overflow := num.Uint64WithOverflow()
	if overflow {
		return 0, false
	}
	var lower uint64
	if current > 256 {
		lower = current - 256
	}
	return num64, num64 >= lower && num64 < current
}

// requireCallTarget loads the code account of a call, and the executing
// account when the call moves value.
func requireCallTarget(valuePos int) requireFunc {
	return func(m *Machine, stack *Stack) error {
		if _, err := m.state.account(common.Address(stack.Back(1).Bytes20())); err != nil {
			return err
		}
		if valuePos >= 0 && !stack.Back(valuePos).IsZero() {
			return requireSelf(m, stack)
		}
		return nil
	}
}

func requireCreate(m *Machine, stack *Stack) error {
	self, err := m.state.account(m.scope.Contract.Address())
	if err != nil {
		return err
	}
	_, err = m.state.account(crypto.CreateAddress(m.scope.Contract.Address(), self.nonce))
	return err
}

func requireCreate2(m *Machine, stack *Stack) error {
	if err := requireSelf(m, stack); err != nil {
		return err
	}
	var (
		offset, size = stack.Back(1), stack.Back(2)
		salt         = stack.Back(3)
	)
	// Init code that cannot be paid for fails with out of gas before the
	// address matters.
	end, overflow := calcMemSize64(offset, size)
	if overflow || end > maxMemorySize {
		return nil
	}
	expansion := MemoryExpansionCost(m.scope.Memory.Words(), toWordSize(end))
	if saturatingAdd(expansion, Sha3Cost(size.Uint64())) > m.scope.Contract.Gas {
		return nil
	}
	code := m.scope.Memory.peekPadded(offset.Uint64(), size.Uint64())
	addr := crypto.CreateAddress2(m.scope.Contract.Address(), salt.Bytes32(), crypto.Keccak256(code))
	_, err := m.state.account(addr)
	return err
}

func requireSelfdestruct(m *Machine, stack *Stack) error {
	if err := requireSelf(m, stack); err != nil {
		return err
	}
	_, err := m.state.account(common.Address(stack.Back(0).Bytes20()))
	return err
}
