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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CortexFoundation/stepvm/params"
)

// callOther calls otherAddr with the given gas request and value, keeping
// the first 32 bytes of its output at memory 0.
func callOther(gas []byte, value int) []byte {
	return program(
		PUSH1, 0x20, // retSize
		PUSH1, 0x00, // retOffset
		PUSH1, 0x00, // inSize
		PUSH1, 0x00, // inOffset
		PUSH1, value,
		PUSH2, 0xbb, 0xbb,
		gas,
		CALL,
	)
}

func findAccount(changes []AccountChange, addr common.Address) (AccountChange, bool) {
	for _, change := range changes {
		if change.Address == addr {
			return change, true
		}
	}
	return AccountChange{}, false
}

func TestCallWithMoreGasFailsLocally(t *testing.T) {
	code := program(callOther(program(PUSH4, 0xff, 0xff, 0xff, 0xff), 0), STOP)
	v := NewContextVM(callContext(code, 100000), testHeader, params.FrontierPatch, Config{})
	commitAccount(t, v, selfAddr, 0, 0, code)
	commitAccount(t, v, otherAddr, 0, 0, nil)

	require.NoError(t, v.Fire())
	assert.Equal(t, ExitedOk, v.Status().Kind)
	assert.Equal(t, []uint64{0}, stackOf(v.Current().Stack()))
	// seven pushes, the fixed call cost and one word of memory, none of the request
	assert.Equal(t, 7*GasFastestStep+params.FrontierPatch.GasCall()+MemoryExpansionCost(0, 1), v.UsedGas())
}

func TestCallCappedWithoutFlag(t *testing.T) {
	code := program(callOther(program(PUSH4, 0xff, 0xff, 0xff, 0xff), 0), STOP)
	v := NewContextVM(callContext(code, 100000), testHeader, params.IstanbulPatch, Config{})
	commitAccount(t, v, selfAddr, 0, 0, code)
	commitAccount(t, v, otherAddr, 0, 0, nil)

	require.NoError(t, v.Fire())
	assert.Equal(t, ExitedOk, v.Status().Kind)
	assert.Equal(t, []uint64{1}, stackOf(v.Current().Stack()))
}

// recurse calls itself with all its gas and logs the outcome of the call.
var recurse = program(
	PUSH1, 0x00, PUSH1, 0x00, PUSH1, 0x00, PUSH1, 0x00, PUSH1, 0x00,
	ADDRESS, GAS, CALL,
	PUSH1, 0x00, MSTORE,
	PUSH1, 0x20, PUSH1, 0x00, LOG0,
	STOP,
)

func TestCallDepthLimit(t *testing.T) {
	tests := []struct {
		limit   uint64
		results []uint64
	}{
		{0, []uint64{0}},
		{1, []uint64{0, 1}},
		{3, []uint64{0, 1, 1, 1}},
	}
	for _, tt := range tests {
		patch := params.IstanbulPatch.Copy()
		patch.CallstackLimit = tt.limit

		v := NewContextVM(callContext(recurse, 1000000), testHeader, patch, Config{})
		commitAccount(t, v, selfAddr, 0, 0, recurse)

		require.NoError(t, v.Fire())
		require.Equal(t, ExitedOk, v.Status().Kind, "limit %d", tt.limit)

		var results []uint64
		for _, l := range v.Logs() {
			results = append(results, new(uint256.Int).SetBytes(l.Data).Uint64())
		}
		assert.Equal(t, tt.results, results, "limit %d", tt.limit)
	}
}

func TestSubCallReturnData(t *testing.T) {
	callee := program(PUSH1, 0x2a, PUSH1, 0x00, MSTORE, PUSH1, 0x20, PUSH1, 0x00, RETURN)
	code := program(callOther(program(PUSH2, 0xff, 0xff), 0), PUSH1, 0x00, MLOAD, RETURNDATASIZE, STOP)

	v := NewContextVM(callContext(code, 1000000), testHeader, params.IstanbulPatch, Config{})
	commitAccount(t, v, selfAddr, 0, 0, code)
	commitAccount(t, v, otherAddr, 0, 0, callee)

	require.NoError(t, v.Fire())
	require.Equal(t, ExitedOk, v.Status().Kind)
	assert.Equal(t, []uint64{1, 0x2a, 0x20}, stackOf(v.Current().Stack()))
	assert.Contains(t, v.UsedAddresses(), otherAddr)
}

func TestSubCallRevert(t *testing.T) {
	callee := program(
		PUSH1, 0x01, PUSH1, 0x00, SSTORE,
		PUSH1, 0x2a, PUSH1, 0x00, MSTORE,
		PUSH1, 0x20, PUSH1, 0x00, REVERT,
	)
	code := program(callOther(program(PUSH2, 0xff, 0xff), 0), PUSH1, 0x00, MLOAD, RETURNDATASIZE, STOP)

	v := NewContextVM(callContext(code, 1000000), testHeader, params.IstanbulPatch, Config{})
	commitAccount(t, v, selfAddr, 0, 0, code)
	commitAccount(t, v, otherAddr, 0, 0, callee)
	commitSlot(t, v, otherAddr, 0, 0)

	require.NoError(t, v.Fire())
	require.Equal(t, ExitedOk, v.Status().Kind)
	assert.Equal(t, []uint64{0, 0x2a, 0x20}, stackOf(v.Current().Stack()))

	change, ok := findAccount(v.Accounts(), otherAddr)
	if ok {
		assert.Empty(t, change.Storage, "reverted storage write leaked")
	}
	// the revert gave the unspent gas back
	assert.Less(t, v.UsedGas(), uint64(100000))
}

func TestSubCallFailureConsumesGas(t *testing.T) {
	callee := program(INVALID)
	code := program(callOther(program(PUSH2, 0x27, 0x10), 0), STOP)

	v := NewContextVM(callContext(code, 100000), testHeader, params.IstanbulPatch, Config{})
	commitAccount(t, v, selfAddr, 0, 0, code)
	commitAccount(t, v, otherAddr, 0, 0, callee)

	require.NoError(t, v.Fire())
	require.Equal(t, ExitedOk, v.Status().Kind)
	assert.Equal(t, []uint64{0}, stackOf(v.Current().Stack()))
	// the 10000 forwarded gas is gone
	assert.Equal(t, 7*GasFastestStep+params.IstanbulPatch.GasCall()+MemoryExpansionCost(0, 1)+10000, v.UsedGas())
}

func TestValueTransfer(t *testing.T) {
	code := program(callOther(program(PUSH2, 0x00, 0x00), 5), STOP)

	v := NewContextVM(callContext(code, 100000), testHeader, params.IstanbulPatch, Config{})
	commitAccount(t, v, selfAddr, 100, 0, code)
	commitNonexist(t, v, otherAddr)

	require.NoError(t, v.Fire())
	require.Equal(t, ExitedOk, v.Status().Kind)
	assert.Equal(t, []uint64{1}, stackOf(v.Current().Stack()))

	self, ok := findAccount(v.Accounts(), selfAddr)
	require.True(t, ok)
	assert.Equal(t, uint64(95), self.Balance.Uint64())
	other, ok := findAccount(v.Accounts(), otherAddr)
	require.True(t, ok)
	assert.True(t, other.Exists)
	assert.Equal(t, uint64(5), other.Balance.Uint64())

	// the callee runs no code, so the stipend comes back to the caller
	want := 7*GasFastestStep + params.IstanbulPatch.GasCall() + MemoryExpansionCost(0, 1) +
		params.CallNewAccountGas + params.CallValueTransferGas - params.CallStipend
	assert.Equal(t, want, v.UsedGas())
}

func TestValueTransferInsufficientBalance(t *testing.T) {
	code := program(callOther(program(PUSH2, 0x00, 0x00), 5), STOP)

	v := NewContextVM(callContext(code, 100000), testHeader, params.IstanbulPatch, Config{})
	commitAccount(t, v, selfAddr, 1, 0, code)
	commitAccount(t, v, otherAddr, 1, 0, nil)

	require.NoError(t, v.Fire())
	require.Equal(t, ExitedOk, v.Status().Kind)
	assert.Equal(t, []uint64{0}, stackOf(v.Current().Stack()))
}

func TestStaticCallWrite(t *testing.T) {
	callee := program(PUSH1, 0x01, PUSH1, 0x00, SSTORE)
	code := program(
		PUSH1, 0x00, PUSH1, 0x00, PUSH1, 0x00, PUSH1, 0x00,
		PUSH2, 0xbb, 0xbb, PUSH2, 0xff, 0xff, STATICCALL, STOP,
	)
	v := NewContextVM(callContext(code, 1000000), testHeader, params.IstanbulPatch, Config{})
	commitAccount(t, v, selfAddr, 0, 0, code)
	commitAccount(t, v, otherAddr, 0, 0, callee)

	require.NoError(t, v.Fire())
	require.Equal(t, ExitedOk, v.Status().Kind)
	assert.Equal(t, []uint64{0}, stackOf(v.Current().Stack()))
}

func TestCreate(t *testing.T) {
	// init code storing a single INVALID byte as the contract code
	initCode := program(PUSH1, 0xfe, PUSH1, 0x00, MSTORE8, PUSH1, 0x01, PUSH1, 0x00, RETURN)
	require.Len(t, initCode, 10)
	code := program(
		PUSH10, initCode, PUSH1, 0x00, MSTORE,
		PUSH1, 0x0a, PUSH1, 0x16, PUSH1, 0x00, CREATE,
		STOP,
	)
	created := crypto.CreateAddress(selfAddr, 1)

	v := NewContextVM(callContext(code, 1000000), testHeader, params.IstanbulPatch, Config{})
	commitAccount(t, v, selfAddr, 0, 1, code)
	commitNonexist(t, v, created)

	require.NoError(t, v.Fire())
	require.Equal(t, ExitedOk, v.Status().Kind, v.Status().String())

	top, err := v.Current().Stack().Peek(0)
	require.NoError(t, err)
	assert.Equal(t, created, common.Address(top.Bytes20()))

	acc, ok := findAccount(v.Accounts(), created)
	require.True(t, ok)
	assert.True(t, acc.Exists)
	assert.True(t, acc.Created)
	assert.Equal(t, uint64(1), acc.Nonce)
	assert.Equal(t, []byte{0xfe}, acc.Code)

	self, ok := findAccount(v.Accounts(), selfAddr)
	require.True(t, ok)
	assert.Equal(t, uint64(2), self.Nonce)
}

func TestCreateCollision(t *testing.T) {
	code := program(PUSH1, 0x00, PUSH1, 0x00, PUSH1, 0x00, CREATE, STOP)
	created := crypto.CreateAddress(selfAddr, 0)

	v := NewContextVM(callContext(code, 1000000), testHeader, params.IstanbulPatch, Config{})
	commitAccount(t, v, selfAddr, 0, 0, code)
	commitAccount(t, v, created, 0, 1, nil)

	require.NoError(t, v.Fire())
	require.Equal(t, ExitedOk, v.Status().Kind)
	assert.Equal(t, []uint64{0}, stackOf(v.Current().Stack()))
	// the forwarded gas is consumed
	assert.Greater(t, v.UsedGas(), uint64(900000))
}

func TestCodeDeposit(t *testing.T) {
	// returns 0x100 zero bytes as code
	initCode := program(PUSH2, 0x01, 0x00, PUSH1, 0x00, RETURN)
	deposit := 0x100 * params.CreateDataGas

	run := func(patch *params.Patch, gas uint64) *ContextVM {
		ctx := Context{
			Kind:        CREATE,
			Address:     otherAddr,
			Caller:      callerAddr,
			CodeAddress: otherAddr,
			Origin:      callerAddr,
			Code:        initCode,
			Gas:         gas,
			IsCreate:    true,
		}
		v := NewContextVM(ctx, testHeader, patch, Config{})
		commitNonexist(t, v, otherAddr)
		require.NoError(t, v.Fire())
		return v
	}
	v := run(params.IstanbulPatch, 100000)
	require.Equal(t, ExitedOk, v.Status().Kind)
	acc, ok := findAccount(v.Accounts(), otherAddr)
	require.True(t, ok)
	assert.Len(t, acc.Code, 0x100)
	assert.Equal(t, uint64(1), acc.Nonce)

	v = run(params.IstanbulPatch, deposit)
	assert.ErrorIs(t, v.Status().Err, ErrCodeStoreOutOfGas)

	v = run(params.FrontierPatch, deposit)
	require.Equal(t, ExitedOk, v.Status().Kind)
	acc, ok = findAccount(v.Accounts(), otherAddr)
	require.True(t, ok)
	assert.Empty(t, acc.Code)
	assert.Equal(t, uint64(0), acc.Nonce)

	patch := params.IstanbulPatch.Copy()
	patch.CodeDepositLimit = 0x80
	v = run(patch, 100000)
	assert.ErrorIs(t, v.Status().Err, ErrMaxCodeSizeExceeded)
}

func TestSelfdestruct(t *testing.T) {
	beneficiary := common.HexToAddress("0x000000000000000000000000000000000000dddd")
	code := program(PUSH20, beneficiary, SELFDESTRUCT)

	v := NewContextVM(callContext(code, 100000), testHeader, params.IstanbulPatch, Config{})
	commitAccount(t, v, selfAddr, 100, 0, code)
	commitNonexist(t, v, beneficiary)

	require.NoError(t, v.Fire())
	require.Equal(t, ExitedOk, v.Status().Kind)
	assert.Equal(t, []common.Address{selfAddr}, v.Removed())

	ben, ok := findAccount(v.Accounts(), beneficiary)
	require.True(t, ok)
	assert.Equal(t, uint64(100), ben.Balance.Uint64())

	self, ok := findAccount(v.Accounts(), selfAddr)
	require.True(t, ok)
	assert.False(t, self.Exists)

	used := GasFastestStep + params.IstanbulPatch.GasSuicide() + params.IstanbulPatch.Gas.CreateBySuicide
	assert.Equal(t, used/2, v.RefundedGas())
	assert.Equal(t, used-used/2, v.UsedGas())
}

func TestEmptyAccountClearing(t *testing.T) {
	code := program(callOther(program(PUSH2, 0xff, 0xff), 0), STOP)

	for _, tt := range []struct {
		patch   *params.Patch
		removed bool
	}{
		{params.HomesteadPatch, false},
		{params.SpuriousDragonPatch, true},
		{params.IstanbulPatch, true},
	} {
		v := NewContextVM(callContext(code, 1000000), testHeader, tt.patch, Config{})
		commitAccount(t, v, selfAddr, 0, 1, code)
		commitAccount(t, v, otherAddr, 0, 0, nil)

		require.NoError(t, v.Fire())
		require.Equal(t, ExitedOk, v.Status().Kind)
		change, ok := findAccount(v.Accounts(), otherAddr)
		assert.Equal(t, tt.removed, ok && !change.Exists, tt.patch.Name)
	}
}

func TestPrecompileCall(t *testing.T) {
	identity := common.BytesToAddress([]byte{4})
	code := program(
		PUSH1, 0x2a, PUSH1, 0x00, MSTORE,
		PUSH1, 0x20, PUSH1, 0x20, // ret
		PUSH1, 0x20, PUSH1, 0x00, // in
		PUSH1, 0x00, PUSH1, 0x04, PUSH2, 0xff, 0xff, CALL,
		PUSH1, 0x20, MLOAD, STOP,
	)
	v := NewContextVM(callContext(code, 1000000), testHeader, params.IstanbulPatch, Config{})
	commitAccount(t, v, selfAddr, 0, 1, code)
	commitNonexist(t, v, identity)

	require.NoError(t, v.Fire())
	require.Equal(t, ExitedOk, v.Status().Kind)
	assert.Equal(t, []uint64{1, 0x2a}, stackOf(v.Current().Stack()))
}

func TestPrecompileNotSupported(t *testing.T) {
	reserved := common.BytesToAddress([]byte{4})
	patch := params.IstanbulPatch.Copy()
	patch.Precompiles[reserved] = nil

	code := program(
		PUSH1, 0x00, PUSH1, 0x00, PUSH1, 0x00, PUSH1, 0x00,
		PUSH1, 0x00, PUSH1, 0x04, PUSH2, 0xff, 0xff, CALL, STOP,
	)
	v := NewContextVM(callContext(code, 1000000), testHeader, patch, Config{})
	commitAccount(t, v, selfAddr, 0, 1, code)
	commitNonexist(t, v, reserved)

	require.NoError(t, v.Fire())
	assert.Equal(t, ExitedNotSupported, v.Status().Kind)
	assert.ErrorIs(t, v.Status().Err, ErrPrecompileNotSupported)
}

func TestContextVMRequireFlow(t *testing.T) {
	code := program(PUSH2, 0xbb, 0xbb, BALANCE, STOP)
	v := NewContextVM(callContext(code, 100000), testHeader, params.IstanbulPatch, Config{})

	var asked []common.Address
	for {
		err := v.Fire()
		if err == nil {
			break
		}
		req, ok := AsRequireError(err)
		require.True(t, ok, "unexpected error %v", err)
		require.Equal(t, RequireAccount, req.Kind)
		asked = append(asked, req.Address)
		switch req.Address {
		case selfAddr:
			commitAccount(t, v, selfAddr, 0, 0, code)
		case otherAddr:
			commitAccount(t, v, otherAddr, 12345, 0, nil)
		}
	}
	assert.Equal(t, []common.Address{selfAddr, otherAddr}, asked)
	assert.Equal(t, []uint64{12345}, stackOf(v.Current().Stack()))
	assert.ErrorIs(t, v.Step(), ErrNotRunning)
	assert.ErrorIs(t, v.CommitAccount(NonexistCommitment{Address: otherAddr}), ErrAlreadyCommitted)
}
