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
	"errors"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common"
	fuzz "github.com/google/gofuzz"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CortexFoundation/stepvm/params"
)

func newTestMachine(t *testing.T, code []byte, gas uint64, patch *params.Patch) *Machine {
	t.Helper()
	m := NewMachine(callContext(code, gas), testHeader, patch, Config{})
	commitAccount(t, m, selfAddr, 0, 0, code)
	return m
}

func TestMachineAdd(t *testing.T) {
	code := program(PUSH1, 0x05, PUSH1, 0x03, ADD, STOP)
	m := newTestMachine(t, code, 100000, params.IstanbulPatch)

	require.NoError(t, m.Fire())
	assert.Equal(t, ExitedOk, m.Status().Kind)
	assert.Equal(t, []uint64{8}, stackOf(m.Stack()))
	assert.Equal(t, 3*GasFastestStep, m.UsedGas())
	assert.Equal(t, 0, m.Memory().Len())
}

func TestMachineMemoryExpansion(t *testing.T) {
	code := program(PUSH1, 0x00, PUSH1, 0x20, MSTORE)
	m := newTestMachine(t, code, 100000, params.IstanbulPatch)

	require.NoError(t, m.Fire())
	assert.Equal(t, ExitedOk, m.Status().Kind)
	assert.Equal(t, 64, m.Memory().Len())
	// two pushes, MSTORE and memcost(2) - memcost(0)
	assert.Equal(t, 3*GasFastestStep+6, m.UsedGas())
	assert.Equal(t, uint64(6), MemoryExpansionCost(0, 2))
}

func TestMachineRequireStorage(t *testing.T) {
	for _, patch := range []*params.Patch{params.FrontierPatch, params.IstanbulPatch} {
		code := program(PUSH1, 0x01, SLOAD, STOP)
		m := newTestMachine(t, code, 100000, patch)

		require.NoError(t, m.Step())
		gas, pc := m.Gas(), m.PC()

		err := m.Step()
		req, ok := AsRequireError(err)
		require.True(t, ok, "want require error, have %v", err)
		assert.Equal(t, RequireAccountStorage, req.Kind)
		assert.Equal(t, selfAddr, req.Address)
		assert.Equal(t, common.BigToHash(uint256.NewInt(1).ToBig()), req.Key)
		// nothing moved
		assert.Equal(t, gas, m.Gas())
		assert.Equal(t, pc, m.PC())
		assert.Equal(t, Running, m.Status().Kind)

		commitSlot(t, m, selfAddr, 1, 0x2a)
		require.NoError(t, m.Step())
		assert.Equal(t, gas-patch.GasSload(), m.Gas())
		assert.Equal(t, []uint64{0x2a}, stackOf(m.Stack()))

		require.NoError(t, m.Fire())
		assert.Equal(t, ExitedOk, m.Status().Kind)
	}
}

func TestMachineExpZero(t *testing.T) {
	for _, base := range []int{0x00, 0x07, 0xff} {
		code := program(PUSH1, 0x00, PUSH1, base, EXP)
		m := newTestMachine(t, code, 100000, params.IstanbulPatch)

		require.NoError(t, m.Fire())
		assert.Equal(t, []uint64{1}, stackOf(m.Stack()))
		assert.Equal(t, 2*GasFastestStep+params.ExpGas, m.UsedGas())
	}
}

func TestMachineJumps(t *testing.T) {
	tests := []struct {
		name  string
		code  []byte
		err   error
		stack []uint64
	}{
		{
			name:  "valid jump",
			code:  program(PUSH1, 0x04, JUMP, STOP, JUMPDEST, PUSH1, 0x01, STOP),
			stack: []uint64{1},
		},
		{
			name: "not a jumpdest",
			code: program(PUSH1, 0x03, JUMP, STOP),
			err:  ErrInvalidJump,
		},
		{
			name: "jumpdest in push data",
			code: program(PUSH1, 0x04, JUMP, PUSH1, JUMPDEST, STOP),
			err:  ErrInvalidJump,
		},
		{
			name:  "jumpi not taken",
			code:  program(PUSH1, 0x00, PUSH1, 0x03, JUMPI, PUSH1, 0x02, STOP),
			stack: []uint64{2},
		},
		{
			name: "jump past the end",
			code: program(PUSH2, 0xff, 0xff, JUMP),
			err:  ErrInvalidJump,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, tt.code, 100000, params.IstanbulPatch)
			require.NoError(t, m.Fire())
			if tt.err != nil {
				assert.Equal(t, ExitedErr, m.Status().Kind)
				assert.ErrorIs(t, m.Status().Err, tt.err)
				assert.Equal(t, uint64(0), m.Gas(), "failed machine keeps no gas")
				return
			}
			assert.Equal(t, ExitedOk, m.Status().Kind)
			assert.Equal(t, tt.stack, stackOf(m.Stack()))
		})
	}
}

func TestMachineFailures(t *testing.T) {
	t.Run("underflow", func(t *testing.T) {
		m := newTestMachine(t, program(PUSH1, 0x01, ADD), 100000, params.IstanbulPatch)
		require.NoError(t, m.Fire())
		var underflow *ErrStackUnderflow
		require.True(t, errors.As(m.Status().Err, &underflow), spew.Sdump(m.Status()))
		assert.True(t, IsOnChainError(m.Status().Err))
	})
	t.Run("overflow", func(t *testing.T) {
		code := make([]byte, 0, 2*1025)
		for i := 0; i < 1025; i++ {
			code = append(code, byte(PUSH1), 0x01)
		}
		m := newTestMachine(t, code, 1000000, params.IstanbulPatch)
		require.NoError(t, m.Fire())
		var overflow *ErrStackOverflow
		require.True(t, errors.As(m.Status().Err, &overflow), spew.Sdump(m.Status()))
		assert.Equal(t, 1024, m.Stack().Len())
	})
	t.Run("invalid opcode", func(t *testing.T) {
		m := newTestMachine(t, program(INVALID), 100000, params.IstanbulPatch)
		require.NoError(t, m.Fire())
		var invalid *ErrInvalidOpCode
		require.True(t, errors.As(m.Status().Err, &invalid))
	})
	t.Run("opcode of a later fork", func(t *testing.T) {
		m := newTestMachine(t, program(PUSH1, 0x01, PUSH1, 0x01, SHL), 100000, params.ByzantiumPatch)
		require.NoError(t, m.Fire())
		var invalid *ErrInvalidOpCode
		require.True(t, errors.As(m.Status().Err, &invalid))
	})
	t.Run("out of gas", func(t *testing.T) {
		m := newTestMachine(t, program(PUSH1, 0x01, PUSH1, 0x01, ADD), 7, params.IstanbulPatch)
		require.NoError(t, m.Fire())
		assert.ErrorIs(t, m.Status().Err, ErrOutOfGas)
		assert.Equal(t, uint64(7), m.UsedGas())
	})
	t.Run("huge memory offset", func(t *testing.T) {
		m := newTestMachine(t, program(PUSH1, 0x00, PUSH8, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, MSTORE), 100000, params.IstanbulPatch)
		require.NoError(t, m.Fire())
		assert.ErrorIs(t, m.Status().Err, ErrOutOfGas)
	})
	t.Run("static write", func(t *testing.T) {
		ctx := callContext(program(PUSH1, 0x01, PUSH1, 0x00, SSTORE), 100000)
		ctx.IsStatic = true
		m := NewMachine(ctx, testHeader, params.IstanbulPatch, Config{})
		commitAccount(t, m, selfAddr, 0, 0, ctx.Code)
		require.NoError(t, m.Fire())
		assert.ErrorIs(t, m.Status().Err, ErrWriteProtection)
	})
	t.Run("step after exit", func(t *testing.T) {
		m := newTestMachine(t, program(STOP), 100000, params.IstanbulPatch)
		require.NoError(t, m.Fire())
		assert.ErrorIs(t, m.Step(), ErrNotRunning)
	})
}

func TestMachineMemoryLimit(t *testing.T) {
	patch := params.IstanbulPatch.Copy()
	patch.MemoryLimit = 1024
	m := newTestMachine(t, program(PUSH1, 0x01, PUSH2, 0x04, 0x00, MSTORE), 100000, patch)

	require.NoError(t, m.Fire())
	assert.Equal(t, ExitedNotSupported, m.Status().Kind)
	assert.True(t, IsNotSupportedError(m.Status().Err))
}

func TestMachineEnvironment(t *testing.T) {
	code := program(ADDRESS, CALLER, ORIGIN, CALLVALUE, NUMBER, TIMESTAMP, GASLIMIT, CHAINID, CODESIZE, PC)
	ctx := callContext(code, 100000)
	ctx.ApparentValue = uint256.NewInt(77)
	m := NewMachine(ctx, testHeader, params.IstanbulPatch, Config{})
	commitAccount(t, m, selfAddr, 0, 0, code)

	require.NoError(t, m.Fire())
	require.Equal(t, ExitedOk, m.Status().Kind)

	want := []uint64{
		new(uint256.Int).SetBytes(selfAddr.Bytes()).Uint64(),
		new(uint256.Int).SetBytes(callerAddr.Bytes()).Uint64(),
		new(uint256.Int).SetBytes(callerAddr.Bytes()).Uint64(),
		77,
		testHeader.Number,
		testHeader.Timestamp,
		testHeader.GasLimit,
		params.IstanbulPatch.ChainID,
		uint64(len(code)),
		9,
	}
	assert.Equal(t, want, stackOf(m.Stack()))
}

func TestMachineBlockhash(t *testing.T) {
	code := program(PUSH2, 0x03, 0xe7, BLOCKHASH, PUSH2, 0x03, 0xe8, BLOCKHASH)
	m := newTestMachine(t, code, 100000, params.IstanbulPatch)

	require.NoError(t, m.Step())
	err := m.Step()
	req, ok := AsRequireError(err)
	require.True(t, ok, "want require error, have %v", err)
	assert.Equal(t, RequireBlockhash, req.Kind)
	assert.Equal(t, uint64(999), req.Number)

	hash := common.HexToHash("0x1234")
	require.NoError(t, m.CommitBlockhash(999, hash))
	require.ErrorIs(t, m.CommitBlockhash(999, common.HexToHash("0x99")), ErrAlreadyCommitted)
	require.NoError(t, m.Fire())

	// the current block is out of range and reads as zero
	assert.Equal(t, []uint64{0x1234, 0}, stackOf(m.Stack()))
}

func TestMachineKeccak(t *testing.T) {
	code := program(PUSH1, 0x00, PUSH1, 0x00, KECCAK256)
	m := newTestMachine(t, code, 100000, params.IstanbulPatch)
	require.NoError(t, m.Fire())

	top, err := m.Stack().Peek(0)
	require.NoError(t, err)
	// keccak256 of the empty string
	assert.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", top.Hex())
	assert.Equal(t, 2*GasFastestStep+params.Sha3Gas, m.UsedGas())
}

// A machine only depends on its inputs.
func TestMachineDeterminism(t *testing.T) {
	f := fuzz.New().NilChance(0).NumElements(1, 64)
	for i := 0; i < 200; i++ {
		var code []byte
		f.Fuzz(&code)

		run := func() *Machine {
			m := NewMachine(callContext(code, 50000), testHeader, params.IstanbulPatch, Config{})
			commitAccount(t, m, selfAddr, 0, 0, code)
			for m.Status().Kind == Running {
				err := m.Step()
				if req, ok := AsRequireError(err); ok {
					switch req.Kind {
					case RequireAccount:
						commitNonexist(t, m, req.Address)
					case RequireAccountStorage:
						require.NoError(t, m.CommitAccount(StorageCommitment{Address: req.Address, Index: req.Key}))
					case RequireBlockhash:
						require.NoError(t, m.CommitBlockhash(req.Number, common.Hash{}))
					}
					continue
				}
				require.NoError(t, err)
				require.LessOrEqual(t, m.Stack().Len(), int(params.StackLimit))
				require.Zero(t, m.Memory().Len()%32)
			}
			return m
		}
		a, b := run(), run()
		require.Equal(t, a.Status(), b.Status(), "code %x", code)
		require.Equal(t, a.UsedGas(), b.UsedGas(), "code %x", code)
		require.Equal(t, a.Stack().Data(), b.Stack().Data(), "code %x", code)
		require.Equal(t, a.Memory().Data(), b.Memory().Data(), "code %x", code)
		require.LessOrEqual(t, a.UsedGas(), uint64(50000))
	}
}
