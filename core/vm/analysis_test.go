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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CortexFoundation/stepvm/params"
)

func TestJumpDestAnalysis(t *testing.T) {
	tests := []struct {
		code  []byte
		dests []uint64
	}{
		{nil, nil},
		{[]byte{byte(JUMPDEST)}, []uint64{0}},
		{[]byte{byte(PUSH1), byte(JUMPDEST), byte(JUMPDEST)}, []uint64{2}},
		{[]byte{byte(PUSH2), byte(JUMPDEST), byte(JUMPDEST), byte(JUMPDEST)}, []uint64{3}},
		{append(append([]byte{byte(PUSH32)}, make([]byte, 31)...), byte(JUMPDEST), byte(JUMPDEST)), []uint64{33}},
		// truncated push data at the end of code
		{[]byte{byte(JUMPDEST), byte(PUSH4), byte(JUMPDEST)}, []uint64{0}},
		{[]byte{byte(STOP), byte(JUMPDEST), byte(PUSH1), 0x5b, byte(JUMPDEST)}, []uint64{1, 4}},
	}
	for i, tt := range tests {
		assert.Equal(t, tt.dests, JumpDests(tt.code), "test %d", i)
	}
}

func TestCodeBitmap(t *testing.T) {
	code := append([]byte{byte(PUSH9)}, make([]byte, 9)...)
	code = append(code, byte(ADD))
	bits := codeBitmap(code)
	assert.True(t, bits.codeSegment(0))
	for pc := uint64(1); pc <= 9; pc++ {
		assert.False(t, bits.codeSegment(pc), "pc %d", pc)
	}
	assert.True(t, bits.codeSegment(10))
}

func TestJumpDestCache(t *testing.T) {
	cache, err := NewJumpDestCache(1)
	require.NoError(t, err)

	a, b := common.Hash{1}, common.Hash{2}
	cache.Store(a, BitVec{1})
	got, ok := cache.Load(a)
	assert.True(t, ok)
	assert.Equal(t, BitVec{1}, got)

	cache.Store(b, BitVec{2})
	_, ok = cache.Load(a)
	assert.False(t, ok, "oldest entry evicted")

	_, err = NewJumpDestCache(0)
	assert.Error(t, err)
}

func TestSharedJumpDestCache(t *testing.T) {
	cache, err := NewJumpDestCache(16)
	require.NoError(t, err)

	code := program(PUSH1, 0x04, JUMP, INVALID, JUMPDEST, STOP)
	for i := 0; i < 2; i++ {
		m := NewMachine(callContext(code, 100), testHeader, params.IstanbulPatch, Config{JumpDestCache: cache})
		commitAccount(t, m, selfAddr, 0, 0, code)
		require.NoError(t, m.Fire())
		assert.Equal(t, ExitedOk, m.Status().Kind)
	}
	_, ok := cache.Load(codeHash(code))
	assert.True(t, ok)
}

func TestExecutionJumpDests(t *testing.T) {
	code := program(PUSH1, 0x04, JUMP, INVALID, JUMPDEST, STOP)

	v := NewContextVM(callContext(code, 100), testHeader, params.IstanbulPatch, Config{})
	require.NotNil(t, v.cfg.JumpDestCache)
	root := v.machines[0]
	require.True(t, root.scope.Contract.isCode(4))

	// A second frame of the same execution finds the analysis of the first.
	_, ok := v.cfg.JumpDestCache.Load(codeHash(code))
	assert.True(t, ok)
	sub := newContract(&root.ctx, root.cfg.JumpDestCache)
	_, ok = sub.jumpDests.Load(codeHash(code))
	assert.True(t, ok)

	tx := NewTransactionVM(ValidTransaction{}, testHeader, params.IstanbulPatch, Config{})
	assert.NotNil(t, tx.cfg.JumpDestCache)

	// Standalone machines keep their own analysis.
	a := NewMachine(callContext(code, 100), testHeader, params.IstanbulPatch, Config{})
	b := NewMachine(callContext(code, 100), testHeader, params.IstanbulPatch, Config{})
	require.True(t, a.scope.Contract.isCode(4))
	_, ok = b.scope.Contract.jumpDests.Load(codeHash(code))
	assert.False(t, ok)
}
