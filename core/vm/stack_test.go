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

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CortexFoundation/stepvm/params"
)

func TestStackOperations(t *testing.T) {
	st := NewStack()
	defer returnStack(st)

	for i := uint64(1); i <= 4; i++ {
		require.NoError(t, st.Push(uint256.NewInt(i)))
	}
	assert.Equal(t, []uint64{1, 2, 3, 4}, stackOf(st))

	top, err := st.Peek(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), top.Uint64())

	require.NoError(t, st.Dup(2))
	assert.Equal(t, []uint64{1, 2, 3, 4, 2}, stackOf(st))

	require.NoError(t, st.Swap(4))
	assert.Equal(t, []uint64{2, 2, 3, 4, 1}, stackOf(st))

	require.NoError(t, st.Set(1, uint256.NewInt(9)))
	assert.Equal(t, []uint64{2, 2, 3, 9, 1}, stackOf(st))

	v, err := st.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v.Uint64())
	assert.Equal(t, 4, st.Len())
}

func TestStackErrors(t *testing.T) {
	st := NewStack()
	defer returnStack(st)

	_, err := st.Pop()
	var underflow *ErrStackUnderflow
	assert.ErrorAs(t, err, &underflow)

	_, err = st.Peek(0)
	assert.ErrorAs(t, err, &underflow)
	assert.ErrorAs(t, st.Set(0, uint256.NewInt(1)), &underflow)
	assert.ErrorAs(t, st.Dup(0), &underflow)

	require.NoError(t, st.Push(uint256.NewInt(1)))
	assert.ErrorAs(t, st.Swap(1), &underflow)
	assert.ErrorAs(t, st.Swap(0), &underflow)

	for st.Len() < int(params.StackLimit) {
		require.NoError(t, st.Push(uint256.NewInt(7)))
	}
	var overflow *ErrStackOverflow
	assert.ErrorAs(t, st.Push(uint256.NewInt(1)), &overflow)
	assert.ErrorAs(t, st.Dup(0), &overflow)
	assert.Equal(t, int(params.StackLimit), st.Len())
}

func TestStackPushCopies(t *testing.T) {
	st := NewStack()
	defer returnStack(st)

	v := uint256.NewInt(5)
	require.NoError(t, st.Push(v))
	v.SetUint64(6)
	assert.Equal(t, []uint64{5}, stackOf(st))
}
