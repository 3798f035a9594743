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
)

func TestMemoryWords(t *testing.T) {
	mem := NewMemory()
	assert.Equal(t, 0, mem.Len())
	assert.Equal(t, uint64(0), mem.Words())

	mem.Resize(64)
	assert.Equal(t, uint64(2), mem.Words())

	// Resize never shrinks.
	mem.Resize(32)
	assert.Equal(t, 64, mem.Len())

	v := new(uint256.Int).SetBytes([]byte{0xde, 0xad, 0xbe, 0xef})
	mem.StoreWord(32, v)
	assert.Equal(t, v, mem.LoadWord(32))
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, mem.GetPtr(60, 4))

	mem.StoreByte(0, 0xff)
	assert.Equal(t, byte(0xff), mem.Data()[0])
}

func TestMemoryCopies(t *testing.T) {
	mem := NewMemory()
	mem.Resize(32)
	mem.Set(0, 3, []byte{1, 2, 3})

	cpy := mem.GetCopy(0, 3)
	cpy[0] = 9
	assert.Equal(t, byte(1), mem.Data()[0])
	assert.Nil(t, mem.GetCopy(0, 0))
	assert.Nil(t, mem.GetPtr(0, 0))

	assert.Equal(t, []byte{3, 0, 0, 0}, mem.peekPadded(2, 4)[:4])
	assert.Equal(t, []byte{0, 0}, mem.peekPadded(100, 2))
	assert.Equal(t, 32, mem.Len())
}
