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
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitAccountTwice(t *testing.T) {
	c := newCommitCache()
	full := FullCommitment{Address: otherAddr, Nonce: 1, Balance: uint256.NewInt(10), Code: []byte{0x00}}
	require.NoError(t, c.commitAccount(full))

	// The same fact again is accepted.
	require.NoError(t, c.commitAccount(&full))

	changed := full
	changed.Balance = uint256.NewInt(11)
	assert.ErrorIs(t, c.commitAccount(changed), ErrAlreadyCommitted)
	assert.ErrorIs(t, c.commitAccount(NonexistCommitment{Address: otherAddr}), ErrAlreadyCommitted)

	require.NoError(t, c.commitAccount(NonexistCommitment{Address: selfAddr}))
	require.NoError(t, c.commitAccount(NonexistCommitment{Address: selfAddr}))
	assert.ErrorIs(t, c.commitAccount(FullCommitment{Address: selfAddr}), ErrAlreadyCommitted)
}

func TestCommitStorage(t *testing.T) {
	c := newCommitCache()
	key := common.Hash{1}

	// Storage needs its account first.
	err := c.commitAccount(StorageCommitment{Address: otherAddr, Index: key, Value: common.Hash{2}})
	assert.ErrorIs(t, err, ErrInvalidCommitment)

	require.NoError(t, c.commitAccount(NonexistCommitment{Address: otherAddr}))
	err = c.commitAccount(StorageCommitment{Address: otherAddr, Index: key, Value: common.Hash{2}})
	assert.ErrorIs(t, err, ErrInvalidCommitment)

	// A nonexistent account has empty storage without asking.
	val, err := c.storageAt(otherAddr, key)
	require.NoError(t, err)
	assert.Equal(t, common.Hash{}, val)

	require.NoError(t, c.commitAccount(FullCommitment{Address: selfAddr}))
	_, err = c.storageAt(selfAddr, key)
	req, ok := AsRequireError(err)
	require.True(t, ok)
	assert.Equal(t, RequireAccountStorage, req.Kind)
	assert.Equal(t, selfAddr, req.Address)
	assert.Equal(t, key, req.Key)

	require.NoError(t, c.commitAccount(StorageCommitment{Address: selfAddr, Index: key, Value: common.Hash{2}}))
	require.NoError(t, c.commitAccount(StorageCommitment{Address: selfAddr, Index: key, Value: common.Hash{2}}))
	err = c.commitAccount(StorageCommitment{Address: selfAddr, Index: key, Value: common.Hash{3}})
	assert.ErrorIs(t, err, ErrAlreadyCommitted)

	val, err = c.storageAt(selfAddr, key)
	require.NoError(t, err)
	assert.Equal(t, common.Hash{2}, val)
}

func TestCommitBlockhash(t *testing.T) {
	c := newCommitCache()
	_, err := c.blockhash(999)
	req, ok := AsRequireError(err)
	require.True(t, ok)
	assert.Equal(t, RequireBlockhash, req.Kind)
	assert.Equal(t, uint64(999), req.Number)

	require.NoError(t, c.commitBlockhash(999, common.Hash{9}))
	require.NoError(t, c.commitBlockhash(999, common.Hash{9}))
	assert.ErrorIs(t, c.commitBlockhash(999, common.Hash{8}), ErrAlreadyCommitted)

	hash, err := c.blockhash(999)
	require.NoError(t, err)
	assert.Equal(t, common.Hash{9}, hash)
}

func TestCommitRecordsUsedAddresses(t *testing.T) {
	c := newCommitCache()
	_, err := c.account(otherAddr)
	_, ok := AsRequireError(err)
	assert.True(t, ok)
	assert.True(t, c.used.Contains(otherAddr), "asked addresses count as used")
}

func TestCommitUnknown(t *testing.T) {
	c := newCommitCache()
	assert.ErrorIs(t, c.commitAccount(nil), ErrInvalidCommitment)
}
