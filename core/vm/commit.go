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
	"bytes"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// AccountCommitment is a fact about the pre-state handed to a VM in answer
// to a RequireError. It is one of FullCommitment, NonexistCommitment or
// StorageCommitment.
type AccountCommitment interface {
	CommitAddress() common.Address
}

// FullCommitment supplies an existing account together with its code.
type FullCommitment struct {
	Address common.Address
	Nonce   uint64
	Balance *uint256.Int
	Code    []byte
}

// NonexistCommitment declares that an account does not exist.
type NonexistCommitment struct {
	Address common.Address
}

// StorageCommitment supplies one storage slot of a committed account.
type StorageCommitment struct {
	Address common.Address
	Index   common.Hash
	Value   common.Hash
}

func (c FullCommitment) CommitAddress() common.Address     { return c.Address }
func (c NonexistCommitment) CommitAddress() common.Address { return c.Address }
func (c StorageCommitment) CommitAddress() common.Address  { return c.Address }

type storageKey struct {
	addr common.Address
	key  common.Hash
}

// committedAccount is the pre-state view of an account.
type committedAccount struct {
	exists   bool
	nonce    uint64
	balance  uint256.Int
	code     []byte
	codeHash common.Hash
}

// commitCache holds every fact committed during one execution. It is shared
// by all machines of the execution and survives reverts.
type commitCache struct {
	accounts    map[common.Address]*committedAccount
	storage     map[storageKey]common.Hash
	blockhashes map[uint64]common.Hash
	used        mapset.Set[common.Address]
}

func newCommitCache() *commitCache {
	return &commitCache{
		accounts:    make(map[common.Address]*committedAccount),
		storage:     make(map[storageKey]common.Hash),
		blockhashes: make(map[uint64]common.Hash),
		used:        mapset.NewThreadUnsafeSet[common.Address](),
	}
}

func (c *commitCache) commitAccount(commitment AccountCommitment) error {
	switch cm := commitment.(type) {
	case FullCommitment:
		acc := &committedAccount{
			exists:   true,
			nonce:    cm.Nonce,
			code:     common.CopyBytes(cm.Code),
			codeHash: codeHash(cm.Code),
		}
		if cm.Balance != nil {
			acc.balance.Set(cm.Balance)
		}
		if prev, ok := c.accounts[cm.Address]; ok {
			if !prev.exists || prev.nonce != acc.nonce || !prev.balance.Eq(&acc.balance) || !bytes.Equal(prev.code, acc.code) {
				return fmt.Errorf("%w: account %s", ErrAlreadyCommitted, cm.Address.Hex())
			}
			return nil
		}
		c.accounts[cm.Address] = acc
	case *FullCommitment:
		return c.commitAccount(*cm)
	case NonexistCommitment:
		if prev, ok := c.accounts[cm.Address]; ok {
			if prev.exists {
				return fmt.Errorf("%w: account %s", ErrAlreadyCommitted, cm.Address.Hex())
			}
			return nil
		}
		c.accounts[cm.Address] = &committedAccount{codeHash: codeHash(nil)}
	case *NonexistCommitment:
		return c.commitAccount(*cm)
	case StorageCommitment:
		acc, ok := c.accounts[cm.Address]
		if !ok || !acc.exists {
			return fmt.Errorf("%w: storage of uncommitted account %s", ErrInvalidCommitment, cm.Address.Hex())
		}
		key := storageKey{cm.Address, cm.Index}
		if prev, ok := c.storage[key]; ok {
			if prev != cm.Value {
				return fmt.Errorf("%w: storage %s[%s]", ErrAlreadyCommitted, cm.Address.Hex(), cm.Index.Hex())
			}
			return nil
		}
		c.storage[key] = cm.Value
	case *StorageCommitment:
		return c.commitAccount(*cm)
	default:
		return fmt.Errorf("%w: unknown commitment %T", ErrInvalidCommitment, commitment)
	}
	return nil
}

func (c *commitCache) commitBlockhash(number uint64, hash common.Hash) error {
	if prev, ok := c.blockhashes[number]; ok {
		if prev != hash {
			return fmt.Errorf("%w: blockhash %d", ErrAlreadyCommitted, number)
		}
		return nil
	}
	c.blockhashes[number] = hash
	return nil
}

// account returns the committed account or asks for it.
func (c *commitCache) account(addr common.Address) (*committedAccount, error) {
	c.used.Add(addr)
	acc, ok := c.accounts[addr]
	if !ok {
		return nil, requireAccount(addr)
	}
	return acc, nil
}

// storageAt returns the committed slot of an account, zero for accounts that
// do not exist.
func (c *commitCache) storageAt(addr common.Address, key common.Hash) (common.Hash, error) {
	acc, err := c.account(addr)
	if err != nil {
		return common.Hash{}, err
	}
	if !acc.exists {
		return common.Hash{}, nil
	}
	val, ok := c.storage[storageKey{addr, key}]
	if !ok {
		return common.Hash{}, requireStorage(addr, key)
	}
	return val, nil
}

func (c *commitCache) blockhash(number uint64) (common.Hash, error) {
	hash, ok := c.blockhashes[number]
	if !ok {
		return common.Hash{}, requireBlockhash(number)
	}
	return hash, nil
}
