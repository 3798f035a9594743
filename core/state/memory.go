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

package state

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/CortexFoundation/stepvm/core/vm"
)

type memAccount struct {
	Account
	storage map[common.Hash]common.Hash
}

// MemoryDatabase is an in-memory Database, safe for concurrent use.
type MemoryDatabase struct {
	accounts    map[common.Address]*memAccount
	blockhashes map[uint64]common.Hash
	lock        sync.RWMutex
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		accounts:    make(map[common.Address]*memAccount),
		blockhashes: make(map[uint64]common.Hash),
	}
}

func (db *MemoryDatabase) Account(addr common.Address) (*Account, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	acc, ok := db.accounts[addr]
	if !ok {
		return nil, nil
	}
	return &Account{
		Nonce:   acc.Nonce,
		Balance: new(uint256.Int).Set(balanceOf(&acc.Account)),
		Code:    common.CopyBytes(acc.Code),
	}, nil
}

func (db *MemoryDatabase) Storage(addr common.Address, key common.Hash) (common.Hash, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if acc, ok := db.accounts[addr]; ok {
		return acc.storage[key], nil
	}
	return common.Hash{}, nil
}

func (db *MemoryDatabase) BlockHash(number uint64) (common.Hash, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if hash, ok := db.blockhashes[number]; ok {
		return hash, nil
	}
	return defaultBlockHash(number), nil
}

// SetAccount creates or replaces an account, keeping its storage.
func (db *MemoryDatabase) SetAccount(addr common.Address, acc Account) {
	db.lock.Lock()
	defer db.lock.Unlock()

	obj := db.getOrNew(addr)
	obj.Nonce = acc.Nonce
	obj.Balance = new(uint256.Int).Set(balanceOf(&acc))
	obj.Code = common.CopyBytes(acc.Code)
}

// SetStorage writes one slot, creating an empty account when needed.
func (db *MemoryDatabase) SetStorage(addr common.Address, key, value common.Hash) {
	db.lock.Lock()
	defer db.lock.Unlock()

	obj := db.getOrNew(addr)
	if value == (common.Hash{}) {
		delete(obj.storage, key)
		return
	}
	obj.storage[key] = value
}

func (db *MemoryDatabase) SetBlockHash(number uint64, hash common.Hash) {
	db.lock.Lock()
	defer db.lock.Unlock()

	db.blockhashes[number] = hash
}

func (db *MemoryDatabase) getOrNew(addr common.Address) *memAccount {
	obj, ok := db.accounts[addr]
	if !ok {
		obj = &memAccount{
			Account: Account{Balance: new(uint256.Int)},
			storage: make(map[common.Hash]common.Hash),
		}
		db.accounts[addr] = obj
	}
	return obj
}

// Apply writes the post-state of an execution.
func (db *MemoryDatabase) Apply(changes []vm.AccountChange) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	for _, change := range changes {
		if !change.Exists {
			delete(db.accounts, change.Address)
			continue
		}
		obj := db.getOrNew(change.Address)
		if change.Created {
			obj.storage = make(map[common.Hash]common.Hash)
		}
		obj.Nonce = change.Nonce
		obj.Balance = new(uint256.Int).Set(change.Balance)
		obj.Code = common.CopyBytes(change.Code)
		for key, val := range change.Storage {
			if val == (common.Hash{}) {
				delete(obj.storage, key)
			} else {
				obj.storage[key] = val
			}
		}
	}
	return nil
}

// RawDump returns the whole content of the database.
func (db *MemoryDatabase) RawDump() Dump {
	db.lock.RLock()
	defer db.lock.RUnlock()

	dump := Dump{Accounts: make(map[common.Address]DumpAccount, len(db.accounts))}
	for addr, acc := range db.accounts {
		dump.Accounts[addr] = newDumpAccount(&acc.Account, acc.storage)
	}
	return dump
}

// Dump returns the content of the database as indented JSON.
func (db *MemoryDatabase) Dump() []byte {
	return db.RawDump().JSON()
}
