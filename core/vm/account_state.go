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
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// accountState is the working view of an account inside a state layer.
type accountState struct {
	exists   bool
	created  bool // created during this execution, so its storage started empty
	nonce    uint64
	balance  uint256.Int
	code     []byte
	codeHash common.Hash
}

func (a *accountState) empty() bool {
	return a.nonce == 0 && a.balance.IsZero() && len(a.code) == 0
}

// stateLayer holds the changes made by one machine on top of its parent.
// A machine that succeeds merges its layer into the parent, a failed one
// drops it. Reads fall through the layers down to the commit cache.
type stateLayer struct {
	parent *stateLayer
	cache  *commitCache

	accounts map[common.Address]*accountState
	storage  map[common.Address]map[common.Hash]common.Hash
	resets   mapset.Set[common.Address] // storage cleared in this layer

	logs     []*types.Log
	suicides mapset.Set[common.Address]
	touched  mapset.Set[common.Address]
	refund   int64
}

func newStateLayer(parent *stateLayer, cache *commitCache) *stateLayer {
	return &stateLayer{
		parent:   parent,
		cache:    cache,
		accounts: make(map[common.Address]*accountState),
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
		resets:   mapset.NewThreadUnsafeSet[common.Address](),
		suicides: mapset.NewThreadUnsafeSet[common.Address](),
		touched:  mapset.NewThreadUnsafeSet[common.Address](),
	}
}

func (s *stateLayer) child() *stateLayer {
	return newStateLayer(s, s.cache)
}

// account returns a read-only view of addr.
func (s *stateLayer) account(addr common.Address) (*accountState, error) {
	for l := s; l != nil; l = l.parent {
		if acc, ok := l.accounts[addr]; ok {
			s.cache.used.Add(addr)
			return acc, nil
		}
	}
	c, err := s.cache.account(addr)
	if err != nil {
		return nil, err
	}
	return &accountState{
		exists:   c.exists,
		nonce:    c.nonce,
		balance:  c.balance,
		code:     c.code,
		codeHash: c.codeHash,
	}, nil
}

// mutable returns a copy of addr owned by this layer.
func (s *stateLayer) mutable(addr common.Address) (*accountState, error) {
	if acc, ok := s.accounts[addr]; ok {
		return acc, nil
	}
	acc, err := s.account(addr)
	if err != nil {
		return nil, err
	}
	cpy := *acc
	s.accounts[addr] = &cpy
	return &cpy, nil
}

func (s *stateLayer) storageAt(addr common.Address, key common.Hash) (common.Hash, error) {
	for l := s; l != nil; l = l.parent {
		if slots, ok := l.storage[addr]; ok {
			if val, ok := slots[key]; ok {
				return val, nil
			}
		}
		if l.resets.Contains(addr) {
			return common.Hash{}, nil
		}
	}
	return s.cache.storageAt(addr, key)
}

// originalStorage returns the value of the slot when the transaction started.
func (s *stateLayer) originalStorage(addr common.Address, key common.Hash) (common.Hash, error) {
	for l := s; l != nil; l = l.parent {
		if l.resets.Contains(addr) {
			return common.Hash{}, nil
		}
	}
	return s.cache.storageAt(addr, key)
}

func (s *stateLayer) setStorage(addr common.Address, key, value common.Hash) {
	slots, ok := s.storage[addr]
	if !ok {
		slots = make(map[common.Hash]common.Hash)
		s.storage[addr] = slots
	}
	slots[key] = value
}

// create turns addr into a fresh contract account keeping its balance.
func (s *stateLayer) create(addr common.Address, nonce uint64) error {
	acc, err := s.mutable(addr)
	if err != nil {
		return err
	}
	*acc = accountState{
		exists:   true,
		created:  true,
		nonce:    nonce,
		balance:  acc.balance,
		codeHash: codeHash(nil),
	}
	delete(s.storage, addr)
	s.resets.Add(addr)
	s.touched.Add(addr)
	return nil
}

func (s *stateLayer) setCode(addr common.Address, code []byte) error {
	acc, err := s.mutable(addr)
	if err != nil {
		return err
	}
	acc.code = code
	acc.codeHash = codeHash(code)
	return nil
}

func (s *stateLayer) transfer(from, to common.Address, value *uint256.Int) error {
	src, err := s.mutable(from)
	if err != nil {
		return err
	}
	dst, err := s.mutable(to)
	if err != nil {
		return err
	}
	if src.balance.Lt(value) {
		return ErrInsufficientBalance
	}
	src.balance.Sub(&src.balance, value)
	dst.balance.Add(&dst.balance, value)
	dst.exists = true
	s.touched.Add(from)
	s.touched.Add(to)
	return nil
}

func (s *stateLayer) addLog(log *types.Log) {
	s.logs = append(s.logs, log)
}

func (s *stateLayer) suicide(addr common.Address) {
	s.suicides.Add(addr)
}

func (s *stateLayer) hasSuicided(addr common.Address) bool {
	for l := s; l != nil; l = l.parent {
		if l.suicides.Contains(addr) {
			return true
		}
	}
	return false
}

func (s *stateLayer) addRefund(gas uint64) { s.refund += int64(gas) }
func (s *stateLayer) subRefund(gas uint64) { s.refund -= int64(gas) }

// merge folds the changes of a successful child into s.
func (s *stateLayer) merge(child *stateLayer) {
	for _, addr := range child.resets.ToSlice() {
		delete(s.storage, addr)
		s.resets.Add(addr)
	}
	for addr, acc := range child.accounts {
		s.accounts[addr] = acc
	}
	for addr, slots := range child.storage {
		for key, val := range slots {
			s.setStorage(addr, key, val)
		}
	}
	s.logs = append(s.logs, child.logs...)
	s.suicides = s.suicides.Union(child.suicides)
	s.touched = s.touched.Union(child.touched)
	s.refund += child.refund
}

// finalise deletes self-destructed accounts and, when clearEmpty is set,
// touched accounts left empty.
func (s *stateLayer) finalise(clearEmpty bool) error {
	for _, addr := range s.suicides.ToSlice() {
		acc, err := s.mutable(addr)
		if err != nil {
			return err
		}
		*acc = accountState{codeHash: codeHash(nil)}
		delete(s.storage, addr)
		s.resets.Add(addr)
	}
	if !clearEmpty {
		return nil
	}
	for _, addr := range s.touched.ToSlice() {
		acc, err := s.account(addr)
		if err != nil {
			return err
		}
		if acc.exists && acc.empty() {
			acc, _ = s.mutable(addr)
			*acc = accountState{codeHash: codeHash(nil)}
			delete(s.storage, addr)
			s.resets.Add(addr)
		}
	}
	return nil
}

// AccountChange is the post-state of one account modified by an execution.
type AccountChange struct {
	Address common.Address
	Exists  bool // false when the account was deleted or never came to exist
	Created bool // storage was reset, Storage is the complete content
	Nonce   uint64
	Balance *uint256.Int
	Code    []byte
	Storage map[common.Hash]common.Hash
}

func (s *stateLayer) changes() []AccountChange {
	addrs := mapset.NewThreadUnsafeSet[common.Address]()
	for addr := range s.accounts {
		addrs.Add(addr)
	}
	for addr := range s.storage {
		addrs.Add(addr)
	}
	for _, addr := range s.resets.ToSlice() {
		addrs.Add(addr)
	}
	out := make([]AccountChange, 0, addrs.Cardinality())
	for _, addr := range addrs.ToSlice() {
		acc, err := s.account(addr)
		if err != nil {
			// storage was written, so the account has been committed
			continue
		}
		change := AccountChange{
			Address: addr,
			Exists:  acc.exists,
			Created: s.resets.Contains(addr),
			Nonce:   acc.nonce,
			Balance: new(uint256.Int).Set(&acc.balance),
			Code:    acc.code,
		}
		if acc.exists {
			change.Storage = make(map[common.Hash]common.Hash, len(s.storage[addr]))
			for key, val := range s.storage[addr] {
				change.Storage[key] = val
			}
		}
		out = append(out, change)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address[:], out[j].Address[:]) < 0
	})
	return out
}
