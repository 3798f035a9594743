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
	"encoding/binary"
	"errors"
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/CortexFoundation/stepvm/core/vm"
)

const (
	// minCache is the minimum amount of memory in megabytes to allocate to
	// leveldb read and write caching, and to the read cache in front of it.
	minCache = 16

	// minHandles is the minimum number of files handles to allocate to the
	// open database files.
	minHandles = 16
)

var (
	accountPrefix   = []byte("a") // accountPrefix + address -> rlp(storedAccount)
	storagePrefix   = []byte("s") // storagePrefix + address + key -> trimmed value
	codePrefix      = []byte("c") // codePrefix + code hash -> code
	blockHashPrefix = []byte("h") // blockHashPrefix + num (uint64 big endian) -> hash
)

type storedAccount struct {
	Nonce    uint64
	Balance  *uint256.Int
	CodeHash common.Hash
}

// LevelDatabase is a persistent Database backed by leveldb, with a read
// cache for accounts and storage slots.
type LevelDatabase struct {
	db    *leveldb.DB
	cache *fastcache.Cache

	lock sync.Mutex // serialises writers
}

// NewLevelDatabase opens or creates the database at file, using cache
// megabytes for caching.
func NewLevelDatabase(file string, cache int, handles int) (*LevelDatabase, error) {
	if cache < minCache {
		cache = minCache
	}
	if handles < minHandles {
		handles = minHandles
	}
	log.Info("Allocated cache and file handles", "database", file, "cache", common.StorageSize(cache*1024*1024), "handles", handles)

	db, err := leveldb.OpenFile(file, &opt.Options{
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	})
	var corrupted *lerrors.ErrCorrupted
	if errors.As(err, &corrupted) {
		db, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}
	return newLevelDatabase(db, cache), nil
}

func newLevelDatabase(db *leveldb.DB, cache int) *LevelDatabase {
	if cache < minCache {
		cache = minCache
	}
	return &LevelDatabase{
		db:    db,
		cache: fastcache.New(cache * 1024 * 1024),
	}
}

func accountKey(addr common.Address) []byte {
	return append(common.CopyBytes(accountPrefix), addr.Bytes()...)
}

func storageKey(addr common.Address, key common.Hash) []byte {
	out := make([]byte, 0, len(storagePrefix)+common.AddressLength+common.HashLength)
	out = append(out, storagePrefix...)
	out = append(out, addr.Bytes()...)
	return append(out, key.Bytes()...)
}

func codeKey(hash common.Hash) []byte {
	return append(common.CopyBytes(codePrefix), hash.Bytes()...)
}

func blockHashKey(number uint64) []byte {
	var enc [8]byte
	binary.BigEndian.PutUint64(enc[:], number)
	return append(common.CopyBytes(blockHashPrefix), enc[:]...)
}

// get reads key through the cache. A missing key reads as empty.
func (db *LevelDatabase) get(key []byte) ([]byte, error) {
	if enc, ok := db.cache.HasGet(nil, key); ok {
		return enc, nil
	}
	enc, err := db.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		enc, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	db.cache.Set(key, enc)
	return enc, nil
}

func (db *LevelDatabase) Account(addr common.Address) (*Account, error) {
	enc, err := db.get(accountKey(addr))
	if err != nil || len(enc) == 0 {
		return nil, err
	}
	var stored storedAccount
	if err := rlp.DecodeBytes(enc, &stored); err != nil {
		return nil, err
	}
	acc := &Account{Nonce: stored.Nonce, Balance: stored.Balance}
	if stored.CodeHash != types.EmptyCodeHash {
		code, err := db.db.Get(codeKey(stored.CodeHash), nil)
		if err != nil {
			return nil, err
		}
		acc.Code = code
	}
	return acc, nil
}

func (db *LevelDatabase) Storage(addr common.Address, key common.Hash) (common.Hash, error) {
	enc, err := db.get(storageKey(addr, key))
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(enc), nil
}

func (db *LevelDatabase) BlockHash(number uint64) (common.Hash, error) {
	enc, err := db.db.Get(blockHashKey(number), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return defaultBlockHash(number), nil
	}
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(enc), nil
}

func (db *LevelDatabase) SetBlockHash(number uint64, hash common.Hash) error {
	return db.db.Put(blockHashKey(number), hash.Bytes(), nil)
}

// Apply writes the post-state of an execution in one batch.
func (db *LevelDatabase) Apply(changes []vm.AccountChange) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	var (
		batch = new(leveldb.Batch)
		stale [][]byte
	)
	for _, change := range changes {
		key := accountKey(change.Address)
		stale = append(stale, key)

		if !change.Exists || change.Created {
			stale = append(stale, db.clearStorage(batch, change.Address)...)
		}
		if !change.Exists {
			batch.Delete(key)
			continue
		}
		hash := crypto.Keccak256Hash(change.Code)
		if len(change.Code) > 0 {
			batch.Put(codeKey(hash), change.Code)
		}
		enc, err := rlp.EncodeToBytes(&storedAccount{
			Nonce:    change.Nonce,
			Balance:  change.Balance,
			CodeHash: hash,
		})
		if err != nil {
			return err
		}
		batch.Put(key, enc)

		for slot, val := range change.Storage {
			skey := storageKey(change.Address, slot)
			stale = append(stale, skey)
			if val == (common.Hash{}) {
				batch.Delete(skey)
			} else {
				batch.Put(skey, common.TrimLeftZeroes(val[:]))
			}
		}
	}
	if err := db.db.Write(batch, nil); err != nil {
		return err
	}
	for _, key := range stale {
		db.cache.Del(key)
	}
	log.Debug("Applied state changes", "accounts", len(changes), "ops", batch.Len())
	return nil
}

// clearStorage queues the deletion of every stored slot of addr and
// returns the deleted keys.
func (db *LevelDatabase) clearStorage(batch *leveldb.Batch, addr common.Address) [][]byte {
	var (
		prefix = append(common.CopyBytes(storagePrefix), addr.Bytes()...)
		it     = db.db.NewIterator(util.BytesPrefix(prefix), nil)
		keys   [][]byte
	)
	defer it.Release()

	for it.Next() {
		key := common.CopyBytes(it.Key())
		batch.Delete(key)
		keys = append(keys, key)
	}
	return keys
}

// RawDump returns the whole content of the database.
func (db *LevelDatabase) RawDump() (Dump, error) {
	dump := Dump{Accounts: make(map[common.Address]DumpAccount)}

	it := db.db.NewIterator(util.BytesPrefix(accountPrefix), nil)
	defer it.Release()
	for it.Next() {
		addr := common.BytesToAddress(it.Key()[len(accountPrefix):])
		acc, err := db.Account(addr)
		if err != nil {
			return Dump{}, err
		}
		storage := make(map[common.Hash]common.Hash)
		sit := db.db.NewIterator(util.BytesPrefix(append(common.CopyBytes(storagePrefix), addr.Bytes()...)), nil)
		for sit.Next() {
			key := common.BytesToHash(sit.Key()[len(storagePrefix)+common.AddressLength:])
			storage[key] = common.BytesToHash(sit.Value())
		}
		sit.Release()
		if err := sit.Error(); err != nil {
			return Dump{}, err
		}
		dump.Accounts[addr] = newDumpAccount(acc, storage)
	}
	return dump, it.Error()
}

// Close flushes and closes the database.
func (db *LevelDatabase) Close() error {
	db.cache.Reset()
	return db.db.Close()
}
