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
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
)

// JumpDestCache represents the cache of jumpdest analysis results.
type JumpDestCache interface {
	// Load retrieves the cached jumpdest analysis for the given code hash.
	// Returns the BitVec and true if found, or nil and false if not cached.
	Load(codeHash common.Hash) (BitVec, bool)

	// Store saves the jumpdest analysis for the given code hash.
	Store(codeHash common.Hash, vec BitVec)
}

// mapJumpDests is the default implementation of JumpDestCache,
// scoped to one execution.
type mapJumpDests map[common.Hash]BitVec

func newMapJumpDests() JumpDestCache {
	return make(mapJumpDests)
}

func (j mapJumpDests) Load(codeHash common.Hash) (BitVec, bool) {
	vec, ok := j[codeHash]
	return vec, ok
}

func (j mapJumpDests) Store(codeHash common.Hash, vec BitVec) {
	j[codeHash] = vec
}

// lruJumpDests is a size bounded JumpDestCache safe for concurrent use,
// so independent executions can share analysis results.
type lruJumpDests struct {
	cache *lru.Cache
}

// NewJumpDestCache returns a JumpDestCache holding at most size analyses.
func NewJumpDestCache(size int) (JumpDestCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &lruJumpDests{cache: cache}, nil
}

func (j *lruJumpDests) Load(codeHash common.Hash) (BitVec, bool) {
	if v, ok := j.cache.Get(codeHash); ok {
		return v.(BitVec), true
	}
	return nil, false
}

func (j *lruJumpDests) Store(codeHash common.Hash, vec BitVec) {
	j.cache.Add(codeHash, vec)
}
