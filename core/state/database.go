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
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/CortexFoundation/stepvm/core/vm"
)

// Account is the stored form of an account.
type Account struct {
	Nonce   uint64
	Balance *uint256.Int
	Code    []byte
}

// Reader supplies the pre-state a VM asks for.
type Reader interface {
	// Account returns nil and no error when the account does not exist.
	Account(addr common.Address) (*Account, error)
	Storage(addr common.Address, key common.Hash) (common.Hash, error)
	BlockHash(number uint64) (common.Hash, error)
}

// Database is a Reader that can take the post-state of an execution.
type Database interface {
	Reader
	Apply(changes []vm.AccountChange) error
}

// defaultBlockHash is the hash reported for blocks nobody has stored.
func defaultBlockHash(number uint64) common.Hash {
	return crypto.Keccak256Hash([]byte(strconv.FormatUint(number, 10)))
}

func balanceOf(acc *Account) *uint256.Int {
	if acc.Balance == nil {
		return new(uint256.Int)
	}
	return acc.Balance
}
