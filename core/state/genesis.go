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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"

	"github.com/CortexFoundation/stepvm/core/vm"
)

var errBalanceOverflow = errors.New("balance exceeds 256 bits")

// GenesisAccount is an account in the state of the genesis block.
type GenesisAccount struct {
	Code    hexutil.Bytes               `json:"code,omitempty"`
	Storage map[common.Hash]common.Hash `json:"storage,omitempty"`
	Balance *math.HexOrDecimal256       `json:"balance"`
	Nonce   math.HexOrDecimal64         `json:"nonce,omitempty"`
}

// GenesisAlloc specifies the initial state that is part of the genesis block.
type GenesisAlloc map[common.Address]GenesisAccount

// ReadGenesisAlloc decodes either a bare allocation or a genesis document
// carrying one under "alloc".
func ReadGenesisAlloc(r io.Reader) (GenesisAlloc, error) {
	blob, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var genesis struct {
		Alloc GenesisAlloc `json:"alloc"`
	}
	if err := json.NewDecoder(bytes.NewReader(blob)).Decode(&genesis); err == nil && genesis.Alloc != nil {
		return genesis.Alloc, nil
	}
	var alloc GenesisAlloc
	if err := json.Unmarshal(blob, &alloc); err != nil {
		return nil, fmt.Errorf("invalid genesis alloc: %w", err)
	}
	return alloc, nil
}

// LoadGenesisAlloc reads an allocation from a JSON file.
func LoadGenesisAlloc(file string) (GenesisAlloc, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGenesisAlloc(f)
}

// Changes returns the allocation as post-state changes, sorted by address.
func (ga GenesisAlloc) Changes() ([]vm.AccountChange, error) {
	changes := make([]vm.AccountChange, 0, len(ga))
	for addr, account := range ga {
		balance := new(uint256.Int)
		if account.Balance != nil {
			var overflow bool
			if balance, overflow = uint256.FromBig((*big.Int)(account.Balance)); overflow {
				return nil, fmt.Errorf("account %s: %w", addr.Hex(), errBalanceOverflow)
			}
		}
		change := vm.AccountChange{
			Address: addr,
			Exists:  true,
			Created: true,
			Nonce:   uint64(account.Nonce),
			Balance: balance,
			Code:    account.Code,
			Storage: make(map[common.Hash]common.Hash, len(account.Storage)),
		}
		for key, val := range account.Storage {
			change.Storage[key] = val
		}
		changes = append(changes, change)
	}
	sort.Slice(changes, func(i, j int) bool {
		return bytes.Compare(changes[i].Address[:], changes[j].Address[:]) < 0
	})
	return changes, nil
}

// Commit writes the allocation into db.
func (ga GenesisAlloc) Commit(db Database) error {
	changes, err := ga.Changes()
	if err != nil {
		return err
	}
	return db.Apply(changes)
}
