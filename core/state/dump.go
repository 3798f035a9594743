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
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/CortexFoundation/stepvm/core/vm"
)

type DumpAccount struct {
	Balance  string                      `json:"balance"`
	Nonce    uint64                      `json:"nonce"`
	CodeHash common.Hash                 `json:"codeHash"`
	Code     hexutil.Bytes               `json:"code,omitempty"`
	Storage  map[common.Hash]common.Hash `json:"storage,omitempty"`
	Deleted  bool                        `json:"deleted,omitempty"`
}

type Dump struct {
	Accounts map[common.Address]DumpAccount `json:"accounts"`
}

func newDumpAccount(acc *Account, storage map[common.Hash]common.Hash) DumpAccount {
	dump := DumpAccount{
		Balance:  balanceOf(acc).Dec(),
		Nonce:    acc.Nonce,
		CodeHash: crypto.Keccak256Hash(acc.Code),
		Code:     acc.Code,
	}
	if len(storage) > 0 {
		dump.Storage = make(map[common.Hash]common.Hash, len(storage))
		for key, val := range storage {
			dump.Storage[key] = val
		}
	}
	return dump
}

// DumpChanges renders the post-state of an execution.
func DumpChanges(changes []vm.AccountChange) Dump {
	dump := Dump{Accounts: make(map[common.Address]DumpAccount, len(changes))}
	for _, change := range changes {
		if !change.Exists {
			dump.Accounts[change.Address] = DumpAccount{Balance: "0", Deleted: true}
			continue
		}
		acc := &Account{Nonce: change.Nonce, Balance: change.Balance, Code: change.Code}
		dump.Accounts[change.Address] = newDumpAccount(acc, change.Storage)
	}
	return dump
}

// JSON returns the dump as indented JSON.
func (d Dump) JSON() []byte {
	out, err := json.MarshalIndent(d, "", "    ")
	if err != nil {
		log.Error("Failed to encode state dump", "err", err)
	}
	return out
}
