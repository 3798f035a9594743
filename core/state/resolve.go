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
	"fmt"

	"github.com/CortexFoundation/stepvm/core/vm"
)

// Resolve reads the fact req asks for from r and commits it to v.
func Resolve(v vm.VM, req *vm.RequireError, r Reader) error {
	switch req.Kind {
	case vm.RequireAccount:
		acc, err := r.Account(req.Address)
		if err != nil {
			return fmt.Errorf("read account %s: %w", req.Address.Hex(), err)
		}
		if acc == nil {
			return v.CommitAccount(vm.NonexistCommitment{Address: req.Address})
		}
		return v.CommitAccount(vm.FullCommitment{
			Address: req.Address,
			Nonce:   acc.Nonce,
			Balance: balanceOf(acc),
			Code:    acc.Code,
		})

	case vm.RequireAccountStorage:
		val, err := r.Storage(req.Address, req.Key)
		if err != nil {
			return fmt.Errorf("read storage %s[%s]: %w", req.Address.Hex(), req.Key.Hex(), err)
		}
		return v.CommitAccount(vm.StorageCommitment{Address: req.Address, Index: req.Key, Value: val})

	case vm.RequireBlockhash:
		hash, err := r.BlockHash(req.Number)
		if err != nil {
			return fmt.Errorf("read block hash %d: %w", req.Number, err)
		}
		return v.CommitBlockhash(req.Number, hash)
	}
	return fmt.Errorf("unknown requirement %v", req.Kind)
}
