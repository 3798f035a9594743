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
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/CortexFoundation/stepvm/params"
)

// IntrinsicGas computes the 'intrinsic gas' for a message with the given data.
func IntrinsicGas(data []byte, contractCreation bool, patch *params.Patch) (uint64, error) {
	// Set the starting gas for the raw transaction
	gas := params.TxGas
	if contractCreation {
		gas = patch.TxCreationGas
	}
	// Bump the required gas by the amount of transactional data
	if len(data) > 0 {
		// Zero and non-zero bytes are priced differently
		var nz uint64
		for _, byt := range data {
			if byt != 0 {
				nz++
			}
		}
		// Make sure we don't exceed uint64 for all data combinations
		if (math.MaxUint64-gas)/patch.TxDataNonZeroGas < nz {
			return 0, ErrGasUintOverflow
		}
		gas += nz * patch.TxDataNonZeroGas

		z := uint64(len(data)) - nz
		if (math.MaxUint64-gas)/params.TxDataZeroGas < z {
			return 0, ErrGasUintOverflow
		}
		gas += z * params.TxDataZeroGas
	}
	return gas, nil
}

// TransactionVM runs a validated transaction: it buys the gas up front,
// bumps the sender nonce, runs the message as a ContextVM and settles the
// gas with the sender and the block beneficiary.
type TransactionVM struct {
	tx     ValidTransaction
	header Header
	patch  *params.Patch
	cfg    Config

	cache *commitCache
	base  *stateLayer
	vm    *ContextVM

	// status of a transaction rejected before execution
	status Status
}

func NewTransactionVM(tx ValidTransaction, header Header, patch *params.Patch, cfg Config) *TransactionVM {
	cache := newCommitCache()
	return &TransactionVM{
		tx:     tx,
		header: header,
		patch:  patch,
		cfg:    cfg.withJumpDests(),
		cache:  cache,
		base:   newStateLayer(nil, cache),
		status: Status{Kind: Running},
	}
}

func (t *TransactionVM) CommitAccount(commitment AccountCommitment) error {
	return t.cache.commitAccount(commitment)
}

func (t *TransactionVM) CommitBlockhash(number uint64, hash common.Hash) error {
	return t.cache.commitBlockhash(number, hash)
}

func (t *TransactionVM) Fire() error {
	for t.Status().Kind == Running {
		if err := t.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (t *TransactionVM) Step() error {
	if t.vm != nil {
		return t.vm.Step()
	}
	if t.status.Kind != Running {
		return ErrNotRunning
	}
	return t.preclaim()
}

// preclaim validates the transaction against the sender account and opens
// the root context.
func (t *TransactionVM) preclaim() error {
	var (
		tx       = t.tx
		creation = tx.To == nil
		value    = orZero(tx.Value)
		price    = orZero(tx.GasPrice)
	)
	sender, err := t.base.account(tx.Caller)
	if err != nil {
		return err
	}
	var code []byte
	if !creation {
		to, err := t.base.account(*tx.To)
		if err != nil {
			return err
		}
		code = to.code
	}
	intrinsic, err := IntrinsicGas(tx.Input, creation, t.patch)
	if err != nil {
		return t.reject(err)
	}
	if tx.GasLimit < intrinsic {
		return t.reject(ErrIntrinsicGas)
	}
	upfront, overflow := new(uint256.Int).MulOverflow(new(uint256.Int).SetUint64(tx.GasLimit), price)
	if overflow {
		return t.reject(ErrInsufficientBalance)
	}
	cost, overflow := new(uint256.Int).AddOverflow(upfront, value)
	if overflow || sender.balance.Lt(cost) {
		return t.reject(ErrInsufficientBalance)
	}
	acc, err := t.base.mutable(tx.Caller)
	if err != nil {
		return err
	}
	acc.balance.Sub(&acc.balance, upfront)
	nonce := acc.nonce
	acc.nonce++

	ctx := Context{
		Kind:          CALL,
		Caller:        tx.Caller,
		Origin:        tx.Caller,
		Data:          tx.Input,
		Gas:           tx.GasLimit - intrinsic,
		GasPrice:      price,
		Value:         value,
		ApparentValue: value,
	}
	if creation {
		ctx.Kind = CREATE
		ctx.Address = crypto.CreateAddress(tx.Caller, nonce)
		ctx.Code, ctx.Data = tx.Input, nil
		ctx.IsCreate = true
	} else {
		ctx.Address = *tx.To
		ctx.Code = code
	}
	ctx.CodeAddress = ctx.Address

	log.Trace("Transaction preclaimed", "from", tx.Caller, "to", ctx.Address, "create", creation, "gas", ctx.Gas, "intrinsic", intrinsic)
	t.vm = newContextVM(ctx, t.header, t.patch, t.cfg, t.cache, t.base)
	t.vm.intrinsicGas = intrinsic
	t.vm.settle = t.settle
	return nil
}

func (t *TransactionVM) reject(err error) error {
	log.Debug("Transaction rejected", "from", t.tx.Caller, "err", err)
	t.status = Status{Kind: ExitedErr, Err: err}
	return nil
}

// settle returns the unused gas to the sender and pays the used gas to
// the beneficiary.
func (t *TransactionVM) settle(base *stateLayer, usedGas uint64) error {
	if _, err := base.account(t.header.Coinbase); err != nil {
		return err
	}
	var (
		price     = orZero(t.tx.GasPrice)
		remaining = new(uint256.Int).SetUint64(t.tx.GasLimit - usedGas)
		fee       = new(uint256.Int).SetUint64(usedGas)
	)
	remaining.Mul(remaining, price)
	fee.Mul(fee, price)

	sender, err := base.mutable(t.tx.Caller)
	if err != nil {
		return err
	}
	sender.balance.Add(&sender.balance, remaining)

	coinbase, err := base.mutable(t.header.Coinbase)
	if err != nil {
		return err
	}
	coinbase.balance.Add(&coinbase.balance, fee)
	coinbase.exists = true
	base.touched.Add(t.header.Coinbase)
	return nil
}

func (t *TransactionVM) Status() Status {
	if t.vm != nil {
		return t.vm.Status()
	}
	return t.status
}

// Accounts returns the post-state of every changed account, the sender
// and beneficiary included.
func (t *TransactionVM) Accounts() []AccountChange { return t.base.changes() }

func (t *TransactionVM) UsedAddresses() []common.Address {
	addrs := t.cache.used.ToSlice()
	sortAddresses(addrs)
	return addrs
}

func (t *TransactionVM) Out() []byte {
	if t.vm == nil {
		return nil
	}
	return t.vm.Out()
}

func (t *TransactionVM) Logs() []*types.Log { return t.base.logs }

func (t *TransactionVM) Removed() []common.Address {
	if t.vm == nil {
		return nil
	}
	return t.vm.Removed()
}

// UsedGas returns the gas charged to the sender, intrinsic gas included.
func (t *TransactionVM) UsedGas() uint64 {
	if t.vm == nil {
		return 0
	}
	return t.vm.UsedGas()
}

func (t *TransactionVM) RefundedGas() uint64 {
	if t.vm == nil {
		return 0
	}
	return t.vm.RefundedGas()
}

// ContextVM returns the VM running the transaction's message, nil until
// the transaction has been preclaimed.
func (t *TransactionVM) ContextVM() *ContextVM { return t.vm }

var (
	_ VM = (*ContextVM)(nil)
	_ VM = (*TransactionVM)(nil)
)
