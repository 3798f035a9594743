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

package runtime

import (
	"context"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/CortexFoundation/stepvm/core/state"
	"github.com/CortexFoundation/stepvm/core/vm"
	"github.com/CortexFoundation/stepvm/params"
)

// Config is a basic type specifying certain configuration flags for running
// the VM.
type Config struct {
	ChainConfig   *params.ChainConfig
	Patch         *params.Patch // overrides the patch ChainConfig selects
	Difficulty    *uint256.Int
	Origin        common.Address
	Coinbase      common.Address
	BlockNumber   uint64
	Time          uint64
	GasLimit      uint64
	BlockGasLimit uint64
	GasPrice      *uint256.Int
	Value         *uint256.Int
	VMConfig      vm.Config

	State state.Database
}

// sets defaults on the config
func setDefaults(cfg *Config) {
	if cfg.ChainConfig == nil {
		cfg.ChainConfig = params.AllForksChainConfig
	}
	if cfg.Patch == nil {
		cfg.Patch = cfg.ChainConfig.Patch(new(big.Int).SetUint64(cfg.BlockNumber))
	}
	if cfg.Difficulty == nil {
		cfg.Difficulty = new(uint256.Int)
	}
	if cfg.Time == 0 {
		cfg.Time = uint64(time.Now().Unix())
	}
	if cfg.GasLimit == 0 {
		cfg.GasLimit = math.MaxUint64
	}
	if cfg.BlockGasLimit == 0 {
		cfg.BlockGasLimit = cfg.GasLimit
	}
	if cfg.GasPrice == nil {
		cfg.GasPrice = new(uint256.Int)
	}
	if cfg.Value == nil {
		cfg.Value = new(uint256.Int)
	}
	if cfg.State == nil {
		cfg.State = state.NewMemoryDatabase()
	}
}

func (cfg *Config) header() vm.Header {
	return vm.Header{
		Coinbase:   cfg.Coinbase,
		Timestamp:  cfg.Time,
		Number:     cfg.BlockNumber,
		Difficulty: cfg.Difficulty,
		GasLimit:   cfg.BlockGasLimit,
	}
}

// Result is what an execution leaves behind.
type Result struct {
	Status        vm.Status
	Out           []byte
	UsedGas       uint64
	RefundedGas   uint64
	Logs          []*types.Log
	Accounts      []vm.AccountChange
	Removed       []common.Address
	UsedAddresses []common.Address
}

// Failed reports whether the execution did not exit normally.
func (r *Result) Failed() bool { return r.Status.Kind != vm.ExitedOk }

// Err returns the error the execution exited with, if any.
func (r *Result) Err() error { return r.Status.Err }

func collect(v vm.VM) *Result {
	return &Result{
		Status:        v.Status(),
		Out:           v.Out(),
		UsedGas:       v.UsedGas(),
		RefundedGas:   v.RefundedGas(),
		Logs:          v.Logs(),
		Accounts:      v.Accounts(),
		Removed:       v.Removed(),
		UsedAddresses: v.UsedAddresses(),
	}
}

// execute runs v against cfg.State and writes its post-state back.
func execute(ctx context.Context, v vm.VM, cfg *Config) (*Result, error) {
	if err := Run(ctx, v, cfg.State); err != nil {
		return nil, err
	}
	res := collect(v)
	if err := cfg.State.Apply(res.Accounts); err != nil {
		return nil, err
	}
	return res, nil
}

// Execute executes the code using the input as call data during the
// execution. It returns the VM's return value and the result of the run.
//
// Execute sets up an in-memory, temporary, environment for the execution
// of the given code unless cfg.State is set. The code is installed at a
// fixed address with empty storage.
func Execute(code, input []byte, cfg *Config) ([]byte, *Result, error) {
	if cfg == nil {
		cfg = new(Config)
	}
	setDefaults(cfg)

	address := common.BytesToAddress([]byte("contract"))
	err := cfg.State.Apply([]vm.AccountChange{{
		Address: address,
		Exists:  true,
		Created: true,
		Balance: new(uint256.Int),
		Code:    code,
	}})
	if err != nil {
		return nil, nil, err
	}
	res, err := Call(address, input, cfg)
	if err != nil {
		return nil, nil, err
	}
	return res.Out, res, nil
}

// Call executes the code given by the contract's address. It will return
// the result of the run; the returned error only reports driver failures,
// execution failures are in the result's status.
//
// Call, unlike Execute, requires a config and also requires the State
// field to be set.
func Call(address common.Address, input []byte, cfg *Config) (*Result, error) {
	setDefaults(cfg)

	acc, err := cfg.State.Account(address)
	if err != nil {
		return nil, err
	}
	var code []byte
	if acc != nil {
		code = acc.Code
	}
	ctx := vm.Context{
		Kind:          vm.CALL,
		Address:       address,
		Caller:        cfg.Origin,
		CodeAddress:   address,
		Origin:        cfg.Origin,
		Code:          code,
		Data:          input,
		Gas:           cfg.GasLimit,
		GasPrice:      cfg.GasPrice,
		Value:         cfg.Value,
		ApparentValue: cfg.Value,
	}
	return execute(context.Background(), vm.NewContextVM(ctx, cfg.header(), cfg.Patch, cfg.VMConfig), cfg)
}

// Create executes the code using the VM create method.
func Create(input []byte, cfg *Config) (*Result, common.Address, error) {
	if cfg == nil {
		cfg = new(Config)
	}
	setDefaults(cfg)

	var nonce uint64
	origin, err := cfg.State.Account(cfg.Origin)
	if err != nil {
		return nil, common.Address{}, err
	}
	if origin != nil {
		nonce = origin.Nonce
	}
	address := crypto.CreateAddress(cfg.Origin, nonce)
	ctx := vm.Context{
		Kind:          vm.CREATE,
		Address:       address,
		Caller:        cfg.Origin,
		CodeAddress:   address,
		Origin:        cfg.Origin,
		Code:          input,
		Gas:           cfg.GasLimit,
		GasPrice:      cfg.GasPrice,
		Value:         cfg.Value,
		ApparentValue: cfg.Value,
		IsCreate:      true,
	}
	res, err := execute(context.Background(), vm.NewContextVM(ctx, cfg.header(), cfg.Patch, cfg.VMConfig), cfg)
	return res, address, err
}

// ApplyTransaction runs tx as a full transaction: gas purchase, nonce
// increment, execution, refund and payment of the fee to cfg.Coinbase.
func ApplyTransaction(ctx context.Context, tx vm.ValidTransaction, cfg *Config) (*Result, error) {
	if cfg == nil {
		cfg = new(Config)
	}
	setDefaults(cfg)
	return execute(ctx, vm.NewTransactionVM(tx, cfg.header(), cfg.Patch, cfg.VMConfig), cfg)
}
