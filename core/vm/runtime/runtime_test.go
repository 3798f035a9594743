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
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CortexFoundation/stepvm/core/state"
	"github.com/CortexFoundation/stepvm/core/vm"
	"github.com/CortexFoundation/stepvm/params"
)

func TestDefaults(t *testing.T) {
	cfg := new(Config)
	setDefaults(cfg)

	assert.Equal(t, params.AllForksChainConfig, cfg.ChainConfig)
	assert.Equal(t, params.IstanbulPatch.Name, cfg.Patch.Name)
	assert.NotNil(t, cfg.Difficulty)
	assert.NotZero(t, cfg.Time)
	assert.Equal(t, uint64(^uint64(0)), cfg.GasLimit)
	assert.Equal(t, cfg.GasLimit, cfg.BlockGasLimit)
	assert.NotNil(t, cfg.GasPrice)
	assert.NotNil(t, cfg.Value)
	assert.NotNil(t, cfg.State)
}

func TestPatchFollowsBlockNumber(t *testing.T) {
	cfg := &Config{ChainConfig: params.MainnetChainConfig, BlockNumber: 4370000}
	setDefaults(cfg)
	assert.Equal(t, params.ByzantiumPatch.Name, cfg.Patch.Name)
	assert.Equal(t, uint64(1), cfg.Patch.ChainID)
}

func TestExecute(t *testing.T) {
	ret, res, err := Execute([]byte{
		byte(vm.PUSH1), 10,
		byte(vm.PUSH1), 0,
		byte(vm.MSTORE),
		byte(vm.PUSH1), 32,
		byte(vm.PUSH1), 0,
		byte(vm.RETURN),
	}, nil, nil)
	require.NoError(t, err)
	assert.False(t, res.Failed())
	assert.Equal(t, uint64(10), new(big.Int).SetBytes(ret).Uint64())
	assert.Equal(t, uint64(4*3+3+3), res.UsedGas)
}

func TestCallStoresState(t *testing.T) {
	var (
		db      = state.NewMemoryDatabase()
		address = common.HexToAddress("0x0a")
	)
	// SSTORE(1, CALLDATALOAD(0))
	db.SetAccount(address, state.Account{Code: []byte{
		byte(vm.PUSH1), 0, byte(vm.CALLDATALOAD),
		byte(vm.PUSH1), 1, byte(vm.SSTORE),
	}})
	input := common.LeftPadBytes([]byte{0x2a}, 32)
	res, err := Call(address, input, &Config{State: db, GasLimit: 100000})
	require.NoError(t, err)
	require.False(t, res.Failed(), "err %v", res.Err())

	val, err := db.Storage(address, common.BytesToHash([]byte{1}))
	require.NoError(t, err)
	assert.Equal(t, common.BytesToHash([]byte{0x2a}), val)
	assert.Contains(t, res.UsedAddresses, address)
}

func TestCallFailure(t *testing.T) {
	db := state.NewMemoryDatabase()
	address := common.HexToAddress("0x0a")
	db.SetAccount(address, state.Account{Code: []byte{byte(vm.PUSH1), 0, byte(vm.JUMP)}})

	res, err := Call(address, nil, &Config{State: db, GasLimit: 100000})
	require.NoError(t, err)
	assert.True(t, res.Failed())
	assert.ErrorIs(t, res.Err(), vm.ErrInvalidJump)
	assert.Equal(t, uint64(100000), res.UsedGas)
}

func TestCreate(t *testing.T) {
	var (
		db     = state.NewMemoryDatabase()
		origin = common.HexToAddress("0x0b")
	)
	db.SetAccount(origin, state.Account{Nonce: 3})
	// deploys 0x6001
	initCode := []byte{
		byte(vm.PUSH2), 0x60, 0x01, byte(vm.PUSH1), 0, byte(vm.MSTORE),
		byte(vm.PUSH1), 2, byte(vm.PUSH1), 30, byte(vm.RETURN),
	}
	res, address, err := Create(initCode, &Config{State: db, Origin: origin, GasLimit: 100000})
	require.NoError(t, err)
	require.False(t, res.Failed(), "err %v", res.Err())
	assert.Equal(t, []byte{0x60, 0x01}, res.Out)

	acc, err := db.Account(address)
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, []byte{0x60, 0x01}, acc.Code)
	assert.Equal(t, uint64(1), acc.Nonce)
}

func TestApplyTransaction(t *testing.T) {
	var (
		db       = state.NewMemoryDatabase()
		sender   = common.HexToAddress("0x0c")
		receiver = common.HexToAddress("0x0d")
		coinbase = common.HexToAddress("0x0e")
	)
	db.SetAccount(sender, state.Account{Balance: uint256.NewInt(1000000)})

	tx := vm.ValidTransaction{
		Caller:   sender,
		GasPrice: uint256.NewInt(3),
		GasLimit: 50000,
		To:       &receiver,
		Value:    uint256.NewInt(7),
	}
	res, err := ApplyTransaction(context.Background(), tx, &Config{State: db, Coinbase: coinbase})
	require.NoError(t, err)
	require.False(t, res.Failed(), "err %v", res.Err())
	assert.Equal(t, params.TxGas, res.UsedGas)

	acc, _ := db.Account(sender)
	assert.Equal(t, uint64(1), acc.Nonce)
	assert.Equal(t, uint64(1000000-3*params.TxGas-7), acc.Balance.Uint64())
	acc, _ = db.Account(receiver)
	assert.Equal(t, uint64(7), acc.Balance.Uint64())
	acc, _ = db.Account(coinbase)
	assert.Equal(t, 3*params.TxGas, acc.Balance.Uint64())
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := vm.NewContextVM(vm.Context{Kind: vm.CALL, Gas: 100}, vm.Header{}, params.IstanbulPatch, vm.Config{})
	err := Run(ctx, v, state.NewMemoryDatabase())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, vm.Running, v.Status().Kind)

	// The same VM can be finished later.
	require.NoError(t, Run(context.Background(), v, state.NewMemoryDatabase()))
	assert.Equal(t, vm.ExitedOk, v.Status().Kind)
}

// loopCode counts slot 0 up to n.
func loopCode(n byte) []byte {
	return []byte{
		byte(vm.JUMPDEST),
		byte(vm.PUSH1), 0, byte(vm.SLOAD), byte(vm.PUSH1), 1, byte(vm.ADD), // v = s[0] + 1
		byte(vm.DUP1), byte(vm.PUSH1), 0, byte(vm.SSTORE), // s[0] = v
		byte(vm.PUSH1), n, byte(vm.GT), // n > v
		byte(vm.PUSH1), 0, byte(vm.JUMPI),
		byte(vm.STOP),
	}
}

func TestRunParallel(t *testing.T) {
	db := state.NewMemoryDatabase()
	var vms []vm.VM
	for i := 1; i <= 8; i++ {
		address := common.BigToAddress(big.NewInt(int64(0x100 + i)))
		code := loopCode(byte(i))
		db.SetAccount(address, state.Account{Code: code})
		ctx := vm.Context{Kind: vm.CALL, Address: address, CodeAddress: address, Code: code, Gas: 1000000}
		vms = append(vms, vm.NewContextVM(ctx, vm.Header{}, params.IstanbulPatch, vm.Config{}))
	}
	results, err := RunParallel(context.Background(), vms, db, 3)
	require.NoError(t, err)
	require.Len(t, results, 8)
	for i, res := range results {
		require.False(t, res.Failed(), "vm %d: %v", i, res.Err())
		require.Len(t, res.Accounts, 1)
		assert.Equal(t, common.BytesToHash([]byte{byte(i + 1)}), res.Accounts[0].Storage[common.Hash{}], "vm %d", i)
	}
	// Nothing is written back.
	val, _ := db.Storage(common.BigToAddress(big.NewInt(0x101)), common.Hash{})
	assert.Equal(t, common.Hash{}, val)
}

type failingReader struct{ state.Reader }

var errReader = errors.New("reader failure")

func (failingReader) Account(common.Address) (*state.Account, error) { return nil, errReader }

func TestRunParallelFailure(t *testing.T) {
	v := vm.NewContextVM(vm.Context{Kind: vm.CALL, Gas: 100}, vm.Header{}, params.IstanbulPatch, vm.Config{})
	_, err := RunParallel(context.Background(), []vm.VM{v}, failingReader{state.NewMemoryDatabase()}, 0)
	assert.ErrorIs(t, err, errReader)
}
