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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	callerAddr = common.HexToAddress("0x000000000000000000000000000000000000c0de")
	selfAddr   = common.HexToAddress("0x000000000000000000000000000000000000aaaa")
	otherAddr  = common.HexToAddress("0x000000000000000000000000000000000000bbbb")
	coinbase   = common.HexToAddress("0x00000000000000000000000000000000000c0ffe")

	testHeader = Header{
		Coinbase:   coinbase,
		Timestamp:  1600000000,
		Number:     1000,
		Difficulty: uint256.NewInt(131072),
		GasLimit:   10000000,
	}
)

type committer interface {
	CommitAccount(commitment AccountCommitment) error
}

func commitAccount(t testing.TB, c committer, addr common.Address, balance, nonce uint64, code []byte) {
	t.Helper()
	require.NoError(t, c.CommitAccount(FullCommitment{
		Address: addr,
		Nonce:   nonce,
		Balance: uint256.NewInt(balance),
		Code:    code,
	}))
}

func commitNonexist(t testing.TB, c committer, addrs ...common.Address) {
	t.Helper()
	for _, addr := range addrs {
		require.NoError(t, c.CommitAccount(NonexistCommitment{Address: addr}))
	}
}

func commitSlot(t testing.TB, c committer, addr common.Address, key, value uint64) {
	t.Helper()
	require.NoError(t, c.CommitAccount(StorageCommitment{
		Address: addr,
		Index:   common.BigToHash(new(uint256.Int).SetUint64(key).ToBig()),
		Value:   common.BigToHash(new(uint256.Int).SetUint64(value).ToBig()),
	}))
}

// callContext runs code as selfAddr called by callerAddr.
func callContext(code []byte, gas uint64) Context {
	return Context{
		Kind:        CALL,
		Address:     selfAddr,
		Caller:      callerAddr,
		CodeAddress: selfAddr,
		Origin:      callerAddr,
		Code:        code,
		Gas:         gas,
		GasPrice:    uint256.NewInt(1),
	}
}

// program assembles opcodes and immediates into bytecode.
func program(parts ...interface{}) []byte {
	var code []byte
	for _, p := range parts {
		switch v := p.(type) {
		case OpCode:
			code = append(code, byte(v))
		case int:
			code = append(code, byte(v))
		case []byte:
			code = append(code, v...)
		case common.Address:
			code = append(code, v.Bytes()...)
		default:
			panic("program: unsupported part")
		}
	}
	return code
}

func word(v uint64) []byte {
	return common.LeftPadBytes(new(uint256.Int).SetUint64(v).Bytes(), 32)
}

func stackOf(s *Stack) []uint64 {
	out := make([]uint64, 0, s.Len())
	for _, item := range s.Data() {
		out = append(out, item.Uint64())
	}
	return out
}
