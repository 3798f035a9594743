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
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Config are the configuration options for the machines of one execution.
type Config struct {
	// Tracer is the op code logger
	Tracer Tracer
	// JumpDestCache is shared JUMPDEST analysis. When nil, ContextVM and
	// TransactionVM share one map across all machines of the execution and a
	// standalone Machine keeps its own.
	JumpDestCache JumpDestCache
}

// withJumpDests returns cfg with a JUMPDEST cache installed.
func (cfg Config) withJumpDests() Config {
	if cfg.JumpDestCache == nil {
		cfg.JumpDestCache = newMapJumpDests()
	}
	return cfg
}

// Header carries the block values visible to the code.
type Header struct {
	Coinbase   common.Address
	Timestamp  uint64
	Number     uint64
	Difficulty *uint256.Int
	GasLimit   uint64
}

// Context describes one call or create frame: who runs which code against
// which account, with how much gas.
type Context struct {
	// Kind is the instruction that opened the frame: CALL, CALLCODE,
	// DELEGATECALL, STATICCALL, CREATE or CREATE2.
	Kind OpCode

	Address     common.Address // account whose balance and storage the code acts on
	Caller      common.Address
	CodeAddress common.Address // account the code was loaded from
	Origin      common.Address

	Code []byte
	Data []byte

	Gas      uint64
	GasPrice *uint256.Int

	// Value moves from Caller to Address before the code runs.
	// ApparentValue is what CALLVALUE reports.
	Value         *uint256.Int
	ApparentValue *uint256.Int

	IsStatic bool
	IsCreate bool
}

// ValidTransaction is a transaction whose signature and nonce have already
// been checked.
type ValidTransaction struct {
	Caller   common.Address
	GasPrice *uint256.Int
	GasLimit uint64
	To       *common.Address // nil means contract creation
	Value    *uint256.Int
	Input    []byte
}

func codeHash(code []byte) common.Hash {
	if len(code) == 0 {
		return types.EmptyCodeHash
	}
	return crypto.Keccak256Hash(code)
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
