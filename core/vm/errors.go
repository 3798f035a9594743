// Copyright 2019 The go-ethereum Authors
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
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// List execution errors
var (
	ErrOutOfGas                 = errors.New("out of gas")
	ErrCodeStoreOutOfGas        = errors.New("contract creation code storage out of gas")
	ErrDepth                    = errors.New("max call depth exceeded")
	ErrInsufficientBalance      = errors.New("insufficient balance for transfer")
	ErrContractAddressCollision = errors.New("contract address collision")
	ErrExecutionReverted        = errors.New("execution reverted")
	ErrMaxCodeSizeExceeded      = errors.New("max code size exceeded")
	ErrInvalidJump              = errors.New("invalid jump destination")
	ErrWriteProtection          = errors.New("write protection")
	ErrReturnDataOutOfBounds    = errors.New("return data out of bounds")
	ErrGasUintOverflow          = errors.New("gas uint64 overflow")
	ErrIntrinsicGas             = errors.New("intrinsic gas too low")

	// not-supported conditions, host limitations rather than protocol outcomes
	ErrPrecompileNotSupported = errors.New("precompiled contract not supported")
	ErrMemoryLimit            = errors.New("memory limit exceeded")

	// commit protocol violations
	ErrAlreadyCommitted  = errors.New("already committed")
	ErrInvalidCommitment = errors.New("invalid commitment")

	ErrNotRunning = errors.New("machine is not running")

	// errStopToken is an internal token indicating interpreter loop termination,
	// never returned to outside callers.
	errStopToken = errors.New("stop token")
)

// ErrStackUnderflow wraps an evm error when the items on the stack less
// than the minimal requirement.
type ErrStackUnderflow struct {
	stackLen int
	required int
}

func (e *ErrStackUnderflow) Error() string {
	return fmt.Sprintf("stack underflow (%d <=> %d)", e.stackLen, e.required)
}

// ErrStackOverflow wraps an evm error when the items on the stack exceeds
// the maximum allowance.
type ErrStackOverflow struct {
	stackLen int
	limit    int
}

func (e *ErrStackOverflow) Error() string {
	return fmt.Sprintf("stack limit reached %d (%d)", e.stackLen, e.limit)
}

// ErrInvalidOpCode wraps an evm error when an invalid opcode is encountered.
type ErrInvalidOpCode struct {
	opcode OpCode
}

func (e *ErrInvalidOpCode) Error() string { return fmt.Sprintf("invalid opcode: %s", e.opcode) }

// RequireKind names the piece of external state a RequireError asks for.
type RequireKind int

const (
	RequireAccount RequireKind = iota
	RequireAccountStorage
	RequireBlockhash
)

func (k RequireKind) String() string {
	switch k {
	case RequireAccount:
		return "account"
	case RequireAccountStorage:
		return "storage"
	case RequireBlockhash:
		return "blockhash"
	}
	return fmt.Sprintf("RequireKind(%d)", int(k))
}

// RequireError is returned by Step and Fire when the machine needs state it
// has not been given yet. It is not a failure: commit the missing fact and
// step again.
type RequireError struct {
	Kind    RequireKind
	Address common.Address
	Key     common.Hash
	Number  uint64
}

func (e *RequireError) Error() string {
	switch e.Kind {
	case RequireAccount:
		return fmt.Sprintf("require account %s", e.Address.Hex())
	case RequireAccountStorage:
		return fmt.Sprintf("require storage %s[%s]", e.Address.Hex(), e.Key.Hex())
	default:
		return fmt.Sprintf("require blockhash %d", e.Number)
	}
}

func requireAccount(addr common.Address) error {
	return &RequireError{Kind: RequireAccount, Address: addr}
}

func requireStorage(addr common.Address, key common.Hash) error {
	return &RequireError{Kind: RequireAccountStorage, Address: addr, Key: key}
}

func requireBlockhash(number uint64) error {
	return &RequireError{Kind: RequireBlockhash, Number: number}
}

// AsRequireError reports whether err asks for more state.
func AsRequireError(err error) (*RequireError, bool) {
	var req *RequireError
	if errors.As(err, &req) {
		return req, true
	}
	return nil, false
}

// IsOnChainError reports whether err is a protocol-defined machine failure,
// as opposed to a host limitation or a commit protocol violation.
func IsOnChainError(err error) bool {
	if err == nil {
		return false
	}
	var (
		under *ErrStackUnderflow
		over  *ErrStackOverflow
		inv   *ErrInvalidOpCode
	)
	switch {
	case errors.As(err, &under), errors.As(err, &over), errors.As(err, &inv):
		return true
	}
	for _, e := range []error{
		ErrOutOfGas, ErrCodeStoreOutOfGas, ErrDepth, ErrInsufficientBalance,
		ErrContractAddressCollision, ErrExecutionReverted, ErrMaxCodeSizeExceeded,
		ErrInvalidJump, ErrWriteProtection, ErrReturnDataOutOfBounds, ErrGasUintOverflow,
		ErrIntrinsicGas,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// IsNotSupportedError reports whether err signals a host limitation.
func IsNotSupportedError(err error) bool {
	return errors.Is(err, ErrPrecompileNotSupported) || errors.Is(err, ErrMemoryLimit)
}
