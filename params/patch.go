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

package params

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	gethvm "github.com/ethereum/go-ethereum/core/vm"
)

// Precompiled is a native contract reachable through CALL at a fixed
// address. RequiredGas is charged before Run is invoked.
type Precompiled interface {
	RequiredGas(input []byte) uint64
	Run(input []byte) ([]byte, error)
}

// SstoreMetering selects the gas schedule of SSTORE.
type SstoreMetering uint8

const (
	// SstoreLegacy prices a write by the zeroness of the current and new value.
	SstoreLegacy SstoreMetering = iota
	// SstoreEIP1283 is net gas metering with per-transaction dirty tracking.
	SstoreEIP1283
	// SstoreEIP2200 is EIP1283 repriced against SLOAD with a 2300 gas sentry.
	SstoreEIP2200
)

func (m SstoreMetering) String() string {
	switch m {
	case SstoreLegacy:
		return "legacy"
	case SstoreEIP1283:
		return "eip1283"
	case SstoreEIP2200:
		return "eip2200"
	}
	return fmt.Sprintf("SstoreMetering(%d)", uint8(m))
}

// Patch is the immutable set of gas constants and feature flags of one
// protocol phase. A single Patch is used for a whole execution and must not
// be modified once handed to a VM; use Copy to derive a variant.
type Patch struct {
	Name    string
	Gas     GasTable
	ChainID uint64

	CallstackLimit   uint64 // Maximum depth of the call/create stack
	CodeDepositLimit uint64 // Maximum size of deployed code, zero means unlimited
	MemoryLimit      uint64 // Bytes a machine may allocate once paid for

	// ForceCodeDeposit lets a create succeed with empty code when the code
	// deposit cannot be paid for.
	ForceCodeDeposit bool
	// ErrOnCallWithMoreGas turns a CALL requesting more gas than available
	// into a local failure instead of capping the request.
	ErrOnCallWithMoreGas bool
	// CallCreateL64AfterGas caps forwarded gas to all but one 64th.
	CallCreateL64AfterGas bool
	// EmptyConsideredExists disables EIP-161 state clearing.
	EmptyConsideredExists bool
	// CreateIncreaseNonce starts created contracts at nonce 1.
	CreateIncreaseNonce bool

	TxCreationGas    uint64 // Intrinsic gas of a contract-creation transaction
	TxDataNonZeroGas uint64 // Intrinsic gas per non-zero byte of transaction data

	HasDelegateCall    bool
	HasRevert          bool
	HasReturnData      bool
	HasStaticCall      bool
	HasBitwiseShifting bool
	HasCreate2         bool
	HasExtCodeHash     bool
	HasChainID         bool
	HasSelfBalance     bool

	SstoreMetering SstoreMetering

	// Precompiles maps the precompiled addresses of this phase to their
	// implementation. A nil implementation marks an address that is
	// reserved but not supported by this build.
	Precompiles map[common.Address]Precompiled
}

// GasCall returns the fixed cost of the CALL family.
func (p *Patch) GasCall() uint64 { return p.Gas.Calls }

// GasSload returns the fixed cost of SLOAD.
func (p *Patch) GasSload() uint64 { return p.Gas.SLoad }

// GasBalance returns the fixed cost of BALANCE.
func (p *Patch) GasBalance() uint64 { return p.Gas.Balance }

// GasSuicide returns the fixed cost of SELFDESTRUCT.
func (p *Patch) GasSuicide() uint64 { return p.Gas.Suicide }

// GasExpByte returns the per-byte cost of the EXP exponent.
func (p *Patch) GasExpByte() uint64 { return p.Gas.ExpByte }

// Precompile returns the implementation registered at addr. The second
// result reports whether addr is a precompiled address at all.
func (p *Patch) Precompile(addr common.Address) (Precompiled, bool) {
	impl, ok := p.Precompiles[addr]
	return impl, ok
}

// PrecompiledAddresses returns the precompiled addresses in ascending order.
func (p *Patch) PrecompiledAddresses() []common.Address {
	addrs := make([]common.Address, 0, len(p.Precompiles))
	for addr := range p.Precompiles {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Cmp(addrs[j]) < 0
	})
	return addrs
}

// Copy returns a deep copy of the patch.
func (p *Patch) Copy() *Patch {
	cpy := *p
	cpy.Precompiles = make(map[common.Address]Precompiled, len(p.Precompiles))
	for addr, impl := range p.Precompiles {
		cpy.Precompiles[addr] = impl
	}
	return &cpy
}

// String implements the fmt.Stringer interface.
func (p *Patch) String() string {
	return fmt.Sprintf("{Name: %v ChainID: %v CallstackLimit: %v CodeDepositLimit: %v MemoryLimit: %v Sstore: %v Precompiles: %d}",
		p.Name, p.ChainID, p.CallstackLimit, p.CodeDepositLimit, p.MemoryLimit, p.SstoreMetering, len(p.Precompiles))
}

func precompiles(set map[common.Address]gethvm.PrecompiledContract) map[common.Address]Precompiled {
	m := make(map[common.Address]Precompiled, len(set))
	for addr, impl := range set {
		m[addr] = impl
	}
	return m
}

var (
	// FrontierPatch is the launch configuration.
	FrontierPatch = &Patch{
		Name:                  "frontier",
		Gas:                   GasTableHomestead,
		ChainID:               1,
		CallstackLimit:        CallCreateDepth,
		MemoryLimit:           DefaultMemoryLimit,
		ForceCodeDeposit:      true,
		ErrOnCallWithMoreGas:  true,
		EmptyConsideredExists: true,
		TxCreationGas:         TxGas,
		TxDataNonZeroGas:      TxDataNonZeroGasFrontier,
		SstoreMetering:        SstoreLegacy,
		Precompiles:           precompiles(gethvm.PrecompiledContractsHomestead),
	}

	// HomesteadPatch adds DELEGATECALL and fails creates whose code
	// deposit cannot be paid.
	HomesteadPatch = &Patch{
		Name:                  "homestead",
		Gas:                   GasTableHomestead,
		ChainID:               1,
		CallstackLimit:        CallCreateDepth,
		MemoryLimit:           DefaultMemoryLimit,
		ErrOnCallWithMoreGas:  true,
		EmptyConsideredExists: true,
		TxCreationGas:         TxGasContractCreation,
		TxDataNonZeroGas:      TxDataNonZeroGasFrontier,
		HasDelegateCall:       true,
		SstoreMetering:        SstoreLegacy,
		Precompiles:           precompiles(gethvm.PrecompiledContractsHomestead),
	}

	// TangerineWhistlePatch reprices IO heavy operations (EIP-150) and
	// introduces the all but one 64th forwarding rule.
	TangerineWhistlePatch = &Patch{
		Name:                  "tangerinewhistle",
		Gas:                   GasTableEIP150,
		ChainID:               1,
		CallstackLimit:        CallCreateDepth,
		MemoryLimit:           DefaultMemoryLimit,
		CallCreateL64AfterGas: true,
		EmptyConsideredExists: true,
		TxCreationGas:         TxGasContractCreation,
		TxDataNonZeroGas:      TxDataNonZeroGasFrontier,
		HasDelegateCall:       true,
		SstoreMetering:        SstoreLegacy,
		Precompiles:           precompiles(gethvm.PrecompiledContractsHomestead),
	}

	// SpuriousDragonPatch enables state clearing (EIP-161), the code size
	// limit (EIP-170) and the EXP repricing (EIP-160).
	SpuriousDragonPatch = &Patch{
		Name:                  "spuriousdragon",
		Gas:                   GasTableEIP158,
		ChainID:               1,
		CallstackLimit:        CallCreateDepth,
		CodeDepositLimit:      MaxCodeSize,
		MemoryLimit:           DefaultMemoryLimit,
		CallCreateL64AfterGas: true,
		CreateIncreaseNonce:   true,
		TxCreationGas:         TxGasContractCreation,
		TxDataNonZeroGas:      TxDataNonZeroGasFrontier,
		HasDelegateCall:       true,
		SstoreMetering:        SstoreLegacy,
		Precompiles:           precompiles(gethvm.PrecompiledContractsHomestead),
	}

	// ByzantiumPatch adds REVERT, return data, STATICCALL and the
	// modexp/bn256 precompiles.
	ByzantiumPatch = &Patch{
		Name:                  "byzantium",
		Gas:                   GasTableEIP158,
		ChainID:               1,
		CallstackLimit:        CallCreateDepth,
		CodeDepositLimit:      MaxCodeSize,
		MemoryLimit:           DefaultMemoryLimit,
		CallCreateL64AfterGas: true,
		CreateIncreaseNonce:   true,
		TxCreationGas:         TxGasContractCreation,
		TxDataNonZeroGas:      TxDataNonZeroGasFrontier,
		HasDelegateCall:       true,
		HasRevert:             true,
		HasReturnData:         true,
		HasStaticCall:         true,
		SstoreMetering:        SstoreLegacy,
		Precompiles:           precompiles(gethvm.PrecompiledContractsByzantium),
	}

	// ConstantinoplePatch adds bitwise shifting, CREATE2, EXTCODEHASH and
	// net gas metering for SSTORE (EIP-1283).
	ConstantinoplePatch = &Patch{
		Name:                  "constantinople",
		Gas:                   GasTableConstantinople,
		ChainID:               1,
		CallstackLimit:        CallCreateDepth,
		CodeDepositLimit:      MaxCodeSize,
		MemoryLimit:           DefaultMemoryLimit,
		CallCreateL64AfterGas: true,
		CreateIncreaseNonce:   true,
		TxCreationGas:         TxGasContractCreation,
		TxDataNonZeroGas:      TxDataNonZeroGasFrontier,
		HasDelegateCall:       true,
		HasRevert:             true,
		HasReturnData:         true,
		HasStaticCall:         true,
		HasBitwiseShifting:    true,
		HasCreate2:            true,
		HasExtCodeHash:        true,
		SstoreMetering:        SstoreEIP1283,
		Precompiles:           precompiles(gethvm.PrecompiledContractsByzantium),
	}

	// PetersburgPatch is Constantinople without EIP-1283.
	PetersburgPatch = &Patch{
		Name:                  "petersburg",
		Gas:                   GasTableConstantinople,
		ChainID:               1,
		CallstackLimit:        CallCreateDepth,
		CodeDepositLimit:      MaxCodeSize,
		MemoryLimit:           DefaultMemoryLimit,
		CallCreateL64AfterGas: true,
		CreateIncreaseNonce:   true,
		TxCreationGas:         TxGasContractCreation,
		TxDataNonZeroGas:      TxDataNonZeroGasFrontier,
		HasDelegateCall:       true,
		HasRevert:             true,
		HasReturnData:         true,
		HasStaticCall:         true,
		HasBitwiseShifting:    true,
		HasCreate2:            true,
		HasExtCodeHash:        true,
		SstoreMetering:        SstoreLegacy,
		Precompiles:           precompiles(gethvm.PrecompiledContractsByzantium),
	}

	// IstanbulPatch adds CHAINID, SELFBALANCE, EIP-1884 repricing, EIP-2200
	// SSTORE metering, cheaper calldata and the blake2f precompile.
	IstanbulPatch = &Patch{
		Name:                  "istanbul",
		Gas:                   GasTableIstanbul,
		ChainID:               1,
		CallstackLimit:        CallCreateDepth,
		CodeDepositLimit:      MaxCodeSize,
		MemoryLimit:           DefaultMemoryLimit,
		CallCreateL64AfterGas: true,
		CreateIncreaseNonce:   true,
		TxCreationGas:         TxGasContractCreation,
		TxDataNonZeroGas:      TxDataNonZeroGasEIP2028,
		HasDelegateCall:       true,
		HasRevert:             true,
		HasReturnData:         true,
		HasStaticCall:         true,
		HasBitwiseShifting:    true,
		HasCreate2:            true,
		HasExtCodeHash:        true,
		HasChainID:            true,
		HasSelfBalance:        true,
		SstoreMetering:        SstoreEIP2200,
		Precompiles:           precompiles(gethvm.PrecompiledContractsIstanbul),
	}
)

// Patches lists the named patches in activation order.
var Patches = []*Patch{
	FrontierPatch,
	HomesteadPatch,
	TangerineWhistlePatch,
	SpuriousDragonPatch,
	ByzantiumPatch,
	ConstantinoplePatch,
	PetersburgPatch,
	IstanbulPatch,
}

// PatchByName looks up a named patch, ignoring case.
func PatchByName(name string) (*Patch, error) {
	for _, p := range Patches {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown patch %q", name)
}
