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
	"github.com/holiman/uint256"

	"github.com/CortexFoundation/stepvm/params"
)

// enable7 applies EIP-7 (DELEGATECALL).
func enable7(jt *JumpTable) {
	jt[DELEGATECALL] = &operation{
		execute:     opDelegateCall,
		constantGas: jt[CALL].constantGas,
		dynamicGas:  gasDelegateCall,
		minStack:    minStack(6, 1),
		maxStack:    maxStack(6, 1),
		memorySize:  memoryDelegateCall,
		require:     requireCallTarget(-1),
	}
}

// enable140 applies EIP-140 (REVERT).
func enable140(jt *JumpTable) {
	jt[REVERT] = &operation{
		execute:    opRevert,
		dynamicGas: gasRevert,
		minStack:   minStack(2, 0),
		maxStack:   maxStack(2, 0),
		memorySize: memoryRevert,
	}
}

// enable211 applies EIP-211 (RETURNDATASIZE and RETURNDATACOPY).
func enable211(jt *JumpTable) {
	jt[RETURNDATASIZE] = &operation{
		execute:     opReturnDataSize,
		constantGas: GasQuickStep,
		minStack:    minStack(0, 1),
		maxStack:    maxStack(0, 1),
	}
	jt[RETURNDATACOPY] = &operation{
		execute:     opReturnDataCopy,
		constantGas: GasFastestStep,
		dynamicGas:  gasReturnDataCopy,
		minStack:    minStack(3, 0),
		maxStack:    maxStack(3, 0),
		memorySize:  memoryReturnDataCopy,
	}
}

// enable214 applies EIP-214 (STATICCALL).
func enable214(jt *JumpTable) {
	jt[STATICCALL] = &operation{
		execute:     opStaticCall,
		constantGas: jt[CALL].constantGas,
		dynamicGas:  gasStaticCall,
		minStack:    minStack(6, 1),
		maxStack:    maxStack(6, 1),
		memorySize:  memoryStaticCall,
		require:     requireCallTarget(-1),
	}
}

// enable145 applies EIP-145 (bitwise shifting).
func enable145(jt *JumpTable) {
	jt[SHL] = &operation{
		execute:     opSHL,
		constantGas: GasFastestStep,
		minStack:    minStack(2, 1),
		maxStack:    maxStack(2, 1),
	}
	jt[SHR] = &operation{
		execute:     opSHR,
		constantGas: GasFastestStep,
		minStack:    minStack(2, 1),
		maxStack:    maxStack(2, 1),
	}
	jt[SAR] = &operation{
		execute:     opSAR,
		constantGas: GasFastestStep,
		minStack:    minStack(2, 1),
		maxStack:    maxStack(2, 1),
	}
}

// enable1014 applies EIP-1014 (CREATE2).
func enable1014(jt *JumpTable) {
	jt[CREATE2] = &operation{
		execute:     opCreate2,
		constantGas: params.Create2Gas,
		dynamicGas:  gasCreate2,
		minStack:    minStack(4, 1),
		maxStack:    maxStack(4, 1),
		memorySize:  memoryCreate2,
		require:     requireCreate2,
		writes:      true,
	}
}

// enable1052 applies EIP-1052 (EXTCODEHASH).
func enable1052(jt *JumpTable, gt params.GasTable) {
	jt[EXTCODEHASH] = &operation{
		execute:     opExtCodeHash,
		constantGas: gt.ExtcodeHash,
		minStack:    minStack(1, 1),
		maxStack:    maxStack(1, 1),
		require:     requireAccountAt(0),
	}
}

// enable1344 applies EIP-1344 (ChainID Opcode)
// - Adds an opcode that returns the current chain’s EIP-155 unique identifier
func enable1344(jt *JumpTable) {
	jt[CHAINID] = &operation{
		execute:     opChainID,
		constantGas: GasQuickStep,
		minStack:    minStack(0, 1),
		maxStack:    maxStack(0, 1),
	}
}

// opChainID implements CHAINID opcode
func opChainID(pc *uint64, m *Machine, scope *ScopeContext) ([]byte, error) {
	chainId := new(uint256.Int).SetUint64(m.patch.ChainID)
	scope.Stack.push(chainId)
	return nil, nil
}

// enable1884 applies the SELFBALANCE part of EIP-1884. The repricing of
// BALANCE, SLOAD and EXTCODEHASH comes with the gas table of the patch.
func enable1884(jt *JumpTable) {
	jt[SELFBALANCE] = &operation{
		execute:     opSelfBalance,
		constantGas: GasFastStep,
		minStack:    minStack(0, 1),
		maxStack:    maxStack(0, 1),
		require:     requireSelf,
	}
}

func opSelfBalance(pc *uint64, m *Machine, scope *ScopeContext) ([]byte, error) {
	acc, err := m.state.account(scope.Contract.Address())
	if err != nil {
		return nil, err
	}
	scope.Stack.push(new(uint256.Int).Set(&acc.balance))
	return nil, nil
}
