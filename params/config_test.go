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
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatchResolution(t *testing.T) {
	tests := []struct {
		number uint64
		want   string
	}{
		{0, "frontier"},
		{1149999, "frontier"},
		{1150000, "homestead"},
		{2463000, "tangerinewhistle"},
		{2675000, "spuriousdragon"},
		{4370000, "byzantium"},
		{7280000, "petersburg"},
		{9069000, "istanbul"},
		{12000000, "istanbul"},
	}
	for _, tt := range tests {
		p := MainnetChainConfig.Patch(new(big.Int).SetUint64(tt.number))
		assert.Equal(t, tt.want, p.Name, "block %d", tt.number)
		assert.Equal(t, uint64(1), p.ChainID)
	}
}

func TestPatchConstantinopleWithoutPetersburg(t *testing.T) {
	cfg := &ChainConfig{
		ChainID:             big.NewInt(5),
		HomesteadBlock:      big.NewInt(0),
		EIP150Block:         big.NewInt(0),
		EIP155Block:         big.NewInt(0),
		EIP158Block:         big.NewInt(0),
		ByzantiumBlock:      big.NewInt(0),
		ConstantinopleBlock: big.NewInt(10),
		PetersburgBlock:     big.NewInt(20),
	}
	p := cfg.Patch(big.NewInt(15))
	assert.Equal(t, "constantinople", p.Name)
	assert.Equal(t, SstoreEIP1283, p.SstoreMetering)
	assert.Equal(t, uint64(5), p.ChainID)

	p = cfg.Patch(big.NewInt(20))
	assert.Equal(t, "petersburg", p.Name)
	assert.Equal(t, SstoreLegacy, p.SstoreMetering)
}

func TestPatchCopyIsolation(t *testing.T) {
	p := IstanbulPatch.Copy()
	p.CallstackLimit = 3
	delete(p.Precompiles, common.BytesToAddress([]byte{1}))

	assert.Equal(t, CallCreateDepth, IstanbulPatch.CallstackLimit)
	_, ok := IstanbulPatch.Precompile(common.BytesToAddress([]byte{1}))
	assert.True(t, ok)
	_, ok = p.Precompile(common.BytesToAddress([]byte{1}))
	assert.False(t, ok)
}

func TestPatchPrecompiles(t *testing.T) {
	assert.Len(t, FrontierPatch.PrecompiledAddresses(), 4)
	assert.Len(t, ByzantiumPatch.PrecompiledAddresses(), 8)
	assert.Len(t, IstanbulPatch.PrecompiledAddresses(), 9)

	addrs := IstanbulPatch.PrecompiledAddresses()
	for i := 1; i < len(addrs); i++ {
		assert.Negative(t, addrs[i-1].Cmp(addrs[i]))
	}
}

func TestPatchAccessors(t *testing.T) {
	assert.Equal(t, uint64(40), FrontierPatch.GasCall())
	assert.Equal(t, uint64(700), IstanbulPatch.GasCall())
	assert.Equal(t, uint64(800), IstanbulPatch.GasSload())
	assert.Equal(t, uint64(700), IstanbulPatch.GasBalance())
	assert.Equal(t, uint64(5000), ByzantiumPatch.GasSuicide())
	assert.Equal(t, uint64(10), HomesteadPatch.GasExpByte())
	assert.Equal(t, uint64(50), SpuriousDragonPatch.GasExpByte())
}

func TestPatchByName(t *testing.T) {
	p, err := PatchByName("Byzantium")
	require.NoError(t, err)
	assert.Same(t, ByzantiumPatch, p)

	_, err = PatchByName("berlin")
	assert.Error(t, err)
}

func TestCheckConfigForkOrder(t *testing.T) {
	require.NoError(t, MainnetChainConfig.CheckConfigForkOrder())
	require.NoError(t, AllForksChainConfig.CheckConfigForkOrder())

	bad := &ChainConfig{
		ChainID:        big.NewInt(1),
		HomesteadBlock: big.NewInt(10),
		EIP150Block:    big.NewInt(5),
	}
	assert.Error(t, bad.CheckConfigForkOrder())

	gap := &ChainConfig{
		ChainID:        big.NewInt(1),
		ByzantiumBlock: big.NewInt(0),
	}
	assert.Error(t, gap.CheckConfigForkOrder())
}

func TestChainConfigCopy(t *testing.T) {
	cpy := MainnetChainConfig.Copy()
	require.Equal(t, MainnetChainConfig.String(), cpy.String())

	cpy.ByzantiumBlock.SetUint64(1)
	cpy.IstanbulBlock = nil
	assert.Equal(t, uint64(4370000), MainnetChainConfig.ByzantiumBlock.Uint64())
	assert.NotNil(t, MainnetChainConfig.IstanbulBlock)
	assert.Nil(t, FrontierChainConfig.Copy().HomesteadBlock)
}
