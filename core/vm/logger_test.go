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
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CortexFoundation/stepvm/params"
)

func TestStructLoggerStorage(t *testing.T) {
	code := program(PUSH1, 0x01, PUSH1, 0x00, SSTORE, PUSH1, 0x00, SLOAD, STOP)
	logger := NewStructLogger(nil)
	v := NewContextVM(callContext(code, 100000), testHeader, params.IstanbulPatch, Config{Tracer: logger})
	fireWith(t, v, FullCommitment{Address: selfAddr, Code: code})
	require.Equal(t, ExitedOk, v.Status().Kind)

	logs := logger.StructLogs()
	var ops []OpCode
	for _, l := range logs {
		ops = append(ops, l.Op)
	}
	assert.Equal(t, []OpCode{PUSH1, PUSH1, SSTORE, PUSH1, SLOAD, STOP}, ops)

	sstore := logs[2]
	assert.Equal(t, params.SstoreSetGasEIP2200, sstore.GasCost)
	assert.Equal(t, common.BytesToHash([]byte{1}), sstore.Storage[common.Hash{}])
	assert.Equal(t, common.BytesToHash([]byte{1}), logs[4].Storage[common.Hash{}])
	assert.Equal(t, 0, sstore.Depth)
	assert.NoError(t, logger.Error())

	enc, err := json.Marshal(sstore.JSON())
	require.NoError(t, err)
	assert.Contains(t, string(enc), `"opName":"SSTORE"`)
}

func TestStructLoggerDisableStorage(t *testing.T) {
	code := program(PUSH1, 0x01, PUSH1, 0x00, SSTORE, STOP)
	logger := NewStructLogger(&LogConfig{DisableStorage: true, DisableStack: true, Limit: 2})
	v := NewContextVM(callContext(code, 100000), testHeader, params.IstanbulPatch, Config{Tracer: logger})
	fireWith(t, v, FullCommitment{Address: selfAddr, Code: code})

	logs := logger.StructLogs()
	require.Len(t, logs, 4)
	for _, l := range logs {
		assert.Nil(t, l.Storage)
		assert.Nil(t, l.Stack)
	}
	assert.ErrorIs(t, logs[2].Err, errTraceLimitReached)
}

func TestStructLoggerFault(t *testing.T) {
	code := program(PUSH1, 0x00, JUMP)
	logger := NewStructLogger(nil)
	v := NewContextVM(callContext(code, 100000), testHeader, params.IstanbulPatch, Config{Tracer: logger})
	fireWith(t, v, FullCommitment{Address: selfAddr, Code: code})

	require.Equal(t, ExitedErr, v.Status().Kind)
	logs := logger.StructLogs()
	require.NotEmpty(t, logs)
	assert.ErrorIs(t, logs[len(logs)-1].Err, ErrInvalidJump)
	assert.ErrorIs(t, logger.Error(), ErrInvalidJump)

	var buf bytes.Buffer
	WriteTrace(&buf, logs)
	assert.Contains(t, buf.String(), "ERROR: invalid jump destination")
}

func TestMarkdownLogger(t *testing.T) {
	var buf bytes.Buffer
	code := program(PUSH1, 0x02, PUSH1, 0x03, ADD, STOP)
	v := NewContextVM(callContext(code, 100000), testHeader, params.IstanbulPatch, Config{Tracer: NewMarkdownLogger(nil, &buf)})
	fireWith(t, v, FullCommitment{Address: selfAddr, Code: code})

	out := buf.String()
	assert.Contains(t, out, "|  Pc   |      Op     | Cost |   Stack   |")
	assert.Contains(t, out, "ADD")
	assert.Contains(t, out, "Consumed gas: 9")
}
