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

package utils

import (
	"flag"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/urfave/cli.v1"
)

func TestU256Flag(t *testing.T) {
	f := U256Flag{Name: "value", Value: uint256.NewInt(5), Usage: "value"}
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	f.Apply(set)

	ctx := cli.NewContext(nil, set, nil)
	assert.Equal(t, uint64(5), GlobalU256(ctx, "value").Uint64())

	require.NoError(t, set.Parse([]string{"-value", "0x10"}))
	assert.Equal(t, uint64(16), GlobalU256(ctx, "value").Uint64())

	require.NoError(t, set.Parse([]string{"-value", "1000"}))
	assert.Equal(t, uint64(1000), GlobalU256(ctx, "value").Uint64())

	assert.Error(t, set.Parse([]string{"-value", "bogus"}))
	// The default stays untouched.
	assert.Equal(t, uint64(5), f.Value.Uint64())
}
