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
	"errors"
	"flag"
	"strings"

	"github.com/holiman/uint256"
	"gopkg.in/urfave/cli.v1"
)

// u256Value turns *uint256.Int into a flag.Value
type u256Value uint256.Int

func (b *u256Value) String() string {
	if b == nil {
		return ""
	}
	return (*uint256.Int)(b).Dec()
}

func (b *u256Value) Set(s string) error {
	var (
		v   *uint256.Int
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = uint256.FromHex(s)
	} else {
		v, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return errors.New("invalid 256 bit integer " + s)
	}
	(*uint256.Int)(b).Set(v)
	return nil
}

// U256Flag is a command line flag that accepts 256 bit unsigned integers
// in decimal or 0x-prefixed hexadecimal notation.
type U256Flag struct {
	Name  string
	Value *uint256.Int
	Usage string
}

func (f U256Flag) String() string {
	return cli.FlagStringer(f)
}

func (f U256Flag) Apply(set *flag.FlagSet) {
	val := f.Value
	if val == nil {
		val = new(uint256.Int)
	}
	eachName(f.Name, func(name string) {
		set.Var((*u256Value)(new(uint256.Int).Set(val)), name, f.Usage)
	})
}

func (f U256Flag) GetName() string {
	return f.Name
}

// GlobalU256 returns the value of a U256Flag from the global flag set.
func GlobalU256(ctx *cli.Context, name string) *uint256.Int {
	val := ctx.GlobalGeneric(name)
	if val == nil {
		return nil
	}
	return new(uint256.Int).Set((*uint256.Int)(val.(*u256Value)))
}

func eachName(longName string, fn func(string)) {
	parts := strings.Split(longName, ",")
	for _, name := range parts {
		name = strings.Trim(name, " ")
		fn(name)
	}
}
