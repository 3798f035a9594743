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

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"reflect"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"

	"github.com/CortexFoundation/stepvm/cmd/utils"
	"github.com/CortexFoundation/stepvm/core/vm"
	"github.com/CortexFoundation/stepvm/params"
)

var dumpConfigCommand = cli.Command{
	Action:      dumpConfig,
	Name:        "dumpconfig",
	Usage:       "Show configuration values",
	ArgsUsage:   "",
	Description: `The dumpconfig command shows configuration values.`,
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type blockConfig struct {
	Number     uint64
	Timestamp  uint64
	GasLimit   uint64
	Coinbase   common.Address
	Difficulty *uint256.Int
}

type messageConfig struct {
	Sender   common.Address
	Receiver common.Address
	Gas      uint64
	Price    *uint256.Int
	Value    *uint256.Int
}

type databaseConfig struct {
	DataDir string `toml:",omitempty"`
	Cache   int
	Handles int
}

type stepvmConfig struct {
	Fork     string `toml:",omitempty"`
	Chain    *params.ChainConfig
	Block    blockConfig
	Message  messageConfig
	Trace    vm.LogConfig
	Database databaseConfig
}

func defaultConfig() stepvmConfig {
	return stepvmConfig{
		Chain: params.AllForksChainConfig.Copy(),
		Block: blockConfig{
			GasLimit:   10000000,
			Difficulty: new(uint256.Int),
		},
		Message: messageConfig{
			Sender:   common.BytesToAddress([]byte("sender")),
			Receiver: common.BytesToAddress([]byte("receiver")),
			Gas:      GasFlag.Value,
			Price:    new(uint256.Int),
			Value:    new(uint256.Int),
		},
		Database: databaseConfig{
			Cache:   utils.DatabaseCacheFlag.Value,
			Handles: utils.DatabaseHandlesFlag.Value,
		},
	}
}

func loadConfig(file string, cfg *stepvmConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = decodeConfig(bufio.NewReader(f), cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

func decodeConfig(r io.Reader, cfg *stepvmConfig) error {
	return tomlSettings.NewDecoder(r).Decode(cfg)
}

// makeConfig loads the configuration file and applies the command line
// flags on top of it.
func makeConfig(ctx *cli.Context) stepvmConfig {
	cfg := defaultConfig()
	if file := ctx.GlobalString(ConfigFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			utils.Fatalf("%v", err)
		}
	}
	if ctx.GlobalIsSet(ForkFlag.Name) {
		cfg.Fork = ctx.GlobalString(ForkFlag.Name)
	}
	if ctx.GlobalIsSet(BlockNumberFlag.Name) {
		cfg.Block.Number = ctx.GlobalUint64(BlockNumberFlag.Name)
	}
	if ctx.GlobalIsSet(SenderFlag.Name) {
		cfg.Message.Sender = common.HexToAddress(ctx.GlobalString(SenderFlag.Name))
	}
	if ctx.GlobalIsSet(ReceiverFlag.Name) {
		cfg.Message.Receiver = common.HexToAddress(ctx.GlobalString(ReceiverFlag.Name))
	}
	if ctx.GlobalIsSet(GasFlag.Name) {
		cfg.Message.Gas = ctx.GlobalUint64(GasFlag.Name)
	}
	if ctx.GlobalIsSet(PriceFlag.Name) {
		cfg.Message.Price = utils.GlobalU256(ctx, PriceFlag.Name)
	}
	if ctx.GlobalIsSet(ValueFlag.Name) {
		cfg.Message.Value = utils.GlobalU256(ctx, ValueFlag.Name)
	}
	if ctx.GlobalIsSet(utils.DataDirFlag.Name) {
		cfg.Database.DataDir = ctx.GlobalString(utils.DataDirFlag.Name)
	}
	if ctx.GlobalIsSet(utils.DatabaseCacheFlag.Name) {
		cfg.Database.Cache = ctx.GlobalInt(utils.DatabaseCacheFlag.Name)
	}
	if ctx.GlobalIsSet(utils.DatabaseHandlesFlag.Name) {
		cfg.Database.Handles = ctx.GlobalInt(utils.DatabaseHandlesFlag.Name)
	}
	cfg.Trace.DisableMemory = cfg.Trace.DisableMemory || ctx.GlobalBool(DisableMemoryFlag.Name)
	cfg.Trace.DisableStack = cfg.Trace.DisableStack || ctx.GlobalBool(DisableStackFlag.Name)
	cfg.Trace.DisableStorage = cfg.Trace.DisableStorage || ctx.GlobalBool(DisableStorageFlag.Name)
	cfg.Trace.DisableReturnData = cfg.Trace.DisableReturnData || ctx.GlobalBool(DisableReturnDataFlag.Name)
	cfg.Trace.Debug = cfg.Trace.Debug || ctx.GlobalBool(DebugFlag.Name)
	return cfg
}

// patch returns the protocol phase the configuration selects.
func (cfg *stepvmConfig) patch() (*params.Patch, error) {
	if cfg.Fork != "" {
		return params.PatchByName(cfg.Fork)
	}
	if cfg.Chain == nil {
		cfg.Chain = params.AllForksChainConfig.Copy()
	}
	if err := cfg.Chain.CheckConfigForkOrder(); err != nil {
		return nil, err
	}
	return cfg.Chain.Patch(new(big.Int).SetUint64(cfg.Block.Number)), nil
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg := makeConfig(ctx)
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	dump.Write(out)
	return nil
}
