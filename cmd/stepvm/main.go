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

// stepvm executes EVM code on the resumable step machine.
package main

import (
	"fmt"
	"os"

	"github.com/holiman/uint256"
	"gopkg.in/urfave/cli.v1"

	"github.com/CortexFoundation/stepvm/cmd/utils"
)

var (
	// Git SHA1 commit hash of the release (set via linker flags)
	gitCommit = ""

	app = utils.NewApp(gitCommit, "the step machine command line interface")

	DebugFlag = cli.BoolFlag{
		Name:  "debug",
		Usage: "output full trace logs",
	}
	MemProfileFlag = cli.StringFlag{
		Name:  "memprofile",
		Usage: "creates a memory profile at the given path",
	}
	CPUProfileFlag = cli.StringFlag{
		Name:  "cpuprofile",
		Usage: "creates a CPU profile at the given path",
	}
	StatDumpFlag = cli.BoolFlag{
		Name:  "statdump",
		Usage: "displays stack and heap memory information and opcode statistics",
	}
	CodeFlag = cli.StringFlag{
		Name:  "code",
		Usage: "VM code",
	}
	CodeFileFlag = cli.StringFlag{
		Name:  "codefile",
		Usage: "File containing VM code. If '-' is specified, code is read from stdin ",
	}
	GasFlag = cli.Uint64Flag{
		Name:  "gas",
		Usage: "gas limit for the vm",
		Value: 10000000000,
	}
	PriceFlag = utils.U256Flag{
		Name:  "price",
		Usage: "price set for the vm",
		Value: new(uint256.Int),
	}
	ValueFlag = utils.U256Flag{
		Name:  "value",
		Usage: "value set for the vm",
		Value: new(uint256.Int),
	}
	DumpFlag = cli.BoolFlag{
		Name:  "dump",
		Usage: "dumps the state after the run",
	}
	InputFlag = cli.StringFlag{
		Name:  "input",
		Usage: "input for the VM",
	}
	InputFileFlag = cli.StringFlag{
		Name:  "inputfile",
		Usage: "file containing input for the VM",
	}
	BenchFlag = cli.BoolFlag{
		Name:  "bench",
		Usage: "benchmark the execution",
	}
	CreateFlag = cli.BoolFlag{
		Name:  "create",
		Usage: "indicates the action should be create rather than call",
	}
	GenesisFlag = cli.StringFlag{
		Name:  "prestate",
		Usage: "JSON file with prestate (genesis) config",
	}
	MachineFlag = cli.BoolFlag{
		Name:  "json",
		Usage: "output trace logs in machine readable format (json)",
	}
	SenderFlag = cli.StringFlag{
		Name:  "sender",
		Usage: "The transaction origin",
	}
	ReceiverFlag = cli.StringFlag{
		Name:  "receiver",
		Usage: "The transaction receiver (execution context)",
	}
	DisableMemoryFlag = cli.BoolFlag{
		Name:  "nomemory",
		Usage: "disable memory output",
	}
	DisableStackFlag = cli.BoolFlag{
		Name:  "nostack",
		Usage: "disable stack output",
	}
	DisableStorageFlag = cli.BoolFlag{
		Name:  "nostorage",
		Usage: "disable storage output",
	}
	DisableReturnDataFlag = cli.BoolFlag{
		Name:  "noreturndata",
		Usage: "disable return data output",
	}
	BlockNumberFlag = cli.Uint64Flag{
		Name:  "block",
		Usage: "block number the code runs in",
	}
	ForkFlag = cli.StringFlag{
		Name:  "fork",
		Usage: "named protocol phase (Frontier .. Istanbul), overrides the block number schedule",
	}
	ConfigFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
)

func init() {
	app.Flags = []cli.Flag{
		ConfigFileFlag,
		ReceiverFlag,
		SenderFlag,
		MachineFlag,
		GenesisFlag,
		CreateFlag,
		BenchFlag,
		InputFileFlag,
		InputFlag,
		DumpFlag,
		GasFlag,
		PriceFlag,
		ValueFlag,
		CodeFileFlag,
		CodeFlag,
		StatDumpFlag,
		CPUProfileFlag,
		MemProfileFlag,
		DebugFlag,
		DisableMemoryFlag,
		DisableStackFlag,
		DisableStorageFlag,
		DisableReturnDataFlag,
		BlockNumberFlag,
		ForkFlag,
		utils.VerbosityFlag,
		utils.DataDirFlag,
		utils.DatabaseCacheFlag,
		utils.DatabaseHandlesFlag,
	}
	app.Commands = []cli.Command{
		runCommand,
		dumpConfigCommand,
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
