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
	"bytes"
	"fmt"
	"io"
	"os"
	goruntime "runtime"
	"runtime/pprof"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"gopkg.in/urfave/cli.v1"

	"github.com/CortexFoundation/stepvm/cmd/utils"
	"github.com/CortexFoundation/stepvm/core/state"
	"github.com/CortexFoundation/stepvm/core/vm"
	"github.com/CortexFoundation/stepvm/core/vm/runtime"
)

var runCommand = cli.Command{
	Action:      runCmd,
	Name:        "run",
	Usage:       "run arbitrary vm code",
	ArgsUsage:   "<code>",
	Description: `The run command runs arbitrary VM code.`,
}

type execStats struct {
	time           time.Duration // The execution time.
	allocs         int64         // The number of heap allocations during execution.
	bytesAllocated int64         // The cumulative number of bytes allocated during execution.
}

func timedExec(bench bool, execFunc func() (*runtime.Result, error)) (res *runtime.Result, stats execStats, err error) {
	if bench {
		result := testing.Benchmark(func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				res, err = execFunc()
			}
		})
		// Get the average execution time from the benchmarking result.
		// There are other useful stats here that could be reported.
		stats.time = time.Duration(result.NsPerOp())
		stats.allocs = result.AllocsPerOp()
		stats.bytesAllocated = result.AllocedBytesPerOp()
	} else {
		var memStatsBefore, memStatsAfter goruntime.MemStats
		goruntime.ReadMemStats(&memStatsBefore)
		startTime := time.Now()
		res, err = execFunc()
		stats.time = time.Since(startTime)
		goruntime.ReadMemStats(&memStatsAfter)
		stats.allocs = int64(memStatsAfter.Mallocs - memStatsBefore.Mallocs)
		stats.bytesAllocated = int64(memStatsAfter.TotalAlloc - memStatsBefore.TotalAlloc)
	}
	return res, stats, err
}

// stateDatabase is the backing store of a run.
type stateDatabase interface {
	state.Database
	RawDump() (state.Dump, error)
	Close() error
}

// memoryState adapts the in-memory database to stateDatabase.
type memoryState struct{ *state.MemoryDatabase }

func (m memoryState) RawDump() (state.Dump, error) { return m.MemoryDatabase.RawDump(), nil }
func (m memoryState) Close() error                 { return nil }

func openState(cfg databaseConfig) (stateDatabase, error) {
	if cfg.DataDir == "" {
		return memoryState{state.NewMemoryDatabase()}, nil
	}
	return state.NewLevelDatabase(cfg.DataDir, cfg.Cache, cfg.Handles)
}

// readHex decodes hex text read from a file, or from stdin when path is "-".
func readHex(path string) ([]byte, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return common.FromHex(string(bytes.TrimSpace(raw))), nil
}

func runCmd(ctx *cli.Context) error {
	utils.SetupLogging(ctx.GlobalInt(utils.VerbosityFlag.Name))
	cfg := makeConfig(ctx)
	patch, err := cfg.patch()
	if err != nil {
		utils.Fatalf("Invalid protocol configuration: %v", err)
	}
	logconfig := cfg.Trace

	var (
		tracers     []vm.Tracer
		debugLogger *vm.StructLogger
		stats       *statsTracer
		machine     = ctx.GlobalBool(MachineFlag.Name)
	)
	if machine {
		tracers = append(tracers, NewJSONLogger(&logconfig, os.Stdout))
	} else if logconfig.Debug {
		debugLogger = vm.NewStructLogger(&logconfig)
		tracers = append(tracers, debugLogger)
	}
	if ctx.GlobalBool(StatDumpFlag.Name) {
		stats = newStatsTracer()
		tracers = append(tracers, stats)
	}

	db, err := openState(cfg.Database)
	if err != nil {
		utils.Fatalf("Failed to open state database: %v", err)
	}
	defer db.Close()

	if path := ctx.GlobalString(GenesisFlag.Name); path != "" {
		alloc, err := state.LoadGenesisAlloc(path)
		if err != nil {
			utils.Fatalf("Invalid prestate: %v", err)
		}
		if err := alloc.Commit(db); err != nil {
			utils.Fatalf("Failed to write prestate: %v", err)
		}
	}

	var code, input []byte
	// The '--code' or '--codefile' flag overrides code in state
	if path := ctx.GlobalString(CodeFileFlag.Name); path != "" {
		if code, err = readHex(path); err != nil {
			utils.Fatalf("Could not load code: %v", err)
		}
	} else if hexcode := ctx.GlobalString(CodeFlag.Name); hexcode != "" {
		code = common.FromHex(hexcode)
	} else if ctx.NArg() > 0 {
		code = common.FromHex(ctx.Args().First())
	}
	if path := ctx.GlobalString(InputFileFlag.Name); path != "" {
		if input, err = readHex(path); err != nil {
			utils.Fatalf("Could not load input: %v", err)
		}
	} else {
		input = common.FromHex(ctx.GlobalString(InputFlag.Name))
	}

	runtimeConfig := runtime.Config{
		ChainConfig:   cfg.Chain,
		Patch:         patch,
		Difficulty:    cfg.Block.Difficulty,
		Origin:        cfg.Message.Sender,
		Coinbase:      cfg.Block.Coinbase,
		BlockNumber:   cfg.Block.Number,
		Time:          cfg.Block.Timestamp,
		GasLimit:      cfg.Message.Gas,
		BlockGasLimit: cfg.Block.GasLimit,
		GasPrice:      cfg.Message.Price,
		Value:         cfg.Message.Value,
		VMConfig:      vm.Config{Tracer: newTracer(tracers)},
		State:         db,
	}
	log.Debug("Executing code", "patch", patch.Name, "number", cfg.Block.Number, "gas", cfg.Message.Gas)

	if cpuProfilePath := ctx.GlobalString(CPUProfileFlag.Name); cpuProfilePath != "" {
		f, err := os.Create(cpuProfilePath)
		if err != nil {
			utils.Fatalf("could not create CPU profile: %v", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			utils.Fatalf("could not start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	var execFunc func() (*runtime.Result, error)
	if ctx.GlobalBool(CreateFlag.Name) {
		execFunc = func() (*runtime.Result, error) {
			res, address, err := runtime.Create(append(code, input...), &runtimeConfig)
			if err == nil && !res.Failed() {
				log.Info("Contract created", "address", address)
			}
			return res, err
		}
	} else {
		receiver := cfg.Message.Receiver
		if len(code) > 0 {
			if err := installCode(db, receiver, code); err != nil {
				utils.Fatalf("Failed to install code: %v", err)
			}
		}
		execFunc = func() (*runtime.Result, error) {
			return runtime.Call(receiver, input, &runtimeConfig)
		}
	}
	res, st, err := timedExec(ctx.GlobalBool(BenchFlag.Name), execFunc)
	if err != nil {
		utils.Fatalf("Execution aborted: %v", err)
	}

	if ctx.GlobalBool(DumpFlag.Name) {
		dump, err := db.RawDump()
		if err != nil {
			utils.Fatalf("Failed to dump state: %v", err)
		}
		fmt.Println(string(dump.JSON()))
	}

	if memProfilePath := ctx.GlobalString(MemProfileFlag.Name); memProfilePath != "" {
		f, err := os.Create(memProfilePath)
		if err != nil {
			utils.Fatalf("could not create memory profile: %v", err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			utils.Fatalf("could not write memory profile: %v", err)
		}
		f.Close()
	}

	if logconfig.Debug {
		if debugLogger != nil {
			fmt.Fprintln(os.Stderr, "#### TRACE ####")
			vm.WriteTrace(os.Stderr, debugLogger.StructLogs())
		}
		fmt.Fprintln(os.Stderr, "#### LOGS ####")
		vm.WriteLogs(os.Stderr, res.Logs)
	}

	if ctx.GlobalBool(BenchFlag.Name) || ctx.GlobalBool(StatDumpFlag.Name) {
		fmt.Fprintf(os.Stderr, `execution time:  %v
allocations:     %d
allocated bytes: %d
gas used:        %d
gas refunded:    %d
`, st.time, st.allocs, st.bytesAllocated, res.UsedGas, res.RefundedGas)
	}
	if stats != nil {
		stats.Render(os.Stderr)
	}
	if !machine {
		fmt.Printf("0x%x\n", res.Out)
		if err := res.Err(); err != nil {
			fmt.Printf(" error: %v\n", err)
		}
	}
	return nil
}

// installCode deploys code at addr, keeping the account's nonce and balance.
func installCode(db state.Database, addr common.Address, code []byte) error {
	acc, err := db.Account(addr)
	if err != nil {
		return err
	}
	change := vm.AccountChange{Address: addr, Exists: true, Code: code}
	if acc != nil {
		change.Nonce, change.Balance = acc.Nonce, acc.Balance
	} else {
		change.Created = true
	}
	if change.Balance == nil {
		change.Balance = new(uint256.Int)
	}
	return db.Apply([]vm.AccountChange{change})
}
