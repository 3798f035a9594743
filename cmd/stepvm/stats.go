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
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/olekukonko/tablewriter"

	"github.com/CortexFoundation/stepvm/core/vm"
)

type opStat struct {
	op    vm.OpCode
	count uint64
	gas   uint64
}

// statsTracer counts executed instructions and the gas charged for them.
type statsTracer struct {
	ops    map[vm.OpCode]*opStat
	faults uint64
}

func newStatsTracer() *statsTracer {
	return &statsTracer{ops: make(map[vm.OpCode]*opStat)}
}

func (t *statsTracer) CaptureStart(env *vm.ContextVM, from, to common.Address, create bool, input []byte, gas uint64, value *uint256.Int) {
}

func (t *statsTracer) CaptureState(pc uint64, op vm.OpCode, gas, cost uint64, scope *vm.ScopeContext, rData []byte, depth int, err error) {
	s, ok := t.ops[op]
	if !ok {
		s = &opStat{op: op}
		t.ops[op] = s
	}
	s.count++
	s.gas += cost
}

func (t *statsTracer) CaptureFault(pc uint64, op vm.OpCode, gas, cost uint64, scope *vm.ScopeContext, depth int, err error) {
	t.faults++
}

func (t *statsTracer) CaptureEnter(typ vm.OpCode, from, to common.Address, input []byte, gas uint64, value *uint256.Int) {
}

func (t *statsTracer) CaptureExit(output []byte, gasUsed uint64, err error) {}

func (t *statsTracer) CaptureEnd(output []byte, gasUsed uint64, d time.Duration, err error) {}

// sorted returns the statistics ordered by gas spent, then by opcode.
func (t *statsTracer) sorted() []*opStat {
	stats := make([]*opStat, 0, len(t.ops))
	for _, s := range t.ops {
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].gas != stats[j].gas {
			return stats[i].gas > stats[j].gas
		}
		return stats[i].op < stats[j].op
	})
	return stats
}

// Render prints the statistics as a table.
func (t *statsTracer) Render(w io.Writer) {
	var count, gas uint64
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Opcode", "Count", "Gas"})
	for _, s := range t.sorted() {
		table.Append([]string{s.op.String(), fmt.Sprint(s.count), fmt.Sprint(s.gas)})
		count += s.count
		gas += s.gas
	}
	table.SetFooter([]string{"Total", fmt.Sprint(count), fmt.Sprint(gas)})
	table.Render()
	if t.faults > 0 {
		fmt.Fprintf(w, "faults: %d\n", t.faults)
	}
}

// multiTracer fans every event out to a list of tracers.
type multiTracer []vm.Tracer

func (m multiTracer) CaptureStart(env *vm.ContextVM, from, to common.Address, create bool, input []byte, gas uint64, value *uint256.Int) {
	for _, t := range m {
		t.CaptureStart(env, from, to, create, input, gas, value)
	}
}

func (m multiTracer) CaptureState(pc uint64, op vm.OpCode, gas, cost uint64, scope *vm.ScopeContext, rData []byte, depth int, err error) {
	for _, t := range m {
		t.CaptureState(pc, op, gas, cost, scope, rData, depth, err)
	}
}

func (m multiTracer) CaptureFault(pc uint64, op vm.OpCode, gas, cost uint64, scope *vm.ScopeContext, depth int, err error) {
	for _, t := range m {
		t.CaptureFault(pc, op, gas, cost, scope, depth, err)
	}
}

func (m multiTracer) CaptureEnter(typ vm.OpCode, from, to common.Address, input []byte, gas uint64, value *uint256.Int) {
	for _, t := range m {
		t.CaptureEnter(typ, from, to, input, gas, value)
	}
}

func (m multiTracer) CaptureExit(output []byte, gasUsed uint64, err error) {
	for _, t := range m {
		t.CaptureExit(output, gasUsed, err)
	}
}

func (m multiTracer) CaptureEnd(output []byte, gasUsed uint64, d time.Duration, err error) {
	for _, t := range m {
		t.CaptureEnd(output, gasUsed, d, err)
	}
}

// newTracer returns nil, the single tracer or a fan-out over all of them.
func newTracer(tracers []vm.Tracer) vm.Tracer {
	switch len(tracers) {
	case 0:
		return nil
	case 1:
		return tracers[0]
	}
	return multiTracer(tracers)
}
