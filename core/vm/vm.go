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
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/CortexFoundation/stepvm/params"
)

// VM is a resumable execution. Step and Fire return a *RequireError when
// state is missing; commit it and call them again.
type VM interface {
	CommitAccount(commitment AccountCommitment) error
	CommitBlockhash(number uint64, hash common.Hash) error

	Step() error
	Fire() error
	Status() Status

	Accounts() []AccountChange
	UsedAddresses() []common.Address
	Out() []byte
	Logs() []*types.Log
	Removed() []common.Address
	UsedGas() uint64
	RefundedGas() uint64
}

// settleFunc runs once the root machine is done and before empty accounts
// are cleared. It must load everything it needs before mutating state.
type settleFunc func(base *stateLayer, usedGas uint64) error

// ContextVM runs a context together with every sub-context it invokes,
// keeping the machines on a stack, innermost last.
type ContextVM struct {
	machines []*Machine
	patch    *params.Patch
	cfg      Config

	cache *commitCache
	base  *stateLayer

	intrinsicGas uint64
	settle       settleFunc

	started   bool
	startTime time.Time
	merged    bool
	finalized bool
	status    Status

	removed     []common.Address
	usedGas     uint64
	refundedGas uint64
}

// NewContextVM returns a VM executing ctx on top of an empty commit cache.
func NewContextVM(ctx Context, header Header, patch *params.Patch, cfg Config) *ContextVM {
	cache := newCommitCache()
	return newContextVM(ctx, header, patch, cfg.withJumpDests(), cache, newStateLayer(nil, cache))
}

func newContextVM(ctx Context, header Header, patch *params.Patch, cfg Config, cache *commitCache, base *stateLayer) *ContextVM {
	root := newMachine(ctx, header, patch, cfg, cache, base.child(), 0)
	return &ContextVM{
		machines: []*Machine{root},
		patch:    patch,
		cfg:      cfg,
		cache:    cache,
		base:     base,
		status:   Status{Kind: Running},
	}
}

func (v *ContextVM) CommitAccount(commitment AccountCommitment) error {
	return v.cache.commitAccount(commitment)
}

func (v *ContextVM) CommitBlockhash(number uint64, hash common.Hash) error {
	return v.cache.commitBlockhash(number, hash)
}

// Status is Running until the execution has been finalised, then the
// status of the root machine.
func (v *ContextVM) Status() Status { return v.status }

// Depth returns the number of machines on the call stack.
func (v *ContextVM) Depth() int { return len(v.machines) }

// Current returns the innermost machine.
func (v *ContextVM) Current() *Machine { return v.machines[len(v.machines)-1] }

func (v *ContextVM) Fire() error {
	for !v.finalized {
		if err := v.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (v *ContextVM) Step() error {
	if v.finalized {
		return ErrNotRunning
	}
	top := v.machines[len(v.machines)-1]
	if !v.started {
		v.started, v.startTime = true, time.Now()
		if v.cfg.Tracer != nil {
			ctx := top.ctx
			v.cfg.Tracer.CaptureStart(v, ctx.Caller, ctx.Address, ctx.IsCreate, input(&ctx), ctx.Gas, ctx.Value)
		}
	}
	switch top.status.Kind {
	case Running:
		return top.Step()
	case InvokeCall, InvokeCreate:
		sub := top.spawn()
		v.machines = append(v.machines, sub)
		log.Trace("Entered sub-context", "kind", sub.ctx.Kind, "address", sub.ctx.Address, "depth", sub.depth, "gas", sub.ctx.Gas)
		if v.cfg.Tracer != nil {
			ctx := sub.ctx
			v.cfg.Tracer.CaptureEnter(ctx.Kind, ctx.Caller, ctx.Address, input(&ctx), ctx.Gas, ctx.ApparentValue)
		}
		return nil
	}
	if len(v.machines) == 1 {
		return v.finalize()
	}
	v.machines = v.machines[:len(v.machines)-1]
	parent := v.machines[len(v.machines)-1]
	parent.applySub(top)
	log.Trace("Left sub-context", "address", top.ctx.Address, "depth", top.depth, "status", top.status)
	if v.cfg.Tracer != nil {
		v.cfg.Tracer.CaptureExit(top.out, top.UsedGas(), top.status.Err)
	}
	top.release()
	return nil
}

// finalize closes the execution once the root machine has exited. It can
// be retried after a *RequireError from the settle hook.
func (v *ContextVM) finalize() error {
	root := v.machines[0]
	if !v.merged {
		if root.status.Kind == ExitedOk {
			v.base.merge(root.state)
		}
		v.merged = true
	}
	var (
		used   = v.intrinsicGas + root.UsedGas()
		refund uint64
	)
	if v.base.refund > 0 {
		refund = min(used/2, uint64(v.base.refund))
	}
	if v.settle != nil {
		if err := v.settle(v.base, used-refund); err != nil {
			return err
		}
		v.settle = nil
	}
	removed := v.base.suicides.ToSlice()
	if err := v.base.finalise(!v.patch.EmptyConsideredExists); err != nil {
		return err
	}
	sortAddresses(removed)
	v.removed = removed
	v.usedGas, v.refundedGas = used-refund, refund
	v.finalized = true
	v.status = root.status

	log.Debug("Execution finalised", "status", v.status, "used", v.usedGas, "refund", v.refundedGas, "elapsed", common.PrettyDuration(time.Since(v.startTime)))
	if v.cfg.Tracer != nil {
		v.cfg.Tracer.CaptureEnd(root.out, v.usedGas, time.Since(v.startTime), root.status.Err)
	}
	return nil
}

// Accounts returns the post-state of every account the execution changed.
func (v *ContextVM) Accounts() []AccountChange {
	return v.base.changes()
}

// UsedAddresses returns every address the execution read, including those
// only read by reverted sub-contexts.
func (v *ContextVM) UsedAddresses() []common.Address {
	addrs := v.cache.used.ToSlice()
	sortAddresses(addrs)
	return addrs
}

func (v *ContextVM) Out() []byte { return v.machines[0].out }

func (v *ContextVM) Logs() []*types.Log { return v.base.logs }

// Removed returns the self-destructed addresses.
func (v *ContextVM) Removed() []common.Address { return v.removed }

// UsedGas returns the gas consumed after refunds, valid once finalised.
func (v *ContextVM) UsedGas() uint64 { return v.usedGas }

func (v *ContextVM) RefundedGas() uint64 { return v.refundedGas }

// storageAt reads a slot as seen by the innermost machine.
func (v *ContextVM) storageAt(addr common.Address, key common.Hash) (common.Hash, error) {
	return v.Current().state.storageAt(addr, key)
}

// refund sums the refund counter as seen by the innermost machine.
func (v *ContextVM) refund() uint64 {
	var total int64
	for l := v.Current().state; l != nil; l = l.parent {
		total += l.refund
	}
	if total < 0 {
		return 0
	}
	return uint64(total)
}

func input(ctx *Context) []byte {
	if ctx.IsCreate {
		return ctx.Code
	}
	return ctx.Data
}

func sortAddresses(addrs []common.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
}
