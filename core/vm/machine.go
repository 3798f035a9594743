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
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	"github.com/CortexFoundation/stepvm/params"
)

// StatusKind is the state of a Machine or VM.
type StatusKind uint8

const (
	Running StatusKind = iota
	ExitedOk
	ExitedErr
	ExitedNotSupported
	InvokeCall
	InvokeCreate
)

func (k StatusKind) String() string {
	switch k {
	case Running:
		return "running"
	case ExitedOk:
		return "exited ok"
	case ExitedErr:
		return "exited err"
	case ExitedNotSupported:
		return "exited not supported"
	case InvokeCall:
		return "invoke call"
	case InvokeCreate:
		return "invoke create"
	}
	return fmt.Sprintf("StatusKind(%d)", uint8(k))
}

// Status is the state of a Machine together with its payload. Err is set
// for ExitedErr and ExitedNotSupported, Context for the two invoke kinds.
type Status struct {
	Kind    StatusKind
	Err     error
	Context *Context
}

// Exited reports whether the status is terminal.
func (s Status) Exited() bool {
	return s.Kind == ExitedOk || s.Kind == ExitedErr || s.Kind == ExitedNotSupported
}

func (s Status) String() string {
	if s.Err != nil {
		return fmt.Sprintf("%v(%v)", s.Kind, s.Err)
	}
	return s.Kind.String()
}

// ScopeContext contains the things that are per-call, such as stack and memory,
// but not transients like pc and gas
type ScopeContext struct {
	Memory   *Memory
	Stack    *Stack
	Contract *Contract
}

// Machine executes the code of one call or create context. It never runs
// a sub-context itself: CALL and CREATE leave it in an invoke status and
// the owning ContextVM pushes a new Machine.
type Machine struct {
	ctx    Context
	header Header
	patch  *params.Patch
	cfg    Config
	table  *JumpTable

	cache *commitCache
	state *stateLayer
	depth int

	scope      *ScopeContext
	pc         uint64
	status     Status
	out        []byte
	returnData []byte

	initialized  bool
	isPrecompile bool
	precompile   params.Precompiled

	hasher    crypto.KeccakState // Keccak256 hasher instance shared across opcodes
	hasherBuf common.Hash        // Keccak256 hasher result array shared across opcodes

	callGasTemp uint64 // gas forwarded by the CALL being executed
	callFailed  bool   // the CALL being executed asked for more gas than allowed
	pending     struct{ retOffset, retSize uint64 }
}

// NewMachine returns a standalone machine with its own commit cache. Its
// sub-contexts are not executed, Step stops at InvokeCall and InvokeCreate.
func NewMachine(ctx Context, header Header, patch *params.Patch, cfg Config) *Machine {
	cache := newCommitCache()
	return newMachine(ctx, header, patch, cfg, cache, newStateLayer(nil, cache), 0)
}

func newMachine(ctx Context, header Header, patch *params.Patch, cfg Config, cache *commitCache, state *stateLayer, depth int) *Machine {
	m := &Machine{
		ctx:    ctx,
		header: header,
		patch:  patch,
		cfg:    cfg,
		table:  jumpTableFor(patch),
		cache:  cache,
		state:  state,
		depth:  depth,
		hasher: sha3.NewLegacyKeccak256().(crypto.KeccakState),
	}
	m.scope = &ScopeContext{
		Memory:   NewMemory(),
		Stack:    newstack(),
		Contract: newContract(&m.ctx, cfg.JumpDestCache),
	}
	return m
}

// CommitAccount adds an account fact to the machine's commit cache.
func (m *Machine) CommitAccount(commitment AccountCommitment) error {
	return m.cache.commitAccount(commitment)
}

// CommitBlockhash adds a block hash to the machine's commit cache.
func (m *Machine) CommitBlockhash(number uint64, hash common.Hash) error {
	return m.cache.commitBlockhash(number, hash)
}

func (m *Machine) Status() Status       { return m.status }
func (m *Machine) Context() *Context    { return &m.ctx }
func (m *Machine) PC() uint64           { return m.pc }
func (m *Machine) Depth() int           { return m.depth }
func (m *Machine) Stack() *Stack        { return m.scope.Stack }
func (m *Machine) Memory() *Memory      { return m.scope.Memory }
func (m *Machine) Out() []byte          { return m.out }
func (m *Machine) ReturnData() []byte   { return m.returnData }
func (m *Machine) Patch() *params.Patch { return m.patch }

// Gas returns the gas left to the machine.
func (m *Machine) Gas() uint64 { return m.scope.Contract.Gas }

// UsedGas returns the gas consumed so far, without refunds.
func (m *Machine) UsedGas() uint64 { return m.ctx.Gas - m.scope.Contract.Gas }

// Fire steps the machine until it leaves the Running status or needs
// more state.
func (m *Machine) Fire() error {
	for m.status.Kind == Running {
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes a single instruction. A *RequireError leaves the machine
// untouched: commit the missing fact and step again.
func (m *Machine) Step() error {
	if m.status.Kind != Running {
		return ErrNotRunning
	}
	if !m.initialized {
		if err := m.initialize(); err != nil {
			return err
		}
		if m.status.Kind != Running {
			return nil
		}
	}
	if m.isPrecompile {
		m.runPrecompile()
		return nil
	}
	var (
		contract  = m.scope.Contract
		stack     = m.scope.Stack
		mem       = m.scope.Memory
		op        = contract.GetOp(m.pc)
		operation = m.table[op]
		cost      = operation.constantGas
	)
	if operation.undefined {
		m.fault(op, 0, &ErrInvalidOpCode{opcode: op})
		return nil
	}
	// Validate stack
	if err := operation.validateStack(stack); err != nil {
		m.fault(op, 0, err)
		return nil
	}
	// If the operation is valid, enforce write restrictions
	if m.ctx.IsStatic && (operation.writes || (op == CALL && !stack.Back(2).IsZero())) {
		m.fault(op, 0, ErrWriteProtection)
		return nil
	}
	if operation.require != nil {
		if err := operation.require(m, stack); err != nil {
			return err
		}
	}
	if !contract.UseGas(cost) {
		m.fault(op, cost, ErrOutOfGas)
		return nil
	}
	var memorySize uint64
	// calculate the new memory size and expand the memory to fit
	// the operation
	// Memory check needs to be done prior to evaluating the dynamic gas portion,
	// to detect calculation overflows
	if operation.memorySize != nil {
		memSize, overflow := operation.memorySize(stack)
		if overflow {
			m.fault(op, cost, ErrGasUintOverflow)
			return nil
		}
		// memory is expanded in words of 32 bytes. Gas
		// is also calculated in words.
		if memorySize, overflow = math.SafeMul(toWordSize(memSize), 32); overflow {
			m.fault(op, cost, ErrGasUintOverflow)
			return nil
		}
	}
	// Dynamic portion of gas
	// consume the gas and return an error if not enough gas is available.
	// cost is explicitly set so that the capture state defer method can get the proper cost
	if operation.dynamicGas != nil {
		dynamicCost, err := operation.dynamicGas(m, contract, stack, mem, memorySize)
		cost = saturatingAdd(cost, dynamicCost)
		if err != nil {
			m.fault(op, cost, err)
			return nil
		}
		if !contract.UseGas(dynamicCost) {
			m.fault(op, cost, ErrOutOfGas)
			return nil
		}
	}
	if limit := m.patch.MemoryLimit; limit > 0 && memorySize > limit {
		m.status = Status{Kind: ExitedNotSupported, Err: ErrMemoryLimit}
		return nil
	}
	if m.cfg.Tracer != nil {
		m.cfg.Tracer.CaptureState(m.pc, op, contract.Gas+cost, cost, m.scope, m.returnData, m.depth, nil)
	}
	if memorySize > 0 {
		mem.Resize(memorySize)
	}
	// execute the operation
	res, err := operation.execute(&m.pc, m, m.scope)
	switch {
	case err == nil:
		m.pc++
	case errors.Is(err, errStopToken):
		m.out = res
		m.exit()
	case errors.Is(err, ErrExecutionReverted):
		m.out = res
		m.status = Status{Kind: ExitedErr, Err: ErrExecutionReverted}
	default:
		m.fault(op, cost, err)
	}
	return nil
}

// fault reports err to the tracer and halts.
func (m *Machine) fault(op OpCode, cost uint64, err error) {
	if m.cfg.Tracer != nil {
		m.cfg.Tracer.CaptureFault(m.pc, op, m.scope.Contract.Gas, cost, m.scope, m.depth, err)
	}
	if errors.Is(err, ErrGasUintOverflow) {
		err = fmt.Errorf("%w: %v", ErrOutOfGas, err)
	}
	m.halt(err)
}

// halt ends the machine with an on-chain error. All gas is consumed.
func (m *Machine) halt(err error) {
	m.scope.Contract.Gas = 0
	m.out = nil
	m.status = Status{Kind: ExitedErr, Err: err}
}

// exit ends the machine successfully, depositing the code of a create.
func (m *Machine) exit() {
	if !m.ctx.IsCreate {
		m.status = Status{Kind: ExitedOk}
		return
	}
	code := m.out
	if limit := m.patch.CodeDepositLimit; limit > 0 && uint64(len(code)) > limit {
		m.halt(ErrMaxCodeSizeExceeded)
		return
	}
	deposit := saturatingMul(uint64(len(code)), params.CreateDataGas)
	if !m.scope.Contract.UseGas(deposit) {
		if !m.patch.ForceCodeDeposit {
			m.halt(ErrCodeStoreOutOfGas)
			return
		}
		code = nil
	}
	if err := m.state.setCode(m.ctx.Address, code); err != nil {
		m.halt(err)
		return
	}
	m.out = code
	m.status = Status{Kind: ExitedOk}
}

// initialize performs the value transfer and account creation of the
// context. Every account is loaded before anything is mutated.
func (m *Machine) initialize() error {
	var (
		ctx   = &m.ctx
		value = orZero(ctx.Value)
	)
	target, err := m.state.account(ctx.Address)
	if err != nil {
		return err
	}
	if !value.IsZero() {
		if _, err := m.state.account(ctx.Caller); err != nil {
			return err
		}
	}
	m.initialized = true

	if ctx.IsCreate {
		if target.nonce != 0 || len(target.code) != 0 {
			m.halt(ErrContractAddressCollision)
			return nil
		}
		var nonce uint64
		if m.patch.CreateIncreaseNonce {
			nonce = 1
		}
		if err := m.state.create(ctx.Address, nonce); err != nil {
			m.halt(err)
			return nil
		}
		if !value.IsZero() {
			if err := m.state.transfer(ctx.Caller, ctx.Address, value); err != nil {
				m.halt(err)
			}
		}
		return nil
	}
	impl, isPrecompile := m.patch.Precompile(ctx.CodeAddress)
	m.isPrecompile, m.precompile = isPrecompile, impl

	exists := target.exists
	if !exists && (m.patch.EmptyConsideredExists || !value.IsZero() || isPrecompile) {
		acc, err := m.state.mutable(ctx.Address)
		if err != nil {
			m.halt(err)
			return nil
		}
		acc.exists, exists = true, true
	}
	if !value.IsZero() {
		if err := m.state.transfer(ctx.Caller, ctx.Address, value); err != nil {
			m.halt(err)
		}
	} else if exists {
		m.state.touched.Add(ctx.Address)
	}
	return nil
}

func (m *Machine) runPrecompile() {
	if m.precompile == nil {
		m.status = Status{Kind: ExitedNotSupported, Err: ErrPrecompileNotSupported}
		return
	}
	gas := m.precompile.RequiredGas(m.ctx.Data)
	if !m.scope.Contract.UseGas(gas) {
		m.halt(ErrOutOfGas)
		return
	}
	out, err := m.precompile.Run(m.ctx.Data)
	if err != nil {
		m.halt(err)
		return
	}
	m.out = out
	m.status = Status{Kind: ExitedOk}
}

// call is the shared tail of the CALL family. The call gas has already
// been charged; failures that stay local to the caller push 0 and hand the
// forwarded gas back.
func (m *Machine) call(ctx *Context, retOffset, retSize uint64) error {
	var (
		stack    = m.scope.Stack
		contract = m.scope.Contract
		transfer = ctx.Value
	)
	if ctx.Kind == CALLCODE {
		transfer = ctx.ApparentValue
	}
	if m.callFailed {
		m.returnData = nil
		stack.push(new(uint256.Int))
		return nil
	}
	failed := uint64(m.depth+1) > m.patch.CallstackLimit
	if !failed && transfer != nil && !transfer.IsZero() {
		self, err := m.state.account(contract.Address())
		if err != nil {
			return err
		}
		failed = self.balance.Lt(transfer)
	}
	if failed {
		contract.RefundGas(ctx.Gas)
		m.returnData = nil
		stack.push(new(uint256.Int))
		return nil
	}
	code, err := m.state.account(ctx.CodeAddress)
	if err != nil {
		return err
	}
	ctx.Code = code.code
	ctx.Origin = m.ctx.Origin
	ctx.GasPrice = m.ctx.GasPrice
	ctx.IsStatic = ctx.IsStatic || m.ctx.IsStatic

	m.pending.retOffset, m.pending.retSize = retOffset, retSize
	m.status = Status{Kind: InvokeCall, Context: ctx}
	return nil
}

// create is the shared tail of CREATE and CREATE2. It forwards all the
// remaining gas, or all but one 64th under the L64 rule.
func (m *Machine) create(kind OpCode, address common.Address, input []byte, value *uint256.Int) error {
	var (
		stack    = m.scope.Stack
		contract = m.scope.Contract
		gas      = contract.Gas
	)
	if m.patch.CallCreateL64AfterGas {
		gas -= gas / 64
	}
	self, err := m.state.account(contract.Address())
	if err != nil {
		return err
	}
	if uint64(m.depth+1) > m.patch.CallstackLimit || self.balance.Lt(value) {
		m.returnData = nil
		stack.push(new(uint256.Int))
		return nil
	}
	target, err := m.state.account(address)
	if err != nil {
		return err
	}
	contract.UseGas(gas)
	acc, err := m.state.mutable(contract.Address())
	if err != nil {
		return err
	}
	acc.nonce++
	m.returnData = nil
	if target.nonce != 0 || len(target.code) != 0 {
		stack.push(new(uint256.Int))
		return nil
	}
	m.status = Status{Kind: InvokeCreate, Context: &Context{
		Kind:          kind,
		Address:       address,
		Caller:        contract.Address(),
		CodeAddress:   address,
		Origin:        m.ctx.Origin,
		Code:          input,
		Gas:           gas,
		GasPrice:      m.ctx.GasPrice,
		Value:         value,
		ApparentValue: value,
		IsCreate:      true,
	}}
	return nil
}

// spawn builds the machine running the context m is invoking.
func (m *Machine) spawn() *Machine {
	ctx := m.status.Context
	return newMachine(*ctx, m.header, m.patch, m.cfg, m.cache, m.state.child(), m.depth+1)
}

// applySub folds the outcome of a finished sub-machine back into m and
// resumes it.
func (m *Machine) applySub(sub *Machine) {
	var (
		stack    = m.scope.Stack
		contract = m.scope.Contract
		isCreate = sub.ctx.IsCreate
	)
	switch sub.status.Kind {
	case ExitedNotSupported:
		m.status = sub.status
		return
	case ExitedOk:
		m.state.merge(sub.state)
		contract.RefundGas(sub.scope.Contract.Gas)
		if isCreate {
			m.returnData = nil
			stack.push(new(uint256.Int).SetBytes(sub.ctx.Address.Bytes()))
		} else {
			m.returnData = sub.out
			m.scope.Memory.Set(m.pending.retOffset, m.pending.retSize, sub.out)
			stack.push(new(uint256.Int).SetOne())
		}
	case ExitedErr:
		if errors.Is(sub.status.Err, ErrExecutionReverted) {
			contract.RefundGas(sub.scope.Contract.Gas)
			m.returnData = sub.out
			if !isCreate {
				m.scope.Memory.Set(m.pending.retOffset, m.pending.retSize, sub.out)
			}
		} else {
			m.returnData = nil
		}
		stack.push(new(uint256.Int))
	default:
		log.Error("Sub-machine applied before exiting", "status", sub.status)
		return
	}
	m.status = Status{Kind: Running}
}

// release returns the pooled stack of a machine that will not be read again.
func (m *Machine) release() {
	returnStack(m.scope.Stack)
	m.scope.Stack = nil
}
