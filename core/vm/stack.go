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
	"sync"

	"github.com/holiman/uint256"

	"github.com/CortexFoundation/stepvm/params"
)

var stackPool = sync.Pool{
	New: func() interface{} {
		return &Stack{data: make([]uint256.Int, 0, 16)}
	},
}

// Stack is an object for basic stack operations. Items popped to the stack are
// expected to be changed and modified. stack does not take care of adding newly
// initialised objects.
type Stack struct {
	data []uint256.Int
}

func newstack() *Stack {
	return stackPool.Get().(*Stack)
}

func returnStack(s *Stack) {
	s.data = s.data[:0]
	stackPool.Put(s)
}

// NewStack returns an empty operand stack.
func NewStack() *Stack {
	return newstack()
}

// Data returns the underlying uint256.Int array, bottom first.
func (st *Stack) Data() []uint256.Int {
	return st.data
}

// Len returns the number of items on the stack.
func (st *Stack) Len() int {
	return len(st.data)
}

// Push pushes a copy of d, failing when the stack is full.
func (st *Stack) Push(d *uint256.Int) error {
	if len(st.data) >= int(params.StackLimit) {
		return &ErrStackOverflow{stackLen: len(st.data), limit: int(params.StackLimit)}
	}
	st.push(d)
	return nil
}

// Pop removes and returns the top item.
func (st *Stack) Pop() (uint256.Int, error) {
	if len(st.data) == 0 {
		return uint256.Int{}, &ErrStackUnderflow{stackLen: 0, required: 1}
	}
	return st.pop(), nil
}

// Peek returns the i'th item counted from the top (0 is the top).
func (st *Stack) Peek(i int) (*uint256.Int, error) {
	if err := st.require(i + 1); err != nil {
		return nil, err
	}
	return st.Back(i), nil
}

// Set overwrites the i'th item counted from the top.
func (st *Stack) Set(i int, v *uint256.Int) error {
	if err := st.require(i + 1); err != nil {
		return err
	}
	st.Back(i).Set(v)
	return nil
}

// Dup pushes a copy of the i'th item counted from the top.
func (st *Stack) Dup(i int) error {
	if err := st.require(i + 1); err != nil {
		return err
	}
	if len(st.data) >= int(params.StackLimit) {
		return &ErrStackOverflow{stackLen: len(st.data), limit: int(params.StackLimit)}
	}
	st.dup(i + 1)
	return nil
}

// Swap exchanges the top with the i'th item counted from the top, i >= 1.
func (st *Stack) Swap(i int) error {
	if i < 1 {
		return &ErrStackUnderflow{stackLen: len(st.data), required: 2}
	}
	if err := st.require(i + 1); err != nil {
		return err
	}
	st.swap(i + 1)
	return nil
}

func (st *Stack) push(d *uint256.Int) {
	// NOTE push limit (1024) is checked in the step loop
	st.data = append(st.data, *d)
}

func (st *Stack) pop() (ret uint256.Int) {
	ret = st.data[len(st.data)-1]
	st.data = st.data[:len(st.data)-1]
	return
}

func (st *Stack) len() int {
	return len(st.data)
}

func (st *Stack) swap(n int) {
	st.data[st.len()-n], st.data[st.len()-1] = st.data[st.len()-1], st.data[st.len()-n]
}

func (st *Stack) dup(n int) {
	st.push(&st.data[st.len()-n])
}

func (st *Stack) peek() *uint256.Int {
	return &st.data[st.len()-1]
}

// Back returns the n'th item in stack
func (st *Stack) Back(n int) *uint256.Int {
	return &st.data[st.len()-n-1]
}

func (st *Stack) require(n int) error {
	if st.len() < n {
		return &ErrStackUnderflow{stackLen: st.len(), required: n}
	}
	return nil
}

func (st *Stack) String() string {
	var s string
	for i := len(st.data) - 1; i >= 0; i-- {
		s += st.data[i].Hex() + " "
	}
	return s
}
