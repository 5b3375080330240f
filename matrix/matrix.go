// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package matrix

import (
	"errors"
	"fmt"
	"math"

	"github.com/shirou/gopsutil/mem"
)

// ElementBytes is the size of one matrix element.
const ElementBytes = 8

var (
	// ErrInvalidSize is returned for non-positive sizes or sizes whose
	// operand triple does not fit in the address space.
	ErrInvalidSize = errors.New("matrix: invalid size")

	// ErrInsufficientMemory is returned when the host cannot hold the
	// operand triple. Callers treat it as fatal.
	ErrInsufficientMemory = errors.New("matrix: insufficient memory")
)

// availableMemory reports the bytes the host can hand out without swapping.
// Replaced in tests.
var availableMemory = func() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// Matrix is a square, row-major buffer of float64 values.
type Matrix struct {
	N    int
	Data []float64
}

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) float64 {
	return m.Data[i*m.N+j]
}

// Row returns row i as a sub-slice of Data.
func (m *Matrix) Row(i int) []float64 {
	return m.Data[i*m.N : (i+1)*m.N]
}

// Preview returns a copy of the first min(limit, N) elements of row 0.
func (m *Matrix) Preview(limit int) []float64 {
	if m == nil || len(m.Data) == 0 || limit <= 0 {
		return nil
	}
	return append([]float64(nil), m.Data[:min(limit, m.N)]...)
}

// Operands holds the A, B and C matrices of a single run.
type Operands struct {
	N       int
	A, B, C *Matrix
}

// Bytes returns the memory needed by an operand triple of size n, or
// math.MaxUint64 when it overflows.
func Bytes(n int) uint64 {
	if n <= 0 {
		return 0
	}
	elems := uint64(n) * uint64(n)
	if elems/uint64(n) != uint64(n) || elems > math.MaxUint64/(3*ElementBytes) {
		return math.MaxUint64
	}
	return 3 * ElementBytes * elems
}

// Allocate returns a freshly seeded operand triple of size n.
//
// The host's available memory is checked first; when it is known to be too
// small ErrInsufficientMemory is returned instead of letting the runtime
// abort mid-allocation. If the probe itself fails the check is skipped.
func Allocate(n int) (*Operands, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	need := Bytes(n)
	if need == math.MaxUint64 || n > math.MaxInt/n {
		return nil, fmt.Errorf("%w: %d overflows", ErrInvalidSize, n)
	}
	if avail, err := availableMemory(); err == nil && avail < need {
		return nil, fmt.Errorf("%w: n=%d needs %d bytes, %d available",
			ErrInsufficientMemory, n, need, avail)
	}

	ops := &Operands{
		N: n,
		A: &Matrix{N: n, Data: make([]float64, n*n)},
		B: &Matrix{N: n, Data: make([]float64, n*n)},
		C: &Matrix{N: n, Data: make([]float64, n*n)},
	}
	ops.seed()
	return ops, nil
}

func (o *Operands) seed() {
	n := o.N
	for i := range o.A.Data {
		o.A.Data[i] = 1
	}
	for i := range n {
		v := float64(i + 1)
		rowB := o.B.Row(i)
		rowC := o.C.Row(i)
		for j := range n {
			rowB[j] = v
			rowC[j] = v
		}
	}
}

// Release drops the three buffers. Calling it again is a no-op.
func (o *Operands) Release() {
	if o == nil {
		return
	}
	for _, m := range []*Matrix{o.A, o.B, o.C} {
		if m != nil {
			m.Data = nil
		}
	}
	o.A, o.B, o.C = nil, nil, nil
}

// Released reports whether Release has been called.
func (o *Operands) Released() bool {
	return o == nil || o.A == nil
}
