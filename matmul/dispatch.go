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

package matmul

import (
	"fmt"
	"strings"
)

// Kernel selects one of the multiplication strategies.
type Kernel int

const (
	// KernelNaive selects Naive (i, j, k).
	KernelNaive Kernel = iota

	// KernelLine selects LineOrder (i, k, j).
	KernelLine

	// KernelBlocked selects Blocked (tiled i, k, j).
	KernelBlocked
)

// Kernels lists every strategy in menu order.
var Kernels = []Kernel{KernelNaive, KernelLine, KernelBlocked}

// String returns the canonical kernel name.
func (k Kernel) String() string {
	switch k {
	case KernelNaive:
		return "naive"
	case KernelLine:
		return "line"
	case KernelBlocked:
		return "block"
	default:
		return fmt.Sprintf("Kernel(%d)", int(k))
	}
}

// ParseKernel converts a kernel name to a Kernel.
// Accepted names: "naive" or "mult", "line", "block" or "blocked".
func ParseKernel(s string) (Kernel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "naive", "mult":
		return KernelNaive, nil
	case "line":
		return KernelLine, nil
	case "block", "blocked":
		return KernelBlocked, nil
	}
	return 0, fmt.Errorf("matmul: unknown kernel %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kernel) MarshalText() ([]byte, error) {
	if k < KernelNaive || k > KernelBlocked {
		return nil, fmt.Errorf("matmul: invalid kernel %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kernel) UnmarshalText(text []byte) error {
	parsed, err := ParseKernel(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// NeedsBlockSize reports whether the kernel takes a block size.
func (k Kernel) NeedsBlockSize() bool {
	return k == KernelBlocked
}

// Run invokes the selected kernel. blockSize is ignored unless the kernel
// is KernelBlocked.
func (k Kernel) Run(a, b, c []float64, n, blockSize int) {
	switch k {
	case KernelNaive:
		Naive(a, b, c, n)
	case KernelLine:
		LineOrder(a, b, c, n)
	case KernelBlocked:
		Blocked(a, b, c, n, blockSize)
	default:
		panic(fmt.Sprintf("matmul: invalid kernel %d", int(k)))
	}
}
