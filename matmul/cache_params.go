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
	"unsafe"

	"golang.org/x/sys/cpu"
)

// CacheParams describes the data cache a blocked kernel should fit into.
//
// For a tile of side bs, one step of Blocked touches a bs×bs tile of each of
// A, B and C, so the working set is 3 * bs² * 8 bytes.
type CacheParams struct {
	L1DataBytes int // L1 data cache size per core
	LineBytes   int // Cache line size
}

// Minimum and default values used when detection has nothing better.
const (
	DefaultL1DataBytes = 32 * 1024
	MinBlockSize       = 8
)

// DetectCacheParams returns cache parameters for the running CPU.
// The line size comes from x/sys/cpu's padding type; the L1 size is the
// conservative 32KB found on most x86-64 and ARM64 cores.
func DetectCacheParams() CacheParams {
	return CacheParams{
		L1DataBytes: DefaultL1DataBytes,
		LineBytes:   int(unsafe.Sizeof(cpu.CacheLinePad{})),
	}
}

// TileBytes returns the working set of one Blocked tile step.
func TileBytes(blockSize int) int {
	return 3 * blockSize * blockSize * 8
}

// SuggestBlockSize returns the largest power of two, starting at
// MinBlockSize, whose three tiles fit in L1. The result is capped at n.
func (p CacheParams) SuggestBlockSize(n int) int {
	l1 := p.L1DataBytes
	if l1 <= 0 {
		l1 = DefaultL1DataBytes
	}
	bs := MinBlockSize
	for TileBytes(bs*2) <= l1 {
		bs *= 2
	}
	if n > 0 && bs > n {
		bs = n
	}
	return bs
}
