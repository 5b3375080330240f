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

// Package matmul provides square float64 matrix multiplication kernels that
// differ only in loop nesting order, for studying cache behavior.
//
// Every kernel accumulates into a pre-seeded C:
//
//	C[i,j] += sum(A[i,k] * B[k,j]) for k in 0..N-1
//
// The nesting order is the point of the package:
//   - Naive (i, j, k): the inner loop walks B down a column, one full row
//     width per step.
//   - LineOrder (i, k, j): the inner loop walks rows of B and C
//     contiguously.
//   - Blocked (ii, kk, jj, then i, k, j): tiles of blockSize on each axis,
//     clamped to N, keep the working set of a tile in cache.
//
// Example usage:
//
//	// a, b, c are N*N row-major slices
//	matmul.Blocked(a, b, c, n, 64)
//
// Kernels are single-threaded.
package matmul
