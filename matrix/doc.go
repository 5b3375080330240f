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

// Package matrix manages the operand buffers of a multiplication run.
//
// Every run owns a fresh Operands triple:
//
//	A[i][j] = 1
//	B[i][j] = i+1
//	C[i][j] = i+1
//
// C is seeded identically to B so that kernels accumulate onto it
// (C += A*B) instead of writing into a zeroed buffer. Buffers are flat,
// row-major slices of N*N float64 values.
//
// Example usage:
//
//	ops, err := matrix.Allocate(n)
//	if err != nil {
//		return err
//	}
//	defer ops.Release()
//	matmul.LineOrder(ops.A.Data, ops.B.Data, ops.C.Data, n)
package matrix
