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

func checkOperands(a, b, c []float64, n int) {
	size := n * n
	if len(a) < size {
		panic("matmul: A slice too short")
	}
	if len(b) < size {
		panic("matmul: B slice too short")
	}
	if len(c) < size {
		panic("matmul: C slice too short")
	}
}

// Naive computes C += A * B with the textbook i, j, k nesting.
//
// The innermost loop reads B[k*n+j] for consecutive k, striding a full row
// per step, so B is traversed column-major.
func Naive(a, b, c []float64, n int) {
	checkOperands(a, b, c, n)
	for i := range n {
		for j := range n {
			for k := range n {
				c[i*n+j] += a[i*n+k] * b[k*n+j]
			}
		}
	}
}

// LineOrder computes C += A * B with the i, k, j nesting.
//
// A[i,k] is fixed across the innermost loop, which then streams through row
// k of B and row i of C.
func LineOrder(a, b, c []float64, n int) {
	checkOperands(a, b, c, n)
	for i := range n {
		for k := range n {
			aik := a[i*n+k]
			for j := range n {
				c[i*n+j] += aik * b[k*n+j]
			}
		}
	}
}
