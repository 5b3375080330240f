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

// Blocked computes C += A * B over cubic tiles of side blockSize.
//
// Tiles are visited in ii, kk, jj order; inside a tile the nesting is
// i, k, j as in LineOrder. When blockSize does not divide n the last tile
// along each axis is truncated to n, and a blockSize larger than n yields a
// single tile.
func Blocked(a, b, c []float64, n, blockSize int) {
	if blockSize <= 0 {
		panic("matmul: block size must be positive")
	}
	checkOperands(a, b, c, n)

	for ii := 0; ii < n; ii += blockSize {
		iEnd := min(ii+blockSize, n)
		for kk := 0; kk < n; kk += blockSize {
			kEnd := min(kk+blockSize, n)
			for jj := 0; jj < n; jj += blockSize {
				jEnd := min(jj+blockSize, n)

				for i := ii; i < iEnd; i++ {
					cRow := c[i*n : (i+1)*n]
					for k := kk; k < kEnd; k++ {
						aik := a[i*n+k]
						bRow := b[k*n : (k+1)*n]
						for j := jj; j < jEnd; j++ {
							cRow[j] += aik * bRow[j]
						}
					}
				}
			}
		}
	}
}
