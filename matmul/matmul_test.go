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
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/mat"
)

// seeded returns the A, B, C triple every benchmark run starts from:
// A all ones, B and C with row i set to i+1.
func seeded(n int) (a, b, c []float64) {
	a = make([]float64, n*n)
	b = make([]float64, n*n)
	c = make([]float64, n*n)
	for i := range n {
		for j := range n {
			a[i*n+j] = 1
			b[i*n+j] = float64(i + 1)
			c[i*n+j] = float64(i + 1)
		}
	}
	return a, b, c
}

func randomTriple(n int, seed int64) (a, b, c []float64) {
	rng := rand.New(rand.NewSource(seed))
	a = make([]float64, n*n)
	b = make([]float64, n*n)
	c = make([]float64, n*n)
	for i := range a {
		a[i] = rng.Float64()*2 - 1
		b[i] = rng.Float64()*2 - 1
		c[i] = rng.Float64()*2 - 1
	}
	return a, b, c
}

// gonumReference computes C + A*B with gonum as an independent oracle.
func gonumReference(a, b, c []float64, n int) []float64 {
	var prod mat.Dense
	prod.Mul(mat.NewDense(n, n, append([]float64(nil), a...)), mat.NewDense(n, n, append([]float64(nil), b...)))
	var sum mat.Dense
	sum.Add(&prod, mat.NewDense(n, n, append([]float64(nil), c...)))
	return sum.RawMatrix().Data
}

func maxRelErr(got, want []float64) float64 {
	var maxErr float64
	for i := range want {
		diff := math.Abs(got[i] - want[i])
		if scale := math.Abs(want[i]); scale > 1 {
			diff /= scale
		}
		maxErr = max(maxErr, diff)
	}
	return maxErr
}

var approx = cmpopts.EquateApprox(1e-9, 1e-12)

// runKernel runs k on a copy of c and returns the result.
func runKernel(k Kernel, a, b, c []float64, n, blockSize int) []float64 {
	out := append([]float64(nil), c...)
	k.Run(a, b, out, n, blockSize)
	return out
}

func TestKernels2x2(t *testing.T) {
	a := []float64{1, 1, 1, 1}
	b := []float64{1, 1, 2, 2}
	want := []float64{4, 4, 5, 5}

	cases := []struct {
		name      string
		kernel    Kernel
		blockSize int
	}{
		{"naive", KernelNaive, 0},
		{"line", KernelLine, 0},
		{"block1", KernelBlocked, 1},
		{"block2", KernelBlocked, 2},
		{"block3", KernelBlocked, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := []float64{1, 1, 2, 2}
			tc.kernel.Run(a, b, c, 2, tc.blockSize)
			for i := range c {
				if c[i] != want[i] {
					t.Errorf("c[%d] = %v, want %v", i, c[i], want[i])
				}
			}
		})
	}
}

func TestKernelsSeededMatchClosedForm(t *testing.T) {
	// With A all ones and B row k = k+1: (A*B)[i][j] = n(n+1)/2, so
	// C[i][j] = i+1 + n(n+1)/2.
	n := 37
	a, b, c := seeded(n)
	for _, k := range Kernels {
		t.Run(k.String(), func(t *testing.T) {
			got := runKernel(k, a, b, c, n, 8)
			for i := range n {
				want := float64(i+1) + float64(n*(n+1)/2)
				for j := range n {
					if got[i*n+j] != want {
						t.Fatalf("c[%d][%d] = %v, want %v", i, j, got[i*n+j], want)
					}
				}
			}
		})
	}
}

func TestCrossKernelEquivalence(t *testing.T) {
	n := 64
	a, b, c := randomTriple(n, 1)
	want := runKernel(KernelNaive, a, b, c, n, 0)

	if diff := cmp.Diff(want, runKernel(KernelLine, a, b, c, n, 0), approx); diff != "" {
		t.Errorf("line differs from naive (-naive +line):\n%s", diff)
	}
	for _, bs := range []int{8, 16, 32} {
		t.Run(fmt.Sprintf("block%d", bs), func(t *testing.T) {
			got := runKernel(KernelBlocked, a, b, c, n, bs)
			if diff := cmp.Diff(want, got, approx); diff != "" {
				t.Errorf("blocked differs from naive (-naive +blocked):\n%s", diff)
			}
		})
	}
}

func TestKernelsMatchGonum(t *testing.T) {
	for _, n := range []int{1, 5, 33, 64} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			a, b, c := randomTriple(n, int64(n))
			want := gonumReference(a, b, c, n)
			for _, k := range Kernels {
				got := runKernel(k, a, b, c, n, 16)
				if e := maxRelErr(got, want); e > 1e-9 {
					t.Errorf("%s: max error %e exceeds tolerance", k, e)
				}
			}
		})
	}
}

func TestBlockSizeInvariance(t *testing.T) {
	cases := []struct {
		n          int
		blockSizes []int
	}{
		{64, []int{1, 2, 4, 8, 16, 32, 64}},
		// Non-divisors and an oversized block: tail tiles are clamped to n.
		{50, []int{3, 7, 16, 49, 64, 1000}},
	}
	for _, tc := range cases {
		a, b, c := randomTriple(tc.n, 7)
		want := runKernel(KernelLine, a, b, c, tc.n, 0)
		for _, bs := range tc.blockSizes {
			t.Run(fmt.Sprintf("%dx%d", tc.n, bs), func(t *testing.T) {
				got := runKernel(KernelBlocked, a, b, c, tc.n, bs)
				if diff := cmp.Diff(want, got, approx); diff != "" {
					t.Errorf("block size %d changed the result:\n%s", bs, diff)
				}
			})
		}
	}
}

func TestBlockedStaysInBounds(t *testing.T) {
	// Operands sized exactly n*n: any access past n-1 panics with an index
	// out of range, and nothing beyond the n*n prefix of a larger C may move.
	n := 10
	a, b, _ := seeded(n)
	c := make([]float64, n*n+n)
	for i := n * n; i < len(c); i++ {
		c[i] = -7
	}
	Blocked(a, b, c, n, 4)
	for i := n * n; i < len(c); i++ {
		if c[i] != -7 {
			t.Fatalf("c[%d] written past n*n", i)
		}
	}
}

func TestPanics(t *testing.T) {
	expectPanic := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Errorf("%s: expected panic", name)
			}
		}()
		fn()
	}
	short := make([]float64, 3)
	full := make([]float64, 4)
	expectPanic("naive short A", func() { Naive(short, full, full, 2) })
	expectPanic("line short B", func() { LineOrder(full, short, full, 2) })
	expectPanic("blocked short C", func() { Blocked(full, full, short, 2, 2) })
	expectPanic("blocked zero block", func() { Blocked(full, full, full, 2, 0) })
	expectPanic("invalid kernel", func() { Kernel(99).Run(full, full, full, 2, 1) })
}

func TestParseKernel(t *testing.T) {
	cases := map[string]Kernel{
		"naive":   KernelNaive,
		"mult":    KernelNaive,
		"Line":    KernelLine,
		"block":   KernelBlocked,
		"blocked": KernelBlocked,
	}
	for in, want := range cases {
		got, err := ParseKernel(in)
		if err != nil || got != want {
			t.Errorf("ParseKernel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseKernel("strassen"); err == nil {
		t.Error("ParseKernel(strassen) should fail")
	}

	for _, k := range Kernels {
		text, err := k.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Kernel
		if err := back.UnmarshalText(text); err != nil || back != k {
			t.Errorf("text round trip of %v gave %v, %v", k, back, err)
		}
	}
	if _, err := Kernel(-1).MarshalText(); err == nil {
		t.Error("MarshalText of invalid kernel should fail")
	}
	if !KernelBlocked.NeedsBlockSize() || KernelLine.NeedsBlockSize() {
		t.Error("only the blocked kernel takes a block size")
	}
}

func TestSuggestBlockSize(t *testing.T) {
	p := CacheParams{L1DataBytes: 32 * 1024, LineBytes: 64}
	if got := p.SuggestBlockSize(4096); got != 32 {
		t.Errorf("SuggestBlockSize(4096) = %d, want 32", got)
	}
	if got := p.SuggestBlockSize(20); got != 20 {
		t.Errorf("SuggestBlockSize(20) = %d, want 20", got)
	}
	big := CacheParams{L1DataBytes: 192 * 1024}
	if got := big.SuggestBlockSize(4096); got != 64 {
		t.Errorf("192KB L1: SuggestBlockSize = %d, want 64", got)
	}
	if got := (CacheParams{}).SuggestBlockSize(1 << 20); got != 32 {
		t.Errorf("zero params should fall back to the default L1, got %d", got)
	}

	d := DetectCacheParams()
	t.Logf("detected: L1=%d line=%d", d.L1DataBytes, d.LineBytes)
	if d.LineBytes <= 0 {
		t.Errorf("cache line size %d", d.LineBytes)
	}
}
