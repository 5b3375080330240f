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

package sweep

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/go-matbench/harness"
	"github.com/ajroetker/go-matbench/matmul"
	"github.com/ajroetker/go-matbench/matrix"
)

// recorder measures nothing; it records the runs it is asked for.
type recorder struct {
	runs   []harness.Run
	failAt int // 1-based index of the call that fails, 0 for never
}

func (r *recorder) Measure(run harness.Run) (harness.Result, error) {
	r.runs = append(r.runs, run)
	if r.failAt == len(r.runs) {
		return harness.Result{}, matrix.ErrInsufficientMemory
	}
	return harness.Result{Kernel: run.Kernel, N: run.N, BlockSize: run.BlockSize}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestBlockedSweepOrder(t *testing.T) {
	rec := &recorder{}
	d := NewDriver(rec, quietLogger())

	plan := Plan{
		Name:       "order",
		Kernel:     matmul.KernelBlocked,
		Sizes:      Sequence{4096, 6144, 8192},
		BlockSizes: Sequence{32, 64},
	}
	var emitted []harness.Result
	results, err := d.Run(plan, func(r harness.Result) { emitted = append(emitted, r) })
	require.NoError(t, err)

	want := []harness.Run{
		{Kernel: matmul.KernelBlocked, N: 4096, BlockSize: 32},
		{Kernel: matmul.KernelBlocked, N: 4096, BlockSize: 64},
		{Kernel: matmul.KernelBlocked, N: 6144, BlockSize: 32},
		{Kernel: matmul.KernelBlocked, N: 6144, BlockSize: 64},
		{Kernel: matmul.KernelBlocked, N: 8192, BlockSize: 32},
		{Kernel: matmul.KernelBlocked, N: 8192, BlockSize: 64},
	}
	assert.Equal(t, want, rec.runs)
	require.Len(t, results, 6)
	assert.Equal(t, results, emitted)
	for i, r := range results {
		assert.Equal(t, want[i].N, r.N)
		assert.Equal(t, want[i].BlockSize, r.BlockSize)
	}
}

func TestSweepSortsAndDeduplicates(t *testing.T) {
	plan := Plan{
		Kernel:     matmul.KernelBlocked,
		Sizes:      Sequence{8192, 4096, 4096},
		BlockSizes: Sequence{64, 32},
	}
	points, err := plan.Points()
	require.NoError(t, err)
	assert.Equal(t, []Point{{4096, 32}, {4096, 64}, {8192, 32}, {8192, 64}}, points)
}

func TestUnblockedSweepIgnoresBlockSizes(t *testing.T) {
	rec := &recorder{}
	plan := Plan{Name: "line", Kernel: matmul.KernelLine, Sizes: Sequence{600, 1000}, BlockSizes: Sequence{32}}
	results, err := NewDriver(rec, quietLogger()).Run(plan, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, []harness.Run{
		{Kernel: matmul.KernelLine, N: 600},
		{Kernel: matmul.KernelLine, N: 1000},
	}, rec.runs)
}

func TestSweepStopsOnFatalError(t *testing.T) {
	rec := &recorder{failAt: 3}
	plan := Plan{Name: "big", Kernel: matmul.KernelNaive, Sizes: Sequence{1, 2, 3, 4}}

	results, err := NewDriver(rec, quietLogger()).Run(plan, nil)
	require.ErrorIs(t, err, matrix.ErrInsufficientMemory)
	assert.Len(t, results, 2)
	assert.Len(t, rec.runs, 3, "no point after the failure is measured")
}

func TestRunAll(t *testing.T) {
	rec := &recorder{}
	plans := []Plan{
		{Name: "a", Kernel: matmul.KernelNaive, Sizes: Sequence{2}},
		{Name: "b", Kernel: matmul.KernelBlocked, Sizes: Sequence{4}, BlockSizes: Sequence{2, 4}},
	}
	results, err := NewDriver(rec, quietLogger()).RunAll(plans, nil)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	rec = &recorder{failAt: 2}
	results, err = NewDriver(rec, quietLogger()).RunAll(plans, nil)
	require.Error(t, err)
	assert.Len(t, results, 1)
}

func TestInvalidPlans(t *testing.T) {
	for name, plan := range map[string]Plan{
		"no sizes":       {Kernel: matmul.KernelNaive},
		"zero size":      {Kernel: matmul.KernelNaive, Sizes: Sequence{0}},
		"no block sizes": {Kernel: matmul.KernelBlocked, Sizes: Sequence{64}},
		"negative block": {Kernel: matmul.KernelBlocked, Sizes: Sequence{64}, BlockSizes: Sequence{-8}},
	} {
		err := plan.Validate()
		assert.ErrorIs(t, err, ErrInvalidPlan, name)
		assert.ErrorIs(t, err, ErrInvalidSequence, name)

		_, err = NewDriver(&recorder{}, quietLogger()).Run(plan, nil)
		assert.Error(t, err, name)
	}
}

func TestRangeValues(t *testing.T) {
	seq, err := Range{From: 600, To: 3000, Step: 400}.Values()
	require.NoError(t, err)
	assert.Equal(t, Sequence{600, 1000, 1400, 1800, 2200, 2600, 3000}, seq)

	seq, err = Range{From: 32, To: 1024, Factor: 2}.Values()
	require.NoError(t, err)
	assert.Equal(t, Sequence{32, 64, 128, 256, 512, 1024}, seq)

	seq, err = Range{From: 3, To: 10, Factor: 3}.Values()
	require.NoError(t, err)
	assert.Equal(t, Sequence{3, 9}, seq)

	for _, r := range []Range{
		{From: 0, To: 10, Step: 1},
		{From: 10, To: 1, Step: 1},
		{From: 1, To: 10},
		{From: 1, To: 10, Step: 1, Factor: 2},
		{From: 1, To: 10, Factor: 1},
		{From: 1, To: math.MaxInt, Step: 1},
		{From: 1, To: MaxSequenceLen + 1, Step: 1},
	} {
		_, err := r.Values()
		assert.ErrorIs(t, err, ErrInvalidSequence, "%+v", r)
	}
}

func TestRangeValuesNearMaxInt(t *testing.T) {
	seq, err := Range{From: 1, To: math.MaxInt, Factor: 2}.Values()
	require.NoError(t, err)
	require.Len(t, seq, strconv.IntSize-1)
	assert.Equal(t, 1<<(strconv.IntSize-2), seq[len(seq)-1])

	seq, err = Range{From: math.MaxInt - 4, To: math.MaxInt, Step: 2}.Values()
	require.NoError(t, err)
	assert.Equal(t, Sequence{math.MaxInt - 4, math.MaxInt - 2, math.MaxInt}, seq)

	seq, err = Range{From: 3, To: math.MaxInt, Factor: math.MaxInt}.Values()
	require.NoError(t, err)
	assert.Equal(t, Sequence{3}, seq)

	doc := "plans:\n  - name: huge\n    kernel: line\n    sizes: {from: 1, to: " + strconv.Itoa(math.MaxInt) + ", factor: 2}\n"
	plans, err := LoadPlans(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Len(t, plans[0].Sizes, strconv.IntSize-1)
}

func TestBuiltinPlans(t *testing.T) {
	plans := BuiltinPlans()
	assert.Equal(t, []string{"naive", "line", "line-large", "block"}, PlanNames(plans))

	naive, ok := FindPlan(plans, "naive")
	require.True(t, ok)
	assert.Equal(t, Sequence{600, 1000, 1400, 1800, 2200, 2600, 3000}, naive.Sizes)

	block, ok := FindPlan(plans, "block")
	require.True(t, ok)
	points, err := block.Points()
	require.NoError(t, err)
	assert.Len(t, points, 4*6)
	assert.Equal(t, Point{N: 4096, BlockSize: 32}, points[0])
	assert.Equal(t, Point{N: 10240, BlockSize: 1024}, points[len(points)-1])

	_, ok = FindPlan(plans, "missing")
	assert.False(t, ok)

	for _, p := range plans {
		assert.NoError(t, p.Validate(), p.Name)
	}
}

const planYAML = `
plans:
  - name: block
    kernel: blocked
    sizes: {from: 4096, to: 8192, step: 2048}
    block_sizes: {from: 32, to: 64, factor: 2}
  - name: small
    kernel: line
    sizes: [256, 64, 128]
  - name: one
    kernel: mult
    sizes: 100
`

func TestLoadPlans(t *testing.T) {
	plans, err := LoadPlans(strings.NewReader(planYAML))
	require.NoError(t, err)
	require.Len(t, plans, 3)

	assert.Equal(t, matmul.KernelBlocked, plans[0].Kernel)
	points, err := plans[0].Points()
	require.NoError(t, err)
	assert.Equal(t, []Point{{4096, 32}, {4096, 64}, {6144, 32}, {6144, 64}, {8192, 32}, {8192, 64}}, points)

	assert.Equal(t, matmul.KernelLine, plans[1].Kernel)
	points, err = plans[1].Points()
	require.NoError(t, err)
	assert.Equal(t, []Point{{N: 64}, {N: 128}, {N: 256}}, points)

	assert.Equal(t, matmul.KernelNaive, plans[2].Kernel)
	assert.Equal(t, Sequence{100}, plans[2].Sizes)
}

func TestLoadPlansErrors(t *testing.T) {
	cases := map[string]string{
		"unknown kernel": "plans:\n  - name: x\n    kernel: strassen\n    sizes: [1]\n",
		"unknown field":  "plans:\n  - name: x\n    kernel: line\n    sizes: [1]\n    threads: 4\n",
		"bad range":      "plans:\n  - name: x\n    kernel: line\n    sizes: {from: 10, to: 1, step: 1}\n",
		"no name":        "plans:\n  - kernel: line\n    sizes: [1]\n",
		"duplicate":      "plans:\n  - name: x\n    kernel: line\n    sizes: [1]\n  - name: x\n    kernel: line\n    sizes: [2]\n",
		"empty":          "plans: []\n",
		"missing sizes":  "plans:\n  - name: x\n    kernel: line\n",
	}
	for name, doc := range cases {
		_, err := LoadPlans(strings.NewReader(doc))
		assert.Error(t, err, name)
	}
}

func TestLoadPlanFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte(planYAML), 0o644))

	plans, err := LoadPlanFile(path)
	require.NoError(t, err)
	assert.Len(t, plans, 3)

	_, err = LoadPlanFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
