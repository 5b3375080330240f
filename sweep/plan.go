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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/ajroetker/go-matbench/matmul"
)

// ErrInvalidPlan is returned by Plan.Validate and the loaders.
var ErrInvalidPlan = errors.New("sweep: invalid plan")

// Plan is one kernel swept over a grid of sizes (and block sizes).
type Plan struct {
	Name       string        `yaml:"name"`
	Kernel     matmul.Kernel `yaml:"kernel"`
	Sizes      Sequence      `yaml:"sizes"`
	BlockSizes Sequence      `yaml:"block_sizes,omitempty"`
}

// Point is one grid coordinate. BlockSize is 0 for unblocked kernels.
type Point struct {
	N         int
	BlockSize int
}

// Validate checks the plan without expanding it.
func (p Plan) Validate() error {
	_, err := p.Points()
	return err
}

// Points returns the grid in measurement order: ascending N and, for the
// blocked kernel, ascending block size within each N. Block sizes are
// ignored for other kernels.
func (p Plan) Points() ([]Point, error) {
	sizes, err := p.Sizes.Sorted()
	if err != nil {
		return nil, fmt.Errorf("%w %q: sizes: %w", ErrInvalidPlan, p.Name, err)
	}
	if !p.Kernel.NeedsBlockSize() {
		return lo.Map(sizes, func(n int, _ int) Point {
			return Point{N: n}
		}), nil
	}

	blocks, err := p.BlockSizes.Sorted()
	if err != nil {
		return nil, fmt.Errorf("%w %q: block sizes: %w", ErrInvalidPlan, p.Name, err)
	}
	return lo.FlatMap(sizes, func(n int, _ int) []Point {
		return lo.Map(blocks, func(bs int, _ int) Point {
			return Point{N: n, BlockSize: bs}
		})
	}), nil
}

// planFile is the YAML document layout.
type planFile struct {
	Plans []Plan `yaml:"plans"`
}

// LoadPlans reads a YAML plan document and validates every plan.
func LoadPlans(r io.Reader) ([]Plan, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file planFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("sweep: decode plans: %w", err)
	}
	if len(file.Plans) == 0 {
		return nil, fmt.Errorf("%w: no plans", ErrInvalidPlan)
	}
	seen := map[string]bool{}
	for i, p := range file.Plans {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: plan %d has no name", ErrInvalidPlan, i)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%w: duplicate plan %q", ErrInvalidPlan, p.Name)
		}
		seen[p.Name] = true
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Plans, nil
}

// LoadPlanFile reads plans from a YAML file.
func LoadPlanFile(path string) ([]Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	defer f.Close()
	return LoadPlans(f)
}

// BuiltinPlans returns the classic cache study grids:
// naive and line over 600..3000 step 400, line over 4096..10240 step 2048,
// and blocked over 4096..10240 step 2048 with block sizes 32..1024.
func BuiltinPlans() []Plan {
	small := Linear(600, 3000, 400)
	large := Linear(4096, 10240, 2048)
	return []Plan{
		{Name: "naive", Kernel: matmul.KernelNaive, Sizes: small},
		{Name: "line", Kernel: matmul.KernelLine, Sizes: small},
		{Name: "line-large", Kernel: matmul.KernelLine, Sizes: large},
		{Name: "block", Kernel: matmul.KernelBlocked, Sizes: large, BlockSizes: Doubling(32, 1024)},
	}
}

// FindPlan returns the plan called name.
func FindPlan(plans []Plan, name string) (Plan, bool) {
	return lo.Find(plans, func(p Plan) bool { return p.Name == name })
}

// PlanNames lists plan names in order.
func PlanNames(plans []Plan) []string {
	return lo.Map(plans, func(p Plan, _ int) string { return p.Name })
}
