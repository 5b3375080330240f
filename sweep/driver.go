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
	"fmt"
	"log/slog"

	"github.com/ajroetker/go-matbench/harness"
)

// Measurer runs one measurement. *harness.Harness implements it.
type Measurer interface {
	Measure(run harness.Run) (harness.Result, error)
}

// Driver walks plans point by point.
type Driver struct {
	measurer Measurer
	logger   *slog.Logger
}

// NewDriver returns a Driver. A nil logger means slog.Default().
func NewDriver(m Measurer, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{measurer: m, logger: logger}
}

// Run measures every point of plan in order, passing each result to emit
// (if not nil) as soon as it is available, and returns all results.
//
// A Measure error is fatal: Run stops and returns the results gathered so
// far together with the error.
func (d *Driver) Run(plan Plan, emit func(harness.Result)) ([]harness.Result, error) {
	points, err := plan.Points()
	if err != nil {
		return nil, err
	}
	d.logger.Info("sweep start", "plan", plan.Name, "kernel", plan.Kernel.String(), "points", len(points))

	results := make([]harness.Result, 0, len(points))
	for i, pt := range points {
		run := harness.Run{Kernel: plan.Kernel, N: pt.N, BlockSize: pt.BlockSize}
		d.logger.Debug("sweep point", "plan", plan.Name, "index", i, "run", run.String())

		res, err := d.measurer.Measure(run)
		if err != nil {
			return results, fmt.Errorf("sweep %q: point %d (%s): %w", plan.Name, i, run, err)
		}
		results = append(results, res)
		if emit != nil {
			emit(res)
		}
	}
	d.logger.Info("sweep done", "plan", plan.Name, "results", len(results))
	return results, nil
}

// RunAll runs plans in order, stopping at the first fatal error.
func (d *Driver) RunAll(plans []Plan, emit func(harness.Result)) ([]harness.Result, error) {
	var all []harness.Result
	for _, p := range plans {
		results, err := d.Run(p, emit)
		all = append(all, results...)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}
