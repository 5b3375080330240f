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

package harness

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ajroetker/go-matbench/matmul"
	"github.com/ajroetker/go-matbench/matrix"
)

// DefaultPreview is the number of row-0 elements of C kept on a Result.
const DefaultPreview = 10

// ErrInvalidRun is returned for runs with a bad size, block size or kernel.
var ErrInvalidRun = errors.New("harness: invalid run")

// Run describes one kernel invocation.
type Run struct {
	Kernel    matmul.Kernel
	N         int
	BlockSize int // Only used by matmul.KernelBlocked.
}

func (r Run) String() string {
	if r.Kernel.NeedsBlockSize() {
		return fmt.Sprintf("%s n=%d block=%d", r.Kernel, r.N, r.BlockSize)
	}
	return fmt.Sprintf("%s n=%d", r.Kernel, r.N)
}

func (r Run) validate() error {
	switch {
	case r.Kernel < matmul.KernelNaive || r.Kernel > matmul.KernelBlocked:
		return fmt.Errorf("%w: kernel %d", ErrInvalidRun, int(r.Kernel))
	case r.N <= 0:
		return fmt.Errorf("%w: n=%d", ErrInvalidRun, r.N)
	case r.Kernel.NeedsBlockSize() && r.BlockSize <= 0:
		return fmt.Errorf("%w: block size %d", ErrInvalidRun, r.BlockSize)
	}
	return nil
}

// Failures flags the counter operations that failed during a run. Setup
// is set when the counter set is missing or lacks one of its events, so
// the affected counts read zero without being measured.
type Failures struct {
	Setup bool `json:"setup,omitempty"`
	Start bool `json:"start,omitempty"`
	Stop  bool `json:"stop,omitempty"`
	Reset bool `json:"reset,omitempty"`
}

// Any reports whether any operation failed.
func (f Failures) Any() bool {
	return f.Setup || f.Start || f.Stop || f.Reset
}

// Result is the outcome of one measured run.
type Result struct {
	SessionID string        `json:"session,omitempty"`
	Kernel    matmul.Kernel `json:"kernel"`
	N         int           `json:"n"`
	BlockSize int           `json:"block_size,omitempty"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Counters  Sample        `json:"counters"`
	Failures  Failures      `json:"failures"`
	Preview   []float64     `json:"preview,omitempty"`
}

// Seconds returns the elapsed time in fractional seconds.
func (r Result) Seconds() float64 {
	return r.Elapsed.Seconds()
}

// GFLOPS returns 2N³ floating point operations over the elapsed time.
func (r Result) GFLOPS() float64 {
	s := r.Seconds()
	if s <= 0 {
		return 0
	}
	n := float64(r.N)
	return 2 * n * n * n / s / 1e9
}

// Degraded reports whether the counter values are incomplete.
func (r Result) Degraded() bool {
	return r.Failures.Any()
}

// LogValue implements slog.LogValuer.
func (r Result) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("kernel", r.Kernel.String()),
		slog.Int("n", r.N),
	}
	if r.BlockSize > 0 {
		attrs = append(attrs, slog.Int("block", r.BlockSize))
	}
	attrs = append(attrs,
		slog.Float64("seconds", r.Seconds()),
		slog.Int64("l1_dcm", r.Counters.L1DataMisses),
		slog.Int64("l2_dcm", r.Counters.L2DataMisses),
		slog.Bool("degraded", r.Degraded()),
	)
	return slog.GroupValue(attrs...)
}

// Harness measures kernel runs against one counter set.
type Harness struct {
	counters  Counters
	logger    *slog.Logger
	preview   int
	sessionID string
	degraded  func() bool
	allocate  func(n int) (*matrix.Operands, error)
	now       func() time.Time
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger for diagnostics and per-run records.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) { h.logger = logger }
}

// WithPreview sets how many row-0 elements of C are kept; 0 disables it.
func WithPreview(n int) Option {
	return func(h *Harness) { h.preview = max(n, 0) }
}

// WithSessionID overrides the identifier stamped on results.
func WithSessionID(id string) Option {
	return func(h *Harness) { h.sessionID = id }
}

// WithAllocator replaces matrix.Allocate.
func WithAllocator(alloc func(n int) (*matrix.Operands, error)) Option {
	return func(h *Harness) { h.allocate = alloc }
}

// WithClock replaces time.Now. The clock must be monotonic.
func WithClock(now func() time.Time) Option {
	return func(h *Harness) { h.now = now }
}

// New returns a Harness driving counters. When counters is a *Session its
// ID is stamped on every Result, and a degraded session marks every Result
// with Failures.Setup.
func New(counters Counters, opts ...Option) *Harness {
	if counters == nil {
		panic("harness: nil counters")
	}
	h := &Harness{
		counters: counters,
		logger:   slog.Default(),
		preview:  DefaultPreview,
		allocate: matrix.Allocate,
		now:      time.Now,
	}
	if s, ok := counters.(interface{ ID() string }); ok {
		h.sessionID = s.ID()
	}
	if d, ok := counters.(interface{ Degraded() bool }); ok {
		h.degraded = d.Degraded
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Measure allocates fresh operands, runs the kernel between counter Start
// and Stop, resets the counters and releases the operands.
//
// Counter failures are logged and flagged on the Result; they never abort
// the run. The returned error is reserved for invalid runs and allocation
// failures, which callers treat as fatal.
func (h *Harness) Measure(run Run) (Result, error) {
	if err := run.validate(); err != nil {
		return Result{}, err
	}
	if !run.Kernel.NeedsBlockSize() {
		run.BlockSize = 0
	}

	ops, err := h.allocate(run.N)
	if err != nil {
		return Result{}, fmt.Errorf("harness: %s: %w", run, err)
	}
	defer ops.Release()

	res := Result{
		SessionID: h.sessionID,
		Kernel:    run.Kernel,
		N:         run.N,
		BlockSize: run.BlockSize,
	}
	if h.degraded != nil && h.degraded() {
		res.Failures.Setup = true
	}

	if err := h.counters.Start(); err != nil {
		res.Failures.Start = true
		h.logger.Warn("counter start failed", "run", run.String(), "err", err)
	}
	t0 := h.now()
	run.Kernel.Run(ops.A.Data, ops.B.Data, ops.C.Data, run.N, run.BlockSize)
	res.Elapsed = h.now().Sub(t0)
	sample, err := h.counters.Stop()
	if err != nil {
		res.Failures.Stop = true
		h.logger.Warn("counter stop failed", "run", run.String(), "err", err)
	}
	res.Counters = Sample{
		L1DataMisses: max(sample.L1DataMisses, 0),
		L2DataMisses: max(sample.L2DataMisses, 0),
	}

	if err := h.counters.Reset(); err != nil {
		res.Failures.Reset = true
		h.logger.Warn("counter reset failed", "run", run.String(), "err", err)
	}

	res.Preview = ops.C.Preview(h.preview)
	h.logger.Info("run complete", "result", res)
	return res, nil
}
