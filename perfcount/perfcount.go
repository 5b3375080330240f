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

package perfcount

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
)

// Event identifies a hardware counter.
type Event int

const (
	// L1DataCacheMisses counts L1 data cache read misses.
	L1DataCacheMisses Event = iota

	// L2DataCacheMisses counts L2 data cache misses. Without a raw event
	// code (Config.L2RawEvent) the generic last-level cache read-miss event
	// is used instead, since Linux defines no portable L2 event.
	L2DataCacheMisses
)

// String returns the PAPI-style short name of the event.
func (e Event) String() string {
	switch e {
	case L1DataCacheMisses:
		return "L1_DCM"
	case L2DataCacheMisses:
		return "L2_DCM"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

func (e Event) valid() bool {
	return e == L1DataCacheMisses || e == L2DataCacheMisses
}

var (
	ErrUnsupported    = errors.New("perfcount: hardware counters not supported on this platform")
	ErrInit           = errors.New("perfcount: subsystem initialization failed")
	ErrClosed         = errors.New("perfcount: subsystem closed")
	ErrSetActive      = errors.New("perfcount: a counter set is already active")
	ErrDestroyed      = errors.New("perfcount: counter set destroyed")
	ErrRunning        = errors.New("perfcount: counters are running")
	ErrNotRunning     = errors.New("perfcount: counters are not running")
	ErrNoEvents       = errors.New("perfcount: no events added")
	ErrUnknownEvent   = errors.New("perfcount: unknown event")
	ErrDuplicateEvent = errors.New("perfcount: event already added")
	ErrNotScheduled   = errors.New("perfcount: counters were never scheduled on the PMU")
)

// Subsystem is the process-wide counter facility.
type Subsystem interface {
	// Name describes the backend, e.g. "perf_event".
	Name() string

	// NewSet creates a counter set. Only one set may exist at a time.
	NewSet() (Set, error)

	// Close releases the subsystem.
	Close() error
}

// Set is a group of counters started and stopped together.
type Set interface {
	Add(Event) error
	Remove(Event) error
	Start() error

	// Stop halts counting and returns one value per event, in Add order.
	Stop() ([]int64, error)

	// Reset zeroes all counters.
	Reset() error

	Destroy() error
	Events() []Event
}

// Environment variables read by ConfigFromEnv.
const (
	EnvNoCounters = "MATBENCH_NO_COUNTERS"
	EnvL2RawEvent = "MATBENCH_L2_RAW_EVENT"
)

// Config selects the counter backend and event encodings.
type Config struct {
	// Disabled selects the Nop backend.
	Disabled bool

	// L2RawEvent, when non-zero, is a CPU-specific raw event code used for
	// L2DataCacheMisses (PERF_TYPE_RAW), e.g. 0x3f24 (L2_RQSTS.ALL_DEMAND_MISS
	// on Intel Skylake).
	L2RawEvent uint64
}

// ConfigFromEnv builds a Config from MATBENCH_NO_COUNTERS and
// MATBENCH_L2_RAW_EVENT. Any non-empty MATBENCH_NO_COUNTERS that does not
// parse as a bool counts as true.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if v := os.Getenv(EnvNoCounters); v != "" {
		cfg.Disabled = true
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Disabled = b
		}
	}
	if v := os.Getenv(EnvL2RawEvent); v != "" {
		raw, err := strconv.ParseUint(v, 0, 64)
		if err != nil {
			return cfg, fmt.Errorf("perfcount: %s=%q: %w", EnvL2RawEvent, v, err)
		}
		cfg.L2RawEvent = raw
	}
	return cfg, nil
}

// Open returns Nop when cfg.Disabled is set and Init(cfg) otherwise.
func Open(cfg Config) (Subsystem, error) {
	if cfg.Disabled {
		return Nop(), nil
	}
	return Init(cfg)
}

// setState holds the bookkeeping shared by every Set backend.
type setState struct {
	events    []Event
	running   bool
	destroyed bool
}

func (s *setState) checkAdd(ev Event) error {
	switch {
	case s.destroyed:
		return ErrDestroyed
	case s.running:
		return ErrRunning
	case !ev.valid():
		return fmt.Errorf("%w: %d", ErrUnknownEvent, int(ev))
	case slices.Contains(s.events, ev):
		return fmt.Errorf("%w: %s", ErrDuplicateEvent, ev)
	}
	return nil
}

// checkRemove returns the index of ev in the set.
func (s *setState) checkRemove(ev Event) (int, error) {
	switch {
	case s.destroyed:
		return -1, ErrDestroyed
	case s.running:
		return -1, ErrRunning
	}
	idx := slices.Index(s.events, ev)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %s not in set", ErrUnknownEvent, ev)
	}
	return idx, nil
}

func (s *setState) checkStart() error {
	switch {
	case s.destroyed:
		return ErrDestroyed
	case s.running:
		return ErrRunning
	case len(s.events) == 0:
		return ErrNoEvents
	}
	return nil
}

func (s *setState) checkStop() error {
	switch {
	case s.destroyed:
		return ErrDestroyed
	case !s.running:
		return ErrNotRunning
	}
	return nil
}

func (s *setState) checkReset() error {
	if s.destroyed {
		return ErrDestroyed
	}
	return nil
}

func (s *setState) checkDestroy() error {
	switch {
	case s.destroyed:
		return ErrDestroyed
	case s.running:
		return ErrRunning
	}
	return nil
}

func (s *setState) Events() []Event {
	return slices.Clone(s.events)
}
