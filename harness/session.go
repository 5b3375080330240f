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

	"github.com/rs/xid"

	"github.com/ajroetker/go-matbench/perfcount"
)

// Sample holds the counter values of one measurement window.
type Sample struct {
	L1DataMisses int64 `json:"l1_dcm"`
	L2DataMisses int64 `json:"l2_dcm"`
}

// Counters is the part of a counter set the harness drives.
type Counters interface {
	Start() error
	Stop() (Sample, error)
	Reset() error
}

// ErrNoCounterSet is returned by a Session whose counter set could not be
// created.
var ErrNoCounterSet = errors.New("harness: no counter set")

// sessionEvents are added to every Session, in this order.
var sessionEvents = []perfcount.Event{
	perfcount.L1DataCacheMisses,
	perfcount.L2DataCacheMisses,
}

// Session owns the counter set used by a Harness.
//
// Failures to create the set or add events are logged and leave the
// session degraded: measurements still run, but Start and Stop report
// errors. A Session must be used from the goroutine that opened it.
type Session struct {
	id     xid.ID
	sub    perfcount.Subsystem
	set    perfcount.Set
	events []perfcount.Event
	logger *slog.Logger
	closed bool
}

// OpenSession creates a counter set on sub with the L1 and L2 data-cache
// miss events. A nil logger means slog.Default().
func OpenSession(sub perfcount.Subsystem, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{id: xid.New(), sub: sub}
	s.logger = logger.With("session", s.id.String())

	set, err := sub.NewSet()
	if err != nil {
		s.logger.Warn("counter set creation failed", "backend", sub.Name(), "err", err)
		return s
	}
	s.set = set
	for _, ev := range sessionEvents {
		if err := set.Add(ev); err != nil {
			s.logger.Warn("counter event unavailable", "event", ev.String(), "err", err)
			continue
		}
		s.events = append(s.events, ev)
	}
	s.logger.Debug("counter session open", "backend", sub.Name(), "events", fmt.Sprint(s.events))
	return s
}

// ID returns the session identifier stamped on results.
func (s *Session) ID() string { return s.id.String() }

// Degraded reports whether some counter could not be set up.
func (s *Session) Degraded() bool {
	return s.set == nil || len(s.events) != len(sessionEvents)
}

// Start starts counting.
func (s *Session) Start() error {
	if s.set == nil {
		return ErrNoCounterSet
	}
	return s.set.Start()
}

// Stop stops counting and returns whatever values the set produced.
// Negative values are clamped to zero.
func (s *Session) Stop() (Sample, error) {
	if s.set == nil {
		return Sample{}, ErrNoCounterSet
	}
	values, err := s.set.Stop()
	var sample Sample
	for i, ev := range s.events {
		if i >= len(values) {
			break
		}
		v := max(values[i], 0)
		switch ev {
		case perfcount.L1DataCacheMisses:
			sample.L1DataMisses = v
		case perfcount.L2DataCacheMisses:
			sample.L2DataMisses = v
		}
	}
	return sample, err
}

// Reset zeroes the counters.
func (s *Session) Reset() error {
	if s.set == nil {
		return ErrNoCounterSet
	}
	return s.set.Reset()
}

// Close removes the events and destroys the set. Errors are logged and
// joined. Calling Close again is a no-op.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.set == nil {
		return nil
	}
	var errs []error
	for _, ev := range s.events {
		if err := s.set.Remove(ev); err != nil {
			s.logger.Warn("counter event removal failed", "event", ev.String(), "err", err)
			errs = append(errs, err)
		}
	}
	if err := s.set.Destroy(); err != nil {
		s.logger.Warn("counter set destroy failed", "err", err)
		errs = append(errs, err)
	}
	s.events = nil
	return errors.Join(errs...)
}
