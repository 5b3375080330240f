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

import "sync"

// Nop returns a Subsystem whose counters never count. Sets still enforce
// the same state rules as real ones, so callers behave identically on hosts
// without a usable PMU.
func Nop() Subsystem {
	return &nopSubsystem{}
}

type nopSubsystem struct {
	mu     sync.Mutex
	active bool
	closed bool
}

func (s *nopSubsystem) Name() string { return "nop" }

func (s *nopSubsystem) NewSet() (Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.active {
		return nil, ErrSetActive
	}
	s.active = true
	return &nopSet{sub: s}, nil
}

func (s *nopSubsystem) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type nopSet struct {
	setState
	sub *nopSubsystem
}

func (s *nopSet) Add(ev Event) error {
	if err := s.checkAdd(ev); err != nil {
		return err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *nopSet) Remove(ev Event) error {
	idx, err := s.checkRemove(ev)
	if err != nil {
		return err
	}
	s.events = append(s.events[:idx], s.events[idx+1:]...)
	return nil
}

func (s *nopSet) Start() error {
	if err := s.checkStart(); err != nil {
		return err
	}
	s.running = true
	return nil
}

func (s *nopSet) Stop() ([]int64, error) {
	if err := s.checkStop(); err != nil {
		return nil, err
	}
	s.running = false
	return make([]int64, len(s.events)), nil
}

func (s *nopSet) Reset() error {
	return s.checkReset()
}

func (s *nopSet) Destroy() error {
	if err := s.checkDestroy(); err != nil {
		return err
	}
	s.destroyed = true
	s.sub.mu.Lock()
	s.sub.active = false
	s.sub.mu.Unlock()
	return nil
}
