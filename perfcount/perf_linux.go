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

//go:build linux

package perfcount

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Init probes perf_event_open(2) with an L1 data cache read-miss event and
// returns the perf_event backend. A failure here means no event can ever be
// counted, so callers treat it as fatal.
func Init(cfg Config) (Subsystem, error) {
	attr, err := cfg.attr(L1DataCacheMisses)
	if err != nil {
		return nil, err
	}
	fd, err := openEvent(attr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w (perf_event_paranoid=%s)", ErrInit, err, paranoidLevel())
	}
	_ = unix.Close(fd)
	return &perfSubsystem{cfg: cfg}, nil
}

// paranoidLevel reads /proc/sys/kernel/perf_event_paranoid for diagnostics.
func paranoidLevel() string {
	b, err := os.ReadFile("/proc/sys/kernel/perf_event_paranoid")
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(b))
}

// hwCacheConfig encodes a PERF_TYPE_HW_CACHE read-miss event for cache.
func hwCacheConfig(cache uint64) uint64 {
	return cache |
		unix.PERF_COUNT_HW_CACHE_OP_READ<<8 |
		unix.PERF_COUNT_HW_CACHE_RESULT_MISS<<16
}

// groupReadFormat makes a read of the group leader return every member's
// count together with the group's enabled and running times.
const groupReadFormat = unix.PERF_FORMAT_GROUP |
	unix.PERF_FORMAT_TOTAL_TIME_ENABLED |
	unix.PERF_FORMAT_TOTAL_TIME_RUNNING

func (c Config) attr(ev Event) (*unix.PerfEventAttr, error) {
	attr := &unix.PerfEventAttr{
		Size:        uint32(unsafe.Sizeof(unix.PerfEventAttr{})),
		Bits:        unix.PerfBitDisabled | unix.PerfBitExcludeKernel | unix.PerfBitExcludeHv,
		Read_format: groupReadFormat,
	}
	switch ev {
	case L1DataCacheMisses:
		attr.Type = unix.PERF_TYPE_HW_CACHE
		attr.Config = hwCacheConfig(unix.PERF_COUNT_HW_CACHE_L1D)
	case L2DataCacheMisses:
		if c.L2RawEvent != 0 {
			attr.Type = unix.PERF_TYPE_RAW
			attr.Config = c.L2RawEvent
		} else {
			attr.Type = unix.PERF_TYPE_HW_CACHE
			attr.Config = hwCacheConfig(unix.PERF_COUNT_HW_CACHE_LL)
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownEvent, int(ev))
	}
	return attr, nil
}

// openEvent opens a disabled counter for the calling thread on any CPU.
func openEvent(attr *unix.PerfEventAttr) (int, error) {
	return openGroupEvent(attr, -1)
}

// openGroupEvent opens a counter in the group led by leader, or a new group
// when leader is -1. Members are opened enabled so that they follow the
// leader's enable and disable.
func openGroupEvent(attr *unix.PerfEventAttr, leader int) (int, error) {
	if leader >= 0 {
		attr.Bits &^= unix.PerfBitDisabled
	}
	fd, err := unix.PerfEventOpen(attr, 0, -1, leader, unix.PERF_FLAG_FD_CLOEXEC)
	if err != nil {
		return -1, fmt.Errorf("perf_event_open: %w", err)
	}
	return fd, nil
}

// readGroup reads the counts of an n-member group through its leader.
func readGroup(leader, n int) ([]int64, error) {
	buf := make([]byte, 8*(3+n))
	got, err := unix.Read(leader, buf)
	if err != nil {
		return nil, fmt.Errorf("read counters: %w", err)
	}
	return parseGroupRead(buf[:got], n)
}

// parseGroupRead decodes a PERF_FORMAT_GROUP read with enabled and running
// times: nr, time_enabled, time_running, then nr values. When the group was
// multiplexed off the PMU for part of the window the values are scaled by
// enabled/running.
func parseGroupRead(buf []byte, n int) ([]int64, error) {
	if len(buf) < 8*3 {
		return nil, fmt.Errorf("read counters: short read of %d bytes", len(buf))
	}
	word := func(i int) uint64 { return binary.NativeEndian.Uint64(buf[8*i:]) }
	nr := int(word(0))
	if nr != n || len(buf) < 8*(3+nr) {
		return nil, fmt.Errorf("read counters: got %d values in %d bytes, want %d", nr, len(buf), n)
	}
	enabled, running := word(1), word(2)
	if running == 0 && enabled > 0 {
		return make([]int64, n), ErrNotScheduled
	}
	values := make([]int64, n)
	for i := range values {
		v := word(3 + i)
		if running > 0 && running < enabled {
			v = uint64(float64(v) * float64(enabled) / float64(running))
		}
		values[i] = int64(v)
	}
	return values, nil
}

type perfSubsystem struct {
	cfg    Config
	mu     sync.Mutex
	active bool
	closed bool
}

func (s *perfSubsystem) Name() string { return "perf_event" }

// NewSet locks the calling goroutine to its OS thread; the lock is released
// by Destroy. Counters only see work done on that thread.
func (s *perfSubsystem) NewSet() (Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.active {
		return nil, ErrSetActive
	}
	runtime.LockOSThread()
	s.active = true
	return &perfSet{sub: s}, nil
}

func (s *perfSubsystem) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// perfSet keeps its events in one perf group. fds[0] is the group leader:
// enable, disable, reset and read all go through it, so every event counts
// exactly the same window.
type perfSet struct {
	setState
	sub *perfSubsystem
	fds []int // parallel to events
}

func (s *perfSet) leader() int {
	if len(s.fds) == 0 {
		return -1
	}
	return s.fds[0]
}

func (s *perfSet) open(ev Event) (int, error) {
	attr, err := s.sub.cfg.attr(ev)
	if err != nil {
		return -1, err
	}
	return openGroupEvent(attr, s.leader())
}

func (s *perfSet) Add(ev Event) error {
	if err := s.checkAdd(ev); err != nil {
		return err
	}
	fd, err := s.open(ev)
	if err != nil {
		return fmt.Errorf("perfcount: add %s: %w", ev, err)
	}
	s.events = append(s.events, ev)
	s.fds = append(s.fds, fd)
	return nil
}

// Remove closes the event. Removing the leader regroups the remaining
// events under a new leader.
func (s *perfSet) Remove(ev Event) error {
	idx, err := s.checkRemove(ev)
	if err != nil {
		return err
	}
	if idx > 0 {
		err = unix.Close(s.fds[idx])
		s.events = append(s.events[:idx], s.events[idx+1:]...)
		s.fds = append(s.fds[:idx], s.fds[idx+1:]...)
		if err != nil {
			return fmt.Errorf("perfcount: remove %s: %w", ev, err)
		}
		return nil
	}

	rest := append([]Event(nil), s.events[1:]...)
	var errs []error
	for i := len(s.fds) - 1; i >= 0; i-- {
		if err := unix.Close(s.fds[i]); err != nil {
			errs = append(errs, fmt.Errorf("perfcount: remove %s: %w", s.events[i], err))
		}
	}
	s.events, s.fds = nil, nil
	for _, other := range rest {
		fd, err := s.open(other)
		if err != nil {
			errs = append(errs, fmt.Errorf("perfcount: regroup %s: %w", other, err))
			continue
		}
		s.events = append(s.events, other)
		s.fds = append(s.fds, fd)
	}
	return errors.Join(errs...)
}

func (s *perfSet) groupIoctl(req uint) error {
	return unix.IoctlSetInt(s.leader(), req, unix.PERF_IOC_FLAG_GROUP)
}

func (s *perfSet) Start() error {
	if err := s.checkStart(); err != nil {
		return err
	}
	if err := s.groupIoctl(unix.PERF_EVENT_IOC_ENABLE); err != nil {
		return fmt.Errorf("perfcount: start: %w", err)
	}
	s.running = true
	return nil
}

// Stop disables the group and reads every member in one read. Values are
// zero when the read fails.
func (s *perfSet) Stop() ([]int64, error) {
	if err := s.checkStop(); err != nil {
		return nil, err
	}
	var errs []error
	if err := s.groupIoctl(unix.PERF_EVENT_IOC_DISABLE); err != nil {
		errs = append(errs, fmt.Errorf("perfcount: stop: %w", err))
	}
	s.running = false

	values, err := readGroup(s.leader(), len(s.fds))
	if err != nil {
		errs = append(errs, fmt.Errorf("perfcount: %w", err))
	}
	if values == nil {
		values = make([]int64, len(s.fds))
	}
	return values, errors.Join(errs...)
}

func (s *perfSet) Reset() error {
	if err := s.checkReset(); err != nil {
		return err
	}
	if len(s.fds) == 0 {
		return nil
	}
	if err := s.groupIoctl(unix.PERF_EVENT_IOC_RESET); err != nil {
		return fmt.Errorf("perfcount: reset: %w", err)
	}
	return nil
}

func (s *perfSet) Destroy() error {
	if err := s.checkDestroy(); err != nil {
		return err
	}
	var errs []error
	for i, fd := range s.fds {
		if err := unix.Close(fd); err != nil {
			errs = append(errs, fmt.Errorf("perfcount: close %s: %w", s.events[i], err))
		}
	}
	s.events, s.fds = nil, nil
	s.destroyed = true

	s.sub.mu.Lock()
	s.sub.active = false
	s.sub.mu.Unlock()
	runtime.UnlockOSThread()
	return errors.Join(errs...)
}
