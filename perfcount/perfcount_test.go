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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopLifecycle(t *testing.T) {
	sub := Nop()
	assert.Equal(t, "nop", sub.Name())

	set, err := sub.NewSet()
	require.NoError(t, err)

	_, err = sub.NewSet()
	require.ErrorIs(t, err, ErrSetActive)

	require.ErrorIs(t, set.Start(), ErrNoEvents)
	require.NoError(t, set.Add(L1DataCacheMisses))
	require.NoError(t, set.Add(L2DataCacheMisses))
	assert.ErrorIs(t, set.Add(L1DataCacheMisses), ErrDuplicateEvent)
	assert.ErrorIs(t, set.Add(Event(9)), ErrUnknownEvent)
	assert.Equal(t, []Event{L1DataCacheMisses, L2DataCacheMisses}, set.Events())

	_, err = set.Stop()
	require.ErrorIs(t, err, ErrNotRunning)

	require.NoError(t, set.Start())
	assert.ErrorIs(t, set.Start(), ErrRunning)
	assert.ErrorIs(t, set.Add(L1DataCacheMisses), ErrRunning)
	assert.ErrorIs(t, set.Remove(L1DataCacheMisses), ErrRunning)
	assert.ErrorIs(t, set.Destroy(), ErrRunning)

	values, err := set.Stop()
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0}, values)
	require.NoError(t, set.Reset())

	require.NoError(t, set.Remove(L1DataCacheMisses))
	assert.ErrorIs(t, set.Remove(L1DataCacheMisses), ErrUnknownEvent)
	assert.Equal(t, []Event{L2DataCacheMisses}, set.Events())

	require.NoError(t, set.Destroy())
	assert.ErrorIs(t, set.Destroy(), ErrDestroyed)
	assert.ErrorIs(t, set.Start(), ErrDestroyed)
	assert.ErrorIs(t, set.Reset(), ErrDestroyed)

	// The slot is free again once the set is destroyed.
	again, err := sub.NewSet()
	require.NoError(t, err)
	require.NoError(t, again.Destroy())

	require.NoError(t, sub.Close())
	_, err = sub.NewSet()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEventsReturnsCopy(t *testing.T) {
	set, err := Nop().NewSet()
	require.NoError(t, err)
	require.NoError(t, set.Add(L1DataCacheMisses))

	events := set.Events()
	events[0] = L2DataCacheMisses
	assert.Equal(t, []Event{L1DataCacheMisses}, set.Events())
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "L1_DCM", L1DataCacheMisses.String())
	assert.Equal(t, "L2_DCM", L2DataCacheMisses.String())
	assert.Equal(t, "Event(7)", Event(7).String())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvNoCounters, "")
	t.Setenv(EnvL2RawEvent, "")
	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)

	t.Setenv(EnvNoCounters, "1")
	t.Setenv(EnvL2RawEvent, "0x3f24")
	cfg, err = ConfigFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Disabled)
	assert.Equal(t, uint64(0x3f24), cfg.L2RawEvent)

	t.Setenv(EnvNoCounters, "false")
	t.Setenv(EnvL2RawEvent, "")
	cfg, err = ConfigFromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.Disabled)

	t.Setenv(EnvNoCounters, "yes please")
	cfg, err = ConfigFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Disabled, "non-bool values count as set")

	t.Setenv(EnvL2RawEvent, "zz")
	_, err = ConfigFromEnv()
	assert.Error(t, err)
}

func TestOpenDisabledIsNop(t *testing.T) {
	sub, err := Open(Config{Disabled: true})
	require.NoError(t, err)
	assert.Equal(t, "nop", sub.Name())
}
