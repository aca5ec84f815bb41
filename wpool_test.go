// Licensed to LinDB under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. LinDB licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package wpool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestPool(t *testing.T, name string, opts Options) {
	t.Helper()
	require.NoError(t, StartLink(name, opts))
	t.Cleanup(func() { _ = Stop(name) })
}

func TestStartLink_RegistersPoolByName(t *testing.T) {
	startTestPool(t, "start-link", Options{Workers: 2})
	assert.Contains(t, PoolNames(), "start-link")
}

func TestStop_RemovesPoolFromRegistry(t *testing.T) {
	require.NoError(t, StartLink("stop-me", Options{Workers: 2}))
	require.NoError(t, Stop("stop-me"))
	assert.NotContains(t, PoolNames(), "stop-me")
}

func TestStop_UnknownPoolFails(t *testing.T) {
	assert.ErrorIs(t, Stop("does-not-exist"), ErrNoWorkers)
}

func TestDispatchStrategies_ReturnLiveWorkerIDs(t *testing.T) {
	startTestPool(t, "dispatch", Options{Workers: 4})

	for _, strategy := range []func(string) (string, error){
		BestWorker, RandomWorker, NextWorker, NextAvailableWorker,
	} {
		id, err := strategy("dispatch")
		require.NoError(t, err)
		assert.Contains(t, id, "dispatch-")
	}

	id, err := HashWorker("dispatch", "sticky-key")
	require.NoError(t, err)
	id2, err := HashWorker("dispatch", "sticky-key")
	require.NoError(t, err)
	assert.Equal(t, id, id2)
}

func TestDispatchStrategies_UnknownPoolReturnsErrNoWorkers(t *testing.T) {
	_, err := BestWorker("missing")
	assert.ErrorIs(t, err, ErrNoWorkers)
}

func TestCallAvailableWorker_RoundTrips(t *testing.T) {
	startTestPool(t, "call", Options{Workers: 2})
	result, err := CallAvailableWorker(context.Background(), "call", 21, func(payload any) (any, error) {
		return payload.(int) * 2, nil
	}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestCastToAvailableWorker_UnknownPoolIsANoop(t *testing.T) {
	assert.NotPanics(t, func() {
		CastToAvailableWorker("missing", nil, func(any) (any, error) { return nil, nil })
	})
}

func TestBroadcast_ReachesEveryWorker(t *testing.T) {
	startTestPool(t, "broadcast", Options{Workers: 3})

	var wg sync.WaitGroup
	wg.Add(3)
	Broadcast("broadcast", nil, func(any) (any, error) {
		wg.Done()
		return nil, nil
	})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected every worker to receive the broadcast")
	}
}

func TestStatsAndGetWorkers_ReflectPoolSize(t *testing.T) {
	startTestPool(t, "stats", Options{Workers: 5})

	workers, err := GetWorkers("stats")
	require.NoError(t, err)
	assert.Len(t, workers, 5)

	snap, err := Stats("stats")
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Size)
	assert.Equal(t, "stats", snap.Name)

	all := AllStats()
	found := false
	for _, s := range all {
		if s.Name == "stats" {
			found = true
		}
	}
	assert.True(t, found)
}

type noopModule struct{ BaseCallback }

func TestAddRemoveCallbackModule_RoundTripSucceeds(t *testing.T) {
	startTestPool(t, "callbacks", Options{Workers: 1, EnableCallbacks: true})

	mod := noopModule{}
	require.NoError(t, AddCallbackModule("callbacks", mod))
	require.NoError(t, RemoveCallbackModule("callbacks", mod))
}

func TestNextAndWPoolGet_ReadDescriptorFields(t *testing.T) {
	startTestPool(t, "descriptor", Options{Workers: 3})

	d, err := lookup("descriptor")
	require.NoError(t, err)

	assert.Equal(t, d.Workers[1], Next(1, d))
	assert.Equal(t, "descriptor", WPoolGet("name", d))
	assert.Equal(t, 3, WPoolGet("size", d))
	assert.Equal(t, d.Workers, WPoolGet("workers", d))
	assert.Nil(t, WPoolGet("bogus", d))
}
