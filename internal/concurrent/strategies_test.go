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

package concurrent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, size int, opts Options) *Pool {
	t.Helper()
	opts.Workers = size
	r := &Registry{}
	p, err := StartLink(r, t.Name(), opts)
	require.NoError(t, err)
	t.Cleanup(p.Stop)
	return p
}

func TestNextWorker_RoundRobinsAcrossAllWorkers(t *testing.T) {
	p := newTestPool(t, 3, Options{})
	seen := make(map[string]int)
	for i := 0; i < 3; i++ {
		w, err := p.NextWorker()
		require.NoError(t, err)
		seen[w.ID()]++
	}
	assert.Len(t, seen, 3)
}

func TestHashWorker_StableForFixedKeyAndSize(t *testing.T) {
	p := newTestPool(t, 4, Options{})
	w1, err := p.HashWorker("abc")
	require.NoError(t, err)
	w2, err := p.HashWorker("abc")
	require.NoError(t, err)
	assert.Equal(t, w1.ID(), w2.ID())
}

func TestRandomWorker_ReturnsLiveWorker(t *testing.T) {
	p := newTestPool(t, 5, Options{})
	w, err := p.RandomWorker()
	require.NoError(t, err)
	assert.NotEmpty(t, w.ID())
}

func TestBestWorker_PrefersLessBusyWorker(t *testing.T) {
	p := newTestPool(t, 2, Options{})
	busy := p.workerSup.live()[0]
	block := make(chan struct{})
	busy.submit(&Msg{Kind: KindCast, Payload: nil, Handler: func(any) (any, error) {
		<-block
		return nil, nil
	}})
	// give the worker a moment to pick up the task and fill its marker.
	assertEventually(t, func() bool { return busy.currentTask() != nil })
	for i := 0; i < 5; i++ {
		busy.mailbox <- &Msg{Kind: KindCast, Handler: func(any) (any, error) { return nil, nil }}
	}

	w, err := p.BestWorker()
	require.NoError(t, err)
	assert.NotEqual(t, busy.ID(), w.ID())
	close(block)
}

func TestNextAvailableWorker_FailsWhenAllBusy(t *testing.T) {
	p := newTestPool(t, 1, Options{})
	block := make(chan struct{})
	w := p.workerSup.live()[0]
	w.submit(&Msg{Kind: KindCast, Handler: func(any) (any, error) {
		<-block
		return nil, nil
	}})
	assertEventually(t, func() bool { return !w.idle() })

	_, err := p.NextAvailableWorker()
	assert.ErrorIs(t, err, ErrNoAvailableWorkers)
	close(block)
}

func TestBroadcast_SkipsDeadWorkerSlot(t *testing.T) {
	p := newTestPool(t, 3, Options{})
	workers := p.workerSup.live()
	p.workerSup.mu.Lock()
	p.workerSup.units[1] = nil
	p.workerSup.mu.Unlock()

	received := make(chan string, len(workers))
	p.Broadcast("hello", func(payload any) (any, error) {
		received <- payload.(string)
		return nil, nil
	})
	// only the two live workers should receive the broadcast.
	for i := 0; i < 2; i++ {
		assertEventuallyRecv(t, received)
	}
}

func assertEventually(t *testing.T, cond func() bool) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if cond() {
			return
		}
		tick()
	}
	t.Fatal("condition never became true")
}

func assertEventuallyRecv(t *testing.T, ch chan string) {
	t.Helper()
	select {
	case <-ch:
	case <-tickerTimeout():
		t.Fatal("expected a value on channel")
	}
}
