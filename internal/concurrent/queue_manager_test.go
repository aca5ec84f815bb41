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
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQueueing_UnderSaturation exercises spec §8 scenario 3: a pool of
// size 1 executing a 100ms task, with three casts submitted at t=0. All
// three complete in submission order; total queue length is >= 2
// immediately after submission and 0 well after all three finish.
func TestQueueing_UnderSaturation(t *testing.T) {
	p := newTestPool(t, 1, Options{})

	var mu sync.Mutex
	var order []int

	for i := 1; i <= 3; i++ {
		i := i
		p.CastToAvailableWorker(i, func(payload any) (any, error) {
			time.Sleep(100 * time.Millisecond)
			mu.Lock()
			order = append(order, payload.(int))
			mu.Unlock()
			return nil, nil
		})
	}

	assertEventually(t, func() bool {
		return p.queueManager.pendingTaskCount() >= 2
	})

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 0, p.queueManager.pendingTaskCount())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, order)
}

// TestCallAvailableWorker_TimesOutOnSaturatedPool exercises spec §8
// scenario 4: a pool of size 1 busy with a 500ms task; a call with a 50ms
// timeout must fail timeout within ~50ms, and the eventual worker reply is
// discarded.
func TestCallAvailableWorker_TimesOutOnSaturatedPool(t *testing.T) {
	p := newTestPool(t, 1, Options{})

	p.CastToAvailableWorker(nil, func(any) (any, error) {
		time.Sleep(500 * time.Millisecond)
		return nil, nil
	})
	assertEventually(t, func() bool { return !p.workerSup.live()[0].idle() })

	start := time.Now()
	_, err := p.CallAvailableWorker(context.Background(), "x", func(any) (any, error) {
		return "reply", nil
	}, 50*time.Millisecond)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, elapsed, 200*time.Millisecond)
}

// TestCallAvailableWorker_ZeroTimeoutDoesNotLeakQueueEntry exercises the
// boundary behavior in spec §8: call_available_worker(name, call, 0) on a saturated pool
// must not leave a stale entry in the queue manager.
func TestCallAvailableWorker_ZeroTimeoutDoesNotLeakQueueEntry(t *testing.T) {
	p := newTestPool(t, 1, Options{})
	p.CastToAvailableWorker(nil, func(any) (any, error) {
		time.Sleep(200 * time.Millisecond)
		return nil, nil
	})
	assertEventually(t, func() bool { return !p.workerSup.live()[0].idle() })

	_, err := p.CallAvailableWorker(context.Background(), "x", func(any) (any, error) {
		return nil, nil
	}, 0)
	assert.ErrorIs(t, err, ErrTimeout)

	assertEventually(t, func() bool { return p.queueManager.pendingTaskCount() == 0 })
}

func TestCallAvailableWorker_DispatchesImmediatelyWhenWorkerReady(t *testing.T) {
	p := newTestPool(t, 2, Options{})
	result, err := p.CallAvailableWorker(context.Background(), "ping", func(payload any) (any, error) {
		return "pong", nil
	}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "pong", result)
}

func TestSendRequestAvailableWorker_ReturnsHandleThenReply(t *testing.T) {
	p := newTestPool(t, 1, Options{})
	handle, err := p.SendRequestAvailableWorker("x", func(any) (any, error) {
		time.Sleep(20 * time.Millisecond)
		return "done", nil
	}, time.Second)
	require.NoError(t, err)

	select {
	case res := <-handle.Reply:
		require.NoError(t, res.err)
		assert.Equal(t, "done", res.value)
	case <-time.After(time.Second):
		t.Fatal("expected a reply")
	}
}
