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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSupervisor_RecordRestartAllowsUpToIntensity(t *testing.T) {
	s := newSupervisor(&Pool{name: "p"}, 2, time.Minute)
	assert.True(t, s.recordRestart())
	assert.True(t, s.recordRestart())
	assert.False(t, s.recordRestart())
}

func TestSupervisor_RecordRestartForgetsOutsidePeriod(t *testing.T) {
	s := newSupervisor(nil, 1, 20*time.Millisecond)
	assert.True(t, s.recordRestart())
	time.Sleep(30 * time.Millisecond)
	assert.True(t, s.recordRestart())
}

// TestWorkerCrash_IsolatesPeersAndPreservesPoolSize exercises spec §8
// scenario 5: a panicking task is recovered locally (exec's own defer), so
// peer workers never observe a crash and the pool's worker count never
// changes.
func TestWorkerCrash_IsolatesPeersAndPreservesPoolSize(t *testing.T) {
	p := newTestPool(t, 3, Options{})

	p.CastToAvailableWorker(nil, func(any) (any, error) {
		panic("boom")
	})

	assertEventually(t, func() bool {
		return p.stats.TasksPanic.Load() == 1
	})

	assert.Equal(t, int64(0), p.stats.WorkersRestart.Load())
	assert.Equal(t, 3, p.workerSup.childCount())

	res, err := p.CallAvailableWorker(context.Background(), "still alive", func(payload any) (any, error) {
		return payload, nil
	}, time.Second)
	assert.NoError(t, err)
	assert.Equal(t, "still alive", res)
}
