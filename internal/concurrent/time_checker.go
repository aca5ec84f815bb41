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
	"sync"
	"time"

	"github.com/lindb/wpool/internal/logging"
)

// TimeChecker is the overrun watchdog collaborator (spec §1 "deliberately
// out of scope", §2 component 1, §4.4 steps 2/4). Workers notify it when a
// task starts and stops; an implementation that sees a start without a
// matching stop within the configured budget fires OverrunHandler.
//
// The watchdog itself is external collaborator glue per spec §1 — this
// package ships the simplest faithful implementation (one timer per
// in-flight task) so the engine is self-contained without a real executor.
type TimeChecker interface {
	// Start records that worker began task taskID.
	Start(workerID, taskID string)
	// Stop records that worker finished task taskID, canceling any
	// pending overrun timer.
	Stop(workerID, taskID string)
}

// noopTimeChecker disables overrun detection (budget == 0).
type noopTimeChecker struct{}

func (noopTimeChecker) Start(string, string) {}
func (noopTimeChecker) Stop(string, string)  {}

// timerTimeChecker is a long-running component (spec §2 component 1)
// modeled, like the queue manager, as a single owner of its own state —
// here a map of in-flight timers — mutated only from Start/Stop under one
// mutex, since timer callbacks fire from their own goroutines.
type timerTimeChecker struct {
	poolName string
	budget   time.Duration
	handler  OverrunHandler

	mu     sync.Mutex
	timers map[string]*time.Timer

	log *logging.Logger
}

func newTimeChecker(poolName string, budget time.Duration, handler OverrunHandler) TimeChecker {
	if budget <= 0 {
		return noopTimeChecker{}
	}
	if handler == nil {
		l := logging.Component("concurrent.time_checker")
		handler = func(pool, worker string, payload any, runningFor int64) {
			l.Warn("task overran its budget",
				logging.Fields{"pool": pool, "worker": worker, "runningForMs": runningFor})
		}
	}
	return &timerTimeChecker{
		poolName: poolName,
		budget:   budget,
		handler:  handler,
		timers:   make(map[string]*time.Timer),
		log:      logging.Component("concurrent.time_checker"),
	}
}

func (t *timerTimeChecker) key(workerID, taskID string) string {
	return workerID + "/" + taskID
}

func (t *timerTimeChecker) Start(workerID, taskID string) {
	k := t.key(workerID, taskID)
	started := time.Now()
	timer := time.AfterFunc(t.budget, func() {
		t.handler(t.poolName, workerID, taskID, time.Since(started).Milliseconds())
	})
	t.mu.Lock()
	t.timers[k] = timer
	t.mu.Unlock()
}

func (t *timerTimeChecker) Stop(workerID, taskID string) {
	k := t.key(workerID, taskID)
	t.mu.Lock()
	timer, ok := t.timers[k]
	delete(t.timers, k)
	t.mu.Unlock()
	if ok {
		timer.Stop()
	}
}
