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
	"sync/atomic"
	"time"
)

// statCounter is a plain int64 mutated only through the sync/atomic
// package-level functions, the counter idiom used throughout the pool and
// circuit-breaker code this engine is grounded on.
type statCounter int64

// Inc increments the counter by one.
func (c *statCounter) Inc() { atomic.AddInt64((*int64)(c), 1) }

// Load reads the counter's current value.
func (c *statCounter) Load() int64 { return atomic.LoadInt64((*int64)(c)) }

// poolStatistics holds the lock-free counters backing the stats collector
// (spec §4.6). One instance is owned per pool, shared by all of its
// components.
type poolStatistics struct {
	TasksConsumed  statCounter
	TasksRejected  statCounter
	TasksPanic     statCounter
	WorkersRestart statCounter
}

func newPoolStatistics() *poolStatistics {
	return &poolStatistics{}
}

// WorkerSnapshot is one worker's entry in a Stats snapshot.
type WorkerSnapshot struct {
	ID             string
	MailboxLen     int
	CurrentPayload any
	RunningFor     time.Duration
	Busy           bool
}

// Snapshot is the stats collector's output for one pool (spec §4.6).
type Snapshot struct {
	Name              string
	SupervisorID      string
	Options           Options
	Size              int
	Cursor            uint64
	TotalMessageQueue int
	Workers           []WorkerSnapshot
}

// Stats builds a Snapshot for the pool, reading each live worker
// opportunistically. Workers whose process has disappeared are omitted,
// never errored on (spec §4.6).
func (p *Pool) Stats() Snapshot {
	ws := p.workerSup.snapshot()
	total := p.queueManager.pendingTaskCount()
	for _, w := range ws {
		total += w.MailboxLen
	}
	return Snapshot{
		Name:              p.name,
		SupervisorID:      p.name + "-sup",
		Options:           p.options,
		Size:              p.options.Workers,
		Cursor:            p.cursor.Load(),
		TotalMessageQueue: total,
		Workers:           ws,
	}
}
