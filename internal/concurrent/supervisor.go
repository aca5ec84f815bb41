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

// WorkerSupervisor owns the pool's N homogeneous worker units with a
// one-for-one restart policy: an individual worker crash does not disturb
// its peers (spec §4.5). The target runtime has no language-level
// supervisor, so this is the small lifecycle manager spec §9 calls for.
type WorkerSupervisor struct {
	pool  *Pool
	size  int
	mu    sync.RWMutex
	units []*worker // index i holds workers[i], nil if dead awaiting restart

	events *EventManager
}

func newWorkerSupervisor(pool *Pool, size int, events *EventManager) *WorkerSupervisor {
	s := &WorkerSupervisor{pool: pool, size: size, units: make([]*worker, size), events: events}
	for i := 0; i < size; i++ {
		s.spawn(i)
	}
	return s
}

func (s *WorkerSupervisor) spawn(i int) {
	id := WorkerID(s.pool.name, i)
	w := newWorker(s.pool, id)
	s.mu.Lock()
	s.units[i] = w
	s.mu.Unlock()
	if s.events != nil {
		s.events.fireWorkerCreation(id)
	}
	go s.watch(i, w)
}

// watch waits for a worker's loop to exit. A normal shutdown closes done
// via stop() first, which this goroutine observes as an unexceptional
// "done closed" — Stop marks the pool stopped before calling stop(), so a
// watch that wakes up post-shutdown never restarts anything.
func (s *WorkerSupervisor) watch(i int, w *worker) {
	<-w.done
	if s.pool.Stopped() {
		return
	}
	// The worker's own loop only exits via stop(); an uncaught crash in
	// process() would otherwise take the goroutine down without closing
	// done cleanly. exec() recovers every task panic, so in practice this
	// path is the restart-on-requested-stop (e.g. idle eviction is local
	// to the goroutine pool example, not this engine). We still restart
	// defensively, matching spec §4.5's "restarted per policy".
	if s.events != nil {
		s.events.fireWorkerDeath(w.id, nil)
	}
	s.pool.stats.WorkersRestart.Inc()
	if !s.pool.supervisor.recordRestart() {
		s.pool.log.Error("restart intensity exceeded, terminating pool",
			logging.Fields{"pool": s.pool.name})
		s.pool.terminate()
		return
	}
	s.spawn(i)
}

// live returns a snapshot of the current worker table, positionally
// matching the descriptor's 1-based indexing (index 0 here is worker #1).
func (s *WorkerSupervisor) live() []*worker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*worker, len(s.units))
	copy(out, s.units)
	return out
}

func (s *WorkerSupervisor) childCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.units)
}

func (s *WorkerSupervisor) snapshot() []WorkerSnapshot {
	s.mu.RLock()
	units := make([]*worker, len(s.units))
	copy(units, s.units)
	s.mu.RUnlock()

	out := make([]WorkerSnapshot, 0, len(units))
	for _, w := range units {
		if w == nil {
			continue // process absent: omitted, not errored on (spec §4.6)
		}
		ws := WorkerSnapshot{ID: w.id, MailboxLen: w.mailboxLen()}
		if m := w.currentTask(); m != nil {
			ws.Busy = true
			ws.CurrentPayload = m.Payload
			ws.RunningFor = time.Since(m.StartedAt)
		}
		out = append(out, ws)
	}
	return out
}

func (s *WorkerSupervisor) stop(kind ShutdownKind) {
	s.mu.RLock()
	units := make([]*worker, len(s.units))
	copy(units, s.units)
	s.mu.RUnlock()

	var wg sync.WaitGroup
	for _, w := range units {
		if w == nil {
			continue
		}
		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			if kind == Graceful {
				// let the mailbox drain before signalling stop.
				for len(w.mailbox) > 0 {
					time.Sleep(time.Millisecond)
				}
			}
			w.stop()
		}(w)
	}
	wg.Wait()
}

// Supervisor is the top-level pool supervisor's restart-intensity tracker
// (spec §4.5): the worker supervisor records each worker restart here, and
// once restarts exceed intensity within period the pool is terminated.
// It does not start, watch or restart the time checker, queue manager or
// event manager; StartLink starts those children in order, and no
// one-for-all restart of them takes place.
type Supervisor struct {
	pool *Pool

	intensity int
	period    time.Duration

	mu       sync.Mutex
	restarts []time.Time

	log *logging.Logger
}

func newSupervisor(pool *Pool, intensity int, period time.Duration) *Supervisor {
	return &Supervisor{
		pool:      pool,
		intensity: intensity,
		period:    period,
		log:       logging.Component("concurrent.supervisor"),
	}
}

// recordRestart returns false once intensity restarts have occurred within
// the trailing period, per spec §4.5's configurable intensity/period.
func (s *Supervisor) recordRestart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	cutoff := now.Add(-s.period)
	kept := s.restarts[:0]
	for _, t := range s.restarts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	s.restarts = append(kept, now)
	ok := len(s.restarts) <= s.intensity
	if !ok {
		s.log.Error("restart intensity exceeded",
			logging.Fields{"pool": s.pool.name, "restarts": len(s.restarts)})
	}
	return ok
}
