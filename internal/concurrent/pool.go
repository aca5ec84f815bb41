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
	"sync/atomic"
	"time"

	"github.com/lindb/wpool/internal/logging"
)

// Pool is one named, supervised group of worker units sharing a dispatch
// engine (spec §2). It is the concrete type behind every package-level
// wpool function.
type Pool struct {
	name     string
	options  Options
	registry *Registry

	cursor       *rrCursor
	timeChecker  TimeChecker
	queueManager *QueueManager
	events       *EventManager
	workerSup    *WorkerSupervisor
	supervisor   *Supervisor

	stats *poolStatistics

	stopped int32 // 0/1, flipped with atomic.CompareAndSwapInt32

	log *logging.Logger
}

// StartLink starts a named pool and publishes it to registry (spec §6
// start_link). Child start order is time-checker, queue-manager,
// (event-manager if enabled), worker-supervisor (spec §4.5).
func StartLink(registry *Registry, name string, options Options) (*Pool, error) {
	options.Normalize()

	p := &Pool{
		name:     name,
		options:  options,
		registry: registry,
		cursor:   newRRCursor(),
		stats:    newPoolStatistics(),
		log:      logging.Component("concurrent.pool"),
	}
	p.supervisor = newSupervisor(p, options.PoolSupIntensity, time.Duration(options.PoolSupPeriod))

	// 1. time checker
	p.timeChecker = newTimeChecker(name, time.Duration(options.OverrunBudget), options.OverrunHandler)

	// 2. queue manager
	p.queueManager = newQueueManager(p, options.QueueType)

	// 3. event manager (optional)
	if options.EnableCallbacks {
		p.events = newEventManager(name)
	}

	// 4. worker supervisor
	p.workerSup = newWorkerSupervisor(p, options.Workers, p.events)

	if p.events != nil {
		p.events.fireInitStart()
	}

	registry.Store(name, options.Workers, options, p)
	return p, nil
}

// Stopped reports whether the pool has been shut down.
func (p *Pool) Stopped() bool {
	return atomic.LoadInt32(&p.stopped) == 1
}

// markStopped flips stopped from 0 to 1 and reports whether this call won
// the race (i.e. whether the pool was not already stopped).
func (p *Pool) markStopped() bool {
	return atomic.CompareAndSwapInt32(&p.stopped, 0, 1)
}

// usesQueueManager reports whether this pool's strategies route through the
// queue manager; every pool has one, so workers always notify it. Kept as
// a named predicate for readability at call sites.
func (p *Pool) usesQueueManager() bool {
	return p.queueManager != nil
}

// Stop tears children down in reverse start order and removes the
// registry entry (spec §4.5 shutdown, plus the Stop operation recovered
// from original_source and documented in SPEC_FULL.md §6).
func (p *Pool) Stop() {
	if !p.markStopped() {
		return
	}
	p.workerSup.stop(p.options.PoolSupShutdown)
	p.queueManager.stop()
	p.registry.Remove(p.name)
}

// terminate is called when the worker supervisor's restart intensity is
// exceeded (spec §7 "exceeding the restart intensity terminates the pool
// supervisor"). Unlike a graceful Stop, this always shuts down brutally.
func (p *Pool) terminate() {
	if !p.markStopped() {
		return
	}
	p.workerSup.stop(Brutal)
	p.queueManager.stop()
	p.registry.Remove(p.name)
}

// CallAvailableWorker delegates to the queue manager (spec §4.2
// call_available_worker, §4.3).
func (p *Pool) CallAvailableWorker(ctx context.Context, payload any,
	handler func(any) (any, error), timeout time.Duration,
) (any, error) {
	if p.Stopped() {
		return nil, ErrNoWorkers
	}
	return p.queueManager.CallAvailableWorker(ctx, payload, handler, timeout)
}

// SendRequestAvailableWorker delegates to the queue manager (spec §4.2,
// §4.3).
func (p *Pool) SendRequestAvailableWorker(payload any,
	handler func(any) (any, error), timeout time.Duration,
) (*RequestHandle, error) {
	if p.Stopped() {
		return nil, ErrNoProc
	}
	return p.queueManager.SendRequestAvailableWorker(payload, handler, timeout)
}

// CastToAvailableWorker delegates to the queue manager; never fails for
// the caller (spec §4.2 cast_to_available_worker, §4.3).
func (p *Pool) CastToAvailableWorker(payload any, handler func(any) (any, error)) {
	if p.Stopped() {
		return
	}
	p.queueManager.CastToAvailableWorker(payload, handler)
}

// AddCallbackModule registers a callback module if the pool was started
// with EnableCallbacks (spec §6, §4.7); it is a no-op otherwise.
func (p *Pool) AddCallbackModule(module CallbackModule) {
	if p.events != nil {
		p.events.Add(module)
	}
}

// RemoveCallbackModule deregisters a callback module, idempotently.
func (p *Pool) RemoveCallbackModule(module CallbackModule) {
	if p.events != nil {
		p.events.Remove(module)
	}
}
