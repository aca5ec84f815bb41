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

	"github.com/lindb/wpool/internal/logging"
)

// CallbackModule is the capability interface callback registrants
// implement (spec §4.7, §9 "dynamic dispatch of callback modules"). Rather
// than reflecting on which methods a registrant defines, each event has
// its own method and BaseCallbackModule supplies no-op defaults for
// registrants that only care about a subset.
type CallbackModule interface {
	// OnInitStart fires once, when the pool finishes starting.
	OnInitStart(poolName string)
	// OnWorkerCreation fires each time a worker unit is (re)spawned.
	OnWorkerCreation(poolName, workerID string)
	// OnWorkerDeath fires when the worker supervisor restarts a worker
	// unit whose loop exited. The exit cause is not captured, so reason is
	// always nil.
	OnWorkerDeath(poolName, workerID string, reason error)
}

// BaseCallbackModule no-ops every CallbackModule method. Embed it and
// override only the events you care about.
type BaseCallbackModule struct{}

func (BaseCallbackModule) OnInitStart(string)                 {}
func (BaseCallbackModule) OnWorkerCreation(string, string)     {}
func (BaseCallbackModule) OnWorkerDeath(string, string, error) {}

// EventManager is the optional fan-out component (spec §2 component 3,
// §4.7). Registration and removal are idempotent with respect to module
// identity: the same module value registered twice only fires once per
// event.
type EventManager struct {
	poolName string

	mu      sync.RWMutex
	modules map[CallbackModule]struct{}

	log *logging.Logger
}

func newEventManager(poolName string) *EventManager {
	return &EventManager{
		poolName: poolName,
		modules:  make(map[CallbackModule]struct{}),
		log:      logging.Component("concurrent.event_manager"),
	}
}

// Add registers module, idempotently.
func (m *EventManager) Add(module CallbackModule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules[module] = struct{}{}
}

// Remove deregisters module, idempotently.
func (m *EventManager) Remove(module CallbackModule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.modules, module)
}

func (m *EventManager) each(fn func(CallbackModule)) {
	m.mu.RLock()
	mods := make([]CallbackModule, 0, len(m.modules))
	for mod := range m.modules {
		mods = append(mods, mod)
	}
	m.mu.RUnlock()
	for _, mod := range mods {
		m.safeCall(mod, fn)
	}
}

// safeCall recovers a panicking callback so one broken registrant never
// takes down the event manager (spec §4.7 "errors raised by a callback
// are caught and logged").
func (m *EventManager) safeCall(mod CallbackModule, fn func(CallbackModule)) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("callback module panicked",
				logging.Fields{"pool": m.poolName, "error": AsError(r)})
		}
	}()
	fn(mod)
}

func (m *EventManager) fireInitStart() {
	m.each(func(mod CallbackModule) { mod.OnInitStart(m.poolName) })
}

func (m *EventManager) fireWorkerCreation(workerID string) {
	m.each(func(mod CallbackModule) { mod.OnWorkerCreation(m.poolName, workerID) })
}

func (m *EventManager) fireWorkerDeath(workerID string, reason error) {
	m.each(func(mod CallbackModule) { mod.OnWorkerDeath(m.poolName, workerID, reason) })
}
