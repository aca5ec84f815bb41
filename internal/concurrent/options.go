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

import "time"

// QueueType selects the discipline the queue manager's pending-task deque
// uses (spec §4.3 queue discipline).
type QueueType string

const (
	// FIFO is the default queue discipline.
	FIFO QueueType = "fifo"
	// LIFO serves the most recently queued task first.
	LIFO QueueType = "lifo"
)

// ShutdownKind selects how a supervised child is torn down (spec §4.5).
type ShutdownKind string

const (
	// Brutal stops a child immediately, with no drain.
	Brutal ShutdownKind = "brutal"
	// Graceful lets a child finish in-flight work before stopping.
	Graceful ShutdownKind = "graceful"
)

// OverrunHandler is invoked by the time checker when a task exceeds its
// configured wall-clock budget (spec §4.1/GLOSSARY "Overrun"). It receives
// the pool name, the worker id, the task id (in the payload argument), and
// how long the task had been running, in milliseconds.
type OverrunHandler func(poolName, workerID string, payload any, runningFor int64)

// Options configures a pool at start_link time (spec §6). Every field has
// a spec-mandated default, applied by Normalize.
type Options struct {
	// Workers is the pool size (spec: default 100).
	Workers int
	// QueueType picks FIFO (default) or LIFO queue discipline.
	QueueType QueueType
	// OverrunHandler is called when a task overruns its budget; nil
	// installs the default, which logs a warning.
	OverrunHandler OverrunHandler
	// OverrunBudget is the wall-clock budget the time checker enforces.
	// Zero disables overrun detection.
	OverrunBudget time.Duration
	// PoolSupShutdown is the shutdown kind for the worker supervisor
	// (default Brutal).
	PoolSupShutdown ShutdownKind
	// PoolSupIntensity bounds restarts in PoolSupPeriod (default 5).
	PoolSupIntensity int
	// PoolSupPeriod is the sliding restart-intensity window (default 60s).
	PoolSupPeriod time.Duration
	// EnableCallbacks turns on the optional event manager (default false).
	EnableCallbacks bool
}

// NewDefaultOptions returns the spec-mandated defaults (spec §6).
func NewDefaultOptions() Options {
	o := Options{}
	o.Normalize()
	return o
}

// Normalize fills every zero-valued field with its spec-mandated default.
// Called at pool start (StartLink) and by NewDefaultOptions.
func (o *Options) Normalize() {
	if o.Workers <= 0 {
		o.Workers = 100
	}
	if o.QueueType == "" {
		o.QueueType = FIFO
	}
	if o.PoolSupShutdown == "" {
		o.PoolSupShutdown = Brutal
	}
	if o.PoolSupIntensity <= 0 {
		o.PoolSupIntensity = 5
	}
	if o.PoolSupPeriod <= 0 {
		o.PoolSupPeriod = 60 * time.Second
	}
}
