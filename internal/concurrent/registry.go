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

// Package concurrent implements the dispatch and queueing engine described
// by the worker-pool specification: worker-selection strategies, the queue
// manager, the atomic round-robin cursor, the pool registry and the
// supervised lifecycle of a pool's components.
package concurrent

import (
	"fmt"
	"sync"
	"time"

	"github.com/lindb/wpool/internal/logging"
)

var registryLog = logging.Component("concurrent.registry")

// Descriptor is the read-mostly pool descriptor published to the registry
// on pool start (spec §3, Pool Descriptor). Every field is immutable for
// the pool's lifetime; the round-robin cursor is not part of the
// descriptor but lives on the Pool.
type Descriptor struct {
	Name      string
	Size      int
	Workers   []string
	Options   Options
	BirthTime time.Time

	pool *Pool
}

// Pool returns the live pool backing this descriptor.
func (d *Descriptor) Pool() *Pool {
	return d.pool
}

// WorkerID returns the deterministic identifier for worker index i
// (0-based), a pure function of (pool name, index) so a descriptor can be
// rebuilt from just the name and a live child count (spec §4.1).
func WorkerID(poolName string, i int) string {
	return fmt.Sprintf("%s-%d", poolName, i)
}

// Registry is the process-wide, write-once-per-pool, read-mostly pool
// directory (spec §4.1). Lookups are lock-free in the common case: reads
// go through sync.Map, which is tuned for exactly this
// write-rarely/read-often pattern, the same concurrently-read lookup-table
// idiom the teacher reaches for in its own tracking structures.
//
// Two maps are kept deliberately separate: supervisors models "is the pool
// alive" (populated at Start, removed at Stop, never touched out-of-band)
// while descriptors is the cache lookups normally hit and that can be
// lost independently (e.g. an operator clearing a cache, or the scenario
// in spec §8.6) — a descriptor-cache miss with a live supervisor is the
// rebuild path, not a no_workers failure.
type Registry struct {
	supervisors sync.Map // name(string) -> *Pool
	descriptors sync.Map // name(string) -> *Descriptor
}

// defaultRegistry is the process-wide registry backing the package-level
// wpool API. Tests and embedders that want isolation construct their own
// Registry instead of using this one.
var defaultRegistry = &Registry{}

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Store allocates a fresh descriptor for name and publishes it, called once
// at pool init (spec §4.1 store).
func (r *Registry) Store(name string, size int, options Options, pool *Pool) *Descriptor {
	r.supervisors.Store(name, pool)
	return r.publish(name, size, options, pool)
}

func (r *Registry) publish(name string, size int, options Options, pool *Pool) *Descriptor {
	workers := make([]string, size)
	for i := 0; i < size; i++ {
		workers[i] = WorkerID(name, i)
	}
	d := &Descriptor{
		Name:      name,
		Size:      size,
		Workers:   workers,
		Options:   options,
		BirthTime: time.Now(),
		pool:      pool,
	}
	r.descriptors.Store(name, d)
	return d
}

// Lookup returns the descriptor for name. A descriptor-cache miss with a
// live supervisor triggers Rebuild; a miss with no live supervisor, or a
// descriptor whose supervisor has since died, returns absent and scrubs
// the stale entry (spec §4.1 lookup).
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	v, ok := r.descriptors.Load(name)
	if !ok {
		if p, ok := r.supervisors.Load(name); ok {
			pool := p.(*Pool)
			if !pool.Stopped() {
				return r.Rebuild(name, pool), true
			}
			r.supervisors.Delete(name)
		}
		return nil, false
	}
	d := v.(*Descriptor)
	if d.pool.Stopped() {
		r.descriptors.Delete(name)
		r.supervisors.Delete(name)
		return nil, false
	}
	return d, true
}

// Rebuild republishes a descriptor for name from a live pool's current
// child count, used on the rare path where the registry entry was lost
// out-of-band but the supervisor is still alive (spec §4.1 rebuild).
func (r *Registry) Rebuild(name string, pool *Pool) *Descriptor {
	registryLog.Warn("rebuilding pool descriptor from live supervisor", logging.Fields{"pool": name})
	size := pool.workerSup.childCount()
	return r.publish(name, size, Options{}, pool)
}

// Remove deletes the registry entry for name, called on pool shutdown.
func (r *Registry) Remove(name string) {
	r.descriptors.Delete(name)
	r.supervisors.Delete(name)
}

// Names returns every currently registered pool name.
func (r *Registry) Names() []string {
	var names []string
	r.supervisors.Range(func(key, value any) bool {
		names = append(names, key.(string))
		return true
	})
	return names
}

// DeleteDescriptorForTest removes only the cached descriptor for name,
// leaving the supervisor entry intact — simulates the out-of-band cache
// loss in spec §8's registry-rebuild scenario.
func (r *Registry) DeleteDescriptorForTest(name string) {
	r.descriptors.Delete(name)
}
