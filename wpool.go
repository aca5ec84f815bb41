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

// Package wpool implements a supervised, in-process worker pool: a named
// group of long-lived worker units that accept fire-and-forget or
// request/response submissions, dispatched across workers by a chosen
// strategy, with operational stats and a supervised lifecycle.
//
// The engine lives in internal/concurrent; this package is the thin public
// surface over a process-wide pool registry, mirroring how the teacher
// layers pkg/common/workers as a thin package over its own directly
// usable primitives.
package wpool

import (
	"context"
	"time"

	"github.com/lindb/wpool/internal/concurrent"
	"github.com/lindb/wpool/internal/logging"
)

var log = logging.Component("wpool")

// Options configures a pool at StartLink time (spec §6).
type Options = concurrent.Options

// QueueType/ShutdownKind/OverrunHandler re-exported for callers building
// Options without reaching into internal/concurrent.
type (
	QueueType      = concurrent.QueueType
	ShutdownKind   = concurrent.ShutdownKind
	OverrunHandler = concurrent.OverrunHandler
	CallbackModule = concurrent.CallbackModule
	Descriptor     = concurrent.Descriptor
	Snapshot       = concurrent.Snapshot
	RequestHandle  = concurrent.RequestHandle
	BaseCallback   = concurrent.BaseCallbackModule
)

const (
	FIFO = concurrent.FIFO
	LIFO = concurrent.LIFO

	Brutal   = concurrent.Brutal
	Graceful = concurrent.Graceful
)

// Failure taxonomy (spec §7), re-exported for errors.Is comparisons.
var (
	ErrNoWorkers          = concurrent.ErrNoWorkers
	ErrNoAvailableWorkers = concurrent.ErrNoAvailableWorkers
	ErrTimeout            = concurrent.ErrTimeout
	ErrNoProc             = concurrent.ErrNoProc
	ErrInvalidRequest     = concurrent.ErrInvalidRequest
)

// Handler is the user callable a pool invokes for each task. Out of scope
// per spec §1 ("the default work executor... trivial glue") beyond this
// signature: it simply invokes the supplied callable.
type Handler func(payload any) (any, error)

// registry backs every package-level function below. Tests that want
// isolation from the process-wide registry construct their own
// concurrent.Registry and drive internal/concurrent directly.
var registry = concurrent.DefaultRegistry()

// StartLink starts a named pool with the given options (spec §6).
func StartLink(name string, options Options) error {
	_, err := concurrent.StartLink(registry, name, options)
	return err
}

// Stop stops a pool, draining in-flight work per its configured shutdown
// kind, and removes it from the registry. Recovered from
// original_source/spec.md's original wpool library as the natural inverse
// of start_link (see SPEC_FULL.md §6).
func Stop(name string) error {
	d, ok := registry.Lookup(name)
	if !ok {
		return ErrNoWorkers
	}
	d.Pool().Stop()
	return nil
}

// PoolNames lists every currently registered pool name.
func PoolNames() []string {
	return registry.Names()
}

func lookup(name string) (*Descriptor, error) {
	d, ok := registry.Lookup(name)
	if !ok {
		return nil, ErrNoWorkers
	}
	return d, nil
}

// BestWorker samples workers and returns the one with the smallest
// observed mailbox length (spec §4.2 best_worker).
func BestWorker(name string) (string, error) {
	d, err := lookup(name)
	if err != nil {
		return "", err
	}
	w, err := d.Pool().BestWorker()
	if err != nil {
		return "", err
	}
	return w.ID(), nil
}

// RandomWorker returns a uniformly random worker (spec §4.2 random_worker).
func RandomWorker(name string) (string, error) {
	d, err := lookup(name)
	if err != nil {
		return "", err
	}
	w, err := d.Pool().RandomWorker()
	if err != nil {
		return "", err
	}
	return w.ID(), nil
}

// NextWorker advances the round-robin cursor and returns the worker it
// pointed to (spec §4.2 next_worker).
func NextWorker(name string) (string, error) {
	d, err := lookup(name)
	if err != nil {
		return "", err
	}
	w, err := d.Pool().NextWorker()
	if err != nil {
		return "", err
	}
	return w.ID(), nil
}

// HashWorker deterministically maps key to the same worker for a fixed
// pool size (spec §4.2 hash_worker).
func HashWorker(name string, key any) (string, error) {
	d, err := lookup(name)
	if err != nil {
		return "", err
	}
	w, err := d.Pool().HashWorker(key)
	if err != nil {
		return "", err
	}
	return w.ID(), nil
}

// NextAvailableWorker returns the first idle worker found by random probe
// (spec §4.2 next_available_worker).
func NextAvailableWorker(name string) (string, error) {
	d, err := lookup(name)
	if err != nil {
		return "", err
	}
	w, err := d.Pool().NextAvailableWorker()
	if err != nil {
		return "", err
	}
	return w.ID(), nil
}

// CallAvailableWorker dispatches synchronously to an available worker,
// bounding the entire queueing-plus-execution interval by timeout (spec
// §4.2/§4.3 call_available_worker, §9 Open Question).
func CallAvailableWorker(ctx context.Context, name string, payload any, handler Handler, timeout time.Duration) (any, error) {
	d, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return d.Pool().CallAvailableWorker(ctx, payload, handler, timeout)
}

// SendRequestAvailableWorker returns a handle as soon as the request is
// matched to a worker or queued; a queued request not matched within
// timeout resolves its handle with ErrTimeout. The timeout covers only
// queueing, never execution (spec §4.2/§4.3, §9 Open Question).
func SendRequestAvailableWorker(name string, payload any, handler Handler, timeout time.Duration) (*RequestHandle, error) {
	d, ok := registry.Lookup(name)
	if !ok {
		return nil, ErrNoProc
	}
	return d.Pool().SendRequestAvailableWorker(payload, handler, timeout)
}

// CastToAvailableWorker enqueues cast until a worker is free. It always
// succeeds synchronously for the caller (spec §4.2/§4.3/§6); an unknown
// pool name is logged and dropped rather than surfaced as an error, since
// the operation's contract promises no failure signal to the caller.
func CastToAvailableWorker(name string, payload any, handler Handler) {
	d, ok := registry.Lookup(name)
	if !ok {
		log.Warn("cast_to_available_worker on unknown pool", logging.Fields{"pool": name})
		return
	}
	d.Pool().CastToAvailableWorker(payload, handler)
}

// Broadcast sends msg as a cast to every worker in the table. It always
// succeeds, even if individual worker slots are dead (spec §4.2/§6/§8).
func Broadcast(name string, payload any, handler Handler) {
	d, ok := registry.Lookup(name)
	if !ok {
		log.Warn("broadcast on unknown pool", logging.Fields{"pool": name})
		return
	}
	d.Pool().Broadcast(payload, handler)
}

// Stats returns the stats snapshot for a single pool (spec §4.6, §6).
func Stats(name string) (Snapshot, error) {
	d, err := lookup(name)
	if err != nil {
		return Snapshot{}, err
	}
	return d.Pool().Stats(), nil
}

// AllStats returns a stats snapshot for every registered pool (spec §6
// "stats()" with no name).
func AllStats() []Snapshot {
	var out []Snapshot
	for _, name := range registry.Names() {
		if snap, err := Stats(name); err == nil {
			out = append(out, snap)
		}
	}
	return out
}

// GetWorkers returns a copy of the immutable worker-identifier table for a
// pool (spec §6 get_workers).
func GetWorkers(name string) ([]string, error) {
	d, err := lookup(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(d.Workers))
	copy(out, d.Workers)
	return out, nil
}

// AddCallbackModule registers module on the named pool (spec §4.7, §6);
// no-op if the pool was started without EnableCallbacks.
func AddCallbackModule(name string, module CallbackModule) error {
	d, err := lookup(name)
	if err != nil {
		return err
	}
	d.Pool().AddCallbackModule(module)
	return nil
}

// RemoveCallbackModule deregisters module from the named pool, idempotently
// (spec §4.7, §6, §8 round-trip property).
func RemoveCallbackModule(name string, module CallbackModule) error {
	d, err := lookup(name)
	if err != nil {
		return err
	}
	d.Pool().RemoveCallbackModule(module)
	return nil
}

// Next returns the worker identifier n positions ahead of a descriptor's
// worker table start, wrapping around — an accessor for client-written
// custom strategy functions (spec §6 next(n, descriptor)).
func Next(n int, d *Descriptor) string {
	if len(d.Workers) == 0 {
		return ""
	}
	return d.Workers[n%len(d.Workers)]
}

// WPoolGet is a generic field accessor for custom strategy functions
// written against a Descriptor (spec §6 wpool_get(field_or_fields,
// descriptor)). Supported fields: "name", "size", "workers", "options".
func WPoolGet(field string, d *Descriptor) any {
	switch field {
	case "name":
		return d.Name
	case "size":
		return d.Size
	case "workers":
		return d.Workers
	case "options":
		return d.Options
	default:
		return nil
	}
}
