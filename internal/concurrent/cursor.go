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

import "sync/atomic"

// rrCursor is the single cache-line atomic counter backing next_worker
// (spec §4.2, §9). Values live in [1, size]; a single compare-and-swap
// attempt is made per call, never a retry loop — losing the race under
// contention is acceptable, since any fresh value is still a valid pick.
type rrCursor struct {
	v uint64
}

func newRRCursor() *rrCursor {
	c := &rrCursor{}
	atomic.StoreUint64(&c.v, 1)
	return c
}

// Load returns the current cursor value without mutating it.
func (c *rrCursor) Load() uint64 {
	return atomic.LoadUint64(&c.v)
}

// Next advances the cursor by one position modulo size and returns the
// pre-advance value, the worker slot to dispatch to (1-based). A single
// CAS attempt is made; losing the race is fine, the observed i is still a
// valid slot to return.
func (c *rrCursor) Next(size int) uint64 {
	i := atomic.LoadUint64(&c.v)
	next := (i % uint64(size)) + 1
	atomic.CompareAndSwapUint64(&c.v, i, next)
	return i
}
