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
	"fmt"
	"math/rand"

	jump "github.com/lithammer/go-jump-consistent-hash"

	"github.com/cespare/xxhash/v2"
)

// BestWorker samples workers starting at a uniformly random index and
// returns the one with the smallest observed mailbox length (spec §4.2
// best_worker). The random start prevents herding on worker #1.
func (p *Pool) BestWorker() (*worker, error) {
	workers := p.workerSup.live()
	if len(workers) == 0 {
		return nil, ErrNoWorkers
	}
	n := len(workers)
	start := rand.Intn(n)
	var best *worker
	bestLen := -1
	for i := 0; i < n; i++ {
		w := workers[(start+i)%n]
		if w == nil {
			continue // process absent: contributes length "infinity"
		}
		l := w.mailboxLen()
		if w.currentTask() != nil {
			l++
		}
		if bestLen == -1 || l < bestLen {
			best, bestLen = w, l
		}
	}
	if best == nil {
		return nil, ErrNoWorkers
	}
	return best, nil
}

// RandomWorker returns the worker at a uniformly random index (spec §4.2
// random_worker).
func (p *Pool) RandomWorker() (*worker, error) {
	workers := p.workerSup.live()
	if len(workers) == 0 {
		return nil, ErrNoWorkers
	}
	return workers[rand.Intn(len(workers))], nil
}

// NextWorker advances the round-robin cursor by a single CAS attempt and
// returns the worker it pointed to (spec §4.2 next_worker).
func (p *Pool) NextWorker() (*worker, error) {
	workers := p.workerSup.live()
	n := len(workers)
	if n == 0 {
		return nil, ErrNoWorkers
	}
	i := p.cursor.Next(n) // 1-based
	return workers[i-1], nil
}

// HashWorker deterministically maps key to the same worker for a given
// pool size (spec §4.2 hash_worker), folding a 64-bit xxhash of key into
// [0,size) with jump consistent hashing.
func (p *Pool) HashWorker(key any) (*worker, error) {
	workers := p.workerSup.live()
	n := len(workers)
	if n == 0 {
		return nil, ErrNoWorkers
	}
	h := hashKey(key)
	bucket := int(jump.Hash(h, int32(n)))
	return workers[bucket], nil
}

func hashKey(key any) uint64 {
	var s string
	switch v := key.(type) {
	case string:
		s = v
	case []byte:
		return xxhash.Sum64(v)
	default:
		s = fmt.Sprint(v)
	}
	return xxhash.Sum64String(s)
}

// NextAvailableWorker samples from a random index and returns the first
// worker that is idle: empty mailbox and no in-flight task (spec §4.2
// next_available_worker).
func (p *Pool) NextAvailableWorker() (*worker, error) {
	workers := p.workerSup.live()
	n := len(workers)
	if n == 0 {
		return nil, ErrNoWorkers
	}
	start := rand.Intn(n)
	for i := 0; i < n; i++ {
		w := workers[(start+i)%n]
		if w != nil && w.idle() {
			return w, nil
		}
	}
	return nil, ErrNoAvailableWorkers
}

// Broadcast sends msg as a cast to every worker in the table; a dead
// worker index is silently skipped (spec §4.2 broadcast, §8 boundary
// behavior).
func (p *Pool) Broadcast(payload any, handler func(any) (any, error)) {
	for _, w := range p.workerSup.live() {
		if w == nil {
			continue
		}
		w.submit(&Msg{Kind: KindBroadcast, Payload: payload, Handler: handler})
	}
}
