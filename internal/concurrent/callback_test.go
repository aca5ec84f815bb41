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
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingModule struct {
	BaseCallbackModule
	inits   int32
	created int32
}

func (m *countingModule) OnInitStart(string)             { atomic.AddInt32(&m.inits, 1) }
func (m *countingModule) OnWorkerCreation(string, string) { atomic.AddInt32(&m.created, 1) }

func TestEventManager_FiresInitStartAndWorkerCreation(t *testing.T) {
	em := newEventManager("p")
	mod := &countingModule{}
	em.Add(mod)

	em.fireInitStart()
	em.fireWorkerCreation("p-0")

	assert.EqualValues(t, 1, atomic.LoadInt32(&mod.inits))
	assert.EqualValues(t, 1, atomic.LoadInt32(&mod.created))
}

// TestEventManager_AddRemoveRoundTripIsNoop exercises the round-trip
// property: adding then removing the same module leaves the set exactly as
// it started, so a subsequent event reaches no stale registrant.
func TestEventManager_AddRemoveRoundTripIsNoop(t *testing.T) {
	em := newEventManager("p")
	mod := &countingModule{}

	em.Add(mod)
	em.Remove(mod)

	em.fireInitStart()
	assert.EqualValues(t, 0, atomic.LoadInt32(&mod.inits))
}

func TestEventManager_AddIsIdempotent(t *testing.T) {
	em := newEventManager("p")
	mod := &countingModule{}

	em.Add(mod)
	em.Add(mod)
	em.fireInitStart()

	assert.EqualValues(t, 1, atomic.LoadInt32(&mod.inits))
}

type panickyModule struct {
	BaseCallbackModule
}

func (panickyModule) OnInitStart(string) { panic("boom") }

func TestEventManager_PanickingModuleDoesNotStopOthers(t *testing.T) {
	em := newEventManager("p")
	mod := &countingModule{}

	em.Add(panickyModule{})
	em.Add(mod)

	assert.NotPanics(t, func() { em.fireInitStart() })
	assert.EqualValues(t, 1, atomic.LoadInt32(&mod.inits))
}
