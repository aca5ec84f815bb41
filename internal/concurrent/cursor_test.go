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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRRCursor_CyclesThroughEverySlot(t *testing.T) {
	c := newRRCursor()
	const size = 5
	seen := make(map[uint64]int)
	for i := 0; i < size; i++ {
		v := c.Next(size)
		assert.GreaterOrEqual(t, v, uint64(1))
		assert.LessOrEqual(t, v, uint64(size))
		seen[v]++
	}
	assert.Len(t, seen, size)
	for _, count := range seen {
		assert.Equal(t, 1, count)
	}
}

func TestRRCursor_StaysInBounds(t *testing.T) {
	c := newRRCursor()
	for i := 0; i < 100; i++ {
		v := c.Load()
		assert.GreaterOrEqual(t, v, uint64(1))
		assert.LessOrEqual(t, v, uint64(3))
		c.Next(3)
	}
}
