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
	"runtime/debug"
	"sync"
	"time"

	"github.com/lindb/wpool/internal/logging"
)

// Kind discriminates the three submission shapes a worker mailbox accepts
// (spec §3 Pending Task "kind").
type Kind int

const (
	// KindCast is fire-and-forget.
	KindCast Kind = iota
	// KindCall carries a reply channel and executes before the deadline.
	KindCall
	// KindBroadcast is a cast sent to every worker in the table.
	KindBroadcast
)

// Msg is one unit of work handed to a worker's mailbox.
type Msg struct {
	Kind     Kind
	Payload  any
	Handler  func(payload any) (any, error)
	Deadline time.Time // zero means no deadline
	Reply    chan callResult

	enqueuedAt time.Time
}

type callResult struct {
	value any
	err   error
}

// taskMarker is the immutable snapshot backing a worker's "current task"
// marker (spec §3, §9 "single atomic reference"). A nil *taskMarker means
// absent/idle.
type taskMarker struct {
	TaskID    string
	StartedAt time.Time
	Payload   any
}

// worker is a single-threaded message-processing loop with a FIFO mailbox
// of 4096 slots (spec §3 Worker Unit, §4.4).
type worker struct {
	id      string
	pool    *Pool
	mailbox chan *Msg
	done    chan struct{}
	stopCh  chan struct{}

	mu      sync.RWMutex
	current *taskMarker // absent when nil, guarded by mu like the circuit breaker's state field

	log *logging.Logger
}

func newWorker(pool *Pool, id string) *worker {
	w := &worker{
		id:      id,
		pool:    pool,
		mailbox: make(chan *Msg, 4096),
		done:    make(chan struct{}),
		stopCh:  make(chan struct{}),
		log:     logging.Component("concurrent.worker"),
	}
	go w.loop()
	if pool.usesQueueManager() {
		// advertise idle immediately so a fresh pool's first
		// available-worker dispatch doesn't needlessly queue.
		pool.queueManager.notifyReady(w)
	}
	return w
}

// ID returns the worker's deterministic identifier.
func (w *worker) ID() string {
	return w.id
}

// mailboxLen is the worker's queue depth as observed by best_worker /
// next_available_worker / the stats collector (spec §4.2, §4.6).
func (w *worker) mailboxLen() int {
	return len(w.mailbox)
}

// idle reports whether the worker has an empty mailbox and no in-flight
// task, the condition next_available_worker probes for (spec §4.2).
func (w *worker) idle() bool {
	return len(w.mailbox) == 0 && w.currentTask() == nil
}

// currentTask returns the worker's in-flight task marker, or nil if idle.
func (w *worker) currentTask() *taskMarker {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *worker) setCurrentTask(m *taskMarker) {
	w.mu.Lock()
	w.current = m
	w.mu.Unlock()
}

// submit enqueues msg (mailbox is a large buffered channel standing in for
// the reference design's unbounded FIFO, per spec §5 "the reference design
// uses unbounded FIFOs"); the caller blocks only while the mailbox is full.
func (w *worker) submit(msg *Msg) {
	msg.enqueuedAt = time.Now()
	w.mailbox <- msg
}

func (w *worker) stop() {
	close(w.stopCh)
	<-w.done
}

func (w *worker) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.stopCh:
			return
		case msg := <-w.mailbox:
			w.process(msg)
		}
	}
}

// process executes one message end to end: marker set, time-checker
// notification, execution, marker clear, reply, and — for pools using
// available-worker strategies — a readiness notification to the queue
// manager (spec §4.4 steps 1-5).
func (w *worker) process(msg *Msg) {
	taskID := fmt.Sprintf("%s-%d", w.id, time.Now().UnixNano())
	w.setCurrentTask(&taskMarker{TaskID: taskID, StartedAt: time.Now(), Payload: msg.Payload})
	w.pool.timeChecker.Start(w.id, taskID)

	result, err := w.exec(msg)

	w.pool.timeChecker.Stop(w.id, taskID)
	w.setCurrentTask(nil)

	if msg.Kind == KindCall && msg.Reply != nil {
		select {
		case msg.Reply <- callResult{value: result, err: err}:
		default:
			// caller already timed out and stopped listening.
		}
	}

	if w.pool.usesQueueManager() {
		w.pool.queueManager.notifyReady(w)
	}
}

// exec invokes the task handler, recovering a panic into a task_failure
// (TaskError) that is logged with its stack and counted in TasksPanic.
func (w *worker) exec(msg *Msg) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TaskError{Reason: r}
			w.pool.stats.TasksPanic.Inc()
			w.log.Error("panic while executing task", logging.Fields{
				"worker": w.id, "error": err, "stack": string(debug.Stack()),
			})
		}
	}()
	if msg.Handler == nil {
		return nil, ErrInvalidRequest
	}
	result, err = msg.Handler(msg.Payload)
	w.pool.stats.TasksConsumed.Inc()
	return result, err
}
