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
	"container/list"
	"context"
	"time"

	"github.com/lindb/wpool/internal/logging"
)

// pendingTask is a queued call/cast waiting for a worker (spec §3 Pending
// Task).
type pendingTask struct {
	msg      *Msg
	deadline time.Time // zero means no deadline (casts)
}

// matchRequest is sent by a dispatch call into the queue manager's single
// input channel; reply carries either a matched worker or an error.
type matchRequest struct {
	kind     Kind
	msg      *Msg
	deadline time.Time
	reply    chan matchReply
}

type matchReply struct {
	worker *worker
	err    error
}

// QueueManager is the central serializer for the "available worker"
// strategies (spec §2 component 2, §4.3). It is modeled as a single
// goroutine owning two deques — tasks-waiting-for-workers and
// workers-waiting-for-tasks — mutated only by its own run loop in response
// to messages on its channels (dispatch requests, worker readiness,
// pending-count queries, stop), so no mutex guards the deques themselves
// (spec §9 "queue manager as coroutine").
type QueueManager struct {
	pool      *Pool
	queueType QueueType

	requests chan matchRequest
	readyWk  chan *worker
	pendingN chan chan int // pending-count query
	stopCh   chan struct{}
	done     chan struct{}

	log *logging.Logger
}

func newQueueManager(pool *Pool, queueType QueueType) *QueueManager {
	qm := &QueueManager{
		pool:      pool,
		queueType: queueType,
		requests:  make(chan matchRequest),
		readyWk:   make(chan *worker, 4096),
		pendingN:  make(chan chan int),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
		log:       logging.Component("concurrent.queue_manager"),
	}
	go qm.run()
	return qm
}

func (qm *QueueManager) stop() {
	close(qm.stopCh)
	<-qm.done
}

// run is the manager's single-consumer loop: every mutation of tasks/
// waitingWorkers happens here, and nowhere else.
func (qm *QueueManager) run() {
	defer close(qm.done)

	tasks := list.New()         // of *pendingTask
	waitingWorkers := list.New() // of *worker

	reapTicker := time.NewTicker(25 * time.Millisecond)
	defer reapTicker.Stop()

	for {
		select {
		case <-qm.stopCh:
			return

		case req := <-qm.requests:
			qm.handleRequest(req, tasks, waitingWorkers)

		case w := <-qm.readyWk:
			// a worker finished a task and is advertising readiness
			// (spec §4.3 "worker-readiness protocol").
			qm.reap(tasks)
			if el := tasks.Front(); el != nil {
				pt := el.Value.(*pendingTask)
				tasks.Remove(el)
				qm.dispatchTo(w, pt)
			} else {
				waitingWorkers.PushBack(w)
			}

		case reply := <-qm.pendingN:
			reply <- tasks.Len()

		case <-reapTicker.C:
			qm.reap(tasks)
		}
	}
}

// reap drops calls whose deadline has already elapsed, per spec §4.3
// "Deadline handling": a worker must never execute a call past deadline.
func (qm *QueueManager) reap(tasks *list.List) {
	now := time.Now()
	var next *list.Element
	for el := tasks.Front(); el != nil; el = next {
		next = el.Next()
		pt := el.Value.(*pendingTask)
		if !pt.deadline.IsZero() && now.After(pt.deadline) {
			tasks.Remove(el)
			qm.log.Debug("reaped expired queued call")
			if pt.msg.Kind == KindCall && pt.msg.Reply != nil {
				select {
				case pt.msg.Reply <- callResult{err: ErrTimeout}:
				default:
				}
			}
		}
	}
}

func (qm *QueueManager) handleRequest(req matchRequest, tasks, waitingWorkers *list.List) {
	qm.reap(tasks)

	if el := waitingWorkers.Front(); el != nil {
		w := el.Value.(*worker)
		waitingWorkers.Remove(el)
		req.reply <- matchReply{worker: w}
		return
	}

	// no worker ready: enqueue per configured discipline.
	pt := &pendingTask{msg: req.msg, deadline: req.deadline}
	if qm.queueType == LIFO {
		tasks.PushFront(pt)
	} else {
		tasks.PushBack(pt)
	}
	req.reply <- matchReply{} // caller blocks on its own deadline/worker dispatch
}

func (qm *QueueManager) dispatchTo(w *worker, pt *pendingTask) {
	if !pt.deadline.IsZero() && time.Now().After(pt.deadline) {
		if pt.msg.Kind == KindCall && pt.msg.Reply != nil {
			select {
			case pt.msg.Reply <- callResult{err: ErrTimeout}:
			default:
			}
		}
		// the worker stays ready for the next match attempt.
		qm.readyWk <- w
		return
	}
	w.submit(pt.msg)
}

// notifyReady is called by a worker after finishing a task, when the pool
// uses an available-worker strategy (spec §4.4 step 5).
func (qm *QueueManager) notifyReady(w *worker) {
	select {
	case qm.readyWk <- w:
	case <-qm.done:
	}
}

// pendingTaskCount is the scalar gauge used by stats (spec §4.3
// pending_task_count).
func (qm *QueueManager) pendingTaskCount() int {
	reply := make(chan int, 1)
	select {
	case qm.pendingN <- reply:
		return <-reply
	case <-qm.done:
		return 0
	}
}

// CastToAvailableWorker enqueues cast until a worker is free; never fails
// for the caller (spec §4.3).
func (qm *QueueManager) CastToAvailableWorker(payload any, handler func(any) (any, error)) {
	msg := &Msg{Kind: KindCast, Payload: payload, Handler: handler}
	reply := make(chan matchReply, 1)
	qm.requests <- matchRequest{kind: KindCast, msg: msg, reply: reply}
	r := <-reply
	if r.worker != nil {
		r.worker.submit(msg)
	}
}

// CallAvailableWorker dispatches synchronously if a worker is ready,
// otherwise enqueues with a deadline and waits for either a reply or the
// deadline (spec §4.3 call_available_worker). The timeout bounds queueing
// AND execution (spec §9 Open Question).
func (qm *QueueManager) CallAvailableWorker(ctx context.Context, payload any,
	handler func(any) (any, error), timeout time.Duration,
) (any, error) {
	deadline := time.Now().Add(timeout)
	msg := &Msg{Kind: KindCall, Payload: payload, Handler: handler, Deadline: deadline, Reply: make(chan callResult, 1)}

	reply := make(chan matchReply, 1)
	select {
	case qm.requests <- matchRequest{kind: KindCall, msg: msg, deadline: deadline, reply: reply}:
	case <-qm.done:
		return nil, ErrNoProc
	}
	r := <-reply
	if r.worker != nil {
		r.worker.submit(msg)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-msg.Reply:
		return res.value, res.err
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RequestHandle is returned immediately by SendRequestAvailableWorker; the
// reply is delivered asynchronously once the matched worker finishes
// (spec §4.3 send_request_available_worker, §6).
type RequestHandle struct {
	Reply <-chan callResult
}

// SendRequestAvailableWorker returns a handle as soon as the manager has
// either matched the request to a worker or queued it. A queued request
// that is not matched before the deadline is dropped and its handle yields
// ErrTimeout; unlike CallAvailableWorker, this deadline covers only
// queueing, never execution (spec §9 Open Question).
func (qm *QueueManager) SendRequestAvailableWorker(payload any,
	handler func(any) (any, error), timeout time.Duration,
) (*RequestHandle, error) {
	deadline := time.Now().Add(timeout)
	msg := &Msg{Kind: KindCall, Payload: payload, Handler: handler, Reply: make(chan callResult, 1)}

	reply := make(chan matchReply, 1)
	select {
	case qm.requests <- matchRequest{kind: KindCall, msg: msg, deadline: deadline, reply: reply}:
	case <-qm.done:
		return nil, ErrNoProc
	}

	select {
	case r := <-reply:
		if r.worker != nil {
			r.worker.submit(msg)
			return &RequestHandle{Reply: msg.Reply}, nil
		}
		// queued: the pending entry carries the deadline, so the manager's
		// reaper answers the handle with ErrTimeout if no worker is matched
		// in time; once matched, the reply arrives when the task finishes.
		return &RequestHandle{Reply: msg.Reply}, nil
	case <-time.After(timeout):
		return nil, ErrTimeout
	}
}

// waitQueuedHandle races the eventual match reply against the caller's
// queueing deadline, translating a deadline-side timeout into the handle's
// own reply channel so callers only ever read one channel.
func (qm *QueueManager) waitQueuedHandle(msg *Msg, deadline time.Time) *RequestHandle {
	out := make(chan callResult, 1)
	go func() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		select {
		case res := <-msg.Reply:
			out <- res
		case <-timer.C:
			out <- callResult{err: ErrTimeout}
		}
	}()
	return &RequestHandle{Reply: out}
}
