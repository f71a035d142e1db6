package nano

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// workQueue is an insertion-ordered set of pending subscribers.
type workQueue struct {
	order  []*Subscriber
	queued mapset.Set[*Subscriber]
}

func newWorkQueue() workQueue {
	return workQueue{queued: mapset.NewThreadUnsafeSet[*Subscriber]()}
}

func (q *workQueue) add(sub *Subscriber) {
	if q.queued.Add(sub) {
		q.order = append(q.order, sub)
	}
}

// take empties the queue and returns its entries most recent first.
func (q *workQueue) take() []*Subscriber {
	jobs := make([]*Subscriber, len(q.order))
	for i, sub := range q.order {
		jobs[len(q.order)-1-i] = sub
	}
	q.clear()
	return jobs
}

func (q *workQueue) len() int {
	return len(q.order)
}

func (q *workQueue) clear() {
	q.order = q.order[:0]
	q.queued.Clear()
}

// Enqueue adds sub to the pending work. It does not flush.
func (rt *Runtime) Enqueue(sub *Subscriber) {
	rt.queue.add(sub)
}

// Pending reports how many subscribers wait for the next pass.
func (rt *Runtime) Pending() int {
	return rt.queue.len()
}

// Flush drains pending work to a fixed point, or hands the drain to the
// microtask hook when one is configured. Calling it while a drain is in
// progress is a no-op.
func (rt *Runtime) Flush() error {
	return rt.flush()
}

// Schedule enqueues a one-shot callback and triggers a flush, so work from
// outside the signal graph lands in the same coalesced pass. Inside a batch
// the flush waits for the outermost batch to close.
func (rt *Runtime) Schedule(fn ErrFn) error {
	rt.Enqueue(rt.NewSubscriber(fn))
	if rt.batchDepth > 0 {
		return nil
	}
	return rt.flush()
}

func (rt *Runtime) flush() error {
	if rt.draining || rt.scheduled {
		return rt.fault
	}
	if rt.microtask != nil {
		rt.scheduled = true
		rt.microtask(rt.runMicrotask)
		return nil
	}
	rt.drain()
	return rt.settle()
}

func (rt *Runtime) runMicrotask() {
	rt.scheduled = false
	rt.drain()
	if err := rt.settle(); err != nil {
		rt.report(nil, err)
	}
}

// drain runs passes until the queue stays empty. Each pass is a LIFO snapshot;
// anything enqueued during a pass waits for the next one. A fatal error drops
// the remaining work.
func (rt *Runtime) drain() {
	prev := rt.active
	rt.active = nil
	rt.draining = true
	defer func() {
		rt.active = prev
		rt.draining = false
	}()

	runs := make(map[*Subscriber]int)
	passes, total := 0, 0
	for rt.queue.len() > 0 && rt.fault == nil {
		passes++
		for _, sub := range rt.queue.take() {
			runs[sub]++
			if runs[sub] > rt.maxDepth {
				rt.fail(ErrEffectDepthExceeded)
				break
			}
			total++
			if err := invoke(sub.fn); err != nil {
				if IsFatal(err) {
					rt.fail(err)
					break
				}
				rt.report(sub, err)
			}
			if rt.fault != nil {
				break
			}
		}
	}

	if rt.fault != nil {
		rt.queue.clear()
		rt.logger.Debug("flush aborted", "passes", passes, "runs", total, "error", rt.fault)
		return
	}
	rt.logger.Debug("flush complete", "passes", passes, "runs", total)
}

// MicrotaskQueue is a minimal microtask checkpoint for hosts without an event
// loop of their own. Pass q.Queue to WithMicrotask and call Drain at the end
// of each macrotask.
type MicrotaskQueue struct {
	tasks []func()
}

func (q *MicrotaskQueue) Queue(fn func()) {
	q.tasks = append(q.tasks, fn)
}

func (q *MicrotaskQueue) Len() int {
	return len(q.tasks)
}

// Drain runs queued tasks in FIFO order, including tasks queued while
// draining, and returns how many ran.
func (q *MicrotaskQueue) Drain() int {
	n := 0
	for len(q.tasks) > 0 {
		fn := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		fn()
		n++
	}
	return n
}
