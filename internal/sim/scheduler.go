package sim

import (
	"container/heap"
	"context"
	"math"
)

type event struct {
	at  float64
	seq uint64
	fn  func()
}

type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(*event)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// Scheduler is a single-threaded discrete-event loop over simulated seconds.
// Events at the same instant run in the order they were scheduled.
type Scheduler struct {
	now   float64
	seq   uint64
	queue eventQueue
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) Now() float64 { return s.now }

// Pending returns the number of queued events.
func (s *Scheduler) Pending() int { return len(s.queue) }

// At schedules fn at absolute time t. Times in the past run at Now.
func (s *Scheduler) At(t float64, fn func()) {
	if t < s.now {
		t = s.now
	}
	s.seq++
	heap.Push(&s.queue, &event{at: t, seq: s.seq, fn: fn})
}

// After schedules fn d seconds from now.
func (s *Scheduler) After(d float64, fn func()) {
	s.At(s.now+d, fn)
}

// Ticker is a periodic timer created by Every.
type Ticker struct {
	stopped bool
}

func (t *Ticker) Stop() { t.stopped = true }

// Every runs fn every interval seconds, first at Now+interval, until the
// returned Ticker is stopped.
func (s *Scheduler) Every(interval float64, fn func()) *Ticker {
	t := &Ticker{}
	var tick func()
	tick = func() {
		if t.stopped {
			return
		}
		fn()
		if !t.stopped {
			s.After(interval, tick)
		}
	}
	s.After(interval, tick)
	return t
}

// step runs the next event if it is due no later than limit.
func (s *Scheduler) step(limit float64) bool {
	if len(s.queue) == 0 || s.queue[0].at > limit {
		return false
	}
	e := heap.Pop(&s.queue).(*event)
	s.now = e.at
	e.fn()
	return true
}

// Run processes events until the queue is empty or ctx is done. A live
// Ticker keeps the queue non-empty, so callers with periodic timers should
// use RunUntil.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.step(math.MaxFloat64) {
			return nil
		}
	}
}

// RunUntil processes every event due at or before t, then advances the
// clock to t.
func (s *Scheduler) RunUntil(ctx context.Context, t float64) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.step(t) {
			break
		}
	}
	if t > s.now {
		s.now = t
	}
	return nil
}

// RunFor is RunUntil(Now+d).
func (s *Scheduler) RunFor(ctx context.Context, d float64) error {
	return s.RunUntil(ctx, s.now+d)
}
