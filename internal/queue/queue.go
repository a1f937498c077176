package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// FullPolicy selects how a bounded queue treats Submit when it is at capacity.
type FullPolicy string

const (
	PolicyReject FullPolicy = "reject"
	PolicyBlock  FullPolicy = "block"
)

// ParseFullPolicy maps a config value onto a FullPolicy.
func ParseFullPolicy(value string) (FullPolicy, error) {
	switch FullPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicyBlock:
		return PolicyBlock, nil
	default:
		return "", fmt.Errorf("unknown queue full policy %q", value)
	}
}

// Options configures a Queue.
type Options struct {
	// Capacity bounds the number of waiting jobs. Zero means unbounded.
	Capacity int
	Policy   FullPolicy
	// OnAdmit runs under the queue lock before an admitted job becomes
	// visible to the reader, so observers count it before it can be taken.
	OnAdmit func(Job)
}

type entry struct {
	job      Job
	sentinel bool
}

// Queue is a multi-producer, single-consumer FIFO with a stop sentinel.
type Queue struct {
	mu       sync.Mutex
	items    []entry
	closed   bool
	capacity int
	policy   FullPolicy
	onAdmit  func(Job)
	// pushed and popped are closed and replaced on every push and pop so
	// waiters can select on them alongside a context.
	pushed chan struct{}
	popped chan struct{}
}

// New builds an empty queue.
func New(opts Options) *Queue {
	policy := opts.Policy
	if policy == "" {
		policy = PolicyReject
	}
	capacity := max(opts.Capacity, 0)
	return &Queue{
		capacity: capacity,
		policy:   policy,
		onAdmit:  opts.OnAdmit,
		pushed:   make(chan struct{}),
		popped:   make(chan struct{}),
	}
}

// Submit appends job at the tail without waiting for it to be processed.
func (q *Queue) Submit(ctx context.Context, job Job) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return ErrClosed
		}
		if q.capacity == 0 || q.pendingLocked() < q.capacity {
			if q.onAdmit != nil {
				q.onAdmit(job)
			}
			q.items = append(q.items, entry{job: job})
			q.signalPushLocked()
			q.mu.Unlock()
			return nil
		}
		if q.policy != PolicyBlock {
			q.mu.Unlock()
			return ErrFull
		}
		wait := q.popped
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close enqueues the stop sentinel behind every admitted job. It reports
// false when the sentinel was already present.
func (q *Queue) Close() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.closed = true
	q.items = append(q.items, entry{sentinel: true})
	q.signalPushLocked()
	// Wake blocked submitters so they observe ErrClosed.
	q.signalPopLocked()
	return true
}

// Next blocks until an entry is available or ctx ends. It returns ok=false
// when the sentinel is reached; the sentinel stays at the head so later
// calls also report it.
func (q *Queue) Next(ctx context.Context) (Job, bool, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			head := q.items[0]
			if head.sentinel {
				q.mu.Unlock()
				return Job{}, false, nil
			}
			q.items[0] = entry{}
			q.items = q.items[1:]
			q.signalPopLocked()
			q.mu.Unlock()
			return head.job, true, nil
		}
		wait := q.pushed
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return Job{}, false, ctx.Err()
		}
	}
}

// Len returns the number of waiting jobs, excluding the sentinel.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pendingLocked()
}

// Closed reports whether the sentinel has been enqueued.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Pending returns a copy of the waiting jobs in FIFO order.
func (q *Queue) Pending() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs := make([]Job, 0, len(q.items))
	for _, item := range q.items {
		if !item.sentinel {
			jobs = append(jobs, item.job)
		}
	}
	return jobs
}

func (q *Queue) pendingLocked() int {
	n := len(q.items)
	if q.closed {
		n--
	}
	return n
}

func (q *Queue) signalPushLocked() {
	close(q.pushed)
	q.pushed = make(chan struct{})
}

func (q *Queue) signalPopLocked() {
	close(q.popped)
	q.popped = make(chan struct{})
}
