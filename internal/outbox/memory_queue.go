package outbox

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryQueue keeps submissions in process memory, ordered by the time
// they become eligible and then by insertion. It is safe for concurrent use.
type InMemoryQueue struct {
	mu       sync.Mutex
	items    []memoryItem
	seq      uint64
	capacity int
	// changed is closed and replaced whenever items changes.
	changed chan struct{}
}

type memoryItem struct {
	at  time.Time
	seq uint64
	sub Submission
}

// NewInMemoryQueue creates a queue with the given capacity (default 1024).
// Enqueue blocks while the queue is full.
func NewInMemoryQueue(capacity int) *InMemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &InMemoryQueue{capacity: capacity, changed: make(chan struct{})}
}

var _ Queue = (*InMemoryQueue)(nil)

func (q *InMemoryQueue) Enqueue(ctx context.Context, s Submission) error {
	for {
		q.mu.Lock()
		if len(q.items) < q.capacity {
			q.insert(s)
			q.mu.Unlock()
			return nil
		}
		changed := q.changed
		q.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// insert adds s in eligibility order. Callers hold q.mu.
func (q *InMemoryQueue) insert(s Submission) {
	at := s.NotBefore
	if at.IsZero() {
		at = time.Now()
	}
	q.seq++
	it := memoryItem{at: at, seq: q.seq, sub: s}
	i := sort.Search(len(q.items), func(i int) bool {
		return q.items[i].at.After(at)
	})
	q.items = append(q.items, memoryItem{})
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = it
	q.notify()
}

// notify wakes every waiter. Callers hold q.mu.
func (q *InMemoryQueue) notify() {
	close(q.changed)
	q.changed = make(chan struct{})
}

// Dequeue blocks until the head submission is eligible or ctx is cancelled.
func (q *InMemoryQueue) Dequeue(ctx context.Context) (*Submission, error) {
	for {
		q.mu.Lock()
		var wait time.Duration
		if len(q.items) > 0 {
			head := q.items[0]
			if wait = time.Until(head.at); wait <= 0 {
				q.items = q.items[1:]
				q.notify()
				q.mu.Unlock()
				return &head.sub, nil
			}
		}
		changed := q.changed
		q.mu.Unlock()

		if err := waitChange(ctx, changed, wait); err != nil {
			return nil, err
		}
	}
}

// waitChange blocks until changed is closed, wait elapses (when positive)
// or ctx is done.
func waitChange(ctx context.Context, changed <-chan struct{}, wait time.Duration) error {
	var timeout <-chan time.Time
	if wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-changed:
	case <-timeout:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (q *InMemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
