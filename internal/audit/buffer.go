package audit

import "sync"

const defaultBufferSize = 1000

// eventQueue holds events between Emit and Flush. It is bounded; when full the
// oldest event is discarded and counted.
type eventQueue struct {
	mu      sync.Mutex
	items   []Event
	limit   int
	dropped int64
}

func newEventQueue(limit int) *eventQueue {
	if limit <= 0 {
		limit = defaultBufferSize
	}
	return &eventQueue{limit: limit, items: make([]Event, 0, min(limit, 64))}
}

func (q *eventQueue) push(event Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == q.limit {
		copy(q.items, q.items[1:])
		q.items = q.items[:len(q.items)-1]
		q.dropped++
	}
	q.items = append(q.items, event)
}

// take removes up to n events, oldest first.
func (q *eventQueue) take(n int) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	n = min(n, len(q.items))
	if n == 0 {
		return nil
	}
	out := make([]Event, n)
	copy(out, q.items[:n])
	rest := copy(q.items, q.items[n:])
	clear(q.items[rest:])
	q.items = q.items[:rest]
	return out
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *eventQueue) droppedCount() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
