package simulator

import (
	"sync"

	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

// queue is an unbounded FIFO of notifications. Emitters never block, which
// lets the engine emit while holding its own lock.
type queue struct {
	mu      sync.Mutex
	items   []ozw.Notification
	pending map[uint32]int32
	signal  chan struct{}
}

func newQueue() *queue {
	return &queue{
		pending: make(map[uint32]int32),
		signal:  make(chan struct{}, 1),
	}
}

func (q *queue) push(n ozw.Notification) {
	q.mu.Lock()
	q.items = append(q.items, n)
	q.pending[n.HomeID]++
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *queue) pop() (ozw.Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return ozw.Notification{}, false
	}
	n := q.items[0]
	q.items[0] = ozw.Notification{}
	q.items = q.items[1:]
	return n, true
}

// done marks a popped notification as delivered.
func (q *queue) done(homeID uint32) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pending[homeID]--; q.pending[homeID] <= 0 {
		delete(q.pending, homeID)
	}
}

func (q *queue) ready() <-chan struct{} {
	return q.signal
}

// depth returns how many notifications for homeID are undelivered.
func (q *queue) depth(homeID uint32) int32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending[homeID]
}
