package dispatch

import (
	"sync"

	"github.com/shardmesh/shard-node/internal/wire"
)

const queueCapacity = 128

// ResultQueue is a bounded FIFO of WorkResponse, oldest-dropping on
// overflow, capacity 128.
type ResultQueue struct {
	mu    sync.Mutex
	items []wire.WorkResponse
}

// NewResultQueue returns an empty ResultQueue.
func NewResultQueue() *ResultQueue {
	return &ResultQueue{}
}

// Push appends v, evicting the oldest entry if the queue is at capacity.
func (q *ResultQueue) Push(v wire.WorkResponse) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, v)
	if len(q.items) > queueCapacity {
		q.items = q.items[len(q.items)-queueCapacity:]
	}
}

// PopFront removes and returns the oldest entry, or ok=false if empty.
func (q *ResultQueue) PopFront() (wire.WorkResponse, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return wire.WorkResponse{}, false
	}
	v := q.items[0]
	q.items = q.items[1:]
	return v, true
}

// Len reports the current queue length.
func (q *ResultQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// BackwardGradientQueue is a bounded FIFO of BackwardPassGradient, same
// capacity and eviction policy as ResultQueue.
type BackwardGradientQueue struct {
	mu    sync.Mutex
	items []wire.BackwardPassGradient
}

// NewBackwardGradientQueue returns an empty BackwardGradientQueue.
func NewBackwardGradientQueue() *BackwardGradientQueue {
	return &BackwardGradientQueue{}
}

// Push appends v, evicting the oldest entry if the queue is at capacity.
func (q *BackwardGradientQueue) Push(v wire.BackwardPassGradient) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, v)
	if len(q.items) > queueCapacity {
		q.items = q.items[len(q.items)-queueCapacity:]
	}
}

// Len reports the current queue length.
func (q *BackwardGradientQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
