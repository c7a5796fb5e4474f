package pqueue_test

import (
	"testing"
	"time"

	"github.com/dmitrymomot/peepsy/core/pqueue"
	"github.com/stretchr/testify/assert"
)

func TestDequeueOrdersByPriorityThenFIFO(t *testing.T) {
	q := pqueue.New[string]()
	q.Enqueue("low-a", 10, time.Minute)
	q.Enqueue("high", 0, time.Minute)
	q.Enqueue("low-b", 10, time.Minute)

	v, ok := q.Dequeue()
	assert.True(t, ok)
	assert.Equal(t, "high", v)

	v, ok = q.Dequeue()
	assert.True(t, ok)
	assert.Equal(t, "low-a", v)

	v, ok = q.Dequeue()
	assert.True(t, ok)
	assert.Equal(t, "low-b", v)
}

func TestDequeueDropsExpiredLeadingEntries(t *testing.T) {
	q := pqueue.New[int]()
	q.Enqueue(1, 0, -time.Second) // already expired
	q.Enqueue(2, 0, time.Minute)

	v, ok := q.Dequeue()
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestPeekDoesNotRemoveValidItem(t *testing.T) {
	q := pqueue.New[int]()
	q.Enqueue(42, 0, time.Minute)

	v, ok := q.Peek()
	assert.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, q.Size())
}

func TestCleanExpiredIsIdempotent(t *testing.T) {
	q := pqueue.New[int]()
	q.Enqueue(1, 0, -time.Second)
	q.Enqueue(2, 0, -time.Second)
	q.Enqueue(3, 0, time.Minute)

	assert.Equal(t, 2, q.CleanExpired())
	assert.Equal(t, 0, q.CleanExpired())
	assert.Equal(t, 1, q.Size())
}

func TestClearEmptiesQueue(t *testing.T) {
	q := pqueue.New[int]()
	q.Enqueue(1, 0, time.Minute)
	q.Clear()
	assert.True(t, q.IsEmpty())
}

func TestEmptyQueueDequeueReturnsFalse(t *testing.T) {
	q := pqueue.New[int]()
	_, ok := q.Dequeue()
	assert.False(t, ok)
}
