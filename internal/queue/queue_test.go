package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := New[int]()

	for i := 1; i <= 3; i++ {
		q.Enqueue(i)
	}
	assert.Equal(t, 3, q.Len())

	for want := 1; want <= 3; want++ {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestQueue_TryDequeueEmpty(t *testing.T) {
	q := New[string]()

	v, ok := q.TryDequeue()
	assert.False(t, ok)
	assert.Empty(t, v)

	q.Enqueue("a")
	_, _ = q.TryDequeue()

	_, ok = q.TryDequeue()
	assert.False(t, ok, "drained queue reports empty")
	assert.Equal(t, 0, q.Len())
}

func TestQueue_Dequeue(t *testing.T) {
	t.Run("returns queued item immediately", func(t *testing.T) {
		q := New[int]()
		q.Enqueue(7)

		v, err := q.Dequeue(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})

	t.Run("waits for producer", func(t *testing.T) {
		q := New[int]()
		go func() {
			time.Sleep(20 * time.Millisecond)
			q.Enqueue(42)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		v, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})

	t.Run("honors cancellation", func(t *testing.T) {
		q := New[int]()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := q.Dequeue(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	const producers, perProducer = 8, 500
	q := New[int]()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(p*perProducer + i)
			}
		}(p)
	}
	wg.Wait()

	require.Equal(t, producers*perProducer, q.Len())

	// Each producer's items come out in the order it enqueued them.
	last := make(map[int]int)
	seen := 0
	for {
		v, ok := q.TryDequeue()
		if !ok {
			break
		}
		p := v / perProducer
		if prev, exists := last[p]; exists {
			assert.Greater(t, v, prev)
		}
		last[p] = v
		seen++
	}
	assert.Equal(t, producers*perProducer, seen)
}

func TestQueue_ConcurrentConsumers(t *testing.T) {
	const n = 1000
	q := New[int]()
	for i := 0; i < n; i++ {
		q.Enqueue(i)
	}

	var (
		mu   sync.Mutex
		got  = make(map[int]bool)
		wg   sync.WaitGroup
		dups int
	)
	for c := 0; c < 4; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				v, ok := q.TryDequeue()
				if !ok {
					return
				}
				mu.Lock()
				if got[v] {
					dups++
				}
				got[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, got, n)
	assert.Zero(t, dups)
}
