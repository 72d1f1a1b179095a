package intake

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferFIFOAndOverflow(t *testing.T) {
	b := NewBuffer(2)
	assert.True(t, b.Push(Command{Seq: 1}))
	assert.True(t, b.Push(Command{Seq: 2}))
	assert.False(t, b.Push(Command{Seq: 3}))
	assert.Equal(t, 2, b.Len())

	got := b.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].Seq)
	assert.Equal(t, uint64(2), got[1].Seq)
	assert.Nil(t, b.Drain())

	assert.True(t, b.Push(Command{Seq: 4}))
	assert.Equal(t, uint64(4), b.Drain()[0].Seq)
}

func TestBufferMinimumCapacity(t *testing.T) {
	assert.Equal(t, 1, NewBuffer(0).Capacity())
}

func TestBufferConcurrentProducers(t *testing.T) {
	b := NewBuffer(1000)
	var wg sync.WaitGroup
	for p := 0; p < 10; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				b.Push(Command{})
			}
		}()
	}
	wg.Wait()
	assert.Len(t, b.Drain(), 500)
}

func TestIntakeRateLimitsPerPlayer(t *testing.T) {
	now := time.Duration(0)
	in, err := New(Config{Capacity: 16, RatePerSecond: 2, Burst: 2}, func() time.Duration { return now })
	require.NoError(t, err)

	require.NoError(t, in.Push(Command{Player: 1, Type: "fire"}))
	require.NoError(t, in.Push(Command{Player: 1, Type: "fire"}))
	err = in.Push(Command{Player: 1, Type: "fire"})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.NoError(t, in.Push(Command{Player: 2, Type: "fire"}), "buckets are per player")

	now = 500 * time.Millisecond
	assert.NoError(t, in.Push(Command{Player: 1, Type: "fire"}), "one token refilled")

	got := in.Drain()
	require.Len(t, got, 4)
	assert.Equal(t, 500*time.Millisecond, got[3].Received)
}

func TestIntakeQueueFull(t *testing.T) {
	in, err := New(Config{Capacity: 1}, nil)
	require.NoError(t, err)
	require.NoError(t, in.Push(Command{Player: 1, Type: "reload"}))
	assert.ErrorIs(t, in.Push(Command{Player: 1, Type: "reload"}), ErrQueueFull)
	assert.Equal(t, 1, in.Len())
}

func TestGuardForget(t *testing.T) {
	g := NewGuard(1, 1)
	at := time.Unix(100, 0)
	assert.True(t, g.Allow(1, at))
	assert.False(t, g.Allow(1, at))
	g.Forget(1)
	assert.True(t, g.Allow(1, at))
}
