// Package intake stages participant requests on the authority. Requests
// arrive from any connection goroutine and are drained in FIFO order once
// per simulation tick.
package intake

import (
	"sync"
	"time"

	"github.com/blasternet/combatsync/pkg/core"
)

// Command is one staged request.
type Command struct {
	Player   core.PlayerID
	Type     string
	Seq      uint64
	Body     []byte
	Received time.Duration // authority world time at staging
}

// Buffer is a fixed-size ring of staged commands, safe for concurrent
// producers and a single consumer.
type Buffer struct {
	mu    sync.Mutex
	data  []Command
	head  int
	tail  int
	count int
}

// NewBuffer creates a ring holding at most capacity commands.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{data: make([]Command, capacity)}
}

// Capacity is the maximum number of staged commands.
func (b *Buffer) Capacity() int { return len(b.data) }

// Push stages cmd, returning false when the ring is full.
func (b *Buffer) Push(cmd Command) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == len(b.data) {
		return false
	}
	b.data[b.tail] = cmd
	b.tail = (b.tail + 1) % len(b.data)
	b.count++
	return true
}

// Drain returns the staged commands in arrival order and empties the ring.
func (b *Buffer) Drain() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return nil
	}
	out := make([]Command, b.count)
	for i := range b.count {
		idx := (b.head + i) % len(b.data)
		out[i] = b.data[idx]
		b.data[idx] = Command{}
	}
	b.head, b.tail, b.count = 0, 0, 0
	return out
}

// Len is the number of staged commands.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
