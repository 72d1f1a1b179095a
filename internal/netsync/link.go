// Package netsync runs an authority and its participants in one process.
// Every message crosses a loopback link as an encoded frame, so the wire
// codec, delivery latency and request ordering are exercised exactly as
// they would be over a socket.
package netsync

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blasternet/combatsync/pkg/core"
	"github.com/blasternet/combatsync/pkg/streaming"
)

var (
	// ErrUnknownPlayer is returned for a player that has not joined.
	ErrUnknownPlayer = errors.New("unknown player")
	// ErrAlreadyJoined is returned when a player joins twice.
	ErrAlreadyJoined = errors.New("player already joined")
	// ErrLinkClosed is returned by Send after Close.
	ErrLinkClosed = errors.New("link closed")
)

type inflight struct {
	due  time.Duration
	data []byte
}

// Link is one direction of a reliable ordered connection. Frames sent at
// network time t become deliverable at t plus the latency and are handed
// out in send order.
type Link struct {
	codec   streaming.Codec
	latency time.Duration
	now     func() time.Duration

	mu        sync.Mutex
	queue     []inflight
	seq       uint64
	sent      uint64
	delivered uint64
	closed    bool
}

// NewLink creates a link on the network clock now.
func NewLink(codec streaming.Codec, latency time.Duration, now func() time.Duration) *Link {
	if codec == nil {
		codec = streaming.MsgPack
	}
	return &Link{codec: codec, latency: latency, now: now}
}

// Codec is the frame encoding used on this link.
func (l *Link) Codec() streaming.Codec { return l.codec }

// Send encodes payload as a frame of type typ and queues it.
func (l *Link) Send(typ string, player core.PlayerID, payload any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLinkClosed
	}
	data, err := streaming.EncodeFrame(l.codec, typ, player, l.seq+1, payload)
	if err != nil {
		return err
	}
	l.seq++
	l.sent++
	l.queue = append(l.queue, inflight{due: l.now() + l.latency, data: data})
	return nil
}

// Pump delivers every frame that has arrived by now. Frames that fail to
// decode are skipped and reported in the joined error.
func (l *Link) Pump(deliver func(streaming.Frame)) (int, error) {
	l.mu.Lock()
	now := l.now()
	n := 0
	for n < len(l.queue) && l.queue[n].due <= now {
		n++
	}
	ready := make([]inflight, n)
	copy(ready, l.queue[:n])
	l.queue = append(l.queue[:0], l.queue[n:]...)
	l.delivered += uint64(n)
	l.mu.Unlock()

	var errs []error
	count := 0
	for _, in := range ready {
		f, err := streaming.DecodeFrame(l.codec, in.data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		deliver(f)
		count++
	}
	return count, errors.Join(errs...)
}

// InFlight is the number of frames not yet delivered.
func (l *Link) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Stats returns the sent and delivered frame counts.
func (l *Link) Stats() (sent, delivered uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sent, l.delivered
}

// Close drops undelivered frames and refuses further sends.
func (l *Link) Close() {
	l.mu.Lock()
	l.closed = true
	l.queue = nil
	l.mu.Unlock()
}

// Conn is a participant connection: Up carries requests to the authority,
// Down carries notifications back.
type Conn struct {
	Player core.PlayerID
	Up     *Link
	Down   *Link
}

func (c *Conn) String() string { return fmt.Sprintf("conn(%d)", c.Player) }
