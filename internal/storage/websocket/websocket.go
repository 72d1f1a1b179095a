// Package websocket streams match telemetry to a collector over WebSocket.
package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/blasternet/combatsync/pkg/core"
	"github.com/blasternet/combatsync/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams telemetry envelopes as they are recorded.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) (*Backend, error) {
	if cfg.URL == "" {
		return nil, errors.New("websocket backend requires a url")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(cfg.URL, cfg.Secret, logger),
		cfg:  cfg,
	}, nil
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.open()
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Dropped counts envelopes discarded because the send buffer was full.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}

// Reconnects counts sessions re-established after a failure.
func (b *Backend) Reconnects() uint64 {
	return b.conn.reconnects.Load()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartMatch sends the match and waits for the collector's ack.
func (b *Backend) StartMatch(m *core.Match) error {
	data, err := marshalEnvelope(streaming.TypeStartMatch, streaming.StartMatchPayload{Match: m})
	if err != nil {
		return err
	}

	b.conn.setReplay(data)
	return b.conn.sendAndWait(data, streaming.TypeStartMatch, ackTimeout)
}

// EndMatch sends end_match with the final match record and waits for the ack.
func (b *Backend) EndMatch() error {
	if !b.conn.started() {
		return errors.New("no match in progress")
	}

	data, err := marshalEnvelope(streaming.TypeEndMatch, nil)
	if err == nil {
		err = b.conn.sendAndWait(data, streaming.TypeEndMatch, ackTimeout)
	}

	// cleared regardless of error
	b.conn.setReplay(nil)

	return err
}

func (b *Backend) RecordFire(e *core.FireEvent) error {
	return b.sendEnvelope(streaming.TypeFireEvent, e)
}

func (b *Backend) RecordReload(e *core.ReloadEvent) error {
	return b.sendEnvelope(streaming.TypeReloadEvent, e)
}

func (b *Backend) RecordWeaponTransition(e *core.WeaponTransition) error {
	return b.sendEnvelope(streaming.TypeWeaponTransition, e)
}

func (b *Backend) RecordGrenade(e *core.GrenadeEvent) error {
	return b.sendEnvelope(streaming.TypeGrenadeEvent, e)
}

func (b *Backend) RecordHitClaim(e *core.HitClaim) error {
	return b.sendEnvelope(streaming.TypeHitClaim, e)
}

func (b *Backend) RecordTimeSync(s *core.TimeSyncSample) error {
	return b.sendEnvelope(streaming.TypeTimeSync, s)
}

func (b *Backend) RecordMatchState(s *core.MatchStateChange) error {
	return b.sendEnvelope(streaming.TypeMatchState, s)
}
