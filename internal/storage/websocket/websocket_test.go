package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blasternet/combatsync/pkg/core"
	"github.com/blasternet/combatsync/pkg/streaming"
)

// testServer upgrades to WebSocket, records received envelopes and acks
// start_match and end_match.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if env.Type == streaming.TypeStartMatch || env.Type == streaming.TypeEndMatch {
				data, _ := json.Marshal(streaming.AckMessage{Type: "ack", For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	secret   string
	messages []streaming.Envelope
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newBackend(t *testing.T, srv *httptest.Server) *Backend {
	t.Helper()
	b, err := New(Config{URL: wsURL(srv), Secret: "test"}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}

func TestStartAndEndMatch(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()
	b := newBackend(t, srv)

	m := &core.Match{Key: "abc", Level: "arena", Players: []core.PlayerID{1}}
	require.NoError(t, b.StartMatch(m))
	require.NoError(t, b.EndMatch())

	msgs := ml.all()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeStartMatch, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndMatch, msgs[len(msgs)-1].Type)

	var start streaming.StartMatchPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &start))
	require.NotNil(t, start.Match)
	assert.Equal(t, "abc", start.Match.Key)

	ml.mu.Lock()
	assert.Equal(t, "test", ml.secret)
	ml.mu.Unlock()
}

func TestEndMatch_WithoutStart(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()
	b := newBackend(t, srv)

	assert.Error(t, b.EndMatch())
}

func TestFireAndForgetMessages(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()
	b := newBackend(t, srv)

	require.NoError(t, b.StartMatch(&core.Match{Level: "arena"}))
	require.NoError(t, b.RecordFire(&core.FireEvent{PlayerID: 1, WeaponType: core.SniperRifle}))
	require.NoError(t, b.RecordReload(&core.ReloadEvent{PlayerID: 1}))
	require.NoError(t, b.RecordWeaponTransition(&core.WeaponTransition{WeaponID: 3}))
	require.NoError(t, b.RecordGrenade(&core.GrenadeEvent{PlayerID: 1}))
	require.NoError(t, b.RecordHitClaim(&core.HitClaim{ShooterID: 1, VictimID: 2}))
	require.NoError(t, b.RecordTimeSync(&core.TimeSyncSample{PlayerID: 2}))
	require.NoError(t, b.RecordMatchState(&core.MatchStateChange{State: core.Cooldown}))
	require.NoError(t, b.EndMatch())

	// the write loop is FIFO, so the end_match ack implies everything before it arrived
	types := make(map[string]int)
	for _, m := range ml.all() {
		types[m.Type]++
	}

	for _, typ := range []string{
		streaming.TypeStartMatch,
		streaming.TypeFireEvent,
		streaming.TypeReloadEvent,
		streaming.TypeWeaponTransition,
		streaming.TypeGrenadeEvent,
		streaming.TypeHitClaim,
		streaming.TypeTimeSync,
		streaming.TypeMatchState,
		streaming.TypeEndMatch,
	} {
		assert.Equal(t, 1, types[typ], typ)
	}
	assert.Zero(t, b.Dropped())
}

func TestFirePayloadRoundTrip(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()
	b := newBackend(t, srv)

	require.NoError(t, b.StartMatch(&core.Match{}))
	require.NoError(t, b.RecordFire(&core.FireEvent{PlayerID: 4, AmmoAfter: 7, Target: core.Vector{X: 1, Y: 2, Z: 3}}))
	require.NoError(t, b.EndMatch())

	var got core.FireEvent
	for _, m := range ml.all() {
		if m.Type == streaming.TypeFireEvent {
			require.NoError(t, json.Unmarshal(m.Payload, &got))
		}
	}
	assert.Equal(t, core.PlayerID(4), got.PlayerID)
	assert.Equal(t, 7, got.AmmoAfter)
	assert.Equal(t, core.Vector{X: 1, Y: 2, Z: 3}, got.Target)
}

func TestClose_FlushesQueuedEvents(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()
	b := newBackend(t, srv)

	require.NoError(t, b.StartMatch(&core.Match{}))
	for range 50 {
		require.NoError(t, b.RecordFire(&core.FireEvent{PlayerID: 1}))
	}
	require.NoError(t, b.EndMatch())
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	fires := 0
	for _, m := range ml.all() {
		if m.Type == streaming.TypeFireEvent {
			fires++
		}
	}
	assert.Equal(t, 50, fires)
	assert.Zero(t, b.Reconnects())
}

func TestInit_DialFailure(t *testing.T) {
	b, err := New(Config{URL: "ws://127.0.0.1:1/api"}, nil)
	require.NoError(t, err)
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestStartMatch_AckTimeoutWhenServerSilent(t *testing.T) {
	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	b := newBackend(t, srv)
	data, err := marshalEnvelope(streaming.TypeStartMatch, streaming.StartMatchPayload{})
	require.NoError(t, err)

	start := time.Now()
	err = b.conn.sendAndWait(data, streaming.TypeStartMatch, 50*time.Millisecond)
	assert.ErrorContains(t, err, "timeout waiting for ack")
	assert.Less(t, time.Since(start), 2*time.Second)
}
