package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blasternet/combatsync/internal/clock"
	"github.com/blasternet/combatsync/internal/config"
	"github.com/blasternet/combatsync/internal/netsync"
	"github.com/blasternet/combatsync/internal/worker"
	"github.com/blasternet/combatsync/pkg/core"
	"github.com/blasternet/combatsync/pkg/streaming"
)

func TestNetsyncConfig_FromDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	config.LoadDefaults()

	cfg := netsyncConfig(config.GetSimConfig(), streaming.JSON)
	assert.Equal(t, 500, cfg.Combat.MaxAmmo)
	assert.Equal(t, 4, cfg.Combat.StartingGrenades)
	assert.Equal(t, 250*time.Millisecond, cfg.Combat.SwapDelay)
	assert.Equal(t, 90.0, cfg.FOV)
	assert.Equal(t, "arena", cfg.Level.Name)
	assert.Equal(t, netsync.DefaultLevelWKT, cfg.Level.WKT)
	assert.Equal(t, 120*time.Second, cfg.Timings.Match)
	assert.Equal(t, 60*time.Millisecond, cfg.Latency)
	assert.Equal(t, 5*time.Second, cfg.SyncFrequency)
	assert.Equal(t, 1024, cfg.Intake.Capacity)
	assert.Equal(t, streaming.JSON, cfg.Codec)
}

func TestNetsyncConfig_CustomLevel(t *testing.T) {
	t.Cleanup(viper.Reset)
	config.LoadDefaults()
	viper.Set("match.level", "box")
	viper.Set("match.levelWKT", "POLYGON((0 0,100 0,100 100,0 100,0 0))")

	cfg := netsyncConfig(config.GetSimConfig(), streaming.MsgPack)
	assert.Equal(t, "box", cfg.Level.Name)
	assert.Equal(t, "POLYGON((0 0,100 0,100 100,0 100,0 0))", cfg.Level.WKT)
}

func TestHttpToWS(t *testing.T) {
	assert.Equal(t, "ws://localhost:5000", httpToWS("http://localhost:5000/"))
	assert.Equal(t, "wss://example.com", httpToWS("https://example.com"))
}

func TestSimulate_BotsPickUpTheirLoadout(t *testing.T) {
	t.Cleanup(viper.Reset)
	config.LoadDefaults()
	viper.Set("match.warmup", "100ms")

	cfg := netsyncConfig(config.GetSimConfig(), streaming.MsgPack)
	auth, err := netsync.NewAuthority(cfg, netsync.Dependencies{})
	require.NoError(t, err)
	t.Cleanup(auth.Close)

	noSamples := func(core.PlayerID) func(clock.Sample) { return nil }
	bots, err := joinBots(auth, cfg, 2, noSamples, slog.Default())
	require.NoError(t, err)
	require.Len(t, bots, 2)
	assert.Equal(t, []core.PlayerID{1, 2}, auth.Players())

	published := 0
	simulate(context.Background(), auth, bots, config.SimConfig{TickRate: 60, Duration: 5 * time.Second}, func() { published++ })

	assert.Equal(t, core.InProgress, auth.Mode().State())
	assert.GreaterOrEqual(t, published, 4)
	for _, b := range bots {
		c, ok := auth.Combat(b.client.Player())
		require.True(t, ok)
		assert.ElementsMatch(t, b.weapons, []core.WeaponID{c.EquippedID(), c.SecondaryID()})
		assert.Positive(t, b.actions)
	}
}

func TestStatusOf(t *testing.T) {
	t.Cleanup(viper.Reset)
	config.LoadDefaults()

	cfg := netsyncConfig(config.GetSimConfig(), streaming.MsgPack)
	auth, err := netsync.NewAuthority(cfg, netsync.Dependencies{})
	require.NoError(t, err)
	t.Cleanup(auth.Close)
	_, err = auth.Join(1, core.Vector{X: 1000, Y: 1000})
	require.NoError(t, err)

	st := statusOf(auth, worker.NewManager(worker.Dependencies{}), nil)
	assert.Equal(t, core.WaitingToStart, st.State)
	assert.Equal(t, 1, st.Players)
	assert.Equal(t, 0, st.Scores[1])
	assert.Positive(t, st.InFlight)
	assert.Nil(t, st.Dispatch)
}

func TestSimulate_StopsOnCancel(t *testing.T) {
	t.Cleanup(viper.Reset)
	config.LoadDefaults()

	cfg := netsyncConfig(config.GetSimConfig(), streaming.MsgPack)
	auth, err := netsync.NewAuthority(cfg, netsync.Dependencies{})
	require.NoError(t, err)
	t.Cleanup(auth.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	simulate(ctx, auth, nil, config.SimConfig{TickRate: 60, Duration: time.Hour}, nil)
	assert.Zero(t, auth.Now())
}
