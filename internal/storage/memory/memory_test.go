// internal/storage/memory/memory_test.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blasternet/combatsync/internal/config"
	v1 "github.com/blasternet/combatsync/internal/storage/memory/export/v1"
	"github.com/blasternet/combatsync/pkg/core"
)

func testMatch() *core.Match {
	start := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	return &core.Match{
		ID:        1,
		Key:       "5d4c",
		Level:     "Dust Yard",
		StartTime: start,
		EndTime:   start.Add(90 * time.Second),
		Players:   []core.PlayerID{1, 2},
	}
}

func TestNew(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: "/tmp/test", CompressOutput: true})
	require.NotNil(t, b)
	assert.Equal(t, "/tmp/test", b.cfg.OutputDir)
	assert.True(t, b.cfg.CompressOutput)
	assert.NotNil(t, b.players)
	assert.NoError(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestStartMatch_SeedsPlayersAndResets(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.StartMatch(testMatch()))
	require.NoError(t, b.RecordHitClaim(&core.HitClaim{ShooterID: 1}))

	_, ok := b.GetPlayer(2)
	assert.True(t, ok, "players listed on the match are seeded")

	require.NoError(t, b.StartMatch(&core.Match{Level: "next"}))
	assert.Empty(t, b.HitClaims())
	_, ok = b.GetPlayer(2)
	assert.False(t, ok)

	assert.Error(t, b.StartMatch(nil))
}

func TestRecord_GroupsPerPlayer(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.StartMatch(testMatch()))

	require.NoError(t, b.RecordFire(&core.FireEvent{PlayerID: 1, AmmoAfter: 29}))
	require.NoError(t, b.RecordFire(&core.FireEvent{PlayerID: 1, AmmoAfter: 28}))
	require.NoError(t, b.RecordReload(&core.ReloadEvent{PlayerID: 1, Amount: 2}))
	require.NoError(t, b.RecordGrenade(&core.GrenadeEvent{PlayerID: 3, Remaining: 3}))
	require.NoError(t, b.RecordMatchState(&core.MatchStateChange{State: core.InProgress}))

	p1, ok := b.GetPlayer(1)
	require.True(t, ok)
	assert.Len(t, p1.Fires, 2)
	assert.Equal(t, 28, p1.Fires[1].AmmoAfter)
	assert.Len(t, p1.Reloads, 1)

	// late joiners get a record on first event
	p3, ok := b.GetPlayer(3)
	require.True(t, ok)
	assert.Len(t, p3.Grenades, 1)

	assert.Equal(t, []core.MatchStateChange{{State: core.InProgress}}, b.States())
}

func TestRecord_Concurrent(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.StartMatch(testMatch()))

	var wg sync.WaitGroup
	for p := core.PlayerID(1); p <= 4; p++ {
		wg.Add(1)
		go func(p core.PlayerID) {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				_ = b.RecordFire(&core.FireEvent{PlayerID: p})
				_ = b.RecordTimeSync(&core.TimeSyncSample{PlayerID: p})
			}
		}(p)
	}
	wg.Wait()

	for p := core.PlayerID(1); p <= 4; p++ {
		r, ok := b.GetPlayer(p)
		require.True(t, ok)
		assert.Len(t, r.Fires, 250)
	}
}

func TestEndMatch_WithoutStart(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	assert.ErrorIs(t, b.EndMatch(), ErrNoMatch)
	assert.Empty(t, b.GetExportedFilePath())
}

func TestEndMatch_WritesGzipExport(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})
	require.NoError(t, b.StartMatch(testMatch()))
	require.NoError(t, b.RecordFire(&core.FireEvent{PlayerID: 2, WeaponType: core.Pistol}))
	require.NoError(t, b.RecordHitClaim(&core.HitClaim{ShooterID: 2, VictimID: 1, Damage: 15, Accepted: true}))
	require.NoError(t, b.EndMatch())

	path := b.GetExportedFilePath()
	assert.Equal(t, filepath.Join(dir, "Dust_Yard_20260115_103000.json.gz"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var export v1.Export
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	assert.Equal(t, "5d4c", export.MatchKey)
	assert.Equal(t, 90.0, export.DurationSeconds)
	require.Len(t, export.Players, 2)
	assert.Len(t, export.Players[1].Fires, 1)
	assert.Equal(t, []v1.Score{{Player: 2, Claims: 1, Accepted: 1, Damage: 15}}, export.Scores)

	assert.Equal(t, core.UploadMetadata{
		Level:         "Dust Yard",
		MatchKey:      "5d4c",
		MatchDuration: 90,
		Tag:           "combat",
	}, b.GetExportMetadata())
}

func TestEndMatch_WritesPlainExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	b := New(config.MemoryConfig{OutputDir: dir})
	m := testMatch()
	m.Level = ""
	require.NoError(t, b.StartMatch(m))
	require.NoError(t, b.EndMatch())

	path := b.GetExportedFilePath()
	assert.Equal(t, filepath.Join(dir, "match_20260115_103000.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var export v1.Export
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, v1.FormatVersion, export.FormatVersion)
}

func TestExportName(t *testing.T) {
	m := *testMatch()
	assert.Equal(t, "Dust_Yard_20260115_103000.json", exportName(m, false))
	assert.Equal(t, "Dust_Yard_20260115_103000.json.gz", exportName(m, true))

	m.Level = ""
	assert.Equal(t, "match_20260115_103000.json", exportName(m, false))
}

func TestWriteExport_LeavesNoPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	require.NoError(t, writeExport(path, v1.Export{}, false))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.json", entries[0].Name())

	assert.Error(t, writeExport(filepath.Join(dir, "missing", "out.json"), v1.Export{}, true))
}
