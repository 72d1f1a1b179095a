package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blasternet/combatsync/internal/database"
	"github.com/blasternet/combatsync/internal/model"
	"github.com/blasternet/combatsync/pkg/core"
)

func TestBackend_EndMatchDumpsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")
	b, err := New(Config{DumpPath: path, DumpInterval: time.Hour}, nil, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	m := &core.Match{Key: "k", Level: "arena", StartTime: time.Now()}
	require.NoError(t, b.StartMatch(m))
	require.NoError(t, b.RecordFire(&core.FireEvent{PlayerID: 1, WeaponType: core.Pistol}))
	require.NoError(t, b.RecordFire(&core.FireEvent{PlayerID: 2, WeaponType: core.Pistol}))
	m.EndTime = m.StartTime.Add(time.Minute)
	require.NoError(t, b.EndMatch())

	disk, err := database.OpenSQLite(path)
	require.NoError(t, err)
	var count int64
	require.NoError(t, disk.Model(&model.FireEvent{}).Where("match_id = ?", m.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
	assert.Positive(t, b.Snapshots())
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestBackend_PeriodicDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "periodic.db")
	b, err := New(Config{DumpPath: path, DumpInterval: 20 * time.Millisecond}, nil, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBackend_NoDumpPath(t *testing.T) {
	b, err := New(Config{}, nil, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Init())

	assert.NoError(t, b.Dump())
	assert.NoError(t, b.Close())
	assert.NoError(t, b.Close())
	assert.Zero(t, b.Snapshots())
}
