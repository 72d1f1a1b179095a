package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"ServerInfo", &ServerInfo{}, "server_infos"},
		{"Match", &Match{}, "matches"},
		{"FireEvent", &FireEvent{}, "fire_events"},
		{"ReloadEvent", &ReloadEvent{}, "reload_events"},
		{"WeaponTransition", &WeaponTransition{}, "weapon_transitions"},
		{"GrenadeEvent", &GrenadeEvent{}, "grenade_events"},
		{"HitClaim", &HitClaim{}, "hit_claims"},
		{"TimeSyncSample", &TimeSyncSample{}, "time_sync_samples"},
		{"MatchStateChange", &MatchStateChange{}, "match_state_changes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModelsCoverEveryTable(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range DatabaseModels {
		tn, ok := m.(interface{ TableName() string })
		if assert.True(t, ok) {
			seen[tn.TableName()] = true
		}
	}
	assert.Len(t, seen, 9)
	assert.True(t, seen["hit_claims"])
}
