package hud

import (
	"testing"

	"github.com/blasternet/combatsync/internal/combat"
	"github.com/blasternet/combatsync/internal/match"
	"github.com/blasternet/combatsync/internal/weapon"
	"github.com/blasternet/combatsync/pkg/core"
	"github.com/stretchr/testify/assert"
)

var (
	_ combat.HUD         = (*Recorder)(nil)
	_ combat.Sounds      = (*Recorder)(nil)
	_ weapon.AmmoDisplay = (*Recorder)(nil)
	_ match.HUD          = (*Recorder)(nil)
)

func TestRecorderKeepsLatestValues(t *testing.T) {
	r := New(3, nil)
	assert.True(t, r.CharacterOverlay)

	r.SetWeaponAmmo(12)
	r.SetWeaponAmmo(11)
	r.SetCarriedAmmo(30)
	r.SetGrenades(2)
	r.SetWeaponIcon("pistol_icon")
	r.SetCrosshair(combat.Crosshair{Spread: 0.5, Color: combat.Red, Set: "pistol"})
	r.SetDrawCrosshair(true)

	assert.Equal(t, 11, r.WeaponAmmo)
	assert.Equal(t, 30, r.CarriedAmmo)
	assert.Equal(t, 2, r.Grenades)
	assert.Equal(t, "pistol_icon", r.WeaponIcon)
	assert.Equal(t, combat.Red, r.Crosshair.Color)
	assert.True(t, r.DrawCrosshair)
	assert.Equal(t, 7, r.Pushes())
}

func TestRecorderOverlayLifecycle(t *testing.T) {
	r := New(1, nil)
	r.RemoveCharacterOverlay()
	assert.False(t, r.CharacterOverlay)
	assert.True(t, r.OverlayRemoved)

	r.ShowAnnouncement(match.CooldownAnnouncement, "You are the winner!")
	assert.True(t, r.Announcement)
	assert.Equal(t, "You are the winner!", r.InfoText)

	r.ShowCharacterOverlay()
	r.HideAnnouncement()
	assert.True(t, r.CharacterOverlay)
	assert.False(t, r.OverlayRemoved)
	assert.False(t, r.Announcement)
}

func TestRecorderCountdowns(t *testing.T) {
	r := New(1, nil)
	r.SetMatchCountdown("00:10", true)
	r.SetAnnouncementCountdown("00:05")
	assert.Equal(t, "00:10", r.MatchCountdown)
	assert.True(t, r.MatchCountdownAlert)
	assert.Equal(t, "00:05", r.AnnouncementCountdown)
}

func TestRecorderSounds(t *testing.T) {
	r := New(1, nil)
	r.PlayAt("pistol_equip", core.Vector{})
	r.PlayAt("smg_equip", core.Vector{X: 1})
	assert.Equal(t, []string{"pistol_equip", "smg_equip"}, r.Sounds)
	assert.Zero(t, r.Pushes())
}
