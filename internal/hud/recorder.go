// Package hud provides a headless heads-up display that keeps the last
// value pushed to every widget.
package hud

import (
	"log/slog"

	"github.com/blasternet/combatsync/internal/combat"
	"github.com/blasternet/combatsync/pkg/core"
)

// Recorder keeps the latest HUD state of one player.
type Recorder struct {
	Player core.PlayerID

	WeaponAmmo    int
	CarriedAmmo   int
	Grenades      int
	WeaponIcon    string
	Crosshair     combat.Crosshair
	DrawCrosshair bool

	CharacterOverlay bool
	OverlayRemoved   bool

	MatchCountdown        string
	MatchCountdownAlert   bool
	AnnouncementCountdown string
	Announcement          bool
	AnnouncementText      string
	InfoText              string

	Sounds []string

	pushes int
	logger *slog.Logger
}

// New returns a recorder for player p. A nil logger discards announcements.
func New(p core.PlayerID, logger *slog.Logger) *Recorder {
	return &Recorder{Player: p, CharacterOverlay: true, logger: logger}
}

// Pushes counts every widget update received.
func (r *Recorder) Pushes() int { return r.pushes }

func (r *Recorder) SetWeaponAmmo(n int) {
	r.pushes++
	r.WeaponAmmo = n
}

func (r *Recorder) SetCarriedAmmo(n int) {
	r.pushes++
	r.CarriedAmmo = n
}

func (r *Recorder) SetWeaponIcon(icon string) {
	r.pushes++
	r.WeaponIcon = icon
}

func (r *Recorder) SetGrenades(n int) {
	r.pushes++
	r.Grenades = n
}

func (r *Recorder) ShowCharacterOverlay() {
	r.pushes++
	r.CharacterOverlay = true
	r.OverlayRemoved = false
}

func (r *Recorder) HideCharacterOverlay() {
	r.pushes++
	r.CharacterOverlay = false
}

func (r *Recorder) SetCrosshair(c combat.Crosshair) {
	r.pushes++
	r.Crosshair = c
}

func (r *Recorder) SetDrawCrosshair(draw bool) {
	r.pushes++
	r.DrawCrosshair = draw
}

// SetMatchCountdown shows the in-match clock.
func (r *Recorder) SetMatchCountdown(text string, alert bool) {
	r.pushes++
	r.MatchCountdown = text
	r.MatchCountdownAlert = alert
}

// SetAnnouncementCountdown shows the warmup or cooldown clock.
func (r *Recorder) SetAnnouncementCountdown(text string) {
	r.pushes++
	r.AnnouncementCountdown = text
}

// AddAnnouncement shows the announcement widget for a match that has not started.
func (r *Recorder) AddAnnouncement() {
	r.pushes++
	r.Announcement = true
}

// HideAnnouncement collapses the announcement widget once play starts.
func (r *Recorder) HideAnnouncement() {
	r.pushes++
	r.Announcement = false
}

// ShowAnnouncement fills and shows the announcement widget.
func (r *Recorder) ShowAnnouncement(text, info string) {
	r.pushes++
	r.Announcement = true
	r.AnnouncementText = text
	r.InfoText = info
	if r.logger != nil {
		r.logger.Info("announcement", "player", r.Player, "text", text, "info", info)
	}
}

// RemoveCharacterOverlay tears down the in-match overlay until the next match starts.
func (r *Recorder) RemoveCharacterOverlay() {
	r.pushes++
	r.CharacterOverlay = false
	r.OverlayRemoved = true
}

// PlayAt records a sound cue.
func (r *Recorder) PlayAt(cue string, _ core.Vector) {
	r.Sounds = append(r.Sounds, cue)
}
