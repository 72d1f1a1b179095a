// Package anim drives montage timelines for headless participants. Each
// montage schedules the notifies the combat component reacts to, so a
// simulated reload or throw completes after the same delays the animated
// client would observe.
package anim

import (
	"time"

	"github.com/blasternet/combatsync/internal/scheduler"
	"github.com/blasternet/combatsync/pkg/core"
)

// Montage names.
const (
	MontageNone   = ""
	MontageFire   = "Fire"
	MontageReload = "Reload"
	MontageThrow  = "ThrowGrenade"
)

// ShotgunEndSection closes the shotgun shell loop.
const ShotgunEndSection = "ShotgunEnd"

// Timers is the one-shot timer service the timelines run on.
type Timers interface {
	Schedule(delay time.Duration, fn func()) scheduler.Handle
	Cancel(h scheduler.Handle) bool
}

// Notifies receives montage notifies.
type Notifies interface {
	FinishReloading()
	ShotgunShellReload()
	LaunchGrenade()
	ThrowGrenadeFinished()
}

// Timings are the montage lengths and notify offsets.
type Timings struct {
	Reload       map[core.WeaponType]time.Duration
	ShellLoad    time.Duration // one shell section of the shotgun loop
	ShotgunEnd   time.Duration // closing section after the last shell
	MaxShells    int           // loop sections before the montage ends on its own
	ThrowRelease time.Duration // LaunchGrenade notify offset
	Throw        time.Duration
	Fire         time.Duration
}

// DefaultTimings mirrors the stock montage assets.
func DefaultTimings() Timings {
	return Timings{
		Reload: map[core.WeaponType]time.Duration{
			core.AssaultRifle:    2200 * time.Millisecond,
			core.RocketLauncher:  2800 * time.Millisecond,
			core.Pistol:          1500 * time.Millisecond,
			core.SubmachineGun:   1800 * time.Millisecond,
			core.SniperRifle:     2600 * time.Millisecond,
			core.GrenadeLauncher: 2400 * time.Millisecond,
		},
		ShellLoad:    550 * time.Millisecond,
		ShotgunEnd:   400 * time.Millisecond,
		MaxShells:    8,
		ThrowRelease: 450 * time.Millisecond,
		Throw:        1 * time.Second,
		Fire:         200 * time.Millisecond,
	}
}

// Player plays one montage slot. Starting a montage interrupts the current
// one and drops its pending notifies.
type Player struct {
	timers  Timers
	timings Timings
	target  Notifies

	current string
	section string
	shells  int
	pending []scheduler.Handle
	played  []string
}

// NewPlayer returns a slot with no montage and no notify target.
func NewPlayer(timers Timers, timings Timings) *Player {
	return &Player{timers: timers, timings: timings}
}

// Bind sets the component that receives notifies.
func (p *Player) Bind(target Notifies) { p.target = target }

// Current is the playing montage, MontageNone when idle.
func (p *Player) Current() string { return p.current }

// Section is the active section of the current montage.
func (p *Player) Section() string { return p.section }

// Played lists every montage start and section jump in order.
func (p *Player) Played() []string { return p.played }

func (p *Player) PlayFireMontage(aiming bool) {
	section := "Hip"
	if aiming {
		section = "Aim"
	}
	p.start(MontageFire, section)
	p.after(p.timings.Fire, func() {})
}

func (p *Player) PlayReloadMontage(t core.WeaponType) {
	p.start(MontageReload, t.String())
	if t == core.Shotgun {
		p.shells = 0
		p.scheduleShell()
		return
	}
	d, ok := p.timings.Reload[t]
	if !ok {
		d = 2 * time.Second
	}
	p.after(d, func() {
		if p.target != nil {
			p.target.FinishReloading()
		}
	})
}

func (p *Player) scheduleShell() {
	p.after(p.timings.ShellLoad, func() {
		if p.target != nil {
			p.target.ShotgunShellReload()
		}
		// the notify may have jumped to the end section or stopped the slot
		if p.current != MontageReload || p.section == ShotgunEndSection {
			return
		}
		p.shells++
		if p.timings.MaxShells > 0 && p.shells >= p.timings.MaxShells {
			p.JumpToReloadSection(ShotgunEndSection)
			return
		}
		p.scheduleShell()
	})
}

func (p *Player) PlayThrowGrenadeMontage() {
	p.start(MontageThrow, "")
	p.after(p.timings.ThrowRelease, func() {
		if p.target != nil {
			p.target.LaunchGrenade()
		}
	})
	p.after(p.timings.Throw, func() {
		if p.target != nil {
			p.target.ThrowGrenadeFinished()
		}
	})
}

// JumpToReloadSection moves the reload montage to section, cancelling the
// shell loop and finishing the reload after the closing section. Ignored
// when no reload is playing or the section is already active.
func (p *Player) JumpToReloadSection(section string) {
	if p.current != MontageReload || p.section == section {
		return
	}
	p.cancelPending()
	p.section = section
	p.played = append(p.played, MontageReload+":"+section)
	p.after(p.timings.ShotgunEnd, func() {
		if p.target != nil {
			p.target.FinishReloading()
		}
	})
}

// StopAllMontages interrupts the slot without firing any notify.
func (p *Player) StopAllMontages() {
	p.cancelPending()
	p.current = MontageNone
	p.section = ""
}

func (p *Player) start(name, section string) {
	p.cancelPending()
	p.current = name
	p.section = section
	if section != "" {
		name += ":" + section
	}
	p.played = append(p.played, name)
}

// after schedules fn on the current montage. The montage ends once its
// last pending notify has run.
func (p *Player) after(d time.Duration, fn func()) {
	var h scheduler.Handle
	h = p.timers.Schedule(d, func() {
		p.remove(h)
		fn()
		if len(p.pending) == 0 {
			p.current = MontageNone
			p.section = ""
		}
	})
	p.pending = append(p.pending, h)
}

func (p *Player) remove(h scheduler.Handle) {
	for i, x := range p.pending {
		if x == h {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			return
		}
	}
}

func (p *Player) cancelPending() {
	for _, h := range p.pending {
		p.timers.Cancel(h)
	}
	p.pending = p.pending[:0]
}
