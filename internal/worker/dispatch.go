package worker

import (
	"errors"
	"fmt"
	"time"

	"github.com/blasternet/combatsync/internal/clock"
	"github.com/blasternet/combatsync/internal/dispatcher"
	"github.com/blasternet/combatsync/internal/weapon"
	"github.com/blasternet/combatsync/pkg/core"
)

// Telemetry commands.
const (
	CmdFire             = ":TELEMETRY:FIRE:"
	CmdReload           = ":TELEMETRY:RELOAD:"
	CmdWeaponTransition = ":TELEMETRY:WEAPON:"
	CmdGrenade          = ":TELEMETRY:GRENADE:"
	CmdHitClaim         = ":TELEMETRY:HIT:"
	CmdTimeSync         = ":TELEMETRY:TIMESYNC:"
	CmdMatchState       = ":TELEMETRY:STATE:"
)

// RegisterHandlers registers the buffered telemetry handlers.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	m.d = d

	// high-volume combat events
	d.Register(CmdFire, m.track(m.handleFire), dispatcher.Buffered(5000))
	d.Register(CmdReload, m.track(m.handleReload), dispatcher.Buffered(1000))
	d.Register(CmdGrenade, m.track(m.handleGrenade), dispatcher.Buffered(1000))
	d.Register(CmdHitClaim, m.track(m.handleHitClaim), dispatcher.Buffered(5000))

	d.Register(CmdWeaponTransition, m.track(m.handleWeaponTransition), dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(CmdTimeSync, m.track(m.handleTimeSync), dispatcher.Buffered(500))
	// rare and must not be lost
	d.Register(CmdMatchState, m.track(m.handleMatchState), dispatcher.Buffered(16), dispatcher.Blocking(), dispatcher.Logged())
}

// track marks the event written once the handler returns.
func (m *Manager) track(h dispatcher.HandlerFunc) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		defer m.inflight.Done()
		res, err := h(e)
		if err != nil {
			m.failed.Add(1)
		}
		return res, err
	}
}

func (m *Manager) emit(command string, player core.PlayerID, payload any) {
	if m.d == nil || !m.Recording() {
		m.skipped.Add(1)
		return
	}
	m.inflight.Add(1)
	_, err := m.d.Dispatch(dispatcher.Event{
		Command:   command,
		Player:    player,
		Payload:   payload,
		Timestamp: m.deps.Now(),
	})
	if err != nil {
		// the handler never ran
		m.inflight.Done()
		m.skipped.Add(1)
		if !errors.Is(err, dispatcher.ErrQueueFull) {
			m.deps.Logger.Warn("Telemetry dispatch failed", "command", command, "error", err)
		}
	}
}

// Fired records an accepted shot. It implements combat.Telemetry.
func (m *Manager) Fired(player core.PlayerID, w *weapon.Weapon, target core.Vector, aiming bool) {
	m.emit(CmdFire, player, &core.FireEvent{
		Time:       m.deps.Now(),
		ServerTime: m.deps.ServerTime(),
		PlayerID:   player,
		WeaponID:   w.ID(),
		WeaponType: w.Type(),
		Target:     target,
		AmmoAfter:  w.Ammo(),
		Aiming:     aiming,
	})
}

func (m *Manager) Reloaded(player core.PlayerID, w *weapon.Weapon, amount, carried int, shell bool) {
	m.emit(CmdReload, player, &core.ReloadEvent{
		Time:         m.deps.Now(),
		ServerTime:   m.deps.ServerTime(),
		PlayerID:     player,
		WeaponID:     w.ID(),
		WeaponType:   w.Type(),
		Amount:       amount,
		AmmoAfter:    w.Ammo(),
		CarriedAfter: carried,
		Shell:        shell,
	})
}

func (m *Manager) GrenadeThrown(player core.PlayerID, remaining int) {
	m.emit(CmdGrenade, player, &core.GrenadeEvent{
		Time:       m.deps.Now(),
		ServerTime: m.deps.ServerTime(),
		PlayerID:   player,
		Remaining:  remaining,
	})
}

func (m *Manager) GrenadeLaunched(player core.PlayerID, origin, target core.Vector) {
	m.emit(CmdGrenade, player, &core.GrenadeEvent{
		Time:       m.deps.Now(),
		ServerTime: m.deps.ServerTime(),
		PlayerID:   player,
		Launched:   true,
		Origin:     origin,
		Target:     target,
	})
}

// WeaponTransition matches weapon.TransitionFunc.
func (m *Manager) WeaponTransition(w *weapon.Weapon, from, to core.WeaponState) {
	owner, _ := w.Owner()
	m.emit(CmdWeaponTransition, owner, &core.WeaponTransition{
		Time:       m.deps.Now(),
		ServerTime: m.deps.ServerTime(),
		WeaponID:   w.ID(),
		WeaponType: w.Type(),
		From:       from,
		To:         to,
		OwnerID:    owner,
	})
}

// HitClaim matches the lagcomp.Verifier OnClaim hook.
func (m *Manager) HitClaim(c core.HitClaim) {
	m.emit(CmdHitClaim, c.ShooterID, &c)
}

// TimeSyncHook returns a clock sample hook for player's controller.
func (m *Manager) TimeSyncHook(player core.PlayerID) func(clock.Sample) {
	return func(s clock.Sample) {
		m.emit(CmdTimeSync, player, &core.TimeSyncSample{
			Time:       m.deps.Now(),
			PlayerID:   player,
			RoundTrip:  s.RoundTrip,
			SingleTrip: s.SingleTrip,
			Offset:     s.Offset,
		})
	}
}

// MatchState matches match.StateFunc.
func (m *Manager) MatchState(state core.MatchState) {
	m.emit(CmdMatchState, 0, &core.MatchStateChange{
		Time:       m.deps.Now(),
		ServerTime: m.deps.ServerTime(),
		State:      state,
	})
}

func payload[T any](e dispatcher.Event) (*T, error) {
	p, ok := e.Payload.(*T)
	if !ok || p == nil {
		return nil, fmt.Errorf("%s: unexpected payload %T", e.Command, e.Payload)
	}
	return p, nil
}

// write persists to the backend, then the metrics writer. A metrics failure
// is logged but does not fail the event.
func (m *Manager) write(command string, store func() error, metric func(Metrics) error) error {
	start := time.Now()
	if err := store(); err != nil {
		return fmt.Errorf("store %s: %w", command, err)
	}
	if m.deps.Metrics != nil && metric != nil {
		if err := metric(m.deps.Metrics); err != nil {
			m.deps.Logger.Warn("Metrics write failed", "command", command, "error", err)
		}
	}
	if d := time.Since(start); d > 100*time.Millisecond {
		m.deps.Logger.Warn("Slow telemetry write", "command", command, "duration", d)
	}
	return nil
}

func (m *Manager) handleFire(e dispatcher.Event) (any, error) {
	ev, err := payload[core.FireEvent](e)
	if err != nil {
		return nil, err
	}
	return nil, m.write(e.Command,
		func() error { return m.deps.Backend.RecordFire(ev) },
		func(x Metrics) error { return x.RecordFire(ev) })
}

func (m *Manager) handleReload(e dispatcher.Event) (any, error) {
	ev, err := payload[core.ReloadEvent](e)
	if err != nil {
		return nil, err
	}
	return nil, m.write(e.Command,
		func() error { return m.deps.Backend.RecordReload(ev) },
		func(x Metrics) error { return x.RecordReload(ev) })
}

func (m *Manager) handleGrenade(e dispatcher.Event) (any, error) {
	ev, err := payload[core.GrenadeEvent](e)
	if err != nil {
		return nil, err
	}
	return nil, m.write(e.Command,
		func() error { return m.deps.Backend.RecordGrenade(ev) },
		func(x Metrics) error { return x.RecordGrenade(ev) })
}

func (m *Manager) handleWeaponTransition(e dispatcher.Event) (any, error) {
	ev, err := payload[core.WeaponTransition](e)
	if err != nil {
		return nil, err
	}
	return nil, m.write(e.Command,
		func() error { return m.deps.Backend.RecordWeaponTransition(ev) },
		nil)
}

func (m *Manager) handleHitClaim(e dispatcher.Event) (any, error) {
	ev, err := payload[core.HitClaim](e)
	if err != nil {
		return nil, err
	}
	return nil, m.write(e.Command,
		func() error { return m.deps.Backend.RecordHitClaim(ev) },
		func(x Metrics) error { return x.RecordHitClaim(ev) })
}

func (m *Manager) handleTimeSync(e dispatcher.Event) (any, error) {
	ev, err := payload[core.TimeSyncSample](e)
	if err != nil {
		return nil, err
	}
	return nil, m.write(e.Command,
		func() error { return m.deps.Backend.RecordTimeSync(ev) },
		func(x Metrics) error { return x.RecordTimeSync(ev) })
}

func (m *Manager) handleMatchState(e dispatcher.Event) (any, error) {
	ev, err := payload[core.MatchStateChange](e)
	if err != nil {
		return nil, err
	}
	return nil, m.write(e.Command,
		func() error { return m.deps.Backend.RecordMatchState(ev) },
		func(x Metrics) error { return x.RecordMatchState(ev) })
}
