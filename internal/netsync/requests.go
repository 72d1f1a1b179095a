package netsync

import (
	"fmt"
	"time"

	"github.com/blasternet/combatsync/internal/clock"
	"github.com/blasternet/combatsync/internal/dispatcher"
	"github.com/blasternet/combatsync/internal/intake"
	"github.com/blasternet/combatsync/pkg/streaming"
)

type requestFunc func(s *seat, cmd intake.Command) error

func (a *Authority) registerRequests() {
	a.handle(streaming.TypeSetAiming, func(s *seat, cmd intake.Command) error {
		req, err := decode[streaming.SetAimingRequest](a.cfg.Codec, cmd)
		if err == nil {
			s.combat.ServerSetAiming(req.Aiming)
		}
		return err
	})
	a.handle(streaming.TypeReload, func(s *seat, _ intake.Command) error {
		s.combat.ServerReload()
		return nil
	})
	a.handle(streaming.TypeFire, func(s *seat, cmd intake.Command) error {
		req, err := decode[streaming.FireRequest](a.cfg.Codec, cmd)
		if err == nil {
			s.combat.ServerFire(req.Target)
		}
		return err
	})
	a.handle(streaming.TypeThrowGrenade, func(s *seat, _ intake.Command) error {
		s.combat.ServerThrowGrenade()
		return nil
	})
	a.handle(streaming.TypeLaunchGrenade, func(s *seat, cmd intake.Command) error {
		req, err := decode[streaming.LaunchGrenadeRequest](a.cfg.Codec, cmd)
		if err == nil {
			s.combat.ServerLaunchGrenade(req.Target)
		}
		return err
	})
	a.handle(streaming.TypeEquip, func(s *seat, cmd intake.Command) error {
		req, err := decode[streaming.EquipRequest](a.cfg.Codec, cmd)
		if err == nil {
			s.combat.ServerEquip(req.WeaponID)
		}
		return err
	})
	a.handle(streaming.TypeSwapWeapons, func(s *seat, _ intake.Command) error {
		if s.combat.ShouldSwapWeapons() {
			s.combat.SwapWeapons()
		}
		return nil
	})
	a.handle(streaming.TypeRequestServerTime, func(s *seat, cmd intake.Command) error {
		req, err := decode[streaming.ServerTimeRequest](a.cfg.Codec, cmd)
		if err != nil {
			return err
		}
		clock.Echo(a.source(), req.ClientTime, func(clientTime, serverReceipt time.Duration) {
			a.send(s, streaming.TypeReportServerTime, streaming.ServerTimeReport{
				ClientTime:    clientTime,
				ServerReceipt: serverReceipt,
			})
		})
		return nil
	})
	a.handle(streaming.TypeCheckMatchState, func(s *seat, _ intake.Command) error {
		s.controller.ServerCheckMatchState()
		return nil
	})
	a.handle(streaming.TypeScoreRequest, func(s *seat, cmd intake.Command) error {
		req, err := decode[streaming.ScoreRequest](a.cfg.Codec, cmd)
		if err == nil {
			a.verifier.Verify(s.id(), req)
		}
		return err
	})
}

// handle registers fn as the synchronous handler of a request type.
func (a *Authority) handle(typ string, fn requestFunc) {
	a.dispatch.Register(RequestCommand(typ), func(e dispatcher.Event) (any, error) {
		cmd, ok := e.Payload.(intake.Command)
		if !ok {
			return nil, fmt.Errorf("unexpected payload type %T", e.Payload)
		}
		s, ok := a.seats[e.Player]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, e.Player)
		}
		if combatRequests[typ] && s.char.GameplayDisabled {
			return nil, nil
		}
		return nil, fn(s, cmd)
	})
}

func decode[T any](c streaming.Codec, cmd intake.Command) (T, error) {
	var v T
	if len(cmd.Body) == 0 {
		return v, nil
	}
	if err := c.Unmarshal(cmd.Body, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", cmd.Type, err)
	}
	return v, nil
}
