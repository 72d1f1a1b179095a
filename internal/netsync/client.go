package netsync

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/blasternet/combatsync/internal/anim"
	"github.com/blasternet/combatsync/internal/clock"
	"github.com/blasternet/combatsync/internal/combat"
	"github.com/blasternet/combatsync/internal/geo"
	"github.com/blasternet/combatsync/internal/hud"
	"github.com/blasternet/combatsync/internal/lagcomp"
	"github.com/blasternet/combatsync/internal/match"
	"github.com/blasternet/combatsync/internal/replication"
	"github.com/blasternet/combatsync/internal/scheduler"
	"github.com/blasternet/combatsync/internal/weapon"
	"github.com/blasternet/combatsync/pkg/core"
	"github.com/blasternet/combatsync/pkg/streaming"
)

// ClientDependencies are the optional collaborators of a client.
type ClientDependencies struct {
	Logger   *slog.Logger
	OnSample func(clock.Sample) // every completed clock-sync round trip
}

type replica struct {
	char   *combat.Character
	combat *combat.Combat
	anim   *anim.Player
}

// Client is one non-authoritative participant. Its world clock starts at
// zero when it connects; everything it knows about other players comes
// from notifications and replicated properties.
type Client struct {
	id   core.PlayerID
	conn *Conn
	cfg  Config
	log  *slog.Logger

	world      *scheduler.Scheduler
	weapons    *weapon.Registry
	level      *geo.Level
	hud        *hud.Recorder
	clock      *clock.Sync
	controller *match.Controller
	board      *match.Scoreboard
	observer   *replication.Observer

	players map[core.PlayerID]*replica
	order   []core.PlayerID
	missed  int
	batch   uint64
}

// NewClient connects a participant over conn, asks for the match state
// and sends the first clock probe.
func NewClient(conn *Conn, cfg Config, deps ClientDependencies) (*Client, error) {
	cfg = cfg.withDefaults()
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		id:      conn.Player,
		conn:    conn,
		cfg:     cfg,
		log:     log.With("node", "client", "player", conn.Player),
		world:   scheduler.New(0),
		board:   match.NewScoreboard(),
		players: make(map[core.PlayerID]*replica),
	}
	level, err := buildLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	level.SetBodies(c.bodies)
	c.level = level
	c.hud = hud.New(c.id, c.log)
	c.weapons = weapon.NewRegistry(false,
		weapon.WithDisplays(c.display),
		weapon.WithEffects(clientEffects{c}),
	)

	opts := []clock.Option{}
	if deps.OnSample != nil {
		opts = append(opts, clock.WithSampleHook(deps.OnSample))
	}
	src := clock.SourceFunc(func() (time.Duration, bool) { return c.world.Now(), true })
	c.clock = clock.New(src, false, true, cfg.SyncFrequency, c.probe, opts...)
	c.controller = match.NewController(c.id, false, match.Env{
		Clock: c.clock,
		HUD:   func() (match.HUD, bool) { return c.hud, true },
		Pawn:  c.Pawn,
		Board: c.board,
		Link:  clientRequests{c},
	})
	c.observer = replication.NewObserver(c.resolve, func(streaming.Delta) { c.missed++ })

	c.controller.BeginPlay()
	c.clock.ReceivedPlayer()
	return c, nil
}

func (c *Client) Player() core.PlayerID         { return c.id }
func (c *Client) Now() time.Duration            { return c.world.Now() }
func (c *Client) HUD() *hud.Recorder            { return c.hud }
func (c *Client) Clock() *clock.Sync            { return c.clock }
func (c *Client) Controller() *match.Controller { return c.controller }
func (c *Client) Scoreboard() *match.Scoreboard { return c.board }
func (c *Client) Weapons() *weapon.Registry     { return c.weapons }

// Missed counts deltas that arrived for entities this client never saw spawn.
func (c *Client) Missed() int { return c.missed }

// LastBatch is the tick number of the newest delta batch applied.
func (c *Client) LastBatch() uint64 { return c.batch }

// Pawn is the locally controlled combat component, once spawned.
func (c *Client) Pawn() (*combat.Combat, bool) { return c.Replica(c.id) }

// Replica returns this client's view of player p.
func (c *Client) Replica(p core.PlayerID) (*combat.Combat, bool) {
	r, ok := c.players[p]
	if !ok {
		return nil, false
	}
	return r.combat, true
}

// Montages lists the montages played on this client for player p.
func (c *Client) Montages(p core.PlayerID) []string {
	r, ok := c.players[p]
	if !ok {
		return nil
	}
	return r.anim.Played()
}

// Equip asks the authority to pick up weapon id.
func (c *Client) Equip(id core.WeaponID) {
	c.send(streaming.TypeEquip, streaming.EquipRequest{WeaponID: id})
}

// Swap asks the authority to exchange the primary and secondary weapons.
func (c *Client) Swap() {
	c.send(streaming.TypeSwapWeapons, nil)
}

// AimAt turns the local camera toward a point, level with the crosshair.
func (c *Client) AimAt(p core.Vector) {
	r, ok := c.players[c.id]
	if !ok || r.char.Camera == nil {
		return
	}
	cam := r.char.Camera
	target := p.Add(core.Vector{Z: cam.Location.Z - r.char.Location.Z})
	cam.Direction = target.Sub(cam.Location).Normalize()
}

// Tick advances the local world by dt, applies what arrived from the
// authority and runs the local per-frame work.
func (c *Client) Tick(dt time.Duration) {
	c.world.Advance(dt)
	if _, err := c.conn.Down.Pump(c.handle); err != nil {
		c.log.Warn("undecodable notification frames", "error", err)
	}
	c.controller.Tick(dt)
	for _, id := range c.order {
		c.players[id].combat.Tick(dt)
	}
}

func (c *Client) handle(f streaming.Frame) {
	if err := c.apply(f); err != nil {
		c.log.Warn("notification dropped", "type", f.Type, "seq", f.Seq, "error", err)
	}
}

func (c *Client) apply(f streaming.Frame) error {
	codec := c.conn.Down.Codec()
	switch f.Type {
	case streaming.TypeSpawnPlayer:
		var msg streaming.SpawnPlayer
		if err := f.DecodeBody(codec, &msg); err != nil {
			return err
		}
		c.spawnPlayer(msg)
	case streaming.TypeSpawnWeapon:
		var msg streaming.SpawnWeapon
		if err := f.DecodeBody(codec, &msg); err != nil {
			return err
		}
		return c.spawnWeapon(msg)
	case streaming.TypeDeltas:
		var batch streaming.DeltaBatch
		if err := f.DecodeBody(codec, &batch); err != nil {
			return err
		}
		c.observer.Apply(batch.Deltas)
		c.batch = batch.Tick
	case streaming.TypeMulticastFire:
		var msg streaming.FireBroadcast
		if err := f.DecodeBody(codec, &msg); err != nil {
			return err
		}
		if cb, ok := c.Replica(msg.Player); ok {
			cb.MulticastFire(msg.Target)
		}
	case streaming.TypeReportServerTime:
		var msg streaming.ServerTimeReport
		if err := f.DecodeBody(codec, &msg); err != nil {
			return err
		}
		c.clock.HandleReport(msg.ClientTime, msg.ServerReceipt)
	case streaming.TypeJoinMidgame:
		var msg streaming.JoinMidgame
		if err := f.DecodeBody(codec, &msg); err != nil {
			return err
		}
		c.controller.ClientJoinMidgame(msg)
	default:
		return fmt.Errorf("%w: %s", streaming.ErrUnknownType, f.Type)
	}
	return nil
}

func (c *Client) spawnPlayer(msg streaming.SpawnPlayer) {
	if _, ok := c.players[msg.Player]; ok {
		return
	}
	local := msg.Player == c.id
	r := &replica{char: c.cfg.character(msg.Player, msg.Location)}
	r.anim = anim.NewPlayer(c.world, anim.DefaultTimings())
	env := combat.Env{
		Timers:  c.world,
		Weapons: c.weapons,
		World:   c.level,
		Anim:    r.anim,
	}
	if local {
		env.Sound = c.hud
		env.HUD = func() (combat.HUD, bool) { return c.hud, true }
		env.Link = clientRequests{c}
	}
	r.combat = combat.New(r.char, combat.Role{Local: local}, env, c.cfg.Combat)
	r.anim.Bind(r.combat)
	c.players[msg.Player] = r
	c.order = append(c.order, msg.Player)
	r.combat.BeginPlay()
}

func (c *Client) spawnWeapon(msg streaming.SpawnWeapon) error {
	if _, ok := c.weapons.Get(msg.WeaponID); ok {
		return nil
	}
	arch, ok := c.cfg.Archetypes[msg.Archetype]
	if !ok {
		return fmt.Errorf("unknown archetype: %s", msg.Archetype)
	}
	c.weapons.SpawnWithID(msg.WeaponID, arch, msg.Location)
	return nil
}

func (c *Client) resolve(e replication.Entity) (replication.Component, bool) {
	switch e.Kind {
	case replication.KindCombat:
		if r, ok := c.players[core.PlayerID(e.ID)]; ok {
			return r.combat, true
		}
	case replication.KindWeapon:
		if w, ok := c.weapons.Get(core.WeaponID(e.ID)); ok {
			return w, true
		}
	case replication.KindController:
		if core.PlayerID(e.ID) == c.id {
			return c.controller, true
		}
	case replication.KindGameState:
		return c.board, true
	}
	return nil, false
}

func (c *Client) display(p core.PlayerID) (weapon.AmmoDisplay, bool) {
	if p != c.id {
		return nil, false
	}
	return c.hud, true
}

func (c *Client) bodies() []geo.Body {
	out := make([]geo.Body, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, body(c.players[id].char))
	}
	return out
}

func (c *Client) probe(clientTime time.Duration) {
	c.send(streaming.TypeRequestServerTime, streaming.ServerTimeRequest{ClientTime: clientTime})
}

func (c *Client) send(typ string, payload any) {
	if err := c.conn.Up.Send(typ, c.id, payload); err != nil {
		c.log.Warn("request dropped", "type", typ, "error", err)
	}
}

// clientRequests carries the local player's requests to the authority.
type clientRequests struct{ c *Client }

func (r clientRequests) SetAiming(aiming bool) {
	r.c.send(streaming.TypeSetAiming, streaming.SetAimingRequest{Aiming: aiming})
}

func (r clientRequests) Reload() { r.c.send(streaming.TypeReload, nil) }

func (r clientRequests) Fire(target core.Vector) {
	r.c.send(streaming.TypeFire, streaming.FireRequest{Target: target})
}

func (r clientRequests) ThrowGrenade() { r.c.send(streaming.TypeThrowGrenade, nil) }

func (r clientRequests) LaunchGrenade(target core.Vector) {
	r.c.send(streaming.TypeLaunchGrenade, streaming.LaunchGrenadeRequest{Target: target})
}

func (r clientRequests) CheckMatchState() { r.c.send(streaming.TypeCheckMatchState, nil) }

func (r clientRequests) ProjectileScoreRequest(req streaming.ScoreRequest) {
	r.c.send(streaming.TypeScoreRequest, req)
}

// clientEffects resolves the local player's own shots. Only rounds with
// server side rewind produce anything: a score request for a character hit.
type clientEffects struct{ c *Client }

func (fx clientEffects) WeaponFired(w *weapon.Weapon, target core.Vector) {
	owner, ok := w.Owner()
	if !ok || owner != fx.c.id {
		return
	}
	r, ok := fx.c.players[owner]
	if !ok {
		return
	}
	p, hit := impact(fx.c.level, r.char, w, target)
	p.OnHit(lagcomp.Shooter{Local: true, Clock: fx.c.clock, Requests: clientRequests{fx.c}}, hit)
}
