package netsync

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/blasternet/combatsync/internal/anim"
	"github.com/blasternet/combatsync/internal/clock"
	"github.com/blasternet/combatsync/internal/combat"
	"github.com/blasternet/combatsync/internal/dispatcher"
	"github.com/blasternet/combatsync/internal/geo"
	"github.com/blasternet/combatsync/internal/intake"
	"github.com/blasternet/combatsync/internal/lagcomp"
	"github.com/blasternet/combatsync/internal/match"
	"github.com/blasternet/combatsync/internal/replication"
	"github.com/blasternet/combatsync/internal/scheduler"
	"github.com/blasternet/combatsync/internal/weapon"
	"github.com/blasternet/combatsync/pkg/core"
	"github.com/blasternet/combatsync/pkg/streaming"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/blasternet/combatsync/internal/netsync"

// Telemetry observes what the authority accepts. worker.Manager implements it.
type Telemetry interface {
	combat.Telemetry
	WeaponTransition(w *weapon.Weapon, from, to core.WeaponState)
	HitClaim(c core.HitClaim)
}

// Dependencies are the authority's collaborators. All are optional.
type Dependencies struct {
	Logger     *slog.Logger
	Dispatcher *dispatcher.Dispatcher // request handlers are registered on it
	Telemetry  Telemetry
	OnState    []match.StateFunc // run after the controllers saw the change
}

type seat struct {
	conn       *Conn
	char       *combat.Character
	combat     *combat.Combat
	anim       *anim.Player
	controller *match.Controller
}

func (s *seat) id() core.PlayerID { return s.conn.Player }

// combatRequests are refused while the player's gameplay is disabled.
var combatRequests = map[string]bool{
	streaming.TypeSetAiming:     true,
	streaming.TypeReload:        true,
	streaming.TypeFire:          true,
	streaming.TypeThrowGrenade:  true,
	streaming.TypeLaunchGrenade: true,
	streaming.TypeEquip:         true,
	streaming.TypeSwapWeapons:   true,
}

// RequestCommand is the dispatcher command a request type is routed under.
func RequestCommand(typ string) string { return ":REQUEST:" + typ + ":" }

// Authority owns canonical state. Requests arrive on the Up links, are
// staged by the intake and executed on the tick; state leaves as
// per-connection delta batches on the Down links.
type Authority struct {
	cfg  Config
	deps Dependencies
	log  *slog.Logger

	world    *scheduler.Scheduler
	weapons  *weapon.Registry
	names    map[core.WeaponID]string
	level    *geo.Level
	mode     *match.Mode
	board    *match.Scoreboard
	tracker  *replication.Tracker
	intake   *intake.Intake
	dispatch *dispatcher.Dispatcher
	verifier *lagcomp.Verifier
	hooks    authorityHooks

	seats map[core.PlayerID]*seat
	order []core.PlayerID
	tick  uint64

	requests metric.Int64Counter
}

// NewAuthority builds the authority world at time zero and begins play.
func NewAuthority(cfg Config, deps Dependencies) (*Authority, error) {
	cfg = cfg.withDefaults()
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	a := &Authority{
		cfg:     cfg,
		deps:    deps,
		log:     log.With("node", "authority"),
		world:   scheduler.New(0),
		names:   make(map[core.WeaponID]string),
		board:   match.NewScoreboard(),
		tracker: replication.NewTracker(),
		seats:   make(map[core.PlayerID]*seat),
	}
	a.hooks = authorityHooks{a}

	level, err := buildLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	level.SetBodies(a.bodies)
	a.level = level

	a.weapons = weapon.NewRegistry(true, weapon.WithEffects(a.hooks))
	if deps.Telemetry != nil {
		a.weapons.OnTransition(deps.Telemetry.WeaponTransition)
	}

	a.intake, err = intake.New(cfg.Intake, a.world.Now)
	if err != nil {
		return nil, fmt.Errorf("creating intake: %w", err)
	}

	a.dispatch = deps.Dispatcher
	if a.dispatch == nil {
		if a.dispatch, err = dispatcher.New(nil); err != nil {
			return nil, fmt.Errorf("creating dispatcher: %w", err)
		}
	}
	a.registerRequests()

	a.requests, err = otel.Meter(instrumentationName).Int64Counter(
		"netsync.requests",
		metric.WithDescription("Participant requests by type and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	a.verifier = &lagcomp.Verifier{
		MaxRewind: cfg.MaxRewind,
		Now:       a.world.Now,
		Alive:     func(p core.PlayerID) bool { _, ok := a.seats[p]; return ok },
		Weapons:   a.weapons,
		Damage:    a.hooks,
	}
	if deps.Telemetry != nil {
		a.verifier.OnClaim = deps.Telemetry.HitClaim
	}

	a.mode = match.NewMode(cfg.Timings)
	a.mode.OnStateSet(a.onMatchState)
	for _, fn := range deps.OnState {
		a.mode.OnStateSet(fn)
	}
	a.mode.BeginPlay(a.world.Now())
	return a, nil
}

func (a *Authority) Now() time.Duration            { return a.world.Now() }
func (a *Authority) Mode() *match.Mode             { return a.mode }
func (a *Authority) Scoreboard() *match.Scoreboard { return a.board }
func (a *Authority) Weapons() *weapon.Registry     { return a.weapons }
func (a *Authority) Level() *geo.Level             { return a.level }

// Players lists the joined players in join order.
func (a *Authority) Players() []core.PlayerID { return slices.Clone(a.order) }

// Combat returns the canonical combat component of p.
func (a *Authority) Combat(p core.PlayerID) (*combat.Combat, bool) {
	s, ok := a.seats[p]
	if !ok {
		return nil, false
	}
	return s.combat, true
}

// Join seats player p at location at and returns its connection. The new
// participant receives every existing player and weapon followed by a full
// state snapshot; everyone else learns about the new player.
func (a *Authority) Join(p core.PlayerID, at core.Vector) (*Conn, error) {
	if p == 0 {
		return nil, fmt.Errorf("%w: 0", ErrUnknownPlayer)
	}
	if _, ok := a.seats[p]; ok {
		return nil, fmt.Errorf("%w: %d", ErrAlreadyJoined, p)
	}
	conn := &Conn{
		Player: p,
		Up:     NewLink(a.cfg.Codec, a.cfg.Latency, a.world.Now),
		Down:   NewLink(a.cfg.Codec, a.cfg.Latency, a.world.Now),
	}
	s := &seat{conn: conn, char: a.cfg.character(p, at)}
	s.anim = anim.NewPlayer(a.world, anim.DefaultTimings())
	env := combat.Env{
		Timers:    a.world,
		Weapons:   a.weapons,
		World:     a.level,
		Anim:      s.anim,
		Broadcast: a.hooks,
		Grenades:  a.hooks,
	}
	if a.deps.Telemetry != nil {
		env.Telemetry = a.deps.Telemetry
	}
	s.combat = combat.New(s.char, combat.Role{Authority: true}, env, a.cfg.Combat)
	s.anim.Bind(s.combat)
	s.controller = match.NewController(p, true, match.Env{
		Clock:  clock.New(a.source(), true, false, a.cfg.SyncFrequency, nil),
		Mode:   a.mode,
		Pawn:   func() (*combat.Combat, bool) { return s.combat, true },
		Board:  a.board,
		Client: seatClient{a, s},
	})

	a.seats[p] = s
	a.order = append(a.order, p)
	s.combat.BeginPlay()
	s.controller.OnMatchStateSet(a.mode.State())

	spawn := streaming.SpawnPlayer{Player: p, Location: at}
	for _, id := range a.order {
		other := a.seats[id]
		if id != p {
			a.send(other, streaming.TypeSpawnPlayer, spawn)
		}
		a.send(s, streaming.TypeSpawnPlayer, streaming.SpawnPlayer{Player: id, Location: other.char.Location})
	}
	for _, w := range a.weapons.All() {
		a.send(s, streaming.TypeSpawnWeapon, a.spawnMessage(w))
	}
	snapshot := replication.For(uint32(p), a.tracker.Snapshot(a.sources()))
	a.send(s, streaming.TypeDeltas, streaming.DeltaBatch{Tick: a.tick, Deltas: snapshot})

	a.log.Info("player joined", "player", p, "location", at, "players", len(a.order))
	return conn, nil
}

// Leave removes player p. Its weapons drop where it stood.
func (a *Authority) Leave(p core.PlayerID) error {
	s, ok := a.seats[p]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPlayer, p)
	}
	for _, id := range a.weapons.OwnedBy(p) {
		if w, ok := a.weapons.Get(id); ok {
			w.SetLocation(s.char.Location)
			w.Dropped()
		}
	}
	s.conn.Up.Close()
	s.conn.Down.Close()
	a.intake.Forget(p)
	a.tracker.Forget(s.combat.Entity())
	a.tracker.Forget(s.controller.Entity())
	delete(a.seats, p)
	a.order = slices.DeleteFunc(a.order, func(id core.PlayerID) bool { return id == p })
	a.log.Info("player left", "player", p, "players", len(a.order))
	return nil
}

// SpawnWeapon places a weapon of the named archetype and announces it.
func (a *Authority) SpawnWeapon(archetype string, at core.Vector) (*weapon.Weapon, error) {
	arch, ok := a.cfg.Archetypes[archetype]
	if !ok {
		return nil, fmt.Errorf("unknown archetype: %s", archetype)
	}
	w := a.weapons.Spawn(arch, at)
	a.names[w.ID()] = archetype
	msg := a.spawnMessage(w)
	for _, id := range a.order {
		a.send(a.seats[id], streaming.TypeSpawnWeapon, msg)
	}
	a.log.Debug("weapon spawned", "weapon", w.ID(), "archetype", archetype)
	return w, nil
}

// Tick advances the authority by dt: timers and the match timeline run,
// arrived requests are staged and executed in arrival order, and the
// resulting changes are replicated.
func (a *Authority) Tick(dt time.Duration) {
	a.world.Advance(dt)
	a.mode.Tick(a.world.Now())
	for _, id := range a.order {
		a.receive(a.seats[id])
	}
	for _, cmd := range a.intake.Drain() {
		a.execute(cmd)
	}
	for _, id := range a.order {
		s := a.seats[id]
		s.controller.Tick(dt)
		s.combat.Tick(dt)
	}
	a.replicate()
}

// Backlog reports requests staged for the next tick and frames still in
// flight on every link.
func (a *Authority) Backlog() (queued, inflight int) {
	for _, s := range a.seats {
		inflight += s.conn.Up.InFlight() + s.conn.Down.InFlight()
	}
	return a.intake.Len(), inflight
}

// Close drops every connection.
func (a *Authority) Close() {
	for _, s := range a.seats {
		s.conn.Up.Close()
		s.conn.Down.Close()
	}
}

func (a *Authority) receive(s *seat) {
	_, err := s.conn.Up.Pump(func(f streaming.Frame) {
		if f.Player != s.id() || !streaming.IsRequest(f.Type) {
			a.count(f.Type, "refused")
			a.log.Warn("request refused", "player", s.id(), "claimed", f.Player, "type", f.Type)
			return
		}
		err := a.intake.Push(intake.Command{Player: s.id(), Type: f.Type, Seq: f.Seq, Body: f.Body})
		if err != nil {
			a.count(f.Type, "rejected")
			a.log.Debug("request rejected", "player", s.id(), "type", f.Type, "error", err)
		}
	})
	if err != nil {
		a.log.Warn("undecodable request frames", "player", s.id(), "error", err)
	}
}

func (a *Authority) execute(cmd intake.Command) {
	_, err := a.dispatch.Dispatch(dispatcher.Event{
		Command:   RequestCommand(cmd.Type),
		Player:    cmd.Player,
		Payload:   cmd,
		Timestamp: time.Now(),
	})
	if err != nil {
		a.count(cmd.Type, "failed")
		a.log.Warn("request failed", "player", cmd.Player, "type", cmd.Type, "seq", cmd.Seq, "error", err)
		return
	}
	a.count(cmd.Type, "ok")
}

func (a *Authority) count(typ, outcome string) {
	a.requests.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("type", typ),
		attribute.String("outcome", outcome),
	))
}

func (a *Authority) replicate() {
	deltas := a.tracker.Diff(a.sources())
	if len(deltas) == 0 {
		return
	}
	a.tick++
	for _, id := range a.order {
		batch := replication.For(uint32(id), deltas)
		if len(batch) == 0 {
			continue
		}
		a.send(a.seats[id], streaming.TypeDeltas, streaming.DeltaBatch{Tick: a.tick, Deltas: batch})
	}
}

func (a *Authority) sources() []replication.Source {
	weapons := a.weapons.All()
	out := make([]replication.Source, 0, len(weapons)+2*len(a.order)+1)
	for _, w := range weapons {
		out = append(out, w.Source())
	}
	for _, id := range a.order {
		s := a.seats[id]
		out = append(out, s.combat, s.controller)
	}
	return append(out, a.board)
}

func (a *Authority) bodies() []geo.Body {
	out := make([]geo.Body, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, body(a.seats[id].char))
	}
	return out
}

func (a *Authority) source() clock.Source {
	return clock.SourceFunc(func() (time.Duration, bool) { return a.world.Now(), true })
}

func (a *Authority) onMatchState(state core.MatchState) {
	if state == core.WaitingToStart {
		a.board.Reset()
	}
	for _, id := range a.order {
		a.seats[id].controller.OnMatchStateSet(state)
	}
	a.log.Info("match state", "state", state, "round", a.mode.Round(), "key", a.mode.Key())
}

func (a *Authority) spawnMessage(w *weapon.Weapon) streaming.SpawnWeapon {
	return streaming.SpawnWeapon{WeaponID: w.ID(), Archetype: a.names[w.ID()], Location: w.Location()}
}

func (a *Authority) send(s *seat, typ string, payload any) {
	if err := s.conn.Down.Send(typ, s.id(), payload); err != nil {
		a.log.Warn("notification dropped", "player", s.id(), "type", typ, "error", err)
	}
}

// seatClient delivers controller notifications to one participant.
type seatClient struct {
	a *Authority
	s *seat
}

func (c seatClient) JoinMidgame(msg streaming.JoinMidgame) {
	c.a.send(c.s, streaming.TypeJoinMidgame, msg)
}

// authorityHooks are the world-side collaborators of the canonical
// combat components and weapons.
type authorityHooks struct{ a *Authority }

func (h authorityHooks) MulticastFire(player core.PlayerID, target core.Vector) {
	msg := streaming.FireBroadcast{Player: player, Target: target}
	for _, id := range h.a.order {
		h.a.send(h.a.seats[id], streaming.TypeMulticastFire, msg)
	}
}

// WeaponFired resolves the shot on the authority. Rounds with server side
// rewind are left to the shooter's score request.
func (h authorityHooks) WeaponFired(w *weapon.Weapon, target core.Vector) {
	owner, ok := w.Owner()
	if !ok {
		return
	}
	s, ok := h.a.seats[owner]
	if !ok {
		return
	}
	p, hit := impact(h.a.level, s.char, w, target)
	p.OnHit(lagcomp.Shooter{Authority: true, Damage: h}, hit)
}

// SpawnGrenade detonates the grenade at its target once the fuse runs out.
func (h authorityHooks) SpawnGrenade(owner core.PlayerID, origin, target core.Vector) {
	a := h.a
	a.world.Schedule(a.cfg.GrenadeFuse, func() {
		dir := target.Sub(origin).Normalize()
		hit := a.level.LineTrace(origin, target.Add(dir.Scale(BodyRadius)), owner)
		p := lagcomp.Projectile{Owner: owner, TraceStart: origin, Damage: a.cfg.GrenadeDamage}
		p.OnHit(lagcomp.Shooter{Authority: true, Damage: h}, hit)
	})
}

// ApplyDamage credits the instigator with a point per hit on another
// player while the match is in progress.
func (h authorityHooks) ApplyDamage(victim core.PlayerID, amount float64, instigator core.PlayerID, w core.WeaponID) {
	if victim == 0 || victim == instigator || amount <= 0 {
		return
	}
	if h.a.mode.State() != core.InProgress {
		return
	}
	h.a.board.AddScore(instigator, 1)
	h.a.log.Debug("hit", "shooter", instigator, "victim", victim, "weapon", w, "damage", amount)
}
