package match

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/blasternet/combatsync/internal/clock"
	"github.com/blasternet/combatsync/internal/combat"
	"github.com/blasternet/combatsync/internal/replication"
	"github.com/blasternet/combatsync/pkg/core"
	"github.com/blasternet/combatsync/pkg/streaming"
)

// Announcement headline shown during cooldown.
const CooldownAnnouncement = "New Match Starts In:"

// HUD is the match part of the owning player's display.
type HUD interface {
	SetMatchCountdown(text string, alert bool)
	SetAnnouncementCountdown(text string)
	AddAnnouncement()
	HideAnnouncement()
	ShowAnnouncement(text, info string)
	ShowCharacterOverlay()
	RemoveCharacterOverlay()
}

// Link carries controller requests to the authority.
type Link interface {
	CheckMatchState()
}

// ClientLink carries authority notifications to the owning participant.
type ClientLink interface {
	JoinMidgame(msg streaming.JoinMidgame)
}

// Env wires a controller to its surroundings. Every field may be nil.
type Env struct {
	Clock  *clock.Sync
	Mode   *Mode // authority only
	HUD    func() (HUD, bool)
	Pawn   func() (*combat.Combat, bool)
	Board  *Scoreboard
	Names  func(core.PlayerID) string
	Link   Link
	Client ClientLink
}

// Controller is one player's controller: match state, countdown display and
// the clock sync service.
type Controller struct {
	player    core.PlayerID
	authority bool
	env       Env

	state        core.MatchState // replicated, owner only
	timings      core.MatchTimings
	countdownInt int
}

// NewController creates the controller of player p.
func NewController(p core.PlayerID, authority bool, env Env) *Controller {
	return &Controller{player: p, authority: authority, env: env}
}

func (c *Controller) Player() core.PlayerID      { return c.player }
func (c *Controller) State() core.MatchState     { return c.state }
func (c *Controller) Timings() core.MatchTimings { return c.timings }
func (c *Controller) Clock() *clock.Sync         { return c.env.Clock }

// BeginPlay asks the authority for the match state.
func (c *Controller) BeginPlay() {
	if c.authority {
		c.ServerCheckMatchState()
		return
	}
	if c.env.Link != nil {
		c.env.Link.CheckMatchState()
	}
}

// Tick refreshes the countdown and drives clock sync.
func (c *Controller) Tick(dt time.Duration) {
	c.SetHUDTime()
	if c.env.Clock != nil {
		c.env.Clock.Tick(dt)
	}
}

// ServerTime is the authority clock estimate.
func (c *Controller) ServerTime() time.Duration {
	if c.env.Clock == nil {
		return 0
	}
	return c.env.Clock.ServerTime()
}

// TimeLeft is the time remaining in the current match state. The authority
// reads the game mode; everyone else derives it from the announced timings
// and the synced clock.
func (c *Controller) TimeLeft() time.Duration {
	if c.authority && c.env.Mode != nil {
		return c.env.Mode.Countdown()
	}
	t := c.timings
	now := c.ServerTime()
	switch c.state {
	case core.WaitingToStart:
		return t.Warmup - now + t.LevelStart
	case core.InProgress:
		return t.Match + t.Warmup - now + t.LevelStart
	case core.Cooldown:
		return t.Cooldown + t.Warmup + t.Match - now + t.LevelStart
	}
	return 0
}

// SecondsLeft rounds timeLeft up to whole seconds. On the authority the
// argument is ignored and the value is recomputed from the game mode as
// countdown plus level start time.
func (c *Controller) SecondsLeft(timeLeft time.Duration) int {
	secs := ceilSeconds(timeLeft)
	if c.authority && c.env.Mode != nil {
		secs = ceilSeconds(c.env.Mode.Countdown() + c.env.Mode.LevelStart())
	}
	return secs
}

// SetHUDTime pushes the countdown whenever its whole-second value changes.
func (c *Controller) SetHUDTime() {
	timeLeft := c.TimeLeft()
	secs := ceilSeconds(timeLeft)
	if c.countdownInt != secs {
		if h := c.hud(); h != nil {
			switch c.state {
			case core.WaitingToStart, core.Cooldown:
				h.SetAnnouncementCountdown(FormatCountdown(timeLeft))
			case core.InProgress:
				h.SetMatchCountdown(FormatCountdown(timeLeft), c.alert(timeLeft))
			}
		}
	}
	c.countdownInt = secs
}

func (c *Controller) alert(timeLeft time.Duration) bool {
	threshold := c.timings.Match.Seconds() * c.timings.AlertFraction
	return timeLeft.Seconds() <= threshold
}

// ServerCheckMatchState sends the match snapshot to the owning participant.
func (c *Controller) ServerCheckMatchState() {
	m := c.env.Mode
	if m == nil {
		return
	}
	c.timings = m.Timings()
	c.state = m.State()
	msg := streaming.JoinMidgame{
		State:         c.state,
		Warmup:        c.timings.Warmup,
		Match:         c.timings.Match,
		LevelStart:    c.timings.LevelStart,
		Cooldown:      c.timings.Cooldown,
		AlertFraction: c.timings.AlertFraction,
	}
	if c.env.Client != nil {
		c.env.Client.JoinMidgame(msg)
	}
	if c.state == core.WaitingToStart {
		if h := c.hud(); h != nil {
			h.AddAnnouncement()
		}
	}
}

// ClientJoinMidgame applies the authority's snapshot.
func (c *Controller) ClientJoinMidgame(msg streaming.JoinMidgame) {
	c.timings = core.MatchTimings{
		Warmup:        msg.Warmup,
		Match:         msg.Match,
		LevelStart:    msg.LevelStart,
		Cooldown:      msg.Cooldown,
		AlertFraction: msg.AlertFraction,
	}
	c.OnMatchStateSet(msg.State)
	if c.state == core.WaitingToStart {
		if h := c.hud(); h != nil {
			h.AddAnnouncement()
		}
	}
}

// OnMatchStateSet is called by the game mode on every controller it owns.
func (c *Controller) OnMatchStateSet(state core.MatchState) {
	prev := c.state
	c.state = state
	if c.authority && c.env.Mode != nil {
		c.timings = c.env.Mode.Timings()
	}
	if prev == core.Cooldown && state == core.WaitingToStart {
		c.handleRestart()
	}
	c.handleMatchState()
}

func (c *Controller) handleMatchState() {
	switch c.state {
	case core.InProgress:
		c.handleMatchHasStarted()
	case core.Cooldown:
		c.handleCooldown()
	}
}

func (c *Controller) handleMatchHasStarted() {
	if h := c.hud(); h != nil {
		h.ShowCharacterOverlay()
		h.HideAnnouncement()
	}
}

func (c *Controller) handleCooldown() {
	if h := c.hud(); h != nil {
		h.RemoveCharacterOverlay()
		h.ShowAnnouncement(CooldownAnnouncement, c.announcementInfo())
	}
	if cb := c.pawn(); cb != nil {
		if ch := cb.Character(); ch != nil {
			ch.GameplayDisabled = true
		}
		cb.SetAiming(false)
		cb.FireButtonPressed(false)
	}
}

// handleRestart re-enables the pawn when a new level starts. Participants
// re-check the match state to learn the new level start time.
func (c *Controller) handleRestart() {
	if cb := c.pawn(); cb != nil && cb.Character() != nil {
		cb.Character().GameplayDisabled = false
	}
	if h := c.hud(); h != nil {
		h.AddAnnouncement()
	}
	if !c.authority && c.env.Link != nil {
		c.env.Link.CheckMatchState()
	}
}

func (c *Controller) announcementInfo() string {
	if c.env.Board == nil {
		return ""
	}
	top := c.env.Board.TopPlayers()
	switch {
	case len(top) == 0:
		return "There is no winner."
	case len(top) == 1 && top[0] == c.player:
		return "You are the winner!"
	case len(top) == 1:
		return fmt.Sprintf("Winner: \n%s", c.name(top[0]))
	}
	var b strings.Builder
	b.WriteString("Players tied for the win:\n")
	for _, p := range top {
		fmt.Fprintf(&b, "%s\n", c.name(p))
	}
	return b.String()
}

func (c *Controller) name(p core.PlayerID) string {
	if c.env.Names != nil {
		return c.env.Names(p)
	}
	return fmt.Sprintf("Player%d", p)
}

func (c *Controller) hud() HUD {
	if c.env.HUD == nil {
		return nil
	}
	h, ok := c.env.HUD()
	if !ok {
		return nil
	}
	return h
}

func (c *Controller) pawn() *combat.Combat {
	if c.env.Pawn == nil {
		return nil
	}
	cb, ok := c.env.Pawn()
	if !ok {
		return nil
	}
	return cb
}

func (c *Controller) Entity() replication.Entity {
	return replication.Entity{Kind: replication.KindController, ID: uint32(c.player)}
}

func (c *Controller) Owner() uint32 { return uint32(c.player) }

// Fields replicates the match state name to the owning connection.
func (c *Controller) Fields() []replication.Field {
	return []replication.Field{
		{Prop: replication.PropMatchState, Value: replication.TextValue(string(c.state)), OwnerOnly: true},
	}
}

// OnReplicated applies the match state and runs its handler.
func (c *Controller) OnReplicated(prop string, v replication.Value) {
	if prop != replication.PropMatchState {
		return
	}
	prev := c.state
	c.state = core.MatchState(v.Text)
	if prev == core.Cooldown && c.state == core.WaitingToStart {
		c.handleRestart()
	}
	c.handleMatchState()
}

// FormatCountdown renders d as MM:SS. Negative durations show 00:00.
func FormatCountdown(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0 {
		return "00:00"
	}
	minutes := int(math.Floor(secs / 60))
	seconds := int(secs - float64(minutes*60))
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
