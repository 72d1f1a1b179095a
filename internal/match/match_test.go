package match

import (
	"testing"
	"time"

	"github.com/blasternet/combatsync/internal/clock"
	"github.com/blasternet/combatsync/internal/combat"
	"github.com/blasternet/combatsync/internal/replication"
	"github.com/blasternet/combatsync/internal/scheduler"
	"github.com/blasternet/combatsync/internal/weapon"
	"github.com/blasternet/combatsync/pkg/core"
	"github.com/blasternet/combatsync/pkg/streaming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHUD struct {
	match, announce []string
	alerts          []bool
	added, hidden   int
	overlay         bool
	removed         bool
	text, info      string
}

func (h *fakeHUD) SetMatchCountdown(text string, alert bool) {
	h.match = append(h.match, text)
	h.alerts = append(h.alerts, alert)
}
func (h *fakeHUD) SetAnnouncementCountdown(text string) { h.announce = append(h.announce, text) }
func (h *fakeHUD) AddAnnouncement()                     { h.added++ }
func (h *fakeHUD) HideAnnouncement()                    { h.hidden++ }
func (h *fakeHUD) ShowAnnouncement(text, info string)   { h.text, h.info = text, info }
func (h *fakeHUD) ShowCharacterOverlay()                { h.overlay = true }
func (h *fakeHUD) RemoveCharacterOverlay()              { h.removed = true }

type fakeLink struct{ checks int }

func (l *fakeLink) CheckMatchState() { l.checks++ }

type fakeClient struct{ msgs []streaming.JoinMidgame }

func (c *fakeClient) JoinMidgame(msg streaming.JoinMidgame) { c.msgs = append(c.msgs, msg) }

var timings = core.MatchTimings{
	Warmup:        10 * time.Second,
	Match:         120 * time.Second,
	Cooldown:      10 * time.Second,
	AlertFraction: 0.1,
}

type world struct{ now time.Duration }

func (w *world) Now() (time.Duration, bool) { return w.now, true }

func TestFormatCountdown(t *testing.T) {
	assert.Equal(t, "00:00", FormatCountdown(-time.Second))
	assert.Equal(t, "00:00", FormatCountdown(0))
	assert.Equal(t, "00:09", FormatCountdown(9500*time.Millisecond))
	assert.Equal(t, "02:00", FormatCountdown(120*time.Second))
	assert.Equal(t, "01:05", FormatCountdown(65*time.Second))
}

func TestModeTimeline(t *testing.T) {
	m := NewMode(timings)
	var seen []core.MatchState
	m.OnStateSet(func(s core.MatchState) { seen = append(seen, s) })

	m.Tick(time.Second)
	assert.Empty(t, seen, "no ticking before BeginPlay")

	m.BeginPlay(2 * time.Second)
	m.Tick(5 * time.Second)
	assert.Equal(t, core.WaitingToStart, m.State())
	assert.Equal(t, 7*time.Second, m.Countdown())
	assert.Empty(t, m.Key())

	m.Tick(12 * time.Second)
	assert.Equal(t, core.InProgress, m.State())
	assert.NotEmpty(t, m.Key())
	assert.Equal(t, 1, m.Round())

	m.Tick(100 * time.Second)
	assert.Equal(t, 32*time.Second, m.Countdown())

	m.Tick(132 * time.Second)
	assert.Equal(t, core.Cooldown, m.State())
	key := m.Key()
	assert.NotEmpty(t, key, "key survives into cooldown")

	m.Tick(142 * time.Second)
	assert.Equal(t, core.WaitingToStart, m.State())
	assert.Equal(t, 142*time.Second, m.LevelStart())
	assert.Empty(t, m.Key())

	m.Tick(152 * time.Second)
	assert.Equal(t, 2, m.Round())
	assert.NotEqual(t, key, m.Key())
	assert.Equal(t, []core.MatchState{core.InProgress, core.Cooldown, core.WaitingToStart, core.InProgress}, seen)
}

func TestClientTimeLeftPerState(t *testing.T) {
	w := &world{now: 30 * time.Second}
	sync := clock.New(w, false, true, 5*time.Second, nil)
	c := NewController(1, false, Env{Clock: sync})

	c.ClientJoinMidgame(streaming.JoinMidgame{
		State: core.WaitingToStart, Warmup: timings.Warmup, Match: timings.Match,
		Cooldown: timings.Cooldown, LevelStart: 25 * time.Second, AlertFraction: 0.1,
	})
	assert.Equal(t, 5*time.Second, c.TimeLeft())

	c.OnMatchStateSet(core.InProgress)
	assert.Equal(t, 125*time.Second, c.TimeLeft())

	c.OnMatchStateSet(core.Cooldown)
	assert.Equal(t, 135*time.Second, c.TimeLeft())
}

func TestClientTimeLeftUsesSyncedClock(t *testing.T) {
	w := &world{now: 10 * time.Second}
	sync := clock.New(w, false, true, 5*time.Second, nil)
	c := NewController(1, false, Env{Clock: sync})
	c.ClientJoinMidgame(streaming.JoinMidgame{State: core.WaitingToStart, Warmup: 10 * time.Second})

	// probe sent at 10s, report back at 10.2s with authority receipt at 50s
	w.now = 10200 * time.Millisecond
	sync.HandleReport(10*time.Second, 50*time.Second)
	assert.Equal(t, 50100*time.Millisecond, c.ServerTime())
	assert.Equal(t, 10*time.Second-50100*time.Millisecond, c.TimeLeft())
}

func TestSecondsLeftIgnoresArgumentOnAuthority(t *testing.T) {
	m := NewMode(timings)
	m.BeginPlay(3 * time.Second)
	m.Tick(4500 * time.Millisecond)

	auth := NewController(1, true, Env{Mode: m})
	assert.Equal(t, 8500*time.Millisecond, auth.TimeLeft())
	assert.Equal(t, 12, auth.SecondsLeft(time.Hour), "countdown 8.5s plus level start 3s")

	client := NewController(2, false, Env{})
	assert.Equal(t, 4, client.SecondsLeft(3100*time.Millisecond))
	assert.Equal(t, -3, client.SecondsLeft(-3900*time.Millisecond))
}

func TestHUDTimePushedOnWholeSecondChange(t *testing.T) {
	w := &world{}
	h := &fakeHUD{}
	sync := clock.New(w, true, true, 5*time.Second, nil)
	m := NewMode(timings)
	m.BeginPlay(0)
	c := NewController(1, true, Env{Clock: sync, Mode: m, HUD: func() (HUD, bool) { return h, true }})
	c.BeginPlay()
	assert.Equal(t, 1, h.added, "warmup shows the announcement")

	for _, ms := range []int{100, 200, 900, 1100} {
		w.now = time.Duration(ms) * time.Millisecond
		m.Tick(w.now)
		c.Tick(16 * time.Millisecond)
	}
	assert.Equal(t, []string{"00:09", "00:08"}, h.announce)
	assert.Empty(t, h.match)
}

func TestMatchCountdownAlert(t *testing.T) {
	w := &world{now: 120 * time.Second}
	h := &fakeHUD{}
	c := NewController(1, false, Env{
		Clock: clock.New(w, false, true, 5*time.Second, nil),
		HUD:   func() (HUD, bool) { return h, true },
	})
	c.ClientJoinMidgame(streaming.JoinMidgame{
		State: core.InProgress, Warmup: timings.Warmup, Match: timings.Match, AlertFraction: 0.1,
	})
	c.SetHUDTime()
	w.now = 100 * time.Second
	c.SetHUDTime()

	require.Len(t, h.match, 2)
	assert.Equal(t, []string{"00:10", "00:30"}, h.match)
	assert.Equal(t, []bool{true, false}, h.alerts)
	assert.True(t, h.overlay)
	assert.Equal(t, 1, h.hidden)
}

func TestServerCheckMatchStateSendsSnapshot(t *testing.T) {
	m := NewMode(timings)
	m.BeginPlay(4 * time.Second)
	client := &fakeClient{}
	h := &fakeHUD{}
	c := NewController(2, true, Env{Mode: m, Client: client, HUD: func() (HUD, bool) { return h, true }})

	c.ServerCheckMatchState()
	require.Len(t, client.msgs, 1)
	msg := client.msgs[0]
	assert.Equal(t, core.WaitingToStart, msg.State)
	assert.Equal(t, 4*time.Second, msg.LevelStart)
	assert.Equal(t, timings.Match, msg.Match)
	assert.Equal(t, 0.1, msg.AlertFraction)
	assert.Equal(t, 1, h.added)

	remote := NewController(2, false, Env{HUD: func() (HUD, bool) { return h, true }})
	remote.ClientJoinMidgame(msg)
	assert.Equal(t, core.WaitingToStart, remote.State())
	assert.Equal(t, 4*time.Second, remote.Timings().LevelStart)
	assert.Equal(t, 2, h.added)
}

func TestServerCheckMatchStateWithoutModeIsSkipped(t *testing.T) {
	client := &fakeClient{}
	c := NewController(2, true, Env{Client: client})
	c.ServerCheckMatchState()
	assert.Empty(t, client.msgs)
}

func TestBeginPlayOnParticipantAsksAuthority(t *testing.T) {
	link := &fakeLink{}
	c := NewController(1, false, Env{Link: link})
	c.BeginPlay()
	assert.Equal(t, 1, link.checks)
}

func newPawn(t *testing.T, authority bool) *combat.Combat {
	t.Helper()
	reg := weapon.NewRegistry(authority)
	cb := combat.New(combat.NewCharacter(1, core.Vector{}), combat.Role{Authority: authority, Local: true},
		combat.Env{Timers: scheduler.New(0), Weapons: reg}, combat.DefaultConfig())
	cb.BeginPlay()
	if authority {
		cb.EquipWeapon(reg.Spawn(weapon.DefaultArchetypes()["assault_rifle"], core.Vector{}))
	}
	return cb
}

func TestCooldownDisablesGameplay(t *testing.T) {
	pawn := newPawn(t, true)
	pawn.SetAiming(true)
	pawn.FireButtonPressed(true)
	require.True(t, pawn.Aiming())
	require.True(t, pawn.FireButtonHeld())

	h := &fakeHUD{}
	board := NewScoreboard()
	c := NewController(1, true, Env{
		Pawn:  func() (*combat.Combat, bool) { return pawn, true },
		HUD:   func() (HUD, bool) { return h, true },
		Board: board,
	})
	c.OnMatchStateSet(core.Cooldown)

	assert.True(t, pawn.Character().GameplayDisabled)
	assert.False(t, pawn.Aiming())
	assert.False(t, pawn.FireButtonHeld())
	assert.Equal(t, 600.0, pawn.Character().MaxWalkSpeed)
	assert.True(t, h.removed)
	assert.Equal(t, CooldownAnnouncement, h.text)
	assert.Equal(t, "There is no winner.", h.info)

	c.OnMatchStateSet(core.WaitingToStart)
	assert.False(t, pawn.Character().GameplayDisabled)
}

func TestAnnouncementWinnerText(t *testing.T) {
	names := func(p core.PlayerID) string { return map[core.PlayerID]string{1: "alpha", 2: "bravo", 3: "charlie"}[p] }
	cases := []struct {
		name   string
		scores map[core.PlayerID]int
		order  []core.PlayerID
		want   string
	}{
		{"local winner", map[core.PlayerID]int{1: 3, 2: 1}, []core.PlayerID{1, 2}, "You are the winner!"},
		{"other winner", map[core.PlayerID]int{1: 1, 2: 3}, []core.PlayerID{1, 2}, "Winner: \nbravo"},
		{"tie", map[core.PlayerID]int{2: 2, 3: 2}, []core.PlayerID{2, 3}, "Players tied for the win:\nbravo\ncharlie\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			board := NewScoreboard()
			for _, p := range tc.order {
				board.AddScore(p, tc.scores[p])
			}
			h := &fakeHUD{}
			c := NewController(1, false, Env{Board: board, Names: names, HUD: func() (HUD, bool) { return h, true }})
			c.OnReplicated(replication.PropMatchState, replication.TextValue(string(core.Cooldown)))
			assert.Equal(t, tc.want, h.info)
		})
	}
}

func TestReplicatedRestartRechecksMatchState(t *testing.T) {
	link := &fakeLink{}
	c := NewController(1, false, Env{Link: link})
	c.OnReplicated(replication.PropMatchState, replication.TextValue(string(core.Cooldown)))
	c.OnReplicated(replication.PropMatchState, replication.TextValue(string(core.WaitingToStart)))
	assert.Equal(t, 1, link.checks)
	assert.Equal(t, core.WaitingToStart, c.State())

	c.OnReplicated(replication.PropAiming, replication.BoolValue(true))
	assert.Equal(t, core.WaitingToStart, c.State())
}

func TestMatchStateIsOwnerOnly(t *testing.T) {
	c := NewController(7, true, Env{})
	c.OnMatchStateSet(core.InProgress)
	fields := c.Fields()
	require.Len(t, fields, 1)
	assert.True(t, fields[0].OwnerOnly)
	assert.Equal(t, "InProgress", fields[0].Value.Text)
	assert.Equal(t, uint32(7), c.Owner())
}

func TestScoreboardTopPlayers(t *testing.T) {
	b := NewScoreboard()
	assert.Empty(t, b.TopPlayers())

	b.AddScore(1, 1)
	b.AddScore(2, 1)
	assert.Equal(t, []core.PlayerID{1, 2}, b.TopPlayers())

	b.AddScore(2, 1)
	assert.Equal(t, []core.PlayerID{2}, b.TopPlayers())
	assert.Equal(t, 2, b.Score(2))

	b.AddScore(1, 1)
	assert.Equal(t, []core.PlayerID{2, 1}, b.TopPlayers())

	replica := NewScoreboard()
	replica.OnReplicated(replication.PropTopPlayers, b.Fields()[0].Value)
	assert.Equal(t, []core.PlayerID{2, 1}, replica.TopPlayers())

	replica.OnReplicated(replication.PropTopPlayers, replication.TextValue("3,x"))
	assert.Equal(t, []core.PlayerID{3}, replica.TopPlayers())

	b.Reset()
	assert.Empty(t, b.TopPlayers())
	assert.Equal(t, "", b.Fields()[0].Value.Text)
}
