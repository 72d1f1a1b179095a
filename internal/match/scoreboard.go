package match

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/blasternet/combatsync/internal/replication"
	"github.com/blasternet/combatsync/pkg/core"
)

// Scoreboard tracks points per player and the replicated list of players
// sharing the top score.
type Scoreboard struct {
	scores   map[core.PlayerID]int
	top      []core.PlayerID
	topScore int
}

// NewScoreboard returns an empty board.
func NewScoreboard() *Scoreboard {
	return &Scoreboard{scores: make(map[core.PlayerID]int)}
}

// AddScore credits p and updates the top list.
func (b *Scoreboard) AddScore(p core.PlayerID, points int) {
	b.scores[p] += points
	score := b.scores[p]
	switch {
	case len(b.top) == 0:
		b.top = append(b.top, p)
		b.topScore = score
	case score == b.topScore:
		if !slices.Contains(b.top, p) {
			b.top = append(b.top, p)
		}
	case score > b.topScore:
		b.top = []core.PlayerID{p}
		b.topScore = score
	}
}

// Score returns p's points.
func (b *Scoreboard) Score(p core.PlayerID) int { return b.scores[p] }

// TopPlayers lists the players sharing the top score in the order they reached it.
func (b *Scoreboard) TopPlayers() []core.PlayerID { return slices.Clone(b.top) }

// Reset clears the board for a new match.
func (b *Scoreboard) Reset() {
	clear(b.scores)
	b.top = nil
	b.topScore = 0
}

func (b *Scoreboard) Entity() replication.Entity {
	return replication.Entity{Kind: replication.KindGameState}
}

func (b *Scoreboard) Owner() uint32 { return 0 }

func (b *Scoreboard) Fields() []replication.Field {
	ids := make([]string, len(b.top))
	for i, p := range b.top {
		ids[i] = strconv.FormatUint(uint64(p), 10)
	}
	return []replication.Field{
		{Prop: replication.PropTopPlayers, Value: replication.TextValue(strings.Join(ids, ","))},
	}
}

func (b *Scoreboard) BeginPlay()          {}
func (b *Scoreboard) Tick(time.Duration) {}

// OnReplicated applies the authority's top list. Malformed ids are skipped.
func (b *Scoreboard) OnReplicated(prop string, v replication.Value) {
	if prop != replication.PropTopPlayers {
		return
	}
	b.top = b.top[:0]
	if v.Text == "" {
		return
	}
	for _, s := range strings.Split(v.Text, ",") {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			continue
		}
		b.top = append(b.top, core.PlayerID(n))
	}
}
