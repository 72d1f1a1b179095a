package gormstorage

import (
	"fmt"

	"github.com/blasternet/combatsync/internal/model"
	"github.com/blasternet/combatsync/internal/model/convert"
	"github.com/blasternet/combatsync/pkg/core"
)

// Summary counts the rows written for one match.
type Summary struct {
	Fires        int64
	Reloads      int64
	Transitions  int64
	Grenades     int64
	HitClaims    int64
	AcceptedHits int64
	TimeSyncs    int64
	StateChanges int64
}

// Summary reports what has been written for matchID. Queued rows are not counted.
func (b *Backend) Summary(matchID uint) (Summary, error) {
	var s Summary
	db := b.deps.DB
	counts := []struct {
		table any
		dst   *int64
	}{
		{&model.FireEvent{}, &s.Fires},
		{&model.ReloadEvent{}, &s.Reloads},
		{&model.WeaponTransition{}, &s.Transitions},
		{&model.GrenadeEvent{}, &s.Grenades},
		{&model.HitClaim{}, &s.HitClaims},
		{&model.TimeSyncSample{}, &s.TimeSyncs},
		{&model.MatchStateChange{}, &s.StateChanges},
	}
	for _, c := range counts {
		if err := db.Model(c.table).Where("match_id = ?", matchID).Count(c.dst).Error; err != nil {
			return Summary{}, fmt.Errorf("count %T: %w", c.table, err)
		}
	}
	if err := db.Model(&model.HitClaim{}).
		Where("match_id = ? AND accepted = ?", matchID, true).
		Count(&s.AcceptedHits).Error; err != nil {
		return Summary{}, fmt.Errorf("count accepted hits: %w", err)
	}
	return s, nil
}

// Match loads a stored match by ID.
func (b *Backend) Match(id uint) (core.Match, error) {
	var row model.Match
	if err := b.deps.DB.First(&row, id).Error; err != nil {
		return core.Match{}, fmt.Errorf("load match %d: %w", id, err)
	}
	return convert.MatchToCore(row), nil
}

// FireEvents returns the shots of a match in insertion order.
func (b *Backend) FireEvents(matchID uint) ([]core.FireEvent, error) {
	var rows []model.FireEvent
	if err := b.deps.DB.Where("match_id = ?", matchID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load fire events: %w", err)
	}
	out := make([]core.FireEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, convert.FireEventToCore(r))
	}
	return out, nil
}

// HitClaims returns the hit claims of a match, optionally only accepted ones.
func (b *Backend) HitClaims(matchID uint, acceptedOnly bool) ([]core.HitClaim, error) {
	var rows []model.HitClaim
	q := b.deps.DB.Where("match_id = ?", matchID)
	if acceptedOnly {
		q = q.Where("accepted = ?", true)
	}
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load hit claims: %w", err)
	}
	out := make([]core.HitClaim, 0, len(rows))
	for _, r := range rows {
		out = append(out, convert.HitClaimToCore(r))
	}
	return out, nil
}
