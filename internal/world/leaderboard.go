package world

import (
	"context"
	"fmt"
	"sort"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging/gameplay"
)

// LeaderboardKind selects the outbound leaderboard packet.
type LeaderboardKind uint8

const (
	LeaderboardRanked LeaderboardKind = iota
	LeaderboardText
	LeaderboardPie
)

func (k LeaderboardKind) String() string {
	switch k {
	case LeaderboardRanked:
		return "ranked"
	case LeaderboardText:
		return "text"
	case LeaderboardPie:
		return "pie"
	default:
		return "unknown"
	}
}

func (k LeaderboardKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	PlayerID entity.PlayerID
	Name     string
	Score    float64
}

// Leaderboard is recompiled once per second. Only the field matching Kind
// is populated.
type Leaderboard struct {
	Kind      LeaderboardKind
	Entries   []LeaderboardEntry
	Lines     []string
	Fractions []float64
}

// Leaderboard returns the most recently compiled leaderboard.
func (w *World) Leaderboard() Leaderboard { return w.leaderboard }

func (w *World) compileLeaderboard() {
	builder, ok := w.mode.(LeaderboardBuilder)
	if !ok {
		w.leaderboard = RankedLeaderboard(w.players, w.config.LeaderboardSize)
		return
	}
	board := RankedLeaderboard(w.players, w.config.LeaderboardSize)
	func() {
		defer func() {
			if r := recover(); r != nil {
				w.logger.Printf("[mode] %s.BuildLeaderboard panicked at tick %d: %v", w.mode.Name(), w.tick, r)
				gameplay.ModeHookFailed(context.Background(), w.publisher, w.tick, gameplay.HookFailurePayload{
					Mode:  w.mode.Name(),
					Hook:  "BuildLeaderboard",
					Panic: fmt.Sprint(r),
				})
			}
		}()
		board = builder.BuildLeaderboard(w)
	}()
	w.leaderboard = board
}

// RankedLeaderboard orders alive players by score, highest first, breaking
// ties by id, and keeps at most limit rows.
func RankedLeaderboard(players []*entity.Player, limit int) Leaderboard {
	entries := make([]LeaderboardEntry, 0, len(players))
	for _, p := range players {
		if p.State() != entity.StateAlive || p.CellCount() == 0 {
			continue
		}
		entries = append(entries, LeaderboardEntry{PlayerID: p.ID, Name: p.Name(), Score: p.Score()})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return Leaderboard{Kind: LeaderboardRanked, Entries: entries}
}

// Leader returns the alive player with the highest score, or nil.
func (w *World) Leader() *entity.Player {
	var best *entity.Player
	for _, p := range w.players {
		if p.State() != entity.StateAlive || p.CellCount() == 0 {
			continue
		}
		if best == nil || p.Score() > best.Score() {
			best = p
		}
	}
	return best
}
