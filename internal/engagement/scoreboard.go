// Package engagement derives classroom feedback from metrics snapshots:
// a points leaderboard and rule-based recommendations.
package engagement

import (
	"sort"
	"sync"

	"github.com/ashureev/classpulse/internal/domain"
)

// Per-frame point rules. At roughly 30 frames per second a fully attentive
// student earns about ten points a second.
const (
	pointsFocused   = 0.33
	pointsAttentive = 0.16
	pointsPresent   = 0.03
	pointsPenalty   = -0.06

	// HotStreakFrames is the streak length that earns the hot streak badge.
	HotStreakFrames = 300
	// HotStreakBadge is awarded while a streak exceeds HotStreakFrames.
	HotStreakBadge = "Hot Streak"

	// DefaultLeaderboardSize is the number of entries Leaderboard returns for n <= 0.
	DefaultLeaderboardSize = 5
)

// Standing is one leaderboard entry.
type Standing struct {
	ID     string `json:"id"`
	Points int    `json:"points"`
	Badge  string `json:"badge,omitempty"`
}

type player struct {
	points float64
	streak int
	seq    int
}

// Scoreboard accumulates points per identity for the current session.
type Scoreboard struct {
	mu      sync.RWMutex
	players map[string]*player
	nextSeq int
}

// NewScoreboard creates an empty scoreboard.
func NewScoreboard() *Scoreboard {
	return &Scoreboard{players: make(map[string]*player)}
}

// Observe scores one snapshot and returns the standings of the people in it,
// highest first.
func (s *Scoreboard) Observe(snap domain.MetricsSnapshot) []Standing {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Standing, 0, len(snap.People))
	for _, p := range snap.People {
		pl, ok := s.players[p.ID]
		if !ok {
			pl = &player{seq: s.nextSeq}
			s.nextSeq++
			s.players[p.ID] = pl
		}

		switch {
		case p.Attention > 90:
			pl.points += pointsFocused
			pl.streak++
		case p.Attention > 70:
			pl.points += pointsAttentive
			pl.streak = 0
		case p.Attention > 50:
			pl.points += pointsPresent
			pl.streak = 0
		default:
			pl.points += pointsPenalty
			pl.streak = 0
		}
		out = append(out, standing(p.ID, pl))
	}
	sortStandings(out, s.players)
	return out
}

// Leaderboard returns the top n identities of the session.
func (s *Scoreboard) Leaderboard(n int) []Standing {
	if n <= 0 {
		n = DefaultLeaderboardSize
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Standing, 0, len(s.players))
	for id, pl := range s.players {
		out = append(out, standing(id, pl))
	}
	sortStandings(out, s.players)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Reset clears every score.
func (s *Scoreboard) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players = make(map[string]*player)
	s.nextSeq = 0
}

// SessionStarted resets the board for the new session.
func (s *Scoreboard) SessionStarted(string) {
	s.Reset()
}

// SessionStopped keeps the final standings visible until the next start.
func (s *Scoreboard) SessionStopped(string) {}

func standing(id string, pl *player) Standing {
	st := Standing{ID: id, Points: int(pl.points)}
	if pl.streak > HotStreakFrames {
		st.Badge = HotStreakBadge
	}
	return st
}

// sortStandings orders by points, then by first appearance.
func sortStandings(st []Standing, players map[string]*player) {
	sort.SliceStable(st, func(i, j int) bool {
		if st[i].Points != st[j].Points {
			return st[i].Points > st[j].Points
		}
		return players[st[i].ID].seq < players[st[j].ID].seq
	})
}
