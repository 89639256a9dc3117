package engagement

import (
	"sync"

	"github.com/ashureev/classpulse/internal/broadcast"
	"github.com/ashureev/classpulse/internal/domain"
)

// Update is what live dashboards receive for every processed frame.
type Update struct {
	Type            string                 `json:"type"`
	Snapshot        domain.MetricsSnapshot `json:"metrics"`
	Leaderboard     []Standing             `json:"leaderboard"`
	Recommendations []Recommendation       `json:"recommendations"`
}

// UpdateType tags metrics messages on the live feed.
const UpdateType = "metrics"

// Feed scores each snapshot, derives recommendations and publishes the result.
type Feed struct {
	board *Scoreboard
	bus   *broadcast.Bus[Update]

	mu     sync.RWMutex
	latest []Recommendation
}

// NewFeed wires a scoreboard to a bus.
func NewFeed(board *Scoreboard, bus *broadcast.Bus[Update]) *Feed {
	return &Feed{board: board, bus: bus}
}

// Publish handles one snapshot. Points are only awarded while a session is
// active; otherwise the last session's standings are republished unchanged.
func (f *Feed) Publish(snap domain.MetricsSnapshot) {
	var standings []Standing
	if snap.SessionActive {
		standings = f.board.Observe(snap)
		if len(standings) > DefaultLeaderboardSize {
			standings = standings[:DefaultLeaderboardSize]
		}
	} else {
		standings = f.board.Leaderboard(DefaultLeaderboardSize)
	}
	recs := Recommend(snap)

	f.mu.Lock()
	f.latest = recs
	f.mu.Unlock()

	f.bus.Publish(Update{
		Type:            UpdateType,
		Snapshot:        snap,
		Leaderboard:     standings,
		Recommendations: recs,
	})
}

// Current returns the recommendations of the latest snapshot.
func (f *Feed) Current() []Recommendation {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Recommendation, len(f.latest))
	copy(out, f.latest)
	return out
}

// Scoreboard returns the feed's scoreboard.
func (f *Feed) Scoreboard() *Scoreboard {
	return f.board
}
