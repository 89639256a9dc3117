package engagement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/classpulse/internal/broadcast"
	"github.com/ashureev/classpulse/internal/domain"
)

func snap(people ...domain.PersonSnapshot) domain.MetricsSnapshot {
	return domain.MetricsSnapshot{Timestamp: time.Now(), TotalPeople: len(people), People: people, SessionActive: true}
}

func person(id string, att float64, e domain.Emotion) domain.PersonSnapshot {
	return domain.PersonSnapshot{ID: id, Attention: att, Emotion: e, Confidence: att / 100}
}

func TestScoreboard_PointsAndRanking(t *testing.T) {
	b := NewScoreboard()
	for i := 0; i < 30; i++ {
		b.Observe(snap(
			person("a", 92, domain.EmotionHappy),
			person("b", 75, domain.EmotionNeutral),
			person("c", 30, domain.EmotionBored),
		))
	}

	lb := b.Leaderboard(0)
	require.Len(t, lb, 3)
	assert.Equal(t, Standing{ID: "a", Points: 9}, lb[0])
	assert.Equal(t, Standing{ID: "b", Points: 4}, lb[1])
	assert.Equal(t, Standing{ID: "c", Points: -1}, lb[2])
}

func TestScoreboard_HotStreak(t *testing.T) {
	b := NewScoreboard()
	var last []Standing
	for i := 0; i < HotStreakFrames; i++ {
		last = b.Observe(snap(person("a", 95, domain.EmotionEngaged)))
	}
	assert.Empty(t, last[0].Badge)

	last = b.Observe(snap(person("a", 95, domain.EmotionEngaged)))
	assert.Equal(t, HotStreakBadge, last[0].Badge)

	last = b.Observe(snap(person("a", 80, domain.EmotionNeutral)))
	assert.Empty(t, last[0].Badge)
}

func TestScoreboard_LeaderboardLimitAndReset(t *testing.T) {
	b := NewScoreboard()
	b.Observe(snap(
		person("1", 95, ""), person("2", 95, ""), person("3", 95, ""),
		person("4", 95, ""), person("5", 95, ""), person("6", 95, ""),
	))
	assert.Len(t, b.Leaderboard(0), DefaultLeaderboardSize)
	assert.Len(t, b.Leaderboard(2), 2)
	assert.Equal(t, "1", b.Leaderboard(1)[0].ID, "equal points keep arrival order")

	b.SessionStopped("s")
	assert.Len(t, b.Leaderboard(10), 6)

	b.SessionStarted("s2")
	assert.Empty(t, b.Leaderboard(10))
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name  string
		snap  domain.MetricsSnapshot
		kinds []string
	}{
		{"empty room", snap(), nil},
		{"all good", snap(person("1", 92, domain.EmotionHappy)), []string{KindSuccess}},
		{"one distracted", snap(person("1", 30, domain.EmotionBored)), []string{KindAlert}},
		{
			"class dropping",
			snap(person("1", 55, domain.EmotionNeutral), person("2", 55, domain.EmotionNeutral), person("3", 55, domain.EmotionNeutral)),
			[]string{KindWarning},
		},
		{
			"two people low mean is not a class warning",
			snap(person("1", 45, domain.EmotionNeutral), person("2", 45, domain.EmotionNeutral)),
			[]string{KindSuccess},
		},
		{
			"bored pair",
			snap(person("1", 30, domain.EmotionBored), person("2", 30, domain.EmotionBored)),
			[]string{KindAlert, KindAlert, KindInfo},
		},
		{"confused", snap(person("1", 80, domain.EmotionConfused)), []string{KindAlert}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var kinds []string
			for _, r := range Recommend(tt.snap) {
				kinds = append(kinds, r.Type)
			}
			assert.Equal(t, tt.kinds, kinds)
		})
	}
}

func TestRecommend_DistractedMessage(t *testing.T) {
	recs := Recommend(snap(person("7", 30, domain.EmotionBored)))
	require.Len(t, recs, 1)
	assert.Equal(t, "Student 7 is distracted (30%).", recs[0].Message)
}

func TestFeed_PublishesUpdates(t *testing.T) {
	bus := broadcast.New[Update]()
	ch := make(chan Update, 1)
	require.NoError(t, bus.Subscribe("dash", ch))

	f := NewFeed(NewScoreboard(), bus)
	f.Publish(snap(person("1", 30, domain.EmotionBored)))

	u := <-ch
	assert.Equal(t, UpdateType, u.Type)
	assert.Equal(t, 1, u.Snapshot.TotalPeople)
	require.Len(t, u.Leaderboard, 1)
	assert.Equal(t, KindAlert, u.Recommendations[0].Type)
	assert.Equal(t, u.Recommendations, f.Current())
	assert.Len(t, f.Scoreboard().Leaderboard(0), 1)
}

func TestFeed_IdleSnapshotsLeaveStandings(t *testing.T) {
	bus := broadcast.New[Update]()
	ch := make(chan Update, 2)
	require.NoError(t, bus.Subscribe("dash", ch))

	f := NewFeed(NewScoreboard(), bus)
	f.Publish(snap(person("1", 92, domain.EmotionHappy)))
	before := f.Scoreboard().Leaderboard(0)
	require.Len(t, before, 1)
	<-ch

	idle := snap(person("1", 92, domain.EmotionHappy), person("2", 95, domain.EmotionHappy))
	idle.SessionActive = false
	f.Publish(idle)

	u := <-ch
	assert.Equal(t, before, u.Leaderboard)
	assert.Equal(t, before, f.Scoreboard().Leaderboard(0))
	assert.Equal(t, 2, u.Snapshot.TotalPeople)
}
