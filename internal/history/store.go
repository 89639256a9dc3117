// Package history keeps the per-identity timelines of the active session.
//
// Aggregates are maintained incrementally, so finalizing a session is exact no
// matter how long it ran, while raw samples are kept only in a bounded ring of
// recent entries per identity.
package history

import (
	"sort"
	"time"

	"github.com/ashureev/classpulse/internal/domain"
)

// DefaultRecentSamples bounds the recent-sample ring of each identity.
const DefaultRecentSamples = 300

// Sample is one observation of an identity.
type Sample struct {
	Emotion   domain.Emotion `json:"emotion"`
	Attention float64        `json:"attention"`
	At        time.Time      `json:"timestamp"`
}

// Summary is the finalized record of one identity.
type Summary struct {
	PersonID        string
	FirstSeen       time.Time
	LastSeen        time.Time
	PresenceSeconds float64
	AvgAttention    float64
	DominantEmotion domain.Emotion
	Samples         int
	AttentionSum    float64
}

type person struct {
	firstSeen time.Time
	lastSeen  time.Time
	seq       int

	sum   float64
	count int

	labels     map[domain.Emotion]int
	labelOrder []domain.Emotion

	recent *Ring[Sample]
}

// Store holds the histories of one session. It is not goroutine-safe; the
// session manager serialises access.
type Store struct {
	people   map[string]*person
	ringSize int
	nextSeq  int
}

// NewStore creates a store that keeps recentSamples raw samples per identity.
func NewStore(recentSamples int) *Store {
	if recentSamples <= 0 {
		recentSamples = DefaultRecentSamples
	}
	return &Store{
		people:   make(map[string]*person),
		ringSize: recentSamples,
	}
}

// Observe appends one sample to id's timeline, creating it on first sight.
func (s *Store) Observe(id string, emotion domain.Emotion, attention float64, now time.Time) {
	p, ok := s.people[id]
	if !ok {
		p = &person{
			firstSeen: now,
			seq:       s.nextSeq,
			labels:    make(map[domain.Emotion]int),
			recent:    NewRing[Sample](s.ringSize),
		}
		s.nextSeq++
		s.people[id] = p
	}
	p.lastSeen = now
	p.sum += attention
	p.count++
	if _, seen := p.labels[emotion]; !seen {
		p.labelOrder = append(p.labelOrder, emotion)
	}
	p.labels[emotion]++
	p.recent.Push(Sample{Emotion: emotion, Attention: attention, At: now})
}

// Len returns the number of distinct identities seen.
func (s *Store) Len() int {
	return len(s.people)
}

// Recent returns up to n of id's newest samples, oldest first, and whether id
// has been seen.
func (s *Store) Recent(id string, n int) ([]Sample, bool) {
	p, ok := s.people[id]
	if !ok {
		return nil, false
	}
	return p.recent.Last(n), true
}

// Finalize computes one summary per identity, ordered by first sighting.
func (s *Store) Finalize() []Summary {
	out := make([]Summary, 0, len(s.people))
	order := make([]int, 0, len(s.people))
	for id, p := range s.people {
		sum := Summary{
			PersonID:        id,
			FirstSeen:       p.firstSeen,
			LastSeen:        p.lastSeen,
			PresenceSeconds: p.lastSeen.Sub(p.firstSeen).Seconds(),
			DominantEmotion: p.dominant(),
			Samples:         p.count,
			AttentionSum:    p.sum,
		}
		if p.count > 0 {
			sum.AvgAttention = p.sum / float64(p.count)
		}
		out = append(out, sum)
		order = append(order, p.seq)
	}
	sort.Sort(bySeq{out, order})
	return out
}

// Reset discards every history.
func (s *Store) Reset() {
	s.people = make(map[string]*person)
	s.nextSeq = 0
}

// dominant returns the most frequent label; ties go to the label seen first.
func (p *person) dominant() domain.Emotion {
	best, bestCount := domain.EmotionNeutral, 0
	for _, e := range p.labelOrder {
		if c := p.labels[e]; c > bestCount {
			best, bestCount = e, c
		}
	}
	return best
}

type bySeq struct {
	s   []Summary
	seq []int
}

func (b bySeq) Len() int           { return len(b.s) }
func (b bySeq) Less(i, j int) bool { return b.seq[i] < b.seq[j] }
func (b bySeq) Swap(i, j int) {
	b.s[i], b.s[j] = b.s[j], b.s[i]
	b.seq[i], b.seq[j] = b.seq[j], b.seq[i]
}
