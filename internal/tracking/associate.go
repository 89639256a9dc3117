// Package tracking re-links the external tracker's identities to the
// per-frame detections that carry emotion and confidence.
package tracking

import (
	"math"

	"github.com/ashureev/classpulse/internal/domain"
)

// Default association thresholds.
const (
	DefaultMaxDistance  = 50.0
	DefaultMaxStaleness = 1
)

// Match binds a confirmed track to the detection nearest its centre.
type Match struct {
	Track     domain.Track
	Detection domain.Detection
	Distance  float64
}

// Associator performs greedy nearest-centre matching per track. Two close
// tracks can bind the same detection; the distance threshold keeps such
// mismatches to faces that are almost on top of each other.
type Associator struct {
	// MaxDistance is the exclusive upper bound on centre distance in pixels.
	MaxDistance float64
	// MaxStaleness skips tracks that have gone this many frames without an update.
	MaxStaleness int
}

// NewAssociator returns an associator with default thresholds.
func NewAssociator() Associator {
	return Associator{MaxDistance: DefaultMaxDistance, MaxStaleness: DefaultMaxStaleness}
}

// Associate returns one match per eligible track that has a detection within
// range, in track order. Unmatched tracks are simply absent.
func (a Associator) Associate(tracks []domain.Track, dets []domain.Detection) []Match {
	if len(tracks) == 0 || len(dets) == 0 {
		return nil
	}

	centres := make([][2]float64, len(dets))
	for i, d := range dets {
		x, y := d.BBox.Center()
		centres[i] = [2]float64{x, y}
	}

	var matches []Match
	for _, t := range tracks {
		if !t.Confirmed || t.TimeSinceUpdate > a.MaxStaleness {
			continue
		}
		tx, ty := t.Box.Center()

		best, bestDist := -1, math.Inf(1)
		for i, c := range centres {
			d := math.Hypot(tx-c[0], ty-c[1])
			if d < bestDist {
				best, bestDist = i, d
			}
		}
		if best < 0 || bestDist >= a.MaxDistance {
			continue
		}
		matches = append(matches, Match{Track: t, Detection: dets[best], Distance: bestDist})
	}
	return matches
}
