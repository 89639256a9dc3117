package vision

import (
	"sort"
	"strconv"

	"github.com/ashureev/classpulse/internal/domain"
)

// IoUTrackerConfig configures an IoUTracker.
type IoUTrackerConfig struct {
	// NInit is the number of consecutive matches before a track is confirmed.
	NInit int
	// MaxAge is the number of missed frames after which a confirmed track is dropped.
	MaxAge int
	// MinIoU is the minimum overlap for a detection to continue a track.
	MinIoU float64
}

// DefaultIoUTrackerConfig returns the thresholds used by the server.
func DefaultIoUTrackerConfig() IoUTrackerConfig {
	return IoUTrackerConfig{NInit: 3, MaxAge: 60, MinIoU: 0.3}
}

type trackState struct {
	id              string
	box             domain.Rect
	hits            int
	timeSinceUpdate int
	confirmed       bool
}

// IoUTracker is a greedy overlap tracker. Tentative tracks are dropped on their first miss.
type IoUTracker struct {
	cfg    IoUTrackerConfig
	tracks []*trackState
	nextID int
}

// NewIoUTracker creates a tracker, filling zero config fields with defaults.
func NewIoUTracker(cfg IoUTrackerConfig) *IoUTracker {
	def := DefaultIoUTrackerConfig()
	if cfg.NInit <= 0 {
		cfg.NInit = def.NInit
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = def.MaxAge
	}
	if cfg.MinIoU <= 0 {
		cfg.MinIoU = def.MinIoU
	}
	return &IoUTracker{cfg: cfg, nextID: 1}
}

type candidate struct {
	track int
	det   int
	iou   float64
}

// Update implements Tracker.
func (t *IoUTracker) Update(detections []domain.Detection) []domain.Track {
	boxes := make([]domain.Rect, len(detections))
	for i, d := range detections {
		boxes[i] = domain.RectFromBBox(d.BBox)
	}

	var pairs []candidate
	for ti, tr := range t.tracks {
		for di, box := range boxes {
			if iou := tr.box.IoU(box); iou >= t.cfg.MinIoU {
				pairs = append(pairs, candidate{track: ti, det: di, iou: iou})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].iou > pairs[j].iou })

	trackUsed := make([]bool, len(t.tracks))
	detUsed := make([]bool, len(boxes))
	for _, p := range pairs {
		if trackUsed[p.track] || detUsed[p.det] {
			continue
		}
		trackUsed[p.track] = true
		detUsed[p.det] = true

		tr := t.tracks[p.track]
		tr.box = boxes[p.det]
		tr.hits++
		tr.timeSinceUpdate = 0
		if tr.hits >= t.cfg.NInit {
			tr.confirmed = true
		}
	}

	kept := t.tracks[:0]
	for i, tr := range t.tracks {
		if !trackUsed[i] {
			tr.timeSinceUpdate++
			// Consecutive-hit requirement: a miss resets a tentative track's run.
			if !tr.confirmed || tr.timeSinceUpdate > t.cfg.MaxAge {
				continue
			}
		}
		kept = append(kept, tr)
	}
	t.tracks = kept

	for di, box := range boxes {
		if detUsed[di] {
			continue
		}
		t.tracks = append(t.tracks, &trackState{
			id:        strconv.Itoa(t.nextID),
			box:       box,
			hits:      1,
			confirmed: t.cfg.NInit <= 1,
		})
		t.nextID++
	}

	out := make([]domain.Track, 0, len(t.tracks))
	for _, tr := range t.tracks {
		out = append(out, domain.Track{
			ID:              tr.id,
			Box:             tr.box,
			Confirmed:       tr.confirmed,
			TimeSinceUpdate: tr.timeSinceUpdate,
		})
	}
	return out
}

// Reset implements Tracker. Identifiers keep increasing across resets.
func (t *IoUTracker) Reset() {
	t.tracks = nil
}
