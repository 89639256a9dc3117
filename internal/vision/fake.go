package vision

import (
	"context"
	"strconv"
	"sync"

	"github.com/ashureev/classpulse/internal/domain"
)

// FakeDetector returns scripted faces. It is safe for concurrent use.
type FakeDetector struct {
	mu    sync.Mutex
	Faces []Face
	calls int
}

// Detect implements Detector.
func (f *FakeDetector) Detect(context.Context, Frame) []Face {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.Faces
}

// SetFaces replaces the scripted faces.
func (f *FakeDetector) SetFaces(faces []Face) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Faces = faces
}

// Calls returns how many frames were submitted.
func (f *FakeDetector) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FakeTracker echoes each detection back as a confirmed track whose id is the
// detection's index plus one, unless UpdateFunc is set.
type FakeTracker struct {
	UpdateFunc func([]domain.Detection) []domain.Track
	Resets     int
	Updates    int
}

// Update implements Tracker.
func (f *FakeTracker) Update(detections []domain.Detection) []domain.Track {
	f.Updates++
	if f.UpdateFunc != nil {
		return f.UpdateFunc(detections)
	}
	tracks := make([]domain.Track, len(detections))
	for i, d := range detections {
		tracks[i] = domain.Track{
			ID:        strconv.Itoa(i + 1),
			Box:       domain.RectFromBBox(d.BBox),
			Confirmed: true,
		}
	}
	return tracks
}

// Reset implements Tracker.
func (f *FakeTracker) Reset() {
	f.Resets++
}

var (
	_ Detector = (*FakeDetector)(nil)
	_ Tracker  = (*FakeTracker)(nil)
)
