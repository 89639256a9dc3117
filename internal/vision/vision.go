// Package vision defines the perception collaborators the frame pipeline consumes:
// a landmark detector and a multi-object tracker, plus the adapters shipped with
// the server.
package vision

import (
	"context"
	"time"

	"github.com/ashureev/classpulse/internal/domain"
)

// Frame is one raw image pulled from the frame source.
type Frame struct {
	// Data holds the encoded image (JPEG or PNG).
	Data []byte

	// Width and Height are the decoded image dimensions in pixels.
	Width  int
	Height int

	// Seq is the ingest sequence number.
	Seq uint64

	// Timestamp is when the frame was received.
	Timestamp time.Time
}

// Point is a 2-D landmark position in frame pixels.
type Point struct {
	X float64
	Y float64
}

// Face is the ordered landmark set the detector returns for one face.
type Face struct {
	Landmarks []Point
}

// Detector finds faces and their landmarks in a frame.
// Implementations fail soft: on any failure they return an empty slice.
type Detector interface {
	Detect(ctx context.Context, frame Frame) []Face
}

// Tracker assigns stable identities to per-frame detections.
// Implementations are owned by a single goroutine and need not be safe for concurrent use.
type Tracker interface {
	// Update feeds the frame's detections and returns the tracker's current tracks.
	Update(detections []domain.Detection) []domain.Track

	// Reset drops every track.
	Reset()
}

// NopDetector never finds a face. It stands in when no landmark model is configured.
type NopDetector struct{}

// Detect implements Detector.
func (NopDetector) Detect(context.Context, Frame) []Face { return nil }

var (
	_ Detector = NopDetector{}
	_ Detector = (*SidecarDetector)(nil)
	_ Tracker  = (*IoUTracker)(nil)
)
