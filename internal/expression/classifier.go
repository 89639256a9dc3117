// Package expression turns facial landmark geometry into a discrete emotion label.
package expression

import (
	"math"

	"github.com/ashureev/classpulse/internal/domain"
	"github.com/ashureev/classpulse/internal/vision"
)

// Face mesh landmark indices.
const (
	leftEyeTop     = 159
	leftEyeBottom  = 145
	rightEyeTop    = 386
	rightEyeBottom = 374
	upperLip       = 13
	lowerLip       = 14
	faceLeft       = 234
	faceRight      = 454

	minLandmarks = faceRight + 1
)

// Ratios are the normalised geometric measurements of one face.
type Ratios struct {
	EyeOpen   float64
	MouthOpen float64
}

// Classifier maps landmark sets to detections.
type Classifier struct {
	profile Profile
}

// NewClassifier creates a classifier with the given calibration.
func NewClassifier(p Profile) *Classifier {
	return &Classifier{profile: p}
}

// Classify returns one detection per face. It never fails: faces with too few
// landmarks receive the fallback label, and no faces yields an empty slice.
func (c *Classifier) Classify(width, height int, faces []vision.Face) []domain.Detection {
	if len(faces) == 0 {
		return nil
	}
	out := make([]domain.Detection, 0, len(faces))
	for _, f := range faces {
		if len(f.Landmarks) == 0 {
			continue
		}
		d := domain.Detection{BBox: c.boundingBox(width, height, f.Landmarks)}
		if r, ok := Measure(f.Landmarks); ok {
			d.Emotion, d.Confidence, d.Explanation = c.Label(r)
		} else {
			d.Emotion = domain.EmotionNeutral
			d.Confidence = c.profile.Fallback.Confidence
			d.Explanation = c.profile.Fallback.Explanation
		}
		out = append(out, d)
	}
	return out
}

// Label applies the fixed decision order to measured ratios.
func (c *Classifier) Label(r Ratios) (domain.Emotion, float64, string) {
	p := c.profile
	switch {
	case r.EyeOpen > p.HappyEyeMin && r.MouthOpen > p.HappyMouthMin:
		return domain.EmotionHappy, p.Happy.Confidence, p.Happy.Explanation
	case r.EyeOpen < p.BoredEyeMax:
		return domain.EmotionBored, p.Bored.Confidence, p.Bored.Explanation
	case r.MouthOpen > p.SurprisedMouthMin:
		return domain.EmotionSurprised, p.Surprised.Confidence, p.Surprised.Explanation
	case r.EyeOpen > p.EngagedEyeMin:
		return domain.EmotionEngaged, p.Engaged.Confidence, p.Engaged.Explanation
	default:
		return domain.EmotionNeutral, p.Neutral.Confidence, p.Neutral.Explanation
	}
}

// Measure computes eye and mouth opening relative to face width. Face width is
// clamped to at least one pixel. It reports false when the landmark set is too short.
func Measure(pts []vision.Point) (Ratios, bool) {
	if len(pts) < minLandmarks {
		return Ratios{}, false
	}
	width := math.Max(dist(pts[faceRight], pts[faceLeft]), 1)
	leftEye := dist(pts[leftEyeTop], pts[leftEyeBottom])
	rightEye := dist(pts[rightEyeTop], pts[rightEyeBottom])
	mouth := dist(pts[upperLip], pts[lowerLip])
	return Ratios{
		EyeOpen:   (leftEye + rightEye) / 2 / width,
		MouthOpen: mouth / width,
	}, true
}

func (c *Classifier) boundingBox(width, height int, pts []vision.Point) domain.BBox {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	m := float64(c.profile.BoxMargin)
	x := math.Max(0, minX-m)
	y := math.Max(0, minY-m)
	w := math.Min(float64(width)-x, maxX-minX+2*m)
	h := math.Min(float64(height)-y, maxY-minY+2*m)
	return domain.BBox{X: int(x), Y: int(y), W: int(math.Max(w, 0)), H: int(math.Max(h, 0))}
}

func dist(a, b vision.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
