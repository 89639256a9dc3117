// Package attention converts a matched emotion into a numeric attention score.
package attention

import (
	"math"

	"github.com/ashureev/classpulse/internal/domain"
)

// Score bounds and the fixed score for low-attention labels.
const (
	MinScore     = 0.0
	MaxScore     = 100.0
	LowAttention = 30.0
)

// IsLowAttention reports whether the label overrides the confidence-based score.
func IsLowAttention(e domain.Emotion) bool {
	return e == domain.EmotionBored || e == domain.EmotionDistracted
}

// Score returns LowAttention for bored or distracted faces and confidence×100
// otherwise. Confidence is clamped to [0,1] and NaN counts as zero.
func Score(e domain.Emotion, confidence float64) float64 {
	if IsLowAttention(e) {
		return LowAttention
	}
	switch {
	case math.IsNaN(confidence), confidence < 0:
		confidence = 0
	case confidence > 1:
		confidence = 1
	}
	return confidence * MaxScore
}
