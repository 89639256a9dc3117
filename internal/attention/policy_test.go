package attention

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ashureev/classpulse/internal/domain"
)

var allEmotions = []domain.Emotion{
	domain.EmotionHappy, domain.EmotionBored, domain.EmotionSurprised, domain.EmotionEngaged,
	domain.EmotionNeutral, domain.EmotionDistracted, domain.EmotionConfused, domain.EmotionSad,
	domain.Emotion("unknown"),
}

func TestScore_LowAttentionOverride(t *testing.T) {
	for _, c := range []float64{0, 0.2, 0.85, 1} {
		assert.Equal(t, LowAttention, Score(domain.EmotionBored, c))
		assert.Equal(t, LowAttention, Score(domain.EmotionDistracted, c))
	}
}

func TestScore_ConfidenceScaled(t *testing.T) {
	assert.InDelta(t, 92.0, Score(domain.EmotionHappy, 0.92), 1e-9)
	assert.InDelta(t, 85.0, Score(domain.EmotionEngaged, 0.85), 1e-9)
	assert.InDelta(t, 75.0, Score(domain.EmotionNeutral, 0.75), 1e-9)
	assert.Zero(t, Score(domain.EmotionSurprised, 0))
}

func TestScore_AlwaysInRange(t *testing.T) {
	confidences := []float64{-5, -0.01, 0, 0.3, 0.5, 0.999, 1, 1.01, 42, math.Inf(1), math.Inf(-1), math.NaN()}
	for _, e := range allEmotions {
		for _, c := range confidences {
			s := Score(e, c)
			assert.GreaterOrEqual(t, s, MinScore, "emotion %s confidence %v", e, c)
			assert.LessOrEqual(t, s, MaxScore, "emotion %s confidence %v", e, c)
			if !IsLowAttention(e) && c >= 0 && c <= 1 {
				assert.InDelta(t, c*100, s, 1e-9)
			}
		}
	}
}
