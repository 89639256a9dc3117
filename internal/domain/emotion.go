// Package domain contains core domain types for the classroom attention service.
package domain

// Emotion is a discrete expression label assigned to a face.
type Emotion string

const (
	EmotionHappy      Emotion = "happy"
	EmotionBored      Emotion = "bored"
	EmotionSurprised  Emotion = "surprised"
	EmotionEngaged    Emotion = "engaged"
	EmotionNeutral    Emotion = "neutral"
	EmotionDistracted Emotion = "distracted"
	EmotionConfused   Emotion = "confused"
	EmotionSad        Emotion = "sad"
)

// String implements fmt.Stringer.
func (e Emotion) String() string {
	return string(e)
}
