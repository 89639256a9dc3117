package engagement

import (
	"fmt"

	"github.com/ashureev/classpulse/internal/domain"
)

// Recommendation severities.
const (
	KindAlert   = "alert"
	KindWarning = "warning"
	KindInfo    = "info"
	KindSuccess = "success"
)

// Thresholds for the recommendation rules.
const (
	distractedBelow  = 40.0
	classWarnBelow   = 60.0
	classWarnMinSize = 3
	boredMinCount    = 2
)

// Recommendation is one piece of live feedback for the teacher.
type Recommendation struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Recommend applies the rule set to one snapshot. An empty room yields nothing.
func Recommend(snap domain.MetricsSnapshot) []Recommendation {
	var recs []Recommendation

	for _, p := range snap.People {
		if p.Attention < distractedBelow {
			recs = append(recs, Recommendation{
				Type:    KindAlert,
				Message: fmt.Sprintf("Student %s is distracted (%.0f%%).", p.ID, p.Attention),
			})
		}
	}

	if len(snap.People) >= classWarnMinSize && snap.MeanAttention() < classWarnBelow {
		recs = append(recs, Recommendation{
			Type:    KindWarning,
			Message: "Class engagement dropping below 60%. Consider a brain break.",
		})
	}

	var bored, confused int
	for _, p := range snap.People {
		switch p.Emotion {
		case domain.EmotionBored:
			bored++
		case domain.EmotionConfused:
			confused++
		}
	}
	if bored >= boredMinCount {
		recs = append(recs, Recommendation{Type: KindInfo, Message: "Multiple students appear bored. Change activity?"})
	}
	if confused > 0 {
		recs = append(recs, Recommendation{Type: KindAlert, Message: "Confusion detected. Check for understanding."})
	}

	if len(recs) == 0 && len(snap.People) > 0 {
		recs = append(recs, Recommendation{Type: KindSuccess, Message: "Engagement is optimal. Keep going!"})
	}
	return recs
}
