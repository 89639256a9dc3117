package expression

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rule is the label and confidence emitted by one branch of the decision order.
type Rule struct {
	Confidence  float64 `yaml:"confidence"`
	Explanation string  `yaml:"explanation"`
}

// Profile holds the geometric thresholds of the classifier. Ratios are
// normalised by face width.
type Profile struct {
	HappyEyeMin       float64 `yaml:"happy_eye_min"`
	HappyMouthMin     float64 `yaml:"happy_mouth_min"`
	BoredEyeMax       float64 `yaml:"bored_eye_max"`
	SurprisedMouthMin float64 `yaml:"surprised_mouth_min"`
	EngagedEyeMin     float64 `yaml:"engaged_eye_min"`

	Happy     Rule `yaml:"happy"`
	Bored     Rule `yaml:"bored"`
	Surprised Rule `yaml:"surprised"`
	Engaged   Rule `yaml:"engaged"`
	Neutral   Rule `yaml:"neutral"`

	// Fallback applies when a face carries too few landmarks to measure.
	Fallback Rule `yaml:"fallback"`

	// BoxMargin pads the landmark extent on every side, in pixels.
	BoxMargin int `yaml:"box_margin"`
}

// DefaultProfile returns the calibration the classifier ships with.
func DefaultProfile() Profile {
	return Profile{
		HappyEyeMin:       0.06,
		HappyMouthMin:     0.05,
		BoredEyeMax:       0.03,
		SurprisedMouthMin: 0.10,
		EngagedEyeMin:     0.05,

		Happy:     Rule{Confidence: 0.92, Explanation: "smiling"},
		Bored:     Rule{Confidence: 0.85, Explanation: "sleepy eyes"},
		Surprised: Rule{Confidence: 0.80, Explanation: "mouth open"},
		Engaged:   Rule{Confidence: 0.85, Explanation: "attentive"},
		Neutral:   Rule{Confidence: 0.75, Explanation: "baseline"},
		Fallback:  Rule{Confidence: 0.5, Explanation: "error"},

		BoxMargin: 10,
	}
}

// LoadProfile reads a YAML calibration file. Fields absent from the file keep
// their default values.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	// #nosec G304 -- path comes from operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read expression profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse expression profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid expression profile: %w", err)
	}
	return p, nil
}

// Validate checks that confidences are probabilities and thresholds are non-negative.
func (p Profile) Validate() error {
	for name, r := range map[string]Rule{
		"happy": p.Happy, "bored": p.Bored, "surprised": p.Surprised,
		"engaged": p.Engaged, "neutral": p.Neutral, "fallback": p.Fallback,
	} {
		if r.Confidence < 0 || r.Confidence > 1 {
			return fmt.Errorf("%s confidence %.2f outside [0,1]", name, r.Confidence)
		}
	}
	for name, v := range map[string]float64{
		"happy_eye_min": p.HappyEyeMin, "happy_mouth_min": p.HappyMouthMin,
		"bored_eye_max": p.BoredEyeMax, "surprised_mouth_min": p.SurprisedMouthMin,
		"engaged_eye_min": p.EngagedEyeMin,
	} {
		if v < 0 {
			return fmt.Errorf("%s must be >= 0", name)
		}
	}
	if p.BoxMargin < 0 {
		return fmt.Errorf("box_margin must be >= 0")
	}
	return nil
}
