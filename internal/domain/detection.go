package domain

// Detection is one face found in one frame. It lives for a single frame.
type Detection struct {
	BBox        BBox    `json:"bbox"`
	Emotion     Emotion `json:"emotion"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation,omitempty"`
}

// Track is an identity owned by the tracker collaborator.
type Track struct {
	ID              string `json:"id"`
	Box             Rect   `json:"box"`
	Confirmed       bool   `json:"confirmed"`
	TimeSinceUpdate int    `json:"time_since_update"`
}
