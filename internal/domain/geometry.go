package domain

import "math"

// BBox is a detection box in frame pixels: left, top, width, height.
type BBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Center returns the box center point.
func (b BBox) Center() (float64, float64) {
	return float64(b.X) + float64(b.W)/2, float64(b.Y) + float64(b.H)/2
}

// Rect is a tracker box: left, top, right, bottom.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// RectFromBBox converts a left/top/width/height box into a Rect.
func RectFromBBox(b BBox) Rect {
	return Rect{
		Left:   float64(b.X),
		Top:    float64(b.Y),
		Right:  float64(b.X + b.W),
		Bottom: float64(b.Y + b.H),
	}
}

// Center returns the rectangle center point.
func (r Rect) Center() (float64, float64) {
	return (r.Left + r.Right) / 2, (r.Top + r.Bottom) / 2
}

// Area returns the rectangle area, 0 for degenerate rectangles.
func (r Rect) Area() float64 {
	w := r.Right - r.Left
	h := r.Bottom - r.Top
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// IoU returns the intersection-over-union of two rectangles.
func (r Rect) IoU(o Rect) float64 {
	inter := Rect{
		Left:   math.Max(r.Left, o.Left),
		Top:    math.Max(r.Top, o.Top),
		Right:  math.Min(r.Right, o.Right),
		Bottom: math.Min(r.Bottom, o.Bottom),
	}.Area()
	if inter == 0 {
		return 0
	}
	return inter / (r.Area() + o.Area() - inter)
}

// Ints returns the rectangle truncated to integer pixels as [left, top, right, bottom].
func (r Rect) Ints() [4]int {
	return [4]int{int(r.Left), int(r.Top), int(r.Right), int(r.Bottom)}
}
