package scape

import "math"

// Rect is an axis-aligned box in screen coordinates (y grows downward).
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Intersects reports strict overlap; touching edges and empty boxes never
// intersect.
func (r Rect) Intersects(o Rect) bool {
	if r.W <= 0 || r.H <= 0 || o.W <= 0 || o.H <= 0 {
		return false
	}
	return r.X < o.Right() && r.Right() > o.X && r.Y < o.Bottom() && r.Bottom() > o.Y
}

// Pixel truncates the origin to whole pixels, keeping the size.
func (r Rect) Pixel() Rect {
	return Rect{X: pixel(r.X), Y: pixel(r.Y), W: r.W, H: r.H}
}

// pixel truncates toward zero the way integer pixel rects do.
func pixel(v float64) float64 {
	return math.Trunc(v)
}
