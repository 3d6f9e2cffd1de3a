package spatial

import "math"

// Rect is an axis-aligned rectangle described by its min and max corners.
// Edges are inclusive, so rectangles that merely touch intersect.
type Rect struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// RectAround returns the rectangle centred on (x, y) with the supplied half extents.
func RectAround(x, y, halfWidth, halfHeight float64) Rect {
	return Rect{MinX: x - halfWidth, MinY: y - halfHeight, MaxX: x + halfWidth, MaxY: y + halfHeight}
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Empty reports whether r encloses no area.
func (r Rect) Empty() bool { return !(r.Width() > 0 && r.Height() > 0) }

// Center reports the midpoint of the rectangle.
func (r Rect) Center() (float64, float64) {
	return (r.MinX + r.MaxX) / 2, (r.MinY + r.MaxY) / 2
}

// Intersects reports whether the two rectangles share at least one point.
func (r Rect) Intersects(other Rect) bool {
	return r.MinX <= other.MaxX && r.MaxX >= other.MinX && r.MinY <= other.MaxY && r.MaxY >= other.MinY
}

// Contains reports whether other lies entirely inside r.
func (r Rect) Contains(other Rect) bool {
	return other.MinX >= r.MinX && other.MaxX <= r.MaxX && other.MinY >= r.MinY && other.MaxY <= r.MaxY
}

// ContainsPoint reports whether the point lies inside r.
func (r Rect) ContainsPoint(x, y float64) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

// Normalized swaps inverted edges and collapses NaN coordinates so the
// rectangle can be compared safely.
func (r Rect) Normalized() Rect {
	r.MinX = finiteOr(r.MinX, 0)
	r.MinY = finiteOr(r.MinY, 0)
	r.MaxX = finiteOr(r.MaxX, r.MinX)
	r.MaxY = finiteOr(r.MaxY, r.MinY)
	if r.MinX > r.MaxX {
		r.MinX, r.MaxX = r.MaxX, r.MinX
	}
	if r.MinY > r.MaxY {
		r.MinY, r.MaxY = r.MaxY, r.MinY
	}
	return r
}

// ClampInto projects r onto bounds edge by edge. The projection is monotone,
// so two rectangles that intersect still intersect after clamping.
func (r Rect) ClampInto(bounds Rect) Rect {
	return Rect{
		MinX: clamp(r.MinX, bounds.MinX, bounds.MaxX),
		MinY: clamp(r.MinY, bounds.MinY, bounds.MaxY),
		MaxX: clamp(r.MaxX, bounds.MinX, bounds.MaxX),
		MaxY: clamp(r.MaxY, bounds.MinY, bounds.MaxY),
	}
}

// ClampPoint moves (x, y) inside r shrunk by margin on every side. When the
// margin exceeds half the rectangle the point is pinned to the centre axis.
func (r Rect) ClampPoint(x, y, margin float64) (float64, float64) {
	minX, maxX := r.MinX+margin, r.MaxX-margin
	if minX > maxX {
		minX = (r.MinX + r.MaxX) / 2
		maxX = minX
	}
	minY, maxY := r.MinY+margin, r.MaxY-margin
	if minY > maxY {
		minY = (r.MinY + r.MaxY) / 2
		maxY = minY
	}
	return clamp(x, minX, maxX), clamp(y, minY, maxY)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) {
		return fallback
	}
	return v
}
