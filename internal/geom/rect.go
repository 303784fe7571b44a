package geom

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// FromCorners builds the normalized rect spanning two opposite corners,
// in any order. Used for rubber-band selection rectangles.
func FromCorners(a, b Point) Rect {
	minX := min(a.X, b.X)
	minY := min(a.Y, b.Y)
	return Rect{
		X:      minX,
		Y:      minY,
		Width:  max(a.X, b.X) - minX,
		Height: max(a.Y, b.Y) - minY,
	}
}

// Contains checks if a point is inside the rect (borders inclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// ExpandToInclude grows the rect to contain p. A zero rect anchored at
// origin is treated as unset only by callers that track it separately;
// use BoundsOf for whole point sets.
func (r Rect) ExpandToInclude(p Point) Rect {
	minX := min(r.X, p.X)
	minY := min(r.Y, p.Y)
	maxX := max(r.X+r.Width, p.X)
	maxY := max(r.Y+r.Height, p.Y)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// BoundsOf returns the AABB of a point set. An empty set yields the
// degenerate zero rect.
func BoundsOf(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	r := Rect{X: points[0].X, Y: points[0].Y}
	for _, p := range points[1:] {
		r = r.ExpandToInclude(p)
	}
	return r
}

// Center returns the center point of the rect.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}
