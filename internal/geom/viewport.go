package geom

import "math"

// hitRadiusExponent makes hit thresholds shrink sub-linearly with zoom,
// so targets stay clickable at high magnification without growing huge
// in world units at low magnification.
const hitRadiusExponent = -0.3

// Viewport is the world↔screen transform: world coordinates are scaled
// by Scale and then shifted by the screen-space offset.
type Viewport struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// NewViewport returns an identity viewport (scale 1, no offset).
func NewViewport() Viewport {
	return Viewport{Scale: 1}
}

// WorldToScreen converts a world-space point to screen space.
func (v Viewport) WorldToScreen(p Point) Point {
	return Point{
		X: p.X*v.Scale + v.OffsetX,
		Y: p.Y*v.Scale + v.OffsetY,
	}
}

// ScreenToWorld converts a screen-space point to world space.
// A zero scale is treated as identity to avoid dividing by zero on
// uninitialized viewports.
func (v Viewport) ScreenToWorld(p Point) Point {
	scale := v.Scale
	if scale == 0 {
		scale = 1
	}
	return Point{
		X: (p.X - v.OffsetX) / scale,
		Y: (p.Y - v.OffsetY) / scale,
	}
}

// PanBy shifts the viewport by a screen-space delta.
func (v Viewport) PanBy(dx, dy float64) Viewport {
	v.OffsetX += dx
	v.OffsetY += dy
	return v
}

// HitRadius returns the world-space hit-test radius for the given base
// screen threshold at the viewport's current zoom level:
// radius = base × scale^(-0.3).
func (v Viewport) HitRadius(base float64) float64 {
	scale := v.Scale
	if scale <= 0 {
		scale = 1
	}
	return base * math.Pow(scale, hitRadiusExponent)
}
