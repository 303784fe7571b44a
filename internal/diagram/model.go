package diagram

import "github.com/gridwire/gridwire/internal/geom"

// Point is a single coordinate of a diagram object. Points are mutated
// in place: position updates never change identity.
type Point struct {
	ID string
	X  float64
	Y  float64
	Z  float64 // carried through persistence, unused geometrically

	// Seq is the point's position within its owning object's ordered
	// point list. Kept dense and 0-based after edits.
	Seq int

	// ObjectID is the non-owning back-reference to the parent object.
	// Resolution goes through the owning Diagram.
	ObjectID string
}

// Pos returns the point's position as a geometry value.
func (p *Point) Pos() geom.Point {
	return geom.Point{X: p.X, Y: p.Y}
}

// MoveBy translates the point in place.
func (p *Point) MoveBy(dx, dy float64) {
	p.X += dx
	p.Y += dy
}

// Object is a diagram object: a marker (single point), an open polyline,
// a closed polygon, or a text label. It owns its points exclusively.
type Object struct {
	ID string

	// Points sorted by Seq ascending.
	Points []*Point

	// DrawingOrder controls paint order among objects, independent of
	// point sequence.
	DrawingOrder int

	// Polygon marks a closed shape. Dropped as a side effect of point
	// deletion when fewer than 3 points remain, never independently.
	Polygon bool

	IsText bool
	Text   string
}

// GluePoint is a hyperedge over points from different objects: the
// members are treated as one logical connection for editing purposes
// without forcing identical coordinates.
//
// Invariant: a glue point always has at least two member points spanning
// at least two distinct objects, or it does not exist.
type GluePoint struct {
	ID     string
	Points map[string]struct{} // member point ids
}

// PointIDs returns the member point ids (unordered).
func (g *GluePoint) PointIDs() []string {
	ids := make([]string, 0, len(g.Points))
	for id := range g.Points {
		ids = append(ids, id)
	}
	return ids
}

// Has reports whether the point is a member of the glue point.
func (g *GluePoint) Has(pointID string) bool {
	_, ok := g.Points[pointID]
	return ok
}
