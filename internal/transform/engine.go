// Package transform computes new positions for selected point sets:
// rotation and mirroring about the selection centroid, glue-propagating
// translation, and the point insert/delete edits that keep object
// sequence numbers dense.
package transform

import (
	"fmt"
	"math"

	"github.com/gridwire/gridwire/internal/diagram"
	"github.com/gridwire/gridwire/internal/geom"
)

// Engine operates on the live diagram aggregate by reference. It holds
// no state of its own; every call resolves the current aggregate so a
// reload can swap the diagram out from under it safely.
type Engine struct {
	diagram func() *diagram.Diagram
}

// New creates an engine over a diagram source. The indirection matters:
// the aggregate is replaced wholesale on reload.
func New(source func() *diagram.Diagram) *Engine {
	return &Engine{diagram: source}
}

// resolve maps the selection to live points, failing on empty input or
// stale ids.
func (e *Engine) resolve(selection []string) ([]*diagram.Point, error) {
	if len(selection) == 0 {
		return nil, fmt.Errorf("%w: empty selection", diagram.ErrValidation)
	}
	d := e.diagram()
	points := make([]*diagram.Point, 0, len(selection))
	for _, id := range selection {
		p, ok := d.Point(id)
		if !ok {
			return nil, fmt.Errorf("%w: point %s", diagram.ErrNotFound, id)
		}
		points = append(points, p)
	}
	return points, nil
}

// Centroid returns the arithmetic mean position of the selected points
// only — glued-but-unselected points do not contribute.
func (e *Engine) Centroid(selection []string) (geom.Point, error) {
	points, err := e.resolve(selection)
	if err != nil {
		return geom.Point{}, err
	}
	positions := make([]geom.Point, len(points))
	for i, p := range points {
		positions[i] = p.Pos()
	}
	return geom.Centroid(positions), nil
}

// Rotate turns the selected points by degrees around their centroid.
// Positive degrees rotate visually clockwise in the y-down world
// coordinate system. Rotation does not expand through the glue graph.
func (e *Engine) Rotate(selection []string, degrees float64) error {
	points, err := e.resolve(selection)
	if err != nil {
		return err
	}
	center, err := e.Centroid(selection)
	if err != nil {
		return err
	}
	radians := degrees * math.Pi / 180.0
	for _, p := range points {
		moved := p.Pos().RotateAround(center, radians)
		p.X = moved.X
		p.Y = moved.Y
	}
	return nil
}

// MirrorHorizontal reflects the selected points across the vertical
// axis through their centroid. No glue expansion.
func (e *Engine) MirrorHorizontal(selection []string) error {
	points, err := e.resolve(selection)
	if err != nil {
		return err
	}
	center, err := e.Centroid(selection)
	if err != nil {
		return err
	}
	for _, p := range points {
		p.X = 2*center.X - p.X
	}
	return nil
}

// MirrorVertical reflects the selected points across the horizontal
// axis through their centroid. No glue expansion.
func (e *Engine) MirrorVertical(selection []string) error {
	points, err := e.resolve(selection)
	if err != nil {
		return err
	}
	center, err := e.Centroid(selection)
	if err != nil {
		return err
	}
	for _, p := range points {
		p.Y = 2*center.Y - p.Y
	}
	return nil
}

// ExpandThroughGlue returns the union of the given point ids and every
// point glued to any of them, de-duplicated. Order: the given ids first,
// then glued additions.
func (e *Engine) ExpandThroughGlue(pointIDs []string) []string {
	d := e.diagram()
	seen := make(map[string]struct{}, len(pointIDs))
	expanded := make([]string, 0, len(pointIDs))
	add := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			expanded = append(expanded, id)
		}
	}
	for _, id := range pointIDs {
		add(id)
	}
	for _, id := range pointIDs {
		for _, glued := range d.GluedPoints(id) {
			add(glued)
		}
	}
	return expanded
}

// TranslateByDelta moves the given points and, unlike rotation and
// mirroring, silently carries along every point glued to a moved point.
// Returns the expanded set of point ids that actually moved.
func (e *Engine) TranslateByDelta(pointIDs []string, dx, dy float64) ([]string, error) {
	if len(pointIDs) == 0 {
		return nil, fmt.Errorf("%w: empty selection", diagram.ErrValidation)
	}
	expanded := e.ExpandThroughGlue(pointIDs)
	points, err := e.resolve(expanded)
	if err != nil {
		return nil, err
	}
	for _, p := range points {
		p.MoveBy(dx, dy)
	}
	return expanded, nil
}

// InsertPoint adds a new point to an object at the given index in its
// point sequence (0 = before the first point, len = append), then
// renumbers the whole object densely.
func (e *Engine) InsertPoint(objectID, pointID string, index int, x, y float64) (*diagram.Point, error) {
	d := e.diagram()
	obj, ok := d.Object(objectID)
	if !ok {
		return nil, fmt.Errorf("%w: object %s", diagram.ErrNotFound, objectID)
	}
	if index < 0 || index > len(obj.Points) {
		return nil, fmt.Errorf("%w: insert index %d out of range [0,%d]", diagram.ErrValidation, index, len(obj.Points))
	}

	// Seq just past the end keeps the diagram's ordered insert stable;
	// the renumber below assigns the real sequence numbers.
	p := &diagram.Point{ID: pointID, X: x, Y: y, Seq: len(obj.Points)}
	if err := d.AddPoint(objectID, p); err != nil {
		return nil, err
	}

	// Shift into position, then renumber 0..n-1.
	for i := len(obj.Points) - 1; i > index; i-- {
		obj.Points[i] = obj.Points[i-1]
	}
	obj.Points[index] = p
	obj.RenumberPoints()
	return p, nil
}

// DeletePoint removes a point from its object. Deleting the first or
// last point of an open polyline is rejected: lines always keep their
// endpoints. Glue membership cascades out, remaining points are
// renumbered densely, and a polygon dropping below 3 points loses its
// Polygon flag.
func (e *Engine) DeletePoint(pointID string) error {
	d := e.diagram()
	p, ok := d.Point(pointID)
	if !ok {
		return fmt.Errorf("%w: point %s", diagram.ErrNotFound, pointID)
	}
	obj, ok := d.Object(p.ObjectID)
	if !ok {
		return fmt.Errorf("%w: object %s", diagram.ErrNotFound, p.ObjectID)
	}

	if !obj.Polygon && len(obj.Points) > 1 {
		if obj.Points[0].ID == pointID || obj.Points[len(obj.Points)-1].ID == pointID {
			return fmt.Errorf("%w: cannot delete an endpoint of an open line", diagram.ErrValidation)
		}
	}

	if err := d.RemovePoint(pointID); err != nil {
		return err
	}
	obj.RenumberPoints()

	if obj.Polygon && len(obj.Points) < 3 {
		obj.Polygon = false
	}
	return nil
}
