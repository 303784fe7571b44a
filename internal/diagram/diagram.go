package diagram

import (
	"fmt"
	"sort"

	"github.com/gridwire/gridwire/internal/geom"
)

// Diagram is the aggregate root for one loaded diagram. It owns all
// objects, all points (flattened in insertion order for linear nearest
// searches), all glue points and the point→glue index. A diagram is
// created on load and replaced wholesale on reload; it is never merged
// incrementally with remote state.
type Diagram struct {
	ID string

	objects     []*Object
	objectsByID map[string]*Object

	points     []*Point
	pointsByID map[string]*Point

	gluePoints map[string]*GluePoint

	// glueIndex maps a point id to the id of the single glue point it
	// belongs to. For every glue point g and member p: glueIndex[p] == g.ID,
	// and every key names a current member. Holds after every mutation,
	// never just eventually.
	glueIndex map[string]string

	// textObjects lists ids of text objects with non-empty content, in
	// insertion order, for the text rendering layer.
	textObjects []string
}

// New creates an empty diagram aggregate.
func New(id string) *Diagram {
	return &Diagram{
		ID:          id,
		objectsByID: make(map[string]*Object),
		pointsByID:  make(map[string]*Point),
		gluePoints:  make(map[string]*GluePoint),
		glueIndex:   make(map[string]string),
	}
}

// AddObject appends an object to the diagram. Text objects with
// non-empty content are also indexed for text rendering.
func (d *Diagram) AddObject(obj *Object) error {
	if obj.ID == "" {
		return fmt.Errorf("%w: object has no id", ErrValidation)
	}
	if _, ok := d.objectsByID[obj.ID]; ok {
		return fmt.Errorf("%w: duplicate object id %s", ErrValidation, obj.ID)
	}

	d.objects = append(d.objects, obj)
	d.objectsByID[obj.ID] = obj

	if obj.IsText && obj.Text != "" {
		d.textObjects = append(d.textObjects, obj.ID)
	}

	for _, p := range obj.Points {
		p.ObjectID = obj.ID
		if err := d.indexPoint(p); err != nil {
			return err
		}
	}
	sortPointsBySeq(obj.Points)
	return nil
}

// AddPoint attaches a point to an existing object, keeping the object's
// point list ordered by sequence number.
func (d *Diagram) AddPoint(objectID string, p *Point) error {
	obj, ok := d.objectsByID[objectID]
	if !ok {
		return fmt.Errorf("%w: object %s", ErrNotFound, objectID)
	}
	p.ObjectID = objectID
	if err := d.indexPoint(p); err != nil {
		return err
	}

	// Ordered insert by Seq; ties are not expected, insertion order
	// within a sequence number is irrelevant.
	at := sort.Search(len(obj.Points), func(i int) bool {
		return obj.Points[i].Seq > p.Seq
	})
	obj.Points = append(obj.Points, nil)
	copy(obj.Points[at+1:], obj.Points[at:])
	obj.Points[at] = p
	return nil
}

func (d *Diagram) indexPoint(p *Point) error {
	if p.ID == "" {
		return fmt.Errorf("%w: point has no id", ErrValidation)
	}
	if _, ok := d.pointsByID[p.ID]; ok {
		return fmt.Errorf("%w: duplicate point id %s", ErrValidation, p.ID)
	}
	d.points = append(d.points, p)
	d.pointsByID[p.ID] = p
	return nil
}

// RemovePoint detaches a point from the diagram entirely: from its
// owning object, the flattened list, and (cascading) from any glue
// point it belongs to. Sequence renumbering is the caller's concern.
func (d *Diagram) RemovePoint(pointID string) error {
	p, ok := d.pointsByID[pointID]
	if !ok {
		return fmt.Errorf("%w: point %s", ErrNotFound, pointID)
	}

	if glueID, glued := d.glueIndex[pointID]; glued {
		if err := d.RemovePointFromGlue(pointID, glueID); err != nil {
			return err
		}
	}

	if obj, ok := d.objectsByID[p.ObjectID]; ok {
		for i, op := range obj.Points {
			if op.ID == pointID {
				obj.Points = append(obj.Points[:i], obj.Points[i+1:]...)
				break
			}
		}
	}

	for i, fp := range d.points {
		if fp.ID == pointID {
			d.points = append(d.points[:i], d.points[i+1:]...)
			break
		}
	}
	delete(d.pointsByID, pointID)
	return nil
}

// SortObjects stable-sorts objects by drawing order ascending. Must be
// called after any drawing-order change or bulk load, before first render.
func (d *Diagram) SortObjects() {
	sort.SliceStable(d.objects, func(i, j int) bool {
		return d.objects[i].DrawingOrder < d.objects[j].DrawingOrder
	})
}

// Objects returns the objects in paint order. Callers must not modify
// the slice.
func (d *Diagram) Objects() []*Object {
	return d.objects
}

// Object resolves an object by id.
func (d *Diagram) Object(id string) (*Object, bool) {
	obj, ok := d.objectsByID[id]
	return obj, ok
}

// Point resolves a point by id.
func (d *Diagram) Point(id string) (*Point, bool) {
	p, ok := d.pointsByID[id]
	return p, ok
}

// Points returns all points in insertion order. Callers must not modify
// the slice.
func (d *Diagram) Points() []*Point {
	return d.points
}

// TextObjects returns the ids of text objects indexed for rendering.
func (d *Diagram) TextObjects() []string {
	return d.textObjects
}

// FindPointNear returns the single closest point within radius of pos,
// or nil. Squared-distance compare; ties go to the first point in
// insertion order. Linear scan — fine at the scale of hand-edited
// diagrams.
func (d *Diagram) FindPointNear(pos geom.Point, radius float64) *Point {
	var best *Point
	bestDist := radius * radius
	for _, p := range d.points {
		if dist := pos.DistanceSquared(p.Pos()); dist < bestDist || (best == nil && dist == bestDist) {
			best = p
			bestDist = dist
		}
	}
	return best
}

// Bounds returns the axis-aligned bounding box over all points. An
// empty diagram yields the degenerate zero rect, not an error.
func (d *Diagram) Bounds() geom.Rect {
	if len(d.points) == 0 {
		return geom.Rect{}
	}
	r := geom.Rect{X: d.points[0].X, Y: d.points[0].Y}
	for _, p := range d.points[1:] {
		r = r.ExpandToInclude(p.Pos())
	}
	return r
}

func sortPointsBySeq(points []*Point) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Seq < points[j].Seq
	})
}

// RenumberPoints rewrites the object's sequence numbers to a dense
// 0-based ascending run, preserving current order.
func (o *Object) RenumberPoints() {
	for i, p := range o.Points {
		p.Seq = i
	}
}
