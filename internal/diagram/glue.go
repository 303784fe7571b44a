package diagram

import "fmt"

// Glue-point consistency graph. A glue point is a hyperedge over points
// from different objects; the operations below are the only way glue
// points are created, merged, split or destroyed. Each keeps the two
// invariants from the model: membership and the point→glue index never
// diverge, and a glue point either spans ≥2 points from ≥2 objects or
// ceases to exist.

// CreateGluePoint allocates a new glue point containing exactly the
// given points. The caller supplies the id; loaders pass persisted ids
// through, live edits generate one.
//
// Callers must have removed a point from its previous glue point before
// gluing it elsewhere; any stale index entry is overwritten.
func (d *Diagram) CreateGluePoint(id string, pointIDs []string) (*GluePoint, error) {
	if len(pointIDs) < 2 {
		return nil, fmt.Errorf("%w: glue point needs at least 2 points, got %d", ErrValidation, len(pointIDs))
	}
	if id == "" {
		return nil, fmt.Errorf("%w: glue point has no id", ErrValidation)
	}
	if _, ok := d.gluePoints[id]; ok {
		return nil, fmt.Errorf("%w: duplicate glue point id %s", ErrValidation, id)
	}

	members := make(map[string]struct{}, len(pointIDs))
	objects := make(map[string]struct{}, 2)
	for _, pid := range pointIDs {
		p, ok := d.pointsByID[pid]
		if !ok {
			return nil, fmt.Errorf("%w: point %s", ErrNotFound, pid)
		}
		members[pid] = struct{}{}
		objects[p.ObjectID] = struct{}{}
	}
	if len(objects) < 2 {
		return nil, fmt.Errorf("%w: glue point members must span at least 2 objects", ErrValidation)
	}

	g := &GluePoint{ID: id, Points: members}
	d.gluePoints[id] = g
	for pid := range members {
		d.glueIndex[pid] = id
	}
	return g, nil
}

// AddPointToGlue inserts a point into an existing glue point.
func (d *Diagram) AddPointToGlue(pointID, glueID string) error {
	g, ok := d.gluePoints[glueID]
	if !ok {
		return fmt.Errorf("%w: glue point %s", ErrNotFound, glueID)
	}
	p, ok := d.pointsByID[pointID]
	if !ok {
		return fmt.Errorf("%w: point %s", ErrNotFound, pointID)
	}
	if g.Has(pointID) {
		return fmt.Errorf("%w: point %s is already glued to %s", ErrValidation, pointID, glueID)
	}
	// Adding must leave the membership spanning ≥2 objects.
	if !d.spansTwoObjects(g, p.ObjectID) {
		return fmt.Errorf("%w: glue point %s would collapse to a single object", ErrValidation, glueID)
	}

	g.Points[pointID] = struct{}{}
	d.glueIndex[pointID] = glueID
	return nil
}

// RemovePointFromGlue removes a point from a glue point. When fewer
// than two members remain, or all remaining members belong to one
// object, the whole glue point is deleted and every surviving member's
// index entry cleared: a glue point is either a valid hyperedge or it
// does not exist.
func (d *Diagram) RemovePointFromGlue(pointID, glueID string) error {
	g, ok := d.gluePoints[glueID]
	if !ok {
		return fmt.Errorf("%w: glue point %s", ErrNotFound, glueID)
	}
	if !g.Has(pointID) {
		return fmt.Errorf("%w: point %s is not glued to %s", ErrNotFound, pointID, glueID)
	}

	delete(g.Points, pointID)
	delete(d.glueIndex, pointID)

	if len(g.Points) < 2 || !d.spansTwoObjects(g, "") {
		d.deleteGluePoint(g)
	}
	return nil
}

// RemoveGluePoint deletes a glue point outright, clearing all member
// index entries.
func (d *Diagram) RemoveGluePoint(glueID string) error {
	g, ok := d.gluePoints[glueID]
	if !ok {
		return fmt.Errorf("%w: glue point %s", ErrNotFound, glueID)
	}
	d.deleteGluePoint(g)
	return nil
}

// MergeGluePoints moves every point of src into dst, then deletes src.
// Used when two previously separate hyperedges become connected.
func (d *Diagram) MergeGluePoints(dstID, srcID string) error {
	if dstID == srcID {
		return fmt.Errorf("%w: cannot merge glue point %s with itself", ErrValidation, dstID)
	}
	src, ok := d.gluePoints[srcID]
	if !ok {
		return fmt.Errorf("%w: glue point %s", ErrNotFound, srcID)
	}
	if _, ok := d.gluePoints[dstID]; !ok {
		return fmt.Errorf("%w: glue point %s", ErrNotFound, dstID)
	}

	for pid := range src.Points {
		delete(src.Points, pid)
		delete(d.glueIndex, pid)
		if err := d.AddPointToGlue(pid, dstID); err != nil {
			return fmt.Errorf("merge %s into %s: %w", srcID, dstID, err)
		}
	}
	delete(d.gluePoints, srcID)
	return nil
}

// ToggleConnection is the user-facing connect/disconnect of two points.
//
//   - neither glued: create a new glue point for the pair
//   - exactly one glued: add the other into its glue point
//   - glued to different glue points: merge the hyperedges
//   - glued to the same glue point: disconnect a from the whole
//     hyperedge (not just from b), cascading per the removal rule
//
// The disconnect semantic deliberately removes one point rather than
// reconstructing pairwise connections minus the pair; the hyperedge
// representation only supports the former cleanly.
//
// newGlueID supplies the id for a glue point created by the first case
// and is ignored otherwise.
func (d *Diagram) ToggleConnection(pointA, pointB, newGlueID string) error {
	if pointA == pointB {
		return fmt.Errorf("%w: cannot connect a point to itself", ErrValidation)
	}
	if _, ok := d.pointsByID[pointA]; !ok {
		return fmt.Errorf("%w: point %s", ErrNotFound, pointA)
	}
	if _, ok := d.pointsByID[pointB]; !ok {
		return fmt.Errorf("%w: point %s", ErrNotFound, pointB)
	}

	glueA, hasA := d.glueIndex[pointA]
	glueB, hasB := d.glueIndex[pointB]

	switch {
	case !hasA && !hasB:
		_, err := d.CreateGluePoint(newGlueID, []string{pointA, pointB})
		return err
	case hasA && !hasB:
		return d.AddPointToGlue(pointB, glueA)
	case !hasA && hasB:
		return d.AddPointToGlue(pointA, glueB)
	case glueA != glueB:
		return d.MergeGluePoints(glueA, glueB)
	default:
		return d.RemovePointFromGlue(pointA, glueA)
	}
}

// GluePointFor returns the glue point a point belongs to, if any.
func (d *Diagram) GluePointFor(pointID string) (*GluePoint, bool) {
	glueID, ok := d.glueIndex[pointID]
	if !ok {
		return nil, false
	}
	g, ok := d.gluePoints[glueID]
	return g, ok
}

// GluedPoints returns the ids of all points glued to the given point,
// excluding the point itself. An unglued point yields nil.
func (d *Diagram) GluedPoints(pointID string) []string {
	g, ok := d.GluePointFor(pointID)
	if !ok {
		return nil
	}
	others := make([]string, 0, len(g.Points)-1)
	for pid := range g.Points {
		if pid != pointID {
			others = append(others, pid)
		}
	}
	return others
}

// GluePoints returns all glue points, keyed by id. Callers must not
// mutate the map.
func (d *Diagram) GluePoints() map[string]*GluePoint {
	return d.gluePoints
}

func (d *Diagram) deleteGluePoint(g *GluePoint) {
	for pid := range g.Points {
		delete(d.glueIndex, pid)
	}
	delete(d.gluePoints, g.ID)
}

// spansTwoObjects reports whether the glue point's members, plus the
// optional extra object, cover at least two distinct objects.
func (d *Diagram) spansTwoObjects(g *GluePoint, extraObjectID string) bool {
	objects := make(map[string]struct{}, 2)
	if extraObjectID != "" {
		objects[extraObjectID] = struct{}{}
	}
	for pid := range g.Points {
		if p, ok := d.pointsByID[pid]; ok {
			objects[p.ObjectID] = struct{}{}
		}
		if len(objects) >= 2 {
			return true
		}
	}
	return len(objects) >= 2
}
