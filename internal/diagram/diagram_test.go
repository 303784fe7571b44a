package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwire/gridwire/internal/geom"
)

func newPoint(id string, x, y float64, seq int) *Point {
	return &Point{ID: id, X: x, Y: y, Seq: seq}
}

// requireConsistentIndex asserts the bidirectional glue index invariant:
// every glue point is a valid ≥2-point, ≥2-object hyperedge whose members
// all map back to it, and every index entry names a current member.
func requireConsistentIndex(t *testing.T, d *Diagram) {
	t.Helper()
	for id, g := range d.GluePoints() {
		require.GreaterOrEqual(t, len(g.Points), 2, "glue point %s has fewer than 2 points", id)
		objects := map[string]struct{}{}
		for pid := range g.Points {
			p, ok := d.Point(pid)
			require.True(t, ok, "glue point %s references missing point %s", id, pid)
			objects[p.ObjectID] = struct{}{}
			glued, ok := d.GluePointFor(pid)
			require.True(t, ok, "member %s of %s missing from index", pid, id)
			require.Equal(t, id, glued.ID, "member %s of %s indexed to %s", pid, id, glued.ID)
		}
		require.GreaterOrEqual(t, len(objects), 2, "glue point %s spans a single object", id)
	}
	for _, p := range d.Points() {
		if g, ok := d.GluePointFor(p.ID); ok {
			require.True(t, g.Has(p.ID), "index entry for %s names non-member glue point", p.ID)
		}
	}
}

func TestAddObjectIndexesPoints(t *testing.T) {
	d := New("diag_1")

	obj := &Object{ID: "obj_a", Points: []*Point{
		newPoint("pt_2", 1, 1, 1),
		newPoint("pt_1", 0, 0, 0),
	}}
	require.NoError(t, d.AddObject(obj))

	// Points sorted by sequence number, back-references set.
	assert.Equal(t, "pt_1", obj.Points[0].ID)
	assert.Equal(t, "pt_2", obj.Points[1].ID)
	for _, p := range obj.Points {
		assert.Equal(t, "obj_a", p.ObjectID)
	}

	p, ok := d.Point("pt_1")
	require.True(t, ok)
	assert.Equal(t, 0.0, p.X)

	assert.ErrorIs(t, d.AddObject(&Object{ID: "obj_a"}), ErrValidation)
}

func TestAddPointOrderedInsert(t *testing.T) {
	d := New("diag_1")
	require.NoError(t, d.AddObject(&Object{ID: "obj_a", Points: []*Point{
		newPoint("pt_1", 0, 0, 0),
		newPoint("pt_3", 2, 0, 2),
	}}))

	require.NoError(t, d.AddPoint("obj_a", newPoint("pt_2", 1, 0, 1)))

	obj, _ := d.Object("obj_a")
	ids := []string{}
	for _, p := range obj.Points {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"pt_1", "pt_2", "pt_3"}, ids)

	assert.ErrorIs(t, d.AddPoint("obj_missing", newPoint("pt_9", 0, 0, 0)), ErrNotFound)
	assert.ErrorIs(t, d.AddPoint("obj_a", newPoint("pt_2", 5, 5, 5)), ErrValidation)
}

func TestTextObjectIndexing(t *testing.T) {
	d := New("diag_1")
	require.NoError(t, d.AddObject(&Object{ID: "obj_label", IsText: true, Text: "pump 4"}))
	require.NoError(t, d.AddObject(&Object{ID: "obj_empty", IsText: true}))
	require.NoError(t, d.AddObject(&Object{ID: "obj_line"}))

	assert.Equal(t, []string{"obj_label"}, d.TextObjects())
}

func TestSortObjectsStable(t *testing.T) {
	d := New("diag_1")
	require.NoError(t, d.AddObject(&Object{ID: "obj_c", DrawingOrder: 2}))
	require.NoError(t, d.AddObject(&Object{ID: "obj_a", DrawingOrder: 1}))
	require.NoError(t, d.AddObject(&Object{ID: "obj_b", DrawingOrder: 1}))

	d.SortObjects()

	ids := []string{}
	for _, o := range d.Objects() {
		ids = append(ids, o.ID)
	}
	// Equal drawing orders keep insertion order.
	assert.Equal(t, []string{"obj_a", "obj_b", "obj_c"}, ids)
}

func TestFindPointNear(t *testing.T) {
	d := New("diag_1")
	require.NoError(t, d.AddObject(&Object{ID: "obj_a", Points: []*Point{
		newPoint("pt_1", 0, 0, 0),
		newPoint("pt_2", 10, 0, 1),
	}}))

	hit := d.FindPointNear(geom.Pt(1, 1), 3)
	require.NotNil(t, hit)
	assert.Equal(t, "pt_1", hit.ID)

	assert.Nil(t, d.FindPointNear(geom.Pt(5, 5), 2))

	// Equidistant candidates resolve to the first in insertion order.
	tie := d.FindPointNear(geom.Pt(5, 0), 6)
	require.NotNil(t, tie)
	assert.Equal(t, "pt_1", tie.ID)
}

func TestBounds(t *testing.T) {
	d := New("diag_1")
	assert.Equal(t, geom.Rect{}, d.Bounds())

	require.NoError(t, d.AddObject(&Object{ID: "obj_a", Points: []*Point{
		newPoint("pt_1", -2, 4, 0),
		newPoint("pt_2", 6, -1, 1),
	}}))
	assert.Equal(t, geom.Rect{X: -2, Y: -1, Width: 8, Height: 5}, d.Bounds())
}

func TestRemovePointCascadesGlue(t *testing.T) {
	d := glueFixture(t)
	require.NoError(t, d.ToggleConnection("pt_a1", "pt_b1", "glue_1"))

	require.NoError(t, d.RemovePoint("pt_a1"))

	_, ok := d.Point("pt_a1")
	assert.False(t, ok)
	// The pair glue point collapsed below 2 members and is gone.
	assert.Empty(t, d.GluePoints())
	requireConsistentIndex(t, d)

	assert.ErrorIs(t, d.RemovePoint("pt_a1"), ErrNotFound)
}
