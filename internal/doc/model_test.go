package doc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDocument() *Document {
	return &Document{
		ID: "diag_test",
		Objects: []ObjectRecord{
			{
				ID:           "obj_a",
				DrawingOrder: 2,
				Polygon:      true,
				Points: []PointRecord{
					{ID: "pt_a1", X: 0, Y: 0, Seq: 0},
					{ID: "pt_a2", X: 10, Y: 0, Seq: 1},
					{ID: "pt_a3", X: 10, Y: 10, Seq: 2},
				},
			},
			{
				ID:           "obj_b",
				DrawingOrder: 1,
				IsText:       true,
				Text:         "label",
				Points: []PointRecord{
					{ID: "pt_b1", X: 20, Y: 20, Seq: 0},
					{ID: "pt_b2", X: 30, Y: 20, Seq: 1},
				},
			},
		},
		GluePoints: []GluePointRecord{
			{ID: "glue_1", PointIDs: []string{"pt_a1", "pt_b1"}},
		},
	}
}

func TestToDiagramBuildsAggregate(t *testing.T) {
	d, err := validDocument().ToDiagram()
	require.NoError(t, err)

	assert.Equal(t, "diag_test", d.ID)
	require.Len(t, d.Objects(), 2)
	// Objects come out sorted by drawing order.
	assert.Equal(t, "obj_b", d.Objects()[0].ID)
	assert.Equal(t, "obj_a", d.Objects()[1].ID)

	g, ok := d.GluePointFor("pt_a1")
	require.True(t, ok)
	assert.True(t, g.Has("pt_b1"))
	assert.Equal(t, []string{"pt_b1"}, d.GluedPoints("pt_a1"))
}

func TestToDiagramRejectsMalformedDocuments(t *testing.T) {
	cases := map[string]func(*Document){
		"missing document id": func(d *Document) { d.ID = "" },
		"missing object id":   func(d *Document) { d.Objects[0].ID = "" },
		"missing point id":    func(d *Document) { d.Objects[0].Points[0].ID = "" },
		"duplicate point id":  func(d *Document) { d.Objects[1].Points[0].ID = "pt_a1" },
		"missing glue id":     func(d *Document) { d.GluePoints[0].ID = "" },
		"dangling glue ref": func(d *Document) {
			d.GluePoints[0].PointIDs = []string{"pt_a1", "pt_nowhere"}
		},
		"single-member glue": func(d *Document) {
			d.GluePoints[0].PointIDs = []string{"pt_a1"}
		},
		"single-object glue": func(d *Document) {
			d.GluePoints[0].PointIDs = []string{"pt_a1", "pt_a2"}
		},
	}

	for name, corrupt := range cases {
		t.Run(name, func(t *testing.T) {
			doc := validDocument()
			corrupt(doc)
			_, err := doc.ToDiagram()
			assert.ErrorIs(t, err, ErrLoad)
		})
	}
}

func TestFromDiagramRoundTrip(t *testing.T) {
	original := validDocument()
	d, err := original.ToDiagram()
	require.NoError(t, err)

	captured := FromDiagram(d)
	assert.Equal(t, original.ID, captured.ID)
	require.Len(t, captured.Objects, 2)
	require.Len(t, captured.GluePoints, 1)
	assert.ElementsMatch(t, []string{"pt_a1", "pt_b1"}, captured.GluePoints[0].PointIDs)

	// The capture loads back to an equivalent aggregate.
	d2, err := captured.ToDiagram()
	require.NoError(t, err)
	assert.Len(t, d2.Points(), len(d.Points()))
	p, ok := d2.Point("pt_a3")
	require.True(t, ok)
	assert.Equal(t, 10.0, p.X)
	assert.True(t, d2.Objects()[1].Polygon)
}

func TestNewEmptyDocument(t *testing.T) {
	doc := NewEmptyDocument("diag_new")
	d, err := doc.ToDiagram()
	require.NoError(t, err)
	assert.Empty(t, d.Objects())
	assert.Empty(t, d.GluePoints())
}
