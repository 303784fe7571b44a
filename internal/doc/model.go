// Package doc defines the wire representation of a diagram as stored in
// snapshots and shipped to editing clients, plus the strongly-typed
// conversion into the live aggregate. All parsing and validation happens
// here, at the load boundary; the aggregate's constructors stay free of
// parsing concerns.
package doc

import (
	"errors"
	"fmt"

	"github.com/gridwire/gridwire/internal/diagram"
)

// ErrLoad marks a malformed or internally inconsistent wire document.
var ErrLoad = errors.New("diagram load failed")

type Document struct {
	ID         string            `json:"id"`
	Objects    []ObjectRecord    `json:"objects"`
	GluePoints []GluePointRecord `json:"gluePoints"`
}

type ObjectRecord struct {
	ID           string        `json:"id"`
	DrawingOrder int           `json:"drawingOrder"`
	Polygon      bool          `json:"polygon"`
	IsText       bool          `json:"isText"`
	Text         string        `json:"text,omitempty"`
	Points       []PointRecord `json:"points"`
}

type PointRecord struct {
	ID  string  `json:"id"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Z   float64 `json:"z,omitempty"`
	Seq int     `json:"seq"`
}

type GluePointRecord struct {
	ID       string   `json:"id"`
	PointIDs []string `json:"pointIds"`
}

// ToDiagram validates the document and builds a live aggregate. Glue
// points are rebuilt through the consistency graph, so the point→glue
// index is consistent by construction; any violation of the glue
// invariants in the stored data is a load failure, not a tolerated
// state.
func (doc *Document) ToDiagram() (*diagram.Diagram, error) {
	if doc.ID == "" {
		return nil, fmt.Errorf("%w: document has no id", ErrLoad)
	}

	d := diagram.New(doc.ID)
	for _, rec := range doc.Objects {
		if rec.ID == "" {
			return nil, fmt.Errorf("%w: object record has no id", ErrLoad)
		}
		obj := &diagram.Object{
			ID:           rec.ID,
			DrawingOrder: rec.DrawingOrder,
			Polygon:      rec.Polygon,
			IsText:       rec.IsText,
			Text:         rec.Text,
		}
		for _, pr := range rec.Points {
			if pr.ID == "" {
				return nil, fmt.Errorf("%w: point record in object %s has no id", ErrLoad, rec.ID)
			}
			obj.Points = append(obj.Points, &diagram.Point{
				ID: pr.ID, X: pr.X, Y: pr.Y, Z: pr.Z, Seq: pr.Seq,
			})
		}
		if err := d.AddObject(obj); err != nil {
			return nil, fmt.Errorf("%w: object %s: %v", ErrLoad, rec.ID, err)
		}
	}

	for _, rec := range doc.GluePoints {
		if rec.ID == "" {
			return nil, fmt.Errorf("%w: glue point record has no id", ErrLoad)
		}
		if _, err := d.CreateGluePoint(rec.ID, rec.PointIDs); err != nil {
			return nil, fmt.Errorf("%w: glue point %s: %v", ErrLoad, rec.ID, err)
		}
	}

	d.SortObjects()
	return d, nil
}

// FromDiagram captures the aggregate as a wire document, suitable for
// snapshot persistence and doc.sync broadcasts.
func FromDiagram(d *diagram.Diagram) *Document {
	doc := &Document{ID: d.ID}
	for _, obj := range d.Objects() {
		rec := ObjectRecord{
			ID:           obj.ID,
			DrawingOrder: obj.DrawingOrder,
			Polygon:      obj.Polygon,
			IsText:       obj.IsText,
			Text:         obj.Text,
		}
		for _, p := range obj.Points {
			rec.Points = append(rec.Points, PointRecord{
				ID: p.ID, X: p.X, Y: p.Y, Z: p.Z, Seq: p.Seq,
			})
		}
		doc.Objects = append(doc.Objects, rec)
	}
	for _, g := range d.GluePoints() {
		doc.GluePoints = append(doc.GluePoints, GluePointRecord{
			ID:       g.ID,
			PointIDs: g.PointIDs(),
		})
	}
	return doc
}

// NewEmptyDocument seeds the snapshot for a freshly created diagram.
func NewEmptyDocument(diagramID string) *Document {
	return &Document{
		ID:         diagramID,
		Objects:    []ObjectRecord{},
		GluePoints: []GluePointRecord{},
	}
}
