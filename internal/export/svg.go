// Package export renders a diagram to standalone SVG. The output is
// world-coordinate faithful: the viewBox is the diagram's bounding box
// plus a margin, so the exported image matches what the editor draws at
// scale 1.
package export

import (
	"fmt"
	"strings"

	"github.com/gridwire/gridwire/internal/diagram"
)

const viewMargin = 10.0

// SVG renders the diagram's objects in paint order. Polygons close
// their path; open polylines do not. Text objects render their content
// anchored at the first point.
func SVG(d *diagram.Diagram) string {
	bounds := d.Bounds()

	var b strings.Builder
	fmt.Fprintf(&b,
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="%g %g %g %g">`+"\n",
		bounds.X-viewMargin, bounds.Y-viewMargin,
		bounds.Width+2*viewMargin, bounds.Height+2*viewMargin,
	)

	for _, obj := range d.Objects() {
		if obj.IsText && obj.Text != "" {
			writeText(&b, obj)
			continue
		}
		writePath(&b, obj)
	}

	b.WriteString("</svg>\n")
	return b.String()
}

func writePath(b *strings.Builder, obj *diagram.Object) {
	if len(obj.Points) == 0 {
		return
	}

	var path strings.Builder
	for i, p := range obj.Points {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&path, "%s%g %g ", cmd, p.X, p.Y)
	}
	if obj.Polygon {
		path.WriteString("Z")
	}

	fill := "none"
	if obj.Polygon {
		fill = "#e8e8e8"
	}
	fmt.Fprintf(b,
		`  <path id=%q d=%q fill=%q stroke="#333" stroke-width="1"/>`+"\n",
		obj.ID, strings.TrimSpace(path.String()), fill,
	)
}

func writeText(b *strings.Builder, obj *diagram.Object) {
	if len(obj.Points) == 0 {
		return
	}
	anchor := obj.Points[0]
	fmt.Fprintf(b,
		`  <text id=%q x="%g" y="%g" font-size="12">%s</text>`+"\n",
		obj.ID, anchor.X, anchor.Y, escapeText(obj.Text),
	)
}

func escapeText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
