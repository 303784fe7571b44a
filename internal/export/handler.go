package export

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/gridwire/gridwire/internal/diagram"
	"github.com/gridwire/gridwire/internal/doc"
)

// DiagramLoader matches the session package's loader; the handler
// renders from the latest persisted snapshot, not live session state.
type DiagramLoader interface {
	Load(ctx context.Context, diagramID string) (*diagram.Diagram, error)
}

type Handler struct {
	loader DiagramLoader
}

func NewHandler(loader DiagramLoader) *Handler {
	return &Handler{loader: loader}
}

// ExportSVG serves the diagram as image/svg+xml.
func (h *Handler) ExportSVG(w http.ResponseWriter, r *http.Request) {
	diagramID := mux.Vars(r)["diagramId"]

	d, err := h.loader.Load(r.Context(), diagramID)
	if err != nil {
		if errors.Is(err, doc.ErrLoad) {
			http.Error(w, "diagram is not loadable", http.StatusUnprocessableEntity)
			return
		}
		slog.Error("load diagram for export", "diagram", diagramID, "error", err)
		http.Error(w, "diagram not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Disposition", `inline; filename="`+diagramID+`.svg"`)
	w.Write([]byte(SVG(d)))
}
