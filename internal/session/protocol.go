package session

import "encoding/json"

// Message is the JSON envelope on the editing websocket.
type Message struct {
	Type      string          `json:"type"`
	DiagramID string          `json:"diagramId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Client → server message types.
const (
	TypePointerDown    = "pointer.down"
	TypePointerMove    = "pointer.move"
	TypePointerUp      = "pointer.up"
	TypePanHold        = "pan.hold"
	TypePanRelease     = "pan.release"
	TypeHover          = "hover"
	TypeNudge          = "nudge"
	TypeViewportUpdate = "viewport.update"
	TypeGlueToggle     = "glue.toggle"
	TypeRotate         = "transform.rotate"
	TypeMirror         = "transform.mirror"
	TypePointInsert    = "point.insert"
	TypePointDelete    = "point.delete"
	TypeObjectDup      = "object.duplicate"
	TypeTooltipPin     = "tooltip.pin"
)

// Server → client message types.
const (
	TypeWelcome        = "welcome"
	TypeDocSync        = "doc.sync"
	TypeSelectionState = "selection.state"
	TypePresenceState  = "presence.state"
	TypeHoverResult    = "hover.result"
	TypeError          = "error"
)

// PointerPayload carries one pointer event in screen coordinates.
type PointerPayload struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	MultiSelect bool    `json:"multiSelect,omitempty"`
}

// ViewportPayload carries the client's world↔screen transform.
type ViewportPayload struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// NudgePayload is a world-space arrow-key translation.
type NudgePayload struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// GlueTogglePayload connects or disconnects a pair of points.
type GlueTogglePayload struct {
	PointA string `json:"pointA"`
	PointB string `json:"pointB"`
}

// RotatePayload rotates the current selection.
type RotatePayload struct {
	Degrees float64 `json:"degrees"`
}

// MirrorPayload mirrors the current selection. Axis is "horizontal" or
// "vertical".
type MirrorPayload struct {
	Axis string `json:"axis"`
}

// PointInsertPayload adds a point to an object.
type PointInsertPayload struct {
	ObjectID string  `json:"objectId"`
	Index    int     `json:"index"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// PointDeletePayload removes a point.
type PointDeletePayload struct {
	PointID string `json:"pointId"`
}

// ObjectDuplicatePayload clones an object.
type ObjectDuplicatePayload struct {
	ObjectID string `json:"objectId"`
}

// TooltipPinPayload pins or unpins the hover tooltip.
type TooltipPinPayload struct {
	Pinned bool `json:"pinned"`
}

// SelectionPayload reports the client's current selection.
type SelectionPayload struct {
	PointIDs []string `json:"pointIds"`
	State    string   `json:"state"`
}

// HoverResultPayload names the point under the cursor, if any.
type HoverResultPayload struct {
	PointID string `json:"pointId,omitempty"`
}

// ErrorPayload carries a user-visible failure report. Kind is
// "validation", "not_found" or "internal".
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
