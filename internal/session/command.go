package session

import "time"

// Command types issued to the persistence gateway. A command either
// fully applies remotely or is reported as failed; there is no partial
// success.
const (
	CmdMovePoints      = "points.move"
	CmdRotate          = "selection.rotate"
	CmdMirror          = "selection.mirror"
	CmdToggleGlue      = "glue.toggle"
	CmdInsertPoint     = "point.insert"
	CmdDeletePoint     = "point.delete"
	CmdDuplicateObject = "object.duplicate"
)

// Mirror axes for CmdMirror.
const (
	AxisHorizontal = "horizontal"
	AxisVertical   = "vertical"
)

// Command describes one remote mutation. Field usage depends on Type.
type Command struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	DiagramID string `json:"diagramId"`
	Timestamp int64  `json:"timestamp"`

	// points.move / selection.rotate / selection.mirror
	PointIDs []string `json:"pointIds,omitempty"`
	DX       float64  `json:"dx,omitempty"`
	DY       float64  `json:"dy,omitempty"`
	Degrees  float64  `json:"degrees,omitempty"`
	Axis     string   `json:"axis,omitempty"`

	// glue.toggle
	PointA      string `json:"pointA,omitempty"`
	PointB      string `json:"pointB,omitempty"`
	GluePointID string `json:"gluePointId,omitempty"`

	// point.insert / point.delete / object.duplicate
	ObjectID    string  `json:"objectId,omitempty"`
	NewObjectID string  `json:"newObjectId,omitempty"`
	PointID     string  `json:"pointId,omitempty"`
	Index       int     `json:"index,omitempty"`
	X           float64 `json:"x,omitempty"`
	Y           float64 `json:"y,omitempty"`
}

// Timestamp helper shared by command construction.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}
