package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixDiagram   = "diag"
	PrefixObject    = "obj"
	PrefixPoint     = "pt"
	PrefixGluePoint = "glue"
	PrefixOp        = "op"
	PrefixSnapshot  = "snap"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewDiagramID() string   { return New(PrefixDiagram) }
func NewObjectID() string    { return New(PrefixObject) }
func NewPointID() string     { return New(PrefixPoint) }
func NewGluePointID() string { return New(PrefixGluePoint) }
func NewOpID() string        { return New(PrefixOp) }
func NewSnapshotID() string  { return New(PrefixSnapshot) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
