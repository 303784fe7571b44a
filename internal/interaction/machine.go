// Package interaction arbitrates pointer and keyboard input into exactly
// one of a small set of mutually exclusive editing modes, resolving
// zoom-dependent hit tests against the diagram aggregate. It drives
// selection, dragging, panning and rectangle selection, delegating the
// actual geometry and persistence to the editor it is wired to.
package interaction

import (
	"sort"
	"time"

	"github.com/gridwire/gridwire/internal/diagram"
	"github.com/gridwire/gridwire/internal/geom"
)

// State is the machine's current editing mode.
type State int

const (
	StateIdle State = iota
	StateRectSelecting
	StateDragging
	StatePanning
)

// String returns the state name for display and logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRectSelecting:
		return "RECT_SELECT"
	case StateDragging:
		return "DRAGGING"
	case StatePanning:
		return "PANNING"
	default:
		return "UNKNOWN"
	}
}

const (
	// baseHitThreshold is the hit radius at scale 1, scaled sub-linearly
	// with zoom (see geom.Viewport.HitRadius).
	baseHitThreshold = 8.0

	// glueLineHitFactor widens the threshold for glue connection lines
	// relative to point hits; lines are easier to aim at than points.
	glueLineHitFactor = 2.0

	// hoverThrottle limits hover evaluation to once per animation frame.
	hoverThrottle = 16 * time.Millisecond
)

// Editor is what the machine needs from the editing session: the live
// aggregate for hit tests, glue expansion for drag sets, local-only
// drag frames and the single persistence commit at drag end.
type Editor interface {
	Diagram() *diagram.Diagram
	ExpandThroughGlue(pointIDs []string) []string
	DragPoints(pointIDs []string, dx, dy float64)
	CommitDrag(pointIDs []string, dx, dy float64)
	NudgeSelection(pointIDs []string, dx, dy float64) error
}

// ViewportProvider supplies the current world↔screen transform and
// accepts pan offsets while the machine is panning.
type ViewportProvider interface {
	Viewport() geom.Viewport
	PanBy(dx, dy float64)
}

// Machine is the interaction state machine for one editing client.
// Single-threaded: callers feed it events from one event loop.
type Machine struct {
	editor Editor
	view   ViewportProvider

	state     State
	selection map[string]struct{}

	// rectangle selection, world space
	rectAnchor geom.Point
	rectCorner geom.Point

	// dragging
	dragSet       []string
	dragLastWorld geom.Point
	dragAnchored  bool
	dragTotal     geom.Point

	// panning
	panLastScreen geom.Point
	panAnchored   bool

	// temporary pan override
	tempPanning    bool
	suspendedState State

	// hover
	lastHover     time.Time
	tooltipPinned bool
}

// New creates an idle machine with an empty selection.
func New(editor Editor, view ViewportProvider) *Machine {
	return &Machine{
		editor:    editor,
		view:      view,
		state:     StateIdle,
		selection: make(map[string]struct{}),
	}
}

// State returns the active mode.
func (m *Machine) State() State {
	return m.state
}

// Selection returns the selected point ids, sorted for determinism.
func (m *Machine) Selection() []string {
	ids := make([]string, 0, len(m.selection))
	for id := range m.selection {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Selected reports whether the point is in the selection.
func (m *Machine) Selected(pointID string) bool {
	_, ok := m.selection[pointID]
	return ok
}

// ClearSelection empties the selection. Called on diagram reload:
// selection is transient UI state and never survives a reload.
func (m *Machine) ClearSelection() {
	m.selection = make(map[string]struct{})
}

func (m *Machine) toggleSelected(pointID string) {
	if _, ok := m.selection[pointID]; ok {
		delete(m.selection, pointID)
	} else {
		m.selection[pointID] = struct{}{}
	}
}

func (m *Machine) hitRadius() float64 {
	return m.view.Viewport().HitRadius(baseHitThreshold)
}

// PointerDown feeds a pointer press. multiSelect is the multi-select
// modifier key state at press time.
func (m *Machine) PointerDown(screen geom.Point, multiSelect bool) {
	if m.state != StateIdle {
		// Presses are only meaningful from idle; mid-gesture presses
		// (second button, duplicated events) are dropped.
		return
	}

	world := m.view.Viewport().ScreenToWorld(screen)
	radius := m.hitRadius()
	d := m.editor.Diagram()

	if multiSelect {
		if p := d.FindPointNear(world, radius); p != nil {
			m.toggleSelected(p.ID)
			return
		}
		if a, b, ok := m.findGlueLineNear(world, radius*glueLineHitFactor); ok {
			m.selection[a] = struct{}{}
			m.selection[b] = struct{}{}
			return
		}
		m.state = StateRectSelecting
		m.rectAnchor = world
		m.rectCorner = world
		return
	}

	if p := d.FindPointNear(world, radius); p != nil && len(m.selection) > 0 && m.Selected(p.ID) {
		m.state = StateDragging
		m.dragSet = m.editor.ExpandThroughGlue(m.Selection())
		m.dragLastWorld = world
		m.dragAnchored = true
		m.dragTotal = geom.Point{}
		return
	}

	// Miss, or a point outside the current selection: drop the
	// selection and pan.
	m.ClearSelection()
	m.state = StatePanning
	m.panLastScreen = screen
	m.panAnchored = true
}

// PointerMove feeds a pointer move in screen coordinates.
func (m *Machine) PointerMove(screen geom.Point) {
	switch m.state {
	case StateRectSelecting:
		m.rectCorner = m.view.Viewport().ScreenToWorld(screen)

	case StateDragging:
		world := m.view.Viewport().ScreenToWorld(screen)
		if !m.dragAnchored {
			// Re-anchor after a temporary pan shifted the transform.
			m.dragLastWorld = world
			m.dragAnchored = true
			return
		}
		dx := world.X - m.dragLastWorld.X
		dy := world.Y - m.dragLastWorld.Y
		if dx != 0 || dy != 0 {
			// Local-only move, no persistence call per frame.
			m.editor.DragPoints(m.dragSet, dx, dy)
			m.dragTotal.X += dx
			m.dragTotal.Y += dy
		}
		m.dragLastWorld = world

	case StatePanning:
		if !m.panAnchored {
			m.panLastScreen = screen
			m.panAnchored = true
			return
		}
		m.view.PanBy(screen.X-m.panLastScreen.X, screen.Y-m.panLastScreen.Y)
		m.panLastScreen = screen
	}
}

// PointerUp commits the active gesture and returns to idle. A release
// during a temporary pan only ends the pan gesture, not the suspended
// mode.
func (m *Machine) PointerUp(screen geom.Point) {
	if m.tempPanning {
		m.panAnchored = false
		return
	}

	switch m.state {
	case StateRectSelecting:
		m.rectCorner = m.view.Viewport().ScreenToWorld(screen)
		rect := geom.FromCorners(m.rectAnchor, m.rectCorner)
		for _, p := range m.editor.Diagram().Points() {
			if rect.Contains(p.Pos()) {
				m.selection[p.ID] = struct{}{}
			}
		}

	case StateDragging:
		if m.dragTotal.X != 0 || m.dragTotal.Y != 0 {
			// One persistence call for the whole gesture.
			m.editor.CommitDrag(m.dragSet, m.dragTotal.X, m.dragTotal.Y)
		}
		m.dragSet = nil
		m.dragAnchored = false

	case StatePanning:
		// Panning has no persistence effect.
		m.panAnchored = false
	}

	m.state = StateIdle
}

// TempPanStart suspends the active mode and pans until TempPanEnd.
// Bound to a dedicated held key.
func (m *Machine) TempPanStart() {
	if m.tempPanning {
		return
	}
	m.tempPanning = true
	m.suspendedState = m.state
	m.state = StatePanning
	m.panAnchored = false
}

// TempPanEnd restores the mode that was active before the temporary pan.
func (m *Machine) TempPanEnd() {
	if !m.tempPanning {
		return
	}
	m.tempPanning = false
	m.state = m.suspendedState
	m.panAnchored = false
	// The viewport moved under the pointer; the next drag move must
	// re-anchor instead of applying the apparent jump.
	m.dragAnchored = false
}

// Nudge translates the current selection by a world-space delta,
// propagating through the glue graph and persisting the move. Bound to
// the arrow keys.
func (m *Machine) Nudge(dx, dy float64) error {
	return m.editor.NudgeSelection(m.Selection(), dx, dy)
}

// SetTooltipPinned suppresses hover evaluation while a modal tooltip is
// pinned open.
func (m *Machine) SetTooltipPinned(pinned bool) {
	m.tooltipPinned = pinned
}

// Hover resolves the point under the cursor for tooltip display. Runs
// only while idle, at most once per animation frame, and not at all
// while a tooltip is pinned.
func (m *Machine) Hover(screen geom.Point, now time.Time) (string, bool) {
	if m.state != StateIdle || m.tooltipPinned {
		return "", false
	}
	if now.Sub(m.lastHover) < hoverThrottle {
		return "", false
	}
	m.lastHover = now

	world := m.view.Viewport().ScreenToWorld(screen)
	if p := m.editor.Diagram().FindPointNear(world, m.hitRadius()); p != nil {
		return p.ID, true
	}
	return "", false
}

// findGlueLineNear hit-tests the connection lines drawn between glued
// points: every pair of members within a glue point forms a segment.
// Returns the first pair within the threshold.
func (m *Machine) findGlueLineNear(world geom.Point, threshold float64) (string, string, bool) {
	d := m.editor.Diagram()
	for _, g := range d.GluePoints() {
		members := g.PointIDs()
		sort.Strings(members) // deterministic pair order
		for i := 0; i < len(members); i++ {
			pi, ok := d.Point(members[i])
			if !ok {
				continue
			}
			for j := i + 1; j < len(members); j++ {
				pj, ok := d.Point(members[j])
				if !ok {
					continue
				}
				if geom.SegmentDistance(world, pi.Pos(), pj.Pos()) <= threshold {
					return members[i], members[j], true
				}
			}
		}
	}
	return "", "", false
}
