package interaction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwire/gridwire/internal/diagram"
	"github.com/gridwire/gridwire/internal/geom"
	"github.com/gridwire/gridwire/internal/transform"
)

// fakeEditor applies drags to a real diagram and records persistence
// commits so tests can assert how many were issued and with what delta.
type fakeEditor struct {
	d       *diagram.Diagram
	engine  *transform.Engine
	commits []commit
	nudges  []commit
}

type commit struct {
	ids    []string
	dx, dy float64
}

func newFakeEditor(t *testing.T) *fakeEditor {
	t.Helper()
	d := diagram.New("diag_1")
	require.NoError(t, d.AddObject(&diagram.Object{ID: "obj_a", Points: []*diagram.Point{
		{ID: "pt_a1", X: 0, Y: 0, Seq: 0},
		{ID: "pt_a2", X: 100, Y: 0, Seq: 1},
	}}))
	require.NoError(t, d.AddObject(&diagram.Object{ID: "obj_b", Points: []*diagram.Point{
		{ID: "pt_b1", X: 0, Y: 100, Seq: 0},
		{ID: "pt_b2", X: 100, Y: 100, Seq: 1},
	}}))
	fe := &fakeEditor{d: d}
	fe.engine = transform.New(func() *diagram.Diagram { return d })
	return fe
}

func (f *fakeEditor) Diagram() *diagram.Diagram { return f.d }

func (f *fakeEditor) ExpandThroughGlue(ids []string) []string {
	return f.engine.ExpandThroughGlue(ids)
}

func (f *fakeEditor) DragPoints(ids []string, dx, dy float64) {
	for _, id := range ids {
		if p, ok := f.d.Point(id); ok {
			p.MoveBy(dx, dy)
		}
	}
}

func (f *fakeEditor) CommitDrag(ids []string, dx, dy float64) {
	f.commits = append(f.commits, commit{ids: ids, dx: dx, dy: dy})
}

func (f *fakeEditor) NudgeSelection(ids []string, dx, dy float64) error {
	if _, err := f.engine.TranslateByDelta(ids, dx, dy); err != nil {
		return err
	}
	f.nudges = append(f.nudges, commit{ids: ids, dx: dx, dy: dy})
	return nil
}

// testViewport implements ViewportProvider over a mutable value.
type testViewport struct {
	v geom.Viewport
}

func (tv *testViewport) Viewport() geom.Viewport { return tv.v }
func (tv *testViewport) PanBy(dx, dy float64)    { tv.v = tv.v.PanBy(dx, dy) }

func newMachine(t *testing.T) (*Machine, *fakeEditor, *testViewport) {
	t.Helper()
	fe := newFakeEditor(t)
	tv := &testViewport{v: geom.NewViewport()}
	return New(fe, tv), fe, tv
}

func TestModifierClickTogglesSelection(t *testing.T) {
	m, _, _ := newMachine(t)

	m.PointerDown(geom.Pt(1, 1), true)
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, []string{"pt_a1"}, m.Selection())

	m.PointerUp(geom.Pt(1, 1))

	// Second modifier click on the same point deselects it.
	m.PointerDown(geom.Pt(1, 1), true)
	m.PointerUp(geom.Pt(1, 1))
	assert.Empty(t, m.Selection())
}

func TestModifierClickOnGlueLineSelectsEndpoints(t *testing.T) {
	m, fe, _ := newMachine(t)
	require.NoError(t, fe.d.ToggleConnection("pt_a1", "pt_b1", "glue_1"))

	// Midway along the vertical connection pt_a1(0,0)–pt_b1(0,100),
	// offset just beyond the point radius but inside the line threshold.
	m.PointerDown(geom.Pt(10, 50), true)
	m.PointerUp(geom.Pt(10, 50))

	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, []string{"pt_a1", "pt_b1"}, m.Selection())
}

func TestModifierMissStartsRectSelect(t *testing.T) {
	m, _, _ := newMachine(t)

	m.PointerDown(geom.Pt(40, 40), true)
	assert.Equal(t, StateRectSelecting, m.State())

	m.PointerMove(geom.Pt(120, 120))
	m.PointerUp(geom.Pt(120, 120))

	assert.Equal(t, StateIdle, m.State())
	// Rect (40,40)-(120,120) contains pt_a2, pt_b2 and pt_b1? No:
	// pt_b1 is at (0,100), outside x range. pt_a2 (100,0) outside y range.
	assert.Equal(t, []string{"pt_b2"}, m.Selection())
}

func TestRectSelectCapturesContainedPoints(t *testing.T) {
	m, _, _ := newMachine(t)

	m.PointerDown(geom.Pt(150, 150), true)
	m.PointerMove(geom.Pt(-10, -10))
	m.PointerUp(geom.Pt(-10, -10))

	// Corners in any order select every point inside.
	assert.Equal(t, []string{"pt_a1", "pt_a2", "pt_b1", "pt_b2"}, m.Selection())
}

func TestDragSelectedPointCommitsOnce(t *testing.T) {
	m, fe, _ := newMachine(t)

	// Select pt_a1, then drag it without the modifier.
	m.PointerDown(geom.Pt(0, 0), true)
	m.PointerUp(geom.Pt(0, 0))
	require.Equal(t, []string{"pt_a1"}, m.Selection())

	m.PointerDown(geom.Pt(0, 0), false)
	assert.Equal(t, StateDragging, m.State())

	m.PointerMove(geom.Pt(5, 5))
	m.PointerMove(geom.Pt(12, 7))
	// Live updates applied locally, no persistence yet.
	assert.Empty(t, fe.commits)
	p, _ := fe.d.Point("pt_a1")
	assert.Equal(t, geom.Pt(12, 7), p.Pos())

	m.PointerUp(geom.Pt(12, 7))
	assert.Equal(t, StateIdle, m.State())
	require.Len(t, fe.commits, 1)
	assert.Equal(t, []string{"pt_a1"}, fe.commits[0].ids)
	assert.Equal(t, 12.0, fe.commits[0].dx)
	assert.Equal(t, 7.0, fe.commits[0].dy)
}

func TestDragCarriesGluedPoints(t *testing.T) {
	m, fe, _ := newMachine(t)
	require.NoError(t, fe.d.ToggleConnection("pt_a1", "pt_b1", "glue_1"))

	m.PointerDown(geom.Pt(0, 0), true)
	m.PointerUp(geom.Pt(0, 0))
	m.PointerDown(geom.Pt(0, 0), false)
	m.PointerMove(geom.Pt(3, 0))
	m.PointerUp(geom.Pt(3, 0))

	// The drag set expanded through the glue graph at drag start.
	require.Len(t, fe.commits, 1)
	assert.ElementsMatch(t, []string{"pt_a1", "pt_b1"}, fe.commits[0].ids)

	glued, _ := fe.d.Point("pt_b1")
	assert.Equal(t, geom.Pt(3, 100), glued.Pos())
}

func TestDragWithoutMovementCommitsNothing(t *testing.T) {
	m, fe, _ := newMachine(t)

	m.PointerDown(geom.Pt(0, 0), true)
	m.PointerUp(geom.Pt(0, 0))
	m.PointerDown(geom.Pt(0, 0), false)
	m.PointerUp(geom.Pt(0, 0))

	assert.Empty(t, fe.commits)
	assert.Equal(t, StateIdle, m.State())
}

func TestPlainClickMissClearsSelectionAndPans(t *testing.T) {
	m, fe, tv := newMachine(t)

	m.PointerDown(geom.Pt(1, 1), true)
	m.PointerUp(geom.Pt(1, 1))
	require.NotEmpty(t, m.Selection())

	m.PointerDown(geom.Pt(50, 50), false)
	assert.Equal(t, StatePanning, m.State())
	assert.Empty(t, m.Selection())

	m.PointerMove(geom.Pt(60, 45))
	assert.Equal(t, 10.0, tv.v.OffsetX)
	assert.Equal(t, -5.0, tv.v.OffsetY)

	m.PointerUp(geom.Pt(60, 45))
	assert.Equal(t, StateIdle, m.State())
	// Panning never persists anything.
	assert.Empty(t, fe.commits)
}

func TestPlainClickUnselectedPointClearsAndPans(t *testing.T) {
	m, _, _ := newMachine(t)

	m.PointerDown(geom.Pt(1, 1), true)
	m.PointerUp(geom.Pt(1, 1))

	// Plain click on a different, unselected point.
	m.PointerDown(geom.Pt(100, 0), false)
	assert.Equal(t, StatePanning, m.State())
	assert.Empty(t, m.Selection())
	m.PointerUp(geom.Pt(100, 0))
}

func TestZoomDependentHitRadius(t *testing.T) {
	m, _, tv := newMachine(t)
	tv.v.Scale = 16

	// World radius at scale 16: 8 × 16^-0.3 ≈ 3.48. A screen click at
	// (80,0) is world (5,0): outside the shrunken radius of pt_a1.
	m.PointerDown(geom.Pt(80, 0), true)
	assert.Equal(t, StateRectSelecting, m.State())
	m.PointerUp(geom.Pt(80, 0))

	// World (3,0) is inside.
	m.PointerDown(geom.Pt(48, 0), true)
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, []string{"pt_a1"}, m.Selection())
}

func TestTempPanSuspendsAndRestoresDrag(t *testing.T) {
	m, fe, tv := newMachine(t)

	m.PointerDown(geom.Pt(0, 0), true)
	m.PointerUp(geom.Pt(0, 0))
	m.PointerDown(geom.Pt(0, 0), false)
	m.PointerMove(geom.Pt(4, 0))
	require.Equal(t, StateDragging, m.State())

	m.TempPanStart()
	assert.Equal(t, StatePanning, m.State())
	m.PointerMove(geom.Pt(10, 0))
	m.PointerMove(geom.Pt(30, 0))
	assert.Equal(t, 20.0, tv.v.OffsetX)

	m.TempPanEnd()
	assert.Equal(t, StateDragging, m.State())

	// The first move after the pan re-anchors instead of jumping.
	m.PointerMove(geom.Pt(30, 0))
	m.PointerMove(geom.Pt(32, 0))
	m.PointerUp(geom.Pt(32, 0))

	require.Len(t, fe.commits, 1)
	assert.Equal(t, 6.0, fe.commits[0].dx)
}

func TestTempPanFromIdle(t *testing.T) {
	m, _, tv := newMachine(t)

	m.TempPanStart()
	m.PointerMove(geom.Pt(0, 0))
	m.PointerMove(geom.Pt(-7, 3))
	m.TempPanEnd()

	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, -7.0, tv.v.OffsetX)
	assert.Equal(t, 3.0, tv.v.OffsetY)
}

func TestHoverOnlyWhenIdleAndThrottled(t *testing.T) {
	m, _, _ := newMachine(t)
	base := time.Now()

	id, ok := m.Hover(geom.Pt(1, 1), base)
	require.True(t, ok)
	assert.Equal(t, "pt_a1", id)

	// Within the same animation frame: suppressed.
	_, ok = m.Hover(geom.Pt(1, 1), base.Add(5*time.Millisecond))
	assert.False(t, ok)

	// Next frame: evaluated again.
	_, ok = m.Hover(geom.Pt(1, 1), base.Add(17*time.Millisecond))
	assert.True(t, ok)

	// Not idle: suppressed regardless of timing.
	m.PointerDown(geom.Pt(200, 200), false)
	_, ok = m.Hover(geom.Pt(1, 1), base.Add(100*time.Millisecond))
	assert.False(t, ok)
	m.PointerUp(geom.Pt(200, 200))

	// Pinned tooltip: suppressed entirely.
	m.SetTooltipPinned(true)
	_, ok = m.Hover(geom.Pt(1, 1), base.Add(200*time.Millisecond))
	assert.False(t, ok)
	m.SetTooltipPinned(false)
	_, ok = m.Hover(geom.Pt(1, 1), base.Add(300*time.Millisecond))
	assert.True(t, ok)
}

func TestNudgeTranslatesSelectionThroughGlue(t *testing.T) {
	m, fe, _ := newMachine(t)
	require.NoError(t, fe.d.ToggleConnection("pt_a1", "pt_b1", "glue_1"))

	m.PointerDown(geom.Pt(1, 1), true)
	m.PointerUp(geom.Pt(1, 1))

	require.NoError(t, m.Nudge(1, 0))
	p, _ := fe.d.Point("pt_b1")
	assert.Equal(t, geom.Pt(1, 100), p.Pos())

	m.ClearSelection()
	assert.ErrorIs(t, m.Nudge(1, 0), diagram.ErrValidation)
}
