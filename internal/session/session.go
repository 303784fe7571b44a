// Package session holds the live editing state for one open diagram:
// the aggregate, the transform engine over it, and the optimistic
// mutation flow. Every operation mutates the in-memory diagram
// synchronously, notifies the render layer, then issues the persistence
// command fire-and-forget; a failed command triggers a full reload from
// the source of truth instead of a partial rollback.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gridwire/gridwire/internal/diagram"
	"github.com/gridwire/gridwire/internal/transform"
	"github.com/gridwire/gridwire/internal/typeid"
)

// PersistenceGateway executes one remote mutation. Any transport or
// remote-side failure is a generic error; callers do not retry.
type PersistenceGateway interface {
	ExecuteMutation(ctx context.Context, cmd Command) error
}

// DiagramLoader produces a fully populated, internally consistent
// diagram aggregate.
type DiagramLoader interface {
	Load(ctx context.Context, diagramID string) (*diagram.Diagram, error)
}

// Session is the editing session for one diagram. Mutations are
// serialized by the session mutex; the event-loop model means only one
// logical operation touches the aggregate at a time.
type Session struct {
	mu        sync.Mutex
	diagramID string
	d         *diagram.Diagram
	engine    *transform.Engine

	gateway PersistenceGateway
	loader  DiagramLoader

	notify          func()
	reloadListeners []func()

	// pending tracks in-flight persistence calls so shutdown can drain
	// them. There is no cancellation: a call either lands or fails and
	// forces a reload.
	pending sync.WaitGroup
}

// Open loads the diagram and returns a ready session.
func Open(ctx context.Context, diagramID string, loader DiagramLoader, gateway PersistenceGateway) (*Session, error) {
	d, err := loader.Load(ctx, diagramID)
	if err != nil {
		return nil, fmt.Errorf("open session for %s: %w", diagramID, err)
	}
	s := &Session{
		diagramID: diagramID,
		d:         d,
		gateway:   gateway,
		loader:    loader,
		notify:    func() {},
	}
	s.engine = transform.New(s.Diagram)
	return s, nil
}

// SetRenderNotifier installs the callback invoked after every mutation.
// The render layer decides how and when to actually redraw.
func (s *Session) SetRenderNotifier(notify func()) {
	if notify == nil {
		notify = func() {}
	}
	s.notify = notify
}

// OnReload registers a callback fired after the aggregate has been
// replaced. Interaction machines hook this to drop their transient
// selection state.
func (s *Session) OnReload(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadListeners = append(s.reloadListeners, fn)
}

// DiagramID returns the id of the open diagram.
func (s *Session) DiagramID() string {
	return s.diagramID
}

// Diagram returns the current aggregate. The pointer changes on reload;
// callers needing a stable view across an await-point must re-fetch.
func (s *Session) Diagram() *diagram.Diagram {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d
}

// Flush waits for all in-flight persistence calls. Used on shutdown
// before the final snapshot save.
func (s *Session) Flush() {
	s.pending.Wait()
}

// Reload discards local state and re-fetches the diagram from the
// source of truth. This is the sole recovery strategy after a
// persistence failure.
func (s *Session) Reload(ctx context.Context) error {
	d, err := s.loader.Load(ctx, s.diagramID)
	if err != nil {
		return fmt.Errorf("reload diagram %s: %w", s.diagramID, err)
	}

	s.mu.Lock()
	s.d = d
	listeners := append([]func(){}, s.reloadListeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	s.notify()
	return nil
}

// dispatch issues a persistence command without blocking further
// interaction. Failures are never silent: they are logged and answered
// with a full reload so the local model cannot diverge from the remote
// source of truth.
func (s *Session) dispatch(cmd Command) {
	cmd.ID = typeid.NewOpID()
	cmd.DiagramID = s.diagramID
	cmd.Timestamp = nowMillis()

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.gateway.ExecuteMutation(context.Background(), cmd); err != nil {
			slog.Error("persist mutation", "type", cmd.Type, "diagram", s.diagramID, "error", err)
			if rerr := s.Reload(context.Background()); rerr != nil {
				slog.Error("reload after failed mutation", "diagram", s.diagramID, "error", rerr)
			}
		}
	}()
}

// --- mutating operations ---

// TranslatePoints moves the given points (expanding through the glue
// graph) and persists the move. Returns the expanded set.
func (s *Session) TranslatePoints(pointIDs []string, dx, dy float64) ([]string, error) {
	s.mu.Lock()
	moved, err := s.engine.TranslateByDelta(pointIDs, dx, dy)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.notify()
	s.dispatch(Command{Type: CmdMovePoints, PointIDs: moved, DX: dx, DY: dy})
	return moved, nil
}

// DragPoints applies one live drag frame: local mutation and redraw
// only, no persistence. The ids are already glue-expanded by the
// interaction layer at drag start.
func (s *Session) DragPoints(pointIDs []string, dx, dy float64) {
	s.mu.Lock()
	for _, id := range pointIDs {
		if p, ok := s.d.Point(id); ok {
			p.MoveBy(dx, dy)
		}
	}
	s.mu.Unlock()
	s.notify()
}

// CommitDrag persists the accumulated delta of a finished drag. The
// positions were already applied frame by frame.
func (s *Session) CommitDrag(pointIDs []string, dx, dy float64) {
	s.dispatch(Command{Type: CmdMovePoints, PointIDs: pointIDs, DX: dx, DY: dy})
}

// NudgeSelection is the arrow-key variant of TranslatePoints.
func (s *Session) NudgeSelection(pointIDs []string, dx, dy float64) error {
	_, err := s.TranslatePoints(pointIDs, dx, dy)
	return err
}

// ExpandThroughGlue exposes the transform engine's glue expansion to
// the interaction layer.
func (s *Session) ExpandThroughGlue(pointIDs []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ExpandThroughGlue(pointIDs)
}

// Rotate turns the selection around its centroid and persists.
func (s *Session) Rotate(selection []string, degrees float64) error {
	s.mu.Lock()
	err := s.engine.Rotate(selection, degrees)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	s.dispatch(Command{Type: CmdRotate, PointIDs: selection, Degrees: degrees})
	return nil
}

// Mirror reflects the selection about its centroid axis and persists.
func (s *Session) Mirror(selection []string, axis string) error {
	s.mu.Lock()
	var err error
	switch axis {
	case AxisHorizontal:
		err = s.engine.MirrorHorizontal(selection)
	case AxisVertical:
		err = s.engine.MirrorVertical(selection)
	default:
		err = fmt.Errorf("%w: unknown mirror axis %q", diagram.ErrValidation, axis)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	s.dispatch(Command{Type: CmdMirror, PointIDs: selection, Axis: axis})
	return nil
}

// ToggleConnection connects or disconnects two points in the glue
// graph and persists.
func (s *Session) ToggleConnection(pointA, pointB string) error {
	glueID := typeid.NewGluePointID()
	s.mu.Lock()
	err := s.d.ToggleConnection(pointA, pointB, glueID)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	s.dispatch(Command{Type: CmdToggleGlue, PointA: pointA, PointB: pointB, GluePointID: glueID})
	return nil
}

// InsertPoint adds a point to an object at the given sequence index.
func (s *Session) InsertPoint(objectID string, index int, x, y float64) (*diagram.Point, error) {
	pointID := typeid.NewPointID()
	s.mu.Lock()
	p, err := s.engine.InsertPoint(objectID, pointID, index, x, y)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.notify()
	s.dispatch(Command{Type: CmdInsertPoint, ObjectID: objectID, PointID: pointID, Index: index, X: x, Y: y})
	return p, nil
}

// DeletePoint removes a point, with the endpoint and polygon rules
// enforced by the transform engine.
func (s *Session) DeletePoint(pointID string) error {
	s.mu.Lock()
	err := s.engine.DeletePoint(pointID)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	s.dispatch(Command{Type: CmdDeletePoint, PointID: pointID})
	return nil
}

// DuplicateObject clones an object with fresh ids, offset slightly so
// the copy is visible. Glue memberships are not copied: glue points
// connect specific points, not shapes.
func (s *Session) DuplicateObject(objectID string) (*diagram.Object, error) {
	const dupOffset = 10.0

	s.mu.Lock()
	src, ok := s.d.Object(objectID)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: object %s", diagram.ErrNotFound, objectID)
	}

	dup := &diagram.Object{
		ID:           typeid.NewObjectID(),
		DrawingOrder: src.DrawingOrder,
		Polygon:      src.Polygon,
		IsText:       src.IsText,
		Text:         src.Text,
	}
	for _, p := range src.Points {
		dup.Points = append(dup.Points, &diagram.Point{
			ID:  typeid.NewPointID(),
			X:   p.X + dupOffset,
			Y:   p.Y + dupOffset,
			Z:   p.Z,
			Seq: p.Seq,
		})
	}
	if err := s.d.AddObject(dup); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.d.SortObjects()
	s.mu.Unlock()

	s.notify()
	s.dispatch(Command{Type: CmdDuplicateObject, ObjectID: objectID, NewObjectID: dup.ID})
	return dup, nil
}
