package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/gridwire/gridwire/internal/diagram"
	"github.com/gridwire/gridwire/internal/doc"
	"github.com/gridwire/gridwire/internal/geom"
	"github.com/gridwire/gridwire/internal/interaction"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 256 * 1024

	// presenceThrottle caps cursor fan-out during pointer moves.
	presenceThrottle = 50 * time.Millisecond
)

// Client is one websocket editing connection: its own interaction state
// machine and viewport over the room's shared session. All of a
// client's events arrive on its read pump goroutine, so the machine and
// viewport need no locking of their own.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once

	ClientID  string
	DiagramID string

	session  *Session
	machine  *interaction.Machine
	viewport geom.Viewport

	lastPresence time.Time
}

func NewClient(hub *Hub, conn *websocket.Conn, diagramID, clientID string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 256),
		ClientID:  clientID,
		DiagramID: diagramID,
		viewport:  geom.NewViewport(),
	}
}

// Viewport implements interaction.ViewportProvider.
func (c *Client) Viewport() geom.Viewport {
	return c.viewport
}

// PanBy implements interaction.ViewportProvider.
func (c *Client) PanBy(dx, dy float64) {
	c.viewport = c.viewport.PanBy(dx, dy)
}

func (c *Client) attach(sess *Session) {
	c.session = sess
	c.machine = interaction.New(sess, c)
	// Selection is transient UI state; it never survives a reload.
	sess.OnReload(c.machine.ClearSelection)
}

func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			slog.Debug("read error", "error", err, "client", c.ClientID)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid message", "error", err, "client", c.ClientID)
			continue
		}

		c.handleMessage(&msg)
	}
}

func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "client", c.ClientID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// handleMessage dispatches one client event. Validation and not-found
// failures are reported back as error messages and never break the
// connection; the operation is simply not performed.
func (c *Client) handleMessage(msg *Message) {
	if c.machine == nil {
		return
	}

	var err error
	selectionChanged := false

	switch msg.Type {
	case TypeViewportUpdate:
		var p ViewportPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			c.viewport = geom.Viewport{Scale: p.Scale, OffsetX: p.OffsetX, OffsetY: p.OffsetY}
		}

	case TypePointerDown:
		var p PointerPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			c.machine.PointerDown(geom.Pt(p.X, p.Y), p.MultiSelect)
			selectionChanged = true
			c.publishPresence(geom.Pt(p.X, p.Y), false)
		}

	case TypePointerMove:
		var p PointerPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			c.machine.PointerMove(geom.Pt(p.X, p.Y))
			c.publishPresence(geom.Pt(p.X, p.Y), true)
		}

	case TypePointerUp:
		var p PointerPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			c.machine.PointerUp(geom.Pt(p.X, p.Y))
			selectionChanged = true
			c.publishPresence(geom.Pt(p.X, p.Y), false)
		}

	case TypePanHold:
		c.machine.TempPanStart()

	case TypePanRelease:
		c.machine.TempPanEnd()

	case TypeHover:
		var p PointerPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			pointID, _ := c.machine.Hover(geom.Pt(p.X, p.Y), time.Now())
			c.sendPayload(TypeHoverResult, HoverResultPayload{PointID: pointID})
		}

	case TypeTooltipPin:
		var p TooltipPinPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			c.machine.SetTooltipPinned(p.Pinned)
		}

	case TypeNudge:
		var p NudgePayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = c.machine.Nudge(p.DX, p.DY)
		}

	case TypeGlueToggle:
		var p GlueTogglePayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = c.session.ToggleConnection(p.PointA, p.PointB)
		}

	case TypeRotate:
		var p RotatePayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = c.session.Rotate(c.machine.Selection(), p.Degrees)
		}

	case TypeMirror:
		var p MirrorPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = c.session.Mirror(c.machine.Selection(), p.Axis)
		}

	case TypePointInsert:
		var p PointInsertPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			_, err = c.session.InsertPoint(p.ObjectID, p.Index, p.X, p.Y)
		}

	case TypePointDelete:
		var p PointDeletePayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = c.session.DeletePoint(p.PointID)
			selectionChanged = true
		}

	case TypeObjectDup:
		var p ObjectDuplicatePayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			_, err = c.session.DuplicateObject(p.ObjectID)
		}

	default:
		slog.Warn("unknown message type", "type", msg.Type, "client", c.ClientID)
	}

	if err != nil {
		c.SendError(errorKind(err), err.Error())
		return
	}
	if selectionChanged {
		c.sendSelection()
	}
}

// publishPresence shares this client's cursor with the room. Moves are
// throttled; state transitions always go out.
func (c *Client) publishPresence(screen geom.Point, throttled bool) {
	now := time.Now()
	if throttled && now.Sub(c.lastPresence) < presenceThrottle {
		return
	}
	c.lastPresence = now

	world := c.viewport.ScreenToWorld(screen)
	c.hub.UpdatePresence(c, &PresencePayload{
		ClientID: c.ClientID,
		X:        world.X,
		Y:        world.Y,
		State:    c.machine.State().String(),
	})
}

// errorKind maps the error taxonomy onto the wire.
func errorKind(err error) string {
	switch {
	case errors.Is(err, diagram.ErrValidation):
		return "validation"
	case errors.Is(err, diagram.ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

func (c *Client) sendWelcome() {
	c.sendPayload(TypeWelcome, struct {
		ClientID string `json:"clientId"`
	}{ClientID: c.ClientID})

	document := doc.FromDiagram(c.session.Diagram())
	if payload, err := json.Marshal(document); err == nil {
		c.Send(&Message{Type: TypeDocSync, DiagramID: c.DiagramID, Payload: payload})
	}
	c.sendSelection()
}

func (c *Client) sendSelection() {
	c.sendPayload(TypeSelectionState, SelectionPayload{
		PointIDs: c.machine.Selection(),
		State:    c.machine.State().String(),
	})
}

// SendError reports a failure to this client. Every failure path ends
// in a user-visible message or a reload, never silence.
func (c *Client) SendError(kind, message string) {
	c.sendPayload(TypeError, ErrorPayload{Kind: kind, Message: message})
}

func (c *Client) sendPayload(msgType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal payload", "type", msgType, "error", err)
		return
	}
	c.Send(&Message{Type: msgType, DiagramID: c.DiagramID, ClientID: c.ClientID, Payload: data})
}

func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}

	select {
	case c.send <- data:
	default:
		slog.Warn("client send buffer full, dropping message", "client", c.ClientID)
	}
}

// CloseSend ends the write pump. The hub reaches this both when a join
// is rejected and when the client unregisters, so it must tolerate
// being called twice for the same client.
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}
