package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gridwire/gridwire/internal/doc"
)

// SnapshotSaver persists a full document snapshot. Used by the hub on
// shutdown so edits that only exist in the op log get compacted.
type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, document *doc.Document) error
}

// Room is one open diagram: a shared session plus the clients editing it.
type Room struct {
	diagramID string
	session   *Session
	clients   map[string]*Client
	presence  *PresenceTracker
}

// Hub owns the rooms. One room per diagram id; the room's session is
// created on first join and torn down when the last client leaves.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	loader  DiagramLoader
	gateway PersistenceGateway
	saver   SnapshotSaver

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(loader DiagramLoader, gateway PersistenceGateway, saver SnapshotSaver) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		loader:     loader,
		gateway:    gateway,
		saver:      saver,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

// Stop drains in-flight persistence calls and snapshots every open
// diagram before shutdown.
func (h *Hub) Stop() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		room.session.Flush()
		if err := h.saver.SaveSnapshot(context.Background(), doc.FromDiagram(room.session.Diagram())); err != nil {
			slog.Error("save snapshot on shutdown", "diagram", id, "error", err)
		}
	}
}

// Register hands a client to the hub goroutine. A no-op once the hub
// has stopped; connections arriving mid-shutdown are simply dropped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client. Like Register, it must not block after
// shutdown: read pumps drain through here while the server exits.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DiagramID]
	if !ok {
		sess, err := Open(context.Background(), client.DiagramID, h.loader, h.gateway)
		if err != nil {
			h.mu.Unlock()
			slog.Error("open session", "diagram", client.DiagramID, "error", err)
			client.SendError("internal", "diagram could not be loaded")
			client.CloseSend()
			return
		}
		room = &Room{
			diagramID: client.DiagramID,
			session:   sess,
			clients:   make(map[string]*Client),
			presence:  NewPresenceTracker(),
		}
		diagramID := client.DiagramID
		sess.SetRenderNotifier(func() { h.broadcastSync(diagramID) })
		h.rooms[diagramID] = room
	}
	room.clients[client.ClientID] = client
	client.attach(room.session)
	h.mu.Unlock()

	client.sendWelcome()
	slog.Info("client joined", "client", client.ClientID, "diagram", client.DiagramID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DiagramID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(room.clients, client.ClientID)
	room.presence.Remove(client.ClientID)
	client.CloseSend()

	var emptied *Room
	var remaining []*Client
	if len(room.clients) == 0 {
		delete(h.rooms, client.DiagramID)
		emptied = room
	} else {
		for _, c := range room.clients {
			remaining = append(remaining, c)
		}
	}
	h.mu.Unlock()

	if msg := room.presence.StateMessage(client.DiagramID); msg != nil {
		for _, c := range remaining {
			c.Send(msg)
		}
	}

	if emptied != nil {
		emptied.session.Flush()
		if err := h.saver.SaveSnapshot(context.Background(), doc.FromDiagram(emptied.session.Diagram())); err != nil {
			slog.Error("save snapshot on room close", "diagram", emptied.diagramID, "error", err)
		}
	}

	slog.Info("client left", "client", client.ClientID, "diagram", client.DiagramID)
}

// UpdatePresence records a client's cursor state and fans it out to
// everyone in the room, the sender included.
func (h *Hub) UpdatePresence(client *Client, p *PresencePayload) {
	h.mu.RLock()
	room, ok := h.rooms[client.DiagramID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	room.presence.Update(client.ClientID, p)
	msg := room.presence.StateMessage(client.DiagramID)
	if msg == nil {
		return
	}
	for _, c := range clients {
		c.Send(msg)
	}
}

// broadcastSync ships the full document to every client in the room.
// Redraw is the client's business; the hub only guarantees the data is
// fresh after each mutation.
func (h *Hub) broadcastSync(diagramID string) {
	h.mu.RLock()
	room, ok := h.rooms[diagramID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		clients = append(clients, c)
	}
	document := doc.FromDiagram(room.session.Diagram())
	h.mu.RUnlock()

	payload, err := json.Marshal(document)
	if err != nil {
		slog.Error("marshal doc sync", "diagram", diagramID, "error", err)
		return
	}
	msg := &Message{Type: TypeDocSync, DiagramID: diagramID, Payload: payload}
	for _, c := range clients {
		c.Send(msg)
	}
}
