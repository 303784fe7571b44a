package session

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// PresencePayload is one client's live cursor state, shared with the
// other clients in the room. Coordinates are world-space so every
// client can place the remote cursor under its own viewport.
type PresencePayload struct {
	ClientID string  `json:"clientId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	State    string  `json:"state"`
}

// PresenceStatePayload is the full presence picture for a room.
type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

// PresenceTracker holds the presence of every client in one room.
type PresenceTracker struct {
	mu        sync.RWMutex
	presences map[string]*PresencePayload
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		presences: make(map[string]*PresencePayload),
	}
}

func (pt *PresenceTracker) Update(clientID string, p *PresencePayload) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.presences[clientID] = p
}

func (pt *PresenceTracker) Remove(clientID string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	delete(pt.presences, clientID)
}

func (pt *PresenceTracker) Snapshot() map[string]*PresencePayload {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	result := make(map[string]*PresencePayload, len(pt.presences))
	for k, v := range pt.presences {
		result[k] = v
	}
	return result
}

// StateMessage builds the broadcastable presence message for the room.
func (pt *PresenceTracker) StateMessage(diagramID string) *Message {
	payload, err := json.Marshal(PresenceStatePayload{Presences: pt.Snapshot()})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{Type: TypePresenceState, DiagramID: diagramID, Payload: payload}
}
