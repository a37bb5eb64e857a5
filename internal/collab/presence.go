package collab

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// PresenceManager tracks the cursor and hover state of every participant in
// a room. Entries are replaced, never mutated, so snapshots can be shared.
type PresenceManager struct {
	mu        sync.RWMutex
	presences map[string]*PresencePayload // participantID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]*PresencePayload),
	}
}

// Update records p for participantID. A presence update without a display
// name or role keeps the ones recorded at join.
func (pm *PresenceManager) Update(participantID string, p *PresencePayload) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if prev, ok := pm.presences[participantID]; ok {
		next := *p
		if next.DisplayName == "" {
			next.DisplayName = prev.DisplayName
		}
		if next.Role == "" {
			next.Role = prev.Role
		}
		p = &next
	}
	pm.presences[participantID] = p
}

func (pm *PresenceManager) Remove(participantID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.presences, participantID)
}

func (pm *PresenceManager) Get(participantID string) (*PresencePayload, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	p, ok := pm.presences[participantID]
	return p, ok
}

func (pm *PresenceManager) GetAll() map[string]*PresencePayload {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	result := make(map[string]*PresencePayload, len(pm.presences))
	for k, v := range pm.presences {
		result[k] = v
	}
	return result
}

func (pm *PresenceManager) StateMessage() *Message {
	all := pm.GetAll()
	payload, err := json.Marshal(PresenceStatePayload{Presences: all})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{
		Type:    TypePresenceState,
		Payload: payload,
	}
}
