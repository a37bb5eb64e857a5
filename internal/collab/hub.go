package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/geotutor/geotutor/backend-go/internal/typeid"
)

// SessionLoader resolves the shared state behind a session id.
type SessionLoader func(sessionID string) (*SessionState, error)

type Room struct {
	sessionID string
	state     *SessionState
	clients   map[string]*Client // clientID -> client
	presence  *PresenceManager
}

func NewRoom(state *SessionState) *Room {
	return &Room{
		sessionID: state.ID(),
		state:     state,
		clients:   make(map[string]*Client),
		presence:  NewPresenceManager(),
	}
}

// hasParticipant reports whether another connection of participantID is
// still in the room.
func (r *Room) hasParticipant(participantID string) bool {
	for _, c := range r.clients {
		if c.ParticipantID == participantID {
			return true
		}
	}
	return false
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // sessionID -> room
	load       SessionLoader
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(load SessionLoader) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		load:       load,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves register and unregister requests until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.closeSend()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SessionID]
	if !ok {
		state, err := h.load(client.SessionID)
		if err != nil {
			h.mu.Unlock()
			slog.Warn("join unknown session", "session", client.SessionID, "error", err)
			client.Send(closedMessage(client.SessionID))
			client.closeSend()
			return
		}
		room = NewRoom(state)
		h.rooms[client.SessionID] = room
	}
	room.clients[client.ClientID] = client
	room.presence.Update(client.ParticipantID, &PresencePayload{
		DisplayName: client.DisplayName,
		Role:        client.Role,
	})
	h.mu.Unlock()

	seq, snap := room.state.Snapshot()
	welcome, _ := json.Marshal(WelcomePayload{
		ClientID:      client.ClientID,
		ParticipantID: client.ParticipantID,
		Role:          client.Role,
		ServerSeq:     seq,
		Scene:         snap,
	})
	client.Send(&Message{
		Type:      TypeWelcome,
		SessionID: client.SessionID,
		ClientID:  client.ClientID,
		Seq:       seq,
		Payload:   welcome,
	})

	// Send current presence state to new client
	stateMsg := room.presence.StateMessage()
	if stateMsg != nil {
		client.Send(stateMsg)
	}

	// Broadcast join to other clients
	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		ParticipantID: client.ParticipantID,
		DisplayName:   client.DisplayName,
		Role:          client.Role,
	})
	joinMsg := &Message{
		Type:          TypePresenceJoin,
		ParticipantID: client.ParticipantID,
		Payload:       joinPayload,
	}
	h.broadcastToRoom(client.SessionID, joinMsg, client.ClientID)

	slog.Info("client joined", "participant", client.ParticipantID, "role", client.Role, "session", client.SessionID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SessionID]
	if !ok || room.clients[client.ClientID] != client {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.closeSend()
	stillHere := room.hasParticipant(client.ParticipantID)
	if !stillHere {
		room.presence.Remove(client.ParticipantID)
	}

	if len(room.clients) == 0 {
		delete(h.rooms, client.SessionID)
	}
	h.mu.Unlock()

	if stillHere {
		return
	}

	// A driver that vanishes mid-drag must not lock the session.
	if seq, snap, released := room.state.ReleaseBy(client.ParticipantID); released {
		h.broadcastToRoom(client.SessionID, NewSceneUpdate(client.SessionID, nil, client.ParticipantID, seq, snap), "")
	}

	// Broadcast leave to remaining clients
	leavePayload, _ := json.Marshal(PresenceLeavePayload{
		ParticipantID: client.ParticipantID,
	})
	leaveMsg := &Message{
		Type:          TypePresenceLeave,
		ParticipantID: client.ParticipantID,
		Payload:       leavePayload,
	}
	h.broadcastToRoom(client.SessionID, leaveMsg, "")

	slog.Info("client left", "participant", client.ParticipantID, "session", client.SessionID)
}

// Publish sends msg to every client connected to sessionID.
func (h *Hub) Publish(sessionID string, msg *Message) {
	h.broadcastToRoom(sessionID, msg, "")
}

// CloseRoom tells every client of sessionID the session is gone and drops
// their connections.
func (h *Hub) CloseRoom(sessionID string) {
	h.mu.Lock()
	room, ok := h.rooms[sessionID]
	if ok {
		delete(h.rooms, sessionID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	msg := closedMessage(sessionID)
	for _, c := range room.clients {
		c.Send(msg)
		c.closeSend()
	}
	slog.Info("room closed", "session", sessionID, "clients", len(room.clients))
}

// Connected returns the number of clients in sessionID's room.
func (h *Hub) Connected(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.rooms[sessionID]; ok {
		return len(room.clients)
	}
	return 0
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]*Room)
	h.mu.Unlock()

	for _, room := range rooms {
		for _, c := range room.clients {
			c.closeSend()
		}
	}
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeOpSubmit:
		h.handleOpSubmit(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "participant", sender.ParticipantID)
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.DisplayName = sender.DisplayName
	presence.Role = sender.Role

	room, ok := h.room(sender.SessionID)
	if !ok {
		return
	}

	room.presence.Update(sender.ParticipantID, &presence)

	// Broadcast to other clients in room
	outPayload, _ := json.Marshal(presence)
	outMsg := &Message{
		Type:          TypePresenceUpdate,
		ParticipantID: sender.ParticipantID,
		Payload:       outPayload,
	}
	h.broadcastToRoom(sender.SessionID, outMsg, sender.ClientID)
}

func (h *Hub) handleOpSubmit(sender *Client, msg *Message) {
	var payload OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.sendNack(sender, "", ReasonInvalid, err.Error())
		return
	}

	op := payload.Operation
	if op.ID == "" {
		op.ID = typeid.NewOpID()
	}

	if !sender.CanSubmit() {
		h.sendNack(sender, op.ID, ReasonReadOnly, ErrReadOnly.Error())
		return
	}

	room, ok := h.room(sender.SessionID)
	if !ok {
		return
	}

	seq, snap, err := room.state.ApplyOperation(sender.ParticipantID, op)
	if err != nil {
		slog.Debug("operation rejected", "op", op.Type, "participant", sender.ParticipantID, "error", err)
		h.sendNack(sender, op.ID, NackReason(err), err.Error())
		return
	}

	ackPayload, _ := json.Marshal(OperationAckPayload{
		OperationID:     op.ID,
		ServerSeq:       seq,
		ServerTimestamp: GetServerTimestamp(),
	})
	sender.Send(&Message{
		Type:      TypeOpAck,
		SessionID: sender.SessionID,
		Seq:       seq,
		Payload:   ackPayload,
	})

	h.broadcastToRoom(sender.SessionID, NewSceneUpdate(sender.SessionID, &op, sender.ParticipantID, seq, snap), "")
}

func (h *Hub) sendNack(client *Client, opID, reason, detail string) {
	payload, _ := json.Marshal(OperationNackPayload{
		OperationID: opID,
		Reason:      reason,
		Detail:      detail,
	})
	client.Send(&Message{
		Type:      TypeOpNack,
		SessionID: client.SessionID,
		Payload:   payload,
	})
}

func (h *Hub) room(sessionID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[sessionID]
	return room, ok
}

func (h *Hub) broadcastToRoom(sessionID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[sessionID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

func closedMessage(sessionID string) *Message {
	return &Message{
		Type:      TypeClosed,
		SessionID: sessionID,
		Payload:   json.RawMessage(`{}`),
	}
}
