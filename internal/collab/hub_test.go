package collab

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/geotutor/geotutor/backend-go/internal/auth"
	"github.com/geotutor/geotutor/backend-go/internal/construction"
	"github.com/geotutor/geotutor/backend-go/internal/engine"
)

var errNoSession = errors.New("no such session")

func newTestHub(t *testing.T) (*Hub, *SessionState) {
	t.Helper()
	state := newState(t, construction.KindVertical)
	hub := NewHub(func(id string) (*SessionState, error) {
		if id != state.ID() {
			return nil, errNoSession
		}
		return state, nil
	})
	return hub, state
}

func newTestClient(hub *Hub, sessionID, participantID, clientID string, role auth.Role) *Client {
	return &Client{
		hub:           hub,
		send:          make(chan []byte, sendBuffer),
		ParticipantID: participantID,
		DisplayName:   participantID,
		SessionID:     sessionID,
		ClientID:      clientID,
		Role:          role,
	}
}

// drain returns every message queued for c.
func drain(t *testing.T, c *Client) []Message {
	t.Helper()
	var out []Message
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return out
			}
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("bad message %s: %v", data, err)
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func types(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

func find(msgs []Message, typ string) (Message, bool) {
	for _, m := range msgs {
		if m.Type == typ {
			return m, true
		}
	}
	return Message{}, false
}

func submit(t *testing.T, op Operation) *Message {
	t.Helper()
	payload, err := json.Marshal(OperationSubmitPayload{Operation: op})
	if err != nil {
		t.Fatal(err)
	}
	return &Message{Type: TypeOpSubmit, Payload: payload}
}

func TestJoinSendsWelcomeAndPresence(t *testing.T) {
	hub, state := newTestHub(t)
	driver := newTestClient(hub, state.ID(), "alice", "c1", auth.RoleDriver)
	viewer := newTestClient(hub, state.ID(), "bob", "c2", auth.RoleViewer)

	hub.addClient(driver)
	msgs := drain(t, driver)
	if len(msgs) < 2 || msgs[0].Type != TypeWelcome || msgs[1].Type != TypePresenceState {
		t.Fatalf("expected welcome then presence.state, got %v", types(msgs))
	}
	var welcome WelcomePayload
	if err := json.Unmarshal(msgs[0].Payload, &welcome); err != nil {
		t.Fatal(err)
	}
	if welcome.Role != auth.RoleDriver || welcome.ParticipantID != "alice" {
		t.Errorf("unexpected welcome %+v", welcome)
	}
	if len(welcome.Scene.Points) != 9 {
		t.Errorf("expected 9 points in welcome scene, got %d", len(welcome.Scene.Points))
	}

	hub.addClient(viewer)
	drain(t, viewer)
	join, ok := find(drain(t, driver), TypePresenceJoin)
	if !ok {
		t.Fatal("driver did not see viewer join")
	}
	var jp PresenceJoinPayload
	if err := json.Unmarshal(join.Payload, &jp); err != nil {
		t.Fatal(err)
	}
	if jp.ParticipantID != "bob" || jp.Role != auth.RoleViewer {
		t.Errorf("unexpected join payload %+v", jp)
	}
	if n := hub.Connected(state.ID()); n != 2 {
		t.Errorf("expected 2 connected, got %d", n)
	}
}

func TestJoinUnknownSession(t *testing.T) {
	hub, _ := newTestHub(t)
	c := newTestClient(hub, "sess_missing", "alice", "c1", auth.RoleDriver)

	hub.addClient(c)
	msgs := drain(t, c)
	if len(msgs) != 1 || msgs[0].Type != TypeClosed {
		t.Fatalf("expected session.closed, got %v", types(msgs))
	}
	if !c.closed {
		t.Error("expected send channel closed")
	}
	// Unregistering a client that never joined is a no-op.
	hub.removeClient(c)
}

func TestDriverOperationBroadcast(t *testing.T) {
	hub, state := newTestHub(t)
	driver := newTestClient(hub, state.ID(), "alice", "c1", auth.RoleDriver)
	viewer := newTestClient(hub, state.ID(), "bob", "c2", auth.RoleViewer)
	hub.addClient(driver)
	hub.addClient(viewer)
	drain(t, driver)
	drain(t, viewer)

	hub.handleMessage(driver, submit(t, Operation{ID: "op1", Type: OpPointDrag, PointID: 1, X: 100, Y: 199}))

	dmsgs := drain(t, driver)
	ack, ok := find(dmsgs, TypeOpAck)
	if !ok {
		t.Fatalf("expected ack, got %v", types(dmsgs))
	}
	var ap OperationAckPayload
	if err := json.Unmarshal(ack.Payload, &ap); err != nil {
		t.Fatal(err)
	}
	if ap.OperationID != "op1" || ap.ServerSeq != 1 {
		t.Errorf("unexpected ack %+v", ap)
	}
	if _, ok := find(dmsgs, TypeSceneUpdate); !ok {
		t.Error("driver did not receive scene.update")
	}

	update, ok := find(drain(t, viewer), TypeSceneUpdate)
	if !ok {
		t.Fatal("viewer did not receive scene.update")
	}
	var up SceneUpdatePayload
	if err := json.Unmarshal(update.Payload, &up); err != nil {
		t.Fatal(err)
	}
	if up.ServerSeq != 1 || up.ParticipantID != "alice" || up.Operation == nil || up.Operation.ID != "op1" {
		t.Errorf("unexpected update %+v", up)
	}
	if up.Scene.State != engine.StateDragging || up.Scene.Points[0].Y != 199 {
		t.Errorf("scene not updated: state %s point %+v", up.Scene.State, up.Scene.Points[0])
	}
}

func TestViewerCannotSubmit(t *testing.T) {
	hub, state := newTestHub(t)
	viewer := newTestClient(hub, state.ID(), "bob", "c2", auth.RoleViewer)
	hub.addClient(viewer)
	drain(t, viewer)

	hub.handleMessage(viewer, submit(t, Operation{ID: "op1", Type: OpRegionClick, ColorKey: "green"}))

	msgs := drain(t, viewer)
	nack, ok := find(msgs, TypeOpNack)
	if !ok {
		t.Fatalf("expected nack, got %v", types(msgs))
	}
	var np OperationNackPayload
	if err := json.Unmarshal(nack.Payload, &np); err != nil {
		t.Fatal(err)
	}
	if np.Reason != ReasonReadOnly || np.OperationID != "op1" {
		t.Errorf("unexpected nack %+v", np)
	}
	if seq, _ := state.Snapshot(); seq != 0 {
		t.Errorf("viewer op changed the session to seq %d", seq)
	}
}

func TestInvalidOperationNack(t *testing.T) {
	hub, state := newTestHub(t)
	driver := newTestClient(hub, state.ID(), "alice", "c1", auth.RoleDriver)
	hub.addClient(driver)
	drain(t, driver)

	hub.handleMessage(driver, submit(t, Operation{Type: OpPointDrag, PointID: 3, X: 1, Y: 1}))

	msgs := drain(t, driver)
	nack, ok := find(msgs, TypeOpNack)
	if !ok {
		t.Fatalf("expected nack, got %v", types(msgs))
	}
	var np OperationNackPayload
	if err := json.Unmarshal(nack.Payload, &np); err != nil {
		t.Fatal(err)
	}
	if np.Reason != ReasonNotDraggable {
		t.Errorf("expected %s, got %s", ReasonNotDraggable, np.Reason)
	}
	if np.OperationID == "" {
		t.Error("expected a generated operation id")
	}
	if _, ok := find(msgs, TypeSceneUpdate); ok {
		t.Error("rejected op must not broadcast")
	}

	hub.handleMessage(driver, &Message{Type: TypeOpSubmit, Payload: json.RawMessage(`"nope"`)})
	if _, ok := find(drain(t, driver), TypeOpNack); !ok {
		t.Error("expected nack for malformed payload")
	}
}

func TestDriverLeaveReleasesDrag(t *testing.T) {
	hub, state := newTestHub(t)
	driver := newTestClient(hub, state.ID(), "alice", "c1", auth.RoleDriver)
	viewer := newTestClient(hub, state.ID(), "bob", "c2", auth.RoleViewer)
	hub.addClient(driver)
	hub.addClient(viewer)
	hub.handleMessage(driver, submit(t, Operation{Type: OpPointDrag, PointID: 2, X: 100, Y: 320}))
	drain(t, viewer)

	hub.removeClient(driver)

	msgs := drain(t, viewer)
	update, ok := find(msgs, TypeSceneUpdate)
	if !ok {
		t.Fatalf("expected scene.update after driver left, got %v", types(msgs))
	}
	var up SceneUpdatePayload
	if err := json.Unmarshal(update.Payload, &up); err != nil {
		t.Fatal(err)
	}
	if up.Scene.State != engine.StateIdle {
		t.Errorf("expected idle after driver left, got %s", up.Scene.State)
	}
	if _, ok := find(msgs, TypePresenceLeave); !ok {
		t.Error("expected presence.leave")
	}
	if !driver.closed {
		t.Error("expected driver send channel closed")
	}
}

func TestSecondConnectionKeepsDrag(t *testing.T) {
	hub, state := newTestHub(t)
	tab1 := newTestClient(hub, state.ID(), "alice", "c1", auth.RoleDriver)
	tab2 := newTestClient(hub, state.ID(), "alice", "c2", auth.RoleDriver)
	hub.addClient(tab1)
	hub.addClient(tab2)
	hub.handleMessage(tab1, submit(t, Operation{Type: OpPointDrag, PointID: 1, X: 80, Y: 200}))

	hub.removeClient(tab1)

	if _, snap := state.Snapshot(); snap.State != engine.StateDragging {
		t.Errorf("expected drag kept while alice is still connected, got %s", snap.State)
	}
	if _, ok := hubPresence(hub, state.ID(), "alice"); !ok {
		t.Error("expected alice to stay present")
	}
}

func TestPresenceUpdateRelayed(t *testing.T) {
	hub, state := newTestHub(t)
	a := newTestClient(hub, state.ID(), "alice", "c1", auth.RoleDriver)
	b := newTestClient(hub, state.ID(), "bob", "c2", auth.RoleViewer)
	hub.addClient(a)
	hub.addClient(b)
	drain(t, a)
	drain(t, b)

	payload, _ := json.Marshal(PresencePayload{Cursor: &CursorPos{X: 10, Y: 20}, Hover: "green", Role: auth.RoleDriver})
	hub.handleMessage(b, &Message{Type: TypePresenceUpdate, Payload: payload})

	if msgs := drain(t, b); len(msgs) != 0 {
		t.Errorf("sender should not get its own presence, got %v", types(msgs))
	}
	msg, ok := find(drain(t, a), TypePresenceUpdate)
	if !ok {
		t.Fatal("expected presence.update")
	}
	var p PresencePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.Role != auth.RoleViewer || p.DisplayName != "bob" || p.Hover != "green" {
		t.Errorf("presence not normalised: %+v", p)
	}
}

func TestCloseRoom(t *testing.T) {
	hub, state := newTestHub(t)
	c := newTestClient(hub, state.ID(), "alice", "c1", auth.RoleDriver)
	hub.addClient(c)
	drain(t, c)

	hub.CloseRoom(state.ID())

	msgs := drain(t, c)
	if len(msgs) != 1 || msgs[0].Type != TypeClosed {
		t.Errorf("expected session.closed, got %v", types(msgs))
	}
	if hub.Connected(state.ID()) != 0 {
		t.Error("expected room removed")
	}
	// The read pump still unregisters afterwards.
	hub.removeClient(c)
	c.Send(&Message{Type: TypeError})
}

func hubPresence(h *Hub, sessionID, participantID string) (*PresencePayload, bool) {
	room, ok := h.room(sessionID)
	if !ok {
		return nil, false
	}
	return room.presence.Get(participantID)
}
