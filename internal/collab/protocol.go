package collab

import (
	"encoding/json"

	"github.com/geotutor/geotutor/backend-go/internal/auth"
	"github.com/geotutor/geotutor/backend-go/internal/engine"
)

type Message struct {
	Type          string          `json:"type"`
	SessionID     string          `json:"sessionId,omitempty"`
	ClientID      string          `json:"clientId,omitempty"`
	ParticipantID string          `json:"participantId,omitempty"`
	Seq           int64           `json:"seq,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Hover       string     `json:"hover,omitempty"` // colorKey under the cursor
	DisplayName string     `json:"displayName,omitempty"`
	Role        auth.Role  `json:"role,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	ParticipantID string    `json:"participantId"`
	DisplayName   string    `json:"displayName"`
	Role          auth.Role `json:"role"`
}

type PresenceLeavePayload struct {
	ParticipantID string `json:"participantId"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"
	TypeClosed  = "session.closed"

	// Scene sync
	TypeSceneUpdate = "scene.update"

	// Operation message types
	TypeOpSubmit = "op.submit"
	TypeOpAck    = "op.ack"
	TypeOpNack   = "op.nack"
)

// Gesture operation types.
const (
	OpPointDrag      = "point.drag"
	OpPointRelease   = "point.release"
	OpShapeTranslate = "shape.translate"
	OpRegionClick    = "region.click"
)

// --- Operation Types ---

// Operation is one gesture applied to a shared session.
type Operation struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	ClientSeq int64  `json:"clientSeq"`

	// For point.drag and point.release
	PointID int     `json:"pointId,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`

	// For shape.translate
	DX float64 `json:"dx,omitempty"`
	DY float64 `json:"dy,omitempty"`

	// For region.click
	ColorKey string `json:"colorKey,omitempty"`
}

// OperationSubmitPayload is the payload for op.submit messages
type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

// OperationAckPayload is the payload for op.ack messages
type OperationAckPayload struct {
	OperationID     string `json:"operationId"`
	ServerSeq       int64  `json:"serverSeq"`
	ServerTimestamp int64  `json:"serverTimestamp"`
}

// OperationNackPayload is the payload for op.nack messages
type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
	Detail      string `json:"detail,omitempty"`
}

// SceneUpdatePayload is the payload for scene.update messages. Operation is
// nil when the scene changed without a gesture (reset, driver disconnect).
type SceneUpdatePayload struct {
	Operation     *Operation      `json:"operation,omitempty"`
	ParticipantID string          `json:"participantId,omitempty"`
	ServerSeq     int64           `json:"serverSeq"`
	Scene         engine.Snapshot `json:"scene"`
}

// WelcomePayload is sent to a client right after it joins.
type WelcomePayload struct {
	ClientID      string          `json:"clientId"`
	ParticipantID string          `json:"participantId"`
	Role          auth.Role       `json:"role"`
	ServerSeq     int64           `json:"serverSeq"`
	Scene         engine.Snapshot `json:"scene"`
}

// NewSceneUpdate builds the broadcast sent after the scene of sessionID changed.
func NewSceneUpdate(sessionID string, op *Operation, participantID string, seq int64, snap engine.Snapshot) *Message {
	payload, _ := json.Marshal(SceneUpdatePayload{
		Operation:     op,
		ParticipantID: participantID,
		ServerSeq:     seq,
		Scene:         snap,
	})
	return &Message{
		Type:      TypeSceneUpdate,
		SessionID: sessionID,
		Seq:       seq,
		Payload:   payload,
	}
}
