package collab

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/geotutor/geotutor/backend-go/internal/construction"
	"github.com/geotutor/geotutor/backend-go/internal/document"
	"github.com/geotutor/geotutor/backend-go/internal/engine"
	"github.com/geotutor/geotutor/backend-go/internal/regions"
)

var (
	ErrUnknownOperation = errors.New("unknown operation type")
	ErrNoActiveDrag     = errors.New("no drag in progress")
	ErrReadOnly         = errors.New("participant may not modify the session")
)

// Nack reasons sent to clients.
const (
	ReasonDragInProgress    = "drag_in_progress"
	ReasonNotDraggable      = "not_draggable"
	ReasonInvalidCoordinate = "invalid_coordinate"
	ReasonUnknownRegion     = "unknown_region"
	ReasonUnknownOperation  = "unknown_operation"
	ReasonNoActiveDrag      = "no_active_drag"
	ReasonReadOnly          = "read_only"
	ReasonInvalid           = "invalid"
)

// opLogLimit caps the operation history kept per session.
const opLogLimit = 1000

// SessionState holds the authoritative interaction session for a room.
// Every access to the engine session goes through its mutex.
type SessionState struct {
	mu        sync.Mutex
	id        string
	session   *engine.Session
	serverSeq int64
	dragOwner string // participant holding the active drag
	opLog     []Operation
	touched   time.Time
}

// NewSessionState wraps s for shared use.
func NewSessionState(id string, s *engine.Session) *SessionState {
	return &SessionState{
		id:      id,
		session: s,
		opLog:   make([]Operation, 0),
		touched: time.Now(),
	}
}

func (ss *SessionState) ID() string {
	return ss.id
}

// Snapshot returns the current scene and the sequence it reflects.
func (ss *SessionState) Snapshot() (int64, engine.Snapshot) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.serverSeq, ss.session.Snapshot()
}

// Render returns the current draw commands as JSON.
func (ss *SessionState) Render() string {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.session.Render()
}

// Problem returns the current configuration as a problem document.
func (ss *SessionState) Problem() *document.Problem {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.session.Problem()
}

// LastActivity returns when the session last changed.
func (ss *SessionState) LastActivity() time.Time {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.touched
}

// OpLog returns a copy of the applied operations, oldest first.
func (ss *SessionState) OpLog() []Operation {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return append([]Operation(nil), ss.opLog...)
}

// ApplyOperation applies op on behalf of participantID and returns the new
// server sequence with the resulting scene. Rejected operations leave the
// session and the sequence unchanged.
func (ss *SessionState) ApplyOperation(participantID string, op Operation) (int64, engine.Snapshot, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if err := ss.applyOperationLocked(participantID, op); err != nil {
		return 0, engine.Snapshot{}, err
	}

	ss.serverSeq++
	ss.opLog = append(ss.opLog, op)
	if len(ss.opLog) > opLogLimit {
		ss.opLog = append([]Operation(nil), ss.opLog[len(ss.opLog)-opLogLimit:]...)
	}
	ss.touched = time.Now()

	return ss.serverSeq, ss.session.Snapshot(), nil
}

// ReleaseBy ends the drag held by participantID, if any. It reports whether
// the scene changed.
func (ss *SessionState) ReleaseBy(participantID string) (int64, engine.Snapshot, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.dragOwner == "" || ss.dragOwner != participantID {
		return 0, engine.Snapshot{}, false
	}
	ss.session.EndDrag()
	ss.dragOwner = ""
	ss.serverSeq++
	ss.touched = time.Now()
	return ss.serverSeq, ss.session.Snapshot(), true
}

// Reset loads a new problem instance into the session.
func (ss *SessionState) Reset(p *document.Problem) (int64, engine.Snapshot, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if err := ss.session.Reset(p); err != nil {
		return 0, engine.Snapshot{}, err
	}
	ss.dragOwner = ""
	ss.serverSeq++
	ss.touched = time.Now()
	return ss.serverSeq, ss.session.Snapshot(), nil
}

// applyOperationLocked applies the operation without locking (caller must hold lock)
func (ss *SessionState) applyOperationLocked(participantID string, op Operation) error {
	switch op.Type {
	case OpPointDrag:
		return ss.applyDrag(participantID, op)
	case OpPointRelease:
		return ss.applyRelease(participantID, op)
	case OpShapeTranslate:
		return ss.applyTranslate(participantID, op)
	case OpRegionClick:
		return ss.session.ClickRegion(op.ColorKey)
	default:
		return fmt.Errorf("%q: %w", op.Type, ErrUnknownOperation)
	}
}

func (ss *SessionState) applyDrag(participantID string, op Operation) error {
	if ss.dragOwner != "" && ss.dragOwner != participantID {
		return fmt.Errorf("point %d held by %s: %w", ss.session.ActivePoint(), ss.dragOwner, engine.ErrDragInProgress)
	}
	if err := ss.session.DragMove(op.PointID, op.X, op.Y); err != nil {
		return err
	}
	ss.dragOwner = participantID
	return nil
}

func (ss *SessionState) applyRelease(participantID string, op Operation) error {
	if ss.dragOwner == "" {
		return ErrNoActiveDrag
	}
	if ss.dragOwner != participantID {
		return fmt.Errorf("release by %s: %w", participantID, engine.ErrDragInProgress)
	}
	if op.PointID != 0 && op.PointID != ss.session.ActivePoint() {
		return fmt.Errorf("release %d while dragging %d: %w", op.PointID, ss.session.ActivePoint(), engine.ErrDragInProgress)
	}
	ss.session.EndDrag()
	ss.dragOwner = ""
	return nil
}

func (ss *SessionState) applyTranslate(participantID string, op Operation) error {
	if ss.dragOwner != "" {
		return fmt.Errorf("translate by %s: %w", participantID, engine.ErrDragInProgress)
	}
	return ss.session.ShapeDragEnd(op.DX, op.DY)
}

// NackReason maps an operation error to the reason sent to clients.
func NackReason(err error) string {
	switch {
	case errors.Is(err, engine.ErrDragInProgress):
		return ReasonDragInProgress
	case errors.Is(err, engine.ErrNotDraggable):
		return ReasonNotDraggable
	case errors.Is(err, construction.ErrInvalidCoordinate):
		return ReasonInvalidCoordinate
	case errors.Is(err, regions.ErrUnknownRegion):
		return ReasonUnknownRegion
	case errors.Is(err, ErrUnknownOperation):
		return ReasonUnknownOperation
	case errors.Is(err, ErrNoActiveDrag):
		return ReasonNoActiveDrag
	case errors.Is(err, ErrReadOnly):
		return ReasonReadOnly
	default:
		return ReasonInvalid
	}
}

// GetServerTimestamp returns the current server timestamp
func GetServerTimestamp() int64 {
	return time.Now().UnixMilli()
}
