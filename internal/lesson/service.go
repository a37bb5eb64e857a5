// Package lesson keeps the live classroom sessions: one shared interaction
// session per diagram, reachable through a join URL handed out as a QR code.
package lesson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/geotutor/geotutor/backend-go/internal/auth"
	"github.com/geotutor/geotutor/backend-go/internal/collab"
	"github.com/geotutor/geotutor/backend-go/internal/construction"
	"github.com/geotutor/geotutor/backend-go/internal/document"
	"github.com/geotutor/geotutor/backend-go/internal/engine"
	"github.com/geotutor/geotutor/backend-go/internal/regions"
	"github.com/geotutor/geotutor/backend-go/internal/typeid"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrLimitReached   = errors.New("too many open sessions")
	ErrInvalidRequest = errors.New("family or problem is required")
)

// Notifier fans scene changes made over REST out to websocket clients.
type Notifier interface {
	Publish(sessionID string, msg *collab.Message)
	CloseRoom(sessionID string)
	Connected(sessionID string) int
}

type Options struct {
	BaseURL     string
	QRSize      int
	MaxSessions int
	IdleTTL     time.Duration
}

type Service struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	reserved int // slots held by Create calls still building their session
	auth     *auth.Service
	notify   Notifier
	opts     Options
}

type entry struct {
	state     *collab.SessionState
	createdAt time.Time
	closing   bool // being pruned; new websocket joins are refused
}

func NewService(authService *auth.Service, opts Options) *Service {
	if opts.QRSize <= 0 {
		opts.QRSize = 256
	}
	return &Service{
		sessions: make(map[string]*entry),
		auth:     authService,
		notify:   nopNotifier{},
		opts:     opts,
	}
}

// SetNotifier wires the websocket hub. The hub itself loads sessions from
// the service, so it is attached after both exist.
func (s *Service) SetNotifier(n Notifier) {
	s.notify = n
}

// Session is a live session as reported to clients. Tokens and the join URL
// are only filled in when the session is created.
type Session struct {
	ID          string            `json:"id"`
	Family      construction.Kind `json:"family"`
	ProblemID   string            `json:"problemId"`
	JoinURL     string            `json:"joinUrl,omitempty"`
	DriverToken string            `json:"driverToken,omitempty"`
	ViewerToken string            `json:"viewerToken,omitempty"`
	CreatedAt   string            `json:"createdAt"`
	Connected   int               `json:"connected"`
	Seq         int64             `json:"seq"`
	Scene       engine.Snapshot   `json:"scene"`
}

// CreateRequest names a built-in sample family or carries a full problem
// document from the problem generator.
type CreateRequest struct {
	Family  construction.Kind `json:"family"`
	Problem json.RawMessage   `json:"problem,omitempty"`
}

// FamilyInfo describes one construction family.
type FamilyInfo struct {
	Kind    construction.Kind   `json:"kind"`
	Anchors int                 `json:"anchors"`
	Held    int                 `json:"held"`
	Regions []string            `json:"regions"`
	Links   map[string][]string `json:"links"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.reserve(); err != nil {
		return nil, err
	}
	defer s.release()

	p, err := problemFor(req)
	if err != nil {
		return nil, err
	}
	es, err := engine.NewSession(p)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	id := typeid.NewSessionID()
	driverToken, err := s.auth.IssueToken(id, auth.RoleDriver)
	if err != nil {
		return nil, fmt.Errorf("issue driver token: %w", err)
	}
	viewerToken, err := s.auth.IssueToken(id, auth.RoleViewer)
	if err != nil {
		return nil, fmt.Errorf("issue viewer token: %w", err)
	}

	e := &entry{
		state:     collab.NewSessionState(id, es),
		createdAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[id] = e
	s.mu.Unlock()

	slog.Info("session created", "session", id, "family", es.Construction().Kind(), "problem", p.ID)

	out := s.describe(id, e)
	out.DriverToken = driverToken
	out.ViewerToken = viewerToken
	out.JoinURL = joinURL(s.opts.BaseURL, id, viewerToken)
	return out, nil
}

func problemFor(req CreateRequest) (*document.Problem, error) {
	switch {
	case len(req.Problem) > 0:
		return document.Parse(req.Problem)
	case req.Family != "":
		return document.NewSampleProblem(req.Family)
	default:
		return nil, ErrInvalidRequest
	}
}

func (s *Service) Get(ctx context.Context, sessionID string) (*Session, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return s.describe(sessionID, e), nil
}

func (s *Service) describe(id string, e *entry) *Session {
	seq, snap := e.state.Snapshot()
	return &Session{
		ID:        id,
		Family:    snap.Family,
		ProblemID: snap.ProblemID,
		CreatedAt: e.createdAt.Format(time.RFC3339),
		Connected: s.notify.Connected(id),
		Seq:       seq,
		Scene:     snap,
	}
}

// Load returns the shared state of sessionID. It is the hub's session loader.
func (s *Service) Load(sessionID string) (*collab.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sessionID]
	if !ok || e.closing {
		return nil, fmt.Errorf("%s: %w", sessionID, ErrNotFound)
	}
	return e.state, nil
}

func (s *Service) lookup(sessionID string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", sessionID, ErrNotFound)
	}
	return e, nil
}

// Apply runs one gesture operation on behalf of participantID and fans the
// new scene out to the room.
func (s *Service) Apply(ctx context.Context, sessionID, participantID string, op collab.Operation) (int64, engine.Snapshot, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return 0, engine.Snapshot{}, err
	}
	if op.ID == "" {
		op.ID = typeid.NewOpID()
	}
	if op.Timestamp == 0 {
		op.Timestamp = collab.GetServerTimestamp()
	}

	seq, snap, err := e.state.ApplyOperation(participantID, op)
	if err != nil {
		return 0, engine.Snapshot{}, err
	}
	s.notify.Publish(sessionID, collab.NewSceneUpdate(sessionID, &op, participantID, seq, snap))
	return seq, snap, nil
}

// Reset loads a new problem into an existing session.
func (s *Service) Reset(ctx context.Context, sessionID string, req CreateRequest) (int64, engine.Snapshot, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return 0, engine.Snapshot{}, err
	}
	p, err := problemFor(req)
	if err != nil {
		return 0, engine.Snapshot{}, err
	}
	seq, snap, err := e.state.Reset(p)
	if err != nil {
		return 0, engine.Snapshot{}, err
	}
	s.notify.Publish(sessionID, collab.NewSceneUpdate(sessionID, nil, "", seq, snap))
	return seq, snap, nil
}

// Render returns the draw commands of sessionID as JSON.
func (s *Service) Render(ctx context.Context, sessionID string) (string, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return "", err
	}
	return e.state.Render(), nil
}

// Problem returns the current configuration of sessionID as a problem document.
func (s *Service) Problem(ctx context.Context, sessionID string) (*document.Problem, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return e.state.Problem(), nil
}

func (s *Service) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", sessionID, ErrNotFound)
	}

	s.notify.CloseRoom(sessionID)
	slog.Info("session deleted", "session", sessionID)
	return nil
}

// QRCode returns a PNG of a fresh viewer join URL for sessionID.
func (s *Service) QRCode(ctx context.Context, sessionID string) ([]byte, error) {
	if _, err := s.lookup(sessionID); err != nil {
		return nil, err
	}
	token, err := s.auth.IssueToken(sessionID, auth.RoleViewer)
	if err != nil {
		return nil, fmt.Errorf("issue viewer token: %w", err)
	}
	png, err := qrcode.Encode(joinURL(s.opts.BaseURL, sessionID, token), qrcode.Medium, s.opts.QRSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

func (s *Service) Families() []FamilyInfo {
	kinds := construction.Kinds()
	out := make([]FamilyInfo, 0, len(kinds))
	for _, k := range kinds {
		f, err := construction.Lookup(k)
		if err != nil {
			continue
		}
		out = append(out, FamilyInfo{
			Kind:    k,
			Anchors: f.AnchorCount(),
			Held:    f.HeldCount(),
			Regions: regions.Keys(f.Regions()),
			Links:   f.Links(),
		})
	}
	return out
}

// Count returns the number of open sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// reserve claims a slot under MaxSessions before any session is built.
func (s *Service) reserve() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opts.MaxSessions > 0 && len(s.sessions)+s.reserved >= s.opts.MaxSessions {
		return ErrLimitReached
	}
	s.reserved++
	return nil
}

func (s *Service) release() {
	s.mu.Lock()
	s.reserved--
	s.mu.Unlock()
}

// Prune removes sessions idle since before now-IdleTTL that nobody is
// connected to, and returns their ids.
func (s *Service) Prune(now time.Time) []string {
	if s.opts.IdleTTL <= 0 {
		return nil
	}
	cutoff := now.Add(-s.opts.IdleTTL)

	// The hub takes its own lock and calls back into Load, so it is never
	// consulted while s.mu is held.
	s.mu.RLock()
	idle := make(map[string]*entry)
	for id, e := range s.sessions {
		if e.state.LastActivity().Before(cutoff) {
			idle[id] = e
		}
	}
	s.mu.RUnlock()

	var pruned []string
	for id, e := range idle {
		s.mu.Lock()
		if s.sessions[id] != e {
			s.mu.Unlock()
			continue
		}
		e.closing = true
		s.mu.Unlock()

		// Load refuses closing entries, so no room can appear after this count.
		keep := s.notify.Connected(id) > 0 || !e.state.LastActivity().Before(cutoff)

		s.mu.Lock()
		if keep {
			e.closing = false
		} else if s.sessions[id] == e {
			delete(s.sessions, id)
			pruned = append(pruned, id)
		}
		s.mu.Unlock()
	}

	sort.Strings(pruned)
	return pruned
}

// RunJanitor prunes idle sessions every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if pruned := s.Prune(now); len(pruned) > 0 {
				slog.Info("pruned idle sessions", "count", len(pruned), "remaining", s.Count())
			}
		}
	}
}

type nopNotifier struct{}

func (nopNotifier) Publish(string, *collab.Message) {}
func (nopNotifier) CloseRoom(string)                {}
func (nopNotifier) Connected(string) int            { return 0 }
