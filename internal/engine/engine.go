package engine

import (
	"errors"
	"fmt"

	"github.com/jbeda/geom"

	"github.com/geotutor/geotutor/backend-go/internal/construction"
	"github.com/geotutor/geotutor/backend-go/internal/document"
	"github.com/geotutor/geotutor/backend-go/internal/geometry"
	"github.com/geotutor/geotutor/backend-go/internal/regions"
)

var (
	ErrDragInProgress = errors.New("another gesture is in progress")
	ErrNotDraggable   = errors.New("point is not draggable")
)

// State is the gesture state of a session.
type State string

const (
	StateIdle             State = "idle"
	StateDragging         State = "dragging"
	StateShapeTranslating State = "shape-translating"
)

// RenderablePoint is a point as the renderer sees it.
type RenderablePoint struct {
	ID         int               `json:"id"`
	X          float64           `json:"x"`
	Y          float64           `json:"y"`
	Draggable  bool              `json:"draggable"`
	Role       construction.Role `json:"role"`
	Degenerate bool              `json:"degenerate,omitempty"`
}

// Point drops the rendering flags.
func (p RenderablePoint) Point() geometry.Point {
	return geometry.NewPoint(p.ID, p.X, p.Y)
}

// Marked reports whether the point gets a visible marker. Derived and guide
// points are implied by the lines.
func (p RenderablePoint) Marked() bool {
	return p.Role == construction.RoleAnchor || p.Role == construction.RoleHeld
}

// RenderableSegment is a line to draw.
type RenderableSegment struct {
	From geometry.Point `json:"from"`
	To   geometry.Point `json:"to"`
}

// Snapshot is the full renderable state of a session.
type Snapshot struct {
	ProblemID   string                    `json:"problemId"`
	Family      construction.Kind         `json:"family"`
	State       State                     `json:"state"`
	ActivePoint int                       `json:"activePoint,omitempty"`
	Points      []RenderablePoint         `json:"points"`
	Segments    []RenderableSegment       `json:"segments"`
	Regions     []regions.AngleRegion     `json:"regions"`
	Visible     []string                  `json:"visible"`
	Notes       []construction.Degeneracy `json:"notes"`
	Offset      [2]float64                `json:"offset"`
}

// Session owns one construction and its visibility map. Every mutation
// recomputes the derived points, wedges and scene graph before returning, so
// queries only read cached results. Create one with NewSession.
//
// A Session is not safe for concurrent use.
type Session struct {
	problem *document.Problem
	c       construction.Construction
	visible regions.Visibility

	state  State
	active int

	// Cumulative whole-shape translation since the problem was loaded.
	placement Matrix2D

	derived    construction.Derived
	points     []RenderablePoint
	segments   []RenderableSegment
	wedges     []regions.AngleRegion
	sceneGraph *SceneGraph
}

// NewSession creates a session for problem p.
func NewSession(p *document.Problem) (*Session, error) {
	s := &Session{}
	if err := s.Reset(p); err != nil {
		return nil, err
	}
	return s, nil
}

// NewSampleSession creates a session for the built-in problem of kind.
func NewSampleSession(kind construction.Kind) (*Session, error) {
	p, err := document.NewSampleProblem(kind)
	if err != nil {
		return nil, err
	}
	return NewSession(p)
}

// --- Commands (gesture layer → session) ---

// Reset replaces the construction with a new problem instance. On error the
// session is left unchanged.
func (s *Session) Reset(p *document.Problem) error {
	c, err := p.Construction()
	if err != nil {
		return err
	}

	vis := regions.NewVisibility(regions.Keys(c.Family().Regions()))
	for _, key := range p.Visible {
		if _, ok := vis[key]; !ok {
			return fmt.Errorf("problem %s visible %q: %w", p.ID, key, regions.ErrUnknownRegion)
		}
		vis[key] = true
	}

	s.problem = p
	s.c = c
	s.visible = vis
	s.state = StateIdle
	s.active = 0
	s.placement = Identity()
	s.recompute()
	return nil
}

// LoadProblem loads a problem document from JSON.
func (s *Session) LoadProblem(jsonData string) error {
	p, err := document.Parse([]byte(jsonData))
	if err != nil {
		return err
	}
	return s.Reset(p)
}

// LoadSampleProblem loads the built-in problem for kind.
func (s *Session) LoadSampleProblem(kind construction.Kind) error {
	p, err := document.NewSampleProblem(kind)
	if err != nil {
		return err
	}
	return s.Reset(p)
}

// BeginDrag starts dragging anchor id.
func (s *Session) BeginDrag(id int) error {
	switch {
	case s.state == StateDragging && s.active == id:
		return nil
	case s.state != StateIdle:
		return fmt.Errorf("begin drag %d while %s: %w", id, s.state, ErrDragInProgress)
	case !s.c.IsAnchor(id):
		return fmt.Errorf("point %d: %w", id, ErrNotDraggable)
	}
	s.state = StateDragging
	s.active = id
	return nil
}

// DragMove moves the active anchor to (x, y) and recomputes everything.
// A move while idle starts the drag implicitly.
func (s *Session) DragMove(id int, x, y float64) error {
	if s.state == StateIdle {
		if err := s.BeginDrag(id); err != nil {
			return err
		}
	}
	if s.state != StateDragging || s.active != id {
		return fmt.Errorf("move %d while %s %d: %w", id, s.state, s.active, ErrDragInProgress)
	}

	next, err := s.c.WithAnchor(id, x, y)
	if err != nil {
		return err
	}
	s.c = next
	s.recompute()
	return nil
}

// EndDrag releases the active anchor. The state is already consistent from
// the last move.
func (s *Session) EndDrag() {
	if s.state == StateDragging {
		s.state = StateIdle
		s.active = 0
	}
}

// BeginShapeTranslate marks the whole shape as being dragged.
func (s *Session) BeginShapeTranslate() error {
	if s.state == StateDragging {
		return fmt.Errorf("shape drag while dragging %d: %w", s.active, ErrDragInProgress)
	}
	s.state = StateShapeTranslating
	return nil
}

// ShapeDragEnd translates every independent point by (dx, dy), reruns the
// pipeline once and returns to idle.
func (s *Session) ShapeDragEnd(dx, dy float64) error {
	if s.state == StateDragging {
		return fmt.Errorf("shape drag while dragging %d: %w", s.active, ErrDragInProgress)
	}
	if !geometry.Finite(geometry.Point{X: dx, Y: dy}) {
		return fmt.Errorf("shape delta: %w", construction.ErrInvalidCoordinate)
	}

	m := Translate(dx, dy)
	s.c = s.c.Mapped(m.Apply)
	s.placement = m.Multiply(s.placement)
	s.state = StateIdle
	s.recompute()
	return nil
}

// ClickRegion toggles the wedges of key and every key linked to it. Point
// coordinates are never touched.
func (s *Session) ClickRegion(key string) error {
	vis, err := s.visible.Toggle(key, s.c.Family().Links())
	if err != nil {
		return err
	}
	s.visible = vis
	s.rebuildRegions()
	return nil
}

// --- Queries (session → renderer) ---

// State returns the gesture state.
func (s *Session) State() State {
	return s.state
}

// ActivePoint returns the id of the anchor being dragged, or 0.
func (s *Session) ActivePoint() int {
	return s.active
}

func (s *Session) Construction() construction.Construction {
	return s.c
}

// Placement returns the cumulative whole-shape translation.
func (s *Session) Placement() Matrix2D {
	return s.placement
}

// Problem returns the current configuration as a problem document.
func (s *Session) Problem() *document.Problem {
	p := document.FromConstruction(s.problem.ID, s.c)
	p.Title = s.problem.Title
	p.Canvas = s.problem.Canvas
	p.CreatedAt = s.problem.CreatedAt
	p.Visible = s.visible.Shown()
	return p
}

// Visibility returns a copy of the visibility map.
func (s *Session) Visibility() regions.Visibility {
	return s.visible.Clone()
}

// RenderablePoints returns every point ordered by id.
func (s *Session) RenderablePoints() []RenderablePoint {
	return append([]RenderablePoint(nil), s.points...)
}

// RenderableSegments returns the lines to draw.
func (s *Session) RenderableSegments() []RenderableSegment {
	return append([]RenderableSegment(nil), s.segments...)
}

// AngleRegions returns the wedges with their current visibility.
func (s *Session) AngleRegions() []regions.AngleRegion {
	return append([]regions.AngleRegion(nil), s.wedges...)
}

// Notes lists the fallback branches taken by the last recompute.
func (s *Session) Notes() []construction.Degeneracy {
	return append([]construction.Degeneracy(nil), s.derived.Notes...)
}

// Snapshot returns the full renderable state.
func (s *Session) Snapshot() Snapshot {
	dx, dy := s.placement.Offset()
	notes := s.Notes()
	if notes == nil {
		notes = []construction.Degeneracy{}
	}
	visible := s.visible.Shown()
	if visible == nil {
		visible = []string{}
	}
	return Snapshot{
		ProblemID:   s.problem.ID,
		Family:      s.c.Kind(),
		State:       s.state,
		ActivePoint: s.active,
		Points:      s.RenderablePoints(),
		Segments:    s.RenderableSegments(),
		Regions:     s.AngleRegions(),
		Visible:     visible,
		Notes:       notes,
		Offset:      [2]float64{dx, dy},
	}
}

// Render returns the draw commands for the current frame as JSON.
func (s *Session) Render() string {
	result, _ := DrawCommandsToJSON(CompileDrawCommands(s.sceneGraph))
	return result
}

// HitTest reports the draggable point or wedge under (x, y).
func (s *Session) HitTest(x, y float64) HitTestResult {
	return HitTest(s.sceneGraph, x, y)
}

// Bounds returns the bounding box of every point of the construction.
func (s *Session) Bounds() Rect {
	if len(s.points) == 0 {
		return Rect{}
	}
	c := s.points[0].Point().Coord()
	r := geom.Rect{Min: c, Max: c}
	for _, p := range s.points[1:] {
		r.ExpandToContainCoord(p.Point().Coord())
	}
	return rectFromGeom(r)
}

// recompute runs the full pipeline. Any anchor can affect any derived point,
// so nothing is updated incrementally.
func (s *Session) recompute() {
	s.derived = s.c.Derive()

	s.points = make([]RenderablePoint, len(s.derived.Points))
	for i, p := range s.derived.Points {
		s.points[i] = RenderablePoint{
			ID:         p.ID,
			X:          p.X,
			Y:          p.Y,
			Draggable:  s.c.IsAnchor(p.ID),
			Role:       s.derived.Roles[p.ID],
			Degenerate: s.derived.Degenerate(p.ID),
		}
	}

	segs := s.c.Family().Segments()
	s.segments = make([]RenderableSegment, 0, len(segs))
	for _, seg := range segs {
		from, okFrom := s.derived.Point(seg.From)
		to, okTo := s.derived.Point(seg.To)
		if okFrom && okTo {
			s.segments = append(s.segments, RenderableSegment{From: from, To: to})
		}
	}

	s.rebuildRegions()
}

func (s *Session) rebuildRegions() {
	wedges, err := regions.Build(s.derived.Points, s.c.Family().Regions(), s.visible)
	if err != nil {
		// Family recipes only reference ids they derive.
		panic(err)
	}
	s.wedges = wedges
	s.sceneGraph = BuildSceneGraph(s.problem.Canvas, s.points, s.segments, s.wedges)
}
