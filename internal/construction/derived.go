package construction

import (
	"errors"

	"github.com/geotutor/geotutor/backend-go/internal/geometry"
)

// Role classifies a point for rendering.
type Role string

const (
	RoleAnchor  Role = "anchor"
	RoleHeld    Role = "held"
	RoleDerived Role = "derived"
	// RoleGuide marks half-way points that wedges are built from.
	RoleGuide Role = "guide"
)

// Reasons recorded when a fallback branch replaces the general formula.
const (
	ReasonCoincident      = "coincident points"
	ReasonParallel        = "parallel lines"
	ReasonHorizontalRay   = "horizontal ray"
	ReasonHorizontalSlope = "horizontal governing slope"
)

// Degeneracy records that point PointID was produced by a fallback.
type Degeneracy struct {
	PointID int    `json:"pointId"`
	Reason  string `json:"reason"`
}

// Derived is the complete point set of a construction, ordered by id.
type Derived struct {
	Points []geometry.Point
	Roles  map[int]Role
	Notes  []Degeneracy
}

// Point returns the point with the given id.
func (d Derived) Point(id int) (geometry.Point, bool) {
	for _, p := range d.Points {
		if p.ID == id {
			return p, true
		}
	}
	return geometry.Point{}, false
}

// Degenerate reports whether point id came from a fallback branch.
func (d Derived) Degenerate(id int) bool {
	for _, n := range d.Notes {
		if n.PointID == id {
			return true
		}
	}
	return false
}

type builder struct {
	points []geometry.Point
	roles  map[int]Role
	notes  []Degeneracy
}

func newBuilder(capacity int) *builder {
	return &builder{
		points: make([]geometry.Point, 0, capacity),
		roles:  make(map[int]Role, capacity),
	}
}

// add appends p under id. Points must be added in ascending id order.
func (b *builder) add(p geometry.Point, id int, role Role) geometry.Point {
	p = p.WithID(id)
	b.points = append(b.points, p)
	b.roles[id] = role
	return p
}

func (b *builder) note(id int, reason string) {
	b.notes = append(b.notes, Degeneracy{PointID: id, Reason: reason})
}

func (b *builder) result() Derived {
	return Derived{Points: b.points, Roles: b.roles, Notes: b.notes}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, geometry.ErrCoincident):
		return ReasonCoincident
	case errors.Is(err, geometry.ErrHorizontalRay):
		return ReasonHorizontalRay
	default:
		return ReasonParallel
	}
}

// crossing intersects the line a0-a1 with the line b0-b1.
func crossing(a0, a1, b0, b1 geometry.Point) (geometry.Point, error) {
	ma, err := geometry.SlopeBetween(a0, a1)
	if err != nil {
		return geometry.Point{}, err
	}
	mb, err := geometry.SlopeBetween(b0, b1)
	if err != nil {
		return geometry.Point{}, err
	}
	return geometry.Intersect(a0, ma, b0, mb)
}
