package construction

import (
	"errors"
	"math"

	"github.com/geotutor/geotutor/backend-go/internal/geometry"
	"github.com/geotutor/geotutor/backend-go/internal/regions"
)

// extensionDrop is how far below the second line the transversal is drawn.
const extensionDrop = 200

// verticalAngles: two lines crossing at one vertex. The lines are the
// diagonals of the parallelogram p0, p1, p3, p2.
type verticalAngles struct{}

const (
	vaP0 = iota + 1
	vaP1
	vaP2
	vaP3
	vaVertex
	vaGuideP0
	vaGuideP1
	vaGuideP2
	vaGuideP3
)

func (verticalAngles) Kind() Kind       { return KindVertical }
func (verticalAngles) AnchorCount() int { return 2 }
func (verticalAngles) HeldCount() int   { return 1 }

func (verticalAngles) Derive(anchors, held []geometry.Point) Derived {
	b := newBuilder(vaGuideP3)

	p0 := b.add(anchors[0], vaP0, RoleAnchor)
	p1 := b.add(anchors[1], vaP1, RoleAnchor)
	p2 := b.add(held[0], vaP2, RoleHeld)
	p3 := b.add(geometry.Translate(p1, p0, p2), vaP3, RoleDerived)

	v, err := crossing(p0, p3, p1, p2)
	if err != nil {
		// Diagonals of a parallelogram bisect each other.
		b.note(vaVertex, reasonFor(err))
		v = geometry.Midpoint(p1, p2)
	}
	v = b.add(v, vaVertex, RoleDerived)

	b.add(geometry.Midpoint(v, p0), vaGuideP0, RoleGuide)
	b.add(geometry.Midpoint(v, p1), vaGuideP1, RoleGuide)
	b.add(geometry.Midpoint(v, p2), vaGuideP2, RoleGuide)
	b.add(geometry.Midpoint(v, p3), vaGuideP3, RoleGuide)
	return b.result()
}

func (verticalAngles) Segments() []Segment {
	return []Segment{{From: vaP0, To: vaP3}, {From: vaP1, To: vaP2}}
}

func (verticalAngles) Regions() []regions.Spec {
	return []regions.Spec{
		{ColorKey: regions.Green, Vertex: vaVertex, ArmA: vaGuideP0, ArmB: vaGuideP1},
		{ColorKey: regions.Blue, Vertex: vaVertex, ArmA: vaGuideP1, ArmB: vaGuideP3},
		{ColorKey: regions.Red, Vertex: vaVertex, ArmA: vaGuideP3, ArmB: vaGuideP2},
		{ColorKey: regions.Yellow, Vertex: vaVertex, ArmA: vaGuideP2, ArmB: vaGuideP0},
	}
}

func (verticalAngles) Links() map[string][]string { return nil }

// twoLine: line 1 through the anchors, line 2 through held point p2 and
// parallel to line 1, and a transversal from the far point F through the
// midpoint of line 1. Corresponding and same-side-interior diagrams share
// these points and differ only in their wedges.
type twoLine struct {
	kind  Kind
	specs []regions.Spec
	links map[string][]string
}

const (
	tlP0 = iota + 1
	tlP1
	tlP2
	tlFar
	tlP3
	tlVertex1
	tlExtension
	tlVertex2
	tlGuide1Far
	tlGuide1P1
	tlGuide1Down
	tlGuide1P0
	tlGuide2Up
	tlGuide2P3
	tlGuide2Ext
	tlGuide2P2
	tlGuide2Far
)

func newCorrespondingAngles() twoLine {
	return twoLine{
		kind: KindCorresponding,
		specs: []regions.Spec{
			{ColorKey: regions.Green, Vertex: tlVertex1, ArmA: tlGuide1Far, ArmB: tlGuide1P1},
			{ColorKey: regions.Blue, Vertex: tlVertex1, ArmA: tlGuide1P0, ArmB: tlGuide1Far},
			{ColorKey: regions.Red, Vertex: tlVertex2, ArmA: tlGuide2Far, ArmB: tlGuide2P3},
			{ColorKey: regions.Yellow, Vertex: tlVertex2, ArmA: tlGuide2P2, ArmB: tlGuide2Far},
		},
		links: map[string][]string{
			regions.Green:  {regions.Red},
			regions.Red:    {regions.Green},
			regions.Blue:   {regions.Yellow},
			regions.Yellow: {regions.Blue},
		},
	}
}

func newSameSideInterior() twoLine {
	return twoLine{
		kind: KindSameSideInterior,
		specs: []regions.Spec{
			{ColorKey: regions.Green, Vertex: tlVertex1, ArmA: tlGuide1P1, ArmB: tlGuide1Down},
			{ColorKey: regions.Green, Vertex: tlVertex2, ArmA: tlGuide2Up, ArmB: tlGuide2P3},
			{ColorKey: regions.Red, Vertex: tlVertex1, ArmA: tlGuide1Down, ArmB: tlGuide1P0},
			{ColorKey: regions.Red, Vertex: tlVertex2, ArmA: tlGuide2P2, ArmB: tlGuide2Up},
		},
	}
}

func (f twoLine) Kind() Kind     { return f.kind }
func (twoLine) AnchorCount() int { return 2 }
func (twoLine) HeldCount() int   { return 2 }

func (f twoLine) Regions() []regions.Spec {
	return append([]regions.Spec(nil), f.specs...)
}

func (f twoLine) Links() map[string][]string {
	return f.links
}

func (twoLine) Derive(anchors, held []geometry.Point) Derived {
	b := newBuilder(tlGuide2Far)

	p0 := b.add(anchors[0], tlP0, RoleAnchor)
	p1 := b.add(anchors[1], tlP1, RoleAnchor)
	p2 := b.add(held[0], tlP2, RoleHeld)
	far := b.add(held[1], tlFar, RoleHeld)
	p3 := b.add(geometry.Translate(p2, p0, p1), tlP3, RoleDerived)
	v1 := b.add(geometry.Midpoint(p0, p1), tlVertex1, RoleDerived)

	m, err := geometry.SlopeBetween(v1, far)
	if err != nil {
		b.note(tlExtension, reasonFor(err))
		m = geometry.VerticalSlope
	}

	ext, err := geometry.ExtendToY(far, m, p2.Y+extensionDrop)
	if err != nil {
		b.note(tlExtension, reasonFor(err))
		ext = geometry.Reflect(far, v1)
	}
	ext = b.add(ext, tlExtension, RoleDerived)

	v2, err := transversalCrossing(v1, m, p2, p3)
	if err != nil {
		b.note(tlVertex2, reasonFor(err))
		v2 = geometry.Midpoint(p2, p3)
	}
	v2 = b.add(v2, tlVertex2, RoleDerived)

	g1far := b.add(geometry.Midpoint(v1, far), tlGuide1Far, RoleGuide)
	b.add(geometry.Midpoint(v1, p1), tlGuide1P1, RoleGuide)
	b.add(geometry.Midpoint(v1, v2), tlGuide1Down, RoleGuide)
	b.add(geometry.Midpoint(v1, p0), tlGuide1P0, RoleGuide)
	b.add(geometry.Midpoint(v2, v1), tlGuide2Up, RoleGuide)
	b.add(geometry.Midpoint(v2, p3), tlGuide2P3, RoleGuide)
	b.add(geometry.Midpoint(v2, ext), tlGuide2Ext, RoleGuide)
	b.add(geometry.Midpoint(v2, p2), tlGuide2P2, RoleGuide)
	// The corresponding wedge at V2 opens the same way as the one at V1,
	// whichever side of line 2 line 1 has been dragged to.
	b.add(geometry.Translate(v2, v1, g1far), tlGuide2Far, RoleGuide)
	return b.result()
}

func transversalCrossing(v1 geometry.Point, m geometry.Slope, p2, p3 geometry.Point) (geometry.Point, error) {
	s2, err := geometry.SlopeBetween(p2, p3)
	if err != nil {
		return geometry.Point{}, err
	}
	return geometry.Intersect(v1, m, p2, s2)
}

func (twoLine) Segments() []Segment {
	return []Segment{
		{From: tlP0, To: tlP1},
		{From: tlP2, To: tlP3},
		{From: tlFar, To: tlExtension},
	}
}

// perpendicularLines: the anchor segment and its companion segment, rotated
// a quarter turn about the shared midpoint, form a "+".
type perpendicularLines struct{}

const (
	plA0 = iota + 1
	plA1
	plC0
	plC1
	plVertex
	plGuideA1
	plGuideC0
	plGuideA0
	plGuideC1
)

var errHorizontalSlope = errors.New(ReasonHorizontalSlope)

func (perpendicularLines) Kind() Kind       { return KindPerpendicular }
func (perpendicularLines) AnchorCount() int { return 2 }
func (perpendicularLines) HeldCount() int   { return 0 }

func (perpendicularLines) Derive(anchors, _ []geometry.Point) Derived {
	b := newBuilder(plGuideC1)

	a0 := b.add(anchors[0], plA0, RoleAnchor)
	a1 := b.add(anchors[1], plA1, RoleAnchor)
	c0, c1 := companions(a0, a1)
	c0 = b.add(c0, plC0, RoleDerived)
	c1 = b.add(c1, plC1, RoleDerived)

	m := geometry.Midpoint(a0, a1)
	n := geometry.Midpoint(c0, c1)

	v, err := perpendicularVertex(a0, a1, c0, c1)
	switch {
	case errors.Is(err, geometry.ErrCoincident):
		b.note(plVertex, ReasonCoincident)
		v = m
	case errors.Is(err, errHorizontalSlope):
		b.note(plVertex, ReasonHorizontalSlope)
		v = geometry.Midpoint(m, n)
	case err != nil:
		b.note(plVertex, reasonFor(err))
		v = geometry.Midpoint(m, n)
	}
	v = b.add(v, plVertex, RoleDerived)

	b.add(geometry.Midpoint(v, a1), plGuideA1, RoleGuide)
	b.add(geometry.Midpoint(v, c0), plGuideC0, RoleGuide)
	b.add(geometry.Midpoint(v, a0), plGuideA0, RoleGuide)
	b.add(geometry.Midpoint(v, c1), plGuideC1, RoleGuide)
	return b.result()
}

// companions returns the ends of the segment perpendicular to a0-a1 through
// its midpoint, with the same length. The offset is chosen by which side of
// a0 the point a1 lies on.
func companions(a0, a1 geometry.Point) (geometry.Point, geometry.Point) {
	dx := math.Abs(a1.X - a0.X)
	dy := math.Abs(a1.Y - a0.Y)

	var px, py float64
	switch {
	case a0.Y <= a1.Y && a0.X >= a1.X:
		px, py = -dy, -dx
	case a0.Y <= a1.Y:
		px, py = -dy, dx
	case a0.X >= a1.X:
		px, py = dy, -dx
	default:
		px, py = dy, dx
	}

	m := geometry.Midpoint(a0, a1)
	return geometry.Offset(m, px/2, py/2), geometry.Offset(m, -px/2, -py/2)
}

func perpendicularVertex(a0, a1, c0, c1 geometry.Point) (geometry.Point, error) {
	s1, err := geometry.SlopeBetween(a0, a1)
	if err != nil {
		return geometry.Point{}, err
	}
	s2, err := geometry.SlopeBetween(c0, c1)
	if err != nil {
		return geometry.Point{}, err
	}
	if s1.Horizontal() || s2.Horizontal() {
		return geometry.Point{}, errHorizontalSlope
	}
	return geometry.Intersect(a0, s1, c0, s2)
}

func (perpendicularLines) Segments() []Segment {
	return []Segment{{From: plA0, To: plA1}, {From: plC0, To: plC1}}
}

func (perpendicularLines) Regions() []regions.Spec {
	return []regions.Spec{
		{ColorKey: regions.Green, Vertex: plVertex, ArmA: plGuideA1, ArmB: plGuideC0, Shape: regions.Quad},
		{ColorKey: regions.Red, Vertex: plVertex, ArmA: plGuideA0, ArmB: plGuideC1, Shape: regions.Quad},
	}
}

func (perpendicularLines) Links() map[string][]string { return nil }
