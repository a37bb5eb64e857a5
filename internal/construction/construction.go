// Package construction holds the geometric configuration behind one lesson
// diagram and recomputes every dependent point from its anchors.
package construction

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/geotutor/geotutor/backend-go/internal/geometry"
	"github.com/geotutor/geotutor/backend-go/internal/regions"
)

// Kind identifies a construction family.
type Kind string

const (
	KindVertical         Kind = "vertical"
	KindCorresponding    Kind = "corresponding"
	KindSameSideInterior Kind = "same-side-interior"
	KindPerpendicular    Kind = "perpendicular"
)

var (
	ErrUnknownFamily     = errors.New("unknown construction family")
	ErrAnchorCount       = errors.New("wrong number of anchor points")
	ErrHeldCount         = errors.New("wrong number of held points")
	ErrNotAnchor         = errors.New("point is not a draggable anchor")
	ErrInvalidCoordinate = errors.New("coordinate is not a finite number")
)

// Segment is a line to draw between two points, by id.
type Segment struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Family is the recipe for one kind of diagram.
type Family interface {
	Kind() Kind
	AnchorCount() int
	HeldCount() int
	// Derive returns every point of the diagram. It must not mutate its
	// arguments and must never emit a non-finite coordinate.
	Derive(anchors, held []geometry.Point) Derived
	Segments() []Segment
	Regions() []regions.Spec
	// Links lists, per color key, the keys toggled together with it.
	Links() map[string][]string
}

var families = map[Kind]Family{
	KindVertical:         verticalAngles{},
	KindCorresponding:    newCorrespondingAngles(),
	KindSameSideInterior: newSameSideInterior(),
	KindPerpendicular:    perpendicularLines{},
}

// Lookup returns the family registered for kind.
func Lookup(kind Kind) (Family, error) {
	f, ok := families[kind]
	if !ok {
		return nil, fmt.Errorf("%q: %w", kind, ErrUnknownFamily)
	}
	return f, nil
}

// Kinds returns every registered family, sorted.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(families))
	for k := range families {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Construction is an immutable diagram configuration. Anchors are the points
// a learner can drag; held points are fixed references supplied with the
// problem that move only when the whole shape is translated.
type Construction struct {
	family  Family
	anchors []geometry.Point
	held    []geometry.Point
}

// New validates the point counts for kind and assigns ids: anchors get
// 1..n, held points continue from there. Incoming ids are ignored.
func New(kind Kind, anchors, held []geometry.Point) (Construction, error) {
	family, err := Lookup(kind)
	if err != nil {
		return Construction{}, err
	}
	if len(anchors) != family.AnchorCount() {
		return Construction{}, fmt.Errorf("%s: expected %d, got %d: %w", kind, family.AnchorCount(), len(anchors), ErrAnchorCount)
	}
	if len(held) != family.HeldCount() {
		return Construction{}, fmt.Errorf("%s: expected %d, got %d: %w", kind, family.HeldCount(), len(held), ErrHeldCount)
	}

	c := Construction{
		family:  family,
		anchors: make([]geometry.Point, len(anchors)),
		held:    make([]geometry.Point, len(held)),
	}
	id := 1
	for i, p := range anchors {
		if !geometry.Finite(p) {
			return Construction{}, fmt.Errorf("anchor %d: %w", i, ErrInvalidCoordinate)
		}
		c.anchors[i] = p.WithID(id)
		id++
	}
	for i, p := range held {
		if !geometry.Finite(p) {
			return Construction{}, fmt.Errorf("held point %d: %w", i, ErrInvalidCoordinate)
		}
		c.held[i] = p.WithID(id)
		id++
	}
	return c, nil
}

// MustNew is New for built-in configurations; it panics on error.
func MustNew(kind Kind, anchors, held []geometry.Point) Construction {
	c, err := New(kind, anchors, held)
	if err != nil {
		panic(err)
	}
	return c
}

// Kind returns the family kind.
func (c Construction) Kind() Kind {
	if c.family == nil {
		return ""
	}
	return c.family.Kind()
}

// Family returns the recipe for this construction.
func (c Construction) Family() Family { return c.family }

// Anchors returns a copy of the anchor points.
func (c Construction) Anchors() []geometry.Point {
	return append([]geometry.Point(nil), c.anchors...)
}

// Held returns a copy of the held reference points.
func (c Construction) Held() []geometry.Point {
	return append([]geometry.Point(nil), c.held...)
}

// IsAnchor reports whether id names a draggable point.
func (c Construction) IsAnchor(id int) bool {
	for _, p := range c.anchors {
		if p.ID == id {
			return true
		}
	}
	return false
}

// WithAnchor returns a new construction with anchor id moved to (x, y).
func (c Construction) WithAnchor(id int, x, y float64) (Construction, error) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return c, fmt.Errorf("move %d: %w", id, ErrInvalidCoordinate)
	}
	for i, p := range c.anchors {
		if p.ID != id {
			continue
		}
		next := c.clone()
		next.anchors[i] = p.At(x, y)
		return next, nil
	}
	return c, fmt.Errorf("point %d: %w", id, ErrNotAnchor)
}

// Mapped returns a new construction with fn applied to every independent
// point. Derived points follow on the next Derive.
func (c Construction) Mapped(fn func(geometry.Point) geometry.Point) Construction {
	next := c.clone()
	for i, p := range next.anchors {
		next.anchors[i] = fn(p).WithID(p.ID)
	}
	for i, p := range next.held {
		next.held[i] = fn(p).WithID(p.ID)
	}
	return next
}

// Translated moves the whole shape by (dx, dy).
func (c Construction) Translated(dx, dy float64) Construction {
	return c.Mapped(func(p geometry.Point) geometry.Point {
		return geometry.Offset(p, dx, dy)
	})
}

// Derive recomputes the full point set.
func (c Construction) Derive() Derived {
	return c.family.Derive(c.Anchors(), c.Held())
}

func (c Construction) clone() Construction {
	return Construction{
		family:  c.family,
		anchors: c.Anchors(),
		held:    c.Held(),
	}
}
