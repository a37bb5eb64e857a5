// Package regions builds the angle wedges drawn at line intersections and
// tracks which of them the learner has revealed.
package regions

import (
	"errors"
	"fmt"
	"sort"

	"github.com/geotutor/geotutor/backend-go/internal/geometry"
)

// Color keys used by the lesson diagrams.
const (
	Green  = "green"
	Blue   = "blue"
	Red    = "red"
	Yellow = "yellow"
)

var (
	ErrUnknownRegion = errors.New("unknown region")
	ErrMissingPoint  = errors.New("region references missing point")
)

// Shape selects the polygon drawn for a wedge.
type Shape int

const (
	// Triangle is [armA, vertex, armB].
	Triangle Shape = iota
	// Quad is the right-angle marker [vertex, armA, armA+armB-vertex, armB].
	Quad
)

// Spec describes one wedge by the ids of the points it is built from.
// ArmA and ArmB are usually the half-way guide points on each ray.
type Spec struct {
	ColorKey string
	Vertex   int
	ArmA     int
	ArmB     int
	Shape    Shape
}

// AngleRegion is a renderable wedge.
type AngleRegion struct {
	ColorKey string           `json:"colorKey"`
	Vertices []geometry.Point `json:"vertices"`
	Visible  bool             `json:"visible"`
	Degrees  float64          `json:"degrees"`
}

// Build constructs every wedge described by specs from the current points.
// It never mutates points and never retains them.
func Build(points []geometry.Point, specs []Spec, vis Visibility) ([]AngleRegion, error) {
	byID := make(map[int]geometry.Point, len(points))
	for _, p := range points {
		byID[p.ID] = p
	}

	out := make([]AngleRegion, 0, len(specs))
	for _, s := range specs {
		v, okV := byID[s.Vertex]
		a, okA := byID[s.ArmA]
		b, okB := byID[s.ArmB]
		if !okV || !okA || !okB {
			return nil, fmt.Errorf("%s wedge (%d,%d,%d): %w", s.ColorKey, s.ArmA, s.Vertex, s.ArmB, ErrMissingPoint)
		}

		region := AngleRegion{
			ColorKey: s.ColorKey,
			Visible:  vis[s.ColorKey],
			Degrees:  geometry.AngleAt(a, v, b),
		}
		switch s.Shape {
		case Quad:
			corner := geometry.Translate(a, v, b).WithID(0)
			region.Vertices = []geometry.Point{v, a, corner, b}
		default:
			region.Vertices = []geometry.Point{a, v, b}
		}
		out = append(out, region)
	}
	return out, nil
}

// Keys returns the distinct color keys of specs in first-seen order.
func Keys(specs []Spec) []string {
	seen := make(map[string]bool, len(specs))
	var keys []string
	for _, s := range specs {
		if !seen[s.ColorKey] {
			seen[s.ColorKey] = true
			keys = append(keys, s.ColorKey)
		}
	}
	return keys
}

// Visibility maps a color key to whether its wedges are shown.
type Visibility map[string]bool

// NewVisibility returns a map with every key hidden.
func NewVisibility(keys []string) Visibility {
	v := make(Visibility, len(keys))
	for _, k := range keys {
		v[k] = false
	}
	return v
}

// Clone returns an independent copy.
func (v Visibility) Clone() Visibility {
	out := make(Visibility, len(v))
	for k, on := range v {
		out[k] = on
	}
	return out
}

// Toggle flips key and every key linked to it, returning a new map.
// Flipping (rather than syncing) the group keeps a double toggle an exact
// round trip.
func (v Visibility) Toggle(key string, links map[string][]string) (Visibility, error) {
	if _, ok := v[key]; !ok {
		return nil, fmt.Errorf("%q: %w", key, ErrUnknownRegion)
	}

	out := v.Clone()
	out[key] = !out[key]
	for _, linked := range links[key] {
		if linked == key {
			continue
		}
		if _, ok := out[linked]; ok {
			out[linked] = !out[linked]
		}
	}
	return out, nil
}

// Shown returns the visible keys, sorted.
func (v Visibility) Shown() []string {
	var keys []string
	for k, on := range v {
		if on {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
