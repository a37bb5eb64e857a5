package engine

import (
	"github.com/jbeda/geom"

	"github.com/geotutor/geotutor/backend-go/internal/geometry"
)

// SceneGraph is the render-ready state of a session after the last recompute.
type SceneGraph struct {
	Root      *SceneNode
	NodesByID map[string]*SceneNode
}

// SceneNode is a resolved node ready for rendering.
type SceneNode struct {
	ID   string
	Type string // "group", "background", "region", "segment", "point"

	WorldTransform Matrix2D

	Opacity float64
	Visible bool
	// Pickable nodes take part in hit testing even while hidden, so a
	// learner can click where a concealed wedge is.
	Pickable bool

	Parent   *SceneNode
	Children []*SceneNode

	Path        []PathCommand
	Fill        string
	Stroke      string
	StrokeWidth float64

	// Domain references for hit results.
	PointID  int
	ColorKey string
	Polygon  []geometry.Point

	Bounds Rect
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["C", x1, y1, x2, y2, x, y], etc.
type PathCommand []interface{}

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewSceneGraph creates an empty scene graph.
func NewSceneGraph() *SceneGraph {
	return &SceneGraph{
		NodesByID: make(map[string]*SceneNode),
	}
}

func (sg *SceneGraph) add(parent, node *SceneNode) *SceneNode {
	node.Parent = parent
	if parent != nil {
		parent.Children = append(parent.Children, node)
	}
	sg.NodesByID[node.ID] = node
	return node
}

func rectFromGeom(r geom.Rect) Rect {
	return Rect{X: r.Min.X, Y: r.Min.Y, Width: r.Width(), Height: r.Height()}
}

func (r Rect) toGeom() geom.Rect {
	return geom.Rect{
		Min: geom.Coord{X: r.X, Y: r.Y},
		Max: geom.Coord{X: r.X + r.Width, Y: r.Y + r.Height},
	}
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// ContainsRect reports whether other lies entirely inside r.
func (r Rect) ContainsRect(other Rect) bool {
	return r.toGeom().ContainsRect(other.toGeom())
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	g := r.toGeom()
	o := other.toGeom()
	g.ExpandToContainCoord(o.Min)
	g.ExpandToContainCoord(o.Max)
	return rectFromGeom(g)
}

// Center returns the center point of the rect.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}
