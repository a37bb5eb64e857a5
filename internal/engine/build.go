package engine

import (
	"fmt"

	"github.com/jbeda/geom"

	"github.com/geotutor/geotutor/backend-go/internal/document"
	"github.com/geotutor/geotutor/backend-go/internal/geometry"
	"github.com/geotutor/geotutor/backend-go/internal/regions"
)

// Marker sizes in canvas pixels.
const (
	PointRadius = 6.0
	HitRadius   = 10.0
)

const (
	segmentStroke = "#2c3e50"
	segmentWidth  = 2.0
	anchorFill    = "#e67e22"
	heldFill      = "#7f8c8d"
	regionOpacity = 0.55
)

var regionFills = map[string]string{
	regions.Green:  "#2ecc71",
	regions.Blue:   "#3498db",
	regions.Red:    "#e74c3c",
	regions.Yellow: "#f1c40f",
}

// BuildSceneGraph lays out one frame in painter's order: background, wedges,
// lines, then point markers on top.
func BuildSceneGraph(canvas document.Canvas, points []RenderablePoint, segments []RenderableSegment, wedges []regions.AngleRegion) *SceneGraph {
	sg := NewSceneGraph()
	root := sg.add(nil, group("root"))

	w, h := float64(canvas.Width), float64(canvas.Height)
	sg.add(root, &SceneNode{
		ID:             "background",
		Type:           "background",
		WorldTransform: Identity(),
		Opacity:        1,
		Visible:        true,
		Path:           generateRectPath(w, h),
		Fill:           canvas.Background,
		Bounds:         Rect{Width: w, Height: h},
	})

	regionLayer := sg.add(root, group("layer:regions"))
	for i, r := range wedges {
		path := generatePolygonPath(r.Vertices)
		sg.add(regionLayer, &SceneNode{
			ID:             fmt.Sprintf("region:%s:%d", r.ColorKey, i),
			Type:           "region",
			WorldTransform: Identity(),
			Opacity:        regionOpacity,
			Visible:        r.Visible,
			Pickable:       true,
			Path:           path,
			Fill:           regionFills[r.ColorKey],
			ColorKey:       r.ColorKey,
			Polygon:        r.Vertices,
			Bounds:         computePathBounds(path, Identity()),
		})
	}

	segmentLayer := sg.add(root, group("layer:segments"))
	for _, s := range segments {
		path := []PathCommand{
			{"M", s.From.X, s.From.Y},
			{"L", s.To.X, s.To.Y},
		}
		sg.add(segmentLayer, &SceneNode{
			ID:             fmt.Sprintf("segment:%d-%d", s.From.ID, s.To.ID),
			Type:           "segment",
			WorldTransform: Identity(),
			Opacity:        1,
			Visible:        true,
			Path:           path,
			Stroke:         segmentStroke,
			StrokeWidth:    segmentWidth,
			Bounds:         computePathBounds(path, Identity()),
		})
	}

	pointLayer := sg.add(root, group("layer:points"))
	circle := generateCirclePath()
	for _, p := range points {
		if !p.Marked() {
			continue
		}
		fill := heldFill
		if p.Draggable {
			fill = anchorFill
		}
		place := Translate(p.X, p.Y)
		sg.add(pointLayer, &SceneNode{
			ID:             fmt.Sprintf("point:%d", p.ID),
			Type:           "point",
			WorldTransform: place.Multiply(Scale(PointRadius, PointRadius)),
			Opacity:        1,
			Visible:        true,
			Pickable:       p.Draggable,
			Path:           circle,
			Fill:           fill,
			PointID:        p.ID,
			Bounds:         computePathBounds(circle, place.Multiply(Scale(HitRadius, HitRadius))),
		})
	}

	return sg
}

func group(id string) *SceneNode {
	return &SceneNode{
		ID:             id,
		Type:           "group",
		WorldTransform: Identity(),
		Opacity:        1,
		Visible:        true,
	}
}

// generateRectPath generates path commands for a rectangle.
func generateRectPath(w, h float64) []PathCommand {
	return []PathCommand{
		{"M", 0.0, 0.0},
		{"L", w, 0.0},
		{"L", w, h},
		{"L", 0.0, h},
		{"Z"},
	}
}

// generateCirclePath generates a unit circle using bezier curves. Markers
// scale it with their world transform.
func generateCirclePath() []PathCommand {
	// k = 4 * (sqrt(2) - 1) / 3
	k := 0.5522847498
	return []PathCommand{
		{"M", 1.0, 0.0},
		{"C", 1.0, k, k, 1.0, 0.0, 1.0},
		{"C", -k, 1.0, -1.0, k, -1.0, 0.0},
		{"C", -1.0, -k, -k, -1.0, 0.0, -1.0},
		{"C", k, -1.0, 1.0, -k, 1.0, 0.0},
		{"Z"},
	}
}

// generatePolygonPath generates a closed path through vertices.
func generatePolygonPath(vertices []geometry.Point) []PathCommand {
	if len(vertices) == 0 {
		return nil
	}
	path := make([]PathCommand, 0, len(vertices)+1)
	for i, v := range vertices {
		op := "L"
		if i == 0 {
			op = "M"
		}
		path = append(path, PathCommand{op, v.X, v.Y})
	}
	return append(path, PathCommand{"Z"})
}

// computePathBounds computes the axis-aligned bounding box of a path in world space.
// Bezier control points are included, which over-covers curves slightly.
func computePathBounds(path []PathCommand, worldTransform Matrix2D) Rect {
	var r geom.Rect
	first := true

	for _, cmd := range path {
		if len(cmd) < 3 {
			continue
		}
		if _, ok := cmd[0].(string); !ok {
			continue
		}
		for i := 1; i+1 < len(cmd); i += 2 {
			wx, wy := worldTransform.TransformPoint(toFloat64(cmd[i]), toFloat64(cmd[i+1]))
			c := geom.Coord{X: wx, Y: wy}
			if first {
				r = geom.Rect{Min: c, Max: c}
				first = false
				continue
			}
			r.ExpandToContainCoord(c)
		}
	}

	if first {
		return Rect{}
	}
	return rectFromGeom(r)
}

// toFloat64 converts an interface{} to float64.
func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
