package engine

import (
	"encoding/json"

	"github.com/geotutor/geotutor/backend-go/internal/geometry"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op          string        `json:"op"`                    // Operation: "path"
	ObjectID    string        `json:"objectId,omitempty"`    // For hit correlation
	Transform   []float64     `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Path        []PathCommand `json:"path,omitempty"`        // Path data for "path" ops
	Fill        string        `json:"fill,omitempty"`        // Fill color
	Stroke      string        `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // Stroke width
	Opacity     float64       `json:"opacity,omitempty"`     // Global alpha
}

// CompileDrawCommands generates a draw command buffer from a scene graph.
// Commands are in painter's order (back to front).
func CompileDrawCommands(sg *SceneGraph) []DrawCommand {
	if sg == nil || sg.Root == nil {
		return nil
	}

	var commands []DrawCommand
	compileNode(sg.Root, &commands)
	return commands
}

// compileNode recursively generates draw commands for a node and its children.
func compileNode(node *SceneNode, commands *[]DrawCommand) {
	if node == nil || !node.Visible {
		return
	}

	if len(node.Path) > 0 {
		*commands = append(*commands, DrawCommand{
			Op:          "path",
			ObjectID:    node.ID,
			Transform:   node.WorldTransform.ToSlice(),
			Path:        node.Path,
			Opacity:     node.Opacity,
			Fill:        node.Fill,
			Stroke:      node.Stroke,
			StrokeWidth: node.StrokeWidth,
		})
	}

	for _, child := range node.Children {
		compileNode(child, commands)
	}
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		return "[]", nil
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// Hit kinds.
const (
	HitNone   = ""
	HitPoint  = "point"
	HitRegion = "region"
)

// HitTestResult says what lies under the pointer.
type HitTestResult struct {
	Kind     string `json:"kind"`
	PointID  int    `json:"pointId,omitempty"`
	ColorKey string `json:"colorKey,omitempty"`
	ObjectID string `json:"objectId,omitempty"`
}

// HitTest returns the topmost pickable node at the given point. Draggable
// point markers win over wedges because they are drawn on top.
func HitTest(sg *SceneGraph, x, y float64) HitTestResult {
	if sg == nil || sg.Root == nil {
		return HitTestResult{}
	}

	node := hitTestNode(sg.Root, x, y)
	switch {
	case node == nil:
		return HitTestResult{}
	case node.Type == "point":
		return HitTestResult{Kind: HitPoint, PointID: node.PointID, ObjectID: node.ID}
	default:
		return HitTestResult{Kind: HitRegion, ColorKey: node.ColorKey, ObjectID: node.ID}
	}
}

// hitTestNode recursively tests a node and its children.
// Children are tested first (they're on top in painter's order).
func hitTestNode(node *SceneNode, x, y float64) *SceneNode {
	if node == nil || !(node.Visible || node.Pickable) {
		return nil
	}

	for i := len(node.Children) - 1; i >= 0; i-- {
		if hit := hitTestNode(node.Children[i], x, y); hit != nil {
			return hit
		}
	}

	if !node.Pickable {
		return nil
	}
	switch node.Type {
	case "point":
		if node.Bounds.Contains(x, y) {
			return node
		}
	case "region":
		if node.Bounds.Contains(x, y) && geometry.Contains(node.Polygon, geometry.Point{X: x, Y: y}) {
			return node
		}
	}
	return nil
}

// RectToJSON serializes a Rect to JSON.
func RectToJSON(r Rect) string {
	data, _ := json.Marshal(r)
	return string(data)
}
