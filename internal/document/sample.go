package document

import (
	"fmt"
	"time"

	"github.com/geotutor/geotutor/backend-go/internal/construction"
	"github.com/geotutor/geotutor/backend-go/internal/typeid"
)

// samples holds the default starting coordinates of each family.
var samples = map[construction.Kind]struct {
	title   string
	anchors []Coord
	held    []Coord
}{
	construction.KindVertical: {
		title:   "Vertical angles",
		anchors: []Coord{{X: 100, Y: 200}, {X: 100, Y: 300}},
		held:    []Coord{{X: 300, Y: 200}},
	},
	construction.KindCorresponding: {
		title:   "Corresponding angles",
		anchors: []Coord{{X: 100, Y: 200}, {X: 400, Y: 200}},
		held:    []Coord{{X: 100, Y: 350}, {X: 200, Y: 50}},
	},
	construction.KindSameSideInterior: {
		title:   "Same-side interior angles",
		anchors: []Coord{{X: 100, Y: 200}, {X: 400, Y: 200}},
		held:    []Coord{{X: 100, Y: 350}, {X: 200, Y: 50}},
	},
	construction.KindPerpendicular: {
		title:   "Perpendicular lines",
		anchors: []Coord{{X: 150, Y: 250}, {X: 350, Y: 150}},
		held:    []Coord{},
	},
}

// NewSampleProblem returns the built-in starting problem for kind.
func NewSampleProblem(kind construction.Kind) (*Problem, error) {
	s, ok := samples[kind]
	if !ok {
		return nil, fmt.Errorf("sample %q: %w", kind, construction.ErrUnknownFamily)
	}

	return &Problem{
		ID:        typeid.NewProblemID(),
		Title:     s.title,
		Family:    string(kind),
		Anchors:   append([]Coord(nil), s.anchors...),
		Held:      append([]Coord(nil), s.held...),
		Visible:   []string{},
		Canvas:    DefaultCanvas,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}
