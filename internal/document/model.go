package document

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/geotutor/geotutor/backend-go/internal/construction"
	"github.com/geotutor/geotutor/backend-go/internal/geometry"
)

var ErrInvalidProblem = errors.New("invalid problem document")

// Problem is the document handed over by the problem generator. It carries
// the initial coordinates of one construction and how it should be shown.
type Problem struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Family    string   `json:"family"`
	Anchors   []Coord  `json:"anchors"`
	Held      []Coord  `json:"held"`
	Visible   []string `json:"visible"`
	Canvas    Canvas   `json:"canvas"`
	CreatedAt string   `json:"createdAt"`
}

type Coord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Canvas struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Background string `json:"background"`
}

// DefaultCanvas is used when a problem does not specify one.
var DefaultCanvas = Canvas{
	Width:      500,
	Height:     600,
	Background: "#ffffff",
}

// Parse decodes a problem document and fills in defaults.
func Parse(data []byte) (*Problem, error) {
	var p Problem
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProblem, err)
	}
	if p.Family == "" {
		return nil, fmt.Errorf("%w: missing family", ErrInvalidProblem)
	}
	if p.Canvas.Width <= 0 || p.Canvas.Height <= 0 {
		p.Canvas.Width, p.Canvas.Height = DefaultCanvas.Width, DefaultCanvas.Height
	}
	if p.Canvas.Background == "" {
		p.Canvas.Background = DefaultCanvas.Background
	}
	return &p, nil
}

// Construction builds the construction the problem describes.
func (p *Problem) Construction() (construction.Construction, error) {
	c, err := construction.New(construction.Kind(p.Family), toPoints(p.Anchors), toPoints(p.Held))
	if err != nil {
		return construction.Construction{}, fmt.Errorf("problem %s: %w", p.ID, err)
	}
	return c, nil
}

// FromConstruction captures the independent points of c as a problem.
func FromConstruction(id string, c construction.Construction) *Problem {
	return &Problem{
		ID:      id,
		Family:  string(c.Kind()),
		Anchors: toCoords(c.Anchors()),
		Held:    toCoords(c.Held()),
		Visible: []string{},
		Canvas:  DefaultCanvas,
	}
}

func toPoints(cs []Coord) []geometry.Point {
	out := make([]geometry.Point, len(cs))
	for i, c := range cs {
		out[i] = geometry.Point{X: c.X, Y: c.Y}
	}
	return out
}

func toCoords(ps []geometry.Point) []Coord {
	out := make([]Coord, len(ps))
	for i, p := range ps {
		out[i] = Coord{X: p.X, Y: p.Y}
	}
	return out
}
