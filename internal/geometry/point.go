package geometry

import (
	"math"

	"github.com/jbeda/geom"
)

// Point is a coordinate with a stable identity inside one construction.
// ID 0 marks a point that is not addressable (region helper corners).
type Point struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// NewPoint creates a point with the given id.
func NewPoint(id int, x, y float64) Point {
	return Point{ID: id, X: x, Y: y}
}

// Coord returns the point as a geom.Coord for vector arithmetic.
func (p Point) Coord() geom.Coord {
	return geom.Coord{X: p.X, Y: p.Y}
}

// WithID returns a copy of p carrying id.
func (p Point) WithID(id int) Point {
	p.ID = id
	return p
}

// At returns a copy of p moved to (x, y), keeping its id.
func (p Point) At(x, y float64) Point {
	p.X, p.Y = x, y
	return p
}

// SamePosition reports whether p and q coincide within Epsilon.
func (p Point) SamePosition(q Point) bool {
	return equal(p.X, q.X) && equal(p.Y, q.Y)
}

func fromCoord(id int, c geom.Coord) Point {
	return Point{ID: id, X: c.X, Y: c.Y}
}

// Midpoint returns the arithmetic mean of p1 and p2. The result carries ID 0.
func Midpoint(p1, p2 Point) Point {
	return fromCoord(0, p1.Coord().Plus(p2.Coord()).Times(0.5))
}

// Translate moves p by the vector from -> to. This is how the missing corner of
// a parallelogram is completed: Translate(p1, p0, p2) == p1 + (p2 - p0).
func Translate(p, from, to Point) Point {
	return fromCoord(p.ID, p.Coord().Plus(to.Coord().Minus(from.Coord())))
}

// Offset moves p by (dx, dy).
func Offset(p Point, dx, dy float64) Point {
	return p.At(p.X+dx, p.Y+dy)
}

// Reflect returns the reflection of p through center (2*center - p).
func Reflect(p, center Point) Point {
	return fromCoord(p.ID, center.Coord().Times(2).Minus(p.Coord()))
}

// Finite reports whether both coordinates are real numbers.
func Finite(p Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Distance returns the euclidean distance between p and q.
func Distance(p, q Point) float64 {
	return p.Coord().DistanceFrom(q.Coord())
}

// Area returns the unsigned shoelace area of the polygon.
func Area(vertices []Point) float64 {
	if len(vertices) < 3 {
		return 0
	}
	var sum float64
	for i, p := range vertices {
		q := vertices[(i+1)%len(vertices)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(sum) / 2
}

// AngleAt returns the angle a-vertex-b in degrees, in [0, 180].
// A zero-length arm yields 0.
func AngleAt(a, vertex, b Point) float64 {
	if a.SamePosition(vertex) || b.SamePosition(vertex) {
		return 0
	}
	rad := math.Abs(geom.VertexAngle(a.Coord(), vertex.Coord(), b.Coord()))
	if math.IsNaN(rad) {
		return 0
	}
	deg := rad * 180 / math.Pi
	if deg > 180 {
		deg = 360 - deg
	}
	return deg
}

// Contains reports whether pt lies inside (or on the edge of) the convex
// polygon described by vertices.
func Contains(vertices []Point, pt Point) bool {
	if len(vertices) < 3 {
		return false
	}
	var sign float64
	for i, a := range vertices {
		b := vertices[(i+1)%len(vertices)]
		cross := (b.X-a.X)*(pt.Y-a.Y) - (b.Y-a.Y)*(pt.X-a.X)
		if equal(cross, 0) {
			continue
		}
		if sign == 0 {
			sign = cross
			continue
		}
		if (sign > 0) != (cross > 0) {
			return false
		}
	}
	return sign != 0
}
