package geometry

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

// Epsilon is the tolerance used when comparing coordinates and slopes.
const Epsilon = 1e-9

var (
	ErrCoincident    = errors.New("coincident points")
	ErrParallel      = errors.New("lines are parallel or identical")
	ErrHorizontalRay = errors.New("horizontal ray never reaches target y")
)

// Slope is the slope of a line through two points. Vertical lines have no
// finite slope and are tagged instead of carrying an infinity.
type Slope struct {
	M        float64 `json:"m"`
	Vertical bool    `json:"vertical"`
}

// VerticalSlope is the sentinel for lines of constant x.
var VerticalSlope = Slope{Vertical: true}

// Horizontal reports whether the slope is exactly zero.
func (s Slope) Horizontal() bool {
	return !s.Vertical && s.M == 0
}

func (s Slope) String() string {
	if s.Vertical {
		return "vertical"
	}
	return fmt.Sprintf("%g", s.M)
}

// Equal reports whether two slopes describe parallel lines.
func (s Slope) Equal(o Slope) bool {
	if s.Vertical || o.Vertical {
		return s.Vertical == o.Vertical
	}
	return scalar.EqualWithinAbsOrRel(s.M, o.M, Epsilon, Epsilon)
}

// RawSlope returns (y2-y1)/(x2-x1) without any branching. Vertical segments
// produce ±Inf and coincident points NaN; use SlopeBetween when the result
// feeds further arithmetic.
func RawSlope(p1, p2 Point) float64 {
	return (p2.Y - p1.Y) / (p2.X - p1.X)
}

// SlopeBetween returns the slope of the line through p1 and p2.
func SlopeBetween(p1, p2 Point) (Slope, error) {
	if p1.SamePosition(p2) {
		return Slope{}, fmt.Errorf("slope %d-%d: %w", p1.ID, p2.ID, ErrCoincident)
	}
	if equal(p1.X, p2.X) {
		return VerticalSlope, nil
	}
	return Slope{M: (p2.Y - p1.Y) / (p2.X - p1.X)}, nil
}

// Intersect solves y - a.Y = ma(x - a.X) and y - b.Y = mb(x - b.X).
func Intersect(a Point, ma Slope, b Point, mb Slope) (Point, error) {
	if ma.Equal(mb) {
		return Point{}, ErrParallel
	}

	switch {
	case ma.Vertical:
		return Point{X: a.X, Y: mb.M*(a.X-b.X) + b.Y}, nil
	case mb.Vertical:
		return Point{X: b.X, Y: ma.M*(b.X-a.X) + a.Y}, nil
	}

	// ma*x - y = ma*a.X - a.Y
	// mb*x - y = mb*b.X - b.Y
	lhs := mat.NewDense(2, 2, []float64{
		ma.M, -1,
		mb.M, -1,
	})
	rhs := mat.NewVecDense(2, []float64{
		ma.M*a.X - a.Y,
		mb.M*b.X - b.Y,
	})

	var sol mat.VecDense
	if err := sol.SolveVec(lhs, rhs); err != nil {
		return Point{}, fmt.Errorf("%w: %v", ErrParallel, err)
	}

	p := Point{X: sol.AtVec(0), Y: sol.AtVec(1)}
	if !Finite(p) {
		return Point{}, ErrParallel
	}
	return p, nil
}

// ExtendToY follows the line through from with slope m until it reaches
// targetY: x = (targetY - y0)/m + x0.
func ExtendToY(from Point, m Slope, targetY float64) (Point, error) {
	if m.Vertical {
		return Point{X: from.X, Y: targetY}, nil
	}
	if m.M == 0 {
		return Point{}, ErrHorizontalRay
	}
	return Point{X: (targetY-from.Y)/m.M + from.X, Y: targetY}, nil
}

// OnLine reports whether p satisfies y - a.Y = m(x - a.X) within tol.
func OnLine(p, a Point, m Slope, tol float64) bool {
	if m.Vertical {
		return scalar.EqualWithinAbs(p.X, a.X, tol)
	}
	return scalar.EqualWithinAbs(p.Y-a.Y, m.M*(p.X-a.X), tol)
}

func equal(a, b float64) bool {
	return scalar.EqualWithinAbs(a, b, Epsilon)
}
