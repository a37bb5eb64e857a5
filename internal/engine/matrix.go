package engine

import (
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/geotutor/geotutor/backend-go/internal/geometry"
)

// Matrix2D is an affine transform [a, b, c, d, e, f]:
//
//	| a  c  e |
//	| b  d  f |
//
// Only translation and uniform marker scaling are produced by this package.
type Matrix2D [6]float64

func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

func Translate(tx, ty float64) Matrix2D {
	return Matrix2D{1, 0, 0, 1, tx, ty}
}

func Scale(sx, sy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, 0, 0}
}

// Multiply returns m * other, so other is applied first.
func (m Matrix2D) Multiply(other Matrix2D) Matrix2D {
	return Matrix2D{
		m[0]*other[0] + m[2]*other[1],
		m[1]*other[0] + m[3]*other[1],
		m[0]*other[2] + m[2]*other[3],
		m[1]*other[2] + m[3]*other[3],
		m[0]*other[4] + m[2]*other[5] + m[4],
		m[1]*other[4] + m[3]*other[5] + m[5],
	}
}

func (m Matrix2D) TransformPoint(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// Apply maps p, keeping its id.
func (m Matrix2D) Apply(p geometry.Point) geometry.Point {
	return p.At(m.TransformPoint(p.X, p.Y))
}

// Offset returns the translation part.
func (m Matrix2D) Offset() (float64, float64) {
	return m[4], m[5]
}

// ToSlice is the form draw commands carry.
func (m Matrix2D) ToSlice() []float64 {
	return m[:]
}

func (m Matrix2D) IsIdentity() bool {
	id := Identity()
	for i := range m {
		if !scalar.EqualWithinAbs(m[i], id[i], geometry.Epsilon) {
			return false
		}
	}
	return true
}
