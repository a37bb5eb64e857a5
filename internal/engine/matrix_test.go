package engine

import (
	"testing"

	"github.com/geotutor/geotutor/backend-go/internal/geometry"
)

func TestMatrixTranslateCompose(t *testing.T) {
	m := Translate(10, -5).Multiply(Translate(3, 4))
	if dx, dy := m.Offset(); dx != 13 || dy != -1 {
		t.Errorf("expected offset (13,-1), got (%v,%v)", dx, dy)
	}

	x, y := m.TransformPoint(1, 1)
	if x != 14 || y != 0 {
		t.Errorf("expected (14,0), got (%v,%v)", x, y)
	}
}

func TestMatrixScaleThenTranslate(t *testing.T) {
	m := Translate(100, 50).Multiply(Scale(2, 3))
	x, y := m.TransformPoint(1, 1)
	if x != 102 || y != 53 {
		t.Errorf("expected (102,53), got (%v,%v)", x, y)
	}
}

func TestMatrixIdentity(t *testing.T) {
	if !Identity().IsIdentity() {
		t.Error("Identity is not identity")
	}
	if Translate(0.1, 0).IsIdentity() {
		t.Error("translation reported as identity")
	}
	if !Translate(5, 5).Multiply(Translate(-5, -5)).IsIdentity() {
		t.Error("inverse translations should cancel")
	}
}

func TestMatrixApplyKeepsID(t *testing.T) {
	p := Translate(20, -10).Apply(geometry.NewPoint(4, 100, 200))
	if p != geometry.NewPoint(4, 120, 190) {
		t.Errorf("expected point 4 at (120,190), got %+v", p)
	}
}
