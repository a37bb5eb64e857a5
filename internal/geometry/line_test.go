package geometry

import (
	"errors"
	"math"
	"testing"
)

func TestSlopeBetween(t *testing.T) {
	tests := []struct {
		name   string
		p1, p2 Point
		want   Slope
		err    error
	}{
		{"rising", NewPoint(1, 0, 0), NewPoint(2, 2, 4), Slope{M: 2}, nil},
		{"falling", NewPoint(1, 0, 0), NewPoint(2, 2, -1), Slope{M: -0.5}, nil},
		{"horizontal", NewPoint(1, 0, 5), NewPoint(2, 10, 5), Slope{M: 0}, nil},
		{"vertical", NewPoint(1, 100, 200), NewPoint(2, 100, 300), VerticalSlope, nil},
		{"coincident", NewPoint(1, 3, 3), NewPoint(2, 3, 3), Slope{}, ErrCoincident},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SlopeBetween(tt.p1, tt.p2)
			if !errors.Is(err, tt.err) {
				t.Fatalf("SlopeBetween error: expected %v, got %v", tt.err, err)
			}
			if got != tt.want {
				t.Errorf("SlopeBetween failed: expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRawSlopeVerticalSignDependsOnOrder(t *testing.T) {
	a := NewPoint(1, 100, 200)
	b := NewPoint(2, 100, 300)

	ab := RawSlope(a, b)
	ba := RawSlope(b, a)
	if !math.IsInf(ab, 1) || !math.IsInf(ba, -1) {
		t.Errorf("RawSlope failed: expected +Inf/-Inf, got %v/%v", ab, ba)
	}
	if ab == ba {
		t.Error("RawSlope should not be symmetric for vertical segments")
	}
}

func TestMidpointSymmetric(t *testing.T) {
	pairs := [][2]Point{
		{NewPoint(1, 0, 0), NewPoint(2, 10, 0)},
		{NewPoint(1, -3.5, 7), NewPoint(2, 12.25, -9)},
		{NewPoint(1, 100, 200), NewPoint(2, 100, 200)},
	}
	for _, pr := range pairs {
		ab := Midpoint(pr[0], pr[1])
		ba := Midpoint(pr[1], pr[0])
		if ab != ba {
			t.Errorf("Midpoint not symmetric: %v vs %v", ab, ba)
		}
	}

	m := Midpoint(NewPoint(1, 0, 0), NewPoint(2, 10, 4))
	if m.X != 5 || m.Y != 2 || m.ID != 0 {
		t.Errorf("Midpoint failed: expected (5,2) id 0, got %+v", m)
	}
}

func TestIntersectRoundTrip(t *testing.T) {
	tests := []struct {
		a, b   Point
		ma, mb Slope
	}{
		{NewPoint(0, 0, 0), NewPoint(0, 10, 0), Slope{M: 1}, Slope{M: -1}},
		{NewPoint(0, 150, 250), NewPoint(0, 300, 300), Slope{M: -0.5}, Slope{M: 2}},
		{NewPoint(0, -7, 3), NewPoint(0, 40, -12), Slope{M: 0.3}, Slope{M: 0}},
		{NewPoint(0, 100, 200), NewPoint(0, 0, 50), VerticalSlope, Slope{M: 0.75}},
		{NewPoint(0, 1, 2), NewPoint(0, 300, 10), Slope{M: -4}, VerticalSlope},
	}

	for _, tt := range tests {
		p, err := Intersect(tt.a, tt.ma, tt.b, tt.mb)
		if err != nil {
			t.Fatalf("Intersect(%v %v, %v %v) failed: %v", tt.a, tt.ma, tt.b, tt.mb, err)
		}
		if !OnLine(p, tt.a, tt.ma, 1e-9) {
			t.Errorf("intersection %v not on first line %v slope %v", p, tt.a, tt.ma)
		}
		if !OnLine(p, tt.b, tt.mb, 1e-9) {
			t.Errorf("intersection %v not on second line %v slope %v", p, tt.b, tt.mb)
		}
	}
}

func TestIntersectParallel(t *testing.T) {
	tests := []struct {
		name   string
		ma, mb Slope
	}{
		{"equal finite", Slope{M: 0.5}, Slope{M: 0.5}},
		{"both horizontal", Slope{M: 0}, Slope{M: 0}},
		{"both vertical", VerticalSlope, VerticalSlope},
		{"nearly equal", Slope{M: 2}, Slope{M: 2 + 1e-12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Intersect(NewPoint(0, 0, 0), tt.ma, NewPoint(0, 5, 5), tt.mb)
			if !errors.Is(err, ErrParallel) {
				t.Fatalf("expected ErrParallel, got %v (%v)", err, p)
			}
		})
	}
}

func TestExtendToY(t *testing.T) {
	from := NewPoint(4, 200, 50)

	p, err := ExtendToY(from, Slope{M: 3}, 550)
	if err != nil {
		t.Fatalf("ExtendToY failed: %v", err)
	}
	if math.Abs(p.X-(500.0/3+200)) > 1e-9 || p.Y != 550 {
		t.Errorf("ExtendToY failed: got %v", p)
	}

	p, err = ExtendToY(from, VerticalSlope, 550)
	if err != nil || p.X != 200 || p.Y != 550 {
		t.Errorf("ExtendToY vertical failed: got %v, %v", p, err)
	}

	if _, err := ExtendToY(from, Slope{M: 0}, 550); !errors.Is(err, ErrHorizontalRay) {
		t.Errorf("ExtendToY horizontal: expected ErrHorizontalRay, got %v", err)
	}
}
