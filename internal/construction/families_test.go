package construction

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/geotutor/geotutor/backend-go/internal/geometry"
	"github.com/geotutor/geotutor/backend-go/internal/regions"
)

func buildRegions(t *testing.T, c Construction) []regions.AngleRegion {
	t.Helper()
	got, err := regions.Build(c.Derive().Points, c.Family().Regions(), nil)
	if err != nil {
		t.Fatalf("%s: regions.Build failed: %v", c.Kind(), err)
	}
	return got
}

func verticalDefault() Construction {
	return MustNew(KindVertical, []geometry.Point{pt(100, 200), pt(100, 300)}, []geometry.Point{pt(300, 200)})
}

func twoLineDefault(kind Kind) Construction {
	return MustNew(kind, []geometry.Point{pt(100, 200), pt(400, 200)}, []geometry.Point{pt(100, 350), pt(200, 50)})
}

func TestVerticalDefaultScenario(t *testing.T) {
	c := verticalDefault()
	d := c.Derive()

	want := []geometry.Point{
		geometry.NewPoint(1, 100, 200),
		geometry.NewPoint(2, 100, 300),
		geometry.NewPoint(3, 300, 200),
		geometry.NewPoint(4, 300, 300),
		geometry.NewPoint(5, 200, 250),
		geometry.NewPoint(6, 150, 225),
		geometry.NewPoint(7, 150, 275),
		geometry.NewPoint(8, 250, 225),
		geometry.NewPoint(9, 250, 275),
	}
	if diff := cmp.Diff(want, d.Points, approx); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
	if len(d.Notes) != 0 {
		t.Errorf("expected no fallbacks, got %v", d.Notes)
	}

	vertex, _ := d.Point(5)
	rs := buildRegions(t, c)
	if len(rs) != 4 {
		t.Fatalf("expected 4 regions, got %d", len(rs))
	}
	for _, r := range rs {
		if len(r.Vertices) != 3 {
			t.Errorf("%s: expected triangle, got %d vertices", r.ColorKey, len(r.Vertices))
		}
		if a := geometry.Area(r.Vertices); a <= 0 {
			t.Errorf("%s: degenerate wedge, area %v", r.ColorKey, a)
		}
		if !r.Vertices[1].SamePosition(vertex) {
			t.Errorf("%s: wedge vertex %v is not the intersection %v", r.ColorKey, r.Vertices[1], vertex)
		}
	}

	deg := degreesByKey(rs)
	if math.Abs(deg[regions.Green]-deg[regions.Red]) > 1e-9 || math.Abs(deg[regions.Blue]-deg[regions.Yellow]) > 1e-9 {
		t.Errorf("vertical angles should be equal: %v", deg)
	}
	if math.Abs(deg[regions.Green]+deg[regions.Blue]-180) > 1e-9 {
		t.Errorf("adjacent angles should be supplementary: %v", deg)
	}
}

func TestVerticalDragChangesOnlyDependents(t *testing.T) {
	c := verticalDefault()
	moved, err := c.WithAnchor(1, 100, 199)
	if err != nil {
		t.Fatal(err)
	}

	got := changedIDs(c.Derive(), moved.Derive(), 1e-9)
	want := map[int]bool{1: true, 4: true, 6: true, 9: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("changed points mismatch (-want +got):\n%s", diff)
	}
	if n := len(buildRegions(t, moved)); n != 4 {
		t.Errorf("expected 4 regions after drag, got %d", n)
	}
}

func TestVerticalDragToEqualX(t *testing.T) {
	// p3 = p1 + p2 - p0, so p0.x == 200 makes the p0-p3 line vertical.
	moved, err := verticalDefault().WithAnchor(1, 200, 200)
	if err != nil {
		t.Fatal(err)
	}
	d := moved.Derive()

	p0, _ := d.Point(1)
	p3, _ := d.Point(4)
	s, err := geometry.SlopeBetween(p0, p3)
	if err != nil || !s.Vertical {
		t.Fatalf("expected vertical sentinel, got %v (%v)", s, err)
	}
	if len(d.Notes) != 0 {
		t.Errorf("vertical line should not need a fallback, got %v", d.Notes)
	}
	v, _ := d.Point(5)
	if diff := cmp.Diff(geometry.NewPoint(5, 200, 250), v, approx); diff != "" {
		t.Errorf("vertex mismatch:\n%s", diff)
	}
	assertFinite(t, d)
}

func TestVerticalDegenerateFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		x, y   float64
		reason string
	}{
		{"coincident with p3", 200, 250, ReasonCoincident},
		{"collinear with p1 p2", 0, 350, ReasonParallel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			moved, err := verticalDefault().WithAnchor(1, tt.x, tt.y)
			if err != nil {
				t.Fatal(err)
			}
			d := moved.Derive()
			assertFinite(t, d)
			assertNote(t, d, 5, tt.reason)

			v, _ := d.Point(5)
			if diff := cmp.Diff(geometry.NewPoint(5, 200, 250), v, approx); diff != "" {
				t.Errorf("fallback vertex mismatch:\n%s", diff)
			}
		})
	}
}

func TestCorrespondingDefaultScenario(t *testing.T) {
	c := twoLineDefault(KindCorresponding)
	d := c.Derive()

	want := map[int]geometry.Point{
		5: geometry.NewPoint(5, 400, 350),
		6: geometry.NewPoint(6, 250, 200),
		7: geometry.NewPoint(7, 200+500.0/3, 550),
		8: geometry.NewPoint(8, 300, 350),
	}
	for id, w := range want {
		got, ok := d.Point(id)
		if !ok {
			t.Fatalf("missing point %d", id)
		}
		if diff := cmp.Diff(w, got, approx); diff != "" {
			t.Errorf("point %d mismatch (-want +got):\n%s", id, diff)
		}
	}
	if len(d.Notes) != 0 {
		t.Errorf("expected no fallbacks, got %v", d.Notes)
	}

	rs := buildRegions(t, c)
	if len(rs) != 4 {
		t.Fatalf("expected 4 triangles, got %d", len(rs))
	}
	deg := degreesByKey(rs)
	if math.Abs(deg[regions.Green]-deg[regions.Red]) > 1e-9 {
		t.Errorf("corresponding angles green/red differ: %v", deg)
	}
	if math.Abs(deg[regions.Blue]-deg[regions.Yellow]) > 1e-9 {
		t.Errorf("corresponding angles blue/yellow differ: %v", deg)
	}

	links := c.Family().Links()
	if links[regions.Green][0] != regions.Red || links[regions.Yellow][0] != regions.Blue {
		t.Errorf("unexpected links: %v", links)
	}
}

func TestTwoLineAnglesAcrossDrags(t *testing.T) {
	// Line 2 passes through (100,350) and F sits at (200,50).
	tests := []struct {
		name   string
		p0, p1 geometry.Point
	}{
		{"sample", pt(100, 200), pt(400, 200)},
		{"between the lines", pt(100, 300), pt(400, 300)},
		{"below line 2", pt(100, 400), pt(400, 400)},
		{"far below line 2", pt(100, 500), pt(400, 500)},
		{"above F", pt(105, 20), pt(305, 20)},
		{"left of F", pt(100, 200), pt(250, 200)},
		{"left of F below line 2", pt(100, 400), pt(250, 400)},
		{"tilted", pt(100, 180), pt(400, 240)},
		{"tilted below line 2", pt(100, 480), pt(400, 420)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			anchors := []geometry.Point{tt.p0, tt.p1}
			held := []geometry.Point{pt(100, 350), pt(200, 50)}

			corr := MustNew(KindCorresponding, anchors, held)
			if notes := corr.Derive().Notes; len(notes) != 0 {
				t.Fatalf("unexpected fallbacks: %v", notes)
			}
			deg := degreesByKey(buildRegions(t, corr))
			if math.Abs(deg[regions.Green]-deg[regions.Red]) > 1e-6 {
				t.Errorf("green %v != red %v", deg[regions.Green], deg[regions.Red])
			}
			if math.Abs(deg[regions.Blue]-deg[regions.Yellow]) > 1e-6 {
				t.Errorf("blue %v != yellow %v", deg[regions.Blue], deg[regions.Yellow])
			}
			if math.Abs(deg[regions.Green]+deg[regions.Blue]-180) > 1e-6 {
				t.Errorf("green %v and blue %v are not a linear pair", deg[regions.Green], deg[regions.Blue])
			}

			sums := make(map[string]float64)
			for _, r := range buildRegions(t, MustNew(KindSameSideInterior, anchors, held)) {
				sums[r.ColorKey] += r.Degrees
			}
			for key, sum := range sums {
				if math.Abs(sum-180) > 1e-6 {
					t.Errorf("same-side %s angles sum to %v, expected 180", key, sum)
				}
			}
		})
	}
}

func TestTwoLineDragChangesOnlyDependents(t *testing.T) {
	for _, kind := range []Kind{KindCorresponding, KindSameSideInterior} {
		c := twoLineDefault(kind)
		moved, err := c.WithAnchor(1, 100, 199)
		if err != nil {
			t.Fatal(err)
		}

		changed := changedIDs(c.Derive(), moved.Derive(), 1e-9)
		for _, id := range []int{2, 3, 4} {
			if changed[id] {
				t.Errorf("%s: independent point %d changed", kind, id)
			}
		}
		for id := 5; id <= 17; id++ {
			if !changed[id] {
				t.Errorf("%s: dependent point %d did not change", kind, id)
			}
		}
		if !changed[1] {
			t.Errorf("%s: dragged anchor did not move", kind)
		}

		before := buildRegions(t, c)
		after := buildRegions(t, moved)
		if len(before) != len(after) {
			t.Fatalf("%s: region count changed %d -> %d", kind, len(before), len(after))
		}
		for i := range before {
			if len(before[i].Vertices) != len(after[i].Vertices) {
				t.Errorf("%s: region %d vertex count changed", kind, i)
			}
		}
	}
}

func TestSameSideInteriorSupplementary(t *testing.T) {
	rs := buildRegions(t, twoLineDefault(KindSameSideInterior))
	if len(rs) != 4 {
		t.Fatalf("expected 2 keys x 2 triangles, got %d regions", len(rs))
	}
	if keys := regions.Keys(twoLineDefault(KindSameSideInterior).Family().Regions()); len(keys) != 2 {
		t.Fatalf("expected 2 color keys, got %v", keys)
	}

	sums := make(map[string]float64)
	for _, r := range rs {
		sums[r.ColorKey] += r.Degrees
	}
	for key, sum := range sums {
		if math.Abs(sum-180) > 1e-9 {
			t.Errorf("%s interior angles sum to %v, expected 180", key, sum)
		}
	}
}

func TestTwoLineHorizontalTransversal(t *testing.T) {
	c := MustNew(KindCorresponding, []geometry.Point{pt(100, 200), pt(400, 200)}, []geometry.Point{pt(100, 350), pt(0, 200)})
	d := c.Derive()

	assertFinite(t, d)
	assertNote(t, d, 7, ReasonHorizontalRay)
	assertNote(t, d, 8, ReasonParallel)

	ext, _ := d.Point(7)
	if diff := cmp.Diff(geometry.NewPoint(7, 500, 200), ext, approx); diff != "" {
		t.Errorf("extension fallback mismatch:\n%s", diff)
	}
	v2, _ := d.Point(8)
	if diff := cmp.Diff(geometry.NewPoint(8, 250, 350), v2, approx); diff != "" {
		t.Errorf("second vertex fallback mismatch:\n%s", diff)
	}
}

func TestTwoLineFarPointOnMidpoint(t *testing.T) {
	c := MustNew(KindSameSideInterior, []geometry.Point{pt(100, 200), pt(400, 200)}, []geometry.Point{pt(100, 350), pt(250, 200)})
	d := c.Derive()

	assertFinite(t, d)
	assertNote(t, d, 7, ReasonCoincident)

	ext, _ := d.Point(7)
	v2, _ := d.Point(8)
	if diff := cmp.Diff(geometry.NewPoint(7, 250, 550), ext, approx); diff != "" {
		t.Errorf("extension mismatch:\n%s", diff)
	}
	if diff := cmp.Diff(geometry.NewPoint(8, 250, 350), v2, approx); diff != "" {
		t.Errorf("second vertex mismatch:\n%s", diff)
	}
}

func TestTwoLineCollapsedAnchors(t *testing.T) {
	c := MustNew(KindCorresponding, []geometry.Point{pt(100, 200), pt(100, 200)}, []geometry.Point{pt(100, 350), pt(200, 50)})
	d := c.Derive()

	assertFinite(t, d)
	assertNote(t, d, 8, ReasonCoincident)
	if _, err := regions.Build(d.Points, c.Family().Regions(), nil); err != nil {
		t.Errorf("regions.Build failed on collapsed anchors: %v", err)
	}
}

func TestPerpendicularHorizontalFallback(t *testing.T) {
	c := MustNew(KindPerpendicular, []geometry.Point{pt(0, 0), pt(10, 0)}, nil)
	d := c.Derive()

	assertFinite(t, d)
	assertNote(t, d, 5, ReasonHorizontalSlope)

	want := []geometry.Point{
		geometry.NewPoint(3, 5, 5),
		geometry.NewPoint(4, 5, -5),
		geometry.NewPoint(5, 5, 0),
	}
	got := d.Points[2:5]
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("companions mismatch (-want +got):\n%s", diff)
	}
}

func TestPerpendicularDefault(t *testing.T) {
	c := MustNew(KindPerpendicular, []geometry.Point{pt(150, 250), pt(350, 150)}, nil)
	d := c.Derive()

	if len(d.Notes) != 0 {
		t.Errorf("expected general intersection, got fallbacks %v", d.Notes)
	}
	want := []geometry.Point{
		geometry.NewPoint(3, 300, 300),
		geometry.NewPoint(4, 200, 100),
		geometry.NewPoint(5, 250, 200),
	}
	if diff := cmp.Diff(want, d.Points[2:5], approx); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}

	rs := buildRegions(t, c)
	if len(rs) != 2 {
		t.Fatalf("expected 2 right-angle markers, got %d", len(rs))
	}
	for _, r := range rs {
		if len(r.Vertices) != 4 {
			t.Errorf("%s: expected quad, got %d vertices", r.ColorKey, len(r.Vertices))
		}
		if math.Abs(r.Degrees-90) > 1e-9 {
			t.Errorf("%s: expected 90 degrees, got %v", r.ColorKey, r.Degrees)
		}
	}
}

func TestPerpendicularCoincidentAnchors(t *testing.T) {
	c := MustNew(KindPerpendicular, []geometry.Point{pt(7, 7), pt(7, 7)}, nil)
	d := c.Derive()
	assertFinite(t, d)
	assertNote(t, d, 5, ReasonCoincident)
}

func TestCompanionsArePerpendicular(t *testing.T) {
	cases := [][2]geometry.Point{
		{pt(0, 0), pt(10, 4)},
		{pt(10, 0), pt(0, 4)},
		{pt(0, 4), pt(10, 0)},
		{pt(10, 4), pt(0, 0)},
		{pt(5, 0), pt(5, 10)},
		{pt(-3, 2), pt(6, 2.5)},
	}
	for _, cs := range cases {
		a0, a1 := cs[0], cs[1]
		c0, c1 := companions(a0, a1)
		m := geometry.Midpoint(a0, a1)

		hx, hy := a1.X-m.X, a1.Y-m.Y
		px, py := c0.X-m.X, c0.Y-m.Y
		if dot := hx*px + hy*py; math.Abs(dot) > 1e-9 {
			t.Errorf("%v-%v: companion not perpendicular, dot %v", a0, a1, dot)
		}
		if math.Abs(math.Hypot(hx, hy)-math.Hypot(px, py)) > 1e-9 {
			t.Errorf("%v-%v: companion arm length differs", a0, a1)
		}
		if !geometry.Midpoint(c0, c1).SamePosition(m) {
			t.Errorf("%v-%v: companions not centred on the midpoint", a0, a1)
		}
		// every sign case reduces to the same quarter turn
		if math.Abs(px+hy) > 1e-9 || math.Abs(py-hx) > 1e-9 {
			t.Errorf("%v-%v: expected (%v,%v), got (%v,%v)", a0, a1, -hy, hx, px, py)
		}
	}
}

func degreesByKey(rs []regions.AngleRegion) map[string]float64 {
	out := make(map[string]float64, len(rs))
	for _, r := range rs {
		out[r.ColorKey] = r.Degrees
	}
	return out
}

func assertFinite(t *testing.T, d Derived) {
	t.Helper()
	for _, p := range d.Points {
		if !geometry.Finite(p) {
			t.Errorf("point %d is not finite: %v", p.ID, p)
		}
	}
}

func assertNote(t *testing.T, d Derived, id int, reason string) {
	t.Helper()
	for _, n := range d.Notes {
		if n.PointID == id && n.Reason == reason {
			return
		}
	}
	t.Errorf("expected fallback %q on point %d, got %v", reason, id, d.Notes)
}
