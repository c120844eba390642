package usecases_test

import (
	"math"
	"testing"

	"github.com/planmetric/planmetric/internal/core/domain"
	"github.com/planmetric/planmetric/internal/core/usecases"
)

func seg(x0, y0, x1, y1, width float64) domain.LineSegment {
	return domain.LineSegment{
		Start:       domain.Point{X: x0, Y: y0},
		End:         domain.Point{X: x1, Y: y1},
		StrokeWidth: width,
	}
}

// rectangleStrokes returns the four walls of a closed rectangle.
func rectangleStrokes(x0, y0, x1, y1, width float64) []domain.LineSegment {
	return []domain.LineSegment{
		seg(x0, y0, x1, y0, width),
		seg(x1, y0, x1, y1, width),
		seg(x1, y1, x0, y1, width),
		seg(x0, y1, x0, y0, width),
	}
}

func TestClassifyOrientation_AxisDominance(t *testing.T) {
	cases := []struct {
		name string
		end  domain.Point
		want domain.Orientation
	}{
		{"pure horizontal", domain.Point{X: 100, Y: 0}, domain.OrientationHorizontal},
		{"horizontal with drift", domain.Point{X: 100, Y: 9}, domain.OrientationHorizontal},
		{"pure vertical", domain.Point{X: 0, Y: 100}, domain.OrientationVertical},
		{"vertical with drift", domain.Point{X: 9, Y: 100}, domain.OrientationVertical},
		{"true diagonal", domain.Point{X: 100, Y: 100}, domain.OrientationDiagonal},
		{"shallow diagonal", domain.Point{X: 100, Y: 11}, domain.OrientationDiagonal},
	}
	for _, tc := range cases {
		got := domain.ClassifyOrientation(domain.Point{}, tc.end)
		if got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestBuild_MergesColinearRuns(t *testing.T) {
	b := usecases.NewWallSegmentBuilder()

	// One wall drawn as two slightly overlapping strokes plus an unrelated
	// parallel wall far away.
	candidates := []domain.LineSegment{
		seg(100, 100, 250, 100, 2),
		seg(249, 100.5, 400, 100.5, 2),
		seg(100, 300, 400, 300, 2),
	}

	analysis := b.Build(candidates)
	if len(analysis.Segments) != 2 {
		t.Fatalf("expected 2 merged segments, got %d", len(analysis.Segments))
	}

	var merged *domain.WallSegment
	for i := range analysis.Segments {
		if analysis.Segments[i].LengthPts > 250 {
			merged = &analysis.Segments[i]
		}
	}
	if merged == nil {
		t.Fatal("expected a merged segment spanning the full run")
	}
	if math.Abs(merged.LengthPts-300) > 2 {
		t.Errorf("expected merged length near 300, got %g", merged.LengthPts)
	}
	if merged.Orientation != domain.OrientationHorizontal {
		t.Errorf("expected horizontal orientation, got %s", merged.Orientation)
	}
}

func TestBuild_GapBeyondEpsilonStaysSplit(t *testing.T) {
	b := usecases.NewWallSegmentBuilder()

	// 40pt gap, far beyond the 4pt epsilon for 2pt strokes.
	candidates := []domain.LineSegment{
		seg(100, 100, 200, 100, 2),
		seg(240, 100, 340, 100, 2),
	}

	analysis := b.Build(candidates)
	if len(analysis.Segments) != 2 {
		t.Fatalf("expected 2 segments across the gap, got %d", len(analysis.Segments))
	}
}

func TestBuild_ClosedRectangleBoundary(t *testing.T) {
	b := usecases.NewWallSegmentBuilder()

	analysis := b.Build(rectangleStrokes(100, 100, 500, 400, 2))
	if len(analysis.Segments) != 4 {
		t.Fatalf("expected 4 wall segments, got %d", len(analysis.Segments))
	}
	if analysis.Boundary == nil {
		t.Fatal("expected a closed boundary")
	}
	if got := analysis.Boundary.Area(); math.Abs(got-120000) > 1 {
		t.Errorf("expected boundary area 120000 pts^2, got %g", got)
	}
	for _, w := range analysis.Warnings {
		t.Errorf("unexpected warning: %s", w)
	}
}

func TestBuild_OpenContourHasNoBoundary(t *testing.T) {
	b := usecases.NewWallSegmentBuilder()

	// U shape: three sides of a rectangle.
	candidates := []domain.LineSegment{
		seg(100, 100, 500, 100, 2),
		seg(500, 100, 500, 400, 2),
		seg(500, 400, 100, 400, 2),
	}

	analysis := b.Build(candidates)
	if analysis.Boundary != nil {
		t.Fatalf("expected no boundary for open contour, got area %g", analysis.Boundary.Area())
	}
	if len(analysis.Warnings) == 0 {
		t.Error("expected an open-contour warning")
	}
}

func TestBuild_RemovesSheetBorderOutliers(t *testing.T) {
	b := usecases.NewWallSegmentBuilder()

	// Room walls around 100pt plus one 3000pt sheet border stroke.
	candidates := append(rectangleStrokes(100, 100, 200, 200, 2),
		seg(0, 0, 3000, 0, 2))

	analysis := b.Build(candidates)
	if len(analysis.Segments) != 4 {
		t.Fatalf("expected border outlier removed, got %d segments", len(analysis.Segments))
	}
	for _, s := range analysis.Segments {
		if s.LengthPts > 500 {
			t.Errorf("outlier survived: length %g", s.LengthPts)
		}
	}
}

func TestBuild_EmptyInput(t *testing.T) {
	b := usecases.NewWallSegmentBuilder()

	analysis := b.Build(nil)
	if len(analysis.Segments) != 0 || analysis.Boundary != nil {
		t.Fatalf("expected empty analysis, got %+v", analysis)
	}
	if len(analysis.Warnings) == 0 {
		t.Error("expected a no-candidates warning")
	}
}

func TestWallCandidates_Thresholds(t *testing.T) {
	g := usecases.NewGeometryExtractor()
	page := &domain.Page{
		Strokes: []domain.LineSegment{
			seg(0, 0, 100, 0, 2.0),  // wall
			seg(0, 0, 100, 0, 0.5),  // hairline dimension line
			seg(0, 0, 10, 0, 2.0),   // short tick
			seg(0, 10, 200, 10, 36), // heavy wall poche
		},
	}

	got := g.WallCandidates(page)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	for _, c := range got {
		if c.StrokeWidth < g.MinStrokeWidthPts || c.Length() < g.MinLengthPts {
			t.Errorf("candidate violates thresholds: %+v", c)
		}
	}
}
