package usecases

import "github.com/planmetric/planmetric/internal/core/domain"

// Default calibration for architectural line weights at the 72-DPI
// drawing-point baseline.
const (
	// DefaultWallStrokeWidthPts separates wall strokes from dimension
	// lines, hatching, and text underlines.
	DefaultWallStrokeWidthPts = 1.5
	// DefaultMinWallLengthPts excludes short annotation ticks and
	// dimension leader lines. 36 pts is half an inch on paper.
	DefaultMinWallLengthPts = 36.0
)

// GeometryExtractor filters raw page strokes down to wall candidates.
// It is a pure filter: thickness and length thresholds only, no semantic
// classification, coordinates passed through unmodified.
type GeometryExtractor struct {
	MinStrokeWidthPts float64
	MinLengthPts      float64
}

// NewGeometryExtractor creates an extractor with the default thresholds.
func NewGeometryExtractor() *GeometryExtractor {
	return &GeometryExtractor{
		MinStrokeWidthPts: DefaultWallStrokeWidthPts,
		MinLengthPts:      DefaultMinWallLengthPts,
	}
}

// WallCandidates returns the strokes thick and long enough to be walls.
func (g *GeometryExtractor) WallCandidates(page *domain.Page) []domain.LineSegment {
	var out []domain.LineSegment
	for _, s := range page.Strokes {
		if s.StrokeWidth < g.MinStrokeWidthPts {
			continue
		}
		if s.Length() < g.MinLengthPts {
			continue
		}
		out = append(out, s)
	}
	return out
}
