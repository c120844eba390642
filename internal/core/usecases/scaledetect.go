package usecases

import (
	"fmt"
	"math"
	"strings"

	"github.com/planmetric/planmetric/internal/core/domain"
)

// detectionState tracks the fusion state machine. Each transition has a
// guard so the preconditions and resulting tiers are testable in
// isolation.
type detectionState int

const (
	stateUnresolved detectionState = iota
	stateTextConfident
	stateGeometryChecked
	stateVerified
	stateUnverified
)

// ScaleDetector fuses text-derived scale candidates with geometric
// consistency checks into one ScaleResult.
type ScaleDetector struct {
	parser *TextScaleParser
}

// NewScaleDetector creates a detector over the given parser.
func NewScaleDetector(parser *TextScaleParser) *ScaleDetector {
	return &ScaleDetector{parser: parser}
}

// standardSheets are common US sheet sizes in points (72 pts/inch).
// Orientation is normalized before comparison.
var standardSheets = [][2]float64{
	{612, 792},   // Letter 8.5x11
	{792, 1224},  // Tabloid 11x17
	{648, 864},   // ARCH A 9x12
	{864, 1296},  // ARCH B 12x18
	{1296, 1728}, // ARCH C 18x24
	{1728, 2592}, // ARCH D 24x36
	{2592, 3456}, // ARCH E 36x48
}

// Detect runs the fusion policy over the page's text candidates and the
// wall geometry. The verifier escalation (low or absent results) is the
// caller's concern; Detect itself never consults external services.
func (d *ScaleDetector) Detect(page *domain.Page, walls WallAnalysis) domain.ScaleResult {
	return d.Fuse(d.parser.Parse(page), page, walls)
}

// Fuse applies the fusion policy to already-parsed candidates. Split from
// Detect so the text and geometry branches can run concurrently upstream.
func (d *ScaleDetector) Fuse(candidates []domain.ScaleCandidate, page *domain.Page, walls WallAnalysis) domain.ScaleResult {
	state := stateUnresolved
	result := domain.ScaleResult{VerificationSource: domain.Unverified}

	switch {
	case len(candidates) == 0:
		state = stateUnverified
	case len(candidates) == 1:
		adopted := candidates[0]
		result.Scale = &adopted
		state = stateTextConfident
	default:
		adopted, conflict := resolveConflict(candidates)
		result.Scale = &adopted
		state = stateTextConfident
		if conflict {
			result.Scale.Confidence = domain.ConfidenceLow
			result.Warnings = append(result.Warnings, describeConflict(candidates))
		}
	}

	if state == stateUnverified {
		result.Warnings = append(result.Warnings, "no scale notation found in page text")
		return result
	}

	// Geometric cross-check: only meaningful on a standard sheet with
	// detected walls. A failed check downgrades, never discards.
	if isStandardSheet(page.WidthPts, page.HeightPts) && len(walls.Segments) > 0 {
		state = stateGeometryChecked
		if inconsistent, detail := sheetExtentDisagrees(page, walls); inconsistent {
			result.Scale.Confidence = result.Scale.Confidence.Downgrade()
			result.Warnings = append(result.Warnings, detail)
		}
	}

	switch state {
	case stateGeometryChecked:
		result.VerificationSource = domain.VerifiedByGeometry
	default:
		result.VerificationSource = domain.VerifiedByText
	}
	return result
}

// resolveConflict applies the tie-break policy: a title-block-quadrant
// candidate wins outright; otherwise the first candidate in reading order
// is adopted and the conflict reported.
func resolveConflict(candidates []domain.ScaleCandidate) (domain.ScaleCandidate, bool) {
	agreed := true
	for _, c := range candidates[1:] {
		if math.Abs(c.ScaleFactor-candidates[0].ScaleFactor) > 1e-6 {
			agreed = false
			break
		}
	}
	if agreed {
		return candidates[0], false
	}
	for _, c := range candidates {
		if c.Source == domain.ScaleSourceTitleBlock {
			return c, false
		}
	}
	return candidates[0], true
}

func describeConflict(candidates []domain.ScaleCandidate) string {
	parts := make([]string, len(candidates))
	for i, c := range candidates {
		parts[i] = fmt.Sprintf("%q (factor %.4g)", c.RawNotation, c.ScaleFactor)
	}
	return "conflicting scale notations on page: " + strings.Join(parts, ", ")
}

func isStandardSheet(w, h float64) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	lo, hi := math.Min(w, h), math.Max(w, h)
	for _, sheet := range standardSheets {
		if math.Abs(lo-sheet[0])/sheet[0] <= 0.02 && math.Abs(hi-sheet[1])/sheet[1] <= 0.02 {
			return true
		}
	}
	return false
}

// sheetExtentDisagrees flags a candidate whose implied drawing extent is
// wildly inconsistent with the wall bounding box: walls spanning less
// than half of the sheet's larger dimension suggest the notation belongs
// to a detail view, not the floor plan.
func sheetExtentDisagrees(page *domain.Page, walls WallAnalysis) (bool, string) {
	bbox := wallsBBox(walls.Segments)
	wallExtent := math.Max(bbox.Width(), bbox.Height())
	if wallExtent <= 0 {
		return false, ""
	}
	sheetExtent := math.Max(page.WidthPts, page.HeightPts)
	if sheetExtent > 2*wallExtent {
		return true, fmt.Sprintf(
			"wall bounding box (%.0f pts) disagrees with sheet extent (%.0f pts) by more than 2x; scale confidence downgraded",
			wallExtent, sheetExtent)
	}
	return false, ""
}

func wallsBBox(segments []domain.WallSegment) domain.Rect {
	if len(segments) == 0 {
		return domain.Rect{}
	}
	r := domain.Rect{
		X0: segments[0].Start.X, Y0: segments[0].Start.Y,
		X1: segments[0].Start.X, Y1: segments[0].Start.Y,
	}
	for _, s := range segments {
		for _, p := range [2]domain.Point{s.Start, s.End} {
			r.X0 = math.Min(r.X0, p.X)
			r.Y0 = math.Min(r.Y0, p.Y)
			r.X1 = math.Max(r.X1, p.X)
			r.Y1 = math.Max(r.Y1, p.Y)
		}
	}
	return r
}
