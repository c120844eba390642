package usecases

import (
	"github.com/planmetric/planmetric/internal/core/domain"
)

// pointsPerInch is the drawing-space unit baseline. Page coordinates are
// PDF points, 72 to the paper inch.
const pointsPerInch = 72.0

// MeasurementAssembler composes the scale decision and the wall analysis
// into one Measurements record. It is pure: same inputs, same output.
type MeasurementAssembler struct{}

// NewMeasurementAssembler creates an assembler.
func NewMeasurementAssembler() *MeasurementAssembler {
	return &MeasurementAssembler{}
}

// Assemble builds the final measurement record. Gross area requires both
// a resolved scale and a closed boundary; either missing leaves it nil
// rather than fabricating a number.
func (a *MeasurementAssembler) Assemble(scale domain.ScaleResult, walls WallAnalysis, verifier VerifierStats) *domain.Measurements {
	m := &domain.Measurements{
		Scale:        scale,
		WallCount:    len(walls.Segments),
		WallSegments: walls.Segments,
		Boundary:     walls.Boundary,
		Stats:        make(map[string]any),
	}
	m.Scale.Warnings = append(m.Scale.Warnings, walls.Warnings...)

	if scale.Scale != nil && walls.Boundary != nil {
		area := grossAreaSF(walls.Boundary.Area(), scale.Scale.ScaleFactor)
		m.GrossAreaSF = &area
	}

	m.Stats["wall_candidates"] = walls.CandidateCount
	m.Stats["wall_segments"] = len(walls.Segments)
	m.Stats["boundary_closed"] = walls.Boundary != nil
	m.Stats["verifier_invoked"] = verifier.Invoked
	if verifier.Invoked {
		m.Stats["verifier_retries"] = verifier.Retries
		m.Stats["verifier_cache_hit"] = verifier.CacheHit
	}

	m.Confidence = overallConfidence(scale, walls)
	return m
}

// grossAreaSF converts a polygon area in square drawing points to square
// feet: points to paper inches, paper inches to real inches through the
// scale factor, real square inches to square feet.
func grossAreaSF(areaPts float64, scaleFactor float64) float64 {
	paperSqIn := areaPts / (pointsPerInch * pointsPerInch)
	realSqIn := paperSqIn * scaleFactor * scaleFactor
	return realSqIn / 144.0
}

// overallConfidence derives the record-level tier. The scale tier is the
// ceiling; a missing boundary caps the result at medium because the area
// could not be computed.
func overallConfidence(scale domain.ScaleResult, walls WallAnalysis) domain.Confidence {
	if scale.Scale == nil {
		return domain.ConfidenceLow
	}
	c := scale.Scale.Confidence
	if walls.Boundary == nil && c == domain.ConfidenceHigh {
		c = domain.ConfidenceMedium
	}
	return c
}
