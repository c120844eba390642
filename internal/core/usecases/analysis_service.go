package usecases

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/planmetric/planmetric/internal/core/domain"
)

// AnalysisService runs the full page analysis pipeline: text scale
// parsing and wall extraction in parallel, scale fusion, optional
// verifier escalation, and measurement assembly.
type AnalysisService struct {
	parser    *TextScaleParser
	extractor *GeometryExtractor
	builder   *WallSegmentBuilder
	detector  *ScaleDetector
	verifier  *ScaleVerifier
	assembler *MeasurementAssembler
}

// NewAnalysisService creates a service with default pipeline components.
// verifier may be nil; low-confidence results are then left unverified.
func NewAnalysisService(verifier *ScaleVerifier) *AnalysisService {
	parser := NewTextScaleParser()
	return &AnalysisService{
		parser:    parser,
		extractor: NewGeometryExtractor(),
		builder:   NewWallSegmentBuilder(),
		detector:  NewScaleDetector(parser),
		verifier:  verifier,
		assembler: NewMeasurementAssembler(),
	}
}

// Analyze measures one page. It never fails on drawing content; only a
// nil page or cancelled context produces an error. Pages with no
// recognizable scale or geometry yield a degraded, warning-laden record.
func (s *AnalysisService) Analyze(ctx context.Context, page *domain.Page) (*domain.Measurements, error) {
	if page == nil {
		return nil, fmt.Errorf("page is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The text and geometry branches are independent until fusion.
	var (
		candidates []domain.ScaleCandidate
		walls      WallAnalysis
	)
	var g errgroup.Group
	g.Go(func() error {
		candidates = s.parser.Parse(page)
		return nil
	})
	g.Go(func() error {
		walls = s.builder.Build(s.extractor.WallCandidates(page))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scale := s.detector.Fuse(candidates, page, walls)

	var stats VerifierStats
	if s.verifier != nil {
		scale, stats = s.verifier.Escalate(ctx, page, scale)
	}

	return s.assembler.Assemble(scale, walls, stats), nil
}
