package usecases_test

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/planmetric/planmetric/internal/core/domain"
	"github.com/planmetric/planmetric/internal/core/usecases"
)

// floorPlanPage is a letter sheet with a labeled 1/8" scale and a
// 400x300pt rectangular wall outline.
func floorPlanPage() *domain.Page {
	return &domain.Page{
		WidthPts:  612,
		HeightPts: 792,
		TextBlocks: []domain.TextBlock{
			{Text: "FLOOR PLAN", BBox: domain.Rect{X0: 20, Y0: 20, X1: 120, Y1: 40}},
			{Text: `SCALE: 1/8" = 1'-0"`, BBox: domain.Rect{X0: 480, Y0: 680, X1: 590, Y1: 700}},
		},
		Strokes: rectangleStrokes(100, 100, 500, 400, 2),
	}
}

func TestAnalyze_FloorPlanRoundTrip(t *testing.T) {
	svc := usecases.NewAnalysisService(nil)

	m, err := svc.Analyze(context.Background(), floorPlanPage())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.Scale.Scale == nil || !almostEqual(m.Scale.Scale.ScaleFactor, 96) {
		t.Fatalf("expected scale factor 96, got %+v", m.Scale.Scale)
	}
	if m.WallCount != 4 {
		t.Errorf("expected 4 walls, got %d", m.WallCount)
	}
	if m.GrossAreaSF == nil {
		t.Fatal("expected a gross area")
	}
	// 44.4ft x 33.3ft outline at 1/8" = 1'-0".
	if math.Abs(*m.GrossAreaSF-1481.48) > 1481.48*0.05 {
		t.Errorf("expected gross area near 1481 SF, got %g", *m.GrossAreaSF)
	}
	if m.Scale.VerificationSource != domain.VerifiedByGeometry {
		t.Errorf("expected geometry verification, got %s", m.Scale.VerificationSource)
	}
}

func TestAnalyze_EmptyPage(t *testing.T) {
	svc := usecases.NewAnalysisService(nil)

	m, err := svc.Analyze(context.Background(), &domain.Page{WidthPts: 612, HeightPts: 792})
	if err != nil {
		t.Fatalf("empty page must not fail: %v", err)
	}
	if m.WallCount != 0 {
		t.Errorf("expected no walls, got %d", m.WallCount)
	}
	if m.GrossAreaSF != nil {
		t.Errorf("expected nil area, got %g", *m.GrossAreaSF)
	}
	if m.Scale.VerificationSource != domain.Unverified {
		t.Errorf("expected unverified, got %s", m.Scale.VerificationSource)
	}
	if m.Confidence != domain.ConfidenceLow {
		t.Errorf("expected low confidence, got %s", m.Confidence)
	}
}

func TestAnalyze_NilPage(t *testing.T) {
	svc := usecases.NewAnalysisService(nil)
	if _, err := svc.Analyze(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil page")
	}
}

func TestAnalyze_CancelledContext(t *testing.T) {
	svc := usecases.NewAnalysisService(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Analyze(ctx, floorPlanPage()); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	svc := usecases.NewAnalysisService(nil)

	first, err := svc.Analyze(context.Background(), floorPlanPage())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Analyze(context.Background(), floorPlanPage())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical results for identical pages:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestAnalyze_LowConfidenceEscalatesToVerifier(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(ctx context.Context, image []byte, detected *domain.ScaleCandidate, blocks []domain.TextBlock) (domain.VerifierAnswer, error) {
			return domain.VerifierAnswer{ScaleFactor: floatPtr(96), Rationale: "graphic scale bar"}, nil
		},
	}
	svc := usecases.NewAnalysisService(fastVerifier(usecases.NewScaleVerifier(verifier, nil)))

	// No scale notation anywhere: the text branch yields nothing.
	page := &domain.Page{
		WidthPts:   612,
		HeightPts:  792,
		TextBlocks: []domain.TextBlock{{Text: "FLOOR PLAN"}},
		Strokes:    rectangleStrokes(100, 100, 500, 400, 2),
	}

	m, err := svc.Analyze(context.Background(), page)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verifier.calls != 1 {
		t.Fatalf("expected 1 verifier call, got %d", verifier.calls)
	}
	if m.Scale.VerificationSource != domain.VerifiedByLLM {
		t.Errorf("expected llm_verified, got %s", m.Scale.VerificationSource)
	}
	if m.GrossAreaSF == nil {
		t.Fatal("expected a gross area from the verified scale")
	}
	if math.Abs(*m.GrossAreaSF-1481.48) > 1481.48*0.05 {
		t.Errorf("expected gross area near 1481 SF, got %g", *m.GrossAreaSF)
	}
}

func TestAnalyze_ConfidentScaleSkipsVerifier(t *testing.T) {
	verifier := &mockVerifier{}
	svc := usecases.NewAnalysisService(fastVerifier(usecases.NewScaleVerifier(verifier, nil)))

	if _, err := svc.Analyze(context.Background(), floorPlanPage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verifier.calls != 0 {
		t.Errorf("expected no verifier calls for confident scale, got %d", verifier.calls)
	}
}
