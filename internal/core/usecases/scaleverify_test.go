package usecases_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/planmetric/planmetric/internal/core/domain"
	"github.com/planmetric/planmetric/internal/core/usecases"
)

// --- Mock Verifier ---

type mockVerifier struct {
	calls    int
	verifyFn func(ctx context.Context, image []byte, detected *domain.ScaleCandidate, blocks []domain.TextBlock) (domain.VerifierAnswer, error)
}

func (m *mockVerifier) Verify(ctx context.Context, image []byte, detected *domain.ScaleCandidate, blocks []domain.TextBlock) (domain.VerifierAnswer, error) {
	m.calls++
	if m.verifyFn != nil {
		return m.verifyFn(ctx, image, detected, blocks)
	}
	return domain.VerifierAnswer{}, nil
}

// --- Mock CacheService ---

type mockCache struct {
	store map[string][]byte
	sets  int
}

func newMockCache() *mockCache {
	return &mockCache{store: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.store[key]; ok {
		return v, nil
	}
	return nil, errors.New("cache miss")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.store[key] = value
	m.sets++
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.store, key)
	return nil
}

func fastVerifier(v *usecases.ScaleVerifier) *usecases.ScaleVerifier {
	v.InitialBackoff = time.Millisecond
	v.Timeout = time.Second
	return v
}

func lowPrior() domain.ScaleResult {
	return domain.ScaleResult{
		Scale: &domain.ScaleCandidate{
			ScaleFactor: 48,
			Source:      domain.ScaleSourceText,
			Confidence:  domain.ConfidenceLow,
		},
		VerificationSource: domain.VerifiedByText,
	}
}

func floatPtr(f float64) *float64 { return &f }

func TestEscalate_SkipsConfidentResults(t *testing.T) {
	verifier := &mockVerifier{}
	v := usecases.NewScaleVerifier(verifier, nil)

	prior := domain.ScaleResult{
		Scale: &domain.ScaleCandidate{
			ScaleFactor: 96,
			Confidence:  domain.ConfidenceHigh,
		},
		VerificationSource: domain.VerifiedByText,
	}

	result, stats := v.Escalate(context.Background(), &domain.Page{}, prior)
	if verifier.calls != 0 {
		t.Errorf("expected no verifier calls, got %d", verifier.calls)
	}
	if stats.Invoked {
		t.Error("expected stats.Invoked false")
	}
	if result.VerificationSource != domain.VerifiedByText {
		t.Errorf("expected prior result untouched, got %s", result.VerificationSource)
	}
}

func TestEscalate_AnswerReplacesResult(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(ctx context.Context, image []byte, detected *domain.ScaleCandidate, blocks []domain.TextBlock) (domain.VerifierAnswer, error) {
			return domain.VerifierAnswer{ScaleFactor: floatPtr(96), Rationale: "title block reads 1/8 inch"}, nil
		},
	}
	v := fastVerifier(usecases.NewScaleVerifier(verifier, nil))

	result, stats := v.Escalate(context.Background(), &domain.Page{}, lowPrior())
	if result.VerificationSource != domain.VerifiedByLLM {
		t.Fatalf("expected llm_verified, got %s", result.VerificationSource)
	}
	if result.Scale == nil || !almostEqual(result.Scale.ScaleFactor, 96) {
		t.Fatalf("expected verifier factor 96, got %+v", result.Scale)
	}
	if result.Scale.Confidence != domain.ConfidenceMedium {
		t.Errorf("expected medium confidence, got %s", result.Scale.Confidence)
	}
	if result.Scale.Source != domain.ScaleSourceInferred {
		t.Errorf("expected inferred source, got %s", result.Scale.Source)
	}
	if !stats.Invoked || stats.Retries != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestEscalate_DeclineLeavesUnverified(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(ctx context.Context, image []byte, detected *domain.ScaleCandidate, blocks []domain.TextBlock) (domain.VerifierAnswer, error) {
			return domain.VerifierAnswer{Rationale: "no legible scale notation"}, nil
		},
	}
	v := fastVerifier(usecases.NewScaleVerifier(verifier, nil))

	result, _ := v.Escalate(context.Background(), &domain.Page{}, lowPrior())
	if result.VerificationSource != domain.Unverified {
		t.Fatalf("expected unverified, got %s", result.VerificationSource)
	}
	if result.Scale == nil || !almostEqual(result.Scale.ScaleFactor, 48) {
		t.Fatalf("decline must keep the prior scale, got %+v", result.Scale)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "declined") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected decline warning, got %v", result.Warnings)
	}
}

func TestEscalate_RateLimitRetriesThenUnverified(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(ctx context.Context, image []byte, detected *domain.ScaleCandidate, blocks []domain.TextBlock) (domain.VerifierAnswer, error) {
			return domain.VerifierAnswer{}, domain.ErrRateLimited
		},
	}
	v := fastVerifier(usecases.NewScaleVerifier(verifier, nil))
	v.MaxAttempts = 3

	result, stats := v.Escalate(context.Background(), &domain.Page{}, lowPrior())
	if verifier.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", verifier.calls)
	}
	if stats.Retries != 2 {
		t.Errorf("expected 2 retries, got %d", stats.Retries)
	}
	if result.VerificationSource != domain.Unverified {
		t.Fatalf("expected unverified after exhausted retries, got %s", result.VerificationSource)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "rate limited") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected rate-limit warning, got %v", result.Warnings)
	}
}

func TestEscalate_TransportErrorIsNotRetried(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(ctx context.Context, image []byte, detected *domain.ScaleCandidate, blocks []domain.TextBlock) (domain.VerifierAnswer, error) {
			return domain.VerifierAnswer{}, domain.ErrVerifierUnavailable
		},
	}
	v := fastVerifier(usecases.NewScaleVerifier(verifier, nil))

	result, _ := v.Escalate(context.Background(), &domain.Page{}, lowPrior())
	if verifier.calls != 1 {
		t.Errorf("expected 1 attempt for permanent failure, got %d", verifier.calls)
	}
	if result.VerificationSource != domain.Unverified {
		t.Errorf("expected unverified, got %s", result.VerificationSource)
	}
}

func TestEscalate_NilVerifier(t *testing.T) {
	v := usecases.NewScaleVerifier(nil, nil)

	result, stats := v.Escalate(context.Background(), &domain.Page{}, domain.ScaleResult{VerificationSource: domain.Unverified})
	if stats.Invoked {
		t.Error("expected no invocation without a verifier")
	}
	if result.VerificationSource != domain.Unverified {
		t.Errorf("expected unverified, got %s", result.VerificationSource)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a not-configured warning")
	}
}

func TestEscalate_CachedAnswerSkipsVerifier(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(ctx context.Context, image []byte, detected *domain.ScaleCandidate, blocks []domain.TextBlock) (domain.VerifierAnswer, error) {
			return domain.VerifierAnswer{ScaleFactor: floatPtr(96)}, nil
		},
	}
	cache := newMockCache()
	v := fastVerifier(usecases.NewScaleVerifier(verifier, cache))
	page := &domain.Page{WidthPts: 612, HeightPts: 792}

	first, stats := v.Escalate(context.Background(), page, lowPrior())
	if first.VerificationSource != domain.VerifiedByLLM {
		t.Fatalf("expected llm_verified, got %s", first.VerificationSource)
	}
	if stats.CacheHit {
		t.Error("first escalation should miss the cache")
	}
	if cache.sets != 1 {
		t.Fatalf("expected answer cached once, got %d sets", cache.sets)
	}

	second, stats := v.Escalate(context.Background(), page, lowPrior())
	if verifier.calls != 1 {
		t.Errorf("expected cached answer to skip the verifier, got %d calls", verifier.calls)
	}
	if !stats.CacheHit {
		t.Error("expected a cache hit on the second escalation")
	}
	if second.VerificationSource != domain.VerifiedByLLM {
		t.Errorf("expected llm_verified from cache, got %s", second.VerificationSource)
	}
}
