package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"

	"github.com/planmetric/planmetric/internal/core/domain"
	"github.com/planmetric/planmetric/internal/core/ports"
)

// ScaleVerifier escalates low-confidence or absent scale results to the
// external vision-language verifier and merges its answer with the
// deterministic one.
//
// The verifier call is the pipeline's only suspension point: it is
// bounded by Timeout, retried with exponential backoff on rate-limit
// signals only, and aborted when the request context is cancelled.
type ScaleVerifier struct {
	verifier ports.Verifier
	cache    ports.CacheService // optional answer cache, may be nil

	group singleflight.Group

	// MaxAttempts bounds rate-limit retries (total calls, not retries).
	MaxAttempts int
	// Timeout bounds one escalation end to end.
	Timeout time.Duration
	// InitialBackoff seeds the exponential backoff; tests shrink it.
	InitialBackoff time.Duration
	// CacheTTLSeconds controls how long verifier answers are reused.
	CacheTTLSeconds int
}

// VerifierStats records diagnostics for the assembler's stats map.
type VerifierStats struct {
	Invoked  bool
	Retries  int
	CacheHit bool
}

// NewScaleVerifier creates a verifier usecase. Both verifier and cache
// may be nil; escalation then degrades to unverified.
func NewScaleVerifier(verifier ports.Verifier, cache ports.CacheService) *ScaleVerifier {
	return &ScaleVerifier{
		verifier:        verifier,
		cache:           cache,
		MaxAttempts:     3,
		Timeout:         30 * time.Second,
		InitialBackoff:  500 * time.Millisecond,
		CacheTTLSeconds: 3600,
	}
}

// NeedsEscalation reports whether the fused result is weak enough to
// consult the external verifier.
func (v *ScaleVerifier) NeedsEscalation(prior domain.ScaleResult) bool {
	return prior.Scale == nil || prior.Scale.Confidence == domain.ConfidenceLow
}

// Escalate consults the verifier and merges its answer into prior.
// A parsable positive scale factor replaces the prior result; a decline
// or transport failure leaves the prior scale but promotes the source to
// unverified so callers can always distinguish it from "never checked".
func (v *ScaleVerifier) Escalate(ctx context.Context, page *domain.Page, prior domain.ScaleResult) (domain.ScaleResult, VerifierStats) {
	stats := VerifierStats{}
	if !v.NeedsEscalation(prior) {
		return prior, stats
	}

	if v.verifier == nil {
		prior.VerificationSource = domain.Unverified
		prior.Warnings = append(prior.Warnings, "no verifier configured; scale left unverified")
		return prior, stats
	}

	stats.Invoked = true
	answer, err := v.verifyOnce(ctx, page, prior.Scale, &stats)

	state := stateUnresolved
	switch {
	case err != nil:
		state = stateUnverified
		prior.Warnings = append(prior.Warnings, verifierFailureWarning(err))
	case answer.ScaleFactor != nil && *answer.ScaleFactor > 0:
		state = stateVerified
	default:
		state = stateUnverified
		warning := "verifier declined to determine a scale"
		if answer.Rationale != "" {
			warning += ": " + answer.Rationale
		}
		prior.Warnings = append(prior.Warnings, warning)
	}

	if state == stateVerified {
		prior.Scale = &domain.ScaleCandidate{
			ScaleFactor: *answer.ScaleFactor,
			Source:      domain.ScaleSourceInferred,
			RawNotation: answer.Rationale,
			Confidence:  domain.ConfidenceMedium,
		}
		prior.VerificationSource = domain.VerifiedByLLM
		return prior, stats
	}

	prior.VerificationSource = domain.Unverified
	return prior, stats
}

// verifyOnce answers from the cache when possible and otherwise performs
// at most one external verification per page fingerprint, retried with
// backoff on rate limits.
func (v *ScaleVerifier) verifyOnce(ctx context.Context, page *domain.Page, detected *domain.ScaleCandidate, stats *VerifierStats) (domain.VerifierAnswer, error) {
	key := "verifier:" + pageFingerprint(page)

	if v.cache != nil {
		if data, err := v.cache.Get(ctx, key); err == nil {
			var cached domain.VerifierAnswer
			if err := json.Unmarshal(data, &cached); err == nil {
				stats.CacheHit = true
				return cached, nil
			}
		}
	}

	res, err, _ := v.group.Do(key, func() (any, error) {
		answer, err := v.callWithRetry(ctx, page, detected, stats)
		if err != nil {
			return domain.VerifierAnswer{}, err
		}
		if v.cache != nil {
			if data, err := json.Marshal(answer); err == nil {
				_ = v.cache.Set(ctx, key, data, v.CacheTTLSeconds)
			}
		}
		return answer, nil
	})
	if err != nil {
		return domain.VerifierAnswer{}, err
	}
	return res.(domain.VerifierAnswer), nil
}

func (v *ScaleVerifier) callWithRetry(ctx context.Context, page *domain.Page, detected *domain.ScaleCandidate, stats *VerifierStats) (domain.VerifierAnswer, error) {
	ctx, cancel := context.WithTimeout(ctx, v.Timeout)
	defer cancel()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = v.InitialBackoff

	var answer domain.VerifierAnswer
	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			stats.Retries++
		}
		a, err := v.verifier.Verify(ctx, page.ImagePNG, detected, page.TextBlocks)
		if err != nil {
			if errors.Is(err, domain.ErrRateLimited) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}
		answer = a
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(v.MaxAttempts-1)), ctx))
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
		return domain.VerifierAnswer{}, err
	}
	return answer, nil
}

func verifierFailureWarning(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return fmt.Sprintf("verifier rate limited after bounded retries; scale left unverified: %v", err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("verifier timed out; scale left unverified: %v", err)
	default:
		return fmt.Sprintf("verifier transport failure; scale left unverified: %v", err)
	}
}

// pageFingerprint hashes the page content (dimensions, strokes, text) so
// identical pages share one verification. The detected prior candidate
// is deliberately not part of the key: the verifier's answer is a
// property of the page alone, so escalations with different priors must
// resolve to the same cached answer.
func pageFingerprint(page *domain.Page) string {
	h := sha256.New()
	writeFloat := func(f float64) {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(f*1000)))
		h.Write(buf[:])
	}
	writeFloat(page.WidthPts)
	writeFloat(page.HeightPts)
	for _, s := range page.Strokes {
		writeFloat(s.Start.X)
		writeFloat(s.Start.Y)
		writeFloat(s.End.X)
		writeFloat(s.End.Y)
		writeFloat(s.StrokeWidth)
	}
	for _, tb := range page.TextBlocks {
		h.Write([]byte(tb.Text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}
