package domain

import "errors"

// Confidence is a three-tier confidence level used for scale candidates
// and for assembled measurements.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Downgrade returns the next tier down, saturating at low.
func (c Confidence) Downgrade() Confidence {
	switch c {
	case ConfidenceHigh:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ScaleSource identifies where a scale candidate came from.
type ScaleSource string

const (
	ScaleSourceText       ScaleSource = "text"
	ScaleSourceTitleBlock ScaleSource = "title_block"
	ScaleSourceInferred   ScaleSource = "inferred"
)

// VerificationSource records how the final scale result was established.
type VerificationSource string

const (
	VerifiedByText     VerificationSource = "text"
	VerifiedByGeometry VerificationSource = "geometry"
	VerifiedByLLM      VerificationSource = "llm_verified"
	Unverified         VerificationSource = "unverified"
)

// ScaleCandidate is one parsed scale notation. ScaleFactor is real-world
// inches per drawing inch (dimensionless): 1/8"=1'-0" yields 96, 1:N yields N.
type ScaleCandidate struct {
	ScaleFactor float64     `json:"scale_factor"`
	Source      ScaleSource `json:"source"`
	RawNotation string      `json:"raw_notation"`
	Confidence  Confidence  `json:"confidence"`
}

// ScaleResult is the fused scale decision for a page.
//
// Scale.ScaleFactor > 0 whenever Scale is non-nil. VerificationSource
// Unverified may carry either a nil scale or a low-confidence best guess;
// the field itself signals the degraded state to all consumers.
type ScaleResult struct {
	Scale              *ScaleCandidate    `json:"scale"`
	VerificationSource VerificationSource `json:"verification_source"`
	Warnings           []string           `json:"warnings"`
}

// VerifierAnswer is the opaque answer from the external vision-language
// verifier. ScaleFactor nil means the verifier declined.
type VerifierAnswer struct {
	ScaleFactor *float64 `json:"scale_factor"`
	Rationale   string   `json:"rationale"`
}

// Verifier transport failure taxonomy. Rate limits are retried with
// bounded backoff; everything else degrades the result to unverified.
var (
	ErrRateLimited         = errors.New("verifier rate limited")
	ErrVerifierUnavailable = errors.New("verifier unavailable")
)
