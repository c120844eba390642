package ports

import (
	"context"

	"github.com/planmetric/planmetric/internal/core/domain"
)

// Verifier is the external vision-and-language capability consulted when
// deterministic scale signals are insufficient. Implementations are
// fallible, rate-limited, and network-bound; they must honor ctx
// cancellation and map rate-limit responses to domain.ErrRateLimited.
type Verifier interface {
	Verify(ctx context.Context, image []byte, detected *domain.ScaleCandidate, textBlocks []domain.TextBlock) (domain.VerifierAnswer, error)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher publishes analysis events to a message broker.
type EventPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, m *domain.Measurements) error
	PublishEstimateCreated(ctx context.Context, e *domain.CostEstimate) error
}
