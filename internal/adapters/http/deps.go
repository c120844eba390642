package http

import (
	"github.com/nats-io/nats.go"

	"github.com/planmetric/planmetric/internal/adapters/postgres"
	"github.com/planmetric/planmetric/internal/adapters/render"
	"github.com/planmetric/planmetric/internal/adapters/valkey"
	"github.com/planmetric/planmetric/internal/core/ports"
	"github.com/planmetric/planmetric/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Analyses  *usecases.AnalysisService
	Estimates *usecases.EstimateService
	Costs     ports.CostRepository
	Overlay   *render.Overlay
	Publisher ports.EventPublisher
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
}
