package ports

import (
	"context"

	"github.com/planmetric/planmetric/internal/core/domain"
)

// CostRepository persists square-foot cost data and city cost indices.
type CostRepository interface {
	GetBuildingCost(ctx context.Context, buildingType string, stories int) (*domain.BuildingCost, error)
	ListBuildingTypes(ctx context.Context) ([]domain.BuildingCost, error)
	GetCityIndex(ctx context.Context, city, state string) (*domain.CityCostIndex, error)
	ListCityIndices(ctx context.Context, state string) ([]domain.CityCostIndex, error)
}
