package usecases

import (
	"context"
	"fmt"
	"math"

	"github.com/planmetric/planmetric/internal/core/domain"
	"github.com/planmetric/planmetric/internal/core/ports"
)

// Rough-order-of-magnitude accuracy band for square-foot conceptual
// estimates.
const (
	estimateLowFactor  = 0.80
	estimateHighFactor = 1.25
)

// EstimateRequest is one conceptual cost estimate request. GrossAreaSF
// typically comes from a prior page analysis.
type EstimateRequest struct {
	ProjectName  string  `json:"project_name"`
	BuildingType string  `json:"building_type"`
	Stories      int     `json:"stories"`
	GrossAreaSF  float64 `json:"gross_area_sf"`
	City         string  `json:"city"`
	State        string  `json:"state"`
}

// EstimateService computes square-foot conceptual estimates from the
// cost tables.
type EstimateService struct {
	costs ports.CostRepository
}

// NewEstimateService creates a new EstimateService.
func NewEstimateService(costs ports.CostRepository) *EstimateService {
	return &EstimateService{costs: costs}
}

// Estimate looks up the base square-foot cost for the building type,
// regionalizes it with the city index when one is known, and brackets the
// expected total with the ROM accuracy band.
func (s *EstimateService) Estimate(ctx context.Context, req EstimateRequest) (*domain.CostEstimate, error) {
	if req.BuildingType == "" {
		return nil, fmt.Errorf("building type is required")
	}
	if req.GrossAreaSF <= 0 {
		return nil, fmt.Errorf("gross area must be positive, got %g", req.GrossAreaSF)
	}
	if req.Stories <= 0 {
		req.Stories = 1
	}

	base, err := s.costs.GetBuildingCost(ctx, req.BuildingType, req.Stories)
	if err != nil {
		return nil, fmt.Errorf("look up building cost: %w", err)
	}

	est := &domain.CostEstimate{
		ProjectName:    req.ProjectName,
		BuildingType:   base.BuildingType,
		GrossAreaSF:    req.GrossAreaSF,
		BaseCostPerSF:  base.CostPerSF,
		LocationFactor: 1.0,
	}
	est.Assumptions = append(est.Assumptions,
		fmt.Sprintf("base cost $%.2f/SF (%d national average)", base.CostPerSF, base.Year))

	if req.City != "" {
		idx, err := s.costs.GetCityIndex(ctx, req.City, req.State)
		if err != nil {
			est.Assumptions = append(est.Assumptions,
				fmt.Sprintf("no cost index for %s, %s; national average applied", req.City, req.State))
		} else {
			est.LocationFactor = idx.Index
			est.Assumptions = append(est.Assumptions,
				fmt.Sprintf("location factor %.2f (%s, %s)", idx.Index, idx.City, idx.State))
		}
	}

	est.CostPerSF = base.CostPerSF * est.LocationFactor
	est.ExpectedTotal = roundCents(est.CostPerSF * req.GrossAreaSF)
	est.LowTotal = roundCents(est.ExpectedTotal * estimateLowFactor)
	est.HighTotal = roundCents(est.ExpectedTotal * estimateHighFactor)
	return est, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
