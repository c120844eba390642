package usecases_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/planmetric/planmetric/internal/core/domain"
	"github.com/planmetric/planmetric/internal/core/usecases"
)

// --- Mock CostRepository ---

type mockCostRepo struct {
	getBuildingCostFn func(ctx context.Context, buildingType string, stories int) (*domain.BuildingCost, error)
	getCityIndexFn    func(ctx context.Context, city, state string) (*domain.CityCostIndex, error)
}

func (m *mockCostRepo) GetBuildingCost(ctx context.Context, buildingType string, stories int) (*domain.BuildingCost, error) {
	if m.getBuildingCostFn != nil {
		return m.getBuildingCostFn(ctx, buildingType, stories)
	}
	return nil, errors.New("not found")
}

func (m *mockCostRepo) ListBuildingTypes(ctx context.Context) ([]domain.BuildingCost, error) {
	return nil, nil
}

func (m *mockCostRepo) GetCityIndex(ctx context.Context, city, state string) (*domain.CityCostIndex, error) {
	if m.getCityIndexFn != nil {
		return m.getCityIndexFn(ctx, city, state)
	}
	return nil, errors.New("not found")
}

func (m *mockCostRepo) ListCityIndices(ctx context.Context, state string) ([]domain.CityCostIndex, error) {
	return nil, nil
}

func officeCostRepo() *mockCostRepo {
	return &mockCostRepo{
		getBuildingCostFn: func(ctx context.Context, buildingType string, stories int) (*domain.BuildingCost, error) {
			return &domain.BuildingCost{
				BuildingType: "office",
				CostPerSF:    250,
				Year:         2025,
			}, nil
		},
		getCityIndexFn: func(ctx context.Context, city, state string) (*domain.CityCostIndex, error) {
			if city == "Seattle" {
				return &domain.CityCostIndex{City: "Seattle", State: "WA", Index: 1.12, Year: 2025}, nil
			}
			return nil, errors.New("not found")
		},
	}
}

func TestEstimate_WithCityIndex(t *testing.T) {
	svc := usecases.NewEstimateService(officeCostRepo())

	est, err := svc.Estimate(context.Background(), usecases.EstimateRequest{
		BuildingType: "office",
		GrossAreaSF:  10000,
		City:         "Seattle",
		State:        "WA",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(est.CostPerSF-280) > 0.01 {
		t.Errorf("expected $280/SF, got %g", est.CostPerSF)
	}
	if math.Abs(est.ExpectedTotal-2800000) > 0.01 {
		t.Errorf("expected $2.8M, got %g", est.ExpectedTotal)
	}
	if math.Abs(est.LowTotal-2240000) > 0.01 {
		t.Errorf("expected low $2.24M, got %g", est.LowTotal)
	}
	if math.Abs(est.HighTotal-3500000) > 0.01 {
		t.Errorf("expected high $3.5M, got %g", est.HighTotal)
	}
}

func TestEstimate_UnknownCityFallsBackToNationalAverage(t *testing.T) {
	svc := usecases.NewEstimateService(officeCostRepo())

	est, err := svc.Estimate(context.Background(), usecases.EstimateRequest{
		BuildingType: "office",
		GrossAreaSF:  1000,
		City:         "Nowhere",
		State:        "ZZ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est.LocationFactor != 1.0 {
		t.Errorf("expected national average factor 1.0, got %g", est.LocationFactor)
	}
	found := false
	for _, a := range est.Assumptions {
		if a == "no cost index for Nowhere, ZZ; national average applied" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected fallback assumption, got %v", est.Assumptions)
	}
}

func TestEstimate_Validation(t *testing.T) {
	svc := usecases.NewEstimateService(officeCostRepo())

	if _, err := svc.Estimate(context.Background(), usecases.EstimateRequest{GrossAreaSF: 100}); err == nil {
		t.Error("expected error for missing building type")
	}
	if _, err := svc.Estimate(context.Background(), usecases.EstimateRequest{BuildingType: "office"}); err == nil {
		t.Error("expected error for zero area")
	}
}

func TestEstimate_UnknownBuildingType(t *testing.T) {
	svc := usecases.NewEstimateService(&mockCostRepo{})

	if _, err := svc.Estimate(context.Background(), usecases.EstimateRequest{
		BuildingType: "zeppelin hangar",
		GrossAreaSF:  100,
	}); err == nil {
		t.Error("expected error for unknown building type")
	}
}
