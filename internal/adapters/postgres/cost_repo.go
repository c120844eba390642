package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/planmetric/planmetric/internal/core/domain"
)

// CostRepo implements ports.CostRepository over the square-foot cost
// tables.
type CostRepo struct {
	db *DB
}

func NewCostRepo(db *DB) *CostRepo {
	return &CostRepo{db: db}
}

// GetBuildingCost returns the cost row matching the building type and
// story count. Rows are banded by stories; the most recent year wins.
func (r *CostRepo) GetBuildingCost(ctx context.Context, buildingType string, stories int) (*domain.BuildingCost, error) {
	c := &domain.BuildingCost{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, building_type, min_stories, max_stories, cost_per_sf, year, COALESCE(notes, ''), created_at
		FROM building_costs
		WHERE building_type = $1 AND min_stories <= $2 AND max_stories >= $2
		ORDER BY year DESC
		LIMIT 1
	`, buildingType, stories).Scan(
		&c.ID, &c.BuildingType, &c.MinStories, &c.MaxStories,
		&c.CostPerSF, &c.Year, &c.Notes, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("no cost data for building type %q at %d stories", buildingType, stories)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CostRepo) ListBuildingTypes(ctx context.Context) ([]domain.BuildingCost, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT DISTINCT ON (building_type, min_stories)
			id, building_type, min_stories, max_stories, cost_per_sf, year, COALESCE(notes, ''), created_at
		FROM building_costs
		ORDER BY building_type, min_stories, year DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var costs []domain.BuildingCost
	for rows.Next() {
		var c domain.BuildingCost
		if err := rows.Scan(&c.ID, &c.BuildingType, &c.MinStories, &c.MaxStories,
			&c.CostPerSF, &c.Year, &c.Notes, &c.CreatedAt); err != nil {
			return nil, err
		}
		costs = append(costs, c)
	}
	return costs, rows.Err()
}

func (r *CostRepo) GetCityIndex(ctx context.Context, city, state string) (*domain.CityCostIndex, error) {
	idx := &domain.CityCostIndex{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT city, state, index, year
		FROM city_cost_index
		WHERE LOWER(city) = LOWER($1) AND ($2 = '' OR UPPER(state) = UPPER($2))
		ORDER BY year DESC
		LIMIT 1
	`, city, state).Scan(&idx.City, &idx.State, &idx.Index, &idx.Year)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("no cost index for %s, %s", city, state)
	}
	if err != nil {
		return nil, err
	}
	return idx, nil
}

func (r *CostRepo) ListCityIndices(ctx context.Context, state string) ([]domain.CityCostIndex, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT city, state, index, year
		FROM city_cost_index
		WHERE $1 = '' OR UPPER(state) = UPPER($1)
		ORDER BY state, city
	`, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indices []domain.CityCostIndex
	for rows.Next() {
		var idx domain.CityCostIndex
		if err := rows.Scan(&idx.City, &idx.State, &idx.Index, &idx.Year); err != nil {
			return nil, err
		}
		indices = append(indices, idx)
	}
	return indices, rows.Err()
}
