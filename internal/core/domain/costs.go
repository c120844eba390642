package domain

import "time"

// BuildingCost is a square-foot cost data point for a building type.
type BuildingCost struct {
	ID           string    `json:"id"`
	BuildingType string    `json:"building_type"`
	MinStories   int       `json:"min_stories"`
	MaxStories   int       `json:"max_stories"`
	CostPerSF    float64   `json:"cost_per_sf"`
	Year         int       `json:"year"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// CityCostIndex regionalizes national base costs. 1.0 is the national
// average.
type CityCostIndex struct {
	City  string  `json:"city"`
	State string  `json:"state"`
	Index float64 `json:"index"`
	Year  int     `json:"year"`
}

// CostEstimate is a square-foot conceptual estimate derived from a gross
// floor area. Low/High bracket the expected value at ROM accuracy
// (-20% / +25%).
type CostEstimate struct {
	ProjectName    string   `json:"project_name,omitempty"`
	BuildingType   string   `json:"building_type"`
	GrossAreaSF    float64  `json:"gross_area_sf"`
	BaseCostPerSF  float64  `json:"base_cost_per_sf"`
	LocationFactor float64  `json:"location_factor"`
	CostPerSF      float64  `json:"cost_per_sf"`
	ExpectedTotal  float64  `json:"expected_total"`
	LowTotal       float64  `json:"low_total"`
	HighTotal      float64  `json:"high_total"`
	Assumptions    []string `json:"assumptions,omitempty"`
}
