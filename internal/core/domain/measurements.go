package domain

// Measurements is the assembled measurement record for one analyzed page.
// Entities are created fresh per analysis request and hold no
// cross-request state.
type Measurements struct {
	Scale        ScaleResult    `json:"scale"`
	GrossAreaSF  *float64       `json:"gross_area_sf"`
	WallCount    int            `json:"wall_count"`
	WallSegments []WallSegment  `json:"wall_segments"`
	Boundary     Polygon        `json:"boundary,omitempty"`
	Confidence   Confidence     `json:"confidence"`
	Stats        map[string]any `json:"stats"`
}
