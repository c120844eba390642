package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/planmetric/planmetric/internal/core/domain"
	"github.com/planmetric/planmetric/internal/core/usecases"
	"github.com/planmetric/planmetric/internal/pkg/metrics"
)

// maxStrokesPerPage caps geometry payloads; dense hatching on large
// sheets can reach tens of thousands of strokes.
const maxStrokesPerPage = 200000

// parsePage decodes and validates the page payload. On failure the
// error response has already been written; callers must return the
// error without writing anything else.
func parsePage(c *fiber.Ctx) (*domain.Page, error) {
	var page domain.Page
	if err := c.BodyParser(&page); err != nil {
		return nil, errBadRequest(c, "invalid page payload: "+err.Error())
	}
	if page.WidthPts <= 0 || page.HeightPts <= 0 {
		return nil, errUnprocessable(c, "width_pts and height_pts must be positive")
	}
	if len(page.Strokes) > maxStrokesPerPage {
		return nil, errUnprocessable(c, "too many strokes")
	}
	return &page, nil
}

// AnalyzeHandler measures one drawing page: scale detection, wall
// extraction, and gross area.
func AnalyzeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := parsePage(c)
		if page == nil {
			return err
		}

		start := time.Now()
		m, err := deps.Analyses.Analyze(c.Context(), page)
		if err != nil {
			return errInternal(c, err.Error())
		}
		metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
		metrics.AnalysesCompleted.WithLabelValues(string(m.Confidence)).Inc()
		metrics.ScaleDetections.WithLabelValues(string(m.Scale.VerificationSource)).Inc()
		if invoked, _ := m.Stats["verifier_invoked"].(bool); invoked {
			metrics.VerifierCalls.WithLabelValues(string(m.Scale.VerificationSource)).Inc()
			if retries, _ := m.Stats["verifier_retries"].(int); retries > 0 {
				metrics.VerifierRetries.Add(float64(retries))
			}
		}

		if deps.Publisher != nil {
			if err := deps.Publisher.PublishAnalysisCompleted(c.Context(), m); err != nil {
				LoggerFromCtx(c.UserContext()).Warn("publish analysis event", "error", err)
			}
		}

		return c.JSON(m)
	}
}

// OverlayHandler analyzes a page and returns a PNG rendering of the
// detected walls and boundary for visual inspection.
func OverlayHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := parsePage(c)
		if page == nil {
			return err
		}

		m, err := deps.Analyses.Analyze(c.Context(), page)
		if err != nil {
			return errInternal(c, err.Error())
		}

		img, err := deps.Overlay.Render(m, page.WidthPts, page.HeightPts)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Content-Type", "image/png")
		return c.Send(img)
	}
}

// CreateEstimateHandler computes a square-foot conceptual estimate.
func CreateEstimateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req usecases.EstimateRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid estimate payload: "+err.Error())
		}

		est, err := deps.Estimates.Estimate(c.Context(), req)
		if err != nil {
			return errUnprocessable(c, err.Error())
		}
		metrics.EstimatesCreated.WithLabelValues(est.BuildingType).Inc()

		if deps.Publisher != nil {
			if err := deps.Publisher.PublishEstimateCreated(c.Context(), est); err != nil {
				LoggerFromCtx(c.UserContext()).Warn("publish estimate event", "error", err)
			}
		}

		return c.Status(201).JSON(est)
	}
}

// ListBuildingCostsHandler returns the square-foot cost table.
func ListBuildingCostsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		costs, err := deps.Costs.ListBuildingTypes(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 100
		}

		total := len(costs)
		if offset >= total {
			costs = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			costs = costs[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: costs, Pagination: pg})
	}
}

// GetBuildingCostHandler returns the cost row for one building type.
func GetBuildingCostHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		buildingType := c.Params("type")
		stories := c.QueryInt("stories", 1)
		if stories <= 0 {
			return errBadRequest(c, "stories must be positive")
		}

		cost, err := deps.Costs.GetBuildingCost(c.Context(), buildingType, stories)
		if err != nil {
			return errNotFound(c, err.Error())
		}
		return c.JSON(cost)
	}
}

// ListCityIndicesHandler returns city cost indices, optionally filtered
// by state.
func ListCityIndicesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state := c.Query("state")
		indices, err := deps.Costs.ListCityIndices(c.Context(), state)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(indices)
	}
}
