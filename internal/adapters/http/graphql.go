package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/planmetric/planmetric/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to the cost services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	buildingCostType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BuildingCost",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"building_type": &graphql.Field{Type: graphql.String},
			"min_stories":   &graphql.Field{Type: graphql.Int},
			"max_stories":   &graphql.Field{Type: graphql.Int},
			"cost_per_sf":   &graphql.Field{Type: graphql.Float},
			"year":          &graphql.Field{Type: graphql.Int},
			"notes":         &graphql.Field{Type: graphql.String},
		},
	})

	cityIndexType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CityCostIndex",
		Fields: graphql.Fields{
			"city":  &graphql.Field{Type: graphql.String},
			"state": &graphql.Field{Type: graphql.String},
			"index": &graphql.Field{Type: graphql.Float},
			"year":  &graphql.Field{Type: graphql.Int},
		},
	})

	estimateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CostEstimate",
		Fields: graphql.Fields{
			"project_name":     &graphql.Field{Type: graphql.String},
			"building_type":    &graphql.Field{Type: graphql.String},
			"gross_area_sf":    &graphql.Field{Type: graphql.Float},
			"base_cost_per_sf": &graphql.Field{Type: graphql.Float},
			"location_factor":  &graphql.Field{Type: graphql.Float},
			"cost_per_sf":      &graphql.Field{Type: graphql.Float},
			"expected_total":   &graphql.Field{Type: graphql.Float},
			"low_total":        &graphql.Field{Type: graphql.Float},
			"high_total":       &graphql.Field{Type: graphql.Float},
			"assumptions":      &graphql.Field{Type: graphql.NewList(graphql.String)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"buildingCosts": &graphql.Field{
				Type:        graphql.NewList(buildingCostType),
				Description: "List square-foot costs for all building types",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Costs.ListBuildingTypes(p.Context)
				},
			},
			"buildingCost": &graphql.Field{
				Type:        buildingCostType,
				Description: "Get the square-foot cost for a building type and story count",
				Args: graphql.FieldConfigArgument{
					"buildingType": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"stories":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					buildingType := p.Args["buildingType"].(string)
					stories := p.Args["stories"].(int)
					return deps.Costs.GetBuildingCost(p.Context, buildingType, stories)
				},
			},
			"cityIndices": &graphql.Field{
				Type:        graphql.NewList(cityIndexType),
				Description: "List city cost indices, optionally filtered by state",
				Args: graphql.FieldConfigArgument{
					"state": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					state := p.Args["state"].(string)
					return deps.Costs.ListCityIndices(p.Context, state)
				},
			},
			"estimate": &graphql.Field{
				Type:        estimateType,
				Description: "Compute a square-foot conceptual cost estimate",
				Args: graphql.FieldConfigArgument{
					"buildingType": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"grossAreaSF":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"stories":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
					"city":         &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"state":        &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					req := usecases.EstimateRequest{
						BuildingType: p.Args["buildingType"].(string),
						GrossAreaSF:  p.Args["grossAreaSF"].(float64),
						Stories:      p.Args["stories"].(int),
						City:         p.Args["city"].(string),
						State:        p.Args["state"].(string),
					}
					return deps.Estimates.Estimate(p.Context, req)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}

type graphqlRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// GraphQLHandler executes GraphQL queries against the cost schema.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)

	return func(c *fiber.Ctx) error {
		if err != nil {
			return errInternal(c, "schema init: "+err.Error())
		}

		var req graphqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid GraphQL request body")
		}
		if req.Query == "" {
			return errBadRequest(c, "query is required")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			OperationName:  req.OperationName,
			VariableValues: req.Variables,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
