package handler

import (
	"context"
	"net/http"
	"time"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/labstack/echo/v4"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/openstudy/course-api/internal/api/graph"
	"github.com/openstudy/course-api/internal/core/ports"
	"github.com/openstudy/course-api/internal/pkg/metrics"
)

// HeaderIdempotencyKey lets clients retry addCourse safely.
const HeaderIdempotencyKey = "Idempotency-Key"

// Executor runs a GraphQL document. *graphql.Schema satisfies it.
type Executor interface {
	Exec(ctx context.Context, query, operationName string, variables map[string]interface{}) *graphql.Response
}

type GraphQLHandler struct {
	schema Executor
}

func NewGraphQLHandler(schema Executor) *GraphQLHandler {
	return &GraphQLHandler{schema: schema}
}

type graphqlRequest struct {
	Query         string                 `json:"query" validate:"required"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// Serve executes a GraphQL query or mutation.
//
// @Summary      Execute a GraphQL operation
// @Tags         graphql
// @Accept       json
// @Produce      json
// @Param        Authorization    header    string          false  "Token returned by the login mutation"
// @Param        Idempotency-Key  header    string          false  "Replay key for addCourse"
// @Param        body             body      graphqlRequest  true   "GraphQL request"
// @Success      200              {object}  map[string]interface{}
// @Failure      400              {object}  map[string]interface{}
// @Failure      401              {object}  map[string]interface{}
// @Router       /graphql [post]
func (h *GraphQLHandler) Serve(c echo.Context) error {
	var req graphqlRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	ctx = ports.ContextWithIdempotencyKey(ctx, c.Request().Header.Get(HeaderIdempotencyKey))
	ctx = graph.ContextWithRequestID(ctx, c.Response().Header().Get(echo.HeaderXRequestID))

	operation := operationType(req.Query, req.OperationName)

	start := time.Now()
	resp := h.schema.Exec(ctx, req.Query, req.OperationName, req.Variables)
	metrics.GraphQLRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	result := "ok"
	if len(resp.Errors) > 0 {
		result = "error"
	}
	metrics.GraphQLRequestsTotal.WithLabelValues(operation, result).Inc()

	return c.JSON(http.StatusOK, resp)
}

// operationType returns the metrics label for a request: query, mutation,
// subscription, or invalid when the document does not parse or names no
// operation it contains. Client supplied names never become label values.
func operationType(query, operationName string) string {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return "invalid"
	}

	var op *ast.OperationDefinition
	switch {
	case operationName != "":
		op = doc.Operations.ForName(operationName)
	case len(doc.Operations) == 1:
		op = doc.Operations[0]
	}
	if op == nil {
		return "invalid"
	}
	return string(op.Operation)
}
