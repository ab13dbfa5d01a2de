package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/openstudy/course-api/internal/api/graph"
)

// errorResponse mirrors the GraphQL response shape so clients parse every
// failure the same way.
type errorResponse struct {
	Errors []errorEntry `json:"errors"`
}

type errorEntry struct {
	Message    string            `json:"message"`
	Extensions map[string]string `json:"extensions"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status and GraphQL code.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders {"errors":[{"message":"...","extensions":{"code":"..."}}]}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, code, msg := resolveError(err, log, c)
		body := errorResponse{Errors: []errorEntry{{
			Message:    msg,
			Extensions: map[string]string{"code": code},
		}}}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, codeForStatus(he.Code), fmt.Sprintf("%v", he.Message)
	}

	code, status := graph.Classify(err)
	if code != graph.CodeInternal {
		return status, code, graph.NewError(err).Message
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, graph.CodeInternal, "internal server error"
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return graph.CodeBadUserInput
	case http.StatusUnauthorized:
		return graph.CodeUnauthenticated
	case http.StatusForbidden:
		return graph.CodeForbidden
	case http.StatusNotFound:
		return graph.CodeNotFound
	}
	if status >= http.StatusInternalServerError {
		return graph.CodeInternal
	}
	return "BAD_REQUEST"
}
