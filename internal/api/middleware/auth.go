package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/openstudy/course-api/internal/core/domain"
	"github.com/openstudy/course-api/internal/core/ports"
	"github.com/openstudy/course-api/internal/pkg/metrics"
)

// Auth decodes the raw Authorization header into a domain.Identity stored
// on the request context. A missing header leaves the request anonymous; an
// invalid token aborts the request with domain.ErrInvalidToken.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get(echo.HeaderAuthorization)
			if token == "" {
				return next(c)
			}

			id, err := verifier.Verify(token)
			if err != nil {
				metrics.InvalidTokensTotal.Inc()
				return fmt.Errorf("auth middleware: %w", err)
			}

			req := c.Request()
			c.SetRequest(req.WithContext(domain.ContextWithIdentity(req.Context(), id)))

			return next(c)
		}
	}
}
