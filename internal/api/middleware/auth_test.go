package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openstudy/course-api/internal/core/domain"
	"github.com/openstudy/course-api/internal/core/service"
)

func newTokens(t *testing.T) *service.TokenManager {
	t.Helper()
	m, err := service.NewTokenManager("secret", "course-api", time.Hour)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	return m
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	tokens := newTokens(t)
	signed, err := tokens.Issue(7, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	req.Header.Set("Authorization", signed)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Auth(tokens)(func(c echo.Context) error {
		called = true
		id := domain.IdentityFromContext(c.Request().Context())
		if id == nil || id.UserID != 7 || id.Role != domain.RoleAdmin {
			t.Fatalf("identity not set: %+v", id)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_MissingHeaderIsAnonymous(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Auth(newTokens(t))(func(c echo.Context) error {
		called = true
		if id := domain.IdentityFromContext(c.Request().Context()); id != nil {
			t.Fatalf("expected anonymous request, got %+v", id)
		}
		return nil
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
}

func TestAuthMiddleware_BearerPrefixIsNotStripped(t *testing.T) {
	tokens := newTokens(t)
	signed, _ := tokens.Issue(7, domain.RoleUser)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	c := e.NewContext(req, httptest.NewRecorder())

	handler := Auth(tokens)(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if err := handler(c); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	req.Header.Set("Authorization", "not-a-token")
	c := e.NewContext(req, httptest.NewRecorder())

	handler := Auth(newTokens(t))(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if err := handler(c); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
