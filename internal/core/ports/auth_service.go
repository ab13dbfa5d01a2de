package ports

import (
	"context"

	"github.com/openstudy/course-api/internal/core/domain"
)

// RegisterInput carries the arguments of the register mutation. An empty
// Role registers a regular user.
type RegisterInput struct {
	Username string `validate:"required,min=3,max=64"`
	Password string `validate:"required,min=6,max=72"`
	Role     string `validate:"omitempty,oneof=ADMIN USER"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, error)
}

// TokenVerifier decodes a token into the identity it was issued for.
type TokenVerifier interface {
	Verify(token string) (*domain.Identity, error)
}
