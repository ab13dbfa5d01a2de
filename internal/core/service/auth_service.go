package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/openstudy/course-api/internal/core/domain"
	"github.com/openstudy/course-api/internal/core/ports"
	"github.com/openstudy/course-api/internal/pkg/metrics"
)

// AuthOptions tunes registration policy.
type AuthOptions struct {
	// AllowAdminRegistration lets anonymous callers register ADMIN accounts.
	// When false only an ADMIN identity may create another ADMIN.
	AllowAdminRegistration bool
}

// AuthService implements registration and login.
type AuthService struct {
	repo   ports.AuthRepository
	hasher *PasswordHasher
	tokens *TokenManager
	opts   AuthOptions
	logger zerolog.Logger
}

func NewAuthService(repo ports.AuthRepository, hasher *PasswordHasher, tokens *TokenManager, opts AuthOptions, logger zerolog.Logger) *AuthService {
	return &AuthService{repo: repo, hasher: hasher, tokens: tokens, opts: opts, logger: logger}
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	if in.Username == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidInput)
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}
	if role == domain.RoleAdmin && !s.opts.AllowAdminRegistration {
		if err := domain.RequireAdmin(domain.IdentityFromContext(ctx)); err != nil {
			metrics.AuthEventsTotal.WithLabelValues("register", "forbidden").Inc()
			return nil, domain.ErrNotAuthorized
		}
	}

	if _, err := s.repo.FindByUsername(ctx, in.Username); err == nil {
		metrics.AuthEventsTotal.WithLabelValues("register", "conflict").Inc()
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	created, err := s.repo.Create(ctx, &domain.User{
		Username:     in.Username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			metrics.AuthEventsTotal.WithLabelValues("register", "conflict").Inc()
			return nil, err
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	metrics.AuthEventsTotal.WithLabelValues("register", "success").Inc()
	s.logger.Info().Int64("user_id", created.ID).Str("role", created.Role).Msg("user registered")
	return created, nil
}

// Login returns a signed token. Unknown users and wrong passwords are both
// reported as domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.AuthEventsTotal.WithLabelValues("login", "failure").Inc()
			return "", domain.ErrInvalidCredentials
		}
		return "", fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		metrics.AuthEventsTotal.WithLabelValues("login", "failure").Inc()
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return "", fmt.Errorf("login: issue token: %w", err)
	}

	metrics.AuthEventsTotal.WithLabelValues("login", "success").Inc()
	return token, nil
}
