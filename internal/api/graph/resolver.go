package graph

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/rs/zerolog"

	"github.com/openstudy/course-api/internal/core/domain"
	"github.com/openstudy/course-api/internal/core/ports"
)

// Validator checks tagged argument structs before they reach the services.
type Validator interface {
	Validate(i any) error
}

// Resolver is the root resolver for both Query and Mutation.
type Resolver struct {
	courses     ports.CourseService
	collections ports.CollectionService
	auth        ports.AuthService
	validate    Validator
	logger      zerolog.Logger
}

func NewResolver(
	courses ports.CourseService,
	collections ports.CollectionService,
	auth ports.AuthService,
	validate Validator,
	logger zerolog.Logger,
) *Resolver {
	return &Resolver{
		courses:     courses,
		collections: collections,
		auth:        auth,
		validate:    validate,
		logger:      logger,
	}
}

// fail converts err for the GraphQL response and logs anything unexpected.
func (r *Resolver) fail(ctx context.Context, op string, err error) error {
	gqlErr := NewError(err)
	if gqlErr.Code == CodeInternal {
		r.logger.Error().Err(err).Str("operation", op).Str("request_id", requestID(ctx)).Msg("resolver failed")
	}
	return gqlErr
}

func (r *Resolver) invalid(err error) error {
	return NewError(fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
}

// parseID returns false for ids that are not decimal integers.
func parseID(id graphql.ID) (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func formatID(id int64) graphql.ID {
	return graphql.ID(strconv.FormatInt(id, 10))
}

// --- Queries ---

func (r *Resolver) Courses(ctx context.Context, args struct {
	Limit     *int32
	SortOrder *string
}) ([]*courseResolver, error) {
	in := ports.ListCoursesInput{SortOrder: domain.ParseSortOrder(args.SortOrder)}
	if args.Limit != nil {
		limit := int(*args.Limit)
		in.Limit = &limit
	}

	courses, err := r.courses.ListCourses(ctx, in)
	if err != nil {
		return nil, r.fail(ctx, "courses", err)
	}
	return newCourseResolvers(courses), nil
}

func (r *Resolver) Course(ctx context.Context, args struct{ ID graphql.ID }) (*courseResolver, error) {
	id, ok := parseID(args.ID)
	if !ok {
		return nil, nil
	}

	c, err := r.courses.GetCourse(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			return nil, nil
		}
		return nil, r.fail(ctx, "course", err)
	}
	return &courseResolver{c: *c}, nil
}

func (r *Resolver) Collections(ctx context.Context) ([]*collectionResolver, error) {
	collections, err := r.collections.ListCollections(ctx)
	if err != nil {
		return nil, r.fail(ctx, "collections", err)
	}

	out := make([]*collectionResolver, 0, len(collections))
	for _, c := range collections {
		out = append(out, &collectionResolver{c: c})
	}
	return out, nil
}

func (r *Resolver) Collection(ctx context.Context, args struct{ ID graphql.ID }) (*collectionResolver, error) {
	id, ok := parseID(args.ID)
	if !ok {
		return nil, nil
	}

	c, err := r.collections.GetCollection(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrCollectionNotFound) {
			return nil, nil
		}
		return nil, r.fail(ctx, "collection", err)
	}
	return &collectionResolver{c: *c}, nil
}

// --- Mutations ---

type courseInput struct {
	Title       string
	Description string
	Duration    string
	Outcome     string
}

func (in courseInput) toPort() ports.CourseInput {
	return ports.CourseInput{
		Title:       in.Title,
		Description: in.Description,
		Duration:    in.Duration,
		Outcome:     in.Outcome,
	}
}

func (r *Resolver) AddCourse(ctx context.Context, args struct{ Input courseInput }) (*courseResolver, error) {
	// authorization precedes validation
	if err := domain.RequireAdmin(domain.IdentityFromContext(ctx)); err != nil {
		return nil, r.fail(ctx, "addCourse", err)
	}

	in := args.Input.toPort()
	if err := r.validate.Validate(&in); err != nil {
		return nil, r.invalid(err)
	}

	c, err := r.courses.AddCourse(ctx, in)
	if err != nil {
		return nil, r.fail(ctx, "addCourse", err)
	}
	return &courseResolver{c: *c}, nil
}

func (r *Resolver) UpdateCourse(ctx context.Context, args struct {
	ID    graphql.ID
	Input courseInput
}) (*courseResolver, error) {
	if domain.IdentityFromContext(ctx) == nil {
		return nil, r.fail(ctx, "updateCourse", domain.ErrNotAuthenticated)
	}
	id, ok := parseID(args.ID)
	if !ok {
		return nil, r.fail(ctx, "updateCourse", domain.ErrCourseNotFound)
	}

	// validated by the service once the course and the caller's rights are known
	c, err := r.courses.UpdateCourse(ctx, id, args.Input.toPort())
	if err != nil {
		return nil, r.fail(ctx, "updateCourse", err)
	}
	return &courseResolver{c: *c}, nil
}

func (r *Resolver) DeleteCourse(ctx context.Context, args struct{ ID graphql.ID }) (*bool, error) {
	if domain.IdentityFromContext(ctx) == nil {
		return nil, r.fail(ctx, "deleteCourse", domain.ErrNotAuthenticated)
	}
	id, ok := parseID(args.ID)
	if !ok {
		return nil, r.fail(ctx, "deleteCourse", domain.ErrCourseNotFound)
	}

	if err := r.courses.DeleteCourse(ctx, id); err != nil {
		return nil, r.fail(ctx, "deleteCourse", err)
	}
	deleted := true
	return &deleted, nil
}

func (r *Resolver) Register(ctx context.Context, args struct {
	Username string
	Password string
	Role     *string
}) (*userResolver, error) {
	in := ports.RegisterInput{Username: args.Username, Password: args.Password}
	if args.Role != nil {
		in.Role = *args.Role
	}
	if err := r.validate.Validate(&in); err != nil {
		return nil, r.invalid(err)
	}

	u, err := r.auth.Register(ctx, in)
	if err != nil {
		return nil, r.fail(ctx, "register", err)
	}
	return &userResolver{u: *u}, nil
}

func (r *Resolver) Login(ctx context.Context, args struct {
	Username string
	Password string
}) (*string, error) {
	token, err := r.auth.Login(ctx, args.Username, args.Password)
	if err != nil {
		return nil, r.fail(ctx, "login", err)
	}
	return &token, nil
}

type requestIDKey struct{}

// ContextWithRequestID attaches the HTTP request id so resolver logs can be
// correlated with access logs.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
