package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/openstudy/course-api/internal/core/domain"
	"github.com/openstudy/course-api/internal/core/ports"
	"github.com/openstudy/course-api/internal/pkg/metrics"
)

type CourseService struct {
	repo        ports.CourseRepository
	idempotency ports.IdempotencyStore
	events      ports.CourseEventSink
	validate    ports.Validator
	logger      zerolog.Logger
}

func NewCourseService(
	repo ports.CourseRepository,
	idempotency ports.IdempotencyStore,
	events ports.CourseEventSink,
	validate ports.Validator,
	logger zerolog.Logger,
) *CourseService {
	if idempotency == nil {
		idempotency = ports.NopIdempotencyStore{}
	}
	return &CourseService{
		repo:        repo,
		idempotency: idempotency,
		events:      events,
		validate:    validate,
		logger:      logger,
	}
}

func (s *CourseService) ListCourses(ctx context.Context, in ports.ListCoursesInput) ([]domain.Course, error) {
	filter := ports.ListCoursesFilter{SortOrder: in.SortOrder}
	if in.Limit != nil {
		if *in.Limit < 0 {
			return nil, fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidInput)
		}
		if *in.Limit == 0 {
			return []domain.Course{}, nil
		}
		filter.Limit = *in.Limit
	}

	courses, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// GetCourse returns domain.ErrCourseNotFound for unknown ids.
func (s *CourseService) GetCourse(ctx context.Context, id int64) (*domain.Course, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return c, nil
}

// AddCourse creates a course owned by the calling ADMIN. When the request
// carries an idempotency key that was already used by the same caller, the
// previously created course is returned without side effects. A retry that
// arrives while the first create is still running fails with
// domain.ErrRequestInProgress.
func (s *CourseService) AddCourse(ctx context.Context, in ports.CourseInput) (*domain.Course, error) {
	id := domain.IdentityFromContext(ctx)
	if err := domain.RequireAdmin(id); err != nil {
		return nil, err
	}

	scope := strconv.FormatInt(id.UserID, 10)
	key := ports.IdempotencyKeyFromContext(ctx)
	if key != "" {
		existing, err := s.reserve(ctx, scope, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	now := time.Now().UTC()
	course := &domain.Course{OwnerID: id.UserID, CreatedAt: now, UpdatedAt: now}
	course.Apply(in.Fields())

	if err := s.repo.Create(ctx, course); err != nil {
		s.logger.Error().Err(err).Msg("failed to create course")
		if key != "" {
			if rerr := s.idempotency.Release(ctx, scope, key); rerr != nil {
				s.logger.Warn().Err(rerr).Str("idempotency_key", key).Msg("failed to release idempotency key")
			}
		}
		return nil, fmt.Errorf("add course: %w", err)
	}

	if key != "" {
		if err := s.idempotency.Complete(ctx, scope, key, course.ID); err != nil {
			s.logger.Warn().Err(err).Str("idempotency_key", key).Msg("failed to store idempotency key")
		}
	}

	metrics.CourseMutationsTotal.WithLabelValues("create").Inc()
	s.emit(ports.CourseCreated, course.ID, id.UserID, course)
	s.logger.Info().Int64("course_id", course.ID).Int64("owner_id", course.OwnerID).Msg("course created")
	return course, nil
}

// reserve claims key for this create. It returns the course of an earlier
// create under the same key, or nil when the caller should create. An
// unavailable store degrades to creating without replay protection; a
// course deleted since its create is created again.
func (s *CourseService) reserve(ctx context.Context, scope, key string) (*domain.Course, error) {
	courseID, err := s.idempotency.Reserve(ctx, scope, key)
	if err != nil {
		if errors.Is(err, domain.ErrRequestInProgress) {
			return nil, fmt.Errorf("add course: %w", err)
		}
		s.logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency reserve failed, creating anyway")
		return nil, nil
	}
	if courseID == 0 {
		return nil, nil
	}

	existing, err := s.repo.FindByID(ctx, courseID)
	if err != nil {
		return nil, nil
	}
	metrics.IdempotentReplaysTotal.Inc()
	s.logger.Info().Str("idempotency_key", key).Int64("course_id", courseID).Msg("idempotent replay")
	return existing, nil
}

// UpdateCourse replaces the fields of a course. The input is validated only
// after the caller is known to be allowed to edit an existing course.
func (s *CourseService) UpdateCourse(ctx context.Context, courseID int64, in ports.CourseInput) (*domain.Course, error) {
	id, course, err := s.authorizeOwner(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if s.validate != nil {
		if err := s.validate.Validate(&in); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	}

	course.Apply(in.Fields())
	course.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, course); err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update course: %w", err)
	}

	metrics.CourseMutationsTotal.WithLabelValues("update").Inc()
	s.emit(ports.CourseUpdated, course.ID, id.UserID, course)
	s.logger.Info().Int64("course_id", course.ID).Int64("actor_id", id.UserID).Msg("course updated")
	return course, nil
}

func (s *CourseService) DeleteCourse(ctx context.Context, courseID int64) error {
	id, _, err := s.authorizeOwner(ctx, courseID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, courseID); err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			return err
		}
		return fmt.Errorf("delete course: %w", err)
	}

	metrics.CourseMutationsTotal.WithLabelValues("delete").Inc()
	s.emit(ports.CourseDeleted, courseID, id.UserID, nil)
	s.logger.Info().Int64("course_id", courseID).Int64("actor_id", id.UserID).Msg("course deleted")
	return nil
}

// authorizeOwner checks, in order, that the caller is authenticated, that the
// course exists and that the caller is an ADMIN or the course owner.
func (s *CourseService) authorizeOwner(ctx context.Context, courseID int64) (*domain.Identity, *domain.Course, error) {
	id := domain.IdentityFromContext(ctx)
	if id == nil {
		return nil, nil, domain.ErrNotAuthenticated
	}

	course, err := s.GetCourse(ctx, courseID)
	if err != nil {
		return nil, nil, err
	}

	if err := domain.AuthorizeOwner(id, course.OwnerID); err != nil {
		return nil, nil, err
	}
	return id, course, nil
}

func (s *CourseService) emit(typ ports.CourseEventType, courseID, actorID int64, course *domain.Course) {
	if s.events == nil {
		return
	}
	var snapshot *domain.Course
	if course != nil {
		c := *course
		snapshot = &c
	}
	s.events.Enqueue(ports.NewCourseEvent(typ, courseID, actorID, snapshot))
}
