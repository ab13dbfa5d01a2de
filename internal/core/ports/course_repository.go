package ports

import (
	"context"

	"github.com/openstudy/course-api/internal/core/domain"
)

// ListCoursesFilter carries the query parameters of a course listing.
type ListCoursesFilter struct {
	Limit     int              // 0 = unbounded
	SortOrder domain.SortOrder // ordering applied to title
}

// CourseRepository defines persistence operations for courses.
type CourseRepository interface {
	// Create assigns c.ID and persists the course.
	Create(ctx context.Context, c *domain.Course) error
	// FindByID returns domain.ErrCourseNotFound when no course matches.
	FindByID(ctx context.Context, id int64) (*domain.Course, error)
	// Update overwrites the editable fields of the stored course with c.
	Update(ctx context.Context, c *domain.Course) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListCoursesFilter) ([]domain.Course, error)
}

// CollectionRepository returns collections with their courses attached.
type CollectionRepository interface {
	List(ctx context.Context) ([]domain.Collection, error)
	// FindByID returns domain.ErrCollectionNotFound when no collection matches.
	FindByID(ctx context.Context, id int64) (*domain.Collection, error)
}
