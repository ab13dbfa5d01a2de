package ports

import (
	"context"

	"github.com/openstudy/course-api/internal/core/domain"
)

// CourseInput is the validated payload of addCourse and updateCourse.
type CourseInput struct {
	Title       string `validate:"required,notblank,max=200"`
	Description string `validate:"required,notblank"`
	Duration    string `validate:"required,notblank,max=100"`
	Outcome     string `validate:"required,notblank"`
}

// Fields converts the input to the domain representation.
func (in CourseInput) Fields() domain.CourseFields {
	return domain.CourseFields{
		Title:       in.Title,
		Description: in.Description,
		Duration:    in.Duration,
		Outcome:     in.Outcome,
	}
}

// Validator checks tagged input structs such as CourseInput.
type Validator interface {
	Validate(i any) error
}

// ListCoursesInput carries the arguments of the courses query.
type ListCoursesInput struct {
	Limit     *int
	SortOrder domain.SortOrder
}

// CourseService defines use-case operations for courses. Mutations read the
// caller identity from ctx.
type CourseService interface {
	ListCourses(ctx context.Context, input ListCoursesInput) ([]domain.Course, error)
	GetCourse(ctx context.Context, id int64) (*domain.Course, error)
	AddCourse(ctx context.Context, input CourseInput) (*domain.Course, error)
	UpdateCourse(ctx context.Context, id int64, input CourseInput) (*domain.Course, error)
	DeleteCourse(ctx context.Context, id int64) error
}

// CollectionService defines read operations for collections.
type CollectionService interface {
	ListCollections(ctx context.Context) ([]domain.Collection, error)
	GetCollection(ctx context.Context, id int64) (*domain.Collection, error)
}
