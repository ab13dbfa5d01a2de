package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/openstudy/course-api/internal/core/domain"
	"github.com/openstudy/course-api/internal/core/ports"
)

// courseColumns maps a NULL owner to zero, the domain value for "no owner".
const courseColumns = `id, title, description, duration, outcome, COALESCE(owner_id, 0) AS owner_id, created_at, updated_at`

type CourseRepository struct {
	db *sqlx.DB
}

var _ ports.CourseRepository = (*CourseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) Create(ctx context.Context, c *domain.Course) error {
	const q = `INSERT INTO courses (title, description, duration, outcome, owner_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, NULLIF($5, 0), $6, $7) RETURNING id`

	err := r.db.QueryRowxContext(ctx, q,
		c.Title, c.Description, c.Duration, c.Outcome, c.OwnerID, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*domain.Course, error) {
	var c domain.Course
	if err := r.db.GetContext(ctx, &c, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCourseNotFound
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &c, nil
}

func (r *CourseRepository) Update(ctx context.Context, c *domain.Course) error {
	const q = `UPDATE courses SET title = $1, description = $2, duration = $3, outcome = $4, updated_at = $5 WHERE id = $6`

	res, err := r.db.ExecContext(ctx, q, c.Title, c.Description, c.Duration, c.Outcome, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return requireAffected(res, domain.ErrCourseNotFound)
}

func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return requireAffected(res, domain.ErrCourseNotFound)
}

func (r *CourseRepository) List(ctx context.Context, filter ports.ListCoursesFilter) ([]domain.Course, error) {
	direction := "DESC"
	if filter.SortOrder == domain.SortAsc {
		direction = "ASC"
	}

	q := `SELECT ` + courseColumns + ` FROM courses ORDER BY title ` + direction + `, id ASC`
	args := []interface{}{}
	if filter.Limit > 0 {
		q += ` LIMIT $1`
		args = append(args, filter.Limit)
	}

	courses := []domain.Course{}
	if err := r.db.SelectContext(ctx, &courses, q, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
