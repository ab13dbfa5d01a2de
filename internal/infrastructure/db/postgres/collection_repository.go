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

const collectionCoursesQuery = `SELECT cc.collection_id,
       c.id, c.title, c.description, c.duration, c.outcome, COALESCE(c.owner_id, 0) AS owner_id, c.created_at, c.updated_at
FROM collection_courses cc
JOIN courses c ON c.id = cc.course_id`

type collectionRow struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type collectionCourseRow struct {
	CollectionID int64 `db:"collection_id"`
	domain.Course
}

type CollectionRepository struct {
	db *sqlx.DB
}

var _ ports.CollectionRepository = (*CollectionRepository)(nil)

func NewCollectionRepository(db *sqlx.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// List returns every collection with its courses attached, using two
// queries regardless of the number of collections.
func (r *CollectionRepository) List(ctx context.Context) ([]domain.Collection, error) {
	var rows []collectionRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, name FROM collections ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	var links []collectionCourseRow
	if err := r.db.SelectContext(ctx, &links, collectionCoursesQuery+` ORDER BY cc.collection_id, cc.position, c.id`); err != nil {
		return nil, fmt.Errorf("list collection courses: %w", err)
	}

	byCollection := make(map[int64][]domain.Course, len(rows))
	for _, l := range links {
		byCollection[l.CollectionID] = append(byCollection[l.CollectionID], l.Course)
	}

	out := make([]domain.Collection, 0, len(rows))
	for _, row := range rows {
		courses := byCollection[row.ID]
		if courses == nil {
			courses = []domain.Course{}
		}
		out = append(out, domain.Collection{ID: row.ID, Name: row.Name, Courses: courses})
	}
	return out, nil
}

func (r *CollectionRepository) FindByID(ctx context.Context, id int64) (*domain.Collection, error) {
	var row collectionRow
	if err := r.db.GetContext(ctx, &row, `SELECT id, name FROM collections WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCollectionNotFound
		}
		return nil, fmt.Errorf("find collection: %w", err)
	}

	var links []collectionCourseRow
	if err := r.db.SelectContext(ctx, &links, collectionCoursesQuery+` WHERE cc.collection_id = $1 ORDER BY cc.position, c.id`, id); err != nil {
		return nil, fmt.Errorf("find collection courses: %w", err)
	}

	courses := make([]domain.Course, 0, len(links))
	for _, l := range links {
		courses = append(courses, l.Course)
	}
	return &domain.Collection{ID: row.ID, Name: row.Name, Courses: courses}, nil
}
