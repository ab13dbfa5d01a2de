package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openstudy/course-api/internal/core/domain"
	"github.com/openstudy/course-api/internal/core/ports"
)

type CourseRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

var _ ports.CourseRepository = (*CourseRepository)(nil)

func NewCourseRepository(db *mongo.Database) *CourseRepository {
	return &CourseRepository{db: db, col: db.Collection(collectionCourses)}
}

type mongoCourse struct {
	ID          int64  `bson:"_id"`
	Title       string `bson:"title"`
	Description string `bson:"description"`
	Duration    string `bson:"duration"`
	Outcome     string `bson:"outcome"`
	OwnerID     int64  `bson:"owner_id,omitempty"`
	CreatedAt   int64  `bson:"created_at"`
	UpdatedAt   int64  `bson:"updated_at"`
}

func toMongoCourse(c *domain.Course) mongoCourse {
	return mongoCourse{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Duration:    c.Duration,
		Outcome:     c.Outcome,
		OwnerID:     c.OwnerID,
		CreatedAt:   c.CreatedAt.Unix(),
		UpdatedAt:   c.UpdatedAt.Unix(),
	}
}

func (mc mongoCourse) toDomain() domain.Course {
	return domain.Course{
		ID:          mc.ID,
		Title:       mc.Title,
		Description: mc.Description,
		Duration:    mc.Duration,
		Outcome:     mc.Outcome,
		OwnerID:     mc.OwnerID,
		CreatedAt:   unixToTime(mc.CreatedAt),
		UpdatedAt:   unixToTime(mc.UpdatedAt),
	}
}

// Create inserts a new course document.
func (r *CourseRepository) Create(ctx context.Context, c *domain.Course) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := nextID(ctx, r.db, collectionCourses)
	if err != nil {
		return err
	}
	c.ID = id

	if _, err := r.col.InsertOne(ctx, toMongoCourse(c)); err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*domain.Course, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mc mongoCourse
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&mc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCourseNotFound
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	c := mc.toDomain()
	return &c, nil
}

func (r *CourseRepository) Update(ctx context.Context, c *domain.Course) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": c.ID}, bson.M{"$set": bson.M{
		"title":       c.Title,
		"description": c.Description,
		"duration":    c.Duration,
		"outcome":     c.Outcome,
		"updated_at":  c.UpdatedAt.Unix(),
	}})
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrCourseNotFound
	}
	return nil
}

func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrCourseNotFound
	}

	// keep collections free of dangling references
	if _, err := r.db.Collection(collectionCollections).UpdateMany(ctx,
		bson.M{"course_ids": id},
		bson.M{"$pull": bson.M{"course_ids": id}},
	); err != nil {
		return fmt.Errorf("unlink course from collections: %w", err)
	}
	return nil
}

func (r *CourseRepository) List(ctx context.Context, filter ports.ListCoursesFilter) ([]domain.Course, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(listSort(filter.SortOrder))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return decodeCourses(ctx, cur)
}

func listSort(order domain.SortOrder) bson.D {
	direction := -1
	if order == domain.SortAsc {
		direction = 1
	}
	return bson.D{{Key: "title", Value: direction}, {Key: "_id", Value: 1}}
}

func decodeCourses(ctx context.Context, cur *mongo.Cursor) ([]domain.Course, error) {
	var docs []mongoCourse
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode courses: %w", err)
	}

	out := make([]domain.Course, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
