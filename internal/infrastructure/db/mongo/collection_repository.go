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

// CollectionRepository reads collection documents that reference courses by
// id, in display order.
type CollectionRepository struct {
	col     *mongo.Collection
	courses *mongo.Collection
}

var _ ports.CollectionRepository = (*CollectionRepository)(nil)

func NewCollectionRepository(db *mongo.Database) *CollectionRepository {
	return &CollectionRepository{
		col:     db.Collection(collectionCollections),
		courses: db.Collection(collectionCourses),
	}
}

type mongoCollection struct {
	ID        int64   `bson:"_id"`
	Name      string  `bson:"name"`
	CourseIDs []int64 `bson:"course_ids"`
}

func (r *CollectionRepository) List(ctx context.Context) ([]domain.Collection, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	var docs []mongoCollection
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode collections: %w", err)
	}

	var ids []int64
	for _, d := range docs {
		ids = append(ids, d.CourseIDs...)
	}
	byID, err := r.coursesByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Collection, 0, len(docs))
	for _, d := range docs {
		out = append(out, assemble(d, byID))
	}
	return out, nil
}

func (r *CollectionRepository) FindByID(ctx context.Context, id int64) (*domain.Collection, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoCollection
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCollectionNotFound
		}
		return nil, fmt.Errorf("find collection: %w", err)
	}

	byID, err := r.coursesByID(ctx, doc.CourseIDs)
	if err != nil {
		return nil, err
	}
	c := assemble(doc, byID)
	return &c, nil
}

func (r *CollectionRepository) coursesByID(ctx context.Context, ids []int64) (map[int64]domain.Course, error) {
	byID := make(map[int64]domain.Course, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	cur, err := r.courses.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find collection courses: %w", err)
	}
	courses, err := decodeCourses(ctx, cur)
	if err != nil {
		return nil, err
	}
	for _, c := range courses {
		byID[c.ID] = c
	}
	return byID, nil
}

// assemble keeps the order of doc.CourseIDs and skips ids whose course no
// longer exists.
func assemble(doc mongoCollection, byID map[int64]domain.Course) domain.Collection {
	courses := make([]domain.Course, 0, len(doc.CourseIDs))
	for _, id := range doc.CourseIDs {
		if c, ok := byID[id]; ok {
			courses = append(courses, c)
		}
	}
	return domain.Collection{ID: doc.ID, Name: doc.Name, Courses: courses}
}
