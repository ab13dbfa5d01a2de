package graph

import (
	graphql "github.com/graph-gophers/graphql-go"

	"github.com/openstudy/course-api/internal/core/domain"
)

type courseResolver struct {
	c domain.Course
}

func newCourseResolvers(courses []domain.Course) []*courseResolver {
	out := make([]*courseResolver, 0, len(courses))
	for _, c := range courses {
		out = append(out, &courseResolver{c: c})
	}
	return out
}

func (r *courseResolver) ID() graphql.ID      { return formatID(r.c.ID) }
func (r *courseResolver) Title() string       { return r.c.Title }
func (r *courseResolver) Description() string { return r.c.Description }
func (r *courseResolver) Duration() string    { return r.c.Duration }
func (r *courseResolver) Outcome() string     { return r.c.Outcome }

type collectionResolver struct {
	c domain.Collection
}

func (r *collectionResolver) ID() graphql.ID             { return formatID(r.c.ID) }
func (r *collectionResolver) Name() string               { return r.c.Name }
func (r *collectionResolver) Courses() []*courseResolver { return newCourseResolvers(r.c.Courses) }

// userResolver never exposes the password hash.
type userResolver struct {
	u domain.User
}

func (r *userResolver) ID() graphql.ID   { return formatID(r.u.ID) }
func (r *userResolver) Username() string { return r.u.Username }
func (r *userResolver) Role() string     { return r.u.Role }
