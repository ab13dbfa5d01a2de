// Package memory keeps users, courses and collections in process memory. It
// backs STORAGE_DRIVER=memory and the end-to-end tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/openstudy/course-api/internal/core/domain"
	"github.com/openstudy/course-api/internal/core/ports"
)

// Store is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	users       map[string]domain.User
	courses     map[int64]domain.Course
	collections map[int64]collection
	nextUser    int64
	nextCourse  int64
}

type collection struct {
	name      string
	courseIDs []int64
}

func NewStore() *Store {
	return &Store{
		users:       make(map[string]domain.User),
		courses:     make(map[int64]domain.Course),
		collections: make(map[int64]collection),
	}
}

// AddCollection registers a collection referencing courseIDs in order.
func (s *Store) AddCollection(id int64, name string, courseIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[id] = collection{name: name, courseIDs: append([]int64(nil), courseIDs...)}
}

func (s *Store) Users() ports.AuthRepository             { return authRepo{s} }
func (s *Store) Courses() ports.CourseRepository         { return courseRepo{s} }
func (s *Store) Collections() ports.CollectionRepository { return collectionRepo{s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

type authRepo struct{ s *Store }

func (r authRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.users[user.Username]; exists {
		return nil, domain.ErrUserExists
	}
	r.s.nextUser++
	u := *user
	u.ID = r.s.nextUser
	r.s.users[u.Username] = u
	return &u, nil
}

func (r authRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

type courseRepo struct{ s *Store }

func (r courseRepo) Create(_ context.Context, c *domain.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextCourse++
	c.ID = r.s.nextCourse
	r.s.courses[c.ID] = *c
	return nil
}

func (r courseRepo) FindByID(_ context.Context, id int64) (*domain.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.courses[id]
	if !ok {
		return nil, domain.ErrCourseNotFound
	}
	return &c, nil
}

func (r courseRepo) Update(_ context.Context, c *domain.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.courses[c.ID]
	if !ok {
		return domain.ErrCourseNotFound
	}
	stored.Apply(domain.CourseFields{Title: c.Title, Description: c.Description, Duration: c.Duration, Outcome: c.Outcome})
	stored.UpdatedAt = c.UpdatedAt
	r.s.courses[c.ID] = stored
	return nil
}

func (r courseRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.courses[id]; !ok {
		return domain.ErrCourseNotFound
	}
	delete(r.s.courses, id)
	return nil
}

func (r courseRepo) List(_ context.Context, filter ports.ListCoursesFilter) ([]domain.Course, error) {
	r.s.mu.RLock()
	out := make([]domain.Course, 0, len(r.s.courses))
	for _, c := range r.s.courses {
		out = append(out, c)
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Title == out[j].Title {
			return out[i].ID < out[j].ID
		}
		if filter.SortOrder == domain.SortAsc {
			return out[i].Title < out[j].Title
		}
		return out[i].Title > out[j].Title
	})
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

type collectionRepo struct{ s *Store }

func (r collectionRepo) List(_ context.Context) ([]domain.Collection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := make([]int64, 0, len(r.s.collections))
	for id := range r.s.collections {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]domain.Collection, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.s.assemble(id, r.s.collections[id]))
	}
	return out, nil
}

func (r collectionRepo) FindByID(_ context.Context, id int64) (*domain.Collection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.collections[id]
	if !ok {
		return nil, domain.ErrCollectionNotFound
	}
	out := r.s.assemble(id, c)
	return &out, nil
}

// assemble must be called with s.mu held.
func (s *Store) assemble(id int64, c collection) domain.Collection {
	courses := make([]domain.Course, 0, len(c.courseIDs))
	for _, cid := range c.courseIDs {
		if course, ok := s.courses[cid]; ok {
			courses = append(courses, course)
		}
	}
	return domain.Collection{ID: id, Name: c.name, Courses: courses}
}
