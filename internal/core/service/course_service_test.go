package service

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/rs/zerolog"

	"github.com/openstudy/course-api/internal/core/domain"
	"github.com/openstudy/course-api/internal/core/ports"
)

type stubCourseRepo struct {
	courses map[int64]*domain.Course
	nextID  int64
	// listErr, if set, is returned by List.
	listErr error
	// createErr, if set, is returned by Create.
	createErr error
}

func newStubCourseRepo() *stubCourseRepo {
	return &stubCourseRepo{courses: make(map[int64]*domain.Course)}
}

func (r *stubCourseRepo) Create(_ context.Context, c *domain.Course) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	c.ID = r.nextID
	copy := *c
	r.courses[c.ID] = &copy
	return nil
}

func (r *stubCourseRepo) FindByID(_ context.Context, id int64) (*domain.Course, error) {
	c, ok := r.courses[id]
	if !ok {
		return nil, domain.ErrCourseNotFound
	}
	copy := *c
	return &copy, nil
}

func (r *stubCourseRepo) Update(_ context.Context, c *domain.Course) error {
	if _, ok := r.courses[c.ID]; !ok {
		return domain.ErrCourseNotFound
	}
	copy := *c
	r.courses[c.ID] = &copy
	return nil
}

func (r *stubCourseRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.courses[id]; !ok {
		return domain.ErrCourseNotFound
	}
	delete(r.courses, id)
	return nil
}

func (r *stubCourseRepo) List(_ context.Context, filter ports.ListCoursesFilter) ([]domain.Course, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.Course, 0, len(r.courses))
	for _, c := range r.courses {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
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

// stubIdempotency stores 0 for a pending claim and the course id once done.
type stubIdempotency struct {
	keys map[string]int64
}

func (s *stubIdempotency) Reserve(_ context.Context, scope, key string) (int64, error) {
	id, ok := s.keys[scope+"/"+key]
	if !ok {
		s.keys[scope+"/"+key] = 0
		return 0, nil
	}
	if id == 0 {
		return 0, domain.ErrRequestInProgress
	}
	return id, nil
}

func (s *stubIdempotency) Complete(_ context.Context, scope, key string, courseID int64) error {
	s.keys[scope+"/"+key] = courseID
	return nil
}

func (s *stubIdempotency) Release(_ context.Context, scope, key string) error {
	delete(s.keys, scope+"/"+key)
	return nil
}

type rejectAll struct{}

func (rejectAll) Validate(any) error { return errors.New("title must not be blank") }

type recordingSink struct {
	events []ports.CourseEvent
}

func (s *recordingSink) Enqueue(ev ports.CourseEvent) {
	s.events = append(s.events, ev)
}

var (
	adminCtx = domain.ContextWithIdentity(context.Background(), &domain.Identity{UserID: 1, Role: domain.RoleAdmin})
	userCtx  = domain.ContextWithIdentity(context.Background(), &domain.Identity{UserID: 2, Role: domain.RoleUser})
)

func sampleInput(title string) ports.CourseInput {
	return ports.CourseInput{Title: title, Description: "d", Duration: "4w", Outcome: "o"}
}

func newTestCourseService(repo *stubCourseRepo, sink *recordingSink) *CourseService {
	return NewCourseService(repo, &stubIdempotency{keys: map[string]int64{}}, sink, nil, zerolog.Nop())
}

func TestCourseService_AddCourse(t *testing.T) {
	repo := newStubCourseRepo()
	sink := &recordingSink{}
	svc := newTestCourseService(repo, sink)

	c, err := svc.AddCourse(adminCtx, sampleInput("Go"))
	if err != nil {
		t.Fatalf("AddCourse returned error: %v", err)
	}
	if c.ID == 0 || c.OwnerID != 1 || c.Title != "Go" {
		t.Fatalf("unexpected course: %+v", c)
	}
	if len(sink.events) != 1 || sink.events[0].Type != ports.CourseCreated || sink.events[0].CourseID != c.ID {
		t.Fatalf("expected one created event, got %+v", sink.events)
	}
}

func TestCourseService_AddCourse_RequiresAdmin(t *testing.T) {
	repo := newStubCourseRepo()
	sink := &recordingSink{}
	svc := newTestCourseService(repo, sink)

	if _, err := svc.AddCourse(context.Background(), sampleInput("Go")); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := svc.AddCourse(userCtx, sampleInput("Go")); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if len(repo.courses) != 0 || len(sink.events) != 0 {
		t.Fatalf("expected no side effects, got %d courses %d events", len(repo.courses), len(sink.events))
	}
}

func TestCourseService_AddCourse_IdempotentReplay(t *testing.T) {
	repo := newStubCourseRepo()
	sink := &recordingSink{}
	svc := newTestCourseService(repo, sink)
	ctx := ports.ContextWithIdempotencyKey(adminCtx, "req-1")

	first, err := svc.AddCourse(ctx, sampleInput("Go"))
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.AddCourse(ctx, sampleInput("Go"))
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected replay to return course %d, got %d", first.ID, second.ID)
	}
	if len(repo.courses) != 1 || len(sink.events) != 1 {
		t.Fatalf("expected a single create, got %d courses %d events", len(repo.courses), len(sink.events))
	}

	otherAdmin := domain.ContextWithIdentity(context.Background(), &domain.Identity{UserID: 9, Role: domain.RoleAdmin})
	third, err := svc.AddCourse(ports.ContextWithIdempotencyKey(otherAdmin, "req-1"), sampleInput("Go"))
	if err != nil {
		t.Fatalf("third call: %v", err)
	}
	if third.ID == first.ID {
		t.Fatalf("keys must be scoped per caller")
	}
}

func TestCourseService_AddCourse_RetryWhileInFlight(t *testing.T) {
	repo := newStubCourseRepo()
	sink := &recordingSink{}
	idem := &stubIdempotency{keys: map[string]int64{"1/req-1": 0}}
	svc := NewCourseService(repo, idem, sink, nil, zerolog.Nop())

	_, err := svc.AddCourse(ports.ContextWithIdempotencyKey(adminCtx, "req-1"), sampleInput("Go"))
	if !errors.Is(err, domain.ErrRequestInProgress) {
		t.Fatalf("expected ErrRequestInProgress, got %v", err)
	}
	if len(repo.courses) != 0 || len(sink.events) != 0 {
		t.Fatalf("retry must not create, got %d courses %d events", len(repo.courses), len(sink.events))
	}
}

func TestCourseService_AddCourse_FailedCreateReleasesKey(t *testing.T) {
	repo := newStubCourseRepo()
	repo.createErr = errors.New("connection reset")
	idem := &stubIdempotency{keys: map[string]int64{}}
	svc := NewCourseService(repo, idem, &recordingSink{}, nil, zerolog.Nop())
	ctx := ports.ContextWithIdempotencyKey(adminCtx, "req-1")

	if _, err := svc.AddCourse(ctx, sampleInput("Go")); err == nil {
		t.Fatalf("expected create error")
	}
	if _, held := idem.keys["1/req-1"]; held {
		t.Fatalf("expected key to be released after failed create")
	}

	repo.createErr = nil
	c, err := svc.AddCourse(ctx, sampleInput("Go"))
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if idem.keys["1/req-1"] != c.ID {
		t.Fatalf("expected key to map to course %d, got %d", c.ID, idem.keys["1/req-1"])
	}
}

func TestCourseService_ListCourses(t *testing.T) {
	repo := newStubCourseRepo()
	svc := newTestCourseService(repo, &recordingSink{})
	for _, title := range []string{"B", "A", "C"} {
		if _, err := svc.AddCourse(adminCtx, sampleInput(title)); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	two := 2
	got, err := svc.ListCourses(context.Background(), ports.ListCoursesInput{Limit: &two, SortOrder: domain.SortAsc})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Title != "A" || got[1].Title != "B" {
		t.Fatalf("unexpected ascending page: %+v", got)
	}

	got, _ = svc.ListCourses(context.Background(), ports.ListCoursesInput{SortOrder: domain.SortDesc})
	if len(got) != 3 || got[0].Title != "C" {
		t.Fatalf("unexpected descending listing: %+v", got)
	}

	zero := 0
	got, err = svc.ListCourses(context.Background(), ports.ListCoursesInput{Limit: &zero})
	if err != nil || len(got) != 0 || got == nil {
		t.Fatalf("expected empty non-nil slice for limit 0, got %v %v", got, err)
	}

	negative := -1
	if _, err := svc.ListCourses(context.Background(), ports.ListCoursesInput{Limit: &negative}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCourseService_ListCourses_StorageError(t *testing.T) {
	repo := newStubCourseRepo()
	repo.listErr = errors.New("boom")
	svc := newTestCourseService(repo, &recordingSink{})

	if _, err := svc.ListCourses(context.Background(), ports.ListCoursesInput{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCourseService_GetCourse_NotFound(t *testing.T) {
	svc := newTestCourseService(newStubCourseRepo(), &recordingSink{})

	if _, err := svc.GetCourse(context.Background(), 99); !errors.Is(err, domain.ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestCourseService_UpdateCourse(t *testing.T) {
	repo := newStubCourseRepo()
	sink := &recordingSink{}
	svc := newTestCourseService(repo, sink)
	created, _ := svc.AddCourse(adminCtx, sampleInput("Go"))

	updated, err := svc.UpdateCourse(adminCtx, created.ID, sampleInput("Go 2"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID || updated.Title != "Go 2" || updated.OwnerID != created.OwnerID {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if repo.courses[created.ID].Title != "Go 2" {
		t.Fatalf("update not persisted")
	}
	if last := sink.events[len(sink.events)-1]; last.Type != ports.CourseUpdated || last.Course == nil || last.Course.Title != "Go 2" {
		t.Fatalf("unexpected update event: %+v", last)
	}
}

func TestCourseService_UpdateCourse_ValidatesAfterAuthorization(t *testing.T) {
	repo := newStubCourseRepo()
	repo.courses[5] = &domain.Course{ID: 5, Title: "Go", OwnerID: 1}
	svc := NewCourseService(repo, nil, &recordingSink{}, rejectAll{}, zerolog.Nop())

	if _, err := svc.UpdateCourse(adminCtx, 99, sampleInput("")); !errors.Is(err, domain.ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
	if _, err := svc.UpdateCourse(userCtx, 5, sampleInput("")); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if _, err := svc.UpdateCourse(adminCtx, 5, sampleInput("")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if repo.courses[5].Title != "Go" {
		t.Fatalf("rejected update must not write, got %q", repo.courses[5].Title)
	}
}

func TestCourseService_UpdateCourse_Authorization(t *testing.T) {
	repo := newStubCourseRepo()
	svc := newTestCourseService(repo, &recordingSink{})
	created, _ := svc.AddCourse(adminCtx, sampleInput("Go"))

	tests := []struct {
		name string
		ctx  context.Context
		id   int64
		want error
	}{
		{"anonymous", context.Background(), created.ID, domain.ErrNotAuthenticated},
		{"anonymous unknown id", context.Background(), 99, domain.ErrNotAuthenticated},
		{"user on unknown id", userCtx, 99, domain.ErrCourseNotFound},
		{"user not owner", userCtx, created.ID, domain.ErrNotAuthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.UpdateCourse(tt.ctx, tt.id, sampleInput("X")); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if repo.courses[created.ID].Title != "Go" {
		t.Fatalf("rejected updates must not change the course")
	}
}

func TestCourseService_UpdateCourse_OwnerOnlyNonAdmin(t *testing.T) {
	repo := newStubCourseRepo()
	svc := newTestCourseService(repo, &recordingSink{})
	repo.courses[5] = &domain.Course{ID: 5, Title: "Legacy", OwnerID: 2}

	if _, err := svc.UpdateCourse(userCtx, 5, sampleInput("Mine")); err != nil {
		t.Fatalf("owner update failed: %v", err)
	}

	repo.courses[6] = &domain.Course{ID: 6, Title: "Orphan"}
	if _, err := svc.UpdateCourse(userCtx, 6, sampleInput("Mine")); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for ownerless course, got %v", err)
	}
}

func TestCourseService_DeleteCourse(t *testing.T) {
	repo := newStubCourseRepo()
	sink := &recordingSink{}
	svc := newTestCourseService(repo, sink)
	created, _ := svc.AddCourse(adminCtx, sampleInput("Go"))

	if err := svc.DeleteCourse(userCtx, created.ID); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := svc.DeleteCourse(adminCtx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := repo.courses[created.ID]; ok {
		t.Fatalf("course still stored")
	}
	if err := svc.DeleteCourse(adminCtx, created.ID); !errors.Is(err, domain.ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound on second delete, got %v", err)
	}
	if last := sink.events[len(sink.events)-1]; last.Type != ports.CourseDeleted || last.Course != nil {
		t.Fatalf("unexpected delete event: %+v", last)
	}
}

type stubCollectionRepo struct {
	collections map[int64]domain.Collection
}

func (r *stubCollectionRepo) List(context.Context) ([]domain.Collection, error) {
	out := make([]domain.Collection, 0, len(r.collections))
	for _, c := range r.collections {
		out = append(out, c)
	}
	return out, nil
}

func (r *stubCollectionRepo) FindByID(_ context.Context, id int64) (*domain.Collection, error) {
	c, ok := r.collections[id]
	if !ok {
		return nil, domain.ErrCollectionNotFound
	}
	return &c, nil
}

func TestCollectionService(t *testing.T) {
	repo := &stubCollectionRepo{collections: map[int64]domain.Collection{
		1: {ID: 1, Name: "Backend", Courses: []domain.Course{{ID: 1, Title: "Go"}}},
	}}
	svc := NewCollectionService(repo)

	all, err := svc.ListCollections(context.Background())
	if err != nil || len(all) != 1 {
		t.Fatalf("unexpected list: %v %v", all, err)
	}

	c, err := svc.GetCollection(context.Background(), 1)
	if err != nil || c.Name != "Backend" || len(c.Courses) != 1 {
		t.Fatalf("unexpected collection: %+v %v", c, err)
	}

	if _, err := svc.GetCollection(context.Background(), 2); !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}
}
