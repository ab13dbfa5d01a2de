package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openstudy/course-api/internal/core/domain"
)

// CourseEventType names what happened to a course.
type CourseEventType string

const (
	CourseCreated CourseEventType = "course.created"
	CourseUpdated CourseEventType = "course.updated"
	CourseDeleted CourseEventType = "course.deleted"
)

// CourseEvent is the notification emitted after a successful mutation.
type CourseEvent struct {
	ID         string          `json:"id"`
	Type       CourseEventType `json:"type"`
	CourseID   int64           `json:"course_id"`
	ActorID    int64           `json:"actor_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Course     *domain.Course  `json:"course,omitempty"` // nil for deletions
}

// NewCourseEvent builds an event with a fresh id and timestamp.
func NewCourseEvent(typ CourseEventType, courseID, actorID int64, course *domain.Course) CourseEvent {
	return CourseEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		CourseID:   courseID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
		Course:     course,
	}
}

// CourseEventSink accepts events for asynchronous delivery. Enqueue must not
// block the calling request.
type CourseEventSink interface {
	Enqueue(event CourseEvent)
}

// CourseEventPublisher delivers a single event to the outside world.
type CourseEventPublisher interface {
	Publish(ctx context.Context, event CourseEvent) error
}
