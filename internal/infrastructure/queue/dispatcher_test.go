package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/openstudy/course-api/internal/core/ports"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.CourseEvent
	err    error
	block  chan struct{}
}

func (p *recordingPublisher) Publish(_ context.Context, ev ports.CourseEvent) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) snapshot() []ports.CourseEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ports.CourseEvent(nil), p.events...)
}

func TestDispatcher_PublishesInOrderPerCourse(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(3, pub, zerolog.Nop())
	d.Start(context.Background())

	types := []ports.CourseEventType{ports.CourseCreated, ports.CourseUpdated, ports.CourseDeleted}
	for _, courseID := range []int64{1, 2, 3, 4} {
		for _, typ := range types {
			d.Enqueue(ports.NewCourseEvent(typ, courseID, 1, nil))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	got := pub.snapshot()
	if len(got) != 12 {
		t.Fatalf("expected 12 events, got %d", len(got))
	}

	perCourse := map[int64][]ports.CourseEventType{}
	for _, ev := range got {
		perCourse[ev.CourseID] = append(perCourse[ev.CourseID], ev.Type)
	}
	for courseID, seen := range perCourse {
		for i, typ := range types {
			if seen[i] != typ {
				t.Fatalf("course %d: events out of order: %v", courseID, seen)
			}
		}
	}
}

func TestDispatcher_ContinuesAfterPublishError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	d := NewDispatcher(1, pub, zerolog.Nop())
	d.Start(context.Background())

	d.Enqueue(ports.NewCourseEvent(ports.CourseCreated, 1, 1, nil))
	d.Enqueue(ports.NewCourseEvent(ports.CourseCreated, 2, 1, nil))

	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if n := len(pub.snapshot()); n != 2 {
		t.Fatalf("expected both events attempted, got %d", n)
	}
}

func TestDispatcher_EnqueueNeverBlocks(t *testing.T) {
	pub := &recordingPublisher{block: make(chan struct{})}
	d := NewDispatcher(1, pub, zerolog.Nop())
	d.Start(context.Background())

	done := make(chan struct{})
	go func() {
		for i := 0; i < channelBuffer+10; i++ {
			d.Enqueue(ports.NewCourseEvent(ports.CourseCreated, 1, 1, nil))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Enqueue blocked on a full queue")
	}

	close(pub.block)
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if n := len(pub.snapshot()); n > channelBuffer+1 {
		t.Fatalf("expected overflow to be dropped, got %d published", n)
	}
}

func TestDispatcher_EnqueueAfterStopIsDropped(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(2, pub, zerolog.Nop())
	d.Start(context.Background())
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}

	d.Enqueue(ports.NewCourseEvent(ports.CourseCreated, 1, 1, nil))
	if n := len(pub.snapshot()); n != 0 {
		t.Fatalf("expected no events after stop, got %d", n)
	}
}

func TestShardIndex_Stable(t *testing.T) {
	d := NewDispatcher(4, &recordingPublisher{}, zerolog.Nop())
	for _, id := range []int64{0, 1, 7, 1 << 40, -3} {
		first := d.shardIndex(id)
		if first < 0 || first >= 4 || d.shardIndex(id) != first {
			t.Fatalf("unstable shard for %d: %d", id, first)
		}
	}
}
