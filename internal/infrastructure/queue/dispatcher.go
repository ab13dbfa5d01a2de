package queue

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/openstudy/course-api/internal/core/ports"
	"github.com/openstudy/course-api/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	publishTimeout = 5 * time.Second
)

// Dispatcher routes course events to a fixed set of workers sharded on the
// course id, guaranteeing per-course event ordering.
type Dispatcher struct {
	workers   []chan ports.CourseEvent
	publisher ports.CourseEventPublisher
	log       zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

var _ ports.CourseEventSink = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, publisher ports.CourseEventPublisher, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:   make([]chan ports.CourseEvent, numWorkers),
		publisher: publisher,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.CourseEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers exit once Stop has closed
// their channel and the backlog is published.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands an event to the worker responsible for its course. It never
// blocks: when the worker queue is full, or the dispatcher is stopped, the
// event is dropped and counted.
func (d *Dispatcher) Enqueue(event ports.CourseEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		metrics.CourseEventsTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().Str("event_id", event.ID).Msg("dispatcher stopped, course event dropped")
		return
	}

	idx := d.shardIndex(event.CourseID)
	select {
	case d.workers[idx] <- event:
		metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.CourseEventsTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().
			Str("event_id", event.ID).
			Int64("course_id", event.CourseID).
			Int("worker_id", idx).
			Msg("worker queue full, course event dropped")
	}
}

// Stop refuses new events, then waits for queued events to be published or
// for ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps a course id deterministically to a worker index.
func (d *Dispatcher) shardIndex(courseID int64) int {
	n := courseID % int64(len(d.workers))
	if n < 0 {
		n = -n
	}
	return int(n)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.CourseEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)

	for event := range ch {
		metrics.EventsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))

		// The base ctx may already be cancelled during shutdown; the backlog
		// still gets a bounded attempt.
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		err := d.publisher.Publish(pubCtx, event)
		cancel()

		if err != nil {
			metrics.CourseEventsTotal.WithLabelValues("failed").Inc()
			d.log.Error().Err(err).
				Str("event_id", event.ID).
				Str("type", string(event.Type)).
				Int64("course_id", event.CourseID).
				Int("worker_id", id).
				Msg("course event publish failed")
			continue
		}
		metrics.CourseEventsTotal.WithLabelValues("published").Inc()
	}
}
