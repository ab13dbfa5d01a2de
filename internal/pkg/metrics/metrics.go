// Package metrics defines and registers all custom Prometheus metrics for the
// course API. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation and exposed by the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "courseapi"

// ── GraphQL metrics ───────────────────────────────────────────────────────────

// GraphQLRequestsTotal counts executed GraphQL documents.
// Labels:
//   - operation_type: query, mutation, subscription or invalid
//   - result: "ok" or "error" (any entry in the response errors list)
var GraphQLRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "graphql_requests_total",
		Help:      "Total number of GraphQL requests executed, by operation type and result.",
	},
	[]string{"operation_type", "result"},
)

// GraphQLRequestDuration measures schema execution time.
var GraphQLRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "graphql_request_duration_seconds",
		Help:      "Duration of GraphQL execution, excluding transport.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation_type"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthEventsTotal counts register and login attempts.
// Labels:
//   - event: "register" or "login"
//   - result: "success", "failure", "conflict" or "forbidden"
var AuthEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_events_total",
		Help:      "Total number of authentication events, by event and result.",
	},
	[]string{"event", "result"},
)

// InvalidTokensTotal counts requests rejected by the auth guard.
var InvalidTokensTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invalid_tokens_total",
		Help:      "Total number of requests rejected because of an invalid token.",
	},
)

// ── Course metrics ────────────────────────────────────────────────────────────

// CourseMutationsTotal counts successful course writes.
// Label:
//   - action: "create", "update" or "delete"
var CourseMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "course_mutations_total",
		Help:      "Total number of successful course mutations, by action.",
	},
	[]string{"action"},
)

// IdempotentReplaysTotal counts addCourse calls answered from the idempotency store.
var IdempotentReplaysTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotent_replays_total",
		Help:      "Total number of addCourse requests replayed from an idempotency key.",
	},
)

// ── Event metrics ─────────────────────────────────────────────────────────────

// CourseEventsTotal counts course change notifications.
// Label:
//   - result: "published", "failed" or "dropped" (worker queue full)
var CourseEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "course_events_total",
		Help:      "Total number of course change events, by delivery result.",
	},
	[]string{"result"},
)

// EventsQueueDepth tracks the current number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var EventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_queue_depth",
		Help:      "Current number of events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
