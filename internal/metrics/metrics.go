package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransitionsTotal counts committed curation transitions by type.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ridl_curation_transitions_total",
		Help: "Curation transitions committed, by activity type.",
	}, []string{"transition"})

	// NotificationsEnqueued counts mail jobs handed to the queue.
	NotificationsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ridl_notifications_enqueued_total",
		Help: "Notification mail jobs enqueued.",
	})

	// NotificationFailures counts enqueue and delivery failures. These are
	// non-fatal; the transitions they belong to stay committed.
	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ridl_notification_failures_total",
		Help: "Notification enqueue or delivery failures.",
	})

	// AccessRequestsTotal counts access-request decisions by outcome.
	AccessRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ridl_access_requests_total",
		Help: "Access request events, by status.",
	}, []string{"status"})
)
