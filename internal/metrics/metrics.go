package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ZotloRequestsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "subsync",
	Subsystem: "zotlo",
	Name:      "requests_total",
	Help:      "Count of Zotlo API calls by operation and outcome",
}, []string{"operation", "outcome"})

var ZotloRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "subsync",
	Subsystem: "zotlo",
	Name:      "request_duration_seconds",
	Help:      "Duration of Zotlo API calls including retries",
	Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
}, []string{"operation"})

var SyncRecordsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "subsync",
	Subsystem: "sync",
	Name:      "records_total",
	Help:      "Subscriptions visited by the sync job by result",
}, []string{"result"})

var SyncRunsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "subsync",
	Subsystem: "sync",
	Name:      "runs_total",
	Help:      "Sync job runs by outcome",
}, []string{"outcome"})

var WebhookEventsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "subsync",
	Subsystem: "webhook",
	Name:      "events_total",
	Help:      "Zotlo webhook deliveries by outcome",
}, []string{"outcome"})

var ReportRunsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "subsync",
	Subsystem: "report",
	Name:      "runs_total",
	Help:      "Subscription report runs by outcome",
}, []string{"outcome"})

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
