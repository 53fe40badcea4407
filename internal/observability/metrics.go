package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framelink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "framelink",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	envelopesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framelink",
			Subsystem: "envelope",
			Name:      "sent_total",
			Help:      "Envelopes handed to the transport.",
		},
		[]string{"mediator", "target", "success"},
	)
	envelopesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framelink",
			Subsystem: "envelope",
			Name:      "received_total",
			Help:      "Inbound messages by disposition (dispatched, foreign, unhandled).",
		},
		[]string{"mediator", "disposition"},
	)
	handlerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framelink",
			Subsystem: "handler",
			Name:      "failures_total",
			Help:      "Handler invocations that returned an error or panicked.",
		},
		[]string{"mediator", "namespace", "event", "kind"},
	)
	callsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framelink",
			Subsystem: "call",
			Name:      "settled_total",
			Help:      "Correlated calls by outcome.",
		},
		[]string{"mediator", "namespace", "outcome"},
	)
	callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "framelink",
			Subsystem: "call",
			Name:      "duration_seconds",
			Help:      "Time from call issue to settlement.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"mediator", "namespace", "outcome"},
	)
	callsPending = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "framelink",
			Subsystem: "call",
			Name:      "pending",
			Help:      "Correlated calls awaiting a reply.",
		},
		[]string{"mediator"},
	)
)

const (
	DispositionDispatched = "dispatched"
	DispositionForeign    = "foreign"
	DispositionUnhandled  = "unhandled"

	FailureError = "error"
	FailurePanic = "panic"
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			envelopesSent, envelopesReceived, handlerFailures,
			callsTotal, callDuration, callsPending,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordSend(mediator, target string, success bool) {
	RegisterMetrics()
	envelopesSent.WithLabelValues(mediator, target, strconv.FormatBool(success)).Inc()
}

func RecordReceive(mediator, disposition string) {
	RegisterMetrics()
	envelopesReceived.WithLabelValues(mediator, disposition).Inc()
}

func RecordHandlerFailure(mediator, namespace, event, kind string) {
	RegisterMetrics()
	handlerFailures.WithLabelValues(mediator, namespace, event, kind).Inc()
}

func RecordCall(mediator, namespace, outcome string, duration time.Duration) {
	RegisterMetrics()
	callsTotal.WithLabelValues(mediator, namespace, outcome).Inc()
	callDuration.WithLabelValues(mediator, namespace, outcome).Observe(duration.Seconds())
}

func SetPendingCalls(mediator string, n int) {
	RegisterMetrics()
	callsPending.WithLabelValues(mediator).Set(float64(n))
}
