package observability

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/radiomute/internal/actuator"
	"github.com/danmuck/radiomute/internal/mute"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "radiomute",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "radiomute",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "radiomute",
			Subsystem: "reconciler",
			Name:      "commands_total",
			Help:      "Actuator commands issued by the reconciler.",
		},
		[]string{"command", "origin", "result"},
	)
	signalEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "radiomute",
			Subsystem: "reconciler",
			Name:      "events_total",
			Help:      "Events handled by the reconciler.",
		},
		[]string{"event"},
	)
	consecutiveResyncs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "radiomute",
			Subsystem: "reconciler",
			Name:      "consecutive_resyncs",
			Help:      "Re-issued commands since the last convergence or policy command.",
		},
	)
	converged = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "radiomute",
			Subsystem: "reconciler",
			Name:      "converged",
			Help:      "1 when the confirmed mute state matches the commanded state.",
		},
	)
	decodeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "radiomute",
			Subsystem: "osc",
			Name:      "decode_errors_total",
			Help:      "Inbound OSC packets that failed to decode.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			commands,
			signalEvents,
			consecutiveResyncs,
			converged,
			decodeErrors,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordDecodeError(error) {
	RegisterMetrics()
	decodeErrors.Inc()
}

// Recorder forwards reconciler activity to the metrics. It satisfies
// mute.Observer.
type Recorder struct{}

var _ mute.Observer = Recorder{}

func NewRecorder() Recorder {
	RegisterMetrics()
	return Recorder{}
}

func (Recorder) Commanded(muted bool, origin mute.Origin, err error) {
	command := "unmute"
	if muted {
		command = "mute"
	}
	commands.WithLabelValues(command, string(origin), commandResult(err)).Inc()
}

func (Recorder) Transitioned(ev mute.Event, s mute.State) {
	signalEvents.WithLabelValues(ev.Kind.String()).Inc()
	consecutiveResyncs.Set(float64(s.Resyncs))
	if s.Converged() {
		converged.Set(1)
	} else {
		converged.Set(0)
	}
}

func commandResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, actuator.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
