// Package metrics exports sync engine counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wekeepgrowing/todosync/internal/usecase"
)

const namespace = "todosync"

// Recorder implements usecase.Recorder with Prometheus counters.
type Recorder struct {
	dispatches *prometheus.CounterVec
	webhooks   *prometheus.CounterVec
	rateLimits prometheus.Counter
}

var _ usecase.Recorder = (*Recorder)(nil)

// NewRecorder creates the counters and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Outbound operations by operation and mode (sync, queued, requeued).",
		}, []string{"operation", "mode"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Webhook events by event name and outcome.",
		}, []string{"event", "outcome"}),
		rateLimits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_raised_total",
			Help:      "Times the shared rate-limit flag was raised.",
		}),
	}

	for _, c := range []prometheus.Collector{r.dispatches, r.webhooks, r.rateLimits} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) ObserveDispatch(operation, mode string) {
	r.dispatches.WithLabelValues(operation, mode).Inc()
}

func (r *Recorder) ObserveWebhook(event, outcome string) {
	r.webhooks.WithLabelValues(event, outcome).Inc()
}

func (r *Recorder) ObserveRateLimit() {
	r.rateLimits.Inc()
}
