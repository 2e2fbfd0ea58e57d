package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"pluginscaffold/internal/host"
)

// PrometheusObserver records dispatch counts and latencies.
type PrometheusObserver struct {
	dispatches *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	callbacks  *prometheus.CounterVec
}

// NewPrometheusObserver registers the dispatch collectors with reg.
func NewPrometheusObserver(reg prometheus.Registerer) (*PrometheusObserver, error) {
	o := &PrometheusObserver{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pluginscaffold",
			Name:      "hook_dispatch_total",
			Help:      "Hook dispatches by kind, hook and result.",
		}, []string{"kind", "hook", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pluginscaffold",
			Name:      "hook_dispatch_duration_seconds",
			Help:      "Time spent running hook callbacks.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"kind"}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pluginscaffold",
			Name:      "hook_callbacks_total",
			Help:      "Callbacks invoked per hook.",
		}, []string{"kind", "hook"}),
	}
	for _, c := range []prometheus.Collector{o.dispatches, o.duration, o.callbacks} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// ObserveDispatch implements host.Observer.
func (o *PrometheusObserver) ObserveDispatch(_ context.Context, d host.Dispatch) {
	o.dispatches.WithLabelValues(d.Kind, d.Hook, result(d.Err)).Inc()
	o.duration.WithLabelValues(d.Kind).Observe(d.Duration.Seconds())
	if d.Callbacks > 0 {
		o.callbacks.WithLabelValues(d.Kind, d.Hook).Add(float64(d.Callbacks))
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
