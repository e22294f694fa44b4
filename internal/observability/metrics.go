package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/j0lvera/echobot/internal/config"
)

// Metrics groups all Prometheus instruments used by the bot.
type Metrics struct {
	Turns             *prometheus.CounterVec
	CompletionLatency prometheus.Histogram
	CompletionErrors  *prometheus.CounterVec
	StorageErrors     *prometheus.CounterVec
	Welcomes          prometheus.Counter
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Turns handled by event kind and outcome.",
		}, []string{"kind", "outcome"}),
		CompletionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_latency_seconds",
			Help:      "Latency of completion calls in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}),
		CompletionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_errors_total",
			Help:      "Failed completion calls by error kind.",
		}, []string{"kind"}),
		StorageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Conversation memory failures by operation.",
		}, []string{"op"}),
		Welcomes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "welcomes_total",
			Help:      "Welcome messages emitted to joined participants.",
		}),
	}
}

func (m *Metrics) ObserveCompletion(d time.Duration) {
	m.CompletionLatency.Observe(d.Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

func Module() fx.Option {
	return fx.Module(
		"observability",
		fx.Provide(func(cfg *config.Config) *Metrics {
			return NewMetrics(cfg.MetricsNamespace, prometheus.DefaultRegisterer)
		}),
	)
}
