package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/kshitij1706/fraud-anomaly-detection/internal/metrics"
	"github.com/kshitij1706/fraud-anomaly-detection/internal/scoring"
)

// RouterConfig holds the dependencies of the HTTP surface.
type RouterConfig struct {
	Scorer  *scoring.Scorer
	Metrics *metrics.Metrics
	Logger  logrus.FieldLogger

	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// Dashboard serves "/" and "/dashboard/". Nil disables the dashboard.
	Dashboard http.Handler
}

// NewRouter wires every route behind the default middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/predict", NewPredictHandler(cfg.Scorer, cfg.Metrics, cfg.Logger))
	mux.HandleFunc("/healthz", HealthHandler)

	if cfg.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	if cfg.Dashboard != nil {
		mux.Handle("/", cfg.Dashboard)
		mux.Handle("/dashboard/", cfg.Dashboard)
	}

	return DefaultMiddleware(cfg.Logger)(mux)
}

// HealthHandler reports liveness. Artifacts are loaded before the server
// starts, so a running process is ready to score.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
