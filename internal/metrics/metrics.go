// Package metrics exposes Prometheus instruments for the scoring front-ends.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the scoring instruments registered on one registry.
type Metrics struct {
	predictions   *prometheus.CounterVec
	batchRows     *prometheus.CounterVec
	faults        *prometheus.CounterVec
	scoreLatency  *prometheus.HistogramVec
	modelFeatures prometheus.Gauge
}

// New creates the instruments and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "txguard",
				Subsystem: "predict",
				Name:      "transactions_total",
				Help:      "Transactions scored by the prediction endpoint, by anomaly flag.",
			},
			[]string{"flag"},
		),
		batchRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "txguard",
				Subsystem: "batch",
				Name:      "rows_total",
				Help:      "Rows scored in batch uploads, by anomaly flag.",
			},
			[]string{"flag"},
		),
		faults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "txguard",
				Name:      "faults_total",
				Help:      "Rejected requests and batches, by surface and fault code.",
			},
			[]string{"surface", "code"},
		),
		scoreLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "txguard",
				Name:      "score_duration_seconds",
				Help:      "Time spent building features and scoring.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"surface"},
		),
		modelFeatures: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "txguard",
				Subsystem: "model",
				Name:      "features",
				Help:      "Number of input features the loaded model expects.",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.predictions, m.batchRows, m.faults, m.scoreLatency, m.modelFeatures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// ObservePrediction records one scored transaction.
func (m *Metrics) ObservePrediction(flag int, elapsed time.Duration) {
	m.predictions.WithLabelValues(strconv.Itoa(flag)).Inc()
	m.scoreLatency.WithLabelValues("predict").Observe(elapsed.Seconds())
}

// ObserveBatch records a scored batch.
func (m *Metrics) ObserveBatch(flagged, normal int, elapsed time.Duration) {
	m.batchRows.WithLabelValues("1").Add(float64(flagged))
	m.batchRows.WithLabelValues("0").Add(float64(normal))
	m.scoreLatency.WithLabelValues("batch").Observe(elapsed.Seconds())
}

// ObserveFault records a rejected request or batch.
func (m *Metrics) ObserveFault(surface, code string) {
	if code == "" {
		code = "UNKNOWN"
	}
	m.faults.WithLabelValues(surface, code).Inc()
}

// SetModelFeatures records the loaded model's input width.
func (m *Metrics) SetModelFeatures(n int) {
	m.modelFeatures.Set(float64(n))
}
