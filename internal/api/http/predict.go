package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	faults "github.com/kshitij1706/fraud-anomaly-detection/internal/errors"
	"github.com/kshitij1706/fraud-anomaly-detection/internal/metrics"
	"github.com/kshitij1706/fraud-anomaly-detection/internal/scoring"
)

// maxPredictBody bounds the size of a single-transaction request.
const maxPredictBody = 1 << 20

// PredictHandler handles POST /predict requests.
type PredictHandler struct {
	scorer  *scoring.Scorer
	metrics *metrics.Metrics
	logger  logrus.FieldLogger
}

// NewPredictHandler creates a new prediction handler.
func NewPredictHandler(scorer *scoring.Scorer, m *metrics.Metrics, logger logrus.FieldLogger) *PredictHandler {
	return &PredictHandler{
		scorer:  scorer,
		metrics: m,
		logger:  logger,
	}
}

// ServeHTTP scores the transaction in the request body.
func (h *PredictHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	tx, err := decodeTransaction(http.MaxBytesReader(w, r.Body, maxPredictBody))
	if err != nil {
		h.fail(w, err, requestID)
		return
	}

	start := time.Now()
	res, err := h.scorer.ScoreTransaction(tx)
	if err != nil {
		h.fail(w, err, requestID)
		return
	}
	h.metrics.ObservePrediction(res.Flag, time.Since(start))

	writeJSON(w, http.StatusOK, res)
}

// decodeTransaction reads exactly one JSON object from body.
func decodeTransaction(body io.Reader) (scoring.Transaction, error) {
	var tx scoring.Transaction
	dec := json.NewDecoder(body)
	if err := dec.Decode(&tx); err != nil {
		var f *faults.Fault
		if !errors.As(err, &f) {
			err = faults.NewInvalidInput("invalid request body", err)
		}
		return tx, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return tx, faults.NewInvalidInput("invalid request body: unexpected data after JSON object", err)
	}
	return tx, nil
}

func (h *PredictHandler) fail(w http.ResponseWriter, err error, requestID string) {
	h.metrics.ObserveFault("predict", faults.GetCode(err))

	entry := h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"code":       faults.GetCode(err),
	}).WithError(err)
	if faults.GetCategory(err) == faults.CategoryValidation {
		entry.Info("prediction rejected")
	} else {
		entry.Error("prediction failed")
	}

	writeFault(w, err, requestID)
}
