// Package dashboard serves the batch evaluation pages: upload a CSV of
// transactions, score every row and download the annotated table.
package dashboard

import (
	"bytes"
	"embed"
	"encoding/base64"
	"errors"
	"html/template"
	"mime/multipart"
	"net/http"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kshitij1706/fraud-anomaly-detection/internal/config"
	faults "github.com/kshitij1706/fraud-anomaly-detection/internal/errors"
	"github.com/kshitij1706/fraud-anomaly-detection/internal/metrics"
	"github.com/kshitij1706/fraud-anomaly-detection/internal/scoring"
	"github.com/kshitij1706/fraud-anomaly-detection/pkg/frame"
	csvio "github.com/kshitij1706/fraud-anomaly-detection/pkg/io/csv"
)

// DownloadName is the file name offered for the annotated table.
const DownloadName = "evaluated_transactions.csv"

// Routes served by the dashboard.
const (
	PathIndex    = "/"
	PathEvaluate = "/dashboard/evaluate"
	PathDownload = "/dashboard/download"
)

const uploadField = "file"

//go:embed templates/*.html
var templateFS embed.FS

// Handler serves the dashboard routes.
type Handler struct {
	scorer    *scoring.Scorer
	metrics   *metrics.Metrics
	logger    logrus.FieldLogger
	templates *template.Template

	previewRows    int
	maxUploadBytes int64
}

// New creates the dashboard handler.
func New(scorer *scoring.Scorer, cfg config.DashboardConfig, m *metrics.Metrics, logger logrus.FieldLogger) (*Handler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Handler{
		scorer:         scorer,
		metrics:        m,
		logger:         logger,
		templates:      tmpl,
		previewRows:    cfg.PreviewRows,
		maxUploadBytes: cfg.MaxUploadBytes,
	}, nil
}

// ServeHTTP dispatches to the dashboard pages.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case PathIndex:
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.render(w, http.StatusOK, "index", page{})
	case PathEvaluate:
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.evaluate(w, r)
	case PathDownload:
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.download(w, r)
	default:
		http.NotFound(w, r)
	}
}

// page is the data rendered by the result template.
type page struct {
	FileName     string
	Raw          *tableView
	NFeatures    int
	Processed    *tableView
	Summary      []flagCount
	Download     template.URL
	DownloadName string
	Error        string
}

type tableView struct {
	Columns []string
	Rows    [][]string
}

type flagCount struct {
	Flag  int
	Count int
}

func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	in, name, err := h.readUpload(w, r)
	if err != nil {
		h.fail(w, "result", page{FileName: name}, err)
		return
	}

	p := page{
		FileName: name,
		Raw:      h.preview(scoring.Strip(in)),
	}

	batch, err := h.score(in)
	if err != nil {
		p.NFeatures = builtFeatures(err)
		h.fail(w, "result", p, err)
		return
	}
	p.NFeatures = batch.NFeatures

	var buf bytes.Buffer
	if err := encode(&buf, batch.Table); err != nil {
		h.fail(w, "result", p, faults.NewInternal("failed to encode result", err))
		return
	}

	p.Processed = h.preview(batch.Table)
	p.Summary = summarize(batch)
	p.Download = template.URL("data:text/csv;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()))
	p.DownloadName = DownloadName

	h.render(w, http.StatusOK, "result", p)
}

// builtFeatures returns the feature count of a table that was built but
// rejected by the model, or zero when the build itself failed.
func builtFeatures(err error) int {
	var f *faults.Fault
	if !errors.As(err, &f) || f.Code != faults.CodeFeatureMismatch {
		return 0
	}
	n, _ := f.Details["actual"].(int)
	return n
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	in, _, err := h.readUpload(w, r)
	if err != nil {
		h.failText(w, err)
		return
	}

	batch, err := h.score(in)
	if err != nil {
		h.failText(w, err)
		return
	}

	var buf bytes.Buffer
	if err := encode(&buf, batch.Table); err != nil {
		h.failText(w, faults.NewInternal("failed to encode result", err))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+DownloadName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// readUpload parses the multipart form and reads the uploaded CSV.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (*frame.Frame, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", faults.NewInvalidInput("upload exceeds the size limit", err)
		}
		return nil, "", faults.NewInvalidInput("expected a multipart form upload", err)
	}

	file, hdr, err := r.FormFile(uploadField)
	if err != nil {
		return nil, "", faults.NewInvalidInput("please upload a CSV file", err)
	}
	defer file.Close()

	in, err := readCSV(file)
	if err != nil {
		return nil, hdr.Filename, err
	}
	return in, hdr.Filename, nil
}

func readCSV(file multipart.File) (*frame.Frame, error) {
	reader, err := csvio.NewReader(file)
	if err != nil {
		return nil, faults.NewInvalidInput("could not read CSV: "+err.Error(), err)
	}
	in, err := reader.Read()
	if err != nil {
		return nil, faults.NewInvalidInput("could not read CSV: "+err.Error(), err)
	}
	return in, nil
}

func (h *Handler) score(in *frame.Frame) (*scoring.Batch, error) {
	start := time.Now()
	batch, err := h.scorer.ScoreFrame(in)
	if err != nil {
		return nil, err
	}
	h.metrics.ObserveBatch(batch.Flagged, batch.Normal, time.Since(start))
	h.logger.WithFields(logrus.Fields{
		"rows":    batch.Table.Len(),
		"flagged": batch.Flagged,
	}).Info("batch scored")
	return batch, nil
}

func (h *Handler) preview(f *frame.Frame) *tableView {
	head := f.Head(h.previewRows)
	v := &tableView{Columns: head.Columns(), Rows: make([][]string, head.Len())}
	for i := range v.Rows {
		row := head.Row(i)
		cells := make([]string, len(row))
		for j, x := range row {
			cells[j] = csvio.FormatValue(x)
		}
		v.Rows[i] = cells
	}
	return v
}

// summarize returns flag counts, most frequent first.
func summarize(b *scoring.Batch) []flagCount {
	var out []flagCount
	if b.Normal > 0 {
		out = append(out, flagCount{Flag: 0, Count: b.Normal})
	}
	if b.Flagged > 0 {
		out = append(out, flagCount{Flag: 1, Count: b.Flagged})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func encode(buf *bytes.Buffer, f *frame.Frame) error {
	w := csvio.NewWriter(buf)
	if err := w.Write(f); err != nil {
		return err
	}
	return w.Close()
}

func (h *Handler) fail(w http.ResponseWriter, name string, p page, err error) {
	h.observeFault(err)
	p.Error = faults.Message(err)
	if faults.GetCategory(err) == faults.CategoryInternal || faults.GetCategory(err) == "" {
		p.Error = "internal error while evaluating the upload"
	}
	h.render(w, faults.HTTPStatus(err), name, p)
}

func (h *Handler) failText(w http.ResponseWriter, err error) {
	h.observeFault(err)
	msg := faults.Message(err)
	if faults.GetCategory(err) == faults.CategoryInternal || faults.GetCategory(err) == "" {
		msg = "internal error while evaluating the upload"
	}
	http.Error(w, msg, faults.HTTPStatus(err))
}

func (h *Handler) observeFault(err error) {
	h.metrics.ObserveFault("batch", faults.GetCode(err))
	entry := h.logger.WithError(err).WithField("code", faults.GetCode(err))
	if faults.GetCategory(err) == faults.CategoryValidation {
		entry.Info("batch rejected")
		return
	}
	entry.Error("batch failed")
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, p page) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, p); err != nil {
		h.logger.WithError(err).Error("failed to render dashboard")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
