package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/zuhrulumam/cropscore/internal/chart"
	"github.com/zuhrulumam/cropscore/internal/errors"
	"github.com/zuhrulumam/cropscore/internal/models"
	"github.com/zuhrulumam/cropscore/internal/reader"
	"github.com/zuhrulumam/cropscore/internal/render"
	"github.com/zuhrulumam/cropscore/internal/scoring"
)

// defaultUploadName names raw-body uploads that carry no ?name=
const defaultUploadName = "upload.csv"

var errBusy = errors.New("server busy: no scoring slot available")

// badRequestError marks a problem with the request itself rather than its CSV
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// errorResponse is the JSON body of every non-2xx API response
type errorResponse struct {
	Kind      string   `json:"kind"`
	Error     string   `json:"error"`
	Missing   []string `json:"missing,omitempty"`
	Line      int      `json:"line,omitempty"`
	Column    string   `json:"column,omitempty"`
	Value     string   `json:"value,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	Skipped   int      `json:"skipped,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	report, err := s.scoreUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var body bytes.Buffer
	if err := render.Write(&body, report, render.Options{Format: render.FormatJSON}); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.metrics.uploads.WithLabelValues(statusOK).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = body.WriteTo(w)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	report, err := s.scoreUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var body bytes.Buffer
	if err := chart.Write(&body, report, "png", chart.DefaultOptions()); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.metrics.uploads.WithLabelValues(statusOK).Inc()
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = body.WriteTo(w)
}

// scoreUpload decodes the uploaded CSV and scores it while holding a scoring slot
func (s *Server) scoreUpload(w http.ResponseWriter, r *http.Request) (*models.Report, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	opts, err := s.requestOptions(r)
	if err != nil {
		return nil, err
	}

	scorer, err := scoring.NewScorer(opts)
	if err != nil {
		return nil, badRequest("%v", err)
	}

	waitCtx, cancel := context.WithTimeout(r.Context(), s.cfg.QueueTimeout)
	err = s.sem.AcquireContext(waitCtx)
	cancel()
	if err != nil {
		return nil, errBusy
	}
	defer s.sem.Release()

	in, name, err := openUpload(r)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	ds, err := reader.NewCSVReader(reader.Config{
		Source:     name,
		MaxRecords: s.cfg.MaxRecords,
	}).Read(r.Context(), in)
	if err != nil {
		return nil, err
	}

	report, err := scorer.Score(r.Context(), ds)
	s.metrics.scoreDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	s.metrics.recordsScored.Add(float64(len(report.Scored)))
	s.metrics.recordsSkipped.Add(float64(len(report.Skipped)))

	s.logger.Debug("scored upload",
		zap.String("request_id", RequestID(r.Context())),
		zap.String("source", name),
		zap.String("run_id", report.RunID),
		zap.Int("records", len(report.Scored)),
		zap.Int("skipped", len(report.Skipped)),
	)

	return report, nil
}

// requestOptions applies the policy, top_k and skip_threshold query overrides
func (s *Server) requestOptions(r *http.Request) (scoring.Options, error) {
	opts := s.cfg.Scoring
	opts.Logger = s.logger
	q := r.URL.Query()

	if v := q.Get("policy"); v != "" {
		policy, err := scoring.ParsePolicy(v)
		if err != nil {
			return opts, badRequest("policy: %v", err)
		}
		opts.Policy = policy
	}

	if v := q.Get("top_k"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil || k < 0 {
			return opts, badRequest("top_k must be a non-negative integer, got %q", v)
		}
		opts.TopK = k
	}

	if v := q.Get("skip_threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, badRequest("skip_threshold must be a number, got %q", v)
		}
		opts.SkipThreshold = t
	}

	return opts, nil
}

// openUpload returns the CSV stream: the "file" part of a multipart form,
// or the raw request body otherwise
func openUpload(r *http.Request) (io.Reader, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType != "multipart/form-data" {
		name := r.URL.Query().Get("name")
		if name == "" {
			name = defaultUploadName
		}
		return r.Body, name, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, "", badRequest("multipart: %v", err)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, "", badRequest(`multipart form has no "file" part`)
		}
		if err != nil {
			return nil, "", err
		}

		if part.FormName() != "file" {
			continue
		}

		name := part.FileName()
		if name == "" {
			name = defaultUploadName
		}
		return part, name, nil
	}
}

// classify maps an error to its HTTP status, response kind and metric label
func classify(err error) (int, string, string) {
	var maxBytes *http.MaxBytesError
	var bad *badRequestError

	switch {
	case errors.As(err, &maxBytes), errors.Is(err, errors.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge, errors.KindTooLarge, statusTooLarge
	case errors.Is(err, errBusy):
		return http.StatusServiceUnavailable, "busy", statusBusy
	case errors.As(err, &bad):
		return http.StatusBadRequest, "bad_request", statusBadRequest
	case errors.IsDatasetError(err):
		return http.StatusUnprocessableEntity, errors.Kind(err), statusRejected
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled", statusError
	default:
		return http.StatusInternalServerError, errors.KindInternal, statusError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind, label := classify(err)
	s.metrics.uploads.WithLabelValues(label).Inc()

	resp := errorResponse{
		Kind:      kind,
		Error:     err.Error(),
		RequestID: RequestID(r.Context()),
	}

	var missing *errors.MissingColumnError
	var malformed *errors.MalformedDataError
	var empty *errors.EmptyDatasetError
	switch {
	case errors.As(err, &missing):
		resp.Missing = missing.Missing
	case errors.As(err, &malformed):
		resp.Line = malformed.Line
		resp.Column = malformed.Column
		resp.Value = malformed.Value
		resp.Reason = malformed.Reason
	case errors.As(err, &empty):
		resp.Skipped = empty.Skipped
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", resp.RequestID),
			zap.Int("status", status),
			zap.Error(err),
		)
		// Internal details stay in the log
		if status == http.StatusInternalServerError {
			resp.Error = "internal error"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
