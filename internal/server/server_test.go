package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zuhrulumam/cropscore/internal/models"
	"github.com/zuhrulumam/cropscore/internal/scoring"
)

const cropsCSV = "Field,Crop,Yield,Water_Use,Fertilizer_Use\n" +
	"A,Wheat,4,2,1\n" +
	"A,Corn,6,3,2\n" +
	"B,Rice,5,1,1\n"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()

	if cfg.Scoring.TopK == 0 {
		cfg.Scoring.TopK = scoring.DefaultTopK
	}
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func do(s *Server, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestScore_RawBody(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := do(s, http.MethodPost, "/api/v1/score?name=north.csv", strings.NewReader(cropsCSV), "text/csv")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))

	assert.Equal(t, "north.csv", report.Source)
	assert.Len(t, report.Scored, 3)
	require.Len(t, report.PerField, 2)
	assert.Equal(t, "Wheat", report.PerField[0].Crop, "first row wins the tie in field A")
	assert.Equal(t, "Rice", report.PerField[1].Crop)
	assert.Equal(t, "Rice", report.Best.Crop)
	assert.Equal(t, 4, report.Best.Line)
	assert.Equal(t, scoring.DefaultTopK, report.K)
}

func TestScore_Multipart(t *testing.T) {
	s := newTestServer(t, Config{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "ignored"))
	part, err := mw.CreateFormFile("file", "south.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(cropsCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := do(s, http.MethodPost, "/api/v1/score", &body, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "south.csv", report.Source)
	assert.Equal(t, "Rice", report.Best.Crop)
}

func TestScore_MultipartWithoutFile(t *testing.T) {
	s := newTestServer(t, Config{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "no csv here"))
	require.NoError(t, mw.Close())

	rec := do(s, http.MethodPost, "/api/v1/score", &body, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decodeError(t, rec).Kind)
}

func TestScore_Errors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		body       string
		wantStatus int
		check      func(t *testing.T, resp errorResponse)
	}{
		{
			name:       "missing columns",
			body:       "Field,Crop,Yield\nA,Wheat,4\n",
			wantStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, "missing_columns", resp.Kind)
				assert.Equal(t, []string{"Water_Use", "Fertilizer_Use"}, resp.Missing)
			},
		},
		{
			name:       "malformed row",
			body:       "Field,Crop,Yield,Water_Use,Fertilizer_Use\nA,Wheat,abc,2,1\n",
			wantStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, "malformed_data", resp.Kind)
				assert.Equal(t, 2, resp.Line)
				assert.Equal(t, "Yield", resp.Column)
				assert.Equal(t, "abc", resp.Value)
				assert.Equal(t, "not a number", resp.Reason)
			},
		},
		{
			name:       "empty body",
			body:       "",
			wantStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, "empty_dataset", resp.Kind)
			},
		},
		{
			name:       "header only",
			body:       "Field,Crop,Yield,Water_Use,Fertilizer_Use\n",
			wantStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, "empty_dataset", resp.Kind)
			},
		},
		{
			name:       "every row skipped",
			query:      "?policy=skip",
			body:       "Field,Crop,Yield,Water_Use,Fertilizer_Use\nA,Wheat,-1,2,1\n",
			wantStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, "empty_dataset", resp.Kind)
				assert.Equal(t, 1, resp.Skipped)
			},
		},
		{
			name:       "unknown policy",
			query:      "?policy=ignore",
			body:       cropsCSV,
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, "bad_request", resp.Kind)
			},
		},
		{
			name:       "negative top_k",
			query:      "?top_k=-1",
			body:       cropsCSV,
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, "bad_request", resp.Kind)
			},
		},
		{
			name:       "skip threshold out of range",
			query:      "?policy=skip&skip_threshold=2",
			body:       cropsCSV,
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, "bad_request", resp.Kind)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, Config{})

			rec := do(s, http.MethodPost, "/api/v1/score"+tt.query, strings.NewReader(tt.body), "text/csv")
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			resp := decodeError(t, rec)
			assert.NotEmpty(t, resp.Error)
			tt.check(t, resp)
		})
	}
}

func TestScore_QueryOverrides(t *testing.T) {
	s := newTestServer(t, Config{})

	body := cropsCSV + "B,Oats,n/a,1,1\n"
	rec := do(s, http.MethodPost, "/api/v1/score?policy=skip&top_k=1", strings.NewReader(body), "text/csv")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))

	assert.Equal(t, "skip", report.Policy)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, 5, report.Skipped[0].Line)
	assert.Equal(t, 1, report.K)
	assert.Len(t, report.TopK, len(report.PerField))
}

func TestScore_TooLarge(t *testing.T) {
	t.Run("body limit", func(t *testing.T) {
		s := newTestServer(t, Config{MaxUploadBytes: 32})

		rec := do(s, http.MethodPost, "/api/v1/score", strings.NewReader(cropsCSV), "text/csv")
		require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
		assert.Equal(t, "too_large", decodeError(t, rec).Kind)
	})

	t.Run("record limit", func(t *testing.T) {
		s := newTestServer(t, Config{MaxRecords: 2})

		rec := do(s, http.MethodPost, "/api/v1/score", strings.NewReader(cropsCSV), "text/csv")
		require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
		assert.Equal(t, "too_large", decodeError(t, rec).Kind)
	})
}

func TestScore_Busy(t *testing.T) {
	s := newTestServer(t, Config{MaxConcurrent: 1, QueueTimeout: 10 * time.Millisecond})

	require.True(t, s.sem.TryAcquire())
	defer s.sem.Release()

	rec := do(s, http.MethodPost, "/api/v1/score", strings.NewReader(cropsCSV), "text/csv")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
	assert.Equal(t, "busy", decodeError(t, rec).Kind)
}

func TestChart(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := do(s, http.MethodPost, "/api/v1/chart", strings.NewReader(cropsCSV), "text/csv")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = do(s, http.MethodPost, "/api/v1/chart", strings.NewReader("Field\nA\n"), "text/csv")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := do(s, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, Config{})

	do(s, http.MethodPost, "/api/v1/score", strings.NewReader(cropsCSV), "text/csv")
	do(s, http.MethodPost, "/api/v1/score", strings.NewReader("Field,Crop\nA,Wheat\n"), "text/csv")

	rec := do(s, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `cropscore_uploads_total{status="ok"} 1`)
	assert.Contains(t, body, `cropscore_uploads_total{status="rejected"} 1`)
	assert.Contains(t, body, "cropscore_records_scored_total 3")
	assert.Contains(t, body, "cropscore_records_skipped_total 0")
	assert.Contains(t, body, "cropscore_score_duration_seconds_count 2")
}

func TestRequestIDPropagation(t *testing.T) {
	s := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/score", strings.NewReader("Field\nA\n"))
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-42", decodeError(t, rec).RequestID)
}

func TestNew_InvalidScoringDefaults(t *testing.T) {
	_, err := New(Config{Scoring: scoring.Options{SkipThreshold: -1}})
	assert.Error(t, err)
}

func TestServe_GracefulShutdown(t *testing.T) {
	s := newTestServer(t, Config{ShutdownTimeout: time.Second})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, ln)
	}()

	client := &http.Client{
		Timeout:   2 * time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
	}

	resp, err := client.Post("http://"+ln.Addr().String()+"/api/v1/score", "text/csv", strings.NewReader(cropsCSV))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
