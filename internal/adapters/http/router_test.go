package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ReviewScanner/internal/domain"
	"ReviewScanner/internal/usecase"
)

type sessionFake struct {
	state  domain.SessionState
	handle domain.SessionHandle
	err    error
	closed bool
}

func (f *sessionFake) Open(context.Context) (domain.SessionHandle, error) {
	if f.err != nil {
		return domain.SessionHandle{}, f.err
	}
	f.state = domain.SessionActive
	f.handle = domain.SessionHandle{ID: "s-1", HomeURL: "https://www.amazon.in/", OpenedAt: time.Unix(0, 0).UTC()}
	return f.handle, nil
}

func (f *sessionFake) State() domain.SessionState { return f.state }

func (f *sessionFake) Handle() (domain.SessionHandle, bool) {
	return f.handle, f.state == domain.SessionActive
}

func (f *sessionFake) Close() error {
	f.closed = true
	f.state = domain.SessionAbsent
	return nil
}

type analyzerFake struct {
	report  domain.Report
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *analyzerFake) Run(_ context.Context, productURL string) (domain.Report, error) {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	if f.err != nil {
		return domain.Report{}, f.err
	}
	report := f.report
	report.ProductURL = productURL
	return report, nil
}

type reportsFake struct {
	reports   []domain.Report
	lastLimit int
}

func (f *reportsFake) Save(context.Context, domain.Analysis) error { return nil }

func (f *reportsFake) Get(_ context.Context, id string) (domain.Report, error) {
	for _, r := range f.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Report{}, domain.WrapError(domain.ErrReportNotFound, "get report", errors.New("id="+id))
}

func (f *reportsFake) List(_ context.Context, limit int) ([]domain.Report, error) {
	f.lastLimit = limit
	return f.reports, nil
}

func newTestHandler(sessions SessionService, analyzer usecase.Analyzer, reports *reportsFake, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return NewRouter(sessions, analyzer, reports, usecase.NewRunGate(), opts).Handler()
}

func postAnalysis(handler http.Handler, url string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(map[string]string{"url": url})
	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestRunAnalysisReturnsReport(t *testing.T) {
	analyzer := &analyzerFake{report: domain.Report{ID: "r-1", ProductName: "Phone", Total: 3, FakeCount: 1, GenuineCount: 2, FakePercentage: 33.33, GenuinePercentage: 66.67}}
	handler := newTestHandler(&sessionFake{}, analyzer, &reportsFake{}, Options{})

	res := postAnalysis(handler, "https://www.amazon.in/x/dp/B0ABCDEFGH")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var got domain.Report
	if err := json.Unmarshal(res.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.FakePercentage != 33.33 || got.ProductURL != "https://www.amazon.in/x/dp/B0ABCDEFGH" {
		t.Fatalf("unexpected report: %+v", got)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestRunAnalysisMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid url", domain.ErrInvalidProductURL, http.StatusBadRequest},
		{"no session", domain.ErrSessionUnavailable, http.StatusConflict},
		{"session lost", domain.ErrSessionLost, http.StatusConflict},
		{"no reviews", domain.WrapError(domain.ErrNoReviewsFound, "harvest", errors.New("B0ABCDEFGH")), http.StatusUnprocessableEntity},
		{"model down", domain.ErrModelUnavailable, http.StatusServiceUnavailable},
		{"unknown label", domain.ErrUnknownLabel, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestHandler(&sessionFake{}, &analyzerFake{err: tc.err}, &reportsFake{}, Options{})
			res := postAnalysis(handler, "https://www.amazon.in/dp/B0ABCDEFGH")
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
		})
	}
}

func TestRunAnalysisRejectsEmptyBody(t *testing.T) {
	handler := newTestHandler(&sessionFake{}, &analyzerFake{}, &reportsFake{}, Options{})

	res := postAnalysis(handler, "  ")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestRunAnalysisReturns503WhileBusy(t *testing.T) {
	analyzer := &analyzerFake{started: make(chan struct{}), release: make(chan struct{})}
	handler := newTestHandler(&sessionFake{}, analyzer, &reportsFake{}, Options{})

	done := make(chan int, 1)
	go func() {
		done <- postAnalysis(handler, "https://www.amazon.in/dp/B0ABCDEFGH").Code
	}()
	<-analyzer.started

	res := postAnalysis(handler, "https://www.amazon.in/dp/B0ABCDEFGH")
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while busy, got %d", res.Code)
	}

	close(analyzer.release)
	if code := <-done; code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", code)
	}
}

func TestRateLimitReturns429(t *testing.T) {
	handler := newTestHandler(&sessionFake{}, &analyzerFake{}, &reportsFake{}, Options{RateLimit: 0.01, RateBurst: 1})

	if res := postAnalysis(handler, "https://www.amazon.in/dp/B0ABCDEFGH"); res.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res.Code)
	}
	res := postAnalysis(handler, "https://www.amazon.in/dp/B0ABCDEFGH")
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res.Code)
	}
	if res.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}
}

func TestSessionLifecycle(t *testing.T) {
	sessions := &sessionFake{state: domain.SessionAbsent}
	handler := newTestHandler(sessions, &analyzerFake{}, &reportsFake{}, Options{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/session", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("open expected 200, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/session", nil))
	var state sessionResponse
	if err := json.Unmarshal(res.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.State != domain.SessionActive || state.Session == nil || state.Session.ID != "s-1" {
		t.Fatalf("unexpected session state: %+v", state)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/v1/session", nil))
	if res.Code != http.StatusNoContent || !sessions.closed {
		t.Fatalf("close expected 204, got %d closed=%v", res.Code, sessions.closed)
	}
}

func TestCloseSessionReturns503WhileAnalysing(t *testing.T) {
	sessions := &sessionFake{state: domain.SessionActive}
	analyzer := &analyzerFake{started: make(chan struct{}), release: make(chan struct{})}
	handler := newTestHandler(sessions, analyzer, &reportsFake{}, Options{})

	done := make(chan int, 1)
	go func() {
		done <- postAnalysis(handler, "https://www.amazon.in/dp/B0ABCDEFGH").Code
	}()
	<-analyzer.started

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/v1/session", nil))
	if res.Code != http.StatusServiceUnavailable || sessions.closed {
		t.Fatalf("close during analysis expected 503 and an open session, got %d closed=%v", res.Code, sessions.closed)
	}

	close(analyzer.release)
	if code := <-done; code != http.StatusOK {
		t.Fatalf("analysis expected 200, got %d", code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/v1/session", nil))
	if res.Code != http.StatusNoContent || !sessions.closed {
		t.Fatalf("close after analysis expected 204, got %d closed=%v", res.Code, sessions.closed)
	}
}

func TestOpenSessionMapsInitFailureTo503(t *testing.T) {
	sessions := &sessionFake{err: domain.WrapError(domain.ErrSessionInit, "launch", errors.New("no chrome"))}
	handler := newTestHandler(sessions, &analyzerFake{}, &reportsFake{}, Options{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/session", nil))
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestAnalysesHistory(t *testing.T) {
	reports := &reportsFake{reports: []domain.Report{{ID: "r-1"}, {ID: "r-2"}}}
	handler := newTestHandler(&sessionFake{}, &analyzerFake{}, reports, Options{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/analyses?limit=5", nil))
	if res.Code != http.StatusOK || reports.lastLimit != 5 {
		t.Fatalf("list expected 200 with limit 5, got %d limit=%d", res.Code, reports.lastLimit)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/analyses?limit=zero", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("bad limit expected 400, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/analyses/r-2", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("get expected 200, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/analyses/missing", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("missing expected 404, got %d", res.Code)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	handler := newTestHandler(&sessionFake{}, &analyzerFake{}, &reportsFake{}, Options{Metrics: metrics})

	for _, path := range []string{"/healthz", "/metrics"} {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
		if res.Code != http.StatusOK {
			t.Fatalf("%s expected 200, got %d", path, res.Code)
		}
	}
}
