// Package httpadapter exposes session control and analyses over JSON/HTTP.
package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"ReviewScanner/internal/domain"
	"ReviewScanner/internal/ports"
	"ReviewScanner/internal/usecase"
)

const defaultListLimit = 20

// SessionService is the session manager surface the API drives.
type SessionService interface {
	Open(ctx context.Context) (domain.SessionHandle, error)
	State() domain.SessionState
	Handle() (domain.SessionHandle, bool)
	Close() error
}

// Options configures cross-cutting behaviour of the router.
type Options struct {
	RateLimit float64
	RateBurst int
	Logger    *slog.Logger
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Instrument wraps the whole handler chain, e.g. with request metrics.
	Instrument func(http.Handler) http.Handler
}

type Router struct {
	sessions SessionService
	analyzer usecase.Analyzer
	reports  ports.ReportRepository
	gate     usecase.Gate
	opts     Options
}

func NewRouter(
	sessions SessionService,
	analyzer usecase.Analyzer,
	reports ports.ReportRepository,
	gate usecase.Gate,
	opts Options,
) *Router {
	if gate == nil {
		gate = usecase.NewRunGate()
	}
	return &Router{
		sessions: sessions,
		analyzer: analyzer,
		reports:  reports,
		gate:     gate,
		opts:     opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/session", rt.openSession)
	mux.HandleFunc("GET /v1/session", rt.sessionState)
	mux.HandleFunc("DELETE /v1/session", rt.closeSession)
	mux.Handle("POST /v1/analyses", rateLimitMiddleware(http.HandlerFunc(rt.runAnalysis), rt.opts.RateLimit, rt.opts.RateBurst))
	mux.HandleFunc("GET /v1/analyses", rt.listAnalyses)
	mux.HandleFunc("GET /v1/analyses/{id}", rt.getAnalysis)
	if rt.opts.Metrics != nil {
		mux.Handle("GET /metrics", rt.opts.Metrics)
	}

	var handler http.Handler = mux
	if rt.opts.Instrument != nil {
		handler = rt.opts.Instrument(handler)
	}
	return requestIDMiddleware(accessLogMiddleware(rt.opts.Logger, handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sessionResponse struct {
	State   domain.SessionState   `json:"state"`
	Session *domain.SessionHandle `json:"session,omitempty"`
}

func (rt *Router) openSession(w http.ResponseWriter, r *http.Request) {
	handle, err := rt.sessions.Open(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{State: domain.SessionActive, Session: &handle})
}

func (rt *Router) sessionState(w http.ResponseWriter, _ *http.Request) {
	resp := sessionResponse{State: rt.sessions.State()}
	if handle, ok := rt.sessions.Handle(); ok {
		resp.Session = &handle
	}
	writeJSON(w, http.StatusOK, resp)
}

// closeSession refuses with ErrBusy while an analysis holds the gate.
func (rt *Router) closeSession(w http.ResponseWriter, _ *http.Request) {
	if !rt.gate.TryAcquire() {
		writeDomainError(w, domain.ErrBusy)
		return
	}
	defer rt.gate.Release()

	if err := rt.sessions.Close(); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) runAnalysis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	if !rt.gate.TryAcquire() {
		writeDomainError(w, domain.ErrBusy)
		return
	}
	defer rt.gate.Release()

	report, err := rt.analyzer.Run(r.Context(), req.URL)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) listAnalyses(w http.ResponseWriter, r *http.Request) {
	if rt.reports == nil {
		writeJSON(w, http.StatusOK, []domain.Report{})
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	reports, err := rt.reports.List(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if reports == nil {
		reports = []domain.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func (rt *Router) getAnalysis(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if rt.reports == nil {
		writeDomainError(w, domain.ErrReportNotFound)
		return
	}

	report, err := rt.reports.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, mapErrorToHTTPStatus(err), err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
