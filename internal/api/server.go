// Package api exposes the brief pipeline and the run log over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/meetingintel/internal/identity"
	"github.com/sells-group/meetingintel/internal/metrics"
	"github.com/sells-group/meetingintel/internal/model"
	"github.com/sells-group/meetingintel/internal/pipeline"
	"github.com/sells-group/meetingintel/internal/store"
)

// MaxListLimit caps GET /v1/runs.
const MaxListLimit = 500

// Analyzer produces one brief. *pipeline.Service satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, req identity.Request) (*pipeline.Result, error)
}

// RunLister reads the run log. store.Store satisfies it.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.RunRecord, error)
}

// Options configure the router.
type Options struct {
	// Timeout bounds each request. Zero disables it.
	Timeout        time.Duration
	AllowedOrigins []string
	// APIKeys enables bearer auth on /v1 routes when non-empty.
	APIKeys      []string
	MaxBodyBytes int64
}

// Server holds the handler dependencies.
type Server struct {
	briefs Analyzer
	runs   RunLister
	opts   Options
}

// NewServer creates a Server. runs may be nil, in which case GET /v1/runs
// answers 404.
func NewServer(briefs Analyzer, runs RunLister, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 << 10
	}
	return &Server{briefs: briefs, runs: runs, opts: opts}
}

// Router builds the chi router with middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(jsonRecoverer)
	r.Use(metrics.Middleware())
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"Retry-After", "X-Run-Id", "X-Brief-Outcome"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(BearerAuth(s.opts.APIKeys))
		if s.opts.Timeout > 0 {
			r.Use(chiMiddleware.Timeout(s.opts.Timeout))
		}
		r.Post("/briefs", s.handleBrief)
		r.Get("/runs", s.handleRuns)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBrief(w http.ResponseWriter, r *http.Request) {
	var req identity.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}

	res, err := s.briefs.Analyze(r.Context(), req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	w.Header().Set("X-Run-Id", res.RunID)
	w.Header().Set("X-Brief-Outcome", string(res.Brief.Outcome))
	if res.CacheHit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	writeJSON(w, http.StatusOK, res.Brief)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "run log is not configured")
		return
	}

	filter, err := parseRunFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	recs, err := s.runs.ListRuns(r.Context(), filter)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if recs == nil {
		recs = []model.RunRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": recs})
}

func parseRunFilter(r *http.Request) (store.RunFilter, error) {
	q := r.URL.Query()
	var f store.RunFilter

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return f, errors.New("limit must be a positive integer")
		}
		f.Limit = min(n, MaxListLimit)
	}

	switch o := model.Outcome(q.Get("outcome")); o {
	case "":
	case model.OutcomeSuccess, model.OutcomeFallback:
		f.Outcome = o
	default:
		return f, errors.New("outcome must be success or fallback")
	}

	switch m := model.InputMode(q.Get("mode")); m {
	case "":
	case model.InputModeEmail, model.InputModeNameCompany, model.InputModeSocial:
		f.Mode = m
	default:
		return f, errors.New("mode must be email, name_company or social")
	}

	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, errors.New("since must be an RFC 3339 timestamp")
		}
		f.Since = t
	}
	return f, nil
}

func jsonRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				zap.L().Error("api: panic recovered",
					zap.Any("panic", rec),
					zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
					zap.String("path", r.URL.Path),
				)
				writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
