package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sstcompliance/internal/bootstrap/logging"
	domain "sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/usecase/compliance"
)

// Service is the part of the compliance usecase the API exposes.
type Service interface {
	Rules() compliance.Rules
	ComputeIndicators(ctx context.Context, input compliance.IndicatorsInput) (compliance.IndicatorReport, error)
	EquipmentDue(ctx context.Context, now time.Time, workerID string) ([]compliance.DueAssignment, error)
	CloseFinding(ctx context.Context, input compliance.CloseFindingInput) (domain.Finding, error)
	UpdateCorrectiveAction(ctx context.Context, input compliance.UpdateCorrectiveActionInput) (domain.CorrectiveAction, error)
}

type Options struct {
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Now defaults to time.Now.
	Now func() time.Time
}

type server struct {
	svc Service
	now func() time.Time
}

// NewRouter builds the JSON API. Calculators are pure; the remaining routes
// go through svc.
func NewRouter(ctx context.Context, svc Service, opts Options) chi.Router {
	s := &server{svc: svc, now: opts.Now}
	if s.now == nil {
		s.now = time.Now
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "transport.httpapi"))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logCtx))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/calc", func(r chi.Router) {
			r.Post("/risk", s.calcRisk)
			r.Post("/triage", s.calcTriage)
			r.Post("/schedule", s.calcSchedule)
			r.Post("/expiry", s.calcExpiry)
		})
		r.Get("/reports/indicators", s.indicators)
		r.Get("/ppe/due", s.equipmentDue)
		r.Post("/findings/{id}/close", s.closeFinding)
		r.Post("/actions/{id}/actions/{action}", s.transitionAction)
	})
	return r
}

// requestLogger logs one line per request with the status and latency.
func requestLogger(ctx context.Context) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			reqCtx := logging.Inherit(r.Context(), ctx)
			reqCtx = logging.WithAttrs(reqCtx, slog.String("request_id", middleware.GetReqID(r.Context())))
			next.ServeHTTP(ww, r.WithContext(reqCtx))

			logging.Info(ctx, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("elapsed", time.Since(started)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
