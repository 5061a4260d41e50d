package compliance

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"sstcompliance/internal/bootstrap/logging"
	domain "sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/ports"
)

// Rules are the tunable business parameters. Zero values fall back to the
// statutory defaults.
type Rules struct {
	MaxRepeats                     int
	FindingDueDays                 int
	ActionDueDays                  int
	RequireClosureEvidence         bool
	PlaceholderLostDaysPerAccident int
}

func DefaultRules() Rules {
	return Rules{
		MaxRepeats:                     domain.DefaultMaxRepeats,
		FindingDueDays:                 domain.DefaultFindingDueDays,
		ActionDueDays:                  domain.DefaultFindingDueDays,
		RequireClosureEvidence:         true,
		PlaceholderLostDaysPerAccident: domain.DefaultLostDaysPerAccident,
	}
}

// Recorder receives operational counters. *metrics.Recorder satisfies it.
type Recorder interface {
	RecordTransition(family, action, result string)
	RecordFindings(n int)
	ObserveIndicators(seconds float64)
}

type Service struct {
	repo     ports.ComplianceRepository
	uow      ports.UnitOfWork
	cache    ports.Cache
	notifier ports.Notifier
	evidence ports.EvidenceStore
	catalog  ports.ReferenceCatalog
	recorder Recorder
	rules    Rules
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

func WithNotifier(n ports.Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithEvidenceStore(e ports.EvidenceStore) Option { return func(s *Service) { s.evidence = e } }

func WithCatalog(c ports.ReferenceCatalog) Option { return func(s *Service) { s.catalog = c } }

func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

func WithRules(r Rules) Option { return func(s *Service) { s.rules = r } }

// WithClock replaces the wall clock. Every time-based guard reads it.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService wires compliance usecases with repository, transaction boundary
// and optional cache.
func NewService(repo ports.ComplianceRepository, uow ports.UnitOfWork, cache ports.Cache, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		uow:   uow,
		cache: cache,
		rules: DefaultRules(),
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.rules = s.rules.withDefaults()
	return s
}

func (r Rules) withDefaults() Rules {
	d := DefaultRules()
	if r.MaxRepeats <= 0 {
		r.MaxRepeats = d.MaxRepeats
	}
	if r.FindingDueDays <= 0 {
		r.FindingDueDays = d.FindingDueDays
	}
	if r.ActionDueDays <= 0 {
		r.ActionDueDays = d.ActionDueDays
	}
	if r.PlaceholderLostDaysPerAccident <= 0 {
		r.PlaceholderLostDaysPerAccident = d.PlaceholderLostDaysPerAccident
	}
	return r
}

func (s *Service) Rules() Rules { return s.rules }

// begin runs the shared guards and returns a logging context for operation.
func (s *Service) begin(ctx context.Context, operation string) (context.Context, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return nil, errors.New("compliance repository is required")
	}
	if s.uow == nil {
		return nil, errors.New("compliance unit of work is required")
	}
	return logging.WithAttrs(ctx,
		slog.String("component", "usecase.compliance"),
		slog.String("operation", operation),
	), nil
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// notifyBestEffort delivers notify effects after commit. Failures are logged
// and never returned.
func (s *Service) notifyBestEffort(ctx context.Context, entityID string, notices []domain.NotifyEffect) {
	if s.notifier == nil {
		return
	}
	for _, n := range notices {
		event := ports.Event{
			Type:       n.EventType,
			EntityID:   entityID,
			Fields:     n.Fields,
			OccurredAt: s.clock(),
		}
		if err := s.notifier.Notify(ctx, event); err != nil {
			logging.Warn(
				ctx,
				"notification failed",
				slog.String("event_type", n.EventType),
				slog.String("entity_id", entityID),
				slog.Any("err", errs.Loggable(err)),
			)
			continue
		}
		logging.Debug(ctx, "notification delivered",
			slog.String("event_type", n.EventType),
			slog.String("entity_id", entityID),
		)
	}
}

func (s *Service) setCacheBestEffort(ctx context.Context, key string, value string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, key, value, 0)
}

// observe counts a transition attempt by outcome.
func (s *Service) observe(family string, action domain.Action, err error) {
	if s.recorder == nil {
		return
	}
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidTransition):
		result = "rejected"
	case errors.Is(err, domain.ErrValidation):
		result = "invalid"
	case errors.Is(err, ports.ErrStaleRevision):
		result = "stale"
	default:
		result = "error"
	}
	s.recorder.RecordTransition(family, string(action), result)
}

func statusKey(kind string, id string) string {
	return kind + "_status:" + id
}

func actorOrSystem(actor string) string {
	if actor = strings.TrimSpace(actor); actor != "" {
		return actor
	}
	return "system"
}

func cleanList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
