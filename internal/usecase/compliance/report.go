package compliance

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"sstcompliance/internal/bootstrap/logging"
	domain "sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/ports"
)

const cacheLastIndicatorsKey = "report:last_indicators"

type IndicatorsInput struct {
	Period         ports.Period
	PersonHours    float64 `validate:"gte=0"`
	AverageWorkers float64 `validate:"gte=0"`
	// LostDays is the recorded lost-time total. Nil uses the placeholder.
	LostDays *int
}

type IndicatorReport struct {
	From       time.Time         `json:"from"`
	To         time.Time         `json:"to"`
	ComputedAt time.Time         `json:"computed_at"`
	Indicators domain.Indicators `json:"indicators"`
}

// ComputeIndicators aggregates the incidents that occurred in the period and
// keeps the result as the last snapshot.
func (s *Service) ComputeIndicators(ctx context.Context, input IndicatorsInput) (IndicatorReport, error) {
	logCtx, err := s.begin(ctx, "compute_indicators")
	if err != nil {
		return IndicatorReport{}, err
	}
	if err := validateInput(input); err != nil {
		return IndicatorReport{}, err
	}
	for field, v := range map[string]float64{"person_hours": input.PersonHours, "average_workers": input.AverageWorkers} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return IndicatorReport{}, &domain.ValidationError{Field: field, Reason: "must be a finite number"}
		}
	}
	if input.LostDays != nil && *input.LostDays < 0 {
		return IndicatorReport{}, &domain.ValidationError{Field: "lost_days", Reason: "must not be negative"}
	}

	started := time.Now()
	incidents, err := s.repo.ListIncidents(ctx, input.Period)
	if err != nil {
		return IndicatorReport{}, errs.Wrap(err, "list incidents")
	}
	ind := domain.ComputeIndicators(domain.IndicatorInput{
		Incidents:                      incidents,
		PersonHours:                    input.PersonHours,
		AverageWorkers:                 input.AverageWorkers,
		LostDays:                       input.LostDays,
		PlaceholderLostDaysPerAccident: s.rules.PlaceholderLostDaysPerAccident,
	})
	if s.recorder != nil {
		s.recorder.ObserveIndicators(time.Since(started).Seconds())
	}

	report := IndicatorReport{
		From:       input.Period.From,
		To:         input.Period.To,
		ComputedAt: s.clock(),
		Indicators: ind,
	}
	if raw, err := json.Marshal(report); err == nil {
		s.setCacheBestEffort(ctx, cacheLastIndicatorsKey, string(raw))
	}

	logging.Info(logCtx, "indicators computed",
		slog.Int("incidents", ind.IncidentCount),
		slog.Int("accidents", ind.AccidentCount),
		slog.Float64("frequency_rate", ind.FrequencyRate),
		slog.Bool("lost_days_estimated", ind.LostDaysEstimated),
	)
	return report, nil
}

// LastIndicators returns the most recent snapshot, if any was cached.
func (s *Service) LastIndicators(ctx context.Context) (IndicatorReport, bool, error) {
	if _, err := s.begin(ctx, "last_indicators"); err != nil {
		return IndicatorReport{}, false, err
	}
	if s.cache == nil {
		return IndicatorReport{}, false, nil
	}
	raw, found, err := s.cache.Get(ctx, cacheLastIndicatorsKey)
	if err != nil || !found {
		return IndicatorReport{}, false, err
	}
	var report IndicatorReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return IndicatorReport{}, false, errs.Wrap(err, "decode cached indicators")
	}
	return report, true, nil
}

// CompletionReport rolls up completion percentages. Findings, actions and
// trainings are limited to the period; documents are always the full set.
func (s *Service) CompletionReport(ctx context.Context, period ports.Period) (domain.Completion, error) {
	logCtx, err := s.begin(ctx, "completion_report")
	if err != nil {
		return domain.Completion{}, err
	}

	findings, err := s.repo.ListFindings(ctx, ports.FindingFilter{Period: period})
	if err != nil {
		return domain.Completion{}, errs.Wrap(err, "list findings")
	}
	actions, err := s.repo.ListCorrectiveActions(ctx, ports.ActionFilter{Period: period})
	if err != nil {
		return domain.Completion{}, errs.Wrap(err, "list corrective actions")
	}
	trainings, err := s.repo.ListTrainings(ctx, period)
	if err != nil {
		return domain.Completion{}, errs.Wrap(err, "list trainings")
	}
	documents, err := s.repo.ListDocuments(ctx, nil)
	if err != nil {
		return domain.Completion{}, errs.Wrap(err, "list documents")
	}

	out := domain.ComputeCompletion(domain.CompletionInput{
		Findings:  findings,
		Actions:   actions,
		Trainings: trainings,
		Documents: documents,
	})
	logging.Info(logCtx, "completion computed",
		slog.Float64("findings_closed_pct", out.FindingsClosedPct),
		slog.Float64("actions_verified_pct", out.ActionsVerifiedPct),
	)
	return out, nil
}
