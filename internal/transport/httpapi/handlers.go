package httpapi

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/ports"
	"sstcompliance/internal/usecase/compliance"
)

type riskRequest struct {
	Probability int `json:"probability"`
	Severity    int `json:"severity"`
}

func (s *server) calcRisk(w http.ResponseWriter, r *http.Request) {
	var req riskRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	out, err := domain.ScoreRisk(req.Probability, req.Severity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type triageRequest struct {
	Injury string `json:"injury_severity"`
	Damage string `json:"damage_severity"`
	Notify *bool  `json:"notify,omitempty"`
}

type triageResponse struct {
	SeverityScore  int                 `json:"severity_score"`
	Priority       domain.PriorityTier `json:"priority_tier"`
	ResponseTarget string              `json:"response_target"`
	Notify         bool                `json:"notify"`
}

func (s *server) calcTriage(w http.ResponseWriter, r *http.Request) {
	var req triageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	out, err := domain.Triage(req.Injury, req.Damage)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Notify != nil {
		out = out.WithNotifyOverride(*req.Notify)
	}
	writeJSON(w, http.StatusOK, triageResponse{
		SeverityScore:  out.SeverityScore,
		Priority:       out.Priority,
		ResponseTarget: out.ResponseTarget.String(),
		Notify:         out.Notify,
	})
}

type scheduleRequest struct {
	Start     string `json:"start"`
	Frequency string `json:"frequency"`
	Count     int    `json:"count"`
}

type scheduleResponse struct {
	Frequency domain.Frequency `json:"frequency"`
	Dates     []time.Time      `json:"dates"`
}

func (s *server) calcSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	start, err := parseTime("start", req.Start)
	if err != nil {
		writeError(w, err)
		return
	}
	freq, err := domain.ParseFrequency(req.Frequency)
	if err != nil {
		writeError(w, err)
		return
	}
	dates, err := domain.Schedule(start, freq, req.Count, s.svc.Rules().MaxRepeats)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleResponse{Frequency: freq, Dates: dates})
}

type expiryRequest struct {
	IssueDate      string `json:"issue_date"`
	ValidityMonths int    `json:"validity_months"`
	// Now defaults to the server clock.
	Now string `json:"now,omitempty"`
}

func (s *server) calcExpiry(w http.ResponseWriter, r *http.Request) {
	var req expiryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	issue, err := parseTime("issue_date", req.IssueDate)
	if err != nil {
		writeError(w, err)
		return
	}
	now, err := s.optionalTime("now", req.Now)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := domain.TrackExpiry(issue, req.ValidityMonths, now)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) indicators(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		input compliance.IndicatorsInput
		err   error
	)
	if input.Period, err = periodFromQuery(q.Get("from"), q.Get("to")); err != nil {
		writeError(w, err)
		return
	}
	if input.PersonHours, err = floatParam("person_hours", q.Get("person_hours")); err != nil {
		writeError(w, err)
		return
	}
	if input.AverageWorkers, err = floatParam("average_workers", q.Get("average_workers")); err != nil {
		writeError(w, err)
		return
	}
	if raw := strings.TrimSpace(q.Get("lost_days")); raw != "" {
		v, convErr := strconv.Atoi(raw)
		if convErr != nil {
			writeBadRequest(w, "lost_days", "lost_days must be an integer")
			return
		}
		input.LostDays = &v
	}

	report, err := s.svc.ComputeIndicators(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *server) equipmentDue(w http.ResponseWriter, r *http.Request) {
	at, err := s.optionalTime("at", r.URL.Query().Get("at"))
	if err != nil {
		writeError(w, err)
		return
	}
	due, err := s.svc.EquipmentDue(r.Context(), at, r.URL.Query().Get("worker_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": due, "count": len(due)})
}

type closeFindingRequest struct {
	Actor           string   `json:"actor"`
	ClosureDate     string   `json:"closure_date,omitempty"`
	ClosureEvidence []string `json:"closure_evidence,omitempty"`
	Comments        string   `json:"comments,omitempty"`
}

func (s *server) closeFinding(w http.ResponseWriter, r *http.Request) {
	var req closeFindingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	input := compliance.CloseFindingInput{
		FindingID:       chi.URLParam(r, "id"),
		Actor:           req.Actor,
		ClosureEvidence: req.ClosureEvidence,
		Comments:        req.Comments,
	}
	if strings.TrimSpace(req.ClosureDate) != "" {
		at, err := parseTime("closure_date", req.ClosureDate)
		if err != nil {
			writeError(w, err)
			return
		}
		input.ClosureDate = at
	}

	finding, err := s.svc.CloseFinding(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, finding)
}

type actionRequest struct {
	Actor    string   `json:"actor"`
	Progress *int     `json:"progress,omitempty"`
	Comments string   `json:"comments,omitempty"`
	Evidence []string `json:"evidence,omitempty"`
}

// transitionAction applies {action} to a corrective action. "update" records
// progress without a transition.
func (s *server) transitionAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	action := domain.Action(strings.ToLower(chi.URLParam(r, "action")))
	if action == "update" {
		action = ""
	}

	out, err := s.svc.UpdateCorrectiveAction(r.Context(), compliance.UpdateCorrectiveActionInput{
		ActionID:   chi.URLParam(r, "id"),
		Actor:      req.Actor,
		Progress:   req.Progress,
		Comments:   req.Comments,
		Evidence:   req.Evidence,
		Transition: action,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) optionalTime(field string, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return s.now().UTC(), nil
	}
	return parseTime(field, raw)
}

// parseTime accepts RFC 3339 timestamps and plain dates.
func parseTime(field string, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, &domain.ValidationError{Field: field, Reason: "is required"}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, &domain.ValidationError{Field: field, Reason: "expected RFC 3339 timestamp or YYYY-MM-DD"}
	}
	return t, nil
}

func periodFromQuery(from string, to string) (ports.Period, error) {
	var (
		p   ports.Period
		err error
	)
	if strings.TrimSpace(from) != "" {
		if p.From, err = parseTime("from", from); err != nil {
			return ports.Period{}, err
		}
	}
	if strings.TrimSpace(to) != "" {
		if p.To, err = parseTime("to", to); err != nil {
			return ports.Period{}, err
		}
	}
	if !p.From.IsZero() && !p.To.IsZero() && !p.From.Before(p.To) {
		return ports.Period{}, &domain.ValidationError{Field: "to", Reason: "must be after from"}
	}
	return p, nil
}

func floatParam(field string, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, &domain.ValidationError{Field: field, Reason: "must be a non-negative number"}
	}
	return v, nil
}
