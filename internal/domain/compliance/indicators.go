package compliance

import "math"

// DefaultLostDaysPerAccident is the placeholder used when no recorded
// lost-time figure is supplied.
const DefaultLostDaysPerAccident = 15

// Legal thresholds for the statutory indicators.
const (
	TargetFrequencyRate  = 5.0
	TargetSeverityRate   = 100.0
	TargetIncidenceIndex = 1.0
)

type IndicatorInput struct {
	Incidents      []Incident
	PersonHours    float64
	AverageWorkers float64
	// LostDays is the recorded lost-time figure. Nil falls back to
	// accidents * PlaceholderLostDaysPerAccident.
	LostDays                       *int
	PlaceholderLostDaysPerAccident int
}

type TargetStatus struct {
	FrequencyRate  bool `json:"frequency_rate"`
	SeverityRate   bool `json:"severity_rate"`
	IncidenceIndex bool `json:"incidence_index"`
	ZeroAccidents  bool `json:"zero_accidents"`
}

type Indicators struct {
	IncidentCount     int                  `json:"incident_count"`
	AccidentCount     int                  `json:"accident_count"`
	CountsByType      map[IncidentType]int `json:"counts_by_type"`
	LostDays          int                  `json:"lost_days"`
	LostDaysEstimated bool                 `json:"lost_days_estimated"`
	PersonHours       float64              `json:"person_hours"`
	AverageWorkers    float64              `json:"average_workers"`
	FrequencyRate     float64              `json:"frequency_rate"`
	SeverityRate      float64              `json:"severity_rate"`
	IncidenceIndex    float64              `json:"incidence_index"`
	Targets           TargetStatus         `json:"targets"`
}

// ComputeIndicators derives the statutory rates. Non-positive denominators
// produce zero rates.
func ComputeIndicators(in IndicatorInput) Indicators {
	out := Indicators{
		IncidentCount:  len(in.Incidents),
		CountsByType:   make(map[IncidentType]int),
		PersonHours:    in.PersonHours,
		AverageWorkers: in.AverageWorkers,
	}
	for _, inc := range in.Incidents {
		out.CountsByType[inc.Type]++
		if inc.Type == IncidentTypeAccident {
			out.AccidentCount++
		}
	}

	if in.LostDays != nil {
		out.LostDays = *in.LostDays
	} else {
		perAccident := in.PlaceholderLostDaysPerAccident
		if perAccident <= 0 {
			perAccident = DefaultLostDaysPerAccident
		}
		out.LostDays = out.AccidentCount * perAccident
		out.LostDaysEstimated = true
	}

	out.FrequencyRate = perMillion(float64(out.AccidentCount), in.PersonHours)
	out.SeverityRate = perMillion(float64(out.LostDays), in.PersonHours)
	if in.AverageWorkers > 0 {
		out.IncidenceIndex = float64(out.AccidentCount) / in.AverageWorkers * 100
	}

	out.Targets = TargetStatus{
		FrequencyRate:  out.FrequencyRate < TargetFrequencyRate,
		SeverityRate:   out.SeverityRate < TargetSeverityRate,
		IncidenceIndex: out.IncidenceIndex < TargetIncidenceIndex,
		ZeroAccidents:  out.AccidentCount == 0,
	}
	return out
}

func perMillion(count float64, hours float64) float64 {
	if hours <= 0 || math.IsNaN(hours) {
		return 0
	}
	return count * 1_000_000 / hours
}

type CompletionInput struct {
	Findings  []Finding
	Actions   []CorrectiveAction
	Trainings []Training
	Documents []ControlledDocument
}

type Completion struct {
	FindingsClosedPct    float64 `json:"findings_closed_pct"`
	ActionsVerifiedPct   float64 `json:"actions_verified_pct"`
	TrainingsHeldPct     float64 `json:"trainings_held_pct"`
	DocumentsApprovedPct float64 `json:"documents_approved_pct"`
	AttendancePct        float64 `json:"attendance_pct"`
}

func ComputeCompletion(in CompletionInput) Completion {
	var out Completion
	out.FindingsClosedPct = percentWhere(in.Findings, func(f Finding) bool { return f.State == FindingClosed })
	out.ActionsVerifiedPct = percentWhere(in.Actions, func(a CorrectiveAction) bool { return a.State == ActionVerified })
	out.TrainingsHeldPct = percentWhere(in.Trainings, func(t Training) bool { return t.State == TrainingHeld })
	out.DocumentsApprovedPct = percentWhere(in.Documents, func(d ControlledDocument) bool { return d.Approved })

	var enrolled, attended int
	for _, t := range in.Trainings {
		for _, a := range t.Attendees {
			enrolled++
			if a.Attended {
				attended++
			}
		}
	}
	out.AttendancePct = Percent(attended, enrolled)
	return out
}

// Percent returns part/total*100, or zero when total is zero.
func Percent(part int, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func percentWhere[T any](items []T, done func(T) bool) float64 {
	n := 0
	for _, it := range items {
		if done(it) {
			n++
		}
	}
	return Percent(n, len(items))
}
