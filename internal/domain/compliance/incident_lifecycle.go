package compliance

import (
	"strings"
	"time"
)

// Incidents with a score below this close directly when analysis is recorded.
const incidentShortCircuitScore = 5

var IncidentMachine = NewMachine("incident", []TransitionRule[IncidentState]{
	{From: IncidentReported, Action: ActionInvestigate, To: IncidentInvestigating},
	{From: IncidentReported, Action: ActionRecordAnalysis, To: IncidentAnalyzed},
	{From: IncidentInvestigating, Action: ActionRecordAnalysis, To: IncidentAnalyzed},
	{From: IncidentAnalyzed, Action: ActionClose, To: IncidentClosed},
}, IncidentClosed)

type IncidentTransition struct {
	Transition
	// Analysis is required for record_analysis and ignored otherwise.
	Analysis *Investigation
	// ActionDueDays defaults to seven.
	ActionDueDays int
}

func ApplyIncident(current Incident, t IncidentTransition) (Outcome[IncidentState], error) {
	next, err := IncidentMachine.Next(current.State, t.Action)
	if err != nil {
		return Outcome[IncidentState]{State: current.State}, err
	}

	out := Outcome[IncidentState]{State: next}
	switch t.Action {
	case ActionRecordAnalysis:
		if err := validateInvestigation(t.Analysis); err != nil {
			return Outcome[IncidentState]{State: current.State}, err
		}
		if current.SeverityScore < incidentShortCircuitScore {
			out.State = IncidentClosed
			out.Effects = append(out.Effects, RecordClosureEffect{At: t.At})
		}
		lines := RecommendationLines(t.Analysis.Recommendations)
		if len(lines) > 0 {
			dueDays := t.ActionDueDays
			if dueDays <= 0 {
				dueDays = DefaultFindingDueDays
			}
			out.Effects = append(out.Effects,
				SpawnCorrectiveActionsEffect{Descriptions: lines, DueDate: t.At.AddDate(0, 0, dueDays)},
				NotifyEffect{EventType: EventActionsCreated, Fields: map[string]any{
					"incident_code": current.Code,
					"action_count":  len(lines),
					"root_cause":    t.Analysis.RootCause,
				}},
			)
		}
	case ActionClose:
		out.Effects = append(out.Effects, RecordClosureEffect{At: t.At})
	}
	return out, nil
}

func validateInvestigation(inv *Investigation) error {
	if inv == nil {
		return invalid("investigation", "analysis data is required")
	}
	if inv.Method != "" && !inv.Method.Valid() {
		return invalid("method", "unrecognized investigation method %q", inv.Method)
	}
	if strings.TrimSpace(inv.RootCause) == "" {
		return invalid("root_cause", "root cause is required")
	}
	return nil
}

// RecommendationLines splits free text into one trimmed entry per non-blank
// line.
func RecommendationLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// IncidentCode formats the human reference of an incident reported at t.
func IncidentCode(t time.Time) string {
	return "INC-" + t.UTC().Format("20060102-150405")
}
