package compliance

import "time"

var FindingMachine = NewMachine("finding", []TransitionRule[FindingState]{
	{From: FindingOpen, Action: ActionStartCorrection, To: FindingInCorrection},
	{From: FindingOpen, Action: ActionClose, To: FindingClosed},
	{From: FindingInCorrection, Action: ActionClose, To: FindingClosed},
}, FindingClosed)

type FindingPolicy struct {
	RequireClosureEvidence bool
}

type FindingTransition struct {
	Transition
	ClosureDate     *time.Time
	ClosureEvidence []string
}

func ApplyFinding(current Finding, t FindingTransition, policy FindingPolicy) (Outcome[FindingState], error) {
	next, err := FindingMachine.Next(current.State, t.Action)
	if err != nil {
		return Outcome[FindingState]{State: current.State}, err
	}

	out := Outcome[FindingState]{State: next}
	if t.Action != ActionClose {
		return out, nil
	}

	if t.ClosureDate == nil || t.ClosureDate.IsZero() {
		return Outcome[FindingState]{State: current.State}, invalid("closure_date", "closing a finding requires a closure date")
	}
	if policy.RequireClosureEvidence && len(t.ClosureEvidence)+len(current.ClosureEvidence) == 0 {
		return Outcome[FindingState]{State: current.State}, invalid("closure_evidence", "closing a finding requires closure evidence")
	}
	out.Effects = append(out.Effects,
		RecordClosureEffect{At: *t.ClosureDate},
		NotifyEffect{EventType: EventFindingClosed, Fields: map[string]any{
			"description":  current.Description,
			"category":     current.Category,
			"closure_date": t.ClosureDate.Format(time.DateOnly),
			"closed_by":    t.Actor,
		}},
	)
	return out, nil
}
