package compliance

var CorrectiveActionMachine = NewMachine("corrective_action", []TransitionRule[ActionState]{
	{From: ActionOpen, Action: ActionStart, To: ActionInProgress},
	{From: ActionOpen, Action: ActionImplement, To: ActionImplemented},
	{From: ActionInProgress, Action: ActionImplement, To: ActionImplemented},
	{From: ActionImplemented, Action: ActionVerify, To: ActionVerified},
}, ActionVerified)

func ApplyCorrectiveAction(current CorrectiveAction, t Transition) (Outcome[ActionState], error) {
	next, err := CorrectiveActionMachine.Next(current.State, t.Action)
	if err != nil {
		return Outcome[ActionState]{State: current.State}, err
	}

	out := Outcome[ActionState]{State: next}
	if next == ActionImplemented {
		out.Effects = append(out.Effects, NotifyEffect{EventType: EventActionImplemented, Fields: map[string]any{
			"description": current.Description,
			"incident_id": current.IncidentID,
			"finding_id":  current.FindingID,
			"actor":       t.Actor,
		}})
	}
	return out, nil
}
