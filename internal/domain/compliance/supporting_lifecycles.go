package compliance

var RiskMachine = NewMachine("risk_assessment", []TransitionRule[RiskState]{
	{From: RiskPending, Action: ActionMitigate, To: RiskMitigating},
	{From: RiskPending, Action: ActionControl, To: RiskControlled},
	{From: RiskMitigating, Action: ActionControl, To: RiskControlled},
}, RiskControlled)

var InspectionMachine = NewMachine("inspection", []TransitionRule[InspectionState]{
	{From: InspectionScheduled, Action: ActionStart, To: InspectionInProgress},
	{From: InspectionScheduled, Action: ActionComplete, To: InspectionCompleted},
	{From: InspectionInProgress, Action: ActionComplete, To: InspectionCompleted},
}, InspectionCompleted)

var TrainingMachine = NewMachine("training", []TransitionRule[TrainingState]{
	{From: TrainingScheduled, Action: ActionHold, To: TrainingHeld},
	{From: TrainingScheduled, Action: ActionCancel, To: TrainingCancelled},
}, TrainingHeld, TrainingCancelled)

func ApplyRisk(current RiskAssessment, t Transition) (Outcome[RiskState], error) {
	next, err := RiskMachine.Next(current.State, t.Action)
	if err != nil {
		return Outcome[RiskState]{State: current.State}, err
	}
	return Outcome[RiskState]{State: next}, nil
}

func ApplyInspection(current Inspection, t Transition) (Outcome[InspectionState], error) {
	next, err := InspectionMachine.Next(current.State, t.Action)
	if err != nil {
		return Outcome[InspectionState]{State: current.State}, err
	}
	out := Outcome[InspectionState]{State: next}
	if next == InspectionCompleted {
		out.Effects = append(out.Effects, RecordClosureEffect{At: t.At})
	}
	return out, nil
}

func ApplyTraining(current Training, t Transition) (Outcome[TrainingState], error) {
	next, err := TrainingMachine.Next(current.State, t.Action)
	if err != nil {
		return Outcome[TrainingState]{State: current.State}, err
	}
	return Outcome[TrainingState]{State: next}, nil
}
