package compliance

import "time"

var EquipmentMachine = NewMachine("equipment_assignment", []TransitionRule[EquipmentState]{
	{From: EquipmentActive, Action: ActionExpire, To: EquipmentExpired},
	{From: EquipmentActive, Action: ActionRenew, To: EquipmentRenewed},
}, EquipmentExpired, EquipmentRenewed)

type EquipmentTransition struct {
	Transition
	// ValidityMonths for the replacement assignment. Zero reuses the current one.
	ValidityMonths int
}

// ApplyEquipment never touches the dates of the current assignment. Renewal
// is returned as a RenewalEffect describing the new record.
func ApplyEquipment(current EquipmentAssignment, t EquipmentTransition) (Outcome[EquipmentState], error) {
	next, err := EquipmentMachine.Next(current.State, t.Action)
	if err != nil {
		return Outcome[EquipmentState]{State: current.State}, err
	}

	out := Outcome[EquipmentState]{State: next}
	switch t.Action {
	case ActionExpire:
		if ClassifyStanding(current.ExpiryDate, t.At) != StandingExpired {
			return Outcome[EquipmentState]{State: current.State}, &InvalidTransitionError{
				Family: EquipmentMachine.Family(),
				From:   string(current.State),
				Action: string(t.Action),
				Reason: "assignment has not expired at " + t.At.Format(time.RFC3339),
			}
		}
	case ActionRenew:
		months := t.ValidityMonths
		if months == 0 {
			months = current.ValidityMonths
		}
		expiry, err := ExpiryDate(t.At, months)
		if err != nil {
			return Outcome[EquipmentState]{State: current.State}, err
		}
		out.Effects = append(out.Effects,
			RenewalEffect{RenewedFrom: current.ID, IssueDate: t.At, ExpiryDate: expiry},
			NotifyEffect{EventType: EventEquipmentRenewed, Fields: map[string]any{
				"worker_id":       current.WorkerID,
				"catalog_item_id": current.CatalogItemID,
				"previous_expiry": current.ExpiryDate.Format(time.DateOnly),
				"new_expiry":      expiry.Format(time.DateOnly),
			}},
		)
	}
	return out, nil
}
