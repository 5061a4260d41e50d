package compliance

import (
	"errors"
	"testing"
	"time"
)

var at = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func tr(a Action) Transition {
	return Transition{Action: a, Actor: "supervisor", At: at}
}

func TestIncidentForwardPath(t *testing.T) {
	inc := Incident{Code: "INC-1", State: IncidentReported, SeverityScore: 6}

	out, err := ApplyIncident(inc, IncidentTransition{Transition: tr(ActionInvestigate)})
	if err != nil || out.State != IncidentInvestigating {
		t.Fatalf("investigate = %s, %v", out.State, err)
	}
	inc.State = out.State

	out, err = ApplyIncident(inc, IncidentTransition{
		Transition: tr(ActionRecordAnalysis),
		Analysis: &Investigation{
			Method:          MethodFiveWhys,
			RootCause:       "missing guard",
			Recommendations: "Install guard\n\n  Retrain operators  \n",
		},
	})
	if err != nil {
		t.Fatalf("record_analysis error = %v", err)
	}
	if out.State != IncidentAnalyzed {
		t.Fatalf("record_analysis state = %s", out.State)
	}
	var spawned *SpawnCorrectiveActionsEffect
	for _, e := range out.Effects {
		if s, ok := e.(SpawnCorrectiveActionsEffect); ok {
			spawned = &s
		}
	}
	if spawned == nil || len(spawned.Descriptions) != 2 || spawned.Descriptions[1] != "Retrain operators" {
		t.Fatalf("record_analysis spawn = %#v", spawned)
	}
	if !spawned.DueDate.Equal(at.AddDate(0, 0, 7)) {
		t.Fatalf("record_analysis due = %s", spawned.DueDate)
	}
	if n := out.Notifications(); len(n) != 1 || n[0].EventType != EventActionsCreated {
		t.Fatalf("record_analysis notifications = %#v", n)
	}
	inc.State = out.State

	out, err = ApplyIncident(inc, IncidentTransition{Transition: tr(ActionClose)})
	if err != nil || out.State != IncidentClosed {
		t.Fatalf("close = %s, %v", out.State, err)
	}
}

func TestIncidentLowScoreClosesOnAnalysis(t *testing.T) {
	inc := Incident{State: IncidentReported, SeverityScore: 4}
	out, err := ApplyIncident(inc, IncidentTransition{
		Transition: tr(ActionRecordAnalysis),
		Analysis:   &Investigation{RootCause: "wet floor"},
	})
	if err != nil {
		t.Fatalf("record_analysis error = %v", err)
	}
	if out.State != IncidentClosed {
		t.Fatalf("record_analysis state = %s, want closed", out.State)
	}
	if len(out.Effects) != 1 {
		t.Fatalf("record_analysis effects = %#v", out.Effects)
	}
}

func TestIncidentAnalysisRequiresRootCause(t *testing.T) {
	inc := Incident{State: IncidentInvestigating, SeverityScore: 9}
	_, err := ApplyIncident(inc, IncidentTransition{Transition: tr(ActionRecordAnalysis), Analysis: &Investigation{}})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("record_analysis error = %v, want ErrValidation", err)
	}
}

func TestIncidentClosedIsTerminal(t *testing.T) {
	inc := Incident{State: IncidentClosed}
	for _, a := range []Action{ActionInvestigate, ActionRecordAnalysis, ActionClose, "reopen"} {
		out, err := ApplyIncident(inc, IncidentTransition{Transition: tr(a), Analysis: &Investigation{RootCause: "x"}})
		var tErr *InvalidTransitionError
		if !errors.As(err, &tErr) {
			t.Fatalf("%s from closed error = %v", a, err)
		}
		if out.State != IncidentClosed {
			t.Fatalf("%s from closed changed state to %s", a, out.State)
		}
	}
}

func TestTransitionsAreDeterministic(t *testing.T) {
	inc := Incident{State: IncidentReported}
	a, errA := ApplyIncident(inc, IncidentTransition{Transition: tr(ActionInvestigate)})
	b, errB := ApplyIncident(inc, IncidentTransition{Transition: tr(ActionInvestigate)})
	if errA != nil || errB != nil || a.State != b.State {
		t.Fatalf("repeat investigate = %s/%s, %v/%v", a.State, b.State, errA, errB)
	}
}

func TestFindingClose(t *testing.T) {
	closed := at
	f := Finding{Description: "guard missing", State: FindingOpen}
	strict := FindingPolicy{RequireClosureEvidence: true}

	if _, err := ApplyFinding(f, FindingTransition{Transition: tr(ActionClose)}, strict); !errors.Is(err, ErrValidation) {
		t.Fatalf("close without date error = %v", err)
	}
	if _, err := ApplyFinding(f, FindingTransition{Transition: tr(ActionClose), ClosureDate: &closed}, strict); !errors.Is(err, ErrValidation) {
		t.Fatalf("close without evidence error = %v", err)
	}

	out, err := ApplyFinding(f, FindingTransition{Transition: tr(ActionClose), ClosureDate: &closed, ClosureEvidence: []string{"finding/1/photo.jpg"}}, strict)
	if err != nil || out.State != FindingClosed {
		t.Fatalf("close from open = %s, %v", out.State, err)
	}
	if n := out.Notifications(); len(n) != 1 || n[0].EventType != EventFindingClosed {
		t.Fatalf("close notifications = %#v", n)
	}

	out, err = ApplyFinding(f, FindingTransition{Transition: tr(ActionClose), ClosureDate: &closed}, FindingPolicy{})
	if err != nil || out.State != FindingClosed {
		t.Fatalf("close lenient = %s, %v", out.State, err)
	}

	f.State = FindingClosed
	if _, err := ApplyFinding(f, FindingTransition{Transition: tr(ActionStartCorrection)}, strict); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("start_correction from closed error = %v", err)
	}
}

func TestCorrectiveActionJumpToImplemented(t *testing.T) {
	for _, from := range []ActionState{ActionOpen, ActionInProgress} {
		out, err := ApplyCorrectiveAction(CorrectiveAction{State: from}, tr(ActionImplement))
		if err != nil || out.State != ActionImplemented {
			t.Fatalf("implement from %s = %s, %v", from, out.State, err)
		}
		if n := out.Notifications(); len(n) != 1 || n[0].EventType != EventActionImplemented {
			t.Fatalf("implement notifications = %#v", n)
		}
	}

	out, err := ApplyCorrectiveAction(CorrectiveAction{State: ActionImplemented}, tr(ActionVerify))
	if err != nil || out.State != ActionVerified {
		t.Fatalf("verify = %s, %v", out.State, err)
	}
	if _, err := ApplyCorrectiveAction(CorrectiveAction{State: ActionVerified}, tr(ActionImplement)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("implement from verified error = %v", err)
	}
	if _, err := ApplyCorrectiveAction(CorrectiveAction{State: ActionInProgress}, tr(ActionStart)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("start from in_progress error = %v", err)
	}
}

func TestDocumentReviewCycle(t *testing.T) {
	doc := ControlledDocument{Code: "PRO-01", Version: "1.0", FileRef: "docs/pro-01-v1.pdf", State: DocumentDraft}

	out, err := ApplyDocument(doc, DocumentTransition{Transition: tr(ActionSubmit)})
	if err != nil || out.State != DocumentInReview {
		t.Fatalf("submit = %s, %v", out.State, err)
	}
	doc.State = out.State

	out, err = ApplyDocument(doc, DocumentTransition{Transition: tr(ActionApprove)})
	if err != nil || out.State != DocumentApproved {
		t.Fatalf("approve = %s, %v", out.State, err)
	}
	if set, ok := out.Effects[0].(SetApprovedEffect); !ok || !set.Approved {
		t.Fatalf("approve effects = %#v", out.Effects)
	}
	doc.State = out.State

	out, err = ApplyDocument(doc, DocumentTransition{Transition: tr(ActionRevise), NewVersion: "1.1", NewFileRef: "docs/pro-01-v1.1.pdf"})
	if err != nil || out.State != DocumentDraft {
		t.Fatalf("revise = %s, %v", out.State, err)
	}
	snap, ok := out.Effects[0].(SnapshotVersionEffect)
	if !ok || snap.Version.Version != "1.0" || snap.Version.FileRef != "docs/pro-01-v1.pdf" {
		t.Fatalf("revise first effect = %#v", out.Effects[0])
	}

	if _, err := ApplyDocument(doc, DocumentTransition{Transition: tr(ActionRevise), NewVersion: "0.9"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("revise downgrade error = %v", err)
	}
	if _, err := ApplyDocument(ControlledDocument{State: DocumentDraft}, DocumentTransition{Transition: tr(ActionApprove)}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("approve from draft error = %v", err)
	}

	out, err = ApplyDocument(doc, DocumentTransition{Transition: tr(ActionRetire)})
	if err != nil || out.State != DocumentObsolete {
		t.Fatalf("retire = %s, %v", out.State, err)
	}
	doc.State = out.State
	out, err = ApplyDocument(doc, DocumentTransition{Transition: tr(ActionReject)})
	if err != nil || out.State != DocumentDraft {
		t.Fatalf("reject from obsolete = %s, %v", out.State, err)
	}

	doc.State = DocumentDraft
	if _, err := ApplyDocument(doc, DocumentTransition{Transition: tr(ActionReject)}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("reject from draft error = %v", err)
	}
}

func TestVersionAfter(t *testing.T) {
	cases := []struct {
		next, prev string
		want       bool
	}{
		{"1.1", "1.0", true},
		{"1.10", "1.9", true},
		{"2", "1.9.9", true},
		{"1.0", "1.0", false},
		{"1.0.0", "1.0", false},
		{"0.9", "1.0", false},
		{"rev-B", "rev-A", true},
	}
	for _, tc := range cases {
		if got := VersionAfter(tc.next, tc.prev); got != tc.want {
			t.Fatalf("VersionAfter(%q,%q) = %v", tc.next, tc.prev, got)
		}
	}
}

func TestEquipmentExpireNeedsElapsedValidity(t *testing.T) {
	asg := EquipmentAssignment{ID: "a1", State: EquipmentActive, ExpiryDate: at.AddDate(0, 0, 3)}
	if _, err := ApplyEquipment(asg, EquipmentTransition{Transition: tr(ActionExpire)}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expire early error = %v", err)
	}

	asg.ExpiryDate = at.AddDate(0, 0, -1)
	out, err := ApplyEquipment(asg, EquipmentTransition{Transition: tr(ActionExpire)})
	if err != nil || out.State != EquipmentExpired {
		t.Fatalf("expire = %s, %v", out.State, err)
	}
}

func TestEquipmentRenewIsAppendOnly(t *testing.T) {
	issue := day(2023, 5, 1)
	asg := EquipmentAssignment{ID: "a1", WorkerID: "w1", IssueDate: issue, ValidityMonths: 6, ExpiryDate: issue.AddDate(0, 0, 180), State: EquipmentActive}

	out, err := ApplyEquipment(asg, EquipmentTransition{Transition: tr(ActionRenew)})
	if err != nil || out.State != EquipmentRenewed {
		t.Fatalf("renew = %s, %v", out.State, err)
	}
	renewal, ok := out.Effects[0].(RenewalEffect)
	if !ok {
		t.Fatalf("renew effects = %#v", out.Effects)
	}
	if renewal.RenewedFrom != "a1" || !renewal.IssueDate.Equal(at) || !renewal.ExpiryDate.Equal(at.AddDate(0, 0, 180)) {
		t.Fatalf("renew effect = %+v", renewal)
	}
	if !asg.IssueDate.Equal(issue) {
		t.Fatalf("renew mutated the original assignment")
	}

	asg.State = EquipmentRenewed
	if _, err := ApplyEquipment(asg, EquipmentTransition{Transition: tr(ActionRenew)}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("renew twice error = %v", err)
	}
}

func TestSupportingMachines(t *testing.T) {
	if out, err := ApplyRisk(RiskAssessment{State: RiskPending}, tr(ActionControl)); err != nil || out.State != RiskControlled {
		t.Fatalf("risk control = %s, %v", out.State, err)
	}
	if _, err := ApplyRisk(RiskAssessment{State: RiskControlled}, tr(ActionMitigate)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("risk mitigate from controlled error = %v", err)
	}
	if out, err := ApplyInspection(Inspection{State: InspectionInProgress}, tr(ActionComplete)); err != nil || out.State != InspectionCompleted {
		t.Fatalf("inspection complete = %s, %v", out.State, err)
	}
	if _, err := ApplyTraining(Training{State: TrainingCancelled}, tr(ActionHold)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("training hold from cancelled error = %v", err)
	}
}

func TestMachineAllowed(t *testing.T) {
	got := CorrectiveActionMachine.Allowed(ActionOpen)
	if len(got) != 2 || got[0] != ActionImplement || got[1] != ActionStart {
		t.Fatalf("Allowed(open) = %v", got)
	}
	if got := CorrectiveActionMachine.Allowed(ActionVerified); got != nil {
		t.Fatalf("Allowed(verified) = %v", got)
	}
}
