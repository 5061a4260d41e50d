package compliance

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestIndicatorsZeroDenominators(t *testing.T) {
	got := ComputeIndicators(IndicatorInput{PersonHours: 120000, AverageWorkers: 60})
	if got.FrequencyRate != 0 || got.SeverityRate != 0 || got.IncidenceIndex != 0 {
		t.Fatalf("ComputeIndicators(no incidents) = %+v", got)
	}
	if !got.Targets.ZeroAccidents {
		t.Fatalf("ComputeIndicators() zero accidents target not met")
	}

	incidents := []Incident{{Type: IncidentTypeAccident}}
	got = ComputeIndicators(IndicatorInput{Incidents: incidents})
	if got.FrequencyRate != 0 || got.SeverityRate != 0 || got.IncidenceIndex != 0 {
		t.Fatalf("ComputeIndicators(zero hours) = %+v", got)
	}
}

func TestIndicatorsRates(t *testing.T) {
	incidents := []Incident{
		{Type: IncidentTypeAccident},
		{Type: IncidentTypeAccident},
		{Type: IncidentTypeNearMiss},
		{Type: IncidentTypeIncident},
	}
	got := ComputeIndicators(IndicatorInput{Incidents: incidents, PersonHours: 200000, AverageWorkers: 100})
	if got.AccidentCount != 2 || got.IncidentCount != 4 || got.CountsByType[IncidentTypeNearMiss] != 1 {
		t.Fatalf("ComputeIndicators() counts = %+v", got)
	}
	if !approx(got.FrequencyRate, 10) {
		t.Fatalf("FrequencyRate = %v", got.FrequencyRate)
	}
	if got.LostDays != 30 || !got.LostDaysEstimated {
		t.Fatalf("LostDays = %d estimated=%v", got.LostDays, got.LostDaysEstimated)
	}
	if !approx(got.SeverityRate, 150) {
		t.Fatalf("SeverityRate = %v", got.SeverityRate)
	}
	if !approx(got.IncidenceIndex, 2) {
		t.Fatalf("IncidenceIndex = %v", got.IncidenceIndex)
	}
	if got.Targets.FrequencyRate || got.Targets.SeverityRate || got.Targets.IncidenceIndex || got.Targets.ZeroAccidents {
		t.Fatalf("Targets = %+v", got.Targets)
	}
}

func TestIndicatorsRecordedLostDays(t *testing.T) {
	lost := 4
	got := ComputeIndicators(IndicatorInput{
		Incidents:   []Incident{{Type: IncidentTypeAccident}},
		PersonHours: 1_000_000,
		LostDays:    &lost,
	})
	if got.LostDaysEstimated || got.LostDays != 4 || !approx(got.SeverityRate, 4) {
		t.Fatalf("ComputeIndicators(recorded) = %+v", got)
	}
}

func TestCompletionPercentages(t *testing.T) {
	got := ComputeCompletion(CompletionInput{
		Findings:  []Finding{{State: FindingClosed}, {State: FindingOpen}, {State: FindingInCorrection}, {State: FindingClosed}},
		Actions:   []CorrectiveAction{{State: ActionVerified}},
		Trainings: []Training{{State: TrainingHeld, Attendees: []Attendance{{Attended: true}, {Attended: false}}}, {State: TrainingScheduled}},
	})
	if !approx(got.FindingsClosedPct, 50) || !approx(got.ActionsVerifiedPct, 100) || !approx(got.TrainingsHeldPct, 50) {
		t.Fatalf("ComputeCompletion() = %+v", got)
	}
	if got.DocumentsApprovedPct != 0 {
		t.Fatalf("DocumentsApprovedPct with no documents = %v", got.DocumentsApprovedPct)
	}
	if !approx(got.AttendancePct, 50) {
		t.Fatalf("AttendancePct = %v", got.AttendancePct)
	}
}
