package compliance

import (
	"errors"
	"testing"
	"time"
)

func TestScoreRiskBoundaries(t *testing.T) {
	cases := []struct {
		p, s  int
		level int
		class RiskClass
	}{
		{1, 1, 1, RiskLow},
		{2, 4, 8, RiskMedium},
		{1, 5, 5, RiskLow},
		{3, 5, 15, RiskHigh},
		{5, 5, 25, RiskHigh},
		{2, 3, 6, RiskLow},
		{4, 2, 8, RiskMedium},
		{5, 3, 15, RiskHigh},
	}
	for _, tc := range cases {
		got, err := ScoreRisk(tc.p, tc.s)
		if err != nil {
			t.Fatalf("ScoreRisk(%d,%d) error = %v", tc.p, tc.s, err)
		}
		if got.Level != tc.level || got.Classification != tc.class {
			t.Fatalf("ScoreRisk(%d,%d) = %+v, want level=%d class=%s", tc.p, tc.s, got, tc.level, tc.class)
		}
	}
}

func TestScoreRiskProductForAllFactors(t *testing.T) {
	for p := 1; p <= 5; p++ {
		for s := 1; s <= 5; s++ {
			got, err := ScoreRisk(p, s)
			if err != nil {
				t.Fatalf("ScoreRisk(%d,%d) error = %v", p, s, err)
			}
			if got.Level != p*s {
				t.Fatalf("ScoreRisk(%d,%d).Level = %d", p, s, got.Level)
			}
		}
	}
}

func TestClassifyRiskLevelExactThresholds(t *testing.T) {
	want := map[int]RiskClass{7: RiskLow, 8: RiskMedium, 14: RiskMedium, 15: RiskHigh}
	for level, class := range want {
		if got := ClassifyRiskLevel(level); got != class {
			t.Fatalf("ClassifyRiskLevel(%d) = %s, want %s", level, got, class)
		}
	}
}

func TestScoreRiskRejectsOutOfRange(t *testing.T) {
	for _, pair := range [][2]int{{0, 3}, {6, 1}, {3, 0}, {2, 9}} {
		_, err := ScoreRisk(pair[0], pair[1])
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("ScoreRisk(%d,%d) error = %v, want *ValidationError", pair[0], pair[1], err)
		}
	}
}

func TestRescoreRecomputesLevel(t *testing.T) {
	r := RiskAssessment{Probability: 1, Severity: 1, Level: 1, Classification: RiskLow}
	if err := r.Rescore(4, 4); err != nil {
		t.Fatalf("Rescore() error = %v", err)
	}
	if r.Level != 16 || r.Classification != RiskHigh {
		t.Fatalf("Rescore() = level %d class %s", r.Level, r.Classification)
	}
	if err := r.Rescore(9, 1); err == nil {
		t.Fatalf("Rescore() expected validation error")
	}
	if r.Level != 16 {
		t.Fatalf("Rescore() mutated on failure, level = %d", r.Level)
	}
}

func TestRiskCodeIsStablePerHazard(t *testing.T) {
	at := time.Date(2024, 4, 2, 23, 0, 0, 0, time.UTC)
	a := RiskCode(at, "Working at height")
	b := RiskCode(at, "  working at HEIGHT ")
	if a != b {
		t.Fatalf("RiskCode() = %q and %q, want equal", a, b)
	}
	if len(a) != len("R-20240402-000") || a[:11] != "R-20240402-" {
		t.Fatalf("RiskCode() = %q", a)
	}
}

func TestTriageSevereMinorIsHigh(t *testing.T) {
	got, err := Triage("severe", "minor")
	if err != nil {
		t.Fatalf("Triage() error = %v", err)
	}
	if got.SeverityScore != 5 || got.Priority != PriorityHigh || !got.Notify {
		t.Fatalf("Triage() = %+v", got)
	}
	if got.ResponseTarget != time.Hour {
		t.Fatalf("Triage() response target = %s", got.ResponseTarget)
	}
	if got.WithNotifyOverride(false).Notify {
		t.Fatalf("WithNotifyOverride(false) kept notify")
	}
}

func TestTriageTiers(t *testing.T) {
	cases := []struct {
		injury, damage string
		score          int
		tier           PriorityTier
		notify         bool
	}{
		{"none", "none", 0, PriorityLow, false},
		{"none", "minor", 1, PriorityLow, false},
		{"mild", "none", 2, PriorityMedium, false},
		{"severe", "none", 4, PriorityMedium, false},
		{"critical", "none", 6, PriorityHigh, true},
		{"critical", "moderate", 8, PriorityCritical, true},
		{"Critical", "MAJOR", 9, PriorityCritical, true},
	}
	for _, tc := range cases {
		got, err := Triage(tc.injury, tc.damage)
		if err != nil {
			t.Fatalf("Triage(%s,%s) error = %v", tc.injury, tc.damage, err)
		}
		if got.SeverityScore != tc.score || got.Priority != tc.tier || got.Notify != tc.notify {
			t.Fatalf("Triage(%s,%s) = %+v", tc.injury, tc.damage, got)
		}
	}
}

func TestTriageMonotonic(t *testing.T) {
	injuries := []string{"none", "mild", "severe", "critical"}
	damages := []string{"none", "minor", "moderate", "major"}
	rank := func(i, d int) int {
		res, err := Triage(injuries[i], damages[d])
		if err != nil {
			t.Fatalf("Triage() error = %v", err)
		}
		return res.Priority.Rank()
	}
	for i := range injuries {
		for d := range damages {
			if i+1 < len(injuries) && rank(i+1, d) < rank(i, d) {
				t.Fatalf("tier decreased raising injury from %s with damage %s", injuries[i], damages[d])
			}
			if d+1 < len(damages) && rank(i, d+1) < rank(i, d) {
				t.Fatalf("tier decreased raising damage from %s with injury %s", damages[d], injuries[i])
			}
		}
	}
}

func TestTriageRejectsUnknownLabel(t *testing.T) {
	if _, err := Triage("fatal", "none"); !errors.Is(err, ErrValidation) {
		t.Fatalf("Triage() error = %v, want ErrValidation", err)
	}
	if _, err := Triage("none", "total"); !errors.Is(err, ErrValidation) {
		t.Fatalf("Triage() error = %v, want ErrValidation", err)
	}
}
