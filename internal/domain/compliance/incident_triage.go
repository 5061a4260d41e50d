package compliance

import (
	"strings"
	"time"
)

type InjurySeverity string

const (
	InjuryNone     InjurySeverity = "none"
	InjuryMild     InjurySeverity = "mild"
	InjurySevere   InjurySeverity = "severe"
	InjuryCritical InjurySeverity = "critical"
)

type DamageSeverity string

const (
	DamageNone     DamageSeverity = "none"
	DamageMinor    DamageSeverity = "minor"
	DamageModerate DamageSeverity = "moderate"
	DamageMajor    DamageSeverity = "major"
)

type PriorityTier string

const (
	PriorityLow      PriorityTier = "low"
	PriorityMedium   PriorityTier = "medium"
	PriorityHigh     PriorityTier = "high"
	PriorityCritical PriorityTier = "critical"
)

var injuryPoints = map[InjurySeverity]int{
	InjuryNone:     0,
	InjuryMild:     2,
	InjurySevere:   4,
	InjuryCritical: 6,
}

var damagePoints = map[DamageSeverity]int{
	DamageNone:     0,
	DamageMinor:    1,
	DamageModerate: 2,
	DamageMajor:    3,
}

type TriageResult struct {
	SeverityScore  int           `json:"severity_score"`
	Priority       PriorityTier  `json:"priority_tier"`
	ResponseTarget time.Duration `json:"response_target"`
	Notify         bool          `json:"notify"`
}

// WithNotifyOverride replaces the default supervisor notification flag with
// the reporter's choice.
func (r TriageResult) WithNotifyOverride(notify bool) TriageResult {
	r.Notify = notify
	return r
}

func ParseInjurySeverity(raw string) (InjurySeverity, error) {
	v := InjurySeverity(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := injuryPoints[v]; !ok {
		return "", invalid("injury_severity", "unrecognized label %q", raw)
	}
	return v, nil
}

func ParseDamageSeverity(raw string) (DamageSeverity, error) {
	v := DamageSeverity(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := damagePoints[v]; !ok {
		return "", invalid("damage_severity", "unrecognized label %q", raw)
	}
	return v, nil
}

// Triage scores an incident from its injury and property damage labels.
func Triage(injury string, damage string) (TriageResult, error) {
	inj, err := ParseInjurySeverity(injury)
	if err != nil {
		return TriageResult{}, err
	}
	dmg, err := ParseDamageSeverity(damage)
	if err != nil {
		return TriageResult{}, err
	}

	score := injuryPoints[inj] + damagePoints[dmg]
	tier, target := PriorityForScore(score)
	return TriageResult{
		SeverityScore:  score,
		Priority:       tier,
		ResponseTarget: target,
		Notify:         tier == PriorityHigh || tier == PriorityCritical,
	}, nil
}

func PriorityForScore(score int) (PriorityTier, time.Duration) {
	switch {
	case score >= 8:
		return PriorityCritical, 15 * time.Minute
	case score >= 5:
		return PriorityHigh, time.Hour
	case score >= 2:
		return PriorityMedium, 24 * time.Hour
	default:
		return PriorityLow, 72 * time.Hour
	}
}

// Rank orders tiers from low (0) to critical (3).
func (p PriorityTier) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}
