package compliance

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

type RiskClass string

const (
	RiskLow    RiskClass = "LOW"
	RiskMedium RiskClass = "MEDIUM"
	RiskHigh   RiskClass = "HIGH"
)

const (
	riskHighThreshold   = 15
	riskMediumThreshold = 8
)

type RiskResult struct {
	Level          int       `json:"risk_level"`
	Classification RiskClass `json:"classification"`
	Urgency        string    `json:"urgency"`
}

// ScoreRisk returns probability*severity and its classification. Both factors
// must be in [1,5].
func ScoreRisk(probability int, severity int) (RiskResult, error) {
	if probability < 1 || probability > 5 {
		return RiskResult{}, invalid("probability", "must be in [1,5], got %d", probability)
	}
	if severity < 1 || severity > 5 {
		return RiskResult{}, invalid("severity", "must be in [1,5], got %d", severity)
	}

	level := probability * severity
	class := ClassifyRiskLevel(level)
	return RiskResult{
		Level:          level,
		Classification: class,
		Urgency:        riskUrgency(class),
	}, nil
}

func ClassifyRiskLevel(level int) RiskClass {
	switch {
	case level >= riskHighThreshold:
		return RiskHigh
	case level >= riskMediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

func riskUrgency(class RiskClass) string {
	switch class {
	case RiskHigh:
		return "immediate control"
	case RiskMedium:
		return "short-term control"
	default:
		return "standard control"
	}
}

// RiskCode formats R-YYYYMMDD-NNN where NNN is derived from the hazard text.
func RiskCode(t time.Time, hazard string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(hazard))))
	return fmt.Sprintf("R-%s-%03d", t.UTC().Format("20060102"), h.Sum32()%1000)
}
