package compliance

import (
	"time"
)

type RiskState string

const (
	RiskPending    RiskState = "pending"
	RiskMitigating RiskState = "mitigating"
	RiskControlled RiskState = "controlled"
)

type RiskAssessment struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	Area           string    `json:"area"`
	Position       string    `json:"position"`
	Activity       string    `json:"activity"`
	Hazard         string    `json:"hazard"`
	HazardCategory string    `json:"hazard_category"`
	Probability    int       `json:"probability"`
	Severity       int       `json:"severity"`
	Level          int       `json:"risk_level"`
	Classification RiskClass `json:"classification"`
	Controls       string    `json:"controls"`
	ResponsibleID  string    `json:"responsible_id"`
	State          RiskState `json:"state"`
	Revision       int64     `json:"revision"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Rescore replaces both factors and recomputes level and classification.
// Level is never assigned any other way.
func (r *RiskAssessment) Rescore(probability int, severity int) error {
	res, err := ScoreRisk(probability, severity)
	if err != nil {
		return err
	}
	r.Probability = probability
	r.Severity = severity
	r.Level = res.Level
	r.Classification = res.Classification
	return nil
}

type IncidentType string

const (
	IncidentTypeIncident IncidentType = "incident"
	IncidentTypeAccident IncidentType = "accident"
	IncidentTypeIllness  IncidentType = "occupational_illness"
	IncidentTypeNearMiss IncidentType = "near_miss"
)

func ParseIncidentType(raw string) (IncidentType, error) {
	switch IncidentType(raw) {
	case IncidentTypeIncident, IncidentTypeAccident, IncidentTypeIllness, IncidentTypeNearMiss:
		return IncidentType(raw), nil
	case "occupational-illness":
		return IncidentTypeIllness, nil
	case "near-miss":
		return IncidentTypeNearMiss, nil
	}
	return "", invalid("type", "unrecognized incident type %q", raw)
}

type IncidentState string

const (
	IncidentReported      IncidentState = "reported"
	IncidentInvestigating IncidentState = "investigating"
	IncidentAnalyzed      IncidentState = "analyzed"
	IncidentClosed        IncidentState = "closed"
)

type InvestigationMethod string

const (
	MethodFiveWhys       InvestigationMethod = "five_whys"
	MethodCauseTree      InvestigationMethod = "cause_tree"
	MethodFMEA           InvestigationMethod = "fmea"
	MethodEventCausality InvestigationMethod = "event_causality"
)

func (m InvestigationMethod) Valid() bool {
	switch m {
	case MethodFiveWhys, MethodCauseTree, MethodFMEA, MethodEventCausality:
		return true
	}
	return false
}

type CausalFactors struct {
	Human          string `json:"human,omitempty"`
	Technical      string `json:"technical,omitempty"`
	Organizational string `json:"organizational,omitempty"`
	Environmental  string `json:"environmental,omitempty"`
}

type Investigation struct {
	Method          InvestigationMethod `json:"method"`
	FiveWhys        []string            `json:"five_whys,omitempty"`
	Factors         CausalFactors       `json:"factors"`
	RootCause       string              `json:"root_cause"`
	Recommendations string              `json:"recommendations,omitempty"`
	InvestigatorID  string              `json:"investigator_id"`
	InvestigatedAt  time.Time           `json:"investigated_at"`
}

type Incident struct {
	ID               string         `json:"id"`
	Code             string         `json:"code"`
	Type             IncidentType   `json:"type"`
	OccurredAt       time.Time      `json:"occurred_at"`
	Area             string         `json:"area"`
	Position         string         `json:"position,omitempty"`
	Description      string         `json:"description"`
	AffectedWorkerID string         `json:"affected_worker_id,omitempty"`
	Injury           InjurySeverity `json:"injury_severity"`
	Damage           DamageSeverity `json:"damage_severity"`
	SeverityScore    int            `json:"severity_score"`
	Priority         PriorityTier   `json:"priority_tier"`
	Notify           bool           `json:"notify"`
	Evidence         []string       `json:"evidence,omitempty"`
	Witnesses        []string       `json:"witnesses,omitempty"`
	State            IncidentState  `json:"state"`
	Investigation    *Investigation `json:"investigation,omitempty"`
	ClosedAt         *time.Time     `json:"closed_at,omitempty"`
	Revision         int64          `json:"revision"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type FindingState string

const (
	FindingOpen         FindingState = "open"
	FindingInCorrection FindingState = "in_correction"
	FindingClosed       FindingState = "closed"
)

type Finding struct {
	ID              string       `json:"id"`
	InspectionID    string       `json:"inspection_id,omitempty"`
	ItemID          string       `json:"item_id,omitempty"`
	Description     string       `json:"description"`
	Category        string       `json:"category"`
	ResponsibleID   string       `json:"responsible_id,omitempty"`
	DueDate         time.Time    `json:"due_date"`
	Evidence        []string     `json:"evidence,omitempty"`
	ClosureEvidence []string     `json:"closure_evidence,omitempty"`
	ClosureDate     *time.Time   `json:"closure_date,omitempty"`
	Comments        string       `json:"comments,omitempty"`
	State           FindingState `json:"state"`
	Revision        int64        `json:"revision"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type ActionState string

const (
	ActionOpen        ActionState = "open"
	ActionInProgress  ActionState = "in_progress"
	ActionImplemented ActionState = "implemented"
	ActionVerified    ActionState = "verified"
)

type CorrectiveAction struct {
	ID            string      `json:"id"`
	IncidentID    string      `json:"incident_id,omitempty"`
	FindingID     string      `json:"finding_id,omitempty"`
	Description   string      `json:"description"`
	ResponsibleID string      `json:"responsible_id,omitempty"`
	DueDate       time.Time   `json:"due_date"`
	Progress      int         `json:"progress"`
	Comments      string      `json:"comments,omitempty"`
	Evidence      []string    `json:"evidence,omitempty"`
	State         ActionState `json:"state"`
	Revision      int64       `json:"revision"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func ValidateProgress(progress int) error {
	if progress < 0 || progress > 100 {
		return invalid("progress", "must be in [0,100], got %d", progress)
	}
	return nil
}

type DocumentState string

const (
	DocumentDraft    DocumentState = "draft"
	DocumentInReview DocumentState = "in_review"
	DocumentApproved DocumentState = "approved"
	DocumentObsolete DocumentState = "obsolete"
)

type DocumentVersion struct {
	Version    string    `json:"version"`
	FileRef    string    `json:"file_ref"`
	ReplacedAt time.Time `json:"replaced_at"`
}

type DocumentReview struct {
	DocumentID string    `json:"document_id"`
	Action     Action    `json:"action"`
	ReviewerID string    `json:"reviewer_id"`
	Comments   string    `json:"comments,omitempty"`
	At         time.Time `json:"at"`
}

type ControlledDocument struct {
	ID            string            `json:"id"`
	Code          string            `json:"code"`
	Title         string            `json:"title"`
	Type          string            `json:"type"`
	Version       string            `json:"version"`
	FileRef       string            `json:"file_ref,omitempty"`
	ValidUntil    *time.Time        `json:"valid_until,omitempty"`
	Area          string            `json:"area"`
	ResponsibleID string            `json:"responsible_id,omitempty"`
	Keywords      []string          `json:"keywords,omitempty"`
	Approved      bool              `json:"approved"`
	State         DocumentState     `json:"state"`
	History       []DocumentVersion `json:"history,omitempty"`
	Revision      int64             `json:"revision"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type EquipmentState string

const (
	EquipmentActive  EquipmentState = "active"
	EquipmentRenewed EquipmentState = "renewed"
	EquipmentExpired EquipmentState = "expired"
)

type EquipmentAssignment struct {
	ID             string         `json:"id"`
	WorkerID       string         `json:"worker_id"`
	CatalogItemID  string         `json:"catalog_item_id"`
	IssueDate      time.Time      `json:"issue_date"`
	ValidityMonths int            `json:"validity_months"`
	ExpiryDate     time.Time      `json:"expiry_date"`
	Condition      string         `json:"condition,omitempty"`
	RenewedFrom    string         `json:"renewed_from,omitempty"`
	State          EquipmentState `json:"state"`
	Revision       int64          `json:"revision"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type AnswerType string

const (
	AnswerYesNo   AnswerType = "yes_no"
	AnswerYesNoNA AnswerType = "yes_no_na"
	AnswerScale   AnswerType = "scale"
	AnswerText    AnswerType = "text"
)

type ChecklistItem struct {
	ID         string     `json:"id" yaml:"id"`
	Text       string     `json:"text" yaml:"text"`
	AnswerType AnswerType `json:"answer_type" yaml:"answer_type"`
	Category   string     `json:"category" yaml:"category"`
}

type ChecklistDefinition struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Area      string          `json:"area"`
	Items     []ChecklistItem `json:"items"`
	Revision  int64           `json:"revision"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type InspectionState string

const (
	InspectionScheduled  InspectionState = "scheduled"
	InspectionInProgress InspectionState = "in_progress"
	InspectionCompleted  InspectionState = "completed"
)

// Executed reports whether answers may already have been recorded against
// the referenced checklist.
func (s InspectionState) Executed() bool {
	return s == InspectionInProgress || s == InspectionCompleted
}

type Inspection struct {
	ID            string          `json:"id"`
	ChecklistID   string          `json:"checklist_id"`
	Area          string          `json:"area"`
	ScheduledDate time.Time       `json:"scheduled_date"`
	InspectorID   string          `json:"inspector_id"`
	State         InspectionState `json:"state"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	Answers       []AnswerRecord  `json:"answers,omitempty"`
	Observations  string          `json:"observations,omitempty"`
	Revision      int64           `json:"revision"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type TrainingState string

const (
	TrainingScheduled TrainingState = "scheduled"
	TrainingHeld      TrainingState = "held"
	TrainingCancelled TrainingState = "cancelled"
)

type Attendance struct {
	WorkerID string `json:"worker_id"`
	Attended bool   `json:"attended"`
	Rating   int    `json:"rating,omitempty"`
}

type Training struct {
	ID            string        `json:"id"`
	Topic         string        `json:"topic"`
	TrainerID     string        `json:"trainer_id,omitempty"`
	ScheduledDate time.Time     `json:"scheduled_date"`
	DurationHours float64       `json:"duration_hours"`
	Attendees     []Attendance  `json:"attendees,omitempty"`
	State         TrainingState `json:"state"`
	Revision      int64         `json:"revision"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
