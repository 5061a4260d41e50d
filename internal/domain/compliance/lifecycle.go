package compliance

import (
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// Action names a lifecycle transition request.
type Action string

const (
	// incident
	ActionInvestigate    Action = "investigate"
	ActionRecordAnalysis Action = "record_analysis"
	ActionClose          Action = "close"

	// finding
	ActionStartCorrection Action = "start_correction"

	// corrective action
	ActionStart     Action = "start"
	ActionImplement Action = "implement"
	ActionVerify    Action = "verify"

	// controlled document
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionRevise  Action = "revise"
	ActionRetire  Action = "retire"

	// protective equipment
	ActionExpire Action = "expire"
	ActionRenew  Action = "renew"

	// risk, inspection, training
	ActionMitigate Action = "mitigate"
	ActionControl  Action = "control"
	ActionComplete Action = "complete"
	ActionHold     Action = "hold"
	ActionCancel   Action = "cancel"
)

// Transition is the common request envelope. Actor and At are recorded by the
// caller and used for time-based guards and effect timestamps.
type Transition struct {
	Action Action
	Actor  string
	At     time.Time
}

// TransitionRule maps one (from, action) pair to its target state.
type TransitionRule[S ~string] struct {
	From   S
	Action Action
	To     S
}

// Machine validates transitions for a single entity family.
type Machine[S ~string] struct {
	family   string
	rules    map[S]map[Action]S
	terminal mapset.Set[S]
}

func NewMachine[S ~string](family string, rules []TransitionRule[S], terminal ...S) *Machine[S] {
	m := &Machine[S]{
		family:   family,
		rules:    make(map[S]map[Action]S, len(rules)),
		terminal: mapset.NewThreadUnsafeSet[S](terminal...),
	}
	for _, r := range rules {
		if m.rules[r.From] == nil {
			m.rules[r.From] = make(map[Action]S)
		}
		m.rules[r.From][r.Action] = r.To
	}
	return m
}

func (m *Machine[S]) Family() string { return m.family }

func (m *Machine[S]) IsTerminal(s S) bool { return m.terminal.Contains(s) }

// Next returns the target state for action from the given state.
func (m *Machine[S]) Next(from S, action Action) (S, error) {
	if m.terminal.Contains(from) {
		return from, m.reject(from, action, "state is terminal")
	}
	to, ok := m.rules[from][action]
	if !ok {
		return from, m.reject(from, action, "")
	}
	return to, nil
}

// Allowed lists the actions available from a state, sorted by name.
func (m *Machine[S]) Allowed(from S) []Action {
	if m.terminal.Contains(from) {
		return nil
	}
	out := make([]Action, 0, len(m.rules[from]))
	for a := range m.rules[from] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *Machine[S]) reject(from S, action Action, reason string) error {
	return &InvalidTransitionError{
		Family: m.family,
		From:   string(from),
		Action: string(action),
		Reason: reason,
	}
}

// Effect is a side effect requested by a transition. The caller carries it
// out after persisting the new state.
type Effect interface {
	effect()
}

// NotifyEffect asks for an outbound notification. Delivery is best-effort.
type NotifyEffect struct {
	EventType string
	Fields    map[string]any
}

type SpawnCorrectiveActionsEffect struct {
	Descriptions []string
	DueDate      time.Time
}

type SnapshotVersionEffect struct {
	Version DocumentVersion
}

type SetApprovedEffect struct {
	Approved bool
}

type RenewalEffect struct {
	RenewedFrom string
	IssueDate   time.Time
	ExpiryDate  time.Time
}

type RecordClosureEffect struct {
	At time.Time
}

func (NotifyEffect) effect()                 {}
func (SpawnCorrectiveActionsEffect) effect() {}
func (SnapshotVersionEffect) effect()        {}
func (SetApprovedEffect) effect()            {}
func (RenewalEffect) effect()                {}
func (RecordClosureEffect) effect()          {}

// Outcome is the result of a successful transition.
type Outcome[S ~string] struct {
	State   S
	Effects []Effect
}

// Notifications returns the notify effects of an outcome in order.
func (o Outcome[S]) Notifications() []NotifyEffect {
	var out []NotifyEffect
	for _, e := range o.Effects {
		if n, ok := e.(NotifyEffect); ok {
			out = append(out, n)
		}
	}
	return out
}

const (
	EventIncidentReported  = "incident_reported"
	EventActionsCreated    = "actions_created"
	EventFindingsDetected  = "findings_detected"
	EventFindingClosed     = "finding_closed"
	EventActionImplemented = "action_implemented"
	EventDocumentReviewed  = "document_reviewed"
	EventEquipmentRenewed  = "equipment_renewed"
)
