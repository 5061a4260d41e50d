package compliance

import (
	"strconv"
	"strings"
)

// DocumentMachine: reject returns a reviewed or published document to draft;
// a draft has nothing to reject.
var DocumentMachine = NewMachine("controlled_document", []TransitionRule[DocumentState]{
	{From: DocumentDraft, Action: ActionSubmit, To: DocumentInReview},
	{From: DocumentInReview, Action: ActionApprove, To: DocumentApproved},
	{From: DocumentInReview, Action: ActionReject, To: DocumentDraft},
	{From: DocumentApproved, Action: ActionReject, To: DocumentDraft},
	{From: DocumentObsolete, Action: ActionReject, To: DocumentDraft},
	{From: DocumentApproved, Action: ActionRetire, To: DocumentObsolete},
	{From: DocumentDraft, Action: ActionRevise, To: DocumentDraft},
	{From: DocumentInReview, Action: ActionRevise, To: DocumentDraft},
	{From: DocumentApproved, Action: ActionRevise, To: DocumentDraft},
	{From: DocumentObsolete, Action: ActionRevise, To: DocumentDraft},
})

type DocumentTransition struct {
	Transition
	// NewVersion and NewFileRef are used by revise.
	NewVersion string
	NewFileRef string
	Comments   string
}

func ApplyDocument(current ControlledDocument, t DocumentTransition) (Outcome[DocumentState], error) {
	next, err := DocumentMachine.Next(current.State, t.Action)
	if err != nil {
		return Outcome[DocumentState]{State: current.State}, err
	}

	out := Outcome[DocumentState]{State: next}
	switch t.Action {
	case ActionRevise:
		newVersion := strings.TrimSpace(t.NewVersion)
		if newVersion == "" {
			return Outcome[DocumentState]{State: current.State}, invalid("version", "new version is required")
		}
		if !VersionAfter(newVersion, current.Version) {
			return Outcome[DocumentState]{State: current.State}, invalid("version", "new version %q must be greater than %q", newVersion, current.Version)
		}
		// The snapshot must come before anything that overwrites the live record.
		out.Effects = append(out.Effects,
			SnapshotVersionEffect{Version: DocumentVersion{Version: current.Version, FileRef: current.FileRef, ReplacedAt: t.At}},
			SetApprovedEffect{Approved: false},
		)
	case ActionApprove:
		out.Effects = append(out.Effects, SetApprovedEffect{Approved: true}, reviewNotice(current, t, next))
	case ActionSubmit:
		out.Effects = append(out.Effects, reviewNotice(current, t, next))
	case ActionReject, ActionRetire:
		out.Effects = append(out.Effects, SetApprovedEffect{Approved: false}, reviewNotice(current, t, next))
	}
	return out, nil
}

func reviewNotice(current ControlledDocument, t DocumentTransition, next DocumentState) NotifyEffect {
	return NotifyEffect{EventType: EventDocumentReviewed, Fields: map[string]any{
		"code":     current.Code,
		"title":    current.Title,
		"version":  current.Version,
		"action":   string(t.Action),
		"state":    string(next),
		"reviewer": t.Actor,
		"comments": t.Comments,
	}}
}

// VersionAfter reports whether next is a later version than prev. Dotted
// numeric versions compare by component; anything else only needs to differ.
func VersionAfter(next string, prev string) bool {
	if next == prev {
		return false
	}
	a, okA := parseDotted(next)
	b, okB := parseDotted(prev)
	if !okA || !okB {
		return true
	}
	for i := 0; i < len(a) || i < len(b); i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			return x > y
		}
	}
	return false
}

func parseDotted(v string) ([]int, bool) {
	v = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(v)), "v")
	if v == "" {
		return nil, false
	}
	parts := strings.Split(v, ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}
