package compliance

import (
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

const DefaultFindingDueDays = 7

var (
	answerTypes = mapset.NewSet(AnswerYesNo, AnswerYesNoNA, AnswerScale, AnswerText)

	yesNoAnswers   = mapset.NewSet("yes", "no")
	yesNoNAAnswers = mapset.NewSet("yes", "no", "na")
)

func ParseAnswerType(raw string) (AnswerType, error) {
	t := AnswerType(strings.ToLower(strings.TrimSpace(raw)))
	if !answerTypes.Contains(t) {
		return "", invalid("answer_type", "unrecognized answer type %q", raw)
	}
	return t, nil
}

// FindingDraft is a non-conformance detected during evaluation, not yet
// persisted.
type FindingDraft struct {
	ItemID      string       `json:"item_id"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	State       FindingState `json:"state"`
	DueDate     time.Time    `json:"due_date"`
}

// AnswerRecord is the audit record of one answered item.
type AnswerRecord struct {
	ItemID        string     `json:"item_id"`
	Text          string     `json:"text"`
	AnswerType    AnswerType `json:"answer_type"`
	Category      string     `json:"category"`
	Answer        string     `json:"answer"`
	NonConforming bool       `json:"non_conforming"`
}

type Evaluation struct {
	Drafts  []FindingDraft `json:"findings"`
	Answers []AnswerRecord `json:"answers"`
}

type ChecklistEvaluator struct {
	FindingDueDays int
}

func NewChecklistEvaluator(findingDueDays int) ChecklistEvaluator {
	if findingDueDays <= 0 {
		findingDueDays = DefaultFindingDueDays
	}
	return ChecklistEvaluator{FindingDueDays: findingDueDays}
}

// Evaluate checks every item against its recorded answer. Answers are keyed by
// item id and every item needs one.
func (e ChecklistEvaluator) Evaluate(items []ChecklistItem, answers map[string]string, executedAt time.Time) (Evaluation, error) {
	if err := ValidateChecklistItems(items); err != nil {
		return Evaluation{}, err
	}
	known := mapset.NewThreadUnsafeSet[string]()
	for _, item := range items {
		known.Add(item.ID)
	}
	for id := range answers {
		if !known.Contains(id) {
			return Evaluation{}, invalid("answers", "answer for unknown item %q", id)
		}
	}

	dueDays := e.FindingDueDays
	if dueDays <= 0 {
		dueDays = DefaultFindingDueDays
	}
	due := executedAt.AddDate(0, 0, dueDays)

	result := Evaluation{Answers: make([]AnswerRecord, 0, len(items))}
	for _, item := range items {
		raw, ok := answers[item.ID]
		if !ok {
			return Evaluation{}, invalid("answers", "missing answer for item %q", item.ID)
		}
		answer, nonConforming, err := judgeAnswer(item, raw)
		if err != nil {
			return Evaluation{}, err
		}

		result.Answers = append(result.Answers, AnswerRecord{
			ItemID:        item.ID,
			Text:          item.Text,
			AnswerType:    item.AnswerType,
			Category:      item.Category,
			Answer:        answer,
			NonConforming: nonConforming,
		})
		if nonConforming {
			result.Drafts = append(result.Drafts, FindingDraft{
				ItemID:      item.ID,
				Description: "non-conformance in: " + item.Text,
				Category:    item.Category,
				State:       FindingOpen,
				DueDate:     due,
			})
		}
	}
	return result, nil
}

func judgeAnswer(item ChecklistItem, raw string) (string, bool, error) {
	answer := strings.TrimSpace(raw)
	switch item.AnswerType {
	case AnswerYesNo, AnswerYesNoNA:
		answer = strings.ToLower(answer)
		allowed := yesNoAnswers
		if item.AnswerType == AnswerYesNoNA {
			allowed = yesNoNAAnswers
		}
		if !allowed.Contains(answer) {
			return "", false, invalid("answers", "item %q: answer %q not allowed for %s", item.ID, raw, item.AnswerType)
		}
		return answer, answer == "no", nil
	case AnswerScale:
		v, err := strconv.Atoi(answer)
		if err != nil || v < 1 || v > 5 {
			return "", false, invalid("answers", "item %q: scale answer must be 1..5, got %q", item.ID, raw)
		}
		return answer, v <= 2, nil
	case AnswerText:
		return answer, false, nil
	}
	return "", false, invalid("answer_type", "item %q: unrecognized answer type %q", item.ID, item.AnswerType)
}

// ValidateChecklistItems rejects blank or duplicate ids, blank text, and
// unknown answer types.
func ValidateChecklistItems(items []ChecklistItem) error {
	seen := mapset.NewThreadUnsafeSet[string]()
	for i, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			return invalid("items", "item %d has no id", i)
		}
		if !seen.Add(item.ID) {
			return invalid("items", "duplicate item id %q", item.ID)
		}
		if strings.TrimSpace(item.Text) == "" {
			return invalid("items", "item %q has no text", item.ID)
		}
		if !answerTypes.Contains(item.AnswerType) {
			return invalid("items", "item %q: unrecognized answer type %q", item.ID, item.AnswerType)
		}
	}
	return nil
}
