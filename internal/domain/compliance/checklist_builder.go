package compliance

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

const DefaultCategory = "General"

// ChecklistBuilder accumulates draft items before a checklist is saved. It
// belongs to one authoring session and is not safe for concurrent use.
type ChecklistBuilder struct {
	items []ChecklistItem
	newID func() string
}

func NewChecklistBuilder() *ChecklistBuilder {
	return &ChecklistBuilder{newID: uuid.NewString}
}

func (b *ChecklistBuilder) AddItem(text string, answerType string, category string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", invalid("text", "question text is required")
	}
	t, err := ParseAnswerType(answerType)
	if err != nil {
		return "", err
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = DefaultCategory
	}

	id := b.newID()
	b.items = append(b.items, ChecklistItem{ID: id, Text: text, AnswerType: t, Category: category})
	return id, nil
}

func (b *ChecklistBuilder) RemoveItem(id string) error {
	idx := slices.IndexFunc(b.items, func(it ChecklistItem) bool { return it.ID == id })
	if idx < 0 {
		return NewNotFound("checklist item", id)
	}
	b.items = slices.Delete(b.items, idx, idx+1)
	return nil
}

func (b *ChecklistBuilder) Items() []ChecklistItem {
	return slices.Clone(b.items)
}

func (b *ChecklistBuilder) Len() int { return len(b.items) }

// Commit returns the finished definition and resets the builder.
func (b *ChecklistBuilder) Commit(name string, area string) (ChecklistDefinition, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ChecklistDefinition{}, invalid("name", "checklist name is required")
	}
	if len(b.items) == 0 {
		return ChecklistDefinition{}, invalid("items", "checklist needs at least one item")
	}
	def := ChecklistDefinition{
		Name:  name,
		Area:  strings.TrimSpace(area),
		Items: slices.Clone(b.items),
	}
	b.items = nil
	return def, nil
}
