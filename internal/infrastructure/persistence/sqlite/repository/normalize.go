package repository

import (
	"fmt"
	"strings"

	"sstcompliance/internal/domain/compliance"
)

// Checklist items have been stored under several key spellings over time.
// Each field resolves through its chain in order: canonical key, known
// aliases, then a safe default.
var (
	itemIDKeys       = []string{"id", "item_id", "question_id", "pregunta_id"}
	itemTextKeys     = []string{"text", "question", "texto", "pregunta"}
	itemTypeKeys     = []string{"answer_type", "type", "tipo", "tipo_respuesta"}
	itemCategoryKeys = []string{"category", "categoria"}
)

var answerTypeAliases = map[string]compliance.AnswerType{
	"yes_no":      compliance.AnswerYesNo,
	"yes/no":      compliance.AnswerYesNo,
	"si_no":       compliance.AnswerYesNo,
	"yes_no_na":   compliance.AnswerYesNoNA,
	"yes/no/na":   compliance.AnswerYesNoNA,
	"si_no_na":    compliance.AnswerYesNoNA,
	"scale":       compliance.AnswerScale,
	"scale_1_5":   compliance.AnswerScale,
	"escala":      compliance.AnswerScale,
	"escala_1_5":  compliance.AnswerScale,
	"text":        compliance.AnswerText,
	"free_text":   compliance.AnswerText,
	"texto":       compliance.AnswerText,
	"texto_libre": compliance.AnswerText,
}

// normalizeChecklistItems maps loosely-typed stored records onto the fixed
// item shape. Unknown answer types fall back to yes/no.
func normalizeChecklistItems(raw []map[string]any) []compliance.ChecklistItem {
	items := make([]compliance.ChecklistItem, 0, len(raw))
	for i, rec := range raw {
		n := i + 1
		item := compliance.ChecklistItem{
			ID:         firstString(rec, itemIDKeys, fmt.Sprintf("item-%d", n)),
			Text:       firstString(rec, itemTextKeys, fmt.Sprintf("Question %d", n)),
			AnswerType: compliance.AnswerYesNo,
			Category:   firstString(rec, itemCategoryKeys, compliance.DefaultCategory),
		}
		if t, ok := answerTypeAliases[strings.ToLower(firstString(rec, itemTypeKeys, ""))]; ok {
			item.AnswerType = t
		}
		items = append(items, item)
	}
	return items
}

func firstString(rec map[string]any, keys []string, fallback string) string {
	for _, k := range keys {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch typed := v.(type) {
		case string:
			s = typed
		case float64:
			s = fmt.Sprintf("%g", typed)
		default:
			s = fmt.Sprint(typed)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return fallback
}
