package compliance

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	domain "sstcompliance/internal/domain/compliance"
)

var inputValidate = validator.New(validator.WithRequiredStructEnabled())

// validateInput checks struct tags and reports the first failing field as a
// domain ValidationError.
func validateInput(in any) error {
	err := inputValidate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &domain.ValidationError{Reason: err.Error()}
	}
	fe := fieldErrs[0]
	return &domain.ValidationError{Field: snake(fe.Field()), Reason: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

func snake(name string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range name {
		upper := r >= 'A' && r <= 'Z'
		if upper && prevLower {
			b.WriteByte('_')
		}
		if upper {
			r += 'a' - 'A'
		}
		prevLower = !upper
		b.WriteRune(r)
	}
	return b.String()
}
