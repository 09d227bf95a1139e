package validate

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/baharkarakas/custodial-ledger/internal/models"
)

// Collect drops nil entries and returns a models.ValidationError, or nil when nothing failed.
func Collect(errs ...*models.FieldError) error {
	var out models.ValidationError
	for _, e := range errs {
		if e != nil {
			out = append(out, *e)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Helpers
func Required(field, value string) *models.FieldError {
	if strings.TrimSpace(value) == "" {
		return &models.FieldError{Field: field, Msg: "required"}
	}
	return nil
}

func MinInt(field string, v, min int64) *models.FieldError {
	if v < min {
		return &models.FieldError{Field: field, Msg: "must be >= " + strconv.FormatInt(min, 10)}
	}
	return nil
}

func MaxInt(field string, v, max int64) *models.FieldError {
	if v > max {
		return &models.FieldError{Field: field, Msg: "must be <= " + strconv.FormatInt(max, 10)}
	}
	return nil
}

func MinLen(field, value string, min int) *models.FieldError {
	if utf8.RuneCountInString(value) < min {
		return &models.FieldError{Field: field, Msg: "must be at least " + strconv.Itoa(min) + " characters"}
	}
	return nil
}

func MaxLen(field, value string, max int) *models.FieldError {
	if utf8.RuneCountInString(value) > max {
		return &models.FieldError{Field: field, Msg: "must be at most " + strconv.Itoa(max) + " characters"}
	}
	return nil
}

func OneOf(field, value string, allowed []string) *models.FieldError {
	for _, a := range allowed {
		if a == value {
			return nil
		}
	}
	return &models.FieldError{Field: field, Msg: "must be one of " + strings.Join(allowed, ", ")}
}

func Digits(field, value string) *models.FieldError {
	for _, r := range value {
		if r < '0' || r > '9' {
			return &models.FieldError{Field: field, Msg: "must contain digits only"}
		}
	}
	return nil
}
