package service

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"blogapi/internal/models"
)

const requiredMessage = "This field is required."

// fieldErrorSet accumulates per-field errors together with their error kinds.
// A single kind is reported as-is; mixed kinds collapse to VALIDATION_ERROR.
type fieldErrorSet struct {
	fields models.FieldErrors
	codes  []string
}

func newFieldErrorSet() *fieldErrorSet {
	return &fieldErrorSet{fields: models.FieldErrors{}}
}

func (f *fieldErrorSet) add(code, field, message string) {
	f.fields.Add(field, message)
	if !slices.Contains(f.codes, code) {
		f.codes = append(f.codes, code)
	}
}

func (f *fieldErrorSet) has(field string) bool {
	return len(f.fields[field]) > 0
}

func (f *fieldErrorSet) err() error {
	if f.fields.Empty() {
		return nil
	}
	code := models.CodeValidation
	if len(f.codes) == 1 {
		code = f.codes[0]
	}
	return models.NewFieldError(code, f.fields)
}

// sentence turns a validation error into a client-facing message.
func sentence(err error) string {
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	msg = string(unicode.ToUpper(r)) + msg[size:]
	if !strings.HasSuffix(msg, ".") {
		msg += "."
	}
	return msg
}
