package core

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// FieldMap returns the field errors keyed by field name; the first error of a field wins.
func (err ValidationError) FieldMap() map[string]string {
	return FieldErrorMap(err.Fields)
}

func FieldErrorMap(flds []FieldError) map[string]string {
	m := make(map[string]string, len(flds))
	for _, fErr := range flds {
		if _, ok := m[fErr.Field]; !ok {
			m[fErr.Field] = fErr.Error
		}
	}
	return m
}

// FieldErrors flattens validation errors into FieldErrors, translating validator messages.
// ok is false when `err` is not a validation error.
func FieldErrors(err error, translator ut.Translator) (flds []FieldError, ok bool) {
	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		flds = make([]FieldError, 0, len(origErr))
		for _, vErr := range origErr {
			flds = append(flds, FieldError{Field: vErr.Field(), Error: vErr.Translate(translator)})
		}
		return flds, true
	case *ValidationError:
		if origErr.Fields != nil {
			return origErr.Fields, true
		}
		return []FieldError{{Field: "non_field_errors", Error: origErr.Error()}}, true
	default:
		return nil, false
	}
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
