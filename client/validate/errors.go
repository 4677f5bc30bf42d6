package validate

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/adamwoolhether/apiclient/client/apierr"
)

// FieldError represents a single validation error for a specific field.
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// FieldErrors represents a collection of field errors.
type FieldErrors []FieldError

// Error implements the error interface, returning a human-readable
// summary of all field errors.
func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.Field + ": " + f.Err
	}
	return strings.Join(parts, "; ")
}

// Fields returns the fields that failed validation.
func (fe FieldErrors) Fields() map[string]string {
	m := make(map[string]string, len(fe))
	for _, fld := range fe {
		m[fld.Field] = fld.Err
	}
	return m
}

func (fe *FieldErrors) add(field, msg string) {
	*fe = append(*fe, FieldError{Field: field, Err: msg})
}

// addValidation records the translated message of a validator.Var failure.
func (fe *FieldErrors) addValidation(field string, err error) {
	var verrors validator.ValidationErrors
	if !errors.As(err, &verrors) {
		fe.add(field, err.Error())
		return
	}

	for _, verror := range verrors {
		fe.add(field, strings.TrimSpace(verror.Translate(translator)))
	}
}

func (fe FieldErrors) asError(msg string) error {
	if len(fe) == 0 {
		return nil
	}

	return apierr.NewValidation(msg+": "+fe.Error(), fe)
}

// GetFieldErrors returns the FieldErrors carried by err, if any.
func GetFieldErrors(err error) FieldErrors {
	var fe FieldErrors
	if !errors.As(err, &fe) {
		return nil
	}
	return fe
}
