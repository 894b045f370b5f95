// Package form validates user input before anything is sent to the server.
package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrInvalidEmail     = errors.New("invalid email address")
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Error lists the fields that failed validation
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range sortedKeys(e.Fields) {
		parts = append(parts, fmt.Sprintf("%s %s", f, e.Fields[f]))
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// Struct validates v using its `validate` tags
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fieldName(fe)] = describe(fe)
	}
	return out
}

// Email checks a single address
func Email(email string) error {
	if err := instance().Var(email, "required,email"); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return nil
}

// ConfirmPassword checks the confirmation matches
func ConfirmPassword(password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	return nil
}

func fieldName(fe validator.FieldError) string {
	return strings.ToLower(fe.Field())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must have at least " + fe.Param() + " characters"
	case "max":
		return "must have at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
