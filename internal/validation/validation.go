// Package validation collects field-level request errors in the
// {field: [messages]} shape returned by every endpoint.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Common messages shared by request validators.
const (
	MsgRequired = "This field is required."
	MsgBlank    = "This field may not be blank."
	MsgPhone    = "Phone number must be entered in the format: '+999999999'. Up to 15 digits allowed."
)

// NonFieldErrors is the key for errors not tied to a single field.
const NonFieldErrors = "non_field_errors"

var (
	phonePattern    = regexp.MustCompile(`^\+?1?\d{9,15}$`)
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("intl_phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("validation: register intl_phone: %v", err))
	}
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("validation: register username: %v", err))
	}
	return v
}

// Errors maps a field name to its messages.
type Errors map[string][]string

// Add appends a message for field.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Empty reports whether no errors were recorded.
func (e Errors) Empty() bool {
	return len(e) == 0
}

// Check validates value against validator tags and records the first failure
// under field. It returns true when the value is valid.
func (e Errors) Check(field string, value any, tags string) bool {
	err := validate.Var(value, tags)
	if err == nil {
		return true
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		e.Add(field, message(fieldErrs[0]))
	} else {
		e.Add(field, "Invalid value.")
	}
	return false
}

// Required records MsgRequired when value is nil.
func (e Errors) Required(field string, value *string) bool {
	if value == nil {
		e.Add(field, MsgRequired)
		return false
	}
	return true
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return MsgBlank
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(fe.Value()))
	case "intl_phone":
		return MsgPhone
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "numeric":
		return "A valid number is required."
	default:
		return "Invalid value."
	}
}

// IsNumeric reports whether s consists only of digits.
func IsNumeric(s string) bool {
	return s != "" && validate.Var(s, "numeric") == nil && !strings.ContainsAny(s, "+-.")
}

// Error is returned by services when a request fails field validation.
type Error struct {
	Message string
	Fields  Errors
}

// NewError builds a validation error.
func NewError(message string, fields Errors) *Error {
	return &Error{Message: message, Fields: fields}
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// As extracts a *Error from err.
func As(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
