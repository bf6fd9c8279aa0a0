// package validation provides helper functions for request data validation.
// It uses the go-playground/validator library and includes custom validation rules.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the calendar date format accepted by the "date" tag.
const DateLayout = "2006-01-02"

const maxLoginLength = 39

var (
	validate = validator.New()

	// GitHub logins: alphanumerics and single inner hyphens.
	githubLoginRe = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9]|-[A-Za-z0-9])*$`)
)

// init registers custom validation rules with the validator instance.
func init() {
	rules := map[string]validator.Func{
		"github_login": func(fl validator.FieldLevel) bool {
			if fl.Field().String() == "" {
				// Empty values are left to the 'required' tag.
				return true
			}

			login := fl.Field().String()

			return len(login) <= maxLoginLength && githubLoginRe.MatchString(login)
		},
		"date": func(fl validator.FieldLevel) bool {
			if fl.Field().String() == "" {
				return true
			}

			_, err := time.Parse(DateLayout, fl.Field().String())

			return err == nil
		},
	}

	for tag, fn := range rules {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("failed to register custom validation %q: %v", tag, err))
		}
	}
}

// ValidationError is a custom error type that holds a slice of validation error messages.
type ValidationError struct {
	Errors []string
}

// Error returns a single string concatenating all validation error messages.
func (v *ValidationError) Error() string {
	return strings.Join(v.Errors, ", ")
}

// ValidateStruct performs validation on a given struct based on its validation tags.
// If validation fails, it returns a *ValidationError with user-friendly messages.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Errors: []string{err.Error()}}
	}

	messages := make([]string, 0, len(fieldErrs))

	for _, fe := range fieldErrs {
		var message string

		switch fe.Tag() {
		case "github_login":
			message = fmt.Sprintf("field '%s' must be a valid GitHub login", fe.Field())
		case "date":
			message = fmt.Sprintf("field '%s' must be a date in YYYY-MM-DD format", fe.Field())
		case "url":
			message = fmt.Sprintf("field '%s' must be a valid URL", fe.Field())
		default:
			message = fmt.Sprintf(
				"field '%s' failed on the '%s' tag",
				fe.Field(),
				fe.Tag(),
			)
		}

		messages = append(messages, message)
	}

	return &ValidationError{Errors: messages}
}
