package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/placement-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single field validation failure
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// Validator wraps go-playground validation with the placement rules registered
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with custom rules registered
func New() *Validator {
	v := &Validator{validate: validator.New()}
	v.registerRules()
	return v
}

// Validate returns nil or ValidationErrors
func (v *Validator) Validate(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	out := make(ValidationErrors, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: getErrorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return out
}

// ToValidationErrors extracts field errors from an error returned by Validate
func ToValidationErrors(err error) ValidationErrors {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

func (v *Validator) registerRules() {
	// Programme key from the catalogue
	v.validate.RegisterValidation("program_key", func(fl validator.FieldLevel) bool {
		return models.IsKnownProgram(strings.TrimSpace(fl.Field().String()))
	})

	// Browser exit events that end an LMS session
	v.validate.RegisterValidation("unload_event", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "beforeunload", "unload", "pagehide":
			return true
		}
		return false
	})

	// SCORM 1.2 lesson status vocabulary
	v.validate.RegisterValidation("lesson_status", func(fl validator.FieldLevel) bool {
		switch models.LessonStatus(fl.Field().String()) {
		case models.LessonPassed, models.LessonCompleted, models.LessonFailed,
			models.LessonIncomplete, models.LessonBrowsed, models.LessonNotAttempted:
			return true
		}
		return false
	})
}

// getErrorMessage returns user-friendly error messages
func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", err.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", err.Param())
	case "program_key":
		return "must be a known programme (AT, CT, ET, FT, ICT, MT)"
	case "unload_event":
		return "must be beforeunload, unload or pagehide"
	case "lesson_status":
		return "must be a SCORM 1.2 lesson status"
	default:
		return fmt.Sprintf("validation failed for rule '%s'", err.Tag())
	}
}
