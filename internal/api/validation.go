package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/terra-clan/impact-portal/internal/models"
)

// requestValidator wraps go-playground validator with the portal rules
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New()
	v.RegisterValidation("challenge_category", validateChallengeCategory)
	return &requestValidator{validate: v}
}

// Validate validates a struct and returns a readable message on failure
func (rv *requestValidator) Validate(i interface{}) error {
	err := rv.validate.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "challenge_category":
		return fmt.Sprintf("%s must be one of %s", field, strings.Join(models.ChallengeCategories, ", "))
	default:
		return fmt.Sprintf("%s failed on %s", field, fe.Tag())
	}
}

// validateChallengeCategory accepts the known challenge categories
func validateChallengeCategory(fl validator.FieldLevel) bool {
	return models.IsChallengeCategory(fl.Field().String())
}
