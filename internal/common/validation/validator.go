// Package validation wraps go-playground/validator with the field rules used
// by the admin API and message formatting that reports JSON field names.
package validation

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"connection-broker/internal/common/errors"
	"connection-broker/internal/models"
)

// Validator validates request structs using struct tags
type Validator struct {
	validate *validator.Validate
}

// FieldError is a single failed rule, keyed by JSON field name
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// New creates a Validator with the broker's custom rules registered
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	registerBrokerValidators(v)

	return &Validator{validate: v}
}

// ValidateStruct returns a validation error describing every failed field
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrors := v.FieldErrors(err)
	messages := make([]string, len(fieldErrors))
	for i, fe := range fieldErrors {
		messages[i] = fe.Message
	}

	appErr := errors.ValidationError(strings.Join(messages, "; "))
	return appErr.WithContext("fields", fieldErrors)
}

// FieldErrors flattens a validator error into FieldErrors
func (v *Validator) FieldErrors(err error) []FieldError {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return []FieldError{{Field: "unknown", Tag: "error", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: formatFieldError(fe),
		})
	}
	return out
}

func formatFieldError(err validator.FieldError) string {
	switch err.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("field '%s' is required", err.Field())
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", err.Field(), err.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", err.Field(), err.Param())
	case "crm_domain":
		return fmt.Sprintf("field '%s' must be a hostname or http(s) URL", err.Field())
	case "ai_provider":
		return fmt.Sprintf("field '%s' must be one of: openai, anthropic", err.Field())
	case "chat_role":
		return fmt.Sprintf("field '%s' must be one of: system, user, assistant", err.Field())
	case "dive":
		return fmt.Sprintf("field '%s' is invalid", err.Field())
	default:
		return fmt.Sprintf("field '%s' failed validation: %s", err.Field(), err.Tag())
	}
}

func registerBrokerValidators(v *validator.Validate) {
	v.RegisterValidation("crm_domain", func(fl validator.FieldLevel) bool {
		return validDomain(fl.Field().String())
	})

	v.RegisterValidation("ai_provider", func(fl validator.FieldLevel) bool {
		switch models.Provider(fl.Field().String()) {
		case models.ProviderOpenAI, models.ProviderAnthropic:
			return true
		}
		return false
	})

	v.RegisterValidation("chat_role", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case models.RoleSystem, models.RoleUser, models.RoleAssistant:
			return true
		}
		return false
	})
}

// validDomain accepts what NormalizeDomain can turn into an absolute URL
func validDomain(domain string) bool {
	domain = strings.TrimSpace(domain)
	if domain == "" || strings.ContainsAny(domain, " \t\r\n") {
		return false
	}

	u, err := url.Parse(models.NormalizeDomain(domain))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
