package core

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"paygate/internal/types"
)

// ValidationError describes a single failed rule, keyed by JSON field name.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult collects every rule failure of one struct.
type ValidationResult struct {
	Errors []ValidationError
}

// IsValid reports whether no rule failed.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Validator wraps go-playground/validator and registers domain-specific
// rules:
//   - decimal_positive: a decimal.Decimal strictly greater than zero.
//   - abs_url: an absolute http(s) URL.
//
// Field names in errors come from json tags so callers can report the name
// clients actually sent.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a new Validator and registers custom validation tags.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	// Decimals validate as their string form.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("decimal_positive", validateDecimalPositive)
	_ = v.RegisterValidation("abs_url", validateAbsURL)

	return &Validator{validate: v, logger: logger}
}

func validateDecimalPositive(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return d.IsPositive()
}

func validateAbsURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}

// ValidateStruct runs all rules on s. The returned AppError carries the code
// of the first failure, a message naming its field and every failure under
// details["validation_errors"].
func (v *Validator) ValidateStruct(s any) error {
	result := v.Check(s)
	if result.IsValid() {
		return nil
	}

	first := result.Errors[0]
	return types.NewAppErrorWithDetails(
		types.ErrorCode(first.Code),
		first.Message,
		nil,
		map[string]any{
			"field":             first.Field,
			"validation_errors": result.Errors,
		},
	)
}

// Check runs all rules and returns every failure.
func (v *Validator) Check(s any) ValidationResult {
	var result ValidationResult

	err := v.validate.Struct(s)
	if err == nil {
		return result
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		v.logger.Error("validator misuse", "error", err)
		result.Errors = append(result.Errors, ValidationError{
			Code:    string(types.ErrCodeInternalUnexpected),
			Message: "validation could not be performed",
		})
		return result
	}

	for _, fe := range verrs {
		result.Errors = append(result.Errors, ValidationError{
			Field:   fe.Field(),
			Code:    tagToErrorCode(fe.Tag()),
			Message: messageFor(fe),
		})
	}
	return result
}

// tagToErrorCode maps a validator tag to the API error code.
func tagToErrorCode(tag string) string {
	switch tag {
	case "required":
		return string(types.ErrCodeValidationMissingField)
	case "decimal_positive":
		return string(types.ErrCodeValidationInvalidAmount)
	case "url", "abs_url":
		return string(types.ErrCodeValidationInvalidURL)
	default:
		return string(types.ErrCodeValidationMalformedBody)
	}
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Missing required field: %s", fe.Field())
	case "decimal_positive":
		return fmt.Sprintf("Field %s must be a positive amount", fe.Field())
	case "url", "abs_url":
		return fmt.Sprintf("Field %s must be an absolute URL", fe.Field())
	default:
		return fmt.Sprintf("Field %s failed %s validation", fe.Field(), fe.Tag())
	}
}
