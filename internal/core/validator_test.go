package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"paygate/internal/types"
)

type testPayload struct {
	PaymentID string           `json:"paymentId" validate:"required"`
	Amount    *decimal.Decimal `json:"amount" validate:"required,decimal_positive"`
	ReturnURL string           `json:"returnUrl" validate:"omitempty,abs_url"`
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestValidationResult_IsValid(t *testing.T) {
	if !(ValidationResult{}).IsValid() {
		t.Error("empty result should be valid")
	}
	if (ValidationResult{Errors: []ValidationError{{Field: "x"}}}).IsValid() {
		t.Error("errors should invalidate")
	}
}

func TestValidateStruct_Success(t *testing.T) {
	v := NewValidator(testLogger())
	err := v.ValidateStruct(testPayload{PaymentID: "abc", Amount: dec("19.99"), ReturnURL: "https://shop.example/return"})
	if err != nil {
		t.Errorf("expected nil error, got: %v", err)
	}
}

func TestValidateStruct_MissingFieldNamesJSONField(t *testing.T) {
	v := NewValidator(testLogger())

	err := v.ValidateStruct(testPayload{Amount: dec("1")})

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T: %v", err, err)
	}
	if appErr.Code != types.ErrCodeValidationMissingField {
		t.Errorf("expected code %s, got %s", types.ErrCodeValidationMissingField, appErr.Code)
	}
	if appErr.Details["field"] != "paymentId" {
		t.Errorf("expected field paymentId, got %v", appErr.Details["field"])
	}
	if appErr.Message != "Missing required field: paymentId" {
		t.Errorf("unexpected message %q", appErr.Message)
	}
}

func TestValidateStruct_NilAmountIsMissing(t *testing.T) {
	v := NewValidator(testLogger())
	err := v.ValidateStruct(testPayload{PaymentID: "abc"})
	if !types.HasCode(err, types.ErrCodeValidationMissingField) {
		t.Fatalf("expected missing field, got %v", err)
	}
}

func TestValidateStruct_NonPositiveAmount(t *testing.T) {
	v := NewValidator(testLogger())
	for _, amt := range []string{"0", "-5.00"} {
		err := v.ValidateStruct(testPayload{PaymentID: "abc", Amount: dec(amt)})
		if !types.HasCode(err, types.ErrCodeValidationInvalidAmount) {
			t.Errorf("amount %s: expected invalid amount, got %v", amt, err)
		}
	}
}

func TestValidateStruct_RelativeURL(t *testing.T) {
	v := NewValidator(testLogger())
	err := v.ValidateStruct(testPayload{PaymentID: "abc", Amount: dec("1"), ReturnURL: "/relative"})
	if !types.HasCode(err, types.ErrCodeValidationInvalidURL) {
		t.Errorf("expected invalid url, got %v", err)
	}
}

func TestCheck_CollectsAll(t *testing.T) {
	v := NewValidator(testLogger())
	result := v.Check(testPayload{ReturnURL: "ftp://x"})
	if len(result.Errors) != 3 {
		t.Fatalf("expected 3 errors, got %d: %+v", len(result.Errors), result.Errors)
	}
}

func TestTagToErrorCode(t *testing.T) {
	cases := map[string]types.ErrorCode{
		"required":         types.ErrCodeValidationMissingField,
		"decimal_positive": types.ErrCodeValidationInvalidAmount,
		"url":              types.ErrCodeValidationInvalidURL,
		"abs_url":          types.ErrCodeValidationInvalidURL,
		"oneof":            types.ErrCodeValidationMalformedBody,
	}
	for tag, want := range cases {
		if got := tagToErrorCode(tag); got != string(want) {
			t.Errorf("tagToErrorCode(%q) = %q, want %q", tag, got, want)
		}
	}
}
