package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paygate/internal/types"
)

func TestJSON_Success(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusCreated, APIResponse{Data: map[string]int{"n": 1}})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"n":1}}`, rec.Body.String())
}

func TestJSON_MarshalFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, map[string]any{"ch": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), string(types.ErrCodeInternalUnexpected))
}

func TestError_StatusFollowsCode(t *testing.T) {
	tests := []struct {
		code types.ErrorCode
		want int
	}{
		{types.ErrCodeValidationMissingField, http.StatusBadRequest},
		{types.ErrCodeAuthTokenMissing, http.StatusUnauthorized},
		{types.ErrCodePermissionSignatureInvalid, http.StatusForbidden},
		{types.ErrCodeNotFoundInvoice, http.StatusNotFound},
		{types.ErrCodeConflictInvoicePaid, http.StatusConflict},
		{types.ErrCodePaymentRejected, http.StatusPaymentRequired},
		{types.ErrCodeUpstreamProcessorUnavailable, http.StatusBadGateway},
		{types.ErrCodeInternalDB, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), types.NewAppError(tt.code, "msg", nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestError_WrappedAppErrorHidesCause(t *testing.T) {
	cause := errors.New("pq: password authentication failed")
	err := fmt.Errorf("outer: %w", types.NewAppErrorWithDetails(types.ErrCodeInternalDB, "database unavailable", cause, map[string]any{"op": "insert"}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(types.WithRequestID(req.Context(), "req-9"))
	rec := httptest.NewRecorder()
	Error(rec, req, err)

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrCodeInternalDB), resp.Error.Code)
	assert.Equal(t, "req-9", resp.Error.RequestID)
	assert.Equal(t, "insert", resp.Error.Details["op"])
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestError_GenericError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("secret internals"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret internals")
}

func TestText(t *testing.T) {
	rec := httptest.NewRecorder()
	Text(rec, http.StatusForbidden, "Invalid signature")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Invalid signature", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestDecodeJSON(t *testing.T) {
	type dst struct {
		ReturnURL string `json:"returnUrl"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"returnUrl":"https://x"}`},
		{name: "unknown field", body: `{"amount":"1.00"}`, wantErr: true},
		{name: "syntax", body: `{"returnUrl":`, wantErr: true},
		{name: "empty", body: ``, wantErr: true},
		{name: "type mismatch", body: `{"returnUrl":5}`, wantErr: true},
		{name: "multiple values", body: `{} {}`, wantErr: true},
		{name: "too large", body: `{"returnUrl":"` + strings.Repeat("a", maxRequestBodySize) + `"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var d dst
			err := DecodeJSON(rec, req, &d)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, types.HasCode(err, types.ErrCodeValidationMalformedBody), "got %v", err)
		})
	}
}
