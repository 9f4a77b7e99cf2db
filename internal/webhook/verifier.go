// Package webhook authenticates processor notifications and applies them to
// gateway transactions and invoices exactly once.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"paygate/internal/types"
)

// DefaultTolerance bounds the clock skew accepted in either direction.
const DefaultTolerance = 300 * time.Second

// Payload is the notification body sent by the processor.
type Payload struct {
	PaymentID string           `json:"paymentId" validate:"required"`
	Status    string           `json:"status" validate:"required"`
	Amount    *decimal.Decimal `json:"amount" validate:"required"`
	OrderID   string           `json:"orderId" validate:"required"`
	Message   string           `json:"message,omitempty"`
}

// Verifier checks a notification's signature and freshness.
type Verifier struct {
	tolerance time.Duration
	now       func() time.Time
}

// VerifierOption customizes a Verifier.
type VerifierOption func(*Verifier)

// WithVerifierClock overrides the wall clock.
func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier creates a Verifier. A non-positive tolerance selects
// DefaultTolerance.
func NewVerifier(tolerance time.Duration, opts ...VerifierOption) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	v := &Verifier{tolerance: tolerance, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Sign returns hex(HMAC-SHA256(secret, timestamp || body)).
func Sign(secret types.SecretString, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret.Unmask()))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify authenticates rawBody and decodes it. Checks run in order: signature
// present, timestamp within tolerance, signature matches, body parses. The
// timestamp is unix seconds.
func (v *Verifier) Verify(signature, timestamp string, rawBody []byte, secret types.SecretString) (*Payload, error) {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingSignature, "Missing signature", nil)
	}

	ts, err := strconv.ParseInt(strings.TrimSpace(timestamp), 10, 64)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeAuthSignatureExpired, "Missing or invalid timestamp", err)
	}
	skew := v.now().Sub(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > v.tolerance {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeAuthSignatureExpired, "Timestamp outside tolerance", nil,
			map[string]any{"skew_seconds": int64(skew / time.Second)})
	}

	got, err := hex.DecodeString(signature)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodePermissionSignatureInvalid, "Invalid signature", nil)
	}
	want, _ := hex.DecodeString(Sign(secret, strings.TrimSpace(timestamp), rawBody))
	if !hmac.Equal(got, want) {
		return nil, types.NewAppError(types.ErrCodePermissionSignatureInvalid, "Invalid signature", nil)
	}

	var p Payload
	if err := json.Unmarshal(rawBody, &p); err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationMalformedBody, "Malformed body", err)
	}
	return &p, nil
}
