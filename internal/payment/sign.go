package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// orderRefPrefix marks order references generated for invoices.
const orderRefPrefix = "INV"

// nonceLength is the number of hex characters of randomness in an order
// reference.
const nonceLength = 12

// NewNonce returns 12 hex characters drawn from a random UUID.
func NewNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:nonceLength]
}

// OrderReference builds INV-{invoiceID}-{unixMillis}-{nonce}.
func OrderReference(invoiceID int64, now time.Time, nonce string) string {
	return fmt.Sprintf("%s-%d-%d-%s", orderRefPrefix, invoiceID, now.UnixMilli(), nonce)
}

// CanonicalString joins fields as key=value pairs sorted by key and
// separated by '&'. Values are used verbatim.
func CanonicalString(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}
	return b.String()
}

// OrderCanonical returns the canonical string signed for an outbound order.
func OrderCanonical(appID, orderID string, amount decimal.Decimal, timestamp int64) string {
	return CanonicalString(map[string]string{
		"amount":    amount.StringFixed(2),
		"appId":     appID,
		"orderId":   orderID,
		"timestamp": strconv.FormatInt(timestamp, 10),
	})
}

// SignOrder returns hex(HMAC-SHA256(secret, canonical order string)).
func SignOrder(secret, appID, orderID string, amount decimal.Decimal, timestamp int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(OrderCanonical(appID, orderID, amount, timestamp)))
	return hex.EncodeToString(mac.Sum(nil))
}
