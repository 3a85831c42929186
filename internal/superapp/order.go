package superapp

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the client-side lifecycle state of a merchant order.
type OrderStatus string

const (
	// StatusPrepared: order placed, cashier not yet shown. The only state in
	// which the order may still be abandoned with no further side effects.
	StatusPrepared OrderStatus = "prepared"

	// StatusProcessing: cashier invoked, outcome not yet known.
	StatusProcessing OrderStatus = "processing"

	// StatusCompleted: terminal success.
	StatusCompleted OrderStatus = "completed"

	// StatusFailed: terminal failure.
	StatusFailed OrderStatus = "failed"
)

// Order tracks one merchant order for the session. Orders are never deleted -
// they stay in the session history; the separate "active order" slot is
// cleared explicitly.
type Order struct {
	// OutBizID is the client-generated idempotency key.
	OutBizID string `json:"outBizId"`

	// PrepayID is assigned by the server at order placement.
	PrepayID string `json:"prepayId"`

	// Amount in integer minor units (100 = $1.00).
	Amount int64 `json:"amount"`

	Currency    string      `json:"currency"`
	Description string      `json:"description"`
	TimeExpire  int64       `json:"timeExpire"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`

	// LastQuery holds the most recent backend status payload, if any.
	LastQuery QueryResult `json:"lastQuery,omitempty"`
	QueriedAt time.Time   `json:"queriedAt,omitzero"`
}

// validTransitions: Prepared -> Processing -> {Completed | Failed}.
var validTransitions = map[OrderStatus][]OrderStatus{
	StatusPrepared:   {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

func (s OrderStatus) canTransitionTo(to OrderStatus) bool {
	for _, next := range validTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// QueryResult is the decoded status payload returned by the transaction
// result endpoint. The backend owns the schema; only the status field is
// interpreted client-side.
type QueryResult map[string]any

// Status returns the backend status string, if present.
func (q QueryResult) Status() string {
	s, _ := q["status"].(string)
	return s
}

// GenerateOrderID returns a fresh outBizId with the given prefix (defaults to
// "ORDER-").
func GenerateOrderID(prefix string) string {
	if prefix == "" {
		prefix = "ORDER-"
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
	return fmt.Sprintf("%s%d%s", prefix, time.Now().UnixMilli(), random)
}

// ExpiryTime returns the order expiry as epoch milliseconds, d from now.
func ExpiryTime(d time.Duration) int64 {
	return time.Now().Add(d).UnixMilli()
}
