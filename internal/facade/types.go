package facade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/visago/payments/internal/gateway"
)

// Status is the normalised remote transaction state reported by the backend facade.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further status change is expected.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Known reports whether the value is part of the status contract.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Verification carries the provider's post-payment verification result, when present.
type Verification struct {
	Verified bool   `json:"verified"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
}

// PaymentIntent is the result of a successful initiation. The caller owns it;
// the service does not retain intents.
type PaymentIntent struct {
	TransactionID string     `json:"transactionId" validate:"required"`
	PaymentURL    string     `json:"paymentUrl" validate:"required,url"`
	Status        Status     `json:"status"`
	Gateway       gateway.ID `json:"gateway"`
	ProviderRef   string     `json:"providerRef,omitempty"`
}

// TransactionStatus is the snapshot exchanged on every poll tick. Each check
// produces a fresh, independently owned value.
type TransactionStatus struct {
	TransactionID string        `json:"transactionId" validate:"required"`
	Status        Status        `json:"status" validate:"required"`
	Amount        float64       `json:"amount"`
	Currency      string        `json:"currency"`
	Gateway       gateway.ID    `json:"gateway"`
	Verification  *Verification `json:"verification,omitempty"`
}

// PaymentRecord is one entry of the payment history kept behind the facade.
type PaymentRecord struct {
	TransactionID string     `json:"transactionId"`
	Gateway       gateway.ID `json:"gateway"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Client abstracts the backend payment facade. Every call may be slow or fail;
// no ordering is guaranteed across independent calls.
type Client interface {
	Initiate(ctx context.Context, req gateway.Request) (PaymentIntent, error)
	CheckStatus(ctx context.Context, transactionID string) (TransactionStatus, error)
	Cancel(ctx context.Context, transactionID string) (bool, error)
	ListHistory(ctx context.Context) ([]PaymentRecord, error)
}

// ErrUnreachable marks a transient network or provider failure. During polling
// it is absorbed as a missed attempt; on initiation it surfaces to the caller.
var ErrUnreachable = errors.New("facade: gateway unreachable")

// ErrTransactionNotFound is returned when the facade does not know the transaction.
var ErrTransactionNotFound = errors.New("facade: transaction not found")

// RejectionError is a definitive refusal by the provider. It is terminal and
// never retried.
type RejectionError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("facade: gateway rejected request: %s", e.Message)
	}
	return fmt.Sprintf("facade: gateway rejected request (%s): %s", e.Code, e.Message)
}

// IsRejection reports whether err wraps a RejectionError.
func IsRejection(err error) bool {
	var target *RejectionError
	return errors.As(err, &target)
}
