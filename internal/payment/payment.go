package payment

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is terminal: credentials are missing or the gateway was
	// never initialised (or already disposed).
	ErrNotConfigured = errors.New("payment gateway is not configured")
	ErrInvalidAmount = errors.New("amount must be a positive number of cents")

	// ErrAmountMismatch means the intent was created for a different amount
	// than the one being paid for. Nothing is charged.
	ErrAmountMismatch = errors.New("payment amount does not match the registration total")

	ErrAlreadyCaptured = errors.New("payment intent was already captured")
)

type Intent struct {
	ID           string
	ClientSecret string
	AmountCents  int64
	Currency     string
}

// Confirmation is the successful outcome of confirming a payment intent.
type Confirmation struct {
	Status            string
	ProviderPaymentID string
	TransactionID     string
	CardBrand         string
	CardLast4         string
	AmountCents       int64
}

// DeclineError carries the provider's own message so it can be shown verbatim.
type DeclineError struct {
	Code    string
	Message string
}

func (e *DeclineError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("payment declined: %s", e.Message)
	}
	return fmt.Sprintf("payment declined (%s): %s", e.Code, e.Message)
}

// TransportError wraps network failures and unexpected provider responses.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("payment provider unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AlreadyCapturedError is returned by Confirm for an intent an earlier
// confirmation already charged. Confirmation describes that charge.
type AlreadyCapturedError struct {
	Confirmation Confirmation
}

func (e *AlreadyCapturedError) Error() string {
	return fmt.Sprintf("payment intent %s was already captured", e.Confirmation.ProviderPaymentID)
}

func (e *AlreadyCapturedError) Is(target error) bool {
	return target == ErrAlreadyCaptured
}

// Gateway is the server half of a hosted card widget. The widget tokenises the
// card; the gateway creates intents and confirms them.
type Gateway interface {
	Initialize(ctx context.Context) error
	Dispose() error
	PublishableKey() string
	CreateIntent(ctx context.Context, amountCents int64, currency string) (Intent, error)
	// Confirm charges the intent only when its amount equals amountCents. An
	// intent that already succeeded is reported as *AlreadyCapturedError.
	Confirm(ctx context.Context, intentID, paymentMethodID string, amountCents int64) (Confirmation, error)
}
