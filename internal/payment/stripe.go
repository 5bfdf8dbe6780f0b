package payment

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v83"
	"go.uber.org/zap"

	"github.com/vietanh2810/rally-api/internal/config"
)

// StripeGateway confirms card payments collected by Stripe Elements.
type StripeGateway struct {
	conf *config.StripeConfig

	mu         sync.RWMutex
	client     *stripe.Client
	clientOpts []stripe.ClientOption
}

func NewStripeGateway(conf *config.StripeConfig) *StripeGateway {
	return &StripeGateway{
		conf: conf,
	}
}

func (g *StripeGateway) Initialize(ctx context.Context) error {
	if g.conf == nil || strings.TrimSpace(g.conf.SecretKey) == "" {
		return ErrNotConfigured
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client == nil {
		g.client = stripe.NewClient(g.conf.SecretKey, g.clientOpts...)
	}

	return nil
}

// Dispose drops the client; later calls report ErrNotConfigured until Initialize runs again.
func (g *StripeGateway) Dispose() error {
	g.mu.Lock()
	g.client = nil
	g.mu.Unlock()

	return nil
}

func (g *StripeGateway) PublishableKey() string {
	if g.conf == nil {
		return ""
	}
	return g.conf.PublishableKey
}

func (g *StripeGateway) currentClient() (*stripe.Client, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.client == nil {
		return nil, ErrNotConfigured
	}
	return g.client, nil
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amountCents int64, currency string) (Intent, error) {
	if amountCents <= 0 {
		return Intent{}, ErrInvalidAmount
	}
	sc, err := g.currentClient()
	if err != nil {
		return Intent{}, err
	}

	if currency == "" {
		currency = g.conf.Currency
	}
	currency = strings.ToLower(currency)

	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.SetIdempotencyKey(uuid.NewString())

	pi, err := sc.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return Intent{}, translateStripeErr(err)
	}

	return Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

func (g *StripeGateway) Confirm(ctx context.Context, intentID, paymentMethodID string, amountCents int64) (Confirmation, error) {
	sc, err := g.currentClient()
	if err != nil {
		return Confirmation{}, err
	}

	retrieve := &stripe.PaymentIntentRetrieveParams{}
	retrieve.AddExpand("payment_method")
	retrieve.AddExpand("latest_charge")

	current, err := sc.V1PaymentIntents.Retrieve(ctx, intentID, retrieve)
	if err != nil {
		return Confirmation{}, translateStripeErr(err)
	}
	if current.Status == stripe.PaymentIntentStatusSucceeded {
		zap.L().Warn("payment intent already captured",
			zap.String("payment_intent", intentID),
			zap.Int64("intent_amount", current.Amount))
		return Confirmation{}, &AlreadyCapturedError{Confirmation: confirmationFrom(current)}
	}
	if current.Amount != amountCents {
		zap.L().Warn("payment intent amount mismatch",
			zap.String("payment_intent", intentID),
			zap.Int64("intent_amount", current.Amount),
			zap.Int64("expected_amount", amountCents))
		return Confirmation{}, ErrAmountMismatch
	}

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethodID),
	}
	params.AddExpand("payment_method")
	params.AddExpand("latest_charge")

	pi, err := sc.V1PaymentIntents.Confirm(ctx, intentID, params)
	if err != nil {
		return Confirmation{}, translateStripeErr(err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		decline := &DeclineError{Code: string(pi.Status), Message: "payment was not completed"}
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			decline.Message = pi.LastPaymentError.Msg
		}
		zap.L().Info("payment intent not succeeded",
			zap.String("payment_intent", pi.ID),
			zap.String("status", string(pi.Status)))
		return Confirmation{}, decline
	}

	return confirmationFrom(pi), nil
}

func confirmationFrom(pi *stripe.PaymentIntent) Confirmation {
	conf := Confirmation{
		Status:            string(pi.Status),
		ProviderPaymentID: pi.ID,
		TransactionID:     pi.ID,
		AmountCents:       pi.Amount,
	}
	if pi.LatestCharge != nil && pi.LatestCharge.ID != "" {
		conf.TransactionID = pi.LatestCharge.ID
	}
	if pi.PaymentMethod != nil && pi.PaymentMethod.Card != nil {
		conf.CardBrand = string(pi.PaymentMethod.Card.Brand)
		conf.CardLast4 = pi.PaymentMethod.Card.Last4
	}
	return conf
}

// translateStripeErr keeps card errors apart from everything else.
func translateStripeErr(err error) error {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		switch serr.Type {
		case stripe.ErrorTypeCard:
			return &DeclineError{Code: string(serr.Code), Message: serr.Msg}
		case stripe.ErrorTypeInvalidRequest:
			if serr.HTTPStatusCode == 401 {
				return ErrNotConfigured
			}
			return &DeclineError{Code: string(serr.Code), Message: serr.Msg}
		}
	}

	return &TransportError{Err: err}
}
