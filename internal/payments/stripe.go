package payments

import (
	"context"

	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// StripeIntent is the gateway view of a PaymentIntent.
type StripeIntent struct {
	ID           string
	ClientSecret string
	Status       string
	ChargeID     string
	// LastError is the decline message of the latest failed attempt.
	LastError string
}

// Succeeded reports whether the intent captured funds.
func (i *StripeIntent) Succeeded() bool {
	return i.Status == string(stripe.PaymentIntentStatusSucceeded)
}

// Failed reports whether the intent was cancelled or its last payment
// attempt was declined. A fresh intent awaiting a payment method has not failed.
func (i *StripeIntent) Failed() bool {
	return i.Status == string(stripe.PaymentIntentStatusCanceled) ||
		(i.Status == string(stripe.PaymentIntentStatusRequiresPaymentMethod) && i.LastError != "")
}

// StripeClient is a thin wrapper around stripe-go PaymentIntents. It uses a
// per-client key instead of the package-level stripe.Key.
type StripeClient struct {
	intents *paymentintent.Client
}

// NewStripeClient creates a client for the given secret key.
func NewStripeClient(secretKey string) (*StripeClient, error) {
	if secretKey == "" {
		return nil, ErrNotConfigured
	}
	return &StripeClient{
		intents: &paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
	}, nil
}

// CreateIntent creates an automatically captured PaymentIntent.
func (s *StripeClient) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*StripeIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(MinorUnits(amount)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := s.intents.New(params)
	if err != nil {
		return nil, err
	}
	return toIntent(pi), nil
}

// GetIntent fetches the current state of a PaymentIntent.
func (s *StripeClient) GetIntent(ctx context.Context, id string) (*StripeIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.intents.Get(id, params)
	if err != nil {
		return nil, err
	}
	return toIntent(pi), nil
}

func toIntent(pi *stripe.PaymentIntent) *StripeIntent {
	intent := &StripeIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}
	if pi.LatestCharge != nil {
		intent.ChargeID = pi.LatestCharge.ID
	}
	if pi.LastPaymentError != nil {
		intent.LastError = pi.LastPaymentError.Msg
	}
	return intent
}
