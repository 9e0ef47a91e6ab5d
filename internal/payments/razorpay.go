package payments

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
	"github.com/shopspring/decimal"
)

// RazorpayOrder is a created Razorpay order.
type RazorpayOrder struct {
	ID       string
	Amount   int64
	Currency string
	KeyID    string
}

// RazorpayClient creates orders and verifies checkout signatures.
type RazorpayClient struct {
	client *razorpay.Client
	keyID  string
	secret string
}

// NewRazorpayClient creates a client for the given key pair.
func NewRazorpayClient(keyID, secret string) (*RazorpayClient, error) {
	if keyID == "" || secret == "" {
		return nil, ErrNotConfigured
	}
	return &RazorpayClient{
		client: razorpay.NewClient(keyID, secret),
		keyID:  keyID,
		secret: secret,
	}, nil
}

// CreateOrder creates an order for amount. The SDK call is synchronous and
// does not take a context.
func (c *RazorpayClient) CreateOrder(_ context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]string) (*RazorpayOrder, error) {
	data := map[string]interface{}{
		"amount":   MinorUnits(amount),
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}

	body, err := c.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay create order: response has no id")
	}

	return &RazorpayOrder{
		ID:       id,
		Amount:   MinorUnits(amount),
		Currency: currency,
		KeyID:    c.keyID,
	}, nil
}

// VerifySignature checks the checkout signature over order and payment IDs.
func (c *RazorpayClient) VerifySignature(orderID, paymentID, signature string) bool {
	params := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	return utils.VerifyPaymentSignature(params, signature, c.secret)
}
