package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v74"
)

func TestMinorUnits(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(40000), MinorUnits(decimal.NewFromInt(400)))
	assert.Equal(t, int64(18750), MinorUnits(decimal.RequireFromString("187.50")))
	assert.Equal(t, int64(1), MinorUnits(decimal.RequireFromString("0.01")))
}

func TestConstructorsRequireCredentials(t *testing.T) {
	t.Parallel()

	_, err := NewRazorpayClient("rzp_test", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewStripeClient("")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestRazorpayVerifySignature(t *testing.T) {
	t.Parallel()

	c, err := NewRazorpayClient("rzp_test_key", "secret")
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("order_1|pay_1"))
	valid := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, c.VerifySignature("order_1", "pay_1", valid))
	assert.False(t, c.VerifySignature("order_1", "pay_2", valid))
	assert.False(t, c.VerifySignature("order_1", "pay_1", ""))
}

func TestStripeIntentStatus(t *testing.T) {
	t.Parallel()

	assert.True(t, (&StripeIntent{Status: string(stripe.PaymentIntentStatusSucceeded)}).Succeeded())
	assert.True(t, (&StripeIntent{Status: string(stripe.PaymentIntentStatusCanceled)}).Failed())
	assert.False(t, (&StripeIntent{Status: string(stripe.PaymentIntentStatusRequiresPaymentMethod)}).Failed())
	assert.True(t, (&StripeIntent{Status: string(stripe.PaymentIntentStatusRequiresPaymentMethod), LastError: "card declined"}).Failed())
	processing := &StripeIntent{Status: string(stripe.PaymentIntentStatusProcessing)}
	assert.False(t, processing.Succeeded())
	assert.False(t, processing.Failed())
}
