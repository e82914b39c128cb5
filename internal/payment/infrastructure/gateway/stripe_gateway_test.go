package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/wyfcoding/ecommerce/internal/payment/domain"
)

const completedEvent = `{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {
    "object": {
      "id": "cs_test_1",
      "object": "checkout.session",
      "payment_intent": "pi_123",
      "currency": "usd",
      "amount_total": 2550,
      "metadata": {"orderId": "42"}
    }
  }
}`

func TestParseWebhookWithoutSecret(t *testing.T) {
	g := NewStripeGateway("sk_test", "")

	e, err := g.ParseWebhook([]byte(completedEvent), "")
	require.NoError(t, err)
	assert.Equal(t, domain.EventCheckoutCompleted, e.Type)
	assert.Equal(t, "cs_test_1", e.SessionID)
	assert.Equal(t, "pi_123", e.PaymentIntentID)
	assert.Equal(t, "usd", e.Currency)
	assert.EqualValues(t, 2550, e.AmountTotal)
	assert.Equal(t, "42", e.Metadata["orderId"])
}

func TestParseWebhookIgnoredType(t *testing.T) {
	g := NewStripeGateway("sk_test", "")
	e, err := g.ParseWebhook([]byte(`{"id":"evt_2","type":"payment_intent.created","data":{"object":{}}}`), "")
	require.NoError(t, err)
	assert.Equal(t, "payment_intent.created", e.Type)
	assert.Empty(t, e.SessionID)
}

func TestParseWebhookSignature(t *testing.T) {
	const secret = "whsec_test"
	g := NewStripeGateway("sk_test", secret)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(completedEvent),
		Secret:    secret,
		Timestamp: time.Now(),
	})
	e, err := g.ParseWebhook(signed.Payload, signed.Header)
	require.NoError(t, err)
	assert.Equal(t, "pi_123", e.PaymentIntentID)

	_, err = g.ParseWebhook([]byte(completedEvent), "t=1,v1=deadbeef")
	assert.Error(t, err)

	_, err = g.ParseWebhook([]byte(completedEvent), "")
	assert.Error(t, err)
}

func TestParseWebhookMalformed(t *testing.T) {
	g := NewStripeGateway("sk_test", "")
	_, err := g.ParseWebhook([]byte("not json"), "")
	assert.Error(t, err)
}
