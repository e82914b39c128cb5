package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToMinorUnits(t *testing.T) {
	cases := map[string]int64{
		"10":     1000,
		"5.50":   550,
		"19.99":  1999,
		"0.015":  2,
		"0":      0,
		"123.45": 12345,
	}
	for in, want := range cases {
		assert.Equal(t, want, ToMinorUnits(decimal.RequireFromString(in)), in)
	}
}

func TestTransactionIDFallsBackToSession(t *testing.T) {
	e := &WebhookEvent{SessionID: "cs_1"}
	assert.Equal(t, "cs_1", e.TransactionID())
	e.PaymentIntentID = "pi_1"
	assert.Equal(t, "pi_1", e.TransactionID())
}
