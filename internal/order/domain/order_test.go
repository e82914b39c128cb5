package domain

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/ecommerce/pkg/errorsx"
)

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestNewOrderTotals(t *testing.T) {
	o, err := NewOrder(7, " 1 Main St ", []Line{
		{ProductID: 1, Name: "Mug", Price: price("10.00"), Quantity: 2},
		{ProductID: 2, Name: "Pen", Price: price("5.50"), Quantity: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "25.50", o.TotalAmount.StringFixed(2))
	assert.Equal(t, "1 Main St", o.ShippingAddress)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "Mug", o.Items[0].ProductName)
	assert.Equal(t, "20.00", o.Items[0].Subtotal().StringFixed(2))
}

func TestNewOrderRejectsEmptyOrUnpriced(t *testing.T) {
	_, err := NewOrder(7, "addr", nil)
	assert.True(t, errorsx.IsKind(err, errorsx.KindInvalidState))

	_, err = NewOrder(7, "addr", []Line{{ProductID: 3, Name: "Gift", Quantity: 1}})
	require.Error(t, err)
	assert.True(t, errorsx.IsKind(err, errorsx.KindInvalidState))
	assert.Contains(t, err.Error(), "Gift")
}

func TestTransitionTable(t *testing.T) {
	all := []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}
	allowed := map[[2]Status]bool{
		{StatusPending, StatusProcessing}:   true,
		{StatusPending, StatusCancelled}:    true,
		{StatusProcessing, StatusShipped}:   true,
		{StatusProcessing, StatusCancelled}: true,
		{StatusShipped, StatusDelivered}:    true,
	}

	for _, from := range all {
		for _, to := range all {
			o := &Order{ID: 1, Status: from}
			err := o.TransitionTo(context.Background(), to)
			if allowed[[2]Status{from, to}] {
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, o.Status)
			} else {
				require.Error(t, err, "%s -> %s", from, to)
				assert.True(t, errorsx.IsKind(err, errorsx.KindInvalidTransition))
				assert.Equal(t, from, o.Status)
			}
		}
	}
}

func TestSequentialTransitions(t *testing.T) {
	ctx := context.Background()
	o, err := NewOrder(1, "addr", []Line{{ProductID: 1, Name: "Mug", Price: price("1.00"), Quantity: 1}})
	require.NoError(t, err)

	require.NoError(t, o.TransitionTo(ctx, StatusProcessing))
	require.NoError(t, o.TransitionTo(ctx, StatusShipped))
	require.NoError(t, o.TransitionTo(ctx, StatusDelivered))
	assert.Error(t, o.TransitionTo(ctx, StatusCancelled))
}

func TestMarkPaid(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	o := &Order{ID: 1, Status: StatusPending}
	moved, err := o.MarkPaid(ctx, "cs_1", "pi_1", now)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, StatusProcessing, o.Status)
	assert.Equal(t, "cs_1", o.CheckoutSessionID)
	assert.Equal(t, "pi_1", o.PaymentIntentID)

	cancelled := &Order{ID: 2, Status: StatusCancelled}
	moved, err = cancelled.MarkPaid(ctx, "cs_2", "pi_2", now)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, "pi_2", cancelled.PaymentIntentID)
}

func TestCanPayAndParseStatus(t *testing.T) {
	assert.NoError(t, (&Order{Status: StatusPending}).CanPay())
	err := (&Order{Status: StatusShipped}).CanPay()
	assert.True(t, errorsx.IsKind(err, errorsx.KindInvalidState))

	st, err := ParseStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, st)
	_, err = ParseStatus("LOST")
	assert.True(t, errorsx.IsKind(err, errorsx.KindValidation))
}

func TestSummary(t *testing.T) {
	o, err := NewOrder(9, "addr", []Line{{ProductID: 1, Name: "Mug", Price: price("10"), Quantity: 3}})
	require.NoError(t, err)
	o.ID = 5

	s := o.Summary()
	assert.EqualValues(t, 5, s.ID)
	assert.EqualValues(t, 9, s.UserID)
	assert.Equal(t, "30.00", s.TotalAmount)
	require.Len(t, s.Items, 1)
	assert.Equal(t, "10.00", s.Items[0].UnitPrice)
}
