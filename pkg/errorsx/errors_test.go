package errorsx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NotFound("order not found"), http.StatusNotFound},
		{InvalidState("Cart is empty"), http.StatusBadRequest},
		{InvalidTransition("bad"), http.StatusBadRequest},
		{Validation("bad input"), http.StatusBadRequest},
		{Unauthorized("no token"), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{Conflict("dup"), http.StatusConflict},
		{Upstream("gateway down", errors.New("timeout")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("checkout: %w", InvalidState("Cart is empty"))

	assert.Equal(t, KindInvalidState, KindOf(err))
	assert.True(t, IsKind(err, KindInvalidState))
	assert.False(t, IsKind(nil, KindInvalidState))
	assert.Equal(t, "Cart is empty", PublicMessage(err))
	assert.Equal(t, "Internal server error", PublicMessage(errors.New("db password leaked")))
}

func TestErrorsIsMatchesCode(t *testing.T) {
	sentinel := New(KindNotFound, "order_not_found", "Order not found")
	err := fmt.Errorf("load: %w", New(KindNotFound, "order_not_found", "Order 5 not found"))

	assert.ErrorIs(t, err, sentinel)
	assert.NotErrorIs(t, err, New(KindNotFound, "cart_not_found", "Cart not found"))
}

func TestUpstreamUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream("payment gateway failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}
