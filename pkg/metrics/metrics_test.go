package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := New("test")
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	m.RecordHTTPRequest("GET", "/api/orders", 200, 15*time.Millisecond)
	m.RecordOrderCreated()
	m.RecordOrderTransition("PENDING", "PROCESSING")
	m.RecordPayment("duplicate")
	m.RecordWebhook("checkout.session.completed", "ok")
	m.RecordNotification("order_shipped", "sent")
	m.RecordOutbox("sent", 3)
	m.RecordOutbox("failed", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/orders", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrderTransitions.WithLabelValues("PENDING", "PROCESSING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentsRecorded.WithLabelValues("duplicate")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.OutboxRelayed.WithLabelValues("sent")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.OutboxRelayed.WithLabelValues("failed")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordOrderCreated()
		m.RecordOrderTransition("a", "b")
		m.RecordNotification("x", "y")
		m.RecordRateLimited()
	})
}

func TestDoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, New("a").Register(reg))
	assert.Error(t, New("a").Register(reg))
}
