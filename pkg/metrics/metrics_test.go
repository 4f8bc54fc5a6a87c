package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("test", reg)

	c.PaymentsTotal.WithLabelValues("PAID").Inc()
	ObserveAmount(c.AmountCollectedTotal, decimal.RequireFromString("150.25"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.PaymentsTotal.WithLabelValues("PAID")))
	assert.InDelta(t, 150.25, testutil.ToFloat64(c.AmountCollectedTotal), 1e-9)

	// A second collector on a fresh registry must not panic on duplicate registration.
	assert.NotPanics(t, func() { NewCollector("test", prometheus.NewRegistry()) })
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("test", reg)
	c.BillsGeneratedTotal.Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_billing_bills_generated_total 1")
}
