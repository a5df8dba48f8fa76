package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestServer_ExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Add(3)

	srv := NewServerFor(":0", reg, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_counter_total 3")

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRecordCouponConsume(t *testing.T) {
	before := testutil.ToFloat64(CouponConsume.WithLabelValues("memory", "exhausted"))
	RecordCouponConsume("memory", false, nil)
	assert.Equal(t, before+1, testutil.ToFloat64(CouponConsume.WithLabelValues("memory", "exhausted")))

	before = testutil.ToFloat64(CouponConsume.WithLabelValues("memory", "error"))
	RecordCouponConsume("memory", true, errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(CouponConsume.WithLabelValues("memory", "error")))
}

func TestRecordCalculation(t *testing.T) {
	before := testutil.ToFloat64(PricingCalculations.WithLabelValues("Fixed", "config_invalid"))
	RecordCalculation("Fixed", "config_invalid", 0)
	assert.Equal(t, before+1, testutil.ToFloat64(PricingCalculations.WithLabelValues("Fixed", "config_invalid")))

	RecordCalculation("Progressive", "ok", 12.5)
	assert.Equal(t, 1, testutil.CollectAndCount(PricingTotalDue, "pricing_total_due"))
}
