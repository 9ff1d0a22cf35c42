package metrics

import (
	"errors"
	"testing"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "insufficient_stock", Outcome(apperror.InsufficientStock("x")))
	assert.Equal(t, "internal", Outcome(errors.New("boom")))
}

func TestRecordStockOperation(t *testing.T) {
	m := New("test")
	m.RecordStockOperation("reserve", nil)
	m.RecordStockOperation("reserve", apperror.InsufficientStock("x"))
	m.RecordStockOperation("reserve", apperror.InsufficientStock("y"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StockOperations.WithLabelValues("reserve", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StockOperations.WithLabelValues("reserve", "insufficient_stock")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordStockOperation("receive", nil)
		m.RecordReservationsExpired(3)
		m.RecordOrderTransition("shipped", nil)
	})
}
