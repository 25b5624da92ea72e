package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPoll(t *testing.T) {
	m := NewMetrics("test")
	m.RecordPoll("trades", time.Millisecond, nil)
	m.RecordPoll("trades", time.Millisecond, errors.New("rpc down"))
	m.RecordPoll("trades", time.Millisecond, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PollCycles.WithLabelValues("trades", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PollCycles.WithLabelValues("trades", "error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordPoll("x", time.Second, nil)
	m.RecordTrades("buy", 3)
	m.RecordMalformed()
	m.RecordHTTP("/healthz", http.MethodGet, 200, time.Millisecond)
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics("")
	m.RecordTrades("buy", 2)
	m.RecordStored(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `launchpad_trades_decoded_total{kind="buy"} 2`)
	assert.Contains(t, rec.Body.String(), "launchpad_trades_stored_total 2")
}
