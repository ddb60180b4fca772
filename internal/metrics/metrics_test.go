package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestLoginAttemptsTotal_CountsByResult(t *testing.T) {
	before := testutil.ToFloat64(LoginAttemptsTotal.WithLabelValues("success"))
	LoginAttemptsTotal.WithLabelValues("success").Inc()
	after := testutil.ToFloat64(LoginAttemptsTotal.WithLabelValues("success"))
	assert.Equal(t, before+1, after)
}

func TestSessionState_Gauge(t *testing.T) {
	SessionState.Set(1)
	assert.Equal(t, 1.0, testutil.ToFloat64(SessionState))
	SessionState.Set(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(SessionState))
}

func TestBusEventsPublishedTotal_PerKind(t *testing.T) {
	before := testutil.ToFloat64(BusEventsPublishedTotal.WithLabelValues("user_changed"))
	BusEventsPublishedTotal.WithLabelValues("user_changed").Inc()
	BusEventsPublishedTotal.WithLabelValues("signed_out").Inc()
	after := testutil.ToFloat64(BusEventsPublishedTotal.WithLabelValues("user_changed"))
	assert.Equal(t, before+1, after)
}
