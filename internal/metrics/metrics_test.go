package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(Flushes.WithLabelValues("read", "counter"))
	Flushes.WithLabelValues("read", "counter").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(Flushes.WithLabelValues("read", "counter")))

	ActiveSubscriptions.WithLabelValues("write").Set(3)
	require.Equal(t, float64(3), testutil.ToFloat64(ActiveSubscriptions.WithLabelValues("write")))
}

func TestTimer(t *testing.T) {
	NewTimer().ObserveDuration(FlushSendDuration)
	require.Equal(t, 1, testutil.CollectAndCount(FlushSendDuration))
}

func TestHandler(t *testing.T) {
	EventsEmitted.WithLabelValues("read").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "fsevents_events_emitted_total"))
}
