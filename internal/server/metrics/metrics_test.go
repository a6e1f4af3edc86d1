package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOperation(t *testing.T) {
	before := testutil.ToFloat64(operations.WithLabelValues("assign", "assigned"))
	RecordOperation("assign", "assigned", 150*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(operations.WithLabelValues("assign", "assigned")))
}

func TestRecordEvictionAndProbe(t *testing.T) {
	ev := testutil.ToFloat64(evictions)
	RecordEviction()
	assert.Equal(t, ev+1, testutil.ToFloat64(evictions))

	dead := testutil.ToFloat64(probes.WithLabelValues("dead"))
	RecordProbe("dead", time.Second)
	assert.Equal(t, dead+1, testutil.ToFloat64(probes.WithLabelValues("dead")))
}

func TestRecordReconciled_IgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(reconciled.WithLabelValues("orphans"))
	RecordReconciled("orphans", 0)
	RecordReconciled("orphans", 3)
	assert.Equal(t, before+3, testutil.ToFloat64(reconciled.WithLabelValues("orphans")))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	RecordEviction()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "warrantypool_pool_evictions_total"))
}
