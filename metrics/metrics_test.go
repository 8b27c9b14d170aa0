package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCacheOp(t *testing.T) {
	before := testutil.ToFloat64(CacheOperations.WithLabelValues("get", "hit"))
	RecordCacheOp("get", "hit")
	assert.Equal(t, before+1, testutil.ToFloat64(CacheOperations.WithLabelValues("get", "hit")))
}

func TestRecordUpstream(t *testing.T) {
	before := testutil.ToFloat64(UpstreamRequests.WithLabelValues("search", "503"))
	RecordUpstream("search", 503, 250*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(UpstreamRequests.WithLabelValues("search", "503")))
}

func TestRecordSearch(t *testing.T) {
	before := testutil.ToFloat64(SearchOutcomes.WithLabelValues("fallback"))
	RecordSearch("fallback", false, time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(SearchOutcomes.WithLabelValues("fallback")))
}

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("/search", "GET", "200"))
	RecordHTTPRequest("/search", "GET", 200, 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequests.WithLabelValues("/search", "GET", "200")))
}
