package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestCollector_RecordsCounters は各カウンターが記録されることを検証する。
func TestCollector_RecordsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)
	c.RecordTransportError()
	c.RecordCacheHit("products")
	c.RecordCacheMiss("cart")
	c.RecordCacheCoalesced("products")
	c.RecordCacheInvalidation("cart")
	c.RecordMutation("add_to_cart", true)
	c.RecordMutation("add_to_cart", false)

	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("200")); got != 2 {
		t.Errorf("httpStatus[200] = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("404")); got != 1 {
		t.Errorf("httpStatus[404] = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.transportErrors); got != 1 {
		t.Errorf("transportErrors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.cacheHits.WithLabelValues("products")); got != 1 {
		t.Errorf("cacheHits[products] = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.mutations.WithLabelValues("add_to_cart", "succeeded")); got != 1 {
		t.Errorf("mutations[add_to_cart,succeeded] = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.mutations.WithLabelValues("add_to_cart", "failed")); got != 1 {
		t.Errorf("mutations[add_to_cart,failed] = %v, want 1", got)
	}
}

// TestHandler_ExposesMetrics は/metricsハンドラーが登録済みメトリクスを
// 公開することを検証する。
func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordHTTPStatus(200)
	c.RecordRequestLatency("list_products", 120*time.Millisecond)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, req)

	body := rec.Body.String()
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(body, "tchegl_http_status_total") {
		t.Errorf("expected tchegl_http_status_total in metrics output")
	}
	if !strings.Contains(body, "tchegl_request_latency_seconds") {
		t.Errorf("expected tchegl_request_latency_seconds in metrics output")
	}
}

// TestNop_DoesNotPanic は何も登録していないNopコレクターが安全に呼べることを検証する。
func TestNop_DoesNotPanic(t *testing.T) {
	c := Nop()
	c.RecordHTTPStatus(500)
	c.RecordRequestLatency("x", time.Second)
	c.RecordTransportError()
	c.RecordCacheHit("a")
	c.RecordCacheMiss("a")
	c.RecordCacheCoalesced("a")
	c.RecordCacheInvalidation("a")
	c.RecordMutation("m", true)
}
