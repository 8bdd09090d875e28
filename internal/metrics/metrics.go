// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ゲートウェイクライアント、クエリキャッシュ、ミューテーション
// コーディネーターから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(operation string, duration time.Duration)
	RecordTransportError()
	RecordCacheHit(kind string)
	RecordCacheMiss(kind string)
	RecordCacheCoalesced(kind string)
	RecordCacheInvalidation(kind string)
	RecordMutation(kind string, success bool)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus        *prometheus.CounterVec
	requestLatency    *prometheus.HistogramVec
	transportErrors   prometheus.Counter
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	cacheCoalesced    *prometheus.CounterVec
	cacheInvalidation *prometheus.CounterVec
	mutations         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tchegl_http_status_total",
			Help: "HTTPステータスコード別のAPIレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tchegl_request_latency_seconds",
			Help:    "API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		transportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tchegl_transport_errors_total",
			Help: "ネットワーク層で失敗したAPI呼び出しの合計数",
		}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tchegl_cache_hits_total",
			Help: "クエリキャッシュのヒット数（リソース種別）",
		}, []string{"kind"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tchegl_cache_misses_total",
			Help: "クエリキャッシュのミス数（リソース種別）",
		}, []string{"kind"}),
		cacheCoalesced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tchegl_cache_coalesced_total",
			Help: "実行中フェッチに合流した読み取りの数（リソース種別）",
		}, []string{"kind"}),
		cacheInvalidation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tchegl_cache_invalidations_total",
			Help: "キャッシュ無効化の数（リソース種別）",
		}, []string{"kind"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tchegl_mutations_total",
			Help: "ミューテーションの実行数（種別・結果）",
		}, []string{"kind", "outcome"}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.transportErrors,
		c.cacheHits,
		c.cacheMisses,
		c.cacheCoalesced,
		c.cacheInvalidation,
		c.mutations,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(operation string, duration time.Duration) {
	c.requestLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordTransportError はネットワーク層の失敗を記録する。
func (c *Collector) RecordTransportError() {
	c.transportErrors.Inc()
}

// RecordCacheHit はキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit(kind string) {
	c.cacheHits.WithLabelValues(kind).Inc()
}

// RecordCacheMiss はキャッシュミスを記録する。
func (c *Collector) RecordCacheMiss(kind string) {
	c.cacheMisses.WithLabelValues(kind).Inc()
}

// RecordCacheCoalesced は実行中フェッチへの合流を記録する。
func (c *Collector) RecordCacheCoalesced(kind string) {
	c.cacheCoalesced.WithLabelValues(kind).Inc()
}

// RecordCacheInvalidation はキャッシュ無効化を記録する。
func (c *Collector) RecordCacheInvalidation(kind string) {
	c.cacheInvalidation.WithLabelValues(kind).Inc()
}

// RecordMutation はミューテーションの実行結果を記録する。
func (c *Collector) RecordMutation(kind string, success bool) {
	outcome := "succeeded"
	if !success {
		outcome = "failed"
	}
	c.mutations.WithLabelValues(kind, outcome).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollectorを返す。
// メトリクスが不要なテストやワンショットCLI実行で使用する。
func Nop() MetricsCollector {
	return nopCollector{}
}

type nopCollector struct{}

func (nopCollector) RecordHTTPStatus(int)                       {}
func (nopCollector) RecordRequestLatency(string, time.Duration) {}
func (nopCollector) RecordTransportError()                      {}
func (nopCollector) RecordCacheHit(string)                      {}
func (nopCollector) RecordCacheMiss(string)                     {}
func (nopCollector) RecordCacheCoalesced(string)                {}
func (nopCollector) RecordCacheInvalidation(string)             {}
func (nopCollector) RecordMutation(string, bool)                {}
