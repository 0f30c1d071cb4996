// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 上流APIのエンドポイント名
const (
	EndpointCurrent = "current"
	EndpointSearch  = "search"
)

// 上流呼び出し結果の分類
const (
	ResultSuccess      = "success"
	ResultConfigError  = "config_error"
	ResultUpstreamFail = "upstream_error"
	ResultDataError    = "data_error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 天気クライアント、キャッシュ、アクティビティ層から利用する。
type MetricsCollector interface {
	RecordUpstreamRequest(endpoint, result string)
	RecordUpstreamLatency(endpoint string, duration time.Duration)
	RecordCacheHit()
	RecordCacheMiss()
	RecordHistoryRecorded()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	historyRecorded  prometheus.Counter
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenki_upstream_requests_total",
			Help: "天気APIへのリクエスト数（エンドポイント・結果別）",
		}, []string{"endpoint", "result"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tenki_upstream_latency_seconds",
			Help:    "天気API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenki_weather_cache_total",
			Help: "天気キャッシュの参照数（hit/miss別）",
		}, []string{"result"}),
		historyRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenki_history_recorded_total",
			Help: "記録された検索履歴の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenki_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.upstreamRequests,
		c.upstreamLatency,
		c.cacheLookups,
		c.historyRecorded,
		c.httpStatus,
	)

	return c
}

// RecordUpstreamRequest は上流APIへのリクエスト結果を記録する。
func (c *Collector) RecordUpstreamRequest(endpoint, result string) {
	c.upstreamRequests.WithLabelValues(endpoint, result).Inc()
}

// RecordUpstreamLatency は上流APIのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(endpoint string, duration time.Duration) {
	c.upstreamLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordCacheHit はキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit() {
	c.cacheLookups.WithLabelValues("hit").Inc()
}

// RecordCacheMiss はキャッシュミスを記録する。
func (c *Collector) RecordCacheMiss() {
	c.cacheLookups.WithLabelValues("miss").Inc()
}

// RecordHistoryRecorded は検索履歴の記録を記録する。
func (c *Collector) RecordHistoryRecorded() {
	c.historyRecorded.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordUpstreamRequest(string, string) {}
func (Nop) RecordUpstreamLatency(string, time.Duration) {}
func (Nop) RecordCacheHit() {}
func (Nop) RecordCacheMiss() {}
func (Nop) RecordHistoryRecorded() {}
func (Nop) RecordHTTPStatus(int) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NewStatusMiddleware はレスポンスのHTTPステータスコードを記録するミドルウェアを返す。
func NewStatusMiddleware(collector MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)
			collector.RecordHTTPStatus(rec.statusCode)
		})
	}
}

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
