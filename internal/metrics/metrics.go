// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ゲートウェイ名のラベル値
const (
	GatewayAuth     = "auth"
	GatewaySettings = "settings"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやゲートウェイクライアントから利用する。
type MetricsCollector interface {
	RecordAuthAttempt(action, outcome string)
	RecordGatewayLatency(gateway string, duration time.Duration)
	RecordGatewayFailure(gateway, reason string)
	RecordDaySaved(mood string)
	RecordOnboardingCompleted()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authAttempts   *prometheus.CounterVec
	gatewayLatency *prometheus.HistogramVec
	gatewayFail    *prometheus.CounterVec
	daysSaved      *prometheus.CounterVec
	onboarded      prometheus.Counter
	httpStatus     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diary_auth_attempts_total",
			Help: "ログイン・登録の試行数（結果別）",
		}, []string{"action", "outcome"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "diary_gateway_latency_seconds",
			Help:    "外部APIのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"gateway"}),
		gatewayFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diary_gateway_fail_total",
			Help: "外部API呼び出し失敗の合計数",
		}, []string{"gateway", "reason"}),
		daysSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diary_days_saved_total",
			Help: "保存された日記の合計数（気分別）",
		}, []string{"mood"}),
		onboarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diary_onboarding_completed_total",
			Help: "オンボーディング完了の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diary_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.authAttempts,
		c.gatewayLatency,
		c.gatewayFail,
		c.daysSaved,
		c.onboarded,
		c.httpStatus,
	)

	return c
}

// RecordAuthAttempt はログイン・登録の試行結果を記録する。
// outcomeは "success", "invalid", "rejected", "unavailable" のいずれか。
func (c *Collector) RecordAuthAttempt(action, outcome string) {
	c.authAttempts.WithLabelValues(action, outcome).Inc()
}

// RecordGatewayLatency は外部API呼び出しのレイテンシを記録する。
func (c *Collector) RecordGatewayLatency(gateway string, duration time.Duration) {
	c.gatewayLatency.WithLabelValues(gateway).Observe(duration.Seconds())
}

// RecordGatewayFailure は外部API呼び出しの失敗を記録する。
func (c *Collector) RecordGatewayFailure(gateway, reason string) {
	c.gatewayFail.WithLabelValues(gateway, reason).Inc()
}

// RecordDaySaved は日記の保存を記録する。
func (c *Collector) RecordDaySaved(mood string) {
	c.daysSaved.WithLabelValues(mood).Inc()
}

// RecordOnboardingCompleted はオンボーディング完了を記録する。
func (c *Collector) RecordOnboardingCompleted() {
	c.onboarded.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// NopCollector は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type NopCollector struct{}

func (NopCollector) RecordAuthAttempt(string, string) {}
func (NopCollector) RecordGatewayLatency(string, time.Duration) {}
func (NopCollector) RecordGatewayFailure(string, string) {}
func (NopCollector) RecordDaySaved(string) {}
func (NopCollector) RecordOnboardingCompleted() {}
func (NopCollector) RecordHTTPStatus(int) {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
