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
// ハンドラー、ミドルウェア、無操作モニターから利用する。
type MetricsCollector interface {
	RecordLoginSuccess(role string)
	RecordLoginFailure()
	RecordSessionStart()
	RecordSessionEnd()
	RecordIdleWarning()
	RecordIdleLogout()
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(duration time.Duration)
	RecordReviewDecision(status string)
	RecordNotificationsSent(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess    *prometheus.CounterVec
	loginFail       prometheus.Counter
	activeSessions  prometheus.Gauge
	idleWarnings    prometheus.Counter
	idleLogouts     prometheus.Counter
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
	reviewDecisions *prometheus.CounterVec
	notifications   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esgportal_login_success_total",
			Help: "ロール別のログイン成功の合計数",
		}, []string{"role"}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "esgportal_login_fail_total",
			Help: "ログイン失敗の合計数",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "esgportal_active_sessions",
			Help: "現在有効なセッション数",
		}),
		idleWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "esgportal_idle_warnings_total",
			Help: "無操作警告の発火合計数",
		}),
		idleLogouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "esgportal_idle_logouts_total",
			Help: "無操作による強制ログアウトの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esgportal_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "esgportal_request_duration_seconds",
			Help:    "HTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		reviewDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esgportal_review_decisions_total",
			Help: "レビュー判定（approved/rejected）の合計数",
		}, []string{"status"}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "esgportal_deadline_notifications_total",
			Help: "送信された期限リマインド通知の合計数",
		}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.activeSessions,
		c.idleWarnings,
		c.idleLogouts,
		c.httpStatus,
		c.requestDuration,
		c.reviewDecisions,
		c.notifications,
	)

	return c
}

// RecordLoginSuccess はログイン成功をロール別に記録する。
func (c *Collector) RecordLoginSuccess(role string) {
	c.loginSuccess.WithLabelValues(role).Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFail.Inc()
}

// RecordSessionStart はセッション開始を記録する。
func (c *Collector) RecordSessionStart() {
	c.activeSessions.Inc()
}

// RecordSessionEnd はセッション終了を記録する。
func (c *Collector) RecordSessionEnd() {
	c.activeSessions.Dec()
}

// RecordIdleWarning は無操作警告の発火を記録する。
func (c *Collector) RecordIdleWarning() {
	c.idleWarnings.Inc()
}

// RecordIdleLogout は無操作による強制ログアウトを記録する。
func (c *Collector) RecordIdleLogout() {
	c.idleLogouts.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// RecordReviewDecision はレビュー判定を記録する。
func (c *Collector) RecordReviewDecision(status string) {
	c.reviewDecisions.WithLabelValues(status).Inc()
}

// RecordNotificationsSent は送信された通知件数を記録する。
func (c *Collector) RecordNotificationsSent(count int) {
	c.notifications.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
// ルーターが /metrics にマウントする。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
