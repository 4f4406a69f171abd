// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// フィードバック変更操作の種別
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordFeedbackMutation(op string)
	RecordValidationFailure()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	feedbackMutations  *prometheus.CounterVec
	validationFailures prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedbackapp_http_requests_total",
			Help: "ルート・メソッド・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feedbackapp_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		feedbackMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedbackapp_feedback_mutations_total",
			Help: "成功したフィードバックの作成・更新・削除の合計数",
		}, []string{"op"}),
		validationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedbackapp_validation_failures_total",
			Help: "入力バリデーションエラーの合計数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.feedbackMutations,
		c.validationFailures,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの件数と処理時間を記録する。
// routeにはchiのルートパターン（例: /api/feedback/{id}/）を渡し、ラベルの濃度を抑える。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordFeedbackMutation はフィードバックの変更操作を記録する。
func (c *Collector) RecordFeedbackMutation(op string) {
	c.feedbackMutations.WithLabelValues(op).Inc()
}

// RecordValidationFailure はバリデーションエラーを記録する。
func (c *Collector) RecordValidationFailure() {
	c.validationFailures.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
