package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/feedbackapp/internal/metrics"
)

// unmatchedRoute はどのルートにも一致しなかったリクエストのラベル値。
const unmatchedRoute = "unmatched"

// NewMetricsMiddleware はリクエスト数と処理時間をルートパターン単位で記録するミドルウェアを返す。
// chiのルーターに登録し、ルーティング完了後のパターンを参照する。
func NewMetricsMiddleware(mc metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			route := unmatchedRoute
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			mc.RecordHTTPRequest(r.Method, route, rec.statusCode, time.Since(start))
		})
	}
}
