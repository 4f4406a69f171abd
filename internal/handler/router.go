package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/feedbackapp/internal/metrics"
	"github.com/hitoshi/feedbackapp/internal/middleware"
	"github.com/hitoshi/feedbackapp/internal/web"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	CORSAllowedOrigins []string
	CSRFConfig         middleware.CSRFConfig
	SecurityHeaders    middleware.SecurityHeadersConfig
	RateLimiter        *middleware.RateLimiter

	// メトリクス。Collectorがnilの場合は記録せず、Handlerがnilの場合は /metrics を公開しない
	MetricsCollector metrics.MetricsCollector
	MetricsHandler   http.Handler

	// ヘルスチェック
	HealthChecker HealthChecker

	// フィードバック
	FeedbackService FeedbackServiceInterface
	Renderer        PageRenderer
	BaseURL         string
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → Logging → Metrics → SecurityHeaders → RateLimit(General, Write)
//
// APIルート（/api/*）にはCORSを、HTML画面にはCSRFを追加で適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.MetricsCollector != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsCollector))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.SecurityHeaders))

	apiHandler := NewAPIHandler(deps.FeedbackService, deps.BaseURL)
	htmlHandler := NewHTMLHandler(deps.FeedbackService, deps.Renderer)

	// --- レート制限対象外のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Handle("/static/*", web.StaticHandler())

	// --- レート制限対象のルート ---
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
			r.Use(deps.RateLimiter.WriteMiddleware())
		}

		// REST API（匿名アクセスのためCSRF対象外）
		r.Route("/api/feedback", func(r chi.Router) {
			r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))

			r.Get("/", apiHandler.ListFeedback)
			r.Post("/", apiHandler.CreateFeedback)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", apiHandler.GetFeedback)
				r.Put("/", apiHandler.UpdateFeedback)
				r.Patch("/", apiHandler.PartialUpdateFeedback)
				r.Delete("/", apiHandler.DeleteFeedback)
			})
		})

		// HTML画面
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

			r.Get("/", htmlHandler.List)

			r.Route("/feedback", func(r chi.Router) {
				r.Get("/create/", htmlHandler.CreateForm)
				r.Post("/create/", htmlHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", htmlHandler.Detail)
					r.Get("/update/", htmlHandler.UpdateForm)
					r.Post("/update/", htmlHandler.Update)
					r.Get("/delete/", htmlHandler.ConfirmDelete)
					r.Post("/delete/", htmlHandler.Delete)
				})
			})
		})
	})

	return r
}
