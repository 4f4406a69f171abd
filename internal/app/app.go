package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/feedbackapp/internal/config"
	"github.com/hitoshi/feedbackapp/internal/database"
	"github.com/hitoshi/feedbackapp/internal/feedback"
	"github.com/hitoshi/feedbackapp/internal/handler"
	"github.com/hitoshi/feedbackapp/internal/logger"
	"github.com/hitoshi/feedbackapp/internal/metrics"
	"github.com/hitoshi/feedbackapp/internal/middleware"
	"github.com/hitoshi/feedbackapp/internal/repository"
	"github.com/hitoshi/feedbackapp/internal/security"
	"github.com/hitoshi/feedbackapp/internal/web"
)

// shutdownTimeout はグレースフルシャットダウンで処理中のリクエストを待つ最大時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg)
}

// serve はDB接続を開き、全依存関係をワイヤリングしてHTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func serve(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, driver, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. マイグレーション（AUTO_MIGRATE=true の場合のみ）
	if cfg.AutoMigrate {
		if err := database.RunMigrations(ctx, db, driver); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("database migrations applied")
	}

	// 3. ルーターの構築
	router, rateLimiter, err := buildRouter(cfg, db, driver)
	if err != nil {
		return err
	}
	defer rateLimiter.Stop()

	// 4. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("HTTP server stopped gracefully")
	return nil
}

// buildRouter はリポジトリからハンドラーまでの依存関係を組み立ててルーターを返す。
// 返されたRateLimiterはサーバー停止時にStopすること。
func buildRouter(cfg *config.Config, db *sql.DB, driver database.Driver) (http.Handler, *middleware.RateLimiter, error) {
	// メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// ドメインサービス
	repo := repository.NewFeedbackRepo(db, driver.GoquDialect())
	service := feedback.NewService(repo, security.NewInputSanitizer(), collector)

	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load templates: %w", err)
	}

	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitWrite),
	)

	deps := &handler.RouterDeps{
		Logger:             slog.Default(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		SecurityHeaders:  middleware.SecurityHeadersConfig{HSTS: cfg.CookieSecure},
		RateLimiter:      rateLimiter,
		MetricsCollector: collector,
		MetricsHandler:   metrics.Handler(registry),
		HealthChecker:    db,
		FeedbackService:  service,
		Renderer:         renderer,
		BaseURL:          cfg.BaseURL,
	}

	return handler.NewRouter(deps), rateLimiter, nil
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, databaseURL string) (*sql.DB, database.Driver, error) {
	db, driver, err := database.Open(databaseURL)
	if err != nil {
		return nil, "", err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established", slog.String("driver", string(driver)))
	return db, driver, nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	ctx := context.Background()

	db, driver, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("running database migrations")

	if err := database.RunMigrations(ctx, db, driver); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はログ出力用にデータベースURLのパスワードをマスクする。
// SQLiteのURLは認証情報を含まないためそのまま返す。
func maskDatabaseURL(raw string) string {
	if strings.HasPrefix(raw, "sqlite://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
