package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/feedbackapp/internal/model"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // 全リクエストのレート（req/sec）。120/60 = 2 req/sec
	GeneralBurst    int           // 全リクエストのバーストサイズ
	WriteRate       rate.Limit    // 状態変更リクエストのレート（req/sec）。30/60
	WriteBurst      int           // 状態変更リクエストのバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// 全リクエスト 120 req/min/IP、状態変更 30 req/min/IP
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfigPerMinute(120, 30)
}

// RateLimiterConfigPerMinute は1分あたりのリクエスト数から設定を生成する。
// バーストサイズは1分あたりの上限と同じにする。
func RateLimiterConfigPerMinute(general, write int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(general) / 60.0),
		GeneralBurst:    general,
		WriteRate:       rate.Limit(float64(write) / 60.0),
		WriteBurst:      write,
		CleanupInterval: 5 * time.Minute,
	}
}

// clientLimiter はクライアントごとのレートリミッターとアクセス時刻を保持する。
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterPool はクライアントIPをキーとするリミッターの集合。
type limiterPool struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*clientLimiter
}

func newLimiterPool(limit rate.Limit, burst int) *limiterPool {
	return &limiterPool{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*clientLimiter),
	}
}

// get はクライアントのリミッターを取得または作成する。
func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if cl, ok := p.limiters[key]; ok {
		cl.lastAccess = now
		return cl.limiter
	}

	limiter := rate.NewLimiter(p.limit, p.burst)
	p.limiters[key] = &clientLimiter{limiter: limiter, lastAccess: now}
	return limiter
}

// evict は最終アクセスからttl以上経過したエントリを削除する。
func (p *limiterPool) evict(now time.Time, ttl time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, cl := range p.limiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(p.limiters, key)
		}
	}
}

func (p *limiterPool) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.limiters)
}

// RateLimiter はクライアントIPごとのレート制限を管理する。
// 全リクエスト対象の制限と、状態変更リクエスト（POST, PUT, PATCH, DELETE）のみ対象の制限の2種類を提供する。
type RateLimiter struct {
	config  RateLimiterConfig
	general *limiterPool
	write   *limiterPool

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		general: newLimiterPool(config.GeneralRate, config.GeneralBurst),
		write:   newLimiterPool(config.WriteRate, config.WriteBurst),
		stopCh:  make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。複数回呼び出してもよい。
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// GeneralMiddleware は全リクエスト対象のレート制限ミドルウェアを返す。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(w, r, rl.general, rl.config.GeneralRate, "general") {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteMiddleware は状態変更リクエストのみを対象とするレート制限ミドルウェアを返す。
// 安全なメソッドは制限せずに通過させる。全リクエスト対象の制限とは独立に動作する。
func (rl *RateLimiter) WriteMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isSafeMethod(r.Method) && !rl.allow(w, r, rl.write, rl.config.WriteRate, "write") {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allow はリクエストを許可するか判定し、拒否した場合は429を書き込む。
func (rl *RateLimiter) allow(w http.ResponseWriter, r *http.Request, pool *limiterPool, limit rate.Limit, limitType string) bool {
	ip := clientIP(r)
	if pool.get(ip).Allow() {
		return true
	}

	writeRateLimitResponse(w, limit)
	slog.Warn("rate limit exceeded",
		slog.String("client_ip", ip),
		slog.String("limit_type", limitType),
		slog.String("request_id", RequestIDFromContext(r.Context())),
	)
	return false
}

// GeneralLimiterCount は現在管理されている全リクエスト対象リミッターのエントリ数を返す。
// テスト用。
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.len()
}

// WriteLimiterCount は現在管理されている状態変更リミッターのエントリ数を返す。
// テスト用。
func (rl *RateLimiter) WriteLimiterCount() int {
	return rl.write.len()
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2
	now := time.Now()

	rl.general.evict(now, ttl)
	rl.write.evict(now, ttl)
}

// clientIP はリクエスト元のIPアドレスを返す。
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	// Retry-Afterの算出: 1トークンが補充されるまでの秒数
	retryAfterSec := 1
	if r > 0 {
		retryAfterSec = int(math.Ceil(1.0 / float64(r)))
	}
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResponse(w, http.StatusTooManyRequests, &model.APIError{
		Code:     model.ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
