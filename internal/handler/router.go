package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/metrics"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder middleware.SessionFinder
	RateLimiter   *middleware.RateLimiter
	CSRF          middleware.CSRFConfig
	Logger        *slog.Logger
	Metrics       metrics.MetricsCollector

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 画面
	Renderer *Renderer
	Cookies  CookieConfig
	Journal  JournalConfig

	// サービス
	AuthService       AuthServiceInterface
	OnboardingService OnboardingServiceInterface
	Sanitizer         NoteSanitizer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Session → Logging → CSRF → RateLimit(General)
//
// /health と /metrics はCSRFとレート制限の外に配置する。
// ログイン・登録・パスワード再設定の送信には認証用のレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))

	authHandler := NewAuthHandler(deps.AuthService, deps.Renderer, deps.Cookies)
	onboardingHandler := NewOnboardingHandler(deps.OnboardingService, deps.AuthService, deps.Renderer, deps.Metrics)
	journalHandler := NewJournalHandler(deps.AuthService, deps.Sanitizer, deps.Renderer, deps.Metrics, deps.Cookies, deps.Journal)

	// --- 運用エンドポイント ---
	r.Method(http.MethodGet, "/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 画面とAPI ---
	// ミドルウェアスタック: CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/", journalHandler.Home)
		r.Get("/app", journalHandler.Dashboard)
		r.Post("/app/records", journalHandler.SaveRecord)

		// 認証
		r.Route("/auth", func(r chi.Router) {
			r.Get("/", authHandler.Show)
			r.Post("/logout", authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(deps.RateLimiter.AuthMiddleware())
				r.Post("/login", authHandler.Login)
				r.Post("/register", authHandler.Register)
				r.Post("/forgot", authHandler.Forgot)
			})
		})

		// オンボーディング
		r.Route("/onboarding", func(r chi.Router) {
			r.Get("/", onboardingHandler.Show)
			r.Post("/toggle", onboardingHandler.Toggle)
			r.Post("/filter", onboardingHandler.Filter)
			r.Post("/extended", onboardingHandler.Extended)
			r.Post("/complete", onboardingHandler.Complete)
		})

		// JSON API
		r.Route("/api", func(r chi.Router) {
			r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler())

			r.Group(func(r chi.Router) {
				r.Use(middleware.NewRequireSessionMiddleware())
				r.Get("/mosaic", journalHandler.Mosaic)
				r.Get("/stats", journalHandler.Stats)
			})
		})
	})

	r.NotFound(journalHandler.NotFound)

	return r
}
