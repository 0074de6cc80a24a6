package backend

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/metrics"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/middleware"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/repository"
)

// RouterDeps は参照ゲートウェイのルーター構築に必要な依存関係。
type RouterDeps struct {
	Users     repository.GatewayUserRepository
	Settings  repository.SettingsRepository
	Tokens    *TokenIssuer
	Logger    *slog.Logger
	Collector metrics.MetricsCollector
}

// NewRouter は参照ゲートウェイのルーターを構築する。
//
//	POST    /auth      登録・ログイン・トークン検証
//	GET     /settings  選択メトリクスの取得
//	POST    /settings  選択メトリクスの保存
//	OPTIONS *          CORSプリフライト
//	GET     /health    ヘルスチェック
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))
	r.Use(middleware.NewCORSMiddleware(middleware.GatewayCORSConfig()))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Method(http.MethodPost, "/auth", NewAuthHandler(deps.Users, deps.Tokens, deps.Logger))

	settings := NewSettingsHandler(deps.Settings, deps.Logger)
	r.Get("/settings", settings.Get)
	r.Post("/settings", settings.Save)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "このメソッドはサポートされていません")
	})

	return r
}
