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
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/auth"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/backend"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/config"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/database"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/gateway"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/handler"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/logger"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/metrics"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/middleware"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/onboarding"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/repository"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/security"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/worker/cleanup"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/workspace"
)

const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。SIGINTまたはSIGTERMで停止する。
func Run(w io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, w, args)
}

// RunContext はctxがキャンセルされるまでサブコマンドを実行する。
func RunContext(ctx context.Context, w io.Writer, args []string) error {
	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		_, err := io.WriteString(w, Usage())
		return err
	}
	cmd, known := lookupCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	switch cmd {
	case CommandGateway:
		logger.SetupDefault(w)
		cfg, err := config.LoadGateway()
		if err != nil {
			return fmt.Errorf("initialization failed: %w", err)
		}
		slog.Info("starting application",
			slog.String("command", string(cmd)),
			slog.String("port", cfg.ServerPort),
		)
		return runGateway(ctx, cfg)

	case CommandMigrate:
		logger.SetupDefault(w)
		databaseURL := os.Getenv("DATABASE_URL")
		if databaseURL == "" {
			return errors.New("initialization failed: required environment variables are not set: [DATABASE_URL]")
		}
		return runMigrate(databaseURL)

	default:
		cfg, err := Init(w)
		if err != nil {
			return fmt.Errorf("initialization failed: %w", err)
		}
		if !known {
			slog.Warn("unknown command, falling back to serve", slog.String("command", args[0]))
		}
		slog.Info("starting application",
			slog.String("command", string(cmd)),
			slog.String("port", cfg.ServerPort),
			slog.String("base_url", cfg.BaseURL),
			slog.String("session_store", cfg.SessionStore),
		)
		return runServe(ctx, cfg)
	}
}

// runServe は日記アプリのWebサーバーモードで起動する。
// 全依存関係をワイヤリングし、ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	log := slog.Default()

	// 1. セッションストア
	var (
		sessionRepo   repository.SessionRepository
		healthChecker handler.HealthChecker
	)
	switch cfg.SessionStore {
	case config.SessionStorePostgres:
		db, err := openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		sessionRepo = repository.NewPostgresSessionRepo(db)
		healthChecker = db
	default:
		sessionRepo = repository.NewMemorySessionRepo()
	}

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. 外部APIクライアント
	httpClient := security.NewGatewayHTTPClient(security.GatewayClientConfig{
		Timeout:      cfg.GatewayTimeout,
		Endpoints:    []string{cfg.AuthGatewayURL, cfg.MetricsGatewayURL},
		AllowPrivate: cfg.GatewayAllowPrivate,
	})
	authClient := gateway.NewAuthClient(httpClient, log, collector, cfg.AuthGatewayURL)
	metricsClient := gateway.NewMetricsClient(httpClient, log, collector, cfg.MetricsGatewayURL)

	// 4. ドメインサービス
	onboardingService := onboarding.NewService(metricsClient, log)
	authService := auth.NewService(
		authClient, onboardingService, sessionRepo, workspace.NewManager(), collector, log,
	)

	// Cookieの有効期間を過ぎたセッションとそのWorkspaceを日次で削除する
	jobCtx, cancelJob := context.WithCancel(ctx)
	defer cancelJob()
	cleanupJob := cleanup.NewSessionCleanupJob(authService, log, time.Duration(cfg.SessionMaxAge)*time.Second)
	go cleanupJob.Start(jobCtx, cleanup.DefaultInterval)

	// 5. ルーター
	// configのレート制限はreq/min単位なのでreq/secに変換する
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.AuthRate = rate.Limit(float64(cfg.RateLimitAuth) / 60.0)
	rateLimiterCfg.AuthBurst = cfg.RateLimitAuth
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	renderer, err := handler.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}

	router := handler.NewRouter(&handler.RouterDeps{
		SessionFinder: authService,
		RateLimiter:   rateLimiter,
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger:         log,
		Metrics:        collector,
		HealthChecker:  healthChecker,
		MetricsHandler: metrics.Handler(registry),
		Renderer:       renderer,
		Cookies: handler.CookieConfig{
			Domain:        cfg.CookieDomain,
			Secure:        cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
		Journal: handler.JournalConfig{
			WeekStart:  cfg.WeekStart,
			StreakMode: cfg.StreakMode,
			Location:   cfg.Location,
		},
		AuthService:       authService,
		OnboardingService: onboardingService,
		Sanitizer:         security.NewNoteSanitizer(),
	})

	// 6. HTTPサーバーの起動
	return serve(ctx, &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, "diary server")
}

// runGateway は参照実装の認証・メトリクス設定ゲートウェイを起動する。
// ユーザーと設定はPostgreSQLに保存し、トークンはJWTで発行する。
func runGateway(ctx context.Context, cfg *config.GatewayConfig) error {
	db, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	router := backend.NewRouter(backend.RouterDeps{
		Users:     repository.NewPostgresUserRepo(db),
		Settings:  repository.NewPostgresSettingsRepo(db),
		Tokens:    backend.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Logger:    slog.Default(),
		Collector: collector,
	})

	return serve(ctx, &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, "gateway server")
}

// openDatabase はDB接続プールを作成し、マイグレーションを適用してから返す。
func openDatabase(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := database.Connect(ctx, databaseURL, database.DefaultPoolConfig())
	if err != nil {
		return nil, err
	}
	slog.Info("database connection established")

	if err := runMigrate(databaseURL); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// serve はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルシャットダウンを行う。
func serve(ctx context.Context, server *http.Server, name string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info(name+" starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down " + name + "...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info(name + " stopped gracefully")
	return nil
}

// runMigrate は未適用のマイグレーションを適用し、スキーマバージョンをログに残す。
func runMigrate(databaseURL string) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(databaseURL)),
	)

	status, err := database.Migrate(databaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if status.Dirty {
		return fmt.Errorf("migration failed: schema version %d is dirty", status.Version)
	}

	slog.Info("database migrations completed",
		slog.Uint64("version", uint64(status.Version)),
		slog.Bool("changed", status.Changed),
	)
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

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
