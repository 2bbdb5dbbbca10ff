package app

import (
	"context"
	"database/sql"
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
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/contactman/internal/account"
	"github.com/hitoshi/contactman/internal/config"
	"github.com/hitoshi/contactman/internal/contact"
	"github.com/hitoshi/contactman/internal/database"
	"github.com/hitoshi/contactman/internal/flash"
	"github.com/hitoshi/contactman/internal/handler"
	"github.com/hitoshi/contactman/internal/logger"
	"github.com/hitoshi/contactman/internal/metrics"
	"github.com/hitoshi/contactman/internal/middleware"
	"github.com/hitoshi/contactman/internal/repository"
	"github.com/hitoshi/contactman/internal/security"
	"github.com/hitoshi/contactman/internal/view"
	"github.com/hitoshi/contactman/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
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
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	if cmd == CommandHelp {
		Usage(w)
		return nil
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
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL(), database.DefaultPoolConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// newMetricsRegistry はGo/プロセスコレクターを登録済みのレジストリを返す。
func newMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// runServe はWebサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. メトリクス
	registry := newMetricsRegistry()
	recorder := metrics.NewCollector(registry)

	// 3. リポジトリの初期化
	accountRepo := repository.NewPostgresAccountRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	contactRepo := repository.NewPostgresContactRepo(db)

	// 4. ドメインサービスの初期化
	signer := security.NewSessionTokenSigner(cfg.SecretKey)
	accountService := account.NewService(
		accountRepo, sessionRepo,
		security.NewPasswordHasher(cfg.BcryptCost),
		account.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
		recorder,
	)
	contactService := contact.NewService(
		contactRepo,
		contact.ServiceConfig{EnforceOwnership: cfg.EnforceOwnership},
		recorder,
	)
	if !cfg.EnforceOwnership {
		slog.Warn("contact ownership enforcement is disabled")
	}

	// 5. 画面
	renderer, err := view.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:          slog.Default(),
		SessionTokens:   signer,
		SessionResolver: accountService,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter:     rateLimiter,
		Metrics:         recorder,
		MetricsGatherer: registry,
		HealthChecker:   db,

		Renderer: renderer,
		Flash: flash.NewStore(flash.Config{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		}),

		AccountService: accountService,
		SessionSigner:  signer,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		ContactService: contactService,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("web server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down web server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、期限切れセッションのクリーンアップを定期実行する。
// クリーンアップ件数は WorkerMetricsPort の /metrics で公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	registry := newMetricsRegistry()
	recorder := metrics.NewCollector(registry)

	sessionRepo := repository.NewPostgresSessionRepo(db)
	cleanupJob := cleanup.NewCleanupJob(sessionRepo, slog.Default(), recorder)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metricsServer := newWorkerMetricsServer(cfg.WorkerMetricsPort, registry)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics server failed", slog.String("error", err.Error()))
		}
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
		slog.String("metrics_addr", metricsServer.Addr),
	)

	// コンテキストがキャンセルされるまでブロックする
	cleanupJob.Start(ctx, cfg.SessionCleanupInterval)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("worker metrics server shutdown failed", slog.String("error", err.Error()))
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// newWorkerMetricsServer はworker用の /metrics のみを公開するHTTPサーバーを返す。
func newWorkerMetricsServer(port string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(gatherer))
	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	databaseURL := cfg.DatabaseURL()
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(databaseURL)),
	)

	status, err := database.Migrate(databaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(status.Version)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
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
