// Package app はアプリケーションの起動・初期化・シャットダウンを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/kondo/esgportal/internal/admin"
	"github.com/kondo/esgportal/internal/assessment"
	"github.com/kondo/esgportal/internal/auth"
	"github.com/kondo/esgportal/internal/config"
	"github.com/kondo/esgportal/internal/database"
	"github.com/kondo/esgportal/internal/handler"
	"github.com/kondo/esgportal/internal/idle"
	"github.com/kondo/esgportal/internal/logger"
	"github.com/kondo/esgportal/internal/metrics"
	"github.com/kondo/esgportal/internal/middleware"
	"github.com/kondo/esgportal/internal/repository"
	"github.com/kondo/esgportal/internal/review"
	"github.com/kondo/esgportal/internal/security"
	"github.com/kondo/esgportal/internal/storage"
	"github.com/kondo/esgportal/internal/worker/cleanup"
	"github.com/kondo/esgportal/internal/worker/notify"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
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
	cmd := ParseCommand(args)

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
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// sessionGaugeListener はセッションライフサイクルイベントを
// アクティブセッション数のゲージに反映する。
type sessionGaugeListener struct {
	collector metrics.MetricsCollector
}

var _ auth.Listener = (*sessionGaugeListener)(nil)

func (l *sessionGaugeListener) OnSessionEvent(e auth.Event) {
	switch e.Type {
	case auth.EventSignedIn:
		l.collector.RecordSessionStart()
	case auth.EventSignedOut:
		l.collector.RecordSessionEnd()
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	profileRepo := repository.NewPostgresProfileRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	companyRepo := repository.NewPostgresCompanyRepo(db)
	questionRepo := repository.NewPostgresQuestionRepo(db)
	submissionRepo := repository.NewPostgresSubmissionRepo(db)
	responseRepo := repository.NewPostgresResponseRepo(db)
	attachmentRepo := repository.NewPostgresAttachmentRepo(db)
	draftRepo := repository.NewPostgresDraftRepo(db)

	// 3. オブジェクトストレージとサニタイザーの初期化
	storageClient, err := storage.NewClient(context.Background(), storage.Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}

	sanitizer := security.NewInputSanitizer()

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. 認証サービスと無操作モニターの初期化
	authService := auth.NewService(profileRepo, sessionRepo, draftRepo, auth.ServiceConfig{
		SessionMaxAge:  cfg.SessionMaxAge,
		ProfileTimeout: cfg.ProfileTimeout,
		InitDeadline:   cfg.InitDeadline,
	})

	monitor, err := idle.NewMonitor(authService, draftRepo, collector, idle.Config{
		Timeout:     cfg.InactivityTimeout,
		WarningTime: cfg.InactivityWarning,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize idle monitor: %w", err)
	}
	defer monitor.Close()

	authService.Subscribe(monitor)
	authService.Subscribe(&sessionGaugeListener{collector: collector})

	// 6. ドメインサービスの初期化
	assessmentService := assessment.NewService(
		questionRepo, submissionRepo, responseRepo, attachmentRepo, draftRepo,
		storageClient, sanitizer,
	)
	reviewService := review.NewService(companyRepo, submissionRepo, responseRepo, collector)

	// 期限設定時の即時リマインドにワーカーと同じ通知経路を使う
	notifier := notify.NewNotifier(submissionRepo, profileRepo, slog.Default(), collector)
	notifier.Window = cfg.DeadlineReminderWindow

	adminService := admin.NewService(companyRepo, profileRepo, sessionRepo, submissionRepo, notifier)

	// 7. レートリミッターの初期化（configはreq/min単位なのでreq/secに変換する）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.LoginRate = rate.Limit(float64(cfg.RateLimitLogin) / 60.0)
	rateLimiterCfg.LoginBurst = cfg.RateLimitLogin
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 8. ルーターの構築
	deps := &handler.RouterDeps{
		ProfileResolver:   authService,
		IdleToucher:       monitor,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter: rateLimiter,
		Logger:      slog.Default(),
		Collector:   collector,
		Gatherer:    registry,

		AuthService: authService,
		IdleState:   monitor,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		AssessmentService: assessmentService,
		ReviewService:     reviewService,
		AdminService:      adminService,
	}

	router := handler.NewRouter(deps)

	// 9. HTTPサーバーの起動
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

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、期限リマインド通知ジョブとクリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	profileRepo := repository.NewPostgresProfileRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	submissionRepo := repository.NewPostgresSubmissionRepo(db)
	draftRepo := repository.NewPostgresDraftRepo(db)

	// 3. 期限リマインド通知ジョブの初期化
	notifier := notify.NewNotifier(submissionRepo, profileRepo, slog.Default(), nil)
	notifier.Window = cfg.DeadlineReminderWindow

	// 4. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(sessionRepo, draftRepo, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("notify_interval", cfg.NotifyInterval),
		slog.Duration("reminder_window", cfg.DeadlineReminderWindow),
	)

	// クリーンアップジョブを日次でバックグラウンド実行
	go cleanupJob.Start(ctx, 24*time.Hour)

	// 通知ジョブをメインgoroutineで実行（ブロッキング）
	notifier.Start(ctx, cfg.NotifyInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
