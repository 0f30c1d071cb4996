// Package app はコマンドの解析と依存関係のワイヤリングを行い、各起動モードを実行する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/tenki/internal/activity"
	"github.com/hitoshi/tenki/internal/auth"
	"github.com/hitoshi/tenki/internal/config"
	"github.com/hitoshi/tenki/internal/database"
	"github.com/hitoshi/tenki/internal/favorite"
	"github.com/hitoshi/tenki/internal/handler"
	"github.com/hitoshi/tenki/internal/history"
	"github.com/hitoshi/tenki/internal/logger"
	"github.com/hitoshi/tenki/internal/metrics"
	"github.com/hitoshi/tenki/internal/middleware"
	"github.com/hitoshi/tenki/internal/model"
	"github.com/hitoshi/tenki/internal/repository"
	"github.com/hitoshi/tenki/internal/user"
	"github.com/hitoshi/tenki/internal/weather"
	"github.com/hitoshi/tenki/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数（と.envファイル）からConfigを読み込み、
// 設定されたログレベルでロガーを再構成する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルを反映する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

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
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg, migrateDirection(args))
	case CommandSeed:
		return runSeed(cfg)
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. DB接続
	db, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	favoriteRepo := repository.NewPostgresFavoriteRepo(db)
	historyRepo := repository.NewPostgresHistoryRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 4. 天気サービスの初期化
	cache, closeCache, err := newWeatherCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	weatherClient := weather.NewClient(
		&http.Client{Timeout: cfg.WeatherHTTPTimeout},
		slog.Default(),
		collector,
		weather.ClientConfig{APIKey: cfg.WeatherAPIKey, BaseURL: cfg.WeatherAPIBaseURL},
	)
	weatherService := weather.NewService(
		weatherClient,
		weather.NewCachedLookup(cache, slog.Default(), collector),
		slog.Default(),
	)

	// 5. ドメインサービスの初期化
	historyService := history.NewService(historyRepo)
	favoriteService := favorite.NewService(favoriteRepo)
	activityService := activity.NewService(weatherService, historyService, collector)

	hasher := auth.NewBcryptHasher(0)
	authService := auth.NewService(
		userRepo, sessionRepo, hasher, auth.NewTokenSigner(cfg.JWTSecret),
		auth.ServiceConfig{TokenTTL: cfg.TokenTTL},
	)
	userService := user.NewService(userRepo, sessionRepo, favoriteRepo, historyRepo, hasher)

	// 6. 期限切れトークンのクリーンアップをバックグラウンドで実行
	cleanupJob := cleanup.NewTokenCleanupJob(sessionRepo, slog.Default())
	go cleanupJob.Start(ctx, cfg.TokenCleanupInterval)

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Authenticator:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		SupportedLocales:  cfg.SupportedLocales,
		DefaultLocale:     cfg.DefaultLocale,
		Logger:            slog.Default(),

		HealthChecker:   db,
		Metrics:         collector,
		MetricsGatherer: registry,

		AuthService: authService,

		ActivityService:  activityService,
		LocationSearcher: weatherService,
		FavoriteService:  favoriteService,
		HistoryService:   historyService,

		UserService: userService,
	})

	// 8. HTTPサーバーの起動
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
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// newWeatherCache は天気キャッシュのバックエンドを構築する。
// REDIS_URLが設定されている場合はRedis、未設定の場合はプロセス内メモリを使う。
// メモリキャッシュの期限切れエントリはctxがキャンセルされるまで定期的に掃除する。
// 戻り値の関数でバックエンドを閉じる。
func newWeatherCache(ctx context.Context, cfg *config.Config) (weather.Cache, func(), error) {
	if cfg.RedisURL != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		client, err := weather.ConnectRedis(pingCtx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("weather cache backend selected", slog.String("backend", "redis"))
		return weather.NewRedisCache(client), closeRedis(client), nil
	}

	cache := weather.NewMemoryCache()
	cache.StartSweeper(ctx, cfg.CacheSweepInterval)
	slog.Info("weather cache backend selected", slog.String("backend", "memory"))
	return cache, func() {}, nil
}

func closeRedis(client *redis.Client) func() {
	return func() {
		if err := client.Close(); err != nil {
			slog.Warn("failed to close redis client", slog.String("error", err.Error()))
		}
	}
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、期限切れトークンのクリーンアップを定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	cleanupJob := cleanup.NewTokenCleanupJob(repository.NewPostgresSessionRepo(db), slog.Default())

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
		slog.Duration("token_cleanup_interval", cfg.TokenCleanupInterval),
	)

	// クリーンアップをメインgoroutineで実行（ブロッキング）
	cleanupJob.Start(ctx, cfg.TokenCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// directionが "down" の場合は直近の1件をロールバックし、それ以外は全ての未適用マイグレーションを適用する。
func runMigrate(cfg *config.Config, direction string) error {
	slog.Info("running database migrations",
		slog.String("direction", direction),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if direction == "down" {
		if err := database.RollbackMigration(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration rollback failed: %w", err)
		}
	} else if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.String("direction", direction),
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// runSeed は環境変数ADMIN_EMAIL・ADMIN_PASSWORDから管理者ユーザーを作成する。
func runSeed(cfg *config.Config) error {
	db, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	userRepo := repository.NewPostgresUserRepo(db)
	userService := user.NewService(
		userRepo,
		repository.NewPostgresSessionRepo(db),
		repository.NewPostgresFavoriteRepo(db),
		repository.NewPostgresHistoryRepo(db),
		auth.NewBcryptHasher(0),
	)

	return seedAdmin(context.Background(), userService, cfg)
}

// AdminCreator は管理者ユーザーの作成インターフェース。
type AdminCreator interface {
	Create(ctx context.Context, in user.CreateInput) (*model.User, error)
}

// seedAdmin は管理者ユーザーを作成する。
// メールアドレスが登録済みの場合は何もせず成功とする。
func seedAdmin(ctx context.Context, creator AdminCreator, cfg *config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set for seed")
	}

	created, err := creator.Create(ctx, user.CreateInput{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Roles:    []string{model.RoleAdmin},
	})
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeEmailTaken {
			slog.Info("admin user already exists, skipping seed",
				slog.String("email", cfg.AdminEmail),
			)
			return nil
		}
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	slog.Info("admin user created",
		slog.String("user_id", created.ID),
		slog.String("email", created.Email),
	)
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
