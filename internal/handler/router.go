package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/tenki/internal/metrics"
	"github.com/hitoshi/tenki/internal/middleware"
	"github.com/hitoshi/tenki/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authenticator     middleware.TokenAuthenticator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	SupportedLocales  []string
	DefaultLocale     string
	Logger            *slog.Logger

	// 監視
	HealthChecker   Pinger
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface

	// 天気・ユーザー操作
	ActivityService  ActivityServiceInterface
	LocationSearcher LocationSearcher
	FavoriteService  FavoriteServiceInterface
	HistoryService   HistoryServiceInterface

	// 管理者向けユーザー管理
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → CORS → MetricsStatus
//	/api 配下: AcceptJSON → Locale → (TokenAuth → RateLimit)
//
// /health と /metrics は監視用のためAccept・Localeの制約を受けない。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(metrics.NewStatusMiddleware(collector))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewRouteNotFoundError())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusMethodNotAllowed, model.NewMethodNotAllowedError())
	})

	authHandler := NewAuthHandler(deps.AuthService)
	weatherHandler := NewWeatherHandler(deps.ActivityService, deps.LocationSearcher)
	favoriteHandler := NewFavoriteHandler(deps.FavoriteService)
	historyHandler := NewHistoryHandler(deps.HistoryService)
	userHandler := NewUserHandler(deps.UserService)

	// --- 監視 ---
	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker).Check)
	}
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewAcceptJSONMiddleware())
		r.Use(middleware.NewLocaleMiddleware(deps.SupportedLocales, deps.DefaultLocale))

		// --- 認証不要のルート ---
		// 未認証のためレート制限はIPアドレス単位になる
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.Middleware())
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		// --- 認証が必要なルート ---
		// ミドルウェアスタック: TokenAuth → RateLimit(ユーザー単位)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewTokenAuthMiddleware(deps.Authenticator))
			r.Use(deps.RateLimiter.Middleware())

			r.Post("/logout", authHandler.Logout)
			r.Get("/user", authHandler.Me)

			// 天気検索（静的パスの/searchが{city}より優先される）
			r.Route("/weather", func(r chi.Router) {
				r.Get("/search", weatherHandler.Search)
				r.Get("/{city}", weatherHandler.Show)
			})

			// お気に入り
			r.Route("/favorites", func(r chi.Router) {
				r.Get("/", favoriteHandler.List)
				r.Post("/", favoriteHandler.Store)
				r.Delete("/{city_name}", favoriteHandler.Destroy)
			})

			// 検索履歴
			r.Get("/history", historyHandler.List)

			// ユーザー管理
			r.Route("/admin/users", func(r chi.Router) {
				// 本人も参照できるため、権限はハンドラー内で確認する
				r.Get("/{id}", userHandler.Show)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(model.RoleAdmin))
					r.Get("/", userHandler.List)
					r.Post("/", userHandler.Store)
					r.Put("/{id}", userHandler.Update)
					r.Delete("/{id}", userHandler.Delete)
				})
			})
		})
	})

	return r
}
