package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/contactman/internal/flash"
	"github.com/hitoshi/contactman/internal/metrics"
	"github.com/hitoshi/contactman/internal/middleware"
	"github.com/hitoshi/contactman/internal/view"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger          *slog.Logger
	SessionTokens   middleware.SessionTokenParser
	SessionResolver middleware.SessionResolver
	CSRFConfig      middleware.CSRFConfig
	RateLimiter     *middleware.RateLimiter
	Metrics         metrics.Recorder
	MetricsGatherer prometheus.Gatherer
	HealthChecker   HealthChecker

	// 画面
	Renderer PageRenderer
	Flash    *flash.Store

	// 認証
	AccountService AccountServiceInterface
	SessionSigner  SessionTokenSigner
	AuthConfig     AuthHandlerConfig

	// 連絡先
	ContactService ContactServiceInterface
}

// NewRouter は全画面のルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Logging → Metrics → Recovery → SecurityHeaders → Session → CSRF
//	  ├ /login, /sign_up: RateLimit(Auth)
//	  └ 認証必須ルート: RequireAccount → RateLimit(General)
//
// /health, /metrics, /static/* はセッション・CSRFチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	authHandler := NewAuthHandler(deps.AccountService, deps.SessionSigner, deps.Renderer, deps.Flash, deps.AuthConfig)
	contactHandler := NewContactHandler(deps.ContactService, deps.Renderer, deps.Flash)
	fallback := pages{renderer: deps.Renderer}

	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(recorder))
	r.Use(middleware.NewRecoveryMiddleware(http.HandlerFunc(fallback.InternalError)))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.AuthConfig.CookieSecure))

	r.NotFound(fallback.NotFound)
	r.MethodNotAllowed(fallback.MethodNotAllowed)

	// --- セッション不要のルート ---
	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}
	r.Handle("/static/*", view.StaticHandler())

	// --- 画面ルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionTokens, deps.SessionResolver))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Get("/", authHandler.Index)

		// ログイン・サインアップ（送信のみIP単位のレート制限）
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())

			r.Get("/login", authHandler.LoginForm)
			r.Post("/login", authHandler.Login)
			r.Get("/sign_up", authHandler.SignUpForm)
			r.Post("/sign_up", authHandler.SignUp)
		})

		// 認証が必要なルート
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRequireAccountMiddleware("/login"))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Get("/logout", authHandler.Logout)
			r.Get("/home", contactHandler.Home)
			r.Get("/add_contact", contactHandler.AddContactForm)
			r.Post("/add_contact", contactHandler.AddContact)
			r.Get("/edit/{id}", contactHandler.EditForm)
			r.Post("/edit/{id}", contactHandler.Edit)
			r.Get("/delete/{id}", contactHandler.Delete)
		})
	})

	return r
}
