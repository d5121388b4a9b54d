package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/crucial707/dermalens/internal/analysis"
	"github.com/crucial707/dermalens/internal/auth"
	"github.com/crucial707/dermalens/internal/config"
	"github.com/crucial707/dermalens/internal/handlers"
	"github.com/crucial707/dermalens/internal/history"
	"github.com/crucial707/dermalens/internal/middleware"
	"github.com/crucial707/dermalens/internal/repo"
	"github.com/crucial707/dermalens/internal/upload"
	"github.com/crucial707/dermalens/internal/web"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newRouter builds the full HTTP handler. Split from main so tests can drive
// it with a mock database and a fake analyzer.
func newRouter(db *sql.DB, cfg config.Config, analyzer analysis.Analyzer) http.Handler {
	secret := []byte(cfg.SecretKey)

	userRepo := repo.NewUserRepo(db)
	historyRepo := repo.NewHistoryRepo(db)

	files := upload.NewStore(cfg.StaticDir)
	sessions := auth.NewSessions(secret, time.Duration(cfg.SessionMaxAgeHours)*time.Hour, cfg.TLSEnabled())
	tokens := auth.NewTokens(secret, time.Duration(cfg.JWTExpireHours)*time.Hour)
	authn := &middleware.Authenticator{Sessions: sessions, Tokens: tokens}

	authH := &handlers.AuthHandler{Auth: auth.NewService(userRepo), Sessions: sessions, Tokens: tokens}
	pageH := &handlers.PageHandler{Users: userRepo, Auth: authn}
	userH := &handlers.UserHandler{Users: userRepo}
	historySvc := history.NewService(historyRepo, files, slog.Default())
	historyH := &handlers.HistoryHandler{History: historySvc}
	analyzeH := &handlers.AnalyzeHandler{Files: files, Analyzer: analyzer, History: historySvc}
	uploadH := &handlers.UploadHandler{Files: files}

	authLimiter := middleware.AuthRateLimiter()
	smallBody := middleware.MaxBytes(middleware.DefaultMaxBodyBytes)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSEnabled()))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Infrastructure
	r.Get("/health", handlers.Health)
	r.Get("/ready", handlers.Ready(db))
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/static/*", http.StripPrefix("/static/", web.Static()))

	// Public pages and credentials
	r.Get("/", pageH.Login)
	r.Get("/signup", authH.SignupPage)
	r.With(authLimiter.Middleware, smallBody).Post("/signup", authH.Signup)
	r.With(authLimiter.Middleware, smallBody).Post("/api/login", authH.Login)
	r.With(authLimiter.Middleware, smallBody).Post("/api/token", authH.Token)

	// Signed-in pages
	r.Group(func(r chi.Router) {
		r.Use(authn.RequirePage)
		r.Get("/app", pageH.App)
		r.Get("/history", pageH.History)
		r.Get("/logout", authH.Logout)
	})

	// JSON API and stored images
	r.Group(func(r chi.Router) {
		r.Use(authn.RequireAPI)
		r.With(middleware.MaxBytes(cfg.MaxUploadBytes())).Post("/api/analyze", analyzeH.Analyze)
		r.Get("/api/history", historyH.List)
		r.Delete("/api/history/delete/{id}", historyH.Delete)
		r.With(smallBody).Post("/api/password", authH.ChangePassword)
		r.Get("/api/me", userH.Me)
		r.Get("/static/uploads/*", uploadH.Serve)
	})

	return r
}
