package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/mindengage-rubrics/internal/api/http"
	auth "github.com/mind-engage/mindengage-rubrics/internal/auth/middleware"
	"github.com/mind-engage/mindengage-rubrics/internal/config"
	"github.com/mind-engage/mindengage-rubrics/internal/db"
	"github.com/mind-engage/mindengage-rubrics/internal/docstore"
	"github.com/mind-engage/mindengage-rubrics/internal/logger"
	"github.com/mind-engage/mindengage-rubrics/internal/storage"
	syncx "github.com/mind-engage/mindengage-rubrics/internal/sync"
	"github.com/mind-engage/mindengage-rubrics/internal/textgen"
	"github.com/mind-engage/mindengage-rubrics/internal/tracing"
	"github.com/mind-engage/mindengage-rubrics/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	log, lerr := logger.New(cfg.LogMode)
	if lerr != nil {
		panic(lerr)
	}
	defer log.Sync()
	if err != nil {
		log.Fatal("config invalid", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal("tracing setup failed", "error", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		log.Fatal("db open failed", "error", err)
	}
	defer dbh.Close()

	// --- Document store + change feed ---
	journal := syncx.NewEventRepo(dbh, "")
	opts := []docstore.Option{docstore.WithLogger(log), docstore.WithJournal(journal)}
	if cfg.NotifyDriver == "redis" {
		n, err := docstore.NewRedisNotifier(ctx, log, cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			log.Fatal("redis notifier failed", "error", err)
		}
		defer n.Close()
		if err := n.Start(ctx); err != nil {
			log.Fatal("redis subscribe failed", "error", err)
		}
		opts = append(opts, docstore.WithNotifier(n))
	}
	store := docstore.NewSQLStore(dbh, cfg.DBDriver, opts...)

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatal("blob store failed", "error", err)
	}

	var gen textgen.Generator = textgen.Disabled{}
	if cfg.GeminiAPIKey != "" {
		g, err := textgen.NewGemini(textgen.GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
		}, log)
		if err != nil {
			log.Fatal("gemini client failed", "error", err)
		}
		gen = g
	} else {
		log.Warn("GEMINI_API_KEY not set; descriptions and suggestions are disabled")
	}

	spaces := workspace.NewManager(workspace.Deps{Store: store, Generator: gen, Blobs: bs, Log: log})
	defer spaces.Close()

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)
	accounts := auth.StaticAccounts{
		cfg.AdminUser: {Username: cfg.AdminUser, PassHash: cfg.AdminPassHash, Role: "admin"},
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, accounts))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	// Protected API (JWT → subject + role in context → RBAC). The event
	// stream is long-lived and stays outside the request timeout.
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		api.MountEvents(pr, spaces, log)
		pr.Group(func(tr chi.Router) {
			tr.Use(middleware.Timeout(60 * time.Second))
			api.Mount(tr, spaces, bs)
			api.MountChanges(tr, journal)
		})
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("listening", "addr", cfg.HTTPAddr, "mode", string(cfg.Mode), "db", cfg.DBDriver, "notify", cfg.NotifyDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", "error", err)
	}
}
