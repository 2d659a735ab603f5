// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/mesa-go/internal/config"
	"github.com/olegiv/mesa-go/internal/handler"
	"github.com/olegiv/mesa-go/internal/logging"
	"github.com/olegiv/mesa-go/internal/middleware"
	"github.com/olegiv/mesa-go/internal/notify"
	"github.com/olegiv/mesa-go/internal/scheduler"
	"github.com/olegiv/mesa-go/internal/service"
	"github.com/olegiv/mesa-go/internal/session"
	"github.com/olegiv/mesa-go/internal/store"
	"github.com/olegiv/mesa-go/internal/version"
	"github.com/olegiv/mesa-go/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Mesa - Restaurant Ordering System\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MESA_SESSION_SECRET              Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MESA_DB_PATH                     SQLite database path (default: ./data/mesa.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MESA_DATA_DIR                    Event log and snapshot directory (default: ./data)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MESA_SERVER_PORT                 Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MESA_ENV                         Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MESA_LOG_LEVEL                   Log level: debug|info|warn|error (default: info)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MESA_STREAM_POLL_INTERVAL        Event log poll interval (default: 1s)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MESA_STREAM_KEEPALIVE_INTERVAL   SSE keep-alive ping interval (default: 15s)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MESA_DO_SEED                     Seed a demo menu on startup (default: false)\n")
		_, _ = fmt.Fprintf(os.Stderr, "\nFor more information, see: https://github.com/olegiv/mesa-go\n")
	}

	flag.Parse()

	// Handle -h/-help flag
	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	// Handle -v/-version flag
	if *showVersion {
		_, _ = fmt.Printf("mesa %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Create version info from build-time injected values
	versionInfo := &version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(textHandler)
	slog.SetDefault(logger)

	slog.Info("starting mesa", "version", versionInfo.Version, "commit", versionInfo.GitCommit)

	// Ensure data directories exist
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// Initialize database
	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("closing database", "error", err)
		}
	}()

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Upgrade the logger so WARN and above also land in the audit log.
	logger = slog.New(logging.NewAuditLogHandler(textHandler, db))
	slog.SetDefault(logger)

	// Seed initial data (admin user, default settings, optional demo menu)
	if err := store.Seed(context.Background(), db, cfg.DoSeed); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	// Session manager backed by SQLite
	sessionManager := session.New(db, cfg.IsDevelopment())

	// Notification pipeline: file-backed event log, per-order snapshots,
	// publisher and the SSE stream handler.
	eventLog, err := notify.OpenLog(notify.DefaultLogPath(cfg.DataDir))
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	snapshots, err := notify.NewSnapshotStore(notify.DefaultSnapshotDir(cfg.DataDir))
	if err != nil {
		return fmt.Errorf("opening snapshot store: %w", err)
	}
	publisher := notify.NewPublisher(db, eventLog, snapshots)
	stream := notify.NewStreamHandler(eventLog, snapshots, notify.StreamConfig{
		PollInterval:      cfg.StreamPollInterval,
		KeepAliveInterval: cfg.StreamKeepAliveInterval,
	})

	// Services
	auditService := service.NewAuditService(db)
	orderService := service.NewOrderService(db, publisher, auditService)

	// Background jobs: audit retention and stale-order completion
	sched := scheduler.New(db, orderService, auditService, snapshots, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	// Login brute-force protection
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())

	// Handlers
	authHandler := handler.NewAuthHandler(db, sessionManager, auditService, loginProtection)
	menuHandler := handler.NewMenuHandler(db, auditService)
	cartHandler := handler.NewCartHandler(db, sessionManager)
	orderHandler := handler.NewOrderHandler(orderService, sessionManager)
	eventsHandler := handler.NewEventsHandler(publisher, stream, sessionManager, auditService)
	settingsHandler := handler.NewSettingsHandler(db, auditService)
	auditHandler := handler.NewAuditHandler(db)
	healthHandler := handler.NewHealthHandler(db, sessionManager, eventLog, cfg.DataDir)

	// Embedded web UI assets
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}

	// Router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.RequestPath)
	r.Use(sessionManager.LoadAndSave)

	// The SSE stream stays open indefinitely, so it is mounted outside the
	// request-timeout group.
	r.Get("/api/events/stream", eventsHandler.Stream)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		// Health checks
		r.Get("/health", healthHandler.Health)
		r.Get("/health/live", healthHandler.Liveness)
		r.Get("/health/ready", healthHandler.Readiness)

		// Public customer API
		r.Route("/api", func(r chi.Router) {
			r.Get("/menu", menuHandler.List)

			r.Get("/cart", cartHandler.Get)
			r.Delete("/cart", cartHandler.Clear)
			r.Post("/cart/items", cartHandler.AddItem)
			r.Put("/cart/items/{id}", cartHandler.UpdateItem)
			r.Delete("/cart/items/{id}", cartHandler.RemoveItem)

			r.Post("/orders", orderHandler.Place)
			r.Get("/orders/{reference}", orderHandler.Track)
		})

		// Staff API
		r.Route("/admin/api", func(r chi.Router) {
			r.With(loginProtection.Middleware()).Post("/login", authHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(middleware.StaffAuth(sessionManager))
				r.Use(middleware.LoadStaffUser(sessionManager, db))

				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.Me)

				r.Get("/orders", orderHandler.AdminList)
				r.Get("/orders/{id}", orderHandler.AdminGet)
				r.Put("/orders/{id}/status", orderHandler.UpdateStatus)

				r.Get("/menu", menuHandler.AdminList)
				r.Post("/menu", menuHandler.Create)
				r.Put("/menu/{id}", menuHandler.Update)
				r.Delete("/menu/{id}", menuHandler.Delete)

				r.Post("/events", eventsHandler.Publish)

				// Manager-only endpoints
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireManager())

					r.Get("/settings", settingsHandler.List)
					r.Put("/settings", settingsHandler.Update)
					r.Get("/audit", auditHandler.List)
				})
			})
		})

		// Embedded web UI
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

		servePage := func(name string) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				data, err := web.Static.ReadFile("static/" + name)
				if err != nil {
					http.NotFound(w, r)
					return
				}
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				_, _ = w.Write(data)
			}
		}
		r.Get("/", servePage("index.html"))
		r.Get("/track", servePage("track.html"))
		r.Get("/admin", servePage("admin.html"))
	})

	// Create server with appropriate timeouts. WriteTimeout stays at zero
	// because the event stream writes for the lifetime of the connection.
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB max header size
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
