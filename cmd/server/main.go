package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brunobiangulo/pdfdesk"
	"github.com/brunobiangulo/pdfdesk/ratelimit"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML or JSON)")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	flag.Parse()

	cfg := pdfdesk.DefaultConfig()
	if *configPath != "" {
		loaded, err := pdfdesk.LoadConfig(*configPath)
		if err != nil {
			slog.Error("loading config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	} else {
		if err := cfg.ApplyEnv(os.Getenv); err != nil {
			slog.Error("reading environment", "error", err)
			os.Exit(1)
		}
		if err := cfg.Validate(); err != nil {
			slog.Error("invalid config", "error", err)
			os.Exit(1)
		}
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	})))

	engine, err := pdfdesk.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	stop := make(chan struct{})
	defer close(stop)

	limiter := ratelimit.New(cfg.RateLimit, "/health")
	limiter.StartSweeper(stop)

	if !cfg.DisableStore && cfg.RetentionDays > 0 {
		go purgeLoop(engine, time.Duration(cfg.RetentionDays)*24*time.Hour, stop)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(cfg, engine, limiter),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      0, // large conversions stream for a while
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr, "store", !cfg.DisableStore)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}

// newRouter wires the API routes.
// Middleware chain: recovery -> cors -> auth -> logging -> rate limit -> routes.
func newRouter(cfg pdfdesk.Config, engine pdfdesk.Engine, limiter *ratelimit.Limiter) http.Handler {
	h := newHandler(engine)

	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware(cfg.Server.CORSOrigins))
	r.Use(authMiddleware(cfg.Server.APIKey))
	r.Use(logMiddleware)
	if limiter != nil {
		r.Use(limiter.Middleware)
	}

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(maxBodyMiddleware(cfg.MaxUploadBytes))

			r.Post("/convert/pdf-to-{format}", h.handleConvert)
			r.Post("/merge", h.handleMerge)
			r.Post("/split", h.handleSplit)
			r.Post("/rotate", h.handleRotate)
			r.Post("/reorder", h.handleReorder)
			r.Post("/compress", h.handleCompress)
			r.Post("/protect", h.handleProtect)
			r.Post("/unlock", h.handleUnlock)
			r.Post("/images-to-pdf", h.handleImagesToPDF)
		})

		r.Get("/conversions", h.handleListConversions)
		r.Get("/conversions/{id}", h.handleGetConversion)
		r.Get("/stats", h.handleStats)
	})

	return r
}

// purgeLoop drops conversion records older than retention once an hour.
func purgeLoop(engine pdfdesk.Engine, retention time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		n, err := engine.PurgeBefore(context.Background(), time.Now().Add(-retention))
		if err != nil {
			slog.Warn("purging conversions", "error", err)
		} else if n > 0 {
			slog.Info("purged conversions", "count", n)
		}
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
