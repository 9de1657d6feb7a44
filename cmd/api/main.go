package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newsapi/internal/app"
	"newsapi/internal/config"
	"newsapi/internal/httpx"
	"newsapi/internal/news"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("open stores: %v", err)
	}
	defer stores.Close()

	service := stores.NewService(cfg)
	rateLimiter := httpx.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer rateLimiter.Close()

	// No WriteTimeout: /news/events streams stay open.
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(service, cfg, rateLimiter),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if cfg.JWTSecret == "" {
		log.Println("JWT_SECRET not set; write endpoints are unauthenticated")
	}

	if err := run(ctx, httpServer); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Println("server stopped")
}

func run(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newRouter(service *news.Service, cfg config.Config, rateLimiter *httpx.RateLimitMiddleware) http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := service.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	news.NewHTTPHandler(service).Register(router, httpx.AuthMiddleware(cfg.JWTSecret))

	middlewares := []func(http.Handler) http.Handler{
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware,
		httpx.RecoveryMiddleware,
		httpx.CORSMiddleware(cfg.CORSOrigins),
		httpx.SecurityHeadersMiddleware(cfg.EnableHSTS),
	}
	if rateLimiter != nil {
		middlewares = append(middlewares, rateLimiter.Middleware)
	}
	if cfg.MaxBodyBytes > 0 {
		middlewares = append(middlewares, httpx.RequestSizeLimitMiddleware(cfg.MaxBodyBytes))
	}
	return httpx.Chain(router, middlewares...)
}
