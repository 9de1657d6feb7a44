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

	"newsapi/internal/config"
	"newsapi/internal/httpx"
	"newsapi/internal/platform/docstore"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.LoadDocstore()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, err := docstore.OpenBolt(cfg.Path)
	if err != nil {
		log.Fatalf("open docstore: %v", err)
	}
	defer store.Close()

	if cfg.Token == "" {
		log.Println("DOCSTORE_TOKEN not set; documents are readable and writable without auth")
	}

	handler := httpx.Chain(docstore.NewServer(store, cfg.Token).Routes(),
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware,
		httpx.RecoveryMiddleware,
	)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("docstore listening on %s path=%s", cfg.Addr, cfg.Path)
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
	if err := g.Wait(); err != nil {
		log.Fatalf("docstore error: %v", err)
	}
}
