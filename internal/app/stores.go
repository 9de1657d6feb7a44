// Package app builds the stores and service from configuration so every
// command wires them the same way.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"newsapi/internal/config"
	"newsapi/internal/news"
	"newsapi/internal/platform/docstore"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Stores holds the opened local and remote stores plus their cleanup.
type Stores struct {
	Local  news.LocalRepository
	Remote news.RemoteRepository

	closers []func()
}

// Close releases every store in reverse order of opening.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Open opens the local store selected by LOCAL_DRIVER and the remote store
// selected by REMOTE_MODE. Remote is nil when REMOTE_MODE=off.
func Open(ctx context.Context, cfg config.Config) (*Stores, error) {
	s := &Stores{}
	if err := s.openLocal(ctx, cfg); err != nil {
		return nil, err
	}
	if err := s.openRemote(cfg); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// NewService builds the news service over the opened stores.
func (s *Stores) NewService(cfg config.Config) *news.Service {
	return news.NewService(s.Local, s.Remote, news.Config{
		LatestLimit:   cfg.LatestLimit,
		RemoteTimeout: cfg.RemoteTimeout,
	})
}

func (s *Stores) openLocal(ctx context.Context, cfg config.Config) error {
	switch cfg.LocalDriver {
	case config.LocalPostgres:
		pool, err := openPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, pool.Close)
		s.Local = news.NewPostgresRepo(pool, cfg.DBTimeout)
	case config.LocalSQLite:
		repo, err := news.OpenSQLite(ctx, cfg.SQLitePath, cfg.DBTimeout)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func() { _ = repo.Close() })
		s.Local = repo
		log.Printf("local store sqlite path=%s", cfg.SQLitePath)
	default:
		return fmt.Errorf("unknown local driver: %s", cfg.LocalDriver)
	}
	return nil
}

func (s *Stores) openRemote(cfg config.Config) error {
	switch cfg.RemoteMode {
	case config.RemoteHTTP:
		client := docstore.NewClient(cfg.RemoteURL, cfg.RemoteToken, cfg.RemoteRPS, cfg.RemoteMaxRetries)
		s.Remote = news.NewDocumentRemote(client, cfg.RemoteCollection)
		log.Printf("remote store http url=%s collection=%s", cfg.RemoteURL, cfg.RemoteCollection)
	case config.RemoteEmbedded:
		store, err := docstore.OpenBolt(cfg.RemoteBoltPath)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func() { _ = store.Close() })
		s.Remote = news.NewDocumentRemote(store, cfg.RemoteCollection)
		log.Printf("remote store embedded path=%s collection=%s", cfg.RemoteBoltPath, cfg.RemoteCollection)
	case config.RemoteOff:
		log.Println("remote store disabled")
	default:
		return fmt.Errorf("unknown remote mode: %s", cfg.RemoteMode)
	}
	return nil
}

func openPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot ping database (%s): %w", config.RedactDSN(dsn), err)
	}
	log.Println("database connection OK")
	return pool, nil
}
