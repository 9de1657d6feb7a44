package news

import (
	"context"
	"errors"
	"log"
	"time"
)

// Config tunes the service.
type Config struct {
	LatestLimit   int
	RemoteTimeout time.Duration
}

// Service mediates between callers and the two stores. Reads come from the
// local store; writes go to the local store first and are then mirrored to the
// remote store on a best-effort basis.
type Service struct {
	local  LocalRepository
	remote RemoteRepository
	feed   *Feed
	cfg    Config
}

// NewService creates a new news service. remote may be nil, which disables
// mirroring and remote lookups.
func NewService(local LocalRepository, remote RemoteRepository, cfg Config) *Service {
	if cfg.LatestLimit <= 0 {
		cfg.LatestLimit = 5
	}
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = 5 * time.Second
	}
	return &Service{
		local:  local,
		remote: remote,
		feed:   NewFeed(),
		cfg:    cfg,
	}
}

// Feed exposes the change feed.
func (s *Service) Feed() *Feed {
	return s.feed
}

// List returns a page of local news and the total count.
func (s *Service) List(ctx context.Context, q Query) ([]News, int, error) {
	return s.local.List(ctx, q)
}

// Latest returns the newest local news.
func (s *Service) Latest(ctx context.Context) ([]News, error) {
	return s.local.Latest(ctx, s.cfg.LatestLimit)
}

func (s *Service) Get(ctx context.Context, id int64) (News, error) {
	return s.local.GetByID(ctx, id)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.local.Count(ctx)
}

// Ping checks the local store.
func (s *Service) Ping(ctx context.Context) error {
	return s.local.Ping(ctx)
}

// LookupByTitle looks a record up in the remote store.
func (s *Service) LookupByTitle(ctx context.Context, title string) (News, error) {
	if s.remote == nil {
		return News{}, ErrRemoteDisabled
	}
	n, err := s.remote.FindByTitle(ctx, title)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("news: remote lookup failed title=%q err=%v", title, err)
		}
		return News{}, err
	}
	return n, nil
}

// Create inserts a record locally and mirrors it to the remote store.
func (s *Service) Create(ctx context.Context, in Input) (Result, error) {
	in, err := in.Normalize()
	if err != nil {
		return Result{}, err
	}
	n, err := s.local.Insert(ctx, in)
	if err != nil {
		log.Printf("news: insert failed title=%q err=%v", in.Title, err)
		return Result{}, err
	}
	s.feed.Publish(Event{Op: OpCreated, News: n})

	return Result{News: n, RemoteSynced: s.mirrorUpsert(ctx, n)}, nil
}

// Update rewrites a local record and mirrors it. A renamed record has its old
// remote document removed.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Result, error) {
	in, err := in.Normalize()
	if err != nil {
		return Result{}, err
	}
	prev, err := s.local.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("news: update lookup failed id=%d err=%v", id, err)
		}
		return Result{}, err
	}
	n, err := s.local.Update(ctx, id, in)
	if err != nil {
		log.Printf("news: update failed id=%d err=%v", id, err)
		return Result{}, err
	}
	s.feed.Publish(Event{Op: OpUpdated, News: n})

	synced := s.mirrorUpsert(ctx, n)
	if synced && prev.Title != n.Title {
		synced = s.mirrorDelete(ctx, prev.Title)
	}
	return Result{News: n, RemoteSynced: synced}, nil
}

// Delete removes a local record and its remote document.
func (s *Service) Delete(ctx context.Context, id int64) (Result, error) {
	n, err := s.local.Delete(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("news: delete failed id=%d err=%v", id, err)
		}
		return Result{}, err
	}
	s.feed.Publish(Event{Op: OpDeleted, News: n})

	return Result{News: n, RemoteSynced: s.mirrorDelete(ctx, n.Title)}, nil
}

// Subscribe streams change events until ctx is done.
func (s *Service) Subscribe(ctx context.Context) <-chan Event {
	return s.feed.Subscribe(ctx)
}

// WatchAll emits the full local list right away and again after every change.
// The channel is closed when ctx is done.
func (s *Service) WatchAll(ctx context.Context) <-chan []News {
	out := make(chan []News, 1)
	events := s.feed.Subscribe(ctx)

	go func() {
		defer close(out)
		emit := func() bool {
			items, _, err := s.local.List(ctx, Query{})
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("news: watch reload failed err=%v", err)
				}
				return ctx.Err() == nil
			}
			select {
			case out <- items:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for range events {
			if !emit() {
				return
			}
		}
	}()

	return out
}

func (s *Service) mirrorContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RemoteTimeout)
}

func (s *Service) mirrorUpsert(ctx context.Context, n News) bool {
	if s.remote == nil {
		return false
	}
	mctx, cancel := s.mirrorContext(ctx)
	defer cancel()
	if err := s.remote.Upsert(mctx, n); err != nil {
		log.Printf("news: mirror upsert failed id=%d title=%q err=%v", n.ID, n.Title, err)
		return false
	}
	return true
}

func (s *Service) mirrorDelete(ctx context.Context, title string) bool {
	if s.remote == nil {
		return false
	}
	mctx, cancel := s.mirrorContext(ctx)
	defer cancel()
	if err := s.remote.Delete(mctx, title); err != nil {
		log.Printf("news: mirror delete failed title=%q err=%v", title, err)
		return false
	}
	return true
}
