package news

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=news

// LocalRepository defines the contract for the local news store.
type LocalRepository interface {
	List(ctx context.Context, q Query) ([]News, int, error)
	Latest(ctx context.Context, limit int) ([]News, error)
	GetByID(ctx context.Context, id int64) (News, error)
	Count(ctx context.Context) (int, error)
	Insert(ctx context.Context, in Input) (News, error)
	Update(ctx context.Context, id int64, in Input) (News, error)
	// Delete removes the record and returns it as it was before deletion.
	Delete(ctx context.Context, id int64) (News, error)
	Ping(ctx context.Context) error
}

// RemoteRepository defines the contract for the remote document store, keyed by title.
type RemoteRepository interface {
	FindByTitle(ctx context.Context, title string) (News, error)
	Upsert(ctx context.Context, n News) error
	Delete(ctx context.Context, title string) error
}
