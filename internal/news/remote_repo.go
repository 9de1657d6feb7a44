package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"newsapi/internal/platform/docstore"
)

// Documents is the document API shared by docstore.Client and docstore.BoltStore.
type Documents interface {
	Get(ctx context.Context, collection, key string) ([]byte, error)
	Put(ctx context.Context, collection, key string, doc []byte) error
	Delete(ctx context.Context, collection, key string) error
}

// remoteDocument is the wire shape of a news record in the remote store.
type remoteDocument struct {
	ID        int64     `json:"id,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentRemote stores news in a document collection keyed by title.
type DocumentRemote struct {
	docs       Documents
	collection string
}

func NewDocumentRemote(docs Documents, collection string) *DocumentRemote {
	if collection == "" {
		collection = "news"
	}
	return &DocumentRemote{docs: docs, collection: collection}
}

func (r *DocumentRemote) FindByTitle(ctx context.Context, title string) (News, error) {
	if title == "" {
		return News{}, ErrNotFound
	}
	data, err := r.docs.Get(ctx, r.collection, title)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return News{}, ErrNotFound
		}
		return News{}, err
	}

	var doc remoteDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return News{}, fmt.Errorf("decode remote news %q: %w", title, err)
	}
	if doc.Title != title {
		return News{}, fmt.Errorf("remote news %q: document holds title %q", title, doc.Title)
	}
	return News{
		ID:        doc.ID,
		Title:     doc.Title,
		Body:      doc.Body,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (r *DocumentRemote) Upsert(ctx context.Context, n News) error {
	data, err := json.Marshal(remoteDocument{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	})
	if err != nil {
		return err
	}
	return r.docs.Put(ctx, r.collection, n.Title, data)
}

func (r *DocumentRemote) Delete(ctx context.Context, title string) error {
	return r.docs.Delete(ctx, r.collection, title)
}
