package docstore

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"newsapi/internal/httpx"
)

const maxDocumentBytes = 1 << 20

// Server exposes a BoltStore over REST:
//
//	GET    /v1/collections/{collection}/documents
//	GET    /v1/collections/{collection}/documents/{key}
//	PUT    /v1/collections/{collection}/documents/{key}
//	DELETE /v1/collections/{collection}/documents/{key}
type Server struct {
	store *BoltStore
	token string
}

// NewServer creates a server. An empty token disables authentication.
func NewServer(store *BoltStore, token string) *Server {
	return &Server{store: store, token: token}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /v1/collections/{collection}/documents", s.list)
	mux.HandleFunc("GET /v1/collections/{collection}/documents/{key}", s.get)
	mux.HandleFunc("PUT /v1/collections/{collection}/documents/{key}", s.put)
	mux.HandleFunc("DELETE /v1/collections/{collection}/documents/{key}", s.delete)
	return s.authorize(mux)
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.URL.Path != "/healthz" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
				httpx.JSONError(w, r, http.StatusUnauthorized, httpx.CodeUnauthorized, "Invalid docstore token", nil)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.Keys(r.Context(), r.PathValue("collection"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string][]string{"keys": keys})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Get(r.Context(), r.PathValue("collection"), r.PathValue("key"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(doc)
}

func (s *Server) put(w http.ResponseWriter, r *http.Request) {
	doc, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		httpx.JSONError(w, r, http.StatusRequestEntityTooLarge, httpx.CodePayloadTooLarge, "Document too large", nil)
		return
	}
	if err := s.store.Put(r.Context(), r.PathValue("collection"), r.PathValue("key"), doc); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), r.PathValue("collection"), r.PathValue("key")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, httpx.CodeNotFound, "Document not found", nil)
	case errors.Is(err, ErrInvalidKey):
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "Invalid collection or key", nil)
	case errors.Is(err, ErrInvalidDocument):
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeInvalidDocument, "Document must be JSON", nil)
	default:
		log.Printf("docstore: request failed method=%s path=%s err=%v", r.Method, r.URL.Path, err)
		httpx.JSONError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "Internal server error", nil)
	}
}
