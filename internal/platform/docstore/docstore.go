// Package docstore provides a small document store keyed by collection and
// document key: an embedded bbolt backend, a REST server exposing it, and an
// HTTP client for that REST API.
package docstore

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidKey is returned for empty collection names or document keys
	// and for keys that are path dot segments.
	ErrInvalidKey = errors.New("invalid collection or key")
	// ErrInvalidDocument is returned when a document is not valid JSON.
	ErrInvalidDocument = errors.New("document is not valid JSON")
)

func validKey(collection, key string) error {
	if strings.TrimSpace(collection) == "" || key == "" {
		return ErrInvalidKey
	}
	// "." and ".." are cleaned out of request paths and cannot be addressed over REST.
	if key == "." || key == ".." || collection == "." || collection == ".." {
		return ErrInvalidKey
	}
	return nil
}
