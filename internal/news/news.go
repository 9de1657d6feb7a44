package news

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrNotFound is returned when a news record is not found.
	ErrNotFound = errors.New("news not found")
	// ErrTitleTaken is returned when another record already uses the title.
	ErrTitleTaken = errors.New("news title already exists")
	// ErrRemoteDisabled is returned by remote lookups when no remote store is configured.
	ErrRemoteDisabled = errors.New("remote store disabled")
	// ErrInvalid wraps input validation failures.
	ErrInvalid = errors.New("invalid news")
)

const (
	MaxTitleLen = 200
	MaxBodyLen  = 20000
)

// News represents a news record. Title is unique and doubles as the remote document key.
type News struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input is the writable part of a news record.
type Input struct {
	Title string `json:"title" validate:"notblank,max=200"`
	Body  string `json:"body" validate:"notblank,max=20000"`
}

// Normalize trims the title and checks the length limits.
func (in Input) Normalize() (Input, error) {
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.Title == "":
		return in, fmt.Errorf("%w: title is required", ErrInvalid)
	case in.Title == "." || in.Title == "..":
		return in, fmt.Errorf("%w: title cannot be %q", ErrInvalid, in.Title)
	case utf8.RuneCountInString(in.Title) > MaxTitleLen:
		return in, fmt.Errorf("%w: title is too long", ErrInvalid)
	case strings.TrimSpace(in.Body) == "":
		return in, fmt.Errorf("%w: body is required", ErrInvalid)
	case utf8.RuneCountInString(in.Body) > MaxBodyLen:
		return in, fmt.Errorf("%w: body is too long", ErrInvalid)
	}
	return in, nil
}

// Query defines pagination for listing news. A zero Limit lists everything.
type Query struct {
	Limit  int
	Offset int
}

// Result is the outcome of a write. RemoteSynced reports whether the mirror write succeeded.
type Result struct {
	News         News `json:"news"`
	RemoteSynced bool `json:"remote_synced"`
}

// Op names a change to the local store.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// Event is published after every successful local write.
type Event struct {
	Op   Op   `json:"op"`
	News News `json:"news"`
}
