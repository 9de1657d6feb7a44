package httpx

import (
	"context"
	"net/http"
)

type contextKey string

const (
	subjectKey   contextKey = "subject"
	requestIDKey contextKey = "requestID"
)

// SubjectFrom returns the authenticated token subject, if any.
func SubjectFrom(r *http.Request) string {
	if v, ok := r.Context().Value(subjectKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithSubject stores the authenticated token subject.
func ContextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

func RequestIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}
