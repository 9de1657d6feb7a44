package httpx

import (
	"errors"
	"log"
	"net/http"
	"runtime/debug"
)

// RecoveryMiddleware turns a handler panic into a 500 envelope. When the
// response has already started (an SSE stream, say) only the log line is
// written. http.ErrAbortHandler is re-raised so net/http aborts the
// connection quietly.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			log.Printf("panic recovered method=%s path=%s request_id=%s error=%v stack=%s",
				r.Method, r.URL.Path, RequestIDFrom(r), rec, debug.Stack())

			if started(w) {
				return
			}
			JSONError(w, r, http.StatusInternalServerError, CodeInternal, "An internal error occurred", nil)
		}()
		next.ServeHTTP(w, r)
	})
}

// started reports whether headers were already sent through the access log
// writer. Without it the envelope is always attempted.
func started(w http.ResponseWriter) bool {
	rw, ok := w.(*responseWriter)
	return ok && rw.wroteHeader()
}
