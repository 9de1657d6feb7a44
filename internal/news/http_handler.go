package news

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"newsapi/internal/httpx"
)

const (
	sseKeepAlive = 25 * time.Second

	maxPageSize = 100
	// maxPage keeps (page-1)*page_size far from int overflow.
	maxPage = 1_000_000
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// Register mounts the news routes. Writes are wrapped with auth.
func (h *HTTPHandler) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /news", h.List)
	mux.HandleFunc("GET /news/latest", h.Latest)
	mux.HandleFunc("GET /news/count", h.Count)
	mux.HandleFunc("GET /news/events", h.Events)
	mux.HandleFunc("GET /news/by-title/{title}", h.GetByTitle)
	mux.HandleFunc("GET /news/{id}", h.Get)
	mux.Handle("POST /news", auth(http.HandlerFunc(h.Create)))
	mux.Handle("PUT /news/{id}", auth(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /news/{id}", auth(http.HandlerFunc(h.Delete)))
}

// List handles GET /news
// @Summary List news
// @Tags news
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} httpx.SuccessResponse
// @Router /news [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	pageSize, _ := strconv.Atoi(query.Get("page_size"))
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = 20
	}

	items, total, err := h.service.List(r.Context(), Query{Limit: pageSize, Offset: (page - 1) * pageSize})
	if err != nil {
		h.internalError(w, r, "list", err)
		return
	}

	httpx.JSONSuccess(w, r, items, map[string]any{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": (total + pageSize - 1) / pageSize,
	})
}

// Latest handles GET /news/latest
func (h *HTTPHandler) Latest(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Latest(r.Context())
	if err != nil {
		h.internalError(w, r, "latest", err)
		return
	}
	httpx.JSONSuccess(w, r, items, nil)
}

// Count handles GET /news/count
func (h *HTTPHandler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Count(r.Context())
	if err != nil {
		h.internalError(w, r, "count", err)
		return
	}
	httpx.JSONSuccess(w, r, map[string]int{"count": n}, nil)
}

// Get handles GET /news/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	n, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "get", err)
		return
	}
	httpx.JSONSuccess(w, r, n, nil)
}

// GetByTitle handles GET /news/by-title/{title}. The lookup goes to the remote store.
func (h *HTTPHandler) GetByTitle(w http.ResponseWriter, r *http.Request) {
	title := r.PathValue("title")
	if title == "" {
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "title is required", nil)
		return
	}
	n, err := h.service.LookupByTitle(r.Context(), title)
	if err != nil {
		h.writeError(w, r, "lookup", err)
		return
	}
	httpx.JSONSuccess(w, r, n, map[string]any{"source": "remote"})
}

// Create handles POST /news
// @Summary Create news
// @Tags news
// @Accept json
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /news [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	res, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, "create", err)
		return
	}
	httpx.JSONCreated(w, r, res.News, map[string]any{"remote_synced": res.RemoteSynced})
}

// Update handles PUT /news/{id}
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	res, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.writeError(w, r, "update", err)
		return
	}
	httpx.JSONSuccess(w, r, res.News, map[string]any{"remote_synced": res.RemoteSynced})
}

// Delete handles DELETE /news/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	res, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "delete", err)
		return
	}
	httpx.JSONSuccess(w, r, res.News, map[string]any{"remote_synced": res.RemoteSynced})
}

// Events handles GET /news/events as a server-sent event stream. By default
// every local change is sent as a "created", "updated" or "deleted" event;
// with ?view=list the full list is sent as a "list" event on connect and after
// every change.
func (h *HTTPHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.JSONError(w, r, http.StatusInternalServerError, httpx.CodeStreamingUnsupported, "Streaming unsupported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	send := func(event string, data any) bool {
		payload, err := json.Marshal(data)
		if err != nil {
			log.Printf("news: sse encode failed event=%s err=%v", event, err)
			return true
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if r.URL.Query().Get("view") == "list" {
		lists := h.service.WatchAll(ctx)
		for {
			select {
			case items, open := <-lists:
				if !open || !send("list", items) {
					return
				}
			case <-keepAlive.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}

	events := h.service.Subscribe(ctx)
	for {
		select {
		case ev, open := <-events:
			if !open || !send(string(ev.Op), ev.News) {
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

func decodeInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var in Input
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httpx.JSONError(w, r, http.StatusRequestEntityTooLarge, httpx.CodePayloadTooLarge, "Request body too large", nil)
			return Input{}, false
		}
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "Invalid request body", nil)
		return Input{}, false
	}
	if details := httpx.ValidateStruct(in); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Invalid news", details)
		return Input{}, false
	}
	return in, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, httpx.CodeNotFound, "News not found", nil)
	case errors.Is(err, ErrTitleTaken):
		httpx.JSONError(w, r, http.StatusConflict, httpx.CodeTitleTaken, "A news item with this title already exists", nil)
	case errors.Is(err, ErrInvalid):
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, err.Error(), nil)
	case errors.Is(err, ErrRemoteDisabled):
		httpx.JSONError(w, r, http.StatusServiceUnavailable, httpx.CodeRemoteDisabled, "Remote store is not configured", nil)
	default:
		h.internalError(w, r, op, err)
	}
}

func (h *HTTPHandler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.Printf("news: request failed op=%s request_id=%s err=%v", op, httpx.RequestIDFrom(r), err)
	httpx.JSONError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "Internal server error", nil)
}
