package news

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"newsapi/internal/httpx"
	"newsapi/internal/platform/crypto"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerFixture struct {
	local  *MockLocalRepository
	remote *MockRemoteRepository
	svc    *Service
	mux    *http.ServeMux
}

func newHandlerFixture(t *testing.T, secret string) *handlerFixture {
	ctrl := gomock.NewController(t)
	f := &handlerFixture{
		local:  NewMockLocalRepository(ctrl),
		remote: NewMockRemoteRepository(ctrl),
		mux:    http.NewServeMux(),
	}
	f.svc = NewService(f.local, f.remote, Config{LatestLimit: 2, RemoteTimeout: time.Second})
	NewHTTPHandler(f.svc).Register(f.mux, httpx.AuthMiddleware(secret))
	return f
}

func (f *handlerFixture) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		r.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHTTPHandler_List(t *testing.T) {
	f := newHandlerFixture(t, "")
	items := []News{{ID: 1, Title: "a", Body: "b"}}

	t.Run("success with pagination", func(t *testing.T) {
		f.local.EXPECT().List(gomock.Any(), Query{Limit: 10, Offset: 10}).Return(items, 11, nil)

		w := f.do(http.MethodGet, "/news?page=2&page_size=10", "")

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		meta := body["meta"].(map[string]any)
		assert.Equal(t, float64(2), meta["total_pages"])
		assert.Equal(t, float64(11), meta["total"])
	})

	t.Run("defaults for bad paging", func(t *testing.T) {
		f.local.EXPECT().List(gomock.Any(), Query{Limit: 20, Offset: 0}).Return(items, 1, nil)

		w := f.do(http.MethodGet, "/news?page=-1&page_size=1000", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("huge page is clamped", func(t *testing.T) {
		f.local.EXPECT().List(gomock.Any(), Query{Limit: 20, Offset: (maxPage - 1) * 20}).Return([]News{}, 1, nil)

		w := f.do(http.MethodGet, "/news?page=9223372036854775807", "")
		assert.Equal(t, http.StatusOK, w.Code)
		meta := decodeBody(t, w)["meta"].(map[string]any)
		assert.Equal(t, float64(maxPage), meta["page"])
	})

	t.Run("error", func(t *testing.T) {
		f.local.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, 0, context.DeadlineExceeded)

		w := f.do(http.MethodGet, "/news", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHTTPHandler_LatestAndCount(t *testing.T) {
	f := newHandlerFixture(t, "")
	f.local.EXPECT().Latest(gomock.Any(), 2).Return([]News{{ID: 3}, {ID: 2}}, nil)
	f.local.EXPECT().Count(gomock.Any()).Return(3, nil)

	w := f.do(http.MethodGet, "/news/latest", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["data"], 2)

	w = f.do(http.MethodGet, "/news/count", "")
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(3), data["count"])
}

func TestHTTPHandler_Get(t *testing.T) {
	f := newHandlerFixture(t, "")

	t.Run("success", func(t *testing.T) {
		f.local.EXPECT().GetByID(gomock.Any(), int64(5)).Return(News{ID: 5, Title: "five"}, nil)
		w := f.do(http.MethodGet, "/news/5", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		f.local.EXPECT().GetByID(gomock.Any(), int64(6)).Return(News{}, ErrNotFound)
		w := f.do(http.MethodGet, "/news/6", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		w := f.do(http.MethodGet, "/news/abc", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHTTPHandler_GetByTitle(t *testing.T) {
	f := newHandlerFixture(t, "")

	f.remote.EXPECT().FindByTitle(gomock.Any(), "Hello World").Return(News{ID: 1, Title: "Hello World"}, nil)
	w := f.do(http.MethodGet, "/news/by-title/Hello%20World", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "remote", decodeBody(t, w)["meta"].(map[string]any)["source"])

	f.remote.EXPECT().FindByTitle(gomock.Any(), "missing").Return(News{}, ErrNotFound)
	w = f.do(http.MethodGet, "/news/by-title/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTPHandler_Create(t *testing.T) {
	f := newHandlerFixture(t, "")
	stored := News{ID: 1, Title: "Hello", Body: "World"}

	t.Run("created and mirrored", func(t *testing.T) {
		f.local.EXPECT().Insert(gomock.Any(), Input{Title: "Hello", Body: "World"}).Return(stored, nil)
		f.remote.EXPECT().Upsert(gomock.Any(), stored).Return(nil)

		w := f.do(http.MethodPost, "/news", `{"title":"Hello","body":"World"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, true, body["meta"].(map[string]any)["remote_synced"])
	})

	t.Run("created but remote failed", func(t *testing.T) {
		f.local.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(stored, nil)
		f.remote.EXPECT().Upsert(gomock.Any(), stored).Return(errors.New("offline"))

		w := f.do(http.MethodPost, "/news", `{"title":"Hello","body":"World"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, false, decodeBody(t, w)["meta"].(map[string]any)["remote_synced"])
	})

	t.Run("duplicate title", func(t *testing.T) {
		f.local.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(News{}, ErrTitleTaken)

		w := f.do(http.MethodPost, "/news", `{"title":"Hello","body":"World"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("validation", func(t *testing.T) {
		w := f.do(http.MethodPost, "/news", `{"title":"  ","body":""}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		errBody := decodeBody(t, w)["error"].(map[string]any)
		assert.Equal(t, "VALIDATION_ERROR", errBody["code"])
		assert.Len(t, errBody["details"], 2)
	})

	t.Run("unknown fields", func(t *testing.T) {
		w := f.do(http.MethodPost, "/news", `{"title":"a","body":"b","extra":1}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHTTPHandler_CreateDotSegmentTitle(t *testing.T) {
	f := newHandlerFixture(t, "")

	for _, title := range []string{".", " .. "} {
		w := f.do(http.MethodPost, "/news", `{"title":"`+title+`","body":"dot"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code, title)
	}
}

func TestHTTPHandler_UpdateDelete(t *testing.T) {
	f := newHandlerFixture(t, "")

	f.local.EXPECT().GetByID(gomock.Any(), int64(3)).Return(News{ID: 3, Title: "t"}, nil)
	f.local.EXPECT().Update(gomock.Any(), int64(3), Input{Title: "t", Body: "new"}).Return(News{ID: 3, Title: "t", Body: "new"}, nil)
	f.remote.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil)

	w := f.do(http.MethodPut, "/news/3", `{"title":"t","body":"new"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	f.local.EXPECT().Delete(gomock.Any(), int64(3)).Return(News{ID: 3, Title: "t"}, nil)
	f.remote.EXPECT().Delete(gomock.Any(), "t").Return(nil)

	w = f.do(http.MethodDelete, "/news/3", "")
	assert.Equal(t, http.StatusOK, w.Code)

	f.local.EXPECT().Delete(gomock.Any(), int64(4)).Return(News{}, ErrNotFound)
	w = f.do(http.MethodDelete, "/news/4", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTPHandler_WritesRequireToken(t *testing.T) {
	f := newHandlerFixture(t, "secret")

	w := f.do(http.MethodPost, "/news", `{"title":"a","body":"b"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodDelete, "/news/1", "", "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := crypto.GenerateToken("secret", "editor", time.Hour)
	require.NoError(t, err)
	f.local.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(News{ID: 1, Title: "a", Body: "b"}, nil)
	f.remote.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil)

	w = f.do(http.MethodPost, "/news", `{"title":"a","body":"b"}`, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusCreated, w.Code)

	// reads stay public
	f.local.EXPECT().Count(gomock.Any()).Return(1, nil)
	w = f.do(http.MethodGet, "/news/count", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTTPHandler_Events(t *testing.T) {
	f := newHandlerFixture(t, "")
	srv := httptest.NewServer(f.mux)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/news/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return f.svc.Feed().Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	f.svc.Feed().Publish(Event{Op: OpCreated, News: News{ID: 9, Title: "streamed"}})

	reader := bufio.NewReader(resp.Body)
	eventLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: created\n", eventLine)

	dataLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dataLine, "data: "))

	var n News
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(dataLine, "data: ")), &n))
	assert.Equal(t, int64(9), n.ID)
}

func TestHTTPHandler_EventsListView(t *testing.T) {
	f := newHandlerFixture(t, "")
	srv := httptest.NewServer(f.mux)
	defer srv.Close()

	f.local.EXPECT().List(gomock.Any(), Query{}).Return([]News{{ID: 1, Title: "only"}}, 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/news/events?view=list", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	eventLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: list\n", eventLine)

	dataLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	var items []News
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(dataLine, "data: ")), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "only", items[0].Title)
}
