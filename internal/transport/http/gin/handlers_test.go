package httpgin

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/kirinyoku/eventhub/internal/domain"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
	"github.com/kirinyoku/eventhub/internal/storage/blob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const idemTTL = 24 * time.Hour

func idemEngine(store *redisrepo.IdempotencyStore, calls *int, fail error) *gin.Engine {
	r := gin.New()
	r.POST("/x", func(c *gin.Context) {
		idempotent(c, store, "hold:1", 42, func() (int, any, error) {
			*calls++
			if fail != nil {
				return 0, nil, fail
			}
			return http.StatusCreated, gin.H{"id": 1}, nil
		})
	})
	return r
}

func TestIdempotentFirstRunStoresResult(t *testing.T) {
	db, mock := redismock.NewClientMock()
	key := redisrepo.KeyIdem("hold:1", 42, "k1")

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSetNX(key, "LOCK", idemLockTTL).SetVal(true)
	mock.ExpectSet(key, `RES:201:{"id":1}`, idemTTL).SetVal("OK")

	calls := 0
	w := do(idemEngine(redisrepo.NewIdempotencyStore(db, idemTTL), &calls, nil), http.MethodPost, "/x", "", idemHeader, "k1")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":1}`, w.Body.String())
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotentReplay(t *testing.T) {
	db, mock := redismock.NewClientMock()
	key := redisrepo.KeyIdem("hold:1", 42, "k1")

	mock.ExpectGet(key).SetVal(`RES:201:{"id":7}`)

	calls := 0
	w := do(idemEngine(redisrepo.NewIdempotencyStore(db, idemTTL), &calls, nil), http.MethodPost, "/x", "", idemHeader, "k1")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":7}`, w.Body.String())
	assert.Equal(t, "true", w.Header().Get("Idempotent-Replayed"))
	assert.Zero(t, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotentInFlight(t *testing.T) {
	db, mock := redismock.NewClientMock()
	key := redisrepo.KeyIdem("hold:1", 42, "k1")

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSetNX(key, "LOCK", idemLockTTL).SetVal(false)
	mock.ExpectGet(key).SetVal("LOCK")

	calls := 0
	w := do(idemEngine(redisrepo.NewIdempotencyStore(db, idemTTL), &calls, nil), http.MethodPost, "/x", "", idemHeader, "k1")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Zero(t, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotentFailureReleasesKey(t *testing.T) {
	db, mock := redismock.NewClientMock()
	key := redisrepo.KeyIdem("hold:1", 42, "k1")

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSetNX(key, "LOCK", idemLockTTL).SetVal(true)
	mock.ExpectDel(key).SetVal(1)

	calls := 0
	fail := domain.Invalid("items", "must not be empty")
	w := do(idemEngine(redisrepo.NewIdempotencyStore(db, idemTTL), &calls, fail), http.MethodPost, "/x", "", idemHeader, "k1")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotentWithoutHeader(t *testing.T) {
	db, mock := redismock.NewClientMock()

	calls := 0
	w := do(idemEngine(redisrepo.NewIdempotencyStore(db, idemTTL), &calls, nil), http.MethodPost, "/x", "")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteJSONWithCache(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		writeJSONWithCache(c, http.StatusOK, gin.H{"a": 1}, "public, max-age=60", true)
	})

	w := do(r, http.MethodGet, "/x", "")
	require.Equal(t, http.StatusOK, w.Code)
	tag := w.Header().Get("ETag")
	assert.True(t, len(tag) > 4 && tag[:2] == "W/")
	assert.Equal(t, "public, max-age=60", w.Header().Get("Cache-Control"))

	w = do(r, http.MethodGet, "/x", "", "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())

	w = do(r, http.MethodGet, "/x", "", "If-None-Match", `"other", `+tag[2:])
	assert.Equal(t, http.StatusNotModified, w.Code)
}

func TestETagMatch(t *testing.T) {
	assert.True(t, etagMatch(`"abc"`, `W/"abc"`))
	assert.True(t, etagMatch(`*`, `"abc"`))
	assert.False(t, etagMatch(``, `"abc"`))
	assert.False(t, etagMatch(`"abd"`, `"abc"`))
}

var pngBytes = append(
	[]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'},
	[]byte("pixels")...,
)

func uploadRequest(t *testing.T, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "pic.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/media", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func mediaEngine(store *blob.FileStore) *gin.Engine {
	r := gin.New()
	r.POST("/media", handleUploadMedia(store))
	r.GET("/media/:key", handleServeMedia(store))
	r.DELETE("/media/:key", handleDeleteMedia(store))
	return r
}

func TestMediaRoundTrip(t *testing.T) {
	store, err := blob.NewFileStore(t.TempDir(), 1<<20)
	require.NoError(t, err)
	r := mediaEngine(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, pngBytes))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"content_type":"image/png"`)

	var key string
	for _, part := range bytes.Split(w.Body.Bytes(), []byte(`"`)) {
		if blob.ValidKey(string(part)) {
			key = string(part)
		}
	}
	require.NotEmpty(t, key)

	w = do(r, http.MethodGet, "/media/"+key, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Cache-Control"), "immutable")
	assert.Equal(t, pngBytes, w.Body.Bytes())

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/media/"+key, "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/media/"+key, "").Code)
}

func TestMediaRejectsNonImages(t *testing.T) {
	store, err := blob.NewFileStore(t.TempDir(), 1<<20)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	mediaEngine(store).ServeHTTP(w, uploadRequest(t, []byte("#!/bin/sh\necho hi\n")))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestMediaTooLarge(t *testing.T) {
	store, err := blob.NewFileStore(t.TempDir(), 8)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	mediaEngine(store).ServeHTTP(w, uploadRequest(t, pngBytes))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestMediaUnknownKey(t *testing.T) {
	store, err := blob.NewFileStore(t.TempDir(), 1<<20)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, do(mediaEngine(store), http.MethodGet, "/media/abc.png", "").Code)
}
