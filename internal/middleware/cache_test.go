package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/config"
)

func cacheCfg() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{"GET": true},
		TTL:          30 * time.Second,
		KeyStrategy:  "route_query",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
}

func runRequest(mw echo.MiddlewareFunc, handler echo.HandlerFunc, target string) *httptest.ResponseRecorder {
	e := echo.New()
	e.GET("/v1/events", handler, mw)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCacheHitServesStoredResponse(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := cacheCfg()

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/events", nil), httptest.NewRecorder())
	c.SetPath("/v1/events")
	key := cacheKeyFrom(cfg, c)

	hdr := http.Header{"Content-Type": []string{"application/json"}}
	payload, err := encodePayload(http.StatusOK, hdr, []byte(`{"items":[]}`))
	require.NoError(t, err)
	mock.ExpectGet(key).SetVal(string(payload))

	handlerCalled := false
	rec := runRequest(NewRedisCache(cfg, rdb), func(c echo.Context) error {
		handlerCalled = true
		return c.String(http.StatusOK, "fresh")
	}, "/v1/events")

	assert.False(t, handlerCalled, "cached responses must not invoke the handler")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"items":[]}`, rec.Body.String())
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheMissStoresResponse(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := cacheCfg()

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/events", nil), httptest.NewRecorder())
	c.SetPath("/v1/events")
	key := cacheKeyFrom(cfg, c)

	mock.ExpectGet(key).RedisNil()
	// The stored payload embeds response headers, so match loosely.
	mock.CustomMatch(func(expected, actual []interface{}) error {
		return nil
	}).ExpectSetEx(key, "", cfg.TTL).SetVal("OK")

	rec := runRequest(NewRedisCache(cfg, rdb), func(c echo.Context) error {
		return c.String(http.StatusOK, "fresh")
	}, "/v1/events")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fresh", rec.Body.String())
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheSkipsUncachedMethods(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := cacheCfg()

	e := echo.New()
	e.POST("/v1/events", func(c echo.Context) error {
		return c.String(http.StatusCreated, "created")
	}, NewRedisCache(cfg, rdb))
	req := httptest.NewRequest(http.MethodPost, "/v1/events", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet(), "POST must never touch redis")
}

func TestCacheDisabledPassesThrough(t *testing.T) {
	cfg := cacheCfg()
	cfg.Enabled = false

	rec := runRequest(NewRedisCache(cfg, nil), func(c echo.Context) error {
		return c.String(http.StatusOK, "fresh")
	}, "/v1/events")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fresh", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestCacheKeyStrategyDistinguishesQueries(t *testing.T) {
	cfg := cacheCfg()
	e := echo.New()

	c1 := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/events?city=oslo", nil), httptest.NewRecorder())
	c1.SetPath("/v1/events")
	c2 := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/events?city=bergen", nil), httptest.NewRecorder())
	c2.SetPath("/v1/events")

	assert.NotEqual(t, cacheKeyFrom(cfg, c1), cacheKeyFrom(cfg, c2))

	// The "route" strategy ignores the query string.
	cfg.KeyStrategy = "route"
	assert.Equal(t, cacheKeyFrom(cfg, c1), cacheKeyFrom(cfg, c2))
}
