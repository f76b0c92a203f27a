package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"blogapi/internal/cache"
	"blogapi/internal/config"
	"blogapi/internal/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		Env:               "test",
		DBDriver:          "sqlite",
		JWTSecret:         "test-secret-key-0123456789abcdef0123456789",
		AllowedOrigins:    "http://localhost:5173",
		FeatureFlags:      "api_tokens=on",
		SessionTTLHours:   24,
		SessionCookieName: "sessionid",
		CSRFEnabled:       true,
		CSRFCookieName:    "csrftoken",
	}
}

type testEnv struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

// newTestEnv wires a full server over in-memory SQLite and miniredis.
func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(cache.Close)

	env := buildTestEnv(t, rdb, mutate...)
	env.mr = mr
	return env
}

// newTestEnvWithoutRedis wires a server that runs with no Redis at all:
// sessions and CSRF tokens live in memory and the cache is bypassed.
func newTestEnvWithoutRedis(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cache.Close()
	cache.SetClient(nil)
	return buildTestEnv(t, nil, mutate...)
}

func buildTestEnv(t *testing.T, rdb *redis.Client, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	return &testEnv{srv: srv, app: srv.App(), db: db}
}

// client is a minimal cookie-keeping HTTP client over app.Test.
type client struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
	headers map[string]string
}

func (e *testEnv) client(t *testing.T) *client {
	return &client{t: t, app: e.app, cookies: map[string]string{}, headers: map[string]string{}}
}

type result struct {
	status  int
	body    map[string]any
	raw     []byte
	cookies []*http.Cookie
}

func (c *client) do(method, path string, body any) result {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for name, value := range c.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)

	for _, ck := range resp.Cookies() {
		expired := ck.MaxAge < 0 || (!ck.Expires.IsZero() && ck.Expires.Before(time.Now()))
		if ck.Value == "" || expired {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck.Value
	}

	out := result{status: resp.StatusCode, raw: raw, cookies: resp.Cookies()}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(c.t, json.Unmarshal(raw, &out.body))
	}
	return out
}

// fetchCSRF loads the CSRF cookie and sends it back in the header from now on.
func (c *client) fetchCSRF() string {
	c.t.Helper()
	res := c.do(http.MethodGet, "/api/csrf/", nil)
	require.Equal(c.t, http.StatusOK, res.status)
	token := c.cookies["csrftoken"]
	require.NotEmpty(c.t, token)
	c.headers["X-CSRFToken"] = token
	return token
}

func (c *client) register(username, email, password string) result {
	c.t.Helper()
	return c.do(http.MethodPost, "/api/register/", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
}

func (c *client) login(username, password string) result {
	c.t.Helper()
	return c.do(http.MethodPost, "/api/login/", map[string]string{
		"username": username,
		"password": password,
	})
}

// signedIn registers a user, logs in and arms the CSRF header.
func (e *testEnv) signedIn(t *testing.T, username string) *client {
	t.Helper()
	c := e.client(t)
	require.Equal(t, http.StatusCreated, c.register(username, username+"@example.com", "s3cure-pass").status)
	require.Equal(t, http.StatusOK, c.login(username, "s3cure-pass").status)
	c.fetchCSRF()
	return c
}

func profileID(t *testing.T, c *client) float64 {
	t.Helper()
	res := c.do(http.MethodGet, "/api/profile/", nil)
	require.Equal(t, http.StatusOK, res.status)
	return res.body["id"].(float64)
}

func formatID(v any) string {
	return strconv.FormatFloat(v.(float64), 'f', 0, 64)
}
