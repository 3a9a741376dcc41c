package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/taskmanager/internal/accounts"
	"github.com/geocoder89/taskmanager/internal/auth"
	"github.com/geocoder89/taskmanager/internal/config"
	"github.com/geocoder89/taskmanager/internal/db"
	apphttp "github.com/geocoder89/taskmanager/internal/http"
	"github.com/geocoder89/taskmanager/internal/observability"
	"github.com/geocoder89/taskmanager/internal/ratelimit"
	"github.com/geocoder89/taskmanager/internal/repo/memory"
	"github.com/geocoder89/taskmanager/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func testConfig() config.Config {
	return config.Config{
		Env:                   "test",
		APIPrefix:             "/api",
		JWTSecret:             "test-secret-key",
		JWTAccessTTLSecond:    3600,
		MaxBodyBytes:          1 << 20,
		AuthRateLimit:         1000,
		AuthRateWindowSeconds: 60,
	}
}

type app struct {
	router *gin.Engine
	store  *accounts.Store
}

func newDeps(cfg config.Config) apphttp.Deps {
	reg := prometheus.NewRegistry()

	return apphttp.Deps{
		Config:      cfg,
		Tokens:      auth.NewManager(cfg.JWTSecret, cfg.JWTAccessTTL()),
		AuthLimiter: ratelimit.NewMemory(cfg.AuthRateLimit, cfg.AuthRateWindow()),
		Prom:        observability.NewProm(reg),
		Gatherer:    reg,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func setupMemoryApp(t *testing.T, cfg config.Config) app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := memory.NewUsersRepo()

	d := newDeps(cfg)
	d.Accounts = accounts.NewStore(users)
	d.Tasks = memory.NewTasksRepo()
	d.Ping = users.Ping

	return app{router: apphttp.NewRouter(quietLogger(), d), store: d.Accounts}
}

// setupPostgresApp runs against TEST_DB_DSN and skips when it is unset.
func setupPostgresApp(t *testing.T) app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, dsn, db.PoolOptions{AppName: "taskmanager-test"})
	if err != nil {
		t.Fatalf("Failed to create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE tasks, users`); err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}

	cfg := testConfig()
	d := newDeps(cfg)
	d.Accounts = accounts.NewStore(postgres.NewUsersRepo(pool, d.Prom))
	d.Tasks = postgres.NewTasksRepo(pool, d.Prom)
	d.Ping = pool.Ping

	return app{router: apphttp.NewRouter(quietLogger(), d), store: d.Accounts}
}

func (a app) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func mustStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()

	if w.Code != want {
		t.Fatalf("expected %d, got %d body=%s", want, w.Code, w.Body.String())
	}
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func mustError(t *testing.T, w *httptest.ResponseRecorder, status int, message string) {
	t.Helper()

	mustStatus(t, w, status)
	if got := decode[errorBody](t, w).Error.Message; got != message {
		t.Fatalf("expected message %q, got %q", message, got)
	}
}

func (a app) register(t *testing.T, username, email, password string) string {
	t.Helper()

	w := a.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": username, "email": email, "password": password})
	mustStatus(t, w, http.StatusCreated)
	return decode[map[string]string](t, w)["user_id"]
}

func (a app) login(t *testing.T, username, password string) string {
	t.Helper()

	w := a.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": username, "password": password})
	mustStatus(t, w, http.StatusOK)
	return decode[map[string]any](t, w)["token"].(string)
}
