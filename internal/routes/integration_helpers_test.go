//go:build integration

package routes

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

	"github.com/BradenHooton/vectradex/internal/auth"
	"github.com/BradenHooton/vectradex/internal/clock"
	"github.com/BradenHooton/vectradex/internal/database"
	"github.com/BradenHooton/vectradex/internal/handlers"
	"github.com/BradenHooton/vectradex/internal/metrics"
	middlewareCustom "github.com/BradenHooton/vectradex/internal/middleware"
	"github.com/BradenHooton/vectradex/internal/repositories"
	"github.com/BradenHooton/vectradex/internal/services"
	pkgauth "github.com/BradenHooton/vectradex/pkg/auth"
	pkghttp "github.com/BradenHooton/vectradex/pkg/http"
	pkglogger "github.com/BradenHooton/vectradex/pkg/logger"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testAdminEmail    = "admin@plant.com"
	testAdminPassword = "admin1234"
)

// setupTestDatabase starts PostgreSQL in a container and applies the migrations
func setupTestDatabase(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("vectradex"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := database.New(pool, quietLogger())
	require.NoError(t, db.Migrate(ctx))
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// TestServer wraps httptest.Server with a real database and a recording mailer
type TestServer struct {
	Server *httptest.Server
	Mailer *services.RecordingMailer
	Auth   *services.AuthService
}

// NewTestServer wires the full router the way main does, with a fresh login throttle
func NewTestServer(t *testing.T, db *database.DB) *TestServer {
	t.Helper()
	logger := quietLogger()
	clk := clock.Real{}
	m := metrics.New()
	auditLogger := pkglogger.NewAuditLogger(logger)

	userRepo := repositories.NewUserRepository(db)
	machineRepo := repositories.NewMachineRepository(db)
	eventRepo := repositories.NewEventRepository(db)
	productRepo := repositories.NewProductRepository(db)

	tokenManager := auth.NewTokenManager(
		"integration-secret-32-characters-long",
		"integration-reset-secret-32-characters",
		15*time.Minute,
		30*time.Minute,
		clk,
	)
	mailer := &services.RecordingMailer{}

	authService, err := services.NewAuthService(
		userRepo,
		pkgauth.NewBcryptHasher(4),
		tokenManager,
		mailer,
		services.ThrottlePolicy{Window: 10 * time.Minute, MaxAttempts: 5, Lockout: 15 * time.Minute},
		clk,
		nil,
		m,
		logger,
		auditLogger,
	)
	require.NoError(t, err)

	_, err = authService.EnsureAdmin(context.Background(), testAdminEmail, testAdminPassword)
	require.NoError(t, err)

	ipConfig := pkghttp.NewIPConfig(nil)
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: "test"}))
	r.Use(chiMiddleware.Recoverer)
	r.Route("/api", func(api chi.Router) {
		RegisterRoutes(api,
			handlers.NewAuthHandler(authService, ipConfig, auth.CookieConfig{}),
			handlers.NewMachineHandler(services.NewMachineService(machineRepo, eventRepo, clk, m, auditLogger, logger)),
			handlers.NewDashboardHandler(services.NewMetricsService(eventRepo, productRepo, clk, 7*24*time.Hour, logger)),
			tokenManager,
			userRepo,
			middlewareCustom.RateLimitConfig{RequestsPerMinute: 1000, IPConfig: ipConfig},
		)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &TestServer{Server: server, Mailer: mailer, Auth: authService}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(t *testing.T, method, path, accessToken string, body interface{}) *http.Response {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, bodyReader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Login returns an access token, failing the test on any other outcome
func (ts *TestServer) Login(t *testing.T, email, password string) string {
	t.Helper()
	resp := ts.Request(t, http.MethodPost, "/api/auth/login", "", handlers.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login services.LoginResponse
	ParseJSONResponse(t, resp, &login)
	require.NotEmpty(t, login.AccessToken)
	return login.AccessToken
}

// ParseJSONResponse parses JSON response body into target
func ParseJSONResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

// statusOf closes the body and returns the status code
func statusOf(resp *http.Response) int {
	resp.Body.Close()
	return resp.StatusCode
}
