package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/vectradex/internal/auth"
	"github.com/BradenHooton/vectradex/internal/models"
	"github.com/BradenHooton/vectradex/internal/services"
	pkghttp "github.com/BradenHooton/vectradex/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds user claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID, email, role string) *http.Request {
	claims := &models.TokenClaims{
		UserID: userID,
		Role:   role,
		Type:   models.TokenTypeAccess,
	}
	claims.Subject = email
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// WithURLParam sets a chi route parameter on the request
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc          func(ctx context.Context, email, password, ipAddress string) (*services.LoginResponse, error)
	RegisterFunc       func(ctx context.Context, input services.RegisterInput, actorID string) (*services.UserResponse, error)
	ForgotPasswordFunc func(ctx context.Context, email string) error
	ResetPasswordFunc  func(ctx context.Context, token, newPassword string) error
	CurrentUserFunc    func(ctx context.Context, userID string) (*services.UserResponse, error)
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ipAddress string) (*services.LoginResponse, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.LoginFunc(ctx, email, password, ipAddress)
}

func (m *MockAuthService) Register(ctx context.Context, input services.RegisterInput, actorID string) (*services.UserResponse, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrConflict
	}
	return m.RegisterFunc(ctx, input, actorID)
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, email string) error {
	if m.ForgotPasswordFunc == nil {
		return nil
	}
	return m.ForgotPasswordFunc(ctx, email)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if m.ResetPasswordFunc == nil {
		return nil
	}
	return m.ResetPasswordFunc(ctx, token, newPassword)
}

func (m *MockAuthService) CurrentUser(ctx context.Context, userID string) (*services.UserResponse, error) {
	if m.CurrentUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.CurrentUserFunc(ctx, userID)
}

// MockMachineService implements MachineServiceInterface for testing
type MockMachineService struct {
	CreateMachineFunc func(ctx context.Context, name string, location *string, actorID string) (*models.Machine, error)
	ListMachinesFunc  func(ctx context.Context) ([]*models.Machine, error)
	DeleteMachineFunc func(ctx context.Context, id int64, actorID string) error
	AppendEventFunc   func(ctx context.Context, input services.EventInput, actorID string) (*models.ProductionEvent, error)
	RegisterStopFunc  func(ctx context.Context, machineID int64, reason string, actorID string) (*models.ProductionEvent, error)
	HistoryFunc       func(ctx context.Context, machineID int64, start, end *time.Time) ([]*models.ProductionEvent, error)
	StatusFunc        func(ctx context.Context, machineID int64) (*models.MachineStatus, error)
	StatusesFunc      func(ctx context.Context) ([]models.MachineStatus, error)
}

func (m *MockMachineService) CreateMachine(ctx context.Context, name string, location *string, actorID string) (*models.Machine, error) {
	if m.CreateMachineFunc == nil {
		return &models.Machine{ID: 1, Name: name, Location: location}, nil
	}
	return m.CreateMachineFunc(ctx, name, location, actorID)
}

func (m *MockMachineService) ListMachines(ctx context.Context) ([]*models.Machine, error) {
	if m.ListMachinesFunc == nil {
		return []*models.Machine{}, nil
	}
	return m.ListMachinesFunc(ctx)
}

func (m *MockMachineService) DeleteMachine(ctx context.Context, id int64, actorID string) error {
	if m.DeleteMachineFunc == nil {
		return nil
	}
	return m.DeleteMachineFunc(ctx, id, actorID)
}

func (m *MockMachineService) AppendEvent(ctx context.Context, input services.EventInput, actorID string) (*models.ProductionEvent, error) {
	if m.AppendEventFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.AppendEventFunc(ctx, input, actorID)
}

func (m *MockMachineService) RegisterStop(ctx context.Context, machineID int64, reason string, actorID string) (*models.ProductionEvent, error) {
	if m.RegisterStopFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.RegisterStopFunc(ctx, machineID, reason, actorID)
}

func (m *MockMachineService) History(ctx context.Context, machineID int64, start, end *time.Time) ([]*models.ProductionEvent, error) {
	if m.HistoryFunc == nil {
		return []*models.ProductionEvent{}, nil
	}
	return m.HistoryFunc(ctx, machineID, start, end)
}

func (m *MockMachineService) Status(ctx context.Context, machineID int64) (*models.MachineStatus, error) {
	if m.StatusFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.StatusFunc(ctx, machineID)
}

func (m *MockMachineService) Statuses(ctx context.Context) ([]models.MachineStatus, error) {
	if m.StatusesFunc == nil {
		return nil, nil
	}
	return m.StatusesFunc(ctx)
}

// MockMetricsService implements MetricsServiceInterface for testing
type MockMetricsService struct {
	SummaryFunc    func(ctx context.Context, days int) (*models.Summary, error)
	TimeSeriesFunc func(ctx context.Context, days int) (*models.TimeSeries, error)
}

func (m *MockMetricsService) Summary(ctx context.Context, days int) (*models.Summary, error) {
	if m.SummaryFunc == nil {
		return &models.Summary{StopReasons: map[string]int64{}}, nil
	}
	return m.SummaryFunc(ctx, days)
}

func (m *MockMetricsService) TimeSeries(ctx context.Context, days int) (*models.TimeSeries, error) {
	if m.TimeSeriesFunc == nil {
		return &models.TimeSeries{
			Produced: models.Series{Labels: []string{}, Values: []int64{}},
			Stops:    models.Series{Labels: []string{}, Values: []int64{}},
		}, nil
	}
	return m.TimeSeriesFunc(ctx, days)
}
