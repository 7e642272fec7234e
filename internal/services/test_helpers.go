package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/vectradex/internal/models"
	pkgauth "github.com/BradenHooton/vectradex/pkg/auth"
	pkglogger "github.com/BradenHooton/vectradex/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc        func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*models.User, error)
	CreateFunc         func(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePasswordFunc func(ctx context.Context, id, passwordHash string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

// MockMachineRepository implements MachineRepository for testing
type MockMachineRepository struct {
	CreateFunc  func(ctx context.Context, machine *models.Machine) (*models.Machine, error)
	GetByIDFunc func(ctx context.Context, id int64) (*models.Machine, error)
	ListFunc    func(ctx context.Context) ([]*models.Machine, error)
	DeleteFunc  func(ctx context.Context, id int64) error
}

func (m *MockMachineRepository) Create(ctx context.Context, machine *models.Machine) (*models.Machine, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, machine)
	}
	return nil, models.ErrInternalServer
}

func (m *MockMachineRepository) GetByID(ctx context.Context, id int64) (*models.Machine, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockMachineRepository) List(ctx context.Context) ([]*models.Machine, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*models.Machine{}, nil
}

func (m *MockMachineRepository) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MemoryEventRepository is an in-memory EventRepository applying the same filter
// semantics as the PostgreSQL implementation
type MemoryEventRepository struct {
	mu       sync.Mutex
	nextID   int64
	events   []*models.ProductionEvent
	machines map[int64]bool

	QueryErr error
}

func NewMemoryEventRepository(machineIDs ...int64) *MemoryEventRepository {
	repo := &MemoryEventRepository{machines: make(map[int64]bool)}
	for _, id := range machineIDs {
		repo.machines[id] = true
	}
	return repo
}

func (r *MemoryEventRepository) Append(ctx context.Context, event *models.ProductionEvent) (*models.ProductionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.machines[event.MachineID] {
		return nil, models.ErrNotFound
	}
	r.nextID++
	stored := *event
	stored.ID = r.nextID
	r.events = append(r.events, &stored)
	return &stored, nil
}

// Seed stores events as given, keeping their ids
func (r *MemoryEventRepository) Seed(events ...*models.ProductionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range events {
		r.machines[e.MachineID] = true
		if e.ID > r.nextID {
			r.nextID = e.ID
		}
		r.events = append(r.events, e)
	}
}

func (r *MemoryEventRepository) Latest(ctx context.Context, machineID int64) (*models.ProductionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var own []*models.ProductionEvent
	for _, e := range r.events {
		if e.MachineID == machineID {
			own = append(own, e)
		}
	}
	return LatestOf(own), nil
}

func (r *MemoryEventRepository) LatestPerMachine(ctx context.Context) (map[int64]*models.ProductionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byMachine := make(map[int64][]*models.ProductionEvent)
	for _, e := range r.events {
		byMachine[e.MachineID] = append(byMachine[e.MachineID], e)
	}
	latest := make(map[int64]*models.ProductionEvent, len(byMachine))
	for id, events := range byMachine {
		latest[id] = LatestOf(events)
	}
	return latest, nil
}

func (r *MemoryEventRepository) Query(ctx context.Context, filter models.EventFilter) ([]*models.ProductionEvent, error) {
	if r.QueryErr != nil {
		return nil, r.QueryErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*models.ProductionEvent, 0)
	for _, e := range r.events {
		if filter.MachineID != nil && e.MachineID != *filter.MachineID {
			continue
		}
		if filter.Start != nil && e.StartedAt.Before(*filter.Start) {
			continue
		}
		if filter.StartedBefore != nil && e.StartedAt.After(*filter.StartedBefore) {
			continue
		}
		if filter.End != nil && e.EndedAt != nil && e.EndedAt.After(*filter.End) {
			continue
		}
		result = append(result, e)
	}

	less := func(a, b *models.ProductionEvent) bool {
		if a.StartedAt.Equal(b.StartedAt) {
			return a.ID < b.ID
		}
		return a.StartedAt.Before(b.StartedAt)
	}
	for i := 1; i < len(result); i++ {
		for j := i; j > 0; j-- {
			swap := less(result[j], result[j-1])
			if filter.Order == models.SortDescending {
				swap = less(result[j-1], result[j])
			}
			if !swap {
				break
			}
			result[j], result[j-1] = result[j-1], result[j]
		}
	}
	return result, nil
}

// MockProductRepository implements ProductRepository for testing
type MockProductRepository struct {
	Total int64
	Err   error
}

func (m *MockProductRepository) TotalStock(ctx context.Context) (int64, error) {
	return m.Total, m.Err
}

// PlainHasher stores passwords with a prefix so tests avoid bcrypt cost
type PlainHasher struct{}

func (PlainHasher) Hash(password string) (string, error) {
	return "plain:" + password, nil
}

func (PlainHasher) Verify(password, hash string) error {
	if hash != "plain:"+password {
		return pkgauth.ErrNoMatch
	}
	return nil
}

// RecordingMailer captures reset tokens
type RecordingMailer struct {
	mu     sync.Mutex
	Sent   []SentReset
	SendFn func(ctx context.Context, email, token string, expiresAt time.Time) error
}

type SentReset struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}

func (m *RecordingMailer) SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	if m.SendFn != nil {
		return m.SendFn(ctx, email, token, expiresAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentReset{Email: email, Token: token, ExpiresAt: expiresAt})
	return nil
}

// MockSESClient implements SESAPI for testing
type MockSESClient struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESClient) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func discardAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(discardLogger())
}

// NewTestUser creates a user whose password hashes with PlainHasher
func NewTestUser(id, email, password, role string) *models.User {
	return &models.User{
		ID:           id,
		Name:         "Test User",
		Email:        email,
		PasswordHash: "plain:" + password,
		Role:         role,
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// NewTestRun creates a closed operating event
func NewTestRun(id, machineID int64, start, end time.Time, qty int64) *models.ProductionEvent {
	return &models.ProductionEvent{
		ID:        id,
		MachineID: machineID,
		StartedAt: start,
		EndedAt:   &end,
		Status:    models.StatusOperating,
		Quantity:  qty,
	}
}

// NewTestStop creates an open stopped event
func NewTestStop(id, machineID int64, start time.Time, reason models.StopReason) *models.ProductionEvent {
	return &models.ProductionEvent{
		ID:         id,
		MachineID:  machineID,
		StartedAt:  start,
		Status:     models.StatusStopped,
		StopReason: &reason,
	}
}
