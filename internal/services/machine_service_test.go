package services

import (
	"context"
	"testing"
	"time"

	"github.com/BradenHooton/vectradex/internal/clock"
	"github.com/BradenHooton/vectradex/internal/metrics"
	"github.com/BradenHooton/vectradex/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type machineFixture struct {
	svc      *MachineService
	machines *MockMachineRepository
	events   *MemoryEventRepository
	clock    *clock.Mock
	metrics  *metrics.Metrics
}

func newMachineFixture() *machineFixture {
	registry := map[int64]*models.Machine{
		1: {ID: 1, Name: "Injetora 01"},
		2: {ID: 2, Name: "Prensa 02"},
	}
	machines := &MockMachineRepository{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.Machine, error) {
			if m, ok := registry[id]; ok {
				return m, nil
			}
			return nil, models.ErrNotFound
		},
		ListFunc: func(ctx context.Context) ([]*models.Machine, error) {
			return []*models.Machine{registry[1], registry[2]}, nil
		},
	}
	clk := clock.NewMock(hm(10, 0))
	m := metrics.New()
	events := NewMemoryEventRepository(1, 2)

	return &machineFixture{
		svc:      NewMachineService(machines, events, clk, m, discardAuditLogger(), discardLogger()),
		machines: machines,
		events:   events,
		clock:    clk,
		metrics:  m,
	}
}

func strPtr(s string) *string { return &s }

func TestMachineService_CreateMachine(t *testing.T) {
	f := newMachineFixture()
	var stored *models.Machine
	f.machines.CreateFunc = func(ctx context.Context, m *models.Machine) (*models.Machine, error) {
		stored = m
		m.ID = 3
		return m, nil
	}

	m, err := f.svc.CreateMachine(context.Background(), "  Torno 03 ", strPtr("  "), "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.ID)
	assert.Equal(t, "Torno 03", stored.Name)
	assert.Nil(t, stored.Location)

	_, err = f.svc.CreateMachine(context.Background(), " ", nil, "admin")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestMachineService_DeleteMachineInUse(t *testing.T) {
	f := newMachineFixture()
	f.machines.DeleteFunc = func(ctx context.Context, id int64) error {
		return models.ErrMachineInUse
	}

	assert.ErrorIs(t, f.svc.DeleteMachine(context.Background(), 1, "admin"), models.ErrMachineInUse)
}

func TestMachineService_AppendEventValidation(t *testing.T) {
	f := newMachineFixture()
	start := hm(9, 0)
	before := hm(8, 0)

	tests := []struct {
		name  string
		input EventInput
	}{
		{"unknown status", EventInput{MachineID: 1, StartedAt: start, Status: "idle"}},
		{"missing start", EventInput{MachineID: 1, Status: models.StatusOperating}},
		{"end before start", EventInput{MachineID: 1, StartedAt: start, EndedAt: &before, Status: models.StatusOperating}},
		{"negative quantity", EventInput{MachineID: 1, StartedAt: start, Status: models.StatusOperating, Quantity: -1}},
		{"reason on operating", EventInput{MachineID: 1, StartedAt: start, Status: models.StatusOperating, StopReason: strPtr("setup")}},
		{"unknown reason", EventInput{MachineID: 1, StartedAt: start, Status: models.StatusStopped, StopReason: strPtr("lunch")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AppendEvent(context.Background(), tt.input, "admin")
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}

	all, err := f.events.Query(context.Background(), models.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, all, "rejected input must not be stored")
}

func TestMachineService_AppendEvent(t *testing.T) {
	f := newMachineFixture()
	end := hm(10, 0)

	e, err := f.svc.AppendEvent(context.Background(), EventInput{
		MachineID: 1,
		StartedAt: hm(9, 0),
		EndedAt:   &end,
		Status:    models.StatusOperating,
		Quantity:  50,
	}, "admin")
	require.NoError(t, err)
	assert.NotZero(t, e.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventsAppended.WithLabelValues(models.StatusOperating)))

	_, err = f.svc.AppendEvent(context.Background(), EventInput{MachineID: 99, StartedAt: hm(9, 0), Status: models.StatusOperating}, "admin")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMachineService_RegisterStop(t *testing.T) {
	f := newMachineFixture()

	e, err := f.svc.RegisterStop(context.Background(), 2, "falha_eletrica", "op")
	require.NoError(t, err)
	assert.Equal(t, models.StatusStopped, e.Status)
	assert.Equal(t, models.StopReasonElectricalFault, *e.StopReason)
	assert.Equal(t, hm(10, 0), e.StartedAt)
	assert.True(t, e.IsOpen())
	assert.Zero(t, e.Quantity)

	_, err = f.svc.RegisterStop(context.Background(), 2, "", "op")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestMachineService_HistoryIncludesOpenEventsAndIsNewestFirst(t *testing.T) {
	f := newMachineFixture()
	f.events.Seed(
		NewTestRun(1, 1, hm(7, 0), hm(8, 0), 10),
		NewTestRun(2, 1, hm(8, 0), hm(11, 0), 10),
		NewTestStop(3, 1, hm(9, 0), models.StopReasonSetup),
		NewTestStop(4, 2, hm(9, 30), models.StopReasonSetup),
	)
	end := hm(9, 45)

	events, err := f.svc.History(context.Background(), 1, nil, &end)
	require.NoError(t, err)

	ids := make([]int64, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []int64{3, 1}, ids)

	_, err = f.svc.History(context.Background(), 99, nil, nil)
	assert.ErrorIs(t, err, models.ErrNotFound)

	start := hm(10, 0)
	_, err = f.svc.History(context.Background(), 1, &start, &end)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestMachineService_Statuses(t *testing.T) {
	f := newMachineFixture()
	f.events.Seed(
		NewTestRun(1, 1, hm(8, 0), hm(9, 0), 10),
		NewTestStop(2, 1, hm(9, 0), models.StopReasonQuality),
	)

	statuses, err := f.svc.Statuses(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	assert.Equal(t, models.StatusStopped, statuses[0].Status)
	assert.Equal(t, "qualidade", *statuses[0].StopReason)
	assert.Equal(t, models.StatusUnknown, statuses[1].Status)
	assert.Zero(t, statuses[1].LastQuantity)

	single, err := f.svc.Status(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, statuses[0], *single)
}

func TestMachineService_StatusFollowsNewestEvent(t *testing.T) {
	f := newMachineFixture()
	ctx := context.Background()

	_, err := f.svc.RegisterStop(ctx, 1, "setup", "op")
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	end := f.clock.Now().Add(time.Hour)
	_, err = f.svc.AppendEvent(ctx, EventInput{
		MachineID: 1, StartedAt: f.clock.Now(), EndedAt: &end, Status: models.StatusOperating, Quantity: 12,
	}, "admin")
	require.NoError(t, err)

	s, err := f.svc.Status(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOperating, s.Status)
	assert.Equal(t, int64(12), s.LastQuantity)
	assert.Nil(t, s.StopReason)
}
