package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/vectradex/internal/clock"
	"github.com/BradenHooton/vectradex/internal/metrics"
	"github.com/BradenHooton/vectradex/internal/models"
	pkglogger "github.com/BradenHooton/vectradex/pkg/logger"
)

// MachineRepository defines the machine registry operations
type MachineRepository interface {
	Create(ctx context.Context, machine *models.Machine) (*models.Machine, error)
	GetByID(ctx context.Context, id int64) (*models.Machine, error)
	List(ctx context.Context) ([]*models.Machine, error)
	Delete(ctx context.Context, id int64) error
}

// EventRepository defines the append-only production event log
type EventRepository interface {
	Append(ctx context.Context, event *models.ProductionEvent) (*models.ProductionEvent, error)
	Latest(ctx context.Context, machineID int64) (*models.ProductionEvent, error)
	LatestPerMachine(ctx context.Context) (map[int64]*models.ProductionEvent, error)
	Query(ctx context.Context, filter models.EventFilter) ([]*models.ProductionEvent, error)
}

// EventInput carries the caller supplied fields of an explicitly created event
type EventInput struct {
	MachineID  int64
	StartedAt  time.Time
	EndedAt    *time.Time
	Status     string
	StopReason *string
	Quantity   int64
}

// MachineService owns the machine registry and its event log
type MachineService struct {
	machines    MachineRepository
	events      EventRepository
	clock       clock.Clock
	metrics     *metrics.Metrics
	auditLogger *pkglogger.AuditLogger
	logger      *slog.Logger
}

func NewMachineService(machines MachineRepository, events EventRepository, clk clock.Clock, m *metrics.Metrics, auditLogger *pkglogger.AuditLogger, logger *slog.Logger) *MachineService {
	return &MachineService{
		machines:    machines,
		events:      events,
		clock:       clk,
		metrics:     m,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// CreateMachine registers a machine. Names are unique.
func (s *MachineService) CreateMachine(ctx context.Context, name string, location *string, actorID string) (*models.Machine, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", models.ErrValidation)
	}
	if location != nil {
		trimmed := strings.TrimSpace(*location)
		location = &trimmed
		if trimmed == "" {
			location = nil
		}
	}

	machine, err := s.machines.Create(ctx, &models.Machine{Name: name, Location: location})
	if err != nil {
		if !errors.Is(err, models.ErrConflict) {
			s.logger.Error("failed to create machine", slog.Any("error", err))
		}
		return nil, err
	}

	s.auditLogger.LogMachineAction("machine_created", actorID, machine.ID, map[string]string{"name": machine.Name})
	return machine, nil
}

func (s *MachineService) ListMachines(ctx context.Context) ([]*models.Machine, error) {
	machines, err := s.machines.List(ctx)
	if err != nil {
		s.logger.Error("failed to list machines", slog.Any("error", err))
		return nil, err
	}
	return machines, nil
}

// DeleteMachine removes a machine without events. Machines with history are refused with ErrMachineInUse.
func (s *MachineService) DeleteMachine(ctx context.Context, id int64, actorID string) error {
	if err := s.machines.Delete(ctx, id); err != nil {
		if !errors.Is(err, models.ErrNotFound) && !errors.Is(err, models.ErrMachineInUse) {
			s.logger.Error("failed to delete machine", slog.Int64("machine_id", id), slog.Any("error", err))
		}
		return err
	}

	s.auditLogger.LogMachineAction("machine_deleted", actorID, id, nil)
	return nil
}

// AppendEvent validates and stores an explicitly created event
func (s *MachineService) AppendEvent(ctx context.Context, input EventInput, actorID string) (*models.ProductionEvent, error) {
	event, err := buildEvent(input)
	if err != nil {
		return nil, err
	}
	return s.append(ctx, event, "event_created", actorID)
}

// RegisterStop opens a stopped event at the current time with zero quantity
func (s *MachineService) RegisterStop(ctx context.Context, machineID int64, reason string, actorID string) (*models.ProductionEvent, error) {
	stopReason, err := parseStopReason(reason)
	if err != nil {
		return nil, err
	}

	event := &models.ProductionEvent{
		MachineID:  machineID,
		StartedAt:  s.clock.Now(),
		Status:     models.StatusStopped,
		StopReason: &stopReason,
	}
	return s.append(ctx, event, "stop_registered", actorID)
}

func (s *MachineService) append(ctx context.Context, event *models.ProductionEvent, auditType, actorID string) (*models.ProductionEvent, error) {
	stored, err := s.events.Append(ctx, event)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) && !errors.Is(err, models.ErrValidation) {
			s.logger.Error("failed to append production event",
				slog.Int64("machine_id", event.MachineID),
				slog.Any("error", err))
		}
		return nil, err
	}

	s.metrics.EventsAppended.WithLabelValues(stored.Status).Inc()

	metadata := map[string]string{
		"event_id": strconv.FormatInt(stored.ID, 10),
		"status":   stored.Status,
	}
	if stored.StopReason != nil {
		metadata["reason"] = string(*stored.StopReason)
	}
	s.auditLogger.LogMachineAction(auditType, actorID, stored.MachineID, metadata)

	return stored, nil
}

// History returns the events of one machine newest first. start keeps events
// started at or after it; end keeps open events and events ended at or before it.
func (s *MachineService) History(ctx context.Context, machineID int64, start, end *time.Time) ([]*models.ProductionEvent, error) {
	if start != nil && end != nil && end.Before(*start) {
		return nil, fmt.Errorf("%w: end must not be before start", models.ErrValidation)
	}

	if _, err := s.machines.GetByID(ctx, machineID); err != nil {
		return nil, err
	}

	events, err := s.events.Query(ctx, models.EventFilter{
		MachineID: &machineID,
		Start:     start,
		End:       end,
		Order:     models.SortDescending,
	})
	if err != nil {
		s.logger.Error("failed to query machine history", slog.Int64("machine_id", machineID), slog.Any("error", err))
		return nil, err
	}
	return events, nil
}

// Status derives the snapshot of a single machine
func (s *MachineService) Status(ctx context.Context, machineID int64) (*models.MachineStatus, error) {
	machine, err := s.machines.GetByID(ctx, machineID)
	if err != nil {
		return nil, err
	}

	latest, err := s.events.Latest(ctx, machineID)
	if err != nil {
		s.logger.Error("failed to read latest event", slog.Int64("machine_id", machineID), slog.Any("error", err))
		return nil, err
	}

	status := DeriveStatus(machine, latest)
	return &status, nil
}

// Statuses derives the snapshot of every machine, ordered by machine name
func (s *MachineService) Statuses(ctx context.Context) ([]models.MachineStatus, error) {
	machines, err := s.ListMachines(ctx)
	if err != nil {
		return nil, err
	}

	latest, err := s.events.LatestPerMachine(ctx)
	if err != nil {
		s.logger.Error("failed to read latest events", slog.Any("error", err))
		return nil, err
	}

	statuses := make([]models.MachineStatus, 0, len(machines))
	for _, m := range machines {
		statuses = append(statuses, DeriveStatus(m, latest[m.ID]))
	}
	return statuses, nil
}

func buildEvent(input EventInput) (*models.ProductionEvent, error) {
	if input.Status != models.StatusOperating && input.Status != models.StatusStopped {
		return nil, fmt.Errorf("%w: status must be %q or %q", models.ErrValidation, models.StatusOperating, models.StatusStopped)
	}
	if input.StartedAt.IsZero() {
		return nil, fmt.Errorf("%w: started_at is required", models.ErrValidation)
	}
	if input.EndedAt != nil && input.EndedAt.Before(input.StartedAt) {
		return nil, fmt.Errorf("%w: ended_at must not be before started_at", models.ErrValidation)
	}
	if input.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", models.ErrValidation)
	}

	event := &models.ProductionEvent{
		MachineID: input.MachineID,
		StartedAt: input.StartedAt.UTC(),
		Status:    input.Status,
		Quantity:  input.Quantity,
	}
	if input.EndedAt != nil {
		ended := input.EndedAt.UTC()
		event.EndedAt = &ended
	}

	if input.StopReason != nil && *input.StopReason != "" {
		if input.Status != models.StatusStopped {
			return nil, fmt.Errorf("%w: stop_reason is only allowed for stopped events", models.ErrValidation)
		}
		reason, err := parseStopReason(*input.StopReason)
		if err != nil {
			return nil, err
		}
		event.StopReason = &reason
	}

	return event, nil
}

func parseStopReason(raw string) (models.StopReason, error) {
	reason := models.StopReason(strings.TrimSpace(raw))
	if !reason.Valid() {
		return "", fmt.Errorf("%w: unknown stop reason %q", models.ErrValidation, raw)
	}
	return reason, nil
}
