package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/vectradex/internal/database"
	"github.com/BradenHooton/vectradex/internal/models"
	"github.com/jackc/pgx/v5"
)

const eventColumns = `id, machine_id, started_at, ended_at, status, stop_reason, quantity`

// EventRepository is the append-only store of production events
type EventRepository struct {
	db *database.DB
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func scanEventRow(scanner rowScanner) (*models.ProductionEvent, error) {
	var e models.ProductionEvent
	var endedAt *time.Time
	var reason *string

	err := scanner.Scan(&e.ID, &e.MachineID, &e.StartedAt, &endedAt, &e.Status, &reason, &e.Quantity)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	e.StartedAt = e.StartedAt.UTC()
	if endedAt != nil {
		utc := endedAt.UTC()
		e.EndedAt = &utc
	}
	if reason != nil {
		r := models.StopReason(*reason)
		e.StopReason = &r
	}

	return &e, nil
}

func scanEventRows(rows pgx.Rows) ([]*models.ProductionEvent, error) {
	defer rows.Close()

	events := make([]*models.ProductionEvent, 0)
	for rows.Next() {
		e, err := scanEventRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return events, nil
}

// Append stores a new event in a transaction that first confirms the machine exists
func (r *EventRepository) Append(ctx context.Context, event *models.ProductionEvent) (*models.ProductionEvent, error) {
	var stored *models.ProductionEvent

	var reason *string
	if event.StopReason != nil {
		s := string(*event.StopReason)
		reason = &s
	}

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var machineID int64
		err := tx.QueryRow(ctx, `SELECT id FROM machines WHERE id = $1 FOR KEY SHARE`, event.MachineID).Scan(&machineID)
		if err != nil {
			return database.MapPostgresError(err)
		}

		query := `
			INSERT INTO production_events (machine_id, started_at, ended_at, status, stop_reason, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING ` + eventColumns

		stored, err = scanEventRow(tx.QueryRow(ctx, query,
			event.MachineID, event.StartedAt, event.EndedAt, event.Status, reason, event.Quantity,
		))
		return err
	})
	if err != nil {
		return nil, err
	}

	return stored, nil
}

// Latest returns the most recent event of a machine, or nil when it has none.
// Ties on started_at go to the highest id.
func (r *EventRepository) Latest(ctx context.Context, machineID int64) (*models.ProductionEvent, error) {
	query := `
		SELECT ` + eventColumns + ` FROM production_events
		WHERE machine_id = $1
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`

	event, err := scanEventRow(r.db.Pool.QueryRow(ctx, query, machineID))
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

// LatestPerMachine returns the most recent event of every machine that has one
func (r *EventRepository) LatestPerMachine(ctx context.Context) (map[int64]*models.ProductionEvent, error) {
	query := `
		SELECT DISTINCT ON (machine_id) ` + eventColumns + `
		FROM production_events
		ORDER BY machine_id, started_at DESC, id DESC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest events: %w", err)
	}

	events, err := scanEventRows(rows)
	if err != nil {
		return nil, err
	}

	latest := make(map[int64]*models.ProductionEvent, len(events))
	for _, e := range events {
		latest[e.MachineID] = e
	}
	return latest, nil
}

// Query returns the events matching filter
func (r *EventRepository) Query(ctx context.Context, filter models.EventFilter) ([]*models.ProductionEvent, error) {
	query, args := buildEventQuery(filter)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	return scanEventRows(rows)
}

// buildEventQuery renders filter as SQL. Open events always pass the End bound.
func buildEventQuery(filter models.EventFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.MachineID != nil {
		add("machine_id = $%d", *filter.MachineID)
	}
	if filter.Start != nil {
		add("started_at >= $%d", *filter.Start)
	}
	if filter.StartedBefore != nil {
		add("started_at <= $%d", *filter.StartedBefore)
	}
	if filter.End != nil {
		add("(ended_at IS NULL OR ended_at <= $%d)", *filter.End)
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + eventColumns + " FROM production_events")
	if len(conditions) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}

	if filter.Order == models.SortDescending {
		sb.WriteString(" ORDER BY started_at DESC, id DESC")
	} else {
		sb.WriteString(" ORDER BY started_at ASC, id ASC")
	}

	return sb.String(), args
}
