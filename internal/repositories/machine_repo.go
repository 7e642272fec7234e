package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/vectradex/internal/database"
	"github.com/BradenHooton/vectradex/internal/models"
	"github.com/jackc/pgx/v5"
)

// MachineRepository handles database operations for machines
type MachineRepository struct {
	db *database.DB
}

// NewMachineRepository creates a new MachineRepository
func NewMachineRepository(db *database.DB) *MachineRepository {
	return &MachineRepository{db: db}
}

func scanMachineRow(scanner rowScanner) (*models.Machine, error) {
	var m models.Machine
	if err := scanner.Scan(&m.ID, &m.Name, &m.Location); err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &m, nil
}

func (r *MachineRepository) Create(ctx context.Context, machine *models.Machine) (*models.Machine, error) {
	query := `
		INSERT INTO machines (name, location)
		VALUES ($1, $2)
		RETURNING id, name, location
	`
	return scanMachineRow(r.db.Pool.QueryRow(ctx, query, machine.Name, machine.Location))
}

func (r *MachineRepository) GetByID(ctx context.Context, id int64) (*models.Machine, error) {
	query := `SELECT id, name, location FROM machines WHERE id = $1`
	return scanMachineRow(r.db.Pool.QueryRow(ctx, query, id))
}

// List returns all machines ordered by name
func (r *MachineRepository) List(ctx context.Context) ([]*models.Machine, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, name, location FROM machines ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query machines: %w", err)
	}
	defer rows.Close()

	machines := make([]*models.Machine, 0)
	for rows.Next() {
		m, err := scanMachineRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan machine: %w", err)
		}
		machines = append(machines, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating machine rows: %w", err)
	}

	return machines, nil
}

// Delete removes a machine. Machines referenced by production events are
// refused with ErrMachineInUse.
func (r *MachineRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var locked int64
		err := tx.QueryRow(ctx, `SELECT id FROM machines WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if err != nil {
			return database.MapPostgresError(err)
		}

		var hasEvents bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM production_events WHERE machine_id = $1)`, id,
		).Scan(&hasEvents)
		if err != nil {
			return fmt.Errorf("failed to check machine events: %w", err)
		}
		if hasEvents {
			return models.ErrMachineInUse
		}

		if _, err := tx.Exec(ctx, `DELETE FROM machines WHERE id = $1`, id); err != nil {
			return database.MapPostgresError(err)
		}
		return nil
	})
}
