//go:build integration

package repositories

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/BradenHooton/vectradex/internal/database"
	"github.com/BradenHooton/vectradex/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
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

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	db := database.New(pool, logger)
	require.NoError(t, db.Migrate(ctx))

	return db
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrReason(r models.StopReason) *models.StopReason { return &r }

func TestRepositories_Integration(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	machines := NewMachineRepository(db)
	events := NewEventRepository(db)
	products := NewProductRepository(db)
	users := NewUserRepository(db)

	line := "Linha A"
	m, err := machines.Create(ctx, &models.Machine{Name: "Injetora 01", Location: &line})
	require.NoError(t, err)
	require.NotZero(t, m.ID)

	_, err = machines.Create(ctx, &models.Machine{Name: "Injetora 01"})
	assert.ErrorIs(t, err, models.ErrConflict)

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("latest is nil without events", func(t *testing.T) {
		latest, err := events.Latest(ctx, m.ID)
		require.NoError(t, err)
		assert.Nil(t, latest)
	})

	t.Run("append to unknown machine", func(t *testing.T) {
		_, err := events.Append(ctx, &models.ProductionEvent{
			MachineID: 9999, StartedAt: base, Status: models.StatusOperating,
		})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	closed, err := events.Append(ctx, &models.ProductionEvent{
		MachineID: m.ID,
		StartedAt: base,
		EndedAt:   ptrTime(base.Add(time.Hour)),
		Status:    models.StatusOperating,
		Quantity:  50,
	})
	require.NoError(t, err)

	open, err := events.Append(ctx, &models.ProductionEvent{
		MachineID:  m.ID,
		StartedAt:  base.Add(time.Hour),
		Status:     models.StatusStopped,
		StopReason: ptrReason(models.StopReasonMaintenance),
	})
	require.NoError(t, err)
	assert.Greater(t, open.ID, closed.ID)
	assert.Nil(t, open.EndedAt)

	t.Run("open events pass the end filter", func(t *testing.T) {
		end := base.Add(30 * time.Minute)
		got, err := events.Query(ctx, models.EventFilter{MachineID: &m.ID, End: &end})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, open.ID, got[0].ID)
	})

	t.Run("history is newest first", func(t *testing.T) {
		got, err := events.Query(ctx, models.EventFilter{MachineID: &m.ID, Order: models.SortDescending})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, open.ID, got[0].ID)
		assert.Equal(t, models.StopReasonMaintenance, *got[0].StopReason)
	})

	t.Run("latest tie goes to the highest id", func(t *testing.T) {
		tie, err := events.Append(ctx, &models.ProductionEvent{
			MachineID: m.ID, StartedAt: base.Add(time.Hour), Status: models.StatusOperating,
		})
		require.NoError(t, err)

		latest, err := events.Latest(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, tie.ID, latest.ID)

		all, err := events.LatestPerMachine(ctx)
		require.NoError(t, err)
		assert.Equal(t, tie.ID, all[m.ID].ID)
	})

	t.Run("invariants enforced by schema", func(t *testing.T) {
		_, err := events.Append(ctx, &models.ProductionEvent{
			MachineID: m.ID,
			StartedAt: base,
			EndedAt:   ptrTime(base.Add(-time.Minute)),
			Status:    models.StatusOperating,
		})
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("delete refused while events exist", func(t *testing.T) {
		assert.ErrorIs(t, machines.Delete(ctx, m.ID), models.ErrMachineInUse)

		empty, err := machines.Create(ctx, &models.Machine{Name: "Prensa 02"})
		require.NoError(t, err)
		require.NoError(t, machines.Delete(ctx, empty.ID))
		assert.ErrorIs(t, machines.Delete(ctx, empty.ID), models.ErrNotFound)
	})

	t.Run("total stock of empty catalog is zero", func(t *testing.T) {
		total, err := products.TotalStock(ctx)
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("users round trip", func(t *testing.T) {
		u, err := users.Create(ctx, &models.User{Name: "Admin", Email: "admin@empresa.com.br", PasswordHash: "hash"})
		require.NoError(t, err)
		assert.Equal(t, models.RoleOperator, u.Role)

		require.NoError(t, users.UpdatePassword(ctx, u.ID, "new-hash"))
		got, err := users.GetByEmail(ctx, "admin@empresa.com.br")
		require.NoError(t, err)
		assert.Equal(t, "new-hash", got.PasswordHash)
	})
}
