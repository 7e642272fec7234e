package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/vectradex/internal/database"
)

// ProductRepository exposes the read-only catalog queries the dashboard needs
type ProductRepository struct {
	db *database.DB
}

func NewProductRepository(db *database.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// TotalStock sums the on-hand quantity of every product, 0 for an empty catalog
func (r *ProductRepository) TotalStock(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.Pool.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0)::BIGINT FROM products`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum product stock: %w", err)
	}
	return total, nil
}
