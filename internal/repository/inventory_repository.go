package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wadieregaieg/waadiefr/internal/domain"

	"github.com/google/uuid"
)

// InventoryRepository is the append-only stock ledger. There is no
// update or delete path on purpose.
type InventoryRepository interface {
	Append(ctx context.Context, log *domain.InventoryLog) error
	ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]*domain.InventoryLog, error)
}

type inventoryRepository struct {
	db DBTX
}

// NewInventoryRepository creates a new instance of InventoryRepository
func NewInventoryRepository(db DBTX) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) Append(ctx context.Context, log *domain.InventoryLog) error {
	query := `
		INSERT INTO inventory_logs (id, product_id, change, reason, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.ID, log.ProductID, log.Change, log.Reason, log.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append inventory log: %w", err)
	}
	return nil
}

func (r *inventoryRepository) ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]*domain.InventoryLog, error) {
	query := `
		SELECT id, product_id, change, reason, timestamp
		FROM inventory_logs
		WHERE product_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory logs: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

func (r *inventoryRepository) scanAll(rows *sql.Rows) ([]*domain.InventoryLog, error) {
	logs := []*domain.InventoryLog{}
	for rows.Next() {
		log := &domain.InventoryLog{}
		if err := rows.Scan(&log.ID, &log.ProductID, &log.Change, &log.Reason, &log.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan inventory log: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory logs: %w", err)
	}
	return logs, nil
}
