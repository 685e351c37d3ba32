package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS fulfillments (
	id         VARCHAR(36)  NOT NULL PRIMARY KEY,
	order_ref  VARCHAR(128) NOT NULL DEFAULT '',
	product    VARCHAR(255) NOT NULL,
	quantity   BIGINT       NOT NULL,
	status     VARCHAR(16)  NOT NULL,
	created_at DATETIME(6)  NOT NULL,
	updated_at DATETIME(6)  NOT NULL,
	INDEX idx_fulfillments_status (status)
)`

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, mysqlSchema); err != nil {
		return fmt.Errorf("create fulfillments table: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) SaveFulfillment(ctx context.Context, f domain.Fulfillment) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO fulfillments (id, order_ref, product, quantity, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE status = VALUES(status), updated_at = VALUES(updated_at)`,
		f.ID, f.OrderRef, f.Product, f.Quantity, f.Status, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fulfillment: %w", err)
	}

	return nil
}

func (m *MySQLAdapter) GetFulfillment(ctx context.Context, id string) (*domain.Fulfillment, error) {
	var f domain.Fulfillment
	err := m.db.QueryRowContext(ctx, `
		SELECT id, order_ref, product, quantity, status, created_at, updated_at
		FROM fulfillments WHERE id = ?`, id,
	).Scan(&f.ID, &f.OrderRef, &f.Product, &f.Quantity, &f.Status, &f.CreatedAt, &f.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query fulfillment: %w", err)
	}

	return &f, nil
}
