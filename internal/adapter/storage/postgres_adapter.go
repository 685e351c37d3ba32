package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS fulfillments (
	id         UUID        PRIMARY KEY,
	order_ref  TEXT        NOT NULL DEFAULT '',
	product    TEXT        NOT NULL,
	quantity   BIGINT      NOT NULL,
	status     TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fulfillments_status ON fulfillments (status);`

type PostgresAdapter struct {
	pool *pgxpool.Pool
}

func NewPostgresAdapter(pool *pgxpool.Pool) *PostgresAdapter {
	return &PostgresAdapter{pool: pool}
}

func (p *PostgresAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create fulfillments table: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) SaveFulfillment(ctx context.Context, f domain.Fulfillment) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO fulfillments (id, order_ref, product, quantity, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		f.ID, f.OrderRef, f.Product, f.Quantity, string(f.Status), f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fulfillment: %w", err)
	}

	return nil
}

func (p *PostgresAdapter) GetFulfillment(ctx context.Context, id string) (*domain.Fulfillment, error) {
	var f domain.Fulfillment
	var status string
	err := p.pool.QueryRow(ctx, `
		SELECT id::text, order_ref, product, quantity, status, created_at, updated_at
		FROM fulfillments WHERE id = $1`, id,
	).Scan(&f.ID, &f.OrderRef, &f.Product, &f.Quantity, &status, &f.CreatedAt, &f.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query fulfillment: %w", err)
	}

	f.Status = domain.FulfillmentStatus(status)
	return &f, nil
}
