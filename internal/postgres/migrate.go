package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id    BIGSERIAL PRIMARY KEY,
		name  TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		price       NUMERIC(12,2) NOT NULL,
		stock       INTEGER NOT NULL DEFAULT 0,
		description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id              BIGSERIAL PRIMARY KEY,
		customer_id     BIGINT NOT NULL REFERENCES customers(id),
		order_date      TIMESTAMPTZ NOT NULL,
		base_amount     NUMERIC(14,4) NOT NULL,
		discount_amount NUMERIC(14,4) NOT NULL,
		total_amount    NUMERIC(14,4) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id         BIGSERIAL PRIMARY KEY,
		order_id   BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(id),
		quantity   INTEGER NOT NULL CHECK (quantity > 0),
		unit_price NUMERIC(12,2) NOT NULL,
		line_total NUMERIC(14,4) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id)`,
}

// Migrate creates the schema if missing. Safe to run on every start.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

type seedProduct struct {
	id          int64
	name        string
	price       string
	stock       int
	description string
}

type seedCustomer struct {
	id          int64
	name, email string
}

var (
	sampleProducts = []seedProduct{
		{1, "Laptop", "60000", 20, "High performance laptop"},
		{2, "Smartphone", "25000", 50, "Latest smartphone"},
		{3, "Wireless Mouse", "1500", 100, "Ergonomic wireless mouse"},
	}
	sampleCustomers = []seedCustomer{
		{1, "Intakhab Alam", "intakhab@example.com"},
		{2, "Sneha Das", "sneha@example.com"},
	}
)

// Seed inserts the demo catalog and customers. Existing rows are left alone.
func Seed(ctx context.Context, db *pgxpool.Pool) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, p := range sampleProducts {
		if _, err := tx.Exec(ctx, `
			INSERT INTO products(id, name, price, stock, description)
			VALUES ($1, $2, $3::numeric, $4, $5)
			ON CONFLICT (id) DO NOTHING`,
			p.id, p.name, p.price, p.stock, p.description); err != nil {
			return fmt.Errorf("seed product %d: %w", p.id, err)
		}
	}
	for _, c := range sampleCustomers {
		if _, err := tx.Exec(ctx, `
			INSERT INTO customers(id, name, email)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING`,
			c.id, c.name, c.email); err != nil {
			return fmt.Errorf("seed customer %d: %w", c.id, err)
		}
	}

	// explicit ids bypass the sequences; move them past the seeded rows
	for _, table := range []string{"products", "customers"} {
		if _, err := tx.Exec(ctx, fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), GREATEST((SELECT COALESCE(MAX(id), 1) FROM %[1]s), 1))`,
			table)); err != nil {
			return fmt.Errorf("reset %s sequence: %w", table, err)
		}
	}
	return tx.Commit(ctx)
}
