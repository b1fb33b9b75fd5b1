package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepo struct{ DB *pgxpool.Pool }

// CreateOrder: stock deductions, order row and item rows in one tx.
// Deductions are conditional (stock >= qty) so a concurrent order that drained
// the product first makes this one fail instead of driving stock negative.
func (r *OrderRepo) CreateOrder(ctx context.Context, o *Order, deductions []StockDeduction) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, d := range deductions {
		ct, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
			d.ProductID, d.Quantity)
		if err != nil {
			return fmt.Errorf("deduct stock for product %d: %w", d.ProductID, err)
		}
		if ct.RowsAffected() != 1 {
			return invalidOperation("stock for product %d changed while the order was being placed", d.ProductID)
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders(customer_id, order_date, base_amount, discount_amount, total_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		o.CustomerID, o.OrderDate, o.BaseAmount, o.DiscountAmount, o.TotalAmount,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items(order_id, product_id, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			o.ID, it.ProductID, it.Quantity, it.UnitPrice, it.LineTotal,
		).Scan(&it.ID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

func (r *OrderRepo) GetOrder(ctx context.Context, id int64) (*Order, error) {
	var (
		o Order
		c Customer
	)
	err := r.DB.QueryRow(ctx, `
		SELECT o.id, o.customer_id, o.order_date,
		       o.base_amount::text, o.discount_amount::text, o.total_amount::text,
		       c.id, c.name, c.email
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.id = $1`, id,
	).Scan(&o.ID, &o.CustomerID, &o.OrderDate,
		&o.BaseAmount, &o.DiscountAmount, &o.TotalAmount,
		&c.ID, &c.Name, &c.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	o.OrderDate = o.OrderDate.UTC()
	o.Customer = &c

	rows, err := r.DB.Query(ctx, `
		SELECT i.id, i.order_id, i.product_id, i.quantity, i.unit_price::text, i.line_total::text,
		       p.id, p.name, p.price::text, p.stock, COALESCE(p.description, '')
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1
		ORDER BY i.id`, id)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it OrderItem
			p  Product
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.LineTotal,
			&p.ID, &p.Name, &p.Price, &p.Stock, &p.Description); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		it.Product = &p
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}
