package orders

import "context"

// Lookups return (nil, nil) when the row does not exist.

type CustomerRepository interface {
	GetCustomer(ctx context.Context, id int64) (*Customer, error)
}

type ProductRepository interface {
	GetProduct(ctx context.Context, id int64) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	AddProduct(ctx context.Context, p *Product) error
}

type OrderRepository interface {
	// GetOrder loads the order with its customer and items (products included).
	GetOrder(ctx context.Context, id int64) (*Order, error)

	// CreateOrder inserts the order and its items and applies the stock
	// deductions in one transaction. IDs are written back into order.
	CreateOrder(ctx context.Context, order *Order, deductions []StockDeduction) error
}
