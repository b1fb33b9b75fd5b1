package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Description string          `json:"description"`
}

type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Order struct {
	ID             int64
	CustomerID     int64
	Customer       *Customer
	OrderDate      time.Time // UTC
	BaseAmount     decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
	Items          []OrderItem
}

type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Product   *Product // name/description for views
	Quantity  int
	UnitPrice decimal.Decimal // price at order time
	LineTotal decimal.Decimal
}

// StockDeduction is applied to products when an order is committed.
type StockDeduction struct {
	ProductID int64
	Quantity  int
}

type LineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type CreateOrderInput struct {
	CustomerID int64         `json:"customer_id"`
	Items      []LineRequest `json:"items"`
}

type NewProduct struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Description string          `json:"description"`
}
