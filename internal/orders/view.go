package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderView struct {
	OrderID       int64           `json:"order_id"`
	CustomerID    int64           `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	OrderDate     time.Time       `json:"order_date"`
	BaseAmount    decimal.Decimal `json:"base_amount"`
	Discount      decimal.Decimal `json:"discount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Items         []OrderItemView `json:"items"`
}

type OrderItemView struct {
	OrderItemID int64           `json:"order_item_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// NewOrderView maps an order to its response shape. A nil customer or
// product leaves the corresponding names empty.
func NewOrderView(o *Order, c *Customer) OrderView {
	v := OrderView{
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		OrderDate:   o.OrderDate,
		BaseAmount:  o.BaseAmount,
		Discount:    o.DiscountAmount,
		TotalAmount: o.TotalAmount,
		Items:       make([]OrderItemView, 0, len(o.Items)),
	}
	if c != nil {
		v.CustomerName = c.Name
		v.CustomerEmail = c.Email
	}
	for _, it := range o.Items {
		iv := OrderItemView{
			OrderItemID: it.ID,
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		}
		if it.Product != nil {
			iv.ProductName = it.Product.Name
			iv.Description = it.Product.Description
		}
		v.Items = append(v.Items, iv)
	}
	return v
}
