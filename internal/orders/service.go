package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Service struct {
	Customers CustomerRepository
	Products  ProductRepository
	Orders    OrderRepository
	Now       func() time.Time // defaults to time.Now
}

// now is truncated to the microsecond precision of timestamptz so a freshly
// created order and the same order read back render identically.
func (s *Service) now() time.Time {
	t := time.Now()
	if s.Now != nil {
		t = s.Now()
	}
	return t.UTC().Truncate(time.Microsecond)
}

// CreateOrder validates the request against current customer and product
// state, prices it and persists order, items and stock deductions. Nothing is
// written until every line has passed validation.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (OrderView, error) {
	customer, err := s.Customers.GetCustomer(ctx, in.CustomerID)
	if err != nil {
		return OrderView{}, fmt.Errorf("load customer %d: %w", in.CustomerID, err)
	}
	if customer == nil {
		return OrderView{}, notFound("customer with id %d not found", in.CustomerID)
	}

	if len(in.Items) == 0 {
		return OrderView{}, invalidInput("order must have at least one item")
	}

	order := &Order{
		CustomerID: customer.ID,
		Customer:   customer,
		OrderDate:  s.now(),
		Items:      make([]OrderItem, 0, len(in.Items)),
	}

	// working copies, so a product repeated across lines sees the running stock
	loaded := make(map[int64]*Product, len(in.Items))
	var touched []int64
	base := decimal.Zero

	for _, line := range in.Items {
		p, ok := loaded[line.ProductID]
		if !ok {
			got, err := s.Products.GetProduct(ctx, line.ProductID)
			if err != nil {
				return OrderView{}, fmt.Errorf("load product %d: %w", line.ProductID, err)
			}
			if got == nil {
				return OrderView{}, notFound("product with id %d not found", line.ProductID)
			}
			cp := *got
			p = &cp
			loaded[line.ProductID] = p
			touched = append(touched, p.ID)
		}

		if line.Quantity <= 0 {
			return OrderView{}, invalidInput("quantity must be greater than zero")
		}
		if p.Stock < line.Quantity {
			return OrderView{}, invalidOperation("not enough stock for product %s. available: %d, requested: %d",
				p.Name, p.Stock, line.Quantity)
		}

		total := LineTotal(p.Price, line.Quantity)
		order.Items = append(order.Items, OrderItem{
			ProductID: p.ID,
			Product:   p,
			Quantity:  line.Quantity,
			UnitPrice: p.Price,
			LineTotal: total,
		})
		base = base.Add(total)
		p.Stock -= line.Quantity
	}

	order.BaseAmount = base
	order.DiscountAmount = Discount(base)
	order.TotalAmount = base.Sub(order.DiscountAmount)

	deductions := make([]StockDeduction, 0, len(touched))
	for _, id := range touched {
		var qty int
		for _, it := range order.Items {
			if it.ProductID == id {
				qty += it.Quantity
			}
		}
		deductions = append(deductions, StockDeduction{ProductID: id, Quantity: qty})
	}

	if err := s.Orders.CreateOrder(ctx, order, deductions); err != nil {
		return OrderView{}, err
	}
	return NewOrderView(order, customer), nil
}

// GetOrder returns found=false, without error, when the order does not exist.
func (s *Service) GetOrder(ctx context.Context, id int64) (OrderView, bool, error) {
	o, err := s.Orders.GetOrder(ctx, id)
	if err != nil {
		return OrderView{}, false, fmt.Errorf("load order %d: %w", id, err)
	}
	if o == nil {
		return OrderView{}, false, nil
	}
	c := o.Customer
	if c == nil {
		if c, err = s.Customers.GetCustomer(ctx, o.CustomerID); err != nil {
			return OrderView{}, false, fmt.Errorf("load customer %d: %w", o.CustomerID, err)
		}
	}
	return NewOrderView(o, c), true, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	ps, err := s.Products.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if ps == nil {
		ps = []Product{}
	}
	return ps, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (Product, bool, error) {
	p, err := s.Products.GetProduct(ctx, id)
	if err != nil {
		return Product{}, false, fmt.Errorf("load product %d: %w", id, err)
	}
	if p == nil {
		return Product{}, false, nil
	}
	return *p, true, nil
}

func (s *Service) AddProduct(ctx context.Context, in NewProduct) (Product, error) {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return Product{}, invalidInput("product name is required")
	case in.Price.IsNegative():
		return Product{}, invalidInput("price must not be negative")
	case !in.Price.Equal(in.Price.Round(2)):
		return Product{}, invalidInput("price must have at most 2 decimal places")
	case in.Stock < 0:
		return Product{}, invalidInput("stock must not be negative")
	}

	p := &Product{Name: name, Price: in.Price, Stock: in.Stock, Description: in.Description}
	if err := s.Products.AddProduct(ctx, p); err != nil {
		return Product{}, fmt.Errorf("add product: %w", err)
	}
	return *p, nil
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (Customer, bool, error) {
	c, err := s.Customers.GetCustomer(ctx, id)
	if err != nil {
		return Customer{}, false, fmt.Errorf("load customer %d: %w", id, err)
	}
	if c == nil {
		return Customer{}, false, nil
	}
	return *c, true, nil
}
