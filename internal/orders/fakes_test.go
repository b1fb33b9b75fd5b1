package orders

import (
	"context"
	"sync"
)

// memStore implements every repository port in memory.
type memStore struct {
	mu        sync.Mutex
	customers map[int64]Customer
	products  map[int64]Product
	orders    map[int64]Order

	nextOrderID int64
	nextItemID  int64
	nextProdID  int64

	createCalls int
	addCalls    int
	failWith    error // returned by every call when set
}

func newMemStore() *memStore {
	return &memStore{
		customers:  map[int64]Customer{},
		products:   map[int64]Product{},
		orders:     map[int64]Order{},
		nextProdID: 1000,
	}
}

func (m *memStore) GetCustomer(_ context.Context, id int64) (*Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	c, ok := m.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memStore) GetProduct(_ context.Context, id int64) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memStore) ListProducts(_ context.Context) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []Product
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) AddProduct(_ context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addCalls++
	if m.failWith != nil {
		return m.failWith
	}
	m.nextProdID++
	p.ID = m.nextProdID
	m.products[p.ID] = *p
	return nil
}

func (m *memStore) GetOrder(_ context.Context, id int64) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	items := make([]OrderItem, len(o.Items))
	for i, it := range o.Items {
		p := m.products[it.ProductID]
		it.Product = &p
		items[i] = it
	}
	o.Items = items
	o.Customer = nil
	return &o, nil
}

func (m *memStore) CreateOrder(_ context.Context, o *Order, deductions []StockDeduction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.failWith != nil {
		return m.failWith
	}
	for _, d := range deductions {
		if m.products[d.ProductID].Stock < d.Quantity {
			return invalidOperation("stock for product %d changed while the order was being placed", d.ProductID)
		}
	}
	for _, d := range deductions {
		p := m.products[d.ProductID]
		p.Stock -= d.Quantity
		m.products[d.ProductID] = p
	}
	m.nextOrderID++
	o.ID = m.nextOrderID
	for i := range o.Items {
		m.nextItemID++
		o.Items[i].ID = m.nextItemID
		o.Items[i].OrderID = o.ID
	}
	stored := *o
	stored.Items = append([]OrderItem(nil), o.Items...)
	m.orders[o.ID] = stored
	return nil
}

func (m *memStore) stock(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}
