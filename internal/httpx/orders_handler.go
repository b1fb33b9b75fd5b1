package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-product-catalog/internal/kafka"
	"github.com/ariefcatur/go-product-catalog/internal/metrics"
	"github.com/ariefcatur/go-product-catalog/internal/orders"
)

type OrderService interface {
	CreateOrder(ctx context.Context, in orders.CreateOrderInput) (orders.OrderView, error)
	GetOrder(ctx context.Context, id int64) (orders.OrderView, bool, error)
	ListProducts(ctx context.Context) ([]orders.Product, error)
	GetProduct(ctx context.Context, id int64) (orders.Product, bool, error)
	AddProduct(ctx context.Context, in orders.NewProduct) (orders.Product, error)
	GetCustomer(ctx context.Context, id int64) (orders.Customer, bool, error)
}

type OrderCache interface {
	GetOrderView(ctx context.Context, orderID int64) ([]byte, bool, error)
	SetOrderView(ctx context.Context, orderID int64, view []byte) error
	ReserveIdempotency(ctx context.Context, key string) (bool, int64, error)
	RememberIdempotency(ctx context.Context, key string, orderID int64) error
	ReleaseIdempotency(ctx context.Context, key string) error
}

type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// OrdersHandler serves orders and the catalog. Cache and Producer are optional.
type OrdersHandler struct {
	Service  OrderService
	Cache    OrderCache
	Producer EventPublisher
	Metrics  *metrics.Metrics
	Log      *slog.Logger
	Name     string        // producer name on events
	Timeout  time.Duration // per request, 0 = none
}

type createOrderReq struct {
	CustomerID *int64        `json:"customer_id"`
	Items      []lineItemReq `json:"items"`
}

type lineItemReq struct {
	ProductID *int64 `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/orders", h.createOrder)
		r.Get("/orders/{id}", h.getOrder)
		r.Get("/products", h.listProducts)
		r.Post("/products", h.addProduct)
		r.Get("/products/{id}", h.getProduct)
		r.Get("/customers/{id}", h.getCustomer)
	})
}

func (h *OrdersHandler) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	if h.Timeout > 0 {
		return context.WithTimeout(r.Context(), h.Timeout)
	}
	return context.WithCancel(r.Context())
}

func (req createOrderReq) toInput() (orders.CreateOrderInput, error) {
	if req.CustomerID == nil {
		return orders.CreateOrderInput{}, orders.InvalidInput("customer_id is required")
	}
	in := orders.CreateOrderInput{CustomerID: *req.CustomerID, Items: make([]orders.LineRequest, 0, len(req.Items))}
	for i, it := range req.Items {
		if it.ProductID == nil {
			return orders.CreateOrderInput{}, orders.InvalidInput(fmt.Sprintf("items[%d].product_id is required", i))
		}
		in.Items = append(in.Items, orders.LineRequest{ProductID: *it.ProductID, Quantity: it.Quantity})
	}
	return in, nil
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.reject(w, orders.InvalidInput("invalid json"))
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.reject(w, err)
		return
	}

	ctx, cancel := h.ctx(r)
	defer cancel()

	// held is the Idempotency-Key this request reserved, if any
	var held string
	if key := r.Header.Get("Idempotency-Key"); key != "" && h.Cache != nil {
		reserved, id, err := h.Cache.ReserveIdempotency(ctx, key)
		switch {
		case err != nil:
			h.Log.Warn("idempotency reserve failed", "err", err)
		case reserved:
			held = key
		case id == 0:
			writeError(w, http.StatusConflict, "invalid_operation",
				"a request with this Idempotency-Key is still in progress")
			return
		default:
			h.replay(ctx, w, id)
			return
		}
	}

	view, err := h.Service.CreateOrder(ctx, in)
	if err != nil {
		if held != "" {
			if rerr := h.Cache.ReleaseIdempotency(context.WithoutCancel(ctx), held); rerr != nil {
				h.Log.Warn("release idempotency key", "err", rerr)
			}
		}
		h.reject(w, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.OrdersCreated.Inc()
	}
	h.Log.Info("order created", "order_id", view.OrderID, "customer_id", view.CustomerID,
		"total", view.TotalAmount.String())

	body, err := json.Marshal(view)
	if err != nil {
		writeFailure(w, h.Log, err)
		return
	}
	if h.Cache != nil {
		if err := h.Cache.SetOrderView(ctx, view.OrderID, body); err != nil {
			h.Log.Warn("cache order view", "order_id", view.OrderID, "err", err)
		}
		if held != "" {
			if err := h.Cache.RememberIdempotency(ctx, held, view.OrderID); err != nil {
				h.Log.Warn("remember idempotency key", "order_id", view.OrderID, "err", err)
			}
		}
	}
	h.publishCreated(r, view)

	writeRawJSON(w, http.StatusCreated, append(body, '\n'))
}

// replay answers a repeated create with the order the key already produced.
// Failing to load it is an error, never a reason to create a second order.
func (h *OrdersHandler) replay(ctx context.Context, w http.ResponseWriter, id int64) {
	b, found, err := h.loadOrder(ctx, id)
	if err == nil && !found {
		err = fmt.Errorf("idempotent replay: order %d missing", id)
	}
	if err != nil {
		writeFailure(w, h.Log, err)
		return
	}
	w.Header().Set("Idempotent-Replay", "true")
	writeRawJSON(w, http.StatusOK, b)
}

func (h *OrdersHandler) reject(w http.ResponseWriter, err error) {
	if h.Metrics != nil {
		h.Metrics.OrderRejections.WithLabelValues(orders.Kind(err)).Inc()
	}
	writeFailure(w, h.Log, err)
}

func (h *OrdersHandler) publishCreated(r *http.Request, v orders.OrderView) {
	if h.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Name,
		TraceID:       middleware.GetReqID(r.Context()),
		CorrelationID: fmt.Sprint(v.OrderID),
		Payload:       kafkax.MustMarshal(orders.NewOrderCreatedPayload(v)),
	}
	h.Producer.Publish(orders.PartitionKey(v.OrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// loadOrder reads the view from cache, falling back to the store and
// back-filling the cache.
func (h *OrdersHandler) loadOrder(ctx context.Context, id int64) ([]byte, bool, error) {
	if h.Cache != nil {
		b, ok, err := h.Cache.GetOrderView(ctx, id)
		if err != nil {
			h.Log.Warn("cache read failed", "order_id", id, "err", err)
		} else if ok {
			return b, true, nil
		}
	}

	view, found, err := h.Service.GetOrder(ctx, id)
	if err != nil || !found {
		return nil, found, err
	}
	b, err := json.Marshal(view)
	if err != nil {
		return nil, false, err
	}
	if h.Cache != nil {
		if err := h.Cache.SetOrderView(ctx, id, b); err != nil {
			h.Log.Warn("cache order view", "order_id", id, "err", err)
		}
	}
	return b, true, nil
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid order id")
		return
	}

	ctx, cancel := h.ctx(r)
	defer cancel()

	b, found, err := h.loadOrder(ctx, id)
	if err != nil {
		writeFailure(w, h.Log, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("order %d not found", id))
		return
	}
	writeRawJSON(w, http.StatusOK, b)
}
