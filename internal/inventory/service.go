package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-product-catalog/internal/kafka"
	"github.com/ariefcatur/go-product-catalog/internal/metrics"
	"github.com/ariefcatur/go-product-catalog/internal/orders"
	"github.com/ariefcatur/go-product-catalog/internal/redisx"
)

type ProductReader interface {
	GetProduct(ctx context.Context, id int64) (*orders.Product, error)
}

type Claimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Service watches order.created and raises StockLow for products whose stock
// fell to the threshold or below.
type Service struct {
	Products    ProductReader
	Dedup       Claimer
	Producer    Publisher // publishes product.stock.low
	Metrics     *metrics.Metrics
	Threshold   int
	ServiceName string
	Log         *slog.Logger
}

// HandleOrderCreated is installed as the consumer handler.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// poison message: log and let the offset move on
		s.Log.Error("decode envelope", "offset", m.Offset, "err", err)
		return nil
	}
	if env.EventType != orders.EventOrderCreated {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		s.Log.Error("decode payload", "event_id", env.EventID, "err", err)
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "inventory", env.EventID)
	first, err := s.Dedup.Claim(ctx, dkey, redisx.TTLDedup)
	if err != nil {
		// redis down: process anyway, an extra alert is harmless
		s.Log.Warn("dedup claim failed", "event_id", env.EventID, "err", err)
		first = true
	}
	if !first {
		return nil
	}

	low, err := s.lowStock(ctx, p.Items)
	if err != nil {
		// give the claim back so the redelivered event is processed
		if rerr := s.Dedup.Release(context.WithoutCancel(ctx), dkey); rerr != nil {
			s.Log.Warn("dedup release failed", "event_id", env.EventID, "err", rerr)
		}
		return err
	}
	for _, prod := range low {
		s.publishLow(prod, p.OrderID, env.TraceID)
	}
	return nil
}

// lowStock re-reads every distinct product of the order and returns those at
// or below the threshold. Nothing is published until all reads succeeded.
func (s *Service) lowStock(ctx context.Context, items []orders.ItemPrice) ([]orders.Product, error) {
	seen := make(map[int64]bool, len(items))
	var low []orders.Product
	for _, it := range items {
		if seen[it.ProductID] {
			continue
		}
		seen[it.ProductID] = true

		prod, err := s.Products.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("load product %d: %w", it.ProductID, err)
		}
		if prod == nil || prod.Stock > s.Threshold {
			continue
		}
		low = append(low, *prod)
	}
	return low, nil
}

func (s *Service) publishLow(p orders.Product, orderID int64, trace string) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventStockLow,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       trace,
		CorrelationID: fmt.Sprint(orderID),
		Payload: kafkax.MustMarshal(orders.StockLowPayload{
			ProductID: p.ID,
			Name:      p.Name,
			Stock:     p.Stock,
			Threshold: s.Threshold,
			OrderID:   orderID,
		}),
	}
	s.Producer.Publish(orders.PartitionKey(p.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockLow)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	if s.Metrics != nil {
		s.Metrics.LowStockAlerts.Inc()
	}
	s.Log.Info("low stock", "product_id", p.ID, "stock", p.Stock, "order_id", orderID)
}
