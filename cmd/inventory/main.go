package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-product-catalog/internal/config"
	"github.com/ariefcatur/go-product-catalog/internal/inventory"
	kafkax "github.com/ariefcatur/go-product-catalog/internal/kafka"
	"github.com/ariefcatur/go-product-catalog/internal/logging"
	"github.com/ariefcatur/go-product-catalog/internal/metrics"
	"github.com/ariefcatur/go-product-catalog/internal/orders"
	"github.com/ariefcatur/go-product-catalog/internal/postgres"
	"github.com/ariefcatur/go-product-catalog/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	name := cfg.ServiceName + "-inventory"
	log := logging.New(name, cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolOptions{MaxConns: int32(cfg.PostgresMaxConns)})
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// outlives ctx: workers may still publish until <-done, then Close drains it
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockLow, 1024, log)
	prod.Start(context.Background())

	m := metrics.New("inventory")
	svc := &inventory.Service{
		Products:    &orders.ProductRepo{DB: db},
		Dedup:       redisx.NewCache(rdb),
		Producer:    prod,
		Metrics:     m,
		Threshold:   cfg.LowStockThreshold,
		ServiceName: name,
		Log:         log,
	}

	// metrics only
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics listen", "err", err)
		}
	}()

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.InventoryGroup, orders.TopicOrderCreated, cfg.InventoryWorkers, log)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("inventory consumer started", "group", cfg.InventoryGroup,
			"topic", orders.TopicOrderCreated, "workers", cfg.InventoryWorkers)
		if err := cons.Start(ctx, svc.HandleOrderCreated); err != nil {
			log.Error("consumer exit", "err", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer...")
	cancel()
	<-done

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()
	prod.WaitClosed()
}
