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
	"github.com/ariefcatur/go-product-catalog/internal/httpx"
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
	log := logging.New(cfg.ServiceName, cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolOptions{MaxConns: int32(cfg.PostgresMaxConns)})
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("db migrate", "err", err)
		os.Exit(1)
	}
	if cfg.SeedSampleData {
		if err := postgres.Seed(ctx, db); err != nil {
			log.Error("db seed", "err", err)
			os.Exit(1)
		}
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, log)
	prod.Start(ctx)

	m := metrics.New("api")
	svc := &orders.Service{
		Customers: &orders.CustomerRepo{DB: db},
		Products:  &orders.ProductRepo{DB: db},
		Orders:    &orders.OrderRepo{DB: db},
	}
	router := httpx.NewRouter(m)
	oh := &httpx.OrdersHandler{
		Service:  svc,
		Cache:    redisx.NewCache(rdb),
		Producer: prod,
		Metrics:  m,
		Log:      log,
		Name:     cfg.ServiceName,
		Timeout:  cfg.RequestTimeout,
	}
	oh.Register(router)
	router.Get("/readyz", httpx.Readiness(map[string]httpx.Check{
		"postgres": db.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // stop intake, flush buffered events
	prod.WaitClosed() // writer closed
}
