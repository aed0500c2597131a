// Package app собирает зависимости и запускает серверы back-office.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/minimarket/internal/api"
	"github.com/vladislavdragonenkov/minimarket/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/minimarket/internal/health"
	"github.com/vladislavdragonenkov/minimarket/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/minimarket/internal/metrics"
	"github.com/vladislavdragonenkov/minimarket/internal/service/cart"
	"github.com/vladislavdragonenkov/minimarket/internal/service/catalog"
	"github.com/vladislavdragonenkov/minimarket/internal/service/customer"
	"github.com/vladislavdragonenkov/minimarket/internal/service/order"
	"github.com/vladislavdragonenkov/minimarket/internal/service/orderline"
	"github.com/vladislavdragonenkov/minimarket/internal/service/outbox"
	"github.com/vladislavdragonenkov/minimarket/internal/storage/memory"
	"github.com/vladislavdragonenkov/minimarket/internal/storage/postgres"
	"github.com/vladislavdragonenkov/minimarket/internal/version"
)

type repositories struct {
	categories domain.CategoryRepository
	products   domain.ProductRepository
	customers  domain.CustomerRepository
	orders     domain.OrderRepository
	outbox     domain.OutboxRepository
	cartStore  domain.CartStore
}

// Run запускает приложение и блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	repos, pgStore, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pgStore != nil {
		defer func() {
			if err := pgStore.Close(); err != nil {
				logger.WithError(err).Warn("failed to close postgres store")
			}
		}()
	}

	cartMetrics := metrics.NewCartMetrics()

	lineService := orderline.NewService(repos.cartStore, logger.WithField("service", "orderline"))
	cartService := cart.NewService(repos.cartStore, lineService, cartMetrics, logger.WithField("service", "cart"))
	customerService := customer.NewService(repos.customers, logger.WithField("service", "customer"))
	catalogService := catalog.NewService(repos.categories, repos.products, logger.WithField("service", "catalog"))
	orderService := order.NewService(repos.orders, repos.customers, repos.products, logger.WithField("service", "order"))

	// Kafka опционален: без брокеров события остаются в outbox.
	kafkaProducer := buildKafkaProducer(cfg, logger)
	if kafkaProducer != nil {
		defer func() {
			if err := kafkaProducer.Close(); err != nil {
				logger.WithError(err).Warn("failed to close kafka producer")
			}
		}()

		publisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents)
		worker := outbox.NewWorker(repos.outbox, publisher,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		)
		go worker.Run(ctx)
	}

	healthHandler := healthcheck.NewHandler(version.String())
	if pgStore != nil {
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pgStore.Ping(checkCtx)
		}))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	router := api.NewRouter(api.Services{
		Carts:     cartService,
		Customers: customerService,
		Catalog:   catalogService,
		Orders:    orderService,
		Lines:     lineService,
	}, logger.WithField("component", "api"))

	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func buildStorage(ctx context.Context, cfg Config, logger *log.Entry) (repositories, *postgres.Store, error) {
	if cfg.PostgresDSN == "" {
		logger.Info("postgres DSN не задан, используем in-memory хранилище")
		store := memory.NewStore()
		return repositories{
			categories: memory.NewCategoryRepository(store),
			products:   memory.NewProductRepository(store),
			customers:  memory.NewCustomerRepository(store),
			orders:     memory.NewOrderRepository(store),
			outbox:     memory.NewOutboxRepository(store),
			cartStore:  store,
		}, nil, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return repositories{}, nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return repositories{}, nil, err
	}
	logger.Info("postgres хранилище инициализировано")

	return repositories{
		categories: postgres.NewCategoryRepository(store),
		products:   postgres.NewProductRepository(store),
		customers:  postgres.NewCustomerRepository(store),
		orders:     postgres.NewOrderRepository(store),
		outbox:     postgres.NewOutboxRepository(store),
		cartStore:  postgres.NewCartStore(store),
	}, store, nil
}

func buildKafkaProducer(cfg Config, logger *log.Entry) *kafka.Producer {
	if len(cfg.KafkaBrokers) == 0 {
		return nil
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil
	}
	logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
	return producer
}

// startMetricsServer запускает служебный HTTP-сервер: /metrics и health-пробы.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
