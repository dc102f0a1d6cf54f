package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/cartstore/internal/catalog"
	"github.com/fjod/go_cart/cartstore/internal/checkout"
	"github.com/fjod/go_cart/cartstore/internal/config"
	h "github.com/fjod/go_cart/cartstore/internal/http"
	"github.com/fjod/go_cart/cartstore/internal/notify"
	"github.com/fjod/go_cart/cartstore/internal/poller"
	"github.com/fjod/go_cart/cartstore/internal/repository"
	"github.com/fjod/go_cart/cartstore/internal/service"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the cart HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, log)
	},
}

// backend is an opened cart store. watcher is nil for stores without a
// change feed.
type backend struct {
	store   repository.Store
	watcher repository.Watcher
	origin  string
	close   func()
}

func openBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backend, error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		store := repository.NewRedisStore(client, log)
		guarded := repository.NewBreakerStore(store, repository.BreakerSettings{Name: "redis"}, log)
		return &backend{store: guarded, watcher: store, origin: store.Origin(), close: func() { client.Close() }}, nil

	case config.BackendMongo:
		store, err := repository.OpenMongoStore(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, err
		}
		if err := store.CreateIndexes(ctx); err != nil {
			log.Warn("failed to create cart indexes", zap.Error(err))
		}
		guarded := repository.NewBreakerStore(store, repository.BreakerSettings{Name: "mongo"}, log)
		return &backend{store: guarded, origin: uuid.NewString(), close: func() {
			_ = store.Close(context.Background())
		}}, nil

	case config.BackendSQLite:
		store, err := repository.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := store.RunMigrations(); err != nil {
			store.Close()
			return nil, err
		}
		return &backend{store: store, origin: uuid.NewString(), close: func() { store.Close() }}, nil

	default:
		store := repository.NewMemoryStore()
		return &backend{store: store, watcher: store, origin: store.Origin(), close: func() {}}, nil
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close()
	log.Info("cart storage ready",
		zap.String("backend", cfg.StorageBackend),
		zap.String("key", cfg.CartKey),
		zap.String("origin", b.origin))

	persister := repository.NewPersister(b.store, cfg.CartKey, log)
	cart := service.NewCartService(persister, notify.NewBroadcaster(),
		service.WithStorageTimeout(cfg.StorageTimeout),
		service.WithMaxQuantity(h.MaxQuantity),
		service.WithLogger(log))

	if b.watcher != nil {
		go func() {
			if err := cart.WatchExternal(ctx, b.watcher); err != nil && ctx.Err() == nil {
				log.Error("cart watcher stopped", zap.Error(err))
			}
		}()
	}

	checkoutOpts := []checkout.Option{
		checkout.WithDelay(cfg.CheckoutDelay),
		checkout.WithLogger(log),
		checkout.WithIdentity(cfg.CartKey, b.origin),
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := checkout.NewKafkaPublisher(cfg.KafkaBrokers...)
		defer publisher.Close()
		checkoutOpts = append(checkoutOpts, checkout.WithPublisher(publisher))

		p := poller.NewPoller(cart, cfg.CartKey, b.origin, log, cfg.KafkaBrokers...)
		defer p.Close()
		go p.Run(ctx)
	}

	products := catalog.Default()
	router := h.NewRouter(h.Handlers{
		Cart:     h.NewCartHandler(cart, products, cfg.RequestTimeout, log),
		Products: h.NewProductHandler(products),
		Checkout: h.NewCheckoutHandler(checkout.NewService(cart, checkoutOpts...), cfg.RequestTimeout),
	}, log, cfg.RequestTimeout)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	srv := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     otelhttp.NewHandler(router, "cartstore"),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
		// no WriteTimeout: /cart/events streams; handlers carry their own timeouts
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("cart store listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}
