package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/bazaar-backend/api/routes"
	"github.com/angelmondragon/bazaar-backend/internal/bootstrap"
	"github.com/angelmondragon/bazaar-backend/internal/cart"
	"github.com/angelmondragon/bazaar-backend/internal/catalog"
	"github.com/angelmondragon/bazaar-backend/internal/checkout"
	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/reviews"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/migrate"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
)

const shutdownTimeout = 15 * time.Second

func main() {
	proc, err := bootstrap.Start("api")
	if err != nil {
		os.Exit(1)
	}
	ctx, stop := proc.SignalContext()
	defer stop()
	proc.Exit(ctx, run(ctx, proc))
}

func run(ctx context.Context, proc *bootstrap.Process) error {
	cfg, logg := proc.Config, proc.Log

	dbClient, err := proc.Database(ctx)
	if err != nil {
		return err
	}
	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}
	redisClient, err := proc.Redis(ctx)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	orderMetrics := metrics.NewOrderMetrics(reg)

	conn := dbClient.DB()
	products := catalog.NewReader(conn)
	orderRepo := orders.NewRepository(conn)

	notifier, err := notifications.NewEmitter(outbox.NewService(outbox.NewRepository(conn), logg), logg)
	if err != nil {
		return err
	}
	carts, err := cart.NewService(cart.NewRepository(conn), products, dbClient)
	if err != nil {
		return fmt.Errorf("cart service: %w", err)
	}
	checkouts, err := checkout.NewService(dbClient, carts, products, orderRepo, checkout.NewRepository(conn), notifier, logg, orderMetrics)
	if err != nil {
		return fmt.Errorf("checkout service: %w", err)
	}
	orderService, err := orders.NewService(orderRepo, dbClient, logg, orderMetrics)
	if err != nil {
		return fmt.Errorf("orders service: %w", err)
	}
	reviewService, err := reviews.NewService(reviews.ServiceParams{
		Repo:     reviews.NewRepository(conn),
		Tx:       dbClient,
		Notifier: notifier,
		Logger:   logg,
		Metrics:  orderMetrics,
		TextMin:  cfg.Checkout.ReviewTextMin,
		TextMax:  cfg.Checkout.ReviewTextMax,
	})
	if err != nil {
		return fmt.Errorf("reviews service: %w", err)
	}
	inbox, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return fmt.Errorf("notifications service: %w", err)
	}

	// PORT wins over the configured port so the binary runs unchanged on
	// platforms that inject it.
	port := cfg.App.Port
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}
	server := &http.Server{
		Addr: ":" + port,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient,
			promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			carts, checkouts, orderService, reviewService, inbox),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx = logg.WithField(ctx, "addr", server.Addr)

	served := make(chan error, 1)
	go func() { served <- server.ListenAndServe() }()
	logg.Info(ctx, "api listening")

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
