package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diwise/inventory/internal/pkg/application/gateway"
	"github.com/diwise/inventory/internal/pkg/application/notifications"
	"github.com/diwise/inventory/internal/pkg/infrastructure/router"
	"github.com/diwise/inventory/internal/pkg/presentation/api/inventoryapi"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	appName string = "inventory"
)

func main() {
	appVersion := buildinfo.SourceVersion()

	ctx, log, cleanup := o11y.Init(context.Background(), appName, appVersion, "json")
	defer cleanup()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := LoadConfiguration(ctx)

	handler, teardown, err := initialize(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize service", "err", err.Error())
		os.Exit(1)
	}
	defer teardown()

	listener, err := net.Listen("tcp", ":"+cfg.servicePort)
	if err != nil {
		log.Error("failed to listen for connections", "err", err.Error())
		os.Exit(1)
	}

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("starting to listen for connections", "port", cfg.servicePort)

	err = serve(ctx, server, listener)
	if err != nil {
		log.Error("server failed", "err", err.Error())
		os.Exit(1)
	}

	log.Info("shut down complete")
}

// serve handles connections until ctx is cancelled and returns once all
// in-flight requests have completed, or the shutdown grace period has passed
func serve(ctx context.Context, server *http.Server, listener net.Listener) error {
	drained := make(chan error, 1)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		drained <- server.Shutdown(shutdownCtx)
	}()

	err := server.Serve(listener)
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-drained
}

func initialize(ctx context.Context, cfg AppConfig) (http.Handler, func(), error) {
	log := logging.GetFromContext(ctx)

	gatewayConfig, err := cfg.gatewayConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration from %s: %w", cfg.configPath, err)
	}

	options := []gateway.Option{gateway.WithClientDebug(cfg.debugClient)}
	teardown := func() {}

	if cfg.notifierEndpoint != "" {
		notifier, err := notifications.NewNotifier(ctx, cfg.notifierEndpoint)
		if err != nil {
			return nil, nil, err
		}

		if err = notifier.Start(); err != nil {
			return nil, nil, err
		}

		options = append(options, gateway.WithNotifier(notifier))
		teardown = func() { notifier.Stop() }

		log.Info("posting change notifications", "endpoint", cfg.notifierEndpoint)
	}

	app, err := gateway.New(ctx, *gatewayConfig, options...)
	if err != nil {
		teardown()
		return nil, nil, err
	}

	r := router.New(appName)

	inventoryapi.RegisterHandlers(ctx, r, app)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r, teardown, nil
}
