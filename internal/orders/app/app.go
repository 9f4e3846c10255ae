package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gomart/internal/orders/config"
	"gomart/internal/orders/httpapi"
	"gomart/internal/orders/order"
	"gomart/internal/orders/storage"
	"gomart/internal/orders/websocket"
	"gomart/pkg/messaging"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.Store
	orderSvc  *order.Service
	wsHub     *websocket.Hub
	publisher messaging.Publisher
	outbox    *messaging.OutboxDispatcher
	httpSrv   *http.Server
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	store, err := storage.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	wsHub := websocket.NewHub()
	orderSvc := order.NewService(store.Pool(), wsHub)

	publisher, err := messaging.NewRabbitPublisher(cfg.RabbitURL, cfg.MetricsExchange)
	if err != nil {
		store.Close()
		return nil, err
	}

	api := httpapi.NewServer(orderSvc, logger)
	wsHandler := websocket.NewHandler(wsHub)
	api.HandleFunc("GET /orders/ws", wsHandler.ServeWS)
	api.Handle("GET /metrics", promhttp.Handler())
	api.HandleFunc("GET /health", health)

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api,
	}

	outbox := messaging.NewOutboxDispatcher(store.Pool(), publisher, "order_outbox", cfg.MetricsRoutingKey, cfg.OutboxInterval, cfg.OutboxBatchSize, logger)

	return &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		orderSvc:  orderSvc,
		wsHub:     wsHub,
		publisher: publisher,
		outbox:    outbox,
		httpSrv:   httpSrv,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)

	a.outbox.Start(ctx)

	go a.wsHub.Run(ctx)

	go func() {
		a.logger.Info("orders http server listening", "addr", a.cfg.HTTPAddr)
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (a *App) Close(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.ShutdownGracePeriod)
	defer cancel()
	_ = a.httpSrv.Shutdown(shutdownCtx)
	a.publisher.Close()
	a.store.Close()
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func Run() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close(ctx)

	return app.Run(ctx)
}
