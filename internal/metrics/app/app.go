package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gomart/internal/metrics/config"
	"gomart/internal/metrics/metric"
	"gomart/internal/metrics/monitoring"
	"gomart/internal/metrics/storage"
	"gomart/pkg/contracts"
	"gomart/pkg/messaging"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rabbitmq/amqp091-go"
)

type App struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.Store
	recorder *metric.Recorder
	consumer *messaging.Consumer
	httpSrv  *http.Server
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	store, err := storage.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	recorder := metric.NewRecorder(store.Pool())

	consumer, err := messaging.NewRabbitConsumer(cfg.RabbitURL, cfg.MetricsExchange, cfg.MetricsQueue, cfg.MetricsRoutingKey, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", health)
	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		recorder: recorder,
		consumer: consumer,
		httpSrv:  httpSrv,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	go func() {
		errCh <- a.consumer.Start(ctx, a.handleOrderCreated)
	}()

	go func() {
		a.logger.Info("metrics http server listening", "addr", a.cfg.HTTPAddr)
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
	a.consumer.Close()
	a.store.Close()
}

// handleOrderCreated maps one delivery to one metric row. Unparseable
// payloads are dropped; store failures are requeued so at-least-once
// delivery eventually lands them.
func (a *App) handleOrderCreated(ctx context.Context, msg amqp091.Delivery) {
	monitoring.EventsReceivedTotal.Inc()

	var evt contracts.OrderCreatedEvent
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		monitoring.EventsInvalidTotal.Inc()
		a.logger.Error("invalid order event", "err", err)
		_ = msg.Nack(false, false)
		return
	}

	a.logger.Info("metric received",
		"label", evt.Label,
		"order_id", evt.OrderID,
		"customer_id", evt.CustomerID,
		"amount", evt.Amount,
		"created_at", evt.CreatedAt,
	)

	inserted, err := a.recorder.Record(ctx, metric.FromEvent(evt))
	if err != nil {
		monitoring.RecordFailuresTotal.Inc()
		a.logger.Error("record metric failed", "order_id", evt.OrderID, "err", err)
		_ = msg.Nack(false, true)
		return
	}

	if inserted {
		monitoring.MetricsRecordedTotal.Inc()
	} else {
		monitoring.EventsDuplicateTotal.Inc()
		a.logger.Info("duplicate event skipped", "order_id", evt.OrderID, "event", evt.Label)
	}

	_ = msg.Ack(false)
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
