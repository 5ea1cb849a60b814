package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/YelzhanWeb/kds/internal/adapter/backend"
	"github.com/YelzhanWeb/kds/internal/adapter/logger"
	"github.com/YelzhanWeb/kds/internal/adapter/metrics"
	"github.com/YelzhanWeb/kds/internal/adapter/nats"
	"github.com/YelzhanWeb/kds/internal/adapter/notifier"
	"github.com/YelzhanWeb/kds/internal/adapter/postgres"
	"github.com/YelzhanWeb/kds/internal/adapter/rabbitmq"
	"github.com/YelzhanWeb/kds/internal/adapter/sse"
	"github.com/YelzhanWeb/kds/internal/adapter/websocket"
	"github.com/YelzhanWeb/kds/internal/app/ingest"
	"github.com/YelzhanWeb/kds/internal/app/kitchen"
	"github.com/YelzhanWeb/kds/internal/app/order"
	"github.com/YelzhanWeb/kds/internal/app/tracking"
	"github.com/YelzhanWeb/kds/internal/config"
	"github.com/YelzhanWeb/kds/internal/interfaces"

	amqpAdapter "github.com/YelzhanWeb/kds/internal/adapter/amqp"
	httpAdapter "github.com/YelzhanWeb/kds/internal/adapter/http"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "kds",
		Short:         "Kitchen display order synchronization",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the kitchen loop and the HTTP view",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "snapshot",
			Short: "Pull once and print the board as JSON",
			RunE:  runSnapshot,
		},
		&cobra.Command{
			Use:   "notifications",
			Short: "Print notifications published on the RabbitMQ fanout",
			RunE:  runNotifications,
		},
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logger.New(cfg.Service.Name, logger.ParseLevel(cfg.Service.LogLevel)), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, lgr, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.RestaurantID, cfg.Backend.Token, cfg.Backend.Timeout, lgr)

	source, closeSource, err := openSource(ctx, cfg, client, lgr)
	if err != nil {
		return err
	}
	defer closeSource()

	var mqConn rabbitmq.Connection
	if cfg.UsesRabbitMQ() {
		mqConn, err = rabbitmq.Connect(cfg.RabbitMQ)
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer mqConn.Close()

		lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
			"host": cfg.RabbitMQ.Host,
		})
	}

	stream, err := openStream(cfg, mqConn, lgr)
	if err != nil {
		return err
	}

	collector := metrics.New()
	broadcaster := sse.New(lgr)

	notifiers := notifier.Multi{notifier.NewLog(lgr), broadcaster}
	if cfg.RabbitMQ.PublishNotifications {
		notifiers = append(notifiers, rabbitmq.NewPublisher(mqConn, cfg.RabbitMQ.NotificationsExchange))
	}

	gateway := ingest.NewGateway(source, stream, ingest.Options{
		PullInterval:   cfg.Pull.Interval,
		PullTimeout:    cfg.Backend.Timeout,
		ReconnectDelay: cfg.Push.ReconnectDelay,
	}, lgr)

	kitchenService := kitchen.NewService(client, notifiers, collector, lgr, kitchen.Options{
		MaxStaleness: cfg.Pull.MaxStaleness,
	})
	orderService := order.NewService(kitchenService, client, lgr)
	trackingService := tracking.NewService(kitchenService, lgr, nil)

	handler := httpAdapter.NewRouter(httpAdapter.RouterDeps{
		Orders:   httpAdapter.NewOrderHandler(orderService, lgr),
		Tracking: httpAdapter.NewTrackingHandler(trackingService, lgr),
		Events:   broadcaster,
		Metrics:  collector.Handler(),
		Observer: collector,
		Logger:   lgr,
	})

	// no WriteTimeout: /kds/events streams stay open
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Service.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return gateway.Run(gctx)
	})

	g.Go(func() error {
		return kitchenService.Run(gctx, gateway.Events())
	})

	g.Go(func() error {
		lgr.Info("service_started", fmt.Sprintf("KDS started on port %d", cfg.Service.HTTPPort), "startup", map[string]interface{}{
			"pull_source":    cfg.Pull.Source,
			"push_transport": cfg.Push.Transport,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		lgr.Info("shutdown_initiated", "Shutting down KDS", "shutdown", nil)

		broadcaster.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		lgr.Error("service_stopped", "KDS stopped with error", "shutdown", nil, err)
		return err
	}

	lgr.Info("service_stopped", "KDS stopped", "shutdown", nil)
	return nil
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	// stdout carries the board
	lgr := logger.NewWithWriter(cfg.Service.Name, logger.ParseLevel(cfg.Service.LogLevel), os.Stderr)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Backend.Timeout)
	defer cancel()

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.RestaurantID, cfg.Backend.Token, cfg.Backend.Timeout, lgr)
	source, closeSource, err := openSource(ctx, cfg, client, lgr)
	if err != nil {
		return err
	}
	defer closeSource()

	orders, err := source.FetchKitchenOrders(ctx)
	if err != nil {
		return fmt.Errorf("pull failed: %w", err)
	}

	board := kitchen.SnapshotBoard(orders, time.Now())
	view, err := tracking.NewService(staticBoard{board}, lgr, nil).ActiveOrders(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(httpAdapter.NewBoardResponse(view))
}

func runNotifications(cmd *cobra.Command, _ []string) error {
	cfg, lgr, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer mqConn.Close()

	handler := amqpAdapter.NewNotificationHandler(lgr, cmd.OutOrStdout())

	err = rabbitmq.Listen(ctx, mqConn, cfg.RabbitMQ.NotificationsExchange, lgr, handler.Handle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func openSource(ctx context.Context, cfg *config.Config, client *backend.Client, lgr logger.Logger) (interfaces.OrderSource, func(), error) {
	if cfg.Pull.Source != "postgres" {
		return client, func() {}, nil
	}

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
		"host": cfg.Database.Host,
		"db":   cfg.Database.Database,
	})

	return postgres.NewOrderRepository(db, cfg.Backend.RestaurantID, lgr), db.Close, nil
}

func openStream(cfg *config.Config, mqConn rabbitmq.Connection, lgr logger.Logger) (interfaces.EventStream, error) {
	switch cfg.Push.Transport {
	case "websocket":
		return websocket.NewStream(cfg.Push.URL, cfg.Backend.Token, lgr), nil
	case "amqp":
		return rabbitmq.NewConsumer(mqConn, cfg.RabbitMQ.EventsExchange, lgr), nil
	case "nats":
		return nats.NewStream(cfg.NATS.URL, cfg.NATS.Subject, lgr), nil
	case "none", "":
		lgr.Warn("push_disabled", "No push transport configured, relying on pull only", "startup", nil)
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown push transport %q", cfg.Push.Transport)
	}
}

type staticBoard struct {
	board *interfaces.Board
}

func (s staticBoard) Board() *interfaces.Board {
	return s.board
}
