package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
	_ "github.com/go-sql-driver/mysql"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/rl1809/apartment-sales/internal/adapter/auth"
	"github.com/rl1809/apartment-sales/internal/adapter/handler"
	"github.com/rl1809/apartment-sales/internal/adapter/logger"
	"github.com/rl1809/apartment-sales/internal/adapter/notifier"
	"github.com/rl1809/apartment-sales/internal/adapter/storage"
	"github.com/rl1809/apartment-sales/internal/config"
	"github.com/rl1809/apartment-sales/internal/core/service"
	"github.com/rl1809/apartment-sales/internal/port"
)

// App owns every long-lived resource of the server process.
type App struct {
	cfg    *config.AppConfig
	logger port.LoggerPort

	fluentClient *fluent.Fluent
	db           *sql.DB
	rdb          *redis.Client
	amqpConn     *amqp.Connection
	amqpChannel  *amqp.Channel

	dispatcher *notifier.Dispatcher
	sweeper    *service.ReservationSweeper
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
}

func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	app := &App{cfg: cfg}

	if err := app.initLogger(); err != nil {
		return nil, err
	}

	store, err := app.initStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	var cache port.CacheRepository
	if cfg.Redis.Enabled {
		app.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: 100,
		})
		if err := app.rdb.Ping(ctx).Err(); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		cache = storage.NewRedisAdapter(app.rdb)
		app.logger.Info("connected to redis", port.Fields{"addr": cfg.Redis.Addr})
	}

	sender, err := app.initSender()
	if err != nil {
		app.Close()
		return nil, err
	}
	app.dispatcher = notifier.NewDispatcher(notifier.Config{
		QueueSize: cfg.Notifier.QueueSize,
		Workers:   cfg.Notifier.Workers,
	}, sender, app.logger)

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	if err != nil {
		app.Close()
		return nil, err
	}

	inventoryService := service.NewInventoryService(store, app.dispatcher, cache, app.logger)
	apartmentService := service.NewApartmentService(store, app.logger)
	clientService := service.NewClientService(store, app.logger)
	authService := service.NewAuthService(store, tokens, cfg.Auth.TokenTTL, app.logger)

	if cfg.Auth.AdminPassword != "" {
		if err := authService.SeedAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to seed admin user: %w", err)
		}
	}

	if cfg.SweepEvery > 0 {
		app.sweeper = service.NewReservationSweeper(inventoryService, cfg.SweepEvery, app.logger)
	}

	httpHandler := handler.NewHTTPHandler(inventoryService, apartmentService, clientService, authService)
	router := handler.NewRouter(httpHandler, authService, app.logger, handler.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	app.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	app.grpcLis, err = net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	app.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(handler.UnaryServerInterceptor(app.logger)))
	handler.RegisterInventoryServer(app.grpcServer, handler.NewGRPCHandler(inventoryService))

	return app, nil
}

func (a *App) initLogger() error {
	stdout := logger.NewSlogAdapter(logger.SlogConfig{
		Level:    logger.ParseLevel(a.cfg.StdoutLog.Level),
		IsJSON:   a.cfg.StdoutLog.JSON,
		UseColor: !a.cfg.StdoutLog.JSON,
	})

	loggers := []port.LoggerPort{stdout}
	if a.cfg.FluentBit.Enabled {
		client, err := logger.NewFluentClient(logger.FluentConfig{
			Host:      a.cfg.FluentBit.Host,
			Port:      a.cfg.FluentBit.Port,
			TagPrefix: a.cfg.AppName,
		})
		if err != nil {
			return err
		}
		a.fluentClient = client

		fluentLogger, err := logger.NewFluentLoggerAdapter(client, logger.ParseLevel(a.cfg.FluentBit.Level))
		if err != nil {
			return err
		}
		loggers = append(loggers, fluentLogger)
	}

	multi, err := logger.NewMultiLoggerAdapter(loggers...)
	if err != nil {
		return err
	}
	a.logger = multi.WithFields(port.Fields{"service_name": a.cfg.AppName})
	return nil
}

func (a *App) initStore(ctx context.Context) (port.Store, error) {
	if a.cfg.Store.Driver == config.StoreDriverMemory {
		a.logger.Warn("using in-memory store, data is lost on restart", nil)
		return storage.NewMemoryStore(), nil
	}

	db, err := sql.Open("mysql", a.cfg.Store.MySQLDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	a.db = db

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}
	a.logger.Info("connected to mysql", nil)
	return storage.NewMySQLAdapter(db), nil
}

func (a *App) initSender() (port.EventSender, error) {
	if !a.cfg.RabbitMQ.Enabled {
		return notifier.NewLogSender(a.logger), nil
	}

	conn, ch, err := notifier.DialRabbitMQ(a.cfg.RabbitMQ.URL, a.cfg.RabbitMQ.Exchange)
	if err != nil {
		return nil, err
	}
	a.amqpConn, a.amqpChannel = conn, ch

	sender, err := notifier.NewRabbitMQSender(ch, a.cfg.RabbitMQ.Exchange)
	if err != nil {
		return nil, err
	}
	a.logger.Info("connected to rabbitmq", port.Fields{"exchange": a.cfg.RabbitMQ.Exchange})
	return sender, nil
}

// Run starts background workers and both servers. It returns when a server
// fails or ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.dispatcher.Start()
	if a.sweeper != nil {
		a.sweeper.Start()
		a.logger.Info("reservation sweeper started", port.Fields{"interval": a.cfg.SweepEvery.String()})
	}

	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("gRPC server listening", port.Fields{"addr": a.grpcLis.Addr().String()})
		if err := a.grpcServer.Serve(a.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	go func() {
		a.logger.Info("HTTP server listening", port.Fields{"addr": a.httpServer.Addr})
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops intake first, then drains background work, then closes connections.
func (a *App) Shutdown(ctx context.Context) {
	a.logger.Info("shutting down...", nil)

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("HTTP server shutdown failed", err, nil)
	}
	a.logger.Info("HTTP server stopped", nil)

	a.grpcServer.GracefulStop()
	a.logger.Info("gRPC server stopped", nil)

	if a.sweeper != nil {
		a.sweeper.Close()
	}
	a.dispatcher.Close()
	a.logger.Info("event dispatcher drained", nil)

	a.Close()
}

func (a *App) Close() {
	if a.amqpChannel != nil {
		a.amqpChannel.Close()
	}
	if a.amqpConn != nil {
		a.amqpConn.Close()
	}
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.fluentClient != nil {
		a.fluentClient.Close()
	}
}
