package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-inventory-service/config"
	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/broker"
	"github.com/fekuna/omnipos-inventory-service/internal/cache"
	"github.com/fekuna/omnipos-inventory-service/internal/catalog"
	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/database/memory"
	"github.com/fekuna/omnipos-inventory-service/internal/database/postgres"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/metrics"
	"github.com/fekuna/omnipos-inventory-service/internal/server"
	"github.com/fekuna/omnipos-inventory-service/internal/tracing"

	"github.com/fekuna/omnipos-inventory-service/internal/alert"
	alertH "github.com/fekuna/omnipos-inventory-service/internal/alert/handler"
	alertListenerPkg "github.com/fekuna/omnipos-inventory-service/internal/alert/listener"
	alertRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/alert/repository"
	alertUCPkg "github.com/fekuna/omnipos-inventory-service/internal/alert/usecase"

	"github.com/fekuna/omnipos-inventory-service/internal/fulfillment"
	fulH "github.com/fekuna/omnipos-inventory-service/internal/fulfillment/handler"
	fulRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/fulfillment/repository"
	fulUCPkg "github.com/fekuna/omnipos-inventory-service/internal/fulfillment/usecase"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	invH "github.com/fekuna/omnipos-inventory-service/internal/inventory/handler"
	invPublisherPkg "github.com/fekuna/omnipos-inventory-service/internal/inventory/publisher"
	invRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/inventory/repository"
	invUCPkg "github.com/fekuna/omnipos-inventory-service/internal/inventory/usecase"

	"github.com/fekuna/omnipos-inventory-service/internal/order"
	orderH "github.com/fekuna/omnipos-inventory-service/internal/order/handler"
	orderRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/order/repository"
	orderUCPkg "github.com/fekuna/omnipos-inventory-service/internal/order/usecase"

	"github.com/fekuna/omnipos-inventory-service/internal/reservation"
	resH "github.com/fekuna/omnipos-inventory-service/internal/reservation/handler"
	resRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/reservation/repository"
	resUCPkg "github.com/fekuna/omnipos-inventory-service/internal/reservation/usecase"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// stores is the set of repositories behind one transaction manager.
type stores struct {
	txm          database.TxManager
	inventory    inventory.Repository
	reservations reservation.Repository
	alerts       alert.Repository
	orders       order.Repository
	fulfillments fulfillment.Repository
}

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.IsDevelopment() {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing and metrics
	shutdownTracing, err := tracing.Setup(ctx, &tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Endpoint:    cfg.Tracing.OTLPEndpoint,
	})
	if err != nil {
		appLogger.Fatal("Could not initialize tracing", zap.Error(err))
	}
	appMetrics := metrics.New("inventory")
	checks := map[string]server.ReadinessCheck{}

	// 4. Connect to storage
	var st stores
	switch cfg.Storage.Driver {
	case "memory":
		mem := memory.NewStore()
		st = stores{
			txm:          mem,
			inventory:    mem.Inventory(),
			reservations: mem.Reservations(),
			alerts:       mem.Alerts(),
			orders:       mem.Orders(),
			fulfillments: mem.Fulfillments(),
		}
		appLogger.Warn("Using in-memory storage, data is lost on restart")
	case "postgres":
		db, err := postgres.NewPostgres(&postgres.Config{
			Host:            cfg.Postgres.Host,
			Port:            cfg.Postgres.Port,
			User:            cfg.Postgres.User,
			Password:        cfg.Postgres.Password,
			DBName:          cfg.Postgres.DBName,
			SSLMode:         cfg.Postgres.SSLMode,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
		})
		if err != nil {
			appLogger.Fatal("Could not connect to database", zap.Error(err))
		}
		defer db.Close()
		appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

		if cfg.Storage.RunMigrations {
			if err := postgres.Migrate(ctx, db); err != nil {
				appLogger.Fatal("Could not apply migrations", zap.Error(err))
			}
		}

		txm := postgres.NewTxManager(db)
		st = stores{
			txm:          txm,
			inventory:    invRepoPkg.NewPGRepository(db, txm),
			reservations: resRepoPkg.NewPGRepository(db),
			alerts:       alertRepoPkg.NewPGRepository(db),
			orders:       orderRepoPkg.NewPGRepository(db),
			fulfillments: fulRepoPkg.NewPGRepository(db),
		}
		checks["postgres"] = db.PingContext
	default:
		appLogger.Fatal("Unknown storage driver", zap.String("driver", cfg.Storage.Driver))
	}

	// 5. Initialize Redis
	var (
		reportCache cache.Store
		sweepLocker cache.Locker
	)
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.Warn("Could not connect to Redis, low-stock report is served uncached", zap.Error(err))
		} else {
			defer redisClient.Close()
			reportCache, sweepLocker = redisClient, redisClient
			checks["redis"] = func(ctx context.Context) error { return redisClient.Client.Ping(ctx).Err() }
			appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
		}
	}

	// 6. Initialize UseCases
	alertUC := alertUCPkg.NewAlertUseCase(st.txm, st.alerts, st.inventory, reportCache, cfg.Cache.LowStockReportTTL, appMetrics, appLogger)

	// 6.5 Stock change events: Kafka when enabled, otherwise evaluated in-process
	var publisher inventory.EventPublisher
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.StockTopic,
		}, appLogger, appMetrics)
		defer producer.Close()
		publisher = invPublisherPkg.NewKafkaPublisher(producer)

		kafkaConsumer := broker.NewConsumer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.StockTopic,
			GroupID: cfg.Kafka.GroupID,
		})
		defer kafkaConsumer.Close()
		go alertListenerPkg.NewStockListener(kafkaConsumer, alertUC, appLogger).Start(ctx)
		appLogger.Info("Connected to Kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.StockTopic))
	} else {
		publisher = alertListenerPkg.NewInlinePublisher(alertUC)
	}

	resUC := resUCPkg.NewReservationUseCase(st.txm, st.reservations, st.inventory, publisher, resUCPkg.Config{
		DefaultTTL: cfg.Reservation.DefaultTTL,
		SweepBatch: cfg.Reservation.SweepBatch,
	}, appMetrics, appLogger)
	invUC := invUCPkg.NewInventoryUseCase(st.txm, st.inventory, resUC, catalog.NewAllowAll(), publisher, appMetrics, appLogger)
	orderUC := orderUCPkg.NewOrderUseCase(st.txm, st.orders, resUC, appMetrics, appLogger)
	fulUC := fulUCPkg.NewFulfillmentUseCase(st.txm, st.fulfillments, orderUC, st.orders, invUC, resUC, appMetrics, appLogger)

	// 6.8 Background workers
	go resUCPkg.NewSweeper(resUC, sweepLocker, cfg.Reservation.SweepInterval, cfg.Reservation.SweepLeaseTTL, appLogger).Start(ctx)

	// 7. HTTP server
	router := server.NewRouter(server.Options{Logger: appLogger, Metrics: appMetrics, Checks: checks},
		invH.NewInventoryHandler(invUC, appLogger),
		resH.NewReservationHandler(resUC, appLogger),
		alertH.NewAlertHandler(alertUC, appLogger),
		orderH.NewOrderHandler(orderUC, appLogger),
		fulH.NewFulfillmentHandler(fulUC, appLogger),
	)
	httpServer := &http.Server{
		Addr:              listenAddr(cfg.Server.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 8. gRPC health and reflection
	lis, err := net.Listen("tcp", listenAddr(cfg.Server.GRPCPort))
	if err != nil {
		appLogger.Fatal("failed to listen", zap.Error(err))
	}
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(auth.UnaryInterceptor()),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve http", zap.Error(err))
		}
	}()
	go func() {
		appLogger.Info("Starting gRPC server", zap.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve grpc", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	healthServer.Shutdown()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	grpcServer.GracefulStop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		appLogger.Warn("Tracer shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}

func listenAddr(port string) string {
	if !strings.HasPrefix(port, ":") && !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}
