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

	"github.com/fekuna/omnipos-store-service/config"
	"github.com/fekuna/omnipos-store-service/internal/auth"
	"github.com/fekuna/omnipos-store-service/internal/broker"
	"github.com/fekuna/omnipos-store-service/internal/cache"
	"github.com/fekuna/omnipos-store-service/internal/database/postgres"
	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/ledger/memory"
	pgLedger "github.com/fekuna/omnipos-store-service/internal/ledger/postgres"
	"github.com/fekuna/omnipos-store-service/internal/logger"
	"github.com/fekuna/omnipos-store-service/internal/sale"
	"github.com/fekuna/omnipos-store-service/internal/search"
	"github.com/fekuna/omnipos-store-service/internal/server"

	creditH "github.com/fekuna/omnipos-store-service/internal/credit/handler"
	creditUCPkg "github.com/fekuna/omnipos-store-service/internal/credit/usecase"

	invH "github.com/fekuna/omnipos-store-service/internal/inventory/handler"
	invListenerPkg "github.com/fekuna/omnipos-store-service/internal/inventory/listener"
	invUCPkg "github.com/fekuna/omnipos-store-service/internal/inventory/usecase"

	prodH "github.com/fekuna/omnipos-store-service/internal/product/handler"
	prodUCPkg "github.com/fekuna/omnipos-store-service/internal/product/usecase"

	saleH "github.com/fekuna/omnipos-store-service/internal/sale/handler"
	saleUCPkg "github.com/fekuna/omnipos-store-service/internal/sale/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" || cfg.Server.AppEnv == "dev" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = cfg.Logger.Encoding
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Open the ledger store
	store := openStore(cfg, appLogger)
	var closers []func() error
	closers = append(closers, store.Close)

	// 4. Initialize Redis
	var appCache cache.Cache = cache.NewNoop()
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.Warn("Could not connect to Redis, caching disabled", zap.Error(err))
		} else {
			appCache = redisClient
			closers = append(closers, redisClient.Close)
			appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
		}
	}

	// 5. Initialize Kafka producer and consumer
	var publisher broker.Publisher = broker.NewNoopPublisher()
	var kafkaConsumer *broker.KafkaConsumer
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.EventsTopic,
		})
		publisher = producer
		closers = append(closers, producer.Close)

		kafkaConsumer = broker.NewConsumer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.PurchasingTopic,
			GroupID: cfg.Kafka.GroupID,
		})
		closers = append(closers, kafkaConsumer.Close)
		appLogger.Info("Kafka configured",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("events_topic", cfg.Kafka.EventsTopic),
			zap.String("purchasing_topic", cfg.Kafka.PurchasingTopic),
		)
	}

	// 6. Initialize Elasticsearch
	var esEngine search.Engine
	if cfg.Elastic.Enabled {
		esClient, err := search.NewClient(&search.Config{
			Addresses: cfg.Elastic.Addresses,
			Username:  cfg.Elastic.Username,
			Password:  cfg.Elastic.Password,
		})
		if err != nil {
			appLogger.Warn("Could not connect to Elasticsearch, search falls back to the database", zap.Error(err))
		} else {
			esEngine = esClient
			appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
		}
	}

	// 7. Initialize UseCases
	ttl := cfg.Redis.CacheTTL
	invUC := invUCPkg.NewInventoryUseCase(store, appCache, ttl, publisher, appLogger)
	creditUC := creditUCPkg.NewCreditUseCase(store, appCache, ttl, publisher, appLogger)
	prodUC := prodUCPkg.NewProductUseCase(store, appCache, ttl, esEngine, publisher, appLogger)
	saleUC := saleUCPkg.NewSaleUseCase(store, sale.NewReceiptGenerator(), cfg.Checkout.ReceiptMaxAttempts, appCache, publisher, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 8. Start Listeners
	if kafkaConsumer != nil {
		invListener := invListenerPkg.NewPurchasingListener(kafkaConsumer, invUC, appLogger)
		go invListener.Start(ctx)
	}

	// 9. Initialize Handlers and HTTP server
	handlers := &server.Handlers{
		Sale:      saleH.NewSaleHandler(saleUC, appLogger),
		Inventory: invH.NewInventoryHandler(invUC, appLogger),
		Credit:    creditH.NewCreditHandler(creditUC, appLogger),
		Product:   prodH.NewProductHandler(prodUC, appLogger),
	}
	router := server.NewRouter(handlers, auth.NewVerifier(cfg.JWT.SecretKey), appLogger, server.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Development:    logConfig.IsDevelopment,
	})
	httpServer := &http.Server{
		Addr:              withColon(cfg.Server.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve http", zap.Error(err))
		}
	}()

	// 10. Start gRPC health server
	lis, err := net.Listen("tcp", withColon(cfg.Server.GRPCPort))
	if err != nil {
		appLogger.Fatal("failed to listen", zap.Error(err))
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

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

	err = httpServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	for i := len(closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, closers[i]())
	}
	if err != nil {
		appLogger.Error("Shutdown finished with errors", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}

func openStore(cfg *config.Config, log logger.ZapLogger) ledger.Store {
	if cfg.StoreDriver == "memory" {
		log.Warn("Using the in-memory store; data is lost on restart")
		return memory.New()
	}

	pgCfg := &postgres.Config{
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
	}
	if cfg.Postgres.MigrateOnStart {
		if err := postgres.Migrate(pgCfg.URL()); err != nil {
			log.Fatal("Could not migrate database", zap.Error(err))
		}
		log.Info("Database schema is up to date")
	}

	db, err := postgres.NewPostgres(pgCfg)
	if err != nil {
		log.Fatal("Could not connect to database", zap.Error(err))
	}
	log.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))
	return pgLedger.NewStore(db)
}

func withColon(port string) string {
	if !strings.HasPrefix(port, ":") && !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}
