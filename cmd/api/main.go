package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/inventario-cocina/internal/application/inventory"
	"github.com/jhoicas/inventario-cocina/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-cocina/internal/infrastructure/events"
	"github.com/jhoicas/inventario-cocina/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-cocina/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/inventario-cocina/internal/interfaces/http"
	"github.com/jhoicas/inventario-cocina/pkg/config"
	"github.com/jhoicas/inventario-cocina/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
		App:   cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.App.Store).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var txRunner inventory.TxRunner
	switch cfg.App.Store {
	case config.StoreMemory:
		// Sin persistencia: útil para demos y pruebas manuales.
		txRunner = memory.NewStore(cfg.Ledger.LockTimeout())
		log.Warn().Msg("store en memoria: los datos se pierden al reiniciar")
	default:
		if cfg.DB.MigrateOnStart {
			migrator, err := postgres.NewMigrator(cfg.DB.ConnectionString(), log)
			if err != nil {
				log.Fatal().Err(err).Msg("crear migrador")
			}
			if err := migrator.Up(); err != nil {
				log.Fatal().Err(err).Msg("aplicar migraciones")
			}
			if err := migrator.Close(); err != nil {
				log.Warn().Err(err).Msg("cerrar migrador")
			}
		}
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		txRunner = postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout())
	}

	var availabilityCache inventory.AvailabilityCache = cache.NopAvailabilityCache{}
	if cfg.Redis.URL != "" {
		client, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer client.Close()
		availabilityCache = cache.NewRedisAvailabilityCache(client, cfg.App.Name, cfg.Redis.TTL())
	}

	var publisher inventory.EventPublisher = events.NopPublisher{}
	if cfg.Kafka.Enabled() {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar publicador de eventos")
			}
		}()
		publisher = kafkaPublisher
	}

	opts := inventory.Options{
		MaxRetries:   cfg.Ledger.MaxRetries,
		RetryBackoff: cfg.Ledger.RetryBackoff(),
		Publisher:    publisher,
		Cache:        availabilityCache,
		Logger:       log,
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:      inventory.NewStockLedgerUseCase(txRunner, opts),
		Registry:    inventory.NewRegistryUseCase(txRunner),
		Composition: inventory.NewCompositionUseCase(txRunner, opts),
		Consumption: inventory.NewConsumptionUseCase(txRunner, opts),
		Catalog:     inventory.NewCatalogUseCase(txRunner, opts),
		Reports:     inventory.NewReportUseCase(txRunner, opts),
		JWTSecret:   cfg.JWT.Secret,
		JWTIssuer:   cfg.JWT.Issuer,
		Logger:      log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
