package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/xue-yuan/dionysus/internal/api/http"
	"github.com/xue-yuan/dionysus/internal/api/http/handlers"
	"github.com/xue-yuan/dionysus/internal/auth"
	"github.com/xue-yuan/dionysus/internal/config"
	"github.com/xue-yuan/dionysus/internal/events"
	"github.com/xue-yuan/dionysus/internal/observability"
	"github.com/xue-yuan/dionysus/internal/persistence"
	"github.com/xue-yuan/dionysus/internal/repository"
	"github.com/xue-yuan/dionysus/internal/service"
	"github.com/xue-yuan/dionysus/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	codec := auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	epochs := auth.NewEpochs(redis, cfg.Auth.TokenTTL, cfg.Auth.OldTokenTTL)
	revocations := auth.NewRevocationRegistry(redis)
	gate := auth.NewGate(codec, revocations, epochs, auth.GateConfig{
		StoreTimeout: cfg.Auth.StoreTimeout,
		Logger:       logger.Named("auth"),
		Metrics:      metrics,
	})

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ingredientRepo := repository.NewIngredientRepository(pool)
	cocktailRepo := repository.NewCocktailRepository(pool)
	tagRepo := repository.NewTagRepository(pool)
	favoritesRepo := repository.NewFavoritesRepository(redis)

	authService := service.NewAuthService(service.AuthDependencies{
		Users:        userRepo,
		Tokens:       codec,
		Epochs:       epochs,
		Revocations:  revocations,
		Dispatcher:   dispatcher,
		Logger:       logger,
		BcryptCost:   cfg.Auth.BcryptCost,
		StoreTimeout: cfg.Auth.StoreTimeout,
	})
	catalogService := service.NewCatalogService(ingredientRepo, cocktailRepo, tagRepo, dispatcher, logger)
	favoritesService := service.NewFavoritesService(favoritesRepo, cocktailRepo, logger)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics,
			handlers.Dependency{Name: "postgres", Pinger: pg},
			handlers.Dependency{Name: "redis", Pinger: redis},
		),
		Users:             handlers.NewUsersHandler(authService),
		Ingredients:       handlers.NewIngredientsHandler(catalogService),
		Cocktails:         handlers.NewCocktailsHandler(catalogService),
		Favorites:         handlers.NewFavoritesHandler(favoritesService),
		Gate:              gate.Handle,
		CredentialLimiter: httptransport.NewRateLimiter(cfg.RateLimit, logger).Handle,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
