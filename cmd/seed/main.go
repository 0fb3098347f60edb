package main

import (
	"context"
	"log"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/xue-yuan/dionysus/internal/config"
	"github.com/xue-yuan/dionysus/internal/observability"
	"github.com/xue-yuan/dionysus/internal/persistence"
	"github.com/xue-yuan/dionysus/internal/repository"
)

func main() {
	file := pflag.StringP("file", "f", "cmd/seed/seed_data.json", "seed file (YAML or JSON)")
	migrate := pflag.Bool("migrate", true, "apply SQL migrations before seeding")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	data, err := loadSeedFile(*file)
	if err != nil {
		logger.Fatal("failed to load seed data", zap.Error(err))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if *migrate {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	s := &seeder{
		ingredients: repository.NewIngredientRepository(pg.PoolHandle()),
		cocktails:   repository.NewCocktailRepository(pg.PoolHandle()),
		logger:      logger,
	}
	result, err := s.Run(ctx, data)
	if err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}
	logger.Info("seeding finished",
		zap.String("file", *file),
		zap.Int("ingredients", result.Ingredients),
		zap.Int("cocktails_created", result.CocktailsCreated),
		zap.Int("cocktails_skipped", result.CocktailsSkipped),
	)
}
