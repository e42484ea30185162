// Command seed populates the brand database with example brands. Existing
// brands are deleted first unless -keep is given.
//
// With -token it prints a development access token instead, and with
// -revoke it puts the given token on the Redis revocation list.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/utafrali/brand-service/internal/auth"
	"github.com/utafrali/brand-service/internal/config"
	"github.com/utafrali/brand-service/internal/domain"
	"github.com/utafrali/brand-service/internal/event"
	"github.com/utafrali/brand-service/internal/repository/postgres"
	"github.com/utafrali/brand-service/internal/service"
	"github.com/utafrali/brand-service/migrations"
	"github.com/utafrali/brand-service/pkg/database"
	"github.com/utafrali/brand-service/pkg/logger"
)

func main() {
	keep := flag.Bool("keep", false, "keep existing brands instead of clearing them")
	token := flag.Bool("token", false, "print an access token and exit")
	userID := flag.String("user", "seed-admin", "user ID for -token")
	role := flag.String("role", "admin", "role for -token")
	revoke := flag.String("revoke", "", "revoke the given access token and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("brand-seed", cfg.LogLevel)

	if *token {
		jwtm := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTIssuer)
		if err := issueToken(os.Stdout, jwtm, *userID, *role); err != nil {
			log.Error("failed to issue token", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if *revoke != "" {
		if err := runRevoke(ctx, cfg, *revoke, log); err != nil {
			log.Error("revocation failed", slog.String("error", err.Error()))
			cancel()
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, *keep, log); err != nil {
		log.Error("seeding failed", slog.String("error", err.Error()))
		cancel()
		os.Exit(1)
	}
	log.Info("database seeding completed")
}

func run(ctx context.Context, cfg *config.Config, keep bool, log *slog.Logger) error {
	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL
	pgCfg.MaxConns = 2
	pgCfg.MinConns = 0
	pgCfg.ApplicationName = "brand-seed"

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if !keep {
		log.Info("clearing existing brands")
		tag, err := pool.Exec(ctx, `DELETE FROM brands`)
		if err != nil {
			return fmt.Errorf("clear brands: %w", err)
		}
		log.Info("existing brands cleared", slog.Int64("deleted", tag.RowsAffected()))
	}

	svc := service.NewBrandService(
		pool,
		postgres.NewBrandRepository(nil),
		event.NewProducer(event.NopPublisher{}, log),
		service.Options{MaxPageSize: cfg.MaxPageSize, AcquireTimeout: cfg.DBAcquireTimeout},
		log,
	)

	return seedBrands(ctx, svc, log)
}

// brandCreator is the part of service.BrandService the seeder uses.
type brandCreator interface {
	CreateBrand(ctx context.Context, input *service.CreateBrandInput) (*domain.Brand, error)
}

func seedBrands(ctx context.Context, svc brandCreator, log *slog.Logger) error {
	brands := exampleBrands()
	log.Info("seeding brands", slog.Int("count", len(brands)))

	for i := range brands {
		b, err := svc.CreateBrand(ctx, &brands[i])
		if err != nil {
			return fmt.Errorf("create brand %q: %w", brands[i].Name, err)
		}
		log.Info("brand seeded",
			slog.String("id", b.ID),
			slog.String("name", b.Name),
			slog.Bool("is_active", b.IsActive),
		)
	}
	return nil
}

func exampleBrands() []service.CreateBrandInput {
	brand := func(extID, name, display, description, logo string, active bool) service.CreateBrandInput {
		logoURL := "https://example.com/logos/" + logo + ".png"
		return service.CreateBrandInput{
			ExternalBrandID: &extID,
			Name:            name,
			DisplayName:     &display,
			Description:     &description,
			LogoURL:         &logoURL,
			IsActive:        &active,
		}
	}

	return []service.CreateBrandInput{
		brand("BRAND-001", "apple", "Apple Inc.", "Technology company specializing in consumer electronics, software, and services", "apple", true),
		brand("BRAND-002", "nike", "Nike", "Global athletic footwear and apparel company", "nike", true),
		brand("BRAND-003", "samsung", "Samsung Electronics", "Multinational electronics and technology company", "samsung", true),
		brand("BRAND-004", "coca_cola", "The Coca-Cola Company", "Beverage company known for soft drinks and other beverages", "coca-cola", true),
		brand("BRAND-005", "amazon", "Amazon", "E-commerce and cloud computing company", "amazon", true),
		brand("BRAND-006", "google", "Google LLC", "Technology company specializing in internet services and products", "google", true),
		brand("BRAND-007", "microsoft", "Microsoft Corporation", "Technology company developing software, hardware, and cloud services", "microsoft", true),
		brand("BRAND-008", "starbucks", "Starbucks Corporation", "Coffeehouse chain and coffee roasting company", "starbucks", true),
		brand("BRAND-009", "tesla", "Tesla Inc.", "Electric vehicle and clean energy company", "tesla", true),
		brand("BRAND-010", "mcdonalds", "McDonald's Corporation", "Fast food restaurant chain", "mcdonalds", true),
		brand("BRAND-999", "oldcompany", "Old Company", "Example of an inactive/discontinued brand", "oldcompany", false),
	}
}
