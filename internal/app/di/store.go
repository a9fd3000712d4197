package di

import (
	"context"
	"fmt"
	"log/slog"

	authadapters "foodshare_backend/internal/feature/auth/adapters"
	authusecase "foodshare_backend/internal/feature/auth/usecase"
	listingadapters "foodshare_backend/internal/feature/listing/adapters"
	listingusecase "foodshare_backend/internal/feature/listing/usecase"
	"foodshare_backend/internal/platform/config"
	"foodshare_backend/internal/platform/db"
	platformmongo "foodshare_backend/internal/platform/mongo"
)

// Store bundles the repositories of the configured persistence engine.
type Store struct {
	Users    authusecase.UserRepository
	Listings listingusecase.ListingRepository
	// Ping checks connectivity for /healthz.
	Ping  func(ctx context.Context) error
	Close func()
}

// OpenStore connects to the engine selected by cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQL, "":
		return openSQLStore(cfg)
	case config.StoreMongo:
		return openMongoStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func openSQLStore(cfg *config.Config) (*Store, error) {
	gdb, err := db.Open(cfg.DB)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	if cfg.RunMigrations {
		if err := authadapters.AutoMigrate(gdb); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("migrate users: %w", err)
		}
		if err := listingadapters.AutoMigrate(gdb); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("migrate listings: %w", err)
		}
	}

	return &Store{
		Users:    authadapters.NewUserGorm(gdb),
		Listings: listingadapters.NewListingGorm(gdb),
		Ping:     sqlDB.PingContext,
		Close: func() {
			if err := sqlDB.Close(); err != nil {
				slog.Error("failed to close database", "error", err)
			}
		},
	}, nil
}

func openMongoStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	client, database, err := platformmongo.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, err
	}
	closeClient := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			slog.Error("failed to disconnect MongoDB", "error", err)
		}
	}

	users := authadapters.NewUserMongo(database)
	listings := listingadapters.NewListingMongo(database)
	if cfg.RunMigrations {
		if err := users.EnsureIndexes(ctx); err != nil {
			closeClient()
			return nil, fmt.Errorf("ensure user indexes: %w", err)
		}
		if err := listings.EnsureIndexes(ctx); err != nil {
			closeClient()
			return nil, fmt.Errorf("ensure listing indexes: %w", err)
		}
	}

	return &Store{
		Users:    users,
		Listings: listings,
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		Close: closeClient,
	}, nil
}
