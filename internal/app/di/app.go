// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"foodshare_backend/internal/app/router"
	assistanthandler "foodshare_backend/internal/feature/assistant/transport/handler"
	assistantusecase "foodshare_backend/internal/feature/assistant/usecase"
	authhandler "foodshare_backend/internal/feature/auth/transport/handler"
	authusecase "foodshare_backend/internal/feature/auth/usecase"
	"foodshare_backend/internal/feature/listing/adapters/vision"
	listinghandler "foodshare_backend/internal/feature/listing/transport/handler"
	listingusecase "foodshare_backend/internal/feature/listing/usecase"
	"foodshare_backend/internal/platform/cache"
	"foodshare_backend/internal/platform/config"
	"foodshare_backend/internal/platform/events"
	"foodshare_backend/internal/platform/http/handler"
	jwtmw "foodshare_backend/internal/platform/jwt"
	"foodshare_backend/internal/platform/metrics"
	infraredis "foodshare_backend/internal/platform/redis"
	"foodshare_backend/internal/platform/storage"
)

// App is the assembled HTTP service.
type App struct {
	Router  *gin.Engine
	closers []func()
}

// Close releases every connection opened by NewApp in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// NewApp wires stores, optional integrations, usecases and handlers.
// Optional integrations (Redis, MinIO, Vision, NATS, Gemini) are skipped with a warning when unavailable.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, store.Close)
	checks := map[string]handler.Check{"store": store.Ping}

	// Redis
	rdb := NewRedisClient(ctx, cfg)
	if rdb != nil {
		app.closers = append(app.closers, func() {
			if err := rdb.Close(); err != nil {
				slog.Error("Failed to close Redis client", "error", err)
			}
		})
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// Usecase: auth
	tokens := jwtmw.NewTokenService(cfg.JWTSecret, cfg.JWTExpiration)
	authUC := authusecase.NewAuthUsecase(store.Users, tokens)

	// Usecase: listing
	opts := []listingusecase.Option{
		listingusecase.WithOwnerDirectory(&ownerDirectory{users: authUC}),
		listingusecase.WithAllowSelfClaim(cfg.AllowSelfClaim),
	}
	if cfg.MinioEndpoint != "" {
		images, err := storage.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			slog.Warn("MinIO unavailable. Image uploads disabled.", "error", err)
		} else {
			opts = append(opts, listingusecase.WithImageStore(images))
			checks["storage"] = images.Ping
		}
	}
	if cfg.VisionEnabled {
		labeler, err := vision.NewVisionLabeler(ctx)
		if err != nil {
			slog.Warn("Vision unavailable. Images will not be labelled.", "error", err)
		} else {
			opts = append(opts, listingusecase.WithImageLabeler(labeler))
			app.closers = append(app.closers, func() { _ = labeler.Close() })
		}
	}
	if cfg.NatsURL != "" {
		pub, err := events.NewNatsPublisher(cfg.NatsURL, "foodshare")
		if err != nil {
			slog.Warn("NATS unavailable. Listing events disabled.", "error", err)
		} else {
			opts = append(opts, listingusecase.WithEventPublisher(pub))
			app.closers = append(app.closers, pub.Close)
		}
	}

	// Redisキャッシュでラップ
	listings := cache.NewCachingListingRepository(rdb, cfg.ListingCacheTTL, store.Listings, "listings")
	listingUC := listingusecase.NewListingUsecase(listings, opts...)

	// Usecase: assistant
	assistantUC := assistantusecase.NewAssistantUsecase(NewGenerator(ctx, cfg), cfg.AITimeout)

	app.Router = router.NewRouter(router.Deps{
		Auth:       authhandler.NewAuthHandler(authUC),
		Listing:    listinghandler.NewListingHandler(listingUC),
		Assistant:  assistanthandler.NewAssistantHandler(assistantUC),
		Tokens:     tokens,
		Principals: authUC,
		Limiter:    NewRateLimiter(rdb, cfg),
		Metrics:    metrics.New(),
		Health:     checks,
		CORSOrigin: cfg.CORSOrigin,
	})
	return app, nil
}

// NewListingUsecase wires the listing usecase for batch jobs, without HTTP-only integrations.
func NewListingUsecase(ctx context.Context, cfg *config.Config) (*listingusecase.ListingUsecase, func(), error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closers := []func(){store.Close}

	var opts []listingusecase.Option
	if cfg.NatsURL != "" {
		pub, err := events.NewNatsPublisher(cfg.NatsURL, "foodshare")
		if err != nil {
			slog.Warn("NATS unavailable. Listing events disabled.", "error", err)
		} else {
			opts = append(opts, listingusecase.WithEventPublisher(pub))
			closers = append(closers, pub.Close)
		}
	}

	rdb := NewRedisClient(ctx, cfg)
	if rdb != nil {
		closers = append(closers, func() { _ = rdb.Close() })
	}
	listings := cache.NewCachingListingRepository(rdb, cfg.ListingCacheTTL, store.Listings, "listings")

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return listingusecase.NewListingUsecase(listings, opts...), closeAll, nil
}

// NewRedisClient connects to Redis, or returns nil when it is not configured or unreachable.
func NewRedisClient(ctx context.Context, cfg *config.Config) *redis.Client {
	rdb, err := infraredis.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		if errors.Is(err, infraredis.ErrNotConfigured) {
			slog.Info("Redis not configured. Running without cache.")
		} else {
			slog.Warn("Redis unavailable. Running without cache.", "error", err)
		}
		return nil
	}
	return rdb
}
