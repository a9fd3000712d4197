// Package router はHTTPルーティングを構成します。
package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"foodshare_backend/internal/api"
	assistanthandler "foodshare_backend/internal/feature/assistant/transport/handler"
	authhandler "foodshare_backend/internal/feature/auth/transport/handler"
	listinghandler "foodshare_backend/internal/feature/listing/transport/handler"
	listingusecase "foodshare_backend/internal/feature/listing/usecase"
	platformhttp "foodshare_backend/internal/platform/http"
	"foodshare_backend/internal/platform/http/handler"
	jwtmw "foodshare_backend/internal/platform/jwt"
	"foodshare_backend/internal/platform/metrics"
	"foodshare_backend/internal/shared/ratelimiter"
)

// imageBodyLimit は画像アップロードのmultipartオーバーヘッドを含めた上限です。
const imageBodyLimit = listingusecase.MaxImageBytes + 64<<10

// Deps はルーターが必要とするハンドラーとミドルウェアの依存です。
type Deps struct {
	Auth      *authhandler.AuthHandler
	Listing   *listinghandler.ListingHandler
	Assistant *assistanthandler.AssistantHandler

	Tokens     jwtmw.TokenParser
	Principals jwtmw.PrincipalResolver
	Limiter    ratelimiter.Limiter
	Metrics    *metrics.HTTPMetrics
	Health     map[string]handler.Check

	// CORSOrigin は許可するオリジンです。"*" または空の場合はすべて許可します。
	CORSOrigin string
}

// NewRouter は全エンドポイントを登録したgin.Engineを返します。
func NewRouter(d Deps) *gin.Engine {
	api.RegisterJSONTagNames()

	r := gin.Default()
	r.Use(cors.New(corsConfig(d.CORSOrigin)))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	// 認証不要
	// 導通確認用
	health := handler.NewHealth(d.Health)
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)

	apiGroup := r.Group("/api")
	if d.Limiter != nil {
		apiGroup.Use(ratelimiter.Middleware(d.Limiter))
	}
	jsonLimit := platformhttp.BodyLimit(platformhttp.DefaultBodyLimit)
	auth := jwtmw.AuthRequired(d.Tokens, d.Principals)

	users := apiGroup.Group("/users")
	{
		// 新規ユーザー登録
		users.POST("/register", jsonLimit, d.Auth.Register)
		// ログイン（JWT 発行）
		users.POST("/login", jsonLimit, d.Auth.Login)

		users.GET("/profile", auth, d.Auth.Profile)
		users.PUT("/password", auth, jsonLimit, d.Auth.ChangePassword)
		users.DELETE("/me", auth, d.Auth.Deactivate)
	}

	listings := apiGroup.Group("/food-waste")
	{
		listings.GET("", d.Listing.List)
		listings.GET("/:id", d.Listing.Get)

		listings.POST("", auth, jsonLimit, d.Listing.Create)
		listings.PUT("/:id", auth, jsonLimit, d.Listing.Update)
		listings.PUT("/:id/claim", auth, d.Listing.Claim)
		listings.PUT("/:id/distribute", auth, d.Listing.Distribute)
		listings.POST("/:id/images", auth, platformhttp.BodyLimit(imageBodyLimit), d.Listing.AttachImage)
		listings.DELETE("/:id", auth, d.Listing.Delete)
	}

	apiGroup.POST("/chat", auth, jsonLimit, d.Assistant.Chat)

	return r
}

func corsConfig(origin string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	cfg.ExposeHeaders = []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}
	if origin == "" || origin == "*" {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = []string{origin}
	return cfg
}
