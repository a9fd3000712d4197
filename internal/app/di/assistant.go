package di

import (
	"context"
	"log/slog"

	"foodshare_backend/internal/feature/assistant/adapters/gemini"
	"foodshare_backend/internal/feature/assistant/usecase"
	"foodshare_backend/internal/platform/config"
	infrahttp "foodshare_backend/internal/platform/http"
)

// NewGenerator creates a Gemini-backed Generator with its own HTTP client.
// It returns nil when the assistant is disabled or the client cannot be created,
// in which case chat requests fail with an upstream error.
func NewGenerator(ctx context.Context, cfg *config.Config) usecase.Generator {
	if !cfg.AssistantEnabled {
		slog.Info("assistant disabled")
		return nil
	}
	httpClient := infrahttp.NewHTTPClient(cfg.AITimeout)
	gen, err := gemini.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, httpClient)
	if err != nil {
		slog.Warn("assistant unavailable", "error", err)
		return nil
	}
	return gen
}
