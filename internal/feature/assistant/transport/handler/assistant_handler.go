// Package handler はassistantフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"foodshare_backend/internal/api"
	"foodshare_backend/internal/feature/assistant/domain/entity"
	"foodshare_backend/internal/feature/assistant/transport/http/dto"
)

// AssistantUsecase はチャットのユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type AssistantUsecase interface {
	Ask(ctx context.Context, message, language string) (*entity.Answer, error)
}

// AssistantHandler はチャットのHTTPリクエストを処理します。
type AssistantHandler struct {
	uc AssistantUsecase
}

// NewAssistantHandler はAssistantHandlerの新しいインスタンスを生成します。
func NewAssistantHandler(uc AssistantUsecase) *AssistantHandler {
	return &AssistantHandler{uc: uc}
}

// Chat は食品ロスに関する質問に回答します。
//
// エンドポイント: POST /api/chat
// リクエストボディ: {"message": "...", "language": "en" | "hi"}
func (h *AssistantHandler) Chat(c *gin.Context) {
	var req dto.ChatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("チャットリクエストの解析に失敗", "error", err, "remote_addr", c.ClientIP())
		api.WriteError(c, api.BindingError(err))
		return
	}

	ans, err := h.uc.Ask(c.Request.Context(), req.Message, req.Language)
	if err != nil {
		slog.Warn("回答の生成に失敗", "error", err, "remote_addr", c.ClientIP())
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewChatRes(ans))
}
