// Package dto はassistantフィーチャーのリクエスト・レスポンス型を定義します。
package dto

import "foodshare_backend/internal/feature/assistant/domain/entity"

// ChatReq はチャットリクエストです。language は省略時に英語になります。
type ChatReq struct {
	Message  string `json:"message" binding:"required"`
	Language string `json:"language"`
}

// ChatRes はチャットのレスポンスです。
type ChatRes struct {
	Success  bool   `json:"success"`
	Language string `json:"language"`
	Answer   string `json:"answer"`
}

// NewChatRes はAnswerからレスポンスを組み立てます。
func NewChatRes(a *entity.Answer) ChatRes {
	return ChatRes{Success: true, Language: string(a.Language), Answer: a.Text}
}
