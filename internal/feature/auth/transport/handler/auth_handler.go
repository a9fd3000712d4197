// Package handler はauthフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"foodshare_backend/internal/api"
	"foodshare_backend/internal/feature/auth/domain/entity"
	"foodshare_backend/internal/feature/auth/transport/http/dto"
	"foodshare_backend/internal/feature/auth/usecase"
	jwtmw "foodshare_backend/internal/platform/jwt"
	"foodshare_backend/internal/shared/apperr"
	"foodshare_backend/internal/shared/principal"
)

// AuthUsecase は認証操作のユースケースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（usecase）ではなくコンシューマー（handler）が定義します。
type AuthUsecase interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*usecase.AuthResult, error)
	Login(ctx context.Context, email, password string) (*usecase.AuthResult, error)
	Profile(ctx context.Context, userID string) (*entity.User, error)
	ChangePassword(ctx context.Context, userID, current, next string) (*usecase.AuthResult, error)
	Deactivate(ctx context.Context, userID string) error
}

// AuthHandler は認証・アカウント操作のHTTPリクエストを処理します。
type AuthHandler struct {
	auth AuthUsecase
}

// NewAuthHandler はAuthHandlerの新しいインスタンスを生成します。
func NewAuthHandler(auth AuthUsecase) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register はユーザー登録APIエンドポイントを処理します。
// - バリデーションエラー時は400
// - メール重複時は409
// - 成功時はトークン付きで201
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("register validation failed", "error", err, "remote_addr", c.ClientIP())
		api.WriteError(c, api.BindingError(err))
		return
	}
	res, err := h.auth.Register(c.Request.Context(), usecase.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		slog.Warn("register failed", "error", err, "remote_addr", c.ClientIP())
		api.WriteError(c, err)
		return
	}
	slog.Info("user registered", "user_id", res.User.ID, "remote_addr", c.ClientIP())
	c.JSON(http.StatusCreated, dto.AuthRes{
		Success: true,
		Token:   res.Token,
		User:    dto.NewUserRes(res.User),
		Message: "User registered successfully.",
	})
}

// Login はユーザーログインAPIエンドポイントを処理します。
// 認証失敗時はユーザー列挙攻撃を防止するため、理由を区別せず401を返します。
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("login validation failed", "error", err, "remote_addr", c.ClientIP())
		api.WriteError(c, api.BindingError(err))
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		slog.Warn("login failed", "error", err, "remote_addr", c.ClientIP())
		api.WriteError(c, err)
		return
	}
	slog.Info("user login successful", "user_id", res.User.ID, "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, dto.AuthRes{
		Success: true,
		Token:   res.Token,
		User:    dto.NewUserRes(res.User),
		Message: "Logged in successfully.",
	})
}

// Profile は認証済みユーザー自身のプロフィールを返します。
func (h *AuthHandler) Profile(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	user, err := h.auth.Profile(c.Request.Context(), p.UserID)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ProfileRes{Success: true, User: dto.NewUserRes(user)})
}

// ChangePassword は現在のパスワードを検証して新しいパスワードを設定し、新しいトークンを返します。
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req dto.ChangePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		api.WriteError(c, api.BindingError(err))
		return
	}
	res, err := h.auth.ChangePassword(c.Request.Context(), p.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		slog.Warn("password change failed", "user_id", p.UserID, "error", err, "remote_addr", c.ClientIP())
		api.WriteError(c, err)
		return
	}
	slog.Info("password changed", "user_id", p.UserID, "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, dto.AuthRes{
		Success: true,
		Token:   res.Token,
		User:    dto.NewUserRes(res.User),
		Message: "Password updated successfully.",
	})
}

// Deactivate は認証済みユーザー自身のアカウントを無効化します。
func (h *AuthHandler) Deactivate(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	if err := h.auth.Deactivate(c.Request.Context(), p.UserID); err != nil {
		api.WriteError(c, err)
		return
	}
	slog.Info("user deactivated", "user_id", p.UserID, "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, api.MessageResponse{Success: true, Message: "Account deactivated."})
}

// caller は認証ミドルウェアが設定したプリンシパルを取得します。
// 見つからない場合は401を書き込みfalseを返します。
func caller(c *gin.Context) (principal.Principal, bool) {
	p, ok := jwtmw.PrincipalFrom(c)
	if !ok {
		api.WriteError(c, apperr.Unauthorized("not authorized"))
	}
	return p, ok
}
