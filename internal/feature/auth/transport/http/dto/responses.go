package dto

import (
	"time"

	"foodshare_backend/internal/feature/auth/domain/entity"
)

// UserRes はパスワードハッシュを除いたユーザー表現です。
type UserRes struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AuthRes は登録・ログイン・パスワード変更のレスポンスです。
type AuthRes struct {
	Success bool    `json:"success"`
	Token   string  `json:"token"`
	User    UserRes `json:"user"`
	Message string  `json:"message,omitempty"`
}

// ProfileRes は /api/users/profile のレスポンスです。
type ProfileRes struct {
	Success bool    `json:"success"`
	User    UserRes `json:"user"`
}

// NewUserRes はエンティティからレスポンスを組み立てます。
func NewUserRes(u *entity.User) UserRes {
	return UserRes{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      string(u.Role),
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
