// Package adapters はauthフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"foodshare_backend/internal/feature/auth/domain/entity"
	"foodshare_backend/internal/feature/auth/usecase"
	"foodshare_backend/internal/shared/principal"
)

// pgUniqueViolation はPostgreSQLの一意制約違反のSQLSTATEです。
const pgUniqueViolation = "23505"

// UserModel は users テーブルの行です。
type UserModel struct {
	ID                string `gorm:"primaryKey;size:36"`
	Name              string `gorm:"size:50;not null"`
	Email             string `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash      string `gorm:"size:255;not null"`
	Phone             string `gorm:"size:32"`
	Role              string `gorm:"size:16;not null;default:user"`
	Active            bool   `gorm:"not null;default:true;index"`
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (UserModel) TableName() string {
	return "users"
}

// AutoMigrate は users テーブルを作成・更新します。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserModel{})
}

func toUserModel(u *entity.User) UserModel {
	return UserModel{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		PasswordHash:      u.PasswordHash,
		Phone:             u.Phone,
		Role:              string(u.Role),
		Active:            u.Active,
		PasswordChangedAt: u.PasswordChangedAt,
		CreatedAt:         u.CreatedAt.UTC(),
		UpdatedAt:         u.UpdatedAt.UTC(),
	}
}

func (m *UserModel) toEntity() *entity.User {
	return &entity.User{
		ID:                m.ID,
		Name:              m.Name,
		Email:             m.Email,
		PasswordHash:      m.PasswordHash,
		Phone:             m.Phone,
		Role:              principal.Role(m.Role),
		Active:            m.Active,
		PasswordChangedAt: m.PasswordChangedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// userGorm はUserRepositoryインターフェースのGORM実装です。
// PostgreSQLとSQLiteの両方で動作します。
type userGorm struct {
	db *gorm.DB
}

// userGormがUserRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.UserRepository = (*userGorm)(nil)

// NewUserGorm は指定されたgorm.DB接続でuserGormの新しいインスタンスを生成します。
func NewUserGorm(db *gorm.DB) *userGorm {
	return &userGorm{db: db}
}

// isDuplicateKey は一意制約違反かどうかを判定します。
// TranslateError有効時はgorm.ErrDuplicatedKey、無効時はpgconnのエラーコードで判定します。
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// Create はユーザーをデータベースに追加し、UUIDを採番します。
// 同じメールアドレスのユーザーが既に存在する場合、usecase.ErrEmailAlreadyExistsを返します。
func (r *userGorm) Create(ctx context.Context, u *entity.User) error {
	m := toUserModel(u)
	m.ID = uuid.NewString()
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isDuplicateKey(err) {
			return usecase.ErrEmailAlreadyExists
		}
		return err
	}
	u.ID = m.ID
	return nil
}

// FindByEmail はメールアドレスでユーザーを取得します。
func (r *userGorm) FindByEmail(ctx context.Context, email string, scope entity.UserScope) (*entity.User, error) {
	return r.first(ctx, scope, "email = ?", email)
}

// FindByID はIDでユーザーを取得します。
func (r *userGorm) FindByID(ctx context.Context, id string, scope entity.UserScope) (*entity.User, error) {
	return r.first(ctx, scope, "id = ?", id)
}

func (r *userGorm) first(ctx context.Context, scope entity.UserScope, query string, arg any) (*entity.User, error) {
	q := r.db.WithContext(ctx).Where(query, arg)
	if scope == entity.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	var m UserModel
	if err := q.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrUserNotFound
		}
		return nil, err
	}
	return m.toEntity(), nil
}

// UpdatePassword はアクティブなユーザーのパスワードハッシュと変更日時を更新します。
func (r *userGorm) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	changedAt = changedAt.UTC()
	return r.updateActive(ctx, id, map[string]any{
		"password_hash":       hash,
		"password_changed_at": changedAt,
		"updated_at":          changedAt,
	})
}

// Deactivate はアクティブなユーザーを無効化します。
func (r *userGorm) Deactivate(ctx context.Context, id string, at time.Time) error {
	return r.updateActive(ctx, id, map[string]any{
		"active":     false,
		"updated_at": at.UTC(),
	})
}

func (r *userGorm) updateActive(ctx context.Context, id string, values map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&UserModel{}).
		Where("id = ? AND active = ?", id, true).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return usecase.ErrUserNotFound
	}
	return nil
}
