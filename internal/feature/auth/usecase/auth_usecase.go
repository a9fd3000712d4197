package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"foodshare_backend/internal/feature/auth/domain/entity"
	"foodshare_backend/internal/shared/apperr"
	"foodshare_backend/internal/shared/principal"
)

const (
	// minPasswordLength はパスワードの最低文字数を定義します。
	minPasswordLength = 8
	// maxPasswordBytes はbcryptが扱える最大バイト数です。
	maxPasswordBytes = 72
)

// dummyHash はユーザーが存在しない場合のタイミング攻撃緩和用ダミーハッシュです。
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

var phonePattern = regexp.MustCompile(`^\+?[\d\s-]{10,}$`)

// UserRepository はユーザーエンティティの永続化層を抽象化します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type UserRepository interface {
	// Create は新しいユーザーを永続化し、IDを設定します。
	// 同じメールアドレスのユーザーが既に存在する場合、ErrEmailAlreadyExistsを返します。
	Create(ctx context.Context, user *entity.User) error

	// FindByEmail は小文字化済みのメールアドレスでユーザーを取得します。
	// scope に含まれないユーザーはErrUserNotFoundとして扱います。
	FindByEmail(ctx context.Context, email string, scope entity.UserScope) (*entity.User, error)

	// FindByID はIDでユーザーを取得します。
	// scope に含まれないユーザーはErrUserNotFoundとして扱います。
	FindByID(ctx context.Context, id string, scope entity.UserScope) (*entity.User, error)

	// UpdatePassword はアクティブなユーザーのパスワードハッシュと変更日時を更新します。
	UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error

	// Deactivate はアクティブなユーザーを無効化します。
	Deactivate(ctx context.Context, id string, at time.Time) error
}

// TokenGenerator はJWTトークン生成のインターフェースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（platform/jwt）ではなくコンシューマー（usecase）が定義します。
type TokenGenerator interface {
	// GenerateToken は指定されたユーザーの署名済みJWTトークンを生成します。
	GenerateToken(userID, email string, role principal.Role) (string, error)
}

// RegisterInput はユーザー登録の入力です。
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// AuthResult は認証に成功したユーザーと発行したトークンです。
type AuthResult struct {
	User  *entity.User
	Token string
}

// AuthUsecase は認証・アカウント管理のビジネスロジックを実装します。
type AuthUsecase struct {
	users    UserRepository
	tokens   TokenGenerator
	validate *validator.Validate
	now      func() time.Time
}

// NewAuthUsecase はAuthUsecaseの新しいインスタンスを生成します。
func NewAuthUsecase(users UserRepository, tokens TokenGenerator) *AuthUsecase {
	return &AuthUsecase{
		users:    users,
		tokens:   tokens,
		validate: validator.New(),
		now:      time.Now,
	}
}

// normalizeEmail はメールアドレスを比較用に正規化します。
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validatePassword はパスワードがセキュリティ要件を満たしているかチェックします。
func validatePassword(password string) string {
	if len(password) < minPasswordLength {
		return fmt.Sprintf("must be at least %d characters long", minPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Sprintf("must be at most %d bytes long", maxPasswordBytes)
	}
	return ""
}

// Register はハッシュ化されたパスワードで新規ユーザーを登録し、トークンを発行します。
// 登録時のロールは常に user です。
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	phone := strings.TrimSpace(in.Phone)

	fields := map[string]string{}
	switch {
	case name == "":
		fields["name"] = "is required"
	case utf8.RuneCountInString(name) > entity.MaxNameLength:
		fields["name"] = fmt.Sprintf("must be at most %d characters", entity.MaxNameLength)
	}
	if email == "" {
		fields["email"] = "is required"
	} else if err := u.validate.Var(email, "email"); err != nil {
		fields["email"] = "must be a valid email address"
	}
	if in.Password == "" {
		fields["password"] = "is required"
	} else if msg := validatePassword(in.Password); msg != "" {
		fields["password"] = msg
	}
	if phone != "" && !phonePattern.MatchString(phone) {
		fields["phone"] = "must be a valid phone number"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid registration", fields)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := u.now()
	user := &entity.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
		Phone:        phone,
		Role:         principal.RoleUser,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			return nil, apperr.Conflict("user already exists")
		}
		return nil, apperr.Store(err)
	}

	return u.issue(user)
}

// Login はユーザーを認証し、成功時にJWTトークンを返します。
// タイミング攻撃を防止するため、ユーザーが存在しない場合でもbcrypt比較を実行します。
// 無効化されたユーザーは存在しないユーザーと同じく扱います。
func (u *AuthUsecase) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		fields := map[string]string{}
		if email == "" {
			fields["email"] = "is required"
		}
		if password == "" {
			fields["password"] = "is required"
		}
		return nil, apperr.Validation("email and password are required", fields)
	}

	user, err := u.users.FindByEmail(ctx, email, entity.ActiveOnly)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, apperr.Store(err)
	}

	passwordHash := dummyHash
	if err == nil {
		passwordHash = user.PasswordHash
	}

	// タイミング攻撃防止のため、常にパスワードを検証
	compareErr := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))

	// ユーザー未検出またはパスワード不一致の場合、汎用エラーを返す
	if err != nil || compareErr != nil {
		return nil, apperr.Unauthorized("invalid credentials")
	}

	return u.issue(user)
}

// Profile はアクティブなユーザーを取得します。
func (u *AuthUsecase) Profile(ctx context.Context, userID string) (*entity.User, error) {
	user, err := u.users.FindByID(ctx, userID, entity.ActiveOnly)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Store(err)
	}
	return user, nil
}

// ChangePassword は現在のパスワードを検証して新しいパスワードに置き換え、新しいトークンを返します。
// 変更前に発行されたトークンは以後ResolvePrincipalで拒否されます。
func (u *AuthUsecase) ChangePassword(ctx context.Context, userID, current, next string) (*AuthResult, error) {
	fields := map[string]string{}
	if current == "" {
		fields["currentPassword"] = "is required"
	}
	if next == "" {
		fields["newPassword"] = "is required"
	} else if msg := validatePassword(next); msg != "" {
		fields["newPassword"] = msg
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid password change", fields)
	}

	user, err := u.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return nil, apperr.Unauthorized("current password is incorrect")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := u.now()
	if err := u.users.UpdatePassword(ctx, user.ID, string(hashed), now); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Store(err)
	}
	user.PasswordHash = string(hashed)
	user.PasswordChangedAt = &now
	user.UpdatedAt = now

	return u.issue(user)
}

// Deactivate はユーザーを論理削除します。以後ログインと認証はできません。
func (u *AuthUsecase) Deactivate(ctx context.Context, userID string) error {
	if err := u.users.Deactivate(ctx, userID, u.now()); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Store(err)
	}
	return nil
}

// ResolvePrincipal は検証済みトークンの主体を現在のユーザーレコードと照合します。
// ユーザーが存在しない・無効化済み・トークン発行後にパスワード変更済みの場合は拒否します。
// ロールはトークンではなく保存されたレコードから取得します。
func (u *AuthUsecase) ResolvePrincipal(ctx context.Context, userID string, issuedAt time.Time) (principal.Principal, error) {
	user, err := u.users.FindByID(ctx, userID, entity.ActiveOnly)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return principal.Principal{}, apperr.Unauthorized("the user belonging to this token no longer exists")
		}
		return principal.Principal{}, apperr.Store(err)
	}
	if user.ChangedPasswordAfter(issuedAt) {
		return principal.Principal{}, apperr.Unauthorized("password changed recently, please log in again")
	}
	if !user.Role.Valid() {
		return principal.Principal{}, apperr.Unauthorized("unknown role")
	}
	return user.Principal(), nil
}

// ActiveUser はアクティブなユーザーを返します。存在しない場合はnilを返し、エラーにはしません。
func (u *AuthUsecase) ActiveUser(ctx context.Context, userID string) (*entity.User, error) {
	user, err := u.users.FindByID(ctx, userID, entity.ActiveOnly)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (u *AuthUsecase) issue(user *entity.User) (*AuthResult, error) {
	token, err := u.tokens.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
