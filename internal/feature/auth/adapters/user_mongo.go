package adapters

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"foodshare_backend/internal/feature/auth/domain/entity"
	"foodshare_backend/internal/feature/auth/usecase"
	"foodshare_backend/internal/shared/principal"
)

// userDoc は users コレクションのドキュメントです。
type userDoc struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	Name              string             `bson:"name"`
	Email             string             `bson:"email"`
	Password          string             `bson:"password"`
	Phone             string             `bson:"phone,omitempty"`
	Role              string             `bson:"role"`
	Active            bool               `bson:"active"`
	PasswordChangedAt *time.Time         `bson:"passwordChangedAt,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt"`
}

func toUserDoc(u *entity.User) userDoc {
	return userDoc{
		Name:              u.Name,
		Email:             u.Email,
		Password:          u.PasswordHash,
		Phone:             u.Phone,
		Role:              string(u.Role),
		Active:            u.Active,
		PasswordChangedAt: u.PasswordChangedAt,
		CreatedAt:         u.CreatedAt.UTC(),
		UpdatedAt:         u.UpdatedAt.UTC(),
	}
}

func (d *userDoc) toEntity() *entity.User {
	return &entity.User{
		ID:                d.ID.Hex(),
		Name:              d.Name,
		Email:             d.Email,
		PasswordHash:      d.Password,
		Phone:             d.Phone,
		Role:              principal.Role(d.Role),
		Active:            d.Active,
		PasswordChangedAt: d.PasswordChangedAt,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// UserMongo はUserRepositoryインターフェースのMongoDB実装です。
type UserMongo struct {
	col *mongo.Collection
}

var _ usecase.UserRepository = (*UserMongo)(nil)

// NewUserMongo は users コレクションを使うUserMongoを生成します。
func NewUserMongo(db *mongo.Database) *UserMongo {
	return &UserMongo{col: db.Collection("users")}
}

// EnsureIndexes はメールアドレスの一意インデックスを作成します。
func (s *UserMongo) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// scoped は scope に応じて active 条件を追加します。
func scoped(filter bson.M, scope entity.UserScope) bson.M {
	if scope == entity.ActiveOnly {
		filter["active"] = true
	}
	return filter
}

// Create はユーザーを追加し、ObjectIDを設定します。
func (s *UserMongo) Create(ctx context.Context, u *entity.User) error {
	res, err := s.col.InsertOne(ctx, toUserDoc(u))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return usecase.ErrEmailAlreadyExists
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid.Hex()
	}
	return nil
}

// FindByEmail はメールアドレスでユーザーを取得します。
func (s *UserMongo) FindByEmail(ctx context.Context, email string, scope entity.UserScope) (*entity.User, error) {
	return s.findOne(ctx, scoped(bson.M{"email": email}, scope))
}

// FindByID はIDでユーザーを取得します。ObjectIDとして不正なIDは存在しないものとして扱います。
func (s *UserMongo) FindByID(ctx context.Context, id string, scope entity.UserScope) (*entity.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, usecase.ErrUserNotFound
	}
	return s.findOne(ctx, scoped(bson.M{"_id": oid}, scope))
}

func (s *UserMongo) findOne(ctx context.Context, filter bson.M) (*entity.User, error) {
	var d userDoc
	if err := s.col.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, usecase.ErrUserNotFound
		}
		return nil, err
	}
	return d.toEntity(), nil
}

// UpdatePassword はアクティブなユーザーのパスワードを更新します。
func (s *UserMongo) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	changedAt = changedAt.UTC()
	return s.updateActive(ctx, id, bson.M{
		"password":          hash,
		"passwordChangedAt": changedAt,
		"updatedAt":         changedAt,
	})
}

// Deactivate はアクティブなユーザーを無効化します。
func (s *UserMongo) Deactivate(ctx context.Context, id string, at time.Time) error {
	return s.updateActive(ctx, id, bson.M{"active": false, "updatedAt": at.UTC()})
}

func (s *UserMongo) updateActive(ctx context.Context, id string, set bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return usecase.ErrUserNotFound
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid, "active": true}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return usecase.ErrUserNotFound
	}
	return nil
}
