package domain

import (
	"context"
	"time"
)

// UserRepository 用户仓储，未找到时返回 nil, nil
type UserRepository interface {
	// Create 同时写入 Profile
	Create(ctx context.Context, user *User) error
	// Save 只更新 users 表字段
	Save(ctx context.Context, user *User) error
	SaveProfile(ctx context.Context, profile *Profile) error
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*User, error)
	List(ctx context.Context, offset, limit int) ([]*User, int64, error)
	ListByRole(ctx context.Context, role Role) ([]*User, error)
	Delete(ctx context.Context, id uint) error
}

// PasswordHasher 密码哈希
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// OTPProvider 基于时间的一次性密码
type OTPProvider interface {
	GenerateSecret(account string) (string, error)
	Code(secret string, at time.Time) (string, error)
	Validate(code, secret string, at time.Time) bool
	Period() time.Duration
}
