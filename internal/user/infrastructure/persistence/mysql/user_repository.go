// Package mysql 用户仓储的 GORM 实现
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wyfcoding/ecommerce/internal/user/domain"
	"github.com/wyfcoding/ecommerce/pkg/db"
	"github.com/wyfcoding/ecommerce/pkg/logger"
)

// UserModel users 表
type UserModel struct {
	ID               uint          `gorm:"primaryKey;autoIncrement"`
	Email            string        `gorm:"column:email;type:varchar(255);uniqueIndex;not null;comment:登录邮箱"`
	Password         string        `gorm:"column:password;type:varchar(255);not null;comment:bcrypt 哈希"`
	Phone            string        `gorm:"column:phone;type:varchar(32)"`
	Role             string        `gorm:"column:role;type:varchar(20);index;not null;default:'customer'"`
	IsVerified       bool          `gorm:"column:is_verified;not null;default:false"`
	ResetSecret      string        `gorm:"column:reset_secret;type:varchar(64);comment:重置密码 OTP 密钥"`
	ResetVerifiedTil *time.Time    `gorm:"column:reset_verified_until"`
	Profile          *ProfileModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time     `gorm:"column:created_at"`
	UpdatedAt        time.Time     `gorm:"column:updated_at"`
}

func (UserModel) TableName() string { return "users" }

// ProfileModel profiles 表
type ProfileModel struct {
	ID             uint       `gorm:"primaryKey;autoIncrement"`
	UserID         uint       `gorm:"column:user_id;uniqueIndex;not null"`
	FirstName      string     `gorm:"column:first_name;type:varchar(100)"`
	LastName       string     `gorm:"column:last_name;type:varchar(100)"`
	Bio            string     `gorm:"column:bio;type:text"`
	Gender         string     `gorm:"column:gender;type:varchar(20)"`
	Address        string     `gorm:"column:address;type:text"`
	ProfilePicture string     `gorm:"column:profile_picture;type:varchar(512)"`
	DateOfBirth    *time.Time `gorm:"column:date_of_birth"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

func (ProfileModel) TableName() string { return "profiles" }

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储
func NewUserRepository(gdb *gorm.DB) domain.UserRepository {
	return &userRepository{db: gdb}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	m := toUserModel(user)
	if m.Profile == nil {
		m.Profile = &ProfileModel{}
	}
	if err := db.Conn(ctx, r.db).Create(m).Error; err != nil {
		logger.Error(ctx, "user_repository.create failed", "email", user.Email, "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}
	*user = *toUser(m)
	return nil
}

func (r *userRepository) Save(ctx context.Context, user *domain.User) error {
	m := toUserModel(user)
	m.Profile = nil
	if err := db.Conn(ctx, r.db).Omit("Profile").Save(m).Error; err != nil {
		logger.Error(ctx, "user_repository.save failed", "user_id", user.ID, "error", err)
		return fmt.Errorf("failed to save user: %w", err)
	}
	user.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *userRepository) SaveProfile(ctx context.Context, profile *domain.Profile) error {
	m := toProfileModel(profile)
	if err := db.Conn(ctx, r.db).Save(m).Error; err != nil {
		logger.Error(ctx, "user_repository.save_profile failed", "user_id", profile.UserID, "error", err)
		return fmt.Errorf("failed to save profile: %w", err)
	}
	profile.ID = m.ID
	profile.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", domain.NormalizeEmail(email))
}

func (r *userRepository) first(ctx context.Context, query string, arg any) (*domain.User, error) {
	var m UserModel
	if err := db.Conn(ctx, r.db).Preload("Profile").Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return toUser(&m), nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []uint) ([]*domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []UserModel
	if err := db.Conn(ctx, r.db).Preload("Profile").Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return toUsers(models), nil
}

func (r *userRepository) List(ctx context.Context, offset, limit int) ([]*domain.User, int64, error) {
	var (
		models []UserModel
		total  int64
	)
	q := db.Conn(ctx, r.db).Model(&UserModel{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}
	if err := q.Preload("Profile").Order("id asc").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		logger.Error(ctx, "user_repository.list failed", "error", err)
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return toUsers(models), total, nil
}

func (r *userRepository) ListByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	var models []UserModel
	if err := db.Conn(ctx, r.db).Preload("Profile").Where("role = ?", string(role)).Order("id asc").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	return toUsers(models), nil
}

// Delete 先删资料再删用户
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	conn := db.Conn(ctx, r.db)
	if err := conn.Where("user_id = ?", id).Delete(&ProfileModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if err := conn.Delete(&UserModel{}, id).Error; err != nil {
		logger.Error(ctx, "user_repository.delete failed", "user_id", id, "error", err)
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func toUserModel(u *domain.User) *UserModel {
	m := &UserModel{
		ID:               u.ID,
		Email:            u.Email,
		Password:         u.Password,
		Phone:            u.Phone,
		Role:             string(u.Role),
		IsVerified:       u.IsVerified,
		ResetSecret:      u.ResetSecret,
		ResetVerifiedTil: u.ResetVerifiedTil,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
	if u.Profile != nil {
		m.Profile = toProfileModel(u.Profile)
	}
	return m
}

func toProfileModel(p *domain.Profile) *ProfileModel {
	return &ProfileModel{
		ID:             p.ID,
		UserID:         p.UserID,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Bio:            p.Bio,
		Gender:         p.Gender,
		Address:        p.Address,
		ProfilePicture: p.ProfilePicture,
		DateOfBirth:    p.DateOfBirth,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func toUser(m *UserModel) *domain.User {
	u := &domain.User{
		ID:               m.ID,
		Email:            m.Email,
		Password:         m.Password,
		Phone:            m.Phone,
		Role:             domain.Role(m.Role),
		IsVerified:       m.IsVerified,
		ResetSecret:      m.ResetSecret,
		ResetVerifiedTil: m.ResetVerifiedTil,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	if m.Profile != nil {
		u.Profile = &domain.Profile{
			ID:             m.Profile.ID,
			UserID:         m.Profile.UserID,
			FirstName:      m.Profile.FirstName,
			LastName:       m.Profile.LastName,
			Bio:            m.Profile.Bio,
			Gender:         m.Profile.Gender,
			Address:        m.Profile.Address,
			ProfilePicture: m.Profile.ProfilePicture,
			DateOfBirth:    m.Profile.DateOfBirth,
			CreatedAt:      m.Profile.CreatedAt,
			UpdatedAt:      m.Profile.UpdatedAt,
		}
	}
	return u
}

func toUsers(models []UserModel) []*domain.User {
	out := make([]*domain.User, len(models))
	for i := range models {
		out[i] = toUser(&models[i])
	}
	return out
}
