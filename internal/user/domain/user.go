// Package domain 用户上下文：账户、资料、角色与密码重置流程。
package domain

import (
	"strings"
	"time"
)

// Role 用户角色
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// Valid 是否为已知角色
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCustomer
}

// User 用户聚合根
type User struct {
	ID         uint
	Email      string
	Password   string // bcrypt 哈希
	Phone      string
	Role       Role
	IsVerified bool
	// 重置密码：OTP 密钥与校验通过后的有效期
	ResetSecret      string
	ResetVerifiedTil *time.Time
	Profile          *Profile
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Profile 用户资料，与 User 一对一
type Profile struct {
	ID             uint
	UserID         uint
	FirstName      string
	LastName       string
	Bio            string
	Gender         string
	Address        string
	ProfilePicture string
	DateOfBirth    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewUser 创建用户，邮箱统一小写
func NewUser(email, passwordHash, phone string, role Role) *User {
	return &User{
		Email:    NormalizeEmail(email),
		Password: passwordHash,
		Phone:    phone,
		Role:     role,
		Profile:  &Profile{},
	}
}

// NormalizeEmail 去空白并转小写
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayName 用于邮件称呼
func (u *User) DisplayName() string {
	if u.Profile != nil {
		name := strings.TrimSpace(u.Profile.FirstName + " " + u.Profile.LastName)
		if name != "" {
			return name
		}
	}
	return u.Email
}

// StartPasswordReset 生成新的 OTP 密钥，之前的校验结果作废
func (u *User) StartPasswordReset(secret string) {
	u.ResetSecret = secret
	u.ResetVerifiedTil = nil
}

// MarkResetVerified OTP 校验通过，window 内允许设置新密码
func (u *User) MarkResetVerified(now time.Time, window time.Duration) {
	until := now.Add(window)
	u.ResetVerifiedTil = &until
}

// CanResetPassword 是否处于 OTP 校验通过后的有效期内
func (u *User) CanResetPassword(now time.Time) bool {
	return u.ResetSecret != "" && u.ResetVerifiedTil != nil && now.Before(*u.ResetVerifiedTil)
}

// CompletePasswordReset 设置新密码并清除重置状态
func (u *User) CompletePasswordReset(passwordHash string) {
	u.Password = passwordHash
	u.ResetSecret = ""
	u.ResetVerifiedTil = nil
}
