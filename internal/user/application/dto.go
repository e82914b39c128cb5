package application

import (
	"time"

	"github.com/wyfcoding/ecommerce/internal/user/domain"
)

// ProfileDTO 用户资料
type ProfileDTO struct {
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Bio            string     `json:"bio"`
	Gender         string     `json:"gender"`
	Address        string     `json:"address"`
	ProfilePicture string     `json:"profilePicture"`
	DateOfBirth    *time.Time `json:"dateOfBirth"`
}

// UserDTO 对外暴露的用户信息，不含密码与重置状态
type UserDTO struct {
	ID         uint        `json:"id"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone"`
	Role       string      `json:"role"`
	IsVerified bool        `json:"isVerified"`
	Profile    *ProfileDTO `json:"profile,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// ToUserDTO 转换为 DTO
func ToUserDTO(u *domain.User) *UserDTO {
	if u == nil {
		return nil
	}
	dto := &UserDTO{
		ID:         u.ID,
		Email:      u.Email,
		Phone:      u.Phone,
		Role:       string(u.Role),
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
	if p := u.Profile; p != nil {
		dto.Profile = &ProfileDTO{
			FirstName:      p.FirstName,
			LastName:       p.LastName,
			Bio:            p.Bio,
			Gender:         p.Gender,
			Address:        p.Address,
			ProfilePicture: p.ProfilePicture,
			DateOfBirth:    p.DateOfBirth,
		}
	}
	return dto
}

// ToUserDTOs 批量转换
func ToUserDTOs(users []*domain.User) []*UserDTO {
	out := make([]*UserDTO, len(users))
	for i, u := range users {
		out[i] = ToUserDTO(u)
	}
	return out
}

// LoginResult 登录结果
type LoginResult struct {
	Token string   `json:"token"`
	User  *UserDTO `json:"user"`
}
