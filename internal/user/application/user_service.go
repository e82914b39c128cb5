package application

import (
	"context"
	"time"

	"github.com/wyfcoding/ecommerce/internal/user/domain"
	"github.com/wyfcoding/ecommerce/pkg/errorsx"
	"github.com/wyfcoding/ecommerce/pkg/logger"
	"github.com/wyfcoding/ecommerce/pkg/utils"
)

// UpdateProfileCommand 为 nil 的字段不修改
type UpdateProfileCommand struct {
	Phone          *string
	FirstName      *string
	LastName       *string
	Bio            *string
	Gender         *string
	Address        *string
	ProfilePicture *string
	DateOfBirth    *time.Time
}

// AdminUpdateUserCommand 管理员修改用户
type AdminUpdateUserCommand struct {
	Role       *string
	Phone      *string
	IsVerified *bool
}

// UserService 个人资料与管理员用户管理
type UserService struct {
	repo domain.UserRepository
}

func NewUserService(repo domain.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) load(ctx context.Context, id uint) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errorsx.NotFound("User not found")
	}
	return user, nil
}

// GetProfile 当前用户信息
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ToUserDTO(user), nil
}

// UpdateProfile 更新当前用户资料
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, cmd UpdateProfileCommand) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if cmd.Phone != nil {
		user.Phone = *cmd.Phone
		if err := s.repo.Save(ctx, user); err != nil {
			return nil, err
		}
	}

	p := user.Profile
	if p == nil {
		p = &domain.Profile{UserID: user.ID}
		user.Profile = p
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.FirstName, cmd.FirstName)
	set(&p.LastName, cmd.LastName)
	set(&p.Bio, cmd.Bio)
	set(&p.Gender, cmd.Gender)
	set(&p.Address, cmd.Address)
	set(&p.ProfilePicture, cmd.ProfilePicture)
	if cmd.DateOfBirth != nil {
		p.DateOfBirth = cmd.DateOfBirth
	}
	if err := s.repo.SaveProfile(ctx, p); err != nil {
		return nil, err
	}
	return ToUserDTO(user), nil
}

// ListUsers 管理员分页查询
func (s *UserService) ListUsers(ctx context.Context, page, limit int) ([]*UserDTO, utils.Pagination, error) {
	page, limit = utils.NormalizePage(page, limit, 10, 100)
	users, total, err := s.repo.List(ctx, utils.Offset(page, limit), limit)
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	return ToUserDTOs(users), utils.NewPagination(page, limit, total), nil
}

// GetUser 管理员查看用户
func (s *UserService) GetUser(ctx context.Context, id uint) (*UserDTO, error) {
	return s.GetProfile(ctx, id)
}

// UpdateUser 管理员修改角色、电话与验证状态
func (s *UserService) UpdateUser(ctx context.Context, id uint, cmd AdminUpdateUserCommand) (*UserDTO, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if cmd.Role != nil {
		role := domain.Role(*cmd.Role)
		if !role.Valid() {
			return nil, errorsx.Validation("Invalid role")
		}
		user.Role = role
	}
	if cmd.Phone != nil {
		user.Phone = *cmd.Phone
	}
	if cmd.IsVerified != nil {
		user.IsVerified = *cmd.IsVerified
	}
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}
	logger.Info(ctx, "user updated by admin", "user_id", id, "role", user.Role)
	return ToUserDTO(user), nil
}

// DeleteUser 管理员删除用户，不允许删除自己
func (s *UserService) DeleteUser(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return errorsx.InvalidState("You cannot delete your own account")
	}
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
