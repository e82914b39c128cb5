package application

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	notification "github.com/wyfcoding/ecommerce/internal/notification/domain"
	"github.com/wyfcoding/ecommerce/internal/user/domain"
	"github.com/wyfcoding/ecommerce/pkg/db"
	"github.com/wyfcoding/ecommerce/pkg/errorsx"
	"github.com/wyfcoding/ecommerce/pkg/logger"
	"github.com/wyfcoding/ecommerce/pkg/token"
)

const minPasswordLength = 6

// AuthSettings 认证相关参数
type AuthSettings struct {
	AccessTokenTTL           time.Duration
	VerifyTokenTTL           time.Duration
	ResetWindow              time.Duration
	RequireEmailVerification bool
	VerifyURL                string
}

// RegisterCommand 注册命令
type RegisterCommand struct {
	Email     string
	Password  string
	Phone     string
	FirstName string
	LastName  string
}

// RegisterResult Resent 为 true 表示邮箱已注册但未验证，本次只重发验证邮件
type RegisterResult struct {
	User   *UserDTO
	Resent bool
}

// AuthService 注册、登录、邮箱验证与密码重置
type AuthService struct {
	repo     domain.UserRepository
	tx       db.Transactor
	hasher   domain.PasswordHasher
	otp      domain.OTPProvider
	tokens   *token.Manager
	notifier notification.Enqueuer
	settings AuthSettings
	now      func() time.Time
}

// NewAuthService 创建认证服务
func NewAuthService(
	repo domain.UserRepository,
	tx db.Transactor,
	hasher domain.PasswordHasher,
	otp domain.OTPProvider,
	tokens *token.Manager,
	notifier notification.Enqueuer,
	settings AuthSettings,
) *AuthService {
	return &AuthService{
		repo:     repo,
		tx:       tx,
		hasher:   hasher,
		otp:      otp,
		tokens:   tokens,
		notifier: notifier,
		settings: settings,
		now:      time.Now,
	}
}

// Register 注册。未验证的邮箱再次注册时重发验证邮件
func (s *AuthService) Register(ctx context.Context, cmd RegisterCommand) (*RegisterResult, error) {
	email := domain.NormalizeEmail(cmd.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, errorsx.Validation("A valid email is required")
	}
	if len(cmd.Password) < minPasswordLength {
		return nil, errorsx.Validation("Password must be at least 6 characters")
	}

	var result *RegisterResult
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.GetByEmail(txCtx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.IsVerified || !s.settings.RequireEmailVerification {
				return errorsx.Conflict("Email already exists")
			}
			result = &RegisterResult{User: ToUserDTO(existing), Resent: true}
			return s.enqueueVerification(txCtx, existing)
		}

		hash, err := s.hasher.Hash(cmd.Password)
		if err != nil {
			return err
		}
		user := domain.NewUser(email, hash, cmd.Phone, domain.RoleCustomer)
		user.Profile.FirstName = cmd.FirstName
		user.Profile.LastName = cmd.LastName
		user.IsVerified = !s.settings.RequireEmailVerification
		if err := s.repo.Create(txCtx, user); err != nil {
			if db.IsDuplicate(err) {
				return errorsx.Conflict("Email already exists")
			}
			return err
		}

		result = &RegisterResult{User: ToUserDTO(user)}
		if user.IsVerified {
			return nil
		}
		return s.enqueueVerification(txCtx, user)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "user registered", "user_id", result.User.ID, "resent", result.Resent)
	return result, nil
}

func (s *AuthService) enqueueVerification(ctx context.Context, user *domain.User) error {
	raw, err := s.tokens.Issue(user.ID, user.Email, string(user.Role), token.PurposeVerifyEmail, s.settings.VerifyTokenTTL)
	if err != nil {
		return err
	}
	return s.notifier.Enqueue(ctx, notification.Task{
		ID:     uuid.NewString(),
		Type:   notification.TypeEmailVerification,
		UserID: user.ID,
		Email:  user.Email,
		Data:   map[string]string{"verifyUrl": s.settings.VerifyURL + "?token=" + url.QueryEscape(raw)},
	})
}

// Login 校验密码并签发访问令牌
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || s.hasher.Compare(user.Password, password) != nil {
		return nil, errorsx.Unauthorized("Invalid credentials")
	}
	if s.settings.RequireEmailVerification && !user.IsVerified {
		return nil, errorsx.Forbidden("Please verify your email first")
	}

	raw, err := s.tokens.Issue(user.ID, user.Email, string(user.Role), token.PurposeAccess, s.settings.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: raw, User: ToUserDTO(user)}, nil
}

// VerifyEmail 校验邮件中的令牌并标记邮箱已验证，重复验证是幂等的
func (s *AuthService) VerifyEmail(ctx context.Context, raw string) (*UserDTO, error) {
	claims, err := s.tokens.Parse(raw, token.PurposeVerifyEmail)
	if err != nil {
		return nil, errorsx.Validation("Invalid or expired verification token")
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Email != claims.Email {
		return nil, errorsx.NotFound("User not found")
	}
	if !user.IsVerified {
		user.IsVerified = true
		if err := s.repo.Save(ctx, user); err != nil {
			return nil, err
		}
	}
	return ToUserDTO(user), nil
}

// RequestPasswordReset 生成 OTP 并通过邮件发送
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	return s.tx.WithTx(ctx, func(txCtx context.Context) error {
		user, err := s.repo.GetByEmail(txCtx, email)
		if err != nil {
			return err
		}
		if user == nil {
			return errorsx.NotFound("User not found")
		}

		secret, err := s.otp.GenerateSecret(user.Email)
		if err != nil {
			return err
		}
		code, err := s.otp.Code(secret, s.now())
		if err != nil {
			return err
		}
		user.StartPasswordReset(secret)
		if err := s.repo.Save(txCtx, user); err != nil {
			return err
		}

		return s.notifier.Enqueue(txCtx, notification.Task{
			ID:     uuid.NewString(),
			Type:   notification.TypePasswordReset,
			UserID: user.ID,
			Email:  user.Email,
			Data: map[string]string{
				"otp":              code,
				"expiresInMinutes": strconv.Itoa(int(s.otp.Period().Minutes())),
			},
		})
	})
}

// VerifyResetOTP 校验 OTP，通过后在 ResetWindow 内可设置新密码
func (s *AuthService) VerifyResetOTP(ctx context.Context, email, code string) error {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return errorsx.NotFound("User not found")
	}
	now := s.now()
	if user.ResetSecret == "" || !s.otp.Validate(code, user.ResetSecret, now) {
		return errorsx.Validation("Invalid or expired OTP")
	}
	user.MarkResetVerified(now, s.settings.ResetWindow)
	return s.repo.Save(ctx, user)
}

// ResetPassword 设置新密码，要求之前已通过 OTP 校验
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return errorsx.Validation("Password must be at least 6 characters")
	}
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return errorsx.NotFound("User not found")
	}
	if !user.CanResetPassword(s.now()) {
		return errorsx.InvalidState("OTP verification required before resetting password")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	user.CompletePasswordReset(hash)
	if err := s.repo.Save(ctx, user); err != nil {
		return err
	}
	logger.Info(ctx, "password reset completed", "user_id", user.ID)
	return nil
}

// SeedAdmin 启动时确保存在管理员账号；邮箱已注册时提升为管理员
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) error {
	return s.tx.WithTx(ctx, func(txCtx context.Context) error {
		user, err := s.repo.GetByEmail(txCtx, email)
		if err != nil {
			return err
		}
		if user != nil {
			if user.Role == domain.RoleAdmin && user.IsVerified {
				return nil
			}
			user.Role = domain.RoleAdmin
			user.IsVerified = true
			return s.repo.Save(txCtx, user)
		}

		hash, err := s.hasher.Hash(password)
		if err != nil {
			return err
		}
		admin := domain.NewUser(email, hash, "", domain.RoleAdmin)
		admin.IsVerified = true
		if err := s.repo.Create(txCtx, admin); err != nil {
			return err
		}
		logger.Info(ctx, "admin account created", "email", admin.Email)
		return nil
	})
}
