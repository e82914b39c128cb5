package application

import (
	"context"

	notification "github.com/wyfcoding/ecommerce/internal/notification/domain"
	"github.com/wyfcoding/ecommerce/internal/user/domain"
)

// Directory 为通知提供收件人查询
type Directory struct {
	repo domain.UserRepository
}

func NewDirectory(repo domain.UserRepository) *Directory {
	return &Directory{repo: repo}
}

var _ notification.Directory = (*Directory)(nil)

func (d *Directory) Recipient(ctx context.Context, userID uint) (*notification.Recipient, error) {
	user, err := d.repo.GetByID(ctx, userID)
	if err != nil || user == nil {
		return nil, err
	}
	return &notification.Recipient{UserID: user.ID, Email: user.Email, Name: user.DisplayName()}, nil
}

func (d *Directory) Admins(ctx context.Context) ([]notification.Recipient, error) {
	admins, err := d.repo.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	out := make([]notification.Recipient, len(admins))
	for i, a := range admins {
		out[i] = notification.Recipient{UserID: a.ID, Email: a.Email, Name: a.DisplayName()}
	}
	return out, nil
}
