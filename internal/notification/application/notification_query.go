package application

import (
	"context"

	"github.com/wyfcoding/ecommerce/internal/notification/domain"
	"github.com/wyfcoding/ecommerce/pkg/utils"
)

// NotificationQueryService 通知查询
type NotificationQueryService struct {
	repo domain.NotificationRepository
}

func NewNotificationQueryService(repo domain.NotificationRepository) *NotificationQueryService {
	return &NotificationQueryService{repo: repo}
}

// ListForUser 分页查询用户收到的通知，最新的在前
func (q *NotificationQueryService) ListForUser(ctx context.Context, userID uint, page, limit int) ([]*domain.Notification, utils.Pagination, error) {
	page, limit = utils.NormalizePage(page, limit, 20, 100)
	items, total, err := q.repo.ListByUser(ctx, userID, utils.Offset(page, limit), limit)
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	return items, utils.NewPagination(page, limit, total), nil
}
