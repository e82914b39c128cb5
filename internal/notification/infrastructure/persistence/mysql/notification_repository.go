// Package mysql 通知记录与发件箱的 GORM 实现（MySQL / PostgreSQL 通用）。
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wyfcoding/ecommerce/internal/notification/domain"
	"github.com/wyfcoding/ecommerce/pkg/db"
	"github.com/wyfcoding/ecommerce/pkg/logger"
)

// NotificationModel 通知记录表
type NotificationModel struct {
	ID        uint       `gorm:"primaryKey;autoIncrement"`
	TaskID    string     `gorm:"column:task_id;type:varchar(36);not null;uniqueIndex:idx_notification_task_recipient;comment:发件箱任务ID"`
	Recipient string     `gorm:"column:recipient;type:varchar(255);not null;uniqueIndex:idx_notification_task_recipient"`
	UserID    uint       `gorm:"column:user_id;index;comment:收件用户ID，外部邮箱为0"`
	Type      string     `gorm:"column:type;type:varchar(32);index;not null"`
	Subject   string     `gorm:"column:subject;type:varchar(255);not null"`
	Content   string     `gorm:"column:content;type:text"`
	Status    string     `gorm:"column:status;type:varchar(16);index;not null"`
	Error     string     `gorm:"column:error;type:text"`
	SentAt    *time.Time `gorm:"column:sent_at"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

func (NotificationModel) TableName() string { return "notifications" }

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓储
func NewNotificationRepository(gdb *gorm.DB) domain.NotificationRepository {
	return &notificationRepository{db: gdb}
}

func (r *notificationRepository) Save(ctx context.Context, n *domain.Notification) error {
	m := toNotificationModel(n)
	if err := db.Conn(ctx, r.db).Save(m).Error; err != nil {
		logger.Error(ctx, "notification_repository.save failed", "task_id", n.TaskID, "error", err)
		return fmt.Errorf("failed to save notification: %w", err)
	}
	n.ID = m.ID
	n.CreatedAt = m.CreatedAt
	n.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *notificationRepository) FindByTask(ctx context.Context, taskID, recipient string) (*domain.Notification, error) {
	var m NotificationModel
	err := db.Conn(ctx, r.db).Where("task_id = ? AND recipient = ?", taskID, recipient).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}
	return toNotification(&m), nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*domain.Notification, int64, error) {
	var (
		models []NotificationModel
		total  int64
	)
	q := db.Conn(ctx, r.db).Model(&NotificationModel{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	if err := q.Order("created_at desc, id desc").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		logger.Error(ctx, "notification_repository.list_by_user failed", "user_id", userID, "error", err)
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	out := make([]*domain.Notification, len(models))
	for i := range models {
		out[i] = toNotification(&models[i])
	}
	return out, total, nil
}

func toNotificationModel(n *domain.Notification) *NotificationModel {
	return &NotificationModel{
		ID:        n.ID,
		TaskID:    n.TaskID,
		Recipient: n.Recipient,
		UserID:    n.UserID,
		Type:      string(n.Type),
		Subject:   n.Subject,
		Content:   n.Content,
		Status:    string(n.Status),
		Error:     n.Error,
		SentAt:    n.SentAt,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func toNotification(m *NotificationModel) *domain.Notification {
	return &domain.Notification{
		ID:        m.ID,
		TaskID:    m.TaskID,
		Recipient: m.Recipient,
		UserID:    m.UserID,
		Type:      domain.Type(m.Type),
		Subject:   m.Subject,
		Content:   m.Content,
		Status:    domain.Status(m.Status),
		Error:     m.Error,
		SentAt:    m.SentAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
