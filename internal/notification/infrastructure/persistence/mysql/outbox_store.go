package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/pkg/messagequeue/outbox"
	"gorm.io/gorm"

	"github.com/wyfcoding/ecommerce/internal/notification/domain"
	"github.com/wyfcoding/ecommerce/pkg/db"
	"github.com/wyfcoding/ecommerce/pkg/logger"
)

// DefaultTaskTopic 未配置 Kafka 时发件箱记录使用的主题
const DefaultTaskTopic = "notification.tasks"

// OutboxStore 通知任务发件箱，写入 sys_outbox_messages，Enqueue 复用调用方 context 中的事务
type OutboxStore struct {
	db    *gorm.DB
	mgr   *outbox.Manager
	topic string
}

// NewOutboxStore 创建发件箱
func NewOutboxStore(gdb *gorm.DB, mgr *outbox.Manager, topic string) *OutboxStore {
	if topic == "" {
		topic = DefaultTaskTopic
	}
	return &OutboxStore{db: gdb, mgr: mgr, topic: topic}
}

var _ domain.Enqueuer = (*OutboxStore)(nil)

// Enqueue 写入一条待投递任务，消息键为任务 ID
func (s *OutboxStore) Enqueue(ctx context.Context, task domain.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	if err := s.mgr.PublishInTx(db.Conn(ctx, s.db), s.topic, task.ID, task); err != nil {
		logger.Error(ctx, "outbox.enqueue failed", "type", task.Type, "error", err)
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	logger.Debug(ctx, "notification enqueued", "task_id", task.ID, "type", task.Type)
	return nil
}

// Cleanup 物理删除 before 之前已投递的记录，返回删除条数
func (s *OutboxStore) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	res := db.Conn(ctx, s.db).Unscoped().
		Where("status = ? AND updated_at < ?", outbox.StatusSent, before).
		Delete(&outbox.OutboxMessage{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to cleanup outbox: %w", res.Error)
	}
	return res.RowsAffected, nil
}
