// Package events 消费 Kafka 中的通知任务
package events

import (
	"context"
	"fmt"

	"github.com/wyfcoding/ecommerce/internal/notification/application"
	"github.com/wyfcoding/ecommerce/internal/notification/domain"
	"github.com/wyfcoding/ecommerce/pkg/logger"
	"github.com/wyfcoding/ecommerce/pkg/mq"
)

// NewTaskHandler 返回 Kafka 消息处理函数，处理失败由消费者转入死信队列
func NewTaskHandler(dispatcher *application.Dispatcher) mq.Handler {
	return func(ctx context.Context, msg *mq.Message) error {
		var task domain.Task
		if err := msg.UnmarshalPayload(&task); err != nil {
			return fmt.Errorf("decode notification task: %w", err)
		}
		if task.ID == "" {
			task.ID = msg.Key
		}
		logger.Debug(ctx, "notification task received", "task_id", task.ID, "type", task.Type, "offset", msg.Offset)
		return dispatcher.Deliver(ctx, task)
	}
}
