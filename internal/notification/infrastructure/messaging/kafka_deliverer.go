// Package messaging 通知任务的 Kafka 投递
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wyfcoding/ecommerce/internal/notification/domain"
)

// Publisher 消息发布能力，由 mq.KafkaProducer 实现
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
}

// KafkaDeliverer 把发件箱中的任务转发到 Kafka，由 notifier 服务消费发送
type KafkaDeliverer struct {
	publisher Publisher
	topic     string
}

// NewKafkaDeliverer 创建 Kafka 投递器
func NewKafkaDeliverer(publisher Publisher, topic string) *KafkaDeliverer {
	return &KafkaDeliverer{publisher: publisher, topic: topic}
}

// Deliver 以任务 ID 为 key 发布，消费端据此去重
func (d *KafkaDeliverer) Deliver(ctx context.Context, task domain.Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal notification task: %w", err)
	}
	return d.publisher.Publish(ctx, d.topic, task.ID, payload, map[string]string{
		"event_type": string(task.Type),
	})
}
