package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wyfcoding/ecommerce/internal/notification/domain"
	"github.com/wyfcoding/ecommerce/pkg/logger"
	"github.com/wyfcoding/ecommerce/pkg/metrics"
)

// Deliverer 发件箱任务的下游：进程内 Dispatcher 或 Kafka
type Deliverer interface {
	Deliver(ctx context.Context, task domain.Task) error
}

// Processor 后台扫描发件箱并调用 Push 的处理器，由 outbox.Processor 实现
type Processor interface {
	Start()
	Stop()
}

// RelayConfig 中继配置
type RelayConfig struct {
	// 已投递记录的保留时长，<= 0 表示不清理
	Retention       time.Duration
	CleanupInterval time.Duration
}

// Relay 把发件箱消息解码为通知任务交给下游，并定期清理已投递记录。
// 失败重试与退避由发件箱处理器负责：Push 返回错误后该行按指数退避推迟到下次扫描。
type Relay struct {
	deliverer Deliverer
	cleaner   domain.OutboxCleaner
	cfg       RelayConfig
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewRelay 创建发件箱中继
func NewRelay(deliverer Deliverer, cleaner domain.OutboxCleaner, cfg RelayConfig, m *metrics.Metrics) *Relay {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	return &Relay{
		deliverer: deliverer,
		cleaner:   cleaner,
		cfg:       cfg,
		metrics:   m,
		now:       time.Now,
	}
}

// Push 投递一条发件箱消息，签名与 outbox.NewProcessor 的推送函数一致
func (r *Relay) Push(ctx context.Context, topic, key string, payload []byte) error {
	var task domain.Task
	if err := json.Unmarshal(payload, &task); err != nil {
		r.metrics.RecordOutbox("failed", 1)
		logger.Error(ctx, "Outbox payload corrupted", "topic", topic, "key", key, "error", err)
		return fmt.Errorf("failed to decode notification task %s: %w", key, err)
	}
	if task.ID == "" {
		task.ID = key
	}

	if err := r.deliverer.Deliver(ctx, task); err != nil {
		r.metrics.RecordOutbox("failed", 1)
		logger.Warn(ctx, "Notification delivery failed", "task_id", task.ID, "type", task.Type, "error", err)
		return err
	}
	r.metrics.RecordOutbox("sent", 1)
	return nil
}

// Run 启动处理器并阻塞直到 ctx 取消
func (r *Relay) Run(ctx context.Context, p Processor) error {
	logger.Info(ctx, "Outbox relay started", "retention", r.cfg.Retention)
	p.Start()
	defer p.Stop()

	cleanup := time.NewTicker(r.cfg.CleanupInterval)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(context.Background(), "Outbox relay stopped")
			return nil
		case <-cleanup.C:
			r.Cleanup(ctx)
		}
	}
}

// Cleanup 清理超过保留期的已投递记录
func (r *Relay) Cleanup(ctx context.Context) {
	if r.cfg.Retention <= 0 || r.cleaner == nil {
		return
	}
	n, err := r.cleaner.Cleanup(ctx, r.now().Add(-r.cfg.Retention))
	if err != nil {
		logger.Error(ctx, "Outbox cleanup failed", "error", err)
		return
	}
	if n > 0 {
		logger.Info(ctx, "Outbox cleaned up", "deleted", n)
	}
}
