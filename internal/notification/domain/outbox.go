package domain

import (
	"context"
	"time"
)

// OutboxCleaner 清理已投递的发件箱记录
type OutboxCleaner interface {
	Cleanup(ctx context.Context, before time.Time) (int64, error)
}
