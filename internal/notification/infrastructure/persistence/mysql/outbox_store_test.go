package mysql

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/messagequeue/outbox"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wyfcoding/ecommerce/internal/notification/domain"
	"github.com/wyfcoding/ecommerce/pkg/logger"
)

type capturedStmt struct {
	table string
	sql   string
	vars  []any
	model any
}

// dryRunDB 只生成 SQL 不连接数据库，并记录每条写语句
func dryRunDB(t *testing.T) (*gorm.DB, *[]capturedStmt) {
	t.Helper()
	gdb, err := gorm.Open(gormmysql.New(gormmysql.Config{
		DSN:                       "user:pass@tcp(127.0.0.1:3306)/shop?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               gormlogger.Discard,
	})
	require.NoError(t, err)

	var captured []capturedStmt
	capture := func(d *gorm.DB) {
		captured = append(captured, capturedStmt{
			table: d.Statement.Table,
			sql:   d.Statement.SQL.String(),
			vars:  d.Statement.Vars,
			model: d.Statement.Dest,
		})
	}
	require.NoError(t, gdb.Callback().Create().After("gorm:create").Register("test:capture_create", capture))
	require.NoError(t, gdb.Callback().Delete().After("gorm:delete").Register("test:capture_delete", capture))
	return gdb, &captured
}

func TestOutboxStore_EnqueueWritesLibraryMessage(t *testing.T) {
	gdb, captured := dryRunDB(t)
	store := NewOutboxStore(gdb, outbox.NewManager(gdb, logger.Get()), "")

	require.NoError(t, store.Enqueue(context.Background(), domain.Task{ID: "task-1", Type: domain.TypeOrderConfirmation, UserID: 7}))

	require.Len(t, *captured, 1)
	stmt := (*captured)[0]
	assert.Equal(t, "sys_outbox_messages", stmt.table)

	msg, ok := stmt.model.(*outbox.OutboxMessage)
	require.True(t, ok)
	assert.Equal(t, DefaultTaskTopic, msg.Topic)
	assert.Equal(t, "task-1", msg.Key)
	assert.Equal(t, outbox.StatusPending, msg.Status)

	var task domain.Task
	require.NoError(t, json.Unmarshal(msg.Payload, &task))
	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, domain.TypeOrderConfirmation, task.Type)
	assert.False(t, task.CreatedAt.IsZero())
}

func TestOutboxStore_EnqueueJoinsCallerTransaction(t *testing.T) {
	base, baseCaptured := dryRunDB(t)
	tx, txCaptured := dryRunDB(t)
	store := NewOutboxStore(base, outbox.NewManager(base, logger.Get()), "shop.notifications")

	ctx := contextx.WithTx(context.Background(), tx)
	require.NoError(t, store.Enqueue(ctx, domain.Task{Type: domain.TypeOrderShipped}))

	assert.Empty(t, *baseCaptured)
	require.Len(t, *txCaptured, 1)
	msg := (*txCaptured)[0].model.(*outbox.OutboxMessage)
	assert.Equal(t, "shop.notifications", msg.Topic)
	assert.NotEmpty(t, msg.Key)
}

func TestOutboxStore_CleanupDeletesSentRowsOnly(t *testing.T) {
	gdb, captured := dryRunDB(t)
	store := NewOutboxStore(gdb, outbox.NewManager(gdb, logger.Get()), "")

	before := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err := store.Cleanup(context.Background(), before)
	require.NoError(t, err)

	require.Len(t, *captured, 1)
	stmt := (*captured)[0]
	assert.Contains(t, stmt.sql, "DELETE FROM `sys_outbox_messages`")
	assert.NotContains(t, stmt.sql, "UPDATE")
	assert.Contains(t, stmt.vars, outbox.StatusSent)
	assert.Contains(t, stmt.vars, before)
}
