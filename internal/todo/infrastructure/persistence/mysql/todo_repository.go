// Package mysql 待办仓储的 GORM 实现
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wyfcoding/ecommerce/internal/todo/domain"
	"github.com/wyfcoding/ecommerce/pkg/db"
	"github.com/wyfcoding/ecommerce/pkg/logger"
)

// TodoModel todos 表
type TodoModel struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	Title       string    `gorm:"column:title;type:varchar(255);not null"`
	Description string    `gorm:"column:description;type:text"`
	Completed   bool      `gorm:"column:completed;not null;default:false"`
	UserID      uint      `gorm:"column:user_id;index;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;index"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (TodoModel) TableName() string { return "todos" }

type todoRepository struct {
	db *gorm.DB
}

// NewTodoRepository 创建待办仓储
func NewTodoRepository(gdb *gorm.DB) domain.TodoRepository {
	return &todoRepository{db: gdb}
}

func (r *todoRepository) Create(ctx context.Context, t *domain.Todo) error {
	m := toTodoModel(t)
	if err := db.Conn(ctx, r.db).Create(m).Error; err != nil {
		logger.Error(ctx, "todo_repository.create failed", "user_id", t.UserID, "error", err)
		return fmt.Errorf("failed to create todo: %w", err)
	}
	t.ID, t.CreatedAt, t.UpdatedAt = m.ID, m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *todoRepository) Save(ctx context.Context, t *domain.Todo) error {
	m := toTodoModel(t)
	if err := db.Conn(ctx, r.db).Save(m).Error; err != nil {
		logger.Error(ctx, "todo_repository.save failed", "todo_id", t.ID, "error", err)
		return fmt.Errorf("failed to save todo: %w", err)
	}
	t.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *todoRepository) Delete(ctx context.Context, id uint) error {
	if err := db.Conn(ctx, r.db).Delete(&TodoModel{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	return nil
}

func (r *todoRepository) GetByID(ctx context.Context, id uint) (*domain.Todo, error) {
	var m TodoModel
	if err := db.Conn(ctx, r.db).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	return toTodo(&m), nil
}

func (r *todoRepository) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*domain.Todo, int64, error) {
	q := db.Conn(ctx, r.db).Model(&TodoModel{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count todos: %w", err)
	}
	var models []TodoModel
	if err := q.Order("created_at desc").Order("id desc").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		logger.Error(ctx, "todo_repository.list failed", "user_id", userID, "error", err)
		return nil, 0, fmt.Errorf("failed to list todos: %w", err)
	}
	out := make([]*domain.Todo, len(models))
	for i := range models {
		out[i] = toTodo(&models[i])
	}
	return out, total, nil
}

func (r *todoRepository) CountByUsers(ctx context.Context, userIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(userIDs))
	if len(userIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		UserID uint
		Total  int64
	}
	err := db.Conn(ctx, r.db).Model(&TodoModel{}).
		Select("user_id, COUNT(*) AS total").
		Where("user_id IN ?", userIDs).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count todos by user: %w", err)
	}
	for _, row := range rows {
		counts[row.UserID] = row.Total
	}
	return counts, nil
}

func toTodoModel(t *domain.Todo) *TodoModel {
	return &TodoModel{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTodo(m *TodoModel) *domain.Todo {
	return &domain.Todo{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Completed:   m.Completed,
		UserID:      m.UserID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
