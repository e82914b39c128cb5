// Package domain 待办事项
package domain

import (
	"context"
	"strings"
	"time"

	"github.com/wyfcoding/ecommerce/pkg/errorsx"
)

const maxTitleLength = 255

// Todo 待办事项，归属于一个用户
type Todo struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	UserID      uint      `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewTodo 创建待办
func NewTodo(userID uint, title, description string, completed bool) (*Todo, error) {
	t := &Todo{UserID: userID, Description: strings.TrimSpace(description), Completed: completed}
	if err := t.Rename(title); err != nil {
		return nil, err
	}
	return t, nil
}

// Rename 修改标题，标题不能为空
func (t *Todo) Rename(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errorsx.Validation("Title is required")
	}
	if len(title) > maxTitleLength {
		return errorsx.Validation("Title must be at most 255 characters")
	}
	t.Title = title
	return nil
}

// TodoRepository 待办仓储，未找到时返回 nil, nil
type TodoRepository interface {
	Create(ctx context.Context, t *Todo) error
	Save(ctx context.Context, t *Todo) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*Todo, error)
	// ListByUser 按创建时间倒序
	ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*Todo, int64, error)
	// CountByUsers 每个用户的待办数，没有待办的用户不出现在结果中
	CountByUsers(ctx context.Context, userIDs []uint) (map[uint]int64, error)
}
