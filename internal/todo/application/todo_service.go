package application

import (
	"context"

	"github.com/wyfcoding/ecommerce/internal/todo/domain"
	user "github.com/wyfcoding/ecommerce/internal/user/domain"
	"github.com/wyfcoding/ecommerce/pkg/errorsx"
	"github.com/wyfcoding/ecommerce/pkg/logger"
	"github.com/wyfcoding/ecommerce/pkg/utils"
)

// CreateTodoCommand 新建待办
type CreateTodoCommand struct {
	Title       string
	Description string
	Completed   bool
}

// UpdateTodoCommand 部分更新，nil 字段不修改
type UpdateTodoCommand struct {
	Title       *string
	Description *string
	Completed   *bool
}

// TodoList 分页待办列表
type TodoList struct {
	Todos      []*domain.Todo
	Pagination utils.Pagination
}

// UserTodoSummary 管理端用户列表行
type UserTodoSummary struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TodoCount int64  `json:"todoCount"`
}

// TodoService 待办操作，普通接口只能访问自己的待办
type TodoService struct {
	todos domain.TodoRepository
	users user.UserRepository
}

func NewTodoService(todos domain.TodoRepository, users user.UserRepository) *TodoService {
	return &TodoService{todos: todos, users: users}
}

func (s *TodoService) List(ctx context.Context, userID uint, page, limit int) (*TodoList, error) {
	page, limit = utils.NormalizePage(page, limit, 20, 100)
	todos, total, err := s.todos.ListByUser(ctx, userID, utils.Offset(page, limit), limit)
	if err != nil {
		return nil, err
	}
	return &TodoList{Todos: todos, Pagination: utils.NewPagination(page, limit, total)}, nil
}

// Get 他人的待办按不存在处理
func (s *TodoService) Get(ctx context.Context, userID, id uint) (*domain.Todo, error) {
	t, err := s.todos.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil || t.UserID != userID {
		return nil, errorsx.NotFound("Todo not found")
	}
	return t, nil
}

func (s *TodoService) Create(ctx context.Context, userID uint, cmd CreateTodoCommand) (*domain.Todo, error) {
	t, err := domain.NewTodo(userID, cmd.Title, cmd.Description, cmd.Completed)
	if err != nil {
		return nil, err
	}
	if err := s.todos.Create(ctx, t); err != nil {
		return nil, err
	}
	logger.Debug(ctx, "todo created", "todo_id", t.ID, "user_id", userID)
	return t, nil
}

func (s *TodoService) Update(ctx context.Context, userID, id uint, cmd UpdateTodoCommand) (*domain.Todo, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if cmd.Title != nil {
		if err := t.Rename(*cmd.Title); err != nil {
			return nil, err
		}
	}
	if cmd.Description != nil {
		t.Description = *cmd.Description
	}
	if cmd.Completed != nil {
		t.Completed = *cmd.Completed
	}
	if err := s.todos.Save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TodoService) Delete(ctx context.Context, userID, id uint) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.todos.Delete(ctx, id)
}

// UsersWithCounts 管理端：用户列表附带待办数
func (s *TodoService) UsersWithCounts(ctx context.Context, page, limit int) ([]UserTodoSummary, utils.Pagination, error) {
	page, limit = utils.NormalizePage(page, limit, 10, 100)
	users, total, err := s.users.List(ctx, utils.Offset(page, limit), limit)
	if err != nil {
		return nil, utils.Pagination{}, err
	}

	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	counts, err := s.todos.CountByUsers(ctx, ids)
	if err != nil {
		return nil, utils.Pagination{}, err
	}

	out := make([]UserTodoSummary, len(users))
	for i, u := range users {
		out[i] = UserTodoSummary{ID: u.ID, Email: u.Email, Role: string(u.Role), TodoCount: counts[u.ID]}
	}
	return out, utils.NewPagination(page, limit, total), nil
}

// ListForUser 管理端：指定用户的待办
func (s *TodoService) ListForUser(ctx context.Context, userID uint, page, limit int) (*TodoList, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.List(ctx, userID, page, limit)
}

// CreateForUser 管理端：为指定用户添加待办
func (s *TodoService) CreateForUser(ctx context.Context, userID uint, cmd CreateTodoCommand) (*domain.Todo, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.Create(ctx, userID, cmd)
}

func (s *TodoService) requireUser(ctx context.Context, userID uint) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return errorsx.NotFound("User not found")
	}
	return nil
}
