package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/ecommerce/internal/notification/domain"
	"github.com/wyfcoding/ecommerce/pkg/logger"
	"github.com/wyfcoding/ecommerce/pkg/metrics"
)

// Dispatcher 解析收件人、渲染模板并发送，每个收件人的结果落库
type Dispatcher struct {
	repo      domain.NotificationRepository
	directory domain.Directory
	sender    domain.Sender
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewDispatcher 创建通知分发器
func NewDispatcher(repo domain.NotificationRepository, directory domain.Directory, sender domain.Sender, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		directory: directory,
		sender:    sender,
		metrics:   m,
		now:       time.Now,
	}
}

// Deliver 投递一个任务。已成功发送过的收件人会被跳过，因此重复投递是安全的
func (d *Dispatcher) Deliver(ctx context.Context, task domain.Task) error {
	recipients, err := d.recipients(ctx, task)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		logger.Warn(ctx, "notification has no recipients, dropped", "task_id", task.ID, "type", task.Type)
		return nil
	}

	var errs []error
	for _, r := range recipients {
		if err := d.deliverOne(ctx, task, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) recipients(ctx context.Context, task domain.Task) ([]domain.Recipient, error) {
	switch {
	case task.Type == domain.TypeAdminOrderPaid:
		admins, err := d.directory.Admins(ctx)
		if err != nil {
			return nil, fmt.Errorf("list admins: %w", err)
		}
		return admins, nil
	case task.Email != "":
		return []domain.Recipient{{UserID: task.UserID, Email: task.Email}}, nil
	case task.UserID != 0:
		r, err := d.directory.Recipient(ctx, task.UserID)
		if err != nil {
			return nil, fmt.Errorf("lookup recipient %d: %w", task.UserID, err)
		}
		if r == nil {
			return nil, nil
		}
		return []domain.Recipient{*r}, nil
	}
	return nil, fmt.Errorf("notification task %s has no recipient", task.ID)
}

func (d *Dispatcher) deliverOne(ctx context.Context, task domain.Task, r domain.Recipient) error {
	n, err := d.repo.FindByTask(ctx, task.ID, r.Email)
	if err != nil {
		return err
	}
	if n != nil && n.Status == domain.StatusSent {
		logger.Debug(ctx, "notification already sent", "task_id", task.ID, "recipient", r.Email)
		return nil
	}

	subject, body, err := render(task, r)
	if err != nil {
		return err
	}
	if n == nil {
		n = &domain.Notification{
			TaskID:    task.ID,
			UserID:    r.UserID,
			Type:      task.Type,
			Recipient: r.Email,
			Status:    domain.StatusPending,
		}
	}
	n.Subject = subject
	n.Content = body

	sendErr := d.sender.Send(ctx, r.Email, subject, body)
	if sendErr != nil {
		n.MarkFailed(sendErr)
	} else {
		n.MarkSent(d.now())
	}
	d.metrics.RecordNotification(string(task.Type), string(n.Status))

	if err := d.repo.Save(ctx, n); err != nil {
		// 邮件已发出时不再返回错误，避免重复发送
		logger.Error(ctx, "Failed to record notification", "task_id", task.ID, "recipient", r.Email, "error", err)
	}
	return sendErr
}
