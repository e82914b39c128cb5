// Package mail 邮件发送通道
package mail

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/wyfcoding/ecommerce/internal/notification/domain"
	"github.com/wyfcoding/ecommerce/pkg/config"
	"github.com/wyfcoding/ecommerce/pkg/logger"
	"github.com/wyfcoding/ecommerce/pkg/utils"
)

// SMTPSender 通过 SMTP 发送 HTML 邮件，单次发送失败会退避重试
type SMTPSender struct {
	dialer      *gomail.Dialer
	from        string
	maxAttempts int
}

// NewSMTPSender 创建 SMTP 发送器
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &SMTPSender{
		dialer:      gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:        cfg.From,
		maxAttempts: attempts,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	err := utils.RetryWithBackoff(ctx, s.maxAttempts, 500*time.Millisecond, 5*time.Second, func() error {
		return s.dialer.DialAndSend(m)
	})
	if err != nil {
		logger.Error(ctx, "Failed to send email", "to", to, "subject", subject, "error", err)
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	logger.Info(ctx, "Email sent", "to", to, "subject", subject)
	return nil
}

// LogSender 未配置 SMTP 时使用，只记录日志
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, subject, _ string) error {
	logger.Info(ctx, "Sending email notification", "sender", "LogSender", "to", to, "subject", subject)
	return nil
}

// NewSender SMTP host 为空时退化为 LogSender
func NewSender(cfg config.SMTPConfig) domain.Sender {
	if cfg.Host == "" {
		return LogSender{}
	}
	return NewSMTPSender(cfg)
}
