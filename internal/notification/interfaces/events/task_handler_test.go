package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/ecommerce/internal/notification/application"
	"github.com/wyfcoding/ecommerce/internal/notification/domain"
	"github.com/wyfcoding/ecommerce/pkg/mq"
)

type nopRepo struct{ saved []*domain.Notification }

func (r *nopRepo) Save(_ context.Context, n *domain.Notification) error {
	r.saved = append(r.saved, n)
	return nil
}

func (r *nopRepo) FindByTask(context.Context, string, string) (*domain.Notification, error) {
	return nil, nil
}

func (r *nopRepo) ListByUser(context.Context, uint, int, int) ([]*domain.Notification, int64, error) {
	return nil, 0, nil
}

type emptyDirectory struct{}

func (emptyDirectory) Recipient(context.Context, uint) (*domain.Recipient, error) { return nil, nil }
func (emptyDirectory) Admins(context.Context) ([]domain.Recipient, error)         { return nil, nil }

type captureSender struct{ to []string }

func (s *captureSender) Send(_ context.Context, to, _, _ string) error {
	s.to = append(s.to, to)
	return nil
}

func TestTaskHandler(t *testing.T) {
	repo := &nopRepo{}
	sender := &captureSender{}
	handle := NewTaskHandler(application.NewDispatcher(repo, emptyDirectory{}, sender, nil))

	msg := &mq.Message{
		Key:   "task-1",
		Value: []byte(`{"type":"email_verification","email":"new@example.com","data":{"verifyUrl":"http://x/verify?token=abc"}}`),
	}
	require.NoError(t, handle(context.Background(), msg))
	assert.Equal(t, []string{"new@example.com"}, sender.to)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, "task-1", repo.saved[0].TaskID)

	err := handle(context.Background(), &mq.Message{Value: []byte("not json")})
	assert.Error(t, err)
}
