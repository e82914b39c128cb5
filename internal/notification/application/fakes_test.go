package application

import (
	"context"
	"errors"
	"sync"

	"github.com/wyfcoding/ecommerce/internal/notification/domain"
)

type memoryRepo struct {
	mu     sync.Mutex
	nextID uint
	items  []*domain.Notification
}

func (r *memoryRepo) Save(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == 0 {
		r.nextID++
		n.ID = r.nextID
		cp := *n
		r.items = append(r.items, &cp)
		return nil
	}
	for i, existing := range r.items {
		if existing.ID == n.ID {
			cp := *n
			r.items[i] = &cp
		}
	}
	return nil
}

func (r *memoryRepo) FindByTask(_ context.Context, taskID, recipient string) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		if n.TaskID == taskID && n.Recipient == recipient {
			cp := *n
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) ListByUser(_ context.Context, userID uint, offset, limit int) ([]*domain.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Notification
	for _, n := range r.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	end := min(offset+limit, len(out))
	return out[offset:end], total, nil
}

type staticDirectory struct {
	users  map[uint]domain.Recipient
	admins []domain.Recipient
}

func (d *staticDirectory) Recipient(_ context.Context, userID uint) (*domain.Recipient, error) {
	r, ok := d.users[userID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (d *staticDirectory) Admins(context.Context) ([]domain.Recipient, error) {
	return d.admins, nil
}

type sentMail struct {
	To, Subject, Body string
}

type recordingSender struct {
	mu       sync.Mutex
	sent     []sentMail
	failFor  map[string]int
	failures int
}

func (s *recordingSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[to] > 0 {
		s.failFor[to]--
		s.failures++
		return errors.New("smtp: connection refused")
	}
	s.sent = append(s.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}
