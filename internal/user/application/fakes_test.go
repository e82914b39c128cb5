package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	notification "github.com/wyfcoding/ecommerce/internal/notification/domain"
	"github.com/wyfcoding/ecommerce/internal/user/domain"
)

type memoryUsers struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*domain.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: map[uint]*domain.User{}}
}

func clone(u *domain.User) *domain.User {
	cp := *u
	if u.Profile != nil {
		p := *u.Profile
		cp.Profile = &p
	}
	return &cp
}

func (r *memoryUsers) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now()
	if u.Profile == nil {
		u.Profile = &domain.Profile{}
	}
	u.Profile.UserID = u.ID
	r.users[u.ID] = clone(u)
	return nil
}

func (r *memoryUsers) Save(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[u.ID]
	if !ok {
		return errors.New("not found")
	}
	cp := clone(u)
	cp.Profile = existing.Profile
	r.users[u.ID] = cp
	return nil
}

func (r *memoryUsers) SaveProfile(_ context.Context, p *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[p.UserID]
	if !ok {
		return errors.New("not found")
	}
	cp := *p
	u.Profile = &cp
	return nil
}

func (r *memoryUsers) GetByID(_ context.Context, id uint) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return clone(u), nil
}

func (r *memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == domain.NormalizeEmail(email) {
			return clone(u), nil
		}
	}
	return nil, nil
}

func (r *memoryUsers) GetByIDs(ctx context.Context, ids []uint) ([]*domain.User, error) {
	var out []*domain.User
	for _, id := range ids {
		if u, _ := r.GetByID(ctx, id); u != nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memoryUsers) sorted() []*domain.User {
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memoryUsers) List(_ context.Context, offset, limit int) ([]*domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted()
	if offset >= len(all) {
		return nil, int64(len(all)), nil
	}
	return all[offset:min(offset+limit, len(all))], int64(len(all)), nil
}

func (r *memoryUsers) ListByRole(_ context.Context, role domain.Role) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.sorted() {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memoryUsers) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

// plainHasher 测试用，避免 bcrypt 耗时
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }

func (plainHasher) Compare(hash, p string) error {
	if hash != "hashed:"+p {
		return errors.New("mismatch")
	}
	return nil
}

// fixedOTP 固定验证码
type fixedOTP struct{ code string }

func (f fixedOTP) GenerateSecret(string) (string, error)    { return "SECRET", nil }
func (f fixedOTP) Code(string, time.Time) (string, error)   { return f.code, nil }
func (f fixedOTP) Validate(c, s string, _ time.Time) bool { return c == f.code && s == "SECRET" }
func (f fixedOTP) Period() time.Duration                    { return 5 * time.Minute }

type recordingEnqueuer struct {
	tasks []notification.Task
	err   error
}

func (e *recordingEnqueuer) Enqueue(_ context.Context, task notification.Task) error {
	if e.err != nil {
		return e.err
	}
	e.tasks = append(e.tasks, task)
	return nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
