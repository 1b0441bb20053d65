package app_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"expense_reminder/internal/domain/expense"
	"expense_reminder/internal/domain/notifier"
	"expense_reminder/internal/domain/user"

	"github.com/sirupsen/logrus"
)

type memExpenseRepo struct {
	mu       sync.Mutex
	nextID   int64
	expenses map[int64]expense.Expense
}

func newMemExpenseRepo() *memExpenseRepo {
	return &memExpenseRepo{expenses: make(map[int64]expense.Expense)}
}

func (r *memExpenseRepo) Create(_ context.Context, e *expense.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e.ID = r.nextID
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	r.expenses[e.ID] = *e
	return nil
}

func (r *memExpenseRepo) GetByID(_ context.Context, id int64) (*expense.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.expenses[id]
	if !ok {
		return nil, expense.ErrNotFound
	}
	return &e, nil
}

func (r *memExpenseRepo) UpdateDetails(_ context.Context, e *expense.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.expenses[e.ID]
	if !ok {
		return expense.ErrNotFound
	}
	cur.Name, cur.Category, cur.Amount, cur.Description = e.Name, e.Category, e.Amount, e.Description
	r.expenses[e.ID] = cur
	return nil
}

func (r *memExpenseRepo) UpdateRenewalDate(_ context.Context, id int64, renewalDate time.Time) (*expense.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.expenses[id]
	if !ok {
		return nil, expense.ErrNotFound
	}
	cur.RenewalDate = renewalDate
	cur.ReminderSent = false
	r.expenses[id] = cur
	return &cur, nil
}

func (r *memExpenseRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.expenses[id]; !ok {
		return expense.ErrNotFound
	}
	delete(r.expenses, id)
	return nil
}

func (r *memExpenseRepo) SetReminderSent(_ context.Context, id int64, expectedRenewal time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.expenses[id]
	if !ok || cur.ReminderSent || !expense.SameDate(cur.RenewalDate, expectedRenewal) {
		return false, nil
	}
	cur.ReminderSent = true
	r.expenses[id] = cur
	return true, nil
}

func (r *memExpenseRepo) ListAwaitingReminder(_ context.Context, renewalAfter time.Time) ([]*expense.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	after := expense.DateOnly(renewalAfter)
	var out []*expense.Expense
	for _, e := range r.expenses {
		if e.ReminderSent {
			continue
		}
		y, m, d := e.RenewalDate.Date()
		if time.Date(y, m, d, 0, 0, 0, 0, after.Location()).After(after) {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// set overwrites a row directly, bypassing the reset-on-renewal-change rule.
func (r *memExpenseRepo) set(e expense.Expense) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expenses[e.ID] = e
}

func (r *memExpenseRepo) get(id int64) (expense.Expense, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.expenses[id]
	return e, ok
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[int64]user.User
}

func newMemUserRepo(users ...user.User) *memUserRepo {
	r := &memUserRepo{users: make(map[int64]user.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = int64(len(r.users) + 1)
	r.users[u.ID] = *u
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id int64) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notifier.Message
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, msg notifier.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *fakeNotifier) Sent() []notifier.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifier.Message(nil), n.sent...)
}

var errSMTPDown = errors.New("smtp: connection refused")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
