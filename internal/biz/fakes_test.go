package biz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"describe-service/internal/constants"
	describeErrors "describe-service/internal/errors"
)

// memLedger 内存账本，行为与条件更新一致
type memLedger struct {
	mu        sync.Mutex
	users     map[string]*User
	txs       []*CreditTransaction
	deductErr error
}

func newMemLedger(balances map[string]int64) *memLedger {
	l := &memLedger{users: make(map[string]*User)}
	for id, credits := range balances {
		l.users[id] = &User{ID: id, Role: constants.RoleUser, Credits: credits}
		l.txs = append(l.txs, &CreditTransaction{UserID: id, Kind: constants.CreditKindGeneral, Type: constants.TransactionTypePurchase, Amount: credits})
	}
	return l
}

func (l *memLedger) CheckAndDeduct(ctx context.Context, userID, kind string, amount int64, txType, description string) (*DeductResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.deductErr != nil {
		return nil, l.deductErr
	}
	u, ok := l.users[userID]
	if !ok {
		return nil, describeErrors.ErrUserNotFound(userID)
	}
	if u.Credits < amount {
		return &DeductResult{OK: false, Reason: constants.DeductReasonInsufficient, Remaining: u.Credits}, nil
	}
	u.Credits -= amount
	l.txs = append(l.txs, &CreditTransaction{UserID: userID, Kind: kind, Type: txType, Amount: -amount, Description: description})
	return &DeductResult{OK: true, Remaining: u.Credits}, nil
}

func (l *memLedger) Adjust(ctx context.Context, userID, kind string, amount int64, txType, description string) (*User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[userID]
	if !ok {
		return nil, describeErrors.ErrUserNotFound(userID)
	}
	if u.Balance(kind)+amount < 0 {
		return nil, describeErrors.ErrInsufficientCredits(u.Balance(kind))
	}
	if kind == constants.CreditKindBgRemoval {
		u.BgRemovalCredits += amount
	} else {
		u.Credits += amount
	}
	l.txs = append(l.txs, &CreditTransaction{UserID: userID, Kind: kind, Type: txType, Amount: amount, Description: description})
	cp := *u
	return &cp, nil
}

func (l *memLedger) GetUser(ctx context.Context, userID string) (*User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[userID]
	if !ok {
		return nil, describeErrors.ErrUserNotFound(userID)
	}
	cp := *u
	return &cp, nil
}

func (l *memLedger) ListUsers(ctx context.Context) ([]*User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*User, 0, len(l.users))
	for _, u := range l.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (l *memLedger) ListTransactions(ctx context.Context, limit int) ([]*CreditTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*CreditTransaction, 0, len(l.txs))
	for i := len(l.txs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.txs[i])
	}
	return out, nil
}

func (l *memLedger) FindDrifts(ctx context.Context) ([]*LedgerDrift, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sums := make(map[string]int64)
	for _, t := range l.txs {
		if t.Kind == constants.CreditKindGeneral {
			sums[t.UserID] += t.Amount
		}
	}
	var drifts []*LedgerDrift
	for id, u := range l.users {
		if u.Credits != sums[id] {
			drifts = append(drifts, &LedgerDrift{UserID: id, Kind: constants.CreditKindGeneral, Balance: u.Credits, Sum: sums[id]})
		}
	}
	return drifts, nil
}

func (l *memLedger) balance(userID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.users[userID].Credits
}

func (l *memLedger) debits(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, t := range l.txs {
		if t.UserID == userID && t.Type == constants.TransactionTypeProcessingDebit {
			n++
		}
	}
	return n
}

// fakeDescriber 记录调用次数，按文件名返回错误或 panic
type fakeDescriber struct {
	name    string
	mu      sync.Mutex
	calls   []string
	failOn  map[string]error
	panicOn string
	delay   time.Duration
}

func (d *fakeDescriber) Name() string {
	return d.name
}

func (d *fakeDescriber) Describe(ctx context.Context, img *Image) (*Description, error) {
	d.mu.Lock()
	d.calls = append(d.calls, img.Filename)
	d.mu.Unlock()
	if img.Filename == d.panicOn {
		panic("describer exploded")
	}
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := d.failOn[img.Filename]; ok {
		return nil, err
	}
	return &Description{Text: "a photo of " + img.Filename}, nil
}

func (d *fakeDescriber) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

type fakeRegistry struct {
	describers map[string]Describer
}

func newFakeRegistry(ds ...Describer) *fakeRegistry {
	r := &fakeRegistry{describers: make(map[string]Describer)}
	for _, d := range ds {
		r.describers[d.Name()] = d
	}
	return r
}

func (r *fakeRegistry) Get(provider string) (Describer, error) {
	d, ok := r.describers[provider]
	if !ok {
		return nil, describeErrors.ErrUnknownProvider(provider)
	}
	return d, nil
}

func (r *fakeRegistry) Providers() []string {
	out := make([]string, 0, len(r.describers))
	for name := range r.describers {
		out = append(out, name)
	}
	return out
}

func images(names ...string) []*Image {
	out := make([]*Image, 0, len(names))
	for _, n := range names {
		out = append(out, &Image{Filename: n, MimeType: "image/png", Data: []byte(n)})
	}
	return out
}

type memSessions struct {
	mu      sync.Mutex
	live    map[string]*Session
	created int
	updates int
	deleted []string
	failOn  string
}

func newMemSessions() *memSessions {
	return &memSessions{live: make(map[string]*Session)}
}

func (s *memSessions) Create(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn == "create" {
		return fmt.Errorf("redis down")
	}
	cp := *sess
	s.live[sess.ID] = &cp
	s.created++
	return nil
}

func (s *memSessions) Update(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.live[sess.ID] = &cp
	s.updates++
	return nil
}

func (s *memSessions) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.live[id]
	if !ok {
		return nil, describeErrors.ErrSessionNotFound(id)
	}
	cp := *sess
	return &cp, nil
}

func (s *memSessions) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type memOperations struct {
	mu  sync.Mutex
	ops []*BatchOperation
	err error
}

func (m *memOperations) Create(ctx context.Context, op *BatchOperation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.ops = append(m.ops, op)
	return nil
}

func (m *memOperations) ListByUser(ctx context.Context, userID string, limit int) ([]*BatchOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*BatchOperation
	for _, op := range m.ops {
		if op.UserID == userID {
			out = append(out, op)
		}
	}
	return out, nil
}

type memArtifacts struct {
	rows [][]*ArtifactRow
	err  error
}

func (a *memArtifacts) Generate(ctx context.Context, rows []*ArtifactRow, at time.Time) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.rows = append(a.rows, rows)
	return fmt.Sprintf("http://files.test/files/batch-%d.csv", len(a.rows)), nil
}

type memPublisher struct {
	mu     sync.Mutex
	events []*BatchCompletedEvent
}

func (p *memPublisher) PublishBatchCompleted(ctx context.Context, event *BatchCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}
