// Package memory is a process-local implementation of the repository interfaces.
// It keeps the same unit-of-work guarantees as the postgres package and backs tests and dev runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/custodial-ledger/internal/models"
	"github.com/baharkarakas/custodial-ledger/internal/repository"
)

const DefaultLockTimeout = 2 * time.Second

type Store struct {
	mu       sync.RWMutex
	users    map[string]models.User
	balances map[string]models.Balance
	txns     map[string]models.Transaction
	banks    map[string]models.Bank
	audit    []models.AuditLog

	locks       *keyLocks
	lockTimeout time.Duration
	now         func() time.Time
}

func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Store{
		users:       make(map[string]models.User),
		balances:    make(map[string]models.Balance),
		txns:        make(map[string]models.Transaction),
		banks:       make(map[string]models.Bank),
		locks:       newKeyLocks(),
		lockTimeout: lockTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func NewRepositories(s *Store) repository.Repositories {
	return repository.Repositories{
		Users:        usersRepo{s},
		Balances:     balancesRepo{s},
		Transactions: transactionsRepo{s},
		AuditLogs:    auditLogsRepo{s},
		Banks:        banksRepo{s},
		Stats:        statsRepo{s},
	}
}

type usersRepo struct{ *Store }
type balancesRepo struct{ *Store }
type transactionsRepo struct{ *Store }
type auditLogsRepo struct{ *Store }
type banksRepo struct{ *Store }
type statsRepo struct{ *Store }

// ----------------- Users -----------------

func (s usersRepo) Create(ctx context.Context, u models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) || existing.Username == u.Username {
			return models.User{}, fmt.Errorf("user %s: %w", u.Email, models.ErrDuplicate)
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = u
	return u, nil
}

func (s usersRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return u, nil
}

func (s usersRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("user %s: %w", email, models.ErrNotFound)
}

func (s usersRepo) List(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s usersRepo) UpdateRole(ctx context.Context, id, role string) error {
	return s.updateUser(id, func(u *models.User) { u.Role = role })
}

func (s usersRepo) SetActive(ctx context.Context, id string, active bool) error {
	return s.updateUser(id, func(u *models.User) { u.IsActive = active })
}

func (s *Store) updateUser(id string, fn func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	fn(&u)
	u.UpdatedAt = s.now()
	s.users[id] = u
	return nil
}

// ----------------- Balances -----------------

func (s balancesRepo) GetOrCreate(ctx context.Context, userID string) (models.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.balances[userID]; ok {
		return b, nil
	}
	b := models.Balance{UserID: userID, LastUpdatedAt: s.now()}
	s.balances[userID] = b
	return b, nil
}

func (s balancesRepo) Get(ctx context.Context, userID string) (models.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.balances[userID]
	if !ok {
		return models.Balance{}, fmt.Errorf("balance %s: %w", userID, models.ErrNotFound)
	}
	return b, nil
}

func (s balancesRepo) Adjust(ctx context.Context, userID string, delta int64) (models.Balance, error) {
	var out models.Balance
	err := s.WithTx(ctx, func(tx repository.Tx) error {
		b, err := tx.AdjustBalance(ctx, userID, delta)
		out = b
		return err
	})
	return out, err
}

// ----------------- Transactions -----------------

func (s transactionsRepo) Create(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if _, ok := s.txns[tx.ID]; ok {
		return models.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, models.ErrDuplicate)
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	s.txns[tx.ID] = tx
	return tx, nil
}

func (s transactionsRepo) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.txns[id]
	if !ok {
		return models.Transaction{}, fmt.Errorf("transaction %s: %w", id, models.ErrNotFound)
	}
	return tx, nil
}

func (s transactionsRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	rows := s.filterSorted(func(t models.Transaction) bool { return t.AccountID == userID })
	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s transactionsRepo) ListPending(ctx context.Context, after *repository.PageCursor, limit int) ([]models.Transaction, error) {
	rows := s.filterSorted(func(t models.Transaction) bool {
		if t.Status != models.TxnPending {
			return false
		}
		return after == nil || olderThan(t, *after)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// filterSorted returns matching rows newest first, ties broken by id descending.
func (s *Store) filterSorted(keep func(models.Transaction) bool) []models.Transaction {
	s.mu.RLock()
	out := make([]models.Transaction, 0)
	for _, t := range s.txns {
		if keep(t) {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return olderThan(out[j], repository.PageCursor{CreatedAt: out[i].CreatedAt, ID: out[i].ID})
	})
	return out
}

func olderThan(t models.Transaction, c repository.PageCursor) bool {
	if t.CreatedAt.Equal(c.CreatedAt) {
		return t.ID < c.ID
	}
	return t.CreatedAt.Before(c.CreatedAt)
}

// ----------------- Banks -----------------

func (s banksRepo) Create(ctx context.Context, b models.Bank) (models.Bank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.banks {
		if existing.Name == b.Name && existing.AccountNum == b.AccountNum {
			return models.Bank{}, fmt.Errorf("bank %s %s: %w", b.Name, b.AccountNum, models.ErrDuplicate)
		}
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.CreatedAt = s.now()
	b.UpdatedAt = b.CreatedAt
	s.banks[b.ID] = b
	return b, nil
}

func (s banksRepo) List(ctx context.Context, activeOnly bool) ([]models.Bank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Bank, 0, len(s.banks))
	for _, b := range s.banks {
		if activeOnly && !b.IsActive {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s banksRepo) SetActive(ctx context.Context, id string, active bool) (models.Bank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.banks[id]
	if !ok {
		return models.Bank{}, fmt.Errorf("bank %s: %w", id, models.ErrNotFound)
	}
	b.IsActive = active
	b.UpdatedAt = s.now()
	s.banks[id] = b
	return b, nil
}

// ----------------- Audit / Stats -----------------

func (s auditLogsRepo) Create(ctx context.Context, l models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendAuditLocked(l)
	return nil
}

func (s *Store) appendAuditLocked(l models.AuditLog) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now()
	}
	s.audit = append(s.audit, l)
}

func (s auditLogsRepo) ListByEntity(ctx context.Context, entityID string) ([]models.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AuditLog
	for _, l := range s.audit {
		if l.EntityID != nil && *l.EntityID == entityID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s statsRepo) Stats(ctx context.Context) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st models.Stats
	for _, u := range s.users {
		st.TotalUsers++
		if u.IsActive {
			st.ActiveUsers++
		}
	}
	for _, b := range s.balances {
		st.TotalBalance += b.Amount
	}
	for _, t := range s.txns {
		switch {
		case t.Status == models.TxnPending:
			st.PendingCount++
		case t.Status == models.TxnApproved && t.Kind == models.KindWithdraw:
			st.TotalApprovedWithdraw += t.Amount
		}
	}
	return st, nil
}
