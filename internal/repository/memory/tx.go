package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/baharkarakas/custodial-ledger/internal/models"
	"github.com/baharkarakas/custodial-ledger/internal/repository"
)

// WithTx runs fn as one unit of work. Rows touched through the Tx stay locked until fn returns;
// staged writes are applied only when fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(repository.Tx) error) error {
	t := &memTx{
		s:        s,
		held:     make(map[string]func()),
		balances: make(map[string]models.Balance),
		txns:     make(map[string]models.Transaction),
	}
	defer t.release()

	if err := fn(t); err != nil {
		return err
	}
	t.commit()
	return nil
}

type memTx struct {
	s    *Store
	held map[string]func()

	balances map[string]models.Balance
	txns     map[string]models.Transaction
	audit    []models.AuditLog
}

func (t *memTx) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	release, err := t.s.locks.acquire(ctx, key, t.s.lockTimeout)
	if err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	t.held[key] = release
	return nil
}

func (t *memTx) release() {
	for _, r := range t.held {
		r()
	}
	t.held = nil
}

func (t *memTx) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for id, b := range t.balances {
		t.s.balances[id] = b
	}
	for id, tx := range t.txns {
		t.s.txns[id] = tx
	}
	for _, l := range t.audit {
		t.s.appendAuditLocked(l)
	}
}

func (t *memTx) LockTransaction(ctx context.Context, id string) (models.Transaction, error) {
	if err := t.lock(ctx, "txn:"+id); err != nil {
		return models.Transaction{}, err
	}
	return t.transaction(id)
}

func (t *memTx) transaction(id string) (models.Transaction, error) {
	if tx, ok := t.txns[id]; ok {
		return tx, nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	tx, ok := t.s.txns[id]
	if !ok {
		return models.Transaction{}, fmt.Errorf("transaction %s: %w", id, models.ErrNotFound)
	}
	return tx, nil
}

func (t *memTx) AdjustBalance(ctx context.Context, userID string, delta int64) (models.Balance, error) {
	if err := t.lock(ctx, "acct:"+userID); err != nil {
		return models.Balance{}, err
	}
	b, ok := t.balances[userID]
	if !ok {
		t.s.mu.RLock()
		b, ok = t.s.balances[userID]
		_, known := t.s.users[userID]
		t.s.mu.RUnlock()
		if !ok && !known {
			return models.Balance{}, fmt.Errorf("balance %s: %w", userID, models.ErrNotFound)
		}
		// first movement for a registered account opens its balance at zero
		b.UserID = userID
	}
	if b.Amount+delta < 0 {
		return b, fmt.Errorf("balance %s has %d, needs %d: %w", userID, b.Amount, -delta, models.ErrInsufficientFunds)
	}
	b.Amount += delta
	b.LastUpdatedAt = t.s.now()
	t.balances[userID] = b
	return b, nil
}

func (t *memTx) SetDecision(ctx context.Context, id string, status models.TransactionStatus, decidedAt time.Time, decidedBy string) (models.Transaction, error) {
	if err := t.lock(ctx, "txn:"+id); err != nil {
		return models.Transaction{}, err
	}
	tx, err := t.transaction(id)
	if err != nil {
		return models.Transaction{}, err
	}
	if !tx.Status.CanTransitionTo(status) {
		return tx, fmt.Errorf("transaction %s is %s: %w", id, tx.Status, models.ErrAlreadyDecided)
	}
	tx.Status = status
	tx.DecidedAt = &decidedAt
	tx.DecidedBy = &decidedBy
	t.txns[id] = tx
	return tx, nil
}

func (t *memTx) AppendAudit(ctx context.Context, l models.AuditLog) error {
	t.audit = append(t.audit, l)
	return nil
}
