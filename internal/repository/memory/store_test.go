package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/custodial-ledger/internal/models"
	"github.com/baharkarakas/custodial-ledger/internal/repository"
)

func newRepos(t *testing.T) repository.Repositories {
	t.Helper()
	return NewRepositories(NewStore(200 * time.Millisecond))
}

func TestBalances_AdjustRejectsNegativeResult(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	_, err := r.Balances.GetOrCreate(ctx, "u1")
	require.NoError(t, err)

	b, err := r.Balances.Adjust(ctx, "u1", 700)
	require.NoError(t, err)
	assert.Equal(t, int64(700), b.Amount)

	_, err = r.Balances.Adjust(ctx, "u1", -701)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	b, err = r.Balances.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(700), b.Amount)
}

func TestBalances_AdjustUnknownAccount(t *testing.T) {
	_, err := newRepos(t).Balances.Adjust(context.Background(), "ghost", 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestBalances_ConcurrentAdjustNeverNegative(t *testing.T) {
	ctx := context.Background()
	r := NewRepositories(NewStore(5 * time.Second))
	_, _ = r.Balances.GetOrCreate(ctx, "u1")
	_, err := r.Balances.Adjust(ctx, "u1", 1_000)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Balances.Adjust(ctx, "u1", -100); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	b, _ := r.Balances.Get(ctx, "u1")
	assert.Equal(t, 10, ok)
	assert.Equal(t, int64(0), b.Amount)
}

func TestWithTx_RollsBackStagedWrites(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	_, _ = r.Balances.GetOrCreate(ctx, "u1")
	tx, err := r.Transactions.Create(ctx, models.Transaction{AccountID: "u1", Kind: models.KindDeposit, Amount: 50, Status: models.TxnPending})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = r.Transactions.WithTx(ctx, func(utx repository.Tx) error {
		if _, err := utx.LockTransaction(ctx, tx.ID); err != nil {
			return err
		}
		if _, err := utx.AdjustBalance(ctx, "u1", 50); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	b, _ := r.Balances.Get(ctx, "u1")
	assert.Equal(t, int64(0), b.Amount)
	got, _ := r.Transactions.GetByID(ctx, tx.ID)
	assert.Equal(t, models.TxnPending, got.Status)
}

func TestWithTx_LockTimeoutIsConflict(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	tx, _ := r.Transactions.Create(ctx, models.Transaction{AccountID: "u1", Kind: models.KindDeposit, Amount: 50, Status: models.TxnPending})

	locked := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = r.Transactions.WithTx(ctx, func(utx repository.Tx) error {
			_, _ = utx.LockTransaction(ctx, tx.ID)
			close(locked)
			<-done
			return nil
		})
	}()
	<-locked
	defer close(done)

	err := r.Transactions.WithTx(ctx, func(utx repository.Tx) error {
		_, err := utx.LockTransaction(ctx, tx.ID)
		return err
	})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestSetDecision_TerminalIsImmutable(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	tx, _ := r.Transactions.Create(ctx, models.Transaction{AccountID: "u1", Kind: models.KindWithdraw, Amount: 50, Status: models.TxnPending})

	decide := func(s models.TransactionStatus) error {
		return r.Transactions.WithTx(ctx, func(utx repository.Tx) error {
			_, err := utx.SetDecision(ctx, tx.ID, s, time.Now(), "op")
			return err
		})
	}
	require.NoError(t, decide(models.TxnRejected))
	assert.ErrorIs(t, decide(models.TxnApproved), models.ErrAlreadyDecided)

	got, _ := r.Transactions.GetByID(ctx, tx.ID)
	assert.Equal(t, models.TxnRejected, got.Status)
	require.NotNil(t, got.DecidedBy)
	assert.Equal(t, "op", *got.DecidedBy)
}

func TestListPending_NewestFirstWithCursor(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c", "d"} {
		_, err := r.Transactions.Create(ctx, models.Transaction{
			ID: id, AccountID: "u1", Kind: models.KindDeposit, Amount: 10,
			Status: models.TxnPending, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, _ = r.Transactions.Create(ctx, models.Transaction{ID: "e", AccountID: "u1", Status: models.TxnApproved, CreatedAt: base.Add(time.Hour)})

	page, err := r.Transactions.ListPending(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "d", page[0].ID)
	assert.Equal(t, "c", page[1].ID)

	last := page[1]
	page, err = r.Transactions.ListPending(ctx, &repository.PageCursor{CreatedAt: last.CreatedAt, ID: last.ID}, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].ID)
	assert.Equal(t, "a", page[1].ID)
}

func TestUsers_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	_, err := r.Users.Create(ctx, models.User{Username: "alice", Email: "Alice@x.io"})
	require.NoError(t, err)
	_, err = r.Users.Create(ctx, models.User{Username: "alice2", Email: "alice@x.io"})
	assert.ErrorIs(t, err, models.ErrDuplicate)

	u, err := r.Users.GetByEmail(ctx, "ALICE@x.io")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	u, _ := r.Users.Create(ctx, models.User{Username: "alice", Email: "a@x.io", IsActive: true})
	_, _ = r.Users.Create(ctx, models.User{Username: "bob", Email: "b@x.io"})
	_, _ = r.Balances.GetOrCreate(ctx, u.ID)
	_, _ = r.Balances.Adjust(ctx, u.ID, 300)
	_, _ = r.Transactions.Create(ctx, models.Transaction{AccountID: u.ID, Kind: models.KindWithdraw, Amount: 40, Status: models.TxnApproved})
	_, _ = r.Transactions.Create(ctx, models.Transaction{AccountID: u.ID, Kind: models.KindDeposit, Amount: 40, Status: models.TxnPending})

	st, err := r.Stats.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{ActiveUsers: 1, TotalUsers: 2, TotalBalance: 300, TotalApprovedWithdraw: 40, PendingCount: 1}, st)
}

func TestAdjustBalance_OpensMissingRowForKnownUser(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	u, err := r.Users.Create(ctx, models.User{Username: "nobal", Email: "nobal@example.com", IsActive: true})
	require.NoError(t, err)

	_, err = r.Balances.Adjust(ctx, u.ID, -1)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	_, err = r.Balances.Get(ctx, u.ID)
	assert.ErrorIs(t, err, models.ErrNotFound, "failed adjust must not leave a row behind")

	b, err := r.Balances.Adjust(ctx, u.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(500), b.Amount)
	assert.Equal(t, u.ID, b.UserID)
}

func TestKeyLocks_EntriesAreReleased(t *testing.T) {
	ctx := context.Background()
	k := newKeyLocks()

	for i := 0; i < 100; i++ {
		release, err := k.acquire(ctx, "txn:"+string(rune('a'+i%26)), time.Second)
		require.NoError(t, err)
		release()
		release()
	}
	assert.Equal(t, 0, k.size())

	hold, err := k.acquire(ctx, "acct:1", time.Second)
	require.NoError(t, err)
	_, err = k.acquire(ctx, "acct:1", 10*time.Millisecond)
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Equal(t, 1, k.size(), "timed out waiter drops its reference")

	got := make(chan error, 1)
	go func() {
		release, err := k.acquire(ctx, "acct:1", time.Second)
		if err == nil {
			release()
		}
		got <- err
	}()
	time.Sleep(20 * time.Millisecond)
	hold()
	require.NoError(t, <-got)
	assert.Equal(t, 0, k.size())
}

func TestWithTx_ManyTransactionsLeaveNoLocks(t *testing.T) {
	ctx := context.Background()
	s := NewStore(200 * time.Millisecond)
	r := NewRepositories(s)
	_, _ = r.Balances.GetOrCreate(ctx, "u1")

	for i := 0; i < 20; i++ {
		tx, err := r.Transactions.Create(ctx, models.Transaction{AccountID: "u1", Kind: models.KindDeposit, Amount: 10, Status: models.TxnPending})
		require.NoError(t, err)
		require.NoError(t, r.Transactions.WithTx(ctx, func(utx repository.Tx) error {
			if _, err := utx.LockTransaction(ctx, tx.ID); err != nil {
				return err
			}
			_, err := utx.AdjustBalance(ctx, "u1", 10)
			return err
		}))
	}
	assert.Equal(t, 0, s.locks.size())
}

func TestBanks_ListOrderingAndActiveFilter(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	bni, err := r.Banks.Create(ctx, models.Bank{Name: "BNI", AccountName: "PT Kas", AccountNum: "2222222222", IsActive: true})
	require.NoError(t, err)
	_, err = r.Banks.Create(ctx, models.Bank{Name: "BCA", AccountName: "PT Kas", AccountNum: "1111111111", IsActive: true})
	require.NoError(t, err)
	_, err = r.Banks.Create(ctx, models.Bank{Name: "BCA", AccountName: "Other", AccountNum: "1111111111", IsActive: true})
	assert.ErrorIs(t, err, models.ErrDuplicate)

	off, err := r.Banks.SetActive(ctx, bni.ID, false)
	require.NoError(t, err)
	assert.False(t, off.IsActive)

	all, err := r.Banks.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "BCA", all[0].Name)
	assert.Equal(t, "BNI", all[1].Name)

	active, err := r.Banks.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "BCA", active[0].Name)

	_, err = r.Banks.SetActive(ctx, "missing", true)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
