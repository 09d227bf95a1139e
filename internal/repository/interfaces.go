package repository

import (
	"context"
	"time"

	"github.com/baharkarakas/custodial-ledger/internal/models"
)

type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdateRole(ctx context.Context, id, role string) error
	SetActive(ctx context.Context, id string, active bool) error
}

// Balances is the Account Store. Adjust is the only mutation and is serialised per account.
type Balances interface {
	GetOrCreate(ctx context.Context, userID string) (models.Balance, error)
	Get(ctx context.Context, userID string) (models.Balance, error)
	// Adjust applies delta in its own unit of work; ErrInsufficientFunds leaves the balance unchanged.
	Adjust(ctx context.Context, userID string, delta int64) (models.Balance, error)
}

// PageCursor positions a newest-first page after the last row already seen.
type PageCursor struct {
	CreatedAt time.Time
	ID        string
}

type Transactions interface {
	Create(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	GetByID(ctx context.Context, id string) (models.Transaction, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error)
	// ListPending returns up to limit pending rows strictly older than after (nil = from the newest).
	ListPending(ctx context.Context, after *PageCursor, limit int) ([]models.Transaction, error)

	// Atomic unit of work; everything done through Tx commits or rolls back together.
	WithTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the view of the store inside one unit of work.
type Tx interface {
	// LockTransaction reads the row and holds it until the unit of work ends.
	LockTransaction(ctx context.Context, id string) (models.Transaction, error)
	AdjustBalance(ctx context.Context, userID string, delta int64) (models.Balance, error)
	SetDecision(ctx context.Context, id string, status models.TransactionStatus, decidedAt time.Time, decidedBy string) (models.Transaction, error)
	AppendAudit(ctx context.Context, l models.AuditLog) error
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
	ListByEntity(ctx context.Context, entityID string) ([]models.AuditLog, error)
}

// Banks holds the operator-managed deposit accounts.
type Banks interface {
	Create(ctx context.Context, b models.Bank) (models.Bank, error)
	// List returns banks ordered by name; activeOnly hides disabled ones.
	List(ctx context.Context, activeOnly bool) ([]models.Bank, error)
	SetActive(ctx context.Context, id string, active bool) (models.Bank, error)
}

type Stats interface {
	Stats(ctx context.Context) (models.Stats, error)
}

type Repositories struct {
	Users        Users
	Balances     Balances
	Transactions Transactions
	AuditLogs    AuditLogs
	Banks        Banks
	Stats        Stats
}
