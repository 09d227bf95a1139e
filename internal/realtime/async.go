package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/baharkarakas/custodial-ledger/internal/metrics"
	"github.com/baharkarakas/custodial-ledger/internal/models"
)

// Submitter is the part of worker.Pool that Async needs.
type Submitter interface {
	TrySubmit(f func()) bool
}

// Async runs the wrapped Notifier on a worker pool so the caller never waits for delivery.
type Async struct {
	next    Notifier
	pool    Submitter
	timeout time.Duration
}

func NewAsync(next Notifier, pool Submitter) *Async {
	return &Async{next: next, pool: pool, timeout: 3 * time.Second}
}

func (a *Async) Notify(_ context.Context, ev models.Event) {
	ok := a.pool.TrySubmit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		a.next.Notify(ctx, ev)
	})
	if !ok {
		metrics.NotificationsDropped.WithLabelValues("queue_full").Inc()
		slog.Warn("realtime event dropped", "account_id", ev.AccountID, "kind", ev.Kind, "tx_id", ev.TransactionID)
	}
}
