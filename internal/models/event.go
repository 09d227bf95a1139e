package models

import "time"

type EventKind string

const (
	EventPending  EventKind = "pending"
	EventApproved EventKind = "approved"
	EventRejected EventKind = "rejected"
)

// Event is pushed to the live sessions of AccountID after a state transition.
type Event struct {
	AccountID     string          `json:"account_id"`
	Kind          EventKind       `json:"kind"`
	TransactionID string          `json:"transaction_id"`
	TxKind        TransactionKind `json:"tx_kind"`
	Amount        int64           `json:"amount"`
	NewBalance    *int64          `json:"new_balance,omitempty"`
	At            time.Time       `json:"at"`
}

func EventKindFor(s TransactionStatus) EventKind {
	switch s {
	case TxnApproved:
		return EventApproved
	case TxnRejected:
		return EventRejected
	default:
		return EventPending
	}
}
