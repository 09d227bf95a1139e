package models

import (
	"fmt"
	"time"
)

type TransactionKind string

const (
	KindDeposit  TransactionKind = "deposit"
	KindWithdraw TransactionKind = "withdraw"
)

func (k TransactionKind) IsValid() bool {
	return k == KindDeposit || k == KindWithdraw
}

// Sign is the direction an approved transaction of this kind moves the balance.
func (k TransactionKind) Sign() int64 {
	if k == KindWithdraw {
		return -1
	}
	return 1
}

type TransactionStatus string

const (
	TxnPending  TransactionStatus = "pending"
	TxnApproved TransactionStatus = "approved"
	TxnRejected TransactionStatus = "rejected"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case TxnPending, TxnApproved, TxnRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition can leave s.
func (s TransactionStatus) IsTerminal() bool {
	return s == TxnApproved || s == TxnRejected
}

// CanTransitionTo reports whether s -> next is allowed.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	switch s {
	case TxnPending:
		return next == TxnApproved || next == TxnRejected
	default:
		return false
	}
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func ParseDecision(raw string) (Decision, error) {
	d := Decision(raw)
	switch d {
	case DecisionApprove, DecisionReject:
		return d, nil
	default:
		return "", fmt.Errorf("%w: decision %q", ErrInvalidArgument, raw)
	}
}

// Status is the terminal status the decision leads to.
func (d Decision) Status() TransactionStatus {
	if d == DecisionApprove {
		return TxnApproved
	}
	return TxnRejected
}

var Methods = []string{"BCA", "BNI", "BRI", "Mandiri", "DANA", "OVO", "GOPAY", "LinkAja"}

func IsValidMethod(m string) bool {
	for _, v := range Methods {
		if v == m {
			return true
		}
	}
	return false
}

type Transaction struct {
	ID        string            `json:"id"`
	AccountID string            `json:"account_id"`
	Kind      TransactionKind   `json:"kind"`
	Amount    int64             `json:"amount"`
	Method    string            `json:"method,omitempty"`
	Status    TransactionStatus `json:"status"`
	Note      string            `json:"note,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	DecidedAt *time.Time        `json:"decided_at,omitempty"`
	DecidedBy *string           `json:"decided_by,omitempty"`
}

// SubmitRequest is a validated command payload coming from the gateway.
type SubmitRequest struct {
	Kind   TransactionKind
	Amount int64
	Method string
	Note   string
}
