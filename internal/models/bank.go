package models

import "time"

// Bank is an operator-managed receiving account that users deposit into.
type Bank struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	AccountName string    `json:"account_name"`
	AccountNum  string    `json:"account_num"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PayoutAccount is where a user's approved withdrawals are paid out.
type PayoutAccount struct {
	Type   string `json:"bank_type,omitempty"`
	Name   string `json:"bank_name,omitempty"`
	Number string `json:"bank_num,omitempty"`
}

func (p PayoutAccount) IsZero() bool {
	return p.Type == "" && p.Name == "" && p.Number == ""
}
