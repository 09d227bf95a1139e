package models

import (
	"net/mail"
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string        `json:"id"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Role         string        `json:"role"`
	IsActive     bool          `json:"is_active"`
	Payout       PayoutAccount `json:"payout"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (u *User) Validate() error {
	var errs ValidationError
	if n := len(strings.TrimSpace(u.Username)); n < 3 || n > 30 {
		errs = append(errs, FieldError{Field: "username", Msg: "must be 3-30 characters"})
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		errs = append(errs, FieldError{Field: "email", Msg: "invalid email"})
	}
	if len(errs) > 0 {
		return errs
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// Operator is the capability the gateway asserts for admin actions.
type Operator struct {
	ID         string
	IsOperator bool
}

// Profile is a user together with the authoritative balance.
type Profile struct {
	User
	Balance int64 `json:"balance"`
}

type Stats struct {
	ActiveUsers           int64 `json:"active_users"`
	TotalUsers            int64 `json:"total_users"`
	TotalBalance          int64 `json:"total_balance"`
	TotalApprovedWithdraw int64 `json:"total_approved_withdraw"`
	PendingCount          int64 `json:"pending_count"`
}
