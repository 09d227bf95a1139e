package models

import "time"

// Balance is the Account Store row for one account, amounts in minor units.
type Balance struct {
	UserID        string    `json:"user_id"`
	Amount        int64     `json:"amount"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}
