package middleware

import (
	"context"

	"github.com/baharkarakas/custodial-ledger/internal/models"
)

type userKey struct{}

type UserCtx struct {
	UserID string
	Role   string
}

// Operator is the capability handed to the approval engine.
func (u UserCtx) Operator() models.Operator {
	return models.Operator{ID: u.UserID, IsOperator: u.Role == models.RoleAdmin}
}

func WithUser(ctx context.Context, u UserCtx) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func FromCtx(ctx context.Context) (UserCtx, bool) {
	u, ok := ctx.Value(userKey{}).(UserCtx)
	return u, ok && u.UserID != ""
}
