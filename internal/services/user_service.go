package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/baharkarakas/custodial-ledger/internal/auth"
	"github.com/baharkarakas/custodial-ledger/internal/models"
	repo "github.com/baharkarakas/custodial-ledger/internal/repository"
	"github.com/baharkarakas/custodial-ledger/internal/validate"
)

const minPasswordLen = 8

// ErrBadCredentials is returned by Authenticate for an unknown email or a wrong password.
var ErrBadCredentials = errors.New("invalid credentials")

type UserService struct {
	users repo.Users
	bal   *BalanceService
	audit repo.AuditLogs
	ops   Announcer
}

func NewUserService(r repo.Repositories, bal *BalanceService, ops Announcer) *UserService {
	if ops == nil {
		ops = nopAnnouncer{}
	}
	return &UserService{users: r.Users, bal: bal, audit: r.AuditLogs, ops: ops}
}

// Register creates an active user account together with its zero balance. The payout
// account is optional, but when any part of it is given all of it must be valid.
func (s *UserService) Register(ctx context.Context, username, email, password string, payout models.PayoutAccount) (models.User, error) {
	u := models.User{
		Username: strings.TrimSpace(username),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Role:     models.RoleUser,
		IsActive: true,
		Payout: models.PayoutAccount{
			Type:   payout.Type,
			Name:   strings.TrimSpace(payout.Name),
			Number: strings.TrimSpace(payout.Number),
		},
	}
	if err := u.Validate(); err != nil {
		return models.User{}, err
	}
	if err := validate.Collect(validate.MinLen("password", password, minPasswordLen)); err != nil {
		return models.User{}, err
	}
	if err := validatePayout(u.Payout); err != nil {
		return models.User{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	u.PasswordHash = hash

	u, err = s.users.Create(ctx, u)
	if err != nil {
		return models.User{}, err
	}
	if _, err := s.bal.Open(ctx, u.ID); err != nil {
		// the row is opened again by the first approved deposit
		slog.Warn("open balance failed", "user_id", u.ID, "err", err)
	}
	s.auditUser(ctx, u.ID, "registered", map[string]any{"username": u.Username})
	slog.Info("user registered", "user_id", u.ID, "username", u.Username)
	msg := fmt.Sprintf("<b>New user</b>\n<b>Username:</b> %s\n<b>Email:</b> %s",
		html.EscapeString(u.Username), html.EscapeString(u.Email))
	if !u.Payout.IsZero() {
		msg += fmt.Sprintf("\n<b>Bank:</b> %s - %s (%s)",
			html.EscapeString(u.Payout.Type), html.EscapeString(u.Payout.Number), html.EscapeString(u.Payout.Name))
	}
	s.ops.Announce(msg)
	return u, nil
}

func validatePayout(p models.PayoutAccount) error {
	if p.IsZero() {
		return nil
	}
	return validate.Collect(
		validate.OneOf("bank_type", p.Type, models.Methods),
		validate.MinLen("bank_name", p.Name, 2),
		validate.MaxLen("bank_name", p.Name, 100),
		validate.MinLen("bank_num", p.Number, 10),
		validate.MaxLen("bank_num", p.Number, 30),
		validate.Digits("bank_num", p.Number),
	)
}

// Authenticate checks email and password and refuses deactivated accounts.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, models.ErrNotFound) {
		return models.User{}, ErrBadCredentials
	}
	if err != nil {
		return models.User{}, err
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		return models.User{}, ErrBadCredentials
	}
	if !u.IsActive {
		return models.User{}, fmt.Errorf("user %s: %w", u.ID, models.ErrInactiveAccount)
	}
	return u, nil
}

// EnsureOperator creates the admin account for email, or promotes the existing user.
func (s *UserService) EnsureOperator(ctx context.Context, email, password string) (models.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, models.ErrNotFound):
		name, _, _ := strings.Cut(email, "@")
		if len(name) < 3 {
			name = "operator"
		}
		u, err = s.Register(ctx, name, email, password, models.PayoutAccount{})
		if err != nil {
			return models.User{}, err
		}
	case err != nil:
		return models.User{}, err
	}
	if u.Role != models.RoleAdmin {
		if err := s.users.UpdateRole(ctx, u.ID, models.RoleAdmin); err != nil {
			return models.User{}, err
		}
		u.Role = models.RoleAdmin
		slog.Info("operator promoted", "user_id", u.ID)
	}
	return u, nil
}

// Deactivate stops accountID from logging in or submitting; the account and its history stay.
func (s *UserService) Deactivate(ctx context.Context, op models.Operator, accountID string) error {
	if !op.IsOperator {
		return models.ErrForbidden
	}
	if err := s.users.SetActive(ctx, accountID, false); err != nil {
		return err
	}
	s.auditUser(ctx, accountID, "deactivated", map[string]any{"operator_id": op.ID})
	slog.Info("user deactivated", "user_id", accountID, "operator_id", op.ID)
	return nil
}

func (s *UserService) Get(ctx context.Context, id string) (models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

// Profile returns the user with the authoritative balance.
func (s *UserService) Profile(ctx context.Context, id string) (models.Profile, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.Profile{}, err
	}
	b, err := s.bal.Current(ctx, id)
	if err != nil {
		return models.Profile{}, err
	}
	return models.Profile{User: u, Balance: b.Amount}, nil
}

func (s *UserService) auditUser(ctx context.Context, id, action string, details map[string]any) {
	if err := s.audit.Create(ctx, models.AuditLog{EntityType: "user", EntityID: &id, Action: action, Details: details}); err != nil {
		slog.Warn("audit write failed", "user_id", id, "err", err)
	}
}
