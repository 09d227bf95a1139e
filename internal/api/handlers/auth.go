package handlers

import (
	"errors"
	"net/http"

	"github.com/baharkarakas/custodial-ledger/internal/api/httpx"
	"github.com/baharkarakas/custodial-ledger/internal/auth"
	"github.com/baharkarakas/custodial-ledger/internal/models"
	"github.com/baharkarakas/custodial-ledger/internal/services"
)

type AuthHandler struct {
	TM    *auth.TokenManager
	Users *services.UserService
}

func NewAuthHandler(tm *auth.TokenManager, us *services.UserService) *AuthHandler {
	return &AuthHandler{TM: tm, Users: us}
}

// registerReq carries the optional payout account flat: bank_type, bank_name, bank_num.
type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	models.PayoutAccount
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResp struct {
	auth.Pair
	User *models.User `json:"user,omitempty"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if !httpx.ReadJSON(w, r, &req) {
		return
	}
	u, err := h.Users.Register(r.Context(), req.Username, req.Email, req.Password, req.PayoutAccount)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, u)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !httpx.ReadJSON(w, r, &req) {
		return
	}
	u, err := h.Users.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, services.ErrBadCredentials) {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials", nil)
		return
	}
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	h.issue(w, r, u)
}

// Refresh rotates a token pair. The account is re-read so a deactivation or role change
// takes effect at the next refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if !httpx.ReadJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request", nil)
		return
	}
	claims, err := h.TM.ParseRefresh(req.RefreshToken)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token", nil)
		return
	}
	u, err := h.Users.Get(r.Context(), claims.UserID)
	if errors.Is(err, models.ErrNotFound) {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token", nil)
		return
	}
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	if !u.IsActive {
		httpx.WriteServiceError(w, r, models.ErrInactiveAccount)
		return
	}
	h.issue(w, r, u)
}

func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, u models.User) {
	pair, err := h.TM.GeneratePair(u.ID, u.Role)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResp{Pair: pair, User: &u})
}
