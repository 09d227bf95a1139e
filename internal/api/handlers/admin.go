package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/custodial-ledger/internal/api/httpx"
	"github.com/baharkarakas/custodial-ledger/internal/middleware"
	"github.com/baharkarakas/custodial-ledger/internal/models"
	"github.com/baharkarakas/custodial-ledger/internal/services"
)

const maxPendingPage = 500

type AdminHandler struct {
	Users  *services.UserService
	Txns   *services.TransactionService
	Engine *services.ApprovalEngine
	Stats  *services.StatsService
}

func NewAdminHandler(us *services.UserService, ts *services.TransactionService, e *services.ApprovalEngine, ss *services.StatsService) *AdminHandler {
	return &AdminHandler{Users: us, Txns: ts, Engine: e, Stats: ss}
}

// Pending lists up to ?limit= pending requests, newest first.
func (h *AdminHandler) Pending(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit <= 0 || limit > maxPendingPage {
		limit = maxPendingPage
	}
	out := make([]models.Transaction, 0, limit)
	for tx, err := range h.Txns.ListPending(r.Context()) {
		if err != nil {
			httpx.WriteServiceError(w, r, err)
			return
		}
		out = append(out, tx)
		if len(out) == limit {
			break
		}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Txns.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tx)
}

func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, models.DecisionApprove)
}

func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, models.DecisionReject)
}

// Decision takes {"decision":"approve|reject"} in the body.
func (h *AdminHandler) Decision(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Decision string `json:"decision"`
	}
	if !httpx.ReadJSON(w, r, &req) {
		return
	}
	d, err := models.ParseDecision(req.Decision)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	h.decide(w, r, d)
}

func (h *AdminHandler) decide(w http.ResponseWriter, r *http.Request, d models.Decision) {
	u, _ := middleware.FromCtx(r.Context())
	tx, err := h.Engine.Decide(r.Context(), u.Operator(), chi.URLParam(r, "id"), d)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tx)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context())
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.FromCtx(r.Context())
	if err := h.Users.Deactivate(r.Context(), u.Operator(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) StatsSummary(w http.ResponseWriter, r *http.Request) {
	st, err := h.Stats.Get(r.Context())
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, st)
}
