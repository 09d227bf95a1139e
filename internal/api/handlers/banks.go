package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/custodial-ledger/internal/api/httpx"
	"github.com/baharkarakas/custodial-ledger/internal/middleware"
	"github.com/baharkarakas/custodial-ledger/internal/models"
	"github.com/baharkarakas/custodial-ledger/internal/services"
)

type BankHandler struct {
	Banks *services.BankService
}

func NewBankHandler(bs *services.BankService) *BankHandler {
	return &BankHandler{Banks: bs}
}

type bankReq struct {
	Name        string `json:"name"`
	AccountName string `json:"account_name"`
	AccountNum  string `json:"account_num"`
	IsActive    *bool  `json:"is_active"`
}

// Active lists the deposit accounts users may pay into.
func (h *BankHandler) Active(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *BankHandler) All(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

func (h *BankHandler) list(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	banks, err := h.Banks.List(r.Context(), activeOnly)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	if banks == nil {
		banks = []models.Bank{}
	}
	httpx.WriteJSON(w, http.StatusOK, banks)
}

func (h *BankHandler) Create(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.FromCtx(r.Context())
	var req bankReq
	if !httpx.ReadJSON(w, r, &req) {
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	b, err := h.Banks.Create(r.Context(), u.Operator(), models.Bank{
		Name:        req.Name,
		AccountName: req.AccountName,
		AccountNum:  req.AccountNum,
		IsActive:    active,
	})
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, b)
}

// SetActive takes {"is_active":bool} in the body.
func (h *BankHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.FromCtx(r.Context())
	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if !httpx.ReadJSON(w, r, &req) {
		return
	}
	if req.IsActive == nil {
		httpx.WriteServiceError(w, r, models.ValidationError{{Field: "is_active", Msg: "required"}})
		return
	}
	b, err := h.Banks.SetActive(r.Context(), u.Operator(), chi.URLParam(r, "id"), *req.IsActive)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}
