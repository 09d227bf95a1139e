package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/custodial-ledger/internal/api/httpx"
	"github.com/baharkarakas/custodial-ledger/internal/middleware"
	"github.com/baharkarakas/custodial-ledger/internal/models"
	"github.com/baharkarakas/custodial-ledger/internal/realtime"
	"github.com/baharkarakas/custodial-ledger/internal/services"
)

type UserHandler struct {
	Users *services.UserService
	Txns  *services.TransactionService
	Hub   *realtime.Hub
}

func NewUserHandler(us *services.UserService, ts *services.TransactionService, hub *realtime.Hub) *UserHandler {
	return &UserHandler{Users: us, Txns: ts, Hub: hub}
}

// submitReq takes the amount as a JSON number or string in minor units.
type submitReq struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
	Note   string          `json:"note"`
}

// maxAmountDigits is the digit count of math.MaxInt64.
const maxAmountDigits = 19

// ParseAmount accepts only whole minor units that fit in an int64. The exponent and digit
// count are checked before any big-integer work, so inputs like 1e10000000 are refused
// without being expanded. More than 18 decimal places is refused outright.
func ParseAmount(d decimal.Decimal) (int64, error) {
	if d.IsZero() {
		return 0, nil
	}
	exp := int(d.Exponent())
	digits := d.NumDigits()
	if exp < -(maxAmountDigits - 1) {
		return 0, errFractional
	}
	if exp > maxAmountDigits-1 || digits+exp > maxAmountDigits {
		return 0, errOutOfRange
	}
	if !d.IsInteger() {
		return 0, errFractional
	}
	b := d.BigInt()
	if !b.IsInt64() {
		return 0, errOutOfRange
	}
	return b.Int64(), nil
}

var (
	errFractional = models.ValidationError{{Field: "amount", Msg: "must be a whole number of minor units"}}
	errOutOfRange = models.ValidationError{{Field: "amount", Msg: "out of range"}}
)

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.FromCtx(r.Context())
	p, err := h.Users.Profile(r.Context(), u.UserID)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *UserHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, models.KindDeposit)
}

func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, models.KindWithdraw)
}

func (h *UserHandler) submit(w http.ResponseWriter, r *http.Request, kind models.TransactionKind) {
	u, _ := middleware.FromCtx(r.Context())
	var req submitReq
	if !httpx.ReadJSON(w, r, &req) {
		return
	}
	amount, err := ParseAmount(req.Amount)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	tx, err := h.Txns.Submit(r.Context(), u.UserID, models.SubmitRequest{
		Kind:   kind,
		Amount: amount,
		Method: req.Method,
		Note:   req.Note,
	})
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, tx)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.FromCtx(r.Context())
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	txs, err := h.Txns.ListByAccount(r.Context(), u.UserID, limit, offset)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	httpx.WriteJSON(w, http.StatusOK, txs)
}

// Get answers 404 for a transaction owned by someone else.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.FromCtx(r.Context())
	tx, err := h.Txns.Get(r.Context(), chi.URLParam(r, "id"))
	if err == nil && tx.AccountID != u.UserID {
		err = models.ErrNotFound
	}
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tx)
}

// Live streams the caller's own events over a websocket.
func (h *UserHandler) Live(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.FromCtx(r.Context())
	realtime.ServeSession(h.Hub, u.UserID, w, r)
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
