package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/custodial-ledger/internal/api/httpx"
	"github.com/baharkarakas/custodial-ledger/internal/auth"
	"github.com/baharkarakas/custodial-ledger/internal/config"
	"github.com/baharkarakas/custodial-ledger/internal/models"
	"github.com/baharkarakas/custodial-ledger/internal/realtime"
	"github.com/baharkarakas/custodial-ledger/internal/repository/memory"
	"github.com/baharkarakas/custodial-ledger/internal/services"
)

type testAPI struct {
	srv   *httptest.Server
	users *services.UserService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	cfg := config.Config{RateRPS: 0, Policy: config.DefaultPolicy()}
	repos := memory.NewRepositories(memory.NewStore(time.Second))
	hub := realtime.NewHub(16)
	bal := services.NewBalanceService(repos.Balances)
	us := services.NewUserService(repos, bal, nil)
	h := NewRouter(RouterDeps{
		Cfg:      cfg,
		Tokens:   auth.NewTokenManager("test", "a", "r", time.Minute, time.Hour),
		UserSvc:  us,
		TxnSvc:   services.NewTransactionService(repos, bal, hub, nil, cfg.Policy),
		Engine:   services.NewApprovalEngine(repos, bal, hub, 3),
		StatsSvc: services.NewStatsService(repos.Stats),
		BankSvc:  services.NewBankService(repos),
		Hub:      hub,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, users: us}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (a *testAPI) login(t *testing.T, email, password string) string {
	t.Helper()
	var pair auth.Pair
	code := a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password}, &pair)
	require.Equal(t, http.StatusOK, code)
	return pair.AccessToken
}

func TestDepositApprovalFlow(t *testing.T) {
	a := newTestAPI(t)
	_, err := a.users.EnsureOperator(context.Background(), "ops@example.com", "operator-pass")
	require.NoError(t, err)

	code := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "password-123",
	}, nil)
	require.Equal(t, http.StatusCreated, code)

	user := a.login(t, "alice@example.com", "password-123")
	op := a.login(t, "ops@example.com", "operator-pass")

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(a.srv.URL, "http")+"/api/v1/ws?token="+user, nil)
	require.NoError(t, err)
	defer ws.Close()
	time.Sleep(50 * time.Millisecond)

	var tx models.Transaction
	code = a.do(t, http.MethodPost, "/api/v1/transactions/deposit", user, map[string]any{"amount": "50000", "method": "OVO"}, &tx)
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, models.TxnPending, tx.Status)

	var pending []models.Transaction
	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/v1/admin/requests", op, nil, &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, tx.ID, pending[0].ID)

	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodPost, "/api/v1/admin/requests/"+tx.ID+"/approve", user, nil, nil))

	var decided models.Transaction
	require.Equal(t, http.StatusOK, a.do(t, http.MethodPost, "/api/v1/admin/requests/"+tx.ID+"/approve", op, nil, &decided))
	assert.Equal(t, models.TxnApproved, decided.Status)

	assert.Equal(t, http.StatusConflict, a.do(t, http.MethodPost, "/api/v1/admin/requests/"+tx.ID+"/decision", op,
		map[string]string{"decision": "reject"}, nil))

	var me models.Profile
	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/v1/me", user, nil, &me))
	assert.Equal(t, int64(50_000), me.Balance)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var kinds []models.EventKind
	for len(kinds) < 2 {
		var ev models.Event
		require.NoError(t, ws.ReadJSON(&ev))
		assert.Equal(t, tx.ID, ev.TransactionID)
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []models.EventKind{models.EventPending, models.EventApproved}, kinds)
}

func TestGatewayErrors(t *testing.T) {
	a := newTestAPI(t)
	_, err := a.users.EnsureOperator(context.Background(), "ops@example.com", "operator-pass")
	require.NoError(t, err)
	for _, name := range []string{"bob", "carl"} {
		require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
			"username": name, "email": name + "@example.com", "password": "password-123",
		}, nil))
	}
	bob := a.login(t, "bob@example.com", "password-123")
	carl := a.login(t, "carl@example.com", "password-123")
	op := a.login(t, "ops@example.com", "operator-pass")

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/api/v1/me", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "bob@example.com", "password": "nope"}, nil))

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/v1/transactions/deposit", bob, map[string]any{"amount": 10.5}, nil))
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/v1/transactions/deposit", bob, map[string]any{"amount": 100}, nil))
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/v1/transactions/withdraw", bob, map[string]any{"amount": 20000}, nil))

	var tx models.Transaction
	require.Equal(t, http.StatusAccepted, a.do(t, http.MethodPost, "/api/v1/transactions/deposit", bob, map[string]any{"amount": 20000}, &tx))
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/v1/transactions/"+tx.ID, carl, nil, nil))
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/v1/transactions/"+tx.ID, bob, nil, nil))

	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodPost, "/api/v1/admin/requests/missing/approve", op, nil, nil))
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/v1/admin/requests/"+tx.ID+"/decision", op,
		map[string]string{"decision": "maybe"}, nil))

	var me models.Profile
	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/v1/me", carl, nil, &me))
	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodPost, "/api/v1/admin/users/"+me.ID+"/deactivate", op, nil, nil))
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodPost, "/api/v1/transactions/deposit", carl, map[string]any{"amount": 20000}, nil))

	var st models.Stats
	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/v1/admin/stats", op, nil, &st))
	assert.Equal(t, int64(1), st.PendingCount)
	assert.Equal(t, int64(2), st.ActiveUsers)
}

func TestBanksAndPayoutAccounts(t *testing.T) {
	a := newTestAPI(t)
	_, err := a.users.EnsureOperator(context.Background(), "ops@example.com", "operator-pass")
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "dina", "email": "dina@example.com", "password": "password-123",
		"bank_type": "PAYPAL", "bank_name": "Dina", "bank_num": "12",
	}, nil))
	require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "dina", "email": "dina@example.com", "password": "password-123",
		"bank_type": "BCA", "bank_name": "Dina Putri", "bank_num": "1234567890",
	}, nil))
	user := a.login(t, "dina@example.com", "password-123")
	op := a.login(t, "ops@example.com", "operator-pass")

	var me models.Profile
	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/v1/me", user, nil, &me))
	assert.Equal(t, models.PayoutAccount{Type: "BCA", Name: "Dina Putri", Number: "1234567890"}, me.Payout)

	newBank := map[string]string{"name": "BNI", "account_name": "PT Kas Bersama", "account_num": "9876543210"}
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodPost, "/api/v1/admin/banks", user, newBank, nil))
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/v1/admin/banks", op,
		map[string]string{"name": "PAYPAL", "account_name": "x", "account_num": "abc"}, nil))

	var bank models.Bank
	require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/api/v1/admin/banks", op, newBank, &bank))
	assert.True(t, bank.IsActive)
	assert.Equal(t, http.StatusConflict, a.do(t, http.MethodPost, "/api/v1/admin/banks", op, newBank, nil))

	var banks []models.Bank
	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/v1/banks", "", nil, &banks))
	require.Len(t, banks, 1)
	assert.Equal(t, "9876543210", banks[0].AccountNum)

	require.Equal(t, http.StatusOK, a.do(t, http.MethodPost, "/api/v1/admin/banks/"+bank.ID+"/active", op,
		map[string]bool{"is_active": false}, &bank))
	assert.False(t, bank.IsActive)

	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/v1/banks", "", nil, &banks))
	assert.Empty(t, banks)
	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/v1/admin/banks", op, nil, &banks))
	assert.Len(t, banks, 1)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodPost, "/api/v1/admin/banks/missing/active", op,
		map[string]bool{"is_active": true}, nil))
}

func TestHostileRequestBodies(t *testing.T) {
	a := newTestAPI(t)
	require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "erin", "email": "erin@example.com", "password": "password-123",
	}, nil))
	user := a.login(t, "erin@example.com", "password-123")

	start := time.Now()
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/v1/transactions/deposit", user,
		json.RawMessage(`{"amount":1e10000000}`), nil))
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/v1/transactions/deposit", user,
		json.RawMessage(`{"amount":"1e-10000000"}`), nil))
	assert.Less(t, time.Since(start), 2*time.Second)

	huge := map[string]string{"amount": "20000", "note": strings.Repeat("x", httpx.MaxBodyBytes)}
	assert.Equal(t, http.StatusRequestEntityTooLarge, a.do(t, http.MethodPost, "/api/v1/transactions/deposit", user, huge, nil))
}
