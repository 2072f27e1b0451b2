package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/egaotan/solana-gold/errs"
	"github.com/egaotan/solana-gold/gold"
	"github.com/egaotan/solana-gold/opstatus"
	"github.com/egaotan/solana-gold/store"
	"github.com/egaotan/solana-gold/submit"
	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestApp(t *testing.T) (*App, *harness) {
	t.Helper()
	h := newHarness(t, true)
	db, err := store.Open(store.DriverSqlite, ":memory:")
	require.NoError(t, err)
	dao, err := store.NewDao(db)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	s := store.NewStore(ctx, dao, zerolog.Nop())
	s.Start()
	t.Cleanup(func() {
		cancel()
		s.Stop()
	})
	h.orchestrator.Journal = s
	app := &App{
		ctx:          ctx,
		logger:       zerolog.Nop(),
		program:      h.program,
		orchestrator: h.orchestrator,
		store:        s,
		metrics:      h.orchestrator.Metrics,
	}
	return app, h
}

func do(t *testing.T, router http.Handler, method, path, body string) (int, []byte) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec.Code, rec.Body.Bytes()
}

func TestAPI_Addresses(t *testing.T) {
	app, h := newTestApp(t)
	code, body := do(t, app.Router(), http.MethodGet, "/api/addresses", "")
	require.Equal(t, http.StatusOK, code)

	var resp AddressesResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	state, err := h.program.Addresses().StateAddress()
	require.NoError(t, err)
	assert.Equal(t, state.String(), resp.State)
	assert.Equal(t, h.user.String(), resp.ConnectedWallet)
	userToken, err := h.program.Addresses().UserTokenAccount(h.user)
	require.NoError(t, err)
	assert.Equal(t, userToken.String(), resp.UserToken)
	assert.NotEmpty(t, resp.PriceFeed)
}

func TestAPI_BuyInvalidAmount(t *testing.T) {
	app, h := newTestApp(t)
	code, body := do(t, app.Router(), http.MethodPost, "/api/buy", `{"amount":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	var resp OperationResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, opstatus.Error, resp.Status.State)
	require.NotNil(t, resp.Error)
	assert.Equal(t, errs.KindInvalidInput, resp.Error.Kind)
	assert.Equal(t, "usdc_amount", resp.Error.Field)
	assert.Equal(t, 0, h.submitter.calls())

	code, _ = do(t, app.Router(), http.MethodPost, "/api/buy", `{"amount":`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAPI_InitializeReportsEveryField(t *testing.T) {
	app, h := newTestApp(t)
	code, body := do(t, app.Router(), http.MethodPost, "/api/initialize", `{"oracle_authority":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	var resp OperationResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, errs.KindInvalidInput, resp.Error.Kind)
	assert.Equal(t, "oracle_authority", resp.Error.Field)
	assert.Equal(t, []string{"oracle_authority", "custody_provider"}, resp.Error.Fields)
	assert.Equal(t, 0, h.submitter.calls())
}

func TestAPI_SellConfirmedThenJournal(t *testing.T) {
	app, h := newTestApp(t)
	router := app.Router()
	sig := solana.Signature{8, 8}
	h.expect(submit.Outcome{Kind: submit.Confirmed, Signature: sig}, nil)

	code, body := do(t, router, http.MethodPost, "/api/sell", `{"amount":"2.5"}`)
	require.Equal(t, http.StatusOK, code, string(body))
	var resp OperationResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, gold.OpSell, resp.Operation)
	assert.Equal(t, opstatus.Success, resp.Status.State)
	assert.Equal(t, sig.String(), resp.Status.Signature)
	assert.Nil(t, resp.Error)

	code, body = do(t, router, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, code)
	var statuses map[string]opstatus.Status
	require.NoError(t, json.Unmarshal(body, &statuses))
	assert.Equal(t, opstatus.Success, statuses["sell_gold_tokens"].State)
	assert.Equal(t, opstatus.Idle, statuses["buy_gold_tokens"].State)

	require.Eventually(t, func() bool {
		code, body := do(t, router, http.MethodGet, "/api/journal?operation=sell_gold_tokens", "")
		if code != http.StatusOK {
			return false
		}
		var records []*store.OperationRecord
		if err := json.Unmarshal(body, &records); err != nil {
			return false
		}
		return len(records) == 1 && records[0].Signature == sig.String()
	}, time.Second, 10*time.Millisecond)

	code, body = do(t, router, http.MethodGet, "/api/metrics", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `test_operation_total{operation="sell_gold_tokens",outcome="confirmed"} 1`)

	code, _ = do(t, router, http.MethodGet, "/api/journal?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAPI_PriceRejected(t *testing.T) {
	app, h := newTestApp(t)
	h.expect(submit.Outcome{Kind: submit.Rejected, Reason: "not the oracle authority"}, nil)
	code, body := do(t, app.Router(), http.MethodPost, "/api/price", "")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	var resp OperationResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, errs.KindSubmissionRejected, resp.Status.Kind)
	assert.Equal(t, "Error: not the oracle authority", resp.Status.Message)
}

func TestAPI_StateAndRefresh(t *testing.T) {
	app, h := newTestApp(t)
	router := app.Router()

	code, body := do(t, router, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, code)
	var state StateResponse
	require.NoError(t, json.Unmarshal(body, &state))
	assert.True(t, state.Snapshot.Known)
	assert.False(t, state.Snapshot.Initialized)

	h.ledger.setFail(assert.AnError)
	code, _ = do(t, router, http.MethodPost, "/api/refresh", "")
	assert.Equal(t, http.StatusBadGateway, code)

	code, body = do(t, router, http.MethodGet, "/api/balances", "")
	require.Equal(t, http.StatusOK, code)
	var balances BalancesResponse
	require.NoError(t, json.Unmarshal(body, &balances))
	assert.True(t, balances.Snapshot.Known)
	assert.True(t, balances.Sync.Stale)
	assert.Equal(t, errs.KindReadFailure, balances.Sync.Kind)
}
