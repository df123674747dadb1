package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"balance-ledger/internal/identity"
	"balance-ledger/internal/service"
	"balance-ledger/internal/statestore"
)

// testRouter wires the handlers the way the server does, with a stub
// middleware standing in for JWT attestation.
func testRouter() *mux.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := statestore.NewMemStore()

	accountHandler := NewAccountHandler(service.NewAccountService(store, logger))
	transferHandler := NewTransferHandler(service.NewTransferService(store, logger))

	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := identity.WithPrincipal(r.Context(), identity.Principal{Org: "org1", ID: "alice"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})

	router.HandleFunc("/accounts", accountHandler.CreateAccount).Methods("POST")
	router.HandleFunc("/accounts", accountHandler.ListAccounts).Methods("GET")
	router.HandleFunc("/accounts/{account_id}", accountHandler.GetAccount).Methods("GET")
	router.HandleFunc("/accounts/{account_id}/balance", accountHandler.SetBalance).Methods("PUT")
	router.HandleFunc("/transfers", transferHandler.Transfer).Methods("POST")
	return router
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestCreateAccountReturnsCreated(t *testing.T) {
	router := testRouter()

	rec, resp := doJSON(t, router, "POST", "/accounts", CreateAccountRequest{ID: "acc-1", InitialBalance: "100"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Nil(t, resp.Error)
}

func TestCreateDuplicateAccountReturnsConflict(t *testing.T) {
	router := testRouter()

	doJSON(t, router, "POST", "/accounts", CreateAccountRequest{ID: "acc-1", InitialBalance: "100"})
	rec, resp := doJSON(t, router, "POST", "/accounts", CreateAccountRequest{ID: "acc-1", InitialBalance: "100"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "already_exists", resp.Error.Code)
}

func TestCreateAccountWithNegativeBalanceReturnsBadRequest(t *testing.T) {
	router := testRouter()

	rec, resp := doJSON(t, router, "POST", "/accounts", CreateAccountRequest{ID: "acc-1", InitialBalance: "-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid_amount", resp.Error.Code)
}

func TestGetMissingAccountReturnsNotFound(t *testing.T) {
	router := testRouter()

	rec, resp := doJSON(t, router, "GET", "/accounts/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "not_found", resp.Error.Code)
}

func TestSetBalanceOnMissingAccountReturnsNotFound(t *testing.T) {
	router := testRouter()

	rec, _ := doJSON(t, router, "PUT", "/accounts/ghost/balance", SetBalanceRequest{Balance: "10"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransferWithInsufficientBalanceReturnsUnprocessable(t *testing.T) {
	router := testRouter()

	doJSON(t, router, "POST", "/accounts", CreateAccountRequest{ID: "A", InitialBalance: "10"})
	doJSON(t, router, "POST", "/accounts", CreateAccountRequest{ID: "B", InitialBalance: "20"})

	rec, resp := doJSON(t, router, "POST", "/transfers", TransferRequest{FromAccountID: "A", ToAccountID: "B", Amount: "100"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "insufficient_balance", resp.Error.Code)
}

func TestTransferToSameAccountReturnsBadRequest(t *testing.T) {
	router := testRouter()

	doJSON(t, router, "POST", "/accounts", CreateAccountRequest{ID: "A", InitialBalance: "10"})

	rec, resp := doJSON(t, router, "POST", "/transfers", TransferRequest{FromAccountID: "A", ToAccountID: "A", Amount: "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "same_account", resp.Error.Code)
}

func TestListAccountsReturnsArray(t *testing.T) {
	router := testRouter()

	doJSON(t, router, "POST", "/accounts", CreateAccountRequest{ID: "A", InitialBalance: "10"})
	doJSON(t, router, "POST", "/accounts", CreateAccountRequest{ID: "B", InitialBalance: "20"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/accounts", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []AccountResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
}

func TestMalformedBodyReturnsBadRequest(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest("POST", "/accounts", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
