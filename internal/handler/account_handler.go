package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"balance-ledger/internal/domain"
	"balance-ledger/internal/errors"
	"balance-ledger/internal/identity"
	"balance-ledger/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
}

func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

type CreateAccountRequest struct {
	ID             string `json:"id"`
	InitialBalance string `json:"initial_balance"`
}

type SetBalanceRequest struct {
	Balance string `json:"balance"`
}

type AccountResponse struct {
	ID      string             `json:"id"`
	Owner   identity.Principal `json:"owner"`
	Balance string             `json:"balance"`
}

func toAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:      account.ID,
		Owner:   account.Owner,
		Balance: account.Balance.String(),
	}
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	account, err := h.accountService.CreateAccount(r.Context(), req.ID, req.InitialBalance)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *AccountHandler) SetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["account_id"]

	var req SetBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	account, err := h.accountService.SetBalance(r.Context(), accountID, req.Balance)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["account_id"]

	account, err := h.accountService.GetAccount(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountService.ListAccounts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	responses := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		responses = append(responses, toAccountResponse(&accounts[i]))
	}

	writeJSON(w, http.StatusOK, responses)
}
