package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhirschtritt/account-ledger/internal/domain"
)

type AccountRouter struct {
	accounts domain.AccountStore
	logger   *slog.Logger
}

func NewAccountRouter(accounts domain.AccountStore, logger *slog.Logger) *AccountRouter {
	return &AccountRouter{
		accounts: accounts,
		logger:   logger,
	}
}

func (ar *AccountRouter) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", ar.listAccountsByEmail)
	r.Get("/{accountID}", ar.getAccount)
	return r
}

type ListAccountsResponse struct {
	Accounts []domain.Account `json:"accounts"`
}

func (ar *AccountRouter) getAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	account, err := ar.accounts.FindByID(r.Context(), accountID)
	if err != nil {
		ar.logger.Error("failed to get account", "error", err, "account_id", accountID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if account == nil {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(account); err != nil {
		ar.logger.Error("failed to encode account response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (ar *AccountRouter) listAccountsByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		http.Error(w, "Missing email query parameter", http.StatusBadRequest)
		return
	}

	accounts, err := ar.accounts.FindAllByEmail(r.Context(), email)
	if err != nil {
		ar.logger.Error("failed to list accounts by email", "error", err, "email", email)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if accounts == nil {
		accounts = []domain.Account{}
	}

	response := ListAccountsResponse{
		Accounts: accounts,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		ar.logger.Error("failed to encode accounts response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
