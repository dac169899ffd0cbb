// Package handler exposes the ledger over HTTP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"assetgate/internal/ledger/service"
	id "assetgate/pkg/domain"
	dErrors "assetgate/pkg/domain-errors"
	"assetgate/pkg/platform/httputil"
)

type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// AdminRoutes mounts issuance and redemption. Both are authority-only;
// callers must wrap these with the actor-authentication middleware.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Post("/mint", h.mint)
	r.Post("/burn", h.burn)
}

// Routes mounts transfers and balance queries.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/transfers", h.transfer)
	r.Get("/accounts/{account}/balance", h.balance)
	r.Get("/supply", h.supply)
}

type issuanceRequest struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

func (h *Handler) mint(w http.ResponseWriter, r *http.Request) {
	var req issuanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid JSON body"))
		return
	}

	account, err := id.ParseAccountID(req.Account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.svc.Mint(r.Context(), account, req.Amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"balance": h.svc.BalanceOf(account)})
}

func (h *Handler) burn(w http.ResponseWriter, r *http.Request) {
	var req issuanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid JSON body"))
		return
	}

	account, err := id.ParseAccountID(req.Account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.svc.Burn(r.Context(), account, req.Amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"balance": h.svc.BalanceOf(account)})
}

type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid JSON body"))
		return
	}

	from, err := id.ParseAccountID(req.From)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	to, err := id.ParseAccountID(req.To)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.svc.Transfer(r.Context(), from, to, req.Amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{
		"from_balance": h.svc.BalanceOf(from),
		"to_balance":   h.svc.BalanceOf(to),
	})
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"balance": h.svc.BalanceOf(account)})
}

func (h *Handler) supply(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"supply": h.svc.TotalSupply()})
}
