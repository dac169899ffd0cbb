// Package handler exposes the identity registry over HTTP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"assetgate/internal/registry/service"
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

// AdminRoutes mounts the mutating surface. Callers must wrap these with the
// actor-authentication middleware; the service re-checks authority itself.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Post("/verifications", h.verify)
	r.Post("/verifications/batch", h.batchVerify)
	r.Delete("/verifications/{account}", h.revoke)
}

// Routes mounts the read-only query surface.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/accounts/{account}", h.getAccount)
	r.Get("/accounts/{account}/jurisdiction", h.getJurisdiction)
	r.Get("/jurisdictions/{code}/count", h.getJurisdictionCount)
	r.Get("/stats", h.getStats)
}

type verifyRequest struct {
	Account      string `json:"account"`
	Jurisdiction string `json:"jurisdiction"`
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid JSON body"))
		return
	}

	account, err := id.ParseAccountID(req.Account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.svc.Verify(r.Context(), account, req.Jurisdiction); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"account":      account.String(),
		"jurisdiction": req.Jurisdiction,
		"verified":     true,
	})
}

type batchVerifyRequest struct {
	Accounts      []string `json:"accounts"`
	Jurisdictions []string `json:"jurisdictions"`
}

func (h *Handler) batchVerify(w http.ResponseWriter, r *http.Request) {
	var req batchVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid JSON body"))
		return
	}

	accounts := make([]id.AccountID, len(req.Accounts))
	for i, raw := range req.Accounts {
		account, err := id.ParseAccountID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		accounts[i] = account
	}

	if err := h.svc.BatchVerify(r.Context(), accounts, req.Jurisdictions); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"verified": len(accounts)})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.svc.Revoke(r.Context(), account); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	verified, err := h.svc.IsVerified(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	jurisdiction, err := h.svc.JurisdictionOf(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"account":      account.String(),
		"verified":     verified,
		"jurisdiction": jurisdiction,
	})
}

func (h *Handler) getJurisdiction(w http.ResponseWriter, r *http.Request) {
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	jurisdiction, err := h.svc.RequireJurisdiction(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"jurisdiction": jurisdiction})
}

func (h *Handler) getJurisdictionCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.JurisdictionCount(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	total, err := h.svc.TotalVerified(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"total_verified": total})
}
