// Package handler exposes the compliance engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"assetgate/internal/compliance/service"
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

// AdminRoutes mounts the policy mutation surface. Callers must wrap these
// with the actor-authentication middleware; the service re-checks authority
// itself.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Put("/jurisdictions/{code}", h.setJurisdiction)
	r.Post("/jurisdictions/batch", h.batchSetJurisdictions)
	r.Put("/jurisdiction-restrictions", h.toggleJurisdictionRestrictions)
	r.Put("/blacklist/{account}", h.setBlacklisted)
	r.Post("/blacklist/batch", h.batchSetBlacklisted)
	r.Put("/blacklist-enforcement", h.toggleBlacklist)
	r.Put("/max-transfer-amount", h.setMaxTransferAmount)
	r.Put("/daily-transfer-limit", h.setDailyTransferLimit)
}

// Routes mounts the decision and query surface.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/decisions", h.check)
	r.Get("/policy", h.getPolicy)
	r.Get("/jurisdictions/{code}", h.getJurisdiction)
	r.Get("/blacklist/{account}", h.getBlacklisted)
	r.Get("/accounts/{account}/usage", h.getUsage)
	r.Get("/accounts/{account}/remaining", h.getRemaining)
}

// parseParty reads an account query parameter, treating an absent value as
// the null account so issuance/redemption checks can be expressed.
func parseParty(raw string) (id.AccountID, error) {
	if raw == "" {
		return id.NullAccount(), nil
	}
	return id.ParseAccountID(raw)
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	from, err := parseParty(query.Get("from"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	to, err := parseParty(query.Get("to"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var amount int64
	if raw := query.Get("amount"); raw != "" {
		amount, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "amount must be an integer"))
			return
		}
	}

	decision, err := h.svc.Check(r.Context(), from, to, amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"allowed": decision.Allowed,
		"reason":  decision.Reason,
	})
}

type flagRequest struct {
	Allowed *bool `json:"allowed"`
}

func (h *Handler) setJurisdiction(w http.ResponseWriter, r *http.Request) {
	var req flagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Allowed == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "allowed flag is required"))
		return
	}

	code := chi.URLParam(r, "code")
	if err := h.svc.SetJurisdictionAllowed(r.Context(), code, *req.Allowed); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"code": code, "allowed": *req.Allowed})
}

type batchJurisdictionsRequest struct {
	Codes   []string `json:"codes"`
	Allowed []bool   `json:"allowed"`
}

func (h *Handler) batchSetJurisdictions(w http.ResponseWriter, r *http.Request) {
	var req batchJurisdictionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid JSON body"))
		return
	}

	if err := h.svc.BatchSetJurisdictionsAllowed(r.Context(), req.Codes, req.Allowed); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"updated": len(req.Codes)})
}

type toggleRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *Handler) toggleJurisdictionRestrictions(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.svc.ToggleJurisdictionRestrictions)
}

func (h *Handler) toggleBlacklist(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.svc.ToggleBlacklist)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, apply func(context.Context, bool) error) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "enabled flag is required"))
		return
	}

	if err := apply(r.Context(), *req.Enabled); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"enabled": *req.Enabled})
}

type blacklistRequest struct {
	Blacklisted *bool `json:"blacklisted"`
}

func (h *Handler) setBlacklisted(w http.ResponseWriter, r *http.Request) {
	var req blacklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Blacklisted == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "blacklisted flag is required"))
		return
	}

	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.svc.SetBlacklisted(r.Context(), account, *req.Blacklisted); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"account":     account.String(),
		"blacklisted": *req.Blacklisted,
	})
}

type batchBlacklistRequest struct {
	Accounts    []string `json:"accounts"`
	Blacklisted []bool   `json:"blacklisted"`
}

func (h *Handler) batchSetBlacklisted(w http.ResponseWriter, r *http.Request) {
	var req batchBlacklistRequest
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

	if err := h.svc.BatchSetBlacklisted(r.Context(), accounts, req.Blacklisted); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"updated": len(accounts)})
}

type amountRequest struct {
	Amount *int64 `json:"amount"`
}

func (h *Handler) setMaxTransferAmount(w http.ResponseWriter, r *http.Request) {
	h.setAmount(w, r, h.svc.SetMaxTransferAmount)
}

func (h *Handler) setDailyTransferLimit(w http.ResponseWriter, r *http.Request) {
	h.setAmount(w, r, h.svc.SetDailyTransferLimit)
}

func (h *Handler) setAmount(w http.ResponseWriter, r *http.Request, apply func(context.Context, int64) error) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "amount is required"))
		return
	}

	if err := apply(r.Context(), *req.Amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"amount": *req.Amount})
}

func (h *Handler) getPolicy(w http.ResponseWriter, r *http.Request) {
	settings := h.svc.Settings()
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"country_restrictions_enabled": settings.CountryRestrictionsEnabled,
		"blacklist_enabled":            settings.BlacklistEnabled,
		"max_transfer_amount":          settings.MaxTransferAmount,
		"daily_transfer_limit":         settings.DailyTransferLimit,
	})
}

func (h *Handler) getJurisdiction(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"code":    code,
		"allowed": h.svc.IsJurisdictionAllowed(code),
	})
}

func (h *Handler) getBlacklisted(w http.ResponseWriter, r *http.Request) {
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"account":     account.String(),
		"blacklisted": h.svc.IsBlacklisted(account),
	})
}

func (h *Handler) getUsage(w http.ResponseWriter, r *http.Request) {
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var used int64
	if raw := r.URL.Query().Get("day"); raw != "" {
		day, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "day must be an integer"))
			return
		}
		used, err = h.svc.DailyUsage(r.Context(), account, day)
	} else {
		used, err = h.svc.CurrentDayUsage(r.Context(), account)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"used": used})
}

func (h *Handler) getRemaining(w http.ResponseWriter, r *http.Request) {
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	remaining, err := h.svc.RemainingDailyLimit(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"remaining": remaining})
}
