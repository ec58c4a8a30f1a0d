package controller

import (
	"net/http"
)

// HandleBanConfig returns the current ban policy.
func (c *Controller) HandleBanConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := c.App.Elections.BanConfig(r.Context())
	if err != nil {
		c.writeChainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// HandleValidatorBlockCount returns the session block count of an account. The count is
// null when the account has no entry.
func (c *Controller) HandleValidatorBlockCount(w http.ResponseWriter, r *http.Request) {
	account, err := accountVar(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	at, err := parseAt(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := c.App.Elections.ValidatorBlockCount(r.Context(), account, at)
	if err != nil {
		c.writeChainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": account, "count": count})
}

// HandleUnderperformance returns how many sessions an account underperformed in.
func (c *Controller) HandleUnderperformance(w http.ResponseWriter, r *http.Request) {
	account, err := accountVar(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessions, err := c.App.Elections.UnderperformedSessionCount(r.Context(), account)
	if err != nil {
		c.writeChainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": account, "sessions": sessions})
}

// HandleBan returns the active ban of an account, if any.
func (c *Controller) HandleBan(w http.ResponseWriter, r *http.Request) {
	account, err := accountVar(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := c.App.Elections.BanReasonForValidator(r.Context(), account)
	if err != nil {
		c.writeChainError(w, r, err)
		return
	}
	if info == nil {
		writeJSON(w, http.StatusOK, map[string]any{"account": account, "banned": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": account, "banned": true, "reason": info.Reason, "start": info.Start})
}
