package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/cardinal-cryptography/electionsx/pkg/chain"
	"github.com/cardinal-cryptography/electionsx/pkg/elections"
	"github.com/cardinal-cryptography/electionsx/pkg/utils"
)

// maxStatusAccounts caps how many accounts one status request may ask for.
const maxStatusAccounts = 256

func (c *Controller) HandleCurrentEraValidators(w http.ResponseWriter, r *http.Request) {
	c.writeEraValidators(w, r, c.App.Elections.CurrentEraValidators)
}

func (c *Controller) HandleNextEraValidators(w http.ResponseWriter, r *http.Request) {
	c.writeEraValidators(w, r, c.App.Elections.NextEraValidators)
}

func (c *Controller) HandleCurrentEraReserved(w http.ResponseWriter, r *http.Request) {
	c.writeAccounts(w, r, c.App.Elections.CurrentEraReservedValidators)
}

func (c *Controller) HandleCurrentEraNonReserved(w http.ResponseWriter, r *http.Request) {
	c.writeAccounts(w, r, c.App.Elections.CurrentEraNonReservedValidators)
}

func (c *Controller) HandleNextEraReserved(w http.ResponseWriter, r *http.Request) {
	c.writeAccounts(w, r, c.App.Elections.NextEraReservedValidators)
}

func (c *Controller) HandleNextEraNonReserved(w http.ResponseWriter, r *http.Request) {
	c.writeAccounts(w, r, c.App.Elections.NextEraNonReservedValidators)
}

// HandleSessionValidators returns the era validators as of the first block of a session.
func (c *Controller) HandleSessionValidators(w http.ResponseWriter, r *http.Request) {
	session, err := strconv.ParseUint(mux.Vars(r)["session"], 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session")
		return
	}

	v, err := c.App.Elections.EraValidators(r.Context(), elections.SessionIndex(session))
	if err != nil {
		c.writeChainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleValidatorStatuses returns the election state of every account in ?accounts=a,b,c.
func (c *Controller) HandleValidatorStatuses(w http.ResponseWriter, r *http.Request) {
	raw := utils.SplitList(r.URL.Query().Get("accounts"))
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "accounts is required")
		return
	}
	if len(raw) > maxStatusAccounts {
		writeError(w, http.StatusBadRequest, "too many accounts")
		return
	}

	accounts := make([]chain.AccountID, len(raw))
	for i, s := range raw {
		acc, err := chain.ParseAccountID(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		accounts[i] = acc
	}

	statuses, err := c.App.Elections.ValidatorStatuses(r.Context(), accounts, c.App.StatusWorkers)
	if err != nil {
		c.writeChainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": statuses})
}

func (c *Controller) writeEraValidators(w http.ResponseWriter, r *http.Request, read func(context.Context) (elections.EraValidators, error)) {
	v, err := read(r.Context())
	if err != nil {
		c.writeChainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (c *Controller) writeAccounts(w http.ResponseWriter, r *http.Request, read func(context.Context) ([]chain.AccountID, error)) {
	accounts, err := read(r.Context())
	if err != nil {
		c.writeChainError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []chain.AccountID{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": accounts})
}
