package controller

import (
	"net/http"
)

// HandleCommitteeSeats returns the committee size at ?at=<hash> or at the latest block.
func (c *Controller) HandleCommitteeSeats(w http.ResponseWriter, r *http.Request) {
	at, err := parseAt(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	seats, err := c.App.Elections.CommitteeSeats(r.Context(), at)
	if err != nil {
		c.writeChainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, seats)
}

// HandleNextEraCommitteeSeats returns the committee size of the next era.
func (c *Controller) HandleNextEraCommitteeSeats(w http.ResponseWriter, r *http.Request) {
	seats, err := c.App.Elections.NextEraCommitteeSeats(r.Context())
	if err != nil {
		c.writeChainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, seats)
}
