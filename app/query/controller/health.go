package controller

import (
	"net/http"
)

// HandleHealth reports whether the node answers with a best block and, when the
// change stream is enabled, whether Redis answers a ping.
func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	best, err := c.App.Conn.BestBlockHash(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "errored", "error": "node connection error"})
		return
	}

	if c.App.RedisClient != nil {
		if err := c.App.RedisClient.Health(ctx); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "errored", "error": "redis connection error"})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "best": best.Hex()})
}
