package controller

import (
	"net/http"
)

func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, err := c.App.Root.BestBlockHash(ctx); err != nil {
		c.writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "errored", "error": "node connection error"})
		return
	}

	if c.App.RedisClient != nil {
		if err := c.App.RedisClient.Health(ctx); err != nil {
			c.writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "errored", "error": "redis connection error"})
			return
		}
	}

	c.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
