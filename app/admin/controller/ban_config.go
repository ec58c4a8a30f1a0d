package controller

import (
	"errors"
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
	"go.uber.org/zap"

	admintypes "github.com/cardinal-cryptography/electionsx/app/admin/controller/types"
	"github.com/cardinal-cryptography/electionsx/pkg/chain"
	"github.com/cardinal-cryptography/electionsx/pkg/elections"
	"github.com/cardinal-cryptography/electionsx/pkg/redis"
)

// HandleGetBanConfig returns the current ban policy.
func (c *Controller) HandleGetBanConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := c.App.Elections.BanConfig(r.Context())
	if err != nil {
		if errors.Is(err, chain.ErrStorageNotFound) {
			c.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		c.App.Logger.Error("Failed to read ban config", zap.Error(err))
		c.writeError(w, http.StatusInternalServerError, "chain read failed")
		return
	}
	c.writeJSON(w, http.StatusOK, cfg)
}

// HandleChangeBanConfig submits a sudo-wrapped set_ban_config and waits for the requested
// inclusion status. Values are passed to the runtime unchecked.
func (c *Controller) HandleChangeBanConfig(w http.ResponseWriter, r *http.Request) {
	var in admintypes.ChangeBanConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		c.writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	status := c.App.TxStatus
	if in.Status != "" {
		var err error
		if status, err = chain.ParseTxStatus(in.Status); err != nil {
			c.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	ctx := r.Context()
	user := c.currentUser(r)
	update := in.Update()

	block, err := elections.ChangeBanConfig(ctx, c.App.Root, update, status)
	if err != nil {
		var txErr *chain.TxError
		switch {
		case errors.As(err, &txErr), errors.Is(err, chain.ErrUnknownCall):
			c.App.Logger.Warn("Ban config change rejected", zap.String("user", user), zap.Error(err))
			c.writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			c.App.Logger.Error("Ban config change failed", zap.String("user", user), zap.Error(err))
			c.writeError(w, http.StatusInternalServerError, "submission failed")
		}
		return
	}

	c.App.Logger.Info("Ban config changed",
		zap.String("user", user),
		zap.String("block", block.Hex()),
		zap.Stringer("status", status))

	out := admintypes.ChangeBanConfigResponse{Block: block, Status: status.String()}
	cfg, err := c.App.Elections.BanConfig(ctx)
	if err != nil {
		c.App.Logger.Warn("Failed to read back ban config", zap.Error(err))
	} else {
		out.Config = &cfg
	}

	c.App.Publisher.Publish(ctx, redis.Event{
		Type: redis.BanConfigChanged,
		Data: map[string]any{"block": block, "update": update, "config": out.Config},
	})

	c.writeJSON(w, http.StatusOK, out)
}
