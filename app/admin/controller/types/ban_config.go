package types

import (
	"github.com/cardinal-cryptography/electionsx/pkg/chain"
	"github.com/cardinal-cryptography/electionsx/pkg/elections"
)

// ChangeBanConfigRequest is the body of PUT /api/ban-config. Omitted fields keep their
// on-chain value. Status is "in-block" or "finalized".
type ChangeBanConfigRequest struct {
	MinimalExpectedPerformance          *uint8                  `json:"minimalExpectedPerformance"`
	UnderperformedSessionCountThreshold *elections.SessionCount `json:"underperformedSessionCountThreshold"`
	CleanSessionCounterDelay            *elections.SessionCount `json:"cleanSessionCounterDelay"`
	BanPeriod                           *elections.EraIndex     `json:"banPeriod"`
	Status                              string                  `json:"status"`
}

// Update returns the requested change.
func (r ChangeBanConfigRequest) Update() elections.BanConfigUpdate {
	return elections.BanConfigUpdate{
		MinimalExpectedPerformance:          r.MinimalExpectedPerformance,
		UnderperformedSessionCountThreshold: r.UnderperformedSessionCountThreshold,
		CleanSessionCounterDelay:            r.CleanSessionCounterDelay,
		BanPeriod:                           r.BanPeriod,
	}
}

// ChangeBanConfigResponse reports where the change was included.
type ChangeBanConfigResponse struct {
	Block  chain.Hash `json:"block"`
	Status string     `json:"status"`
	// Config is the ban policy read back after inclusion. Nil when the read failed.
	Config *elections.BanConfig `json:"config"`
}
