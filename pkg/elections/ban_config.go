package elections

import (
	"context"
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"

	"github.com/cardinal-cryptography/electionsx/pkg/chain"
)

const setBanConfigCall = "set_ban_config"

// BanConfigUpdate is a partial change of the ban policy.
// The runtime validates values; nothing is checked locally.
type BanConfigUpdate struct {
	// MinimalExpectedPerformance is a whole percentage. Nil leaves the on-chain value unchanged.
	MinimalExpectedPerformance *uint8 `json:"minimalExpectedPerformance,omitempty"`
	// UnderperformedSessionCountThreshold: nil leaves the on-chain value unchanged.
	UnderperformedSessionCountThreshold *SessionCount `json:"underperformedSessionCountThreshold,omitempty"`
	// CleanSessionCounterDelay: nil leaves the on-chain value unchanged.
	CleanSessionCounterDelay *SessionCount `json:"cleanSessionCounterDelay,omitempty"`
	// BanPeriod: nil leaves the on-chain value unchanged.
	BanPeriod *EraIndex `json:"banPeriod,omitempty"`
}

// IsEmpty reports whether the update leaves every field unchanged.
func (u BanConfigUpdate) IsEmpty() bool {
	return u.MinimalExpectedPerformance == nil &&
		u.UnderperformedSessionCountThreshold == nil &&
		u.CleanSessionCounterDelay == nil &&
		u.BanPeriod == nil
}

// Call returns the Elections.set_ban_config call carrying the update.
func (u BanConfigUpdate) Call() chain.Call {
	perf := types.NewOptionU8Empty()
	if u.MinimalExpectedPerformance != nil {
		perf = types.NewOptionU8(types.NewU8(*u.MinimalExpectedPerformance))
	}
	return chain.Call{
		Pallet: PalletName,
		Method: setBanConfigCall,
		Args: []any{
			perf,
			optionU32(u.UnderperformedSessionCountThreshold),
			optionU32(u.CleanSessionCounterDelay),
			optionU32(u.BanPeriod),
		},
	}
}

func optionU32[T ~uint32](v *T) types.OptionU32 {
	if v == nil {
		return types.NewOptionU32Empty()
	}
	return types.NewOptionU32(types.NewU32(uint32(*v)))
}

// ChangeBanConfig submits update through root's sudo key with a zero weight override and
// blocks until the extrinsic reaches status. Returns the hash of the including block.
func ChangeBanConfig(ctx context.Context, root chain.Submitter, update BanConfigUpdate, status chain.TxStatus) (chain.Hash, error) {
	block, err := root.SubmitRootCall(ctx, update.Call(), 0, status)
	if err != nil {
		return chain.Hash{}, fmt.Errorf("change ban config: %w", err)
	}
	return block, nil
}
