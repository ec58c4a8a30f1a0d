package elections

import (
	"context"
	"fmt"

	"github.com/alitto/pond/v2"

	"github.com/cardinal-cryptography/electionsx/pkg/chain"
)

// ValidatorStatuses reads the underperformance counter, session block count and ban of every
// account, running up to workers lookups at a time. Results keep the order of accounts.
// Reads are independent and may observe different blocks.
func (p *Pallet) ValidatorStatuses(ctx context.Context, accounts []chain.AccountID, workers int) ([]ValidatorStatus, error) {
	if len(accounts) == 0 {
		return []ValidatorStatus{}, nil
	}
	if workers <= 0 {
		workers = 1
	}

	pool := pond.NewPool(workers)
	defer pool.StopAndWait()

	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	out := make([]ValidatorStatus, len(accounts))
	for i, account := range accounts {
		group.SubmitErr(func() error {
			st, err := p.validatorStatus(groupCtx, account)
			if err != nil {
				return err
			}
			out[i] = st
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("validator statuses: %w", err)
	}
	return out, nil
}

func (p *Pallet) validatorStatus(ctx context.Context, account chain.AccountID) (ValidatorStatus, error) {
	sessions, err := p.UnderperformedSessionCount(ctx, account)
	if err != nil {
		return ValidatorStatus{}, err
	}
	blocks, err := p.ValidatorBlockCount(ctx, account, nil)
	if err != nil {
		return ValidatorStatus{}, err
	}
	ban, err := p.BanReasonForValidator(ctx, account)
	if err != nil {
		return ValidatorStatus{}, err
	}
	return ValidatorStatus{
		Account:                account,
		UnderperformedSessions: sessions,
		BlockCount:             blocks,
		Ban:                    ban,
	}, nil
}
