package elections

import (
	"context"
	"fmt"
	"math"

	"github.com/cardinal-cryptography/electionsx/pkg/chain"
)

const sessionPeriodConstant = "SessionPeriod"

// SessionPeriod returns the number of blocks in a session, as declared by the runtime.
func (p *Pallet) SessionPeriod(ctx context.Context) (uint32, error) {
	var period uint32
	if err := p.conn.ReadConstant(ctx, PalletName, sessionPeriodConstant, &period); err != nil {
		return 0, fmt.Errorf("session period: %w", err)
	}
	if period == 0 {
		return 0, fmt.Errorf("session period: runtime declares zero")
	}
	return period, nil
}

// SessionFirstBlock returns the hash of the first block of session.
func (p *Pallet) SessionFirstBlock(ctx context.Context, session SessionIndex) (chain.Hash, error) {
	period, err := p.SessionPeriod(ctx)
	if err != nil {
		return chain.Hash{}, err
	}
	number := uint64(session) * uint64(period)
	if number > math.MaxUint32 {
		return chain.Hash{}, fmt.Errorf("first block of session %d: block number overflows", session)
	}
	h, err := p.conn.BlockHash(ctx, uint32(number))
	if err != nil {
		return chain.Hash{}, fmt.Errorf("first block of session %d: %w", session, err)
	}
	return h, nil
}
