package substrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"go.uber.org/zap"

	"github.com/cardinal-cryptography/electionsx/pkg/chain"
)

// errSubscriptionClosed is returned when the node stops sending status updates
// before the awaited status was seen, e.g. because the client was closed.
var errSubscriptionClosed = errors.New("status subscription closed")

// watchStatus consumes extrinsic status updates until awaited is reached or the
// extrinsic leaves the pool. A retracted block only means the extrinsic may be
// included again, so watching continues.
func watchStatus(
	ctx context.Context,
	call string,
	awaited chain.TxStatus,
	statuses <-chan types.ExtrinsicStatus,
	errs <-chan error,
	logger *zap.Logger,
) (chain.Hash, error) {
	for {
		select {
		case <-ctx.Done():
			return chain.Hash{}, fmt.Errorf("watch %s: %w", call, ctx.Err())
		case err, ok := <-errs:
			// nil means the client was closed without a transport error
			if !ok || err == nil {
				return chain.Hash{}, fmt.Errorf("watch %s: %w", call, errSubscriptionClosed)
			}
			return chain.Hash{}, fmt.Errorf("watch %s: %w", call, err)
		case st, ok := <-statuses:
			if !ok {
				return chain.Hash{}, fmt.Errorf("watch %s: %w", call, errSubscriptionClosed)
			}
			switch {
			case st.IsInBlock:
				logger.Debug("Extrinsic in block",
					zap.String("call", call),
					zap.String("block", st.AsInBlock.Hex()))
				if awaited == chain.InBlock {
					return chain.Hash(st.AsInBlock), nil
				}
			case st.IsRetracted:
				logger.Debug("Extrinsic block retracted",
					zap.String("call", call),
					zap.String("block", st.AsRetracted.Hex()))
			case st.IsFinalized:
				logger.Debug("Extrinsic finalized",
					zap.String("call", call),
					zap.String("block", st.AsFinalized.Hex()))
				return chain.Hash(st.AsFinalized), nil
			case st.IsDropped:
				return chain.Hash{}, &chain.TxError{Call: call, Status: "dropped"}
			case st.IsInvalid:
				return chain.Hash{}, &chain.TxError{Call: call, Status: "invalid"}
			case st.IsUsurped:
				return chain.Hash{}, &chain.TxError{Call: call, Status: "usurped"}
			case st.IsFinalityTimeout:
				return chain.Hash{}, &chain.TxError{Call: call, Status: "finality-timeout"}
			}
		}
	}
}
