package substrate

import (
	"context"
	"errors"
	"testing"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cardinal-cryptography/electionsx/pkg/chain"
)

func TestWatchStatus(t *testing.T) {
	blockA := types.NewHash([]byte{0xaa})
	blockB := types.NewHash([]byte{0xbb})

	inBlock := func(h types.Hash) types.ExtrinsicStatus {
		return types.ExtrinsicStatus{IsInBlock: true, AsInBlock: h}
	}
	finalized := func(h types.Hash) types.ExtrinsicStatus {
		return types.ExtrinsicStatus{IsFinalized: true, AsFinalized: h}
	}
	transportErr := errors.New("connection reset")

	tests := []struct {
		name       string
		awaited    chain.TxStatus
		statuses   []types.ExtrinsicStatus
		closeStats bool
		errs       []error
		cancel     bool
		want       chain.Hash
		wantTx     string
		wantErr    error
	}{
		{
			name:     "in block awaited",
			awaited:  chain.InBlock,
			statuses: []types.ExtrinsicStatus{{IsReady: true}, inBlock(blockA)},
			want:     chain.Hash(blockA),
		},
		{
			name:     "finalized awaited skips in block",
			awaited:  chain.Finalized,
			statuses: []types.ExtrinsicStatus{{IsReady: true}, inBlock(blockA), finalized(blockA)},
			want:     chain.Hash(blockA),
		},
		{
			name:    "retracted then included again",
			awaited: chain.InBlock,
			statuses: []types.ExtrinsicStatus{
				{IsRetracted: true, AsRetracted: blockA},
				inBlock(blockB),
			},
			want: chain.Hash(blockB),
		},
		{
			name:    "finalized after retraction",
			awaited: chain.Finalized,
			statuses: []types.ExtrinsicStatus{
				inBlock(blockA),
				{IsRetracted: true, AsRetracted: blockA},
				inBlock(blockB),
				finalized(blockB),
			},
			want: chain.Hash(blockB),
		},
		{
			name:     "dropped",
			awaited:  chain.InBlock,
			statuses: []types.ExtrinsicStatus{{IsReady: true}, {IsDropped: true}},
			wantTx:   "dropped",
		},
		{
			name:     "invalid",
			awaited:  chain.InBlock,
			statuses: []types.ExtrinsicStatus{{IsInvalid: true}},
			wantTx:   "invalid",
		},
		{
			name:     "usurped",
			awaited:  chain.Finalized,
			statuses: []types.ExtrinsicStatus{{IsUsurped: true, AsUsurped: blockA}},
			wantTx:   "usurped",
		},
		{
			name:     "finality timeout",
			awaited:  chain.Finalized,
			statuses: []types.ExtrinsicStatus{inBlock(blockA), {IsFinalityTimeout: true, AsFinalityTimeout: blockA}},
			wantTx:   "finality-timeout",
		},
		{
			name:    "context cancelled",
			awaited: chain.Finalized,
			cancel:  true,
			wantErr: context.Canceled,
		},
		{
			name:    "transport error",
			awaited: chain.InBlock,
			errs:    []error{transportErr},
			wantErr: transportErr,
		},
		{
			name:    "nil error on client close",
			awaited: chain.InBlock,
			errs:    []error{nil},
			wantErr: errSubscriptionClosed,
		},
		{
			name:       "status channel closed before in block",
			awaited:    chain.Finalized,
			statuses:   []types.ExtrinsicStatus{{IsReady: true}},
			closeStats: true,
			wantErr:    errSubscriptionClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statuses := make(chan types.ExtrinsicStatus, len(tt.statuses))
			for _, st := range tt.statuses {
				statuses <- st
			}
			if tt.closeStats {
				close(statuses)
			}
			errs := make(chan error, len(tt.errs))
			for _, err := range tt.errs {
				errs <- err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				cancel()
			}

			got, err := watchStatus(ctx, "Elections.set_ban_config", tt.awaited, statuses, errs, zaptest.NewLogger(t))

			switch {
			case tt.wantTx != "":
				var txErr *chain.TxError
				require.ErrorAs(t, err, &txErr)
				assert.Equal(t, tt.wantTx, txErr.Status)
				assert.Equal(t, "Elections.set_ban_config", txErr.Call)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.NotContains(t, err.Error(), "%!w")
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
