package electionstest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinal-cryptography/electionsx/pkg/chain"
	"github.com/cardinal-cryptography/electionsx/pkg/elections"
)

func TestRuntime_AppliesBanConfigChanges(t *testing.T) {
	ctx := context.Background()
	rt := New(10)
	rt.SetBanConfig(elections.BanConfig{MinimalExpectedPerformance: elections.PerbillFromPercent(50), BanPeriod: 3})

	period := elections.EraIndex(9)
	_, err := elections.ChangeBanConfig(ctx, rt, elections.BanConfigUpdate{BanPeriod: &period}, chain.InBlock)
	require.NoError(t, err)

	cfg, err := elections.New(rt).BanConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, elections.PerbillFromPercent(50), cfg.MinimalExpectedPerformance)
	assert.Equal(t, elections.EraIndex(9), cfg.BanPeriod)
}

func TestRuntime_AdvanceSessions(t *testing.T) {
	ctx := context.Background()
	rt := New(5)
	rt.SetCurrentEraValidators(elections.EraValidators{Reserved: []chain.AccountID{{1}}})
	first := rt.AdvanceSessions(2, 5)

	num, head := rt.Head()
	assert.Equal(t, uint32(10), num)
	assert.Equal(t, first, head)

	at, err := elections.New(rt).SessionFirstBlock(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, first, at)
}
