package elections_test

import (
	"context"
	"errors"
	"testing"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cardinal-cryptography/electionsx/pkg/chain"
	"github.com/cardinal-cryptography/electionsx/pkg/chain/memory"
	"github.com/cardinal-cryptography/electionsx/pkg/elections"
	"github.com/cardinal-cryptography/electionsx/pkg/elections/electionstest"
)

var (
	alice = chain.AccountID{0xa1}
	bob   = chain.AccountID{0xb0}
	carol = chain.AccountID{0xca}
	dave  = chain.AccountID{0xda}
)

const sessionPeriod = 10

func defaultBanConfig() elections.BanConfig {
	return elections.BanConfig{
		MinimalExpectedPerformance:          elections.PerbillFromPercent(90),
		UnderperformedSessionCountThreshold: 3,
		CleanSessionCounterDelay:            10,
		BanPeriod:                           3,
	}
}

func TestCommitteeSeats(t *testing.T) {
	ctx := context.Background()
	rt := electionstest.New(sessionPeriod)
	p := elections.New(rt)

	rt.SetCommitteeSeats(elections.CommitteeSeats{ReservedSeats: 4, NonReservedSeats: 2})
	old := rt.SealBlock()
	rt.SetCommitteeSeats(elections.CommitteeSeats{ReservedSeats: 5, NonReservedSeats: 3})

	latest, err := p.CommitteeSeats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, elections.CommitteeSeats{ReservedSeats: 5, NonReservedSeats: 3}, latest)

	historical, err := p.CommitteeSeats(ctx, &old)
	require.NoError(t, err)
	assert.Equal(t, elections.CommitteeSeats{ReservedSeats: 4, NonReservedSeats: 2}, historical)
}

func TestNextEraCommitteeSeats(t *testing.T) {
	rt := electionstest.New(sessionPeriod)
	rt.SetNextEraCommitteeSeats(elections.CommitteeSeats{ReservedSeats: 7, NonReservedSeats: 1})

	seats, err := elections.New(rt).NextEraCommitteeSeats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, elections.CommitteeSeats{ReservedSeats: 7, NonReservedSeats: 1}, seats)
}

func TestValidatorBlockCount(t *testing.T) {
	ctx := context.Background()
	rt := electionstest.New(sessionPeriod)
	p := elections.New(rt)

	count, err := p.ValidatorBlockCount(ctx, alice, nil)
	require.NoError(t, err)
	assert.Nil(t, count)

	rt.SetBlockCount(alice, 12)
	block := rt.SealBlock()
	rt.DeleteMapEntry(elections.PalletName, "SessionValidatorBlockCount", alice[:])

	count, err = p.ValidatorBlockCount(ctx, alice, &block)
	require.NoError(t, err)
	require.NotNil(t, count)
	assert.Equal(t, uint32(12), *count)

	count, err = p.ValidatorBlockCount(ctx, alice, nil)
	require.NoError(t, err)
	assert.Nil(t, count)
}

func TestCurrentEraValidators_Projections(t *testing.T) {
	ctx := context.Background()
	rt := electionstest.New(sessionPeriod)
	p := elections.New(rt)

	want := elections.EraValidators{Reserved: []chain.AccountID{alice, bob}, NonReserved: []chain.AccountID{carol}}
	rt.SetCurrentEraValidators(want)

	all, err := p.CurrentEraValidators(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, all)

	before := rt.Reads()
	reserved, err := p.CurrentEraReservedValidators(ctx)
	require.NoError(t, err)
	assert.Equal(t, all.Reserved, reserved)

	nonReserved, err := p.CurrentEraNonReservedValidators(ctx)
	require.NoError(t, err)
	assert.Equal(t, all.NonReserved, nonReserved)

	// each projection re-reads the whole record
	assert.Equal(t, before+2, rt.Reads())
}

func TestNextEraValidators(t *testing.T) {
	ctx := context.Background()
	rt := electionstest.New(sessionPeriod)
	p := elections.New(rt)

	rt.SetNextEraValidators(elections.EraValidators{
		Reserved:    []chain.AccountID{alice},
		NonReserved: []chain.AccountID{bob, carol},
	})

	all, err := p.NextEraValidators(ctx)
	require.NoError(t, err)

	reserved, err := p.NextEraReservedValidators(ctx)
	require.NoError(t, err)
	nonReserved, err := p.NextEraNonReservedValidators(ctx)
	require.NoError(t, err)

	assert.Equal(t, reserved, all.Reserved)
	assert.Equal(t, nonReserved, all.NonReserved)
}

func TestNextEraValidators_PinnedToOneBlock(t *testing.T) {
	ctx := context.Background()
	rt := electionstest.New(sessionPeriod)
	p := elections.New(rt)

	rt.SetNextEraValidators(elections.EraValidators{
		Reserved:    []chain.AccountID{alice},
		NonReserved: []chain.AccountID{bob},
	})

	// the chain advances right after the first list is read
	rt.SetReadHook(func(_, item string) {
		if item != "NextEraReservedValidators" {
			return
		}
		rt.SetReadHook(nil)
		require.NoError(t, rt.SetValue(elections.PalletName, "NextEraNonReservedValidators", []chain.AccountID{dave}))
		rt.SealBlock()
	})

	v, err := p.NextEraValidators(ctx)
	require.NoError(t, err)
	assert.Equal(t, []chain.AccountID{alice}, v.Reserved)
	assert.Equal(t, []chain.AccountID{bob}, v.NonReserved)

	latest, err := p.NextEraNonReservedValidators(ctx)
	require.NoError(t, err)
	assert.Equal(t, []chain.AccountID{dave}, latest)
}

func TestEraValidators_ReadsAtSessionFirstBlock(t *testing.T) {
	ctx := context.Background()
	rt := electionstest.New(sessionPeriod)
	p := elections.New(rt)

	first := elections.EraValidators{Reserved: []chain.AccountID{alice}, NonReserved: []chain.AccountID{bob}}
	second := elections.EraValidators{Reserved: []chain.AccountID{carol}, NonReserved: []chain.AccountID{dave}}

	// session period is 10: blocks 1..10, session 1 starts at block 10
	rt.SetCurrentEraValidators(first)
	rt.AdvanceSessions(1, sessionPeriod)
	rt.SetCurrentEraValidators(second)
	rt.AdvanceSessions(2, sessionPeriod)

	got, err := p.EraValidators(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	at, err := p.SessionFirstBlock(ctx, 1)
	require.NoError(t, err)
	var direct elections.EraValidators
	require.NoError(t, rt.ReadStorageValueAt(ctx, elections.PalletName, "CurrentEraValidators", &at, &direct))
	assert.Equal(t, direct, got)

	got, err = p.EraValidators(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	_, err = p.EraValidators(ctx, 5)
	assert.Error(t, err)
}

func TestEraValidators_SessionNotReached(t *testing.T) {
	_, err := elections.New(electionstest.New(sessionPeriod)).EraValidators(context.Background(), 5)
	assert.ErrorIs(t, err, chain.ErrBlockNotFound)
}

func TestSessionFirstBlock_Errors(t *testing.T) {
	ctx := context.Background()

	c := memory.New()
	_, err := elections.New(c).SessionFirstBlock(ctx, 1)
	assert.ErrorContains(t, err, "session period")

	require.NoError(t, c.SetConstant(elections.PalletName, "SessionPeriod", uint32(0)))
	_, err = elections.New(c).SessionFirstBlock(ctx, 1)
	assert.ErrorContains(t, err, "zero")

	require.NoError(t, c.SetConstant(elections.PalletName, "SessionPeriod", uint32(1<<20)))
	_, err = elections.New(c).SessionFirstBlock(ctx, 1<<20)
	assert.ErrorContains(t, err, "overflows")
}

func TestBanConfig(t *testing.T) {
	rt := electionstest.New(sessionPeriod)
	rt.SetBanConfig(defaultBanConfig())

	cfg, err := elections.New(rt).BanConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaultBanConfig(), cfg)
}

func TestBanConfig_Missing(t *testing.T) {
	_, err := elections.New(electionstest.New(sessionPeriod)).BanConfig(context.Background())
	assert.ErrorIs(t, err, chain.ErrStorageNotFound)
}

func TestUnderperformedSessionCount(t *testing.T) {
	ctx := context.Background()
	rt := electionstest.New(sessionPeriod)
	p := elections.New(rt)

	for _, acc := range []chain.AccountID{alice, bob, carol} {
		n, err := p.UnderperformedSessionCount(ctx, acc)
		require.NoError(t, err)
		assert.Equal(t, elections.SessionCount(0), n)
	}

	rt.SetUnderperformed(bob, 2)
	n, err := p.UnderperformedSessionCount(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, elections.SessionCount(2), n)
}

func TestBanReasonForValidator(t *testing.T) {
	ctx := context.Background()
	rt := electionstest.New(sessionPeriod)
	p := elections.New(rt)

	ban, err := p.BanReasonForValidator(ctx, alice)
	require.NoError(t, err)
	assert.Nil(t, ban)

	uptime := elections.BanInfo{Reason: elections.BanReason{Kind: elections.InsufficientUptime, UnderperformedSessions: 4}, Start: 7}
	other := elections.BanInfo{Reason: elections.BanReason{Kind: elections.OtherReason, Details: []byte("equivocation")}, Start: 9}
	rt.Ban(alice, uptime)
	rt.Ban(bob, other)

	ban, err = p.BanReasonForValidator(ctx, alice)
	require.NoError(t, err)
	require.NotNil(t, ban)
	assert.Equal(t, uptime, *ban)

	ban, err = p.BanReasonForValidator(ctx, bob)
	require.NoError(t, err)
	require.NotNil(t, ban)
	assert.Equal(t, other, *ban)
}

func TestChangeBanConfig_OnlyBanPeriod(t *testing.T) {
	ctx := context.Background()
	rt := electionstest.New(sessionPeriod)
	p := elections.New(rt)
	rt.SetBanConfig(defaultBanConfig())

	period := elections.EraIndex(5)
	block, err := elections.ChangeBanConfig(ctx, rt, elections.BanConfigUpdate{BanPeriod: &period}, chain.Finalized)
	require.NoError(t, err)

	cfg, err := p.BanConfig(ctx)
	require.NoError(t, err)
	want := defaultBanConfig()
	want.BanPeriod = 5
	assert.Equal(t, want, cfg)

	subs := rt.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "Elections.set_ban_config", subs[0].Call)
	assert.Equal(t, uint64(0), subs[0].Weight)
	assert.Equal(t, chain.Finalized, subs[0].Status)
	assert.Equal(t, block, subs[0].Block)
	// three empty options, then Some(5u32)
	assert.Equal(t, []byte{0, 0, 0, 1, 5, 0, 0, 0}, subs[0].Args)
}

func TestChangeBanConfig_AllFields(t *testing.T) {
	ctx := context.Background()
	rt := electionstest.New(sessionPeriod)
	rt.SetBanConfig(defaultBanConfig())

	perf := uint8(75)
	threshold := elections.SessionCount(6)
	delay := elections.SessionCount(20)
	period := elections.EraIndex(2)
	_, err := elections.ChangeBanConfig(ctx, rt, elections.BanConfigUpdate{
		MinimalExpectedPerformance:          &perf,
		UnderperformedSessionCountThreshold: &threshold,
		CleanSessionCounterDelay:            &delay,
		BanPeriod:                           &period,
	}, chain.InBlock)
	require.NoError(t, err)

	cfg, err := elections.New(rt).BanConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, elections.BanConfig{
		MinimalExpectedPerformance:          elections.PerbillFromPercent(75),
		UnderperformedSessionCountThreshold: 6,
		CleanSessionCounterDelay:            20,
		BanPeriod:                           2,
	}, cfg)
}

type failingSubmitter struct{ err error }

func (f failingSubmitter) SubmitRootCall(context.Context, chain.Call, uint64, chain.TxStatus) (chain.Hash, error) {
	return chain.Hash{}, f.err
}

func TestChangeBanConfig_PropagatesSubmitError(t *testing.T) {
	cause := &chain.TxError{Call: "Elections.set_ban_config", Status: "dropped"}
	_, err := elections.ChangeBanConfig(context.Background(), failingSubmitter{err: cause}, elections.BanConfigUpdate{}, chain.InBlock)

	var txErr *chain.TxError
	require.True(t, errors.As(err, &txErr))
	assert.Equal(t, "dropped", txErr.Status)
}

func TestBanConfigUpdate_IsEmpty(t *testing.T) {
	assert.True(t, elections.BanConfigUpdate{}.IsEmpty())
	period := elections.EraIndex(1)
	assert.False(t, elections.BanConfigUpdate{BanPeriod: &period}.IsEmpty())
}

// mockReader lets tests inject connection failures.
type mockReader struct {
	mock.Mock
}

func (m *mockReader) ReadStorageValue(ctx context.Context, pallet, item string, out any) error {
	return m.Called(pallet, item).Error(0)
}

func (m *mockReader) ReadStorageValueAt(ctx context.Context, pallet, item string, at *chain.Hash, out any) error {
	return m.Called(pallet, item, at).Error(0)
}

func (m *mockReader) ReadStorageMap(ctx context.Context, pallet, item string, key []byte, at *chain.Hash, out any) (bool, error) {
	args := m.Called(pallet, item, key, at)
	return args.Bool(0), args.Error(1)
}

func (m *mockReader) ReadConstant(ctx context.Context, pallet, name string, out any) error {
	return m.Called(pallet, name).Error(0)
}

func (m *mockReader) BlockHash(ctx context.Context, number uint32) (chain.Hash, error) {
	args := m.Called(number)
	return args.Get(0).(chain.Hash), args.Error(1)
}

func (m *mockReader) BestBlockHash(ctx context.Context) (chain.Hash, error) {
	args := m.Called()
	return args.Get(0).(chain.Hash), args.Error(1)
}

func TestAccessors_PropagateConnectionErrors(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("websocket closed")

	r := &mockReader{}
	r.On("ReadStorageValue", elections.PalletName, mock.Anything).Return(cause)
	r.On("ReadStorageValueAt", elections.PalletName, mock.Anything, mock.Anything).Return(cause)
	r.On("ReadStorageMap", elections.PalletName, mock.Anything, mock.Anything, mock.Anything).Return(false, cause)
	r.On("BestBlockHash").Return(chain.Hash{}, cause)
	p := elections.New(r)

	_, err := p.CommitteeSeats(ctx, nil)
	assert.ErrorIs(t, err, cause)
	_, err = p.NextEraCommitteeSeats(ctx)
	assert.ErrorIs(t, err, cause)
	_, err = p.ValidatorBlockCount(ctx, alice, nil)
	assert.ErrorIs(t, err, cause)
	_, err = p.CurrentEraReservedValidators(ctx)
	assert.ErrorIs(t, err, cause)
	_, err = p.NextEraValidators(ctx)
	assert.ErrorIs(t, err, cause)
	_, err = p.BanConfig(ctx)
	assert.ErrorIs(t, err, cause)
	_, err = p.UnderperformedSessionCount(ctx, alice)
	assert.ErrorIs(t, err, cause)
	_, err = p.BanReasonForValidator(ctx, alice)
	assert.ErrorIs(t, err, cause)
}

func TestBanReason_MarshalJSON(t *testing.T) {
	bz, err := elections.BanReason{Kind: elections.InsufficientUptime, UnderperformedSessions: 3}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"insufficient-uptime","sessions":3}`, string(bz))

	bz, err = elections.BanReason{Kind: elections.OtherReason, Details: []byte("manual")}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"other","details":"manual"}`, string(bz))
}

func TestBanReason_RejectsUnknownVariant(t *testing.T) {
	var r elections.BanReason
	assert.Error(t, codec.Decode([]byte{7}, &r))
}
