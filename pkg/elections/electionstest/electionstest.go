// Package electionstest runs a minimal Elections runtime on the in-memory chain
// for tests of code built on package elections.
package electionstest

import (
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"

	"github.com/cardinal-cryptography/electionsx/pkg/chain"
	"github.com/cardinal-cryptography/electionsx/pkg/chain/memory"
	"github.com/cardinal-cryptography/electionsx/pkg/elections"
)

// Runtime wraps a memory chain holding Elections storage.
type Runtime struct {
	*memory.Chain
}

type setBanConfigArgs struct {
	MinimalExpectedPerformance          types.OptionU8
	UnderperformedSessionCountThreshold types.OptionU32
	CleanSessionCounterDelay            types.OptionU32
	BanPeriod                           types.OptionU32
}

// New returns a runtime with the given session period whose set_ban_config dispatch
// keeps stored values for unset arguments.
func New(sessionPeriod uint32) *Runtime {
	rt := &Runtime{Chain: memory.New()}
	rt.must(rt.SetConstant(elections.PalletName, "SessionPeriod", sessionPeriod))
	rt.HandleCall(elections.PalletName, "set_ban_config", applyBanConfig)
	return rt
}

func applyBanConfig(c *memory.Chain, args []byte) error {
	var in setBanConfigArgs
	if err := codec.Decode(args, &in); err != nil {
		return err
	}
	var cfg elections.BanConfig
	if _, err := c.Value(elections.PalletName, "BanConfig", &cfg); err != nil {
		return err
	}
	if ok, v := in.MinimalExpectedPerformance.Unwrap(); ok {
		cfg.MinimalExpectedPerformance = elections.PerbillFromPercent(uint8(v))
	}
	if ok, v := in.UnderperformedSessionCountThreshold.Unwrap(); ok {
		cfg.UnderperformedSessionCountThreshold = elections.SessionCount(v)
	}
	if ok, v := in.CleanSessionCounterDelay.Unwrap(); ok {
		cfg.CleanSessionCounterDelay = elections.SessionCount(v)
	}
	if ok, v := in.BanPeriod.Unwrap(); ok {
		cfg.BanPeriod = elections.EraIndex(v)
	}
	return c.SetValue(elections.PalletName, "BanConfig", cfg)
}

// must panics on encoding failures, which only happen for unencodable test values.
func (rt *Runtime) must(err error) {
	if err != nil {
		panic(err)
	}
}

// SetCommitteeSeats stores the current committee size.
func (rt *Runtime) SetCommitteeSeats(seats elections.CommitteeSeats) {
	rt.must(rt.SetValue(elections.PalletName, "CommitteeSize", seats))
}

// SetNextEraCommitteeSeats stores the committee size for the next era.
func (rt *Runtime) SetNextEraCommitteeSeats(seats elections.CommitteeSeats) {
	rt.must(rt.SetValue(elections.PalletName, "NextEraCommitteeSize", seats))
}

// SetCurrentEraValidators stores the validator sets of the current era.
func (rt *Runtime) SetCurrentEraValidators(v elections.EraValidators) {
	rt.must(rt.SetValue(elections.PalletName, "CurrentEraValidators", v))
}

// SetNextEraValidators stores the reserved and non-reserved lists for the next era.
func (rt *Runtime) SetNextEraValidators(v elections.EraValidators) {
	rt.must(rt.SetValue(elections.PalletName, "NextEraReservedValidators", v.Reserved))
	rt.must(rt.SetValue(elections.PalletName, "NextEraNonReservedValidators", v.NonReserved))
}

// SetBanConfig stores cfg as the ban configuration.
func (rt *Runtime) SetBanConfig(cfg elections.BanConfig) {
	rt.must(rt.SetValue(elections.PalletName, "BanConfig", cfg))
}

// SetBlockCount records how many blocks account produced in the current session.
func (rt *Runtime) SetBlockCount(account chain.AccountID, count uint32) {
	rt.must(rt.SetMapEntry(elections.PalletName, "SessionValidatorBlockCount", account[:], count))
}

// SetUnderperformed records the underperformed session count of account.
func (rt *Runtime) SetUnderperformed(account chain.AccountID, sessions elections.SessionCount) {
	rt.must(rt.SetMapEntry(elections.PalletName, "UnderperformedValidatorSessionCount", account[:], sessions))
}

// Ban marks account as banned with info.
func (rt *Runtime) Ban(account chain.AccountID, info elections.BanInfo) {
	rt.must(rt.SetMapEntry(elections.PalletName, "Banned", account[:], info))
}

// AdvanceSessions seals empty blocks until the chain reaches the first block of session.
func (rt *Runtime) AdvanceSessions(session elections.SessionIndex, period uint32) chain.Hash {
	target := uint32(session) * period
	num, head := rt.Head()
	for num < target {
		head = rt.SealBlock()
		num, _ = rt.Head()
	}
	return head
}
