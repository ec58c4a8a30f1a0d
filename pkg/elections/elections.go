// Package elections reads and configures the state of the Elections pallet:
// committee sizes, era validator sets, and the validator ban policy.
//
// Every accessor issues its own storage reads; nothing is cached. Errors from the
// connection are returned wrapped and never retried here.
package elections

import (
	"context"
	"fmt"

	"github.com/cardinal-cryptography/electionsx/pkg/chain"
)

// PalletName is the runtime name of the Elections pallet.
const PalletName = "Elections"

// Storage items of the Elections pallet.
const (
	committeeSizeItem                = "CommitteeSize"
	nextEraCommitteeSizeItem         = "NextEraCommitteeSize"
	sessionValidatorBlockCountItem   = "SessionValidatorBlockCount"
	currentEraValidatorsItem         = "CurrentEraValidators"
	nextEraReservedValidatorsItem    = "NextEraReservedValidators"
	nextEraNonReservedValidatorsItem = "NextEraNonReservedValidators"
	banConfigItem                    = "BanConfig"
	underperformedSessionCountItem   = "UnderperformedValidatorSessionCount"
	bannedItem                       = "Banned"
)

// Pallet gives typed access to Elections storage through a connection.
type Pallet struct {
	conn chain.Reader
}

// New returns accessors reading through conn.
func New(conn chain.Reader) *Pallet {
	return &Pallet{conn: conn}
}

// CommitteeSeats returns the committee size at the given block, or at the latest block when at is nil.
func (p *Pallet) CommitteeSeats(ctx context.Context, at *chain.Hash) (CommitteeSeats, error) {
	var seats CommitteeSeats
	if err := p.conn.ReadStorageValueAt(ctx, PalletName, committeeSizeItem, at, &seats); err != nil {
		return CommitteeSeats{}, fmt.Errorf("committee seats: %w", err)
	}
	return seats, nil
}

// NextEraCommitteeSeats returns the committee size that takes effect next era.
func (p *Pallet) NextEraCommitteeSeats(ctx context.Context) (CommitteeSeats, error) {
	var seats CommitteeSeats
	if err := p.conn.ReadStorageValue(ctx, PalletName, nextEraCommitteeSizeItem, &seats); err != nil {
		return CommitteeSeats{}, fmt.Errorf("next era committee seats: %w", err)
	}
	return seats, nil
}

// ValidatorBlockCount returns how many blocks account produced in the session of the given block.
// A nil count means the account has no entry.
func (p *Pallet) ValidatorBlockCount(ctx context.Context, account chain.AccountID, at *chain.Hash) (*uint32, error) {
	var count uint32
	ok, err := p.conn.ReadStorageMap(ctx, PalletName, sessionValidatorBlockCountItem, account[:], at, &count)
	if err != nil {
		return nil, fmt.Errorf("block count of %s: %w", account, err)
	}
	if !ok {
		return nil, nil
	}
	return &count, nil
}

// CurrentEraValidators returns the reserved and non-reserved validators of the current era.
func (p *Pallet) CurrentEraValidators(ctx context.Context) (EraValidators, error) {
	return p.eraValidatorsAt(ctx, nil)
}

// CurrentEraReservedValidators returns the reserved validators of the current era.
func (p *Pallet) CurrentEraReservedValidators(ctx context.Context) ([]chain.AccountID, error) {
	v, err := p.CurrentEraValidators(ctx)
	if err != nil {
		return nil, err
	}
	return v.Reserved, nil
}

// CurrentEraNonReservedValidators returns the non-reserved validators of the current era.
func (p *Pallet) CurrentEraNonReservedValidators(ctx context.Context) ([]chain.AccountID, error) {
	v, err := p.CurrentEraValidators(ctx)
	if err != nil {
		return nil, err
	}
	return v.NonReserved, nil
}

// NextEraReservedValidators returns the reserved validators elected for the next era.
func (p *Pallet) NextEraReservedValidators(ctx context.Context) ([]chain.AccountID, error) {
	return p.validatorList(ctx, nextEraReservedValidatorsItem, nil)
}

// NextEraNonReservedValidators returns the non-reserved validators elected for the next era.
func (p *Pallet) NextEraNonReservedValidators(ctx context.Context) ([]chain.AccountID, error) {
	return p.validatorList(ctx, nextEraNonReservedValidatorsItem, nil)
}

// NextEraValidators returns both next-era lists read at one best block, so they
// always describe the same chain state.
func (p *Pallet) NextEraValidators(ctx context.Context) (EraValidators, error) {
	at, err := p.conn.BestBlockHash(ctx)
	if err != nil {
		return EraValidators{}, fmt.Errorf("next era validators: %w", err)
	}
	reserved, err := p.validatorList(ctx, nextEraReservedValidatorsItem, &at)
	if err != nil {
		return EraValidators{}, err
	}
	nonReserved, err := p.validatorList(ctx, nextEraNonReservedValidatorsItem, &at)
	if err != nil {
		return EraValidators{}, err
	}
	return EraValidators{Reserved: reserved, NonReserved: nonReserved}, nil
}

// EraValidators returns the era validators as they were at the first block of session.
func (p *Pallet) EraValidators(ctx context.Context, session SessionIndex) (EraValidators, error) {
	at, err := p.SessionFirstBlock(ctx, session)
	if err != nil {
		return EraValidators{}, err
	}
	return p.eraValidatorsAt(ctx, &at)
}

func (p *Pallet) eraValidatorsAt(ctx context.Context, at *chain.Hash) (EraValidators, error) {
	var v EraValidators
	if err := p.conn.ReadStorageValueAt(ctx, PalletName, currentEraValidatorsItem, at, &v); err != nil {
		return EraValidators{}, fmt.Errorf("era validators: %w", err)
	}
	return v, nil
}

func (p *Pallet) validatorList(ctx context.Context, item string, at *chain.Hash) ([]chain.AccountID, error) {
	var accounts []chain.AccountID
	if err := p.conn.ReadStorageValueAt(ctx, PalletName, item, at, &accounts); err != nil {
		return nil, fmt.Errorf("validators %s: %w", item, err)
	}
	return accounts, nil
}

// BanConfig returns the current ban policy.
func (p *Pallet) BanConfig(ctx context.Context) (BanConfig, error) {
	var cfg BanConfig
	if err := p.conn.ReadStorageValue(ctx, PalletName, banConfigItem, &cfg); err != nil {
		return BanConfig{}, fmt.Errorf("ban config: %w", err)
	}
	return cfg, nil
}

// UnderperformedSessionCount returns how many sessions account underperformed in.
// An account without an entry has never underperformed and yields 0.
func (p *Pallet) UnderperformedSessionCount(ctx context.Context, account chain.AccountID) (SessionCount, error) {
	var count SessionCount
	ok, err := p.conn.ReadStorageMap(ctx, PalletName, underperformedSessionCountItem, account[:], nil, &count)
	if err != nil {
		return 0, fmt.Errorf("underperformed sessions of %s: %w", account, err)
	}
	if !ok {
		return 0, nil
	}
	return count, nil
}

// BanReasonForValidator returns why account is banned, or nil if it is not banned.
func (p *Pallet) BanReasonForValidator(ctx context.Context, account chain.AccountID) (*BanInfo, error) {
	var info BanInfo
	ok, err := p.conn.ReadStorageMap(ctx, PalletName, bannedItem, account[:], nil, &info)
	if err != nil {
		return nil, fmt.Errorf("ban of %s: %w", account, err)
	}
	if !ok {
		return nil, nil
	}
	return &info, nil
}
