package chain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash is a 32-byte block hash.
type Hash [32]byte

// Hex returns the 0x-prefixed hex encoding of the hash.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

// MarshalText encodes the hash as 0x-prefixed hex.
func (h Hash) MarshalText() ([]byte, error) { return []byte(h.Hex()), nil }

// UnmarshalText decodes a 0x-prefixed hex hash.
func (h *Hash) UnmarshalText(b []byte) error {
	parsed, err := ParseHash(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash parses a hex block hash, with or without the 0x prefix.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if err := decodeHex32(s, h[:]); err != nil {
		return Hash{}, fmt.Errorf("parse block hash: %w", err)
	}
	return h, nil
}

// AccountID is a 32-byte on-chain account identifier (AccountId32).
type AccountID [32]byte

// Hex returns the 0x-prefixed hex encoding of the account id.
func (a AccountID) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

func (a AccountID) String() string { return a.Hex() }

// MarshalText encodes the account as 0x-prefixed hex.
func (a AccountID) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

// UnmarshalText decodes a 0x-prefixed hex account id.
func (a *AccountID) UnmarshalText(b []byte) error {
	parsed, err := ParseAccountID(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAccountID parses a hex-encoded 32-byte public key, with or without the 0x prefix.
func ParseAccountID(s string) (AccountID, error) {
	var a AccountID
	if err := decodeHex32(s, a[:]); err != nil {
		return AccountID{}, fmt.Errorf("parse account id: %w", err)
	}
	return a, nil
}

func decodeHex32(s string, dst []byte) error {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s) != 64 {
		return fmt.Errorf("expected 64 hex characters, got %d", len(s))
	}
	_, err := hex.Decode(dst, []byte(s))
	return err
}

// Call is a runtime call addressed by pallet and method name.
// Args are encoded in order with the SCALE codec.
type Call struct {
	Pallet string
	Method string
	Args   []any
}

// Name returns the "Pallet.method" form used by runtime metadata.
func (c Call) Name() string { return c.Pallet + "." + c.Method }

// TxStatus is the inclusion status a submitter waits for.
type TxStatus int

const (
	// InBlock waits until the extrinsic is included in a block.
	InBlock TxStatus = iota
	// Finalized waits until the including block is finalized.
	Finalized
)

func (s TxStatus) String() string {
	switch s {
	case InBlock:
		return "in-block"
	case Finalized:
		return "finalized"
	default:
		return fmt.Sprintf("TxStatus(%d)", int(s))
	}
}

// ParseTxStatus parses "in-block" or "finalized".
func ParseTxStatus(s string) (TxStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in-block", "inblock", "":
		return InBlock, nil
	case "finalized":
		return Finalized, nil
	default:
		return 0, fmt.Errorf("unknown tx status %q", s)
	}
}
