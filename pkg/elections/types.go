package elections

import (
	"encoding/json"
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"

	"github.com/cardinal-cryptography/electionsx/pkg/chain"
)

type (
	// SessionIndex numbers sessions from genesis.
	SessionIndex uint32
	// EraIndex numbers eras from genesis.
	EraIndex uint32
	// SessionCount counts sessions.
	SessionCount uint32
	// Perbill is a fraction in parts per billion.
	Perbill uint32
)

// PerbillFromPercent converts a whole percentage to parts per billion.
func PerbillFromPercent(p uint8) Perbill {
	return Perbill(uint32(p) * 10_000_000)
}

// CommitteeSeats is the number of validator slots in a session committee.
type CommitteeSeats struct {
	ReservedSeats    uint32 `json:"reservedSeats"`
	NonReservedSeats uint32 `json:"nonReservedSeats"`
}

// EraValidators partitions the validators of an era. The two lists are disjoint.
type EraValidators struct {
	Reserved    []chain.AccountID `json:"reserved"`
	NonReserved []chain.AccountID `json:"nonReserved"`
}

// BanConfig holds the thresholds that decide when an underperforming validator is banned.
type BanConfig struct {
	// MinimalExpectedPerformance is the share of expected blocks a validator must produce in a session.
	MinimalExpectedPerformance Perbill `json:"minimalExpectedPerformance"`
	// UnderperformedSessionCountThreshold is how many underperformed sessions trigger a ban.
	UnderperformedSessionCountThreshold SessionCount `json:"underperformedSessionCountThreshold"`
	// CleanSessionCounterDelay is how many sessions pass before underperformance counters reset.
	CleanSessionCounterDelay SessionCount `json:"cleanSessionCounterDelay"`
	// BanPeriod is how many eras a ban lasts.
	BanPeriod EraIndex `json:"banPeriod"`
}

// BanReasonKind discriminates BanReason variants. Values are the SCALE enum indices.
type BanReasonKind uint8

const (
	// InsufficientUptime bans carry the number of underperformed sessions.
	InsufficientUptime BanReasonKind = 0
	// OtherReason bans carry free-form details set by governance.
	OtherReason BanReasonKind = 1
)

func (k BanReasonKind) String() string {
	switch k {
	case InsufficientUptime:
		return "insufficient-uptime"
	case OtherReason:
		return "other"
	default:
		return fmt.Sprintf("BanReasonKind(%d)", uint8(k))
	}
}

// BanReason explains a ban.
type BanReason struct {
	Kind BanReasonKind
	// UnderperformedSessions is set for InsufficientUptime.
	UnderperformedSessions uint32
	// Details is set for OtherReason.
	Details []byte
}

// Encode writes the reason as a SCALE enum.
func (r BanReason) Encode(e scale.Encoder) error {
	if err := e.PushByte(byte(r.Kind)); err != nil {
		return err
	}
	switch r.Kind {
	case InsufficientUptime:
		return e.Encode(r.UnderperformedSessions)
	case OtherReason:
		return e.Encode(r.Details)
	default:
		return fmt.Errorf("unknown ban reason %d", r.Kind)
	}
}

// Decode reads the reason from a SCALE enum.
func (r *BanReason) Decode(d scale.Decoder) error {
	b, err := d.ReadOneByte()
	if err != nil {
		return err
	}
	r.Kind = BanReasonKind(b)
	switch r.Kind {
	case InsufficientUptime:
		return d.Decode(&r.UnderperformedSessions)
	case OtherReason:
		return d.Decode(&r.Details)
	default:
		return fmt.Errorf("unknown ban reason %d", b)
	}
}

type banReasonJSON struct {
	Kind     string  `json:"kind"`
	Sessions *uint32 `json:"sessions,omitempty"`
	Details  *string `json:"details,omitempty"`
}

// MarshalJSON renders the variant name with its payload.
func (r BanReason) MarshalJSON() ([]byte, error) {
	out := banReasonJSON{Kind: r.Kind.String()}
	switch r.Kind {
	case InsufficientUptime:
		n := r.UnderperformedSessions
		out.Sessions = &n
	case OtherReason:
		s := string(r.Details)
		out.Details = &s
	}
	return json.Marshal(out)
}

// BanInfo describes an active ban.
type BanInfo struct {
	Reason BanReason `json:"reason"`
	// Start is the era the ban started in.
	Start EraIndex `json:"start"`
}

// ValidatorStatus gathers the per-account election state of one validator.
type ValidatorStatus struct {
	Account                chain.AccountID `json:"account"`
	UnderperformedSessions SessionCount    `json:"underperformedSessions"`
	// BlockCount is nil when the validator produced no blocks this session.
	BlockCount *uint32 `json:"blockCount"`
	// Ban is nil when the validator is not banned.
	Ban *BanInfo `json:"ban"`
}
