package substrate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"go.uber.org/zap"

	"github.com/cardinal-cryptography/electionsx/pkg/chain"
)

const (
	sudoCall = "Sudo.sudo_unchecked_weight"

	// generic substrate address format; only used to derive the keypair address string
	ss58Prefix = 42
)

// RootClient is a Client that signs with the chain's sudo key.
type RootClient struct {
	*Client
	signer signature.KeyringPair

	// serializes nonce lookup + submission for this signer
	submitMu sync.Mutex
}

var _ chain.RootConnection = (*RootClient)(nil)

// DialRoot connects like Dial and derives the sudo keypair from seed
// (a secret URI such as "//Alice", a mnemonic, or a 0x-prefixed seed).
func DialRoot(ctx context.Context, o Opts, seed string) (*RootClient, error) {
	if seed == "" {
		return nil, errors.New("sudo seed is required for a root connection")
	}
	signer, err := signature.KeyringPairFromSecret(seed, ss58Prefix)
	if err != nil {
		return nil, fmt.Errorf("derive sudo keypair: %w", err)
	}

	c, err := Dial(ctx, o)
	if err != nil {
		return nil, err
	}
	return &RootClient{Client: c, signer: signer}, nil
}

// SubmitRootCall composes call, wraps it in Sudo.sudo_unchecked_weight with the given weight,
// signs it and watches it until status is reached.
func (r *RootClient) SubmitRootCall(ctx context.Context, call chain.Call, weight uint64, status chain.TxStatus) (chain.Hash, error) {
	if err := ctx.Err(); err != nil {
		return chain.Hash{}, err
	}
	meta := r.metadata()

	inner, err := types.NewCall(meta, call.Name(), call.Args...)
	if err != nil {
		return chain.Hash{}, fmt.Errorf("compose %s: %w", call.Name(), err)
	}
	wrapped, err := types.NewCall(meta, sudoCall, inner, types.NewU64(weight))
	if err != nil {
		return chain.Hash{}, fmt.Errorf("compose %s: %w", sudoCall, err)
	}

	r.submitMu.Lock()
	defer r.submitMu.Unlock()

	ext := types.NewExtrinsic(wrapped)
	opts, err := r.signatureOptions(meta)
	if err != nil {
		return chain.Hash{}, err
	}
	if err := ext.Sign(r.signer, opts); err != nil {
		return chain.Hash{}, fmt.Errorf("sign %s: %w", call.Name(), err)
	}

	sub, err := r.api.RPC.Author.SubmitAndWatchExtrinsic(ext)
	if err != nil {
		return chain.Hash{}, fmt.Errorf("submit %s: %w", call.Name(), err)
	}
	defer sub.Unsubscribe()

	r.logger.Info("Submitted root call",
		zap.String("call", call.Name()),
		zap.Uint64("weight", weight),
		zap.Stringer("awaiting", status))

	return watchStatus(ctx, call.Name(), status, sub.Chan(), sub.Err(), r.logger)
}

// signatureOptions builds immortal-era signing options with the signer's next nonce.
func (r *RootClient) signatureOptions(meta *types.Metadata) (types.SignatureOptions, error) {
	genesis, err := r.api.RPC.Chain.GetBlockHash(0)
	if err != nil {
		return types.SignatureOptions{}, fmt.Errorf("genesis hash: %w", err)
	}
	rv, err := r.api.RPC.State.GetRuntimeVersionLatest()
	if err != nil {
		return types.SignatureOptions{}, fmt.Errorf("runtime version: %w", err)
	}

	key, err := types.CreateStorageKey(meta, "System", "Account", r.signer.PublicKey)
	if err != nil {
		return types.SignatureOptions{}, fmt.Errorf("storage key System.Account: %w", err)
	}
	var info types.AccountInfo
	ok, err := r.api.RPC.State.GetStorageLatest(key, &info)
	if err != nil {
		return types.SignatureOptions{}, fmt.Errorf("read sudo account: %w", err)
	}
	var nonce uint64
	if ok {
		nonce = uint64(info.Nonce)
	}

	return types.SignatureOptions{
		BlockHash:          genesis,
		Era:                types.ExtrinsicEra{IsMortalEra: false},
		GenesisHash:        genesis,
		Nonce:              types.NewUCompactFromUInt(nonce),
		SpecVersion:        rv.SpecVersion,
		Tip:                types.NewUCompactFromUInt(0),
		TransactionVersion: rv.TransactionVersion,
	}, nil
}

// Address returns the SS58 address of the sudo signer.
func (r *RootClient) Address() string {
	return r.signer.Address
}
