package chain

import (
	"context"
)

// Reader captures the storage reads the accessor layers issue against a node.
// Values are SCALE-decoded into out, which must be a pointer.
// A nil block hash means the latest (best) block.
type Reader interface {
	// ReadStorageValue reads a plain storage value at the latest block.
	// Returns ErrStorageNotFound if the item holds no value.
	ReadStorageValue(ctx context.Context, pallet, item string, out any) error
	// ReadStorageValueAt reads a plain storage value at the given block.
	ReadStorageValueAt(ctx context.Context, pallet, item string, at *Hash, out any) error
	// ReadStorageMap reads one entry of a storage map. The key is the SCALE-encoded map key;
	// hashing is the backend's concern. Returns false when the entry is absent.
	ReadStorageMap(ctx context.Context, pallet, item string, key []byte, at *Hash, out any) (bool, error)
	// ReadConstant decodes a runtime constant declared by a pallet.
	ReadConstant(ctx context.Context, pallet, name string, out any) error
	// BlockHash resolves a block number on the canonical chain.
	BlockHash(ctx context.Context, number uint32) (Hash, error)
	// BestBlockHash returns the hash of the current best block.
	BestBlockHash(ctx context.Context) (Hash, error)
}

// Submitter composes and submits privileged calls.
type Submitter interface {
	// SubmitRootCall wraps call in a root (sudo) envelope with an explicit weight override,
	// signs and submits it, and blocks until status is observed.
	// Returns the hash of the block the extrinsic was included in.
	SubmitRootCall(ctx context.Context, call Call, weight uint64, status TxStatus) (Hash, error)
}

// RootConnection is a connection signing with the chain's root (sudo) key.
type RootConnection interface {
	Reader
	Submitter
}
