// Package memory provides an in-process chain.RootConnection.
//
// Storage is kept SCALE-encoded, exactly as a node would return it, so values
// written here round-trip through the same codec as the node backend. Writes go
// to a working state that latest-block reads observe; the working state is
// sealed into an immutable block whenever a block hash is needed.
package memory

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/crypto/blake2b"

	"github.com/cardinal-cryptography/electionsx/pkg/chain"
)

// CallHandler applies a root call to the chain. args holds the call's SCALE-encoded arguments.
type CallHandler func(c *Chain, args []byte) error

// Submission records a root call accepted by SubmitRootCall.
type Submission struct {
	Call   string
	Args   []byte
	Weight uint64
	Status chain.TxStatus
	Block  chain.Hash
}

// Chain is an in-memory chain with one linear history.
type Chain struct {
	state     *xsync.Map[string, []byte]
	constants *xsync.Map[string, []byte]
	blocks    *xsync.Map[chain.Hash, map[string][]byte]
	numbers   *xsync.Map[uint32, chain.Hash]
	handlers  *xsync.Map[string, CallHandler]

	mu          sync.Mutex
	best        chain.Hash
	height      uint32
	dirty       bool
	submissions []Submission
	readHook    func(pallet, item string)

	reads atomic.Int64
}

var _ chain.RootConnection = (*Chain)(nil)

// New returns a chain holding only an empty genesis block.
func New() *Chain {
	c := &Chain{
		state:     xsync.NewMap[string, []byte](),
		constants: xsync.NewMap[string, []byte](),
		blocks:    xsync.NewMap[chain.Hash, map[string][]byte](),
		numbers:   xsync.NewMap[uint32, chain.Hash](),
		handlers:  xsync.NewMap[string, CallHandler](),
	}
	c.mu.Lock()
	c.sealLocked(true)
	c.mu.Unlock()
	return c
}

func storageKey(pallet, item string, key []byte) string {
	if key == nil {
		return pallet + "." + item
	}
	return pallet + "." + item + "/" + hex.EncodeToString(key)
}

// SetValue stores v as the plain storage value pallet.item.
func (c *Chain) SetValue(pallet, item string, v any) error {
	return c.put(storageKey(pallet, item, nil), v)
}

// SetMapEntry stores v under key in the storage map pallet.item.
func (c *Chain) SetMapEntry(pallet, item string, key []byte, v any) error {
	return c.put(storageKey(pallet, item, key), v)
}

// DeleteMapEntry removes key from the storage map pallet.item.
func (c *Chain) DeleteMapEntry(pallet, item string, key []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Delete(storageKey(pallet, item, key))
	c.dirty = true
}

// SetConstant declares a runtime constant.
func (c *Chain) SetConstant(pallet, name string, v any) error {
	bz, err := codec.Encode(v)
	if err != nil {
		return fmt.Errorf("encode constant %s.%s: %w", pallet, name, err)
	}
	c.constants.Store(pallet+"."+name, bz)
	return nil
}

func (c *Chain) put(k string, v any) error {
	bz, err := codec.Encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", k, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Store(k, bz)
	c.dirty = true
	return nil
}

// Value decodes the working-state value of pallet.item into out. Reports whether it exists.
func (c *Chain) Value(pallet, item string, out any) (bool, error) {
	bz, ok := c.state.Load(storageKey(pallet, item, nil))
	if !ok {
		return false, nil
	}
	return true, codec.Decode(bz, out)
}

// SealBlock snapshots the working state into a new block on top of the best block.
func (c *Chain) SealBlock() chain.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sealLocked(true)
}

// sealLocked appends a block if forced or if the working state changed.
func (c *Chain) sealLocked(force bool) chain.Hash {
	if !force && !c.dirty {
		return c.best
	}

	snapshot := make(map[string][]byte, c.state.Size())
	c.state.Range(func(k string, v []byte) bool {
		snapshot[k] = v
		return true
	})

	number := uint32(0)
	if c.best != (chain.Hash{}) {
		number = c.height + 1
	}

	var buf [36]byte
	copy(buf[:32], c.best[:])
	binary.BigEndian.PutUint32(buf[32:], number)
	hash := chain.Hash(blake2b.Sum256(buf[:]))

	c.blocks.Store(hash, snapshot)
	c.numbers.Store(number, hash)
	c.best = hash
	c.height = number
	c.dirty = false
	return hash
}

// Head returns the number and hash of the best block.
func (c *Chain) Head() (uint32, chain.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height, c.best
}

// HandleCall registers the dispatcher for pallet.method root calls.
func (c *Chain) HandleCall(pallet, method string, h CallHandler) {
	c.handlers.Store(pallet+"."+method, h)
}

// SetReadHook installs fn to run after every storage read. Tests use it to advance
// the chain between two reads.
func (c *Chain) SetReadHook(fn func(pallet, item string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readHook = fn
}

// Reads returns how many storage reads were served.
func (c *Chain) Reads() int64 { return c.reads.Load() }

// Submissions returns the root calls accepted so far.
func (c *Chain) Submissions() []Submission {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Submission, len(c.submissions))
	copy(out, c.submissions)
	return out
}

func (c *Chain) lookup(k string, at *chain.Hash) ([]byte, bool, error) {
	c.reads.Add(1)
	if at == nil {
		bz, ok := c.state.Load(k)
		return bz, ok, nil
	}
	snapshot, ok := c.blocks.Load(*at)
	if !ok {
		return nil, false, fmt.Errorf("block %s: %w", at.Hex(), chain.ErrBlockNotFound)
	}
	bz, ok := snapshot[k]
	return bz, ok, nil
}

func (c *Chain) afterRead(pallet, item string) {
	c.mu.Lock()
	hook := c.readHook
	c.mu.Unlock()
	if hook != nil {
		hook(pallet, item)
	}
}

// ReadStorageValue reads pallet.item from the working state.
func (c *Chain) ReadStorageValue(ctx context.Context, pallet, item string, out any) error {
	return c.ReadStorageValueAt(ctx, pallet, item, nil, out)
}

// ReadStorageValueAt reads pallet.item at the given block, or the working state when at is nil.
func (c *Chain) ReadStorageValueAt(ctx context.Context, pallet, item string, at *chain.Hash, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer c.afterRead(pallet, item)

	bz, ok, err := c.lookup(storageKey(pallet, item, nil), at)
	if err != nil {
		return fmt.Errorf("read %s.%s: %w", pallet, item, err)
	}
	if !ok {
		return fmt.Errorf("read %s.%s: %w", pallet, item, chain.ErrStorageNotFound)
	}
	if err := codec.Decode(bz, out); err != nil {
		return fmt.Errorf("decode %s.%s: %w", pallet, item, err)
	}
	return nil
}

// ReadStorageMap reads the key entry of the storage map pallet.item.
func (c *Chain) ReadStorageMap(ctx context.Context, pallet, item string, key []byte, at *chain.Hash, out any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	defer c.afterRead(pallet, item)

	bz, ok, err := c.lookup(storageKey(pallet, item, key), at)
	if err != nil {
		return false, fmt.Errorf("read %s.%s: %w", pallet, item, err)
	}
	if !ok {
		return false, nil
	}
	if err := codec.Decode(bz, out); err != nil {
		return false, fmt.Errorf("decode %s.%s: %w", pallet, item, err)
	}
	return true, nil
}

// ReadConstant decodes a constant declared with SetConstant.
func (c *Chain) ReadConstant(ctx context.Context, pallet, name string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bz, ok := c.constants.Load(pallet + "." + name)
	if !ok {
		return fmt.Errorf("constant %s.%s not found", pallet, name)
	}
	return codec.Decode(bz, out)
}

// BlockHash returns the hash of block number.
func (c *Chain) BlockHash(ctx context.Context, number uint32) (chain.Hash, error) {
	if err := ctx.Err(); err != nil {
		return chain.Hash{}, err
	}
	h, ok := c.numbers.Load(number)
	if !ok {
		return chain.Hash{}, fmt.Errorf("block hash %d: %w", number, chain.ErrBlockNotFound)
	}
	return h, nil
}

// BestBlockHash seals pending writes and returns the best block hash.
func (c *Chain) BestBlockHash(ctx context.Context) (chain.Hash, error) {
	if err := ctx.Err(); err != nil {
		return chain.Hash{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sealLocked(false), nil
}

// SubmitRootCall dispatches call to its registered handler and seals the result into a new block.
// Inclusion and finality are immediate.
func (c *Chain) SubmitRootCall(ctx context.Context, call chain.Call, weight uint64, status chain.TxStatus) (chain.Hash, error) {
	if err := ctx.Err(); err != nil {
		return chain.Hash{}, err
	}
	h, ok := c.handlers.Load(call.Name())
	if !ok {
		return chain.Hash{}, fmt.Errorf("%s: %w", call.Name(), chain.ErrUnknownCall)
	}

	var args []byte
	for i, arg := range call.Args {
		bz, err := codec.Encode(arg)
		if err != nil {
			return chain.Hash{}, fmt.Errorf("encode %s arg %d: %w", call.Name(), i, err)
		}
		args = append(args, bz...)
	}

	if err := h(c, args); err != nil {
		return chain.Hash{}, fmt.Errorf("dispatch %s: %w", call.Name(), err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	block := c.sealLocked(true)
	c.submissions = append(c.submissions, Submission{
		Call:   call.Name(),
		Args:   args,
		Weight: weight,
		Status: status,
		Block:  block,
	})
	return block, nil
}
