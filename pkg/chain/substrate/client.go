package substrate

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	gsclient "github.com/centrifuge/go-substrate-rpc-client/v4/client"
	gethrpc "github.com/centrifuge/go-substrate-rpc-client/v4/gethrpc"
	"github.com/centrifuge/go-substrate-rpc-client/v4/rpc"
	"github.com/centrifuge/go-substrate-rpc-client/v4/rpc/author"
	chainrpc "github.com/centrifuge/go-substrate-rpc-client/v4/rpc/chain"
	"github.com/centrifuge/go-substrate-rpc-client/v4/rpc/state"
	"github.com/centrifuge/go-substrate-rpc-client/v4/rpc/system"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"go.uber.org/zap"

	"github.com/cardinal-cryptography/electionsx/pkg/chain"
	"github.com/cardinal-cryptography/electionsx/pkg/retry"
)

// Client is a read-only connection to a Substrate node over JSON-RPC (websocket or http).
// Runtime metadata is fetched on dial and used to build storage keys and calls.
type Client struct {
	api    *gsrpc.SubstrateAPI
	url    string
	logger *zap.Logger

	mu   sync.RWMutex
	meta *types.Metadata
}

// Opts is the set of options for dialling a node.
type Opts struct {
	URL    string
	Retry  retry.Config
	Logger *zap.Logger
}

var _ chain.Reader = (*Client)(nil)

// Dial connects to the node at o.URL and loads the latest runtime metadata.
// Connection failures are retried according to o.Retry; a malformed URL is not.
func Dial(ctx context.Context, o Opts) (*Client, error) {
	if o.URL == "" {
		return nil, errors.New("node url is required")
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Retry.MaxAttempts <= 0 {
		o.Retry = retry.DialConfig()
	}

	var cl gsclient.Client
	err := retry.WithBackoff(ctx, o.Retry, o.Logger, "dial node", func() error {
		if err := checkNodeURL(o.URL); err != nil {
			return retry.Permanent(err)
		}
		var dialErr error
		cl, dialErr = gsclient.Connect(o.URL)
		return dialErr
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", o.URL, err)
	}

	c := newClient(cl, o.URL, o.Logger)
	if err := c.Refresh(ctx); err != nil {
		cl.Close()
		return nil, err
	}

	o.Logger.Info("Connected to node", zap.String("url", o.URL))
	return c, nil
}

// newClient wires the RPC modules over cl without touching the node.
// gsrpc.NewSubstrateAPI would fetch metadata on its own and keep it private,
// so the modules are assembled here and Refresh does the only fetch.
func newClient(cl gsclient.Client, nodeURL string, logger *zap.Logger) *Client {
	return &Client{
		api: &gsrpc.SubstrateAPI{
			RPC: &rpc.RPC{
				Author: author.NewAuthor(cl),
				Chain:  chainrpc.NewChain(cl),
				State:  state.NewState(cl),
				System: system.NewSystem(cl),
			},
			Client: cl,
		},
		url:    nodeURL,
		logger: logger,
	}
}

func checkNodeURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse node url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
		return nil
	default:
		return fmt.Errorf("unsupported node url scheme %q", u.Scheme)
	}
}

// Refresh reloads runtime metadata. Call it after a runtime upgrade.
func (c *Client) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	meta, err := c.api.RPC.State.GetMetadataLatest()
	if err != nil {
		return fmt.Errorf("fetch runtime metadata: %w", err)
	}
	types.SetSerDeOptions(types.SerDeOptionsFromMetadata(meta))

	c.mu.Lock()
	c.meta = meta
	c.mu.Unlock()
	return nil
}

// Close closes the underlying websocket.
func (c *Client) Close() {
	c.api.Client.Close()
}

func (c *Client) metadata() *types.Metadata {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.meta
}

// ReadStorageValue reads a plain storage value at the best block.
func (c *Client) ReadStorageValue(ctx context.Context, pallet, item string, out any) error {
	return c.ReadStorageValueAt(ctx, pallet, item, nil, out)
}

// ReadStorageValueAt reads a plain storage value at the given block, or the best block when at is nil.
func (c *Client) ReadStorageValueAt(ctx context.Context, pallet, item string, at *chain.Hash, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := types.CreateStorageKey(c.metadata(), pallet, item)
	if err != nil {
		return fmt.Errorf("storage key %s.%s: %w", pallet, item, err)
	}
	ok, err := c.getStorage(key, at, out)
	if err != nil {
		return fmt.Errorf("read %s.%s: %w", pallet, item, err)
	}
	if !ok {
		return fmt.Errorf("read %s.%s: %w", pallet, item, chain.ErrStorageNotFound)
	}
	return nil
}

// ReadStorageMap reads a single storage map entry. The key is hashed with the hasher declared in metadata.
func (c *Client) ReadStorageMap(ctx context.Context, pallet, item string, key []byte, at *chain.Hash, out any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	storageKey, err := types.CreateStorageKey(c.metadata(), pallet, item, key)
	if err != nil {
		return false, fmt.Errorf("storage key %s.%s: %w", pallet, item, err)
	}
	ok, err := c.getStorage(storageKey, at, out)
	if err != nil {
		return false, fmt.Errorf("read %s.%s: %w", pallet, item, err)
	}
	return ok, nil
}

func (c *Client) getStorage(key types.StorageKey, at *chain.Hash, out any) (bool, error) {
	if at == nil {
		return c.api.RPC.State.GetStorageLatest(key, out)
	}
	return c.api.RPC.State.GetStorage(key, out, types.Hash(*at))
}

// ReadConstant decodes a pallet constant from the cached metadata.
func (c *Client) ReadConstant(ctx context.Context, pallet, name string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := c.metadata().FindConstantValue(pallet, name)
	if err != nil {
		return fmt.Errorf("constant %s.%s: %w", pallet, name, err)
	}
	if err := codec.Decode(raw, out); err != nil {
		return fmt.Errorf("decode constant %s.%s: %w", pallet, name, err)
	}
	return nil
}

// BlockHash returns the hash of the canonical block with the given number.
func (c *Client) BlockHash(ctx context.Context, number uint32) (chain.Hash, error) {
	if err := ctx.Err(); err != nil {
		return chain.Hash{}, err
	}
	h, err := c.blockHash(number)
	if err != nil {
		return chain.Hash{}, fmt.Errorf("block hash %d: %w", number, err)
	}
	return h, nil
}

// BestBlockHash returns the hash of the current best block.
func (c *Client) BestBlockHash(ctx context.Context) (chain.Hash, error) {
	if err := ctx.Err(); err != nil {
		return chain.Hash{}, err
	}
	h, err := c.blockHash()
	if err != nil {
		return chain.Hash{}, fmt.Errorf("best block hash: %w", err)
	}
	return h, nil
}

// blockHash calls chain_getBlockHash directly: nodes answer null for numbers
// past the head, which the typed RPC wrapper reports as a decode error.
func (c *Client) blockHash(number ...any) (chain.Hash, error) {
	var res *string
	err := c.api.Client.Call(&res, "chain_getBlockHash", number...)
	if errors.Is(err, gethrpc.ErrNoResult) || (err == nil && (res == nil || *res == "")) {
		return chain.Hash{}, chain.ErrBlockNotFound
	}
	if err != nil {
		return chain.Hash{}, err
	}
	h, err := types.NewHashFromHexString(*res)
	if err != nil {
		return chain.Hash{}, err
	}
	if h == (types.Hash{}) {
		return chain.Hash{}, chain.ErrBlockNotFound
	}
	return chain.Hash(h), nil
}
