// Package registry resolves leaf commitments to their on-chain
// identifiers. The registry contract is an external, append-only system
// of record; this package only ever issues read calls against it.
package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"zkgate/go-backend/internal/leaf"
)

var (
	// ErrUnavailable covers connectivity failures, timeouts, and
	// malformed responses after the retry budget is exhausted. Retryable
	// by the caller, unlike an unregistered leaf.
	ErrUnavailable = errors.New("registry unavailable")

	// ErrInvalidLeaf marks a leaf the registry cannot be queried for.
	// Never retried.
	ErrInvalidLeaf = errors.New("invalid leaf")
)

// Reader resolves a leaf to its registered identifier. A resolved value
// of 0 means the leaf is unregistered; identifiers are never reassigned
// once non-zero.
type Reader interface {
	Resolve(ctx context.Context, l leaf.Leaf) (uint64, error)
}

// identifierOf(bytes32) -> uint256, the registry contract's read surface.
const registryABI = `[{"inputs":[{"internalType":"bytes32","name":"leaf","type":"bytes32"}],"name":"identifierOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

// ContractCaller is the slice of the ethereum client the reader needs.
// *ethclient.Client satisfies it; tests inject doubles.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Options bound each resolution attempt and the overall retry budget.
type Options struct {
	AttemptTimeout time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
}

func (o Options) withDefaults() Options {
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = 3 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 200 * time.Millisecond
	}
	return o
}

// Client reads the registry contract over JSON-RPC. Safe for concurrent
// use; no response is ever cached, since identifiers can be assigned
// between requests.
type Client struct {
	caller   ContractCaller
	contract common.Address
	opts     Options
}

var (
	parsedABIOnce sync.Once
	parsedABI     abi.ABI
	parsedABIErr  error
)

func registryMethod() (abi.ABI, error) {
	parsedABIOnce.Do(func() {
		parsedABI, parsedABIErr = abi.JSON(strings.NewReader(registryABI))
	})
	return parsedABI, parsedABIErr
}

// Dial connects to the registry RPC endpoint.
func Dial(ctx context.Context, rpcURL string, contract common.Address, opts Options) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrUnavailable, rpcURL, err)
	}
	return NewClient(ec, contract, opts), nil
}

// NewClient wraps an existing caller, for composition and tests.
func NewClient(caller ContractCaller, contract common.Address, opts Options) *Client {
	return &Client{caller: caller, contract: contract, opts: opts.withDefaults()}
}

// Resolve queries identifierOf(leaf) with bounded exponential backoff.
// Returns (0, nil) for an unregistered leaf. The zero leaf is not a
// derivable commitment and fails immediately without a query.
func (c *Client) Resolve(ctx context.Context, l leaf.Leaf) (uint64, error) {
	if l == (leaf.Leaf{}) {
		return 0, fmt.Errorf("%w: zero leaf", ErrInvalidLeaf)
	}

	reg, err := registryMethod()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	data, err := reg.Pack("identifierOf", [32]byte(l))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidLeaf, err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.opts.InitialBackoff
	bounded := backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(c.opts.MaxAttempts-1)), ctx)

	var id uint64
	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.opts.AttemptTimeout)
		defer cancel()

		out, err := c.caller.CallContract(attemptCtx, ethereum.CallMsg{
			To:   &c.contract,
			Data: data,
		}, nil)
		if err != nil {
			return err
		}
		vals, err := reg.Unpack("identifierOf", out)
		if err != nil || len(vals) != 1 {
			return fmt.Errorf("malformed response: %v", err)
		}
		v, ok := vals[0].(*big.Int)
		if !ok || !v.IsUint64() {
			return errors.New("malformed response: not a uint64 identifier")
		}
		id = v.Uint64()
		return nil
	}

	if err := backoff.Retry(op, bounded); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return id, nil
}

// Static is an in-memory registry for tests and local development.
type Static struct {
	mu      sync.RWMutex
	entries map[leaf.Leaf]uint64
}

// NewStatic builds an empty in-memory registry.
func NewStatic() *Static {
	return &Static{entries: make(map[leaf.Leaf]uint64)}
}

// Register records an identifier for a leaf. Mirrors the contract's
// append-only rule: a leaf's identifier is never reassigned.
func (s *Static) Register(l leaf.Leaf, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[l]; ok && existing != id {
		return fmt.Errorf("leaf already registered as %d", existing)
	}
	s.entries[l] = id
	return nil
}

// Resolve implements Reader.
func (s *Static) Resolve(_ context.Context, l leaf.Leaf) (uint64, error) {
	if l == (leaf.Leaf{}) {
		return 0, fmt.Errorf("%w: zero leaf", ErrInvalidLeaf)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[l], nil
}
