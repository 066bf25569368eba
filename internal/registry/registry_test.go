package registry

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"zkgate/go-backend/internal/leaf"
)

type fakeCaller struct {
	calls   int
	results []callResult
}

type callResult struct {
	out []byte
	err error
}

func (f *fakeCaller) CallContract(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++
	r := f.results[i]
	return r.out, r.err
}

func uint256Word(v uint64) []byte {
	out := make([]byte, 32)
	new(big.Int).SetUint64(v).FillBytes(out)
	return out
}

func testLeaf(t *testing.T) leaf.Leaf {
	t.Helper()
	l, err := leaf.Derive("alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("derive leaf failed: %v", err)
	}
	return l
}

func fastOpts(attempts int) Options {
	return Options{
		AttemptTimeout: time.Second,
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
	}
}

func TestResolveRegistered(t *testing.T) {
	caller := &fakeCaller{results: []callResult{{out: uint256Word(42)}}}
	c := NewClient(caller, common.Address{}, fastOpts(3))

	id, err := c.Resolve(context.Background(), testLeaf(t))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if id != 42 {
		t.Fatalf("resolved %d, want 42", id)
	}
}

func TestResolveUnregistered(t *testing.T) {
	caller := &fakeCaller{results: []callResult{{out: uint256Word(0)}}}
	c := NewClient(caller, common.Address{}, fastOpts(3))

	id, err := c.Resolve(context.Background(), testLeaf(t))
	if err != nil {
		t.Fatalf("unregistered leaf must not be an error: %v", err)
	}
	if id != 0 {
		t.Fatalf("resolved %d, want 0", id)
	}
}

func TestResolveRetriesThenSucceeds(t *testing.T) {
	caller := &fakeCaller{results: []callResult{
		{err: errors.New("connection refused")},
		{err: errors.New("connection refused")},
		{out: uint256Word(7)},
	}}
	c := NewClient(caller, common.Address{}, fastOpts(3))

	id, err := c.Resolve(context.Background(), testLeaf(t))
	if err != nil {
		t.Fatalf("resolve should succeed on the third attempt: %v", err)
	}
	if id != 7 {
		t.Fatalf("resolved %d, want 7", id)
	}
	if caller.calls != 3 {
		t.Fatalf("made %d calls, want 3", caller.calls)
	}
}

func TestResolveExhaustsRetries(t *testing.T) {
	caller := &fakeCaller{results: []callResult{{err: errors.New("connection refused")}}}
	c := NewClient(caller, common.Address{}, fastOpts(3))

	_, err := c.Resolve(context.Background(), testLeaf(t))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
	if caller.calls != 3 {
		t.Fatalf("made %d calls, want 3", caller.calls)
	}
}

func TestResolveMalformedResponse(t *testing.T) {
	caller := &fakeCaller{results: []callResult{{out: []byte{0x01}}}}
	c := NewClient(caller, common.Address{}, fastOpts(2))

	_, err := c.Resolve(context.Background(), testLeaf(t))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("malformed responses must surface as ErrUnavailable, got %v", err)
	}
}

func TestResolveZeroLeafNotRetried(t *testing.T) {
	caller := &fakeCaller{results: []callResult{{out: uint256Word(1)}}}
	c := NewClient(caller, common.Address{}, fastOpts(3))

	_, err := c.Resolve(context.Background(), leaf.Leaf{})
	if !errors.Is(err, ErrInvalidLeaf) {
		t.Fatalf("want ErrInvalidLeaf, got %v", err)
	}
	if caller.calls != 0 {
		t.Fatalf("invalid leaf must not reach the registry, made %d calls", caller.calls)
	}
}

func TestStaticRegistry(t *testing.T) {
	s := NewStatic()
	l := testLeaf(t)

	id, err := s.Resolve(context.Background(), l)
	if err != nil || id != 0 {
		t.Fatalf("empty registry should resolve to 0, got %d (%v)", id, err)
	}

	if err := s.Register(l, 42); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	id, err = s.Resolve(context.Background(), l)
	if err != nil || id != 42 {
		t.Fatalf("resolve after register gave %d (%v)", id, err)
	}

	if err := s.Register(l, 43); err == nil {
		t.Fatal("reassigning a registered leaf should fail")
	}
	if err := s.Register(l, 42); err != nil {
		t.Fatalf("idempotent re-register should succeed: %v", err)
	}
}
