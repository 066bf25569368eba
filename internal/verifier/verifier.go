// Package verifier checks leaf-preimage proofs against the fixed
// verification key. Verification is CPU-bound and potentially slow, so a
// worker pool sized to the available cores keeps one heavy request from
// starving the rest of the process.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/consensys/gnark/backend/groth16"

	"zkgate/go-backend/internal/leaf"
	"zkgate/go-backend/internal/zkcircuit"
)

// ErrUnavailable marks an operational failure: the verification key could
// not be loaded, or verification did not complete within the deadline.
// Distinct from an invalid proof, which is a plain false result.
var ErrUnavailable = errors.New("proof verifier unavailable")

// DefaultTimeout bounds a single verification including queueing time.
const DefaultTimeout = 5 * time.Second

// Verifier holds the process-wide verification key. The key is immutable
// after construction and safe to share across requests without locking.
type Verifier struct {
	vk      groth16.VerifyingKey
	slots   chan struct{}
	timeout time.Duration
}

// New builds a Verifier around a loaded verification key. workers <= 0
// selects GOMAXPROCS; timeout <= 0 selects DefaultTimeout.
func New(vk groth16.VerifyingKey, workers int, timeout time.Duration) *Verifier {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Verifier{
		vk:      vk,
		slots:   make(chan struct{}, workers),
		timeout: timeout,
	}
}

// LoadFromDir reads the verification key artifact from dir. A missing or
// unreadable artifact is a startup-time ErrUnavailable condition.
func LoadFromDir(dir string, workers int, timeout time.Duration) (*Verifier, error) {
	vk, err := zkcircuit.LoadVerifyingKey(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return New(vk, workers, timeout), nil
}

// Verify checks that proof attests knowledge of the preimage of l.
// Returns (false, nil) for a well-formed but invalid proof and for
// undecodable proof bytes; returns ErrUnavailable only when verification
// could not be carried out at all. No partial validity is reported.
func (v *Verifier) Verify(ctx context.Context, l leaf.Leaf, proof []byte) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	select {
	case v.slots <- struct{}{}:
	case <-ctx.Done():
		return false, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}

	done := make(chan bool, 1)
	go func() {
		defer func() { <-v.slots }()
		done <- v.verify(l, proof)
	}()

	select {
	case ok := <-done:
		return ok, nil
	case <-ctx.Done():
		return false, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
}

func (v *Verifier) verify(l leaf.Leaf, raw []byte) bool {
	proof, err := zkcircuit.DeserializeProof(raw)
	if err != nil {
		return false
	}
	pub, err := zkcircuit.PublicWitness(l)
	if err != nil {
		return false
	}
	return groth16.Verify(proof, v.vk, pub) == nil
}
