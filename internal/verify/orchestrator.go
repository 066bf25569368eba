// Package verify composes the hasher, proof verifier, registry reader,
// and identifier codec into the single request/verdict protocol. Each
// request walks a fixed state order: leaf, proof, registry, identifier
// comparison. No step starts before its predecessor completes, no step
// is retried here (the registry reader owns its own bounded retries),
// and every inner failure surfaces verbatim as a tagged reason.
package verify

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zkgate/go-backend/internal/identifier"
	"zkgate/go-backend/internal/leaf"
	"zkgate/go-backend/internal/registry"
	"zkgate/go-backend/internal/verifier"
	"zkgate/go-backend/pkg/models"
)

// ProofVerifier checks a proof against a public leaf.
type ProofVerifier interface {
	Verify(ctx context.Context, l leaf.Leaf, proof []byte) (bool, error)
}

// Orchestrator holds the injected collaborators. It carries no
// request-to-request state; one value serves all concurrent requests.
type Orchestrator struct {
	registry registry.Reader
	proofs   ProofVerifier
	codec    identifier.Codec
	log      *slog.Logger
}

// New wires an orchestrator. A nil logger disables logging.
func New(reg registry.Reader, proofs ProofVerifier, codec identifier.Codec, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		registry: reg,
		proofs:   proofs,
		codec:    codec,
		log:      log,
	}
}

// Verify runs one request to a terminal verdict. A rejected verdict
// never carries an identifier or leaf; an accepted one carries both
// encodings of the resolved identifier.
func (o *Orchestrator) Verify(ctx context.Context, req models.VerificationRequest) models.VerificationResponse {
	start := time.Now()
	resp := o.run(ctx, req)
	observeVerdict(resp, time.Since(start))

	attrs := []any{
		slog.String("outcome", string(resp.Outcome)),
		slog.Duration("elapsed", time.Since(start)),
	}
	if resp.Reason != "" {
		attrs = append(attrs, slog.String("reason", string(resp.Reason)))
	}
	if resp.Leaf != "" {
		attrs = append(attrs, slog.String("leaf_prefix", resp.Leaf[:8]))
	}
	o.log.InfoContext(ctx, "verification decided", attrs...)
	return resp
}

func (o *Orchestrator) run(ctx context.Context, req models.VerificationRequest) models.VerificationResponse {
	// RECEIVED -> LEAF_READY
	l, proof, reject := o.leafFromRequest(req)
	if reject != nil {
		return *reject
	}

	// LEAF_READY -> PROOF_CHECKED. The credential path has no proof to
	// check: revealing the credential to this party is itself the
	// attestation, and the leaf was just derived from it.
	if proof != nil {
		ok, err := o.proofs.Verify(ctx, l, proof)
		if err != nil {
			if errors.Is(err, verifier.ErrUnavailable) {
				return rejected(models.ReasonVerifierUnavailable, "proof verification unavailable")
			}
			return rejected(models.ReasonVerifierUnavailable, err.Error())
		}
		if !ok {
			return rejected(models.ReasonProofInvalid, "proof does not attest knowledge of the leaf preimage")
		}
	}

	// PROOF_CHECKED -> REGISTRY_RESOLVED
	resolved, err := o.registry.Resolve(ctx, l)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrInvalidLeaf):
			return rejected(models.ReasonInvalidInput, "leaf cannot be queried")
		default:
			return rejected(models.ReasonRegistryUnavailable, "registry lookup failed after retries")
		}
	}
	if resolved == 0 {
		return rejected(models.ReasonNotRegistered, "leaf is not registered")
	}
	resolvedID := identifier.Identifier(resolved)

	// REGISTRY_RESOLVED -> IDENTIFIER_COMPARED
	claimed, err := o.codec.Parse(req.ClaimedIdentifier)
	if err != nil {
		return rejected(models.ReasonInvalidInput, "malformed claimed identifier")
	}
	if claimed != resolvedID {
		// Both values are included for diagnosis; the credential never is.
		return rejected(models.ReasonIdentifierMismatch,
			fmt.Sprintf("claimed %s, resolved %s", claimed.Decimal(), resolvedID.Decimal()))
	}

	// -> ACCEPTED
	idValue := o.codec.Value(resolvedID)
	return models.VerificationResponse{
		Outcome:    models.OutcomeAccepted,
		Identifier: &idValue,
		Leaf:       l.Hex(),
	}
}

// leafFromRequest validates the request shape and yields the leaf plus,
// in proof mode, the decoded proof bytes.
func (o *Orchestrator) leafFromRequest(req models.VerificationRequest) (leaf.Leaf, []byte, *models.VerificationResponse) {
	credentialMode := req.Credential != nil
	proofMode := req.Leaf != "" || req.Proof != ""

	switch {
	case credentialMode && proofMode:
		r := rejected(models.ReasonInvalidInput, "request carries both a credential and a leaf/proof")
		return leaf.Leaf{}, nil, &r
	case credentialMode:
		l, err := leaf.Derive(req.Credential.Email, req.Credential.Secret)
		if err != nil {
			r := rejected(models.ReasonInvalidInput, "credential failed validation")
			return leaf.Leaf{}, nil, &r
		}
		return l, nil, nil
	case proofMode:
		if req.Leaf == "" || req.Proof == "" {
			r := rejected(models.ReasonInvalidInput, "leaf and proof must both be present")
			return leaf.Leaf{}, nil, &r
		}
		l, err := leaf.ParseHex(req.Leaf)
		if err != nil {
			r := rejected(models.ReasonInvalidInput, "malformed leaf")
			return leaf.Leaf{}, nil, &r
		}
		proof, err := base64.StdEncoding.DecodeString(req.Proof)
		if err != nil || len(proof) == 0 {
			r := rejected(models.ReasonInvalidInput, "malformed proof encoding")
			return leaf.Leaf{}, nil, &r
		}
		return l, proof, nil
	default:
		r := rejected(models.ReasonInvalidInput, "request carries neither a credential nor a leaf/proof")
		return leaf.Leaf{}, nil, &r
	}
}

func rejected(reason models.RejectReason, detail string) models.VerificationResponse {
	return models.VerificationResponse{
		Outcome: models.OutcomeRejected,
		Reason:  reason,
		Detail:  detail,
	}
}
