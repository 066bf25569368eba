package verify

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"

	"zkgate/go-backend/internal/identifier"
	"zkgate/go-backend/internal/leaf"
	"zkgate/go-backend/internal/registry"
	"zkgate/go-backend/internal/verifier"
	"zkgate/go-backend/pkg/models"
)

type stubVerifier struct {
	ok  bool
	err error
	// records the leaf it was asked about; empty means it was not called
	askedLeaf string
}

func (s *stubVerifier) Verify(_ context.Context, l leaf.Leaf, _ []byte) (bool, error) {
	s.askedLeaf = l.Hex()
	return s.ok, s.err
}

type failingRegistry struct{ err error }

func (f failingRegistry) Resolve(context.Context, leaf.Leaf) (uint64, error) {
	return 0, f.err
}

const (
	testEmail  = "alice@example.com"
	testSecret = "hunter2"
)

func registeredOrchestrator(t *testing.T, id uint64, proofs ProofVerifier) (*Orchestrator, leaf.Leaf) {
	t.Helper()
	l, err := leaf.Derive(testEmail, testSecret)
	if err != nil {
		t.Fatalf("derive leaf failed: %v", err)
	}
	reg := registry.NewStatic()
	if id != 0 {
		if err := reg.Register(l, id); err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}
	return New(reg, proofs, identifier.NewCodec("UNIQ"), nil), l
}

func credentialRequest(claimed string) models.VerificationRequest {
	return models.VerificationRequest{
		ClaimedIdentifier: claimed,
		Credential:        &models.Credential{Email: testEmail, Secret: testSecret},
	}
}

func TestCredentialAccepted(t *testing.T) {
	pv := &stubVerifier{}
	o, l := registeredOrchestrator(t, 42, pv)

	resp := o.Verify(context.Background(), credentialRequest("42"))
	if resp.Outcome != models.OutcomeAccepted {
		t.Fatalf("want accepted, got %+v", resp)
	}
	if resp.Identifier == nil || resp.Identifier.Decimal != "42" || resp.Identifier.Display != "UNIQ-000042" {
		t.Fatalf("unexpected identifier: %+v", resp.Identifier)
	}
	if resp.Leaf != l.Hex() {
		t.Fatalf("verdict leaf %q, want %q", resp.Leaf, l.Hex())
	}
	if pv.askedLeaf != "" {
		t.Fatal("credential mode must not invoke the proof verifier")
	}
}

func TestDisplayFormClaimAccepted(t *testing.T) {
	o, _ := registeredOrchestrator(t, 42, &stubVerifier{})
	resp := o.Verify(context.Background(), credentialRequest("UNIQ-000042"))
	if resp.Outcome != models.OutcomeAccepted {
		t.Fatalf("display-form claim should be accepted, got %+v", resp)
	}
}

func TestNotRegistered(t *testing.T) {
	o, _ := registeredOrchestrator(t, 0, &stubVerifier{})
	resp := o.Verify(context.Background(), credentialRequest("42"))
	if resp.Outcome != models.OutcomeRejected || resp.Reason != models.ReasonNotRegistered {
		t.Fatalf("want rejected/not_registered, got %+v", resp)
	}
	if resp.Identifier != nil || resp.Leaf != "" {
		t.Fatal("rejected verdicts must not carry partial results")
	}
}

func TestIdentifierMismatchCarriesBothValues(t *testing.T) {
	o, _ := registeredOrchestrator(t, 42, &stubVerifier{})
	resp := o.Verify(context.Background(), credentialRequest("7"))
	if resp.Reason != models.ReasonIdentifierMismatch {
		t.Fatalf("want identifier_mismatch, got %+v", resp)
	}
	if !strings.Contains(resp.Detail, "7") || !strings.Contains(resp.Detail, "42") {
		t.Fatalf("mismatch detail must include both values, got %q", resp.Detail)
	}
	if strings.Contains(resp.Detail, testSecret) || strings.Contains(resp.Detail, testEmail) {
		t.Fatalf("detail must never include the credential: %q", resp.Detail)
	}
}

func TestProofModeAccepted(t *testing.T) {
	pv := &stubVerifier{ok: true}
	o, l := registeredOrchestrator(t, 42, pv)

	resp := o.Verify(context.Background(), models.VerificationRequest{
		ClaimedIdentifier: "42",
		Leaf:              l.Hex(),
		Proof:             base64.StdEncoding.EncodeToString([]byte("opaque")),
	})
	if resp.Outcome != models.OutcomeAccepted {
		t.Fatalf("want accepted, got %+v", resp)
	}
	if pv.askedLeaf != l.Hex() {
		t.Fatalf("verifier asked about %q, want %q", pv.askedLeaf, l.Hex())
	}
}

func TestProofInvalid(t *testing.T) {
	o, l := registeredOrchestrator(t, 42, &stubVerifier{ok: false})
	resp := o.Verify(context.Background(), models.VerificationRequest{
		ClaimedIdentifier: "42",
		Leaf:              l.Hex(),
		Proof:             base64.StdEncoding.EncodeToString([]byte("opaque")),
	})
	if resp.Reason != models.ReasonProofInvalid {
		t.Fatalf("want proof_invalid, got %+v", resp)
	}
}

func TestVerifierUnavailable(t *testing.T) {
	o, l := registeredOrchestrator(t, 42, &stubVerifier{err: fmt.Errorf("%w: timeout", verifier.ErrUnavailable)})
	resp := o.Verify(context.Background(), models.VerificationRequest{
		ClaimedIdentifier: "42",
		Leaf:              l.Hex(),
		Proof:             base64.StdEncoding.EncodeToString([]byte("opaque")),
	})
	if resp.Reason != models.ReasonVerifierUnavailable {
		t.Fatalf("want verifier_unavailable, got %+v", resp)
	}
}

func TestRegistryUnavailable(t *testing.T) {
	o := New(failingRegistry{err: registry.ErrUnavailable}, &stubVerifier{}, identifier.NewCodec(""), nil)
	resp := o.Verify(context.Background(), credentialRequest("42"))
	if resp.Reason != models.ReasonRegistryUnavailable {
		t.Fatalf("want registry_unavailable, got %+v", resp)
	}
	if !resp.Reason.Retryable() {
		t.Fatal("registry_unavailable must be retryable")
	}
}

func TestMalformedRequestShapes(t *testing.T) {
	o, l := registeredOrchestrator(t, 42, &stubVerifier{ok: true})
	proof := base64.StdEncoding.EncodeToString([]byte("opaque"))

	cases := []struct {
		name string
		req  models.VerificationRequest
	}{
		{"empty", models.VerificationRequest{ClaimedIdentifier: "42"}},
		{"both modes", models.VerificationRequest{
			ClaimedIdentifier: "42",
			Credential:        &models.Credential{Email: testEmail, Secret: testSecret},
			Leaf:              l.Hex(),
			Proof:             proof,
		}},
		{"leaf without proof", models.VerificationRequest{ClaimedIdentifier: "42", Leaf: l.Hex()}},
		{"proof without leaf", models.VerificationRequest{ClaimedIdentifier: "42", Proof: proof}},
		{"malformed leaf", models.VerificationRequest{ClaimedIdentifier: "42", Leaf: "zz", Proof: proof}},
		{"malformed proof base64", models.VerificationRequest{ClaimedIdentifier: "42", Leaf: l.Hex(), Proof: "!!"}},
		{"bad credential", models.VerificationRequest{
			ClaimedIdentifier: "42",
			Credential:        &models.Credential{Email: "not-an-email", Secret: "s"},
		}},
		{"bad claimed identifier", credentialRequest("zero")},
		{"zero claimed identifier", credentialRequest("0")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := o.Verify(context.Background(), tc.req)
			if resp.Outcome != models.OutcomeRejected || resp.Reason != models.ReasonInvalidInput {
				t.Fatalf("want rejected/invalid_input, got %+v", resp)
			}
		})
	}
}

func TestReasonsNeverDowngraded(t *testing.T) {
	// An unknown verifier error must still surface as verifier_unavailable,
	// not a generic failure.
	o, l := registeredOrchestrator(t, 42, &stubVerifier{err: errors.New("boom")})
	resp := o.Verify(context.Background(), models.VerificationRequest{
		ClaimedIdentifier: "42",
		Leaf:              l.Hex(),
		Proof:             base64.StdEncoding.EncodeToString([]byte("opaque")),
	})
	if resp.Reason != models.ReasonVerifierUnavailable {
		t.Fatalf("want verifier_unavailable, got %+v", resp)
	}
}
