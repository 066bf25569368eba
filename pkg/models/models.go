package models

import "time"

// Outcome is the terminal state of a verification request.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
)

// RejectReason tags why a verification request was rejected. Reasons map
// one-to-one onto the failures of the inner components and are never
// collapsed into a generic error.
type RejectReason string

const (
	ReasonInvalidInput        RejectReason = "invalid_input"
	ReasonProofInvalid        RejectReason = "proof_invalid"
	ReasonVerifierUnavailable RejectReason = "verifier_unavailable"
	ReasonRegistryUnavailable RejectReason = "registry_unavailable"
	ReasonNotRegistered       RejectReason = "not_registered"
	ReasonIdentifierMismatch  RejectReason = "identifier_mismatch"
)

// Retryable reports whether resubmitting the same request can plausibly
// produce a different outcome.
func (r RejectReason) Retryable() bool {
	switch r {
	case ReasonVerifierUnavailable, ReasonRegistryUnavailable:
		return true
	default:
		return false
	}
}

// Credential is a user's raw login material. It exists only for the
// duration of leaf derivation and must never be logged or persisted.
type Credential struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
}

// IdentifierValue carries both textual encodings of a registered
// identifier.
type IdentifierValue struct {
	Decimal string `json:"decimal"`
	Display string `json:"display"`
}

// VerificationRequest is the wire shape accepted by the verification
// endpoint. Exactly one of Credential or (Leaf + Proof) must be present.
// Leaf is 32 bytes of lowercase hex; Proof is base64 of the proof
// system's native serialization.
type VerificationRequest struct {
	ClaimedIdentifier string      `json:"claimed_identifier"`
	Credential        *Credential `json:"credential,omitempty"`
	Leaf              string      `json:"leaf,omitempty"`
	Proof             string      `json:"proof,omitempty"`
}

// VerificationResponse is the sole output of the verification core.
// Identifier and Leaf are set only on acceptance; Reason and Detail only
// on rejection. No partial verdicts: a rejected request carries no
// identifier.
type VerificationResponse struct {
	Outcome    Outcome          `json:"outcome"`
	Identifier *IdentifierValue `json:"identifier,omitempty"`
	Leaf       string           `json:"leaf,omitempty"`
	Reason     RejectReason     `json:"reason,omitempty"`
	Detail     string           `json:"detail,omitempty"`
}

// Account is a site-local record keyed on the identifier's canonical
// decimal value.
type Account struct {
	Identifier  string    `json:"identifier"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// RegistrationRequest verifies a credential or proof and, on acceptance,
// creates the site-local account record.
type RegistrationRequest struct {
	VerificationRequest
	DisplayName string `json:"display_name"`
}

// RegistrationResponse reports the verification verdict plus the account
// outcome. AlreadyRegistered is the losing side of a concurrent
// registration race; the verification itself still succeeded.
type RegistrationResponse struct {
	Verification      VerificationResponse `json:"verification"`
	Account           *Account             `json:"account,omitempty"`
	AlreadyRegistered bool                 `json:"already_registered,omitempty"`
}
