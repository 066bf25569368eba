package zkcircuit

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"zkgate/go-backend/internal/leaf"
)

// Compile builds the R1CS for the leaf circuit over BN254.
func Compile() (constraint.ConstraintSystem, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &LeafCircuit{})
	if err != nil {
		return nil, fmt.Errorf("compile leaf circuit: %w", err)
	}
	return ccs, nil
}

// Setup runs the groth16 trusted setup for a compiled circuit.
func Setup(ccs constraint.ConstraintSystem) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, fmt.Errorf("groth16 setup: %w", err)
	}
	return pk, vk, nil
}

// Prove produces a serialized proof that (emailHash, secretHash) is the
// preimage of l. The returned bytes are gnark's native proof encoding,
// the opaque form carried in verification requests.
func Prove(ccs constraint.ConstraintSystem, pk groth16.ProvingKey, emailHash, secretHash *big.Int, l leaf.Leaf) ([]byte, error) {
	assignment := &LeafCircuit{
		EmailHash:  emailHash,
		SecretHash: secretHash,
		Leaf:       l.Element(),
	}
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("build witness: %w", err)
	}
	proof, err := groth16.Prove(ccs, pk, w)
	if err != nil {
		return nil, fmt.Errorf("groth16 prove: %w", err)
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serialize proof: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeProof decodes gnark's native proof encoding.
func DeserializeProof(raw []byte) (groth16.Proof, error) {
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("decode proof: %w", err)
	}
	return proof, nil
}

// PublicWitness builds the public-only witness for a leaf, the single
// public input of the circuit.
func PublicWitness(l leaf.Leaf) (witness.Witness, error) {
	assignment := &LeafCircuit{Leaf: l.Element()}
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return nil, fmt.Errorf("build public witness: %w", err)
	}
	return w, nil
}
