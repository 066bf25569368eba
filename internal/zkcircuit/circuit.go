// Package zkcircuit defines the leaf-preimage circuit and the groth16
// plumbing around it: trusted setup, proving, and artifact files. The
// circuit proves knowledge of emailHash and secretHash such that
// Poseidon(emailHash, secretHash) equals the public leaf, without
// revealing either value.
package zkcircuit

import (
	"math/big"

	"github.com/consensys/gnark/frontend"

	"zkgate/go-backend/internal/poseidon"
)

// LeafCircuit binds a public leaf to a private preimage pair. The two
// witness values are the Poseidon arity-1 hashes computed by the
// credential holder; the circuit re-computes only the final arity-2 step.
type LeafCircuit struct {
	EmailHash  frontend.Variable
	SecretHash frontend.Variable
	Leaf       frontend.Variable `gnark:",public"`
}

func (c *LeafCircuit) Define(api frontend.API) error {
	api.AssertIsEqual(c.Leaf, hashPair(api, c.EmailHash, c.SecretHash))
	return nil
}

// hashPair mirrors poseidon.Hash(a, b) in-circuit: one sponge block with
// rate 2, then the full permutation, reading back the capacity element.
// Parameters come from internal/poseidon so the native and in-circuit
// permutations cannot drift apart.
func hashPair(api frontend.API, a, b frontend.Variable) frontend.Variable {
	state := []frontend.Variable{0, a, b}

	rc := poseidon.RoundConstants()
	idx := 0
	half := poseidon.FullRounds / 2

	for r := 0; r < half; r++ {
		state = addConstants(api, state, rc, &idx)
		for i := range state {
			state[i] = sbox(api, state[i])
		}
		state = mix(api, state)
	}
	for r := 0; r < poseidon.PartialRounds; r++ {
		state = addConstants(api, state, rc, &idx)
		state[0] = sbox(api, state[0])
		state = mix(api, state)
	}
	for r := 0; r < half; r++ {
		state = addConstants(api, state, rc, &idx)
		for i := range state {
			state[i] = sbox(api, state[i])
		}
		state = mix(api, state)
	}

	return state[0]
}

func addConstants(api frontend.API, state []frontend.Variable, rc []*big.Int, idx *int) []frontend.Variable {
	out := make([]frontend.Variable, len(state))
	for i := range state {
		out[i] = api.Add(state[i], rc[*idx])
		*idx++
	}
	return out
}

func sbox(api frontend.API, x frontend.Variable) frontend.Variable {
	x2 := api.Mul(x, x)
	x4 := api.Mul(x2, x2)
	return api.Mul(x4, x)
}

func mix(api frontend.API, state []frontend.Variable) []frontend.Variable {
	mds := poseidon.MDS()
	out := make([]frontend.Variable, len(state))
	for i := range state {
		acc := frontend.Variable(0)
		for j := range state {
			acc = api.Add(acc, api.Mul(mds[i][j], state[j]))
		}
		out[i] = acc
	}
	return out
}
