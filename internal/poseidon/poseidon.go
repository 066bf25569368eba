// Package poseidon implements the Poseidon hash over the BN254 scalar
// field, the field-native hash used for leaf commitments. The same
// parameters are consumed by the in-circuit permutation in
// internal/zkcircuit, so the two implementations must stay in lockstep.
package poseidon

import (
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
)

// Permutation parameters: state width 3 (rate 2, capacity 1), x^5 S-box.
const (
	Width         = 3
	FullRounds    = 8
	PartialRounds = 57
)

var (
	paramsOnce sync.Once
	modulus    *big.Int
	roundConst []*big.Int
	mdsMatrix  [][]*big.Int
)

func initParams() {
	modulus = ecc.BN254.ScalarField()
	roundConst = generateRoundConstants(Width, FullRounds+PartialRounds, modulus)
	mdsMatrix = generateMDS(Width, modulus)
}

// Modulus returns the BN254 scalar field modulus.
func Modulus() *big.Int {
	paramsOnce.Do(initParams)
	return new(big.Int).Set(modulus)
}

// RoundConstants returns the additive round constants, length
// Width*(FullRounds+PartialRounds). The slice is shared; callers must not
// mutate it.
func RoundConstants() []*big.Int {
	paramsOnce.Do(initParams)
	return roundConst
}

// MDS returns the Width x Width mixing matrix. Shared; callers must not
// mutate it.
func MDS() [][]*big.Int {
	paramsOnce.Do(initParams)
	return mdsMatrix
}

// Hash absorbs the inputs into a sponge with rate Width-1 and returns a
// single field element. Inputs are reduced into the field before
// absorption. Hash(a, b) absorbs both values in one block, so the result
// is sensitive to input order.
func Hash(inputs ...*big.Int) *big.Int {
	paramsOnce.Do(initParams)

	rate := Width - 1
	state := make([]*big.Int, Width)
	for i := range state {
		state[i] = new(big.Int)
	}

	for i := 0; i < len(inputs); i += rate {
		for j := 0; j < rate && i+j < len(inputs); j++ {
			v := new(big.Int).Mod(inputs[i+j], modulus)
			state[j+1].Add(state[j+1], v)
			state[j+1].Mod(state[j+1], modulus)
		}
		state = permute(state)
	}
	if len(inputs) == 0 {
		state = permute(state)
	}

	return new(big.Int).Set(state[0])
}

func permute(state []*big.Int) []*big.Int {
	half := FullRounds / 2
	rc := 0

	for r := 0; r < half; r++ {
		addRoundConstants(state, &rc)
		for i := range state {
			state[i] = sbox(state[i])
		}
		state = mix(state)
	}
	for r := 0; r < PartialRounds; r++ {
		addRoundConstants(state, &rc)
		state[0] = sbox(state[0])
		state = mix(state)
	}
	for r := 0; r < half; r++ {
		addRoundConstants(state, &rc)
		for i := range state {
			state[i] = sbox(state[i])
		}
		state = mix(state)
	}
	return state
}

func addRoundConstants(state []*big.Int, rc *int) {
	for i := range state {
		state[i] = new(big.Int).Add(state[i], roundConst[*rc])
		state[i].Mod(state[i], modulus)
		*rc++
	}
}

// sbox computes x^5 mod p.
func sbox(x *big.Int) *big.Int {
	x2 := new(big.Int).Mul(x, x)
	x2.Mod(x2, modulus)
	x4 := new(big.Int).Mul(x2, x2)
	x4.Mod(x4, modulus)
	x5 := new(big.Int).Mul(x4, x)
	x5.Mod(x5, modulus)
	return x5
}

func mix(state []*big.Int) []*big.Int {
	out := make([]*big.Int, Width)
	for i := 0; i < Width; i++ {
		sum := new(big.Int)
		for j := 0; j < Width; j++ {
			sum.Add(sum, new(big.Int).Mul(mdsMatrix[i][j], state[j]))
		}
		sum.Mod(sum, modulus)
		out[i] = sum
	}
	return out
}

// generateRoundConstants derives constants deterministically from a fixed
// seed: c_i = (seed + i)^5 mod p.
func generateRoundConstants(t, rounds int, p *big.Int) []*big.Int {
	n := t * rounds
	out := make([]*big.Int, n)
	seed := new(big.Int).SetBytes([]byte("PoseidonBN254"))
	five := big.NewInt(5)
	for i := 0; i < n; i++ {
		v := new(big.Int).Add(seed, big.NewInt(int64(i)))
		out[i] = v.Exp(v, five, p)
	}
	return out
}

// generateMDS builds a Cauchy matrix M[i][j] = 1/(x_i + y_j) with
// x_i = i, y_j = t + j, which is MDS over a prime field for distinct
// x and y values.
func generateMDS(t int, p *big.Int) [][]*big.Int {
	m := make([][]*big.Int, t)
	for i := 0; i < t; i++ {
		m[i] = make([]*big.Int, t)
		for j := 0; j < t; j++ {
			sum := big.NewInt(int64(i + t + j))
			m[i][j] = new(big.Int).ModInverse(sum, p)
		}
	}
	return m
}
