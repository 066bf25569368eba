package poseidon

import (
	"math/big"
	"testing"
)

func TestHashDeterministic(t *testing.T) {
	a := big.NewInt(12345)
	b := big.NewInt(67890)
	h1 := Hash(a, b)
	h2 := Hash(a, b)
	if h1.Cmp(h2) != 0 {
		t.Fatal("hash should be deterministic")
	}
}

func TestHashOrderSensitive(t *testing.T) {
	a := big.NewInt(12345)
	b := big.NewInt(67890)
	if Hash(a, b).Cmp(Hash(b, a)) == 0 {
		t.Fatal("swapping input order should change the hash")
	}
}

func TestHashOutputInField(t *testing.T) {
	h := Hash(big.NewInt(1))
	if h.Sign() < 0 || h.Cmp(Modulus()) >= 0 {
		t.Fatalf("hash output outside field: %s", h)
	}
}

func TestHashReducesInputs(t *testing.T) {
	x := big.NewInt(42)
	overflow := new(big.Int).Add(x, Modulus())
	if Hash(x).Cmp(Hash(overflow)) != 0 {
		t.Fatal("inputs should be reduced into the field before absorption")
	}
}

func TestHashDistinctArities(t *testing.T) {
	a := big.NewInt(7)
	b := big.NewInt(8)
	if Hash(a).Cmp(Hash(a, b)) == 0 {
		t.Fatal("arity-1 and arity-2 hashes of related inputs should differ")
	}
}

func TestHashDoesNotMutateInputs(t *testing.T) {
	x := new(big.Int).Add(Modulus(), big.NewInt(3))
	want := new(big.Int).Set(x)
	Hash(x)
	if x.Cmp(want) != 0 {
		t.Fatal("Hash must not mutate its inputs")
	}
}

func TestRoundConstantCount(t *testing.T) {
	if got, want := len(RoundConstants()), Width*(FullRounds+PartialRounds); got != want {
		t.Fatalf("round constants: got %d, want %d", got, want)
	}
}
