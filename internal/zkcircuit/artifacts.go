package zkcircuit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
)

// Artifact file names inside an artifacts directory. Written once by
// `zkgate setup` and immutable for the process lifetime of every
// consumer.
const (
	ConstraintSystemFile = "ccs.bin"
	ProvingKeyFile       = "pk.bin"
	VerifyingKeyFile     = "vk.bin"
)

// SaveArtifacts writes the compiled constraint system, proving key, and
// verifying key into dir.
func SaveArtifacts(dir string, ccs constraint.ConstraintSystem, pk groth16.ProvingKey, vk groth16.VerifyingKey) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeArtifact(filepath.Join(dir, ConstraintSystemFile), ccs.WriteTo); err != nil {
		return err
	}
	if err := writeArtifact(filepath.Join(dir, ProvingKeyFile), pk.WriteTo); err != nil {
		return err
	}
	return writeArtifact(filepath.Join(dir, VerifyingKeyFile), vk.WriteTo)
}

func writeArtifact(path string, writeTo func(w io.Writer) (int64, error)) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	if _, err := writeTo(f); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// LoadConstraintSystem reads ccs.bin from dir.
func LoadConstraintSystem(dir string) (constraint.ConstraintSystem, error) {
	f, err := os.Open(filepath.Join(dir, ConstraintSystemFile))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ConstraintSystemFile, err)
	}
	defer f.Close()

	ccs := groth16.NewCS(ecc.BN254)
	if _, err := ccs.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("read %s: %w", ConstraintSystemFile, err)
	}
	return ccs, nil
}

// LoadProvingKey reads pk.bin from dir.
func LoadProvingKey(dir string) (groth16.ProvingKey, error) {
	f, err := os.Open(filepath.Join(dir, ProvingKeyFile))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ProvingKeyFile, err)
	}
	defer f.Close()

	pk := groth16.NewProvingKey(ecc.BN254)
	if _, err := pk.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("read %s: %w", ProvingKeyFile, err)
	}
	return pk, nil
}

// LoadVerifyingKey reads vk.bin from dir.
func LoadVerifyingKey(dir string) (groth16.VerifyingKey, error) {
	f, err := os.Open(filepath.Join(dir, VerifyingKeyFile))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", VerifyingKeyFile, err)
	}
	defer f.Close()

	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("read %s: %w", VerifyingKeyFile, err)
	}
	return vk, nil
}
