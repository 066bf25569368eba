// Command zkgate is the credential holder's tool: it derives leaves,
// runs the one-time circuit setup, and constructs proofs locally so the
// raw secret never leaves the machine. Only the resulting (leaf, proof)
// pair is submitted to the verification service.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/consensys/gnark/backend/groth16"

	"zkgate/go-backend/internal/leaf"
	"zkgate/go-backend/internal/vault"
	"zkgate/go-backend/internal/zkcircuit"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}

	switch args[0] {
	case "setup":
		return runSetup(args[1:], stdout, stderr)
	case "leaf":
		return runLeaf(args[1:], stdout, stderr)
	case "save":
		return runSave(args[1:], stdout, stderr)
	case "prove":
		return runProve(args[1:], stdout, stderr)
	case "verify":
		return runVerify(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: zkgate <setup|leaf|save|prove|verify> [flags]")
}

func runSetup(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("setup", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	outDir := cmd.String("out", "artifacts", "output directory for ccs.bin / pk.bin / vk.bin")
	force := cmd.Bool("force", false, "overwrite existing artifacts")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	if !*force {
		if _, err := os.Stat(*outDir); err == nil {
			fmt.Fprintf(stderr, "error: %s already exists (use -force to overwrite)\n", *outDir)
			return 1
		}
	}

	ccs, err := zkcircuit.Compile()
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	pk, vk, err := zkcircuit.Setup(ccs)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	if err := zkcircuit.SaveArtifacts(*outDir, ccs, pk, vk); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	fmt.Fprintf(stdout, "artifacts written to %s\n", *outDir)
	return 0
}

func runLeaf(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("leaf", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	email := cmd.String("email", "", "account email address")
	secret := cmd.String("secret", "", "secret phrase")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	l, err := leaf.Derive(*email, *secret)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	fmt.Fprintln(stdout, l.Hex())
	return 0
}

func runSave(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("save", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	email := cmd.String("email", "", "account email address")
	secret := cmd.String("secret", "", "secret phrase")
	passphrase := cmd.String("passphrase", "", "vault passphrase")
	out := cmd.String("out", "credential.enc", "output vault file")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	if *passphrase == "" {
		fmt.Fprintln(stderr, "error: -passphrase is required")
		return 1
	}
	// Reject malformed credentials before sealing them.
	if _, err := leaf.Derive(*email, *secret); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	if err := vault.Save(*out, *passphrase, vault.Credential{Email: *email, Secret: *secret}); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	fmt.Fprintf(stdout, "credential written to %s\n", *out)
	return 0
}

func runProve(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("prove", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	email := cmd.String("email", "", "account email address")
	secret := cmd.String("secret", "", "secret phrase")
	vaultPath := cmd.String("vault", "", "read the credential from this vault file instead of -email/-secret")
	passphrase := cmd.String("passphrase", "", "vault passphrase")
	artifacts := cmd.String("artifacts", "artifacts", "circuit artifacts directory")
	out := cmd.String("out", "proof.bin", "output file for the serialized proof")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	if *vaultPath != "" {
		cred, err := vault.Load(*vaultPath, *passphrase)
		if err != nil {
			fmt.Fprintln(stderr, "error:", err)
			return 1
		}
		*email, *secret = cred.Email, cred.Secret
	}

	norm, err := leaf.NormalizeEmail(*email)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	if *secret == "" {
		fmt.Fprintln(stderr, "error: -secret is required")
		return 1
	}
	l, err := leaf.Derive(*email, *secret)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	ccs, err := zkcircuit.LoadConstraintSystem(*artifacts)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	pk, err := zkcircuit.LoadProvingKey(*artifacts)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	emailHash, secretHash := leaf.PreimageHashes(norm, *secret)
	proof, err := zkcircuit.Prove(ccs, pk, emailHash, secretHash, l)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	if err := os.WriteFile(*out, proof, 0o600); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	fmt.Fprintln(stdout, l.Hex())
	return 0
}

func runVerify(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	leafHex := cmd.String("leaf", "", "leaf commitment (64 hex chars)")
	proofPath := cmd.String("proof", "", "path to the serialized proof")
	artifacts := cmd.String("artifacts", "artifacts", "circuit artifacts directory")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	l, err := leaf.ParseHex(*leafHex)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	raw, err := os.ReadFile(*proofPath)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	vk, err := zkcircuit.LoadVerifyingKey(*artifacts)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	proof, err := zkcircuit.DeserializeProof(raw)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	pub, err := zkcircuit.PublicWitness(l)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	if err := groth16.Verify(proof, vk, pub); err != nil {
		fmt.Fprintln(stderr, "proof invalid:", err)
		return 1
	}

	fmt.Fprintln(stdout, "proof valid")
	return 0
}
