package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	want := Default()
	if cfg.Server.Addr != want.Server.Addr {
		t.Fatalf("addr %q, want default %q", cfg.Server.Addr, want.Server.Addr)
	}
	if cfg.Identifier.DisplayPrefix != "UNIQ" {
		t.Fatalf("prefix %q, want UNIQ", cfg.Identifier.DisplayPrefix)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  addr: "0.0.0.0:9000"
registry:
  rpcUrl: "http://rpc.internal:8545"
  contractAddress: "0x00000000000000000000000000000000000000aa"
  maxAttempts: 5
identifier:
  displayPrefix: "ACCT"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg := LoadFromPath(path)
	if cfg.Server.Addr != "0.0.0.0:9000" {
		t.Fatalf("addr not merged: %q", cfg.Server.Addr)
	}
	if cfg.Registry.MaxAttempts != 5 {
		t.Fatalf("maxAttempts not merged: %d", cfg.Registry.MaxAttempts)
	}
	if cfg.Identifier.DisplayPrefix != "ACCT" {
		t.Fatalf("prefix not merged: %q", cfg.Identifier.DisplayPrefix)
	}
	// Unset fields keep their defaults.
	if cfg.Registry.AttemptTimeout != Default().Registry.AttemptTimeout {
		t.Fatalf("attemptTimeout should keep default, got %v", cfg.Registry.AttemptTimeout)
	}
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("ZKGATE_REGISTRY_RPC_URL", "http://override:8545")
	t.Setenv("ZKGATE_DISPLAY_PREFIX", "ENV")
	t.Setenv("ZKGATE_VERIFIER_TIMEOUT", "9s")
	t.Setenv("ZKGATE_VERIFIER_WORKERS", "4")

	cfg := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if cfg.Registry.RPCURL != "http://override:8545" {
		t.Fatalf("rpc url override lost: %q", cfg.Registry.RPCURL)
	}
	if cfg.Identifier.DisplayPrefix != "ENV" {
		t.Fatalf("prefix override lost: %q", cfg.Identifier.DisplayPrefix)
	}
	if cfg.Verifier.Timeout != 9*time.Second {
		t.Fatalf("timeout override lost: %v", cfg.Verifier.Timeout)
	}
	if cfg.Verifier.Workers != 4 {
		t.Fatalf("workers override lost: %d", cfg.Verifier.Workers)
	}
}

func TestEnvOverrideIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("ZKGATE_VERIFIER_WORKERS", "not-a-number")
	t.Setenv("ZKGATE_REGISTRY_MAX_ATTEMPTS", "-2")

	cfg := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if cfg.Verifier.Workers != Default().Verifier.Workers {
		t.Fatalf("invalid workers override applied: %d", cfg.Verifier.Workers)
	}
	if cfg.Registry.MaxAttempts != Default().Registry.MaxAttempts {
		t.Fatalf("invalid attempts override applied: %d", cfg.Registry.MaxAttempts)
	}
}
