// Package config loads the verifier daemon configuration: YAML merged
// over defaults, then ZKGATE_* environment overrides.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Registry   RegistryConfig   `yaml:"registry"`
	Verifier   VerifierConfig   `yaml:"verifier"`
	Identifier IdentifierConfig `yaml:"identifier"`
	Accounts   AccountsConfig   `yaml:"accounts"`
}

type ServerConfig struct {
	Addr      string  `yaml:"addr"`
	RateRPS   float64 `yaml:"rateRps"`
	RateBurst int     `yaml:"rateBurst"`
}

type RegistryConfig struct {
	RPCURL          string        `yaml:"rpcUrl"`
	ContractAddress string        `yaml:"contractAddress"`
	AttemptTimeout  time.Duration `yaml:"attemptTimeout"`
	MaxAttempts     int           `yaml:"maxAttempts"`
	InitialBackoff  time.Duration `yaml:"initialBackoff"`
}

type VerifierConfig struct {
	ArtifactsDir string        `yaml:"artifactsDir"`
	Timeout      time.Duration `yaml:"timeout"`
	Workers      int           `yaml:"workers"`
}

type IdentifierConfig struct {
	DisplayPrefix string `yaml:"displayPrefix"`
}

type AccountsConfig struct {
	Path string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:      "127.0.0.1:8791",
			RateRPS:   10,
			RateBurst: 20,
		},
		Registry: RegistryConfig{
			RPCURL:         "http://127.0.0.1:8545",
			AttemptTimeout: 3 * time.Second,
			MaxAttempts:    3,
			InitialBackoff: 200 * time.Millisecond,
		},
		Verifier: VerifierConfig{
			ArtifactsDir: "artifacts",
			Timeout:      5 * time.Second,
		},
		Identifier: IdentifierConfig{DisplayPrefix: "UNIQ"},
	}
}

// LoadFromPath reads configPath if set, otherwise tries the conventional
// locations; a missing or unreadable file falls back to defaults. Env
// overrides apply in every case.
func LoadFromPath(configPath string) Config {
	cfg := Default()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"go-backend/configs/config.yaml",
			"configs/config.yaml",
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}
		Merge(&cfg, parsed)
		ApplyEnvOverrides(&cfg)
		return cfg
	}

	ApplyEnvOverrides(&cfg)
	return cfg
}

// Merge overlays non-zero fields of src onto dst.
func Merge(dst *Config, src Config) {
	if src.Server.Addr != "" {
		dst.Server.Addr = src.Server.Addr
	}
	if src.Server.RateRPS != 0 {
		dst.Server.RateRPS = src.Server.RateRPS
	}
	if src.Server.RateBurst != 0 {
		dst.Server.RateBurst = src.Server.RateBurst
	}
	if src.Registry.RPCURL != "" {
		dst.Registry.RPCURL = src.Registry.RPCURL
	}
	if src.Registry.ContractAddress != "" {
		dst.Registry.ContractAddress = src.Registry.ContractAddress
	}
	if src.Registry.AttemptTimeout != 0 {
		dst.Registry.AttemptTimeout = src.Registry.AttemptTimeout
	}
	if src.Registry.MaxAttempts != 0 {
		dst.Registry.MaxAttempts = src.Registry.MaxAttempts
	}
	if src.Registry.InitialBackoff != 0 {
		dst.Registry.InitialBackoff = src.Registry.InitialBackoff
	}
	if src.Verifier.ArtifactsDir != "" {
		dst.Verifier.ArtifactsDir = src.Verifier.ArtifactsDir
	}
	if src.Verifier.Timeout != 0 {
		dst.Verifier.Timeout = src.Verifier.Timeout
	}
	if src.Verifier.Workers != 0 {
		dst.Verifier.Workers = src.Verifier.Workers
	}
	if src.Identifier.DisplayPrefix != "" {
		dst.Identifier.DisplayPrefix = src.Identifier.DisplayPrefix
	}
	if src.Accounts.Path != "" {
		dst.Accounts.Path = src.Accounts.Path
	}
}

// ApplyEnvOverrides applies ZKGATE_* variables on top of the merged
// configuration.
func ApplyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("ZKGATE_SERVER_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("ZKGATE_REGISTRY_RPC_URL")); v != "" {
		cfg.Registry.RPCURL = v
	}
	if v := strings.TrimSpace(os.Getenv("ZKGATE_REGISTRY_CONTRACT")); v != "" {
		cfg.Registry.ContractAddress = v
	}
	if v := strings.TrimSpace(os.Getenv("ZKGATE_ARTIFACTS_DIR")); v != "" {
		cfg.Verifier.ArtifactsDir = v
	}
	if v := strings.TrimSpace(os.Getenv("ZKGATE_DISPLAY_PREFIX")); v != "" {
		cfg.Identifier.DisplayPrefix = v
	}
	if v := strings.TrimSpace(os.Getenv("ZKGATE_ACCOUNTS_PATH")); v != "" {
		cfg.Accounts.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("ZKGATE_VERIFIER_WORKERS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Verifier.Workers = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ZKGATE_VERIFIER_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Verifier.Timeout = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("ZKGATE_REGISTRY_MAX_ATTEMPTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Registry.MaxAttempts = n
		}
	}
}
