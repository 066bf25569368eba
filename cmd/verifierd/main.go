package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"zkgate/go-backend/internal/accounts"
	"zkgate/go-backend/internal/api"
	"zkgate/go-backend/internal/config"
	"zkgate/go-backend/internal/identifier"
	"zkgate/go-backend/internal/platform/privacylog"
	"zkgate/go-backend/internal/platform/ratelimiter"
	"zkgate/go-backend/internal/registry"
	"zkgate/go-backend/internal/verifier"
	"zkgate/go-backend/internal/verify"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "", "Path to config.yaml (optional)")
	artifactsDir := flag.String("artifacts", "", "Circuit artifacts directory (overrides config)")
	devRegistry := flag.Bool("dev-registry", false, "Use an empty in-memory registry instead of the chain (local development only)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("verifierd version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadFromPath(*configPath)
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *artifactsDir != "" {
		cfg.Verifier.ArtifactsDir = *artifactsDir
	}

	logger := slog.New(privacylog.WrapHandler(slog.NewJSONHandler(os.Stderr, nil)))
	slog.SetDefault(logger)

	proofVerifier, err := verifier.LoadFromDir(cfg.Verifier.ArtifactsDir, cfg.Verifier.Workers, cfg.Verifier.Timeout)
	if err != nil {
		log.Fatalf("verifierd failed to load verification artifacts: %v", err)
	}

	var reader registry.Reader
	switch {
	case *devRegistry:
		logger.Warn("using in-memory dev registry; every leaf resolves unregistered")
		reader = registry.NewStatic()
	case cfg.Registry.ContractAddress == "":
		log.Fatal("verifierd requires registry.contractAddress (or -dev-registry)")
	default:
		if !common.IsHexAddress(cfg.Registry.ContractAddress) {
			log.Fatalf("verifierd: malformed registry contract address %q", cfg.Registry.ContractAddress)
		}
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		reader, err = registry.Dial(dialCtx, cfg.Registry.RPCURL,
			common.HexToAddress(cfg.Registry.ContractAddress),
			registry.Options{
				AttemptTimeout: cfg.Registry.AttemptTimeout,
				MaxAttempts:    cfg.Registry.MaxAttempts,
				InitialBackoff: cfg.Registry.InitialBackoff,
			})
		cancel()
		if err != nil {
			log.Fatalf("verifierd failed to reach registry RPC: %v", err)
		}
	}

	store := accounts.NewStore()
	if cfg.Accounts.Path != "" {
		store, err = accounts.NewPersistentStore(cfg.Accounts.Path)
		if err != nil {
			log.Fatalf("verifierd failed to open account store: %v", err)
		}
	}

	orch := verify.New(reader, proofVerifier, identifier.NewCodec(cfg.Identifier.DisplayPrefix), logger)
	limiter := ratelimiter.New(cfg.Server.RateRPS, cfg.Server.RateBurst, 10*time.Minute)
	srv := api.NewServer(cfg.Server.Addr, orch, store, limiter, logger)

	logger.Info("verifierd starting", slog.String("addr", cfg.Server.Addr), slog.String("version", version))
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("verifierd failed: %v", err)
	}
	logger.Info("verifierd stopped")
}
