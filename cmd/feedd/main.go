package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"feedchain/config"
	"feedchain/core/state"
	"feedchain/host"
	"feedchain/native/feetoken"
	"feedchain/native/social"
	"feedchain/observability/logging"
	"feedchain/rpc"
	"feedchain/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("FEED_ENV"))
	logger := logging.Setup("feedd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	manager, err := state.NewManager(db)
	if err != nil {
		logger.Error("Failed to open state manager", slog.Any("error", err))
		os.Exit(1)
	}

	byteCost, err := cfg.ParseStorageByteCost()
	if err != nil {
		logger.Error("Invalid storage byte cost", slog.Any("error", err))
		os.Exit(1)
	}
	runtime := host.NewRuntime(byteCost)

	supply, err := cfg.ParseFeeTokenSupply()
	if err != nil {
		logger.Error("Invalid fee token supply", slog.Any("error", err))
		os.Exit(1)
	}
	ledger := feetoken.NewLedger(cfg.TreasuryAccount, supply)
	runtime.Register(cfg.FeeLedgerAddress, ledger)
	if err := ledger.AddFeeCollector(cfg.TreasuryAccount, cfg.SocialAddress); err != nil {
		logger.Error("Failed to register fee collector", slog.Any("error", err))
		os.Exit(1)
	}

	engine, err := openEngine(manager, runtime, cfg, logger)
	if err != nil {
		logger.Error("Failed to open social engine", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("social engine ready",
		slog.String("address", cfg.SocialAddress),
		slog.String("owner", engine.Owner()),
		slog.Uint64("storageUsage", manager.StorageUsage()),
		slog.String("storageByteCost", byteCost.String()),
	)

	server := rpc.NewServer(engine, runtime, manager)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// openEngine loads the contract from persisted state, constructing and
// calibrating it on first start.
func openEngine(manager *state.Manager, runtime *host.Runtime, cfg *config.Config, logger *slog.Logger) (*social.Engine, error) {
	engine, err := social.LoadEngine(manager, runtime, cfg.SocialAddress)
	if err == nil {
		return engine, nil
	}
	if !errors.Is(err, social.ErrNotInitialized) {
		return nil, err
	}

	logger.Info("no contract state found, constructing",
		slog.String("owner", cfg.OwnerAccount),
		slog.String("feeLedger", cfg.FeeLedgerAddress),
	)
	settings := social.AdminSettingsUpdate{
		AccountRecentLikesLimit:          &cfg.AccountRecentLikesLimit,
		AddMessageExtraFeePercent:        &cfg.AddMessageExtraFeePercent,
		LikePostExtraFeePercent:          &cfg.LikePostExtraFeePercent,
		LikeMessageExtraFeePercent:       &cfg.LikeMessageExtraFeePercent,
		AddFriendExtraFeePercent:         &cfg.AddFriendExtraFeePercent,
		UpdateProfileExtraFeePercent:     &cfg.UpdateProfileExtraFeePercent,
		AccountRecentLikeExtraFeePercent: &cfg.AccountRecentLikeExtraFeePercent,
	}
	return social.NewEngine(manager, runtime, cfg.SocialAddress, cfg.OwnerAccount, cfg.FeeLedgerAddress, settings)
}
