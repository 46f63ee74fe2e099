package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/auth"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/config"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/logger"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/oracle"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/pool"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/registry"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/state"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/token"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/types"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/utils"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/web"
)

// main is the entry point for the pool lending service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Pool lending service starting...")

	// Initialize Database Connection (audit trail persistence)
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// --- 2. Protocol Core Initialization (with Dependency Injection) ---
	registryCap := auth.NewCapability()
	loanRegistry := registry.New(registryCap)
	rates := oracle.NewStatic()
	roles := auth.NewRoles(types.AccountID(config.AdminAccount))

	managerConfig := pool.Config{
		Account:     types.AccountID(config.ManagerAccount),
		Roles:       roles,
		Registry:    loanRegistry,
		RegistryCap: registryCap,
		Rates:       rates,
		APYBps:      config.APYBps,
		Recorder:    state.NewRecorder(),
	}

	manager, err := pool.NewManager(managerConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create pool manager")
	}

	log.Info().
		Str("managerAccount", config.ManagerAccount).
		Str("adminAccount", config.AdminAccount).
		Uint64("apyBps", config.APYBps).
		Msg("Pool manager created successfully")

	if err := bootstrapAssets(manager); err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap configured assets")
	}

	// --- 3. Start Web Server ---
	webServer := web.NewWebServer(config.WebPort, manager, loanRegistry, rates)
	go func() {
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 4. Wait For Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Info().Str("signal", sig.String()).Msg("Shutdown signal received, stopping service")
}

// bootstrapAssets wires the pools declared in the environment. POOL_ASSETS and
// POOL_COLLATERAL are comma-separated asset ids backed by fresh in-process
// ledgers; POOL_RATES is a comma-separated list of from:to:rate triples.
func bootstrapAssets(manager *pool.Manager) error {
	admin := types.AccountID(config.AdminAccount)
	ledgers := make(map[string]*token.Token)

	ledgerFor := func(asset string) *token.Token {
		if ledger, ok := ledgers[asset]; ok {
			return ledger
		}
		ledger := token.New(asset, strings.ToUpper(asset))
		ledgers[asset] = ledger
		return ledger
	}

	for _, asset := range splitList(os.Getenv("POOL_ASSETS")) {
		if err := manager.AllowAsset(admin, types.AssetID(asset), ledgerFor(asset)); err != nil {
			return fmt.Errorf("allowing asset %s: %w", asset, err)
		}
	}
	for _, asset := range splitList(os.Getenv("POOL_COLLATERAL")) {
		if err := manager.AllowCollateral(admin, types.AssetID(asset), ledgerFor(asset)); err != nil {
			return fmt.Errorf("allowing collateral %s: %w", asset, err)
		}
	}
	for _, entry := range splitList(os.Getenv("POOL_RATES")) {
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return fmt.Errorf("rate entry %q is not from:to:rate", entry)
		}
		rate, err := utils.ParseRate(parts[2])
		if err != nil {
			return fmt.Errorf("rate entry %q: %w", entry, err)
		}
		if err := manager.SetConversionRate(admin, types.AssetID(parts[0]), types.AssetID(parts[1]), rate); err != nil {
			return fmt.Errorf("rate entry %q: %w", entry, err)
		}
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
