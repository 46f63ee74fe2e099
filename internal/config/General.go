package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// ManagerAccount is the ledger account that holds pooled funds and posted
	// collateral on behalf of the protocol.
	ManagerAccount string
	// AdminAccount is the account granted the admin role at startup.
	AdminAccount string

	// APYBps is the simple-interest annual rate applied to loans, in basis points.
	APYBps uint64

	// WebPort is the port the HTTP API listens on.
	WebPort string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set unless noted otherwise.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	ManagerAccount, err = getEnv("POOL_MANAGER_ACCOUNT")
	if err != nil {
		return err
	}

	AdminAccount, err = getEnv("POOL_ADMIN_ACCOUNT")
	if err != nil {
		return err
	}

	APYBps, err = getEnvAsUint64("POOL_APY_BPS")
	if err != nil {
		return err
	}

	// Optional, the web server falls back to 8080.
	WebPort = os.Getenv("WEB_PORT")

	log.Debug().
		Str("ManagerAccount", ManagerAccount).
		Str("AdminAccount", AdminAccount).
		Uint64("APYBps", APYBps).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}
