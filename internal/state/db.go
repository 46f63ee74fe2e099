// ./internal/state/db.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// TestDBConnection pings the database, used by the health endpoint.
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	return DB.Ping()
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS operation_receipts (
			receipt_id UUID PRIMARY KEY,
			kind VARCHAR(16) NOT NULL,
			caller VARCHAR(255) NOT NULL,
			asset VARCHAR(255) NOT NULL,
			amount NUMERIC(78, 0) NOT NULL,
			loan_id BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_operation_receipts_created_at ON operation_receipts(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_operation_receipts_loan_id ON operation_receipts(loan_id) WHERE loan_id > 0;

		CREATE TABLE IF NOT EXISTS loan_snapshots (
			snapshot_id BIGSERIAL PRIMARY KEY,
			loan_id BIGINT NOT NULL,
			borrower VARCHAR(255) NOT NULL,
			collateral_token VARCHAR(255) NOT NULL,
			collateral_amount NUMERIC(78, 0) NOT NULL,
			borrow_token VARCHAR(255) NOT NULL,
			borrow_amount NUMERIC(78, 0) NOT NULL,
			liquidation_price NUMERIC(78, 0) NOT NULL,
			status VARCHAR(16) NOT NULL,
			loan_timestamp BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_loan_snapshots_loan_id ON loan_snapshots(loan_id, snapshot_id DESC);
	`
	if _, err := DB.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Info().Msg("Database schema ensured.")
	return nil
}
