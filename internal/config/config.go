package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"holdem-table/holdem"
)

const (
	LedgerMemory   = "memory"
	LedgerSQLite   = "sqlite"
	LedgerPostgres = "postgres"
)

// Server is the process configuration.
type Server struct {
	Addr  string
	Table holdem.Config

	LedgerMode string
	LedgerDSN  string

	// bcrypt hash of the operator token; empty disables the admin endpoint
	OperatorTokenHash string
	Console           bool
}

// Load reads an optional .env file from the working directory, then the
// HOLDEM_* environment variables.
func Load() (Server, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[Config] Warning: error loading .env file: %v", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the environment only.
func FromEnv() (Server, error) {
	table := holdem.DefaultConfig()
	table.MaxSeats = envIntOrDefault("HOLDEM_MAX_SEATS", table.MaxSeats)
	table.StartingStack = envInt64OrDefault("HOLDEM_START_STACK", table.StartingStack)
	table.SmallBlind = envInt64OrDefault("HOLDEM_SMALL_BLIND", table.SmallBlind)
	table.BigBlind = envInt64OrDefault("HOLDEM_BIG_BLIND", table.BigBlind)
	table.Seed = envInt64OrDefault("HOLDEM_SEED", 0)

	s := Server{
		Addr:              envStringOrDefault("HOLDEM_ADDR", ":8080"),
		Table:             table,
		LedgerMode:        ledgerModeFromEnv(),
		LedgerDSN:         strings.TrimSpace(os.Getenv("HOLDEM_LEDGER_DSN")),
		OperatorTokenHash: strings.TrimSpace(os.Getenv("HOLDEM_OPERATOR_TOKEN_HASH")),
		Console:           envBool("HOLDEM_CONSOLE"),
	}
	if s.LedgerMode == LedgerSQLite && s.LedgerDSN == "" {
		s.LedgerDSN = ":memory:"
	}
	if err := s.validate(); err != nil {
		return Server{}, err
	}
	return s, nil
}

func (s Server) validate() error {
	if s.Table.MaxSeats < 2 || s.Table.MaxSeats > holdem.MaxSeatsLimit {
		return fmt.Errorf("HOLDEM_MAX_SEATS must be in [2, %d], got %d", holdem.MaxSeatsLimit, s.Table.MaxSeats)
	}
	switch s.LedgerMode {
	case LedgerMemory, LedgerSQLite:
	case LedgerPostgres:
		if s.LedgerDSN == "" {
			return fmt.Errorf("HOLDEM_LEDGER_DSN is required for %s ledger", LedgerPostgres)
		}
	default:
		return fmt.Errorf("invalid HOLDEM_LEDGER %q (supported: %s, %s, %s)",
			s.LedgerMode, LedgerMemory, LedgerSQLite, LedgerPostgres)
	}
	return nil
}

func ledgerModeFromEnv() string {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("HOLDEM_LEDGER")))
	switch raw {
	case "", LedgerSQLite, "local":
		return LedgerSQLite
	case LedgerPostgres, "postgresql", "pg":
		return LedgerPostgres
	case LedgerMemory, "mem", "none":
		return LedgerMemory
	default:
		return raw
	}
}

func envStringOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[Config] Ignoring %s=%q: %v", key, v, err)
		return fallback
	}
	return n
}

func envInt64OrDefault(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("[Config] Ignoring %s=%q: %v", key, v, err)
		return fallback
	}
	return n
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
