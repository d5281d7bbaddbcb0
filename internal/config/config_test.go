package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{
		"HOLDEM_ADDR", "HOLDEM_MAX_SEATS", "HOLDEM_START_STACK", "HOLDEM_SMALL_BLIND",
		"HOLDEM_BIG_BLIND", "HOLDEM_SEED", "HOLDEM_LEDGER", "HOLDEM_LEDGER_DSN",
		"HOLDEM_OPERATOR_TOKEN_HASH", "HOLDEM_CONSOLE",
	} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 9, cfg.Table.MaxSeats)
	assert.Equal(t, int64(1000), cfg.Table.StartingStack)
	assert.Equal(t, int64(5), cfg.Table.SmallBlind)
	assert.Equal(t, int64(10), cfg.Table.BigBlind)
	assert.Equal(t, LedgerSQLite, cfg.LedgerMode)
	assert.Equal(t, ":memory:", cfg.LedgerDSN)
	assert.False(t, cfg.Console)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("HOLDEM_ADDR", "127.0.0.1:9000")
	t.Setenv("HOLDEM_MAX_SEATS", "6")
	t.Setenv("HOLDEM_START_STACK", "500")
	t.Setenv("HOLDEM_SMALL_BLIND", "1")
	t.Setenv("HOLDEM_BIG_BLIND", "2")
	t.Setenv("HOLDEM_SEED", "99")
	t.Setenv("HOLDEM_LEDGER", "mem")
	t.Setenv("HOLDEM_CONSOLE", "yes")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, 6, cfg.Table.MaxSeats)
	assert.Equal(t, int64(500), cfg.Table.StartingStack)
	assert.Equal(t, int64(2), cfg.Table.BigBlind)
	assert.Equal(t, int64(99), cfg.Table.Seed)
	assert.Equal(t, LedgerMemory, cfg.LedgerMode)
	assert.True(t, cfg.Console)
}

func TestFromEnv_Rejects(t *testing.T) {
	t.Setenv("HOLDEM_LEDGER", "")
	t.Setenv("HOLDEM_MAX_SEATS", "12")
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("HOLDEM_MAX_SEATS", "")
	t.Setenv("HOLDEM_LEDGER", "postgres")
	t.Setenv("HOLDEM_LEDGER_DSN", "")
	_, err = FromEnv()
	assert.Error(t, err)

	t.Setenv("HOLDEM_LEDGER", "redis")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestFromEnv_BadNumberFallsBack(t *testing.T) {
	t.Setenv("HOLDEM_LEDGER", "")
	t.Setenv("HOLDEM_MAX_SEATS", "")
	t.Setenv("HOLDEM_START_STACK", "lots")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, int64(1000), cfg.Table.StartingStack)
}
