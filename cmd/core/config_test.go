package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/adapter/out/transfer"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
ledger:
  account: ledger
transfer:
  target: localhost:50052
`

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, ":50051", cfg.Server.GRPCAddr)
	assert.Equal(t, engineMutex, cfg.Ledger.Engine)
	assert.Equal(t, "wal.log", cfg.Ledger.WALPath)
	assert.Equal(t, time.Minute, cfg.Ledger.SnapshotInterval)
	assert.Equal(t, 5*time.Second, cfg.Transfer.Timeout)
	assert.Equal(t, 3306, cfg.MySQL.Port)
	assert.False(t, cfg.MySQL.Enabled)
	assert.Equal(t, "ledger.events", cfg.NATS.SubjectPrefix)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_InlineMySQL(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, minimalConfig+`
mysql:
  enabled: true
  host: db
  db_name: stake_ledger
  conn_max_lifetime: 10m
`))
	require.NoError(t, err)
	assert.True(t, cfg.MySQL.Enabled)
	assert.Equal(t, "db", cfg.MySQL.Host)
	assert.Equal(t, 10*time.Minute, cfg.MySQL.ConnMaxLifetime)
}

func TestLoadConfig_SampleFile(t *testing.T) {
	cfg, err := loadConfig(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "stake-ledger", cfg.Ledger.Account)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing account", func(c *Config) { c.Ledger.Account = "" }, "ledger.account"},
		{"unknown engine", func(c *Config) { c.Ledger.Engine = "disruptor" }, "ledger.engine"},
		{"missing target", func(c *Config) { c.Transfer.Target = "" }, "transfer.target"},
		{"bad subaccount", func(c *Config) { c.Ledger.Subaccount = "abcd" }, "ledger.subaccount"},
		{"mysql without host", func(c *Config) { c.MySQL.Enabled = true; c.MySQL.Host = "" }, "mysql"},
		{"nats without url", func(c *Config) { c.NATS.Enabled = true; c.NATS.URL = "" }, "nats"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				Ledger:   LedgerConfig{Account: "ledger"},
				Transfer: validTransfer(),
			}
			cfg.applyDefaults()
			require.NoError(t, cfg.Validate())

			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func validTransfer() transfer.Config {
	return transfer.Config{Target: "localhost:50052"}
}

func TestConfig_MissingTargetIsInvalidTarget(t *testing.T) {
	cfg := Config{Ledger: LedgerConfig{Account: "ledger"}}
	cfg.applyDefaults()
	assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidTarget)
}

func TestLedgerConfig_Subaccount(t *testing.T) {
	sub, err := LedgerConfig{}.subaccount()
	require.NoError(t, err)
	assert.Nil(t, sub)

	sub, err = LedgerConfig{Subaccount: strings.Repeat("01", 32)}.subaccount()
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, byte(1), sub[31])
}
