package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	natsadapter "github.com/JoeShih716/go-stake-ledger/internal/app/core/adapter/out/nats"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/adapter/out/transfer"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/pkg/mysql"
)

const (
	engineMutex = "mutex"
	engineLMAX  = "lmax"
)

type Config struct {
	Server   ServerConfig       `yaml:"server"`
	Ledger   LedgerConfig       `yaml:"ledger"`
	Transfer transfer.Config    `yaml:"transfer"`
	MySQL    MySQLConfig        `yaml:"mysql"`
	NATS     natsadapter.Config `yaml:"nats"`
	Log      LogConfig          `yaml:"log"`
}

type ServerConfig struct {
	GRPCAddr    string `yaml:"grpc_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

type LedgerConfig struct {
	// Engine "mutex" 或 "lmax"
	Engine string `yaml:"engine"`
	// Account 帳本在外部轉帳服務上的身分
	Account string `yaml:"account"`
	// Subaccount 32 bytes hex，可省略
	Subaccount string `yaml:"subaccount"`

	WALPath          string        `yaml:"wal_path"`
	BufferSize       int           `yaml:"buffer_size"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
}

// MySQLConfig 快照資料庫，未啟用時只依賴 WAL
type MySQLConfig struct {
	Enabled      bool `yaml:"enabled"`
	mysql.Config `yaml:",inline"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// loadConfig 讀取 YAML 設定檔，補上預設值後驗證
func loadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = ":50051"
	}
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = ":9090"
	}
	if c.Ledger.Engine == "" {
		c.Ledger.Engine = engineMutex
	}
	if c.Ledger.WALPath == "" {
		c.Ledger.WALPath = "wal.log"
	}
	if c.Ledger.BufferSize == 0 {
		c.Ledger.BufferSize = 1024
	}
	if c.Ledger.SnapshotInterval == 0 {
		c.Ledger.SnapshotInterval = time.Minute
	}
	if c.Transfer.Timeout == 0 {
		c.Transfer.Timeout = 5 * time.Second
	}

	// 補全 MySQL 預設配置 (如果 yaml 沒寫)
	if c.MySQL.Port == 0 {
		c.MySQL.Port = 3306
	}
	if c.MySQL.MaxOpenConns == 0 {
		c.MySQL.MaxOpenConns = 100
	}
	if c.MySQL.MaxIdleConns == 0 {
		c.MySQL.MaxIdleConns = 10
	}
	if c.MySQL.ConnMaxLifetime == 0 {
		c.MySQL.ConnMaxLifetime = 30 * time.Minute
	}
	if c.MySQL.MaxRetries == 0 {
		c.MySQL.MaxRetries = 10
	}

	if c.NATS.Name == "" {
		c.NATS.Name = "stake-ledger"
	}
	if c.NATS.Stream == "" {
		c.NATS.Stream = "LEDGER_EVENTS"
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "ledger.events"
	}
	if c.NATS.MaxAge == 0 {
		c.NATS.MaxAge = 72 * time.Hour
	}
	if c.NATS.ReconnectWait == 0 {
		c.NATS.ReconnectWait = 2 * time.Second
	}
	if c.NATS.MaxReconnects == 0 {
		c.NATS.MaxReconnects = -1
	}
	if c.NATS.PublishTimeout == 0 {
		c.NATS.PublishTimeout = 2 * time.Second
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate 啟動前檢查，錯誤的設定不應該讓服務跑起來
func (c *Config) Validate() error {
	if c.Ledger.Account == "" {
		return errors.New("ledger.account is required")
	}
	if c.Ledger.Engine != engineMutex && c.Ledger.Engine != engineLMAX {
		return fmt.Errorf("ledger.engine must be %q or %q, got %q", engineMutex, engineLMAX, c.Ledger.Engine)
	}
	if c.Ledger.SnapshotInterval < 0 {
		return errors.New("ledger.snapshot_interval must not be negative")
	}
	if _, err := c.Ledger.subaccount(); err != nil {
		return err
	}
	if c.Transfer.Target == "" {
		return fmt.Errorf("transfer.target: %w", domain.ErrInvalidTarget)
	}
	if c.MySQL.Enabled {
		if err := c.MySQL.Validate(); err != nil {
			return err
		}
	}
	return c.NATS.Validate()
}

func (l LedgerConfig) subaccount() (*domain.Subaccount, error) {
	if l.Subaccount == "" {
		return nil, nil
	}
	raw, err := hex.DecodeString(l.Subaccount)
	if err != nil {
		return nil, fmt.Errorf("ledger.subaccount: %w", err)
	}
	var sub domain.Subaccount
	if len(raw) != len(sub) {
		return nil, fmt.Errorf("ledger.subaccount: want %d bytes, got %d", len(sub), len(raw))
	}
	copy(sub[:], raw)
	return &sub, nil
}
