// internal/config/config.go

// Package config loads service settings from an optional TOML file named by
// POKERBETS_CONFIG, then lets environment variables override each key.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jason-s-yu/pokerbets/internal/ledger"
)

type Config struct {
	Port           string   `toml:"port"`
	Env            string   `toml:"env"`
	AllowedOrigins []string `toml:"allowed_origins"`

	Store     Store     `toml:"store"`
	Redis     Redis     `toml:"redis"`
	Ledger    Ledger    `toml:"ledger"`
	Log       Log       `toml:"log"`
	Auth      Auth      `toml:"auth"`
	Historian Historian `toml:"historian"`
}

type Store struct {
	// Backend is one of memory, leveldb, postgres.
	Backend     string `toml:"backend"`
	LevelDBPath string `toml:"leveldb_path"`
}

type Redis struct {
	Addr  string `toml:"addr"`
	DB    int    `toml:"db"`
	Queue string `toml:"queue"`
}

type Ledger struct {
	CustodyReserve   uint64 `toml:"custody_reserve"`
	MaxModelNames    int    `toml:"max_model_names"`
	MaxNameLength    int    `toml:"max_name_length"`
	FinishedTerminal bool   `toml:"finished_terminal"`
}

type Log struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
	JSON  bool   `toml:"json"`
}

type Auth struct {
	PrivateKeyPath string `toml:"private_key_path"`
	PublicKeyPath  string `toml:"public_key_path"`
}

type Historian struct {
	BatchSize int `toml:"batch_size"`
	FlushMs   int `toml:"flush_ms"`
}

func Default() Config {
	return Config{
		Port:           "8080",
		Env:            "development",
		AllowedOrigins: []string{"*"},
		Store:          Store{Backend: "memory", LevelDBPath: "data"},
		Redis:          Redis{Queue: "pokerbets_events"},
		Ledger: Ledger{
			CustodyReserve: ledger.DefaultCustodyReserve,
			MaxModelNames:  ledger.DefaultMaxModelNames,
			MaxNameLength:  ledger.DefaultMaxNameLength,
		},
		Log:       Log{Level: "info"},
		Historian: Historian{BatchSize: 20, FlushMs: 500},
	}
}

// Load returns defaults, overlaid by the TOML file (if any), overlaid by
// the environment.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("POKERBETS_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.Env = getEnv("POKERBETS_ENV", c.Env)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}

	c.Store.Backend = getEnv("STORE_BACKEND", c.Store.Backend)
	c.Store.LevelDBPath = getEnv("LEVELDB_PATH", c.Store.LevelDBPath)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Queue = getEnv("REDIS_EVENT_QUEUE", c.Redis.Queue)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)

	c.Auth.PrivateKeyPath = getEnv("AUTH_PRIVATE_KEY_PATH", c.Auth.PrivateKeyPath)
	c.Auth.PublicKeyPath = getEnv("AUTH_PUBLIC_KEY_PATH", c.Auth.PublicKeyPath)

	var err error
	if c.Redis.DB, err = getEnvInt("REDIS_DB", c.Redis.DB); err != nil {
		return err
	}
	if c.Ledger.CustodyReserve, err = getEnvUint("CUSTODY_RESERVE", c.Ledger.CustodyReserve); err != nil {
		return err
	}
	if c.Ledger.MaxModelNames, err = getEnvInt("MAX_MODEL_NAMES", c.Ledger.MaxModelNames); err != nil {
		return err
	}
	if c.Ledger.MaxNameLength, err = getEnvInt("MAX_NAME_LENGTH", c.Ledger.MaxNameLength); err != nil {
		return err
	}
	if c.Ledger.FinishedTerminal, err = getEnvBool("FINISHED_TERMINAL", c.Ledger.FinishedTerminal); err != nil {
		return err
	}
	if c.Log.JSON, err = getEnvBool("LOG_JSON", c.Log.JSON); err != nil {
		return err
	}
	if c.Historian.BatchSize, err = getEnvInt("HISTORIAN_BATCH_SIZE", c.Historian.BatchSize); err != nil {
		return err
	}
	if c.Historian.FlushMs, err = getEnvInt("HISTORIAN_FLUSH_MS", c.Historian.FlushMs); err != nil {
		return err
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "leveldb", "postgres":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Ledger.MaxModelNames <= 0 || c.Ledger.MaxNameLength <= 0 {
		return fmt.Errorf("ledger bounds must be positive")
	}
	if c.Historian.BatchSize <= 0 || c.Historian.FlushMs <= 0 {
		return fmt.Errorf("historian batch size and flush interval must be positive")
	}
	return nil
}

// IsProduction disables the faucet and dev-token endpoints.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) LedgerOptions() ledger.Options {
	return ledger.Options{
		CustodyReserve:     c.Ledger.CustodyReserve,
		MaxModelNames:      c.Ledger.MaxModelNames,
		MaxNameLength:      c.Ledger.MaxNameLength,
		FinishedIsTerminal: c.Ledger.FinishedTerminal,
	}
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvUint(key string, def uint64) (uint64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
